package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRequest    ErrorType = "request"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// Validation reasons carried by ErrorTypeValidation errors.
const (
	ReasonSizeExceeded = "size_exceeded"
	ReasonOverlap      = "overlap"
)

const (
	MessageInvalidImageData = "Invalid base64 image data"
	MessageOverlap          = "Rectangles cannot overlap. Please adjust the annotations."
	MessageNotFound         = "annotation not found"
	MessageStorage          = "storage failure"
	MessageInternal         = "internal server error"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Reason     string    `json:"reason,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewDecodeError reports image data that is not valid base64
func NewDecodeError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    MessageInvalidImageData,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewSizeExceededError reports a decoded image above the configured limit
func NewSizeExceededError(limitMB float64) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Reason:     ReasonSizeExceeded,
		Message:    fmt.Sprintf("Image size exceeds the limit of %g MB", limitMB),
		StatusCode: http.StatusBadRequest,
	}
}

// NewOverlapError reports a bounding box set containing an overlapping pair
func NewOverlapError() *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Reason:     ReasonOverlap,
		Message:    MessageOverlap,
		StatusCode: http.StatusBadRequest,
	}
}

// NewRequestError reports a request whose fields have the wrong shape
func NewRequestError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeRequest,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    MessageNotFound,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewStorageError wraps a backing store failure
func NewStorageError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Message:    MessageStorage,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    MessageInternal,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// HasReason checks if the error is a validation error with the given reason
func HasReason(err error, reason string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == ErrorTypeValidation && appErr.Reason == reason
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetMessage extracts the client-facing message from an error
func GetMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return MessageInternal
}
