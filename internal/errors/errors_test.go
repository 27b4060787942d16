package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors_StatusAndMessage(t *testing.T) {
	tests := []struct {
		name           string
		err            *AppError
		expectedType   ErrorType
		expectedStatus int
		expectedMsg    string
	}{
		{"decode", NewDecodeError(nil), ErrorTypeDecode, http.StatusBadRequest, "Invalid base64 image data"},
		{"size exceeded", NewSizeExceededError(1), ErrorTypeValidation, http.StatusBadRequest, "Image size exceeds the limit of 1 MB"},
		{"size exceeded fractional", NewSizeExceededError(2.5), ErrorTypeValidation, http.StatusBadRequest, "Image size exceeds the limit of 2.5 MB"},
		{"overlap", NewOverlapError(), ErrorTypeValidation, http.StatusBadRequest, "Rectangles cannot overlap. Please adjust the annotations."},
		{"request", NewRequestError("bad field", nil), ErrorTypeRequest, http.StatusUnprocessableEntity, "bad field"},
		{"not found", NewNotFoundError(nil), ErrorTypeNotFound, http.StatusNotFound, "annotation not found"},
		{"storage", NewStorageError(nil), ErrorTypeStorage, http.StatusInternalServerError, "storage failure"},
		{"internal", NewInternalError(nil), ErrorTypeInternal, http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.expectedType {
				t.Errorf("Expected type %s, got %s", tt.expectedType, tt.err.Type)
			}
			if tt.err.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, tt.err.StatusCode)
			}
			if tt.err.Message != tt.expectedMsg {
				t.Errorf("Expected message %q, got %q", tt.expectedMsg, tt.err.Message)
			}
		})
	}
}

func TestClassification_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("update 7: %w", NewOverlapError())

	if !IsType(wrapped, ErrorTypeValidation) {
		t.Error("Expected wrapped overlap error to classify as validation")
	}
	if !HasReason(wrapped, ReasonOverlap) {
		t.Error("Expected wrapped overlap error to carry the overlap reason")
	}
	if HasReason(wrapped, ReasonSizeExceeded) {
		t.Error("Did not expect size_exceeded reason")
	}
	if GetStatusCode(wrapped) != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", GetStatusCode(wrapped))
	}
	if GetMessage(wrapped) != MessageOverlap {
		t.Errorf("Expected overlap message, got %q", GetMessage(wrapped))
	}
}

func TestPlainErrors_DefaultToInternal(t *testing.T) {
	err := stderrors.New("boom")
	if GetStatusCode(err) != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", GetStatusCode(err))
	}
	if GetMessage(err) != MessageInternal {
		t.Errorf("Expected internal message, got %q", GetMessage(err))
	}
	if IsType(err, ErrorTypeNotFound) {
		t.Error("Plain error should not classify as not_found")
	}
}

func TestAppError_UnwrapAndFormat(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStorageError(cause)

	if !stderrors.Is(err, cause) {
		t.Error("Expected storage error to unwrap to its cause")
	}
	expected := "storage: storage failure (caused by: connection refused)"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
	if NewOverlapError().Error() != "validation: "+MessageOverlap {
		t.Errorf("Unexpected format: %q", NewOverlapError().Error())
	}
}
