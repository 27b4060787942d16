package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "github.com/anime-shed/image-annotator-go/internal/errors"

	"github.com/go-playground/validator/v10"
)

// RequestValidator checks the shape of decoded request inputs
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator that reports fields by their JSON names
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Validate returns a request AppError describing the first offending field
func (rv *RequestValidator) Validate(input interface{}) error {
	err := rv.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewRequestError("invalid request", err)
	}

	fe := fieldErrs[0]
	return apperrors.NewRequestError(describeFieldError(fe), err)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	// drop the root struct name
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: field required", field)
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}
