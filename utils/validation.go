package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError represents a request validation failure with
// per-field messages
type ValidationError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateStruct validates a struct using its validate tags and
// returns a *ValidationError describing every failed field
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Message: "invalid request payload"}
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[strings.ToLower(fieldErr.Field())] = messageForTag(fieldErr)
	}

	return &ValidationError{
		Message: "request validation failed",
		Fields:  fields,
	}
}

// IsValidationError reports whether err is a *ValidationError
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// GetValidationFields returns the per-field messages of a validation
// error, or nil for other errors
func GetValidationFields(err error) map[string]string {
	if vErr, ok := err.(*ValidationError); ok {
		return vErr.Fields
	}
	return nil
}

func messageForTag(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldErr.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fieldErr.Param())
	case "dive":
		return "invalid element"
	default:
		return fmt.Sprintf("failed validation on %s", fieldErr.Tag())
	}
}
