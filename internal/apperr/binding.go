package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromBinding turns a gin binding failure into a validation error. Struct tag violations
// become one FieldError per field; anything else (malformed JSON) is reported against "body".
func FromBinding(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation("Invalid request body", FieldError{Field: "body", Message: err.Error()}).Wrap(err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: jsonName(fe.Field()), Message: describe(fe)})
	}
	return Validation("Validation failed", fields...).Wrap(err)
}

func describe(fe validator.FieldError) string {
	name := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
