package dto

import (
	"errors"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/booking-system/user-service/pkg/util"
)

var validate = validator.New()

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Validate checks struct tags and returns a VALIDATION_FAILED error listing offending fields.
func Validate(obj any) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid request payload", nil)
	}

	fields := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return apperrors.NewValidationError("invalid request data", map[string]any{"fields": fields})
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "eqfield":
		return "Passwords do not match"
	default:
		return "Invalid value"
	}
}
