package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/booking-system/user-service/pkg/util"
)

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "%v", err)
	fields, ok := apperrors.ToDomainError(err).Details["fields"].([]FieldError)
	require.True(t, ok)
	return fields
}

func TestChangePasswordRequestRequiresConfirmation(t *testing.T) {
	ok := ChangePasswordRequest{CurrentPassword: "Password123", NewPassword: "NewPassword456", ConfirmPassword: "NewPassword456"}
	assert.NoError(t, Validate(ok))

	mismatch := ok
	mismatch.ConfirmPassword = "NewPassword457"
	fields := fieldErrors(t, Validate(mismatch))
	require.Len(t, fields, 1)
	assert.Equal(t, FieldError{Field: "ConfirmPassword", Message: "Passwords do not match", Type: "eqfield"}, fields[0])

	missing := ok
	missing.ConfirmPassword = ""
	fields = fieldErrors(t, Validate(missing))
	require.Len(t, fields, 1)
	assert.Equal(t, "required", fields[0].Type)
}

func TestPasswordFieldsStopAtBcryptLimit(t *testing.T) {
	long := "Password1" + strings.Repeat("x", 64)

	fields := fieldErrors(t, Validate(UserRegisterRequest{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: long}))
	require.Len(t, fields, 1)
	assert.Equal(t, "Password", fields[0].Field)
	assert.Equal(t, "max", fields[0].Type)

	fields = fieldErrors(t, Validate(ChangePasswordRequest{CurrentPassword: "Password123", NewPassword: long, ConfirmPassword: long}))
	require.Len(t, fields, 1)
	assert.Equal(t, "NewPassword", fields[0].Field)
}
