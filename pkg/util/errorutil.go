package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes shared by the service and its adapters.
const (
	CodeEmailAlreadyExists      = "EMAIL_ALREADY_EXISTS"
	CodeInvalidPassword         = "INVALID_PASSWORD"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidArgument         = "INVALID_ARGUMENT"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeConstraintViolation     = "CONSTRAINT_VIOLATION"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodePublishFailure          = "PUBLISH_FAILURE"
	CodeInternal                = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. Matching is done on Code only.
var (
	ErrEmailAlreadyExists      = &DomainError{Code: CodeEmailAlreadyExists}
	ErrInvalidPassword         = &DomainError{Code: CodeInvalidPassword}
	ErrUserNotFound            = &DomainError{Code: CodeUserNotFound}
	ErrNotFound                = &DomainError{Code: CodeNotFound}
	ErrInvalidArgument         = &DomainError{Code: CodeInvalidArgument}
	ErrConstraintViolation     = &DomainError{Code: CodeConstraintViolation}
	ErrInvalidStatusTransition = &DomainError{Code: CodeInvalidStatusTransition}
	ErrPublishFailure          = &DomainError{Code: CodePublishFailure}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewInvalidArgument(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidArgument, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUserNotFound(id string) error {
	return NewDomainError(CodeUserNotFound, fmt.Sprintf("user %s not found", id), http.StatusNotFound,
		map[string]any{"user_id": id})
}

func NewEmailAlreadyExists(email string) error {
	return NewDomainError(CodeEmailAlreadyExists, fmt.Sprintf("email %s is already registered", email),
		http.StatusConflict, nil)
}

func NewInvalidPassword(message string) error {
	return NewDomainError(CodeInvalidPassword, message, http.StatusBadRequest, nil)
}

// NewConstraintViolation reports a uniqueness conflict detected by the store.
func NewConstraintViolation(message string, err error) error {
	return &DomainError{
		Code:       CodeConstraintViolation,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewInvalidStatusTransition(from, to string) error {
	return NewDomainError(CodeInvalidStatusTransition,
		fmt.Sprintf("cannot change status from %s to %s", from, to), http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

// NewPublishFailure wraps a delivery problem. It is never surfaced to API callers.
func NewPublishFailure(topic string, err error) error {
	return &DomainError{
		Code:       CodePublishFailure,
		Message:    fmt.Sprintf("publish to %s failed", topic),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.HTTPStatus == 0 {
			copied := *domainErr
			copied.HTTPStatus = http.StatusInternalServerError
			return &copied
		}
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
