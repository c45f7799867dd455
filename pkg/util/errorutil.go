package util

import (
	"errors"
	"fmt"
)

// Error codes used across the application.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
)

// DomainError standardizes application errors. Details carries field-keyed
// validation messages when the error is user-correctable.
type DomainError struct {
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, details map[string]string) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

func NewValidationError(details map[string]string) error {
	return NewDomainError(CodeValidationFailed, "validation failed", details)
}

func NewConflict(message string, details map[string]string) error {
	return NewDomainError(CodeConflict, message, details)
}

// NewInvalidCredentials returns the intentionally non-specific login failure:
// a single general error, never tied to a particular field.
func NewInvalidCredentials(message string) error {
	return NewDomainError(CodeInvalidCredentials, message, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, nil)
}

func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:    CodeInternalError,
		Message: "internal error",
		Err:     err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:    CodeInternalError,
		Message: "internal error",
		Err:     err,
	}
}
