package warden

import (
	"errors"
	"net/http"
)

// ErrorKind classifies auth failures. The web layer is the only place these
// are translated to HTTP status codes.
type ErrorKind int

const (
	KindValidation   ErrorKind = iota + 1 // empty or malformed input
	KindConflict                          // duplicate email, unmatched credentials
	KindUnauthorized                      // missing, invalid or expired token
)

// Error codes for programmatic handling
const (
	ErrCodeEmptyInput    = "empty_input"
	ErrCodeEmailExists   = "email_exists"
	ErrCodeEmailNotFound = "email_not_found"
	ErrCodeBadPassword   = "password_mismatch"
	ErrCodeWrongToken    = "wrong_token"
	ErrCodeClaimInvalid  = "invalid_claim"
)

// AuthError is the error type surfaced by the auth service and the guards.
type AuthError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func NewValidationError(code, message string) *AuthError {
	return &AuthError{Kind: KindValidation, Code: code, Message: message}
}

func NewConflictError(code, message string) *AuthError {
	return &AuthError{Kind: KindConflict, Code: code, Message: message}
}

func NewUnauthorizedError(code, message string) *AuthError {
	return &AuthError{Kind: KindUnauthorized, Code: code, Message: message}
}

// KindOf returns the ErrorKind of err, or 0 if err is not an AuthError.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// StatusFor maps an error to the HTTP status the controller should emit.
// Anything that is not an AuthError is a 500.
func StatusFor(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
