package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal

	// Access-code validation taxonomy
	ErrInvalidOrExpiredCode
	ErrIdentityMismatch
	ErrProfileNotFound
	ErrGeneration
	ErrTechnical
)

// Kind returns the machine-readable name of the error code, surfaced to
// API clients as error_kind.
func (e *AppError) Kind() string {
	switch e.Code {
	case ErrNotFound:
		return "not_found"
	case ErrBadRequest:
		return "bad_request"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrForbidden:
		return "forbidden"
	case ErrInvalidOrExpiredCode:
		return "invalid_or_expired_code"
	case ErrIdentityMismatch:
		return "identity_mismatch"
	case ErrProfileNotFound:
		return "profile_not_found"
	case ErrGeneration:
		return "generation_failed"
	case ErrTechnical:
		return "technical_error"
	default:
		return "internal_error"
	}
}

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// InvalidOrExpiredCode covers both unknown codes and codes past their
// expiry. The message deliberately does not distinguish the two cases.
func InvalidOrExpiredCode() *AppError {
	return &AppError{
		Code:    ErrInvalidOrExpiredCode,
		Message: "code invalide ou expiré",
	}
}

func IdentityMismatch() *AppError {
	return &AppError{
		Code:    ErrIdentityMismatch,
		Message: "les informations fournies ne correspondent pas",
	}
}

func ProfileNotFound(err error) *AppError {
	return &AppError{
		Code:    ErrProfileNotFound,
		Message: "profil introuvable",
		Err:     err,
	}
}

func Generation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrGeneration,
		Message: message,
		Err:     err,
	}
}

func Technical(err error) *AppError {
	return &AppError{
		Code:    ErrTechnical,
		Message: "une erreur est survenue, veuillez réessayer",
		Err:     err,
	}
}

// AsAppError unwraps err into an *AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
