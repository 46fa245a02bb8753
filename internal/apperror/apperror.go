// Package apperror defines the error taxonomy shared by every layer.
//
// Each failure the service layer can report is one of a handful of sentinel
// errors wrapped in an *AppError that carries a human-readable message:
//
//	NotFound            lookup by id/slug/email failed
//	Conflict            uniqueness violation (email, username, slug, like)
//	ValidationError     empty, too long or malformed input
//	InvalidCredentials  authentication failure
//	Unauthorized        ownership or role check failure
//	Transport           storage or network failure underneath a store
//	NotConfigured       a feature needs a backend that is not configured
//
// Callers match with errors.Is against the sentinels and use errors.As to get
// at the message. Nothing above the service layer should ever see an error
// that is not an *AppError; Normalize enforces that.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTransport          = errors.New("transport error")
	ErrNotConfigured      = errors.New("not configured")
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	cause   error  // underlying failure, kept for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Cause returns the low-level error behind a Transport error, if any.
// It is never shown to end users.
func (e *AppError) Cause() error {
	return e.cause
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. key is the value that collided
// (an email, a slug, a like triple).
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// ConflictMessage is Conflict with a caller-chosen message, for the cases the
// user sees verbatim ("Email already registered").
func ConflictMessage(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

// InvalidCredentials is deliberately constant: the message never says which
// half of (email, password) was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid email or password",
	}
}

// InvalidSession reports a session token that is expired, revoked or names
// an account that no longer exists.
func InvalidSession() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Session expired, please sign in again",
	}
}

// Unauthorized returns an AppError indicating the caller lacks permission
// (not the owner, not an admin, not signed in).
// HTTP handlers map this to 403 Forbidden.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Transport wraps a storage or network failure. The cause is kept for
// logging but the message stays generic.
func Transport(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrTransport,
		Message: fmt.Sprintf("%s failed", op),
		cause:   cause,
	}
}

// TransportMessage is Transport with a caller-chosen message.
func TransportMessage(message string, cause error) *AppError {
	return &AppError{Err: ErrTransport, Message: message, cause: cause}
}

func NotConfigured(message string) *AppError {
	return &AppError{
		Err:     ErrNotConfigured,
		Message: message,
	}
}

// Normalize guarantees the taxonomy: *AppError values pass through untouched,
// anything else becomes a Transport error for op.
func Normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Transport(op, err)
}

// Kind returns the machine-readable name of err's category, as used in API
// error bodies.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	default:
		return "internal_error"
	}
}
