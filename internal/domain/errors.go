package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging only
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err carries a domain error with the given code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of the first domain error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Stable codes referenced outside this package.
const (
	CodeUserNotFound       = "user_not_found"
	CodeUnauthorized       = "unauthorized"
	CodeTokenMissing       = "token_missing"
	CodeTokenInvalid       = "token_invalid"
	CodeMissingIdentity    = "missing_identity"
	CodeForbidden          = "forbidden"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeInactiveAccount    = "inactive_account"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidRole        = "invalid_role"
	CodeDBUnavailable      = "db_unavailable"
)

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

// Uniqueness is enforced by the store; this is what a violation maps to.
func ErrEmailAlreadyExists() *Error {
	return New(KindValidation, CodeEmailAlreadyExists, "email already registered")
}

// Returned after the account was found but before the password is checked,
// so it never reveals whether the password was right.
func ErrInactiveAccount() *Error {
	return New(KindValidation, CodeInactiveAccount, "inactive account")
}

func ErrInvalidRole(role string) *Error {
	return WithMeta(
		New(KindValidation, CodeInvalidRole, "invalid role"),
		map[string]string{"role": role},
	)
}

// ----------------------
// Auth errors (401)
// ----------------------

func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid email or password")
}

func ErrUnauthorized() *Error {
	return New(KindAuth, CodeUnauthorized, "could not validate credentials")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, CodeTokenMissing, "no token provided")
}

// Covers bad signature, malformed structure, wrong algorithm and expiry.
func ErrTokenInvalid(cause error) *Error {
	return Wrap(KindAuth, CodeTokenInvalid, "invalid token", cause)
}

func ErrMissingIdentity() *Error {
	return New(KindAuth, CodeMissingIdentity, "token carries no identity")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrForbidden(required string) *Error {
	return WithMeta(New(KindForbidden, CodeForbidden, "insufficient role"), map[string]string{
		"required": required,
	})
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, CodeUserNotFound, "user not found")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "rabbit_unavailable", "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
