package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal_error"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeUnauthorized Code = "unauthorized"

	// Consent validation errors - caller-fixable, no state change.
	CodeInvalidScope  Code = "invalid_scope"
	CodeEmptyScopeSet Code = "empty_scope_set"
	CodeEmptyPurpose  Code = "empty_purpose"

	// State errors - stale view or policy violation, no partial mutation.
	CodeInvalidTransition Code = "invalid_transition"

	// Authorization errors - reported with the missing scopes, never widened.
	CodeInsufficientConsent Code = "insufficient_consent"

	// Durability errors - fatal to the triggering operation. An access the
	// engine cannot prove it logged must not be applied.
	CodeAuditWriteFailed Code = "audit_write_failed"

	// Issuance errors - retried internally up to a bounded count, then fatal.
	CodeIssuanceCollision Code = "issuance_collision"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// Fields carries structured context for programmatic handling by callers,
	// e.g. the offending scope ID or the list of missing scopes.
	Fields map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithFields creates a domain error carrying structured context.
func NewWithFields(code Code, msg string, fields map[string]any) error {
	return &Error{Code: code, Message: msg, Fields: fields}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, Fields: existing.Fields}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// FieldsOf returns the structured context of a domain error, or nil.
func FieldsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
