package core

import (
	"errors"
	"fmt"
)

// AuthReason classifies identity failures.
type AuthReason string

const (
	InvalidCredential AuthReason = "invalid_credential"
	SessionExpired    AuthReason = "session_expired"
	WeakPassword      AuthReason = "weak_password"
	AuthUnavailable   AuthReason = "unavailable"
)

// AuthError is returned by the identity collaborator.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Retryable reports whether signing in again may succeed without user action.
func (e *AuthError) Retryable() bool { return e.Reason == AuthUnavailable }

// SyncKind classifies remote store failures.
type SyncKind string

const SyncUnavailable SyncKind = "unavailable"

// SyncError wraps a failed remote read or write.
type SyncError struct {
	Kind SyncKind
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ExtractionKind classifies AI extraction failures.
type ExtractionKind string

const (
	MalformedResponse     ExtractionKind = "malformed_response"
	ExtractionUnavailable ExtractionKind = "unavailable"
)

// ExtractionError is returned by the extraction adapter.
type ExtractionError struct {
	Kind ExtractionKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError reports a missing or invalid user supplied field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsAuthError reports whether err carries an AuthError with the given reason.
// An empty reason matches any AuthError.
func IsAuthError(err error, reason AuthReason) bool {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return false
	}
	return reason == "" || ae.Reason == reason
}

// IsExtractionError reports whether err carries an ExtractionError of kind.
// An empty kind matches any ExtractionError.
func IsExtractionError(err error, kind ExtractionKind) bool {
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		return false
	}
	return kind == "" || ee.Kind == kind
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSyncError reports whether err carries a SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
