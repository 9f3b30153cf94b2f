package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for infrastructure and pipeline facts. Stores return these
// (optionally wrapped) so services can branch with errors.Is.
var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks uniqueness or concurrency collisions.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks an external service failure or timeout; safe to retry.
	ErrUnavailable = errors.New("unavailable")
	// ErrCupoUnconfigured marks a province without a configured quota.
	ErrCupoUnconfigured = errors.New("cupo not configured")
	// ErrPermission marks an actor outside the expediente's scope.
	ErrPermission = errors.New("permission denied")
	// ErrInvariant marks internal inconsistency; fatal for the operation.
	ErrInvariant = errors.New("invariant violation")
	// ErrImportRunning marks a concurrent import on the same expediente.
	ErrImportRunning = errors.New("import already running")
)

// ValidationError is a user-recoverable input defect: missing field,
// malformed date, unknown reference, geography mismatch, age violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func Validationf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether any error in the chain is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// QuotaDenied is a normal admission refusal, not a failure.
type QuotaDenied struct {
	ProvinceID uint
	Reason     string
}

func (e *QuotaDenied) Error() string {
	return fmt.Sprintf("cupo denied for province %d: %s", e.ProvinceID, e.Reason)
}

// InvariantError wraps ErrInvariant with a description of the broken rule.
func Invariant(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// Permission wraps ErrPermission with the refused rule.
func Permission(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermission, fmt.Sprintf(format, args...))
}
