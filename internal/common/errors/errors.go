// Package errors provides standardized error handling for the verification
// workflow engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeIntegrityViolation  ErrorCode = "INTEGRITY_VIOLATION"

	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	ErrCodePersistenceFailed      ErrorCode = "PERSISTENCE_FAILED"
	ErrCodePersistenceTimeout     ErrorCode = "PERSISTENCE_TIMEOUT"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewApplicationNotFoundError creates a non-retryable lookup error. The
// session cannot proceed; the operator restarts after the record exists.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Loan application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntegrityViolationError creates a non-retryable aggregate error for an
// application missing mandatory nested data (applicant or animal).
func NewIntegrityViolationError(applicationID, missing string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntegrityViolation,
		Message:   "Loan application aggregate is incomplete",
		Details:   fmt.Sprintf("applicationId: %s, missing: %s", applicationID, missing),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable step validation error.
func NewValidationFailedError(stepID string, count int) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Step data validation failed",
		Details:   fmt.Sprintf("stepId: %s, errors: %d", stepID, count),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable transition error for
// out-of-order, concurrent, or post-terminal submissions.
func NewInvalidTransitionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Workflow transition not allowed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a retryable storage error. Retry is
// operator-initiated, never automatic.
func NewPersistenceFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPersistenceTimeoutError creates a retryable storage timeout. The outcome
// is ambiguous: the write may have landed, so the caller must re-check step
// status before trusting local state.
func NewPersistenceTimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceTimeout,
		Message:   "Storage operation timed out",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
// Dispatch failures are logged and swallowed by the controller.
func NewNotificationSendFailedError(eventKind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("eventKind: %s, error: %s", eventKind, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf extracts the error code from err, or "" if err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err is retryable. Unknown errors are treated as
// non-retryable to avoid duplicating operator-entered writes.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsAmbiguousOutcome reports whether err leaves the write outcome unknown.
func IsAmbiguousOutcome(err error) bool {
	return IsCode(err, ErrCodePersistenceTimeout)
}
