// internal/verification/ports.go
package verification

import (
	"context"

	"loan-verification/internal/models"
)

// EventKind identifies a notification event emitted at a transition point.
type EventKind string

const (
	EventFirstStepCompleted       EventKind = "first_step_completed"
	EventAllVerificationsComplete EventKind = "all_verifications_complete"
)

// PersistenceGateway is the narrow port the controller uses to load and save
// verification state. Implementations must make SaveStepRecord and
// CompleteVerification atomic per call: a failed call must not leave a
// partially written record observable on the next load.
type PersistenceGateway interface {
	// LoadApplication returns the aggregate with any previously persisted
	// step records hydrated into StepOutputs. Fails with
	// APPLICATION_NOT_FOUND or INTEGRITY_VIOLATION.
	LoadApplication(ctx context.Context, applicationID string) (*models.LoanApplication, error)

	// SaveStepRecord durably stores one step's record.
	SaveStepRecord(ctx context.Context, applicationID string, ordinal int, record *models.StepRecord) error

	// CompleteVerification atomically stores the full merged record map and
	// flips the application status to verified.
	CompleteVerification(ctx context.Context, applicationID string, records map[int]*models.StepRecord) error

	// StepStatus reports whether the store considers the step completed.
	// Used after an ambiguous save outcome, when local state cannot be
	// trusted.
	StepStatus(ctx context.Context, applicationID string, ordinal int) (bool, error)
}

// NotificationDispatcher fires a notification keyed by event kind. The
// controller treats dispatch as fire-and-forget: any returned error is
// logged and never propagated to the submit caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, applicationID string, kind EventKind, payload map[string]interface{}) error
}
