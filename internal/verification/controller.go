// internal/verification/controller.go
package verification

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	verrors "loan-verification/internal/common/errors"
	"loan-verification/internal/common/logger"
	"loan-verification/internal/common/metrics"
	"loan-verification/internal/models"
)

// SubmitResult is the typed outcome of a SubmitStep call. Validation
// failures are reported here, not as errors: the operator corrects input and
// resubmits.
type SubmitResult struct {
	Validation ValidationResult `json:"validation"`
	Completed  bool             `json:"completed"`
	Terminal   bool             `json:"terminal"`
	NextStep   int              `json:"nextStep"`
}

// Controller drives one operator through the fixed verification sequence for
// a single loan application. It owns the session state and orchestrates
// load, validate, persist, notify, and advance. Persistence and notification
// are injected ports; the controller itself carries no transport concerns.
type Controller struct {
	gateway    PersistenceGateway
	dispatcher NotificationDispatcher
	logger     logger.Logger

	mu       sync.Mutex
	inFlight bool

	state   SessionState
	session *Session

	// firstStepNotified guards the first_step_completed dispatch per
	// application lifetime. Hydration sets it when ordinal 0 was already
	// persisted completed, so resumed sessions never re-fire.
	firstStepNotified bool

	// recheckOrdinal is set after an ambiguous save outcome; the next submit
	// for that ordinal asks the store before trusting local state. -1 when
	// clean.
	recheckOrdinal int
}

// NewController creates a controller in the Loading state.
func NewController(gateway PersistenceGateway, dispatcher NotificationDispatcher, log logger.Logger) *Controller {
	return &Controller{
		gateway:        gateway,
		dispatcher:     dispatcher,
		logger:         log.WithFields(map[string]interface{}{"component": "workflow-controller"}),
		state:          StateLoading,
		recheckOrdinal: -1,
	}
}

// Start loads the application aggregate, hydrates persisted step records,
// and enters Active at the first incomplete ordinal.
func (c *Controller) Start(ctx context.Context, applicationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoading {
		return verrors.NewInvalidTransitionError(
			fmt.Sprintf("start is only valid in the loading state, current: %s", c.state))
	}

	app, err := c.gateway.LoadApplication(ctx, applicationID)
	if err != nil {
		c.state = StateFailed
		c.logger.Error("application load failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err,
		})
		return err
	}

	c.session = newSession(app)
	c.firstStepNotified = c.session.IsCompleted(0)
	c.state = StateActive

	c.logger.Info("verification session started", map[string]interface{}{
		"applicationId":     app.ID,
		"applicationNumber": app.ApplicationNumber,
		"resumeOrdinal":     c.session.Cursor,
		"completedSteps":    len(c.session.Completed),
	})
	return nil
}

// SubmitStep validates and persists one step's data, then advances the
// cursor or, on the final step, issues the terminal commit. Out-of-cursor
// ordinals, post-terminal submissions, and concurrent submissions are all
// rejected with INVALID_TRANSITION and leave the session untouched.
func (c *Controller) SubmitStep(ctx context.Context, ordinal int, data map[string]interface{}) (*SubmitResult, error) {
	if err := c.beginSubmit(ordinal); err != nil {
		return nil, err
	}
	defer c.endSubmit()

	step, _ := StepByOrdinal(ordinal)
	start := time.Now()
	defer func() {
		metrics.StepDuration.WithLabelValues(step.ID).Observe(time.Since(start).Seconds())
	}()

	// After an ambiguous outcome the store is the authority on whether the
	// previous save landed.
	alreadyPersisted := false
	if c.recheckOrdinal == ordinal {
		completed, err := c.gateway.StepStatus(ctx, c.session.Application.ID, ordinal)
		if err != nil {
			metrics.StepsSubmitted.WithLabelValues(step.ID, "persistence_failed").Inc()
			return nil, err
		}
		alreadyPersisted = completed
		c.recheckOrdinal = -1
	}

	shapeErrs, err := validateShape(ordinal, data)
	if err != nil {
		return nil, err
	}
	if len(shapeErrs) > 0 {
		metrics.StepValidationFailures.WithLabelValues(step.ID).Inc()
		metrics.StepsSubmitted.WithLabelValues(step.ID, "validation_failed").Inc()
		return &SubmitResult{Validation: ValidationResult{Valid: false, Errors: shapeErrs}, NextStep: ordinal}, nil
	}

	if res := ValidateStep(ordinal, data); !res.Valid {
		metrics.StepValidationFailures.WithLabelValues(step.ID).Inc()
		metrics.StepsSubmitted.WithLabelValues(step.ID, "validation_failed").Inc()
		return &SubmitResult{Validation: res, NextStep: ordinal}, nil
	}

	// Merge into a copy first: a failed save must leave the session exactly
	// as it was.
	record := cloneRecord(c.session.Record(ordinal))
	record.Merge(data)
	record.MarkCompleted(time.Now().UTC())

	if !alreadyPersisted {
		if err := c.gateway.SaveStepRecord(ctx, c.session.Application.ID, ordinal, record); err != nil {
			if verrors.IsAmbiguousOutcome(err) {
				c.recheckOrdinal = ordinal
			}
			metrics.StepsSubmitted.WithLabelValues(step.ID, "persistence_failed").Inc()
			c.logger.Error("step record save failed", map[string]interface{}{
				"applicationId": c.session.Application.ID,
				"ordinal":       ordinal,
				"error":         err,
			})
			return nil, err
		}
	}

	c.session.Records[ordinal] = record
	firstCompletion := !c.session.IsCompleted(ordinal)
	c.session.markCompleted(ordinal)

	if ordinal == 0 && firstCompletion && !c.firstStepNotified {
		c.notify(ctx, EventFirstStepCompleted, step)
		c.firstStepNotified = true
	}

	if ordinal == FinalOrdinal {
		return c.completeVerification(ctx, step)
	}

	c.session.Cursor = ordinal + 1
	metrics.StepsSubmitted.WithLabelValues(step.ID, "completed").Inc()
	c.logger.Info("step completed", map[string]interface{}{
		"applicationId": c.session.Application.ID,
		"step":          step.ID,
		"nextOrdinal":   c.session.Cursor,
	})
	return &SubmitResult{Validation: validResult(), Completed: true, NextStep: c.session.Cursor}, nil
}

// completeVerification runs the terminal sequence for the review step. A
// commit failure leaves the session in Active(4); the operator resubmits.
func (c *Controller) completeVerification(ctx context.Context, step models.VerificationStep) (*SubmitResult, error) {
	c.mu.Lock()
	c.state = StateCompleting
	c.mu.Unlock()

	c.notify(ctx, EventAllVerificationsComplete, step)

	if err := c.gateway.CompleteVerification(ctx, c.session.Application.ID, c.session.Records); err != nil {
		c.mu.Lock()
		c.state = StateActive
		c.mu.Unlock()
		metrics.TerminalCommits.WithLabelValues("failed").Inc()
		metrics.StepsSubmitted.WithLabelValues(step.ID, "persistence_failed").Inc()
		c.logger.Error("terminal commit failed", map[string]interface{}{
			"applicationId": c.session.Application.ID,
			"error":         err,
		})
		return nil, err
	}

	c.session.Application.Status = models.StatusVerified

	c.mu.Lock()
	c.state = StateTerminal
	c.mu.Unlock()

	metrics.TerminalCommits.WithLabelValues("success").Inc()
	metrics.StepsSubmitted.WithLabelValues(step.ID, "terminal").Inc()
	c.logger.Info("verification completed", map[string]interface{}{
		"applicationId":     c.session.Application.ID,
		"applicationNumber": c.session.Application.ApplicationNumber,
	})
	return &SubmitResult{Validation: validResult(), Completed: true, Terminal: true, NextStep: FinalOrdinal}, nil
}

// GoToPreviousStep decrements the cursor for review of a completed step. It
// never touches completion state or persisted data.
func (c *Controller) GoToPreviousStep() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return verrors.NewInvalidTransitionError(
			fmt.Sprintf("backward navigation is only valid in the active state, current: %s", c.state))
	}
	if c.inFlight {
		return verrors.NewInvalidTransitionError("a submission is in flight")
	}
	if c.session.Cursor == 0 {
		return verrors.NewInvalidTransitionError("already at the first step")
	}
	c.session.Cursor--
	return nil
}

// StepPrefill returns suggested form values for an ordinal. The financial
// step is pre-populated from the affordability arithmetic; other steps have
// no prefill.
func (c *Controller) StepPrefill(ordinal int) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	step, ok := StepByOrdinal(ordinal)
	if c.session == nil || !ok || step.ID != StepFinancial {
		return nil
	}
	assessment := AssessFinancials(c.session.Application)
	return map[string]interface{}{
		"recommended_amount": math.Round(assessment.RecommendedAmount),
		"computed_emi":       math.Round(assessment.EMI*100) / 100,
		"risk_tier":          string(assessment.Tier),
	}
}

// CurrentStep returns the descriptor at the cursor.
func (c *Controller) CurrentStep() (models.VerificationStep, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return models.VerificationStep{}, false
	}
	return StepByOrdinal(c.session.Cursor)
}

// State returns the controller's lifecycle state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session exposes the session for the surrounding system to render. Callers
// must treat it as read-only.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// beginSubmit performs the transition checks under the lock and claims the
// single submission slot.
func (c *Controller) beginSubmit(ordinal int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateActive:
	case StateTerminal, StateFailed:
		return verrors.NewInvalidTransitionError(
			fmt.Sprintf("session is %s, no further submissions accepted", c.state))
	default:
		return verrors.NewInvalidTransitionError(
			fmt.Sprintf("submission is not valid in the %s state", c.state))
	}

	if c.inFlight {
		return verrors.NewInvalidTransitionError("a submission is already in flight")
	}
	if ordinal != c.session.Cursor {
		return verrors.NewInvalidTransitionError(
			fmt.Sprintf("submitted ordinal %d, cursor is at %d", ordinal, c.session.Cursor))
	}

	c.inFlight = true
	return nil
}

func (c *Controller) endSubmit() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

// notify dispatches best-effort: failures are logged, counted, and dropped.
func (c *Controller) notify(ctx context.Context, kind EventKind, step models.VerificationStep) {
	app := c.session.Application
	payload := map[string]interface{}{
		"applicationId":     app.ID,
		"applicationNumber": app.ApplicationNumber,
		"applicantName":     app.Applicant.Name,
		"applicantEmail":    app.Applicant.Email,
		"applicantPhone":    app.Applicant.Phone,
		"stepId":            step.ID,
		"stepTitle":         step.Title,
	}

	if err := c.dispatcher.Dispatch(ctx, app.ID, kind, payload); err != nil {
		c.logger.Warn("notification dispatch failed", map[string]interface{}{
			"applicationId": app.ID,
			"eventKind":     string(kind),
			"error":         err,
		})
	}
}

func cloneRecord(rec *models.StepRecord) *models.StepRecord {
	clone := &models.StepRecord{
		Data:      make(map[string]interface{}, len(rec.Data)),
		Completed: rec.Completed,
	}
	for k, v := range rec.Data {
		clone.Data[k] = v
	}
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		clone.CompletedAt = &at
	}
	return clone
}
