// internal/audit/gateway.go
package audit

import (
	"context"

	"loan-verification/internal/common/logger"
	"loan-verification/internal/models"
	"loan-verification/internal/verification"
)

// Gateway decorates a PersistenceGateway with best-effort audit recording.
// Events are written only after the inner gateway succeeds, and a recorder
// failure never fails the persistence call.
type Gateway struct {
	inner    verification.PersistenceGateway
	recorder Recorder
	logger   logger.Logger
}

func NewGateway(inner verification.PersistenceGateway, recorder Recorder, log logger.Logger) *Gateway {
	return &Gateway{
		inner:    inner,
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"component": "audit-gateway"}),
	}
}

func (g *Gateway) LoadApplication(ctx context.Context, applicationID string) (*models.LoanApplication, error) {
	return g.inner.LoadApplication(ctx, applicationID)
}

func (g *Gateway) SaveStepRecord(ctx context.Context, applicationID string, ordinal int, record *models.StepRecord) error {
	if err := g.inner.SaveStepRecord(ctx, applicationID, ordinal, record); err != nil {
		return err
	}

	if record.Completed {
		event := Event{
			ApplicationID: applicationID,
			Kind:          KindStepCompleted,
			StepOrdinal:   &ordinal,
			Data:          record.Data,
		}
		if step, ok := verification.StepByOrdinal(ordinal); ok {
			event.StepID = step.ID
		}
		g.record(ctx, event)
	}
	return nil
}

func (g *Gateway) CompleteVerification(ctx context.Context, applicationID string, records map[int]*models.StepRecord) error {
	if err := g.inner.CompleteVerification(ctx, applicationID, records); err != nil {
		return err
	}

	g.record(ctx, Event{
		ApplicationID: applicationID,
		Kind:          KindVerificationCompleted,
		Data:          map[string]interface{}{"stepRecords": len(records)},
	})
	return nil
}

func (g *Gateway) StepStatus(ctx context.Context, applicationID string, ordinal int) (bool, error) {
	return g.inner.StepStatus(ctx, applicationID, ordinal)
}

func (g *Gateway) record(ctx context.Context, event Event) {
	if err := g.recorder.Record(ctx, event); err != nil {
		g.logger.Warn("audit record failed", map[string]interface{}{
			"applicationId": event.ApplicationID,
			"kind":          event.Kind,
			"error":         err,
		})
	}
}
