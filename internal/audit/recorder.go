// internal/audit/recorder.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-verification/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// Event kinds written to the audit index.
const (
	KindStepCompleted         = "step_completed"
	KindVerificationCompleted = "verification_completed"
)

// Event is one audit document. StepOrdinal is nil for terminal commits.
type Event struct {
	ID                string                 `json:"id"`
	ApplicationID     string                 `json:"applicationId"`
	ApplicationNumber string                 `json:"applicationNumber,omitempty"`
	Kind              string                 `json:"kind"`
	StepID            string                 `json:"stepId,omitempty"`
	StepOrdinal       *int                   `json:"stepOrdinal,omitempty"`
	Data              map[string]interface{} `json:"data,omitempty"`
	RecordedAt        string                 `json:"recordedAt"`
}

// Recorder writes audit events. Implementations are best-effort: callers log
// failures and move on, the verification outcome never depends on the trail.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// ESRecorder indexes audit events into Elasticsearch.
type ESRecorder struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ESRecorder {
	return &ESRecorder{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-recorder"}),
	}
}

// Record indexes one event document. Missing ID and timestamp are filled in.
func (r *ESRecorder) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.RecordedAt == "" {
		event.RecordedAt = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(event.ID),
	)
	if err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.Status())
	}

	r.logger.Debug("audit event recorded", map[string]interface{}{
		"eventId":       event.ID,
		"applicationId": event.ApplicationID,
		"kind":          event.Kind,
	})
	return nil
}

// NoOpRecorder satisfies Recorder when the audit trail is disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) Record(context.Context, Event) error { return nil }
