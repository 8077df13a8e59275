// internal/models/step.go
package models

import "time"

// VerificationStep is a static descriptor of one stage in the fixed
// inspection sequence.
type VerificationStep struct {
	ID          string `json:"id"`
	Ordinal     int    `json:"ordinal"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// StepRecord is the per-session state for one step: the structured data the
// operator collected, plus completion metadata. Mutated only by its own
// step's submit action.
type StepRecord struct {
	Data        map[string]interface{} `json:"data"`
	Completed   bool                   `json:"completed"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// NewStepRecord creates an empty, incomplete record.
func NewStepRecord() *StepRecord {
	return &StepRecord{Data: make(map[string]interface{})}
}

// Merge overlays submitted data onto the record without dropping fields that
// an earlier save already captured.
func (r *StepRecord) Merge(data map[string]interface{}) {
	if r.Data == nil {
		r.Data = make(map[string]interface{})
	}
	for k, v := range data {
		r.Data[k] = v
	}
}

// MarkCompleted sets the completion flag and timestamp. Completion is
// monotone: a later re-save keeps the original timestamp.
func (r *StepRecord) MarkCompleted(at time.Time) {
	if r.Completed {
		return
	}
	r.Completed = true
	r.CompletedAt = &at
}
