// internal/verification/session.go
package verification

import (
	"loan-verification/internal/models"
)

// SessionState is the controller's lifecycle state.
type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateActive     SessionState = "active"
	StateCompleting SessionState = "completing"
	StateTerminal   SessionState = "terminal"
	StateFailed     SessionState = "failed"
)

// Session holds the mutable per-session workflow state as an explicit value
// object: application reference, cursor, completed set, and the step record
// map. The record map is a write-through cache over the persistence gateway,
// never a second source of truth.
type Session struct {
	Application *models.LoanApplication
	Steps       []models.VerificationStep
	Cursor      int
	Completed   map[int]bool
	Records     map[int]*models.StepRecord
}

// newSession builds a session from a loaded aggregate, hydrating previously
// persisted step records so a prior partial run resumes at the first ordinal
// not marked completed.
func newSession(app *models.LoanApplication) *Session {
	s := &Session{
		Application: app,
		Steps:       Steps,
		Completed:   make(map[int]bool, len(Steps)),
		Records:     make(map[int]*models.StepRecord, len(Steps)),
	}

	for _, step := range s.Steps {
		if rec, ok := app.StepOutputs[step.Ordinal]; ok && rec != nil {
			s.Records[step.Ordinal] = rec
			if rec.Completed {
				s.Completed[step.Ordinal] = true
			}
		} else {
			s.Records[step.Ordinal] = models.NewStepRecord()
		}
	}

	s.Cursor = s.FirstIncomplete()
	return s
}

// FirstIncomplete returns the ordinal of the first step not marked completed,
// or the final ordinal when everything before review is done.
func (s *Session) FirstIncomplete() int {
	for _, step := range s.Steps {
		if !s.Completed[step.Ordinal] {
			return step.Ordinal
		}
	}
	return FinalOrdinal
}

// IsCompleted reports whether an ordinal is in the completed set.
func (s *Session) IsCompleted(ordinal int) bool {
	return s.Completed[ordinal]
}

// AllCompleted reports whether every step in the sequence is completed.
func (s *Session) AllCompleted() bool {
	for _, step := range s.Steps {
		if !s.Completed[step.Ordinal] {
			return false
		}
	}
	return true
}

// Record returns the step record for an ordinal, creating an empty one if the
// session has none yet.
func (s *Session) Record(ordinal int) *models.StepRecord {
	rec, ok := s.Records[ordinal]
	if !ok {
		rec = models.NewStepRecord()
		s.Records[ordinal] = rec
	}
	return rec
}

// markCompleted adds the ordinal to the completed set. Membership is
// monotone: nothing ever removes an ordinal within a session.
func (s *Session) markCompleted(ordinal int) {
	s.Completed[ordinal] = true
}
