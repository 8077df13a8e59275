// internal/verification/steps.go
package verification

import (
	"fmt"

	"loan-verification/internal/models"
)

// Step identifiers. The sequence is fixed and known at design time.
const (
	StepBasicInfo = "basic-info"
	StepDocuments = "documents"
	StepFinancial = "financial"
	StepAnimal    = "animal"
	StepReview    = "review"
)

// Steps is the ordered inspection sequence. Ordinals are contiguous from 0,
// review is last and is the only step whose completion triggers the terminal
// transition.
var Steps = []models.VerificationStep{
	{ID: StepBasicInfo, Ordinal: 0, Title: "Basic Information", Description: "Confirm applicant identity, address, and contact details"},
	{ID: StepDocuments, Ordinal: 1, Title: "Document Verification", Description: "Verify identity documents, bank statements, and income proof"},
	{ID: StepFinancial, Ordinal: 2, Title: "Financial Assessment", Description: "Assess income, repayment capacity, and loan amount"},
	{ID: StepAnimal, Ordinal: 3, Title: "Animal Inspection", Description: "Inspect animal health, vaccination records, and market value"},
	{ID: StepReview, Ordinal: 4, Title: "Final Review", Description: "Review all findings and confirm the verification outcome"},
}

// FinalOrdinal is the ordinal of the review step.
const FinalOrdinal = 4

// StepByOrdinal returns the descriptor for an ordinal.
func StepByOrdinal(ordinal int) (models.VerificationStep, bool) {
	if ordinal < 0 || ordinal >= len(Steps) {
		return models.VerificationStep{}, false
	}
	return Steps[ordinal], true
}

// validateSequence enforces the sequence invariants at init time so a bad
// edit to the table fails fast.
func validateSequence(steps []models.VerificationStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("step sequence is empty")
	}
	seen := make(map[string]bool, len(steps))
	for i, s := range steps {
		if s.Ordinal != i {
			return fmt.Errorf("step %q has ordinal %d, want %d", s.ID, s.Ordinal, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
	}
	if steps[len(steps)-1].ID != StepReview {
		return fmt.Errorf("last step is %q, want %q", steps[len(steps)-1].ID, StepReview)
	}
	return nil
}

func init() {
	if err := validateSequence(Steps); err != nil {
		panic(err)
	}
}
