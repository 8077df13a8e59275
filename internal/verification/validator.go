// internal/verification/validator.go
package verification

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of a step's completeness check. Errors are
// keyed by field name.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func validResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// ValidateStep runs the rule set for an ordinal against submitted data. The
// rules are pure minimum-completeness predicates: they never consult external
// state.
func ValidateStep(ordinal int, data map[string]interface{}) ValidationResult {
	switch ordinal {
	case 0:
		return requireFlags(data,
			"identity_confirmed",
			"address_confirmed",
			"contact_confirmed",
		)
	case 1:
		return requireFlags(data,
			"id_document_verified",
			"bank_statement_verified",
			"income_proof_verified",
		)
	case 2:
		return validateFinancialStep(data)
	case 3:
		return validateAnimalStep(data)
	case 4:
		return validateReviewStep(data)
	default:
		return ValidationResult{
			Valid:  false,
			Errors: map[string]string{"step": fmt.Sprintf("unknown step ordinal %d", ordinal)},
		}
	}
}

// requireFlags checks that every named boolean is present and true.
func requireFlags(data map[string]interface{}, fields ...string) ValidationResult {
	errs := make(map[string]string)
	for _, field := range fields {
		if !boolField(data, field) {
			errs[field] = fmt.Sprintf("%s must be confirmed before advancing", field)
		}
	}
	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return validResult()
}

func validateFinancialStep(data map[string]interface{}) ValidationResult {
	res := requireFlags(data,
		"income_verified",
		"loan_amount_appropriate",
		"repayment_capacity_verified",
		"credit_assessment_completed",
	)
	// recommended_amount and notes are optional, but a present amount must
	// be non-negative.
	if raw, ok := data["recommended_amount"]; ok {
		if amount, ok := numberField(raw); !ok || amount < 0 {
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors["recommended_amount"] = "recommended amount must be a non-negative number"
			res.Valid = false
		}
	}
	return res
}

func validateAnimalStep(data map[string]interface{}) ValidationResult {
	res := requireFlags(data,
		"health_check_passed",
		"vaccination_verified",
		"market_value_confirmed",
	)
	if raw, ok := data["assessed_value"]; ok {
		if value, ok := numberField(raw); !ok || value < 0 {
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors["assessed_value"] = "assessed value must be a non-negative number"
			res.Valid = false
		}
	}
	return res
}

func validateReviewStep(data map[string]interface{}) ValidationResult {
	errs := make(map[string]string)

	summary, _ := data["verification_summary"].(string)
	if strings.TrimSpace(summary) == "" {
		errs["verification_summary"] = "verification summary is required"
	}
	if !boolField(data, "operator_confirmation") {
		errs["operator_confirmation"] = "operator confirmation is required"
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return validResult()
}

func boolField(data map[string]interface{}, field string) bool {
	v, ok := data[field].(bool)
	return ok && v
}

func numberField(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
