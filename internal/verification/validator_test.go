package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completeFinancialData() map[string]interface{} {
	return map[string]interface{}{
		"income_verified":             true,
		"loan_amount_appropriate":     true,
		"repayment_capacity_verified": true,
		"credit_assessment_completed": true,
		"recommended_amount":          150000.0,
		"notes":                       "income supported by dairy sales records",
	}
}

func TestValidateStep_BasicInfo(t *testing.T) {
	res := ValidateStep(0, map[string]interface{}{
		"identity_confirmed": true,
		"address_confirmed":  true,
		"contact_confirmed":  true,
	})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)

	res = ValidateStep(0, map[string]interface{}{
		"identity_confirmed": true,
		"address_confirmed":  false,
	})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "address_confirmed")
	assert.Contains(t, res.Errors, "contact_confirmed")
	assert.NotContains(t, res.Errors, "identity_confirmed")
}

func TestValidateStep_Financial(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(data map[string]interface{})
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "all flags confirmed",
			mutate:    func(map[string]interface{}) {},
			wantValid: true,
		},
		{
			name: "optional fields may be absent",
			mutate: func(data map[string]interface{}) {
				delete(data, "recommended_amount")
				delete(data, "notes")
			},
			wantValid: true,
		},
		{
			name: "missing credit assessment",
			mutate: func(data map[string]interface{}) {
				delete(data, "credit_assessment_completed")
			},
			wantValid:  false,
			wantFields: []string{"credit_assessment_completed"},
		},
		{
			name: "flag present but false",
			mutate: func(data map[string]interface{}) {
				data["repayment_capacity_verified"] = false
			},
			wantValid:  false,
			wantFields: []string{"repayment_capacity_verified"},
		},
		{
			name: "negative recommended amount",
			mutate: func(data map[string]interface{}) {
				data["recommended_amount"] = -500.0
			},
			wantValid:  false,
			wantFields: []string{"recommended_amount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := completeFinancialData()
			tt.mutate(data)
			res := ValidateStep(2, data)
			assert.Equal(t, tt.wantValid, res.Valid)
			for _, field := range tt.wantFields {
				assert.Contains(t, res.Errors, field)
			}
		})
	}
}

func TestValidateStep_Animal(t *testing.T) {
	res := ValidateStep(3, map[string]interface{}{
		"health_check_passed":    true,
		"vaccination_verified":   true,
		"market_value_confirmed": true,
		"assessed_value":         85000.0,
	})
	assert.True(t, res.Valid)

	res = ValidateStep(3, map[string]interface{}{
		"health_check_passed":    true,
		"vaccination_verified":   true,
		"market_value_confirmed": true,
		"assessed_value":         -1.0,
	})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "assessed_value")
}

func TestValidateStep_Review(t *testing.T) {
	res := ValidateStep(4, map[string]interface{}{
		"verification_summary":  "all checks passed, animal in good health",
		"operator_confirmation": true,
	})
	assert.True(t, res.Valid)

	res = ValidateStep(4, map[string]interface{}{
		"verification_summary":  "   ",
		"operator_confirmation": true,
	})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "verification_summary")
}

func TestValidateStep_UnknownOrdinal(t *testing.T) {
	res := ValidateStep(9, map[string]interface{}{})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "step")
}

func TestValidateShape_RejectsWrongTypes(t *testing.T) {
	violations, err := validateShape(2, map[string]interface{}{
		"income_verified":    "yes",
		"recommended_amount": "a lot",
	})
	assert.NoError(t, err)
	assert.Contains(t, violations, "income_verified")
	assert.Contains(t, violations, "recommended_amount")
}

func TestValidateShape_AcceptsWellTyped(t *testing.T) {
	violations, err := validateShape(2, completeFinancialData())
	assert.NoError(t, err)
	assert.Empty(t, violations)
}
