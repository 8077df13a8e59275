// internal/verification/finance.go
package verification

import (
	"math"

	"loan-verification/internal/models"
)

// AffordabilityTier classifies the installment burden relative to income.
type AffordabilityTier string

const (
	TierLow    AffordabilityTier = "low"
	TierMedium AffordabilityTier = "medium"
	TierHigh   AffordabilityTier = "high"
)

// ComputeEMI returns the equated periodic installment for an amortizing loan:
// P * r * (1+r)^n / ((1+r)^n - 1), with r the periodic rate derived from the
// annual percentage rate. The closed form is undefined at r == 0, where the
// installment degenerates to straight division.
func ComputeEMI(principal, annualRatePercent float64, periods int) float64 {
	if periods <= 0 {
		return 0
	}
	r := annualRatePercent / (12 * 100)
	if r == 0 {
		return principal / float64(periods)
	}
	factor := math.Pow(1+r, float64(periods))
	return principal * r * factor / (factor - 1)
}

// ComputeAffordabilityTier classifies emi against monthly income. Zero or
// negative income cannot be ratioed and yields the medium (unknown) tier
// rather than a divide-by-zero.
func ComputeAffordabilityTier(emi, monthlyIncome float64) AffordabilityTier {
	if monthlyIncome <= 0 {
		return TierMedium
	}
	ratio := emi / monthlyIncome
	switch {
	case ratio <= 0.30:
		return TierLow
	case ratio <= 0.40:
		return TierMedium
	default:
		return TierHigh
	}
}

// RecommendedLoanAmount back-solves the principal whose installment would sit
// at the low/medium boundary (30% of monthly income) over the requested
// term. Used to pre-populate the financial step's recommended-amount field.
func RecommendedLoanAmount(monthlyIncome, annualRatePercent float64, periods int) float64 {
	if monthlyIncome <= 0 || periods <= 0 {
		return 0
	}
	targetEMI := monthlyIncome * 0.30
	r := annualRatePercent / (12 * 100)
	if r == 0 {
		return targetEMI * float64(periods)
	}
	factor := math.Pow(1+r, float64(periods))
	return targetEMI * (factor - 1) / (r * factor)
}

// FinancialAssessment is the affordability arithmetic for one application,
// computed from the requested terms and the applicant's declared income.
type FinancialAssessment struct {
	EMI               float64           `json:"emi"`
	MonthlyIncome     float64           `json:"monthlyIncome"`
	Tier              AffordabilityTier `json:"tier"`
	RecommendedAmount float64           `json:"recommendedAmount"`
}

// AssessFinancials computes the installment, tier, and recommended principal
// for the application's requested terms. Monthly income is the declared
// annual income divided evenly.
func AssessFinancials(app *models.LoanApplication) FinancialAssessment {
	monthlyIncome := app.Applicant.AnnualIncome / 12
	emi := ComputeEMI(app.LoanAmount, app.InterestRate, app.RepaymentPeriods)
	return FinancialAssessment{
		EMI:               emi,
		MonthlyIncome:     monthlyIncome,
		Tier:              ComputeAffordabilityTier(emi, monthlyIncome),
		RecommendedAmount: RecommendedLoanAmount(monthlyIncome, app.InterestRate, app.RepaymentPeriods),
	}
}
