// internal/models/application.go
package models

// ApplicationStatus is the lifecycle status of a loan application. Only
// CompleteVerification flips it to StatusVerified.
type ApplicationStatus string

const (
	StatusPending           ApplicationStatus = "pending"
	StatusUnderVerification ApplicationStatus = "under_verification"
	StatusVerified          ApplicationStatus = "verified"
	StatusApproved          ApplicationStatus = "approved"
	StatusRejected          ApplicationStatus = "rejected"
	StatusDisbursed         ApplicationStatus = "disbursed"
)

var validStatuses = map[ApplicationStatus]bool{
	StatusPending:           true,
	StatusUnderVerification: true,
	StatusVerified:          true,
	StatusApproved:          true,
	StatusRejected:          true,
	StatusDisbursed:         true,
}

var terminalStatuses = map[ApplicationStatus]bool{
	StatusRejected:  true,
	StatusDisbursed: true,
}

func (s ApplicationStatus) IsValid() bool {
	return validStatuses[s]
}

func (s ApplicationStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

func (s ApplicationStatus) String() string {
	return string(s)
}

// LoanApplication is the aggregate under verification. The engine holds a
// read-mostly, step-mutated copy for the duration of one session; the remote
// store owns it.
type LoanApplication struct {
	ID                string                 `json:"id"`
	ApplicationNumber string                 `json:"applicationNumber"`
	Status            ApplicationStatus      `json:"status"`
	LoanAmount        float64                `json:"loanAmount"`
	InterestRate      float64                `json:"interestRate"` // annual, percent
	Purpose           string                 `json:"purpose"`
	RepaymentPeriods  int                    `json:"repaymentPeriods"`
	Applicant         *Applicant             `json:"applicant"`
	Animal            *Animal                `json:"animal"`
	StepOutputs       map[int]*StepRecord    `json:"stepOutputs,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         string                 `json:"createdAt"`
	UpdatedAt         string                 `json:"updatedAt"`
}

type Applicant struct {
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	NationalID     string         `json:"nationalId"`
	TaxID          string         `json:"taxId,omitempty"`
	BankName       string         `json:"bankName"`
	BankAccount    string         `json:"bankAccount"`
	AnnualIncome  float64        `json:"annualIncome"`
	FamilyMembers []FamilyMember `json:"familyMembers,omitempty"`
}

type FamilyMember struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Age          int    `json:"age"`
	Occupation   string `json:"occupation,omitempty"`
}

type Animal struct {
	Species           string  `json:"species"`
	Breed             string  `json:"breed"`
	AgeMonths         int     `json:"ageMonths"`
	WeightKg          float64 `json:"weightKg"`
	HealthStatus      string  `json:"healthStatus"`
	VaccinationStatus string  `json:"vaccinationStatus"`
	MarketValue       float64 `json:"marketValue"`
}
