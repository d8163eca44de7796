package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanRequested LoanStatus = "REQUESTED"
	LoanActive    LoanStatus = "ACTIVE"
	LoanClosed    LoanStatus = "CLOSED"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
)

// Loan is a reducing-balance loan with a fixed EMI. The amortization schedule
// is generated once at origination and installment rows only ever move from
// PENDING to PAID, in sequence order unless an admin forces a row.
type Loan struct {
	ID             int64                  `json:"-"`
	LoanID         string                 `json:"loan_id"`
	AccountID      string                 `json:"account_id"`
	Currency       string                 `json:"currency"`
	PrincipalMinor int64                  `json:"principal"`
	AnnualRate     decimal.Decimal        `json:"annual_rate"`
	TenureMonths   int                    `json:"tenure_months"`
	EMIMinor       int64                  `json:"emi"`
	PaidMinor      int64                  `json:"paid_amount"`
	Status         LoanStatus             `json:"status"`
	ProofOfIncome  bool                   `json:"proof_of_income"`
	TermsAccepted  bool                   `json:"terms_accepted"`
	DisbursedAt    time.Time              `json:"disbursed_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
}

// Installment is one row of a loan's amortization schedule. TotalMinor is the
// amount collected for the row; for every row but the last it equals the loan
// EMI, the last row absorbs the rounding drift of the schedule.
type Installment struct {
	ID             int64             `json:"-"`
	LoanID         string            `json:"loan_id"`
	Sequence       int               `json:"sequence"`
	DueDate        time.Time         `json:"due_date"`
	PrincipalMinor int64             `json:"principal"`
	InterestMinor  int64             `json:"interest"`
	TotalMinor     int64             `json:"total"`
	Status         InstallmentStatus `json:"status"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
}

// MonthlyRate returns the monthly reducing-balance rate as a decimal fraction,
// e.g. 10.5% p.a. -> 0.00875.
func (loan *Loan) MonthlyRate() decimal.Decimal {
	return loan.AnnualRate.Div(decimal.NewFromInt(1200))
}

// ComputeEMI computes the equated monthly installment for a principal in minor
// units using EMI = P*r*(1+r)^n / ((1+r)^n - 1), rounded half-up to the
// currency's minor unit. The power term is evaluated in float64 and the
// monetary arithmetic in decimal, so rounding only happens once at the end.
func ComputeEMI(principalMinor int64, annualRate decimal.Decimal, tenureMonths int, currency string) int64 {
	if tenureMonths <= 0 || principalMinor <= 0 {
		return 0
	}

	principal := FromMinorUnits(principalMinor, currency)
	monthlyRate, _ := annualRate.Div(decimal.NewFromInt(1200)).Float64()

	if monthlyRate == 0 {
		// Zero-interest: even split, drift absorbed by the last installment.
		emi := principal.Div(decimal.NewFromInt(int64(tenureMonths)))
		return ToMinorUnits(emi, currency)
	}

	factor := math.Pow(1+monthlyRate, float64(tenureMonths))
	p, _ := principal.Float64()
	emi := decimal.NewFromFloat(p * monthlyRate * factor / (factor - 1))
	return ToMinorUnits(emi, currency)
}

// BuildAmortizationSchedule generates the installment rows for a loan. Each
// row's interest is the remaining balance times the monthly rate, rounded
// half-up to the minor unit, and its principal component is EMI minus
// interest. The final row takes whatever principal remains so the principal
// components always sum exactly to the loan principal; its total may differ
// from the EMI by the accumulated rounding drift.
func BuildAmortizationSchedule(loan *Loan, start time.Time) []Installment {
	if loan.TenureMonths <= 0 || loan.PrincipalMinor <= 0 {
		return nil
	}

	monthlyRate := loan.MonthlyRate()
	remaining := decimal.NewFromInt(loan.PrincipalMinor)

	schedule := make([]Installment, 0, loan.TenureMonths)
	for seq := 1; seq <= loan.TenureMonths; seq++ {
		interest := remaining.Mul(monthlyRate).Round(0).IntPart()
		principal := loan.EMIMinor - interest
		total := loan.EMIMinor

		if seq == loan.TenureMonths {
			principal = remaining.IntPart()
			total = principal + interest
		}

		remaining = remaining.Sub(decimal.NewFromInt(principal))
		schedule = append(schedule, Installment{
			LoanID:         loan.LoanID,
			Sequence:       seq,
			DueDate:        start.AddDate(0, seq, 0),
			PrincipalMinor: principal,
			InterestMinor:  interest,
			TotalMinor:     total,
			Status:         InstallmentPending,
		})
	}
	return schedule
}

// TotalInterestMinor sums the interest components of a schedule.
func TotalInterestMinor(schedule []Installment) int64 {
	var total int64
	for _, installment := range schedule {
		total += installment.InterestMinor
	}
	return total
}
