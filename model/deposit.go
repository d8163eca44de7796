package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type DepositType string

const (
	DepositFixed     DepositType = "FD"
	DepositRecurring DepositType = "RD"
)

type DepositStatus string

const (
	DepositActive  DepositStatus = "ACTIVE"
	DepositMatured DepositStatus = "MATURED"
	DepositBroken  DepositStatus = "BROKEN"
)

// BreakPenaltyRate is the fraction of principal forfeited on premature
// withdrawal. Fixed at 2%.
var BreakPenaltyRate = decimal.NewFromFloat(0.02)

// Deposit is a time deposit. For FD, PrincipalMinor is the lump sum locked at
// open; for RD it is the per-period installment amount. MATURED and BROKEN are
// terminal, a deposit in either state never changes again.
type Deposit struct {
	ID             int64                  `json:"-"`
	DepositID      string                 `json:"deposit_id"`
	AccountID      string                 `json:"account_id"`
	Type           DepositType            `json:"type"`
	Currency       string                 `json:"currency"`
	PrincipalMinor int64                  `json:"principal"`
	AnnualRate     decimal.Decimal        `json:"annual_rate"`
	TenureMonths   int                    `json:"tenure_months"`
	MaturityMinor  int64                  `json:"maturity_amount"`
	PaidPeriods    int                    `json:"paid_periods"`
	StartDate      time.Time              `json:"start_date"`
	MaturityDate   time.Time              `json:"maturity_date"`
	Status         DepositStatus          `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
}

// IsTerminal reports whether the deposit has reached MATURED or BROKEN.
func (deposit *Deposit) IsTerminal() bool {
	return deposit.Status == DepositMatured || deposit.Status == DepositBroken
}

// FDMaturityMinor computes the maturity value of a fixed deposit using annual
// compounding: principal * (1 + rate)^(tenureMonths/12), rounded half-up to
// the currency's minor unit. As with the EMI formula, the fractional power is
// evaluated in float64 and converted back to decimal for the final product.
func FDMaturityMinor(principalMinor int64, annualRate decimal.Decimal, tenureMonths int, currency string) int64 {
	if principalMinor <= 0 || tenureMonths <= 0 {
		return principalMinor
	}
	rate, _ := annualRate.Div(decimal.NewFromInt(100)).Float64()
	factor := math.Pow(1+rate, float64(tenureMonths)/12.0)

	principal := FromMinorUnits(principalMinor, currency)
	maturity := principal.Mul(decimal.NewFromFloat(factor))
	return ToMinorUnits(maturity, currency)
}

// RDMaturityMinor computes the maturity value of a recurring deposit:
// the sum of all installments plus interest per the standard RD formula
// installment * n(n+1)/24 * rate/100.
func RDMaturityMinor(installmentMinor int64, annualRate decimal.Decimal, tenureMonths int, currency string) int64 {
	if installmentMinor <= 0 || tenureMonths <= 0 {
		return 0
	}
	n := decimal.NewFromInt(int64(tenureMonths))
	installment := decimal.NewFromInt(installmentMinor)

	total := installment.Mul(n)
	interest := installment.
		Mul(n).
		Mul(n.Add(decimal.NewFromInt(1))).
		Div(decimal.NewFromInt(24)).
		Mul(annualRate).
		Div(decimal.NewFromInt(100))
	return total.Add(interest).Round(0).IntPart()
}

// BreakRefundMinor computes the premature-withdrawal refund:
// principal * (1 - penalty), residual interest forfeited.
func BreakRefundMinor(principalMinor int64) int64 {
	principal := decimal.NewFromInt(principalMinor)
	refund := principal.Mul(decimal.NewFromInt(1).Sub(BreakPenaltyRate))
	return refund.Round(0).IntPart()
}
