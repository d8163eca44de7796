package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEMIReducingBalance(t *testing.T) {
	// 500,000.00 at 10.5% p.a. over 24 months.
	emi := ComputeEMI(50000000, decimal.NewFromFloat(10.5), 24, "INR")
	assert.InDelta(t, 23188, float64(emi)/100, 2)

	// EMI times tenure covers principal plus interest, never less than principal.
	assert.Greater(t, emi*24, int64(50000000))
}

func TestComputeEMIZeroRate(t *testing.T) {
	emi := ComputeEMI(120000, decimal.Zero, 12, "INR")
	assert.Equal(t, int64(10000), emi)
}

func TestComputeEMIDegenerateInputs(t *testing.T) {
	assert.Equal(t, int64(0), ComputeEMI(0, decimal.NewFromInt(10), 12, "INR"))
	assert.Equal(t, int64(0), ComputeEMI(100000, decimal.NewFromInt(10), 0, "INR"))
}

func TestBuildAmortizationSchedulePrincipalSumsExactly(t *testing.T) {
	loan := &Loan{
		LoanID:         "lon_test",
		PrincipalMinor: 50000000,
		AnnualRate:     decimal.NewFromFloat(10.5),
		TenureMonths:   24,
		Currency:       "INR",
	}
	loan.EMIMinor = ComputeEMI(loan.PrincipalMinor, loan.AnnualRate, loan.TenureMonths, loan.Currency)

	schedule := BuildAmortizationSchedule(loan, time.Now())
	require.Len(t, schedule, 24)

	var principalSum, totalSum int64
	for i, installment := range schedule {
		assert.Equal(t, i+1, installment.Sequence)
		assert.Equal(t, InstallmentPending, installment.Status)
		assert.GreaterOrEqual(t, installment.InterestMinor, int64(0))
		assert.Equal(t, installment.PrincipalMinor+installment.InterestMinor, installment.TotalMinor)
		if i < len(schedule)-1 {
			assert.Equal(t, loan.EMIMinor, installment.TotalMinor)
		}
		principalSum += installment.PrincipalMinor
		totalSum += installment.TotalMinor
	}

	// The final row absorbs rounding drift so the principal components sum to
	// the loan principal exactly and total collected equals principal plus
	// total interest exactly.
	assert.Equal(t, loan.PrincipalMinor, principalSum)
	assert.Equal(t, loan.PrincipalMinor+TotalInterestMinor(schedule), totalSum)
}

func TestBuildAmortizationScheduleDueDatesMonthly(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	loan := &Loan{
		LoanID:         "lon_test",
		PrincipalMinor: 1200000,
		AnnualRate:     decimal.NewFromInt(12),
		TenureMonths:   6,
		Currency:       "INR",
	}
	loan.EMIMinor = ComputeEMI(loan.PrincipalMinor, loan.AnnualRate, loan.TenureMonths, loan.Currency)

	schedule := BuildAmortizationSchedule(loan, start)
	require.Len(t, schedule, 6)
	assert.Equal(t, start.AddDate(0, 1, 0), schedule[0].DueDate)
	assert.Equal(t, start.AddDate(0, 6, 0), schedule[5].DueDate)
}

func TestBuildAmortizationScheduleZeroRate(t *testing.T) {
	loan := &Loan{
		LoanID:         "lon_test",
		PrincipalMinor: 100000,
		AnnualRate:     decimal.Zero,
		TenureMonths:   3,
		Currency:       "INR",
	}
	loan.EMIMinor = ComputeEMI(loan.PrincipalMinor, loan.AnnualRate, loan.TenureMonths, loan.Currency)

	schedule := BuildAmortizationSchedule(loan, time.Now())
	require.Len(t, schedule, 3)

	var principalSum int64
	for _, installment := range schedule {
		assert.Equal(t, int64(0), installment.InterestMinor)
		principalSum += installment.PrincipalMinor
	}
	assert.Equal(t, loan.PrincipalMinor, principalSum)
	assert.Equal(t, int64(0), TotalInterestMinor(schedule))
}

func TestMonthlyRate(t *testing.T) {
	loan := &Loan{AnnualRate: decimal.NewFromFloat(10.5)}
	assert.True(t, loan.MonthlyRate().Equal(decimal.NewFromFloat(0.00875)))
}
