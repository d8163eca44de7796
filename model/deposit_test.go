package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFDMaturityOneYear(t *testing.T) {
	// 10,000.00 at 6.5% over 12 months matures at exactly 10,650.00.
	maturity := FDMaturityMinor(1000000, decimal.NewFromFloat(6.5), 12, "INR")
	assert.Equal(t, int64(1065000), maturity)
}

func TestFDMaturityCompounds(t *testing.T) {
	oneYear := FDMaturityMinor(1000000, decimal.NewFromFloat(6.5), 12, "INR")
	twoYears := FDMaturityMinor(1000000, decimal.NewFromFloat(6.5), 24, "INR")
	assert.Greater(t, twoYears, oneYear)

	// (1.065)^2 = 1.134225
	assert.Equal(t, int64(1134225), twoYears)
}

func TestFDMaturityNeverBelowPrincipal(t *testing.T) {
	for _, months := range []int{1, 6, 12, 36, 120} {
		maturity := FDMaturityMinor(500000, decimal.NewFromFloat(4.25), months, "INR")
		assert.GreaterOrEqual(t, maturity, int64(500000), "tenure %d", months)
	}
}

func TestRDMaturity(t *testing.T) {
	// 2,000.00 monthly at 7.5% over 12 months:
	// interest = 2000 * 12*13/24 * 7.5/100 = 975.00
	maturity := RDMaturityMinor(200000, decimal.NewFromFloat(7.5), 12, "INR")
	assert.Equal(t, int64(2497500), maturity)
}

func TestRDMaturityDegenerate(t *testing.T) {
	assert.Equal(t, int64(0), RDMaturityMinor(0, decimal.NewFromInt(7), 12, "INR"))
	assert.Equal(t, int64(0), RDMaturityMinor(200000, decimal.NewFromInt(7), 0, "INR"))
}

func TestBreakRefundAppliesTwoPercentPenalty(t *testing.T) {
	assert.Equal(t, int64(980000), BreakRefundMinor(1000000))
	assert.Equal(t, int64(98), BreakRefundMinor(100))
}

func TestDepositIsTerminal(t *testing.T) {
	deposit := &Deposit{Status: DepositActive}
	assert.False(t, deposit.IsTerminal())
	deposit.Status = DepositMatured
	assert.True(t, deposit.IsTerminal())
	deposit.Status = DepositBroken
	assert.True(t, deposit.IsTerminal())
}

func TestAccountIsFrozen(t *testing.T) {
	account := &Account{Status: AccountActive}
	assert.False(t, account.IsFrozen())
	account.Status = AccountFrozen
	assert.True(t, account.IsFrozen())
}

func TestVPAValidation(t *testing.T) {
	assert.True(t, IsValidVPA("ravi.kumar@artha"))
	assert.True(t, IsValidVPA("shop-42@ybl"))
	assert.False(t, IsValidVPA("no-at-sign"))
	assert.False(t, IsValidVPA("UPPER@artha"))
	assert.False(t, IsValidVPA("a@"))
}

func TestPINValidation(t *testing.T) {
	assert.True(t, IsValidPIN("042913"))
	assert.False(t, IsValidPIN("1234"))
	assert.False(t, IsValidPIN("1234567"))
	assert.False(t, IsValidPIN("12a456"))
}
