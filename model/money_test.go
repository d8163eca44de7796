package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnitExponent(t *testing.T) {
	assert.Equal(t, int32(2), MinorUnitExponent("INR"))
	assert.Equal(t, int32(2), MinorUnitExponent("USD"))
	assert.Equal(t, int32(0), MinorUnitExponent("JPY"))
	assert.Equal(t, int32(3), MinorUnitExponent("KWD"))
	assert.Equal(t, int32(2), MinorUnitExponent("XXX"))
}

func TestToMinorUnitsRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(1005), ToMinorUnits(decimal.NewFromFloat(10.045), "INR"))
	assert.Equal(t, int64(1004), ToMinorUnits(decimal.NewFromFloat(10.044), "INR"))
	assert.Equal(t, int64(100), ToMinorUnits(decimal.NewFromInt(1), "INR"))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.NewFromInt(1), "JPY"))
	assert.Equal(t, int64(1500), ToMinorUnits(decimal.NewFromFloat(1.5), "KWD"))
}

func TestFromMinorUnitsRoundTrip(t *testing.T) {
	amount := decimal.NewFromFloat(12345.67)
	minor := ToMinorUnits(amount, "INR")
	assert.Equal(t, int64(1234567), minor)
	assert.True(t, amount.Equal(FromMinorUnits(minor, "INR")))
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("acc")
	assert.Contains(t, id, "acc_")
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("acc"))
}

func TestHashTxnIsStable(t *testing.T) {
	txn := &Transaction{
		AmountMinor:   150000,
		Reference:     "ref_1",
		Currency:      "INR",
		AccountID:     "acc_1",
		CounterpartID: "acc_2",
	}
	first := txn.HashTxn()
	assert.Len(t, first, 64)
	assert.Equal(t, first, txn.HashTxn())

	txn.AmountMinor++
	assert.NotEqual(t, first, txn.HashTxn())
}

func TestSignedMinor(t *testing.T) {
	credit := &Transaction{AmountMinor: 500, Direction: DirectionCredit}
	debit := &Transaction{AmountMinor: 500, Direction: DirectionDebit}
	assert.Equal(t, int64(500), credit.SignedMinor())
	assert.Equal(t, int64(-500), debit.SignedMinor())
}
