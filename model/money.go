package model

import (
	"github.com/shopspring/decimal"
)

// minorUnitExponents maps ISO 4217 currency codes to the number of digits in
// their minor unit. Codes not listed here default to 2.
var minorUnitExponents = map[string]int32{
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"VND": 0,
}

// MinorUnitExponent returns the minor-unit exponent for a currency code.
func MinorUnitExponent(currency string) int32 {
	if exp, ok := minorUnitExponents[currency]; ok {
		return exp
	}
	return 2
}

// ToMinorUnits converts a major-unit decimal amount to minor units, rounding
// half-up to the currency's minor unit. All monetary amounts in the engine are
// positive, so decimal's round-half-away-from-zero behaves as half-up here.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := MinorUnitExponent(currency)
	return amount.Round(exp).Shift(exp).IntPart()
}

// FromMinorUnits converts a minor-unit integer amount back to a major-unit decimal.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-MinorUnitExponent(currency))
}

// RoundToMinor rounds a major-unit decimal to the currency's minor unit, half-up.
func RoundToMinor(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnitExponent(currency))
}
