package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currencies whose smallest unit is the major unit.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {},
	"KMF": {}, "KRW": {}, "MGA": {}, "PYG": {}, "RWF": {},
	"VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var hundred = decimal.NewFromInt(100)

// IsZeroDecimal reports whether currency has no minor unit. Matching is case-insensitive.
func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))]
	return ok
}

// ToMinorUnits converts a major-unit amount into the integer the processor expects.
// Rounding is half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if amount.IsNegative() {
		return 0, NewInvalidAmountError(amount.String())
	}

	scaled := amount
	if !IsZeroDecimal(currency) {
		scaled = amount.Mul(hundred)
	}
	rounded := scaled.Round(0)

	if !rounded.IsInteger() || rounded.GreaterThan(decimal.NewFromInt(maxMinorUnits)) {
		return 0, NewInvalidAmountError(amount.String())
	}
	return rounded.IntPart(), nil
}

// Stripe's upper bound for a single amount.
const maxMinorUnits = 99999999

// ParseAmount parses a decimal string such as "19.99".
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, &DomainError{
			Code:    ErrCodeInvalidAmount,
			Message: "amount must be a decimal number",
			Err:     err,
		}
	}
	return amount, nil
}

// FormatMinorUnits renders a processor amount back into major units for notes and events.
func FormatMinorUnits(minor int64, currency string) string {
	if IsZeroDecimal(currency) {
		return decimal.NewFromInt(minor).String()
	}
	return decimal.New(minor, -2).StringFixed(2)
}
