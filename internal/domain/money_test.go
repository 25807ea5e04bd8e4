package domain_test

import (
	"testing"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"19.99", "USD", 1999},
		{"19.99", "usd", 1999},
		{"25.00", "EUR", 2500},
		{"0.005", "USD", 1},
		{"10.125", "GBP", 1013},
		{"0", "USD", 0},
		{"1000", "JPY", 1000},
		{"1000.4", "JPY", 1000},
		{"1000.5", "jpy", 1001},
		{"5000", "KRW", 5000},
		{"12.5", "XOF", 13},
	}

	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.currency, func(t *testing.T) {
			got, err := domain.ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinorUnits_RejectsNegative(t *testing.T) {
	_, err := domain.ToMinorUnits(decimal.RequireFromString("-5"), "USD")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
}

func TestToMinorUnits_RejectsOverflow(t *testing.T) {
	_, err := domain.ToMinorUnits(decimal.RequireFromString("1000000"), "USD")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
}

func TestIsZeroDecimal(t *testing.T) {
	for _, c := range []string{"BIF", "CLP", "DJF", "GNF", "JPY", "KMF", "KRW", "MGA", "PYG", "RWF", "VND", "VUV", "XAF", "XOF", "XPF"} {
		assert.True(t, domain.IsZeroDecimal(c), c)
	}
	assert.False(t, domain.IsZeroDecimal("USD"))
	assert.False(t, domain.IsZeroDecimal("EUR"))
}

func TestParseAmount(t *testing.T) {
	amount, err := domain.ParseAmount(" 25.00 ")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(25)))

	_, err = domain.ParseAmount("twenty")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "19.99", domain.FormatMinorUnits(1999, "USD"))
	assert.Equal(t, "25.00", domain.FormatMinorUnits(2500, "USD"))
	assert.Equal(t, "1000", domain.FormatMinorUnits(1000, "JPY"))
}
