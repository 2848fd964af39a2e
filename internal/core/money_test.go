package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, CurrencyPEN)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.out, got.Cents, "input %q", tc.in)
		assert.Equal(t, CurrencyPEN, got.Currency)
	}
}

func TestParseAmountRejectsUnknownCurrency(t *testing.T) {
	_, err := ParseAmount("10", Currency("BTC"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmountFormatting(t *testing.T) {
	a := Amount{Cents: 123456, Currency: CurrencyUSD}
	assert.Equal(t, "1234.56", a.String())
	assert.Equal(t, "$1,234.56", a.Display())
	assert.Equal(t, "12.5", Amount{Cents: 1250, Currency: CurrencyPEN}.Decimal().String())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$10.00", FormatAmount("10", CurrencyUSD))
	assert.Equal(t, "n/a", FormatAmount("n/a", CurrencyUSD))
}
