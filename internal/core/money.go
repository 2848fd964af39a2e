package core

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

type Currency string

const (
	CurrencyPEN Currency = "PEN"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

func Currencies() []Currency { return []Currency{CurrencyPEN, CurrencyUSD, CurrencyEUR} }

func (c Currency) Label() string {
	switch c {
	case CurrencyPEN:
		return "Soles (PEN)"
	case CurrencyUSD:
		return "US dollars (USD)"
	case CurrencyEUR:
		return "Euros (EUR)"
	}
	return ""
}

// Amount is a positive offering amount held in minor units.
type Amount struct {
	Cents    int64
	Currency Currency
}

// ParseAmount converts a user supplied decimal string into an Amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Values are
// rounded half-up to two fractional digits and must be strictly positive
// after rounding. Signs and exponents are rejected.
//
// Examples:
//
//	ParseAmount("12.34", CurrencyPEN)  -> {1234 PEN}
//	ParseAmount("12,345", CurrencyUSD) -> {1235 USD}
//	ParseAmount("0.001", CurrencyEUR)  -> ErrInvalidAmount
func ParseAmount(s string, c Currency) (Amount, error) {
	if c.Label() == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return Amount{}, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Amount{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Amount{}, ErrInvalidAmount
	}
	cents := d.Shift(2)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<53)) {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{Cents: cents.IntPart(), Currency: c}, nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Cents, -2)
}

// String renders the amount with two fractional digits and no symbol, the
// format the backend expects.
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Display formats the amount with its currency symbol, e.g. "$1,234.56".
func (a Amount) Display() string {
	return money.New(a.Cents, string(a.Currency)).Display()
}

// FormatAmount renders a raw backend amount for table cells. Unparseable
// values are returned unchanged.
func FormatAmount(raw string, c Currency) string {
	a, err := ParseAmount(raw, c)
	if err != nil {
		return raw
	}
	return a.Display()
}
