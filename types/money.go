// Package types provides common value types used across rentledger.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in the smallest currency unit.
// Arithmetic is integer-only; decimal is used only at the parse/format edges.
//
// Examples:
//   - USD(120000) = $1200.00
//   - KES(5000)   = KSh 50.00
//   - JPY(100)    = ¥100
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// GBP creates a Money value in British Pounds (pence).
func GBP(pence int64) Money { return Money{Amount: pence, Currency: "gbp"} }

// KES creates a Money value in Kenyan Shillings (cents).
func KES(cents int64) Money { return Money{Amount: cents, Currency: "kes"} }

// JPY creates a Money value in Japanese Yen (no decimal).
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "jpy"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Currency: strings.ToLower(currency)} }

// ParseMoney parses a major-unit decimal string ("1200.50") into Money.
// Fractions finer than the currency's minor unit are rejected.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d, currency)
}

// FromDecimal converts a major-unit decimal into Money.
func FromDecimal(d decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToLower(currency)
	minor := d.Shift(int32(Decimals(currency)))
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fmt.Errorf("money: %s has more precision than %s allows", d.String(), currency)
	}
	return Money{Amount: minor.IntPart(), Currency: currency}, nil
}

// MinorUnits converts a major-unit decimal quantity (such as a rounding
// tolerance of 0.01) into minor units of currency, truncating any remainder.
func MinorUnits(d decimal.Decimal, currency string) int64 {
	return d.Shift(int32(Decimals(currency))).Truncate(0).IntPart()
}

// Decimal returns the value in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -int32(Decimals(m.Currency)))
}

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.pick(other)}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.pick(other)}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.Amount < 0 {
		return Money{Currency: m.Currency}
	}
	return m
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount > other.Amount
}

// Min returns the smaller of two Money values. Panics if currencies don't match.
func (m Money) Min(other Money) Money {
	if m.LessThan(other) {
		return m
	}
	return other
}

// Max returns the larger of two Money values. Panics if currencies don't match.
func (m Money) Max(other Money) Money {
	if m.GreaterThan(other) {
		return m
	}
	return other
}

// FormatMajor returns the major unit string without currency symbol,
// e.g. "1200.00" for USD(120000) and "100" for JPY(100).
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(int32(Decimals(m.Currency)))
}

// String returns a human-readable string with currency symbol.
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// assertSameCurrency panics if currencies don't match. A zero value with no
// currency is compatible with anything.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency && m.Currency != "" && other.Currency != "" {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

func (m Money) pick(other Money) string {
	if m.Currency != "" {
		return m.Currency
	}
	return other.Currency
}

func currencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "usd":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	case "jpy":
		return "¥"
	case "kes":
		return "KSh "
	case "ngn":
		return "₦"
	case "zar":
		return "R "
	case "inr":
		return "₹"
	case "pkr":
		return "Rs "
	}
	return strings.ToUpper(currency) + " "
}

// Decimals returns the number of minor-unit decimal places for a currency.
func Decimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "clp", "pyg", "ugx", "rwf":
		return 0
	case "bhd", "kwd", "omr", "tnd":
		return 3
	}
	return 2
}

// Sum calculates the sum of multiple Money values. All must have the same currency.
func Sum(currency string, values ...Money) Money {
	result := Zero(currency)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
