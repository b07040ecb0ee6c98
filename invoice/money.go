/*
Package invoice provides the core invoice ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for invoice
  accounting: line-item entry, derived monetary totals (subtotal, VAT,
  grand total), payment application, and the status lifecycle
  (draft → sent → paid / overdue / cancelled).

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: An integer minor-unit amount (cents) with an ISO currency code
  - Arithmetic: Add, MultiplyByQuantity, PercentageOf - all immutable
  - Rounding: VAT amounts round half away from zero for auditable results

DESIGN PRINCIPLES:
  1. Immutability: Money values are never mutated, operations return new values
  2. Precision: Integer minor units + decimal.Decimal intermediates, never float
  3. Currency Safety: Cross-currency arithmetic fails with ErrCurrencyMismatch
  4. Determinism: Repeated recomputation over the same inputs never drifts

USAGE:
  price, _ := invoice.ParseMoney("100.00", "EUR")   // 10000 minor units
  subtotal := invoice.MultiplyByQuantity(price, 2)  // 200.00 EUR
  vat := invoice.PercentageOf(subtotal, decimal.NewFromInt(21))

SEE ALSO:
  - item.go: LineItem derivation built on these operations
  - ledger.go: Aggregate totals across items and payments
*/
package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer minor-unit amount with currency
// =============================================================================

// Money is a fixed-precision monetary value: an amount in minor units
// (cents for EUR/USD) plus an ISO 4217 currency code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney creates a Money value from minor units.
func NewMoney(minorUnits int64, currency string) Money {
	return Money{Amount: minorUnits, Currency: currency}
}

// Zero returns a zero Money value in the given currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: currency} }

// ParseMoney parses a decimal string like "100.00" into minor units.
// Amounts with more than two fractional digits are rejected.
func ParseMoney(s string, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("invalid amount %q: more than two decimal places", s)
	}
	return Money{Amount: minor.IntPart(), Currency: currency}, nil
}

// Decimal returns the amount in major units as a decimal (10000 -> 100.00).
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Amount).Shift(-2)
}

// Format renders the amount in major units with two decimal places ("242.00").
func (m Money) Format() string { return m.Decimal().StringFixed(2) }

func (m Money) String() string { return m.Format() + " " + m.Currency }

// Predicates
func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// SameCurrency reports whether two values share a currency code.
func (m Money) SameCurrency(other Money) bool { return m.Currency == other.Currency }

// =============================================================================
// ARITHMETIC - Immutable operations
// =============================================================================

// Add returns a + b. Fails with ErrCurrencyMismatch if the currency
// codes differ.
func Add(a, b Money) (Money, error) {
	if !a.SameCurrency(b) {
		return Money{}, &CurrencyMismatchError{Want: a.Currency, Got: b.Currency}
	}
	return Money{Amount: a.Amount + b.Amount, Currency: a.Currency}, nil
}

// Sub returns a - b. Fails with ErrCurrencyMismatch if the currency
// codes differ.
func Sub(a, b Money) (Money, error) {
	if !a.SameCurrency(b) {
		return Money{}, &CurrencyMismatchError{Want: a.Currency, Got: b.Currency}
	}
	return Money{Amount: a.Amount - b.Amount, Currency: a.Currency}, nil
}

// MultiplyByQuantity returns m scaled by a whole quantity.
func MultiplyByQuantity(m Money, qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// PercentageOf returns rate percent of m, rounded to the nearest minor
// unit with ties resolved half away from zero, not banker's rounding.
func PercentageOf(m Money, rate decimal.Decimal) Money {
	amount := decimal.NewFromInt(m.Amount).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return Money{Amount: amount.IntPart(), Currency: m.Currency}
}
