// Package money represents euro amounts as an integer count of cents.
// All arithmetic on balances happens in cents; decimal strings only exist
// at the API boundary.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in euro cents.
type Amount int64

// Decimals is the minor-unit precision of the ledger currency.
const Decimals = 2

var (
	// ErrMalformed means the input is not a valid decimal number.
	ErrMalformed = errors.New("malformed amount")
	// ErrTooPrecise means the input has more than two fractional digits.
	ErrTooPrecise = errors.New("amount has more than two decimal places")
)

var centFactor = decimal.NewFromInt(100)

// Parse converts a decimal string like "10.50" into cents.
// It rejects sub-cent precision rather than rounding, so "0.005" is an
// error, not a free half cent.
func Parse(s string) (Amount, error) {
	if s == "" {
		return 0, ErrMalformed
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrMalformed
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal value into cents.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Mul(centFactor)
	if !cents.IsInteger() {
		return 0, ErrTooPrecise
	}
	return Amount(cents.IntPart()), nil
}

// FromCents wraps a raw cent count.
func FromCents(c int64) Amount {
	return Amount(c)
}

// Cents returns the raw cent count.
func (a Amount) Cents() int64 {
	return int64(a)
}

// Decimal returns the amount as a two-place decimal.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Decimals)
}

// String formats the amount with two decimal places, e.g. "10.50".
func (a Amount) String() string {
	return a.Decimal().StringFixed(Decimals)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a < 0
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return a - b
}

// MulInt returns the amount multiplied by an integer count.
func (a Amount) MulInt(n int) Amount {
	return a * Amount(n)
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string ("10.50") or a bare number (10.5).
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
