package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits every Amount carries.
const AmountScale = 4

// Amount is a signed monetary value with a fixed scale of four fractional
// digits. The zero value is a valid zero amount.
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount is the canonical zero.
var ZeroAmount = Amount{}

// NewAmount returns value * 10^exp, e.g. NewAmount(15, -1) is 1.5.
func NewAmount(value int64, exp int32) Amount {
	return Amount{d: decimal.New(value, exp).Truncate(AmountScale)}
}

// ParseAmount parses a plain decimal string; exponent notation is not
// accepted. Values with more than four
// significant fractional digits are rejected rather than rounded.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty amount", ErrMalformedRecord)
	}

	if strings.ContainsAny(s, "eE") {
		return Amount{}, fmt.Errorf("%w: %q uses exponent notation", ErrMalformedRecord, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q is not a decimal", ErrMalformedRecord, s)
	}

	if !d.Truncate(AmountScale).Equal(d) {
		return Amount{}, fmt.Errorf("%w: %w: %q", ErrMalformedRecord, ErrAmountPrecision, s)
	}

	return Amount{d: d}, nil
}

// MustParseAmount is ParseAmount for literals; it panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

func (a Amount) LessThan(b Amount) bool {
	return a.d.LessThan(b.d)
}

func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// Decimal exposes the underlying value for adapters that need it.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Float64 is for metrics only; never use it for ledger arithmetic.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// String formats the amount with exactly four fractional digits.
func (a Amount) String() string {
	return a.d.StringFixed(AmountScale)
}
