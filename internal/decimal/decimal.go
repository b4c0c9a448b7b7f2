// Package decimal provides the exact base-10 arithmetic the consensus core
// runs its feedback computations in. Independently running nodes must derive
// bit-identical results from identical inputs, so nothing here goes through
// binary floating point once a value is constructed.
package decimal

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Prec is the working precision, in fractional base-10 digits, applied to the
// inexact operations (division, ln, negative powers). 40 digits carries
// field-sized magnitudes through repeated slot-to-slot feedback without drift.
const Prec = 40

// Decimal is an arbitrary-precision base-10 decimal. The zero value is 0.
// All operations return new values.
type Decimal struct {
	inner decimal.Decimal
}

var (
	Zero = New(0)
	One  = New(1)
	Two  = New(2)
)

// New returns the Decimal for an int64.
func New(v int64) Decimal {
	return Decimal{inner: decimal.NewFromInt(v)}
}

// NewFromUint64 returns the Decimal for a uint64.
func NewFromUint64(v uint64) Decimal {
	return Decimal{inner: decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)}
}

// NewFromString parses a decimal literal such as "0.18" or "-1.5e6".
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal: %w", err)
	}
	return Decimal{inner: d}, nil
}

// MustFromString is NewFromString for literals known valid at compile time.
func MustFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewFromFloat converts a float64. Conversion is exact for the float's
// shortest decimal representation; prefer NewFromString for constants.
func NewFromFloat(v float64) Decimal {
	return Decimal{inner: decimal.NewFromFloat(v)}
}

// NewFromBigInt returns value * 10^exp.
func NewFromBigInt(value *big.Int, exp int32) Decimal {
	return Decimal{inner: decimal.NewFromBigInt(value, exp)}
}

func (d Decimal) Add(o Decimal) Decimal { return Decimal{inner: d.inner.Add(o.inner)} }
func (d Decimal) Sub(o Decimal) Decimal { return Decimal{inner: d.inner.Sub(o.inner)} }
func (d Decimal) Mul(o Decimal) Decimal { return Decimal{inner: d.inner.Mul(o.inner)} }
func (d Decimal) Neg() Decimal          { return Decimal{inner: d.inner.Neg()} }
func (d Decimal) Abs() Decimal          { return Decimal{inner: d.inner.Abs()} }

// Div divides at the working precision, rounding the last digit.
func (d Decimal) Div(o Decimal) Decimal {
	return Decimal{inner: d.inner.DivRound(o.inner, Prec)}
}

// Pow raises d to an integer power by repeated multiplication, so
// non-negative exponents stay exact. Negative exponents divide at the
// working precision. 0^0 is 1.
func (d Decimal) Pow(exp int64) Decimal {
	if exp < 0 {
		return One.Div(d.Pow(-exp))
	}
	out := One
	base := d
	for exp > 0 {
		if exp&1 == 1 {
			out = out.Mul(base)
		}
		exp >>= 1
		if exp > 0 {
			base = base.Mul(base)
		}
	}
	return out
}

// Ln returns the natural logarithm at the working precision. The argument
// must be positive.
func (d Decimal) Ln() (Decimal, error) {
	r, err := d.inner.Ln(Prec)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal ln: %w", err)
	}
	return Decimal{inner: r}, nil
}

// Cmp returns -1, 0 or 1.
func (d Decimal) Cmp(o Decimal) int { return d.inner.Cmp(o.inner) }

func (d Decimal) Equal(o Decimal) bool { return d.inner.Equal(o.inner) }
func (d Decimal) IsNegative() bool     { return d.inner.IsNegative() }
func (d Decimal) IsZero() bool         { return d.inner.IsZero() }

// BigInt returns the integer part of d, truncated toward zero.
func (d Decimal) BigInt() *big.Int { return d.inner.BigInt() }

func (d Decimal) String() string { return d.inner.String() }

// Clamp limits d into [min, max].
func (d Decimal) Clamp(min, max Decimal) Decimal {
	if d.Cmp(min) < 0 {
		return min
	}
	if d.Cmp(max) > 0 {
		return max
	}
	return d
}
