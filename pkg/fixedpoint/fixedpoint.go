// Package fixedpoint implements the 18-decimal fixed-point scalar used for
// every monetary quantity, rate, reserve, time-remaining value, and price in
// the pricing, market, wallet, agent, and simulator packages.
//
// FixedDecimal wraps github.com/shopspring/decimal so that arithmetic is
// exact decimal arithmetic rather than binary floating point, and so that
// pow(base, exponent) — the one transcendental operation the spec allows —
// is computed by a deterministic, fixed-precision Taylor expansion
// (decimal.Ln + decimal.ExpTaylor) instead of a platform pow() that could
// disagree in its last bit across targets.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every FixedDecimal is normalized to.
const Scale = 18

// taylorPrecision is the number of guard digits carried through Ln/ExpTaylor
// before the result is truncated back to Scale. It is fixed so that two
// evaluations of the same inputs, on any platform, produce bit-identical
// results — there is no adaptive termination based on IEEE-754 rounding.
const taylorPrecision = 50

var (
	// ErrOverflow indicates a result magnitude outside the scalar's
	// representable range.
	ErrOverflow = errors.New("fixedpoint: overflow")
	// ErrDivByZero indicates an attempted division by zero.
	ErrDivByZero = errors.New("fixedpoint: division by zero")
	// ErrNonFinite indicates a pow/ln evaluation produced a non-finite or
	// complex result (e.g. ln of a non-positive base).
	ErrNonFinite = errors.New("fixedpoint: non-finite result")
	// ErrInvalidLiteral indicates a string literal could not be parsed.
	ErrInvalidLiteral = errors.New("fixedpoint: invalid decimal literal")
)

// maxMagnitude bounds the absolute value of any FixedDecimal, standing in
// for the wraparound a fixed-width signed 256-bit representation would
// enforce (2^255 scaled by 1e-18 is approximately 5.79e58; 1e59 is used as
// a round bound just above it).
var maxMagnitude = decimal.New(1, 59)

// FixedDecimal is a signed, 18-decimal fixed-point scalar.
type FixedDecimal struct {
	v decimal.Decimal
}

func normalize(v decimal.Decimal) FixedDecimal {
	return FixedDecimal{v: v.Truncate(Scale)}
}

func checkMagnitude(v decimal.Decimal) error {
	if v.Abs().GreaterThanOrEqual(maxMagnitude) {
		return ErrOverflow
	}
	return nil
}

// Zero returns the additive identity.
func Zero() FixedDecimal { return FixedDecimal{v: decimal.Zero} }

// One returns the multiplicative identity.
func One() FixedDecimal { return FixedDecimal{v: decimal.NewFromInt(1)} }

// FromInt64 creates a FixedDecimal from an integer value.
func FromInt64(i int64) FixedDecimal {
	return FixedDecimal{v: decimal.NewFromInt(i)}
}

// FromString parses a base-10 literal (e.g. "1234.5678") into a
// FixedDecimal, truncating toward zero beyond Scale decimal places.
func FromString(s string) (FixedDecimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return FixedDecimal{}, fmt.Errorf("%w: %s", ErrInvalidLiteral, err)
	}
	if err := checkMagnitude(v); err != nil {
		return FixedDecimal{}, err
	}
	return normalize(v), nil
}

// MustFromString parses s, panicking on error. Only use for known-valid
// constants in tests or initialization code.
func MustFromString(s string) FixedDecimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromFloat64 creates a FixedDecimal from a float64. Debug/test use only —
// never use for values derived from a simulation's own arithmetic, since
// float64 literals can carry binary-rounding error that FixedDecimal math
// is designed to avoid.
func FromFloat64(f float64) FixedDecimal {
	return normalize(decimal.NewFromFloat(f))
}

// FromScaled constructs a FixedDecimal from its raw 1e18-scaled integer
// representation, the wire/storage form referenced by spec §4.1.
func FromScaled(scaled *big.Int) FixedDecimal {
	return FixedDecimal{v: decimal.NewFromBigInt(scaled, -Scale)}
}

// ToScaled returns the raw 1e18-scaled integer representation.
func (d FixedDecimal) ToScaled() *big.Int {
	return d.v.Shift(Scale).BigInt()
}

// Add returns d + other. Add is bitwise-exact and never fails: Scale is
// fixed so summing two normalized operands cannot introduce rounding, and
// magnitude growth from addition alone is not treated as overflow by this
// spec (only Mul/Div are).
func (d FixedDecimal) Add(other FixedDecimal) FixedDecimal {
	return normalize(d.v.Add(other.v))
}

// Sub returns d - other. Sub is bitwise-exact and never fails; see Add.
func (d FixedDecimal) Sub(other FixedDecimal) FixedDecimal {
	return normalize(d.v.Sub(other.v))
}

// Neg returns -d.
func (d FixedDecimal) Neg() FixedDecimal {
	return FixedDecimal{v: d.v.Neg()}
}

// Abs returns |d|.
func (d FixedDecimal) Abs() FixedDecimal {
	return FixedDecimal{v: d.v.Abs()}
}

// Mul returns d * other, rounded toward zero to Scale decimal places.
func (d FixedDecimal) Mul(other FixedDecimal) (FixedDecimal, error) {
	r := d.v.Mul(other.v)
	if err := checkMagnitude(r); err != nil {
		return FixedDecimal{}, err
	}
	return normalize(r), nil
}

// Div returns d / other, rounded toward zero to Scale decimal places.
// Fails with ErrDivByZero if other is zero.
func (d FixedDecimal) Div(other FixedDecimal) (FixedDecimal, error) {
	if other.v.IsZero() {
		return FixedDecimal{}, ErrDivByZero
	}
	r := d.v.DivRound(other.v, Scale+10)
	if err := checkMagnitude(r); err != nil {
		return FixedDecimal{}, err
	}
	return normalize(r), nil
}

// Pow returns base^exponent, computed as exp(ln(base) * exponent) via
// deterministic, fixed-iteration Taylor expansions. Fast paths:
// Pow(0, _) = 0 (checked first), Pow(x, 0) = 1, Pow(x, 1) = x.
// Fails with ErrNonFinite if base is negative (ln undefined on this
// scalar) or either Taylor expansion fails to converge.
func Pow(base, exponent FixedDecimal) (FixedDecimal, error) {
	if base.IsZero() {
		return Zero(), nil
	}
	if exponent.IsZero() {
		return One(), nil
	}
	if exponent.Equal(One()) {
		return base, nil
	}
	if base.IsNegative() {
		return FixedDecimal{}, fmt.Errorf("%w: ln of negative base", ErrNonFinite)
	}
	ln, err := base.v.Ln(taylorPrecision)
	if err != nil {
		return FixedDecimal{}, fmt.Errorf("%w: %s", ErrNonFinite, err)
	}
	product := ln.Mul(exponent.v)
	expResult, err := product.ExpTaylor(taylorPrecision)
	if err != nil {
		return FixedDecimal{}, fmt.Errorf("%w: %s", ErrNonFinite, err)
	}
	if err := checkMagnitude(expResult); err != nil {
		return FixedDecimal{}, err
	}
	return normalize(expResult), nil
}

// IsZero reports whether d is zero.
func (d FixedDecimal) IsZero() bool { return d.v.IsZero() }

// IsNegative reports whether d is strictly less than zero.
func (d FixedDecimal) IsNegative() bool { return d.v.IsNegative() }

// IsPositive reports whether d is strictly greater than zero.
func (d FixedDecimal) IsPositive() bool { return d.v.IsPositive() }

// GreaterThan reports whether d > other.
func (d FixedDecimal) GreaterThan(other FixedDecimal) bool { return d.v.GreaterThan(other.v) }

// GreaterThanOrEqual reports whether d >= other.
func (d FixedDecimal) GreaterThanOrEqual(other FixedDecimal) bool {
	return d.v.GreaterThanOrEqual(other.v)
}

// LessThan reports whether d < other.
func (d FixedDecimal) LessThan(other FixedDecimal) bool { return d.v.LessThan(other.v) }

// LessThanOrEqual reports whether d <= other.
func (d FixedDecimal) LessThanOrEqual(other FixedDecimal) bool {
	return d.v.LessThanOrEqual(other.v)
}

// Equal reports whether d == other.
func (d FixedDecimal) Equal(other FixedDecimal) bool { return d.v.Equal(other.v) }

// Cmp returns -1, 0, or 1 comparing d to other.
func (d FixedDecimal) Cmp(other FixedDecimal) int { return d.v.Cmp(other.v) }

// Min returns the smaller of d and other.
func (d FixedDecimal) Min(other FixedDecimal) FixedDecimal {
	if d.LessThan(other) {
		return d
	}
	return other
}

// Max returns the larger of d and other.
func (d FixedDecimal) Max(other FixedDecimal) FixedDecimal {
	if d.GreaterThan(other) {
		return d
	}
	return other
}

// Float64 returns the float64 approximation of d. Debug/display only —
// never feed this back into FixedDecimal arithmetic.
func (d FixedDecimal) Float64() float64 {
	f, _ := d.v.Float64()
	return f
}

// String returns the base-10 string representation of d.
func (d FixedDecimal) String() string { return d.v.String() }
