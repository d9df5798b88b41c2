// Package pricing implements the closed-form YieldSpace-derived pricing
// model described in spec §4.2: fee-adjusted in-given-out and out-given-in
// calculations, spot price and APR conversions, reserve initialization from
// a target liquidity/APR, and max-trade bounds.
//
// Rather than a class hierarchy per variant (the shape the Python original
// uses), the model is a tagged sum type per spec §9's design note: Variant
// is a plain identifier and every solver dispatches on it with a single
// switch, so the compiler can check exhaustiveness and there is no vtable
// indirection to follow to find the math.
package pricing

import (
	"errors"
	"fmt"

	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
)

// Variant identifies which pricing surface a Model implements.
type Variant string

const (
	// VariantHyperdrive is the share-adjusted YieldSpace model (§4.2),
	// where init_share_price and share_price may diverge from 1.
	VariantHyperdrive Variant = "hyperdrive"

	// VariantElement is the classic YieldSpace model with
	// init_share_price = share_price = 1, kept as a reference and for
	// the Element/Hyperdrive equivalence property test (spec §8.9).
	VariantElement Variant = "element"
)

var (
	// ErrUnknownVariant is returned for a Model carrying an unrecognized
	// Variant tag.
	ErrUnknownVariant = errors.New("pricing: unknown variant")
	// ErrUnitMismatch is returned when a Quantity's unit does not match
	// what the called solver expects (base or pt).
	ErrUnitMismatch = errors.New("pricing: unexpected quantity unit")
	// ErrNonPositiveAmount is returned for a zero or negative trade
	// amount.
	ErrNonPositiveAmount = errors.New("pricing: amount must be positive")
	// ErrPoolUninitialized is returned when a calculation that requires
	// existing reserves is run against an empty pool.
	ErrPoolUninitialized = errors.New("pricing: pool is uninitialized")
	// ErrNegativeFee describes a negative fee. No function in this
	// package returns it: applyFee clamps a negative curve fee to zero.
	ErrNegativeFee = errors.New("pricing: fee must not be negative")
	// ErrTimeOutOfRange is returned when time remaining is not in (0, 1].
	ErrTimeOutOfRange = errors.New("pricing: time remaining must be in (0, 1]")
	// ErrNoSolution is returned when SolveShareReservesForTargetPrice's
	// closed form has no positive solution for its inputs.
	ErrNoSolution = errors.New("pricing: failed to converge on a solution")
)

// FeeConfig bundles the fee parameters spec §4.2 defines. FlatFee is
// accepted for interface completeness (spec mentions it is charged on the
// matured portion of a trade) but the core's trades are all against the
// curve (mint_time == now), so FlatFee is always zero in every deal this
// engine executes at open time; it is consulted by CLOSE actions via the
// market package's time-remaining computation.
type FeeConfig struct {
	CurveFee      fixedpoint.FixedDecimal
	FlatFee       fixedpoint.FixedDecimal
	GovernanceFee fixedpoint.FixedDecimal
	FloorFee      fixedpoint.FixedDecimal // zero disables the floor
}

// Model is the tagged pricing-model variant. It carries no reserves of its
// own — every function here is a pure function of a Reserves snapshot, as
// required by spec §4.2 ("pure functions over MarketState").
type Model struct {
	Variant Variant
	Fees    FeeConfig
}

// NewHyperdrive constructs a Hyperdrive-variant pricing model.
func NewHyperdrive(fees FeeConfig) Model {
	return Model{Variant: VariantHyperdrive, Fees: fees}
}

// NewElement constructs an Element-variant pricing model.
func NewElement(fees FeeConfig) Model {
	return Model{Variant: VariantElement, Fees: fees}
}

// Reserves is the minimal reserve snapshot the pricing functions need.
// pkg/market's MarketState embeds the superset of fields the state machine
// additionally tracks (buffers, averages); Reserves is what stays once
// those are stripped away.
type Reserves struct {
	ShareReserves  fixedpoint.FixedDecimal // z
	BondReserves   fixedpoint.FixedDecimal // y
	LPTotalSupply  fixedpoint.FixedDecimal // s
	SharePrice     fixedpoint.FixedDecimal // c
	InitSharePrice fixedpoint.FixedDecimal // mu
}

// effective returns r with SharePrice and InitSharePrice forced to 1 for
// the Element variant, implementing "Identical surfaces with mu = c = 1"
// (spec §4.2) without duplicating every solver.
func (m Model) effective(r Reserves) Reserves {
	if m.Variant == VariantElement {
		r.SharePrice = fixedpoint.One()
		r.InitSharePrice = fixedpoint.One()
	}
	return r
}

// FeeBreakdown itemizes a TradeResult's fee into its curve and governance
// components. FlatFee is broken out separately by the market package,
// which is the only caller that knows whether a trade is against a
// matured position.
type FeeBreakdown struct {
	Curve      fixedpoint.FixedDecimal
	Governance fixedpoint.FixedDecimal
}

// TradeResult is the output of every pricing calculation (spec §3).
type TradeResult struct {
	WithoutFeeOrSlippage fixedpoint.FixedDecimal
	WithFee              fixedpoint.FixedDecimal
	WithoutFee           fixedpoint.FixedDecimal
	Fee                  fixedpoint.FixedDecimal
	Breakdown            FeeBreakdown
	// OutUnit is the unit of WithFee/WithoutFee/WithoutFeeOrSlippage.
	OutUnit primitives.TokenUnit
}

// bondsVirtual returns the virtual bond reserve y + s used by the spot
// price formula, resolving the three-way ambiguity spec §9 calls out in
// the original implementation by fixing the convention to y_virt = y + s
// (lp_total_supply) everywhere a virtual reserve term is needed.
func bondsVirtual(r Reserves) fixedpoint.FixedDecimal {
	return r.BondReserves.Add(r.LPTotalSupply)
}

// invariantConstant computes k = (c/mu)*(mu*z)^(1-t) + y^(1-t).
func invariantConstant(r Reserves, timeElapsed fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	scale, err := r.SharePrice.Div(r.InitSharePrice)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	muz, err := r.InitSharePrice.Mul(r.ShareReserves)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	muzTerm, err := fixedpoint.Pow(muz, timeElapsed)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	scaledTerm, err := scale.Mul(muzTerm)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	yTerm, err := fixedpoint.Pow(r.BondReserves, timeElapsed)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return scaledTerm.Add(yTerm), nil
}

// CalcSpotPrice returns p = ((y_virt + z*c) / (mu*z))^t (spec §4.2).
func CalcSpotPrice(m Model, reserves Reserves, timeRemaining fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	r := m.effective(reserves)
	if r.ShareReserves.IsZero() {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindPreconditionFailed, ErrPoolUninitialized)
	}
	if timeRemaining.IsZero() || timeRemaining.IsNegative() || timeRemaining.GreaterThan(fixedpoint.One()) {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindInputInvalid, ErrTimeOutOfRange)
	}
	zc, err := r.ShareReserves.Mul(r.SharePrice)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	numerator := bondsVirtual(r).Add(zc)
	muz, err := r.InitSharePrice.Mul(r.ShareReserves)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	base, err := numerator.Div(muz)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	p, err := fixedpoint.Pow(base, timeRemaining)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return p, nil
}

// CalcAPRFromSpotPrice returns (1-p)/(p*T_years) (spec §4.2).
func CalcAPRFromSpotPrice(spotPrice, termYears fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	if !spotPrice.IsPositive() {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, fmt.Errorf("spot price must be positive, got %s", spotPrice))
	}
	numerator := fixedpoint.One().Sub(spotPrice)
	denominator, err := spotPrice.Mul(termYears)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	apr, err := numerator.Div(denominator)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return apr, nil
}

// CalcSpotPriceFromAPR inverts CalcAPRFromSpotPrice: p = 1 / (1 + r*T).
func CalcSpotPriceFromAPR(apr, termYears fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	rt, err := apr.Mul(termYears)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	denom := fixedpoint.One().Add(rt)
	return fixedpoint.One().Div(denom)
}

// CalcAPRFromReserves composes CalcSpotPrice and CalcAPRFromSpotPrice.
func CalcAPRFromReserves(m Model, reserves Reserves, timeRemaining, termYears fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	p, err := CalcSpotPrice(m, reserves, timeRemaining)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	return CalcAPRFromSpotPrice(p, termYears)
}

// CalcTimeStretch returns tau = 3.09396 / (0.02789 * apr * 100), the
// constant time-stretch derivation fixed in spec §3.
func CalcTimeStretch(targetAPR fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	if !targetAPR.IsPositive() {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindInputInvalid, fmt.Errorf("target APR must be positive, got %s", targetAPR))
	}
	aprPercent, err := targetAPR.Mul(fixedpoint.FromInt64(100))
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	denom, err := fixedpoint.MustFromString("0.02789").Mul(aprPercent)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	tau, err := fixedpoint.MustFromString("3.09396").Div(denom)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return tau, nil
}
