package pricing

import (
	"fmt"

	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
)

// oneMinus and reciprocal are small helpers kept local to this file since
// every solver below needs "1 - t" and "1 / (1 - t)" repeatedly.
func oneMinus(t fixedpoint.FixedDecimal) fixedpoint.FixedDecimal {
	return fixedpoint.One().Sub(t)
}

func reciprocal(x fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	return fixedpoint.One().Div(x)
}

func validateTradeInputs(amount fixedpoint.FixedDecimal, r Reserves) error {
	if !amount.IsPositive() {
		return ammerr.Wrap(ammerr.KindInputInvalid, ErrNonPositiveAmount)
	}
	if r.ShareReserves.IsZero() && r.BondReserves.IsZero() {
		return ammerr.Wrap(ammerr.KindPreconditionFailed, ErrPoolUninitialized)
	}
	return nil
}

func applyFee(m Model, preFeeDelta, amount fixedpoint.FixedDecimal, feeIsSubtracted bool) (fee fixedpoint.FixedDecimal, breakdown FeeBreakdown, err error) {
	var base fixedpoint.FixedDecimal
	if feeIsSubtracted {
		base = preFeeDelta.Sub(amount)
	} else {
		base = amount.Sub(preFeeDelta)
	}
	fee, err = m.Fees.CurveFee.Mul(base)
	if err != nil {
		return fixedpoint.FixedDecimal{}, FeeBreakdown{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	if fee.IsNegative() {
		fee = fixedpoint.Zero()
	}
	if m.Fees.FloorFee.IsPositive() {
		floor, ferr := m.Fees.FloorFee.Mul(amount)
		if ferr != nil {
			return fixedpoint.FixedDecimal{}, FeeBreakdown{}, ammerr.Wrap(ammerr.KindMathError, ferr)
		}
		fee = fee.Max(floor)
	}
	governance, err := m.Fees.GovernanceFee.Mul(fee)
	if err != nil {
		return fixedpoint.FixedDecimal{}, FeeBreakdown{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	curve := fee.Sub(governance)
	return fee, FeeBreakdown{Curve: curve, Governance: governance}, nil
}

// CalcOutGivenIn solves the YieldSpace invariant for the amount of the
// opposite asset received for a fixed input amount (spec §4.2). in.Unit
// must be Base or PT.
func CalcOutGivenIn(m Model, in primitives.Quantity, reserves Reserves, timeRemaining fixedpoint.FixedDecimal) (TradeResult, error) {
	r := m.effective(reserves)
	if err := validateTradeInputs(in.Amount, r); err != nil {
		return TradeResult{}, err
	}
	spot, err := CalcSpotPrice(m, reserves, timeRemaining)
	if err != nil {
		return TradeResult{}, err
	}
	k, err := invariantConstant(r, oneMinus(timeRemaining))
	if err != nil {
		return TradeResult{}, err
	}
	scale, err := r.SharePrice.Div(r.InitSharePrice)
	if err != nil {
		return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	invExp, err := reciprocal(oneMinus(timeRemaining))
	if err != nil {
		return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	switch in.Unit {
	case primitives.Base:
		dz, err := in.Amount.Div(r.SharePrice)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		zNew := r.ShareReserves.Add(dz)
		muZNew, err := r.InitSharePrice.Mul(zNew)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		muZNewTerm, err := fixedpoint.Pow(muZNew, oneMinus(timeRemaining))
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		scaledTerm, err := scale.Mul(muZNewTerm)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		remainder := k.Sub(scaledTerm)
		if !remainder.IsPositive() {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade exceeds available bond reserves")
		}
		yNew, err := fixedpoint.Pow(remainder, invExp)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		if yNew.GreaterThan(r.BondReserves) {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade would increase bond reserves on a base-in trade")
		}
		bondsOut := r.BondReserves.Sub(yNew)
		fee, breakdown, err := applyFee(m, bondsOut, in.Amount, true)
		if err != nil {
			return TradeResult{}, err
		}
		withFee := bondsOut.Sub(fee)
		if withFee.IsNegative() {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "fee exceeds trade proceeds")
		}
		withoutFeeOrSlippage, err := in.Amount.Div(spot)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		return TradeResult{
			WithoutFeeOrSlippage: withoutFeeOrSlippage,
			WithFee:              withFee,
			WithoutFee:           bondsOut,
			Fee:                  fee,
			Breakdown:            breakdown,
			OutUnit:              primitives.PT,
		}, nil

	case primitives.PT:
		yNew := r.BondReserves.Add(in.Amount)
		yNewTerm, err := fixedpoint.Pow(yNew, oneMinus(timeRemaining))
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		remainder := k.Sub(yNewTerm)
		if !remainder.IsPositive() {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade exceeds available share reserves")
		}
		muZNewTerm, err := remainder.Div(scale)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		muZNew, err := fixedpoint.Pow(muZNewTerm, invExp)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		zNew, err := muZNew.Div(r.InitSharePrice)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		if zNew.GreaterThan(r.ShareReserves) {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade would increase share reserves on a pt-in trade")
		}
		dz := r.ShareReserves.Sub(zNew)
		baseOut, err := dz.Mul(r.SharePrice)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		fee, breakdown, err := applyFee(m, baseOut, in.Amount, false)
		if err != nil {
			return TradeResult{}, err
		}
		withFee := baseOut.Sub(fee)
		if withFee.IsNegative() {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "fee exceeds trade proceeds")
		}
		withoutFeeOrSlippage, err := in.Amount.Mul(spot)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		return TradeResult{
			WithoutFeeOrSlippage: withoutFeeOrSlippage,
			WithFee:              withFee,
			WithoutFee:           baseOut,
			Fee:                  fee,
			Breakdown:            breakdown,
			OutUnit:              primitives.Base,
		}, nil

	default:
		return TradeResult{}, ammerr.Wrap(ammerr.KindInputInvalid, fmt.Errorf("%w: %s", ErrUnitMismatch, in.Unit))
	}
}

// CalcInGivenOut solves the YieldSpace invariant for the amount of the
// opposite asset required to move a fixed amount of out.Unit's reserve
// (spec §4.2). out.Unit must be Base or PT.
func CalcInGivenOut(m Model, out primitives.Quantity, reserves Reserves, timeRemaining fixedpoint.FixedDecimal) (TradeResult, error) {
	r := m.effective(reserves)
	if err := validateTradeInputs(out.Amount, r); err != nil {
		return TradeResult{}, err
	}
	spot, err := CalcSpotPrice(m, reserves, timeRemaining)
	if err != nil {
		return TradeResult{}, err
	}
	k, err := invariantConstant(r, oneMinus(timeRemaining))
	if err != nil {
		return TradeResult{}, err
	}
	scale, err := r.SharePrice.Div(r.InitSharePrice)
	if err != nil {
		return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	invExp, err := reciprocal(oneMinus(timeRemaining))
	if err != nil {
		return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	switch out.Unit {
	case primitives.PT:
		if out.Amount.GreaterThanOrEqual(r.BondReserves) {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "cannot remove more bonds than reserves hold")
		}
		yNew := r.BondReserves.Sub(out.Amount)
		yNewTerm, err := fixedpoint.Pow(yNew, oneMinus(timeRemaining))
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		remainder := k.Sub(yNewTerm)
		if !remainder.IsPositive() {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "no solution for requested bond reduction")
		}
		muZNewTerm, err := remainder.Div(scale)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		muZNew, err := fixedpoint.Pow(muZNewTerm, invExp)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		zNew, err := muZNew.Div(r.InitSharePrice)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		if zNew.LessThan(r.ShareReserves) {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade would decrease share reserves on a pt-out trade")
		}
		dz := zNew.Sub(r.ShareReserves)
		baseIn, err := dz.Mul(r.SharePrice)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		fee, breakdown, err := applyFee(m, baseIn, out.Amount, false)
		if err != nil {
			return TradeResult{}, err
		}
		withFee := baseIn.Add(fee)
		withoutFeeOrSlippage, err := out.Amount.Mul(spot)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		return TradeResult{
			WithoutFeeOrSlippage: withoutFeeOrSlippage,
			WithFee:              withFee,
			WithoutFee:           baseIn,
			Fee:                  fee,
			Breakdown:            breakdown,
			OutUnit:              primitives.Base,
		}, nil

	case primitives.Base:
		dz, err := out.Amount.Div(r.SharePrice)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		if dz.GreaterThanOrEqual(r.ShareReserves) {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "cannot remove more base than reserves hold")
		}
		zNew := r.ShareReserves.Sub(dz)
		muZNew, err := r.InitSharePrice.Mul(zNew)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		muZNewTerm, err := fixedpoint.Pow(muZNew, oneMinus(timeRemaining))
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		scaledTerm, err := scale.Mul(muZNewTerm)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		remainder := k.Sub(scaledTerm)
		if !remainder.IsPositive() {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "no solution for requested base reduction")
		}
		yNew, err := fixedpoint.Pow(remainder, invExp)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		if yNew.LessThan(r.BondReserves) {
			return TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade would decrease bond reserves on a base-out trade")
		}
		bondsIn := yNew.Sub(r.BondReserves)
		fee, breakdown, err := applyFee(m, bondsIn, out.Amount, true)
		if err != nil {
			return TradeResult{}, err
		}
		withFee := bondsIn.Add(fee)
		withoutFeeOrSlippage, err := out.Amount.Div(spot)
		if err != nil {
			return TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
		}
		return TradeResult{
			WithoutFeeOrSlippage: withoutFeeOrSlippage,
			WithFee:              withFee,
			WithoutFee:           bondsIn,
			Fee:                  fee,
			Breakdown:            breakdown,
			OutUnit:              primitives.PT,
		}, nil

	default:
		return TradeResult{}, ammerr.Wrap(ammerr.KindInputInvalid, fmt.Errorf("%w: %s", ErrUnitMismatch, out.Unit))
	}
}
