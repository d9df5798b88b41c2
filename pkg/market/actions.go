package market

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// Every applyX method returns the State the action WOULD produce, without
// mutating m.State itself — Apply commits it only after checkBuffers
// passes, so a rejected trade never leaves partial reserve changes behind.
// Wallet mutations happen inline, after every pricing calculation has
// already succeeded, so the only way they can fail is a caller bug (an
// unchecked precondition), which surfaces as KindStateCorrupt rather than
// a silent partial wallet update.

func (m *Market) applyOpenLong(action Action, w *wallet.Wallet) (State, pricing.TradeResult, error) {
	amount := action.TradeAmount
	if w.Base.LessThan(amount) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "agent %s base balance %s insufficient for long of %s", action.AgentID, w.Base, amount)
	}
	tFull, err := m.fullTermTime()
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	maxLong, err := pricing.CalcMaxLong(m.Model, m.reserves(), tFull, w.Base, m.MinimumShareReserves)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if amount.GreaterThan(maxLong) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "long of %s exceeds max_long %s", amount, maxLong)
	}
	result, err := pricing.CalcOutGivenIn(m.Model, primitives.NewQuantity(amount, primitives.Base), m.reserves(), tFull)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	bondsOut := result.WithFee

	dz, err := amount.Div(m.State.SharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	dBuffer, err := bondsOut.Div(m.State.SharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	next := m.State
	next.ShareReserves = next.ShareReserves.Add(dz)
	next.BondReserves = next.BondReserves.Sub(bondsOut)
	next.ShareBuffer = next.ShareBuffer.Add(dBuffer)
	next.GovernanceFeesAccrued = next.GovernanceFeesAccrued.Add(result.Breakdown.Governance)

	avgMaturity, err := primitives.WeightedAverageUpdate(next.LongAggregateBalance, next.LongAverageMaturityTime, bondsOut, next.BlockTime, true)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	next.LongAverageMaturityTime = avgMaturity
	next.LongAggregateBalance = next.LongAggregateBalance.Add(bondsOut)

	if err := w.ApplyBase(amount.Neg()); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if err := w.OpenLong(next.BlockTime, bondsOut, next.SharePrice); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	w.ApplyFeesPaid(result.Fee)

	return next, result, nil
}

func (m *Market) applyCloseLong(action Action, w *wallet.Wallet) (State, pricing.TradeResult, error) {
	amount := action.TradeAmount
	long, ok := w.Long(action.MintTime)
	if !ok {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindInputInvalid, "agent %s has no open long at mint_time %s", action.AgentID, action.MintTime)
	}
	if amount.GreaterThan(long.Balance) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "close amount %s exceeds long balance %s", amount, long.Balance)
	}

	rawFraction, tStretched, err := m.timeRemaining(action.MintTime)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	curveAmount, err := amount.Mul(rawFraction)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	flatAmount := amount.Sub(curveAmount)

	curveBaseOut := fixedpoint.Zero()
	result := pricing.TradeResult{}
	if curveAmount.IsPositive() {
		result, err = pricing.CalcOutGivenIn(m.Model, primitives.NewQuantity(curveAmount, primitives.PT), m.reserves(), tStretched)
		if err != nil {
			return State{}, pricing.TradeResult{}, err
		}
		curveBaseOut = result.WithFee
	}
	flatFee, err := m.Model.Fees.FlatFee.Mul(flatAmount)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	flatBaseOut := flatAmount.Sub(flatFee)
	baseOut := curveBaseOut.Add(flatBaseOut)
	totalFee := result.Fee.Add(flatFee)

	dz, err := baseOut.Div(m.State.SharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	dBuffer, err := amount.Div(m.State.SharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	next := m.State
	next.ShareReserves = next.ShareReserves.Sub(dz)
	next.BondReserves = next.BondReserves.Add(curveAmount)
	next.ShareBuffer = next.ShareBuffer.Sub(dBuffer)
	next.GovernanceFeesAccrued = next.GovernanceFeesAccrued.Add(result.Breakdown.Governance)

	avgMaturity, err := primitives.WeightedAverageUpdate(next.LongAggregateBalance, next.LongAverageMaturityTime, amount, next.BlockTime, false)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	next.LongAverageMaturityTime = avgMaturity
	next.LongAggregateBalance = next.LongAggregateBalance.Sub(amount)

	if err := w.CloseLong(action.MintTime, amount); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if err := w.ApplyBase(baseOut); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	w.ApplyFeesPaid(totalFee)

	result.WithFee = baseOut
	result.Fee = totalFee
	return next, result, nil
}

func (m *Market) applyOpenShort(action Action, w *wallet.Wallet) (State, pricing.TradeResult, error) {
	amount := action.TradeAmount
	tFull, err := m.fullTermTime()
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	maxShort, err := pricing.CalcMaxShort(m.Model, m.reserves(), tFull, w.Base, m.MinimumShareReserves)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if amount.GreaterThan(maxShort) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "short of %s exceeds max_short %s", amount, maxShort)
	}
	result, err := pricing.CalcOutGivenIn(m.Model, primitives.NewQuantity(amount, primitives.PT), m.reserves(), tFull)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	baseOut := result.WithFee
	maxLoss := amount.Sub(baseOut)
	if w.Base.LessThan(maxLoss) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "agent %s base balance %s insufficient for short margin %s", action.AgentID, w.Base, maxLoss)
	}

	dz, err := baseOut.Div(m.State.SharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	next := m.State
	next.ShareReserves = next.ShareReserves.Sub(dz)
	next.BondReserves = next.BondReserves.Add(amount)
	next.BondBuffer = next.BondBuffer.Add(amount)
	next.GovernanceFeesAccrued = next.GovernanceFeesAccrued.Add(result.Breakdown.Governance)

	avgMaturity, err := primitives.WeightedAverageUpdate(next.ShortAggregateBalance, next.ShortAverageMaturityTime, amount, next.BlockTime, true)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	next.ShortAverageMaturityTime = avgMaturity
	next.ShortAggregateBalance = next.ShortAggregateBalance.Add(amount)

	if err := w.ApplyBase(maxLoss.Neg()); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if err := w.OpenShort(next.BlockTime, amount, next.SharePrice, maxLoss); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	w.ApplyFeesPaid(result.Fee)

	return next, result, nil
}

func (m *Market) applyCloseShort(action Action, w *wallet.Wallet) (State, pricing.TradeResult, error) {
	amount := action.TradeAmount
	short, ok := w.Short(action.MintTime)
	if !ok {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindInputInvalid, "agent %s has no open short at mint_time %s", action.AgentID, action.MintTime)
	}
	if amount.GreaterThan(short.Balance) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "close amount %s exceeds short balance %s", amount, short.Balance)
	}

	rawFraction, tStretched, err := m.timeRemaining(action.MintTime)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	curveAmount, err := amount.Mul(rawFraction)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	flatAmount := amount.Sub(curveAmount)

	curveCost := fixedpoint.Zero()
	result := pricing.TradeResult{}
	if curveAmount.IsPositive() {
		result, err = pricing.CalcInGivenOut(m.Model, primitives.NewQuantity(curveAmount, primitives.PT), m.reserves(), tStretched)
		if err != nil {
			return State{}, pricing.TradeResult{}, err
		}
		curveCost = result.WithFee
	}
	flatFee, err := m.Model.Fees.FlatFee.Mul(flatAmount)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	flatCost := flatAmount.Add(flatFee)
	totalCost := curveCost.Add(flatCost)
	totalFee := result.Fee.Add(flatFee)

	// Interest accrued since open, settled against the short's own
	// open_share_price rather than the pool-wide average (spec §4.4).
	rateDelta, err := m.State.SharePrice.Sub(short.OpenSharePrice).Div(short.OpenSharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	accrued, err := amount.Mul(rateDelta)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	dz, err := totalCost.Div(m.State.SharePrice)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	next := m.State
	next.ShareReserves = next.ShareReserves.Add(dz)
	next.BondReserves = next.BondReserves.Sub(amount)
	next.BondBuffer = next.BondBuffer.Sub(amount)
	next.GovernanceFeesAccrued = next.GovernanceFeesAccrued.Add(result.Breakdown.Governance)

	avgMaturity, err := primitives.WeightedAverageUpdate(next.ShortAggregateBalance, next.ShortAverageMaturityTime, amount, next.BlockTime, false)
	if err != nil {
		return State{}, pricing.TradeResult{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	next.ShortAverageMaturityTime = avgMaturity
	next.ShortAggregateBalance = next.ShortAggregateBalance.Sub(amount)

	marginPortion, err := w.ReduceShort(action.MintTime, amount)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	netPayout := marginPortion.Add(accrued).Sub(totalCost)
	if err := w.ApplyBase(netPayout); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	w.ApplyFeesPaid(totalFee)

	result.WithFee = totalCost
	result.Fee = totalFee
	return next, result, nil
}

func (m *Market) applyAddLiquidity(action Action, w *wallet.Wallet) (State, pricing.TradeResult, error) {
	amount := action.TradeAmount
	if w.Base.LessThan(amount) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "agent %s base balance %s insufficient to add %s liquidity", action.AgentID, w.Base, amount)
	}
	lpOut, dShares, dBonds, err := pricing.CalcLPOutGivenBaseIn(m.reserves(), amount)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}

	next := m.State
	next.ShareReserves = next.ShareReserves.Add(dShares)
	next.BondReserves = next.BondReserves.Add(dBonds)
	next.LPTotalSupply = next.LPTotalSupply.Add(lpOut)

	if err := w.ApplyBase(amount.Neg()); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if err := w.ApplyLPDelta(lpOut); err != nil {
		return State{}, pricing.TradeResult{}, err
	}

	return next, pricing.TradeResult{
		WithoutFeeOrSlippage: amount,
		WithFee:              lpOut,
		WithoutFee:           lpOut,
		Fee:                  fixedpoint.Zero(),
		OutUnit:              primitives.LP,
	}, nil
}

func (m *Market) applyRemoveLiquidity(action Action, w *wallet.Wallet) (State, pricing.TradeResult, error) {
	lpAmount := action.TradeAmount
	if w.LPBalance.LessThan(lpAmount) {
		return State{}, pricing.TradeResult{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "agent %s lp balance %s insufficient to remove %s", action.AgentID, w.LPBalance, lpAmount)
	}
	dShares, dBonds, baseOut, err := pricing.CalcTokensOutGivenLPIn(m.reserves(), lpAmount)
	if err != nil {
		return State{}, pricing.TradeResult{}, err
	}

	next := m.State
	next.ShareReserves = next.ShareReserves.Sub(dShares)
	next.BondReserves = next.BondReserves.Sub(dBonds)
	next.LPTotalSupply = next.LPTotalSupply.Sub(lpAmount)

	if err := w.ApplyLPDelta(lpAmount.Neg()); err != nil {
		return State{}, pricing.TradeResult{}, err
	}
	if err := w.ApplyBase(baseOut); err != nil {
		return State{}, pricing.TradeResult{}, err
	}

	return next, pricing.TradeResult{
		WithoutFeeOrSlippage: baseOut,
		WithFee:              baseOut,
		WithoutFee:           baseOut,
		Fee:                  fixedpoint.Zero(),
		OutUnit:              primitives.Base,
	}, nil
}
