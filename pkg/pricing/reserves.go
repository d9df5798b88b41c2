package pricing

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
)

// InitReserves computes the (share_reserves, bond_reserves, lp_total_supply)
// triple that gives a fresh pool targetLiquidity base worth of depth at
// targetAPR, following original_source/src/elfpy/pricing_models.py's
// calc_liquidity two-pass estimate-then-rescale method: an initial bond
// reserve estimate is derived from the target liquidity split evenly
// against the target price, the matching share reserve is solved from the
// invariant, and then both are scaled so their combined value lands
// exactly on targetLiquidity.
//
// spec §4.2 gives a share-reserve formula whose sign does not reconcile
// with the reference implementation at any tested APR; this function
// follows the reference implementation instead, per the instruction to
// resolve spec ambiguity against original_source (see DESIGN.md).
func InitReserves(m Model, targetLiquidity, targetAPR, termYears, sharePrice, initSharePrice fixedpoint.FixedDecimal) (Reserves, error) {
	if !targetLiquidity.IsPositive() {
		return Reserves{}, ammerr.Wrap(ammerr.KindInputInvalid, ErrNonPositiveAmount)
	}
	timeStretch, err := CalcTimeStretch(targetAPR)
	if err != nil {
		return Reserves{}, err
	}

	spotPrice, err := CalcSpotPriceFromAPR(targetAPR, termYears)
	if err != nil {
		return Reserves{}, err
	}

	two := fixedpoint.FromInt64(2)
	denom, err := two.Mul(spotPrice)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	bondEstimate, err := targetLiquidity.Div(denom)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	baseReservesEstimate, err := calcBaseAssetReserves(targetAPR, bondEstimate, termYears, timeStretch, sharePrice, initSharePrice)
	if err != nil {
		return Reserves{}, err
	}

	termPrice, err := bondEstimate.Mul(spotPrice)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	totalLiquidityEstimate := baseReservesEstimate.Add(termPrice)
	if !totalLiquidityEstimate.IsPositive() {
		return Reserves{}, ammerr.Wrapf(ammerr.KindMathError, "reserve initialization produced non-positive liquidity estimate")
	}
	scalingFactor, err := targetLiquidity.Div(totalLiquidityEstimate)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	baseReservesFinal, err := baseReservesEstimate.Mul(scalingFactor)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	bondReservesFinal, err := bondEstimate.Mul(scalingFactor)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	shareReservesFinal, err := baseReservesFinal.Div(sharePrice)
	if err != nil {
		return Reserves{}, ammerr.Wrap(ammerr.KindMathError, err)
	}

	return Reserves{
		ShareReserves:  shareReservesFinal,
		BondReserves:   bondReservesFinal,
		LPTotalSupply:  targetLiquidity,
		SharePrice:     sharePrice,
		InitSharePrice: initSharePrice,
	}, nil
}

// calcBaseAssetReserves returns the base-denominated share reserve (z*c)
// that, paired with bondReserves, prices the pool at targetAPR — ported
// from calc_base_asset_reserves in original_source/src/elfpy/pricing_models.py.
func calcBaseAssetReserves(targetAPR, bondReserves, termYears, timeStretch, sharePrice, initSharePrice fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	timeStretchExp, err := timeStretch.Div(termYears)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	rt, err := targetAPR.Mul(termYears)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	scaledBase := fixedpoint.One().Add(rt)
	scaledTerm, err := fixedpoint.Pow(scaledBase, timeStretchExp)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	muTerm, err := initSharePrice.Mul(scaledTerm)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	denominator := muTerm.Sub(sharePrice)
	if !denominator.IsPositive() {
		return fixedpoint.FixedDecimal{}, ammerr.Wrapf(ammerr.KindMathError, "reserve initialization denominator is non-positive for the given APR/term")
	}
	two := fixedpoint.FromInt64(2)
	cy, err := sharePrice.Mul(bondReserves)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	numerator, err := two.Mul(cy)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return numerator.Div(denominator)
}

// CalcLPOutGivenBaseIn returns the LP tokens minted and the matching
// share/bond reserve deltas for a single-sided base deposit (spec §4.2,
// "calc_lp_out_given_base_in"). Deposits after the first preserve the
// existing y/z ratio exactly, so spot price and APR are unchanged by
// adding liquidity.
func CalcLPOutGivenBaseIn(reserves Reserves, baseIn fixedpoint.FixedDecimal) (lpOut, dShares, dBonds fixedpoint.FixedDecimal, err error) {
	if !baseIn.IsPositive() {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindInputInvalid, ErrNonPositiveAmount)
	}
	dShares, err = baseIn.Div(reserves.SharePrice)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	if reserves.LPTotalSupply.IsZero() || reserves.ShareReserves.IsZero() {
		return baseIn, dShares, fixedpoint.Zero(), nil
	}
	dBonds, err = reserves.BondReserves.Mul(dShares)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	dBonds, err = dBonds.Div(reserves.ShareReserves)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	lpOut, err = reserves.LPTotalSupply.Mul(dShares)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	lpOut, err = lpOut.Div(reserves.ShareReserves)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return lpOut, dShares, dBonds, nil
}

// CalcTokensOutGivenLPIn returns the share/bond reserve deltas and the
// resulting base payout for burning lpIn LP tokens (spec §4.2,
// "calc_tokens_out_given_lp_in"). It is the exact inverse of
// CalcLPOutGivenBaseIn, so add-then-remove-everything round-trips the
// original base amount to within truncation error.
func CalcTokensOutGivenLPIn(reserves Reserves, lpIn fixedpoint.FixedDecimal) (dShares, dBonds, baseOut fixedpoint.FixedDecimal, err error) {
	if !lpIn.IsPositive() {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindInputInvalid, ErrNonPositiveAmount)
	}
	if reserves.LPTotalSupply.IsZero() {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindPreconditionFailed, ErrPoolUninitialized)
	}
	if lpIn.GreaterThan(reserves.LPTotalSupply) {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "cannot remove more LP tokens than are outstanding")
	}
	share, err := lpIn.Div(reserves.LPTotalSupply)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	dShares, err = reserves.ShareReserves.Mul(share)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	dBonds, err = reserves.BondReserves.Mul(share)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	baseOut, err = dShares.Mul(reserves.SharePrice)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return dShares, dBonds, baseOut, nil
}
