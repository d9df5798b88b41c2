package pricing

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
)

// SolveShareReservesForTargetPrice inverts CalcSpotPrice for the share
// reserves that would put the pool's spot price at targetPrice, holding
// bond reserves and lp_total_supply fixed. It exists for arbitrage
// policies (spec §4.5's LongArbitragePolicy): p = ((y_virt + z*c)/(mu*z))^t
// is linear in z once both sides are raised to 1/t, so it solves in
// closed form: u = p^(1/t), z = y_virt / (u*mu - c).
func SolveShareReservesForTargetPrice(m Model, reserves Reserves, targetPrice, timeRemaining fixedpoint.FixedDecimal) (fixedpoint.FixedDecimal, error) {
	r := m.effective(reserves)
	if !targetPrice.IsPositive() {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindInputInvalid, ErrNonPositiveAmount)
	}
	invT, err := reciprocal(timeRemaining)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	u, err := fixedpoint.Pow(targetPrice, invT)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	uMu, err := u.Mul(r.InitSharePrice)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	denom := uMu.Sub(r.SharePrice)
	if !denom.IsPositive() {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, ErrNoSolution)
	}
	zNew, err := bondsVirtual(r).Div(denom)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return zNew, nil
}
