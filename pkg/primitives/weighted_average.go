package primitives

import "github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"

// WeightedAverageUpdate implements the weighted-average update spec §4.3
// describes once and reuses in several places (long/short average maturity
// time tracking in pkg/market, position open_share_price averaging in
// pkg/wallet): avg' = (w*avg +/- dw*delta) / (w +/- dw), with the
// degenerate case w' = 0 => avg' = 0 enforced so callers never divide by
// zero when a position is fully closed or removed.
func WeightedAverageUpdate(weight, avg, deltaWeight, deltaValue fixedpoint.FixedDecimal, isAdd bool) (newAvg fixedpoint.FixedDecimal, err error) {
	var newWeight fixedpoint.FixedDecimal
	if isAdd {
		newWeight = weight.Add(deltaWeight)
	} else {
		newWeight = weight.Sub(deltaWeight)
	}
	if newWeight.IsZero() || newWeight.IsNegative() {
		return fixedpoint.Zero(), nil
	}

	weightedOld, err := weight.Mul(avg)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	weightedDelta, err := deltaWeight.Mul(deltaValue)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	var numerator fixedpoint.FixedDecimal
	if isAdd {
		numerator = weightedOld.Add(weightedDelta)
	} else {
		numerator = weightedOld.Sub(weightedDelta)
	}
	return numerator.Div(newWeight)
}
