package market

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
)

// AdvanceBlock moves the market forward one block (spec §5): the clock
// advances by 1/blocks_per_day/365 years, and share_price compounds by
// the pool's variable_apr over that same slice, c *= 1 + apr/blocks_per_day/365.
func (m *Market) AdvanceBlock() error {
	daysPerYear := fixedpoint.FromInt64(365)
	blockFraction, err := fixedpoint.One().Div(m.BlocksPerDay)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	yearFraction, err := blockFraction.Div(daysPerYear)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	m.State.BlockTime = m.State.BlockTime.Add(yearFraction)

	aprSlice, err := m.State.VariableAPR.Mul(yearFraction)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	growth := fixedpoint.One().Add(aprSlice)
	newSharePrice, err := m.State.SharePrice.Mul(growth)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	m.State.SharePrice = newSharePrice
	return nil
}

// SetVariableAPR overrides the variable rate the share price compounds at,
// the per-day schedule spec §6's Config.variable_apr describes.
func (m *Market) SetVariableAPR(apr fixedpoint.FixedDecimal) {
	m.State.VariableAPR = apr
}
