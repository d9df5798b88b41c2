package simulator

import (
	"fmt"

	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
)

// TradeRow is one accepted trade, carrying every column spec §6's
// SimulationState row schema names.
type TradeRow struct {
	BlockNumber int
	Day         int
	TradeNumber int

	AgentID    string
	ActionType market.ActionType
	Unit       primitives.TokenUnit
	Amount     fixedpoint.FixedDecimal
	MintTime   fixedpoint.FixedDecimal

	// RecordedAt is the wall-clock instant this row was appended to the
	// log — real time a caller tailing the log in real time can compare
	// against, distinct from BlockTime's simulated year-fraction clock.
	RecordedAt primitives.Time

	SpotPrice   fixedpoint.FixedDecimal
	FixedAPR    fixedpoint.FixedDecimal
	VariableAPR fixedpoint.FixedDecimal

	ShareReserves fixedpoint.FixedDecimal
	BondReserves  fixedpoint.FixedDecimal
	SharePrice    fixedpoint.FixedDecimal

	FeesPaid             fixedpoint.FixedDecimal
	WithoutFeeOrSlippage fixedpoint.FixedDecimal
	WithFee              fixedpoint.FixedDecimal
	WithoutFee           fixedpoint.FixedDecimal
	Fee                  fixedpoint.FixedDecimal

	// MaxLong/MaxShort are the bounds computed just before this trade was
	// applied, from the view taken at the start of its block and the
	// wallet's base at that point (SPEC_FULL.md supplement to spec §6's
	// row schema, grounded in original_source's per-trade diagnostic
	// columns). MaxLong is set only on OPEN_LONG rows and MaxShort only on
	// OPEN_SHORT rows; both are zero for every other action.
	MaxLong  fixedpoint.FixedDecimal
	MaxShort fixedpoint.FixedDecimal
}

// RejectionRecord is logged for every trade the market refused (spec §7):
// the simulator counts these in aggregate and, unless HaltOnErrors is set,
// keeps running.
type RejectionRecord struct {
	BlockNumber int
	Day         int
	AgentID     string
	ActionType  market.ActionType
	Amount      fixedpoint.FixedDecimal
	Reason      string

	// RecordedAt mirrors TradeRow.RecordedAt for rejected trades.
	RecordedAt primitives.Time
}

// SimulationState is the tabular log run_simulation returns (spec §6): one
// row per accepted trade, plus the aggregate rejection log the simulator
// never discards even when it keeps running past a rejection. StartedAt/
// FinishedAt are wall-clock metadata about the run itself (spec §9's note
// that the simulated block_time clock and real wall-clock time are
// distinct) — every row's RecordedAt falls between the two.
type SimulationState struct {
	Trades     []TradeRow
	Rejections []RejectionRecord
	FinalView  market.View

	StartedAt  primitives.Time
	FinishedAt primitives.Time
}

// RejectionCount returns the total number of rejected trades across the run.
func (s *SimulationState) RejectionCount() int {
	return len(s.Rejections)
}

// WallClockElapsed returns how long the run actually took to execute,
// independent of how much simulated block_time it covered.
func (s *SimulationState) WallClockElapsed() primitives.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Summary returns a short human-readable recap of the run.
func (s *SimulationState) Summary() string {
	return fmt.Sprintf(
		"Simulation Results:\n"+
			"  Trades accepted: %d\n"+
			"  Trades rejected: %d\n"+
			"  Wall-clock duration: %s\n"+
			"  Final spot price: %s\n"+
			"  Final fixed APR: %s\n"+
			"  Final share reserves: %s\n"+
			"  Final bond reserves: %s",
		len(s.Trades),
		len(s.Rejections),
		s.WallClockElapsed().String(),
		s.FinalView.SpotPrice.String(),
		s.FinalView.FixedAPR.String(),
		s.FinalView.ShareReserves.String(),
		s.FinalView.BondReserves.String(),
	)
}
