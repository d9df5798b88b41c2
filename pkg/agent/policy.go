package agent

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// Config bundles every tunable a reference policy reads (spec §4.5);
// unused fields for a given policy are simply ignored.
type Config struct {
	TradeChance     fixedpoint.FixedDecimal // RandomPolicy
	MinTradeAmount  fixedpoint.FixedDecimal
	MaxTradeAmount  fixedpoint.FixedDecimal
	Threshold       fixedpoint.FixedDecimal // FixedShortPolicy / LongArbitragePolicy
	LPPortion       fixedpoint.FixedDecimal // LPAndArbPolicy
	DoneOnEmpty     bool
	TargetLiquidity fixedpoint.FixedDecimal // InitialLPPolicy / InitialLPShortPolicy
	ShortAmount     fixedpoint.FixedDecimal // InitialLPShortPolicy
}

// Snapshot is a policy's own state, captured and restored independently
// of the market it trades against (spec §9's "capability interface"
// design note). RNGState alone is enough to resume an RNG-driven policy
// bit-for-bit; Memo carries any additional per-policy bookkeeping (e.g.
// InitialLPPolicy's "have I already seeded liquidity" flag).
type Snapshot struct {
	RNGState uint64
	Memo     map[string]fixedpoint.FixedDecimal
}

// Policy is the capability interface every reference policy implements.
type Policy interface {
	// Action proposes the trades this agent wants to make this block,
	// given an immutable view of the market and the agent's own wallet.
	Action(view market.View, w *wallet.Wallet) ([]market.Action, error)
	// Describe returns a short human-readable identity for logs.
	Describe() string
	SnapshotState() Snapshot
	RestoreState(Snapshot) error
}

// isMature reports whether a position opened at mintTime has reached the
// end of the pool's term as of view.BlockTime.
func isMature(view market.View, mintTime fixedpoint.FixedDecimal) bool {
	elapsed := view.BlockTime.Sub(mintTime)
	return elapsed.GreaterThanOrEqual(view.PositionDuration.NormalizedDays)
}

// rateGap returns fixed_apr - variable_apr.
func rateGap(view market.View) fixedpoint.FixedDecimal {
	return view.FixedAPR.Sub(view.VariableAPR)
}

// uniformAmount returns an RNG-drawn amount in [lo, hi], falling back to
// lo if hi <= lo.
func uniformAmount(rng *RNG, lo, hi fixedpoint.FixedDecimal) fixedpoint.FixedDecimal {
	if !hi.GreaterThan(lo) {
		return lo
	}
	span := hi.Sub(lo)
	draw := fixedpoint.FromFloat64(rng.Float64())
	scaled, err := span.Mul(draw)
	if err != nil {
		return lo
	}
	return lo.Add(scaled)
}
