package agent

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// LPAndArbPolicy (spec §4.5) contributes lp_portion of its budget to
// liquidity on its first active block, then arbitrages the rate back
// toward variable_apr using whichever direction (long or short) is
// cheaper, based on the sign of fixed_apr - variable_apr. With
// DoneOnEmpty set, it stops issuing trades once the gap is within
// 10^-5 (spec §8 property 6 / scenario S4).
type LPAndArbPolicy struct {
	ID       string
	Config   Config
	rng      *RNG
	seededLP bool
}

func NewLPAndArbPolicy(id string, cfg Config, seed uint64) *LPAndArbPolicy {
	return &LPAndArbPolicy{ID: id, Config: cfg, rng: NewRNG(seed)}
}

func (p *LPAndArbPolicy) Describe() string { return "LPAndArbPolicy(" + p.ID + ")" }

func (p *LPAndArbPolicy) SnapshotState() Snapshot {
	seeded := fixedpoint.Zero()
	if p.seededLP {
		seeded = fixedpoint.One()
	}
	return Snapshot{RNGState: p.rng.State(), Memo: map[string]fixedpoint.FixedDecimal{"seededLP": seeded}}
}

func (p *LPAndArbPolicy) RestoreState(s Snapshot) error {
	p.rng.SetState(s.RNGState)
	p.seededLP = s.Memo["seededLP"].IsPositive()
	return nil
}

var arbConvergenceTolerance = fixedpoint.MustFromString("0.00001")

func (p *LPAndArbPolicy) Action(view market.View, w *wallet.Wallet) ([]market.Action, error) {
	var actions []market.Action

	if !p.seededLP {
		p.seededLP = true
		contribution, err := w.Base.Mul(p.Config.LPPortion)
		if err == nil && contribution.IsPositive() {
			actions = append(actions, market.Action{Type: market.AddLiquidity, AgentID: p.ID, TradeAmount: contribution})
		}
	}

	gap := rateGap(view)
	if p.Config.DoneOnEmpty && gap.Abs().LessThan(arbConvergenceTolerance) {
		return actions, nil
	}

	model := view.Model()
	tFull, err := fixedpoint.One().Div(view.PositionDuration.TimeStretch)
	if err != nil {
		return actions, nil
	}

	switch {
	case gap.IsPositive():
		// fixed_apr > variable_apr: the pool's bonds are cheap relative
		// to the vault yield, so selling bonds (opening a short) pulls
		// the rate down toward target.
		maxShort, err := pricing.CalcMaxShort(model, view.Reserves(), tFull, w.Base, view.MinimumShareReserves)
		if err == nil && maxShort.GreaterThanOrEqual(view.MinimumTransactionAmount) {
			actions = append(actions, market.Action{Type: market.OpenShort, AgentID: p.ID, TradeAmount: maxShort})
		}
	case gap.IsNegative():
		// fixed_apr < variable_apr: bonds are rich, so buying them
		// (opening a long) pushes the rate up toward target.
		maxLong, err := pricing.CalcMaxLong(model, view.Reserves(), tFull, w.Base, view.MinimumShareReserves)
		if err == nil && maxLong.GreaterThanOrEqual(view.MinimumTransactionAmount) {
			actions = append(actions, market.Action{Type: market.OpenLong, AgentID: p.ID, TradeAmount: maxLong})
		}
	}
	return actions, nil
}
