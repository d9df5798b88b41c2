package agent

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// InitialLPPolicy (spec §4.5) adds the configured target liquidity on its
// first active block and never trades again.
type InitialLPPolicy struct {
	ID     string
	Config Config
	rng    *RNG
	seeded bool
}

func NewInitialLPPolicy(id string, cfg Config, seed uint64) *InitialLPPolicy {
	return &InitialLPPolicy{ID: id, Config: cfg, rng: NewRNG(seed)}
}

func (p *InitialLPPolicy) Describe() string { return "InitialLPPolicy(" + p.ID + ")" }

func (p *InitialLPPolicy) SnapshotState() Snapshot {
	seeded := fixedpoint.Zero()
	if p.seeded {
		seeded = fixedpoint.One()
	}
	return Snapshot{RNGState: p.rng.State(), Memo: map[string]fixedpoint.FixedDecimal{"seeded": seeded}}
}

func (p *InitialLPPolicy) RestoreState(s Snapshot) error {
	p.rng.SetState(s.RNGState)
	p.seeded = s.Memo["seeded"].IsPositive()
	return nil
}

func (p *InitialLPPolicy) Action(view market.View, w *wallet.Wallet) ([]market.Action, error) {
	if p.seeded {
		return nil, nil
	}
	p.seeded = true
	amount := p.Config.TargetLiquidity.Min(w.Base)
	if !amount.IsPositive() {
		return nil, nil
	}
	return []market.Action{{Type: market.AddLiquidity, AgentID: p.ID, TradeAmount: amount}}, nil
}

// InitialLPShortPolicy is the second of the two subtly different
// initial-LP forms spec §9's Open Question calls out: it mints LP exactly
// like InitialLPPolicy, then also opens a short sized by config on the
// same first block, to seed the pool with an initial short position
// alongside initial liquidity. The two are kept as separate named
// policies per the spec's explicit instruction not to merge them.
type InitialLPShortPolicy struct {
	ID     string
	Config Config
	rng    *RNG
	seeded bool
}

func NewInitialLPShortPolicy(id string, cfg Config, seed uint64) *InitialLPShortPolicy {
	return &InitialLPShortPolicy{ID: id, Config: cfg, rng: NewRNG(seed)}
}

func (p *InitialLPShortPolicy) Describe() string { return "InitialLPShortPolicy(" + p.ID + ")" }

func (p *InitialLPShortPolicy) SnapshotState() Snapshot {
	seeded := fixedpoint.Zero()
	if p.seeded {
		seeded = fixedpoint.One()
	}
	return Snapshot{RNGState: p.rng.State(), Memo: map[string]fixedpoint.FixedDecimal{"seeded": seeded}}
}

func (p *InitialLPShortPolicy) RestoreState(s Snapshot) error {
	p.rng.SetState(s.RNGState)
	p.seeded = s.Memo["seeded"].IsPositive()
	return nil
}

func (p *InitialLPShortPolicy) Action(view market.View, w *wallet.Wallet) ([]market.Action, error) {
	if p.seeded {
		return nil, nil
	}
	p.seeded = true

	var actions []market.Action
	lpAmount := p.Config.TargetLiquidity.Min(w.Base)
	if lpAmount.IsPositive() {
		actions = append(actions, market.Action{Type: market.AddLiquidity, AgentID: p.ID, TradeAmount: lpAmount})
	}
	remaining := w.Base.Sub(lpAmount)
	shortAmount := p.Config.ShortAmount.Min(remaining)
	if shortAmount.GreaterThanOrEqual(view.MinimumTransactionAmount) {
		actions = append(actions, market.Action{Type: market.OpenShort, AgentID: p.ID, TradeAmount: shortAmount})
	}
	return actions, nil
}
