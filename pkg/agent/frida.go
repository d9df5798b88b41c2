package agent

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// FixedShortPolicy ("Frida", spec §4.5) opens a single max-size short
// whenever fixed_apr - variable_apr clears a threshold and it holds no
// open short, and closes any short once it matures.
type FixedShortPolicy struct {
	ID     string
	Config Config
	rng    *RNG
}

func NewFixedShortPolicy(id string, cfg Config, seed uint64) *FixedShortPolicy {
	return &FixedShortPolicy{ID: id, Config: cfg, rng: NewRNG(seed)}
}

func (p *FixedShortPolicy) Describe() string { return "FixedShortPolicy(" + p.ID + ")" }

func (p *FixedShortPolicy) SnapshotState() Snapshot {
	return Snapshot{RNGState: p.rng.State()}
}

func (p *FixedShortPolicy) RestoreState(s Snapshot) error {
	p.rng.SetState(s.RNGState)
	return nil
}

func (p *FixedShortPolicy) Action(view market.View, w *wallet.Wallet) ([]market.Action, error) {
	var actions []market.Action

	for _, s := range w.Shorts() {
		if isMature(view, s.MintTime) {
			actions = append(actions, market.Action{
				Type: market.CloseShort, AgentID: p.ID, MintTime: s.MintTime, TradeAmount: s.Balance,
			})
		}
	}

	if len(w.Shorts()) == 0 && rateGap(view).GreaterThanOrEqual(p.Config.Threshold) {
		model := view.Model()
		tFull, err := fixedpoint.One().Div(view.PositionDuration.TimeStretch)
		if err != nil {
			return actions, nil
		}
		maxShort, err := pricing.CalcMaxShort(model, view.Reserves(), tFull, w.Base, view.MinimumShareReserves)
		if err != nil {
			return actions, nil
		}
		if maxShort.GreaterThanOrEqual(view.MinimumTransactionAmount) {
			actions = append(actions, market.Action{Type: market.OpenShort, AgentID: p.ID, TradeAmount: maxShort})
		}
	}
	return actions, nil
}
