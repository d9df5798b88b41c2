package agent

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// RandomPolicy flips a biased coin each block and, on a hit, picks
// uniformly among the candidate trades currently permissible for the
// agent's wallet (one per opening action type, one CLOSE per open long or
// short position, one REMOVE_LIQUIDITY) and a uniform amount in
// [min_trade, max_trade] (spec §4.5).
type RandomPolicy struct {
	ID     string
	Config Config
	rng    *RNG
}

// NewRandomPolicy constructs a RandomPolicy seeded from seed.
func NewRandomPolicy(id string, cfg Config, seed uint64) *RandomPolicy {
	return &RandomPolicy{ID: id, Config: cfg, rng: NewRNG(seed)}
}

func (p *RandomPolicy) Describe() string { return "RandomPolicy(" + p.ID + ")" }

func (p *RandomPolicy) SnapshotState() Snapshot {
	return Snapshot{RNGState: p.rng.State()}
}

func (p *RandomPolicy) RestoreState(s Snapshot) error {
	p.rng.SetState(s.RNGState)
	return nil
}

func (p *RandomPolicy) Action(view market.View, w *wallet.Wallet) ([]market.Action, error) {
	if p.rng.Float64() >= p.Config.TradeChance.Float64() {
		return nil, nil
	}

	type candidate struct {
		kind     market.ActionType
		mintTime fixedpoint.FixedDecimal
		maxAmt   fixedpoint.FixedDecimal
	}
	var candidates []candidate
	if w.Base.IsPositive() {
		candidates = append(candidates, candidate{kind: market.OpenLong, maxAmt: w.Base})
		candidates = append(candidates, candidate{kind: market.OpenShort, maxAmt: w.Base})
		candidates = append(candidates, candidate{kind: market.AddLiquidity, maxAmt: w.Base})
	}
	for _, l := range w.Longs() {
		candidates = append(candidates, candidate{kind: market.CloseLong, mintTime: l.MintTime, maxAmt: l.Balance})
	}
	for _, s := range w.Shorts() {
		candidates = append(candidates, candidate{kind: market.CloseShort, mintTime: s.MintTime, maxAmt: s.Balance})
	}
	if w.LPBalance.IsPositive() {
		candidates = append(candidates, candidate{kind: market.RemoveLiquidity, maxAmt: w.LPBalance})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	choice := candidates[p.rng.Intn(len(candidates))]
	hi := p.Config.MaxTradeAmount.Min(choice.maxAmt)
	amount := uniformAmount(p.rng, p.Config.MinTradeAmount.Min(hi), hi)
	if !amount.IsPositive() {
		return nil, nil
	}

	return []market.Action{{
		Type:        choice.kind,
		AgentID:     p.ID,
		TradeAmount: amount,
		MintTime:    choice.mintTime,
	}}, nil
}
