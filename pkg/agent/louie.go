package agent

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// LongArbitragePolicy ("Louie", spec §4.5) opens a single long sized to
// push fixed_apr toward variable_apr whenever the gap clears a threshold
// and it holds no open long, and closes any long once it matures.
type LongArbitragePolicy struct {
	ID     string
	Config Config
	rng    *RNG
}

func NewLongArbitragePolicy(id string, cfg Config, seed uint64) *LongArbitragePolicy {
	return &LongArbitragePolicy{ID: id, Config: cfg, rng: NewRNG(seed)}
}

func (p *LongArbitragePolicy) Describe() string { return "LongArbitragePolicy(" + p.ID + ")" }

func (p *LongArbitragePolicy) SnapshotState() Snapshot {
	return Snapshot{RNGState: p.rng.State()}
}

func (p *LongArbitragePolicy) RestoreState(s Snapshot) error {
	p.rng.SetState(s.RNGState)
	return nil
}

func (p *LongArbitragePolicy) Action(view market.View, w *wallet.Wallet) ([]market.Action, error) {
	var actions []market.Action

	for _, l := range w.Longs() {
		if isMature(view, l.MintTime) {
			actions = append(actions, market.Action{
				Type: market.CloseLong, AgentID: p.ID, MintTime: l.MintTime, TradeAmount: l.Balance,
			})
		}
	}

	gap := rateGap(view)
	if len(w.Longs()) == 0 && gap.LessThanOrEqual(p.Config.Threshold) {
		amount, err := p.targetAmount(view)
		if err != nil || !amount.IsPositive() {
			return actions, nil
		}
		model := view.Model()
		tFull, err := fixedpoint.One().Div(view.PositionDuration.TimeStretch)
		if err != nil {
			return actions, nil
		}
		maxLong, err := pricing.CalcMaxLong(model, view.Reserves(), tFull, w.Base, view.MinimumShareReserves)
		if err != nil {
			return actions, nil
		}
		amount = amount.Min(maxLong)
		if amount.GreaterThanOrEqual(view.MinimumTransactionAmount) {
			actions = append(actions, market.Action{Type: market.OpenLong, AgentID: p.ID, TradeAmount: amount})
		}
	}
	return actions, nil
}

// targetAmount computes the base amount that would move the pool's spot
// price to the one implied by variable_apr, then halves it to compensate
// for the share-reserve movement the trade itself causes during execution
// (spec §4.5: "halves it to compensate for the delta in share reserves
// during execution").
func (p *LongArbitragePolicy) targetAmount(view market.View) (fixedpoint.FixedDecimal, error) {
	model := view.Model()
	tFull, err := fixedpoint.One().Div(view.PositionDuration.TimeStretch)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	targetPrice, err := pricing.CalcSpotPriceFromAPR(view.VariableAPR, view.PositionDuration.NormalizedDays)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	zTarget, err := pricing.SolveShareReservesForTargetPrice(model, view.Reserves(), targetPrice, tFull)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	dz := zTarget.Sub(view.ShareReserves)
	if !dz.IsPositive() {
		return fixedpoint.Zero(), nil
	}
	baseAmount, err := dz.Mul(view.SharePrice)
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	half, err := baseAmount.Div(fixedpoint.FromInt64(2))
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	return half, nil
}
