// Package simulator drives the block-by-block event loop spec §5 describes:
// each block, it deterministically shuffles the configured agents, asks
// each one's policy to act against a pre-block market snapshot, applies
// the returned trades in sequence, and advances the market clock. It
// depends on pkg/agent, pkg/market, pkg/pricing, and pkg/wallet, and sits
// at the top of the package graph — nothing else in this module imports it.
package simulator

import (
	"context"
	"fmt"

	"github.com/johnayoung/go-fixedrate-amm/pkg/agent"
	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/market"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// Simulator owns the Market, every agent's Policy and Wallet, and the
// shuffle RNG substream spec §5 assigns it (distinct from each policy's own
// RNG, so shuffling one run's agent order never perturbs another policy's
// draw sequence).
type Simulator struct {
	config  Config
	market  *market.Market
	agents  []AgentSpec
	wallets map[string]*wallet.Wallet
	shuffle *agent.RNG
}

// New constructs a Simulator: it sizes the market's initial reserves from
// config.TargetLiquidity/TargetFixedAPR and allocates one wallet per
// config.Agents entry funded at its configured budget.
func New(config Config) (*Simulator, error) {
	if config.NumTradingDays < 1 {
		return nil, ammerr.Wrapf(ammerr.KindInputInvalid, "num_trading_days must be >= 1, got %d", config.NumTradingDays)
	}
	if config.NumBlocksPerDay < 1 {
		return nil, ammerr.Wrapf(ammerr.KindInputInvalid, "num_blocks_per_day must be >= 1, got %d", config.NumBlocksPerDay)
	}
	if len(config.VariableAPR) < config.NumTradingDays {
		return nil, ammerr.Wrapf(ammerr.KindInputInvalid, "variable_apr series length %d shorter than num_trading_days %d", len(config.VariableAPR), config.NumTradingDays)
	}

	fees := pricing.FeeConfig{
		CurveFee:      config.CurveFee,
		FlatFee:       config.FlatFee,
		GovernanceFee: config.GovernanceFee,
		FloorFee:      config.FloorFee,
	}
	var model pricing.Model
	switch config.PricingModel {
	case pricing.VariantElement:
		model = pricing.NewElement(fees)
	default:
		model = pricing.NewHyperdrive(fees)
	}

	termYears, err := fixedpoint.FromInt64(int64(config.PositionDurationDays)).Div(fixedpoint.FromInt64(365))
	if err != nil {
		return nil, ammerr.Wrap(ammerr.KindMathError, err)
	}
	tau, err := pricing.CalcTimeStretch(config.TargetFixedAPR)
	if err != nil {
		return nil, err
	}
	duration := market.PositionDuration{NormalizedDays: termYears, TimeStretch: tau}

	m, err := market.New(model, duration,
		config.TargetLiquidity, config.TargetFixedAPR,
		config.InitSharePrice, config.InitSharePrice, config.VariableAPR[0],
		config.MinimumShareReserves, config.MinimumTransactionAmount,
		fixedpoint.FromInt64(int64(config.NumBlocksPerDay)),
	)
	if err != nil {
		return nil, err
	}

	wallets := make(map[string]*wallet.Wallet, len(config.Agents))
	for _, a := range config.Agents {
		wallets[a.ID] = wallet.New(a.ID, a.Budget)
	}

	return &Simulator{
		config:  config,
		market:  m,
		agents:  config.Agents,
		wallets: wallets,
		shuffle: agent.NewRNG(config.RandomSeed),
	}, nil
}

// Run executes the full configured simulation (spec §5's block loop) and
// returns the accumulated trade log.
//
// Execution flow per block:
//  1. Snapshot a pre-block market.View.
//  2. Shuffle the agent order deterministically if config.ShuffleUsers.
//  3. For each agent in that order, call its policy against the pre-block
//     view and its own current wallet, then apply each returned action in
//     sequence — a trade sees earlier trades in the same block, but every
//     policy call in the block sees only the pre-block snapshot.
//  4. Advance the market clock one block.
//
// A rejected trade is recorded and the run continues unless
// config.HaltOnErrors is set, in which case Run returns the error
// immediately.
func (s *Simulator) Run(ctx context.Context) (*SimulationState, error) {
	state := &SimulationState{StartedAt: primitives.Now()}
	defer func() { state.FinishedAt = primitives.Now() }()
	tradeNumber := 0
	blockNumber := 0

	for day := 0; day < s.config.NumTradingDays; day++ {
		s.market.SetVariableAPR(s.config.VariableAPR[day])

		for block := 0; block < s.config.NumBlocksPerDay; block++ {
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			default:
			}

			view, err := s.market.View()
			if err != nil {
				return state, err
			}

			order := s.agentOrder()
			for _, a := range order {
				w := s.wallets[a.ID]
				actions, err := a.Policy.Action(view, w)
				if err != nil {
					return state, fmt.Errorf("policy %s failed: %w", a.Policy.Describe(), err)
				}

				for _, action := range actions {
					maxLong, maxShort := s.tradeBounds(view, w, action.Type)

					receipt, err := s.market.Apply(action, w)
					if err != nil {
						state.Rejections = append(state.Rejections, RejectionRecord{
							BlockNumber: blockNumber,
							Day:         day,
							AgentID:     action.AgentID,
							ActionType:  action.Type,
							Amount:      action.TradeAmount,
							Reason:      err.Error(),
							RecordedAt:  primitives.Now(),
						})
						if s.config.HaltOnErrors {
							return state, err
						}
						continue
					}

					tradeNumber++
					state.Trades = append(state.Trades, TradeRow{
						BlockNumber:          blockNumber,
						Day:                  day,
						TradeNumber:          tradeNumber,
						AgentID:              action.AgentID,
						ActionType:           action.Type,
						Unit:                 receipt.Unit,
						Amount:               action.TradeAmount,
						MintTime:             action.MintTime,
						RecordedAt:           primitives.Now(),
						SpotPrice:            receipt.SpotPriceAfter,
						FixedAPR:             receipt.FixedAPRAfter,
						VariableAPR:          s.config.VariableAPR[day],
						ShareReserves:        receipt.ShareReserves,
						BondReserves:         receipt.BondReserves,
						SharePrice:           receipt.SharePrice,
						FeesPaid:             w.FeesPaid,
						WithoutFeeOrSlippage: receipt.WithoutFeeOrSlippage,
						WithFee:              receipt.WithFee,
						WithoutFee:           receipt.WithoutFee,
						Fee:                  receipt.Fee,
						MaxLong:              maxLong,
						MaxShort:             maxShort,
					})
				}
			}

			if err := s.market.AdvanceBlock(); err != nil {
				return state, err
			}
			blockNumber++
		}
	}

	finalView, err := s.market.View()
	if err != nil {
		return state, err
	}
	state.FinalView = finalView
	return state, nil
}

// agentOrder returns this block's agent processing order: a Fisher-Yates
// shuffle drawn from the simulator's own RNG substream when ShuffleUsers is
// set, otherwise configuration order (spec §5 step 1).
func (s *Simulator) agentOrder() []AgentSpec {
	order := make([]AgentSpec, len(s.agents))
	copy(order, s.agents)
	if !s.config.ShuffleUsers {
		return order
	}
	for i := len(order) - 1; i > 0; i-- {
		j := s.shuffle.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// tradeBounds reports the max_long/max_short figures in force for action
// at the moment it was proposed, for the trade log's supplemental columns.
// Only the bound relevant to the action's direction is computed; the other
// is returned as zero.
func (s *Simulator) tradeBounds(view market.View, w *wallet.Wallet, t market.ActionType) (maxLong, maxShort fixedpoint.FixedDecimal) {
	model := view.Model()
	tFull, err := fixedpoint.One().Div(view.PositionDuration.TimeStretch)
	if err != nil {
		return fixedpoint.Zero(), fixedpoint.Zero()
	}
	switch t {
	case market.OpenLong:
		if v, err := pricing.CalcMaxLong(model, view.Reserves(), tFull, w.Base, view.MinimumShareReserves); err == nil {
			maxLong = v
		}
	case market.OpenShort:
		if v, err := pricing.CalcMaxShort(model, view.Reserves(), tFull, w.Base, view.MinimumShareReserves); err == nil {
			maxShort = v
		}
	}
	return maxLong, maxShort
}
