// Package market implements the AMM state machine spec §3/§4.3 describes:
// a reserve ledger that accepts the six MarketAction variants, enforces
// the buffer invariants, and settles the resulting balances into a
// pkg/wallet.Wallet. It depends on pkg/pricing for every curve
// calculation and on pkg/wallet for position accounting, but never on
// pkg/agent or pkg/simulator, which sit above it.
package market

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
	"github.com/johnayoung/go-fixedrate-amm/pkg/wallet"
)

// Market owns the reserve State, the pricing Model that interprets it,
// and the pool-wide configuration spec §3/§6 hold alongside it.
type Market struct {
	State    State
	Duration PositionDuration
	Model    pricing.Model

	MinimumShareReserves     fixedpoint.FixedDecimal
	MinimumTransactionAmount fixedpoint.FixedDecimal
	BlocksPerDay             fixedpoint.FixedDecimal
}

// New initializes a Market's reserves from a target liquidity and APR via
// pricing.InitReserves. The founding liquidity is recorded only as the
// pool's lp_total_supply: no wallet is credited with it, and no
// ADD_LIQUIDITY action is applied.
func New(model pricing.Model, duration PositionDuration, targetLiquidity, targetAPR, sharePrice, initSharePrice, variableAPR, minShareReserves, minTxAmount, blocksPerDay fixedpoint.FixedDecimal) (*Market, error) {
	reserves, err := pricing.InitReserves(model, targetLiquidity, targetAPR, duration.NormalizedDays, sharePrice, initSharePrice)
	if err != nil {
		return nil, err
	}
	return &Market{
		State: State{
			ShareReserves:  reserves.ShareReserves,
			BondReserves:   reserves.BondReserves,
			LPTotalSupply:  reserves.LPTotalSupply,
			SharePrice:     reserves.SharePrice,
			InitSharePrice: reserves.InitSharePrice,
			VariableAPR:    variableAPR,
			BlockTime:      fixedpoint.Zero(),
		},
		Duration:                 duration,
		Model:                    model,
		MinimumShareReserves:     minShareReserves,
		MinimumTransactionAmount: minTxAmount,
		BlocksPerDay:             blocksPerDay,
	}, nil
}

func (m *Market) reserves() pricing.Reserves {
	return pricing.Reserves{
		ShareReserves:  m.State.ShareReserves,
		BondReserves:   m.State.BondReserves,
		LPTotalSupply:  m.State.LPTotalSupply,
		SharePrice:     m.State.SharePrice,
		InitSharePrice: m.State.InitSharePrice,
	}
}

// fullTermTime is the stretched exponent used for every OPEN action,
// since opens always trade against a fresh position (mint_time == now):
// rawFraction = 1, so t = 1/tau.
func (m *Market) fullTermTime() (fixedpoint.FixedDecimal, error) {
	return fixedpoint.One().Div(m.Duration.TimeStretch)
}

// timeRemaining returns the raw fraction of the term still outstanding
// for a position opened at mintTime (1 at open, 0 at maturity) and the
// tau-stretched exponent the curve functions expect for that same
// instant. Both are needed because the fee model (spec §4.2's note on
// flat_fee) splits a close into a curve portion, scaled by the raw
// fraction, and a flat (matured) portion, scaled by its complement.
func (m *Market) timeRemaining(mintTime fixedpoint.FixedDecimal) (rawFraction, stretched fixedpoint.FixedDecimal, err error) {
	elapsed := m.State.BlockTime.Sub(mintTime)
	remaining := m.Duration.NormalizedDays.Sub(elapsed)
	if remaining.IsNegative() {
		remaining = fixedpoint.Zero()
	}
	rawFraction, err = remaining.Div(m.Duration.NormalizedDays)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	if rawFraction.GreaterThan(fixedpoint.One()) {
		rawFraction = fixedpoint.One()
	}
	stretched, err = rawFraction.Div(m.Duration.TimeStretch)
	if err != nil {
		return fixedpoint.FixedDecimal{}, fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return rawFraction, stretched, nil
}

// SpotPrice returns the pool's current spot price at full freshness
// (spec §4.2), the figure policies and the trade log read as the
// market's headline price.
func (m *Market) SpotPrice() (fixedpoint.FixedDecimal, error) {
	t, err := m.fullTermTime()
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	return pricing.CalcSpotPrice(m.Model, m.reserves(), t)
}

// FixedAPR returns the pool's currently implied fixed APR.
func (m *Market) FixedAPR() (fixedpoint.FixedDecimal, error) {
	p, err := m.SpotPrice()
	if err != nil {
		return fixedpoint.FixedDecimal{}, err
	}
	return pricing.CalcAPRFromSpotPrice(p, m.Duration.NormalizedDays)
}

// View returns a read-only snapshot for policies (spec §6's MarketView).
func (m *Market) View() (View, error) {
	spot, err := m.SpotPrice()
	if err != nil {
		return View{}, err
	}
	apr, err := pricing.CalcAPRFromSpotPrice(spot, m.Duration.NormalizedDays)
	if err != nil {
		return View{}, err
	}
	return View{
		ShareReserves:            m.State.ShareReserves,
		BondReserves:             m.State.BondReserves,
		LPTotalSupply:            m.State.LPTotalSupply,
		SharePrice:               m.State.SharePrice,
		InitSharePrice:           m.State.InitSharePrice,
		SpotPrice:                spot,
		FixedAPR:                 apr,
		VariableAPR:              m.State.VariableAPR,
		BlockTime:                m.State.BlockTime,
		PositionDuration:         m.Duration,
		MinimumShareReserves:     m.MinimumShareReserves,
		MinimumTransactionAmount: m.MinimumTransactionAmount,
		Variant:                  m.Model.Variant,
		FeeConfig:                m.Model.Fees,
	}, nil
}

// checkBuffers enforces spec §3's solvency invariants: z*c >= share_buffer
// and y >= bond_buffer. It never mutates state; callers check it against
// a trial copy of State before committing a trade.
func checkBuffers(s State) error {
	zc, err := s.ShareReserves.Mul(s.SharePrice)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	if zc.LessThan(s.ShareBuffer) {
		return ammerr.Wrapf(ammerr.KindStateCorrupt, "share reserves %s*%s below share buffer %s", s.ShareReserves, s.SharePrice, s.ShareBuffer)
	}
	if s.BondReserves.LessThan(s.BondBuffer) {
		return ammerr.Wrapf(ammerr.KindStateCorrupt, "bond reserves %s below bond buffer %s", s.BondReserves, s.BondBuffer)
	}
	return nil
}

// Apply dispatches action against the market and settles the result into
// w, atomically: either State and w both change, or neither does (spec
// §3's Apply contract). On success it returns a Receipt the simulator can
// fold into its trade log.
func (m *Market) Apply(action Action, w *wallet.Wallet) (Receipt, error) {
	if action.Type != AddLiquidity && action.Type != RemoveLiquidity {
		if !action.TradeAmount.IsPositive() {
			return Receipt{}, ammerr.Wrap(ammerr.KindInputInvalid, pricing.ErrNonPositiveAmount)
		}
		if action.TradeAmount.LessThan(m.MinimumTransactionAmount) {
			return Receipt{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "trade amount %s below minimum_transaction_amount %s", action.TradeAmount, m.MinimumTransactionAmount)
		}
	}

	spotBefore, err := m.SpotPrice()
	if err != nil {
		return Receipt{}, err
	}
	aprBefore, err := pricing.CalcAPRFromSpotPrice(spotBefore, m.Duration.NormalizedDays)
	if err != nil {
		return Receipt{}, err
	}

	var (
		next   State
		unit   primitives.TokenUnit
		result pricing.TradeResult
	)

	switch action.Type {
	case OpenLong:
		next, result, err = m.applyOpenLong(action, w)
		unit = primitives.Base
	case CloseLong:
		next, result, err = m.applyCloseLong(action, w)
		unit = primitives.PT
	case OpenShort:
		next, result, err = m.applyOpenShort(action, w)
		unit = primitives.PT
	case CloseShort:
		next, result, err = m.applyCloseShort(action, w)
		unit = primitives.PT
	case AddLiquidity:
		next, result, err = m.applyAddLiquidity(action, w)
		unit = primitives.Base
	case RemoveLiquidity:
		next, result, err = m.applyRemoveLiquidity(action, w)
		unit = primitives.LP
	default:
		err = ammerr.Wrapf(ammerr.KindInputInvalid, "unknown action type %q", action.Type)
	}
	if err != nil {
		return Receipt{}, err
	}

	if err := checkBuffers(next); err != nil {
		return Receipt{}, err
	}
	m.State = next

	spotAfter, err := m.SpotPrice()
	if err != nil {
		return Receipt{}, err
	}
	aprAfter, err := pricing.CalcAPRFromSpotPrice(spotAfter, m.Duration.NormalizedDays)
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{
		Action:               action,
		Unit:                 unit,
		SpotPriceBefore:      spotBefore,
		SpotPriceAfter:       spotAfter,
		FixedAPRBefore:       aprBefore,
		FixedAPRAfter:        aprAfter,
		ShareReserves:        m.State.ShareReserves,
		BondReserves:         m.State.BondReserves,
		SharePrice:           m.State.SharePrice,
		WithoutFeeOrSlippage: result.WithoutFeeOrSlippage,
		WithFee:              result.WithFee,
		WithoutFee:           result.WithoutFee,
		Fee:                  result.Fee,
	}, nil
}
