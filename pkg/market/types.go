package market

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
)

// ActionType is one of the six trade surfaces spec §4.3 defines.
type ActionType string

const (
	OpenLong        ActionType = "OPEN_LONG"
	CloseLong       ActionType = "CLOSE_LONG"
	OpenShort       ActionType = "OPEN_SHORT"
	CloseShort      ActionType = "CLOSE_SHORT"
	AddLiquidity    ActionType = "ADD_LIQUIDITY"
	RemoveLiquidity ActionType = "REMOVE_LIQUIDITY"
)

// Action is one request from a policy to the market (spec §3's
// MarketAction). MintTime is required for the two CLOSE actions and
// ignored otherwise.
type Action struct {
	Type              ActionType
	AgentID           string
	TradeAmount       fixedpoint.FixedDecimal
	MintTime          fixedpoint.FixedDecimal
	SlippageTolerance fixedpoint.FixedDecimal
}

// PositionDuration is a pool's fixed term (spec §3): the fraction of a
// year it runs for, and the time-stretch constant derived once at init
// from the target APR.
type PositionDuration struct {
	NormalizedDays fixedpoint.FixedDecimal // term length as a fraction of a year
	TimeStretch    fixedpoint.FixedDecimal // tau
}

// State is the mutable reserve/accounting state a Market owns (spec §3's
// MarketState). It is a flat record, not a class hierarchy, so it can be
// snapshotted and restored verbatim (spec §6).
type State struct {
	ShareReserves  fixedpoint.FixedDecimal
	BondReserves   fixedpoint.FixedDecimal
	ShareBuffer    fixedpoint.FixedDecimal
	BondBuffer     fixedpoint.FixedDecimal
	LPTotalSupply  fixedpoint.FixedDecimal
	SharePrice     fixedpoint.FixedDecimal
	InitSharePrice fixedpoint.FixedDecimal
	VariableAPR    fixedpoint.FixedDecimal

	BlockTime fixedpoint.FixedDecimal // year-fraction clock; also the mint_time of the next open

	LongAverageMaturityTime  fixedpoint.FixedDecimal
	LongAggregateBalance     fixedpoint.FixedDecimal
	ShortAverageMaturityTime fixedpoint.FixedDecimal
	ShortAggregateBalance    fixedpoint.FixedDecimal

	GovernanceFeesAccrued fixedpoint.FixedDecimal
}

// View is the read-only MarketState snapshot spec §6 hands to policies —
// a plain copy, so a policy cannot mutate the market it is advising.
// PoolConfig (the variant tag and fee schedule) is included so a policy
// can reconstruct a pricing.Model and call CalcMaxLong/CalcMaxShort/etc.
// itself, exactly as spec §6 lists "pool_config" among MarketView's
// fields.
type View struct {
	ShareReserves            fixedpoint.FixedDecimal
	BondReserves             fixedpoint.FixedDecimal
	LPTotalSupply            fixedpoint.FixedDecimal
	SharePrice               fixedpoint.FixedDecimal
	InitSharePrice           fixedpoint.FixedDecimal
	SpotPrice                fixedpoint.FixedDecimal
	FixedAPR                 fixedpoint.FixedDecimal
	VariableAPR              fixedpoint.FixedDecimal
	BlockTime                fixedpoint.FixedDecimal
	PositionDuration         PositionDuration
	MinimumShareReserves     fixedpoint.FixedDecimal
	MinimumTransactionAmount fixedpoint.FixedDecimal
	Variant                  pricing.Variant
	FeeConfig                pricing.FeeConfig
}

// Reserves reconstructs the pricing.Reserves snapshot a View describes,
// so agent policies can call pricing functions directly without pkg/agent
// depending on pkg/market for anything beyond this type.
func (v View) Reserves() pricing.Reserves {
	return pricing.Reserves{
		ShareReserves:  v.ShareReserves,
		BondReserves:   v.BondReserves,
		LPTotalSupply:  v.LPTotalSupply,
		SharePrice:     v.SharePrice,
		InitSharePrice: v.InitSharePrice,
	}
}

// Model reconstructs the pricing.Model a View was computed under.
func (v View) Model() pricing.Model {
	return pricing.Model{Variant: v.Variant, Fees: v.FeeConfig}
}

// Receipt is the per-trade record spec §6's SimulationState row is built
// from: everything a successful Apply computed, in the units the trade
// log wants.
type Receipt struct {
	Action               Action
	Unit                 primitives.TokenUnit
	SpotPriceBefore      fixedpoint.FixedDecimal
	SpotPriceAfter       fixedpoint.FixedDecimal
	FixedAPRBefore       fixedpoint.FixedDecimal
	FixedAPRAfter        fixedpoint.FixedDecimal
	ShareReserves        fixedpoint.FixedDecimal
	BondReserves         fixedpoint.FixedDecimal
	SharePrice           fixedpoint.FixedDecimal
	WithoutFeeOrSlippage fixedpoint.FixedDecimal
	WithFee              fixedpoint.FixedDecimal
	WithoutFee           fixedpoint.FixedDecimal
	Fee                  fixedpoint.FixedDecimal
}
