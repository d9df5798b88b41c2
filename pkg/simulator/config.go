package simulator

import (
	"github.com/johnayoung/go-fixedrate-amm/pkg/agent"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/pricing"
)

// AgentSpec is one entry of config.agents[] (spec §6): a named policy with
// its starting budget.
type AgentSpec struct {
	ID     string
	Policy agent.Policy
	Budget fixedpoint.FixedDecimal
}

// Config bundles every option run_simulation(config) recognizes (spec §6's
// table). All durations are expressed as whole days; position_duration_days
// is converted to a year-fraction internally against the conventional
// 365-day year the rest of the core uses, and num_trading_days is the
// number of simulated days the run steps through.
type Config struct {
	NumTradingDays       int
	NumBlocksPerDay      int
	PositionDurationDays int

	PricingModel  pricing.Variant
	CurveFee      fixedpoint.FixedDecimal
	FlatFee       fixedpoint.FixedDecimal
	GovernanceFee fixedpoint.FixedDecimal
	FloorFee      fixedpoint.FixedDecimal

	TargetFixedAPR  fixedpoint.FixedDecimal
	TargetLiquidity fixedpoint.FixedDecimal
	InitSharePrice  fixedpoint.FixedDecimal

	// VariableAPR is the per-day vault-rate series; must have length >=
	// NumTradingDays. VariableAPR[0] is in effect from block 0 of day 0.
	VariableAPR []fixedpoint.FixedDecimal

	MinimumShareReserves     fixedpoint.FixedDecimal
	MinimumTransactionAmount fixedpoint.FixedDecimal

	ShuffleUsers bool
	RandomSeed   uint64

	Agents []AgentSpec

	// HaltOnErrors stops the run on the first trade rejection instead of
	// logging it and continuing (spec §7).
	HaltOnErrors bool
}

// DefaultConfig returns a modest one-year configuration with seven blocks
// per day, init_share_price = 1 and no fees, matching the "identity" corner every
// property test in spec §8 starts from before layering fees or variant
// differences back in.
func DefaultConfig() Config {
	return Config{
		NumTradingDays:           365,
		NumBlocksPerDay:          7,
		PositionDurationDays:     365,
		PricingModel:             pricing.VariantHyperdrive,
		CurveFee:                 fixedpoint.Zero(),
		FlatFee:                  fixedpoint.Zero(),
		GovernanceFee:            fixedpoint.Zero(),
		FloorFee:                 fixedpoint.Zero(),
		TargetFixedAPR:           fixedpoint.MustFromString("0.05"),
		TargetLiquidity:          fixedpoint.FromInt64(1_000_000),
		InitSharePrice:           fixedpoint.One(),
		MinimumShareReserves:     fixedpoint.FromInt64(10),
		MinimumTransactionAmount: fixedpoint.MustFromString("0.01"),
		ShuffleUsers:             true,
		RandomSeed:               1,
	}
}
