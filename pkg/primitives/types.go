// Package primitives provides the small, shared value types layered on top
// of pkg/fixedpoint: the unit-tagged Quantity used throughout the pricing
// and market packages, and a wall-clock Time/Duration pair used for
// simulation run metadata (as opposed to the domain clock, which is a
// FixedDecimal year-fraction — see pkg/market).
package primitives

import "github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"

// TokenUnit tags a Quantity with the asset it denominates, so pricing and
// market code can assert "in.Unit == Base" instead of tracking units by
// convention.
type TokenUnit string

const (
	// Base is the underlying asset (e.g. the vault's deposit token).
	Base TokenUnit = "base"
	// PT is the principal token (bond) representing a fixed future base
	// claim.
	PT TokenUnit = "pt"
	// Shares is base wrapped at the pool's current share price.
	Shares TokenUnit = "shares"
	// LP is the fungible liquidity-provider token.
	LP TokenUnit = "lp"
)

// Quantity is an amount paired with the unit it is denominated in. The
// unit is fixed at construction and never changes; converting between
// units (e.g. base <-> shares via share_price) is the pricing model's job,
// not this type's.
type Quantity struct {
	Amount fixedpoint.FixedDecimal
	Unit   TokenUnit
}

// NewQuantity constructs a Quantity. It does not validate sign; callers
// that require a positive amount (most trade entry points do) check that
// themselves so they can return a spec-specific error kind.
func NewQuantity(amount fixedpoint.FixedDecimal, unit TokenUnit) Quantity {
	return Quantity{Amount: amount, Unit: unit}
}
