// Package wallet implements the per-agent ledger spec §4.4 describes: one
// fungible base balance, one LP balance, and maps of Long/Short positions
// keyed by mint_time. It is a leaf package — it depends only on
// pkg/fixedpoint, pkg/primitives, and pkg/ammerr — so pkg/market can own a
// *Wallet without creating an import cycle back from wallet to market.
package wallet

import (
	"sort"

	"github.com/johnayoung/go-fixedrate-amm/pkg/ammerr"
	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
)

// Long is an open long position: bonds held, keyed by the mint_time they
// were opened at (spec §3).
type Long struct {
	Balance        fixedpoint.FixedDecimal
	MintTime       fixedpoint.FixedDecimal
	OpenSharePrice fixedpoint.FixedDecimal
}

// Short is an open short position: bonds owed, plus the margin backing the
// worst-case loss and the share price at open used to settle accrued
// interest on close (spec §3).
type Short struct {
	Balance        fixedpoint.FixedDecimal
	MintTime       fixedpoint.FixedDecimal
	OpenSharePrice fixedpoint.FixedDecimal
	Margin         fixedpoint.FixedDecimal
}

// Wallet is one agent's balances. Longs/shorts are unexported maps keyed by
// the string form of mint_time (FixedDecimal is not map-key safe on its
// own, and every mint_time here has already passed through fixedpoint's
// normalize, so its String() is a stable, collision-free key).
type Wallet struct {
	Address   string
	Base      fixedpoint.FixedDecimal
	LPBalance fixedpoint.FixedDecimal
	FeesPaid  fixedpoint.FixedDecimal

	longs  map[string]Long
	shorts map[string]Short
}

// New constructs a Wallet with the given starting base balance and no open
// positions.
func New(address string, initialBase fixedpoint.FixedDecimal) *Wallet {
	return &Wallet{
		Address: address,
		Base:    initialBase,
		longs:   make(map[string]Long),
		shorts:  make(map[string]Short),
	}
}

func key(mintTime fixedpoint.FixedDecimal) string { return mintTime.String() }

// Long returns the open long at mintTime, if any.
func (w *Wallet) Long(mintTime fixedpoint.FixedDecimal) (Long, bool) {
	l, ok := w.longs[key(mintTime)]
	return l, ok
}

// Short returns the open short at mintTime, if any.
func (w *Wallet) Short(mintTime fixedpoint.FixedDecimal) (Short, bool) {
	s, ok := w.shorts[key(mintTime)]
	return s, ok
}

// Longs returns every open long, sorted by mint_time ascending for
// deterministic iteration.
func (w *Wallet) Longs() []Long {
	out := make([]Long, 0, len(w.longs))
	for _, l := range w.longs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MintTime.LessThan(out[j].MintTime) })
	return out
}

// Shorts returns every open short, sorted by mint_time ascending for
// deterministic iteration.
func (w *Wallet) Shorts() []Short {
	out := make([]Short, 0, len(w.shorts))
	for _, s := range w.shorts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MintTime.LessThan(out[j].MintTime) })
	return out
}

// ApplyBase adds delta (which may be negative) to the base balance. It
// fails with StateCorrupt rather than letting the balance go
// negative — Market is expected to have already checked this, so a
// failure here indicates a caller bug, not a normal rejection path.
func (w *Wallet) ApplyBase(delta fixedpoint.FixedDecimal) error {
	next := w.Base.Add(delta)
	if next.IsNegative() {
		return ammerr.Wrapf(ammerr.KindStateCorrupt, "wallet %s base would go negative: %s + %s", w.Address, w.Base, delta)
	}
	w.Base = next
	return nil
}

// ApplyFeesPaid accumulates a fee charged to this wallet into its running
// total, for analytics only — it does not move base.
func (w *Wallet) ApplyFeesPaid(fee fixedpoint.FixedDecimal) {
	w.FeesPaid = w.FeesPaid.Add(fee)
}

// ApplyLPDelta adds delta (which may be negative) to the LP balance.
func (w *Wallet) ApplyLPDelta(delta fixedpoint.FixedDecimal) error {
	next := w.LPBalance.Add(delta)
	if next.IsNegative() {
		return ammerr.Wrapf(ammerr.KindStateCorrupt, "wallet %s lp_balance would go negative: %s + %s", w.Address, w.LPBalance, delta)
	}
	w.LPBalance = next
	return nil
}

// OpenLong credits balance bonds to the long at mintTime, creating it if
// absent. A second open at the same mint_time (two trades landing in the
// same block) averages open_share_price by balance, per the weighted-
// average update spec §4.3 defines once for this exact situation.
func (w *Wallet) OpenLong(mintTime, balance, openSharePrice fixedpoint.FixedDecimal) error {
	k := key(mintTime)
	existing, ok := w.longs[k]
	if !ok {
		w.longs[k] = Long{Balance: balance, MintTime: mintTime, OpenSharePrice: openSharePrice}
		return nil
	}
	avg, err := primitives.WeightedAverageUpdate(existing.Balance, existing.OpenSharePrice, balance, openSharePrice, true)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	existing.Balance = existing.Balance.Add(balance)
	existing.OpenSharePrice = avg
	w.longs[k] = existing
	return nil
}

// CloseLong reduces the long at mintTime by amount, pruning the entry if
// its balance reaches zero. Fails with InputInvalid if the position does
// not exist, and with PreconditionFailed if it does not hold enough
// balance.
func (w *Wallet) CloseLong(mintTime, amount fixedpoint.FixedDecimal) error {
	k := key(mintTime)
	existing, ok := w.longs[k]
	if !ok {
		return ammerr.Wrapf(ammerr.KindInputInvalid, "no open long at mint_time %s", mintTime)
	}
	if amount.GreaterThan(existing.Balance) {
		return ammerr.Wrapf(ammerr.KindPreconditionFailed, "close amount %s exceeds long balance %s", amount, existing.Balance)
	}
	remaining := existing.Balance.Sub(amount)
	if remaining.IsZero() {
		delete(w.longs, k)
		return nil
	}
	existing.Balance = remaining
	w.longs[k] = existing
	return nil
}

// OpenShort credits balance bonds owed and margin to the short at
// mintTime, creating it if absent, averaging open_share_price by balance
// on a same-block re-open exactly as OpenLong does.
func (w *Wallet) OpenShort(mintTime, balance, openSharePrice, margin fixedpoint.FixedDecimal) error {
	k := key(mintTime)
	existing, ok := w.shorts[k]
	if !ok {
		w.shorts[k] = Short{Balance: balance, MintTime: mintTime, OpenSharePrice: openSharePrice, Margin: margin}
		return nil
	}
	avg, err := primitives.WeightedAverageUpdate(existing.Balance, existing.OpenSharePrice, balance, openSharePrice, true)
	if err != nil {
		return ammerr.Wrap(ammerr.KindMathError, err)
	}
	existing.Balance = existing.Balance.Add(balance)
	existing.OpenSharePrice = avg
	existing.Margin = existing.Margin.Add(margin)
	w.shorts[k] = existing
	return nil
}

// ReduceShort reduces the short at mintTime by amount and returns the
// proportional slice of its margin (amount/balance * margin), pruning the
// entry if its balance reaches zero. The caller (pkg/market) combines the
// returned margin with its own accrued-interest and cost calculation
// before crediting the wallet's base balance.
func (w *Wallet) ReduceShort(mintTime, amount fixedpoint.FixedDecimal) (marginPortion fixedpoint.FixedDecimal, err error) {
	k := key(mintTime)
	existing, ok := w.shorts[k]
	if !ok {
		return fixedpoint.FixedDecimal{}, ammerr.Wrapf(ammerr.KindInputInvalid, "no open short at mint_time %s", mintTime)
	}
	if amount.GreaterThan(existing.Balance) {
		return fixedpoint.FixedDecimal{}, ammerr.Wrapf(ammerr.KindPreconditionFailed, "close amount %s exceeds short balance %s", amount, existing.Balance)
	}
	share, err := amount.Div(existing.Balance)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	marginPortion, err = existing.Margin.Mul(share)
	if err != nil {
		return fixedpoint.FixedDecimal{}, ammerr.Wrap(ammerr.KindMathError, err)
	}
	remaining := existing.Balance.Sub(amount)
	if remaining.IsZero() {
		delete(w.shorts, k)
		return marginPortion, nil
	}
	existing.Balance = remaining
	existing.Margin = existing.Margin.Sub(marginPortion)
	w.shorts[k] = existing
	return marginPortion, nil
}
