package wallet

import "github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"

// Snapshot is the wallet analytics view spec §4.4 calls "a 'state
// snapshot' view for analytics: open counts, total longs/shorts
// mark-to-market, PnL vs. budget". It is grounded on
// original_source/elfpy/agents/wallet.py's get_state, which marks every
// open position to the pool's *current* spot price rather than re-running
// the invariant per position — an approximation this repo keeps
// deliberately, since an exact mark would require knowing each position's
// own remaining time to maturity, which Wallet does not track (Market
// does, via mint_time).
type Snapshot struct {
	Address      string
	Base         fixedpoint.FixedDecimal
	LPBalance    fixedpoint.FixedDecimal
	NumLongs     int
	NumShorts    int
	LongsValue   fixedpoint.FixedDecimal
	ShortsEquity fixedpoint.FixedDecimal
	FeesPaid     fixedpoint.FixedDecimal
	TotalValue   fixedpoint.FixedDecimal
	PnL          fixedpoint.FixedDecimal
}

// TakeSnapshot marks every open position to spotPrice and LP holdings to
// sharePrice, and compares the resulting total value against budget.
func (w *Wallet) TakeSnapshot(spotPrice, sharePrice, budget fixedpoint.FixedDecimal) (Snapshot, error) {
	longsValue := fixedpoint.Zero()
	for _, l := range w.Longs() {
		v, err := l.Balance.Mul(spotPrice)
		if err != nil {
			return Snapshot{}, err
		}
		longsValue = longsValue.Add(v)
	}

	shortsEquity := fixedpoint.Zero()
	discount := fixedpoint.One().Sub(spotPrice)
	for _, s := range w.Shorts() {
		gain, err := s.Balance.Mul(discount)
		if err != nil {
			return Snapshot{}, err
		}
		shortsEquity = shortsEquity.Add(s.Margin).Add(gain)
	}

	lpValue, err := w.LPBalance.Mul(sharePrice)
	if err != nil {
		return Snapshot{}, err
	}

	total := w.Base.Add(lpValue).Add(longsValue).Add(shortsEquity)

	return Snapshot{
		Address:      w.Address,
		Base:         w.Base,
		LPBalance:    w.LPBalance,
		NumLongs:     len(w.longs),
		NumShorts:    len(w.shorts),
		LongsValue:   longsValue,
		ShortsEquity: shortsEquity,
		FeesPaid:     w.FeesPaid,
		TotalValue:   total,
		PnL:          total.Sub(budget),
	}, nil
}
