package pricing

import (
	"testing"

	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
	"github.com/johnayoung/go-fixedrate-amm/pkg/primitives"
)

func testReserves(t *testing.T) Reserves {
	t.Helper()
	m := NewHyperdrive(FeeConfig{})
	r, err := InitReserves(m,
		fixedpoint.FromInt64(1_000_000),
		fixedpoint.MustFromString("0.05"),
		fixedpoint.One(),
		fixedpoint.One(),
		fixedpoint.One(),
	)
	if err != nil {
		t.Fatalf("InitReserves failed: %v", err)
	}
	return r
}

func TestCalcSpotPriceMatchesTargetAPR(t *testing.T) {
	m := NewHyperdrive(FeeConfig{})
	r := testReserves(t)
	p, err := CalcSpotPrice(m, r, fixedpoint.One())
	if err != nil {
		t.Fatalf("CalcSpotPrice failed: %v", err)
	}
	apr, err := CalcAPRFromSpotPrice(p, fixedpoint.One())
	if err != nil {
		t.Fatalf("CalcAPRFromSpotPrice failed: %v", err)
	}
	want := fixedpoint.MustFromString("0.05")
	diff := apr.Sub(want).Abs()
	tolerance := fixedpoint.MustFromString("0.00001")
	if diff.GreaterThan(tolerance) {
		t.Errorf("reserves initialized for 5%% APR priced to %s, want close to %s", apr.String(), want.String())
	}
}

func TestCalcOutGivenInPreservesInvariant(t *testing.T) {
	m := NewHyperdrive(FeeConfig{CurveFee: fixedpoint.MustFromString("0.1")})
	r := testReserves(t)
	t1 := fixedpoint.One()

	kBefore, err := invariantConstant(r, oneMinus(t1))
	if err != nil {
		t.Fatalf("invariantConstant failed: %v", err)
	}

	result, err := CalcOutGivenIn(m, primitives.NewQuantity(fixedpoint.FromInt64(1000), primitives.Base), r, t1)
	if err != nil {
		t.Fatalf("CalcOutGivenIn failed: %v", err)
	}

	dz, err := fixedpoint.FromInt64(1000).Div(r.SharePrice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := Reserves{
		ShareReserves:  r.ShareReserves.Add(dz),
		BondReserves:   r.BondReserves.Sub(result.WithoutFee),
		LPTotalSupply:  r.LPTotalSupply,
		SharePrice:     r.SharePrice,
		InitSharePrice: r.InitSharePrice,
	}
	kAfter, err := invariantConstant(after, oneMinus(t1))
	if err != nil {
		t.Fatalf("invariantConstant failed: %v", err)
	}

	diff := kAfter.Sub(kBefore).Abs()
	tolerance := fixedpoint.MustFromString("0.000000000001")
	if diff.GreaterThan(tolerance) {
		t.Errorf("k drifted by %s across a no-fee-basis trade", diff.String())
	}

	if result.Fee.IsNegative() {
		t.Errorf("fee must not be negative, got %s", result.Fee.String())
	}
	if result.WithFee.GreaterThanOrEqual(result.WithoutFee) {
		t.Errorf("fee-adjusted output %s should be less than pre-fee output %s", result.WithFee.String(), result.WithoutFee.String())
	}
}

func TestElementForcesUnitPrices(t *testing.T) {
	m := NewElement(FeeConfig{})
	r := testReserves(t)
	r.SharePrice = fixedpoint.MustFromString("1.3")
	r.InitSharePrice = fixedpoint.MustFromString("1.1")
	p, err := CalcSpotPrice(m, r, fixedpoint.One())
	if err != nil {
		t.Fatalf("CalcSpotPrice failed: %v", err)
	}

	r.SharePrice = fixedpoint.One()
	r.InitSharePrice = fixedpoint.One()
	pUnit, err := CalcSpotPrice(m, r, fixedpoint.One())
	if err != nil {
		t.Fatalf("CalcSpotPrice failed: %v", err)
	}
	if !p.Equal(pUnit) {
		t.Errorf("Element variant should ignore supplied share prices: got %s vs %s", p.String(), pUnit.String())
	}
}

// TestHyperdriveEqualsElementAtUnitSharePrice checks spec §8 property 9:
// with mu = c = 1, Hyperdrive and Element agree on every branch (spot
// price, both trade directions in both units, and both max-trade bounds)
// to within 10⁻¹⁵.
func TestHyperdriveEqualsElementAtUnitSharePrice(t *testing.T) {
	fees := FeeConfig{
		CurveFee:      fixedpoint.MustFromString("0.1"),
		GovernanceFee: fixedpoint.MustFromString("0.1"),
	}
	hyper := NewHyperdrive(fees)
	elem := NewElement(fees)

	r := testReserves(t)
	r.SharePrice = fixedpoint.One()
	r.InitSharePrice = fixedpoint.One()
	tolerance := fixedpoint.MustFromString("0.000000000000001")

	assertClose := func(t *testing.T, label string, hyperVal, elemVal fixedpoint.FixedDecimal) {
		t.Helper()
		diff := hyperVal.Sub(elemVal).Abs()
		if diff.GreaterThan(tolerance) {
			t.Errorf("%s diverged between variants: hyperdrive=%s element=%s diff=%s", label, hyperVal.String(), elemVal.String(), diff.String())
		}
	}

	t.Run("CalcSpotPrice", func(t *testing.T) {
		hp, err := CalcSpotPrice(hyper, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcSpotPrice (hyperdrive) failed: %v", err)
		}
		ep, err := CalcSpotPrice(elem, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcSpotPrice (element) failed: %v", err)
		}
		assertClose(t, "CalcSpotPrice", hp, ep)
	})

	t.Run("CalcOutGivenIn base-in", func(t *testing.T) {
		in := primitives.NewQuantity(fixedpoint.FromInt64(1000), primitives.Base)
		hr, err := CalcOutGivenIn(hyper, in, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcOutGivenIn (hyperdrive) failed: %v", err)
		}
		er, err := CalcOutGivenIn(elem, in, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcOutGivenIn (element) failed: %v", err)
		}
		assertClose(t, "CalcOutGivenIn.WithFee", hr.WithFee, er.WithFee)
		assertClose(t, "CalcOutGivenIn.WithoutFee", hr.WithoutFee, er.WithoutFee)
	})

	t.Run("CalcOutGivenIn pt-in", func(t *testing.T) {
		in := primitives.NewQuantity(fixedpoint.FromInt64(1000), primitives.PT)
		hr, err := CalcOutGivenIn(hyper, in, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcOutGivenIn (hyperdrive) failed: %v", err)
		}
		er, err := CalcOutGivenIn(elem, in, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcOutGivenIn (element) failed: %v", err)
		}
		assertClose(t, "CalcOutGivenIn.WithFee", hr.WithFee, er.WithFee)
		assertClose(t, "CalcOutGivenIn.WithoutFee", hr.WithoutFee, er.WithoutFee)
	})

	t.Run("CalcInGivenOut base-out", func(t *testing.T) {
		out := primitives.NewQuantity(fixedpoint.FromInt64(1000), primitives.Base)
		hr, err := CalcInGivenOut(hyper, out, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcInGivenOut (hyperdrive) failed: %v", err)
		}
		er, err := CalcInGivenOut(elem, out, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcInGivenOut (element) failed: %v", err)
		}
		assertClose(t, "CalcInGivenOut.WithFee", hr.WithFee, er.WithFee)
		assertClose(t, "CalcInGivenOut.WithoutFee", hr.WithoutFee, er.WithoutFee)
	})

	t.Run("CalcInGivenOut pt-out", func(t *testing.T) {
		out := primitives.NewQuantity(fixedpoint.FromInt64(1000), primitives.PT)
		hr, err := CalcInGivenOut(hyper, out, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcInGivenOut (hyperdrive) failed: %v", err)
		}
		er, err := CalcInGivenOut(elem, out, r, fixedpoint.One())
		if err != nil {
			t.Fatalf("CalcInGivenOut (element) failed: %v", err)
		}
		assertClose(t, "CalcInGivenOut.WithFee", hr.WithFee, er.WithFee)
		assertClose(t, "CalcInGivenOut.WithoutFee", hr.WithoutFee, er.WithoutFee)
	})

	t.Run("CalcMaxLong", func(t *testing.T) {
		budget := fixedpoint.FromInt64(50_000)
		hm, err := CalcMaxLong(hyper, r, fixedpoint.One(), budget, fixedpoint.Zero())
		if err != nil {
			t.Fatalf("CalcMaxLong (hyperdrive) failed: %v", err)
		}
		em, err := CalcMaxLong(elem, r, fixedpoint.One(), budget, fixedpoint.Zero())
		if err != nil {
			t.Fatalf("CalcMaxLong (element) failed: %v", err)
		}
		assertClose(t, "CalcMaxLong", hm, em)
	})

	t.Run("CalcMaxShort", func(t *testing.T) {
		budget := fixedpoint.FromInt64(5_000)
		hm, err := CalcMaxShort(hyper, r, fixedpoint.One(), budget, fixedpoint.Zero())
		if err != nil {
			t.Fatalf("CalcMaxShort (hyperdrive) failed: %v", err)
		}
		em, err := CalcMaxShort(elem, r, fixedpoint.One(), budget, fixedpoint.Zero())
		if err != nil {
			t.Fatalf("CalcMaxShort (element) failed: %v", err)
		}
		assertClose(t, "CalcMaxShort", hm, em)
	})
}

func TestLPRoundTrip(t *testing.T) {
	r := testReserves(t)
	baseIn := fixedpoint.FromInt64(5000)
	lpOut, dShares, dBonds, err := CalcLPOutGivenBaseIn(r, baseIn)
	if err != nil {
		t.Fatalf("CalcLPOutGivenBaseIn failed: %v", err)
	}
	afterAdd := Reserves{
		ShareReserves:  r.ShareReserves.Add(dShares),
		BondReserves:   r.BondReserves.Add(dBonds),
		LPTotalSupply:  r.LPTotalSupply.Add(lpOut),
		SharePrice:     r.SharePrice,
		InitSharePrice: r.InitSharePrice,
	}

	_, _, baseOut, err := CalcTokensOutGivenLPIn(afterAdd, lpOut)
	if err != nil {
		t.Fatalf("CalcTokensOutGivenLPIn failed: %v", err)
	}

	diff := baseOut.Sub(baseIn).Abs()
	tolerance := fixedpoint.MustFromString("0.0000000001")
	if diff.GreaterThan(tolerance) {
		t.Errorf("liquidity round trip returned %s, want close to %s", baseOut.String(), baseIn.String())
	}
}

func TestCalcMaxLongRespectsBudget(t *testing.T) {
	m := NewHyperdrive(FeeConfig{})
	r := testReserves(t)
	budget := fixedpoint.FromInt64(100)
	maxLong, err := CalcMaxLong(m, r, fixedpoint.One(), budget, fixedpoint.Zero())
	if err != nil {
		t.Fatalf("CalcMaxLong failed: %v", err)
	}
	if maxLong.GreaterThan(budget) {
		t.Errorf("max long %s exceeded budget %s", maxLong.String(), budget.String())
	}
}

func TestCalcMaxShortConverges(t *testing.T) {
	m := NewHyperdrive(FeeConfig{})
	r := testReserves(t)
	budget := fixedpoint.FromInt64(1000)
	maxShort, err := CalcMaxShort(m, r, fixedpoint.One(), budget, fixedpoint.Zero())
	if err != nil {
		t.Fatalf("CalcMaxShort failed: %v", err)
	}
	if !maxShort.IsPositive() {
		t.Errorf("expected a positive max short bound, got %s", maxShort.String())
	}

	result, err := CalcOutGivenIn(m, primitives.NewQuantity(maxShort, primitives.PT), r, fixedpoint.One())
	if err != nil {
		t.Fatalf("CalcOutGivenIn at max short failed: %v", err)
	}
	maxLoss := maxShort.Sub(result.WithFee)
	tolerance := fixedpoint.MustFromString("0.001")
	if maxLoss.Sub(budget).Abs().GreaterThan(tolerance) {
		t.Errorf("max short %s implies max loss %s, want close to budget %s", maxShort.String(), maxLoss.String(), budget.String())
	}
}
