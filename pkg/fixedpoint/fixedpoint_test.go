package fixedpoint

import (
	"math/big"
	"testing"
)

func TestArithmetic(t *testing.T) {
	t.Run("add and sub are exact", func(t *testing.T) {
		a := MustFromString("100.5")
		b := MustFromString("0.25")
		if got := a.Add(b); got.String() != "100.75" {
			t.Errorf("expected 100.75, got %s", got.String())
		}
		if got := a.Sub(b); got.String() != "100.25" {
			t.Errorf("expected 100.25, got %s", got.String())
		}
	})

	t.Run("mul rounds toward zero at 18 decimals", func(t *testing.T) {
		a := MustFromString("0.000000000000000003")
		b := MustFromString("0.5")
		got, err := a.Mul(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "0.000000000000000001" {
			t.Errorf("expected truncation toward zero, got %s", got.String())
		}
	})

	t.Run("div by zero fails", func(t *testing.T) {
		a := FromInt64(1)
		if _, err := a.Div(Zero()); err == nil {
			t.Error("expected ErrDivByZero")
		}
	})

	t.Run("neg and abs", func(t *testing.T) {
		a := MustFromString("-5")
		if got := a.Abs(); !got.Equal(FromInt64(5)) {
			t.Errorf("expected 5, got %s", got.String())
		}
		if got := a.Neg(); !got.Equal(FromInt64(5)) {
			t.Errorf("expected 5, got %s", got.String())
		}
	})
}

func TestPow(t *testing.T) {
	t.Run("fast paths", func(t *testing.T) {
		if got, _ := Pow(Zero(), FromInt64(5)); !got.IsZero() {
			t.Errorf("pow(0, 5) should be 0, got %s", got.String())
		}
		x := MustFromString("3.5")
		if got, _ := Pow(x, Zero()); !got.Equal(One()) {
			t.Errorf("pow(x, 0) should be 1, got %s", got.String())
		}
		if got, _ := Pow(x, One()); !got.Equal(x) {
			t.Errorf("pow(x, 1) should be x, got %s", got.String())
		}
	})

	t.Run("agrees with integer squaring", func(t *testing.T) {
		base := MustFromString("1.05")
		got, err := Pow(base, FromInt64(2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want, err := base.Mul(base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		diff := got.Sub(want).Abs()
		tolerance := MustFromString("0.000000000001")
		if diff.GreaterThan(tolerance) {
			t.Errorf("pow(1.05, 2) = %s, want close to %s", got.String(), want.String())
		}
	})

	t.Run("negative base rejected", func(t *testing.T) {
		if _, err := Pow(MustFromString("-1"), FromInt64(2)); err == nil {
			t.Error("expected error for negative base")
		}
	})
}

func TestScaledRoundTrip(t *testing.T) {
	d := MustFromString("123.456789000000000001")
	scaled := d.ToScaled()
	want := new(big.Int)
	want.SetString("123456789000000000001", 10)
	if scaled.Cmp(want) != 0 {
		t.Errorf("expected scaled %s, got %s", want.String(), scaled.String())
	}
	back := FromScaled(scaled)
	if !back.Equal(d) {
		t.Errorf("round trip mismatch: %s != %s", back.String(), d.String())
	}
}

func TestComparisons(t *testing.T) {
	a := FromInt64(5)
	b := FromInt64(10)
	if !a.LessThan(b) || a.GreaterThan(b) {
		t.Error("5 should be less than 10")
	}
	if a.Min(b) != a || a.Max(b) != b {
		t.Error("min/max mismatch")
	}
}
