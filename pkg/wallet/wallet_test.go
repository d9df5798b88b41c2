package wallet

import (
	"testing"

	"github.com/johnayoung/go-fixedrate-amm/pkg/fixedpoint"
)

func TestOpenCloseLongPrunesZeroBalance(t *testing.T) {
	w := New("agent-0", fixedpoint.FromInt64(1000))
	mintTime := fixedpoint.MustFromString("0.5")

	if err := w.OpenLong(mintTime, fixedpoint.FromInt64(100), fixedpoint.One()); err != nil {
		t.Fatalf("OpenLong failed: %v", err)
	}
	if _, ok := w.Long(mintTime); !ok {
		t.Fatal("expected long to exist after open")
	}

	if err := w.CloseLong(mintTime, fixedpoint.FromInt64(100)); err != nil {
		t.Fatalf("CloseLong failed: %v", err)
	}
	if _, ok := w.Long(mintTime); ok {
		t.Error("expected long to be pruned after closing full balance")
	}
}

func TestCloseLongInsufficientBalance(t *testing.T) {
	w := New("agent-0", fixedpoint.FromInt64(1000))
	mintTime := fixedpoint.MustFromString("0.5")
	if err := w.OpenLong(mintTime, fixedpoint.FromInt64(10), fixedpoint.One()); err != nil {
		t.Fatalf("OpenLong failed: %v", err)
	}
	if err := w.CloseLong(mintTime, fixedpoint.FromInt64(20)); err == nil {
		t.Error("expected error closing more than the open balance")
	}
}

func TestReduceShortReturnsProportionalMargin(t *testing.T) {
	w := New("agent-0", fixedpoint.FromInt64(1000))
	mintTime := fixedpoint.MustFromString("0.5")
	if err := w.OpenShort(mintTime, fixedpoint.FromInt64(100), fixedpoint.One(), fixedpoint.FromInt64(40)); err != nil {
		t.Fatalf("OpenShort failed: %v", err)
	}

	margin, err := w.ReduceShort(mintTime, fixedpoint.FromInt64(25))
	if err != nil {
		t.Fatalf("ReduceShort failed: %v", err)
	}
	want := fixedpoint.FromInt64(10) // 25/100 * 40
	if !margin.Equal(want) {
		t.Errorf("expected proportional margin %s, got %s", want.String(), margin.String())
	}

	s, ok := w.Short(mintTime)
	if !ok {
		t.Fatal("expected short to still exist after partial close")
	}
	if !s.Balance.Equal(fixedpoint.FromInt64(75)) {
		t.Errorf("expected remaining balance 75, got %s", s.Balance.String())
	}
	if !s.Margin.Equal(fixedpoint.FromInt64(30)) {
		t.Errorf("expected remaining margin 30, got %s", s.Margin.String())
	}

	if _, err := w.ReduceShort(mintTime, fixedpoint.FromInt64(75)); err != nil {
		t.Fatalf("ReduceShort failed on remainder: %v", err)
	}
	if _, ok := w.Short(mintTime); ok {
		t.Error("expected short to be pruned after closing full balance")
	}
}

func TestApplyBaseRejectsNegativeBalance(t *testing.T) {
	w := New("agent-0", fixedpoint.FromInt64(10))
	if err := w.ApplyBase(fixedpoint.FromInt64(-20)); err == nil {
		t.Error("expected error driving base negative")
	}
}

func TestTakeSnapshotMarksOpenPositions(t *testing.T) {
	w := New("agent-0", fixedpoint.FromInt64(1000))
	mintTime := fixedpoint.MustFromString("0.5")
	if err := w.OpenLong(mintTime, fixedpoint.FromInt64(100), fixedpoint.One()); err != nil {
		t.Fatalf("OpenLong failed: %v", err)
	}
	if err := w.ApplyBase(fixedpoint.FromInt64(-100)); err != nil {
		t.Fatalf("ApplyBase failed: %v", err)
	}

	snap, err := w.TakeSnapshot(fixedpoint.MustFromString("0.95"), fixedpoint.One(), fixedpoint.FromInt64(1000))
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}
	if snap.NumLongs != 1 {
		t.Errorf("expected 1 open long, got %d", snap.NumLongs)
	}
	wantLongsValue := fixedpoint.MustFromString("95")
	if !snap.LongsValue.Equal(wantLongsValue) {
		t.Errorf("expected longs value %s, got %s", wantLongsValue.String(), snap.LongsValue.String())
	}
}
