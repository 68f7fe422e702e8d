package ledger

import (
	"math"
	"testing"

	"equity-anomaly-lab/internal/domain"
)

func TestOpenSetsStopLevels(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(10, 100, "2024-01-02")

	if lot.StopLossPrice != 95 {
		t.Errorf("expected stop loss 95, got %f", lot.StopLossPrice)
	}
	if lot.TrailingStopPrice != 95 {
		t.Errorf("expected trailing stop 95, got %f", lot.TrailingStopPrice)
	}
	if lot.HighWaterMark != 100 {
		t.Errorf("expected high water mark 100, got %f", lot.HighWaterMark)
	}
}

func TestStopLossExit(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	l.Open(10, 100, "2024-01-02")

	l.Mark(94)
	closed := l.SweepExits(94)
	if len(closed) != 1 {
		t.Fatalf("expected 1 closure, got %d", len(closed))
	}
	if closed[0].Reason != domain.ReasonStopLoss {
		t.Errorf("expected STOP_LOSS, got %s", closed[0].Reason)
	}
	wantRealized := 10 * (94.0 - 100.0)
	if math.Abs(closed[0].Realized-wantRealized) > 1e-9 {
		t.Errorf("expected realized %f, got %f", wantRealized, closed[0].Realized)
	}
	if closed[0].Win() {
		t.Error("a stopped-out lot below entry must not count as a win")
	}
	if l.OpenCount() != 0 {
		t.Errorf("expected empty ledger, got %d lots", l.OpenCount())
	}
}

func TestTrailingStopFollowsHighWaterMark(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(10, 100, "2024-01-02")

	l.Mark(120)
	if lot.TrailingStopPrice != 114 {
		t.Fatalf("expected trailing stop 114 after rise to 120, got %f", lot.TrailingStopPrice)
	}

	// A pullback must not lower the trail.
	l.Mark(115)
	if lot.TrailingStopPrice != 114 {
		t.Errorf("trailing stop lowered on pullback: %f", lot.TrailingStopPrice)
	}
	if closed := l.SweepExits(115); len(closed) != 0 {
		t.Fatalf("no exit expected at 115, got %v", closed)
	}

	l.Mark(113)
	closed := l.SweepExits(113)
	if len(closed) != 1 {
		t.Fatalf("expected trailing stop exit at 113, got %d closures", len(closed))
	}
	if closed[0].Reason != domain.ReasonTrailingStop {
		t.Errorf("expected TRAILING_STOP, got %s", closed[0].Reason)
	}
	if closed[0].Price != 113 {
		t.Errorf("expected exit price 113, got %f", closed[0].Price)
	}
}

func TestTrailingStopMonotonic(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(10, 100, "2024-01-02")

	prices := []float64{101, 99, 107, 103, 111, 108, 111, 102}
	prevTrail := lot.TrailingStopPrice
	for _, p := range prices {
		l.Mark(p)
		if lot.TrailingStopPrice < prevTrail {
			t.Fatalf("trailing stop decreased from %f to %f at price %f", prevTrail, lot.TrailingStopPrice, p)
		}
		prevTrail = lot.TrailingStopPrice
	}
}

func TestStopLossPriceNeverChanges(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(10, 100, "2024-01-02")

	for _, p := range []float64{120, 150, 96, 200} {
		l.Mark(p)
		if lot.StopLossPrice != 95 {
			t.Fatalf("stop loss changed to %f at price %f", lot.StopLossPrice, p)
		}
	}
}

func TestStopLossPriorityOverTrailingStop(t *testing.T) {
	l := New("TEST", 0.05, 0.02)
	l.Open(10, 100, "2024-01-02")

	// Trail sits at 98, stop loss at 95. A crash through both must be
	// recorded as a stop-loss exit.
	closed := l.SweepExits(90)
	if len(closed) != 1 {
		t.Fatalf("expected 1 closure, got %d", len(closed))
	}
	if closed[0].Reason != domain.ReasonStopLoss {
		t.Errorf("expected STOP_LOSS to take priority, got %s", closed[0].Reason)
	}
}

func TestConcurrentLotsCloseIndependently(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	l.Open(10, 100, "2024-01-02") // stop 95
	l.Open(5, 90, "2024-01-03")   // stop 85.5

	closed := l.SweepExits(93)
	if len(closed) != 1 {
		t.Fatalf("expected only the first lot to stop out, got %d", len(closed))
	}
	if closed[0].Lot.EntryPrice != 100 {
		t.Errorf("wrong lot closed: entry %f", closed[0].Lot.EntryPrice)
	}
	if l.OpenCount() != 1 {
		t.Errorf("expected 1 surviving lot, got %d", l.OpenCount())
	}

	closed = l.SweepExits(85)
	if len(closed) != 1 {
		t.Fatalf("expected second lot to stop out at 85, got %d", len(closed))
	}
}

func TestCloseNamedLot(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	a := l.Open(10, 100, "2024-01-02")
	b := l.Open(5, 100, "2024-01-03")

	// The caller names the lot; the close price need not breach its stops.
	c := l.Close(a, 104, domain.ReasonStopLoss)
	if c.Reason != domain.ReasonStopLoss || c.Shares != 10 || c.Price != 104 {
		t.Errorf("unexpected closure %+v", c)
	}
	if math.Abs(c.Realized-40) > 1e-9 {
		t.Errorf("expected realized 40, got %f", c.Realized)
	}
	if l.OpenCount() != 1 || l.Lots()[0] != b {
		t.Error("expected only the unnamed lot to survive")
	}
}

func TestPartialClose(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(8, 100, "2024-01-02")

	closure := l.PartialClose(lot, 2, 110)
	if closure.Reason != domain.ReasonOverboughtPartial {
		t.Errorf("expected OVERBOUGHT_PARTIAL, got %s", closure.Reason)
	}
	if math.Abs(closure.Realized-20) > 1e-9 {
		t.Errorf("expected realized 20, got %f", closure.Realized)
	}
	if math.Abs(lot.Shares-6) > 1e-9 {
		t.Errorf("expected 6 shares remaining, got %f", lot.Shares)
	}
	if l.OpenCount() != 1 {
		t.Errorf("partially closed lot must stay open, got %d lots", l.OpenCount())
	}
}

func TestPartialCloseBelowEpsilonRemovesLot(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(1, 100, "2024-01-02")

	l.PartialClose(lot, 1-1e-5, 110)
	if l.OpenCount() != 0 {
		t.Errorf("expected dust remainder to close the lot, got %d lots", l.OpenCount())
	}
}

func TestPartialCloseCapsAtLotShares(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	lot := l.Open(3, 100, "2024-01-02")

	closure := l.PartialClose(lot, 10, 105)
	if closure.Shares != 3 {
		t.Errorf("expected close capped at 3 shares, got %f", closure.Shares)
	}
	if l.OpenCount() != 0 {
		t.Errorf("expected lot removed, got %d lots", l.OpenCount())
	}
}

func TestSmallest(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	if l.Smallest() != nil {
		t.Fatal("expected nil smallest on empty ledger")
	}
	l.Open(10, 100, "2024-01-02")
	small := l.Open(2, 105, "2024-01-03")
	l.Open(7, 99, "2024-01-04")

	if got := l.Smallest(); got != small {
		t.Errorf("expected the 2-share lot, got %+v", got)
	}
}

func TestTotalSharesAndUnrealizedValue(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	l.Open(10, 100, "2024-01-02")
	l.Open(5, 110, "2024-01-03")

	if got := l.TotalShares(); math.Abs(got-15) > 1e-9 {
		t.Errorf("expected 15 shares, got %f", got)
	}
	if got := l.UnrealizedValue(120); math.Abs(got-1800) > 1e-9 {
		t.Errorf("expected unrealized 1800, got %f", got)
	}
}

func TestCloseAll(t *testing.T) {
	l := New("TEST", 0.05, 0.05)
	l.Open(10, 100, "2024-01-02")
	l.Open(5, 110, "2024-01-03")

	closed := l.CloseAll(120, domain.ReasonSignal)
	if len(closed) != 2 {
		t.Fatalf("expected 2 closures, got %d", len(closed))
	}
	if l.OpenCount() != 0 {
		t.Errorf("expected empty ledger after CloseAll, got %d", l.OpenCount())
	}
	total := closed[0].Realized + closed[1].Realized
	if math.Abs(total-(10*20+5*10)) > 1e-9 {
		t.Errorf("unexpected total realized %f", total)
	}
}
