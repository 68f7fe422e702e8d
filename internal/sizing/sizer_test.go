package sizing

import (
	"math"
	"testing"

	"equity-anomaly-lab/internal/domain"
)

func TestMultiplierTiers(t *testing.T) {
	cases := []struct {
		name   string
		wins   int
		losses int
		want   float64
	}{
		{"no history", 0, 0, 1.0},
		{"strong 6/4", 6, 4, 1.2},
		{"exactly 60 pct", 3, 2, 1.2},
		{"even 5/5", 5, 5, 1.0},
		{"weak 4/6", 4, 6, 0.8},
		{"poor 3/7", 3, 7, 0.6},
		{"all losses", 0, 5, 0.6},
		{"all wins", 5, 0, 1.2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := domain.PerformanceRecord{Wins: tc.wins, Losses: tc.losses}
			if got := Multiplier(rec); got != tc.want {
				t.Errorf("Multiplier(%d/%d) = %f, want %f", tc.wins, tc.losses, got, tc.want)
			}
		})
	}
}

func TestSizeAppliesWinRate(t *testing.T) {
	table := NewTable()
	for i := 0; i < 6; i++ {
		table.Record("AAPL", true)
	}
	for i := 0; i < 4; i++ {
		table.Record("AAPL", false)
	}

	sizer := NewSizer(table)
	if got := sizer.Size("AAPL", 1000); math.Abs(got-1200) > 1e-9 {
		t.Errorf("expected 1200 for 6/4 record, got %f", got)
	}

	// A symbol with no record sizes at the base amount.
	if got := sizer.Size("MSFT", 1000); got != 1000 {
		t.Errorf("expected base size with no history, got %f", got)
	}
}

func TestTableIsolatesSymbols(t *testing.T) {
	table := NewTable()
	table.Record("AAPL", false)
	table.Record("AAPL", false)

	if rec := table.Get("MSFT"); rec.Total() != 0 {
		t.Errorf("expected empty record for untouched symbol, got %+v", rec)
	}
	if rec := table.Get("AAPL"); rec.Losses != 2 {
		t.Errorf("expected 2 losses, got %+v", rec)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	table := NewTable()
	table.Record("AAPL", true)

	rec := table.Get("AAPL")
	rec.Wins = 99
	if table.Get("AAPL").Wins != 1 {
		t.Error("mutating the returned record must not change the table")
	}
}
