package strategy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGridExpandsAllCombinations(t *testing.T) {
	space := DefaultSearchSpace()
	strategies, err := Grid(space)
	if err != nil {
		t.Fatal(err)
	}

	want := len(space.LookbackPeriods) * len(space.MinSeverities) *
		len(space.StopLossPcts) * len(space.TrailingStopPcts)
	if len(strategies) != want {
		t.Fatalf("expected %d strategies, got %d", want, len(strategies))
	}

	// Every grid point must carry its own parameters and a unique ID.
	seen := make(map[string]bool)
	for _, s := range strategies {
		if seen[s.ID()] {
			t.Errorf("duplicate strategy ID %s", s.ID())
		}
		seen[s.ID()] = true
	}
}

func TestGridBindsParametersByValue(t *testing.T) {
	space := SearchSpace{
		LookbackPeriods:  []int{10, 30},
		MinSeverities:    []float64{1.0},
		StopLossPcts:     []float64{0.05},
		TrailingStopPcts: []float64{0.05},
		BasePositionSize: 500,
	}
	strategies, err := Grid(space)
	if err != nil {
		t.Fatal(err)
	}
	if len(strategies) != 2 {
		t.Fatalf("expected 2 strategies, got %d", len(strategies))
	}
	if strategies[0].Config().LookbackPeriod != 10 || strategies[1].Config().LookbackPeriod != 30 {
		t.Errorf("grid points share parameters: %d, %d",
			strategies[0].Config().LookbackPeriod, strategies[1].Config().LookbackPeriod)
	}
}

func TestLoadSearchSpacePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.yaml")
	content := "lookback_periods: [40]\nbase_position_size: 2500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	space, err := LoadSearchSpace(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(space.LookbackPeriods) != 1 || space.LookbackPeriods[0] != 40 {
		t.Errorf("expected overridden lookbacks, got %v", space.LookbackPeriods)
	}
	if space.BasePositionSize != 2500 {
		t.Errorf("expected overridden base size, got %f", space.BasePositionSize)
	}
	if len(space.MinSeverities) == 0 {
		t.Error("expected default severities to backfill")
	}
}

func TestLoadSearchSpaceMissingFile(t *testing.T) {
	if _, err := LoadSearchSpace(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
