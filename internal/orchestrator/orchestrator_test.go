package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"equity-anomaly-lab/internal/storage/memory"
	"equity-anomaly-lab/internal/strategy"
)

func testSpace() strategy.SearchSpace {
	return strategy.SearchSpace{
		LookbackPeriods:  []int{20},
		MinSeverities:    []float64{1.0},
		StopLossPcts:     []float64{0.05},
		TrailingStopPcts: []float64{0.05},
		BasePositionSize: 1000,
	}
}

func TestRunFullPipelineOverFixtures(t *testing.T) {
	ctx := context.Background()
	barStore := memory.NewBarStore()
	tradeStore := memory.NewTradeRecordStore()
	aggStore := memory.NewStrategyAggregateStore()

	if err := LoadFixtures(ctx, barStore); err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}

	orch := New(Options{
		BarStore:               barStore,
		TradeRecordStore:       tradeStore,
		StrategyAggregateStore: aggStore,
		Space:                  testSpace(),
		Workers:                2,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("pipeline errors: %v", result.Errors)
	}

	if result.RunID == "" {
		t.Error("expected a run ID")
	}
	if result.SymbolsProcessed != 3 {
		t.Errorf("SymbolsProcessed = %d, want 3", result.SymbolsProcessed)
	}
	if result.StrategiesRun != 1 {
		t.Errorf("StrategiesRun = %d, want 1", result.StrategiesRun)
	}
	// The dip fixture guarantees at least one trade.
	if result.TradesCreated == 0 {
		t.Error("expected trades from the dip fixture")
	}

	aggs, err := aggStore.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll aggregates: %v", err)
	}
	if len(aggs) != 1 {
		t.Errorf("stored aggregates = %d, want 1", len(aggs))
	}
}

func TestRunIngestsCSVDirectory(t *testing.T) {
	dir := t.TempDir()
	csv := "date,open,high,low,close,volume\n"
	for _, row := range []string{
		"2024-01-02,100,102,99,101,1000",
		"2024-01-03,101,103,100,102,1000",
	} {
		csv += row + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "aapl.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	barStore := memory.NewBarStore()
	orch := New(Options{
		BarStore:               barStore,
		TradeRecordStore:       memory.NewTradeRecordStore(),
		StrategyAggregateStore: memory.NewStrategyAggregateStore(),
		Space:                  testSpace(),
		CSVDir:                 dir,
	})

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.BarsIngested != 2 {
		t.Errorf("BarsIngested = %d, want 2", result.BarsIngested)
	}

	// A rerun hits duplicates and skips them instead of failing.
	again, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.BarsIngested != 0 {
		t.Errorf("rerun BarsIngested = %d, want 0", again.BarsIngested)
	}
}

func TestRunEmptyStore(t *testing.T) {
	orch := New(Options{
		BarStore:               memory.NewBarStore(),
		TradeRecordStore:       memory.NewTradeRecordStore(),
		StrategyAggregateStore: memory.NewStrategyAggregateStore(),
		Space:                  testSpace(),
	})

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SymbolsProcessed != 0 || result.StrategiesRun != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
