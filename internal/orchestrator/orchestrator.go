// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: ingestion → strategy sweep → ranking
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/idhash"
	"equity-anomaly-lab/internal/marketdata"
	"equity-anomaly-lab/internal/search"
	"equity-anomaly-lab/internal/storage"
	"equity-anomaly-lab/internal/strategy"
)

// Orchestrator coordinates the E2E pipeline execution.
// Flow: CSV ingestion (optional) → grid sweep → ranking
type Orchestrator struct {
	// Stores
	barStore               storage.BarStore
	tradeRecordStore       storage.TradeRecordStore
	strategyAggregateStore storage.StrategyAggregateStore

	// Search grid
	space strategy.SearchSpace

	// Options
	csvDir  string
	workers int
	verbose bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	BarStore               storage.BarStore
	TradeRecordStore       storage.TradeRecordStore
	StrategyAggregateStore storage.StrategyAggregateStore

	// Space is the strategy grid to sweep.
	Space strategy.SearchSpace

	// CSVDir, when set, is ingested into the bar store before the sweep.
	CSVDir string

	// Workers bounds symbol-level parallelism.
	Workers int

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		barStore:               opts.BarStore,
		tradeRecordStore:       opts.TradeRecordStore,
		strategyAggregateStore: opts.StrategyAggregateStore,
		space:                  opts.Space,
		csvDir:                 opts.CSVDir,
		workers:                opts.Workers,
		verbose:                opts.Verbose,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID            string
	BarsIngested     int
	SymbolsProcessed int
	StrategiesRun    int
	TradesCreated    int
	StrategiesRanked int
	Ranked           []domain.StrategyAggregate
	Errors           []string
}

// Run executes the full E2E pipeline.
// Phases:
//  1. Ingest CSV bars (when a directory is configured)
//  2. Load the symbol universe from the bar store
//  3. Expand the strategy grid and sweep it over the universe
//  4. Rank the aggregates
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID: idhash.ComputeRunID("pipeline", time.Now().UnixMilli()),
	}
	o.log("Run %s starting", result.RunID)

	// Phase 1: Ingestion
	if o.csvDir != "" {
		o.log("Phase 1: Ingesting bars from %s...", o.csvDir)
		ingested, err := o.runIngestion(ctx)
		if err != nil {
			return nil, fmt.Errorf("phase 1 (ingestion) failed: %w", err)
		}
		result.BarsIngested = ingested
		o.log("  Ingested %d bars", ingested)
	} else {
		o.log("Phase 1: No CSV directory configured, using stored bars")
	}

	// Phase 2: Load universe
	o.log("Phase 2: Loading symbol universe...")
	symbols, err := o.barStore.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (load universe) failed: %w", err)
	}
	result.SymbolsProcessed = len(symbols)
	o.log("  Found %d symbols", len(symbols))

	if len(symbols) == 0 {
		return result, nil
	}

	// Phase 3: Strategy sweep
	o.log("Phase 3: Sweeping strategy grid...")
	strategies, err := strategy.Grid(o.space)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (grid expansion) failed: %w", err)
	}

	runner := search.New(search.Options{
		Source:         marketdata.NewStoreSource(o.barStore),
		Workers:        o.workers,
		TradeStore:     o.tradeRecordStore,
		AggregateStore: o.strategyAggregateStore,
	})
	sweep, err := runner.Run(ctx, strategies, symbols)
	if err != nil {
		return nil, fmt.Errorf("phase 3 (sweep) failed: %w", err)
	}
	result.StrategiesRun = sweep.StrategiesRun
	result.TradesCreated = sweep.TradesPersisted
	result.Errors = append(result.Errors, sweep.Errors...)
	o.log("  Ran %d strategies, persisted %d trades (%d errors)",
		sweep.StrategiesRun, sweep.TradesPersisted, len(sweep.Errors))

	// Phase 4: Ranking
	result.Ranked = sweep.Ranked
	result.StrategiesRanked = len(sweep.Ranked)
	o.log("Pipeline completed: %d symbols, %d strategies, %d ranked",
		result.SymbolsProcessed, result.StrategiesRun, result.StrategiesRanked)

	return result, nil
}

// runIngestion loads CSV bar files into the bar store, one symbol at a
// time. Symbols whose bars already exist are skipped.
func (o *Orchestrator) runIngestion(ctx context.Context) (int, error) {
	series, err := marketdata.LoadBarsDir(o.csvDir)
	if err != nil {
		return 0, err
	}

	var ingested int
	for symbol, bars := range series {
		if err := o.barStore.InsertBulk(ctx, bars); err != nil {
			// Skip duplicate key errors (already ingested)
			if errors.Is(err, storage.ErrDuplicateKey) {
				o.log("  %s already ingested, skipping", symbol)
				continue
			}
			return ingested, fmt.Errorf("ingest %s: %w", symbol, err)
		}
		ingested += len(bars)
	}
	return ingested, nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
