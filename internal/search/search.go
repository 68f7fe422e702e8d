// Package search sweeps a strategy grid over a symbol universe and ranks
// the surviving strategies.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/portfolio"
	"equity-anomaly-lab/internal/storage"
	"equity-anomaly-lab/internal/strategy"
)

// Runner evaluates strategies against a bar source and optionally persists
// what each one traded.
type Runner struct {
	source     portfolio.BarSource
	workers    int
	tradeStore storage.TradeRecordStore
	aggStore   storage.StrategyAggregateStore
}

// Options contains configuration for creating a Runner.
type Options struct {
	Source portfolio.BarSource

	// Workers bounds symbol-level parallelism inside each strategy run.
	Workers int

	// TradeStore, when set, receives every strategy's trade log. Duplicate
	// trade IDs are skipped, which makes reruns idempotent.
	TradeStore storage.TradeRecordStore

	// AggregateStore, when set, receives one upserted row per strategy.
	AggregateStore storage.StrategyAggregateStore
}

// New creates a search runner.
func New(opts Options) *Runner {
	return &Runner{
		source:     opts.Source,
		workers:    opts.Workers,
		tradeStore: opts.TradeStore,
		aggStore:   opts.AggregateStore,
	}
}

// Result summarizes one full sweep.
type Result struct {
	// Ranked holds the strategies that survived the ranking filter, best
	// first.
	Ranked []domain.StrategyAggregate

	// All holds every evaluated strategy's aggregate, in input order.
	All []domain.StrategyAggregate

	StrategiesRun   int
	TradesPersisted int

	// Errors collects non-fatal persistence failures. The sweep keeps
	// going; only context cancellation aborts it.
	Errors []string
}

// Run evaluates every strategy over the symbol universe, ranks the
// aggregates and persists trades and aggregates where stores are wired.
func (r *Runner) Run(ctx context.Context, strategies []*strategy.Strategy, symbols []string) (*Result, error) {
	result := &Result{}
	aggregator := portfolio.NewAggregator(portfolio.AggregatorOptions{
		Source:  r.source,
		Workers: r.workers,
	})

	for _, strat := range strategies {
		run, err := aggregator.Run(ctx, strat, symbols)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strat.ID(), err)
		}
		result.StrategiesRun++

		agg := portfolio.Aggregate(&run.Portfolio)
		result.All = append(result.All, agg)

		r.persist(ctx, strat.ID(), run, &agg, result)
	}

	result.Ranked = portfolio.Rank(result.All)
	return result, nil
}

// persist writes one strategy's trades and aggregate. Failures become
// result errors rather than aborting the sweep.
func (r *Runner) persist(ctx context.Context, strategyID string, run *portfolio.RunResult, agg *domain.StrategyAggregate, result *Result) {
	if r.tradeStore != nil && len(run.Trades) > 0 {
		trades := make([]*domain.TradeRecord, len(run.Trades))
		for i := range run.Trades {
			trades[i] = &run.Trades[i]
		}
		switch err := r.tradeStore.InsertBulk(ctx, trades); {
		case err == nil:
			result.TradesPersisted += len(trades)
		case errors.Is(err, storage.ErrDuplicateKey):
			// Rerun over already-persisted trades, nothing to do.
			log.Printf("search: %s: trades already persisted", strategyID)
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("persist trades for %s: %v", strategyID, err))
		}
	}

	if r.aggStore != nil {
		if err := r.aggStore.Upsert(ctx, agg); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist aggregate for %s: %v", strategyID, err))
		}
	}
}
