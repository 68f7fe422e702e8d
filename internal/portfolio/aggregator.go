// Package portfolio runs the simulation engine across a symbol universe
// and reduces per-symbol results into portfolio-level metrics.
package portfolio

import (
	"context"
	"log"
	"runtime"
	"sync"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/simulation"
	"equity-anomaly-lab/internal/sizing"
	"equity-anomaly-lab/internal/strategy"
)

// BarSource supplies a symbol's full daily series, date ascending.
type BarSource interface {
	GetBars(ctx context.Context, symbol string) ([]domain.Bar, error)
}

// Aggregator fans the per-symbol simulation out over a worker pool and
// reduces the results. Symbol runs share no state, so processing order
// never affects the outcome.
type Aggregator struct {
	source  BarSource
	workers int
}

// AggregatorOptions contains configuration for creating an Aggregator.
type AggregatorOptions struct {
	Source BarSource

	// Workers bounds the symbol-level parallelism. Zero means one worker
	// per CPU.
	Workers int
}

// NewAggregator creates an aggregator over the given bar source.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Aggregator{source: opts.Source, workers: workers}
}

// RunResult holds one full portfolio run for one strategy.
type RunResult struct {
	Portfolio domain.PortfolioResult
	Trades    []domain.TradeRecord
}

// Run simulates the strategy over every symbol and reduces the results.
// A symbol whose bars cannot be loaded is reported as an all-zero skipped
// result; it never aborts the other symbols. Per-symbol results keep the
// order of the input universe regardless of worker completion order.
func (a *Aggregator) Run(ctx context.Context, strat *strategy.Strategy, symbols []string) (*RunResult, error) {
	results := make([]*simulation.Result, len(symbols))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker owns its performance table; symbol records
			// never cross workers.
			engine := simulation.NewEngine(simulation.Options{
				Strategy: strat,
				Table:    sizing.NewTable(),
			})
			for idx := range jobs {
				results[idx] = a.runSymbol(ctx, engine, strat, symbols[idx])
			}
		}()
	}

	for idx := range symbols {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	run := &RunResult{Portfolio: domain.PortfolioResult{StrategyID: strat.ID()}}
	p := &run.Portfolio
	for i, r := range results {
		if r == nil {
			// Cancelled mid-flight; partial state is discarded.
			r = &simulation.Result{
				Summary: domain.SymbolResult{
					Symbol: symbols[i], StrategyID: strat.ID(), Skipped: true,
				},
			}
		}
		p.SymbolResults = append(p.SymbolResults, r.Summary)
		p.TotalTrades += r.Summary.TotalTrades
		p.TotalInvested += r.Summary.TotalInvested
		p.TotalValue += r.Summary.TotalValue
		run.Trades = append(run.Trades, r.Trades...)
	}
	if p.TotalInvested > 0 {
		p.OverallReturnPct = (p.TotalValue - p.TotalInvested) / p.TotalInvested * 100
	}
	return run, nil
}

// runSymbol loads one symbol's bars and simulates them. Any load failure
// degrades to a skipped zero result.
func (a *Aggregator) runSymbol(ctx context.Context, engine *simulation.Engine, strat *strategy.Strategy, symbol string) *simulation.Result {
	bars, err := a.source.GetBars(ctx, symbol)
	if err != nil {
		log.Printf("portfolio: %s: bars unavailable: %v", symbol, err)
		return &simulation.Result{
			Summary: domain.SymbolResult{
				Symbol: symbol, StrategyID: strat.ID(), Skipped: true,
			},
		}
	}
	return engine.Run(symbol, bars)
}
