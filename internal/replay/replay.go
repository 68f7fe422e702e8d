package replay

import (
	"context"
	"fmt"
	"io"
	"os"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/portfolio"
	"equity-anomaly-lab/internal/simulation"
	"equity-anomaly-lab/internal/strategy"
)

// Runner re-runs one symbol under one strategy with the simulation engine's
// full decision trace written line by line. It exists for debugging: the
// replayed run is the exact run a backtest would produce over the same bars.
type Runner struct {
	source portfolio.BarSource
	out    io.Writer
}

// Options contains configuration for creating a Runner.
type Options struct {
	Source portfolio.BarSource

	// Out receives the trace and the closing summary. Defaults to stdout.
	Out io.Writer
}

// NewRunner creates a replay runner.
func NewRunner(opts Options) *Runner {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Runner{source: opts.Source, out: out}
}

// RangeSource is a bar source that can serve a date-bounded window of a
// series without loading the whole thing, such as a store range query.
type RangeSource interface {
	GetBarsRange(ctx context.Context, symbol, from, to string) ([]domain.Bar, error)
}

// Run replays the symbol under the strategy over the inclusive date range
// [from, to]. Empty bounds are unbounded. The returned result is identical
// to what a silent backtest over the same window would produce.
func (r *Runner) Run(ctx context.Context, strat *strategy.Strategy, symbol, from, to string) (*simulation.Result, error) {
	var bars []domain.Bar
	var err error
	if rs, ok := r.source.(RangeSource); ok {
		bars, err = rs.GetBarsRange(ctx, symbol, from, to)
	} else if bars, err = r.source.GetBars(ctx, symbol); err == nil {
		bars = filterRange(bars, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no bars in range", symbol)
	}

	fmt.Fprintf(r.out, "replaying %s under %s: %d bars, %s to %s\n",
		symbol, strat.ID(), len(bars), bars[0].Date, bars[len(bars)-1].Date)

	engine := simulation.NewEngine(simulation.Options{
		Strategy: strat,
		Trace: func(format string, args ...any) {
			fmt.Fprintf(r.out, format+"\n", args...)
		},
	})
	run := engine.Run(symbol, bars)
	r.writeSummary(run)
	return run, nil
}

func (r *Runner) writeSummary(run *simulation.Result) {
	s := run.Summary
	if s.Skipped {
		fmt.Fprintf(r.out, "%s skipped: not enough history\n", s.Symbol)
		return
	}
	fmt.Fprintf(r.out, "%s: %d trades (%d buys, %d sells), invested %.2f, value %.2f, return %.2f%%\n",
		s.Symbol, s.TotalTrades, s.Buys, s.Sells, s.TotalInvested, s.TotalValue, s.ReturnPct)
	fmt.Fprintf(r.out, "exits: %d stop-loss, %d trailing-stop, %d overbought; max drawdown %.2f%%\n",
		s.StopLossTriggers, s.TrailingStopTriggers, s.OverboughtSells, s.MaxDrawdown*100)
	for _, lot := range run.OpenLots {
		fmt.Fprintf(r.out, "open lot: %.4f shares from %s at %.2f\n", lot.Shares, lot.EntryDate, lot.EntryPrice)
	}
}

// filterRange keeps bars with from <= date <= to, comparing ISO dates
// lexically. Empty bounds do not constrain.
func filterRange(bars []domain.Bar, from, to string) []domain.Bar {
	out := bars[:0:0]
	for _, bar := range bars {
		if from != "" && bar.Date < from {
			continue
		}
		if to != "" && bar.Date > to {
			continue
		}
		out = append(out, bar)
	}
	return out
}
