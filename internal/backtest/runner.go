// Package backtest runs one strategy over trailing windows of the bar
// history, reporting each window as its own portfolio.
package backtest

import (
	"context"
	"fmt"
	"time"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/idhash"
	"equity-anomaly-lab/internal/portfolio"
	"equity-anomaly-lab/internal/simulation"
	"equity-anomaly-lab/internal/strategy"
)

// Period names a trailing window of calendar days ending at each symbol's
// last bar.
type Period struct {
	Name string
	Days int
}

// DefaultPeriods returns the standard backtest windows.
func DefaultPeriods() []Period {
	return []Period{
		{Name: "3m", Days: 91},
		{Name: "6m", Days: 182},
		{Name: "1y", Days: 365},
	}
}

// Runner executes multi-period backtests.
type Runner struct {
	source portfolio.BarSource

	// closeAtEnd realizes every lot still open at the window's last bar,
	// so the period's profit is fully realized instead of marked.
	closeAtEnd bool
}

// Options contains configuration for creating a Runner.
type Options struct {
	Source portfolio.BarSource

	// CloseAtEnd enables terminal valuation: open lots are sold at the
	// final close and logged as END_OF_PERIOD trades.
	CloseAtEnd bool
}

// NewRunner creates a backtest runner.
func NewRunner(opts Options) *Runner {
	return &Runner{
		source:     opts.Source,
		closeAtEnd: opts.CloseAtEnd,
	}
}

// PeriodResult holds one window's portfolio and trade log.
type PeriodResult struct {
	Period    Period
	Portfolio domain.PortfolioResult
	Trades    []domain.TradeRecord
}

// Run backtests the strategy over every period for the symbol universe.
// Symbols are processed in input order; each period sees only the bars
// inside its trailing window.
func (r *Runner) Run(ctx context.Context, strat *strategy.Strategy, symbols []string, periods []Period) ([]PeriodResult, error) {
	if len(periods) == 0 {
		periods = DefaultPeriods()
	}

	results := make([]PeriodResult, 0, len(periods))
	for _, period := range periods {
		pr, err := r.runPeriod(ctx, strat, symbols, period)
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", period.Name, err)
		}
		results = append(results, *pr)
	}
	return results, nil
}

func (r *Runner) runPeriod(ctx context.Context, strat *strategy.Strategy, symbols []string, period Period) (*PeriodResult, error) {
	result := &PeriodResult{
		Period:    period,
		Portfolio: domain.PortfolioResult{StrategyID: strat.ID()},
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := r.source.GetBars(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
		}
		bars = trailingWindow(bars, period.Days)

		engine := simulation.NewEngine(simulation.Options{Strategy: strat})
		run := engine.Run(symbol, bars)

		if r.closeAtEnd && !run.Summary.Skipped && len(bars) > 0 {
			realizeOpenLots(run, strat.ID(), bars[len(bars)-1].Date)
		}

		result.Portfolio.SymbolResults = append(result.Portfolio.SymbolResults, run.Summary)
		result.Trades = append(result.Trades, run.Trades...)

		result.Portfolio.TotalTrades += run.Summary.TotalTrades
		result.Portfolio.TotalInvested += run.Summary.TotalInvested
		result.Portfolio.TotalValue += run.Summary.TotalValue
	}

	if result.Portfolio.TotalInvested > 0 {
		result.Portfolio.OverallReturnPct = (result.Portfolio.TotalValue - result.Portfolio.TotalInvested) /
			result.Portfolio.TotalInvested * 100
	}
	return result, nil
}

// trailingWindow keeps only the bars within days calendar days of the last
// bar. Series with unparseable dates are returned unchanged.
func trailingWindow(bars []domain.Bar, days int) []domain.Bar {
	if len(bars) == 0 || days <= 0 {
		return bars
	}

	end, err := time.Parse("2006-01-02", bars[len(bars)-1].Date)
	if err != nil {
		return bars
	}
	cutoff := end.AddDate(0, 0, -days).Format("2006-01-02")

	for i, bar := range bars {
		if bar.Date >= cutoff {
			return bars[i:]
		}
	}
	return bars
}

// realizeOpenLots converts a run's open lots into END_OF_PERIOD sells at
// the final close. Total value is unchanged; unrealized value simply
// becomes realized proceeds.
func realizeOpenLots(run *simulation.Result, strategyID, finalDate string) {
	s := &run.Summary
	seq := len(run.Trades)

	for _, lot := range run.OpenLots {
		run.Trades = append(run.Trades, domain.TradeRecord{
			TradeID:        idhash.ComputeTradeID(s.Symbol, strategyID, finalDate, seq),
			Symbol:         s.Symbol,
			StrategyID:     strategyID,
			Date:           finalDate,
			Type:           domain.TradeTypeSell,
			Price:          s.FinalPrice,
			Shares:         lot.Shares,
			Reason:         domain.ReasonEndOfPeriod,
			RealizedProfit: lot.Shares * (s.FinalPrice - lot.EntryPrice),
		})
		seq++
		s.Sells++
	}

	s.RealizedProceeds += s.UnrealizedValue
	s.UnrealizedValue = 0
	s.SharesRemaining = 0
	s.TotalTrades = len(run.Trades)
	run.OpenLots = nil
}
