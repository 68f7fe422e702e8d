// Package simulation drives a single symbol's bar series through the
// anomaly strategy, producing a trade log and a final valuation.
package simulation

import (
	"equity-anomaly-lab/internal/anomaly"
	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/idhash"
	"equity-anomaly-lab/internal/ledger"
	"equity-anomaly-lab/internal/sizing"
	"equity-anomaly-lab/internal/strategy"
)

// Engine executes one strategy over per-symbol bar series. A Run is a pure
// function of the series and the strategy config: the same inputs always
// produce the same trade log.
type Engine struct {
	strategy *strategy.Strategy
	detector *anomaly.Detector
	table    *sizing.Table
	trace    func(format string, args ...any)
}

// Options contains configuration for creating an Engine.
type Options struct {
	Strategy *strategy.Strategy

	// Table receives realized win/loss closes and feeds position sizing.
	// When nil every Run sees a fresh table. A shared table must not be
	// used from more than one goroutine.
	Table *sizing.Table

	// Trace, when set, receives a printf-style line for every decision
	// the engine makes. Used by the replay command.
	Trace func(format string, args ...any)
}

// NewEngine creates a simulation engine for one strategy.
func NewEngine(opts Options) *Engine {
	return &Engine{
		strategy: opts.Strategy,
		detector: anomaly.NewDetector(opts.Strategy.Config().LookbackPeriod),
		table:    opts.Table,
		trace:    opts.Trace,
	}
}

// Result holds everything one symbol run produced.
type Result struct {
	Summary  domain.SymbolResult
	Trades   []domain.TradeRecord
	OpenLots []domain.Lot // lots still open at series end
}

// Run simulates the symbol's full series. For each bar past the lookback:
//  1. Mark open lots at the close, then sweep stop-loss/trailing-stop
//     exits (stop-loss wins when both trigger).
//  2. Evaluate the anomaly detector at this bar.
//  3. On a qualifying signal, open a sized lot on BUY/MIXED; on SELL/MIXED
//     at strong severity, partially close the smallest open lot.
//
// A series shorter than min_bars_required is skipped and reported as
// all-zero, never an error.
func (e *Engine) Run(symbol string, bars []domain.Bar) *Result {
	cfg := e.strategy.Config()
	result := &Result{
		Summary: domain.SymbolResult{Symbol: symbol, StrategyID: e.strategy.ID()},
	}

	if len(bars) < cfg.MinBarsRequired {
		result.Summary.Skipped = true
		e.tracef("%s: %d bars below minimum %d, skipping", symbol, len(bars), cfg.MinBarsRequired)
		return result
	}

	table := e.table
	if table == nil {
		table = sizing.NewTable()
	}
	sizer := sizing.NewSizer(table)
	book := ledger.New(symbol, cfg.StopLossPct, cfg.TrailingStopPct)

	var invested, proceeds float64
	var peak, maxDrawdown float64
	seq := 0

	logTrade := func(rec domain.TradeRecord) {
		rec.TradeID = idhash.ComputeTradeID(symbol, e.strategy.ID(), rec.Date, seq)
		seq++
		result.Trades = append(result.Trades, rec)
	}
	recordClose := func(c ledger.Closure, date string) {
		proceeds += c.Shares * c.Price
		table.Record(symbol, c.Win())
		logTrade(domain.TradeRecord{
			Symbol:         symbol,
			StrategyID:     e.strategy.ID(),
			Date:           date,
			Type:           domain.TradeTypeSell,
			Price:          c.Price,
			Shares:         c.Shares,
			Reason:         c.Reason,
			RealizedProfit: c.Realized,
		})
		result.Summary.Sells++
	}

	for i := cfg.LookbackPeriod; i < len(bars); i++ {
		bar := bars[i]
		price := bar.Close

		// 1. Risk exits run before any new signal is considered.
		book.Mark(price)
		for _, c := range book.SweepExits(price) {
			switch c.Reason {
			case domain.ReasonStopLoss:
				result.Summary.StopLossTriggers++
			case domain.ReasonTrailingStop:
				result.Summary.TrailingStopTriggers++
			}
			recordClose(c, bar.Date)
			e.tracef("%s %s: %s exit %.4f shares at %.2f (entry %.2f, realized %.2f)",
				symbol, bar.Date, c.Reason, c.Shares, c.Price, c.Lot.EntryPrice, c.Realized)
		}

		// 2. Detector verdict for this bar.
		signal := e.detector.Evaluate(bars, i)
		if signal.IsAnomaly && signal.Severity >= cfg.MinSeverity {
			e.tracef("%s %s: anomaly %v severity %.2f direction %s",
				symbol, bar.Date, signal.Kinds, signal.Severity, signal.Direction)

			// 3a. Buy-side entry.
			if signal.Direction == domain.DirectionBuy || signal.Direction == domain.DirectionMixed {
				size := sizer.Size(symbol, cfg.BasePositionSize)
				shares := size / price
				book.Open(shares, price, bar.Date)
				invested += size
				logTrade(domain.TradeRecord{
					Symbol:     symbol,
					StrategyID: e.strategy.ID(),
					Date:       bar.Date,
					Type:       domain.TradeTypeBuy,
					Price:      price,
					Shares:     shares,
					Reason:     domain.ReasonSignal,
				})
				result.Summary.Buys++
				e.tracef("%s %s: BUY %.4f shares at %.2f (size %.2f)", symbol, bar.Date, shares, price, size)
			}

			// 3b. Overbought profit taking trims the smallest lot only.
			if (signal.Direction == domain.DirectionSell || signal.Direction == domain.DirectionMixed) &&
				book.OpenCount() > 0 && signal.Severity >= cfg.StrongSellSeverity {
				lot := book.Smallest()
				c := book.PartialClose(lot, lot.Shares*cfg.OverboughtFraction, price)
				result.Summary.OverboughtSells++
				recordClose(c, bar.Date)
				e.tracef("%s %s: OVERBOUGHT trim %.4f shares at %.2f", symbol, bar.Date, c.Shares, c.Price)
			}
		}

		// Track drawdown on the running position value.
		value := proceeds + book.UnrealizedValue(price)
		if value > peak {
			peak = value
		}
		if peak > 0 {
			if dd := (peak - value) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	final := bars[len(bars)-1].Close
	for _, lot := range book.Lots() {
		result.OpenLots = append(result.OpenLots, *lot)
	}

	s := &result.Summary
	s.TotalTrades = len(result.Trades)
	s.TotalInvested = invested
	s.RealizedProceeds = proceeds
	s.SharesRemaining = book.TotalShares()
	s.FinalPrice = final
	s.UnrealizedValue = book.UnrealizedValue(final)
	s.TotalValue = s.UnrealizedValue + s.RealizedProceeds
	s.ProfitLoss = s.TotalValue - s.TotalInvested
	s.MaxDrawdown = maxDrawdown
	if s.TotalInvested > 0 {
		s.ReturnPct = s.ProfitLoss / s.TotalInvested * 100
	}
	return result
}

func (e *Engine) tracef(format string, args ...any) {
	if e.trace != nil {
		e.trace(format, args...)
	}
}
