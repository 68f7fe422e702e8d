package reporting

import (
	"context"
	"sort"
	"time"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	barStore         storage.BarStore
	tradeRecordStore storage.TradeRecordStore
	aggregateStore   storage.StrategyAggregateStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	barStore storage.BarStore,
	tradeStore storage.TradeRecordStore,
	aggStore storage.StrategyAggregateStore,
) *Generator {
	return &Generator{
		barStore:         barStore,
		tradeRecordStore: tradeStore,
		aggregateStore:   aggStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report from the stores.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	aggs, err := g.aggregateStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	dataSummary, err := g.generateDataSummary(ctx, aggs)
	if err != nil {
		return nil, err
	}

	breakdown, err := g.generateTradeBreakdown(ctx, aggs)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:    g.now(),
		StrategyCount:  len(aggs),
		DataSummary:    *dataSummary,
		StrategyRows:   generateStrategyRows(aggs),
		TradeBreakdown: breakdown,
	}, nil
}

// generateDataSummary computes the bar universe summary.
func (g *Generator) generateDataSummary(ctx context.Context, aggs []*domain.StrategyAggregate) (*DataSummary, error) {
	symbols, err := g.barStore.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DataSummary{TotalSymbols: len(symbols)}

	for _, symbol := range symbols {
		bars, err := g.barStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			continue
		}
		summary.TotalBars += len(bars)

		// Bars come back ordered by date, ISO dates compare lexically.
		first, last := bars[0].Date, bars[len(bars)-1].Date
		if summary.DateRangeStart == "" || first < summary.DateRangeStart {
			summary.DateRangeStart = first
		}
		if last > summary.DateRangeEnd {
			summary.DateRangeEnd = last
		}
	}

	for _, agg := range aggs {
		summary.TotalTrades += agg.TotalTrades
	}

	return summary, nil
}

// generateStrategyRows builds the leaderboard sorted by composite score.
func generateStrategyRows(aggs []*domain.StrategyAggregate) []StrategyRow {
	rows := make([]StrategyRow, len(aggs))
	for i, agg := range aggs {
		rows[i] = StrategyRow{
			StrategyID:     agg.StrategyID,
			SymbolsTested:  agg.SymbolsTested,
			SymbolsSkipped: agg.SymbolsSkipped,
			TotalTrades:    agg.TotalTrades,
			TotalInvested:  agg.TotalInvested,
			TotalValue:     agg.TotalValue,
			ReturnPct:      agg.ReturnPct,
			Consistency:    agg.Consistency,
			MaxDrawdown:    agg.MaxDrawdown,
			CompositeScore: agg.CompositeScore,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CompositeScore != rows[j].CompositeScore {
			return rows[i].CompositeScore > rows[j].CompositeScore
		}
		return rows[i].StrategyID < rows[j].StrategyID
	})
	return rows
}

// generateTradeBreakdown loads each strategy's trades and counts them by
// type and sell reason.
func (g *Generator) generateTradeBreakdown(ctx context.Context, aggs []*domain.StrategyAggregate) ([]TradeBreakdownRow, error) {
	rows := make([]TradeBreakdownRow, 0, len(aggs))

	for _, agg := range aggs {
		trades, err := g.tradeRecordStore.GetByStrategy(ctx, agg.StrategyID)
		if err != nil {
			return nil, err
		}

		row := TradeBreakdownRow{StrategyID: agg.StrategyID}
		for _, trade := range trades {
			switch trade.Type {
			case domain.TradeTypeBuy:
				row.Buys++
			case domain.TradeTypeSell:
				row.Sells++
				row.TotalRealizedProfit += trade.RealizedProfit
				switch trade.Reason {
				case domain.ReasonSignal:
					row.SignalSells++
				case domain.ReasonStopLoss:
					row.StopLosses++
				case domain.ReasonTrailingStop:
					row.TrailingStops++
				case domain.ReasonOverboughtPartial:
					row.OverboughtSells++
				}
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StrategyID < rows[j].StrategyID
	})
	return rows, nil
}

// SymbolRows converts a portfolio result into per-symbol report rows,
// sorted by symbol.
func SymbolRows(p *domain.PortfolioResult) []SymbolRow {
	rows := make([]SymbolRow, len(p.SymbolResults))
	for i, s := range p.SymbolResults {
		rows[i] = SymbolRow{
			Symbol:               s.Symbol,
			Skipped:              s.Skipped,
			Trades:               s.TotalTrades,
			Buys:                 s.Buys,
			Sells:                s.Sells,
			Invested:             s.TotalInvested,
			Value:                s.TotalValue,
			ProfitLoss:           s.ProfitLoss,
			ReturnPct:            s.ReturnPct,
			MaxDrawdown:          s.MaxDrawdown,
			StopLossTriggers:     s.StopLossTriggers,
			TrailingStopTriggers: s.TrailingStopTriggers,
			OverboughtSells:      s.OverboughtSells,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}
