package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategies: %d\n\n", r.StrategyCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Symbols | %d |\n", r.DataSummary.TotalSymbols))
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.DataSummary.TotalBars))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	// Strategy Leaderboard
	sb.WriteString("## Strategy Leaderboard\n\n")
	if len(r.StrategyRows) > 0 {
		sb.WriteString("| Strategy | Tested | Skipped | Trades | Invested | Value | Return% | Consistency | MaxDD | Composite |\n")
		sb.WriteString("|----------|--------|---------|--------|----------|-------|---------|-------------|-------|----------|\n")
		for _, row := range r.StrategyRows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f | %.2f | %.4f | %.4f | %.4f | %.4f |\n",
				row.StrategyID, row.SymbolsTested, row.SymbolsSkipped, row.TotalTrades,
				row.TotalInvested, row.TotalValue, row.ReturnPct,
				row.Consistency, row.MaxDrawdown, row.CompositeScore))
		}
	} else {
		sb.WriteString("No strategy results available.\n")
	}
	sb.WriteString("\n")

	// Trade Breakdown
	sb.WriteString("## Trade Breakdown\n\n")
	if len(r.TradeBreakdown) > 0 {
		sb.WriteString("| Strategy | Buys | Sells | Signal | StopLoss | Trailing | Overbought | Realized P/L |\n")
		sb.WriteString("|----------|------|-------|--------|----------|----------|------------|-------------|\n")
		for _, row := range r.TradeBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d | %d | %d | %.2f |\n",
				row.StrategyID, row.Buys, row.Sells,
				row.SignalSells, row.StopLosses, row.TrailingStops,
				row.OverboughtSells, row.TotalRealizedProfit))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderSymbolMarkdown renders per-symbol backtest rows as a Markdown table.
func RenderSymbolMarkdown(rows []SymbolRow) string {
	var sb strings.Builder

	sb.WriteString("## Per-Symbol Results\n\n")
	if len(rows) == 0 {
		sb.WriteString("No symbols simulated.\n\n")
		return sb.String()
	}

	sb.WriteString("| Symbol | Trades | Buys | Sells | Invested | Value | P/L | Return% | MaxDD | SL | TS | OB |\n")
	sb.WriteString("|--------|--------|------|-------|----------|-------|-----|---------|-------|----|----|----|\n")
	for _, r := range rows {
		if r.Skipped {
			sb.WriteString(fmt.Sprintf("| %s | skipped | - | - | - | - | - | - | - | - | - | - |\n", r.Symbol))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f | %.2f | %.2f | %.4f | %.4f | %d | %d | %d |\n",
			r.Symbol, r.Trades, r.Buys, r.Sells,
			r.Invested, r.Value, r.ProfitLoss, r.ReturnPct, r.MaxDrawdown,
			r.StopLossTriggers, r.TrailingStopTriggers, r.OverboughtSells))
	}
	sb.WriteString("\n")

	return sb.String()
}
