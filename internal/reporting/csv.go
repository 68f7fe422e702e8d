package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the strategy leaderboard as a CSV string.
func RenderCSV(rows []StrategyRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("strategy_id,symbols_tested,symbols_skipped,total_trades,")
	sb.WriteString("total_invested,total_value,return_pct,consistency,")
	sb.WriteString("max_drawdown,composite_score\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.2f,%.2f,%.6f,%.6f,%.6f,%.6f\n",
			r.StrategyID,
			r.SymbolsTested,
			r.SymbolsSkipped,
			r.TotalTrades,
			r.TotalInvested,
			r.TotalValue,
			r.ReturnPct,
			r.Consistency,
			r.MaxDrawdown,
			r.CompositeScore,
		))
	}

	return sb.String()
}

// RenderSymbolCSV renders per-symbol backtest rows as a CSV string.
func RenderSymbolCSV(rows []SymbolRow) string {
	var sb strings.Builder

	sb.WriteString("symbol,skipped,trades,buys,sells,invested,value,profit_loss,")
	sb.WriteString("return_pct,max_drawdown,stop_loss_triggers,trailing_stop_triggers,overbought_sells\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%t,%d,%d,%d,%.2f,%.2f,%.2f,%.6f,%.6f,%d,%d,%d\n",
			r.Symbol,
			r.Skipped,
			r.Trades,
			r.Buys,
			r.Sells,
			r.Invested,
			r.Value,
			r.ProfitLoss,
			r.ReturnPct,
			r.MaxDrawdown,
			r.StopLossTriggers,
			r.TrailingStopTriggers,
			r.OverboughtSells,
		))
	}

	return sb.String()
}
