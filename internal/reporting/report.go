package reporting

import "time"

// Report represents the backtest report structure.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	StrategyCount int

	// Data Summary
	DataSummary DataSummary

	// Strategy Leaderboard (sorted by composite_score desc, strategy_id asc)
	StrategyRows []StrategyRow

	// Trade Breakdown (per strategy, counts by trade type and exit reason)
	TradeBreakdown []TradeBreakdownRow
}

// DataSummary describes the bar universe and total trading activity.
type DataSummary struct {
	TotalSymbols   int
	TotalBars      int
	TotalTrades    int
	DateRangeStart string // ISO date
	DateRangeEnd   string // ISO date
}

// StrategyRow represents one row in the strategy leaderboard table.
type StrategyRow struct {
	StrategyID     string
	SymbolsTested  int
	SymbolsSkipped int
	TotalTrades    int
	TotalInvested  float64
	TotalValue     float64
	ReturnPct      float64
	Consistency    float64
	MaxDrawdown    float64
	CompositeScore float64
}

// TradeBreakdownRow counts trades by type and sell reason for one strategy.
type TradeBreakdownRow struct {
	StrategyID          string
	Buys                int
	Sells               int
	SignalSells         int
	StopLosses          int
	TrailingStops       int
	OverboughtSells     int
	TotalRealizedProfit float64
}

// SymbolRow represents one per-symbol row of a single backtest run.
type SymbolRow struct {
	Symbol               string
	Skipped              bool
	Trades               int
	Buys                 int
	Sells                int
	Invested             float64
	Value                float64
	ProfitLoss           float64
	ReturnPct            float64
	MaxDrawdown          float64
	StopLossTriggers     int
	TrailingStopTriggers int
	OverboughtSells      int
}
