package domain

// StrategyConfig represents the full parameter set of one anomaly strategy.
// Zero-valued fields are filled with defaults by the strategy factory.
type StrategyConfig struct {
	StrategyID string `yaml:"strategy_id"`

	// Detection
	LookbackPeriod int     `yaml:"lookback_period"` // window for mean/stddev/volume stats
	MinSeverity    float64 `yaml:"min_severity"`    // minimum severity to act on a signal

	// Risk
	StopLossPct     float64 `yaml:"stop_loss_pct"`     // fixed stop below entry
	TrailingStopPct float64 `yaml:"trailing_stop_pct"` // trail below high-water mark

	// Sizing
	BasePositionSize float64 `yaml:"base_position_size"` // dollars per entry before the sizer multiplier

	// Profit taking
	StrongSellSeverity float64 `yaml:"strong_sell_severity"` // severity gate for overbought partial sells
	OverboughtFraction float64 `yaml:"overbought_fraction"`  // fraction of the smallest lot sold

	// Data sufficiency
	MinBarsRequired int `yaml:"min_bars_required"` // symbols with fewer bars are skipped
}

// Default strategy parameters
const (
	DefaultLookbackPeriod     = 20
	DefaultMinSeverity        = 1.0
	DefaultStopLossPct        = 0.05
	DefaultTrailingStopPct    = 0.05
	DefaultBasePositionSize   = 1000.0
	DefaultStrongSellSeverity = 3.0
	DefaultOverboughtFraction = 0.25
	DefaultMinBarsRequired    = 30
)

// StrategyAggregate represents per-strategy metrics reduced across the
// symbol universe, used to rank strategies in search mode.
// Corresponds to the strategy_aggregates table in Postgres.
type StrategyAggregate struct {
	StrategyID string

	// Counts
	SymbolsTested  int
	SymbolsSkipped int
	TotalTrades    int

	// Portfolio valuation
	TotalInvested float64
	TotalValue    float64
	ReturnPct     float64

	// Ranking inputs
	Consistency    float64 // population stddev of per-symbol return_pct
	MaxDrawdown    float64 // worst peak-to-trough drop within any single symbol run
	CompositeScore float64 // return_pct * consistency_factor * trade_count_penalty
}
