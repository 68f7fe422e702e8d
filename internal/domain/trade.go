package domain

// TradeRecord represents one executed buy or sell. Append-only: records are
// never mutated after being logged.
// Corresponds to the trade_records table in Postgres.
type TradeRecord struct {
	TradeID    string // deterministic hash
	Symbol     string // ticker symbol
	StrategyID string // strategy identifier

	Date   string  // ISO date of execution
	Type   string  // BUY | SELL
	Price  float64 // execution price
	Shares float64 // shares bought or sold
	Reason string  // reason code

	// RealizedProfit is shares * (exit_price - entry_price) for sells,
	// zero for buys.
	RealizedProfit float64
}

// Trade type constants
const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)

// Trade reason codes
const (
	ReasonSignal            = "SIGNAL"
	ReasonStopLoss          = "STOP_LOSS"
	ReasonTrailingStop      = "TRAILING_STOP"
	ReasonOverboughtPartial = "OVERBOUGHT_PARTIAL"
	ReasonEndOfPeriod       = "END_OF_PERIOD"
)
