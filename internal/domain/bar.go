package domain

// Bar represents one daily OHLCV bar for one symbol.
// Corresponds to the bars table in ClickHouse.
type Bar struct {
	Symbol string  // ticker symbol
	Date   string  // trading day, ISO format (YYYY-MM-DD)
	Open   float64 // opening price
	High   float64 // intraday high
	Low    float64 // intraday low
	Close  float64 // closing price
	Volume float64 // total shares traded
}
