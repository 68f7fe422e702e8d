package domain

// SymbolResult represents the outcome of simulating one symbol under one
// strategy. Invariant: TotalValue = UnrealizedValue + RealizedProceeds and
// ProfitLoss = TotalValue - TotalInvested.
type SymbolResult struct {
	Symbol     string
	StrategyID string

	// Counts
	TotalTrades int
	Buys        int
	Sells       int

	// Exit breakdown
	StopLossTriggers     int
	TrailingStopTriggers int
	OverboughtSells      int

	// Valuation
	TotalInvested    float64 // sum of buy price * shares
	RealizedProceeds float64 // sum of sell price * shares
	SharesRemaining  float64 // open shares at series end
	FinalPrice       float64 // last available close
	UnrealizedValue  float64 // shares_remaining * final_price
	TotalValue       float64 // unrealized + realized proceeds
	ProfitLoss       float64 // total_value - total_invested
	ReturnPct        float64 // profit_loss / total_invested * 100, 0 if nothing invested
	MaxDrawdown      float64 // worst peak-to-trough drop of position value during the run, as a fraction

	// Skipped is true when the symbol had too little history (or no data)
	// and was reported as all-zero without being simulated.
	Skipped bool
}

// PortfolioResult represents per-strategy results reduced across a symbol
// universe.
type PortfolioResult struct {
	StrategyID string

	SymbolResults []SymbolResult

	TotalTrades      int
	TotalInvested    float64
	TotalValue       float64
	OverallReturnPct float64 // (total_value - total_invested) / total_invested * 100
}
