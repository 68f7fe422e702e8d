package domain

// Lot represents one open position tranche. A symbol may hold several
// concurrent lots when multiple buy signals fire before any exit.
type Lot struct {
	Symbol            string  // ticker symbol
	Shares            float64 // positive while open
	EntryPrice        float64 // fill price at open
	EntryDate         string  // ISO date of open
	HighWaterMark     float64 // highest close seen since entry, never decreases
	StopLossPrice     float64 // entry_price * (1 - stop_loss_pct), fixed for the lot's lifetime
	TrailingStopPrice float64 // high_water_mark * (1 - trailing_stop_pct), never decreases
}

// LotCloseEpsilon is the share threshold below which a partially closed lot
// is considered fully closed and removed.
const LotCloseEpsilon = 1e-4
