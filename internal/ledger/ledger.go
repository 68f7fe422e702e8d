// Package ledger tracks open position lots for a single symbol and applies
// the stop-loss and trailing-stop lifecycle rules.
package ledger

import (
	"equity-anomaly-lab/internal/domain"
)

// Closure describes one realized close (full or partial) of a lot.
type Closure struct {
	Lot      domain.Lot // lot state at close time
	Shares   float64    // shares closed
	Price    float64    // execution price
	Reason   string     // STOP_LOSS | TRAILING_STOP | OVERBOUGHT_PARTIAL | SIGNAL
	Realized float64    // shares * (price - entry_price)
}

// Win reports whether the closure realized a positive profit.
func (c Closure) Win() bool {
	return c.Realized > 0
}

// Ledger owns the open lots of one symbol. It is not safe for concurrent
// use; each simulation run confines its ledger to a single goroutine.
type Ledger struct {
	symbol   string
	stopPct  float64
	trailPct float64
	lots     []*domain.Lot
}

// New creates an empty ledger for symbol with the given stop percentages.
func New(symbol string, stopPct, trailPct float64) *Ledger {
	return &Ledger{symbol: symbol, stopPct: stopPct, trailPct: trailPct}
}

// Open creates a new lot at the given fill price. The stop-loss level is
// fixed at creation; the trailing stop starts at the same distance and only
// ever rises from there.
func (l *Ledger) Open(shares, price float64, date string) *domain.Lot {
	lot := &domain.Lot{
		Symbol:            l.symbol,
		Shares:            shares,
		EntryPrice:        price,
		EntryDate:         date,
		HighWaterMark:     price,
		StopLossPrice:     price * (1 - l.stopPct),
		TrailingStopPrice: price * (1 - l.trailPct),
	}
	l.lots = append(l.lots, lot)
	return lot
}

// Mark updates every open lot's high-water mark and trailing stop for the
// current price. Called once per bar before exits are evaluated. The
// trailing stop never lowers.
func (l *Ledger) Mark(price float64) {
	for _, lot := range l.lots {
		if price > lot.HighWaterMark {
			lot.HighWaterMark = price
			lot.TrailingStopPrice = price * (1 - l.trailPct)
		}
	}
}

// SweepExits evaluates stop rules for every open lot at the current price
// and fully closes those that trigger. Stop-loss takes priority over the
// trailing stop when both would fire on the same bar. Surviving lots are
// collected into a fresh slice so removal never happens mid-iteration.
func (l *Ledger) SweepExits(price float64) []Closure {
	var closed []Closure
	kept := l.lots[:0:0]
	for _, lot := range l.lots {
		reason := ""
		switch {
		case price <= lot.StopLossPrice:
			reason = domain.ReasonStopLoss
		case price <= lot.TrailingStopPrice:
			reason = domain.ReasonTrailingStop
		}
		if reason == "" {
			kept = append(kept, lot)
			continue
		}
		closed = append(closed, Closure{
			Lot:      *lot,
			Shares:   lot.Shares,
			Price:    price,
			Reason:   reason,
			Realized: lot.Shares * (price - lot.EntryPrice),
		})
	}
	l.lots = kept
	return closed
}

// Close fully closes one lot at price with the given reason. Used when the
// exit decision was made at a different price than the execution, so the
// caller names the lots rather than re-evaluating the stop rules.
func (l *Ledger) Close(lot *domain.Lot, price float64, reason string) Closure {
	closure := Closure{
		Lot:      *lot,
		Shares:   lot.Shares,
		Price:    price,
		Reason:   reason,
		Realized: lot.Shares * (price - lot.EntryPrice),
	}
	l.remove(lot)
	return closure
}

// PartialClose sells the given number of shares out of lot at price. The
// lot is removed entirely if its remainder falls below the close epsilon.
func (l *Ledger) PartialClose(lot *domain.Lot, shares, price float64) Closure {
	if shares > lot.Shares {
		shares = lot.Shares
	}
	closure := Closure{
		Lot:      *lot,
		Shares:   shares,
		Price:    price,
		Reason:   domain.ReasonOverboughtPartial,
		Realized: shares * (price - lot.EntryPrice),
	}
	lot.Shares -= shares
	if lot.Shares < domain.LotCloseEpsilon {
		l.remove(lot)
	}
	return closure
}

// CloseAll fully closes every open lot at price with the given reason.
// Used for terminal valuation at the end of a backtest period.
func (l *Ledger) CloseAll(price float64, reason string) []Closure {
	closed := make([]Closure, 0, len(l.lots))
	for _, lot := range l.lots {
		closed = append(closed, Closure{
			Lot:      *lot,
			Shares:   lot.Shares,
			Price:    price,
			Reason:   reason,
			Realized: lot.Shares * (price - lot.EntryPrice),
		})
	}
	l.lots = nil
	return closed
}

// Smallest returns the open lot with the fewest shares, or nil when the
// ledger is empty.
func (l *Ledger) Smallest() *domain.Lot {
	var smallest *domain.Lot
	for _, lot := range l.lots {
		if smallest == nil || lot.Shares < smallest.Shares {
			smallest = lot
		}
	}
	return smallest
}

// Lots returns the open lots. The returned slice is a copy; the lots it
// points at are live.
func (l *Ledger) Lots() []*domain.Lot {
	out := make([]*domain.Lot, len(l.lots))
	copy(out, l.lots)
	return out
}

// OpenCount returns the number of open lots.
func (l *Ledger) OpenCount() int {
	return len(l.lots)
}

// TotalShares sums shares across all open lots.
func (l *Ledger) TotalShares() float64 {
	total := 0.0
	for _, lot := range l.lots {
		total += lot.Shares
	}
	return total
}

// UnrealizedValue values all open lots at the given price.
func (l *Ledger) UnrealizedValue(price float64) float64 {
	return l.TotalShares() * price
}

func (l *Ledger) remove(target *domain.Lot) {
	kept := l.lots[:0:0]
	for _, lot := range l.lots {
		if lot != target {
			kept = append(kept, lot)
		}
	}
	l.lots = kept
}
