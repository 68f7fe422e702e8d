// Package sizing maps a symbol's realized win/loss record to a position
// size multiplier.
package sizing

import (
	"equity-anomaly-lab/internal/domain"
)

// Win-rate tiers for the sizing multiplier
const (
	strongWinRate = 0.6
	evenWinRate   = 0.5
	weakWinRate   = 0.4

	strongMultiplier  = 1.2
	neutralMultiplier = 1.0
	weakMultiplier    = 0.8
	poorMultiplier    = 0.6
)

// Table holds per-symbol performance records. Each simulation run owns its
// own table; nothing is shared across symbols or runs.
type Table struct {
	records map[string]*domain.PerformanceRecord
}

// NewTable creates an empty performance table.
func NewTable() *Table {
	return &Table{records: make(map[string]*domain.PerformanceRecord)}
}

// Record adds one realized close to the symbol's record.
func (t *Table) Record(symbol string, win bool) {
	rec, ok := t.records[symbol]
	if !ok {
		rec = &domain.PerformanceRecord{}
		t.records[symbol] = rec
	}
	if win {
		rec.Wins++
	} else {
		rec.Losses++
	}
}

// Get returns a copy of the symbol's performance record. A symbol with no
// history returns the zero record.
func (t *Table) Get(symbol string) domain.PerformanceRecord {
	if rec, ok := t.records[symbol]; ok {
		return *rec
	}
	return domain.PerformanceRecord{}
}

// Multiplier returns the sizing multiplier for a performance record.
// With no history the multiplier is neutral.
func Multiplier(rec domain.PerformanceRecord) float64 {
	if rec.Total() == 0 {
		return neutralMultiplier
	}
	winRate := rec.WinRate()
	switch {
	case winRate >= strongWinRate:
		return strongMultiplier
	case winRate >= evenWinRate:
		return neutralMultiplier
	case winRate >= weakWinRate:
		return weakMultiplier
	default:
		return poorMultiplier
	}
}

// Sizer scales a base position size by the symbol's historical win rate.
// It is a pure read over the table; callers record closes themselves.
type Sizer struct {
	table *Table
}

// NewSizer creates a sizer over the given performance table.
func NewSizer(table *Table) *Sizer {
	return &Sizer{table: table}
}

// Size returns base scaled by the symbol's multiplier.
func (s *Sizer) Size(symbol string, base float64) float64 {
	return base * Multiplier(s.table.Get(symbol))
}
