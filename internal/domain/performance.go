package domain

// PerformanceRecord tracks the win/loss record of closed lots for one
// symbol. Counts only ever increase; the record feeds position sizing.
type PerformanceRecord struct {
	Wins   int // closed lots with positive realized profit
	Losses int // closed lots with zero or negative realized profit
}

// Total returns the number of recorded closes.
func (p PerformanceRecord) Total() int {
	return p.Wins + p.Losses
}

// WinRate returns wins / total, or 0 with no history.
func (p PerformanceRecord) WinRate() float64 {
	total := p.Total()
	if total == 0 {
		return 0
	}
	return float64(p.Wins) / float64(total)
}
