package domain

// AnomalySignal represents the detector's verdict at a single bar index.
// Derived purely from the lookback window ending at that bar; carries no
// state across bars.
type AnomalySignal struct {
	IsAnomaly bool     // any sub-check fired
	Kinds     []string // tags of fired checks, in evaluation order
	Severity  float64  // accumulated unitless score, non-negative
	Direction string   // BUY | SELL | MIXED | NONE
}

// Signal direction constants
const (
	DirectionBuy   = "BUY"
	DirectionSell  = "SELL"
	DirectionMixed = "MIXED"
	DirectionNone  = "NONE"
)

// Anomaly kind tags
const (
	KindOversold        = "oversold"
	KindOverbought      = "overbought"
	KindExtremeDrop     = "extreme_drop"
	KindExtremeRise     = "extreme_rise"
	KindVolatilitySpike = "volatility_spike"
	KindVolumeSpike     = "volume_spike"
	KindGapDown         = "gap_down"
	KindGapUp           = "gap_up"
	KindRSIOversold     = "rsi_oversold"
	KindRSIOverbought   = "rsi_overbought"
)

// HasKind reports whether the signal carries the given tag.
func (s *AnomalySignal) HasKind(kind string) bool {
	for _, k := range s.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
