package anomaly

import (
	"equity-anomaly-lab/internal/domain"
)

// Detection thresholds
const (
	zScoreThreshold     = 2.0 // |z| beyond this flags oversold/overbought
	dailyChangeThresh   = 3.0 // day-over-day move in percent
	volatilityWindow    = 10  // trailing bars for the volatility baseline
	volatilityMult      = 2.0 // spike when |move| exceeds this many stddevs
	volumeRatioThresh   = 2.0 // volume above this multiple of the window mean
	gapThreshold        = 2.0 // open gap in percent
	rsiPeriod           = 14
	rsiOversoldThresh   = 30.0
	rsiOverboughtThresh = 70.0
)

// Detector evaluates whether a single bar is statistically anomalous.
// It is stateless: every call derives only from the lookback window ending
// at the requested index.
type Detector struct {
	lookback int
}

// NewDetector creates a detector with the given lookback window.
func NewDetector(lookback int) *Detector {
	if lookback <= 0 {
		lookback = domain.DefaultLookbackPeriod
	}
	return &Detector{lookback: lookback}
}

// Evaluate runs all sub-checks at bar index i and aggregates them into a
// severity score and a direction. It fails closed: insufficient history or
// a degenerate statistic (zero stddev, zero mean volume, zero previous
// close) makes the affected check not fire, never an error.
func (d *Detector) Evaluate(bars []domain.Bar, i int) domain.AnomalySignal {
	signal := domain.AnomalySignal{Direction: domain.DirectionNone}
	if i < d.lookback || i >= len(bars) {
		return signal
	}

	var buy, sell bool
	fire := func(kind string, severity float64, direction string) {
		signal.Kinds = append(signal.Kinds, kind)
		signal.Severity += severity
		switch direction {
		case domain.DirectionBuy:
			buy = true
		case domain.DirectionSell:
			sell = true
		}
	}

	closes := make([]float64, 0, d.lookback)
	volumes := make([]float64, 0, d.lookback)
	for _, b := range bars[i-d.lookback : i] {
		closes = append(closes, b.Close)
		volumes = append(volumes, b.Volume)
	}
	cur := bars[i]
	prevClose := bars[i-1].Close

	// 1. Price z-score over the lookback window.
	meanClose := mean(closes)
	stdClose := sampleStddev(closes)
	if stdClose > 0 {
		z := (cur.Close - meanClose) / stdClose
		switch {
		case z < -zScoreThreshold:
			fire(domain.KindOversold, abs(z), domain.DirectionBuy)
		case z > zScoreThreshold:
			fire(domain.KindOverbought, abs(z), domain.DirectionSell)
		}
	}

	// 2. Day-over-day change.
	var changePct float64
	if prevClose > 0 {
		changePct = (cur.Close - prevClose) / prevClose * 100
		switch {
		case changePct < -dailyChangeThresh:
			fire(domain.KindExtremeDrop, abs(changePct)/3, domain.DirectionBuy)
		case changePct > dailyChangeThresh:
			fire(domain.KindExtremeRise, abs(changePct)/3, domain.DirectionSell)
		}
	}

	// 3. Volatility spike: today's move against the trailing stddev of
	// daily moves. Direction-neutral.
	if prevClose > 0 {
		baseline := trailingChangeStddev(bars, i, volatilityWindow)
		if baseline > 0 && abs(changePct) > volatilityMult*baseline {
			fire(domain.KindVolatilitySpike, 1, domain.DirectionNone)
		}
	}

	// 4. Volume ratio against the window mean. Direction-neutral.
	meanVolume := mean(volumes)
	if meanVolume > 0 && cur.Volume/meanVolume > volumeRatioThresh {
		fire(domain.KindVolumeSpike, 1, domain.DirectionNone)
	}

	// 5. Overnight gap between today's open and yesterday's close.
	if prevClose > 0 {
		gapPct := (cur.Open - prevClose) / prevClose * 100
		switch {
		case gapPct < -gapThreshold:
			fire(domain.KindGapDown, abs(gapPct)/2, domain.DirectionBuy)
		case gapPct > gapThreshold:
			fire(domain.KindGapUp, abs(gapPct)/2, domain.DirectionSell)
		}
	}

	// 6. RSI(14) on closes through i.
	if rsi, ok := relativeStrengthIndex(bars, i, rsiPeriod); ok {
		switch {
		case rsi < rsiOversoldThresh:
			fire(domain.KindRSIOversold, (rsiOversoldThresh-rsi)/10, domain.DirectionBuy)
		case rsi > rsiOverboughtThresh:
			fire(domain.KindRSIOverbought, (rsi-rsiOverboughtThresh)/10, domain.DirectionSell)
		}
	}

	signal.IsAnomaly = len(signal.Kinds) > 0
	switch {
	case buy && sell:
		signal.Direction = domain.DirectionMixed
	case buy:
		signal.Direction = domain.DirectionBuy
	case sell:
		signal.Direction = domain.DirectionSell
	}
	return signal
}

// trailingChangeStddev computes the stddev of day-over-day percent changes
// over the window bars immediately before index i. Returns 0 when there is
// not enough history or a zero denominator appears.
func trailingChangeStddev(bars []domain.Bar, i, window int) float64 {
	if i < window+1 {
		return 0
	}
	changes := make([]float64, 0, window)
	for j := i - window; j < i; j++ {
		prev := bars[j-1].Close
		if prev <= 0 {
			return 0
		}
		changes = append(changes, (bars[j].Close-prev)/prev*100)
	}
	return sampleStddev(changes)
}
