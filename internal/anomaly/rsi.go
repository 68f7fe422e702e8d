package anomaly

import "equity-anomaly-lab/internal/domain"

// relativeStrengthIndex computes RSI over the period close-to-close deltas
// ending at bar index i. The second return value is false when there is not
// enough history or the average loss is zero (RSI undefined).
func relativeStrengthIndex(bars []domain.Bar, i, period int) (float64, bool) {
	if i < period {
		return 0, false
	}
	var gainSum, lossSum float64
	for j := i - period + 1; j <= i; j++ {
		delta := bars[j].Close - bars[j-1].Close
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 0, false
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
