package orchestrator

import (
	"context"
	"fmt"
	"time"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

// LoadFixtures populates the bar store with demo data: three symbols whose
// series exercise the full signal surface (an oversold dip, an overbought
// spike and a quiet control).
func LoadFixtures(ctx context.Context, barStore storage.BarStore) error {
	fixtures := map[string][]float64{
		"DIPX": fixtureSeries(60, 100, 1, map[int]float64{40: 0.90, 41: 0.92}),
		"SPKY": fixtureSeries(60, 50, 0.5, map[int]float64{45: 1.12}),
		"FLAT": fixtureSeries(60, 75, 0.2, nil),
	}

	for symbol, closes := range fixtures {
		if err := barStore.InsertBulk(ctx, fixtureBars(symbol, closes)); err != nil {
			return fmt.Errorf("load fixture %s: %w", symbol, err)
		}
	}
	return nil
}

// fixtureSeries builds an alternating series around base and applies shock
// multipliers at the given indexes, relative to the base.
func fixtureSeries(n int, base, delta float64, shocks map[int]float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = base + delta
		} else {
			closes[i] = base - delta
		}
		if mult, ok := shocks[i]; ok {
			closes[i] = base * mult
		}
	}
	return closes
}

func fixtureBars(symbol string, closes []float64) []*domain.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = &domain.Bar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   open,
			High:   max(open, c),
			Low:    min(open, c),
			Close:  c,
			Volume: 100000,
		}
	}
	return bars
}
