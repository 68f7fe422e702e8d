package marketdata

import (
	"context"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/portfolio"
	"equity-anomaly-lab/internal/storage"
)

// StoreSource serves bar series out of a storage.BarStore.
type StoreSource struct {
	store storage.BarStore
}

// NewStoreSource creates a bar source backed by a bar store.
func NewStoreSource(store storage.BarStore) *StoreSource {
	return &StoreSource{store: store}
}

var _ portfolio.BarSource = (*StoreSource)(nil)

// GetBars returns the full series for a symbol, date ascending.
func (s *StoreSource) GetBars(ctx context.Context, symbol string) ([]domain.Bar, error) {
	stored, err := s.store.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bars := make([]domain.Bar, len(stored))
	for i, b := range stored {
		bars[i] = *b
	}
	return bars, nil
}

// GetBarsRange returns the bars with from <= date <= to through the store's
// range query. Empty bounds do not constrain.
func (s *StoreSource) GetBarsRange(ctx context.Context, symbol, from, to string) ([]domain.Bar, error) {
	if from == "" && to == "" {
		return s.GetBars(ctx, symbol)
	}
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	stored, err := s.store.GetByDateRange(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	bars := make([]domain.Bar, len(stored))
	for i, b := range stored {
		bars[i] = *b
	}
	return bars, nil
}

// Symbols lists every symbol the underlying store holds bars for.
func (s *StoreSource) Symbols(ctx context.Context) ([]string, error) {
	return s.store.Symbols(ctx)
}

// StaticSource serves bar series out of an in-memory map. Used by replay
// and tests where no store is wired.
type StaticSource struct {
	series map[string][]domain.Bar
}

// NewStaticSource creates a source over fixed series keyed by symbol.
func NewStaticSource(series map[string][]domain.Bar) *StaticSource {
	copied := make(map[string][]domain.Bar, len(series))
	for symbol, bars := range series {
		copied[symbol] = append([]domain.Bar(nil), bars...)
	}
	return &StaticSource{series: copied}
}

var _ portfolio.BarSource = (*StaticSource)(nil)

// GetBars returns the fixed series for a symbol. Unknown symbols return an
// empty series, which the simulation reports as skipped.
func (s *StaticSource) GetBars(_ context.Context, symbol string) ([]domain.Bar, error) {
	return append([]domain.Bar(nil), s.series[symbol]...), nil
}

// GetBarsRange returns the fixed series filtered to from <= date <= to,
// comparing ISO dates lexically. Empty bounds do not constrain.
func (s *StaticSource) GetBarsRange(_ context.Context, symbol, from, to string) ([]domain.Bar, error) {
	var bars []domain.Bar
	for _, bar := range s.series[symbol] {
		if from != "" && bar.Date < from {
			continue
		}
		if to != "" && bar.Date > to {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
