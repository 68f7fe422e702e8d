package memory

import (
	"context"
	"sort"
	"sync"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

// StrategyAggregateStore is an in-memory implementation of storage.StrategyAggregateStore.
type StrategyAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StrategyAggregate // keyed by strategy_id
}

// NewStrategyAggregateStore creates a new in-memory strategy aggregate store.
func NewStrategyAggregateStore() *StrategyAggregateStore {
	return &StrategyAggregateStore{
		data: make(map[string]*domain.StrategyAggregate),
	}
}

// Compile-time interface check.
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)

// Upsert inserts or replaces the aggregate for its strategy_id.
func (s *StrategyAggregateStore) Upsert(_ context.Context, a *domain.StrategyAggregate) error {
	if a == nil || a.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *a
	s.data[a.StrategyID] = &copy
	return nil
}

// GetByStrategy retrieves an aggregate by strategy ID. Returns ErrNotFound if not exists.
func (s *StrategyAggregateStore) GetByStrategy(_ context.Context, strategyID string) (*domain.StrategyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[strategyID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *a
	return &copy, nil
}

// GetAll retrieves all aggregates, ordered by strategy_id ASC.
func (s *StrategyAggregateStore) GetAll(_ context.Context) ([]*domain.StrategyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.StrategyAggregate, 0, len(s.data))
	for _, a := range s.data {
		copy := *a
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StrategyID < result[j].StrategyID
	})
	return result, nil
}
