package memory

import (
	"context"
	"errors"
	"testing"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

func TestStrategyAggregateStoreUpsert(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, &domain.StrategyAggregate{StrategyID: "s1", ReturnPct: 5}); err != nil {
		t.Fatal(err)
	}
	// A second upsert replaces the row.
	if err := store.Upsert(ctx, &domain.StrategyAggregate{StrategyID: "s1", ReturnPct: 9}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetByStrategy(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ReturnPct != 9 {
		t.Errorf("expected upsert to replace, got return %f", got.ReturnPct)
	}
}

func TestStrategyAggregateStoreNotFound(t *testing.T) {
	store := NewStrategyAggregateStore()
	if _, err := store.GetByStrategy(context.Background(), "absent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStrategyAggregateStoreGetAllSorted(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Upsert(ctx, &domain.StrategyAggregate{StrategyID: id}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 aggregates, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].StrategyID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].StrategyID)
		}
	}
}

func TestStrategyAggregateStoreInvalidInput(t *testing.T) {
	store := NewStrategyAggregateStore()
	if err := store.Upsert(context.Background(), &domain.StrategyAggregate{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStrategyAggregateStoreReturnsCopies(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, &domain.StrategyAggregate{StrategyID: "s1", ReturnPct: 5}); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByStrategy(ctx, "s1")
	got.ReturnPct = 100

	again, _ := store.GetByStrategy(ctx, "s1")
	if again.ReturnPct != 5 {
		t.Error("mutating a returned aggregate must not change the store")
	}
}
