package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

func testTrade(id, symbol, strategyID, date string) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:        id,
		Symbol:         symbol,
		StrategyID:     strategyID,
		Date:           date,
		Type:           domain.TradeTypeBuy,
		Price:          101.5,
		Shares:         9.85,
		Reason:         domain.ReasonSignal,
		RealizedProfit: 0,
	}
}

func TestTradeRecordStoreInsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	trade := testTrade("t1", "AAPL", "baseline", "2024-01-02")
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, trade, got)

	_, err = store.GetByID(ctx, "absent")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStoreDuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testTrade("t1", "AAPL", "baseline", "2024-01-02")))

	err := store.Insert(ctx, testTrade("t1", "AAPL", "baseline", "2024-01-03"))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeRecordStoreInsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testTrade("dup", "AAPL", "baseline", "2024-01-02")))

	err := store.InsertBulk(ctx, []*domain.TradeRecord{
		testTrade("t2", "AAPL", "baseline", "2024-01-03"),
		testTrade("dup", "AAPL", "baseline", "2024-01-04"),
	})
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The transaction rolled back: t2 must not exist.
	_, err = store.GetByID(ctx, "t2")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStoreGetByStrategyOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeRecord{
		testTrade("t3", "MSFT", "baseline", "2024-01-02"),
		testTrade("t2", "AAPL", "baseline", "2024-01-05"),
		testTrade("t1", "AAPL", "baseline", "2024-01-02"),
		testTrade("t4", "AAPL", "other", "2024-01-02"),
	}))

	got, err := store.GetByStrategy(ctx, "baseline")
	require.NoError(t, err)
	require.Len(t, got, 3)

	var ids []string
	for _, trade := range got {
		ids = append(ids, trade.TradeID)
	}
	require.Equal(t, []string{"t1", "t2", "t3"}, ids)
}

func TestTradeRecordStoreGetBySymbol(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeRecord{
		testTrade("t1", "AAPL", "baseline", "2024-01-05"),
		testTrade("t2", "AAPL", "baseline", "2024-01-02"),
		testTrade("t3", "MSFT", "baseline", "2024-01-02"),
	}))

	got, err := store.GetBySymbol(ctx, "baseline", "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "2024-01-02", got[0].Date)
	require.Equal(t, "2024-01-05", got[1].Date)
}

func TestTradeRecordStoreInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	store := NewTradeRecordStore(pool)

	err := store.Insert(context.Background(), &domain.TradeRecord{})
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}
