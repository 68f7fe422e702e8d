package storage

import (
	"context"

	"equity-anomaly-lab/internal/domain"
)

// BarStore provides access to daily bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars atomically. Fails entire batch on any
	// duplicate (symbol, date).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by date ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByDateRange retrieves bars for a symbol within [start, end]
	// (inclusive, ISO dates), ordered by date ASC.
	GetByDateRange(ctx context.Context, symbol, start, end string) ([]*domain.Bar, error)

	// Symbols retrieves all distinct symbols present, sorted ASC.
	Symbols(ctx context.Context) ([]string, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetBySymbol retrieves all trades for a strategy/symbol pair, ordered by date ASC.
	GetBySymbol(ctx context.Context, strategyID, symbol string) ([]*domain.TradeRecord, error)

	// GetByStrategy retrieves all trades for a strategy, ordered by (symbol, date) ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.TradeRecord, error)
}

// StrategyAggregateStore provides access to strategy_aggregates storage.
type StrategyAggregateStore interface {
	// Upsert inserts or replaces the aggregate for its strategy_id.
	// Search runs overwrite previous results for the same strategy.
	Upsert(ctx context.Context, a *domain.StrategyAggregate) error

	// GetByStrategy retrieves an aggregate by strategy ID. Returns ErrNotFound if not exists.
	GetByStrategy(ctx context.Context, strategyID string) (*domain.StrategyAggregate, error)

	// GetAll retrieves all aggregates, ordered by strategy_id ASC.
	GetAll(ctx context.Context) ([]*domain.StrategyAggregate, error)
}
