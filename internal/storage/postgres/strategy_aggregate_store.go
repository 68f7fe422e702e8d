package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

// StrategyAggregateStore implements storage.StrategyAggregateStore using PostgreSQL.
type StrategyAggregateStore struct {
	pool *Pool
}

// NewStrategyAggregateStore creates a new StrategyAggregateStore.
func NewStrategyAggregateStore(pool *Pool) *StrategyAggregateStore {
	return &StrategyAggregateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)

const selectAggregateColumns = `
	strategy_id, symbols_tested, symbols_skipped, total_trades,
	total_invested, total_value, return_pct,
	consistency, max_drawdown, composite_score
`

// Upsert inserts or replaces the aggregate for its strategy_id.
func (s *StrategyAggregateStore) Upsert(ctx context.Context, a *domain.StrategyAggregate) error {
	if a == nil || a.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO strategy_aggregates (
			strategy_id, symbols_tested, symbols_skipped, total_trades,
			total_invested, total_value, return_pct,
			consistency, max_drawdown, composite_score
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10
		)
		ON CONFLICT (strategy_id) DO UPDATE SET
			symbols_tested = EXCLUDED.symbols_tested,
			symbols_skipped = EXCLUDED.symbols_skipped,
			total_trades = EXCLUDED.total_trades,
			total_invested = EXCLUDED.total_invested,
			total_value = EXCLUDED.total_value,
			return_pct = EXCLUDED.return_pct,
			consistency = EXCLUDED.consistency,
			max_drawdown = EXCLUDED.max_drawdown,
			composite_score = EXCLUDED.composite_score
	`

	_, err := s.pool.Exec(ctx, query,
		a.StrategyID, a.SymbolsTested, a.SymbolsSkipped, a.TotalTrades,
		a.TotalInvested, a.TotalValue, a.ReturnPct,
		a.Consistency, a.MaxDrawdown, a.CompositeScore,
	)
	if err != nil {
		return fmt.Errorf("upsert strategy aggregate: %w", err)
	}
	return nil
}

// GetByStrategy retrieves an aggregate by strategy ID. Returns ErrNotFound if not exists.
func (s *StrategyAggregateStore) GetByStrategy(ctx context.Context, strategyID string) (*domain.StrategyAggregate, error) {
	query := `
		SELECT ` + selectAggregateColumns + `
		FROM strategy_aggregates
		WHERE strategy_id = $1
	`

	row := s.pool.QueryRow(ctx, query, strategyID)
	a, err := scanStrategyAggregate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy aggregate: %w", err)
	}
	return a, nil
}

// GetAll retrieves all aggregates, ordered by strategy_id ASC.
func (s *StrategyAggregateStore) GetAll(ctx context.Context) ([]*domain.StrategyAggregate, error) {
	query := `
		SELECT ` + selectAggregateColumns + `
		FROM strategy_aggregates
		ORDER BY strategy_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all strategy aggregates: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategyAggregate
	for rows.Next() {
		a, err := scanStrategyAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy aggregate: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy aggregates: %w", err)
	}
	return result, nil
}

// scanStrategyAggregate scans a single row into a StrategyAggregate.
func scanStrategyAggregate(row pgx.Row) (*domain.StrategyAggregate, error) {
	var a domain.StrategyAggregate
	err := row.Scan(
		&a.StrategyID, &a.SymbolsTested, &a.SymbolsSkipped, &a.TotalTrades,
		&a.TotalInvested, &a.TotalValue, &a.ReturnPct,
		&a.Consistency, &a.MaxDrawdown, &a.CompositeScore,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
