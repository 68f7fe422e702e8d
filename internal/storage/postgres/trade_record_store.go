package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-anomaly-lab/internal/domain"
	"equity-anomaly-lab/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const insertTradeRecordSQL = `
	INSERT INTO trade_records (
		trade_id, symbol, strategy_id,
		trade_date, trade_type, price, shares, reason, realized_profit
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, $8, $9
	)
`

const selectTradeRecordColumns = `
	trade_id, symbol, strategy_id,
	trade_date, trade_type, price, shares, reason, realized_profit
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeRecordSQL,
		t.TradeID, t.Symbol, t.StrategyID,
		t.Date, t.Type, t.Price, t.Shares, t.Reason, t.RealizedProfit,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertTradeRecordSQL,
			t.TradeID, t.Symbol, t.StrategyID,
			t.Date, t.Type, t.Price, t.Shares, t.Reason, t.RealizedProfit,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `
		SELECT ` + selectTradeRecordColumns + `
		FROM trade_records
		WHERE trade_id = $1
	`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetBySymbol retrieves all trades for a strategy/symbol pair, ordered by date ASC.
func (s *TradeRecordStore) GetBySymbol(ctx context.Context, strategyID, symbol string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + selectTradeRecordColumns + `
		FROM trade_records
		WHERE strategy_id = $1 AND symbol = $2
		ORDER BY trade_date ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID, symbol)
	if err != nil {
		return nil, fmt.Errorf("get trade records by symbol: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByStrategy retrieves all trades for a strategy, ordered by (symbol, date) ASC.
func (s *TradeRecordStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + selectTradeRecordColumns + `
		FROM trade_records
		WHERE strategy_id = $1
		ORDER BY symbol ASC, trade_date ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get trade records by strategy: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	err := row.Scan(
		&t.TradeID, &t.Symbol, &t.StrategyID,
		&t.Date, &t.Type, &t.Price, &t.Shares, &t.Reason, &t.RealizedProfit,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTradeRecords scans all rows into TradeRecords.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var result []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade records: %w", err)
	}
	return result, nil
}
