package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	mint, tx_signature, trader, side, sol_amount, token_amount,
	market_cap_sol, timestamp, created_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if tx_signature exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeEvent) error {
	if t == nil || t.Mint == "" || t.TxSignature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Mint,
		t.TxSignature,
		t.Trader,
		t.Side,
		t.SOLAmount,
		t.TokenAmount,
		t.MarketCapSOL,
		t.Timestamp,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByMint retrieves all trades for a mint, ordered by timestamp ASC.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE mint = $1
		ORDER BY timestamp ASC, tx_signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query trades by mint: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades for a mint within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.TradeEvent, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE mint = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, tx_signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint, start, end)
	if err != nil {
		return nil, fmt.Errorf("query trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrades(rows pgx.Rows) ([]*domain.TradeEvent, error) {
	var result []*domain.TradeEvent
	for rows.Next() {
		var t domain.TradeEvent
		err := rows.Scan(
			&t.Mint,
			&t.TxSignature,
			&t.Trader,
			&t.Side,
			&t.SOLAmount,
			&t.TokenAmount,
			&t.MarketCapSOL,
			&t.Timestamp,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return result, nil
}
