package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, mint, status, entry_price, entry_time, size_sol,
	exit_price, exit_time, exit_reason, pnl_pct, pnl_sol, created_at
`

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID,
		p.Mint,
		p.Status,
		p.EntryPrice,
		p.EntryTime,
		p.SizeSOL,
		p.ExitPrice,
		p.ExitTime,
		p.ExitReason,
		p.PnLPct,
		p.PnLSOL,
		p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update overwrites an existing position. Returns ErrNotFound if not exists.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE positions SET
			status = $2, exit_price = $3, exit_time = $4, exit_reason = $5,
			pnl_pct = $6, pnl_sol = $7
		WHERE position_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.PositionID,
		p.Status,
		p.ExitPrice,
		p.ExitTime,
		p.ExitReason,
		p.PnLPct,
		p.PnLSOL,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, positionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetOpen retrieves all open positions, ordered by entry time ASC.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1
		ORDER BY entry_time ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.PositionStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByMint retrieves all positions for a mint, ordered by entry time ASC.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE mint = $1
		ORDER BY entry_time ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query positions by mint: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.PositionID,
		&p.Mint,
		&p.Status,
		&p.EntryPrice,
		&p.EntryTime,
		&p.SizeSOL,
		&p.ExitPrice,
		&p.ExitTime,
		&p.ExitReason,
		&p.PnLPct,
		&p.PnLSOL,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var result []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return result, nil
}
