package postgres

import (
	"context"
	"fmt"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	mint, name, symbol, creator, launched_at, initial_buy_sol,
	market_cap_sol, bonding_curve_pct, graduated, last_trade_at, created_at
`

// Insert adds a new token. Returns ErrDuplicateKey if mint exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Mint,
		t.Name,
		t.Symbol,
		t.Creator,
		t.LaunchedAt,
		t.InitialBuySOL,
		t.MarketCapSOL,
		t.BondingCurvePct,
		t.Graduated,
		t.LastTradeAt,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE mint = $1`

	var t domain.TokenRecord
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&t.Mint,
		&t.Name,
		&t.Symbol,
		&t.Creator,
		&t.LaunchedAt,
		&t.InitialBuySOL,
		&t.MarketCapSOL,
		&t.BondingCurvePct,
		&t.Graduated,
		&t.LastTradeAt,
		&t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return &t, nil
}

// Update overwrites an existing token. Returns ErrNotFound if not exists.
func (s *TokenStore) Update(ctx context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tokens SET
			name = $2, symbol = $3, creator = $4, launched_at = $5,
			initial_buy_sol = $6, market_cap_sol = $7, bonding_curve_pct = $8,
			graduated = $9, last_trade_at = $10
		WHERE mint = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		t.Mint,
		t.Name,
		t.Symbol,
		t.Creator,
		t.LaunchedAt,
		t.InitialBuySOL,
		t.MarketCapSOL,
		t.BondingCurvePct,
		t.Graduated,
		t.LastTradeAt,
	)
	if err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetActiveSince retrieves tokens with a trade at or after the given
// timestamp, ordered by last trade time DESC.
func (s *TokenStore) GetActiveSince(ctx context.Context, sinceMs int64) ([]*domain.TokenRecord, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE last_trade_at >= $1
		ORDER BY last_trade_at DESC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("query active tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenRecord
	for rows.Next() {
		var t domain.TokenRecord
		err := rows.Scan(
			&t.Mint,
			&t.Name,
			&t.Symbol,
			&t.Creator,
			&t.LaunchedAt,
			&t.InitialBuySOL,
			&t.MarketCapSOL,
			&t.BondingCurvePct,
			&t.Graduated,
			&t.LastTradeAt,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return result, nil
}
