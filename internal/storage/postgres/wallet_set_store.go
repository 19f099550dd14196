package postgres

import (
	"context"
	"fmt"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// WalletSetStore implements storage.WalletSetStore using PostgreSQL.
// Put replaces the set's membership in a single transaction so readers
// never observe a partially loaded set.
type WalletSetStore struct {
	pool *Pool
}

// NewWalletSetStore creates a new WalletSetStore.
func NewWalletSetStore(pool *Pool) *WalletSetStore {
	return &WalletSetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletSetStore = (*WalletSetStore)(nil)

// Put replaces the named set atomically.
func (s *WalletSetStore) Put(ctx context.Context, set *domain.WalletSet) error {
	if set == nil || set.Name == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_sets (name, loaded_at) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET loaded_at = EXCLUDED.loaded_at
	`, set.Name, set.LoadedAt)
	if err != nil {
		return fmt.Errorf("upsert wallet set: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM wallet_set_members WHERE set_name = $1`, set.Name)
	if err != nil {
		return fmt.Errorf("clear wallet set members: %w", err)
	}

	for _, addr := range set.Addresses {
		_, err = tx.Exec(ctx, `
			INSERT INTO wallet_set_members (set_name, address) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, set.Name, addr)
		if err != nil {
			return fmt.Errorf("insert wallet set member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves the named set. Returns ErrNotFound if not exists.
func (s *WalletSetStore) Get(ctx context.Context, name string) (*domain.WalletSet, error) {
	set := &domain.WalletSet{Name: name}

	err := s.pool.QueryRow(ctx, `SELECT loaded_at FROM wallet_sets WHERE name = $1`, name).
		Scan(&set.LoadedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet set: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT address FROM wallet_set_members WHERE set_name = $1 ORDER BY address ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query wallet set members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan wallet set member: %w", err)
		}
		set.Addresses = append(set.Addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet set members: %w", err)
	}

	return set, nil
}
