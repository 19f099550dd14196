package storage

import (
	"context"

	"pumpwatch/internal/domain"
)

// TokenStore provides access to tokens storage. Tokens are mutable:
// market cap, bonding progress and graduation update as trades arrive.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, t *domain.TokenRecord) error

	// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error)

	// Update overwrites an existing token. Returns ErrNotFound if not exists.
	Update(ctx context.Context, t *domain.TokenRecord) error

	// GetActiveSince retrieves tokens with a trade at or after the given
	// timestamp, ordered by last trade time DESC.
	GetActiveSince(ctx context.Context, sinceMs int64) ([]*domain.TokenRecord, error)
}

// TradeStore provides access to trades storage. Trades are append-only and
// deduplicated by transaction signature.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if tx_signature exists.
	Insert(ctx context.Context, t *domain.TradeEvent) error

	// GetByMint retrieves all trades for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeEvent, error)

	// GetByTimeRange retrieves trades for a mint within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.TradeEvent, error)
}

// AlertStore provides access to alerts storage.
type AlertStore interface {
	// Insert adds a new alert. Returns ErrDuplicateKey if alert_id exists.
	Insert(ctx context.Context, a *domain.Alert) error

	// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, alertID string) (*domain.Alert, error)

	// GetByMint retrieves all alerts for a mint, ordered by trigger time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Alert, error)

	// GetByKind retrieves all alerts of a kind, ordered by trigger time ASC.
	GetByKind(ctx context.Context, kind domain.AlertKind) ([]*domain.Alert, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update overwrites an existing position. Returns ErrNotFound if not exists.
	Update(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpen retrieves all open positions, ordered by entry time ASC.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetByMint retrieves all positions for a mint, ordered by entry time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Position, error)
}

// WalletSetStore provides access to tracked wallet sets.
type WalletSetStore interface {
	// Put replaces the named set atomically.
	Put(ctx context.Context, set *domain.WalletSet) error

	// Get retrieves the named set. Returns ErrNotFound if not exists.
	Get(ctx context.Context, name string) (*domain.WalletSet, error)
}

// SnapshotStore provides access to token_snapshots time-series storage.
type SnapshotStore interface {
	// InsertBulk adds multiple snapshots.
	InsertBulk(ctx context.Context, snapshots []*domain.Snapshot) error

	// GetByMint retrieves all snapshots for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Snapshot, error)

	// GetByTimeRange retrieves snapshots for a mint within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.Snapshot, error)
}
