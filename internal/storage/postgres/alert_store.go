package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL. The feature
// vector and criteria checklist are stored as JSONB.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

const alertColumns = `
	alert_id, mint, kind, triggered_at, market_cap_sol, features, criteria, created_at
`

// Insert adds a new alert. Returns ErrDuplicateKey if alert_id exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.AlertID == "" || a.Mint == "" || !a.Kind.Valid() {
		return storage.ErrInvalidInput
	}

	features, err := json.Marshal(a.Features)
	if err != nil {
		return fmt.Errorf("marshal alert features: %w", err)
	}
	criteria, err := json.Marshal(a.Criteria)
	if err != nil {
		return fmt.Errorf("marshal alert criteria: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		a.AlertID,
		a.Mint,
		string(a.Kind),
		a.TriggeredAt,
		a.MarketCapSOL,
		features,
		criteria,
		a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, alertID string) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE alert_id = $1`

	a, err := scanAlert(s.pool.QueryRow(ctx, query, alertID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return a, nil
}

// GetByMint retrieves all alerts for a mint, ordered by trigger time ASC.
func (s *AlertStore) GetByMint(ctx context.Context, mint string) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE mint = $1
		ORDER BY triggered_at ASC, alert_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query alerts by mint: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByKind retrieves all alerts of a kind, ordered by trigger time ASC.
func (s *AlertStore) GetByKind(ctx context.Context, kind domain.AlertKind) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE kind = $1
		ORDER BY triggered_at ASC, alert_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query alerts by kind: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var a domain.Alert
	var kind string
	var features, criteria []byte

	err := row.Scan(
		&a.AlertID,
		&a.Mint,
		&kind,
		&a.TriggeredAt,
		&a.MarketCapSOL,
		&features,
		&criteria,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = domain.AlertKind(kind)
	if len(features) > 0 {
		if err := json.Unmarshal(features, &a.Features); err != nil {
			return nil, fmt.Errorf("unmarshal alert features: %w", err)
		}
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &a.Criteria); err != nil {
			return nil, fmt.Errorf("unmarshal alert criteria: %w", err)
		}
	}
	return &a, nil
}

func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var result []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return result, nil
}
