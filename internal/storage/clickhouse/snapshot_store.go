package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// Snapshots are an append-only time series; the poller writes one batch per
// tick, so no duplicate detection is attempted here.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds multiple snapshots.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, snap := range snapshots {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_snapshots (
			mint, timestamp_ms, price_sol, market_cap_sol,
			bonding_curve_pct, holder_count, top_concentration_pct
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.Mint, uint64(snap.TimestampMs), snap.PriceSOL, snap.MarketCapSOL,
			snap.BondingCurvePct, uint32(snap.HolderCount), snap.TopConcentrationPct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all snapshots for a mint, ordered by timestamp ASC.
func (s *SnapshotStore) GetByMint(ctx context.Context, mint string) ([]*domain.Snapshot, error) {
	query := `
		SELECT mint, timestamp_ms, price_sol, market_cap_sol,
		       bonding_curve_pct, holder_count, top_concentration_pct
		FROM token_snapshots
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a mint within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.Snapshot, error) {
	query := `
		SELECT mint, timestamp_ms, price_sol, market_cap_sol,
		       bonding_curve_pct, holder_count, top_concentration_pct
		FROM token_snapshots
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows driver.Rows) ([]*domain.Snapshot, error) {
	var snapshots []*domain.Snapshot

	for rows.Next() {
		var snap domain.Snapshot
		var timestampMs uint64
		var holderCount uint32

		err := rows.Scan(
			&snap.Mint, &timestampMs, &snap.PriceSOL, &snap.MarketCapSOL,
			&snap.BondingCurvePct, &holderCount, &snap.TopConcentrationPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.TimestampMs = int64(timestampMs)
		snap.HolderCount = int(holderCount)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
