package memory

import (
	"context"
	"sort"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// The ClickHouse implementation is authoritative; this one backs tests and
// single-process runs without external services.
type SnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.Snapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// InsertBulk adds multiple snapshots.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	for _, snap := range snapshots {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data = append(s.data, &snapCopy)
	}
	return nil
}

// GetByMint retrieves all snapshots for a mint, ordered by timestamp ASC.
func (s *SnapshotStore) GetByMint(_ context.Context, mint string) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Snapshot
	for _, snap := range s.data {
		if snap.Mint == mint {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sortSnapshots(result)
	return result, nil
}

// GetByTimeRange retrieves snapshots for a mint within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Snapshot
	for _, snap := range s.data {
		if snap.Mint == mint && snap.TimestampMs >= start && snap.TimestampMs <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sortSnapshots(result)
	return result, nil
}

func sortSnapshots(snapshots []*domain.Snapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].TimestampMs < snapshots[j].TimestampMs
	})
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
