package memory

import (
	"context"
	"sort"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Insert adds a new position. Returns ErrDuplicateKey if position_id exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}

	posCopy := *p
	s.data[p.PositionID] = &posCopy
	return nil
}

// Update overwrites an existing position. Returns ErrNotFound if not exists.
func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; !exists {
		return storage.ErrNotFound
	}

	posCopy := *p
	s.data[p.PositionID] = &posCopy
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	posCopy := *p
	return &posCopy, nil
}

// GetOpen retrieves all open positions, ordered by entry time ASC.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionStatusOpen {
			posCopy := *p
			result = append(result, &posCopy)
		}
	}

	sortPositions(result)
	return result, nil
}

// GetByMint retrieves all positions for a mint, ordered by entry time ASC.
func (s *PositionStore) GetByMint(_ context.Context, mint string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Mint == mint {
			posCopy := *p
			result = append(result, &posCopy)
		}
	}

	sortPositions(result)
	return result, nil
}

func sortPositions(positions []*domain.Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].EntryTime != positions[j].EntryTime {
			return positions[i].EntryTime < positions[j].EntryTime
		}
		return positions[i].PositionID < positions[j].PositionID
	})
}

var _ storage.PositionStore = (*PositionStore)(nil)
