package memory

import (
	"context"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// WalletSetStore is an in-memory implementation of storage.WalletSetStore.
type WalletSetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletSet // keyed by set name
}

// NewWalletSetStore creates a new in-memory wallet set store.
func NewWalletSetStore() *WalletSetStore {
	return &WalletSetStore{
		data: make(map[string]*domain.WalletSet),
	}
}

// Put replaces the named set atomically.
func (s *WalletSetStore) Put(_ context.Context, set *domain.WalletSet) error {
	if set == nil || set.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[set.Name] = copyWalletSet(set)
	return nil
}

// Get retrieves the named set. Returns ErrNotFound if not exists.
func (s *WalletSetStore) Get(_ context.Context, name string) (*domain.WalletSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, exists := s.data[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyWalletSet(set), nil
}

func copyWalletSet(set *domain.WalletSet) *domain.WalletSet {
	setCopy := *set
	setCopy.Addresses = make([]string, len(set.Addresses))
	copy(setCopy.Addresses, set.Addresses)
	return &setCopy
}

var _ storage.WalletSetStore = (*WalletSetStore)(nil)
