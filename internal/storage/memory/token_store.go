package memory

import (
	"context"
	"sort"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenRecord // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.TokenRecord),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if mint exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	tokenCopy := *t
	s.data[t.Mint] = &tokenCopy
	return nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	tokenCopy := *t
	return &tokenCopy, nil
}

// Update overwrites an existing token. Returns ErrNotFound if not exists.
func (s *TokenStore) Update(_ context.Context, t *domain.TokenRecord) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Mint]; !exists {
		return storage.ErrNotFound
	}

	tokenCopy := *t
	s.data[t.Mint] = &tokenCopy
	return nil
}

// GetActiveSince retrieves tokens with a trade at or after the given
// timestamp, ordered by last trade time DESC.
func (s *TokenStore) GetActiveSince(_ context.Context, sinceMs int64) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRecord
	for _, t := range s.data {
		if t.LastTradeAt >= sinceMs {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastTradeAt != result[j].LastTradeAt {
			return result[i].LastTradeAt > result[j].LastTradeAt
		}
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
