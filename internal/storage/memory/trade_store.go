package memory

import (
	"context"
	"sort"
	"sync"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeEvent // keyed by tx_signature
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.TradeEvent),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if tx_signature exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.TradeEvent) error {
	if t == nil || t.Mint == "" || t.TxSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TxSignature]; exists {
		return storage.ErrDuplicateKey
	}

	tradeCopy := *t
	s.data[t.TxSignature] = &tradeCopy
	return nil
}

// GetByMint retrieves all trades for a mint, ordered by timestamp ASC.
func (s *TradeStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, t := range s.data {
		if t.Mint == mint {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByTimeRange retrieves trades for a mint within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, t := range s.data {
		if t.Mint == mint && t.Timestamp >= start && t.Timestamp <= end {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sortTrades(result)
	return result, nil
}

// sortTrades orders by timestamp ASC with signature as tie-breaker for
// deterministic output.
func sortTrades(trades []*domain.TradeEvent) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TxSignature < trades[j].TxSignature
	})
}

var _ storage.TradeStore = (*TradeStore)(nil)
