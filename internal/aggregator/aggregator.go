package aggregator

import (
	"sync"

	"pumpwatch/internal/domain"
)

// maxTradesPerToken bounds the per-token ring. Beyond this the oldest
// trades are evicted, which is acceptable because screening windows are
// short relative to the cap.
const maxTradesPerToken = 1000

// Aggregator maintains a bounded in-memory ring of recent trades per token
// and answers sliding-window queries over them. All methods are safe for
// concurrent use; each token has its own lock so hot tokens do not contend
// with each other.
type Aggregator struct {
	mu     sync.RWMutex
	tokens map[string]*tokenRing
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		tokens: make(map[string]*tokenRing),
	}
}

// tokenRing is a fixed-capacity ring buffer of trades for one token.
type tokenRing struct {
	mu     sync.Mutex
	trades []domain.TradeEvent // ring storage
	head   int                 // index of oldest entry
	size   int                 // number of valid entries
	lastAt int64               // timestamp of newest trade (ms)
}

// Add appends a trade to the token's ring, evicting the oldest entry when
// the ring is full.
func (a *Aggregator) Add(trade domain.TradeEvent) {
	if trade.Mint == "" {
		return
	}

	a.mu.RLock()
	ring, ok := a.tokens[trade.Mint]
	a.mu.RUnlock()

	if !ok {
		a.mu.Lock()
		ring, ok = a.tokens[trade.Mint]
		if !ok {
			ring = &tokenRing{trades: make([]domain.TradeEvent, maxTradesPerToken)}
			a.tokens[trade.Mint] = ring
		}
		a.mu.Unlock()
	}

	ring.mu.Lock()
	defer ring.mu.Unlock()

	if ring.size < maxTradesPerToken {
		ring.trades[(ring.head+ring.size)%maxTradesPerToken] = trade
		ring.size++
	} else {
		ring.trades[ring.head] = trade
		ring.head = (ring.head + 1) % maxTradesPerToken
	}
	if trade.Timestamp > ring.lastAt {
		ring.lastAt = trade.Timestamp
	}
}

// TradeCount returns the number of buffered trades for a mint.
func (a *Aggregator) TradeCount(mint string) int {
	a.mu.RLock()
	ring, ok := a.tokens[mint]
	a.mu.RUnlock()
	if !ok {
		return 0
	}

	ring.mu.Lock()
	defer ring.mu.Unlock()
	return ring.size
}

// TrackedTokens returns the number of tokens with buffered trades.
func (a *Aggregator) TrackedTokens() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tokens)
}

// Remove drops all buffered trades for a mint.
func (a *Aggregator) Remove(mint string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, mint)
}

// Sweep drops tokens whose newest trade is older than the cutoff and
// returns the evicted mints so the caller can release their trade
// subscriptions.
func (a *Aggregator) Sweep(cutoffMs int64) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var removed []string
	for mint, ring := range a.tokens {
		ring.mu.Lock()
		stale := ring.lastAt < cutoffMs
		ring.mu.Unlock()
		if stale {
			delete(a.tokens, mint)
			removed = append(removed, mint)
		}
	}
	return removed
}
