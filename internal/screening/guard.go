// Package screening implements the fast motion screen and the slower deep
// screen over computed token features.
package screening

import (
	"sync"

	"pumpwatch/internal/domain"
)

// Guard enforces at most one alert per token per screen kind. The guard is
// in-memory; a restart re-arms every token, which is acceptable because the
// alert store's deterministic IDs reject replays of the same trigger.
type Guard struct {
	mu    sync.Mutex
	fired map[string]map[domain.AlertKind]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{
		fired: make(map[string]map[domain.AlertKind]struct{}),
	}
}

// TryAcquire marks the (mint, kind) pair as fired. Returns false if it had
// already fired since the last Reset.
func (g *Guard) TryAcquire(mint string, kind domain.AlertKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	kinds, ok := g.fired[mint]
	if !ok {
		kinds = make(map[domain.AlertKind]struct{})
		g.fired[mint] = kinds
	}
	if _, dup := kinds[kind]; dup {
		return false
	}
	kinds[kind] = struct{}{}
	return true
}

// Fired reports whether the (mint, kind) pair has fired.
func (g *Guard) Fired(mint string, kind domain.AlertKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	kinds, ok := g.fired[mint]
	if !ok {
		return false
	}
	_, dup := kinds[kind]
	return dup
}

// Reset re-arms a single screen kind for a token; other kinds keep their
// fired state.
func (g *Guard) Reset(mint string, kind domain.AlertKind) {
	g.mu.Lock()
	defer g.mu.Unlock()

	kinds, ok := g.fired[mint]
	if !ok {
		return
	}
	delete(kinds, kind)
	if len(kinds) == 0 {
		delete(g.fired, mint)
	}
}
