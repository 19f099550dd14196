// Package trading manages simulated paper positions opened on deep screen
// passes. No orders are ever sent anywhere; fills are assumed at the
// observed price.
package trading

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// Config holds position sizing and exit parameters.
type Config struct {
	// SizeSOL is the notional size of every position.
	SizeSOL float64

	// TakeProfitPct closes a position once price gain reaches this
	// fraction, e.g. 0.25 for +25%.
	TakeProfitPct float64

	// StopLossPct closes a position once price loss reaches this
	// fraction, e.g. 0.10 for -10%.
	StopLossPct float64

	// MaxOpenPositions caps concurrently open positions.
	MaxOpenPositions int

	// MaxDuration closes positions still open after this long.
	MaxDuration time.Duration
}

// DefaultConfig returns the production paper trading parameters.
func DefaultConfig() Config {
	return Config{
		SizeSOL:          1.0,
		TakeProfitPct:    0.25,
		StopLossPct:      0.10,
		MaxOpenPositions: 20,
		MaxDuration:      60 * time.Minute,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SizeSOL <= 0 {
		return fmt.Errorf("position size must be positive, got %f", c.SizeSOL)
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("take profit pct must be positive, got %f", c.TakeProfitPct)
	}
	if c.StopLossPct <= 0 {
		return fmt.Errorf("stop loss pct must be positive, got %f", c.StopLossPct)
	}
	if c.MaxOpenPositions <= 0 {
		return fmt.Errorf("max open positions must be positive, got %d", c.MaxOpenPositions)
	}
	if c.MaxDuration <= 0 {
		return fmt.Errorf("max duration must be positive, got %s", c.MaxDuration)
	}
	return nil
}

// Manager owns the open position set. All transitions happen under one
// lock so a position closes exactly once and a mint never carries two open
// positions.
type Manager struct {
	cfg    Config
	store  storage.PositionStore
	logger *log.Logger

	mu        sync.Mutex
	open      map[string]*domain.Position // keyed by mint
	lastPrice map[string]float64          // last observed price per open mint

	wins     int
	losses   int
	totalPnL float64
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Config Config

	// Store persists positions. Required.
	Store storage.PositionStore

	// Logger for lifecycle events. Defaults to log.Default().
	Logger *log.Logger
}

// NewManager creates a position manager.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("trading config: %w", err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("position manager requires a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Manager{
		cfg:       opts.Config,
		store:     opts.Store,
		logger:    logger,
		open:      make(map[string]*domain.Position),
		lastPrice: make(map[string]float64),
	}, nil
}

// Restore loads open positions from storage into the manager, typically at
// startup.
func (m *Manager) Restore(ctx context.Context) error {
	positions, err := m.store.GetOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range positions {
		m.open[p.Mint] = p
		m.lastPrice[p.Mint] = p.EntryPrice
	}
	m.logger.Printf("[trading] restored %d open position(s)", len(positions))
	return nil
}

// Open opens a paper position for the mint at the given price. It declines
// (without error) when the mint already has an open position, the open
// ceiling is reached, or the price is not positive. The returned position
// is nil when declined.
func (m *Manager) Open(ctx context.Context, mint string, entryPrice float64, now time.Time) (*domain.Position, error) {
	if mint == "" || entryPrice <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	if _, exists := m.open[mint]; exists {
		m.mu.Unlock()
		return nil, nil
	}
	if len(m.open) >= m.cfg.MaxOpenPositions {
		m.mu.Unlock()
		m.logger.Printf("[trading] open ceiling %d reached, skipping %s", m.cfg.MaxOpenPositions, mint)
		return nil, nil
	}

	pos := &domain.Position{
		PositionID: uuid.NewString(),
		Mint:       mint,
		Status:     domain.PositionStatusOpen,
		EntryPrice: entryPrice,
		EntryTime:  now.UnixMilli(),
		SizeSOL:    m.cfg.SizeSOL,
		CreatedAt:  now.UnixMilli(),
	}
	m.open[mint] = pos
	m.lastPrice[mint] = entryPrice
	m.mu.Unlock()

	if err := m.store.Insert(ctx, pos); err != nil {
		// Roll back the reservation so the mint is not stuck.
		m.mu.Lock()
		delete(m.open, mint)
		delete(m.lastPrice, mint)
		m.mu.Unlock()
		return nil, fmt.Errorf("persist position for %s: %w", mint, err)
	}

	m.logger.Printf("[trading] opened %s %s size=%.2f entry=%.9f", pos.PositionID[:8], mint, pos.SizeSOL, entryPrice)
	posCopy := *pos
	return &posCopy, nil
}

// OnPrice feeds a price observation for a mint. Take profit is checked
// before stop loss; when both bounds are crossed in one observation the
// position exits as a take profit. Returns the closed position, or nil if
// the position stays open or none exists.
func (m *Manager) OnPrice(ctx context.Context, mint string, price float64, now time.Time) (*domain.Position, error) {
	if price <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	pos, exists := m.open[mint]
	if !exists {
		m.mu.Unlock()
		return nil, nil
	}
	m.lastPrice[mint] = price

	change := (price - pos.EntryPrice) / pos.EntryPrice

	var reason string
	switch {
	case change >= m.cfg.TakeProfitPct:
		reason = domain.ExitReasonTakeProfit
	case change <= -m.cfg.StopLossPct:
		reason = domain.ExitReasonStopLoss
	default:
		m.mu.Unlock()
		return nil, nil
	}

	closed := m.closeLocked(pos, price, reason, now)
	m.mu.Unlock()

	if err := m.store.Update(ctx, closed); err != nil {
		return closed, fmt.Errorf("persist close for %s: %w", mint, err)
	}
	return closed, nil
}

// Close force-closes the open position for a mint at its last observed
// price with reason manual. Returns storage.ErrNotFound when the mint has
// no open position.
func (m *Manager) Close(ctx context.Context, mint string, now time.Time) (*domain.Position, error) {
	m.mu.Lock()
	pos, exists := m.open[mint]
	if !exists {
		m.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	price := m.lastPrice[mint]
	if price <= 0 {
		price = pos.EntryPrice
	}
	closed := m.closeLocked(pos, price, domain.ExitReasonManual, now)
	m.mu.Unlock()

	if err := m.store.Update(ctx, closed); err != nil {
		return closed, fmt.Errorf("persist manual close for %s: %w", mint, err)
	}
	return closed, nil
}

// SweepStale closes positions open longer than the configured maximum at
// their last observed price with reason timeout. Returns the closed
// positions.
func (m *Manager) SweepStale(ctx context.Context, now time.Time) ([]*domain.Position, error) {
	cutoff := now.Add(-m.cfg.MaxDuration).UnixMilli()

	m.mu.Lock()
	var closed []*domain.Position
	for mint, pos := range m.open {
		if pos.EntryTime > cutoff {
			continue
		}
		price := m.lastPrice[mint]
		if price <= 0 {
			price = pos.EntryPrice
		}
		closed = append(closed, m.closeLocked(pos, price, domain.ExitReasonTimeout, now))
	}
	m.mu.Unlock()

	for _, pos := range closed {
		if err := m.store.Update(ctx, pos); err != nil {
			return closed, fmt.Errorf("persist timeout close for %s: %w", pos.Mint, err)
		}
	}
	return closed, nil
}

// closeLocked finalizes a position. Caller holds m.mu.
func (m *Manager) closeLocked(pos *domain.Position, exitPrice float64, reason string, now time.Time) *domain.Position {
	pos.Status = domain.PositionStatusClosed
	pos.ExitPrice = exitPrice
	pos.ExitTime = now.UnixMilli()
	pos.ExitReason = reason
	pos.PnLPct = (exitPrice - pos.EntryPrice) / pos.EntryPrice
	pos.PnLSOL = pos.SizeSOL * pos.PnLPct

	delete(m.open, pos.Mint)
	delete(m.lastPrice, pos.Mint)

	if pos.PnLSOL > 0 {
		m.wins++
	} else {
		m.losses++
	}
	m.totalPnL += pos.PnLSOL

	m.logger.Printf("[trading] closed %s %s reason=%s pnl=%.4f SOL (%.2f%%)",
		pos.PositionID[:8], pos.Mint, reason, pos.PnLSOL, pos.PnLPct*100)

	posCopy := *pos
	return &posCopy
}

// HasOpen reports whether the mint has an open position.
func (m *Manager) HasOpen(mint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.open[mint]
	return exists
}

// Performance returns the running outcome counters.
func (m *Manager) Performance() domain.PerformanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.PerformanceSnapshot{
		OpenPositions: len(m.open),
		Wins:          m.wins,
		Losses:        m.losses,
		TotalPnLSOL:   m.totalPnL,
	}
}
