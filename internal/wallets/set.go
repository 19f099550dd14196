// Package wallets tracks the known-actor and smart-money wallet sets used
// by the screening engine. Sets are swapped atomically on refresh so the
// hot path never takes a write lock.
package wallets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
)

// Tracker holds the current membership of one named wallet set.
type Tracker struct {
	name    string
	store   storage.WalletSetStore
	logger  *log.Logger
	members atomic.Pointer[map[string]struct{}]
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// Name selects which stored set this tracker follows.
	Name string

	// Store is the backing wallet set store.
	Store storage.WalletSetStore

	// Logger for refresh events. Defaults to log.Default().
	Logger *log.Logger
}

// NewTracker creates a tracker with an empty membership. Call Refresh to
// load the stored set.
func NewTracker(opts TrackerOptions) (*Tracker, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("wallet tracker requires a set name")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("wallet tracker requires a store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	t := &Tracker{
		name:   opts.Name,
		store:  opts.Store,
		logger: logger,
	}
	empty := make(map[string]struct{})
	t.members.Store(&empty)
	return t, nil
}

// Name returns the tracked set name.
func (t *Tracker) Name() string {
	return t.name
}

// Contains reports whether the address is in the current set.
func (t *Tracker) Contains(address string) bool {
	members := t.members.Load()
	_, ok := (*members)[address]
	return ok
}

// CountMembers returns how many of the given addresses are in the set.
func (t *Tracker) CountMembers(addresses []string) int {
	members := t.members.Load()
	n := 0
	for _, addr := range addresses {
		if _, ok := (*members)[addr]; ok {
			n++
		}
	}
	return n
}

// Size returns the current membership size.
func (t *Tracker) Size() int {
	return len(*t.members.Load())
}

// Refresh reloads membership from the store and swaps it in atomically.
// A missing stored set leaves the current membership untouched.
func (t *Tracker) Refresh(ctx context.Context) error {
	set, err := t.store.Get(ctx, t.name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			t.logger.Printf("[wallets] set %q not present in storage, keeping %d members", t.name, t.Size())
			return nil
		}
		return fmt.Errorf("load wallet set %q: %w", t.name, err)
	}

	members := make(map[string]struct{}, len(set.Addresses))
	for _, addr := range set.Addresses {
		members[addr] = struct{}{}
	}
	t.members.Store(&members)
	t.logger.Printf("[wallets] set %q refreshed: %d members", t.name, len(members))
	return nil
}

// Replace persists a new membership and swaps it in.
func (t *Tracker) Replace(ctx context.Context, addresses []string, now time.Time) error {
	set := &domain.WalletSet{
		Name:      t.name,
		Addresses: addresses,
		LoadedAt:  now.UnixMilli(),
	}
	if err := t.store.Put(ctx, set); err != nil {
		return fmt.Errorf("store wallet set %q: %w", t.name, err)
	}

	members := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		members[addr] = struct{}{}
	}
	t.members.Store(&members)
	return nil
}
