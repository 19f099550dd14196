package trading

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"pumpwatch/internal/domain"
	"pumpwatch/internal/storage"
	"pumpwatch/internal/storage/memory"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *memory.PositionStore) {
	t.Helper()

	store := memory.NewPositionStore()
	mgr, err := NewManager(ManagerOptions{
		Config: cfg,
		Store:  store,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr, store
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestManager_OpenAndTakeProfit(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t, DefaultConfig())
	now := time.Now()

	pos, err := mgr.Open(ctx, "mintA", 1.0, now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pos == nil {
		t.Fatal("expected position, got nil")
	}
	if pos.Status != domain.PositionStatusOpen {
		t.Errorf("status = %q, want open", pos.Status)
	}
	if pos.SizeSOL != 1.0 {
		t.Errorf("size = %f, want 1.0", pos.SizeSOL)
	}

	// +10% keeps the position open.
	closed, err := mgr.OnPrice(ctx, "mintA", 1.10, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if closed != nil {
		t.Fatalf("position closed at +10%%, want open")
	}

	// +25% triggers take profit.
	closed, err = mgr.OnPrice(ctx, "mintA", 1.25, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if closed == nil {
		t.Fatal("expected close at +25%")
	}
	if closed.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("exit reason = %q, want take_profit", closed.ExitReason)
	}
	if !approxEqual(closed.PnLPct, 0.25) {
		t.Errorf("pnl pct = %f, want 0.25", closed.PnLPct)
	}
	if !approxEqual(closed.PnLSOL, 0.25) {
		t.Errorf("pnl sol = %f, want 0.25", closed.PnLSOL)
	}

	stored, err := store.GetByID(ctx, closed.PositionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.PositionStatusClosed {
		t.Errorf("stored status = %q, want closed", stored.Status)
	}
}

func TestManager_StopLoss(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, DefaultConfig())
	now := time.Now()

	if _, err := mgr.Open(ctx, "mintA", 1.0, now); err != nil {
		t.Fatalf("Open: %v", err)
	}

	closed, err := mgr.OnPrice(ctx, "mintA", 0.90, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if closed == nil {
		t.Fatal("expected close at -10%")
	}
	if closed.ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("exit reason = %q, want stop_loss", closed.ExitReason)
	}
	if !approxEqual(closed.PnLPct, -0.10) {
		t.Errorf("pnl pct = %f, want -0.10", closed.PnLPct)
	}
	if !approxEqual(closed.PnLSOL, -0.10) {
		t.Errorf("pnl sol = %f, want -0.10", closed.PnLSOL)
	}
}

func TestManager_TakeProfitCheckedBeforeStopLoss(t *testing.T) {
	// A configuration where a single price can cross both bounds is
	// degenerate, but the ordering contract still holds: TP wins.
	cfg := DefaultConfig()
	cfg.TakeProfitPct = 0.0001
	cfg.StopLossPct = 10 // never hit downward first

	ctx := context.Background()
	mgr, _ := newTestManager(t, cfg)
	now := time.Now()

	if _, err := mgr.Open(ctx, "mintA", 1.0, now); err != nil {
		t.Fatalf("Open: %v", err)
	}
	closed, err := mgr.OnPrice(ctx, "mintA", 2.0, now.Add(time.Second))
	if err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if closed == nil || closed.ExitReason != domain.ExitReasonTakeProfit {
		t.Fatalf("expected take_profit exit, got %+v", closed)
	}
}

func TestManager_OnePositionPerMint(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, DefaultConfig())
	now := time.Now()

	first, err := mgr.Open(ctx, "mintA", 1.0, now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if first == nil {
		t.Fatal("first open declined")
	}

	second, err := mgr.Open(ctx, "mintA", 2.0, now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if second != nil {
		t.Errorf("second open for same mint succeeded, want declined")
	}

	// After closing, the mint can be entered again.
	if _, err := mgr.OnPrice(ctx, "mintA", 1.30, now.Add(time.Minute)); err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	third, err := mgr.Open(ctx, "mintA", 1.30, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if third == nil {
		t.Error("reopen after close declined")
	}
}

func TestManager_OpenCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOpenPositions = 2

	ctx := context.Background()
	mgr, _ := newTestManager(t, cfg)
	now := time.Now()

	for _, mint := range []string{"mintA", "mintB"} {
		pos, err := mgr.Open(ctx, mint, 1.0, now)
		if err != nil {
			t.Fatalf("Open %s: %v", mint, err)
		}
		if pos == nil {
			t.Fatalf("Open %s declined below ceiling", mint)
		}
	}

	pos, err := mgr.Open(ctx, "mintC", 1.0, now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pos != nil {
		t.Error("open above ceiling succeeded, want declined")
	}

	perf := mgr.Performance()
	if perf.OpenPositions != 2 {
		t.Errorf("open positions = %d, want 2", perf.OpenPositions)
	}
}

func TestManager_SweepStale(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, DefaultConfig())
	now := time.Now()

	if _, err := mgr.Open(ctx, "old", 1.0, now.Add(-90*time.Minute)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := mgr.Open(ctx, "fresh", 1.0, now.Add(-5*time.Minute)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// A price tick on the old position that stays inside the bounds; the
	// timeout close should use this price.
	if _, err := mgr.OnPrice(ctx, "old", 1.05, now.Add(-time.Minute)); err != nil {
		t.Fatalf("OnPrice: %v", err)
	}

	closed, err := mgr.SweepStale(ctx, now)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].Mint != "old" {
		t.Errorf("closed mint = %q, want old", closed[0].Mint)
	}
	if closed[0].ExitReason != domain.ExitReasonTimeout {
		t.Errorf("exit reason = %q, want timeout", closed[0].ExitReason)
	}
	if !approxEqual(closed[0].ExitPrice, 1.05) {
		t.Errorf("exit price = %f, want last observed 1.05", closed[0].ExitPrice)
	}
	if !approxEqual(closed[0].PnLSOL, 0.05) {
		t.Errorf("pnl sol = %f, want 0.05", closed[0].PnLSOL)
	}

	if !mgr.HasOpen("fresh") {
		t.Error("fresh position swept, want open")
	}

	// A second sweep finds nothing; the position closed exactly once.
	closed, err = mgr.SweepStale(ctx, now)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if len(closed) != 0 {
		t.Errorf("second sweep closed %d positions, want 0", len(closed))
	}
}

func TestManager_ManualClose(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t, DefaultConfig())
	now := time.Now()

	if _, err := mgr.Open(ctx, "mintA", 1.0, now); err != nil {
		t.Fatalf("Open: %v", err)
	}
	// An in-bounds tick; the manual close uses the last observed price.
	if _, err := mgr.OnPrice(ctx, "mintA", 1.10, now.Add(time.Minute)); err != nil {
		t.Fatalf("OnPrice: %v", err)
	}

	closed, err := mgr.Close(ctx, "mintA", now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.ExitReason != domain.ExitReasonManual {
		t.Errorf("exit reason = %q, want manual", closed.ExitReason)
	}
	if !approxEqual(closed.ExitPrice, 1.10) {
		t.Errorf("exit price = %f, want last observed 1.10", closed.ExitPrice)
	}
	if mgr.HasOpen("mintA") {
		t.Error("position still open after manual close")
	}

	stored, err := store.GetByID(ctx, closed.PositionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.PositionStatusClosed {
		t.Errorf("stored status = %q, want closed", stored.Status)
	}

	if _, err := mgr.Close(ctx, "mintA", now.Add(3*time.Minute)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Close err = %v, want ErrNotFound", err)
	}
	if _, err := mgr.Close(ctx, "never-opened", now); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Close of unknown mint err = %v, want ErrNotFound", err)
	}
}

func TestManager_PriceAfterCloseIgnored(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, DefaultConfig())
	now := time.Now()

	if _, err := mgr.Open(ctx, "mintA", 1.0, now); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := mgr.OnPrice(ctx, "mintA", 0.80, now.Add(time.Minute)); err != nil {
		t.Fatalf("OnPrice: %v", err)
	}

	closed, err := mgr.OnPrice(ctx, "mintA", 0.50, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if closed != nil {
		t.Error("price tick after close produced a second close")
	}

	perf := mgr.Performance()
	if perf.Wins != 0 || perf.Losses != 1 {
		t.Errorf("wins=%d losses=%d, want 0/1", perf.Wins, perf.Losses)
	}
}

func TestManager_Performance(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t, DefaultConfig())
	now := time.Now()

	// One winner, one loser.
	if _, err := mgr.Open(ctx, "win", 1.0, now); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := mgr.OnPrice(ctx, "win", 1.30, now.Add(time.Minute)); err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if _, err := mgr.Open(ctx, "lose", 1.0, now); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := mgr.OnPrice(ctx, "lose", 0.85, now.Add(time.Minute)); err != nil {
		t.Fatalf("OnPrice: %v", err)
	}

	perf := mgr.Performance()
	if perf.Wins != 1 || perf.Losses != 1 {
		t.Errorf("wins=%d losses=%d, want 1/1", perf.Wins, perf.Losses)
	}
	if !approxEqual(perf.TotalPnLSOL, 0.30-0.15) {
		t.Errorf("total pnl = %f, want 0.15", perf.TotalPnLSOL)
	}
	if !approxEqual(perf.WinRate(), 0.5) {
		t.Errorf("win rate = %f, want 0.5", perf.WinRate())
	}
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPositionStore()
	now := time.Now()

	seed := &domain.Position{
		PositionID: "pos-1",
		Mint:       "mintA",
		Status:     domain.PositionStatusOpen,
		EntryPrice: 1.0,
		EntryTime:  now.Add(-5 * time.Minute).UnixMilli(),
		SizeSOL:    1.0,
		CreatedAt:  now.UnixMilli(),
	}
	if err := store.Insert(ctx, seed); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	mgr, err := NewManager(ManagerOptions{
		Config: DefaultConfig(),
		Store:  store,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !mgr.HasOpen("mintA") {
		t.Fatal("restored position not tracked")
	}

	closed, err := mgr.OnPrice(ctx, "mintA", 1.25, now)
	if err != nil {
		t.Fatalf("OnPrice: %v", err)
	}
	if closed == nil || closed.ExitReason != domain.ExitReasonTakeProfit {
		t.Fatalf("expected take_profit close on restored position, got %+v", closed)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero size", func(c *Config) { c.SizeSOL = 0 }, true},
		{"negative take profit", func(c *Config) { c.TakeProfitPct = -0.1 }, true},
		{"zero stop loss", func(c *Config) { c.StopLossPct = 0 }, true},
		{"zero ceiling", func(c *Config) { c.MaxOpenPositions = 0 }, true},
		{"zero duration", func(c *Config) { c.MaxDuration = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
