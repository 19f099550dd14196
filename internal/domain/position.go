package domain

// Position represents one simulated paper position.
// Corresponds to positions table in PostgreSQL.
type Position struct {
	PositionID string  // UUID
	Mint       string  // token mint address
	Status     string  // "open" | "closed"
	EntryPrice float64 // per-token price at entry, SOL
	EntryTime  int64   // Unix timestamp in milliseconds
	SizeSOL    float64 // position size in SOL
	ExitPrice  float64 // per-token price at exit, 0 while open
	ExitTime   int64   // Unix timestamp in milliseconds, 0 while open
	ExitReason string  // reason code, empty while open
	PnLPct     float64 // (exit - entry) / entry, 0 while open
	PnLSOL     float64 // size_sol * pnl_pct, 0 while open
	CreatedAt  int64   // record creation timestamp (ms)
}

// Position status constants
const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Exit reason codes
const (
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonTimeout    = "timeout"
	ExitReasonManual     = "manual"
)

// PerformanceSnapshot aggregates closed-position outcomes.
type PerformanceSnapshot struct {
	OpenPositions int     // currently open
	Wins          int     // closed with pnl > 0
	Losses        int     // closed with pnl <= 0
	TotalPnLSOL   float64 // sum over closed positions
}

// WinRate returns wins / closed, or 0 when nothing has closed.
func (p PerformanceSnapshot) WinRate() float64 {
	closed := p.Wins + p.Losses
	if closed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(closed)
}
