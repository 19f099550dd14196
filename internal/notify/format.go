package notify

import (
	"fmt"
	"strings"

	"pumpwatch/internal/domain"
)

// FormatAlert renders an alert as a notification title and body. The body
// lists every evaluated criterion with its threshold and observed value.
func FormatAlert(alert *domain.Alert) (title, body string) {
	switch alert.Kind {
	case domain.AlertKindDeep:
		title = fmt.Sprintf("Deep screen pass: %s", shortMint(alert.Mint))
	default:
		title = fmt.Sprintf("Motion detected: %s", shortMint(alert.Mint))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "mint: %s\n", alert.Mint)
	fmt.Fprintf(&b, "market cap: %.2f SOL\n", alert.MarketCapSOL)
	for _, cr := range alert.Criteria {
		mark := "PASS"
		if !cr.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%s %s: %.2f (threshold %.2f)\n", mark, cr.Name, cr.Actual, cr.Threshold)
	}
	return title, b.String()
}

// FormatPositionOpen renders a position-open notification.
func FormatPositionOpen(pos *domain.Position) (title, body string) {
	title = fmt.Sprintf("Position opened: %s", shortMint(pos.Mint))
	body = fmt.Sprintf("mint: %s\nentry: %.9f SOL\nsize: %.2f SOL", pos.Mint, pos.EntryPrice, pos.SizeSOL)
	return title, body
}

// FormatPositionClosed renders a position-close notification.
func FormatPositionClosed(pos *domain.Position) (title, body string) {
	title = fmt.Sprintf("Position closed (%s): %s", pos.ExitReason, shortMint(pos.Mint))
	body = fmt.Sprintf("mint: %s\nentry: %.9f SOL\nexit: %.9f SOL\npnl: %+.4f SOL (%+.2f%%)",
		pos.Mint, pos.EntryPrice, pos.ExitPrice, pos.PnLSOL, pos.PnLPct*100)
	return title, body
}

// shortMint abbreviates a mint address for titles.
func shortMint(mint string) string {
	if len(mint) <= 12 {
		return mint
	}
	return mint[:6] + ".." + mint[len(mint)-4:]
}
