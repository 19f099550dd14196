package screening

import (
	"context"
	"fmt"
	"log"

	"pumpwatch/internal/aggregator"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/features"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/wallets"
)

// ConcentrationProvider supplies top-holder supply concentration for a
// mint. The Solana RPC client implements this.
type ConcentrationProvider interface {
	TopHolderConcentration(ctx context.Context, mint string) (float64, error)
}

// HolderCountProvider supplies the total holder count for a mint. The GMGN
// client implements this.
type HolderCountProvider interface {
	HolderCount(ctx context.Context, mint string) (int, error)
}

// DeepConfig holds the thresholds of the deep screen.
type DeepConfig struct {
	MinMarketCapUSD        float64
	MaxMarketCapUSD        float64
	MinSmartWallets        float64
	SmartWalletWindowMin   int
	MaxTopConcentrationPct float64
	MinVolumeMcapRatio     float64
	MaxVolumeMcapRatio     float64
	MinActiveMinutes       float64
	MinHolderCount         float64
}

// DefaultDeepConfig returns the production deep-screen thresholds.
func DefaultDeepConfig() DeepConfig {
	return DeepConfig{
		MinMarketCapUSD:        25_000,
		MaxMarketCapUSD:        500_000,
		MinSmartWallets:        3,
		SmartWalletWindowMin:   60,
		MaxTopConcentrationPct: 40,
		MinVolumeMcapRatio:     0.5,
		MaxVolumeMcapRatio:     1.2,
		MinActiveMinutes:       60,
		MinHolderCount:         100,
	}
}

// DeepScreen runs the slower second-stage criteria over motion candidates.
// Criteria run sequentially and short-circuit on the first failure, cheap
// local checks before the external holder lookups, so a token that fails
// on market cap never costs an RPC call.
type DeepScreen struct {
	cfg           DeepConfig
	agg           *aggregator.Aggregator
	smartWallets  *wallets.Tracker
	concentration ConcentrationProvider
	holders       HolderCountProvider
	logger        *log.Logger
}

// DeepScreenOptions configures a DeepScreen.
type DeepScreenOptions struct {
	Config        DeepConfig
	Aggregator    *aggregator.Aggregator
	SmartWallets  *wallets.Tracker
	Concentration ConcentrationProvider
	Holders       HolderCountProvider

	// Logger for provider failures. Defaults to log.Default().
	Logger *log.Logger
}

// NewDeepScreen creates a deep screen.
func NewDeepScreen(opts DeepScreenOptions) (*DeepScreen, error) {
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("deep screen requires an aggregator")
	}
	if opts.SmartWallets == nil {
		return nil, fmt.Errorf("deep screen requires a smart wallet tracker")
	}
	if opts.Concentration == nil {
		return nil, fmt.Errorf("deep screen requires a concentration provider")
	}
	if opts.Holders == nil {
		return nil, fmt.Errorf("deep screen requires a holder count provider")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &DeepScreen{
		cfg:           opts.Config,
		agg:           opts.Aggregator,
		smartWallets:  opts.SmartWallets,
		concentration: opts.Concentration,
		holders:       opts.Holders,
		logger:        logger,
	}, nil
}

// Evaluate runs the deep criteria for a token. The returned checklist
// covers every criterion evaluated up to and including the first failure.
// External providers are best-effort: a provider error fails its
// criterion instead of aborting the evaluation.
func (d *DeepScreen) Evaluate(ctx context.Context, mint string, rec *domain.FeatureRecord, asOfMs int64) (bool, []domain.CriterionResult) {
	cfg := d.cfg
	var results []domain.CriterionResult

	check := func(name string, threshold, actual float64, pass bool) bool {
		results = append(results, domain.CriterionResult{
			Name:      name,
			Threshold: threshold,
			Actual:    actual,
			Pass:      pass,
		})
		return pass
	}

	// 1. Market cap band.
	marketCapUSD := rec.Get("market_cap_sol") * features.SOLPriceUSD
	if !check("min_market_cap_usd", cfg.MinMarketCapUSD, marketCapUSD, marketCapUSD >= cfg.MinMarketCapUSD) {
		return false, results
	}
	if !check("max_market_cap_usd", cfg.MaxMarketCapUSD, marketCapUSD, marketCapUSD <= cfg.MaxMarketCapUSD) {
		return false, results
	}

	// 2. Sustained activity since launch.
	activeMinutes := rec.Get("token_age_seconds") / 60
	if !check("min_active_minutes", cfg.MinActiveMinutes, activeMinutes, activeMinutes >= cfg.MinActiveMinutes) {
		return false, results
	}

	// 3. Smart wallet participation.
	buyers := d.agg.BuyersInWindow(mint, cfg.SmartWalletWindowMin, asOfMs)
	smartBuys := float64(d.smartWallets.CountMembers(buyers))
	if !check("min_smart_wallets", cfg.MinSmartWallets, smartBuys, smartBuys >= cfg.MinSmartWallets) {
		return false, results
	}

	// 4. Volume / market cap band.
	ratio := rec.Get("volume_mcap_ratio_1h")
	if !check("min_volume_mcap_ratio", cfg.MinVolumeMcapRatio, ratio, ratio >= cfg.MinVolumeMcapRatio) {
		return false, results
	}
	if !check("max_volume_mcap_ratio", cfg.MaxVolumeMcapRatio, ratio, ratio <= cfg.MaxVolumeMcapRatio) {
		return false, results
	}

	// 5. Holder count (GMGN). An unreachable provider fails the
	// criterion with a zero count.
	holderCount, err := d.holders.HolderCount(ctx, mint)
	if err != nil {
		d.logger.Printf("[screening] holder count for %s unavailable: %v", mint, err)
		observability.RecordScreenError("deep")
		holderCount = 0
	}
	if !check("min_holder_count", cfg.MinHolderCount, float64(holderCount), float64(holderCount) >= cfg.MinHolderCount) {
		return false, results
	}

	// 6. Holder concentration (Solana RPC). An unreachable provider
	// fails the criterion with 100% concentration.
	concentration, err := d.concentration.TopHolderConcentration(ctx, mint)
	if err != nil {
		d.logger.Printf("[screening] top holder concentration for %s unavailable: %v", mint, err)
		observability.RecordScreenError("deep")
		concentration = 100
	}
	if !check("max_top_concentration_pct", cfg.MaxTopConcentrationPct, concentration, concentration < cfg.MaxTopConcentrationPct) {
		return false, results
	}

	return true, results
}
