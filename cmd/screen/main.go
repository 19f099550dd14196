// Package main runs the deep screen once over stored tokens and prints
// the checklist for each candidate. Useful for threshold tuning against
// recorded data without a live stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"pumpwatch/internal/aggregator"
	"pumpwatch/internal/config"
	"pumpwatch/internal/domain"
	"pumpwatch/internal/features"
	"pumpwatch/internal/gmgn"
	"pumpwatch/internal/observability"
	"pumpwatch/internal/screening"
	"pumpwatch/internal/solana"
	pgstore "pumpwatch/internal/storage/postgres"
	"pumpwatch/internal/wallets"
)

func main() {
	configPath := flag.String("config", os.Getenv("PUMPWATCH_CONFIG"), "Path to TOML config file")
	mint := flag.String("mint", "", "Screen a single mint instead of all recently active tokens")
	lookback := flag.Duration("lookback", time.Hour, "Consider tokens with a trade within this window")
	flag.Parse()

	logger := log.New(os.Stderr, "[screen] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		logger.Fatal("postgres dsn is required (set [postgres] dsn or PUMPWATCH_POSTGRES_DSN)")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	tokens := pgstore.NewTokenStore(pool)
	trades := pgstore.NewTradeStore(pool)
	walletSets := pgstore.NewWalletSetStore(pool)

	known, err := wallets.NewTracker(wallets.TrackerOptions{Name: "known", Store: walletSets, Logger: logger})
	if err != nil {
		logger.Fatalf("Known wallet tracker: %v", err)
	}
	smart, err := wallets.NewTracker(wallets.TrackerOptions{Name: "smart", Store: walletSets, Logger: logger})
	if err != nil {
		logger.Fatalf("Smart wallet tracker: %v", err)
	}
	if err := known.Refresh(ctx); err != nil {
		logger.Printf("Refresh known wallets: %v", err)
	}
	if err := smart.Refresh(ctx); err != nil {
		logger.Printf("Refresh smart wallets: %v", err)
	}

	now := time.Now()

	var candidates []*domain.TokenRecord
	if *mint != "" {
		tok, err := tokens.GetByMint(ctx, *mint)
		if err != nil {
			logger.Fatalf("Load token %s: %v", *mint, err)
		}
		candidates = []*domain.TokenRecord{tok}
	} else {
		candidates, err = tokens.GetActiveSince(ctx, now.Add(-*lookback).UnixMilli())
		if err != nil {
			logger.Fatalf("List active tokens: %v", err)
		}
	}
	if len(candidates) == 0 {
		logger.Println("No candidate tokens")
		return
	}

	// Rebuild the sliding windows from stored trades.
	agg := aggregator.New()
	for _, tok := range candidates {
		history, err := trades.GetByMint(ctx, tok.Mint)
		if err != nil {
			logger.Fatalf("Load trades for %s: %v", tok.Mint, err)
		}
		for _, trade := range history {
			agg.Add(*trade)
		}
	}

	engine, err := features.NewEngine(features.EngineOptions{
		Aggregator:           agg,
		Tokens:               tokens,
		Trades:               trades,
		KnownWallets:         known,
		Windows:              cfg.Aggregator.Windows,
		WalletWindowMinutes:  cfg.Aggregator.WalletWindowMinutes,
		PrimaryWindowMinutes: cfg.Aggregator.PrimaryWindowMinutes,
	})
	if err != nil {
		logger.Fatalf("Feature engine: %v", err)
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint)
	deep, err := screening.NewDeepScreen(screening.DeepScreenOptions{
		Config:       cfg.DeepConfig(),
		Aggregator:   agg,
		SmartWallets: smart,
		Concentration: &concentrationProvider{
			rpc:  rpc,
			topN: cfg.Deep.TopHolderCount,
		},
		Holders: gmgn.NewClient(gmgn.WithBaseURL(cfg.GMGN.BaseURL)),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatalf("Deep screen: %v", err)
	}

	passed := 0
	for _, tok := range candidates {
		rec, err := engine.Compute(ctx, tok.Mint, now)
		if err != nil {
			logger.Printf("Features for %s: %v", tok.Mint, err)
			continue
		}
		pass, criteria := deep.Evaluate(ctx, tok.Mint, rec, now.UnixMilli())
		if pass {
			passed++
		}
		printChecklist(tok, pass, criteria)
	}

	fmt.Printf("\n%d/%d token(s) passed the deep screen\n", passed, len(candidates))
}

func printChecklist(tok *domain.TokenRecord, pass bool, criteria []domain.CriterionResult) {
	verdict := "FAIL"
	if pass {
		verdict = "PASS"
	}
	fmt.Printf("\n%s %s (%s, mc %.1f SOL)\n", verdict, tok.Mint, tok.Symbol, tok.MarketCapSOL)
	for _, c := range criteria {
		mark := "fail"
		if c.Pass {
			mark = "ok  "
		}
		fmt.Printf("  [%s] %-28s %12.4f  (threshold %.4f)\n", mark, c.Name, c.Actual, c.Threshold)
	}
}

type concentrationProvider struct {
	rpc  *solana.HTTPClient
	topN int
}

func (p *concentrationProvider) TopHolderConcentration(ctx context.Context, mint string) (float64, error) {
	start := time.Now()
	pct, err := p.rpc.TopHolderConcentration(ctx, mint, p.topN)
	observability.RecordProviderCall("solana", "topHolderConcentration", time.Since(start).Seconds(), err)
	return pct, err
}
