package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mazzara/algoone/internal/config"
	"github.com/mazzara/algoone/internal/logger"
	"github.com/mazzara/algoone/internal/market"
	"github.com/mazzara/algoone/internal/market/alpaca"
	"github.com/mazzara/algoone/internal/market/binance"
	"github.com/mazzara/algoone/internal/storage"
	"github.com/mazzara/algoone/internal/watcher"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewFileStore(cfg.StateDir)
	if err != nil {
		log.Fatalf("CRITICAL: could not open state dir %s: %v", cfg.StateDir, err)
	}

	var provider market.Provider
	switch cfg.Source {
	case "binance":
		provider = binance.NewProvider(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceTestnet)
	default:
		provider = alpaca.NewProvider()
	}

	// In dry-run mode decisions are logged but never sent to the broker.
	var executor market.OrderExecutor
	if !cfg.DryRun {
		executor, _ = provider.(market.OrderExecutor)
	}

	overrides := config.LoadOverrides(cfg.OverridesFile)
	if err := overrides.Watch(ctx); err != nil {
		log.Printf("WARN: override hot reload disabled: %v", err)
	}

	profiles := market.NewFileProfiles(cfg.ProfilesFile)

	w := watcher.New(cfg, provider, executor, store, overrides, profiles)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutting down: system signal received.")
		cancel()
	}()

	log.Printf("AlgoOne watcher started (source=%s strategy=%s dry_run=%t)",
		cfg.Source, cfg.SLStrategy, cfg.DryRun)
	log.Printf("Polling interval: %d seconds", cfg.PollIntervalSec)

	w.Poll(ctx) // run once immediately on start

	ticker := time.NewTicker(time.Duration(cfg.PollIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Main loop stopping...")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}
