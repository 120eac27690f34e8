// cmd/sweeper/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"meetscribe/config"
	"meetscribe/logger"
	"meetscribe/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	l := logger.WithComponent("sweeper")

	if err := cfg.ValidateSweeper(); err != nil {
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = l.WithContext(ctx)

	l.Info().
		Str("dir", cfg.TempDir).
		Dur("interval", cfg.SweepInterval).
		Dur("max_age", cfg.SweepMaxAge).
		Msg("starting temp artifact sweeper")

	// Sweeps once now, then every interval until a signal arrives.
	services.NewTempSweeper(cfg.TempDir, cfg.SweepMaxAge, nil).Run(ctx, cfg.SweepInterval)

	l.Info().Msg("sweeper stopped")
}
