package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"brokerbot/core/buildinfo"
	"brokerbot/core/config"
	"brokerbot/core/logger"
	"brokerbot/internal/app"
)

func main() {
	// Best-effort: a missing .env just means plain environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Shutdown() }()

	logger.L.Info("brokerbot starting",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		logger.L.Error("brokerbot exited", "err", err)
		_ = logger.Shutdown()
		os.Exit(1)
	}
}
