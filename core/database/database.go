package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"brokerbot/core/logger"

	"log/slog"
)

// Connect opens the backing-store connection, configures the pool, and
// verifies connectivity.
func Connect(dsn string, maxConns int) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("store connect failed",
			slog.String("event", "store.connect"),
			slog.String("driver", "postgres"),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("store connect: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	logger.DB.Info("store connected",
		slog.String("event", "store.connect"),
		slog.String("driver", "postgres"),
		slog.Int("pool_open", maxConns),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return db, nil
}
