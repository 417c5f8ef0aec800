package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/nearmod/keybot/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	retryEvery     = 2 * time.Second
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens a pool for cfg and pings it.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	attrs := []slog.Attr{
		slog.String("event", "db.connect"),
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.target()),
	}
	if cfg.Driver == DriverPostgres {
		attrs = append(attrs, slog.String("host", cfg.Host), slog.String("port", cfg.Port))
	}

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	attrs = append(attrs, slog.Duration("duration", logger.Took(start)))
	if err != nil {
		logger.DB.LogAttrs(ctx, slog.LevelError, "db connect",
			append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if cfg.Driver == DriverSQLite {
		// sqlite allows a single writer
		pool = 1
	}
	if pool > 0 {
		db.SetMaxOpenConns(pool)
		db.SetMaxIdleConns(pool)
	}
	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db connect",
		append(attrs, slog.String("status", "ok"), slog.Int("pool_open", pool))...)
	return db, nil
}

// WaitForDB pings the database every couple of seconds until it answers
// or ctx ends.
func WaitForDB(ctx context.Context, cfg Config) error {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	tick := time.NewTicker(retryEvery)
	defer tick.Stop()
	for {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready: %w", err)
		case <-tick.C:
		}
	}
}
