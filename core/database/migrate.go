package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/nearmod/keybot/core/logger"
)

const (
	readyTimeout = 30 * time.Second
	previewFiles = 6
)

// RunMigrations applies every pending up migration from MigrationsPath.
// Postgres is polled until it accepts connections first.
func RunMigrations(cfg Config) error {
	ctx := context.Background()
	if cfg.Driver == DriverPostgres {
		waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		err := WaitForDB(waitCtx, cfg)
		cancel()
		if err != nil {
			return migrateFailed("wait", err)
		}
	}

	dir, err := filepath.Abs(cfg.MigrationsPath())
	if err != nil {
		return migrateFailed("resolve", err)
	}
	files := upFiles(dir)
	logger.MIG.LogAttrs(ctx, slog.LevelDebug, "migrations resolved",
		append([]slog.Attr{
			slog.String("event", "db.migrate.resolve"),
			slog.String("path", dir),
		}, fileAttrs(files)...)...)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.MigrateURL())
	if err != nil {
		return migrateFailed("init", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.MIG.LogAttrs(ctx, slog.LevelWarn, "migrate close",
				slog.String("event", "db.migrate.close"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return migrateFailed("apply", err, slog.String("driver", cfg.Driver), slog.Duration("duration", logger.Took(start)))
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	logger.MIG.LogAttrs(ctx, slog.LevelInfo, "migrations applied",
		append([]slog.Attr{
			slog.String("event", "db.migrate.summary"),
			slog.String("status", "ok"),
			slog.String("driver", cfg.Driver),
			slog.Uint64("from_ver", uint64(from)),
			slog.Uint64("to_ver", uint64(to)),
			slog.Duration("duration", logger.Took(start)),
		}, fileAttrs(applied)...)...)
	return nil
}

func migrateFailed(step string, err error, extra ...slog.Attr) error {
	logger.MIG.LogAttrs(context.Background(), slog.LevelError, "migration failed",
		append([]slog.Attr{
			slog.String("event", "db.migrate."+step),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		}, extra...)...)
	return fmt.Errorf("migrations %s: %w", step, err)
}

func fileAttrs(files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files", len(files))}
	if preview, cut := logger.SummarizeStrings(files, previewFiles); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview), slog.Bool("files_truncated", cut))
	}
	return attrs
}

// upFiles lists the *.up.sql names in dir, sorted.
func upFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// appliedBetween returns the files with a version in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
