// Package sqlstore keeps the key snapshot in the access_keys table.
// It works with any sqlx driver whose bind style sqlx knows (postgres, sqlite).
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nearmod/keybot/core/logger"
	"github.com/nearmod/keybot/internal/keys"
)

type row struct {
	UserID         string      `db:"user_id"`
	AccessKey      string      `db:"access_key"`
	ExpirationDate keys.Date   `db:"expiration_date"`
	ReissueStatus  keys.Status `db:"reissue_status"`
}

const (
	selectAll = `SELECT user_id, access_key, expiration_date, reissue_status FROM access_keys`
	deleteAll = `DELETE FROM access_keys`
	insertRow = `INSERT INTO access_keys (user_id, access_key, expiration_date, reissue_status)
		VALUES (:user_id, :access_key, :expiration_date, :reissue_status)`
)

// Store reads and rewrites the table as one unit.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection. The schema is expected to be migrated.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Load returns every row as a snapshot.
func (s *Store) Load(ctx context.Context) (keys.Snapshot, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, selectAll); err != nil {
		return nil, fmt.Errorf("sqlstore: select: %w", err)
	}
	snap := make(keys.Snapshot, len(rows))
	for _, r := range rows {
		snap[r.UserID] = keys.Record{
			Key:            r.AccessKey,
			ExpirationDate: r.ExpirationDate,
			ReissueStatus:  r.ReissueStatus,
		}
	}
	return snap, nil
}

// Save replaces the table contents with snap in one transaction.
func (s *Store) Save(ctx context.Context, snap keys.Snapshot) (err error) {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteAll); err != nil {
		return fmt.Errorf("sqlstore: clear: %w", err)
	}
	for userID, rec := range snap {
		r := row{
			UserID:         userID,
			AccessKey:      rec.Key,
			ExpirationDate: rec.ExpirationDate,
			ReissueStatus:  rec.ReissueStatus,
		}
		if _, err = tx.NamedExecContext(ctx, insertRow, r); err != nil {
			return fmt.Errorf("sqlstore: insert %s: %w", userID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}

	logger.Debug(ctx, "store", "store.saved",
		slog.String("status", "ok"),
		slog.String("driver", s.db.DriverName()),
		slog.Int("count", len(snap)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
