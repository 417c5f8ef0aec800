// Package filestore keeps the key snapshot in a single JSON file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nearmod/keybot/core/logger"
	"github.com/nearmod/keybot/internal/keys"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "keys.json"

// Store reads and replaces the whole file on every call.
type Store struct {
	path string
}

// New returns a Store backed by path.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns an empty snapshot when the file is absent or malformed.
func (s *Store) Load(ctx context.Context) (keys.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return keys.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", s.path, err)
	}
	snap, err := keys.DecodeSnapshot(data)
	if err != nil {
		logger.Warn(ctx, "store", "store.load.malformed",
			slog.String("status", "skip"),
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return keys.Snapshot{}, nil
	}
	return snap, nil
}

// Save writes snap to a temp file next to the target and renames it over.
func (s *Store) Save(ctx context.Context, snap keys.Snapshot) error {
	data, err := keys.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("filestore: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", s.path, err)
	}
	tmpName = ""

	logger.Debug(ctx, "store", "store.saved",
		slog.String("status", "ok"),
		slog.String("path", s.path),
		slog.Int("count", len(snap)),
	)
	return nil
}
