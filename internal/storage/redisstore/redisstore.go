// Package redisstore keeps the key snapshot as one JSON value in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nearmod/keybot/core/logger"
	"github.com/nearmod/keybot/internal/keys"
)

// DefaultKey is the Redis key holding the snapshot.
const DefaultKey = "nearmod:keys"

// Store reads and replaces the whole value on every call.
type Store struct {
	client redis.UniversalClient
	key    string
}

// New wraps a client. An empty key selects DefaultKey.
func New(client redis.UniversalClient, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Load returns an empty snapshot when the value is absent or malformed.
func (s *Store) Load(ctx context.Context) (keys.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return keys.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get %s: %w", s.key, err)
	}
	snap, err := keys.DecodeSnapshot(data)
	if err != nil {
		logger.Warn(ctx, "store", "store.load.malformed",
			slog.String("status", "skip"),
			slog.String("redis_key", s.key),
			slog.String("err", err.Error()),
		)
		return keys.Snapshot{}, nil
	}
	return snap, nil
}

// Save overwrites the value with snap.
func (s *Store) Save(ctx context.Context, snap keys.Snapshot) error {
	data, err := keys.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", s.key, err)
	}
	logger.Debug(ctx, "store", "store.saved",
		slog.String("status", "ok"),
		slog.String("redis_key", s.key),
		slog.Int("count", len(snap)),
	)
	return nil
}
