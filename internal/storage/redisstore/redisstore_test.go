package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearmod/keybot/internal/keys"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ""), srv
}

func TestLoadMissingValue(t *testing.T) {
	store, _ := newStore(t)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestLoadMalformedValue(t *testing.T) {
	store, srv := newStore(t)
	require.NoError(t, srv.Set(DefaultKey, "{not json"))

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, srv := newStore(t)
	ctx := context.Background()
	exp, err := keys.ParseDate("2027-10-18")
	require.NoError(t, err)
	want := keys.Snapshot{
		"42": {Key: "nearmod-ABCDEF123456", ExpirationDate: exp, ReissueStatus: keys.StatusForbidden},
	}

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := srv.Get(DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "запрещена")
}

func TestLoadUnavailable(t *testing.T) {
	store, srv := newStore(t)
	srv.Close()

	_, err := store.Load(context.Background())
	require.Error(t, err)
}
