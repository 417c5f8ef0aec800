package keys

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	snap    Snapshot
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryStore) Load(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.snap.Clone(), nil
}

func (m *memoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = snap.Clone()
	return nil
}

func TestServiceIssueThenFetch(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()

	first, err := svc.IssueOrFetch(ctx, "42")
	require.NoError(t, err)
	second, err := svc.IssueOrFetch(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, first, store.snap["42"])
}

func TestServiceReissueFlow(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, &Lifecycle{Now: fixedClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local))})
	ctx := context.Background()

	_, err := svc.Reissue(ctx, "42")
	require.ErrorIs(t, err, ErrNoKey)
	assert.Equal(t, 0, store.saves)

	issued, err := svc.IssueOrFetch(ctx, "42")
	require.NoError(t, err)

	rec, err := svc.Reissue(ctx, "42")
	require.NoError(t, err)
	assert.NotEqual(t, issued.Key, rec.Key)
	assert.Equal(t, StatusForbidden, store.snap["42"].ReissueStatus)
	assert.Equal(t, 2, store.saves)

	_, err = svc.Reissue(ctx, "42")
	require.ErrorIs(t, err, ErrAlreadyForbidden)
	assert.Equal(t, 2, store.saves)
}

func TestServiceStoreFailures(t *testing.T) {
	boom := errors.New("disk gone")
	ctx := context.Background()

	svc := NewService(&memoryStore{loadErr: boom}, nil)
	_, err := svc.IssueOrFetch(ctx, "42")
	require.ErrorIs(t, err, boom)
	assert.False(t, IsRejection(err))

	svc = NewService(&memoryStore{saveErr: boom}, nil)
	_, err = svc.IssueOrFetch(ctx, "42")
	require.ErrorIs(t, err, boom)
}

func TestServiceSerializesConcurrentFirstContact(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()

	const users = 20
	var wg sync.WaitGroup
	wg.Add(users)
	for i := 0; i < users; i++ {
		go func(id int) {
			defer wg.Done()
			_, err := svc.IssueOrFetch(ctx, string(rune('A'+id)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.snap, users)
	assert.Len(t, store.snap.IssuedKeys(), users)
}

func TestServiceStats(t *testing.T) {
	store := &memoryStore{snap: Snapshot{
		"1": {Key: "nearmod-AAAAAAAAAAAA", ExpirationDate: mustDate(t, "2027-01-01"), ReissueStatus: StatusAllowed},
		"2": {Key: "nearmod-BBBBBBBBBBBB", ExpirationDate: mustDate(t, "2027-01-01"), ReissueStatus: StatusForbidden},
		"3": {Key: "nearmod-CCCCCCCCCCCC", ExpirationDate: mustDate(t, "2026-01-01"), ReissueStatus: StatusForbidden},
		"4": {Key: "nearmod-DDDDDDDDDDDD"},
	}}
	svc := NewService(store, &Lifecycle{Now: fixedClock(time.Date(2026, 10, 18, 12, 0, 0, 0, time.Local))})

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Forbidden: 2, Expired: 1, Incomplete: 1}, st)
	assert.Zero(t, store.saves)

	store.loadErr = errors.New("disk gone")
	_, err = svc.Stats(context.Background())
	assert.ErrorIs(t, err, store.loadErr)
}
