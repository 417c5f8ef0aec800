package keys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nearmod/keybot/core/logger"
)

const component = "service.keys"

// Store persists the whole snapshot as one unit.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Service runs the lifecycle against a Store. Each call is a full
// load-decide-save cycle; calls are serialized within the process.
type Service struct {
	store     Store
	lifecycle *Lifecycle
	mu        sync.Mutex
}

// NewService wires a Store with a Lifecycle. A nil lifecycle uses the
// wall clock and crypto/rand.
func NewService(store Store, lifecycle *Lifecycle) *Service {
	if lifecycle == nil {
		lifecycle = &Lifecycle{}
	}
	return &Service{store: store, lifecycle: lifecycle}
}

func (s *Service) load(ctx context.Context) (Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// IssueOrFetch returns the user's key, issuing one on first contact.
func (s *Service) IssueOrFetch(ctx context.Context, userID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, changed, err := s.lifecycle.IssueOrFetch(userID, snap)
	if err != nil {
		return Record{}, fmt.Errorf("issue key: %w", err)
	}
	if !changed {
		logger.Debug(ctx, component, "key.fetched",
			slog.String("status", "ok"),
			slog.String("key", Mask(rec.Key)),
		)
		return rec, nil
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return Record{}, fmt.Errorf("save keys: %w", err)
	}
	logger.Info(ctx, component, "key.issued",
		slog.String("status", "ok"),
		slog.String("key", Mask(rec.Key)),
		slog.String("expires", rec.ExpirationDate.String()),
		slog.Int("count", len(snap)),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

// Reissue replaces the user's key once. Rejections are returned as the
// sentinel errors of this package.
func (s *Service) Reissue(ctx context.Context, userID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	previous := snap[userID].Key
	rec, err := s.lifecycle.Reissue(userID, snap)
	if err != nil {
		if IsRejection(err) {
			logger.Info(ctx, component, "key.reissue.rejected",
				slog.String("status", "skip"),
				slog.String("reason", RejectionReason(err)),
			)
			return Record{}, err
		}
		return Record{}, fmt.Errorf("reissue key: %w", err)
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return Record{}, fmt.Errorf("save keys: %w", err)
	}
	logger.Info(ctx, component, "key.reissued",
		slog.String("status", "ok"),
		slog.String("key", Mask(rec.Key)),
		slog.String("previous", Mask(previous)),
		slog.String("expires", rec.ExpirationDate.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

// Stats summarizes the stored records.
type Stats struct {
	Total      int
	Forbidden  int
	Expired    int
	Incomplete int
}

// Stats loads the snapshot and counts records by state.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return Stats{}, err
	}
	today := s.lifecycle.today()
	var st Stats
	for _, rec := range snap {
		st.Total++
		if !rec.Complete() {
			st.Incomplete++
			continue
		}
		if rec.ReissueStatus == StatusForbidden {
			st.Forbidden++
		}
		if today.After(rec.ExpirationDate) {
			st.Expired++
		}
	}
	return st, nil
}
