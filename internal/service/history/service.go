package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/clock"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository"
)

// Store - persisted latest slot plus bounded history, per target.
type Store interface {
	Save(ctx context.Context, target string, s domain.Snapshot) (domain.Snapshot, error)
	LoadLatest(ctx context.Context, target string) (*domain.Snapshot, error)
	LoadHistory(ctx context.Context, target string) (domain.History, error)
	RecentWindow(ctx context.Context, target string, n int) ([]domain.Snapshot, error)
}

type service struct {
	backend    repository.Backend
	maxHistory int
	clock      clock.Clock
	loc        *time.Location
	locks      *keyedMutex
	logger     *slog.Logger
}

// NewService - history store over a storage backend. loc is used to fill
// human readable date/time when the feed did not provide them.
func NewService(backend repository.Backend, maxHistory int, loc *time.Location, logger *slog.Logger) Store {
	return NewServiceWithClock(backend, maxHistory, loc, clock.New(), logger)
}

// NewServiceWithClock - для тестов: фиксированные часы.
func NewServiceWithClock(backend repository.Backend, maxHistory int, loc *time.Location, clk clock.Clock, logger *slog.Logger) Store {
	if maxHistory <= 0 {
		maxHistory = domain.DefaultMaxHistory
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		backend:    backend,
		maxHistory: maxHistory,
		clock:      clk,
		loc:        loc,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// Save stamps the snapshot, overwrites the latest slot and upserts it into history.
// The history update runs under the target's lock and the backend's atomic update.
func (s *service) Save(ctx context.Context, target string, snap domain.Snapshot) (domain.Snapshot, error) {
	snap.Stamp(s.clock.Now(), s.loc)

	if err := s.backend.SaveLatest(ctx, target, snap); err != nil {
		s.logger.Error("history.save_latest failed",
			slog.String("target", target),
			slog.String("error", err.Error()))
		return snap, fmt.Errorf("save latest: %w", err)
	}

	unlock := s.locks.Lock(target)
	defer unlock()

	var size int
	err := s.backend.UpdateHistory(ctx, target, func(cur *domain.History) (domain.History, error) {
		h := domain.NewHistory(s.maxHistory)
		if cur != nil {
			h = *cur
		}
		next := h.Upsert(snap, s.maxHistory)
		size = len(next.Snapshots)
		return next, nil
	})
	if err != nil {
		s.logger.Error("history.update failed",
			slog.String("target", target),
			slog.String("error", err.Error()))
		return snap, fmt.Errorf("update history: %w", err)
	}

	s.logger.Debug("history.saved",
		slog.String("target", target),
		slog.Int64("timestamp", snap.Timestamp),
		slog.Int("size", size))
	return snap, nil
}

func (s *service) LoadLatest(ctx context.Context, target string) (*domain.Snapshot, error) {
	snap, err := s.backend.LoadLatest(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("load latest: %w", err)
	}
	return snap, nil
}

// LoadHistory returns the persisted window clamped to the configured bound,
// so a lowered bound takes effect before the next save.
func (s *service) LoadHistory(ctx context.Context, target string) (domain.History, error) {
	h, err := s.backend.LoadHistory(ctx, target)
	if err != nil {
		return domain.History{}, fmt.Errorf("load history: %w", err)
	}
	if h == nil {
		return domain.NewHistory(s.maxHistory), nil
	}
	if h.MaxHistory != s.maxHistory {
		s.logger.Debug("history.bound_changed",
			slog.String("target", target),
			slog.Int("persisted", h.MaxHistory),
			slog.Int("configured", s.maxHistory))
	}
	return h.Clamp(s.maxHistory), nil
}

// RecentWindow - ascending, at most n and at most maxHistory snapshots.
func (s *service) RecentWindow(ctx context.Context, target string, n int) ([]domain.Snapshot, error) {
	h, err := s.LoadHistory(ctx, target)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > s.maxHistory {
		n = s.maxHistory
	}
	return h.Recent(n), nil
}
