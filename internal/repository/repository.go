package repository

import (
	"context"
	"errors"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict - concurrent writers kept invalidating an optimistic update.
	ErrConflict = errors.New("concurrent history update")
)

// UpdateFunc receives the persisted history (nil when absent) and returns the
// document to persist.
type UpdateFunc func(current *domain.History) (domain.History, error)

// Backend - storage for the two persisted documents of a target:
// the latest snapshot and the bounded history.
type Backend interface {
	// LoadLatest returns nil, nil when nothing was saved yet.
	LoadLatest(ctx context.Context, target string) (*domain.Snapshot, error)
	SaveLatest(ctx context.Context, target string, s domain.Snapshot) error
	// LoadHistory returns nil, nil when nothing was saved yet.
	LoadHistory(ctx context.Context, target string) (*domain.History, error)
	// UpdateHistory runs fn as one atomic read-modify-write.
	UpdateHistory(ctx context.Context, target string, fn UpdateFunc) error
}
