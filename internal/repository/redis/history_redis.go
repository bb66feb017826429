package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository"
	goredis "github.com/go-redis/redis/v8"
)

const maxTxRetries = 5

// HistoryRepo stores both documents as JSON strings:
// <prefix>latest:<target> and <prefix>history:<target>.
type HistoryRepo struct {
	client *goredis.Client
	prefix string
}

func NewHistoryRepository(client *goredis.Client, prefix string) *HistoryRepo {
	if prefix == "" {
		prefix = "price:"
	}
	return &HistoryRepo{client: client, prefix: prefix}
}

var _ repository.Backend = (*HistoryRepo)(nil)

func (r *HistoryRepo) LoadLatest(ctx context.Context, target string) (*domain.Snapshot, error) {
	raw, err := r.client.Get(ctx, r.key("latest", target)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get latest: %w", err)
	}
	var s domain.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode latest snapshot: %w", err)
	}
	return &s, nil
}

func (r *HistoryRepo) SaveLatest(ctx context.Context, target string, s domain.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode latest snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key("latest", target), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set latest: %w", err)
	}
	return nil
}

func (r *HistoryRepo) LoadHistory(ctx context.Context, target string) (*domain.History, error) {
	raw, err := r.client.Get(ctx, r.key("history", target)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get history: %w", err)
	}
	var h domain.History
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &h, nil
}

// UpdateHistory - optimistic WATCH/MULTI; retried when another writer wins.
func (r *HistoryRepo) UpdateHistory(ctx context.Context, target string, fn repository.UpdateFunc) error {
	key := r.key("history", target)

	txf := func(tx *goredis.Tx) error {
		var cur *domain.History
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			var h domain.History
			if err := json.Unmarshal(raw, &h); err != nil {
				return fmt.Errorf("decode history: %w", err)
			}
			cur = &h
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("redis update history: %w", err)
	}
	return repository.ErrConflict
}

func (r *HistoryRepo) key(kind, target string) string {
	return r.prefix + kind + ":" + target
}
