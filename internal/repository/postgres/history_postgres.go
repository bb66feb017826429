package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepo - latest snapshot and history documents stored as JSONB rows.
type HistoryRepo struct {
	db *pgxpool.Pool
}

// NewHistoryRepository - Создаёт репозиторий на основе пула соединений.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{db: db}
}

var _ repository.Backend = (*HistoryRepo)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS price_latest (
	target     TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS price_history (
	target     TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// EnsureSchema creates the tables when they do not exist yet.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// LoadLatest - последний снапшот цели.
func (r *HistoryRepo) LoadLatest(ctx context.Context, target string) (*domain.Snapshot, error) {
	const query = `SELECT body FROM price_latest WHERE target = $1`

	var body []byte
	err := r.db.QueryRow(ctx, query, target).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode latest snapshot: %w", err)
	}
	return &s, nil
}

// SaveLatest - last write wins.
func (r *HistoryRepo) SaveLatest(ctx context.Context, target string, s domain.Snapshot) error {
	const query = `
		INSERT INTO price_latest (target, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (target)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode latest snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx, query, target, string(body))
	return err
}

// LoadHistory - окно истории цели.
func (r *HistoryRepo) LoadHistory(ctx context.Context, target string) (*domain.History, error) {
	const query = `SELECT body FROM price_history WHERE target = $1`

	var body []byte
	err := r.db.QueryRow(ctx, query, target).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory(body)
}

// UpdateHistory locks the target row for the duration of fn.
func (r *HistoryRepo) UpdateHistory(ctx context.Context, target string, fn repository.UpdateFunc) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// make sure there is a row to lock
	if _, err := tx.Exec(ctx, `
		INSERT INTO price_history (target, body)
		VALUES ($1, 'null'::jsonb)
		ON CONFLICT (target) DO NOTHING`, target); err != nil {
		return err
	}

	var body []byte
	if err := tx.QueryRow(ctx,
		`SELECT body FROM price_history WHERE target = $1 FOR UPDATE`, target,
	).Scan(&body); err != nil {
		return err
	}
	cur, err := decodeHistory(body)
	if err != nil {
		return err
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}
	out, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE price_history SET body = $2, updated_at = now() WHERE target = $1`,
		target, string(out),
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func decodeHistory(body []byte) (*domain.History, error) {
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	var h domain.History
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &h, nil
}
