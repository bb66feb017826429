package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// HistoryRepo keeps both documents of every target as JSON files in one directory:
// <dir>/<target>.latest.json and <dir>/<target>.history.json.
type HistoryRepo struct {
	dir string
	mu  sync.Mutex // serializes history read-modify-write within the process
}

// NewHistoryRepository creates the directory if needed.
func NewHistoryRepository(dir string) (*HistoryRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &HistoryRepo{dir: dir}, nil
}

var _ repository.Backend = (*HistoryRepo)(nil)

func (r *HistoryRepo) LoadLatest(_ context.Context, target string) (*domain.Snapshot, error) {
	var s domain.Snapshot
	ok, err := r.read(r.path(target, "latest"), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (r *HistoryRepo) SaveLatest(_ context.Context, target string, s domain.Snapshot) error {
	return r.write(r.path(target, "latest"), s)
}

func (r *HistoryRepo) LoadHistory(_ context.Context, target string) (*domain.History, error) {
	var h domain.History
	ok, err := r.read(r.path(target, "history"), &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

func (r *HistoryRepo) UpdateHistory(ctx context.Context, target string, fn repository.UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.LoadHistory(ctx, target)
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return r.write(r.path(target, "history"), next)
}

func (r *HistoryRepo) path(target, kind string) string {
	name := unsafeName.ReplaceAllString(target, "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(r.dir, name+"."+kind+".json")
}

// read decodes path into v; a missing file reports ok=false without error.
func (r *HistoryRepo) read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// write replaces path atomically via a temp file in the same directory.
func (r *HistoryRepo) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(r.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
