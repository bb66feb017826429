package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository/file"
)

func TestHistoryRepo_AbsentIsNotError(t *testing.T) {
	t.Parallel()
	repo, err := file.NewHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	latest, err := repo.LoadLatest(context.Background(), "default")
	if err != nil || latest != nil {
		t.Fatalf("latest = %v, err = %v", latest, err)
	}
	hist, err := repo.LoadHistory(context.Background(), "default")
	if err != nil || hist != nil {
		t.Fatalf("history = %v, err = %v", hist, err)
	}
}

func TestHistoryRepo_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	repo, err := file.NewHistoryRepository(dir)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	ctx := context.Background()
	q := domain.Quote{ProductName: "BẠC MIẾNG PHÚ QUÝ 999 1 LƯỢNG", BuyPrice: 2329000, SellPrice: 2389000}
	snap := domain.Snapshot{Quotes: []domain.Quote{q}, Primary: q, UpdateDate: "01/03/2025", UpdateTime: "09:00", Timestamp: 1740794400000}

	if err := repo.SaveLatest(ctx, "default", snap); err != nil {
		t.Fatalf("save latest: %v", err)
	}
	got, err := repo.LoadLatest(ctx, "default")
	if err != nil || got == nil || got.Primary.BuyPrice != 2329000 {
		t.Fatalf("latest = %+v, err = %v", got, err)
	}

	err = repo.UpdateHistory(ctx, "default", func(cur *domain.History) (domain.History, error) {
		if cur != nil {
			t.Fatalf("expected no history yet, got %+v", cur)
		}
		return domain.NewHistory(5).Upsert(snap, 5), nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	hist, err := repo.LoadHistory(ctx, "default")
	if err != nil || hist == nil || len(hist.Snapshots) != 1 || hist.MaxHistory != 5 {
		t.Fatalf("history = %+v, err = %v", hist, err)
	}

	// временные файлы не остаются после записи
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected files: %v", names)
	}
	if _, err := os.Stat(filepath.Join(dir, "default.history.json")); err != nil {
		t.Fatalf("history file missing: %v", err)
	}
}

func TestHistoryRepo_UpdateErrorKeepsDocument(t *testing.T) {
	t.Parallel()
	repo, err := file.NewHistoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	boom := errors.New("boom")
	err = repo.UpdateHistory(context.Background(), "default", func(*domain.History) (domain.History, error) {
		return domain.History{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	hist, err := repo.LoadHistory(context.Background(), "default")
	if err != nil || hist != nil {
		t.Fatalf("history must stay absent, got %+v, %v", hist, err)
	}
}

func TestHistoryRepo_CorruptDocumentPropagates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	repo, err := file.NewHistoryRepository(dir)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "default.latest.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := repo.LoadLatest(context.Background(), "default"); err == nil {
		t.Fatal("expected decode error")
	}
}
