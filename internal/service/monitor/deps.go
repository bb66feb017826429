package monitor

import (
	"context"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
)

//go:generate mockgen -source=deps.go -destination=mocks/deps_mock.go -package=mocks

// FeedClient - источник разметки цен.
type FeedClient interface {
	FetchPage(ctx context.Context) (domain.FeedPage, error)
}

// Renderer - растеризация HTML карточки.
type Renderer interface {
	Render(ctx context.Context, document string, vp domain.Viewport) ([]byte, error)
}

// HistoryStore - последний снапшот и окно истории по цели.
type HistoryStore interface {
	Save(ctx context.Context, target string, s domain.Snapshot) (domain.Snapshot, error)
	LoadLatest(ctx context.Context, target string) (*domain.Snapshot, error)
	LoadHistory(ctx context.Context, target string) (domain.History, error)
	RecentWindow(ctx context.Context, target string, n int) ([]domain.Snapshot, error)
}

// Sender - авторизованная сессия мессенджера (тот же контракт, что interfaces.Sender).
type Sender interface {
	SendMessage(ctx context.Context, content domain.MessageContent, threadID string, threadType domain.ThreadType) (domain.SendResult, error)
}

// SessionLookup - реестр сессий.
type SessionLookup interface {
	LookupSession(key string) (interfaces.Sender, bool)
}
