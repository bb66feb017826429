package interfaces

import (
	"context"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
)

// Sender - авторизованная сессия мессенджера.
type Sender interface {
	SendMessage(ctx context.Context, content domain.MessageContent, threadID string, threadType domain.ThreadType) (domain.SendResult, error)
}

// SessionLookup - поиск сессии по ключу.
type SessionLookup interface {
	LookupSession(key string) (Sender, bool)
}
