package interfaces

import (
	"context"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
)

// Monitor - операции пайплайна для транспорта (HTTP, бот, планировщик).
type Monitor interface {
	RunCycle(ctx context.Context, targetKey string, policy domain.Policy) (domain.CycleResult, error)
	Check(ctx context.Context, targetKey string) (domain.CheckResult, error)
	Fetch(ctx context.Context, productName string) (domain.Snapshot, error)
	Preview(ctx context.Context, targetKey string) (string, error)
	History(ctx context.Context, targetKey string) (domain.History, error)
	Latest(ctx context.Context, targetKey string) (*domain.Snapshot, error)
	Target(key string) (domain.Target, bool)
	Targets() []domain.Target
}

// CycleRunner - запуск цикла с объединением конкурирующих вызовов по цели.
type CycleRunner interface {
	RunNow(ctx context.Context, targetKey string, policy *domain.Policy) (domain.CycleResult, error)
}

// CyclePublisher - наблюдатель результатов циклов (websocket, метрики).
type CyclePublisher interface {
	Publish(result domain.CycleResult)
}
