package rdb

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	goredis "github.com/go-redis/redis/v8"
)

// Publisher sends cycle results to a redis pub/sub channel.
type Publisher struct {
	client  *goredis.Client
	channel string
	timeout time.Duration
	logger  *slog.Logger
}

func NewPublisher(client *goredis.Client, channel string, timeout time.Duration, logger *slog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{client: client, channel: channel, timeout: timeout, logger: logger}
}

// Publish is best effort: failures are logged and never reach the cycle.
func (p *Publisher) Publish(res domain.CycleResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		p.logger.Error("redis.publish marshal failed", slog.String("error", err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("redis.publish failed",
			slog.String("channel", p.channel),
			slog.String("error", err.Error()))
	}
}
