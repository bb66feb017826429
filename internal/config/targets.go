package config

import (
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/consts"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
)

// DefaultTargetKey - target used when no targets are configured.
const DefaultTargetKey = "default"

// DomainTargets converts configured targets, filling defaults.
// With no targets configured a single default target is returned.
func (c *Config) DomainTargets() []domain.Target {
	src := c.Targets
	if len(src) == 0 {
		src = []TargetConfig{{Key: DefaultTargetKey, SessionKey: c.Telegram.AutoSession}}
	}
	out := make([]domain.Target, 0, len(src))
	for _, t := range src {
		product := strings.TrimSpace(t.ProductName)
		if product == "" {
			product = consts.DefaultProduct
		}
		interval := t.Interval
		if interval <= 0 {
			interval = c.Scheduler.Interval
		}
		threadType := domain.ThreadUser
		if strings.EqualFold(t.ThreadType, string(domain.ThreadGroup)) {
			threadType = domain.ThreadGroup
		}
		out = append(out, domain.Target{
			Key:              t.Key,
			ProductName:      product,
			SessionKey:       t.SessionKey,
			ThreadID:         t.ThreadID,
			ThreadType:       threadType,
			MinChangePercent: t.MinChangePercent,
			Interval:         interval,
		})
	}
	return out
}
