package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/clock"
)

// Info - public view of a registered session.
type Info struct {
	Key       string    `json:"key"`
	Account   string    `json:"account,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type entry struct {
	info   Info
	sender interfaces.Sender
}

// Registry - messaging sessions by key with a lifecycle: create, lookup, expire.
// A zero ttl means sessions never expire on their own.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	clock   clock.Clock
	logger  *slog.Logger
}

func NewRegistry(ttl time.Duration, clk clock.Clock, logger *slog.Logger) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clk,
		logger:  logger,
	}
}

var _ interfaces.SessionLookup = (*Registry)(nil)

// Create registers sender under key, replacing any previous session.
func (r *Registry) Create(key, account string, sender interfaces.Sender) Info {
	now := r.clock.Now()
	info := Info{Key: key, Account: account, CreatedAt: now}
	if r.ttl > 0 {
		info.ExpiresAt = now.Add(r.ttl)
	}

	r.mu.Lock()
	_, replaced := r.entries[key]
	r.entries[key] = entry{info: info, sender: sender}
	r.mu.Unlock()

	r.logger.Info("session.created",
		slog.String("key", key),
		slog.String("account", account),
		slog.Bool("replaced", replaced))
	return info
}

// LookupSession returns the live sender for key. Expired sessions are absent.
func (r *Registry) LookupSession(key string) (interfaces.Sender, bool) {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok || r.expired(e.info) {
		return nil, false
	}
	return e.sender, true
}

// Expire removes the session; reports whether it existed.
func (r *Registry) Expire(key string) bool {
	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		r.logger.Info("session.expired", slog.String("key", key))
	}
	return ok
}

// List returns live sessions sorted by key.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		if !r.expired(e.info) {
			out = append(out, e.info)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, e := range r.entries {
		if r.expired(e.info) {
			delete(r.entries, k)
			n++
		}
	}
	if n > 0 {
		r.logger.Debug("session.sweep", slog.Int("removed", n))
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

func (r *Registry) expired(info Info) bool {
	return !info.ExpiresAt.IsZero() && !r.clock.Now().Before(info.ExpiresAt)
}
