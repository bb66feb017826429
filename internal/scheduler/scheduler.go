package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"golang.org/x/sync/semaphore"
)

// Cycles - то, что планировщик умеет запускать.
type Cycles interface {
	RunCycle(ctx context.Context, targetKey string, policy domain.Policy) (domain.CycleResult, error)
	Target(key string) (domain.Target, bool)
}

// Scheduler triggers cycles per target and keeps at most one cycle per target
// in flight. Concurrent triggers queue up; each runs its own cycle with its own
// policy and context.
type Scheduler struct {
	cycles     Cycles
	targets    []domain.Target
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger

	mu    sync.Mutex
	gates map[string]*semaphore.Weighted

	inflight sync.WaitGroup
}

// NewScheduler - конструктор планировщика; interval используется для целей без своего интервала
func NewScheduler(cycles Cycles, targets []domain.Target, interval time.Duration, runOnStart bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycles:     cycles,
		targets:    targets,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
		gates:      make(map[string]*semaphore.Weighted),
	}
}

// Start - тикер на каждую цель до остановки контекста
func (s *Scheduler) Start(ctx context.Context) {
	s.inflight.Add(1)
	defer s.inflight.Done()
	s.logger.Info("scheduler started", slog.Int("targets", len(s.targets)))

	var wg sync.WaitGroup
	for _, t := range s.targets {
		wg.Add(1)
		go func(t domain.Target) {
			defer wg.Done()
			s.loop(ctx, t)
		}(t)
	}
	wg.Wait()

	s.logger.Info("scheduler stopped")
}

// Wait blocks until Start has returned and no cycle is running.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t domain.Target) {
	interval := t.Interval
	if interval <= 0 {
		interval = s.interval
	}
	s.logger.Debug("scheduler interval configured",
		slog.String("target", t.Key),
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// первый запуск сразу
	if s.runOnStart {
		s.runOnce(ctx, t)
	}

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

// runOnce - одна итерация по цели с её политикой по умолчанию
func (s *Scheduler) runOnce(ctx context.Context, t domain.Target) {
	s.logger.Debug("tick: running cycle", slog.String("target", t.Key))
	policy := t.Policy()
	if _, err := s.RunNow(ctx, t.Key, &policy); err != nil {
		s.logger.Debug("tick: cycle ended with error",
			slog.String("target", t.Key),
			slog.String("error", err.Error()))
	}
}

// RunNow runs a cycle for targetKey once the target's previous cycle is done.
// A nil policy means the target's configured policy. Cancelling ctx while
// waiting returns without running anything.
func (s *Scheduler) RunNow(ctx context.Context, targetKey string, policy *domain.Policy) (domain.CycleResult, error) {
	t, ok := s.cycles.Target(targetKey)
	if !ok {
		return domain.CycleResult{Target: targetKey, Outcome: domain.OutcomeFatalError}, errs.ErrTargetNotFound
	}
	p := t.Policy()
	if policy != nil {
		p = *policy
	}

	s.inflight.Add(1)
	defer s.inflight.Done()

	gate := s.gate(targetKey)
	if err := gate.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("waiting for running cycle: %w", err)
		s.logger.Debug("scheduler.wait cancelled",
			slog.String("target", targetKey),
			slog.String("error", err.Error()))
		return domain.CycleResult{
			Target:  targetKey,
			Outcome: domain.OutcomeFatalError,
			Stage:   domain.StageIdle,
			Error:   err.Error(),
		}, err
	}
	defer gate.Release(1)

	return s.cycles.RunCycle(ctx, targetKey, p)
}

func (s *Scheduler) gate(key string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[key]
	if !ok {
		g = semaphore.NewWeighted(1)
		s.gates[key] = g
	}
	return g
}
