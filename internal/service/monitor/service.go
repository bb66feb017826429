package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/parser"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/botfmt"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/clock"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/card"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/changes"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/chart"
)

// Deps - зависимости сервиса мониторинга.
type Deps struct {
	Feed       FeedClient
	Store      HistoryStore
	Renderer   Renderer
	Sessions   SessionLookup
	Charts     *chart.Renderer
	Cards      *card.Composer
	Targets    []domain.Target
	Viewport   domain.Viewport
	WindowSize int
	TempDir    string
	Location   *time.Location
	Clock      clock.Clock
	Publishers []interfaces.CyclePublisher
	Logger     *slog.Logger
}

type service struct {
	feed       FeedClient
	store      HistoryStore
	renderer   Renderer
	sessions   SessionLookup
	charts     *chart.Renderer
	cards      *card.Composer
	targets    map[string]domain.Target
	order      []string
	viewport   domain.Viewport
	windowSize int
	tempDir    string
	loc        *time.Location
	clock      clock.Clock
	publishers []interfaces.CyclePublisher
	logger     *slog.Logger
}

// NewService - пайплайн: fetch -> parse -> diff -> persist -> threshold -> render -> dispatch.
func NewService(d Deps) interfaces.Monitor {
	s := &service{
		feed:       d.Feed,
		store:      d.Store,
		renderer:   d.Renderer,
		sessions:   d.Sessions,
		charts:     d.Charts,
		cards:      d.Cards,
		targets:    make(map[string]domain.Target, len(d.Targets)),
		viewport:   d.Viewport,
		windowSize: d.WindowSize,
		tempDir:    d.TempDir,
		loc:        d.Location,
		clock:      d.Clock,
		publishers: d.Publishers,
		logger:     d.Logger,
	}
	for _, t := range d.Targets {
		s.targets[t.Key] = t
		s.order = append(s.order, t.Key)
	}
	if s.viewport.Width <= 0 {
		s.viewport = domain.DefaultViewport
	}
	if s.windowSize <= 0 {
		s.windowSize = domain.DefaultMaxHistory
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	return s
}

func (s *service) Target(key string) (domain.Target, bool) {
	t, ok := s.targets[key]
	return t, ok
}

func (s *service) Targets() []domain.Target {
	out := make([]domain.Target, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.targets[k])
	}
	return out
}

// RunCycle - один цикл мониторинга цели. Ошибка возвращается для
// fatalError и changedWithError; предупреждение (нет сессии) - только в Result.
func (s *service) RunCycle(ctx context.Context, targetKey string, policy domain.Policy) (domain.CycleResult, error) {
	started := s.clock.Now()
	res := domain.CycleResult{Target: targetKey, Stage: domain.StageIdle, StartedAt: started.UnixMilli()}

	target, ok := s.targets[targetKey]
	if !ok {
		res.Outcome = domain.OutcomeFatalError
		res.Error = errs.ErrTargetNotFound.Error()
		return res, errs.ErrTargetNotFound
	}

	err := s.run(ctx, target, policy, &res)
	res.Duration = s.clock.Now().Sub(started).Milliseconds()
	if err != nil {
		res.Error = err.Error()
	}
	s.report(res)
	return res, err
}

func (s *service) run(ctx context.Context, target domain.Target, policy domain.Policy, res *domain.CycleResult) error {
	obs, stage, err := s.observe(ctx, target)
	if err != nil {
		res.Stage = stage
		res.Outcome = domain.OutcomeFatalError
		return err
	}
	res.Snapshot = &obs.snapshot
	res.Previous = obs.previous
	res.Change = &obs.change

	if !obs.change.HasChanged {
		res.Stage = domain.StageIdle
		res.Outcome = domain.OutcomeNoChange
		return nil
	}

	res.Stage = domain.StageThresholdCheck
	if !changes.ExceedsThreshold(obs.change, policy) {
		res.Outcome = domain.OutcomeChangedBelowThreshold
		return nil
	}
	if err := ctx.Err(); err != nil {
		res.Outcome = domain.OutcomeChangedWithError
		return fmt.Errorf("cycle cancelled: %w", err)
	}

	res.Stage = domain.StageRendering
	img, err := s.renderCard(ctx, target, obs.snapshot, &obs.change)
	if err != nil {
		res.Outcome = domain.OutcomeChangedWithError
		return err
	}

	res.Stage = domain.StageDispatching
	sender, ok := s.sessions.LookupSession(target.SessionKey)
	if !ok {
		res.Outcome = domain.OutcomeChangedWithWarning
		res.Warning = fmt.Sprintf("%s: %q", errs.ErrSessionNotFound, target.SessionKey)
		return nil
	}

	sent, err := s.dispatch(ctx, sender, target, img, botfmt.FormatChangeCaption(obs.snapshot, obs.change))
	if err != nil {
		res.Outcome = domain.OutcomeChangedWithError
		return err
	}
	res.Sent = &sent
	res.Stage = domain.StageIdle
	res.Outcome = domain.OutcomeChangedAndSent
	return nil
}

type observation struct {
	snapshot domain.Snapshot
	previous *domain.Snapshot
	change   domain.PriceChange
}

// observe - fetch, parse, diff и persist. Снапшот сохраняется до любой проверки порога.
func (s *service) observe(ctx context.Context, target domain.Target) (observation, domain.Stage, error) {
	snap, stage, err := s.capture(ctx, target.ProductName)
	if err != nil {
		return observation{}, stage, err
	}

	prev, err := s.store.LoadLatest(ctx, target.Key)
	if err != nil {
		s.logger.Error("monitor.load_latest failed",
			slog.String("target", target.Key),
			slog.String("error", err.Error()))
		return observation{}, domain.StageDiffing, err
	}
	change := changes.Compare(previousQuote(prev, snap.Primary.ProductName), snap.Primary)

	saved, err := s.store.Save(ctx, target.Key, snap)
	if err != nil {
		return observation{}, domain.StagePersisting, err
	}
	return observation{snapshot: saved, previous: prev, change: change}, domain.StageIdle, nil
}

// capture - fetch и parse без сохранения.
func (s *service) capture(ctx context.Context, product string) (domain.Snapshot, domain.Stage, error) {
	page, err := s.feed.FetchPage(ctx)
	if err != nil {
		s.logger.Error("monitor.fetch failed", slog.String("error", err.Error()))
		return domain.Snapshot{}, domain.StageFetching, err
	}

	if strings.TrimSpace(page.Markup) == "" {
		return domain.Snapshot{}, domain.StageParsing, errs.ErrFeedEmpty
	}
	quotes := parser.ParseAll(page.Markup)
	if len(quotes) == 0 {
		s.logger.Error("monitor.parse failed",
			slog.Int("markup_bytes", len(page.Markup)),
			slog.String("error", errs.ErrNoQuotes.Error()))
		return domain.Snapshot{}, domain.StageParsing, errs.ErrNoQuotes
	}

	primary := parser.Select(quotes, product)
	if primary == nil {
		primary = &quotes[0]
	}
	return domain.Snapshot{
		Quotes:     quotes,
		Primary:    *primary,
		UpdateDate: page.LastDate,
		UpdateTime: page.LastTime,
	}, domain.StageIdle, nil
}

// previousQuote - та же позиция в прошлом снапшоте, иначе его основная котировка.
func previousQuote(prev *domain.Snapshot, product string) *domain.Quote {
	if prev == nil {
		return nil
	}
	if q, ok := prev.FindQuote(product); ok {
		return &q
	}
	q := prev.Primary
	return &q
}

// renderCard - chart + composer + rasterizer. Любой сбой здесь - ErrRenderFailed.
func (s *service) renderCard(ctx context.Context, target domain.Target, snap domain.Snapshot, change *domain.PriceChange) ([]byte, error) {
	doc, err := s.compose(ctx, target, snap, change)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRenderFailed, err)
	}

	img, err := s.renderer.Render(ctx, doc, s.viewport)
	if err != nil {
		s.logger.Error("monitor.render failed",
			slog.String("target", target.Key),
			slog.String("error", err.Error()))
		if errors.Is(err, errs.ErrRenderFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrRenderFailed, err)
	}
	return img, nil
}

func (s *service) compose(ctx context.Context, target domain.Target, snap domain.Snapshot, change *domain.PriceChange) (string, error) {
	window, err := s.store.RecentWindow(ctx, target.Key, s.windowSize)
	if err != nil {
		// график необязателен
		s.logger.Warn("monitor.window failed",
			slog.String("target", target.Key),
			slog.String("error", err.Error()))
		window = []domain.Snapshot{snap}
	}
	return s.cards.Compose(card.Input{
		Snapshot: snap,
		Change:   change,
		Chart:    s.charts.Render(window, target.ProductName),
		Product:  target.ProductName,
	})
}

// dispatch - временный файл, отправка вложением, удаление файла в любом случае.
func (s *service) dispatch(ctx context.Context, sender interfaces.Sender, target domain.Target, img []byte, caption string) (domain.SendResult, error) {
	path, err := s.writeTemp(img)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
	}
	defer s.removeTemp(path)

	sent, err := sender.SendMessage(ctx, domain.MessageContent{
		Text:        caption,
		Attachments: []string{path},
	}, target.ThreadID, target.ThreadType)
	if err != nil {
		s.logger.Error("monitor.send failed",
			slog.String("target", target.Key),
			slog.String("thread", target.ThreadID),
			slog.String("error", err.Error()))
		if errors.Is(err, errs.ErrSendFailed) {
			return domain.SendResult{}, err
		}
		return domain.SendResult{}, fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
	}
	return sent, nil
}

func (s *service) writeTemp(img []byte) (string, error) {
	f, err := os.CreateTemp(s.tempDir, fmt.Sprintf("price-%d-*.png", s.clock.Now().UnixMilli()))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(img); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

func (s *service) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("monitor.cleanup failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func (s *service) report(res domain.CycleResult) {
	attrs := []any{
		slog.String("target", res.Target),
		slog.String("outcome", string(res.Outcome)),
		slog.String("stage", string(res.Stage)),
		slog.Int64("duration_ms", res.Duration),
	}
	switch res.Outcome {
	case domain.OutcomeFatalError, domain.OutcomeChangedWithError:
		s.logger.Error("monitor.cycle failed", append(attrs, slog.String("error", res.Error))...)
	case domain.OutcomeChangedWithWarning:
		s.logger.Warn("monitor.cycle warning", append(attrs, slog.String("warning", res.Warning))...)
	default:
		s.logger.Info("monitor.cycle done", attrs...)
	}
	for _, p := range s.publishers {
		p.Publish(res)
	}
}

// Check - fetch, diff и persist без отправки.
func (s *service) Check(ctx context.Context, targetKey string) (domain.CheckResult, error) {
	target, ok := s.targets[targetKey]
	if !ok {
		return domain.CheckResult{}, errs.ErrTargetNotFound
	}
	obs, _, err := s.observe(ctx, target)
	if err != nil {
		return domain.CheckResult{}, err
	}
	return domain.CheckResult{
		Target:   targetKey,
		Snapshot: obs.snapshot,
		Previous: obs.previous,
		Change:   obs.change,
	}, nil
}

// Fetch - текущие цены без сохранения.
func (s *service) Fetch(ctx context.Context, productName string) (domain.Snapshot, error) {
	snap, _, err := s.capture(ctx, productName)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.Stamp(s.clock.Now(), s.loc)
	return snap, nil
}

// Preview - HTML карточки по последнему сохранённому снапшоту.
func (s *service) Preview(ctx context.Context, targetKey string) (string, error) {
	target, ok := s.targets[targetKey]
	if !ok {
		return "", errs.ErrTargetNotFound
	}
	latest, err := s.store.LoadLatest(ctx, targetKey)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", errs.ErrSnapshotMissing
	}
	return s.compose(ctx, target, *latest, nil)
}

func (s *service) History(ctx context.Context, targetKey string) (domain.History, error) {
	if _, ok := s.targets[targetKey]; !ok {
		return domain.History{}, errs.ErrTargetNotFound
	}
	return s.store.LoadHistory(ctx, targetKey)
}

func (s *service) Latest(ctx context.Context, targetKey string) (*domain.Snapshot, error) {
	if _, ok := s.targets[targetKey]; !ok {
		return nil, errs.ErrTargetNotFound
	}
	return s.store.LoadLatest(ctx, targetKey)
}
