package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/infra/db"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/infra/feed"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/infra/rdb"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/infra/render"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/metrics"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/repository"
	repofile "github.com/NastyaGoryachaya/silver-price-monitor/internal/repository/file"
	repopg "github.com/NastyaGoryachaya/silver-price-monitor/internal/repository/postgres"
	reporedis "github.com/NastyaGoryachaya/silver-price-monitor/internal/repository/redis"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/scheduler"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/card"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/chart"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/history"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/monitor"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/session"
	botpkg "github.com/NastyaGoryachaya/silver-price-monitor/internal/transport/bot"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/transport/httptransport"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/transport/ws"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type App struct {
	cfg *config.Config
	log *slog.Logger

	db   *pgxpool.Pool
	rdb  *goredis.Client
	e    *echo.Echo
	serv *http.Server

	monitor  interfaces.Monitor
	updater  *scheduler.Scheduler
	registry *session.Registry
	logins   *session.LoginManager
	hub      *ws.Hub

	bot *botpkg.Bot
}

func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log}

	backend, err := app.openBackend()
	if err != nil {
		app.closeStores()
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Template.Timezone)
	if err != nil {
		log.Warn("timezone unavailable, using UTC",
			slog.String("tz", cfg.Template.Timezone),
			slog.String("error", err.Error()),
		)
		loc = time.UTC
	}
	store := history.NewService(backend, cfg.History.MaxHistory, loc, log)

	app.registry = session.NewRegistry(cfg.Telegram.SessionTTL, nil, log)
	m := metrics.New()
	app.hub = ws.NewHub(log)
	publishers := []interfaces.CyclePublisher{m, app.hub}
	if cfg.Redis.Channel != "" {
		if app.rdb == nil {
			if app.rdb, err = rdb.NewClient(&cfg.Redis); err != nil {
				app.closeStores()
				return nil, fmt.Errorf("redis publisher: %w", err)
			}
		}
		publishers = append(publishers, rdb.NewPublisher(app.rdb, cfg.Redis.Channel, cfg.Redis.Timeout, log))
	}

	targets := cfg.DomainTargets()
	app.monitor = monitor.NewService(monitor.Deps{
		Feed:       feed.NewClient(cfg.Feed, log),
		Store:      store,
		Renderer:   render.NewClient(cfg.Render, log),
		Sessions:   app.registry,
		Charts:     chart.NewRenderer(chartOptions(cfg.Chart), log),
		Cards:      card.NewComposer(cardOptions(cfg.Template), log),
		Targets:    targets,
		Viewport:   domain.Viewport{Width: cfg.Render.Width, Scale: cfg.Render.Scale, MaxHeight: cfg.Render.MaxHeight},
		WindowSize: cfg.History.MaxHistory,
		TempDir:    cfg.Render.TempDir,
		Location:   loc,
		Publishers: publishers,
		Logger:     log,
	})
	// планировщик нужен всегда: через него идут ручные запуски (HTTP, бот)
	app.updater = scheduler.NewScheduler(app.monitor, targets, cfg.Scheduler.Interval, cfg.Scheduler.RunOnStart, log)

	if cfg.Telegram.Enabled {
		botApp, err := botpkg.New(cfg.Telegram, app.monitor, app.updater, log)
		if err != nil {
			log.Error("telegram init failed", slog.String("error", err.Error()))
			app.closeStores()
			return nil, err
		}
		app.bot = botApp
		app.logins = session.NewLoginManager(app.registry, botApp.LoginLink, cfg.Telegram.LoginTTL, nil, log)
		botApp.AttachLogins(app.logins)

		if key := cfg.Telegram.AutoSession; key != "" {
			app.registry.Create(key, "@"+botApp.Username(), botApp.Sender())
		}
	}

	app.e = httptransport.NewRouter(httptransport.RouterDeps{
		Prices:   httptransport.NewPriceHandler(log, app.monitor, app.updater, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		Sessions: httptransport.NewSessionHandler(log, app.registry, app.logins),
		Metrics:  m.Handler(),
		Stream:   app.hub,
		Logger:   log,
	})

	app.serv = &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Handler:      app.e,
	}

	log.Info("app initialized",
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("targets", len(targets)),
		slog.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
		slog.Bool("telegram_enabled", cfg.Telegram.Enabled),
		slog.String("http_addr", cfg.Server.Addr),
	)
	return app, nil
}

// openBackend выбирает хранилище истории по storage.driver.
func (a *App) openBackend() (repository.Backend, error) {
	switch a.cfg.Storage.Driver {
	case "postgres":
		pool, err := db.NewPool(&a.cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.db = pool
		repo := repopg.NewHistoryRepository(pool)
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Postgres.Timeout)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return repo, nil
	case "redis":
		client, err := rdb.NewClient(&a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = client
		return reporedis.NewHistoryRepository(client, a.cfg.Redis.Prefix), nil
	default:
		return repofile.NewHistoryRepository(a.cfg.Storage.Dir)
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.Scheduler.Enabled {
		a.log.Info("starting updater")
		go a.updater.Start(ctx)
	}

	go a.registry.Run(ctx, time.Minute)
	if a.logins != nil {
		go a.sweepLogins(ctx)
	}

	if a.bot != nil {
		a.log.Info("starting bot")
		go a.bot.Start(ctx)
	}

	a.log.Info("starting server", slog.String("addr", a.cfg.Server.Addr))
	go func() {
		if err := a.e.StartServer(a.serv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", slog.String("error", err.Error()))
		}
	}()
	<-ctx.Done()
	return a.Shutdown(context.Background())
}

func (a *App) sweepLogins(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.logins.Sweep(); n > 0 {
				a.log.Debug("login.sweep", slog.Int("removed", n))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if a.e != nil {
		if err := a.e.Shutdown(shCtx); err != nil {
			a.log.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}

	if a.bot != nil {
		a.bot.Stop()
	}
	// хранилища закрываются только после последнего цикла
	if a.updater != nil {
		a.waitUpdater(shCtx)
	}
	if a.hub != nil {
		a.hub.Close()
	}
	a.closeStores()

	a.log.Info("application stopped")
	return nil
}

func (a *App) waitUpdater(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.updater.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Error("scheduler shutdown timeout", slog.String("error", ctx.Err().Error()))
	}
}

func (a *App) closeStores() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("redis close error", slog.String("error", err.Error()))
		}
	}
}

func chartOptions(c config.ChartConfig) chart.Options {
	opts := chart.DefaultOptions()
	// нулевые значения заменит chart.NewRenderer
	opts.StablePercent = c.StablePercent
	opts.FlatRange = c.FlatRange
	opts.NearFlatRange = c.NearFlatRange
	opts.FlatFactor = c.FlatFactor
	opts.NearFlatFactor = c.NearFlatFactor
	opts.DefaultFactor = c.DefaultFactor
	opts.FlatFloor = c.FlatFloor
	opts.DefaultFloor = c.DefaultFloor
	return opts
}

func cardOptions(c config.TemplateConfig) card.Options {
	opts := card.DefaultOptions()
	if c.Brand != "" {
		opts.Brand = c.Brand
	}
	if c.Title != "" {
		opts.Title = c.Title
	}
	opts.LogoPath = c.LogoPath
	if len(c.AllowedCategories) > 0 {
		opts.AllowedCategories = c.AllowedCategories
	}
	return opts
}
