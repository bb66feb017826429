package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterDeps - всё, что монтируется на echo.
type RouterDeps struct {
	Prices   *PriceHandler
	Sessions *SessionHandler
	Metrics  http.Handler
	Stream   http.Handler
	Logger   *slog.Logger
}

// NewRouter builds the echo instance with /api, /metrics, /ws/prices and /healthz.
func NewRouter(d RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			d.Logger.Debug("http.request", attrs...)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	if d.Stream != nil {
		e.GET("/ws/prices", echo.WrapHandler(d.Stream))
	}

	api := e.Group("/api")
	if d.Prices != nil {
		d.Prices.RegisterRoutes(api)
	}
	if d.Sessions != nil {
		d.Sessions.RegisterRoutes(api)
	}
	return e
}
