package httptransport

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/ports/errcode"
	"github.com/labstack/echo/v4"
)

// PriceHandler - HTTP‑handler для цен и циклов мониторинга.
type PriceHandler struct {
	logger       *slog.Logger
	svc          interfaces.Monitor
	runner       interfaces.CycleRunner
	timeout      time.Duration
	cycleTimeout time.Duration
}

// monitorRequest - тело POST /monitor; отсутствующий порог = политика цели.
type monitorRequest struct {
	MinChangePercent *float64 `json:"minChangePercent"`
}

// CycleResponse - DTO результата цикла.
type CycleResponse struct {
	Success bool `json:"success"`
	domain.CycleResult
}

func NewPriceHandler(logger *slog.Logger, svc interfaces.Monitor, runner interfaces.CycleRunner, timeout, cycleTimeout time.Duration) *PriceHandler {
	if logger == nil {
		log.Fatal("nil logger")
	}
	if svc == nil || runner == nil {
		log.Fatal("nil service")
	}
	// Задаём таймауты по умолчанию, если они не заданы
	if timeout <= 0 {
		timeout = time.Second * 20
	}
	if cycleTimeout <= 0 {
		cycleTimeout = time.Minute
	}
	return &PriceHandler{
		logger:       logger,
		svc:          svc,
		runner:       runner,
		timeout:      timeout,
		cycleTimeout: cycleTimeout,
	}
}

func (h *PriceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/price/fetch", h.Fetch)
	g.GET("/price/targets", h.Targets)
	g.GET("/price/check/:target", h.Check)
	g.POST("/price/monitor/:target", h.Monitor)
	g.GET("/price/history/:target", h.History)
	g.GET("/price/latest/:target", h.Latest)
	g.GET("/price/preview/:target", h.Preview)
}

func (h *PriceHandler) Fetch(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap, err := h.svc.Fetch(ctx, strings.TrimSpace(c.QueryParam("productName")))
	if err != nil {
		return h.fail(c, "Fetch", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    snap.Primary,
		"quotes":  snap.Quotes,
		"date":    snap.UpdateDate,
		"time":    snap.UpdateTime,
	})
}

func (h *PriceHandler) Targets(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Targets())
}

func (h *PriceHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Check(ctx, c.Param("target"))
	if err != nil {
		return h.fail(c, "Check", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *PriceHandler) Monitor(c echo.Context) error {
	var req monitorRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": errcode.BadRequest, "message": "invalid body"})
		}
	}
	var policy *domain.Policy
	if req.MinChangePercent != nil {
		if *req.MinChangePercent < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": errcode.BadRequest, "message": "minChangePercent must be >= 0"})
		}
		policy = &domain.Policy{MinChangePercent: *req.MinChangePercent}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.cycleTimeout)
	defer cancel()

	res, err := h.runner.RunNow(ctx, c.Param("target"), policy)
	if err != nil {
		// изменение обнаружено и сохранено, но отправка не удалась: отдаём результат
		if res.Outcome.Changed() {
			code := FromServiceError(err)
			return c.JSON(StatusFor(code), echo.Map{"error": code, "message": err.Error(), "result": res})
		}
		return h.fail(c, "Monitor", err)
	}
	return c.JSON(http.StatusOK, CycleResponse{Success: true, CycleResult: res})
}

func (h *PriceHandler) History(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	hist, err := h.svc.History(ctx, c.Param("target"))
	if err != nil {
		return h.fail(c, "History", err)
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *PriceHandler) Latest(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap, err := h.svc.Latest(ctx, c.Param("target"))
	if err != nil {
		return h.fail(c, "Latest", err)
	}
	if snap == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": errcode.NotFoundSnapshot})
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *PriceHandler) Preview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	doc, err := h.svc.Preview(ctx, c.Param("target"))
	if err != nil {
		return h.fail(c, "Preview", err)
	}
	return c.HTML(http.StatusOK, doc)
}

// fail - общий ответ с кодом ошибки; внутренние ошибки логируются.
func (h *PriceHandler) fail(c echo.Context, op string, err error) error {
	return writeError(c, h.logger, op, err)
}

func writeError(c echo.Context, logger *slog.Logger, op string, err error) error {
	code := FromServiceError(err)
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed",
			slog.String("op", op),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	body := echo.Map{"error": code}
	if status != http.StatusInternalServerError {
		body["message"] = err.Error()
	}
	return c.JSON(status, body)
}
