package httptransport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/ports/errcode"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/session"
	"github.com/labstack/echo/v4"
)

// SessionHandler - реестр сессий и QR-вход.
type SessionHandler struct {
	logger   *slog.Logger
	registry *session.Registry
	logins   *session.LoginManager
}

type loginRequest struct {
	SessionKey string `json:"sessionKey"`
}

func NewSessionHandler(logger *slog.Logger, registry *session.Registry, logins *session.LoginManager) *SessionHandler {
	return &SessionHandler{logger: logger, registry: registry, logins: logins}
}

func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/sessions", h.List)
	g.DELETE("/sessions/:key", h.Expire)
	if h.logins != nil {
		g.POST("/sessions/login", h.StartLogin)
		g.GET("/sessions/login", h.ListLogins)
		g.GET("/sessions/login/:id", h.LoginStatus)
		g.GET("/sessions/login/:id/qr.png", h.LoginQR)
	}
}

func (h *SessionHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.List())
}

func (h *SessionHandler) Expire(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if !h.registry.Expire(key) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": errcode.NotFoundSession, "key": key})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) StartLogin(c echo.Context) error {
	var req loginRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": errcode.BadRequest, "message": "invalid body"})
		}
	}
	flow, err := h.logins.Start(req.SessionKey)
	if err != nil {
		return writeError(c, h.logger, "StartLogin", err)
	}
	return c.JSON(http.StatusCreated, flow.Status())
}

func (h *SessionHandler) ListLogins(c echo.Context) error {
	return c.JSON(http.StatusOK, h.logins.List())
}

func (h *SessionHandler) LoginStatus(c echo.Context) error {
	flow, err := h.logins.Get(c.Param("id"))
	if err != nil {
		return writeError(c, h.logger, "LoginStatus", err)
	}
	return c.JSON(http.StatusOK, flow.Status())
}

func (h *SessionHandler) LoginQR(c echo.Context) error {
	flow, err := h.logins.Get(c.Param("id"))
	if err != nil {
		return writeError(c, h.logger, "LoginQR", err)
	}
	img := flow.QR()
	if len(img) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": errcode.NotFoundLogin, "message": "qr not generated"})
	}
	return c.Blob(http.StatusOK, "image/png", img)
}
