package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/go-resty/resty/v2"
)

type Client struct {
	cfg    config.FeedConfig
	http   *resty.Client
	logger *slog.Logger
}

// updateResponse - ответ эндпоинта времени обновления
type updateResponse struct {
	Success  bool   `json:"success"`
	LastDate string `json:"lastDate"`
	LastTime string `json:"lastTime"`
}

// NewClient - клиент ценового фида. Заголовки повторяют XHR запрос страницы.
func NewClient(cfg config.FeedConfig, logger *slog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "text/html, */*; q=0.01").
		SetHeader("Accept-Language", cfg.AcceptLanguage).
		SetHeader("Referer", base+"/").
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("X-Requested-With", "XMLHttpRequest")

	return &Client{cfg: cfg, http: rc, logger: logger}
}

// FetchPage - получает разметку таблицы цен и, если получится, время обновления.
// Ошибка времени обновления не фатальна: пустые поля заполнятся временем снятия.
func (c *Client) FetchPage(ctx context.Context) (domain.FeedPage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.cfg.PricePath)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("%w: %v", errs.ErrFeedUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return domain.FeedPage{}, fmt.Errorf("%w: %s", errs.ErrFeedUnavailable, resp.Status())
	}

	page := domain.FeedPage{Markup: resp.String()}

	date, tm, err := c.fetchUpdateTime(ctx)
	if err != nil {
		c.logger.Warn("feed.update_time failed", slog.String("error", err.Error()))
	} else {
		page.LastDate, page.LastTime = date, tm
	}
	return page, nil
}

func (c *Client) fetchUpdateTime(ctx context.Context) (string, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		Get(c.cfg.UpdatePath)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", "", fmt.Errorf("request failed: %s", resp.Status())
	}

	var data updateResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return "", "", fmt.Errorf("decoding response: %w", err)
	}
	if !data.Success {
		return "", "", fmt.Errorf("update time not available")
	}
	return strings.TrimSpace(data.LastDate), strings.TrimSpace(data.LastTime), nil
}
