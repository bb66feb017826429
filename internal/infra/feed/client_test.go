package feed_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/infra/feed"
)

func cfgFor(url string) config.FeedConfig {
	return config.FeedConfig{
		BaseURL:    url,
		PricePath:  "/PhuQuyPrice/SilverPricePartial",
		UpdatePath: "/PhuQuyPrice/GetDateTimeUpdate",
		Timeout:    2 * time.Second,
		UserAgent:  "test-agent",
	}
}

func TestFetchPage_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" || r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("missing feed headers: %v", r.Header)
		}
		switch r.URL.Path {
		case "/PhuQuyPrice/SilverPricePartial":
			_, _ = w.Write([]byte("<table></table>"))
		case "/PhuQuyPrice/GetDateTimeUpdate":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"lastDate":"01/03/2025","lastTime":"09:15"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	page, err := feed.NewClient(cfgFor(srv.URL), slog.Default()).FetchPage(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Markup != "<table></table>" || page.LastDate != "01/03/2025" || page.LastTime != "09:15" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

// Ошибка времени обновления не мешает получить разметку
func TestFetchPage_UpdateTimeFailureIsSoft(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/PhuQuyPrice/SilverPricePartial" {
			_, _ = w.Write([]byte("<table></table>"))
			return
		}
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	page, err := feed.NewClient(cfgFor(srv.URL), slog.Default()).FetchPage(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.LastDate != "" || page.LastTime != "" {
		t.Fatalf("expected empty date/time, got %+v", page)
	}
}

func TestFetchPage_Unavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := feed.NewClient(cfgFor(srv.URL), slog.Default()).FetchPage(context.Background())
	if !errors.Is(err, errs.ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}
