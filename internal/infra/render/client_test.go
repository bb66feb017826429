package render_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/infra/render"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRender_Success(t *testing.T) {
	t.Parallel()
	img := pngOf(t, 1440, 900)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HTML     string `json:"html"`
			Viewport struct {
				Width             int     `json:"width"`
				DeviceScaleFactor float64 `json:"deviceScaleFactor"`
			} `json:"viewport"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.HTML != "<p>hi</p>" || req.Viewport.Width != 720 || req.Viewport.DeviceScaleFactor != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	c := render.NewClient(config.RenderConfig{URL: srv.URL, Timeout: 2 * time.Second}, slog.Default())
	out, err := c.Render(context.Background(), "<p>hi</p>", domain.DefaultViewport)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(out, img) {
		t.Fatal("image under the cap must be returned unchanged")
	}
}

func TestRender_Failures(t *testing.T) {
	t.Parallel()
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not png": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>error</html>"))
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {},
	}
	for name, h := range cases {
		h := h
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := render.NewClient(config.RenderConfig{URL: srv.URL, Timeout: time.Second}, slog.Default())
			_, err := c.Render(context.Background(), "<p/>", domain.DefaultViewport)
			if !errors.Is(err, errs.ErrRenderFailed) {
				t.Fatalf("expected ErrRenderFailed, got %v", err)
			}
		})
	}
}

// Таймаут рендера - ошибка, а не зависание
func TestRender_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := render.NewClient(config.RenderConfig{URL: srv.URL, Timeout: 50 * time.Millisecond}, slog.Default())
	_, err := c.Render(context.Background(), "<p/>", domain.DefaultViewport)
	if !errors.Is(err, errs.ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got %v", err)
	}
}

func TestCrop(t *testing.T) {
	t.Parallel()
	out, err := render.Crop(pngOf(t, 100, 500), 300)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 100 || cfg.Height != 300 {
		t.Fatalf("size = %dx%d", cfg.Width, cfg.Height)
	}
}
