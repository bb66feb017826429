package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/go-resty/resty/v2"
)

const maxImageBytes = 32 << 20

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Client rasterizes HTML with a remote headless browser
// (browserless compatible POST /screenshot).
type Client struct {
	url     string
	timeout time.Duration
	http    *resty.Client
	logger  *slog.Logger
}

type screenshotRequest struct {
	HTML     string            `json:"html"`
	Options  screenshotOptions `json:"options"`
	Viewport viewport          `json:"viewport"`
}

type screenshotOptions struct {
	Type           string `json:"type"`
	FullPage       bool   `json:"fullPage"`
	OmitBackground bool   `json:"omitBackground"`
}

type viewport struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor"`
}

func NewClient(cfg config.RenderConfig, logger *slog.Logger) *Client {
	rc := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "image/png")
	if cfg.Token != "" {
		rc.SetQueryParam("token", cfg.Token)
	}
	return &Client{url: cfg.URL, timeout: cfg.Timeout, http: rc, logger: logger}
}

// Render returns a PNG of the document, full page height capped at vp.MaxHeight.
// The response body is owned by this call and closed on every path.
func (c *Client) Render(ctx context.Context, document string, vp domain.Viewport) ([]byte, error) {
	if vp.Width <= 0 {
		vp = domain.DefaultViewport
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(screenshotRequest{
			HTML:     document,
			Options:  screenshotOptions{Type: "png", FullPage: true},
			Viewport: viewport{Width: vp.Width, Height: 800, DeviceScaleFactor: vp.Scale},
		}).
		Post(c.url)
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRenderFailed, err)
	}
	body := resp.RawBody()

	if resp.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, fmt.Errorf("%w: %s: %s", errs.ErrRenderFailed, resp.Status(), bytes.TrimSpace(msg))
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errs.ErrRenderFailed, err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return nil, fmt.Errorf("%w: response is not a png (%d bytes)", errs.ErrRenderFailed, len(data))
	}

	out, err := Crop(data, int(float64(vp.MaxHeight)*scaleOf(vp)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRenderFailed, err)
	}

	c.logger.Debug("render.done",
		slog.Int("bytes", len(out)),
		slog.Duration("took", time.Since(started)))
	return out, nil
}

func scaleOf(vp domain.Viewport) float64 {
	if vp.Scale <= 0 {
		return 1
	}
	return vp.Scale
}

// Crop cuts a PNG to at most maxHeight device pixels; smaller images are returned as is.
func Crop(data []byte, maxHeight int) ([]byte, error) {
	if maxHeight <= 0 {
		return data, nil
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png header: %w", err)
	}
	if cfg.Height <= maxHeight {
		return data, nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), maxHeight))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
