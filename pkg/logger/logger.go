package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
)

// ServiceName is attached to every record.
const ServiceName = "silver-price-monitor"

// New builds the process logger on stdout and installs it as slog.Default.
func New(cfg *config.LoggerConfig) *slog.Logger {
	logger := NewWithWriter(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// NewWithWriter builds the same logger on w without touching slog.Default.
func NewWithWriter(cfg *config.LoggerConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       levelFrom(cfg.Level),
		ReplaceAttr: rewrite,
		AddSource:   true,
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", ServiceName))
}

// levelFrom maps the config level; anything unknown is info.
func levelFrom(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rewrite normalizes the built-in keys: UTC RFC3339 time, bare level names,
// source as file:line.
func rewrite(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			return slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		if lv, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(a.Key, levelName(lv))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String(a.Key, filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
		}
	}
	return a
}

// levelName drops slog's offsets ("INFO+2") so records group by four names.
func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}
