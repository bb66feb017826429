package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/config"
	"github.com/NastyaGoryachaya/silver-price-monitor/pkg/logger"
)

func TestNewWithWriter_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.LoggerConfig{Level: "debug", Format: "json"}, &buf)
	log.Debug("monitor.cycle done")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec["level"] != "DEBUG" {
		t.Errorf("level = %v", rec["level"])
	}
	if rec["service"] != logger.ServiceName {
		t.Errorf("service = %v", rec["service"])
	}
	if src, _ := rec["source"].(string); !strings.HasPrefix(src, "logger_test.go:") {
		t.Errorf("source = %v", rec["source"])
	}
}

// Неизвестный уровень - info по умолчанию
func TestNewWithWriter_UnknownLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.LoggerConfig{Level: "verbose", Format: "text"}, &buf)
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

// Время в UTC RFC3339, уровни без смещений, текстовый формат
func TestNewWithWriter_TextFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.LoggerConfig{Level: "warn", Format: "text"}, &buf)
	log.Info("hidden")
	log.Log(context.Background(), slog.LevelWarn+2, "monitor.cycle warning")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "level=WARN ") {
		t.Fatalf("level not normalized: %s", out)
	}
	if !strings.Contains(out, "service="+logger.ServiceName) {
		t.Fatalf("service attr missing: %s", out)
	}
	m := regexp.MustCompile(`time=(\S+)`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no time: %s", out)
	}
	if _, err := time.Parse(time.RFC3339, m[1]); err != nil || !strings.HasSuffix(m[1], "Z") {
		t.Fatalf("time %q is not UTC RFC3339: %v", m[1], err)
	}
}
