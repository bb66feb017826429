package ws_test

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/transport/ws"
	"github.com/gorilla/websocket"
)

type message struct {
	Type   string             `json:"type"`
	Result domain.CycleResult `json:"result"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

// Новый клиент сначала получает последний результат, затем новые
func TestHub_ReplayAndBroadcast(t *testing.T) {
	t.Parallel()
	hub := ws.NewHub(slog.Default())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	hub.Publish(domain.CycleResult{Target: "default", Outcome: domain.OutcomeNoChange})

	conn := dial(t, srv.URL)
	defer conn.Close()

	if m := read(t, conn); m.Type != "cycle" || m.Result.Outcome != domain.OutcomeNoChange {
		t.Fatalf("replay = %+v", m)
	}

	// ждём регистрации клиента
	deadline := time.Now().Add(time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(domain.CycleResult{Target: "default", Outcome: domain.OutcomeChangedAndSent})
	if m := read(t, conn); m.Result.Outcome != domain.OutcomeChangedAndSent {
		t.Fatalf("broadcast = %+v", m)
	}
}
