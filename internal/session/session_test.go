package session_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/clock"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/session"
)

type stubSender struct{ name string }

func (s stubSender) SendMessage(context.Context, domain.MessageContent, string, domain.ThreadType) (domain.SendResult, error) {
	return domain.SendResult{MessageIDs: []string{s.name}}, nil
}

func newClock() *clock.Fixed {
	return &clock.Fixed{T: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestRegistry_Lifecycle(t *testing.T) {
	t.Parallel()
	clk := newClock()
	r := session.NewRegistry(time.Hour, clk, slog.Default())

	if _, ok := r.LookupSession("main"); ok {
		t.Fatal("empty registry must not find a session")
	}

	r.Create("main", "@owner", stubSender{name: "a"})
	s, ok := r.LookupSession("main")
	if !ok {
		t.Fatal("session must be found")
	}
	res, _ := s.SendMessage(context.Background(), domain.MessageContent{}, "1", domain.ThreadUser)
	if res.MessageIDs[0] != "a" {
		t.Fatalf("unexpected sender: %v", res)
	}

	// повторное создание заменяет сессию
	r.Create("main", "@owner", stubSender{name: "b"})
	s, _ = r.LookupSession("main")
	res, _ = s.SendMessage(context.Background(), domain.MessageContent{}, "1", domain.ThreadUser)
	if res.MessageIDs[0] != "b" {
		t.Fatal("session must be replaced")
	}

	if !r.Expire("main") || r.Expire("main") {
		t.Fatal("expire must report existence once")
	}
	if _, ok := r.LookupSession("main"); ok {
		t.Fatal("expired session must be absent")
	}
}

// По истечении TTL сессия недоступна и удаляется при Sweep
func TestRegistry_TTL(t *testing.T) {
	t.Parallel()
	clk := newClock()
	r := session.NewRegistry(time.Minute, clk, slog.Default())
	r.Create("main", "", stubSender{})

	clk.Advance(2 * time.Minute)
	if _, ok := r.LookupSession("main"); ok {
		t.Fatal("session past ttl must be absent")
	}
	if len(r.List()) != 0 {
		t.Fatal("list must skip expired sessions")
	}
	if n := r.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d", n)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Parallel()
	r := session.NewRegistry(0, nil, slog.Default())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); r.Create("k", "", stubSender{}) }()
		go func() { defer wg.Done(); r.LookupSession("k") }()
	}
	wg.Wait()
	if len(r.List()) != 1 {
		t.Fatal("expected one session")
	}
}

func TestTransitions(t *testing.T) {
	t.Parallel()
	allowed := [][2]session.LoginState{
		{session.StateGenerating, session.StateGenerated},
		{session.StateGenerated, session.StateScanned},
		{session.StateScanned, session.StateConfirmed},
		{session.StateScanned, session.StateDeclined},
		{session.StateGenerated, session.StateExpired},
	}
	for _, tr := range allowed {
		if !session.CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s must be allowed", tr[0], tr[1])
		}
	}
	denied := [][2]session.LoginState{
		{session.StateGenerated, session.StateConfirmed},
		{session.StateConfirmed, session.StateScanned},
		{session.StateExpired, session.StateGenerated},
		{session.StateDeclined, session.StateConfirmed},
	}
	for _, tr := range denied {
		if session.CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s must be denied", tr[0], tr[1])
		}
	}
	for _, s := range []session.LoginState{session.StateConfirmed, session.StateExpired, session.StateDeclined, session.StateError} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func newManager(clk clock.Clock) (*session.LoginManager, *session.Registry) {
	reg := session.NewRegistry(0, clk, slog.Default())
	link := func(code string) string { return "https://t.me/silver_bot?start=" + code }
	return session.NewLoginManager(reg, link, 3*time.Minute, clk, slog.Default()), reg
}

// Полный путь: QR -> скан -> подтверждение -> сессия в реестре
func TestLogin_HappyPath(t *testing.T) {
	t.Parallel()
	m, reg := newManager(newClock())

	flow, err := m.Start("main")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	st := flow.Status()
	if st.State != session.StateGenerated || st.Link == "" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if !bytes.HasPrefix(flow.QR(), []byte("\x89PNG")) {
		t.Fatal("qr must be a png")
	}

	code := st.Link[len("https://t.me/silver_bot?start="):]
	if _, err := m.Scan(code, "@owner"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := m.Confirm(st.ID, stubSender{name: "bot"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	select {
	case <-flow.Done():
	default:
		t.Fatal("done must be closed after confirm")
	}
	if _, ok := reg.LookupSession("main"); !ok {
		t.Fatal("confirmed login must register the session")
	}
	if got := flow.Status(); got.State != session.StateConfirmed || got.Account != "@owner" {
		t.Fatalf("final status: %+v", got)
	}
}

func TestLogin_ConfirmWithoutScanIsRejected(t *testing.T) {
	t.Parallel()
	m, reg := newManager(newClock())
	flow, _ := m.Start("main")

	_, err := m.Confirm(flow.Status().ID, stubSender{})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, ok := reg.LookupSession("main"); ok {
		t.Fatal("no session expected")
	}
}

func TestLogin_Decline(t *testing.T) {
	t.Parallel()
	m, reg := newManager(newClock())
	flow, _ := m.Start("main")
	st := flow.Status()
	code := st.Link[len("https://t.me/silver_bot?start="):]

	if _, err := m.Scan(code, "@x"); err != nil {
		t.Fatal(err)
	}
	if err := m.Decline(st.ID); err != nil {
		t.Fatal(err)
	}
	if flow.Status().State != session.StateDeclined {
		t.Fatal("expected declined")
	}
	if _, ok := reg.LookupSession("main"); ok {
		t.Fatal("declined login must not create a session")
	}
}

// После дедлайна поток переходит в expired при опросе
func TestLogin_Expires(t *testing.T) {
	t.Parallel()
	clk := newClock()
	m, _ := newManager(clk)
	flow, _ := m.Start("main")
	id := flow.Status().ID

	clk.Advance(4 * time.Minute)
	got, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status().State != session.StateExpired {
		t.Fatalf("state = %s", got.Status().State)
	}

	clk.Advance(11 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("sweep removed %d", n)
	}
	if _, err := m.Get(id); !errors.Is(err, errs.ErrLoginNotFound) {
		t.Fatalf("expected ErrLoginNotFound, got %v", err)
	}
}

func TestLogin_UnknownCode(t *testing.T) {
	t.Parallel()
	m, _ := newManager(newClock())
	if _, err := m.Scan("nope", ""); !errors.Is(err, errs.ErrLoginNotFound) {
		t.Fatalf("expected ErrLoginNotFound, got %v", err)
	}
}
