package session

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/consts"
	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/interfaces"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/clock"
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/google/uuid"
)

const (
	qrSize = 320
	// finished flows stay pollable for a while
	retention = 10 * time.Minute
)

// LinkFunc builds the link encoded into the QR code for a login code.
type LinkFunc func(code string) string

// LoginManager owns login flows: start, scan, confirm, decline, expire.
// A confirmed flow registers its session in the Registry.
type LoginManager struct {
	mu       sync.RWMutex
	flows    map[string]*LoginFlow
	byCode   map[string]string
	registry *Registry
	link     LinkFunc
	ttl      time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

func NewLoginManager(registry *Registry, link LinkFunc, ttl time.Duration, clk clock.Clock, logger *slog.Logger) *LoginManager {
	if clk == nil {
		clk = clock.New()
	}
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &LoginManager{
		flows:    make(map[string]*LoginFlow),
		byCode:   make(map[string]string),
		registry: registry,
		link:     link,
		ttl:      ttl,
		clock:    clk,
		logger:   logger,
	}
}

// Start creates a flow for sessionKey and renders its QR code.
func (m *LoginManager) Start(sessionKey string) (*LoginFlow, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		sessionKey = consts.DefaultSessionKey
	}
	now := m.clock.Now()
	id := uuid.NewString()
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	flow := newLoginFlow(id, sessionKey, code, now, now.Add(m.ttl))

	m.mu.Lock()
	m.flows[id] = flow
	m.byCode[code] = id
	m.mu.Unlock()

	link := m.link(code)
	img, err := encodeQR(link)
	if err != nil {
		_ = flow.transition(StateError, m.clock.Now(), func(s *LoginStatus) { s.Error = err.Error() })
		m.logger.Error("login.qr failed", slog.String("id", id), slog.String("error", err.Error()))
		return flow, err
	}

	flow.mu.Lock()
	flow.qr = img
	flow.mu.Unlock()
	if err := flow.transition(StateGenerated, m.clock.Now(), func(s *LoginStatus) { s.Link = link }); err != nil {
		return flow, err
	}

	m.logger.Info("login.started", slog.String("id", id), slog.String("session", sessionKey))
	return flow, nil
}

// Get returns the flow, moving it to expired when its deadline has passed.
func (m *LoginManager) Get(id string) (*LoginFlow, error) {
	m.mu.RLock()
	flow, ok := m.flows[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errs.ErrLoginNotFound
	}
	m.expireIfDue(flow)
	return flow, nil
}

// Scan marks the flow behind code as scanned by account.
func (m *LoginManager) Scan(code, account string) (*LoginFlow, error) {
	m.mu.RLock()
	id, ok := m.byCode[code]
	m.mu.RUnlock()
	if !ok {
		return nil, errs.ErrLoginNotFound
	}
	flow, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if err := flow.transition(StateScanned, m.clock.Now(), func(s *LoginStatus) { s.Account = account }); err != nil {
		return flow, err
	}
	m.logger.Info("login.scanned", slog.String("id", id), slog.String("account", account))
	return flow, nil
}

// Confirm completes the flow and registers sender as its session.
func (m *LoginManager) Confirm(id string, sender interfaces.Sender) (Info, error) {
	flow, err := m.Get(id)
	if err != nil {
		return Info{}, err
	}
	if err := flow.transition(StateConfirmed, m.clock.Now(), nil); err != nil {
		return Info{}, err
	}
	st := flow.Status()
	info := m.registry.Create(st.SessionKey, st.Account, sender)
	m.logger.Info("login.confirmed", slog.String("id", id), slog.String("session", st.SessionKey))
	return info, nil
}

// Decline ends a scanned flow without creating a session.
func (m *LoginManager) Decline(id string) error {
	flow, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := flow.transition(StateDeclined, m.clock.Now(), nil); err != nil {
		return err
	}
	m.logger.Info("login.declined", slog.String("id", id))
	return nil
}

// List returns every known flow, newest first.
func (m *LoginManager) List() []LoginStatus {
	m.mu.RLock()
	flows := make([]*LoginFlow, 0, len(m.flows))
	for _, f := range m.flows {
		flows = append(flows, f)
	}
	m.mu.RUnlock()

	out := make([]LoginStatus, 0, len(flows))
	for _, f := range flows {
		m.expireIfDue(f)
		out = append(out, f.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Sweep expires overdue flows and forgets finished ones past retention.
func (m *LoginManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	n := 0
	for id, f := range m.flows {
		m.expireIfDue(f)
		st := f.Status()
		if st.State.Terminal() && now.Sub(st.UpdatedAt) >= retention {
			delete(m.flows, id)
			delete(m.byCode, f.code)
			n++
		}
	}
	return n
}

func (m *LoginManager) expireIfDue(f *LoginFlow) {
	now := m.clock.Now()
	st := f.Status()
	if st.State.Terminal() || now.Before(st.ExpiresAt) {
		return
	}
	if err := f.transition(StateExpired, now, nil); err == nil {
		m.logger.Info("login.expired", slog.String("id", st.ID))
	}
}

func encodeQR(content string) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code, err = barcode.Scale(code, qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
