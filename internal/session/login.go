package session

import (
	"fmt"
	"sync"
	"time"

	errs "github.com/NastyaGoryachaya/silver-price-monitor/internal/errors"
)

// LoginState - state of one QR login flow.
type LoginState string

const (
	StateGenerating LoginState = "generating"
	StateGenerated  LoginState = "generated"
	StateScanned    LoginState = "scanned"
	StateConfirmed  LoginState = "confirmed"
	StateExpired    LoginState = "expired"
	StateDeclined   LoginState = "declined"
	StateError      LoginState = "error"
)

// transitions - every allowed move; states without an entry are terminal.
var transitions = map[LoginState][]LoginState{
	StateGenerating: {StateGenerated, StateExpired, StateError},
	StateGenerated:  {StateScanned, StateExpired, StateError},
	StateScanned:    {StateConfirmed, StateDeclined, StateExpired, StateError},
}

// Terminal reports whether no further transition is possible.
func (s LoginState) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to LoginState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LoginStatus - snapshot of a flow for polling.
type LoginStatus struct {
	ID         string     `json:"id"`
	SessionKey string     `json:"sessionKey"`
	State      LoginState `json:"state"`
	Link       string     `json:"link,omitempty"`
	Account    string     `json:"account,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// LoginFlow - explicit state value of one login attempt.
// Status polls it, Done closes once a terminal state is reached.
type LoginFlow struct {
	mu     sync.RWMutex
	status LoginStatus
	code   string
	qr     []byte
	done   chan struct{}
}

func newLoginFlow(id, sessionKey, code string, now, expiresAt time.Time) *LoginFlow {
	return &LoginFlow{
		status: LoginStatus{
			ID:         id,
			SessionKey: sessionKey,
			State:      StateGenerating,
			CreatedAt:  now,
			ExpiresAt:  expiresAt,
			UpdatedAt:  now,
		},
		code: code,
		done: make(chan struct{}),
	}
}

// Status returns a copy of the current state.
func (f *LoginFlow) Status() LoginStatus {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

// Done is closed when the flow reaches a terminal state.
func (f *LoginFlow) Done() <-chan struct{} {
	return f.done
}

// QR returns the PNG rendered for the flow, if any.
func (f *LoginFlow) QR() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.qr
}

// transition applies one move from the table; mutate runs under the lock on success.
func (f *LoginFlow) transition(to LoginState, now time.Time, mutate func(*LoginStatus)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	from := f.status.State
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, from, to)
	}
	f.status.State = to
	f.status.UpdatedAt = now
	if mutate != nil {
		mutate(&f.status)
	}
	if to.Terminal() {
		close(f.done)
	}
	return nil
}
