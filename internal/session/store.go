// Package session holds the per-session state contract: an opaque cart blob
// and an optional authenticated user. The concrete backend is a collaborator
// of the pipeline; Memory is the in-process implementation used by the
// server and by tests.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// User is the authenticated identity bound to a session. Anonymous sessions
// have no user and cannot check out.
type User struct {
	ID   int64
	Role string
}

// Store provides access to session-scoped values. A cart blob is opaque to
// the store; only cart.Repair assigns it meaning.
type Store interface {
	// Cart returns the raw cart blob, nil when none has been written.
	Cart(ctx context.Context, sessionID string) ([]byte, error)
	// SetCart replaces the raw cart blob.
	SetCart(ctx context.Context, sessionID string, raw []byte) error
	// ClearCart removes the cart blob.
	ClearCart(ctx context.Context, sessionID string) error
	// User returns the bound user, reporting false for anonymous sessions.
	User(ctx context.Context, sessionID string) (User, bool, error)
	// SetUser binds a user to the session.
	SetUser(ctx context.Context, sessionID string, u User) error
}

// NewID generates a fresh opaque session identifier.
func NewID() string {
	return uuid.New().String()
}

type sessionState struct {
	cart []byte
	user *User
}

// Memory is an in-process Store. Concurrent requests racing on the same
// session interleave last-write-wins, matching the accepted limitation of
// session-scoped carts.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*sessionState)}
}

func (m *Memory) Cart(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.cart == nil {
		return nil, nil
	}
	out := make([]byte, len(s.cart))
	copy(out, s.cart)
	return out, nil
}

func (m *Memory) SetCart(_ context.Context, sessionID string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state(sessionID)
	s.cart = make([]byte, len(raw))
	copy(s.cart, raw)
	return nil
}

func (m *Memory) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.cart = nil
	}
	return nil
}

func (m *Memory) User(_ context.Context, sessionID string) (User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.user == nil {
		return User{}, false, nil
	}
	return *s.user, true, nil
}

func (m *Memory) SetUser(_ context.Context, sessionID string, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state(sessionID).user = &u
	return nil
}

// state returns the session record, creating it when absent. Caller holds
// the write lock.
func (m *Memory) state(sessionID string) *sessionState {
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &sessionState{}
		m.sessions[sessionID] = s
	}
	return s
}
