package tour

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/RanFeng/ilog"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"xrtour/internal/channel"
	"xrtour/internal/host"
	"xrtour/internal/preload"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTourNotFound    = errors.New("tour not found")
	ErrTrackOutOfRange = errors.New("track index out of range")
	ErrNoXRContent     = errors.New("track has no 360 content")
)

const preloadTimeout = 10 * time.Second

type Manager struct {
	mu        sync.RWMutex
	registry  *Registry
	sessions  map[string]*Session
	clk       clock.Clock
	preloader *preload.Manager
	loader    preload.Loader
}

type ManagerOption func(*Manager)

func WithClock(clk clock.Clock) ManagerOption {
	return func(m *Manager) { m.clk = clk }
}

// WithPreloader replaces the asset warm-up machinery, mostly for tests.
func WithPreloader(p *preload.Manager, load preload.Loader) ManagerOption {
	return func(m *Manager) {
		m.preloader = p
		m.loader = load
	}
}

func NewManager(registry *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		sessions: make(map[string]*Session),
		clk:      clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.preloader == nil {
		m.preloader = preload.NewManager(preloadTimeout, preload.WithClock(m.clk))
		m.loader = headLoader
	}
	return m
}

// headLoader warms a media URL by asking the CDN for its headers.
func headLoader(url string) error {
	resp, err := http.Head(url)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

type CreateOptions struct {
	TourID   string
	Origin   string
	AutoPlay bool
}

type SessionInfo struct {
	SessionID string        `json:"sessionId"`
	Token     string        `json:"token"`
	TourID    string        `json:"tourId"`
	AttachURL string        `json:"attachUrl,omitempty"`
	State     host.Snapshot `json:"state"`
}

// CreateSession builds a session over the tour named in opts, or the
// registry's active demo tour when unnamed.
func (m *Manager) CreateSession(opts CreateOptions) (*SessionInfo, error) {
	var t *Tour
	if opts.TourID == "" {
		t = m.registry.Active()
		if t == nil {
			return nil, ErrTourNotFound
		}
	} else {
		var err error
		t, err = m.registry.Get(opts.TourID)
		if err != nil {
			return nil, err
		}
	}

	session := &Session{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		tour:      t,
		media:     &mediaBridge{},
		preloader: m.preloader,
		loader:    m.loader,
	}
	session.ch = channel.New(nil)
	controllerOpts := []host.Option{host.WithClock(m.clk)}
	if opts.AutoPlay {
		controllerOpts = append(controllerOpts, host.WithAutoPlay())
	}
	session.controller = host.NewController(session.ch, session.media, controllerOpts...)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	info := &SessionInfo{
		SessionID: session.ID,
		Token:     session.Token,
		TourID:    t.ID,
		State:     session.controller.Snapshot(),
	}
	if len(t.Tracks) > 0 && t.Tracks[0].IsXR() {
		info.AttachURL = host.AttachURL(t.Tracks[0].VideoURL, host.AttachOptions{Origin: opts.Origin})
	}
	return info, nil
}

func (m *Manager) Lookup(sessionID, token string) (*Session, error) {
	ctx := context.Background()
	m.mu.RLock()
	ilog.EventInfo(ctx, "Looking up session", "sessionID", sessionID)
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Token != token {
		return nil, ErrInvalidToken
	}
	return session, nil
}

func (m *Manager) GetState(sessionID string) (SessionState, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return SessionState{}, ErrSessionNotFound
	}
	return session.State(), nil
}

func (m *Manager) Registry() *Registry { return m.registry }

// CleanupSession detaches the controller and forgets the session.
func (m *Manager) CleanupSession(session *Session) {
	if session == nil {
		return
	}
	session.controller.Detach()
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[session.ID]
	if ok && current == session {
		delete(m.sessions, session.ID)
	}
}
