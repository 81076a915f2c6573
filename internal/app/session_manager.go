package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/lingualert/internal/observe"
)

var (
	// ErrTooManySessions is returned by Start when the session limit is
	// reached.
	ErrTooManySessions = errors.New("app: too many recording sessions")

	// ErrShuttingDown is returned by Start after StopAll.
	ErrShuttingDown = errors.New("app: shutting down")
)

// SessionInfo holds metadata about a connected recording socket.
type SessionInfo struct {
	// ID identifies the socket in logs.
	ID string `json:"id"`

	// RemoteAddr is the client address as seen by the server.
	RemoteAddr string `json:"remote_addr"`

	// ConnectedAt is when the socket was accepted.
	ConnectedAt time.Time `json:"connected_at"`
}

type managedSession struct {
	info   SessionInfo
	cancel context.CancelFunc
}

// SessionManager tracks the open recording sockets so they can be limited
// and ended on shutdown. All exported methods are safe for concurrent use.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession
	limit    int
	closed   bool
	metrics  *observe.Metrics
}

// NewSessionManager creates a SessionManager admitting at most limit
// sessions. A limit <= 0 admits any number.
func NewSessionManager(limit int, m *observe.Metrics) *SessionManager {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &SessionManager{
		sessions: make(map[string]*managedSession),
		limit:    limit,
		metrics:  m,
	}
}

// Start registers a new session. The returned context is derived from ctx
// and is cancelled by Stop or StopAll. release must be called once the
// socket is gone.
func (sm *SessionManager) Start(ctx context.Context, remoteAddr string) (context.Context, SessionInfo, func(), error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return nil, SessionInfo{}, nil, ErrShuttingDown
	}
	if sm.limit > 0 && len(sm.sessions) >= sm.limit {
		return nil, SessionInfo{}, nil, ErrTooManySessions
	}

	info := SessionInfo{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().UTC(),
	}
	sctx, cancel := context.WithCancel(ctx)
	sm.sessions[info.ID] = &managedSession{info: info, cancel: cancel}
	sm.metrics.ActiveConnections.Add(ctx, 1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			sm.mu.Lock()
			delete(sm.sessions, info.ID)
			sm.mu.Unlock()
			sm.metrics.ActiveConnections.Add(context.WithoutCancel(ctx), -1)
		})
	}
	return sctx, info, release, nil
}

// Stop cancels the session with the given id. It reports whether the
// session was found.
func (sm *SessionManager) Stop(id string) bool {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	sm.mu.Unlock()
	if ok {
		s.cancel()
	}
	return ok
}

// StopAll cancels every session and refuses new ones.
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	sm.closed = true
	active := make([]*managedSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		active = append(active, s)
	}
	sm.mu.Unlock()

	for _, s := range active {
		s.cancel()
	}
}

// Count returns the number of registered sessions.
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Active returns the registered sessions, oldest first.
func (sm *SessionManager) Active() []SessionInfo {
	sm.mu.Lock()
	out := make([]SessionInfo, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, s.info)
	}
	sm.mu.Unlock()

	slices.SortFunc(out, func(a, b SessionInfo) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return out
}

// Wait blocks until every session has been released or ctx is done.
func (sm *SessionManager) Wait(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for sm.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
