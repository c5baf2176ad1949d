package recording

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Clebio2030/zaprundeploy/internal/audio"
)

// Manager tracks recording sessions and enforces a single active session
// per user across the process.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger

	config  SessionConfig
	timeout time.Duration

	// Stats
	started   uint64
	sent      uint64
	cancelled uint64

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// ManagerStats represents manager statistics for monitoring
type ManagerStats struct {
	ActiveSessions int    `json:"active_sessions"`
	Started        uint64 `json:"started"`
	Sent           uint64 `json:"sent"`
	Cancelled      uint64 `json:"cancelled"`
}

// NewManager creates a recording manager. Sessions idle longer than
// timeout are cancelled by the cleanup routine.
func NewManager(logger *slog.Logger, config SessionConfig, timeout time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
		config:   config,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr
}

// Begin creates a session for the user and starts recording. A user with
// a non-terminal session gets ErrRecordingActive.
func (m *Manager) Begin(userKey string, device audio.Device, preferredMIME string) (*Session, error) {
	m.mu.Lock()
	if existing, exists := m.sessions[userKey]; exists && !existing.Terminal() {
		m.mu.Unlock()
		m.logger.Warn("Rejected concurrent recording",
			slog.String("user", userKey),
			slog.String("existing_state", existing.State().String()),
		)
		return nil, fmt.Errorf("%w: user %s", ErrRecordingActive, userKey)
	}

	session := NewSession(userKey, device, m.config, m.logger)
	m.sessions[userKey] = session
	m.started++
	m.mu.Unlock()

	if err := session.Start(preferredMIME); err != nil {
		m.Remove(userKey)
		return nil, err
	}

	return session, nil
}

// Get retrieves the user's session if one exists.
func (m *Manager) Get(userKey string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[userKey]
	return session, exists
}

// Remove drops the user's session, cancelling it if still active.
func (m *Manager) Remove(userKey string) bool {
	m.mu.Lock()
	session, exists := m.sessions[userKey]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, userKey)
	m.mu.Unlock()

	switch session.State() {
	case StateSent:
		m.mu.Lock()
		m.sent++
		m.mu.Unlock()
	default:
		session.Cancel()
		m.mu.Lock()
		m.cancelled++
		m.mu.Unlock()
	}

	return true
}

// ActiveCount returns the number of tracked sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetStats returns current manager statistics
func (m *Manager) GetStats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ManagerStats{
		ActiveSessions: len(m.sessions),
		Started:        m.started,
		Sent:           m.sent,
		Cancelled:      m.cancelled,
	}
}

// Stop gracefully stops the manager and cancels every active session.
func (m *Manager) Stop() {
	m.logger.Info("Stopping recording manager...")

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Cancel()
	}

	m.cancel()
	<-m.cleanup

	stats := m.GetStats()
	m.logger.Info("Recording manager stopped",
		slog.Uint64("total_started", stats.Started),
		slog.Uint64("total_sent", stats.Sent),
		slog.Uint64("total_cancelled", stats.Cancelled),
	)
}

// startCleanupRoutine runs in a separate goroutine to clean up stale sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Recording cleanup routine started",
		slog.Duration("timeout", m.timeout),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Recording cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupStaleSessions()
		}
	}
}

// cleanupStaleSessions removes sessions idle beyond the timeout and
// terminal sessions nobody collected.
func (m *Manager) cleanupStaleSessions() {
	now := time.Now()
	stale := make([]string, 0)

	m.mu.RLock()
	for userKey, session := range m.sessions {
		if session.Terminal() || now.Sub(session.LastActivity()) > m.timeout {
			stale = append(stale, userKey)
		}
	}
	m.mu.RUnlock()

	if len(stale) > 0 {
		m.logger.Info("Cleaning up stale recording sessions",
			slog.Int("stale_count", len(stale)),
		)

		for _, userKey := range stale {
			m.Remove(userKey)
		}
	}
}
