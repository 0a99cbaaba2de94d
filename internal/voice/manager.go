package voice

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the active voice connection per user. Only one voice
// session runs per user; registering a new connection force-closes the
// previous one.
type SessionManager struct {
	mu     sync.Mutex
	active map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]*websocket.Conn),
	}
}

// Register adds the connection for a user, closing any previous one.
func (m *SessionManager) Register(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.active[userID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
		slog.Info("Voice session replaced", "user_id", userID)
	}

	m.active[userID] = conn
	slog.Info("Voice session registered", "user_id", userID)
}

// Unregister removes the connection for a user if it is still the active one.
func (m *SessionManager) Unregister(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[userID]; exists && current == conn {
		delete(m.active, userID)
		slog.Info("Voice session unregistered", "user_id", userID)
	}
}

// ActiveCount returns the number of connected voice sessions.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
