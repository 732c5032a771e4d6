// Package chatws serves the assistant over WebSocket connections.
package chatws

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

type connKey struct {
	userID    string
	sessionID string
}

// SessionManager tracks the live WebSocket connection of each user session.
// A session has at most one connection; a newer one replaces the older.
type SessionManager struct {
	mu    sync.RWMutex
	conns map[connKey]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{conns: make(map[connKey]*websocket.Conn)}
}

// GetActive returns the live connection of a session, or nil.
func (m *SessionManager) GetActive(userID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[connKey{userID, sessionID}]
}

// Register makes conn the session's connection, closing the one it replaces.
func (m *SessionManager) Register(userID, sessionID string, conn *websocket.Conn) {
	key := connKey{userID, sessionID}

	m.mu.Lock()
	old := m.conns[key]
	m.conns[key] = conn
	m.mu.Unlock()

	if old != nil && old != conn {
		_ = old.Close(websocket.StatusNormalClosure, "session replaced")
	}
	slog.Info("Chat session registered", "user_id", userID, "session_id", sessionID)
}

// Unregister forgets conn unless a newer connection has replaced it.
func (m *SessionManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	key := connKey{userID, sessionID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[key] == conn {
		delete(m.conns, key)
		slog.Info("Chat session unregistered", "user_id", userID, "session_id", sessionID)
	}
}

// CloseSession closes the connection of an expired session. It has the
// store.CleanupCallback signature.
func (m *SessionManager) CloseSession(userID, sessionID string) {
	key := connKey{userID, sessionID}

	m.mu.Lock()
	conn, ok := m.conns[key]
	delete(m.conns, key)
	m.mu.Unlock()

	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "session expired")
	slog.Info("Chat session closed", "user_id", userID, "session_id", sessionID)
}

// Count returns the number of live connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}
