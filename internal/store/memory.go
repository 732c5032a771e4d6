package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Asghar-123/health-agent/internal/domain"
)

// MemoryStore is an in-process Repository. Session contexts are stored as
// JSON so callers never share state with the store, matching SQLiteStore.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	sessions map[memoryKey]memorySession
	now      func() time.Time
}

type memoryKey struct {
	userID, sessionKey string
}

type memorySession struct {
	state     []byte
	createdAt time.Time
	updatedAt time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		sessions: make(map[memoryKey]memorySession),
		now:      time.Now,
	}
}

// GetUser implements Repository.
func (m *MemoryStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// UpsertUser implements Repository.
func (m *MemoryStore) UpsertUser(_ context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("upsert user: nil user")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[user.UserID]; ok {
		u := *user
		u.CreatedAt = existing.CreatedAt
		m.users[user.UserID] = u
		return nil
	}
	m.users[user.UserID] = *user
	return nil
}

// UpdateLastSeen implements Repository.
func (m *MemoryStore) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil
	}
	u.LastSeenAt = lastSeen
	u.UpdatedAt = m.now()
	m.users[userID] = u
	return nil
}

// GetSession implements Repository.
func (m *MemoryStore) GetSession(_ context.Context, userID, sessionKey string) (*domain.StoredSession, error) {
	m.mu.RLock()
	s, ok := m.sessions[memoryKey{userID, sessionKey}]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeMemorySession(userID, sessionKey, s)
}

// SaveSession implements Repository.
func (m *MemoryStore) SaveSession(_ context.Context, userID, sessionKey string, sc *domain.SessionContext) error {
	if sc == nil {
		return errors.New("save session: nil context")
	}
	state, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	key := memoryKey{userID, sessionKey}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	created := now
	if existing, ok := m.sessions[key]; ok {
		created = existing.createdAt
	}
	m.sessions[key] = memorySession{state: state, createdAt: created, updatedAt: now}
	return nil
}

// DeleteSession implements Repository.
func (m *MemoryStore) DeleteSession(_ context.Context, userID, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, memoryKey{userID, sessionKey})
	return nil
}

// GetExpiredSessions implements Repository.
func (m *MemoryStore) GetExpiredSessions(_ context.Context, ttl time.Duration) ([]*domain.StoredSession, error) {
	threshold := m.now().Add(-ttl)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.StoredSession
	for key, s := range m.sessions {
		if !s.updatedAt.Before(threshold) {
			continue
		}
		stored, err := decodeMemorySession(key.userID, key.sessionKey, s)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// CleanupExpiredSessions implements Repository.
func (m *MemoryStore) CleanupExpiredSessions(_ context.Context, ttl time.Duration) (int64, error) {
	threshold := m.now().Add(-ttl)
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key, s := range m.sessions {
		if s.updatedAt.Before(threshold) {
			delete(m.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}

// Ping implements Repository.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Repository.
func (m *MemoryStore) Close() error { return nil }

func decodeMemorySession(userID, sessionKey string, s memorySession) (*domain.StoredSession, error) {
	var sc domain.SessionContext
	if err := json.Unmarshal(s.state, &sc); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &domain.StoredSession{
		UserID:     userID,
		SessionKey: sessionKey,
		Context:    &sc,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}, nil
}

var (
	_ Repository = (*MemoryStore)(nil)
	_ Repository = (*SQLiteStore)(nil)
)
