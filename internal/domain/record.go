package domain

import (
	"time"
)

// StoredSession is a persisted session context together with its keys.
type StoredSession struct {
	UserID     string          `json:"user_id"`
	SessionKey string          `json:"session_key"`
	Context    *SessionContext `json:"context"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TTL returns the time until the session expires.
// Returns 0 if it has already expired.
func (s *StoredSession) TTL(sessionDuration time.Duration) time.Duration {
	ttl := time.Until(s.UpdatedAt.Add(sessionDuration))
	if ttl < 0 {
		return 0
	}
	return ttl
}

// User is an anonymous device identity.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
