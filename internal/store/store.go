// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/Asghar-123/health-agent/internal/domain"
)

// Repository defines the interface for persisting users and their session contexts.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns (nil, nil) when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetSession loads the session context stored under (userID, sessionKey).
	// It returns (nil, nil) when none is stored.
	GetSession(ctx context.Context, userID, sessionKey string) (*domain.StoredSession, error)

	// SaveSession creates or replaces the stored session context.
	SaveSession(ctx context.Context, userID, sessionKey string, sc *domain.SessionContext) error

	// DeleteSession removes a stored session context.
	DeleteSession(ctx context.Context, userID, sessionKey string) error

	// GetExpiredSessions lists sessions not updated within ttl.
	GetExpiredSessions(ctx context.Context, ttl time.Duration) ([]*domain.StoredSession, error)

	// CleanupExpiredSessions removes sessions not updated within ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
