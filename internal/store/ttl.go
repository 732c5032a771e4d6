package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTTLWorkerInterval is how often the TTL worker sweeps for idle sessions.
const DefaultTTLWorkerInterval = 5 * time.Minute

// CleanupCallback is called for every session removed by the TTL worker.
type CleanupCallback func(userID, sessionKey string)

// StartTTLWorker runs a background goroutine that periodically deletes
// sessions idle for longer than ttl.
func StartTTLWorker(ctx context.Context, repo Repository, ttl, interval time.Duration, onCleanup CleanupCallback) {
	if interval <= 0 {
		interval = DefaultTTLWorkerInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepExpiredSessions(ctx, repo, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepExpiredSessions(ctx context.Context, repo Repository, ttl time.Duration, onCleanup CleanupCallback) {
	expired, err := repo.GetExpiredSessions(ctx, ttl)
	if err != nil {
		slog.Error("TTL worker failed to get expired sessions", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))

	for _, s := range expired {
		if onCleanup != nil {
			onCleanup(s.UserID, s.SessionKey)
		}
	}

	deleted, err := repo.CleanupExpiredSessions(ctx, ttl)
	if err != nil {
		// Context canceled mid-sweep is not fatal; the next run picks it up.
		if ctx.Err() != nil {
			slog.Debug("TTL worker interrupted during cleanup", "error", err)
			return
		}
		slog.Error("TTL worker failed to delete expired sessions", "error", err)
		return
	}
	slog.Info("TTL worker cleanup completed", "cleaned", deleted)
}
