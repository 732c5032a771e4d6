package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/goal"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "health.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo.(*SQLiteStore)
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "anon_missing")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for missing user, got (%v, %v)", got, err)
	}

	now := time.Now()
	if err := s.UpsertUser(ctx, &domain.User{
		UserID: "anon_1", Username: "anon-1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	later := now.Add(time.Hour)
	if err := s.UpdateLastSeen(ctx, "anon_1", later); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}

	got, err = s.GetUser(ctx, "anon_1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "anon-1" || got.LastSeenAt.Unix() != later.Unix() {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := goal.New("lose", 5, "kg", 2, "months")
	if err != nil {
		t.Fatal(err)
	}
	sc := domain.NewSessionContext()
	sc.Name = "Sam"
	sc.Goal = g
	sc.DietPreferences = "vegetarian"
	sc.MealPlan = domain.MealPlan{"day_1": {"oats"}}
	sc.WorkoutPlan = domain.WorkoutPlan{"walk"}
	sc.RecordHandoff("Injury handoff: knee")
	sc.WaterIntakeML = 500
	sc.PreviousResponseID = "resp_1"

	if err := s.SaveSession(ctx, "anon_1", "tab-1", sc); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	stored, err := s.GetSession(ctx, "anon_1", "tab-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	got := stored.Context
	if got.ID != sc.ID || got.Name != "Sam" || got.DietPreferences != "vegetarian" {
		t.Fatalf("unexpected context: %+v", got)
	}
	if got.Goal == nil || *got.Goal != *g {
		t.Fatalf("goal not restored: %+v", got.Goal)
	}
	if len(got.MealPlan["day_1"]) != 1 || len(got.WorkoutPlan) != 1 {
		t.Fatalf("plans not restored: %+v %+v", got.MealPlan, got.WorkoutPlan)
	}
	if len(got.HandoffLogs) != 1 || got.WaterIntakeML != 500 || got.PreviousResponseID != "resp_1" {
		t.Fatalf("unexpected state: %+v", got)
	}

	other, err := s.GetSession(ctx, "anon_1", "tab-2")
	if err != nil || other != nil {
		t.Fatalf("expected no session for other tab, got (%v, %v)", other, err)
	}

	sc.Name = "Alex"
	if err := s.SaveSession(ctx, "anon_1", "tab-1", sc); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}
	stored, _ = s.GetSession(ctx, "anon_1", "tab-1")
	if stored.Context.Name != "Alex" {
		t.Fatalf("expected overwrite, got %q", stored.Context.Name)
	}

	if err := s.DeleteSession(ctx, "anon_1", "tab-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	stored, err = s.GetSession(ctx, "anon_1", "tab-1")
	if err != nil || stored != nil {
		t.Fatalf("expected deleted session, got (%v, %v)", stored, err)
	}
}

func TestExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, "anon_1", "old", domain.NewSessionContext()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSession(ctx, "anon_1", "fresh", domain.NewSessionContext()); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-2 * time.Hour).Unix()
	if _, err := s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE session_key = 'old'`, past); err != nil {
		t.Fatal(err)
	}

	expired, err := s.GetExpiredSessions(ctx, time.Hour)
	if err != nil {
		t.Fatalf("GetExpiredSessions failed: %v", err)
	}
	if len(expired) != 1 || expired[0].SessionKey != "old" {
		t.Fatalf("unexpected expired sessions: %+v", expired)
	}

	n, err := s.CleanupExpiredSessions(ctx, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 deleted, got (%d, %v)", n, err)
	}
	if fresh, _ := s.GetSession(ctx, "anon_1", "fresh"); fresh == nil {
		t.Fatal("fresh session should survive cleanup")
	}
}

func TestSaveSessionRejectsNil(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveSession(context.Background(), "u", "k", nil); err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
