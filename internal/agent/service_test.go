package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/store"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []ConversationLogEvent
}

func (l *recordingLogger) Log(e ConversationLogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingLogger) Close() error { return nil }

func (l *recordingLogger) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestService(t *testing.T, c *fakeCompleter) (*Service, *store.MemoryStore, *recordingLogger) {
	t.Helper()
	o, err := NewOrchestrator(Options{Completer: c})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	repo := store.NewMemory()
	log := &recordingLogger{}
	return NewService(o, repo, log), repo, log
}

func TestServiceChatPersistsSession(t *testing.T) {
	svc, repo, log := newTestService(t, &fakeCompleter{text: "ok", id: "resp_9"})
	ctx := context.Background()

	res, err := svc.Chat(ctx, ChatRequest{Message: "my wrist hurts", UserID: "u", SessionID: "s"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Route != RouteInjury {
		t.Fatalf("unexpected route %q", res.Route)
	}

	stored, err := repo.GetSession(ctx, "u", "s")
	if err != nil || stored == nil {
		t.Fatalf("session not saved: (%v, %v)", stored, err)
	}
	if len(stored.Context.HandoffLogs) != 1 || stored.Context.PreviousResponseID != "resp_9" {
		t.Fatalf("unexpected stored context: %+v", stored.Context)
	}

	want := []string{"chat_user_message", "handoff", "chat_assistant_message"}
	got := log.types()
	if len(got) != len(want) {
		t.Fatalf("unexpected log events: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected log events: %v", got)
		}
	}
}

func TestServiceChatDoesNotCommitOnError(t *testing.T) {
	c := &fakeCompleter{text: "first", id: "resp_1"}
	svc, repo, _ := newTestService(t, c)
	ctx := context.Background()

	if _, err := svc.Chat(ctx, ChatRequest{Message: "my knee hurts", UserID: "u", SessionID: "s"}); err != nil {
		t.Fatalf("first Chat failed: %v", err)
	}

	c.err = errors.New("completion service down")
	if _, err := svc.Chat(ctx, ChatRequest{Message: "my back hurts", UserID: "u", SessionID: "s"}); err == nil {
		t.Fatal("expected error from failing completer")
	}

	stored, _ := repo.GetSession(ctx, "u", "s")
	if len(stored.Context.HandoffLogs) != 1 {
		t.Fatalf("failed request leaked into stored context: %v", stored.Context.HandoffLogs)
	}
}

type blockingProcessor struct {
	Processor
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProcessor) Handle(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error) {
	close(b.entered)
	<-b.release
	return &Result{OK: true, Response: input}, nil
}

func TestServiceRejectsConcurrentRequestsOnSameSession(t *testing.T) {
	p := &blockingProcessor{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(p, store.NewMemory(), nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Chat(ctx, ChatRequest{Message: "a", UserID: "u", SessionID: "s"})
		done <- err
	}()
	<-p.entered

	if _, err := svc.Chat(ctx, ChatRequest{Message: "b", UserID: "u", SessionID: "s"}); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	if _, err := svc.Session(ctx, "u", "other"); err != nil {
		t.Fatalf("other session should be readable: %v", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first Chat failed: %v", err)
	}
}

func TestServiceProfileAndReset(t *testing.T) {
	svc, repo, _ := newTestService(t, &fakeCompleter{text: "ok"})
	ctx := context.Background()

	name, diet := "Sam", "vegan"
	sc, err := svc.UpdateProfile(ctx, "u", "s", ProfileUpdate{Name: &name, DietPreferences: &diet})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if sc.Name != "Sam" || sc.DietPreferences != "vegan" {
		t.Fatalf("unexpected profile: %+v", sc)
	}

	empty := ""
	sc, _ = svc.UpdateProfile(ctx, "u", "s", ProfileUpdate{Name: &empty})
	if sc.Name != domain.DefaultName || sc.DietPreferences != "vegan" {
		t.Fatalf("unexpected profile after clearing name: %+v", sc)
	}

	if err := svc.Reset(ctx, "u", "s"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if stored, _ := repo.GetSession(ctx, "u", "s"); stored != nil {
		t.Fatal("expected session to be deleted")
	}
}

func TestServiceTrackingAndEscalation(t *testing.T) {
	svc, repo, _ := newTestService(t, &fakeCompleter{text: "ok"})
	ctx := context.Background()

	if _, err := svc.TrackProgress(ctx, "u", "s", domain.ProgressEntry{"steps": 9000}); err != nil {
		t.Fatalf("TrackProgress failed: %v", err)
	}
	if _, err := svc.TrackProgress(ctx, "u", "s", nil); err == nil {
		t.Fatal("expected error for empty update")
	}
	if _, err := svc.ScheduleCheckin(ctx, "u", "s", CheckinRequest{Cadence: domain.CadenceDaily}); err != nil {
		t.Fatalf("ScheduleCheckin failed: %v", err)
	}
	res, err := svc.Escalate(ctx, "u", "s", "needs a coach")
	if err != nil {
		t.Fatalf("Escalate failed: %v", err)
	}
	if res.Route != RouteEscalation {
		t.Fatalf("unexpected route %q", res.Route)
	}

	stored, _ := repo.GetSession(ctx, "u", "s")
	got := stored.Context
	if len(got.ProgressLogs) != 1 || got.Checkin == nil || got.Checkin.Cadence != domain.CadenceDaily {
		t.Fatalf("unexpected stored context: %+v", got)
	}
	if got.Checkin.Level != DefaultWorkoutLevel {
		t.Fatalf("unexpected check-in level %q", got.Checkin.Level)
	}
	if len(got.HandoffLogs) != 1 || got.HandoffLogs[0] != "Escalation: needs a coach" {
		t.Fatalf("unexpected handoff logs: %v", got.HandoffLogs)
	}
}

func hasSessionLock(svc *Service, userID, sessionID string) bool {
	_, ok := svc.locks.Load(sessionLockKey(userID, sessionID))
	return ok
}

func TestServiceResetDropsSessionLock(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeCompleter{text: "ok"})
	ctx := context.Background()

	if _, err := svc.Chat(ctx, ChatRequest{Message: "hello", UserID: "u", SessionID: "s"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !hasSessionLock(svc, "u", "s") {
		t.Fatal("expected a lock entry after Chat")
	}

	if err := svc.Reset(ctx, "u", "s"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if hasSessionLock(svc, "u", "s") {
		t.Fatal("lock entry survived Reset")
	}
}

func TestServiceForgetSessionDropsIdleLocks(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeCompleter{text: "ok"})
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := svc.Chat(ctx, ChatRequest{Message: "hello", UserID: "u", SessionID: id}); err != nil {
			t.Fatalf("Chat %s failed: %v", id, err)
		}
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		svc.ForgetSession("u", id)
	}
	svc.ForgetSession("u", "never-seen")

	n := 0
	svc.locks.Range(func(any, any) bool {
		n++
		return true
	})
	if n != 0 {
		t.Fatalf("expected no lock entries, got %d", n)
	}

	if _, err := svc.Chat(ctx, ChatRequest{Message: "hello again", UserID: "u", SessionID: "s1"}); err != nil {
		t.Fatalf("Chat after ForgetSession failed: %v", err)
	}
}

func TestServiceForgetSessionKeepsBusyLock(t *testing.T) {
	p := &blockingProcessor{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(p, store.NewMemory(), nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Chat(ctx, ChatRequest{Message: "a", UserID: "u", SessionID: "s"})
		done <- err
	}()
	<-p.entered

	svc.ForgetSession("u", "s")
	if !hasSessionLock(svc, "u", "s") {
		t.Fatal("lock of a busy session was dropped")
	}
	if _, err := svc.Chat(ctx, ChatRequest{Message: "b", UserID: "u", SessionID: "s"}); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first Chat failed: %v", err)
	}
}
