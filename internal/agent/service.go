package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/store"
)

var (
	// ErrSessionBusy is returned when another request holds the session.
	ErrSessionBusy = errors.New("session busy")
	// ErrInvalidRequest wraps tool input the caller can fix.
	ErrInvalidRequest = errors.New("invalid request")
)

// Service runs assistant requests against persisted sessions. Each session is
// handled by at most one request at a time, and its context is committed only
// after the request succeeds.
type Service struct {
	processor Processor
	repo      store.Repository
	locks     sync.Map // sessionKey -> *sync.Mutex
	log       ConversationLogger
}

// NewService creates a service over processor and repo. A nil logger disables
// conversation logging.
func NewService(processor Processor, repo store.Repository, conversationLogger ConversationLogger) *Service {
	if conversationLogger == nil {
		conversationLogger = noopConversationLogger{}
	}
	return &Service{
		processor: processor,
		repo:      repo,
		log:       conversationLogger,
	}
}

func sessionLockKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// acquire takes the per-session lock without blocking. Entries are only
// removed by a holder of the lock, so a lock that is still mapped after
// TryLock is the session's current one.
func (s *Service) acquire(userID, sessionID string) (func(), error) {
	key := sessionLockKey(userID, sessionID)
	for {
		v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		if !mu.TryLock() {
			return nil, ErrSessionBusy
		}
		if cur, ok := s.locks.Load(key); ok && cur == v {
			return mu.Unlock, nil
		}
		mu.Unlock()
	}
}

// ForgetSession drops the lock entry of a session that is no longer stored.
// A session with a request in flight keeps its entry.
func (s *Service) ForgetSession(userID, sessionID string) {
	key := sessionLockKey(userID, sessionID)
	v, ok := s.locks.Load(key)
	if !ok {
		return
	}
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return
	}
	s.locks.CompareAndDelete(key, v)
	mu.Unlock()
}

func (s *Service) load(ctx context.Context, userID, sessionID string) (*domain.SessionContext, error) {
	stored, err := s.repo.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if stored == nil || stored.Context == nil {
		return domain.NewSessionContext(), nil
	}
	return stored.Context, nil
}

// Chat handles one user message for the session identified by req.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*Result, error) {
	unlock, err := s.acquire(req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sc, err := s.load(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	s.logEvent(req, "outbound", "chat_user_message", req.Message, nil)

	scratch := sc.Clone()
	handoffsBefore := len(scratch.HandoffLogs)
	result, err := s.processor.Handle(ctx, req.Message, scratch)
	if err != nil {
		s.logEvent(req, "inbound", "chat_error", "", map[string]any{"error": err.Error()})
		return nil, err
	}

	if err := s.repo.SaveSession(ctx, req.UserID, req.SessionID, scratch); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	for _, entry := range scratch.HandoffLogs[handoffsBefore:] {
		s.logEvent(req, "internal", "handoff", entry, nil)
	}
	s.logEvent(req, "inbound", "chat_assistant_message", result.Response, map[string]any{
		"ok":      result.OK,
		"route":   result.Route,
		"blocked": result.Blocked,
	})

	slog.InfoContext(ctx, "chat handled",
		"user_id", req.UserID,
		"session_id", req.SessionID,
		"route", result.Route,
		"ok", result.OK,
	)
	return result, nil
}

// Session returns the current context of a session, creating an empty one
// in memory when none is stored.
func (s *Service) Session(ctx context.Context, userID, sessionID string) (*domain.SessionContext, error) {
	return s.load(ctx, userID, sessionID)
}

// UpdateProfile changes the user-supplied fields of a session.
func (s *Service) UpdateProfile(ctx context.Context, userID, sessionID string, update ProfileUpdate) (*domain.SessionContext, error) {
	var out *domain.SessionContext
	err := s.mutate(ctx, userID, sessionID, func(sc *domain.SessionContext) error {
		if update.Name != nil {
			sc.Name = *update.Name
			if sc.Name == "" {
				sc.Name = domain.DefaultName
			}
		}
		if update.DietPreferences != nil {
			sc.DietPreferences = *update.DietPreferences
		}
		if update.InjuryNotes != nil {
			sc.InjuryNotes = *update.InjuryNotes
		}
		out = sc
		return nil
	})
	return out, err
}

// Reset deletes the stored session.
func (s *Service) Reset(ctx context.Context, userID, sessionID string) error {
	unlock, err := s.acquire(userID, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	s.locks.Delete(sessionLockKey(userID, sessionID))
	s.logEvent(ChatRequest{UserID: userID, SessionID: sessionID, Channel: "session_api"}, "internal", "session_reset", "", nil)
	return nil
}

// TrackProgress appends a progress update to the session.
func (s *Service) TrackProgress(ctx context.Context, userID, sessionID string, update domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	var logs []domain.ProgressEntry
	err := s.mutate(ctx, userID, sessionID, func(sc *domain.SessionContext) error {
		var err error
		logs, err = s.processor.TrackProgress(ctx, sc, update)
		return err
	})
	return logs, err
}

// ScheduleCheckin records a check-in schedule on the session.
func (s *Service) ScheduleCheckin(ctx context.Context, userID, sessionID string, req CheckinRequest) (*domain.CheckinSchedule, error) {
	var schedule *domain.CheckinSchedule
	err := s.mutate(ctx, userID, sessionID, func(sc *domain.SessionContext) error {
		var err error
		schedule, err = s.processor.ScheduleCheckin(ctx, sc, req.Level, req.Cadence)
		return err
	})
	return schedule, err
}

// Escalate hands the session to a human coach.
func (s *Service) Escalate(ctx context.Context, userID, sessionID, reason string) (*Result, error) {
	var result *Result
	err := s.mutate(ctx, userID, sessionID, func(sc *domain.SessionContext) error {
		var err error
		result, err = s.processor.Escalate(ctx, sc, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ChatRequest{UserID: userID, SessionID: sessionID, Channel: "session_api"}, "internal", "handoff", "Escalation: "+reason, nil)
	return result, nil
}

// mutate applies fn to a scratch copy of the session and saves it when fn succeeds.
func (s *Service) mutate(ctx context.Context, userID, sessionID string, fn func(sc *domain.SessionContext) error) error {
	unlock, err := s.acquire(userID, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	sc, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	scratch := sc.Clone()
	if err := fn(scratch); err != nil {
		return err
	}
	if err := s.repo.SaveSession(ctx, userID, sessionID, scratch); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Service) logEvent(req ChatRequest, direction, eventType, content string, meta map[string]any) {
	channel := req.Channel
	if channel == "" {
		channel = "chat_http"
	}
	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Channel:    channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}

// Close releases the conversation logger.
func (s *Service) Close() {
	if s.log != nil {
		if err := s.log.Close(); err != nil {
			slog.Warn("failed to close conversation logger", "error", err)
		}
	}
}
