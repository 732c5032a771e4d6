package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Asghar-123/health-agent/internal/agent"
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/identity"
)

// SessionHandler handles session state endpoints.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/session", h.GetSession)
		r.Delete("/session", h.ResetSession)
		r.Put("/session/profile", h.UpdateProfile)
		r.Post("/session/progress", h.TrackProgress)
		r.Post("/session/checkin", h.ScheduleCheckin)
		r.Post("/session/escalate", h.Escalate)
	})
}

// GetMe returns the current user's information.
func (h *SessionHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity.FromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	var sessionTTL int64
	stored, err := h.repo.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		slog.Warn("Failed to load session for /me", "error", err, "user_id", userID)
	} else if stored != nil && h.cfg != nil {
		sessionTTL = int64(stored.TTL(h.cfg.SessionTTL).Seconds())
	}

	JSON(w, http.StatusOK, map[string]any{
		"user_id":     user.UserID,
		"username":    user.Username,
		"session_id":  sessionID,
		"session_ttl": sessionTTL,
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *SessionHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := map[string]any{}
	if h.cfg != nil {
		cfg["provider"] = h.cfg.Completion.Provider
		cfg["goal_analyzer"] = h.cfg.Assistant.GoalAnalyzer
		cfg["workout_level"] = h.cfg.Assistant.WorkoutLevel
	}
	cfg["session_header"] = identity.SessionHeaderName
	JSON(w, http.StatusOK, cfg)
}

// GetSession returns the caller's session context.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity.FromContext(r.Context())
	sc, err := h.svc.Session(r.Context(), userID, sessionID)
	if err != nil {
		h.fail(w, err, userID, "get session")
		return
	}
	JSON(w, http.StatusOK, sc)
}

// UpdateProfile sets the name, diet preferences or injury notes.
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req agent.ProfileUpdate
	if !h.decode(w, r, &req) {
		return
	}
	userID, sessionID := identity.FromContext(r.Context())
	sc, err := h.svc.UpdateProfile(r.Context(), userID, sessionID, req)
	if err != nil {
		h.fail(w, err, userID, "update profile")
		return
	}
	JSON(w, http.StatusOK, sc)
}

// ResetSession discards the caller's session context.
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity.FromContext(r.Context())
	if err := h.svc.Reset(r.Context(), userID, sessionID); err != nil {
		h.fail(w, err, userID, "reset session")
		return
	}
	slog.Info("Session reset", "user_id", userID, "session_id", sessionID)
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// TrackProgress appends a progress update.
func (h *SessionHandler) TrackProgress(w http.ResponseWriter, r *http.Request) {
	var update domain.ProgressEntry
	if !h.decode(w, r, &update) {
		return
	}
	userID, sessionID := identity.FromContext(r.Context())
	logs, err := h.svc.TrackProgress(r.Context(), userID, sessionID, update)
	if err != nil {
		h.fail(w, err, userID, "track progress")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"progress_logs": logs})
}

// ScheduleCheckin records a check-in cadence.
func (h *SessionHandler) ScheduleCheckin(w http.ResponseWriter, r *http.Request) {
	var req agent.CheckinRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, sessionID := identity.FromContext(r.Context())
	schedule, err := h.svc.ScheduleCheckin(r.Context(), userID, sessionID, req)
	if err != nil {
		h.fail(w, err, userID, "schedule checkin")
		return
	}
	JSON(w, http.StatusOK, schedule)
}

// Escalate hands the session to a human coach.
func (h *SessionHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	var req agent.EscalationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Reason == "" {
		Error(w, http.StatusBadRequest, "reason is required")
		return
	}
	userID, sessionID := identity.FromContext(r.Context())
	result, err := h.svc.Escalate(r.Context(), userID, sessionID, req.Reason)
	if err != nil {
		h.fail(w, err, userID, "escalate")
		return
	}
	JSON(w, http.StatusOK, result)
}

func (h *SessionHandler) fail(w http.ResponseWriter, err error, userID, op string) {
	switch {
	case errors.Is(err, agent.ErrSessionBusy):
		Error(w, http.StatusConflict, "request already in progress for this session")
	case errors.Is(err, agent.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Session operation failed", "op", op, "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to "+op)
	}
}
