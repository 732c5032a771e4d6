package chatws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Asghar-123/health-agent/internal/agent"
	"github.com/Asghar-123/health-agent/internal/identity"
)

// Channel is the conversation-log channel for WebSocket chats.
const Channel = "chat_ws"

const writeTimeout = 10 * time.Second

// Message types.
const (
	TypeChat   = "chat"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeResult = "result"
	TypeError  = "error"
	TypeClose  = "close"
)

// ClientMessage is a frame sent by the browser.
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServerMessage is a frame sent to the browser.
type ServerMessage struct {
	Type   string        `json:"type"`
	Result *agent.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Handler upgrades requests to WebSocket chat sessions.
type Handler struct {
	svc            *agent.Service
	sm             *SessionManager
	limiter        *agent.RateLimiter
	allowedOrigins []string
}

// NewHandler creates a WebSocket chat handler. limiter may be nil.
func NewHandler(svc *agent.Service, sm *SessionManager, limiter *agent.RateLimiter, allowedOrigins []string) *Handler {
	return &Handler{svc: svc, sm: sm, limiter: limiter, allowedOrigins: originPatterns(allowedOrigins)}
}

// originPatterns turns configured origins such as "https://app.example.com"
// into the host patterns websocket.Accept matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	return patterns
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, sessionID := identity.FromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sm.Register(userID, sessionID, ws)
	defer h.sm.Unregister(userID, sessionID, ws)

	h.readLoop(r.Context(), ws, userID, sessionID)
	slog.Info("Chat session ended", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var reply ServerMessage
		switch msg.Type {
		case TypeChat:
			reply = h.chat(ctx, userID, sessionID, msg.Content)
		case TypePing:
			reply = ServerMessage{Type: TypePong}
		case TypeClose:
			return
		default:
			reply = ServerMessage{Type: TypeError, Error: "unknown message type"}
		}

		if err := h.write(ctx, ws, reply); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *Handler) chat(ctx context.Context, userID, sessionID, content string) ServerMessage {
	if content == "" {
		return ServerMessage{Type: TypeError, Error: "message is required"}
	}
	if h.limiter != nil && !h.limiter.Allow(userID) {
		return ServerMessage{Type: TypeError, Error: "rate limit exceeded"}
	}

	result, err := h.svc.Chat(ctx, agent.ChatRequest{
		Message:   content,
		UserID:    userID,
		SessionID: sessionID,
		Channel:   Channel,
	})
	switch {
	case errors.Is(err, agent.ErrSessionBusy):
		return ServerMessage{Type: TypeError, Error: "request already in progress for this session"}
	case err != nil:
		slog.Error("WebSocket chat failed", "error", err, "user_id", userID, "session_id", sessionID)
		return ServerMessage{Type: TypeError, Error: "assistant unavailable"}
	}
	return ServerMessage{Type: TypeResult, Result: result}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}
