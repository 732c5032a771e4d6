package agent

import (
	"context"
	"log/slog"

	"github.com/Asghar-123/health-agent/internal/domain"
)

// Hooks observes an orchestrator run.
type Hooks interface {
	OnAgentStart(ctx context.Context, agent string, sc *domain.SessionContext)
	OnToolStart(ctx context.Context, tool string, input map[string]any)
	OnHandoff(ctx context.Context, from, to string, sc *domain.SessionContext)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) OnAgentStart(context.Context, string, *domain.SessionContext)      {}
func (NopHooks) OnToolStart(context.Context, string, map[string]any)               {}
func (NopHooks) OnHandoff(context.Context, string, string, *domain.SessionContext) {}

// LogHooks writes run events to a structured logger.
type LogHooks struct {
	Logger *slog.Logger
}

func (h LogHooks) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h LogHooks) OnAgentStart(ctx context.Context, agent string, sc *domain.SessionContext) {
	h.logger().DebugContext(ctx, "agent started", "agent", agent, "session_id", sc.ID)
}

func (h LogHooks) OnToolStart(ctx context.Context, tool string, input map[string]any) {
	h.logger().DebugContext(ctx, "tool started", "tool", tool, "input", input)
}

func (h LogHooks) OnHandoff(ctx context.Context, from, to string, sc *domain.SessionContext) {
	h.logger().InfoContext(ctx, "handoff", "from", from, "to", to, "session_id", sc.ID)
}
