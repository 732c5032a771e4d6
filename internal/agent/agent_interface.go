package agent

import (
	"context"

	"github.com/Asghar-123/health-agent/internal/domain"
)

// Processor defines the interface for assistant request processing.
// This interface is implemented by the Orchestrator.
type Processor interface {
	// Handle routes a user message and mutates sc.
	Handle(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error)

	// Escalate hands the session to a human coach.
	Escalate(ctx context.Context, sc *domain.SessionContext, reason string) (*Result, error)

	// TrackProgress appends a progress update.
	TrackProgress(ctx context.Context, sc *domain.SessionContext, update domain.ProgressEntry) ([]domain.ProgressEntry, error)

	// ScheduleCheckin records a check-in schedule.
	ScheduleCheckin(ctx context.Context, sc *domain.SessionContext, level, cadence string) (*domain.CheckinSchedule, error)
}

// Ensure Orchestrator implements Processor.
var _ Processor = (*Orchestrator)(nil)
