// Package agent implements the health assistant: the request orchestrator,
// the session-aware service around it and its HTTP handler.
package agent

import (
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/goal"
	"github.com/Asghar-123/health-agent/internal/guardrail"
)

// AgentName identifies the orchestrator in run hooks and hand-off logs.
const AgentName = "HealthPlannerAgent"

// Route names the branch of the intent order that produced a result.
type Route string

const (
	RouteGuardrail    Route = "guardrail"
	RouteInjury       Route = "injury"
	RouteNutrition    Route = "nutrition"
	RouteHydration    Route = "hydration"
	RoutePlan         Route = "plan"
	RouteGoalFallback Route = "goal_fallback"
	RouteGeneral      Route = "general"
	RouteEscalation   Route = "escalation"
)

// Result is the outcome of handling one user message.
type Result struct {
	OK          bool               `json:"ok" yaml:"ok"`
	Response    string             `json:"response" yaml:"response"`
	Route       Route              `json:"route" yaml:"route"`
	Blocked     guardrail.Category `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	Goal        *goal.ParsedGoal   `json:"goal,omitempty" yaml:"goal,omitempty"`
	MealPlan    domain.MealPlan    `json:"meal_plan,omitempty" yaml:"meal_plan,omitempty"`
	WorkoutPlan domain.WorkoutPlan `json:"workout_plan,omitempty" yaml:"workout_plan,omitempty"`
	HandoffLogs []string           `json:"handoff_logs,omitempty" yaml:"handoff_logs,omitempty"`
	// WaterIntakeML is the running total after a hydration log.
	WaterIntakeML int `json:"water_intake_ml,omitempty" yaml:"water_intake_ml,omitempty"`
}

// ChatRequest represents a chat request to the assistant.
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"-"`
	SessionID string `json:"-"`
	Channel   string `json:"-"`
}

// ProfileUpdate changes the user-supplied fields of a session. Nil fields are
// left untouched; an empty string clears the field.
type ProfileUpdate struct {
	Name            *string `json:"name,omitempty"`
	DietPreferences *string `json:"diet_preferences,omitempty"`
	InjuryNotes     *string `json:"injury_notes,omitempty"`
}

// CheckinRequest schedules recurring check-ins.
type CheckinRequest struct {
	Level   string `json:"level"`
	Cadence string `json:"cadence"`
}

// EscalationRequest asks for a human coach.
type EscalationRequest struct {
	Reason string `json:"reason"`
}
