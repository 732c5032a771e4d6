// Package domain contains core domain types for the health assistant.
package domain

import (
	"github.com/google/uuid"

	"github.com/Asghar-123/health-agent/internal/goal"
)

// DefaultName is the display name of a session nobody has named yet.
const DefaultName = "Guest"

// SessionContext holds the mutable state of one conversation. A context is
// owned by a single in-flight request at a time.
type SessionContext struct {
	Name            string           `json:"name"`
	ID              string           `json:"id"`
	Goal            *goal.ParsedGoal `json:"goal,omitempty"`
	DietPreferences string           `json:"diet_preferences,omitempty"`
	MealPlan        MealPlan         `json:"meal_plan,omitempty"`
	WorkoutPlan     WorkoutPlan      `json:"workout_plan,omitempty"`
	InjuryNotes     string           `json:"injury_notes,omitempty"`
	HandoffLogs     []string         `json:"handoff_logs"`
	ProgressLogs    []ProgressEntry  `json:"progress_logs"`
	WaterIntakeML   int              `json:"water_intake_ml"`
	Checkin         *CheckinSchedule `json:"checkin,omitempty"`

	// PreviousResponseID threads conversation continuation through the
	// completion service between turns.
	PreviousResponseID string `json:"previous_response_id,omitempty"`
}

// NewSessionContext returns a fresh context with a new ID.
func NewSessionContext() *SessionContext {
	return &SessionContext{
		Name:         DefaultName,
		ID:           uuid.NewString(),
		HandoffLogs:  []string{},
		ProgressLogs: []ProgressEntry{},
	}
}

// RecordHandoff appends one entry to the hand-off log.
func (s *SessionContext) RecordHandoff(entry string) {
	if s.HandoffLogs == nil {
		s.HandoffLogs = []string{}
	}
	s.HandoffLogs = append(s.HandoffLogs, entry)
}

// RecordProgress appends one entry to the progress log.
func (s *SessionContext) RecordProgress(entry ProgressEntry) {
	if s.ProgressLogs == nil {
		s.ProgressLogs = []ProgressEntry{}
	}
	s.ProgressLogs = append(s.ProgressLogs, entry)
}

// Clone returns a deep copy, used to run a request against a scratch context
// that is only committed once the request succeeds.
func (s *SessionContext) Clone() *SessionContext {
	c := *s
	if s.Goal != nil {
		g := *s.Goal
		c.Goal = &g
	}
	if s.MealPlan != nil {
		c.MealPlan = make(MealPlan, len(s.MealPlan))
		for day, meals := range s.MealPlan {
			c.MealPlan[day] = append([]string(nil), meals...)
		}
	}
	if s.WorkoutPlan != nil {
		c.WorkoutPlan = append(WorkoutPlan(nil), s.WorkoutPlan...)
	}
	if s.HandoffLogs != nil {
		c.HandoffLogs = append([]string{}, s.HandoffLogs...)
	}
	if s.ProgressLogs != nil {
		c.ProgressLogs = make([]ProgressEntry, len(s.ProgressLogs))
		for i, e := range s.ProgressLogs {
			c.ProgressLogs[i] = e.clone()
		}
	}
	if s.Checkin != nil {
		ch := *s.Checkin
		c.Checkin = &ch
	}
	return &c
}
