// Package tools holds the planning and tracking tools the assistant invokes
// while handling a request.
//
// Every tool reports a stable Name used in logs and run hooks. Invocation is
// typed per tool rather than going through a generic argument map.
package tools

import (
	"context"

	"github.com/Asghar-123/health-agent/internal/completion"
)

// Tool is the capability shared by all tools.
type Tool interface {
	Name() string
}

// Tool names.
const (
	NameGoalAnalyzer       = "GoalAnalyzerTool"
	NameMealPlanner        = "MealPlannerTool"
	NameWorkoutRecommender = "WorkoutRecommenderTool"
	NameHydrationTracker   = "HydrationTrackerTool"
	NameProgressTracker    = "ProgressTrackerTool"
	NameCheckinScheduler   = "CheckinSchedulerTool"
)

func complete(ctx context.Context, c completion.Completer, instructions, input string) (string, error) {
	resp, err := c.Complete(ctx, completion.Request{Instructions: instructions, Input: input})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text, nil
}
