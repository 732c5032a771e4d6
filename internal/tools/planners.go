package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/goal"
)

var errNoGoal = errors.New("no goal set")

// MealPlanner generates a 7-day meal plan.
type MealPlanner struct {
	completer completion.Completer
}

// NewMealPlanner creates a meal planner backed by c.
func NewMealPlanner(c completion.Completer) *MealPlanner {
	return &MealPlanner{completer: c}
}

// Name implements Tool.
func (*MealPlanner) Name() string { return NameMealPlanner }

// Plan asks for a plan matching the diet and goal.
func (p *MealPlanner) Plan(ctx context.Context, diet string, g *goal.ParsedGoal) (domain.MealPlan, error) {
	if g == nil {
		return nil, errNoGoal
	}
	prompt := fmt.Sprintf(`Generate a 7-day meal plan for a user with the following preferences and goals:
- Diet: %s
- Goal: %s

The meal plan should include breakfast, lunch, dinner, and a snack for each day.
Start each day with its own header line ("day_1:", "day_2:", ...) followed by one meal per line.`, diet, g)

	out, err := complete(ctx, p.completer, "You are a professional nutritionist.", prompt)
	if err != nil {
		return nil, fmt.Errorf("meal plan: %w", err)
	}
	return ParseMealPlan(out), nil
}

// ParseMealPlan groups lines under the most recent "day_N" header. Lines
// before the first header are dropped.
func ParseMealPlan(text string) domain.MealPlan {
	plan := domain.MealPlan{}
	current := ""
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToLower(line), "day_"):
			current = strings.ToLower(strings.ReplaceAll(line, ":", ""))
			plan[current] = []string{}
		case line != "" && current != "":
			plan[current] = append(plan[current], line)
		}
	}
	return plan
}

// WorkoutRecommender generates a 7-day workout plan.
type WorkoutRecommender struct {
	completer completion.Completer
}

// NewWorkoutRecommender creates a recommender backed by c.
func NewWorkoutRecommender(c completion.Completer) *WorkoutRecommender {
	return &WorkoutRecommender{completer: c}
}

// Name implements Tool.
func (*WorkoutRecommender) Name() string { return NameWorkoutRecommender }

// Recommend asks for a plan for the given fitness level.
func (r *WorkoutRecommender) Recommend(ctx context.Context, level string, g *goal.ParsedGoal) (domain.WorkoutPlan, error) {
	if g == nil {
		return nil, errNoGoal
	}
	prompt := fmt.Sprintf(`Generate a 7-day workout plan for a user with the following fitness level and goals:
- Fitness Level: %s
- Goal: %s

The workout plan should be tailored to the user's fitness level and goals.
Provide the output as a list of lines (one workout per day).`, level, g)

	out, err := complete(ctx, r.completer, "You are a professional fitness coach.", prompt)
	if err != nil {
		return nil, fmt.Errorf("workout plan: %w", err)
	}
	return ParseWorkoutPlan(out), nil
}

// ParseWorkoutPlan returns the non-blank lines of text, trimmed.
func ParseWorkoutPlan(text string) domain.WorkoutPlan {
	plan := domain.WorkoutPlan{}
	for line := range strings.SplitSeq(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			plan = append(plan, line)
		}
	}
	return plan
}
