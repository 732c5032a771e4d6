package tools

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/goal"
)

type stubCompleter struct {
	text string
	err  error
	reqs []completion.Request
}

func (s *stubCompleter) Complete(_ context.Context, req completion.Request) (*completion.Response, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return nil, s.err
	}
	return &completion.Response{Text: s.text, ResponseID: "r1"}, nil
}

func mustGoal(t *testing.T) *goal.ParsedGoal {
	t.Helper()
	g, err := goal.New("lose", 5, "kg", 2, "months")
	require.NoError(t, err)
	return g
}

func TestToolNames(t *testing.T) {
	for name, tool := range map[string]Tool{
		NameGoalAnalyzer:       RegexGoalAnalyzer{},
		NameMealPlanner:        NewMealPlanner(nil),
		NameWorkoutRecommender: NewWorkoutRecommender(nil),
		NameHydrationTracker:   HydrationTracker{},
		NameProgressTracker:    ProgressTracker{},
		NameCheckinScheduler:   CheckinScheduler{},
	} {
		assert.Equal(t, name, tool.Name())
	}
	assert.Equal(t, NameGoalAnalyzer, NewModelGoalAnalyzer(nil).Name())
}

func TestRegexGoalAnalyzer(t *testing.T) {
	g, err := RegexGoalAnalyzer{}.Analyze(context.Background(), "gain 2 kg in 3 weeks")
	require.NoError(t, err)
	assert.Equal(t, "gain", g.Action)

	g, err = RegexGoalAnalyzer{}.Analyze(context.Background(), "get fit")
	assert.NoError(t, err)
	assert.Nil(t, g)
}

func TestModelGoalAnalyzer(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    *goal.ParsedGoal
		wantErr bool
	}{
		{
			name:  "plain json",
			reply: `{"action":"Lose","quantity":5,"unit":"KG","duration_value":2,"duration_unit":"months"}`,
			want:  &goal.ParsedGoal{Action: "lose", Quantity: 5, Unit: "kg", DurationValue: 2, DurationUnit: "months"},
		},
		{
			name:  "fenced json",
			reply: "```json\n{\"action\":\"run\",\"quantity\":10,\"unit\":\"km\",\"duration_value\":1,\"duration_unit\":\"week\"}\n```",
			want:  &goal.ParsedGoal{Action: "run", Quantity: 10, Unit: "km", DurationValue: 1, DurationUnit: "week"},
		},
		{
			name:  "incomplete goal",
			reply: `{"action":"increase","quantity":null,"unit":"biceps_size","duration_value":null,"duration_unit":null}`,
		},
		{
			name:    "unsupported unit",
			reply:   `{"action":"lose","quantity":10,"unit":"pounds","duration_value":3,"duration_unit":"months"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			reply:   "I could not find a goal.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubCompleter{text: tt.reply}
			got, err := NewModelGoalAnalyzer(c).Analyze(context.Background(), "some text")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, c.reqs, 1)
			assert.Equal(t, "some text", c.reqs[0].Input)
			assert.Equal(t, goalAnalyzerInstructions, c.reqs[0].Instructions)
		})
	}
}

func TestModelGoalAnalyzerValidationError(t *testing.T) {
	c := &stubCompleter{text: `{"action":"lose","quantity":10,"unit":"pounds","duration_value":3,"duration_unit":"months"}`}
	_, err := NewModelGoalAnalyzer(c).Analyze(context.Background(), "x")

	var verr *goal.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestModelGoalAnalyzerUnreadableReply(t *testing.T) {
	c := &stubCompleter{text: "I could not find a goal."}
	_, err := NewModelGoalAnalyzer(c).Analyze(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGoalNotParsed)

	failing := &stubCompleter{err: errors.New("backend down")}
	_, err = NewModelGoalAnalyzer(failing).Analyze(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGoalNotParsed)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}

func TestMealPlanner(t *testing.T) {
	c := &stubCompleter{text: "Here you go\nDay_1:\nOats\n\nSalad\nday_2:\n  Eggs  \n"}
	plan, err := NewMealPlanner(c).Plan(context.Background(), "vegetarian", mustGoal(t))
	require.NoError(t, err)

	assert.Equal(t, domain.MealPlan{
		"day_1": {"Oats", "Salad"},
		"day_2": {"Eggs"},
	}, plan)
	require.Len(t, c.reqs, 1)
	assert.Contains(t, c.reqs[0].Input, "vegetarian")
	assert.Contains(t, c.reqs[0].Input, "lose 5 kg in 2 months")
}

func TestMealPlannerErrors(t *testing.T) {
	_, err := NewMealPlanner(&stubCompleter{}).Plan(context.Background(), "vegan", nil)
	require.Error(t, err)

	boom := errors.New("down")
	_, err = NewMealPlanner(&stubCompleter{err: boom}).Plan(context.Background(), "vegan", mustGoal(t))
	assert.ErrorIs(t, err, boom)
}

func TestParseMealPlanWithoutHeaders(t *testing.T) {
	assert.Empty(t, ParseMealPlan("just some text\nno days"))
}

func TestWorkoutRecommender(t *testing.T) {
	c := &stubCompleter{text: "Day 1: walk 20 min\n\n  Day 2: rest  \n"}
	plan, err := NewWorkoutRecommender(c).Recommend(context.Background(), "beginner", mustGoal(t))
	require.NoError(t, err)

	assert.Equal(t, domain.WorkoutPlan{"Day 1: walk 20 min", "Day 2: rest"}, plan)
	assert.Contains(t, c.reqs[0].Input, "Fitness Level: beginner")
	assert.Equal(t, "You are a professional fitness coach.", c.reqs[0].Instructions)
}

func TestNilCompletionResponse(t *testing.T) {
	c := completion.CompleterFunc(func(context.Context, completion.Request) (*completion.Response, error) {
		return nil, nil
	})
	ctx := context.Background()

	meals, err := NewMealPlanner(c).Plan(ctx, "vegan", mustGoal(t))
	require.NoError(t, err)
	assert.Empty(t, meals)

	workout, err := NewWorkoutRecommender(c).Recommend(ctx, "beginner", mustGoal(t))
	require.NoError(t, err)
	assert.Empty(t, workout)

	_, err = NewModelGoalAnalyzer(c).Analyze(ctx, "lose 5kg in 2 months")
	assert.ErrorIs(t, err, ErrGoalNotParsed)
}

func TestHydrationTracker(t *testing.T) {
	sc := domain.NewSessionContext()

	total, err := HydrationTracker{}.Track(500, sc)
	require.NoError(t, err)
	assert.Equal(t, 500, total)

	total, err = HydrationTracker{}.Track(240, sc)
	require.NoError(t, err)
	assert.Equal(t, 740, total)
	assert.Equal(t, 740, sc.WaterIntakeML)
	assert.Equal(t, []domain.ProgressEntry{
		{"type": "water", "amount_ml": 500},
		{"type": "water", "amount_ml": 240},
	}, sc.ProgressLogs)

	_, err = HydrationTracker{}.Track(0, sc)
	require.Error(t, err)
	assert.Equal(t, 740, sc.WaterIntakeML)

	_, err = HydrationTracker{}.Track(math.MaxInt, sc)
	require.Error(t, err)
	assert.Equal(t, 740, sc.WaterIntakeML)
	assert.Len(t, sc.ProgressLogs, 2)
}

func TestProgressTracker(t *testing.T) {
	sc := &domain.SessionContext{}

	logs, err := ProgressTracker{}.Track(sc, domain.ProgressEntry{"weight_kg": 80.5})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = ProgressTracker{}.Track(sc, nil)
	require.Error(t, err)
	assert.Len(t, sc.ProgressLogs, 1)
}

func TestCheckinScheduler(t *testing.T) {
	sc := domain.NewSessionContext()

	s, err := CheckinScheduler{}.Schedule(sc, "beginner", "")
	require.NoError(t, err)
	assert.Equal(t, &domain.CheckinSchedule{Level: "beginner", Cadence: domain.CadenceWeekly}, s)
	assert.Same(t, s, sc.Checkin)

	_, err = CheckinScheduler{}.Schedule(sc, "beginner", "hourly")
	require.Error(t, err)
	assert.Equal(t, domain.CadenceWeekly, sc.Checkin.Cadence)
}
