package agent

import (
	"context"
	"sync"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/goal"
	"github.com/Asghar-123/health-agent/internal/tools"
)

type fakeCompleter struct {
	mu   sync.Mutex
	text string
	id   string
	err  error
	reqs []completion.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req completion.Request) (*completion.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &completion.Response{Text: f.text, ResponseID: f.id}, nil
}

func (f *fakeCompleter) requests() []completion.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completion.Request(nil), f.reqs...)
}

type fakeAnalyzer struct {
	goal *goal.ParsedGoal
	err  error
}

func (fakeAnalyzer) Name() string { return tools.NameGoalAnalyzer }

func (f fakeAnalyzer) Analyze(context.Context, string) (*goal.ParsedGoal, error) {
	return f.goal, f.err
}

type fakeMealPlanner struct {
	plan  domain.MealPlan
	err   error
	diets []string
}

func (*fakeMealPlanner) Name() string { return tools.NameMealPlanner }

func (f *fakeMealPlanner) Plan(_ context.Context, diet string, _ *goal.ParsedGoal) (domain.MealPlan, error) {
	f.diets = append(f.diets, diet)
	return f.plan, f.err
}

type fakeWorkoutRecommender struct {
	plan   domain.WorkoutPlan
	err    error
	levels []string
}

func (*fakeWorkoutRecommender) Name() string { return tools.NameWorkoutRecommender }

func (f *fakeWorkoutRecommender) Recommend(_ context.Context, level string, _ *goal.ParsedGoal) (domain.WorkoutPlan, error) {
	f.levels = append(f.levels, level)
	return f.plan, f.err
}

type hookEvent struct {
	kind, a, b string
}

type recordingHooks struct {
	mu     sync.Mutex
	events []hookEvent
}

func (h *recordingHooks) OnAgentStart(_ context.Context, agent string, _ *domain.SessionContext) {
	h.add(hookEvent{"agent_start", agent, ""})
}

func (h *recordingHooks) OnToolStart(_ context.Context, tool string, _ map[string]any) {
	h.add(hookEvent{"tool_start", tool, ""})
}

func (h *recordingHooks) OnHandoff(_ context.Context, from, to string, _ *domain.SessionContext) {
	h.add(hookEvent{"handoff", from, to})
}

func (h *recordingHooks) add(e hookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) kinds(kind string) []hookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []hookEvent
	for _, e := range h.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}
