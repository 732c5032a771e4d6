package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/domain"
	"github.com/Asghar-123/health-agent/internal/goal"
	"github.com/Asghar-123/health-agent/internal/guardrail"
	"github.com/Asghar-123/health-agent/internal/handoff"
	"github.com/Asghar-123/health-agent/internal/tools"
)

// DefaultWorkoutLevel is the difficulty passed to the workout recommender.
const DefaultWorkoutLevel = "beginner"

// Intent keywords, matched as substrings of the lowercased input.
var (
	injuryKeywords    = []string{"injury", "hurt", "pain", "sprain", "strain", "ache", "sore"}
	nutritionKeywords = []string{"nutrition", "diet", "food", "healthy eating", "vitamins", "minerals", "protein", "carbs", "fats"}
	mealPlanPhrases   = []string{"meal plan", "mealplanner"}
	hydrationTriggers = []string{"log water", "drank", "water intake"}
	planningKeywords  = []string{"goal", "weight", "exercise", "gain", "lose", "plan"}
)

const (
	injuryFallback      = "Could not process injury query."
	nutritionFallback   = "Could not process nutrition query."
	waterAmountPrompt   = "Please specify the amount of water to log (e.g., 'log 500ml water')."
	goalRetryFallback   = "Sorry, I couldn't process that query about your goals. Can you please rephrase?"
	generalFallback     = "I'm sorry, I couldn't generate a response at this time. Please try again."
	plansFallback       = "Plans generated based on your goals."
	injuryNotesHandled  = "Your injury notes have been processed by the injury support system."
	goalRetryDirective  = " User query couldn't be parsed by goal analyzer. Try to give a helpful and encouraging response related to health goals or offer to try again."
	mealPlanHeading     = "Here is a meal plan:"
	workoutPlanHeading  = "Here is a workout plan:"
	hydrationLoggedText = "Logged %dml of water. Total logged: %dml."
)

// GoalAnalyzer extracts a goal from free text. It returns (nil, nil) when the
// text holds no goal.
type GoalAnalyzer interface {
	tools.Tool
	Analyze(ctx context.Context, text string) (*goal.ParsedGoal, error)
}

// MealPlanner produces a per-day meal plan.
type MealPlanner interface {
	tools.Tool
	Plan(ctx context.Context, diet string, g *goal.ParsedGoal) (domain.MealPlan, error)
}

// WorkoutRecommender produces a per-day workout plan.
type WorkoutRecommender interface {
	tools.Tool
	Recommend(ctx context.Context, level string, g *goal.ParsedGoal) (domain.WorkoutPlan, error)
}

// Options configures an Orchestrator. Only Completer is required; every other
// collaborator defaults to the implementation backed by it.
type Options struct {
	Completer          completion.Completer
	GoalAnalyzer       GoalAnalyzer
	MealPlanner        MealPlanner
	WorkoutRecommender WorkoutRecommender
	Nutrition          handoff.Agent
	Injury             handoff.Agent
	Escalation         handoff.Agent
	Hooks              Hooks
	WorkoutLevel       string
}

// Orchestrator routes one user message through the guardrails and the
// ordered intent checks.
type Orchestrator struct {
	guard        *guardrail.Manager
	completer    completion.Completer
	analyzer     GoalAnalyzer
	meals        MealPlanner
	workouts     WorkoutRecommender
	hydration    tools.HydrationTracker
	progress     tools.ProgressTracker
	checkins     tools.CheckinScheduler
	nutrition    handoff.Agent
	injury       handoff.Agent
	escalation   handoff.Agent
	hooks        Hooks
	workoutLevel string
}

// NewOrchestrator creates an orchestrator from opts.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Completer == nil {
		return nil, errors.New("orchestrator: completer is required")
	}
	o := &Orchestrator{
		guard:        guardrail.NewManager(),
		completer:    opts.Completer,
		analyzer:     opts.GoalAnalyzer,
		meals:        opts.MealPlanner,
		workouts:     opts.WorkoutRecommender,
		nutrition:    opts.Nutrition,
		injury:       opts.Injury,
		escalation:   opts.Escalation,
		hooks:        opts.Hooks,
		workoutLevel: opts.WorkoutLevel,
	}
	if o.analyzer == nil {
		o.analyzer = tools.RegexGoalAnalyzer{}
	}
	if o.meals == nil {
		o.meals = tools.NewMealPlanner(opts.Completer)
	}
	if o.workouts == nil {
		o.workouts = tools.NewWorkoutRecommender(opts.Completer)
	}
	if o.nutrition == nil {
		o.nutrition = handoff.NewNutritionAgent(opts.Completer)
	}
	if o.injury == nil {
		o.injury = handoff.NewInjuryAgent(opts.Completer)
	}
	if o.escalation == nil {
		o.escalation = handoff.NewEscalationAgent()
	}
	if o.hooks == nil {
		o.hooks = NopHooks{}
	}
	if o.workoutLevel == "" {
		o.workoutLevel = DefaultWorkoutLevel
	}
	return o, nil
}

// Handle answers one user message, mutating sc as a side effect. Guardrail
// refusals are returned as-is; every other result carries exactly one general
// health disclaimer. Errors from the completion service or the planners are
// returned wrapped, in which case sc must be discarded.
func (o *Orchestrator) Handle(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error) {
	if sc == nil {
		return nil, errors.New("handle: nil session context")
	}
	o.hooks.OnAgentStart(ctx, AgentName, sc)

	if d := o.guard.PreProcess(input); !d.Allowed {
		slog.InfoContext(ctx, "query blocked by guardrail", "session_id", sc.ID, "category", d.Category)
		return &Result{OK: false, Response: d.Message, Route: RouteGuardrail, Blocked: d.Category}, nil
	}

	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, injuryKeywords):
		return o.handOff(ctx, o.injury, RouteInjury, input, sc, injuryFallback)
	case containsAny(lower, nutritionKeywords) && !containsAny(lower, mealPlanPhrases):
		return o.handOff(ctx, o.nutrition, RouteNutrition, input, sc, nutritionFallback)
	case isHydrationLog(lower):
		return o.logWater(ctx, input, sc)
	case containsAny(lower, planningKeywords):
		return o.plan(ctx, input, sc)
	}
	return o.general(ctx, input, sc)
}

// Escalate hands the session to a human coach.
func (o *Orchestrator) Escalate(ctx context.Context, sc *domain.SessionContext, reason string) (*Result, error) {
	if sc == nil {
		return nil, errors.New("escalate: nil session context")
	}
	o.hooks.OnHandoff(ctx, AgentName, o.escalation.Name(), sc)
	if err := o.escalation.OnHandoff(sc, reason); err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}
	reply, err := o.escalation.Run(ctx, reason, sc)
	if err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}
	return o.reply(&Result{OK: reply.OK, Response: reply.Response, Route: RouteEscalation, HandoffLogs: sc.HandoffLogs}), nil
}

// TrackProgress records a progress update on the session.
func (o *Orchestrator) TrackProgress(ctx context.Context, sc *domain.SessionContext, update domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	o.hooks.OnToolStart(ctx, o.progress.Name(), map[string]any(update))
	logs, err := o.progress.Track(sc, update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return logs, nil
}

// ScheduleCheckin records a check-in schedule. An empty level uses the
// configured workout level.
func (o *Orchestrator) ScheduleCheckin(ctx context.Context, sc *domain.SessionContext, level, cadence string) (*domain.CheckinSchedule, error) {
	if level == "" {
		level = o.workoutLevel
	}
	o.hooks.OnToolStart(ctx, o.checkins.Name(), map[string]any{"level": level, "cadence": cadence})
	schedule, err := o.checkins.Schedule(sc, level, cadence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return schedule, nil
}

// reply applies post-processing. It is the single exit for non-refusal
// results, so the disclaimer is appended exactly once.
func (o *Orchestrator) reply(r *Result) *Result {
	r.Response = o.guard.PostProcess(r.Response, true)
	return r
}

func (o *Orchestrator) handOff(ctx context.Context, agent handoff.Agent, route Route, input string, sc *domain.SessionContext, fallback string) (*Result, error) {
	o.hooks.OnHandoff(ctx, AgentName, agent.Name(), sc)
	if err := agent.OnHandoff(sc, input); err != nil {
		return nil, fmt.Errorf("%s handoff: %w", route, err)
	}
	reply, err := agent.Run(ctx, input, sc)
	if err != nil {
		return nil, fmt.Errorf("%s agent: %w", route, err)
	}
	rememberResponse(sc, reply.ResponseID)

	text := reply.Response
	if text == "" {
		slog.WarnContext(ctx, "empty agent response", "agent", agent.Name(), "session_id", sc.ID)
		text = fallback
	}
	return o.reply(&Result{OK: true, Response: text, Route: route, HandoffLogs: sc.HandoffLogs}), nil
}

func (o *Orchestrator) logWater(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error) {
	amount := ParseWaterAmount(input)
	if amount <= 0 {
		return o.reply(&Result{OK: false, Response: waterAmountPrompt, Route: RouteHydration}), nil
	}

	o.hooks.OnToolStart(ctx, o.hydration.Name(), map[string]any{"amount_ml": amount})
	total, err := o.hydration.Track(amount, sc)
	if err != nil {
		return nil, fmt.Errorf("log water: %w", err)
	}
	return o.reply(&Result{
		OK:            true,
		Response:      fmt.Sprintf(hydrationLoggedText, amount, total),
		Route:         RouteHydration,
		WaterIntakeML: total,
	}), nil
}

func (o *Orchestrator) plan(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error) {
	o.hooks.OnToolStart(ctx, o.analyzer.Name(), map[string]any{"text": input})
	g, err := o.analyzer.Analyze(ctx, input)
	var verr *goal.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, tools.ErrGoalNotParsed):
		slog.DebugContext(ctx, "goal not parsed", "session_id", sc.ID, "error", err)
		g = nil
	case err != nil:
		return nil, fmt.Errorf("analyze goal: %w", err)
	}

	if g == nil {
		return o.goalFallback(ctx, input, sc)
	}
	sc.Goal = g
	return o.generatePlans(ctx, sc)
}

func (o *Orchestrator) goalFallback(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error) {
	text, err := o.complete(ctx, ToneInstruction(input)+goalRetryDirective, input, sc)
	if err != nil {
		return nil, fmt.Errorf("goal fallback: %w", err)
	}
	if text == "" {
		slog.WarnContext(ctx, "empty completion response", "step", "goal_fallback", "session_id", sc.ID)
		text = goalRetryFallback
	}
	return o.reply(&Result{OK: false, Response: text, Route: RouteGoalFallback}), nil
}

func (o *Orchestrator) generatePlans(ctx context.Context, sc *domain.SessionContext) (*Result, error) {
	sc.MealPlan = nil
	sc.WorkoutPlan = nil
	var parts []string

	if sc.DietPreferences != "" {
		o.hooks.OnToolStart(ctx, o.meals.Name(), map[string]any{"diet": sc.DietPreferences, "goal": sc.Goal.String()})
		meals, err := o.meals.Plan(ctx, sc.DietPreferences, sc.Goal)
		if err != nil {
			return nil, fmt.Errorf("meal plan: %w", err)
		}
		sc.MealPlan = meals
		if len(meals) > 0 {
			parts = append(parts, formatMealPlan(meals))
		}
	}

	o.hooks.OnToolStart(ctx, o.workouts.Name(), map[string]any{"level": o.workoutLevel, "goal": sc.Goal.String()})
	workout, err := o.workouts.Recommend(ctx, o.workoutLevel, sc.Goal)
	if err != nil {
		return nil, fmt.Errorf("workout plan: %w", err)
	}
	sc.WorkoutPlan = workout
	if len(workout) > 0 {
		parts = append(parts, workoutPlanHeading+"\n"+strings.Join(workout, "\n"))
	}

	if sc.InjuryNotes != "" {
		o.hooks.OnHandoff(ctx, AgentName, o.injury.Name(), sc)
		if err := o.injury.OnHandoff(sc, sc.InjuryNotes); err != nil {
			return nil, fmt.Errorf("injury handoff: %w", err)
		}
		parts = append(parts, injuryNotesHandled)
	}

	response := strings.Join(parts, "\n")
	if response == "" {
		response = plansFallback
	}
	return o.reply(&Result{
		OK:          true,
		Response:    response,
		Route:       RoutePlan,
		Goal:        sc.Goal,
		MealPlan:    sc.MealPlan,
		WorkoutPlan: sc.WorkoutPlan,
		HandoffLogs: sc.HandoffLogs,
	}), nil
}

func (o *Orchestrator) general(ctx context.Context, input string, sc *domain.SessionContext) (*Result, error) {
	text, err := o.complete(ctx, ToneInstruction(input), input, sc)
	if err != nil {
		return nil, fmt.Errorf("general response: %w", err)
	}
	if text == "" {
		slog.WarnContext(ctx, "empty completion response", "step", "general", "session_id", sc.ID)
		text = generalFallback
	}
	return o.reply(&Result{OK: true, Response: text, Route: RouteGeneral}), nil
}

func (o *Orchestrator) complete(ctx context.Context, instructions, input string, sc *domain.SessionContext) (string, error) {
	resp, err := o.completer.Complete(ctx, completion.Request{
		Instructions:       instructions,
		Input:              input,
		PreviousResponseID: sc.PreviousResponseID,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	rememberResponse(sc, resp.ResponseID)
	return resp.Text, nil
}

func rememberResponse(sc *domain.SessionContext, id string) {
	if id != "" {
		sc.PreviousResponseID = id
	}
}

func formatMealPlan(plan domain.MealPlan) string {
	var b strings.Builder
	b.WriteString(mealPlanHeading)
	for _, day := range plan.Days() {
		fmt.Fprintf(&b, "\n%s: %s", day, strings.Join(plan[day], ", "))
	}
	return b.String()
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var waterAmountPattern = regexp.MustCompile(`(\d+)\s*(ml|milliliters|cup|cups|oz|ounces)`)

// isHydrationLog reports whether lower contains a logging trigger, also after
// removing the amount so that "log 500ml water" reads as "log water".
func isHydrationLog(lower string) bool {
	if containsAny(lower, hydrationTriggers) {
		return true
	}
	stripped := strings.Join(strings.Fields(waterAmountPattern.ReplaceAllString(lower, " ")), " ")
	return containsAny(stripped, hydrationTriggers)
}

// Millilitres per unit.
const (
	mlPerCup   = 240
	mlPerOunce = 30
)

// ParseWaterAmount extracts a water amount in millilitres from text. It
// returns 0 when no amount is stated or the amount does not fit in an int.
func ParseWaterAmount(text string) int {
	m := waterAmountPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	perUnit := 1
	switch m[2] {
	case "cup", "cups":
		perUnit = mlPerCup
	case "oz", "ounces":
		perUnit = mlPerOunce
	}
	if n > math.MaxInt/perUnit {
		return 0
	}
	return n * perUnit
}
