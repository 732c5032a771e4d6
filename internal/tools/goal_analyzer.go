package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/goal"
)

// RegexGoalAnalyzer parses goals with the fixed goal grammar.
type RegexGoalAnalyzer struct{}

// Name implements Tool.
func (RegexGoalAnalyzer) Name() string { return NameGoalAnalyzer }

// Analyze returns (nil, nil) when text holds no goal.
func (RegexGoalAnalyzer) Analyze(_ context.Context, text string) (*goal.ParsedGoal, error) {
	return goal.Parse(text)
}

const goalAnalyzerInstructions = `You are a highly intelligent goal analyzer. Parse the user's raw text and extract their health and fitness goal into a JSON object with the fields:
- "action": one of lose, gain, increase, decrease, run, walk
- "quantity": the target amount as a number
- "unit": one of kg, lbs, km, miles, minutes, min, percent, %, calories, steps
- "duration_value": the duration as a whole number
- "duration_unit": the unit for the duration (e.g. "months", "weeks")
Use null for anything the user did not state. Respond ONLY with the JSON object.`

// ErrGoalNotParsed reports a model answer that could not be read as a goal.
var ErrGoalNotParsed = errors.New("goal not parsed")

// ModelGoalAnalyzer asks the completion service to extract the goal and
// validates the answer with the same rules as the grammar parser.
type ModelGoalAnalyzer struct {
	completer completion.Completer
}

// NewModelGoalAnalyzer creates an analyzer backed by c.
func NewModelGoalAnalyzer(c completion.Completer) *ModelGoalAnalyzer {
	return &ModelGoalAnalyzer{completer: c}
}

// Name implements Tool.
func (*ModelGoalAnalyzer) Name() string { return NameGoalAnalyzer }

type modelGoal struct {
	Action        *string  `json:"action"`
	Quantity      *float64 `json:"quantity"`
	Unit          *string  `json:"unit"`
	DurationValue *int     `json:"duration_value"`
	DurationUnit  *string  `json:"duration_unit"`
}

// Analyze returns (nil, nil) when the model reports no complete goal.
func (a *ModelGoalAnalyzer) Analyze(ctx context.Context, text string) (*goal.ParsedGoal, error) {
	out, err := complete(ctx, a.completer, goalAnalyzerInstructions, text)
	if err != nil {
		return nil, fmt.Errorf("analyze goal: %w", err)
	}

	var g modelGoal
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoalNotParsed, err)
	}
	if g.Action == nil || g.Quantity == nil || g.Unit == nil || g.DurationValue == nil || g.DurationUnit == nil {
		return nil, nil
	}
	return goal.New(*g.Action, *g.Quantity, *g.Unit, *g.DurationValue, *g.DurationUnit)
}

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
