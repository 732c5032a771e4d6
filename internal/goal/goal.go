// Package goal extracts structured fitness goals such as
// "lose 5kg in 2 months" from free text.
package goal

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Allowed actions and units, lowercase.
var (
	AllowedActions = []string{"lose", "gain", "increase", "decrease", "run", "walk"}
	AllowedUnits   = []string{"kg", "lbs", "km", "miles", "minutes", "min", "percent", "%", "calories", "steps"}
)

// ParsedGoal is a validated goal. Values are only produced through New, so
// every field satisfies its constraint.
type ParsedGoal struct {
	Action        string  `json:"action" yaml:"action"`
	Quantity      float64 `json:"quantity" yaml:"quantity"`
	Unit          string  `json:"unit" yaml:"unit"`
	DurationValue int     `json:"duration_value" yaml:"duration_value"`
	// DurationUnit is free text and deliberately not checked against a list.
	DurationUnit string `json:"duration_unit" yaml:"duration_unit"`
}

// ValidationError reports a field value outside its allowed set.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("unsupported %s %q: use one of %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// New validates the fields and returns a normalized goal.
func New(action string, quantity float64, unit string, durationValue int, durationUnit string) (*ParsedGoal, error) {
	action = strings.ToLower(action)
	if !slices.Contains(AllowedActions, action) {
		return nil, &ValidationError{Field: "action", Value: action, Allowed: AllowedActions}
	}
	unit = strings.ToLower(unit)
	if !slices.Contains(AllowedUnits, unit) {
		return nil, &ValidationError{Field: "unit", Value: unit, Allowed: AllowedUnits}
	}
	if quantity < 0 {
		return nil, &ValidationError{Field: "quantity", Value: strconv.FormatFloat(quantity, 'f', -1, 64)}
	}
	if durationValue <= 0 {
		return nil, &ValidationError{Field: "duration_value", Value: strconv.Itoa(durationValue)}
	}
	if durationUnit == "" {
		return nil, &ValidationError{Field: "duration_unit", Value: durationUnit}
	}
	return &ParsedGoal{
		Action:        action,
		Quantity:      quantity,
		Unit:          unit,
		DurationValue: durationValue,
		DurationUnit:  durationUnit,
	}, nil
}

// String renders the goal the way a user would phrase it.
func (g *ParsedGoal) String() string {
	return fmt.Sprintf("%s %s %s in %d %s",
		g.Action, strconv.FormatFloat(g.Quantity, 'f', -1, 64), g.Unit, g.DurationValue, g.DurationUnit)
}

var goalPattern = regexp.MustCompile(
	`(?i)(lose|gain|increase|decrease|run|walk)\s+(\d+(?:\.\d+)?)\s*([a-zA-Z%]+)\s+(in|within)\s+(\d+)\s*([a-zA-Z]+)`,
)

// Parse extracts the first goal statement in text. It returns (nil, nil) when
// the text holds no goal, and a *ValidationError when the grammar matches but
// the unit is not supported. Further goal statements in the same text are
// ignored.
func Parse(text string) (*ParsedGoal, error) {
	m := goalPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}

	quantity, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, &ValidationError{Field: "quantity", Value: m[2]}
	}
	durationValue, err := strconv.Atoi(m[5])
	if err != nil {
		return nil, &ValidationError{Field: "duration_value", Value: m[5]}
	}

	return New(m[1], quantity, m[3], durationValue, m[6])
}
