package domain

import (
	"maps"
	"slices"
)

// MealPlan maps a day label such as "day_1" to its meal lines.
type MealPlan map[string][]string

// Days returns the day labels in sorted order.
func (p MealPlan) Days() []string {
	return slices.Sorted(maps.Keys(p))
}

// WorkoutPlan is an ordered list of per-day workout entries.
type WorkoutPlan []string

// ProgressEntry is an arbitrary key/value record of a tracked update.
type ProgressEntry map[string]any

func (e ProgressEntry) clone() ProgressEntry {
	if e == nil {
		return nil
	}
	return maps.Clone(e)
}

// Check-in cadences.
const (
	CadenceDaily   = "daily"
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
)

// CheckinSchedule records when the user wants to be checked on.
type CheckinSchedule struct {
	Level   string `json:"level"`
	Cadence string `json:"cadence"`
}
