package tools

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Asghar-123/health-agent/internal/domain"
)

// HydrationTracker accumulates water intake on the session.
type HydrationTracker struct{}

// Name implements Tool.
func (HydrationTracker) Name() string { return NameHydrationTracker }

// Track adds amountML to the running total and records a progress entry.
// It returns the new total.
func (HydrationTracker) Track(amountML int, sc *domain.SessionContext) (int, error) {
	if amountML <= 0 {
		return sc.WaterIntakeML, fmt.Errorf("invalid water amount %d", amountML)
	}
	if sc.WaterIntakeML > math.MaxInt-amountML {
		return sc.WaterIntakeML, fmt.Errorf("water amount %d overflows total %d", amountML, sc.WaterIntakeML)
	}
	sc.WaterIntakeML += amountML
	sc.RecordProgress(domain.ProgressEntry{"type": "water", "amount_ml": amountML})
	return sc.WaterIntakeML, nil
}

// ProgressTracker appends arbitrary updates to the progress log.
type ProgressTracker struct{}

// Name implements Tool.
func (ProgressTracker) Name() string { return NameProgressTracker }

// Track appends update and returns the full log.
func (ProgressTracker) Track(sc *domain.SessionContext, update domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	if len(update) == 0 {
		return sc.ProgressLogs, errors.New("empty progress update")
	}
	sc.RecordProgress(update)
	return sc.ProgressLogs, nil
}

// Cadences accepted by the scheduler.
var Cadences = []string{domain.CadenceDaily, domain.CadenceWeekly, domain.CadenceMonthly}

// CheckinScheduler records when the user wants to be checked on.
type CheckinScheduler struct{}

// Name implements Tool.
func (CheckinScheduler) Name() string { return NameCheckinScheduler }

// Schedule stores the schedule on the session. An empty cadence means weekly.
func (CheckinScheduler) Schedule(sc *domain.SessionContext, level, cadence string) (*domain.CheckinSchedule, error) {
	if cadence == "" {
		cadence = domain.CadenceWeekly
	}
	if !slices.Contains(Cadences, cadence) {
		return nil, fmt.Errorf("unsupported cadence %q", cadence)
	}
	sc.Checkin = &domain.CheckinSchedule{Level: level, Cadence: cadence}
	return sc.Checkin, nil
}
