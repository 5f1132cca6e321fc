// Package goal computes savings goal progress.
package goal

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
)

// OnTrackTolerance is the share of expected progress that still counts as on track.
const OnTrackTolerance = 0.9

const daysPerMonth = 30

// ErrInvalidContribution is returned for non-positive contributions.
var ErrInvalidContribution = errors.New("goal: contribution must be positive")

// Compute derives progress for g at now. It does not modify g.
func Compute(g model.Goal, now time.Time) model.GoalProgress {
	out := model.GoalProgress{ComputedAt: now, OnTrack: true}

	if g.Target <= 0 {
		out.ProgressPercent = 100
	} else {
		out.ProgressPercent = math.Min(float64(g.Current)/float64(g.Target), 1) * 100
	}
	if g.TargetDate == nil {
		return out
	}

	start, end := dayOf(g.StartDate), dayOf(*g.TargetDate)
	today := dayOf(now)
	total := daysBetween(start, end)
	elapsed := daysBetween(start, today)

	if total <= 0 {
		out.ExpectedPercent = 100
	} else {
		out.ExpectedPercent = math.Max(0, math.Min(float64(elapsed)/float64(total), 1)) * 100
	}
	out.OnTrack = out.ProgressPercent >= out.ExpectedPercent*OnTrackTolerance

	remaining := g.Remaining()
	switch {
	case remaining == 0:
		out.ProjectedCompletionDate = &today
	case g.Current > 0:
		rate := float64(g.Current) / float64(max(elapsed, 1))
		done := today.AddDate(0, 0, int(math.Ceil(float64(remaining)/rate)))
		out.ProjectedCompletionDate = &done
	}

	months := int(math.Ceil(float64(daysBetween(today, end)) / daysPerMonth))
	months = max(months, 1)
	out.RecommendedMonthlyContribution = (remaining + model.Cents(months) - 1) / model.Cents(months)
	return out
}

// Contribute adds amount to g, marks it completed once the target is reached,
// and refreshes its progress.
func Contribute(g model.Goal, amount model.Cents, now time.Time) (model.Goal, error) {
	if amount <= 0 {
		return g, fmt.Errorf("%w: %d", ErrInvalidContribution, amount)
	}
	g.Current += amount
	return Refresh(g, now), nil
}

// Refresh recomputes status and progress after any edit to g.
func Refresh(g model.Goal, now time.Time) model.Goal {
	switch {
	case g.Current >= g.Target:
		g.Status = model.GoalCompleted
	case g.Status == "" || g.Status == model.GoalCompleted:
		g.Status = model.GoalActive
	}
	g.Progress = Compute(g, now)
	return g
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
