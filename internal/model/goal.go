package model

import "time"

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

// Goal statuses.
const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

// Goal is a savings target.
type Goal struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	Name       string       `json:"name"`
	Target     Cents        `json:"target"`
	Current    Cents        `json:"current"`
	StartDate  time.Time    `json:"start_date"`
	TargetDate *time.Time   `json:"target_date,omitempty"`
	Status     GoalStatus   `json:"status"`
	Progress   GoalProgress `json:"progress"`
}

// Remaining is the amount still to save, never negative.
func (g Goal) Remaining() Cents {
	return MaxCents(0, g.Target-g.Current)
}

// GoalProgress is the derived state of a goal, overwritten on every change.
type GoalProgress struct {
	ProgressPercent                float64    `json:"progress_percent"`
	ExpectedPercent                float64    `json:"expected_percent"`
	OnTrack                        bool       `json:"on_track"`
	ProjectedCompletionDate        *time.Time `json:"projected_completion_date"`
	RecommendedMonthlyContribution Cents      `json:"recommended_monthly_contribution"`
	ComputedAt                     time.Time  `json:"computed_at"`
}
