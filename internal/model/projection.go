package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunwayProjection is the cash runway computed for one decision.
type RunwayProjection struct {
	DailyBurnRate      Cents      `json:"daily_burn_rate"`
	WeeklyBurnRate     Cents      `json:"weekly_burn_rate"`
	DaysUntilZero      *int       `json:"days_until_zero"`
	ZeroDate           *time.Time `json:"zero_date"`
	SafeToSpendToday   Cents      `json:"safe_to_spend_today"`
	SafeToSpendWeek    Cents      `json:"safe_to_spend_week"`
	UpcomingBillsTotal Cents      `json:"upcoming_bills_total"`
	UpcomingBillsCount int        `json:"upcoming_bills_count"`
	NextIncomeDate     *time.Time `json:"next_income_date,omitempty"`
	ObservedDays       int        `json:"observed_days"`
	LowConfidence      bool       `json:"low_confidence"`

	// Projected end-of-day balance for each simulated day, starting today.
	Trajectory []Cents `json:"trajectory,omitempty"`
}

// DebtProjection is the payoff outlook for one debt under current terms.
type DebtProjection struct {
	DebtID                 string          `json:"debt_id"`
	Name                   string          `json:"name"`
	CurrentBalance         Cents           `json:"current_balance"`
	APRPercent             decimal.Decimal `json:"apr_percent"`
	MinimumPayment         *Cents          `json:"minimum_payment,omitempty"`
	MonthlyPayment         Cents           `json:"monthly_payment"`
	FirstMonthInterest     Cents           `json:"first_month_interest"`
	PayoffDate             *time.Time      `json:"payoff_date"`
	MonthsToPayoff         int             `json:"months_to_payoff"`
	TotalProjectedInterest Cents           `json:"total_projected_interest"`
	DangerScore            int             `json:"danger_score"`
	NegativeAmortization   bool            `json:"negative_amortization"`
	Extrapolated           bool            `json:"extrapolated,omitempty"`
}

// PaidOff reports whether nothing is owed.
func (p DebtProjection) PaidOff() bool { return p.CurrentBalance <= 0 }

// Shortfall is the extra monthly amount needed before the balance stops growing.
func (p DebtProjection) Shortfall() Cents {
	if !p.NegativeAmortization {
		return 0
	}
	return p.FirstMonthInterest - p.MonthlyPayment + 1
}
