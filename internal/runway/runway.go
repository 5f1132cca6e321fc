// Package runway projects how long a cash balance lasts and how much of it is safe to spend.
package runway

import (
	"errors"
	"sort"
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
)

// ErrInvalidInput is returned when the input has no valuation time.
var ErrInvalidInput = errors.New("runway: invalid input")

// Obligation is a known outflow on a future day.
type Obligation struct {
	ID     string
	Name   string
	Amount model.Cents
	Due    time.Time
}

// Input is everything the projector needs. Amounts are integer cents.
type Input struct {
	Balance       model.Cents
	AsOf          time.Time
	DailyOutflows []model.Cents
	Obligations   []Obligation
	Incomes       []time.Time
}

// Params tunes the projection.
type Params struct {
	HorizonDays     int
	SafetyBuffer    model.Cents
	MinObservedDays int
}

// DefaultParams returns the defaults used when no configuration is present.
func DefaultParams() Params {
	return Params{
		HorizonDays:     30,
		SafetyBuffer:    5000,
		MinObservedDays: 7,
	}
}

// Project simulates the balance forward one day at a time. Day 0 is today.
func Project(in Input, p Params) (model.RunwayProjection, error) {
	if in.AsOf.IsZero() {
		return model.RunwayProjection{}, ErrInvalidInput
	}
	if p.HorizonDays <= 0 {
		p.HorizonDays = DefaultParams().HorizonDays
	}

	today := StartOfDay(in.AsOf)
	burn := MedianCents(in.DailyOutflows)

	proj := model.RunwayProjection{
		DailyBurnRate:  burn,
		WeeklyBurnRate: burn * 7,
		ObservedDays:   len(in.DailyOutflows),
		LowConfidence:  len(in.DailyOutflows) == 0 || len(in.DailyOutflows) < p.MinObservedDays,
	}

	// Obligations bucketed by day index; anything overdue lands on today.
	due := make(map[int]model.Cents)
	for _, ob := range in.Obligations {
		idx := max(DayIndex(today, ob.Due), 0)
		if idx > p.HorizonDays {
			continue
		}
		due[idx] += ob.Amount
		proj.UpcomingBillsTotal += ob.Amount
		proj.UpcomingBillsCount++
	}

	balance := in.Balance
	proj.Trajectory = make([]model.Cents, 0, p.HorizonDays+1)
	if in.Balance <= 0 {
		zero := 0
		proj.DaysUntilZero = &zero
		proj.ZeroDate = &today
	}
	for d := 0; d <= p.HorizonDays; d++ {
		balance -= burn
		balance -= due[d]
		proj.Trajectory = append(proj.Trajectory, balance)
		if proj.DaysUntilZero == nil && balance <= 0 {
			days := d
			zd := today.AddDate(0, 0, d)
			proj.DaysUntilZero = &days
			proj.ZeroDate = &zd
		}
	}

	incomeIdx := p.HorizonDays
	for _, at := range sortedTimes(in.Incomes) {
		if idx := DayIndex(today, at); idx >= 1 && idx <= p.HorizonDays {
			next := today.AddDate(0, 0, idx)
			proj.NextIncomeDate = &next
			incomeIdx = idx
			break
		}
	}

	if in.Balance <= 0 {
		return proj, nil
	}

	var beforeIncome model.Cents
	for idx, amt := range due {
		if idx <= incomeIdx {
			beforeIncome += amt
		}
	}
	pool := model.MaxCents(0, in.Balance-beforeIncome-p.SafetyBuffer)
	proj.SafeToSpendToday = pool
	if incomeIdx <= 7 {
		proj.SafeToSpendWeek = pool
	} else {
		proj.SafeToSpendWeek = pool * 7 / model.Cents(incomeIdx)
	}
	return proj, nil
}

// MedianCents returns the median, flooring the mean of the two middle values
// for even-length input. Empty input yields zero.
func MedianCents(xs []model.Cents) model.Cents {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]model.Cents(nil), xs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayIndex counts calendar days from the day of from to the day of to,
// in from's location. Negative when to is earlier.
func DayIndex(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func sortedTimes(ts []time.Time) []time.Time {
	out := append([]time.Time(nil), ts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
