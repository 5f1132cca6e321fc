// Package debt projects payoff timelines and danger scores for debts.
package debt

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finpilot/internal/model"
)

// Params tunes payoff projection and danger scoring.
type Params struct {
	// MaxMonths bounds the month-by-month simulation.
	MaxMonths int

	APRCeilingPercent      float64
	RatioCeilingMonths     float64
	ProximityCeilingMonths float64

	WeightAPR       float64
	WeightRatio     float64
	WeightProximity float64
}

// DefaultParams returns the built-in scoring parameters.
func DefaultParams() Params {
	return Params{
		MaxMonths:              600,
		APRCeilingPercent:      36,
		RatioCeilingMonths:     60,
		ProximityCeilingMonths: 120,
		WeightAPR:              0.4,
		WeightRatio:            0.3,
		WeightProximity:        0.3,
	}
}

// MaxDanger is the top of the danger scale.
const MaxDanger = 100

var monthsPerYearPct = decimal.NewFromInt(1200)

// Project computes the payoff outlook of one debt as of asOf.
func Project(d model.Debt, p Params, asOf time.Time) (model.DebtProjection, error) {
	if err := d.Validate(); err != nil {
		return model.DebtProjection{}, err
	}
	if p.MaxMonths <= 0 {
		p.MaxMonths = DefaultParams().MaxMonths
	}

	start := dayOf(asOf)
	proj := model.DebtProjection{
		DebtID:         d.ID,
		Name:           d.Name,
		CurrentBalance: d.Balance,
		APRPercent:     d.APRPercent,
		MinimumPayment: d.MinimumPayment,
		MonthlyPayment: d.MonthlyPayment(),
	}

	if d.Balance <= 0 {
		proj.PayoffDate = &start
		return proj, nil
	}

	rate := d.APRPercent.Div(monthsPerYearPct)
	payment := proj.MonthlyPayment
	proj.FirstMonthInterest = interest(d.Balance, rate)

	if payment <= proj.FirstMonthInterest {
		proj.NegativeAmortization = true
		proj.DangerScore = MaxDanger
		return proj, nil
	}

	bal := d.Balance
	months := 0
	for m := 1; m <= p.MaxMonths; m++ {
		i := interest(bal, rate)
		proj.TotalProjectedInterest += i
		bal += i
		if bal <= payment {
			months = m
			bal = 0
			break
		}
		bal -= payment
	}

	if months == 0 {
		extra, extraInterest := closedForm(bal, payment, rate.InexactFloat64())
		months = p.MaxMonths + extra
		proj.TotalProjectedInterest += extraInterest
		proj.Extrapolated = true
	}

	payoff := start.AddDate(0, months, 0)
	proj.PayoffDate = &payoff
	proj.MonthsToPayoff = months
	proj.DangerScore = dangerScore(d, proj, p)
	return proj, nil
}

// interest is one month of interest on bal, rounded to whole cents.
func interest(bal model.Cents, monthlyRate decimal.Decimal) model.Cents {
	if monthlyRate.IsZero() || bal <= 0 {
		return 0
	}
	return model.CentsFromDecimal(bal.Decimal().Mul(monthlyRate))
}

// closedForm returns the months needed to retire bal at a fixed payment, and
// the interest paid over them, using the annuity formula.
func closedForm(bal, payment model.Cents, r float64) (int, model.Cents) {
	b, pay := float64(bal), float64(payment)
	var n float64
	if r == 0 {
		n = b / pay
	} else if x := 1 - r*b/pay; x > 0 {
		n = -math.Log(x) / math.Log(1+r)
	} else {
		n = b / pay
	}
	months := int(math.Ceil(n))
	if months < 1 {
		months = 1
	}
	paid := model.Cents(math.Round(n * pay))
	return months, model.MaxCents(0, paid-bal)
}

func dangerScore(d model.Debt, proj model.DebtProjection, p Params) int {
	apr := clamp01(d.APRPercent.InexactFloat64() / p.APRCeilingPercent)
	ratio := 1.0
	if proj.MonthlyPayment > 0 {
		ratio = clamp01(float64(d.Balance) / float64(proj.MonthlyPayment) / p.RatioCeilingMonths)
	}
	prox := clamp01(float64(proj.MonthsToPayoff) / p.ProximityCeilingMonths)

	score := math.Round(100 * (p.WeightAPR*apr + p.WeightRatio*ratio + p.WeightProximity*prox))
	switch {
	case score < 0:
		return 0
	case score > MaxDanger:
		return MaxDanger
	}
	return int(score)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case math.IsInf(v, 1) || v > 1:
		return 1
	}
	return v
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Describe renders a one-line payoff summary, e.g. for logs.
func Describe(p model.DebtProjection) string {
	switch {
	case p.PaidOff():
		return fmt.Sprintf("%s: paid off", p.Name)
	case p.NegativeAmortization:
		return fmt.Sprintf("%s: payment %s does not cover %s interest", p.Name, p.MonthlyPayment, p.FirstMonthInterest)
	default:
		return fmt.Sprintf("%s: paid off %s after %d months, %s interest",
			p.Name, p.PayoffDate.Format("Jan 2006"), p.MonthsToPayoff, p.TotalProjectedInterest)
	}
}
