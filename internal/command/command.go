// Package command turns a risk level and projections into one instruction.
//
// Every piece of text is produced from fixed templates over computed numbers
// and dates, so the same inputs always yield the same words.
package command

import (
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/runway"
)

// MaxWarnings caps the warnings attached to a decision.
const MaxWarnings = 2

// Params tunes generation.
type Params struct {
	// WarningDays is how far ahead a bill counts as imminent.
	WarningDays int
	// HighDangerScore marks a debt worth paying down ahead of saving.
	HighDangerScore int
	// DebtWarningScore is the minimum danger that earns a debt warning.
	DebtWarningScore int
}

// DefaultParams returns the built-in generation parameters.
func DefaultParams() Params {
	return Params{WarningDays: 10, HighDangerScore: 70, DebtWarningScore: 50}
}

// Input is what the generator reads. Debts must already be ranked.
type Input struct {
	Level  model.RiskLevel
	Runway model.RunwayProjection
	Debts  []model.DebtProjection
	Bills  []model.ScheduledItem
	AsOf   time.Time
}

// Result is the generated instruction.
type Result struct {
	Command    model.Command
	Warnings   []model.Warning
	NextAction model.NextAction
}

// Targets referenced by commands and warnings.
const (
	TargetRunway = "runway"
	TargetBills  = "bills"
)

// Generate picks the primary command, up to two warnings and a next action.
func Generate(in Input, p Params) Result {
	g := generator{in: in, p: p, today: runway.StartOfDay(in.AsOf)}
	var res Result
	switch {
	case in.Level >= model.RiskDanger:
		res.Command, res.NextAction = g.urgent()
	case in.Level == model.RiskWarning:
		res.Command, res.NextAction = g.warning()
	case in.Level == model.RiskCaution:
		res.Command, res.NextAction = g.save("Set aside %s now to cover %s.")
	default:
		res.Command, res.NextAction = g.safe()
	}
	res.Warnings = g.warnings(res.Command.Target)
	return res
}

type generator struct {
	in    Input
	p     Params
	today time.Time
}

func amount(c model.Cents) *model.Cents { return &c }

func day(t time.Time) string { return t.Format("Mon Jan 2") }

func debtRef(id string) string { return "debt:" + id }

func billRef(id string) string { return "bill:" + id }

func (g generator) urgent() (model.Command, model.NextAction) {
	safe := g.in.Runway.SafeToSpendToday
	for _, d := range g.in.Debts {
		if !d.NegativeAmortization || d.PaidOff() {
			continue
		}
		if gap := d.Shortfall(); gap <= safe {
			cmd := model.Command{
				Type:   model.CommandPay,
				Text:   fmt.Sprintf("Pay an extra %s toward %s this cycle. Its balance is growing every month.", gap.Dollars(), d.Name),
				Amount: amount(gap),
				Target: debtRef(d.DebtID),
			}
			next := model.NextAction{
				Text: fmt.Sprintf("Raise the monthly payment on %s to at least %s.", d.Name, (d.MonthlyPayment + gap).Dollars()),
				Ref:  debtRef(d.DebtID),
			}
			return cmd, next
		}
		break
	}

	cmd := model.Command{Type: model.CommandFreeze, Target: TargetRunway}
	next := model.NextAction{Text: "Pause subscriptions and any spending that can wait."}
	rw := g.in.Runway
	switch {
	case rw.DaysUntilZero != nil && *rw.DaysUntilZero == 0:
		cmd.Text = "Freeze all non-essential spending. Your cash is already exhausted."
		cmd.Date = rw.ZeroDate
	case rw.DaysUntilZero != nil:
		cmd.Text = fmt.Sprintf("Freeze all non-essential spending. Cash runs out %s, in %d days.", day(*rw.ZeroDate), *rw.DaysUntilZero)
		cmd.Date = rw.ZeroDate
	default:
		cmd.Text = "Freeze all non-essential spending until your debts stop growing."
	}
	if rw.DaysUntilZero != nil {
		if b, ok := g.largestBill(*rw.DaysUntilZero); ok {
			cmd.Text += fmt.Sprintf(" %s of %s is due %s.", b.Amount.Dollars(), b.Name, day(b.DueAt))
			next = model.NextAction{
				Text: fmt.Sprintf("Ask %s to move the %s payment due %s.", b.Name, b.Amount.Dollars(), day(b.DueAt)),
				Ref:  billRef(b.ID),
			}
		}
	}
	return cmd, next
}

func (g generator) warning() (model.Command, model.NextAction) {
	safe := g.in.Runway.SafeToSpendToday
	top, ok := g.topDebt()
	if ok && safe > 0 && g.maxDanger() >= g.p.HighDangerScore {
		var minPay model.Cents
		if top.MinimumPayment != nil {
			minPay = *top.MinimumPayment
		}
		amt := model.MinCents(safe, model.MaxCents(minPay, safe/2))
		cmd := model.Command{
			Type:   model.CommandPay,
			Text:   fmt.Sprintf("Pay %s toward %s, your highest-interest debt at %s%% APR.", amt.Dollars(), top.Name, top.APRPercent.StringFixed(2)),
			Amount: amount(amt),
			Target: debtRef(top.DebtID),
		}
		next := model.NextAction{
			Text: fmt.Sprintf("Schedule the %s payment to %s before the next statement.", amt.Dollars(), top.Name),
			Ref:  debtRef(top.DebtID),
		}
		return cmd, next
	}
	return g.save("Set aside %s for %s.")
}

func (g generator) save(format string) (model.Command, model.NextAction) {
	total, count := g.billsWithin(g.p.WarningDays)
	what := fmt.Sprintf("%d bills due in the next %d days", count, g.p.WarningDays)
	if count == 1 {
		what = fmt.Sprintf("1 bill due in the next %d days", g.p.WarningDays)
	}
	if count == 0 {
		total = g.in.Runway.WeeklyBurnRate
		what = "a week of spending"
	}
	cmd := model.Command{
		Type:   model.CommandSave,
		Text:   fmt.Sprintf(format, total.Dollars(), what),
		Amount: amount(total),
		Target: TargetBills,
	}
	next := model.NextAction{Text: fmt.Sprintf("Move %s into a separate bills account.", total.Dollars()), Ref: TargetBills}
	if b, ok := g.nextBill(); ok {
		next = model.NextAction{
			Text: fmt.Sprintf("Next up: %s, %s due %s.", b.Name, b.Amount.Dollars(), day(b.DueAt)),
			Ref:  billRef(b.ID),
		}
	}
	return cmd, next
}

func (g generator) safe() (model.Command, model.NextAction) {
	rw := g.in.Runway
	switch {
	case rw.LowConfidence:
		cmd := model.Command{
			Type: model.CommandWait,
			Text: "Hold steady. There is not enough recent activity to recommend spending yet.",
		}
		return cmd, model.NextAction{Text: "Import recent transactions so spending guidance can be calculated."}
	case rw.SafeToSpendToday <= 0:
		cmd := model.Command{
			Type: model.CommandWait,
			Text: "Hold steady. Nothing is free to spend until your next income arrives.",
		}
		return cmd, g.incomeAction()
	}
	cmd := model.Command{
		Type:   model.CommandSpend,
		Text:   fmt.Sprintf("You can safely spend up to %s today, %s this week.", rw.SafeToSpendToday.Dollars(), rw.SafeToSpendWeek.Dollars()),
		Amount: amount(rw.SafeToSpendToday),
	}
	return cmd, g.incomeAction()
}

func (g generator) incomeAction() model.NextAction {
	if at := g.in.Runway.NextIncomeDate; at != nil {
		return model.NextAction{Text: fmt.Sprintf("Next income expected %s.", day(*at))}
	}
	return model.NextAction{Text: "Check back after your next transaction."}
}

func (g generator) warnings(exclude string) []model.Warning {
	var cands []model.Warning
	rw := g.in.Runway
	if rw.DaysUntilZero != nil {
		text := fmt.Sprintf("Balance projected to reach zero %s.", day(*rw.ZeroDate))
		if *rw.DaysUntilZero == 0 {
			text = "Balance is at or below zero."
		}
		cands = append(cands, model.Warning{Kind: model.WarnShortfall, Ref: TargetRunway, Text: text, Severity: 1000 - *rw.DaysUntilZero})
	}
	if b, ok := g.largestBill(g.p.WarningDays); ok {
		idx := max(runway.DayIndex(g.today, b.DueAt), 0)
		cands = append(cands, model.Warning{
			Kind:     model.WarnBill,
			Ref:      billRef(b.ID),
			Text:     fmt.Sprintf("%s of %s is due %s.", b.Amount.Dollars(), b.Name, day(b.DueAt)),
			Severity: 500 + max(g.p.WarningDays-idx, 0),
		})
	}
	for _, d := range g.in.Debts {
		if d.PaidOff() {
			continue
		}
		switch {
		case d.NegativeAmortization:
			cands = append(cands, model.Warning{
				Kind:     model.WarnDebt,
				Ref:      debtRef(d.DebtID),
				Text:     fmt.Sprintf("%s is growing: %s payment does not cover %s monthly interest.", d.Name, d.MonthlyPayment.Dollars(), d.FirstMonthInterest.Dollars()),
				Severity: 900,
			})
		case d.DangerScore >= g.p.DebtWarningScore:
			cands = append(cands, model.Warning{
				Kind:     model.WarnDebt,
				Ref:      debtRef(d.DebtID),
				Text:     fmt.Sprintf("%s scores %d/100 on danger at %s%% APR.", d.Name, d.DangerScore, d.APRPercent.StringFixed(2)),
				Severity: 400 + d.DangerScore,
			})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Severity != cands[j].Severity {
			return cands[i].Severity > cands[j].Severity
		}
		return cands[i].Ref < cands[j].Ref
	})

	seen := map[string]bool{exclude: exclude != ""}
	out := make([]model.Warning, 0, MaxWarnings)
	for _, w := range cands {
		if seen[w.Ref] {
			continue
		}
		seen[w.Ref] = true
		out = append(out, w)
		if len(out) == MaxWarnings {
			break
		}
	}
	return out
}

// largestBill returns the biggest bill due within the next days, earliest
// first on ties.
func (g generator) largestBill(days int) (model.ScheduledItem, bool) {
	var best model.ScheduledItem
	found := false
	for _, b := range g.in.Bills {
		if runway.DayIndex(g.today, b.DueAt) > days {
			continue
		}
		if !found || b.Amount > best.Amount || (b.Amount == best.Amount && b.DueAt.Before(best.DueAt)) {
			best = b
			found = true
		}
	}
	return best, found
}

func (g generator) nextBill() (model.ScheduledItem, bool) {
	var best model.ScheduledItem
	found := false
	for _, b := range g.in.Bills {
		if runway.DayIndex(g.today, b.DueAt) < 0 {
			continue
		}
		if !found || b.DueAt.Before(best.DueAt) || (b.DueAt.Equal(best.DueAt) && b.ID < best.ID) {
			best = b
			found = true
		}
	}
	return best, found
}

func (g generator) billsWithin(days int) (model.Cents, int) {
	var total model.Cents
	count := 0
	for _, b := range g.in.Bills {
		if runway.DayIndex(g.today, b.DueAt) <= days {
			total += b.Amount
			count++
		}
	}
	return total, count
}

func (g generator) topDebt() (model.DebtProjection, bool) {
	for _, d := range g.in.Debts {
		if !d.PaidOff() {
			return d, true
		}
	}
	return model.DebtProjection{}, false
}

func (g generator) maxDanger() int {
	m := 0
	for _, d := range g.in.Debts {
		if !d.PaidOff() && d.DangerScore > m {
			m = d.DangerScore
		}
	}
	return m
}
