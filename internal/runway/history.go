package runway

import (
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
)

// DailyOutflows buckets transactions into calendar days in [since, until) and
// returns each day's net outflow, oldest first, clamped at zero. Days with no
// activity count as zero, but the series starts at the first active day so a
// short history is not padded out to the full window.
func DailyOutflows(txns []model.Transaction, since, until time.Time) []model.Cents {
	loc := until.Location()
	start := StartOfDay(since.In(loc))
	end := StartOfDay(until)

	net := make(map[int]model.Cents)
	first := -1
	for _, t := range txns {
		posted := t.PostedAt.In(loc)
		if posted.Before(start) || !posted.Before(end) {
			continue
		}
		idx := DayIndex(start, posted)
		net[idx] -= t.Amount
		if first < 0 || idx < first {
			first = idx
		}
	}
	if first < 0 {
		return nil
	}

	span := DayIndex(start, end)
	out := make([]model.Cents, 0, span-first)
	for d := first; d < span; d++ {
		out = append(out, model.MaxCents(0, net[d]))
	}
	return out
}

// InputFromSnapshot derives projector input from a snapshot: outflows over the
// lookback window ending yesterday, active bills as obligations, and active
// income dates.
func InputFromSnapshot(s model.Snapshot, lookbackDays int) Input {
	today := StartOfDay(s.AsOf)
	in := Input{
		Balance:       s.Balance,
		AsOf:          s.AsOf,
		DailyOutflows: DailyOutflows(s.Transactions, today.AddDate(0, 0, -lookbackDays), today),
	}
	for _, b := range s.Bills() {
		in.Obligations = append(in.Obligations, Obligation{ID: b.ID, Name: b.Name, Amount: b.Amount, Due: b.DueAt})
	}
	for _, inc := range s.Incomes() {
		in.Incomes = append(in.Incomes, inc.DueAt)
	}
	return in
}
