package debt

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
)

// Strategy orders debts for extra payments.
type Strategy string

// Payoff strategies.
const (
	// Avalanche pays the highest APR first.
	Avalanche Strategy = "avalanche"
	// Snowball pays the smallest balance first.
	Snowball Strategy = "snowball"
)

// ParseStrategy maps a flag value to a strategy. Empty means avalanche.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Avalanche):
		return Avalanche, true
	case string(Snowball):
		return Snowball, true
	}
	return "", false
}

// ProjectAll projects every debt in parallel. Results keep the input order;
// debts that fail validation are returned as rejections instead.
func ProjectAll(debts []model.Debt, p Params, asOf time.Time) ([]model.DebtProjection, []model.Rejection) {
	if len(debts) == 0 {
		return nil, nil
	}

	type slot struct {
		proj model.DebtProjection
		err  error
	}
	slots := make([]slot, len(debts))

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(debts) {
		numWorkers = len(debts)
	}
	work := make(chan int, len(debts))
	for i := range debts {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				proj, err := Project(debts[idx], p, asOf)
				slots[idx] = slot{proj: proj, err: err}
			}
		}()
	}
	wg.Wait()

	projs := make([]model.DebtProjection, 0, len(debts))
	var rejected []model.Rejection
	for i, s := range slots {
		if s.err != nil {
			rejected = append(rejected, model.Rejection{Entity: "debt", ID: debts[i].ID, Reason: s.err.Error()})
			continue
		}
		projs = append(projs, s.proj)
	}
	return projs, rejected
}

// Rank returns a sorted copy of projections. Paid-off debts always sort last.
func Rank(projs []model.DebtProjection, s Strategy) []model.DebtProjection {
	out := append([]model.DebtProjection(nil), projs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PaidOff() != b.PaidOff() {
			return !a.PaidOff()
		}
		if s == Snowball {
			if a.CurrentBalance != b.CurrentBalance {
				return a.CurrentBalance < b.CurrentBalance
			}
			if c := a.APRPercent.Cmp(b.APRPercent); c != 0 {
				return c > 0
			}
			return a.DebtID < b.DebtID
		}
		if c := a.APRPercent.Cmp(b.APRPercent); c != 0 {
			return c > 0
		}
		if a.CurrentBalance != b.CurrentBalance {
			return a.CurrentBalance < b.CurrentBalance
		}
		return a.DebtID < b.DebtID
	})
	return out
}

// MostDangerous returns the unpaid projection with the highest danger score,
// ties broken by ranking order. The bool is false when nothing is owed.
func MostDangerous(ranked []model.DebtProjection) (model.DebtProjection, bool) {
	var best model.DebtProjection
	found := false
	for _, p := range ranked {
		if p.PaidOff() {
			continue
		}
		if !found || p.DangerScore > best.DangerScore {
			best = p
			found = true
		}
	}
	return best, found
}

// Totals sums balances and monthly payments of unpaid debts.
func Totals(projs []model.DebtProjection) (balance, monthly model.Cents) {
	for _, p := range projs {
		if p.PaidOff() {
			continue
		}
		balance += p.CurrentBalance
		monthly += p.MonthlyPayment
	}
	return balance, monthly
}
