package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
)

// DriverMemory selects the in-memory repository.
const DriverMemory = "memory"

// Memory is a thread-safe in-memory Repository.
type Memory struct {
	mu sync.RWMutex

	accounts     map[string]model.Account
	transactions map[string]model.Transaction
	debts        map[string]model.Debt
	scheduled    map[string]model.ScheduledItem
	goals        map[string]model.Goal
	decisions    map[string]model.Decision
	runways      []RunwaySnapshot
	imports      map[string]time.Time
	seq          int64
	now          func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		now:          buildOptions(opts).now,
		accounts:     make(map[string]model.Account),
		transactions: make(map[string]model.Transaction),
		debts:        make(map[string]model.Debt),
		scheduled:    make(map[string]model.ScheduledItem),
		goals:        make(map[string]model.Goal),
		decisions:    make(map[string]model.Decision),
		imports:      make(map[string]time.Time),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// ReadSnapshot implements Repository.
func (m *Memory) ReadSnapshot(_ context.Context, userID string, asOf time.Time, lookbackDays int) (model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := model.Snapshot{UserID: userID, AsOf: asOf}
	for _, a := range m.accounts {
		if a.UserID == userID {
			snap.Accounts = append(snap.Accounts, a)
			snap.Balance += a.Balance
		}
	}
	since := windowStart(asOf, lookbackDays)
	for _, t := range m.transactions {
		if t.UserID == userID && !t.PostedAt.Before(since) && !t.PostedAt.After(asOf) {
			snap.Transactions = append(snap.Transactions, t)
		}
	}
	for _, d := range m.debts {
		if d.UserID == userID {
			d.Projection = nil
			snap.Debts = append(snap.Debts, d)
		}
	}
	today := dayStart(asOf)
	for _, it := range m.scheduled {
		if it.UserID == userID && it.Active && !it.DueAt.Before(today) {
			snap.Scheduled = append(snap.Scheduled, it)
		}
	}

	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].ID < snap.Accounts[j].ID })
	sort.Slice(snap.Transactions, func(i, j int) bool {
		a, b := snap.Transactions[i], snap.Transactions[j]
		if !a.PostedAt.Equal(b.PostedAt) {
			return a.PostedAt.Before(b.PostedAt)
		}
		return a.ID < b.ID
	})
	sort.Slice(snap.Debts, func(i, j int) bool { return snap.Debts[i].ID < snap.Debts[j].ID })
	sort.Slice(snap.Scheduled, func(i, j int) bool {
		a, b := snap.Scheduled[i], snap.Scheduled[j]
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		return a.ID < b.ID
	})
	return snap, nil
}

// SaveDecision implements Repository.
func (m *Memory) SaveDecision(_ context.Context, rec model.DecisionRecord) (model.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := rec.Decision
	if _, dup := m.decisions[d.ID]; dup {
		return model.Decision{}, fmt.Errorf("store: decision %s already exists", d.ID)
	}
	m.seq++
	d.Seq = m.seq
	m.decisions[d.ID] = d
	m.runways = append(m.runways, RunwaySnapshot{DecisionID: d.ID, UserID: d.UserID, ComputedAt: d.ComputedAt, Projection: rec.Runway})
	for _, p := range rec.Debts {
		if debt, ok := m.debts[p.DebtID]; ok && debt.UserID == d.UserID {
			proj := p
			debt.Projection = &proj
			m.debts[p.DebtID] = debt
		}
	}
	return d, nil
}

func newer(a, b model.Decision) bool {
	if !a.ComputedAt.Equal(b.ComputedAt) {
		return a.ComputedAt.After(b.ComputedAt)
	}
	return a.Seq > b.Seq
}

func (m *Memory) latestLocked(userID string) (model.Decision, bool) {
	var best model.Decision
	found := false
	for _, d := range m.decisions {
		if d.UserID == userID && (!found || newer(d, best)) {
			best = d
			found = true
		}
	}
	return best, found
}

// LatestDecision implements Repository.
func (m *Memory) LatestDecision(_ context.Context, userID string) (model.Decision, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.latestLocked(userID)
	return d, ok, nil
}

// GetDecision implements Repository.
func (m *Memory) GetDecision(_ context.Context, id string) (model.Decision, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.decisions[id]
	return d, ok, nil
}

// AcknowledgeIfCurrent implements Repository.
func (m *Memory) AcknowledgeIfCurrent(_ context.Context, id, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest, ok := m.latestLocked(userID)
	if !ok || latest.ID != id || latest.AcknowledgedAt != nil || latest.Expired(at) {
		return false, nil
	}
	ackAt := at
	latest.AcknowledgedAt = &ackAt
	m.decisions[id] = latest
	return true, nil
}

// ListDecisions implements Repository.
func (m *Memory) ListDecisions(_ context.Context, userID string, limit int) ([]model.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Decision
	for _, d := range m.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LatestRunway implements Repository.
func (m *Memory) LatestRunway(_ context.Context, userID string) (RunwaySnapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.runways) - 1; i >= 0; i-- {
		if m.runways[i].UserID == userID {
			return m.runways[i], true, nil
		}
	}
	return RunwaySnapshot{}, false, nil
}

// UpsertAccount implements Repository. An account owned by another user is
// left untouched.
func (m *Memory) UpsertAccount(_ context.Context, a model.Account) error {
	if a.ID == "" || a.UserID == "" {
		return fmt.Errorf("store: account needs id and user: %w", ErrInvalidChange)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.accounts[a.ID]; ok && old.UserID != a.UserID {
		return nil
	}
	m.accounts[a.ID] = a
	return nil
}

// ApplyChanges implements Repository. The whole change set is validated
// before anything is written. Entities owned by another user are skipped,
// matching the SQL upserts.
func (m *Memory) ApplyChanges(_ context.Context, userID string, cs recompute.ChangeSet) error {
	if err := validateChanges(userID, cs); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range append(append([]model.Transaction(nil), cs.Transactions.Created...), cs.Transactions.Updated...) {
		if old, ok := m.transactions[t.ID]; ok && old.UserID != userID {
			continue
		}
		t.UserID = userID
		m.transactions[t.ID] = t
	}
	for _, id := range cs.Transactions.Deleted {
		if t, ok := m.transactions[id]; ok && t.UserID == userID {
			delete(m.transactions, id)
		}
	}
	for _, d := range cs.Debts {
		d.UserID = userID
		if old, ok := m.debts[d.ID]; ok {
			if old.UserID != userID {
				continue
			}
			d.Projection = old.Projection
		}
		m.debts[d.ID] = d
	}
	for _, it := range scheduledChanges(cs) {
		if old, ok := m.scheduled[it.ID]; ok && old.UserID != userID {
			continue
		}
		it.UserID = userID
		m.scheduled[it.ID] = it
	}
	for _, id := range cs.Imports {
		key := userID + "/" + id
		if _, seen := m.imports[key]; !seen {
			m.imports[key] = m.now()
		}
	}
	return nil
}

// ListDebts implements Repository.
func (m *Memory) ListDebts(_ context.Context, userID string) ([]model.Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Debt
	for _, d := range m.debts {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveGoal implements Repository.
func (m *Memory) SaveGoal(_ context.Context, g model.Goal) error {
	if g.ID == "" || g.UserID == "" {
		return fmt.Errorf("store: goal needs id and user: %w", ErrInvalidChange)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.goals[g.ID]; ok && old.UserID != g.UserID {
		return nil
	}
	m.goals[g.ID] = g
	return nil
}

// GetGoal implements Repository.
func (m *Memory) GetGoal(_ context.Context, userID, id string) (model.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.goals[id]
	if !ok || g.UserID != userID {
		return model.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	return g, nil
}

// ListGoals implements Repository.
func (m *Memory) ListGoals(_ context.Context, userID string) ([]model.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Goal
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) || (out[i].StartDate.Equal(out[j].StartDate) && out[i].ID < out[j].ID) })
	return out, nil
}

// validateChanges rejects entries that could never be stored.
func validateChanges(userID string, cs recompute.ChangeSet) error {
	if userID == "" {
		return fmt.Errorf("store: apply changes: empty user: %w", ErrInvalidChange)
	}
	for _, t := range cs.Transactions.Created {
		if t.ID == "" || t.PostedAt.IsZero() {
			return fmt.Errorf("store: transaction %q: id and posted_at are required: %w", t.ID, ErrInvalidChange)
		}
	}
	for _, t := range cs.Transactions.Updated {
		if t.ID == "" || t.PostedAt.IsZero() {
			return fmt.Errorf("store: transaction %q: id and posted_at are required: %w", t.ID, ErrInvalidChange)
		}
	}
	for _, d := range cs.Debts {
		if d.ID == "" {
			return fmt.Errorf("store: debt %q: id is required: %w", d.Name, ErrInvalidChange)
		}
	}
	for _, it := range scheduledChanges(cs) {
		if it.ID == "" {
			return fmt.Errorf("store: scheduled item %q: id is required: %w", it.Name, ErrInvalidChange)
		}
	}
	return nil
}

// scheduledChanges flattens bills and income, filling in a missing kind.
func scheduledChanges(cs recompute.ChangeSet) []model.ScheduledItem {
	out := make([]model.ScheduledItem, 0, len(cs.Bills)+len(cs.Income))
	for _, b := range cs.Bills {
		if b.Kind == "" {
			b.Kind = model.KindBill
		}
		out = append(out, b)
	}
	for _, in := range cs.Income {
		if in.Kind == "" {
			in.Kind = model.KindIncome
		}
		out = append(out, in)
	}
	return out
}
