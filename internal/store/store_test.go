package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
)

var asOf = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func cents(v int64) *model.Cents {
	c := model.Cents(v)
	return &c
}

// forEachRepo runs fn against a fresh sqlite database and a memory store.
func forEachRepo(t *testing.T, fn func(t *testing.T, r Repository)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		db, err := OpenDB(DriverSQLite, filepath.Join(t.TempDir(), "finpilot.db"))
		if err != nil {
			t.Fatalf("OpenDB: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		fn(t, db)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
}

func seed(t *testing.T, r Repository) {
	t.Helper()
	ctx := context.Background()
	if err := r.UpsertAccount(ctx, model.Account{ID: "chk", UserID: "u1", Name: "Checking", Balance: 40000}); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
	if err := r.UpsertAccount(ctx, model.Account{ID: "sav", UserID: "u1", Name: "Savings", Balance: 10000}); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
	if err := r.UpsertAccount(ctx, model.Account{ID: "other", UserID: "u2", Balance: 999}); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
	cs := recompute.ChangeSet{
		Transactions: recompute.TransactionChanges{Created: []model.Transaction{
			{ID: "t-old", PostedAt: asOf.AddDate(0, 0, -90), Amount: -100},
			{ID: "t1", PostedAt: asOf.AddDate(0, 0, -2), Amount: -1500, Description: "groceries"},
			{ID: "t2", PostedAt: asOf.AddDate(0, 0, -1), Amount: -800},
			{ID: "t-future", PostedAt: asOf.Add(time.Hour), Amount: -5},
		}},
		Debts: []model.Debt{
			{ID: "card", Name: "Card", Balance: 100000, APRPercent: decimal.NewFromInt(12), MinimumPayment: cents(10000)},
		},
		Bills: []model.ScheduledItem{
			{ID: "rent", Name: "Rent", Amount: 30000, DueAt: asOf.AddDate(0, 0, 5), Active: true},
			{ID: "past", Name: "Old", Amount: 100, DueAt: asOf.AddDate(0, 0, -3), Active: true},
			{ID: "off", Name: "Paused", Amount: 100, DueAt: asOf.AddDate(0, 0, 2)},
		},
		Income:  []model.ScheduledItem{{ID: "pay", Name: "Salary", Amount: 200000, DueAt: asOf.AddDate(0, 0, 14), Active: true}},
		Imports: []string{"batch-1"},
	}
	if err := r.ApplyChanges(ctx, "u1", cs); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
}

func TestReadSnapshot(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		seed(t, r)
		snap, err := r.ReadSnapshot(context.Background(), "u1", asOf, 60)
		if err != nil {
			t.Fatalf("ReadSnapshot: %v", err)
		}
		if snap.Balance != 50000 {
			t.Fatalf("Balance = %d, want 50000", snap.Balance)
		}
		if len(snap.Accounts) != 2 || snap.Accounts[0].ID != "chk" {
			t.Fatalf("Accounts = %+v, want chk and sav", snap.Accounts)
		}
		if len(snap.Transactions) != 2 || snap.Transactions[0].ID != "t1" || snap.Transactions[1].ID != "t2" {
			t.Fatalf("Transactions = %+v, want [t1 t2]", snap.Transactions)
		}
		if snap.Transactions[0].Description != "groceries" {
			t.Fatalf("Description = %q, want groceries", snap.Transactions[0].Description)
		}
		if len(snap.Debts) != 1 || !snap.Debts[0].APRPercent.Equal(decimal.NewFromInt(12)) {
			t.Fatalf("Debts = %+v, want card at 12%%", snap.Debts)
		}
		if snap.Debts[0].MinimumPayment == nil || *snap.Debts[0].MinimumPayment != 10000 {
			t.Fatalf("MinimumPayment = %v, want 10000", snap.Debts[0].MinimumPayment)
		}
		if len(snap.Scheduled) != 2 || snap.Scheduled[0].ID != "rent" || snap.Scheduled[1].ID != "pay" {
			t.Fatalf("Scheduled = %+v, want [rent pay]", snap.Scheduled)
		}
		if snap.Scheduled[1].Kind != model.KindIncome {
			t.Fatalf("pay kind = %q, want income", snap.Scheduled[1].Kind)
		}
		if !snap.Scheduled[0].DueAt.Equal(asOf.AddDate(0, 0, 5)) {
			t.Fatalf("rent due = %v", snap.Scheduled[0].DueAt)
		}
	})
}

func TestApplyChangesDelete(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		seed(t, r)
		ctx := context.Background()
		cs := recompute.ChangeSet{Transactions: recompute.TransactionChanges{Deleted: []string{"t1"}}}
		if err := r.ApplyChanges(ctx, "u1", cs); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
		snap, err := r.ReadSnapshot(ctx, "u1", asOf, 60)
		if err != nil {
			t.Fatalf("ReadSnapshot: %v", err)
		}
		if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "t2" {
			t.Fatalf("Transactions = %+v, want [t2]", snap.Transactions)
		}
	})
}

func TestApplyChangesRejectsMissingID(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		cs := recompute.ChangeSet{Debts: []model.Debt{{Name: "no id"}}}
		if err := r.ApplyChanges(context.Background(), "u1", cs); !errors.Is(err, ErrInvalidChange) {
			t.Fatalf("ApplyChanges err = %v, want ErrInvalidChange", err)
		}
	})
}

func decisionAt(id string, at time.Time) model.DecisionRecord {
	days := 5
	return model.DecisionRecord{
		Decision: model.Decision{
			ID:         id,
			UserID:     "u1",
			RiskLevel:  model.RiskDanger,
			Command:    model.Command{Type: model.CommandFreeze, Text: "Stop spending", Amount: cents(30000), Target: "runway"},
			Warnings:   []model.Warning{{Kind: model.WarnBill, Ref: "bill:rent", Text: "Rent due", Severity: 505}},
			NextAction: model.NextAction{Text: "Review bills", Ref: "bills"},
			Basis:      model.Trace{Version: model.TraceVersion, InputHash: "abc", Signals: []model.Signal{{Name: "days_until_zero", Value: 5, Weight: 1}}},
			ComputedAt: at,
			ExpiresAt:  at.Add(24 * time.Hour),
			IsLocked:   true,
		},
		Runway: model.RunwayProjection{
			DailyBurnRate:      1500,
			WeeklyBurnRate:     10500,
			DaysUntilZero:      &days,
			SafeToSpendToday:   0,
			UpcomingBillsTotal: 30000,
			UpcomingBillsCount: 1,
			ObservedDays:       2,
			LowConfidence:      true,
		},
	}
}

func TestSaveAndLatestDecision(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		seed(t, r)
		ctx := context.Background()

		first, err := r.SaveDecision(ctx, decisionAt("d1", asOf))
		if err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
		// Same timestamp: the later insert must win.
		second, err := r.SaveDecision(ctx, decisionAt("d2", asOf))
		if err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
		if second.Seq <= first.Seq {
			t.Fatalf("Seq = %d then %d, want increasing", first.Seq, second.Seq)
		}

		latest, ok, err := r.LatestDecision(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("LatestDecision = %v, %v", ok, err)
		}
		if latest.ID != "d2" {
			t.Fatalf("latest = %s, want d2", latest.ID)
		}
		if latest.RiskLevel != model.RiskDanger || latest.Command.Type != model.CommandFreeze {
			t.Fatalf("latest = %+v", latest)
		}
		if latest.Command.Amount == nil || *latest.Command.Amount != 30000 {
			t.Fatalf("command amount = %v, want 30000", latest.Command.Amount)
		}
		if len(latest.Warnings) != 1 || latest.Warnings[0].Ref != "bill:rent" {
			t.Fatalf("warnings = %+v", latest.Warnings)
		}
		if latest.Basis.InputHash != "abc" || len(latest.Basis.Signals) != 1 {
			t.Fatalf("basis = %+v", latest.Basis)
		}
		if !latest.ExpiresAt.Equal(asOf.Add(24 * time.Hour)) {
			t.Fatalf("ExpiresAt = %v", latest.ExpiresAt)
		}

		if _, ok, _ := r.LatestDecision(ctx, "u2"); ok {
			t.Fatal("u2 should have no decision")
		}

		list, err := r.ListDecisions(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("ListDecisions: %v", err)
		}
		if len(list) != 2 || list[0].ID != "d2" || list[1].ID != "d1" {
			t.Fatalf("ListDecisions = %d entries, want [d2 d1]", len(list))
		}
		list, _ = r.ListDecisions(ctx, "u1", 1)
		if len(list) != 1 {
			t.Fatalf("ListDecisions(limit 1) = %d entries", len(list))
		}

		rs, ok, err := r.LatestRunway(ctx, "u1")
		if err != nil || !ok {
			t.Fatalf("LatestRunway = %v, %v", ok, err)
		}
		if rs.DecisionID != "d2" || rs.Projection.DaysUntilZero == nil || *rs.Projection.DaysUntilZero != 5 {
			t.Fatalf("runway = %+v", rs)
		}
		if !rs.Projection.LowConfidence || rs.Projection.UpcomingBillsTotal != 30000 {
			t.Fatalf("runway projection = %+v", rs.Projection)
		}
	})
}

func TestAcknowledgeIfCurrent(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		seed(t, r)
		ctx := context.Background()
		if _, err := r.SaveDecision(ctx, decisionAt("d1", asOf)); err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
		if _, err := r.SaveDecision(ctx, decisionAt("d2", asOf.Add(time.Minute))); err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
		at := asOf.Add(time.Hour)

		ok, err := r.AcknowledgeIfCurrent(ctx, "d1", "u1", at)
		if err != nil || ok {
			t.Fatalf("ack superseded = %v, %v; want false", ok, err)
		}
		ok, err = r.AcknowledgeIfCurrent(ctx, "d2", "u2", at)
		if err != nil || ok {
			t.Fatalf("ack by other user = %v, %v; want false", ok, err)
		}
		ok, err = r.AcknowledgeIfCurrent(ctx, "d2", "u1", at)
		if err != nil || !ok {
			t.Fatalf("ack current = %v, %v; want true", ok, err)
		}
		ok, _ = r.AcknowledgeIfCurrent(ctx, "d2", "u1", at)
		if ok {
			t.Fatal("second ack should not update")
		}

		d, found, err := r.GetDecision(ctx, "d2")
		if err != nil || !found {
			t.Fatalf("GetDecision = %v, %v", found, err)
		}
		if d.AcknowledgedAt == nil || !d.AcknowledgedAt.Equal(at) {
			t.Fatalf("AcknowledgedAt = %v, want %v", d.AcknowledgedAt, at)
		}
	})
}

func TestAcknowledgeExpired(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		if _, err := r.SaveDecision(ctx, decisionAt("d1", asOf)); err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}
		ok, err := r.AcknowledgeIfCurrent(ctx, "d1", "u1", asOf.Add(24*time.Hour+time.Nanosecond))
		if err != nil || ok {
			t.Fatalf("ack past expiry = %v, %v; want false", ok, err)
		}
		ok, err = r.AcknowledgeIfCurrent(ctx, "d1", "u1", asOf.Add(24*time.Hour))
		if err != nil || !ok {
			t.Fatalf("ack at expiry instant = %v, %v; want true", ok, err)
		}
	})
}

func TestWritesNeverCrossUsers(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		write := func(user string, balance int64, apr int64) {
			t.Helper()
			if err := r.UpsertAccount(ctx, model.Account{ID: "chk", UserID: user, Name: user, Balance: model.Cents(balance)}); err != nil {
				t.Fatalf("UpsertAccount(%s): %v", user, err)
			}
			cs := recompute.ChangeSet{
				Transactions: recompute.TransactionChanges{Created: []model.Transaction{
					{ID: "t1", PostedAt: asOf.Add(-time.Hour), Amount: model.Cents(-balance / 10)},
				}},
				Debts: []model.Debt{{ID: "card", Name: user + " card", Balance: 5000, APRPercent: decimal.NewFromInt(apr), MinimumPayment: cents(500)}},
				Bills: []model.ScheduledItem{{ID: "rent", Name: user + " rent", Amount: 1000, DueAt: asOf.AddDate(0, 0, 3), Active: true}},
			}
			if err := r.ApplyChanges(ctx, user, cs); err != nil {
				t.Fatalf("ApplyChanges(%s): %v", user, err)
			}
			if err := r.SaveGoal(ctx, model.Goal{ID: "g1", UserID: user, Name: user + " goal", Target: 1000, StartDate: asOf}); err != nil {
				t.Fatalf("SaveGoal(%s): %v", user, err)
			}
		}
		write("alice", 40000, 12)
		write("bob", 1, 99)

		snap, err := r.ReadSnapshot(ctx, "alice", asOf, 30)
		if err != nil {
			t.Fatalf("ReadSnapshot: %v", err)
		}
		if snap.Balance != 40000 || len(snap.Accounts) != 1 {
			t.Fatalf("alice balance = %d over %d accounts, want 40000 over 1", snap.Balance, len(snap.Accounts))
		}
		if len(snap.Transactions) != 1 || snap.Transactions[0].Amount != -4000 {
			t.Fatalf("alice transactions = %+v", snap.Transactions)
		}
		if len(snap.Debts) != 1 || snap.Debts[0].Name != "alice card" || !snap.Debts[0].APRPercent.Equal(decimal.NewFromInt(12)) {
			t.Fatalf("alice debts = %+v", snap.Debts)
		}
		if len(snap.Scheduled) != 1 || snap.Scheduled[0].Name != "alice rent" {
			t.Fatalf("alice scheduled = %+v", snap.Scheduled)
		}
		g, err := r.GetGoal(ctx, "alice", "g1")
		if err != nil || g.Name != "alice goal" {
			t.Fatalf("alice goal = %+v, %v", g, err)
		}

		bob, err := r.ReadSnapshot(ctx, "bob", asOf, 30)
		if err != nil {
			t.Fatalf("ReadSnapshot(bob): %v", err)
		}
		if len(bob.Accounts)+len(bob.Transactions)+len(bob.Debts)+len(bob.Scheduled) != 0 {
			t.Fatalf("bob sees alice's rows: %+v", bob)
		}
		if _, err := r.GetGoal(ctx, "bob", "g1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetGoal(bob) err = %v, want ErrNotFound", err)
		}
	})
}

func TestAuditStampsUseClock(t *testing.T) {
	stamp := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := WithClock(func() time.Time { return stamp })
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		db, err := OpenDB(DriverSQLite, filepath.Join(t.TempDir(), "finpilot.db"), clock)
		if err != nil {
			t.Fatalf("OpenDB: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		if err := db.UpsertAccount(ctx, model.Account{ID: "chk", UserID: "u1", Balance: 100}); err != nil {
			t.Fatalf("UpsertAccount: %v", err)
		}
		if err := db.ApplyChanges(ctx, "u1", recompute.ChangeSet{Imports: []string{"batch-1"}}); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
		var updated, applied string
		if err := db.db.QueryRow("SELECT updated_at FROM accounts WHERE id = 'chk'").Scan(&updated); err != nil {
			t.Fatalf("reading updated_at: %v", err)
		}
		if err := db.db.QueryRow("SELECT applied_at FROM import_batches WHERE id = 'batch-1'").Scan(&applied); err != nil {
			t.Fatalf("reading applied_at: %v", err)
		}
		if want := formatTime(stamp); updated != want || applied != want {
			t.Fatalf("stamps = %s, %s; want %s", updated, applied, want)
		}
	})
	t.Run("memory", func(t *testing.T) {
		m := NewMemory(clock)
		if err := m.ApplyChanges(ctx, "u1", recompute.ChangeSet{Imports: []string{"batch-1"}}); err != nil {
			t.Fatalf("ApplyChanges: %v", err)
		}
		if got := m.imports["u1/batch-1"]; !got.Equal(stamp) {
			t.Fatalf("import stamp = %v, want %v", got, stamp)
		}
	})
}

func TestSaveDecisionStoresDebtProjection(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		seed(t, r)
		ctx := context.Background()
		payoff := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
		rec := decisionAt("d1", asOf)
		rec.Debts = []model.DebtProjection{{
			DebtID:                 "card",
			CurrentBalance:         100000,
			PayoffDate:             &payoff,
			MonthsToPayoff:         11,
			TotalProjectedInterest: 5898,
			DangerScore:            12,
		}}
		if _, err := r.SaveDecision(ctx, rec); err != nil {
			t.Fatalf("SaveDecision: %v", err)
		}

		debts, err := r.ListDebts(ctx, "u1")
		if err != nil {
			t.Fatalf("ListDebts: %v", err)
		}
		if len(debts) != 1 || debts[0].Projection == nil {
			t.Fatalf("debts = %+v, want one projected debt", debts)
		}
		p := debts[0].Projection
		if p.MonthsToPayoff != 11 || p.TotalProjectedInterest != 5898 || p.DangerScore != 12 {
			t.Fatalf("projection = %+v", p)
		}
		if p.PayoffDate == nil || !p.PayoffDate.Equal(payoff) {
			t.Fatalf("PayoffDate = %v, want %v", p.PayoffDate, payoff)
		}

		// The snapshot never carries a stale projection.
		snap, _ := r.ReadSnapshot(ctx, "u1", asOf, 60)
		if snap.Debts[0].Projection != nil {
			t.Fatal("snapshot debt carries a projection")
		}
	})
}

func TestGoals(t *testing.T) {
	forEachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		target := asOf.AddDate(0, 6, 0)
		g := model.Goal{
			ID: "g1", UserID: "u1", Name: "Emergency fund",
			Target: 300000, Current: 50000,
			StartDate: asOf, TargetDate: &target, Status: model.GoalActive,
			Progress: model.GoalProgress{ProgressPercent: 16.67, OnTrack: true, RecommendedMonthlyContribution: 41667, ComputedAt: asOf},
		}
		if err := r.SaveGoal(ctx, g); err != nil {
			t.Fatalf("SaveGoal: %v", err)
		}
		got, err := r.GetGoal(ctx, "u1", "g1")
		if err != nil {
			t.Fatalf("GetGoal: %v", err)
		}
		if got.Name != g.Name || got.Current != 50000 || got.TargetDate == nil || !got.TargetDate.Equal(target) {
			t.Fatalf("goal = %+v", got)
		}
		if got.Progress.RecommendedMonthlyContribution != 41667 || !got.Progress.OnTrack {
			t.Fatalf("progress = %+v", got.Progress)
		}

		g.Current = 300000
		g.Status = model.GoalCompleted
		if err := r.SaveGoal(ctx, g); err != nil {
			t.Fatalf("SaveGoal update: %v", err)
		}
		goals, err := r.ListGoals(ctx, "u1")
		if err != nil {
			t.Fatalf("ListGoals: %v", err)
		}
		if len(goals) != 1 || goals[0].Status != model.GoalCompleted {
			t.Fatalf("goals = %+v", goals)
		}

		if _, err := r.GetGoal(ctx, "u2", "g1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetGoal other user error = %v, want ErrNotFound", err)
		}
	})
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: dialectPostgres}
	got := pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?")
	if want := "SELECT a FROM t WHERE x = $1 AND y = $2"; got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	lite := &DB{dialect: dialectSQLite}
	if got := lite.rebind("x = ?"); got != "x = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	r, err := Open(DriverMemory, "")
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	_ = r.Close()
}
