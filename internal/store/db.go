package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // register postgres driver
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DB is a Repository over database/sql.
type DB struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// OpenDB opens or creates the database. For sqlite, dsn is a file path.
func OpenDB(driver, dsn string, opts ...Option) (*DB, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch driver {
	case DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		db, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("opening sqlite db: %w", err)
		}
		// One writer at a time; transactions never nest non-tx queries.
		db.SetMaxOpenConns(1)
		d = dialectSQLite
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres db: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		d = dialectPostgres
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}

	if _, err := db.Exec(schemaFor(d)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db, dialect: d, now: buildOptions(opts).now}, nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *DB) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *DB) exec(ctx context.Context, e execer, query string, args ...any) error {
	_, err := e.ExecContext(ctx, s.rebind(query), args...)
	return err
}

// ReadSnapshot implements Repository. Rows that cannot be decoded are left
// out and reported in Snapshot.Rejected.
func (s *DB) ReadSnapshot(ctx context.Context, userID string, asOf time.Time, lookbackDays int) (model.Snapshot, error) {
	snap := model.Snapshot{UserID: userID, AsOf: asOf}

	if err := s.readAccounts(ctx, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("store: reading accounts: %w", err)
	}
	if err := s.readTransactions(ctx, &snap, windowStart(asOf, lookbackDays), asOf); err != nil {
		return model.Snapshot{}, fmt.Errorf("store: reading transactions: %w", err)
	}
	if err := s.readDebts(ctx, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("store: reading debts: %w", err)
	}
	if err := s.readScheduled(ctx, &snap, dayStart(asOf)); err != nil {
		return model.Snapshot{}, fmt.Errorf("store: reading scheduled items: %w", err)
	}
	return snap, nil
}

func (s *DB) readAccounts(ctx context.Context, snap *model.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT id, name, balance_cents FROM accounts WHERE user_id = ? ORDER BY id"), snap.UserID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		a := model.Account{UserID: snap.UserID}
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance); err != nil {
			return err
		}
		snap.Accounts = append(snap.Accounts, a)
		snap.Balance += a.Balance
	}
	return rows.Err()
}

func (s *DB) readTransactions(ctx context.Context, snap *model.Snapshot, since, until time.Time) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, account_id, posted_at, amount_cents, description, category
		FROM transactions
		WHERE user_id = ? AND posted_at >= ? AND posted_at <= ?
		ORDER BY posted_at, id`), snap.UserID, formatTime(since), formatTime(until))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			t                       model.Transaction
			posted                  string
			account, desc, category sql.NullString
		)
		if err := rows.Scan(&t.ID, &account, &posted, &t.Amount, &desc, &category); err != nil {
			return err
		}
		at, err := parseTime(posted)
		if err != nil {
			snap.Rejected = append(snap.Rejected, model.Rejection{Entity: "transaction", ID: t.ID, Reason: "bad posted_at: " + err.Error()})
			continue
		}
		t.UserID = snap.UserID
		t.PostedAt = at
		t.AccountID, t.Description, t.Category = account.String, desc.String, category.String
		snap.Transactions = append(snap.Transactions, t)
	}
	return rows.Err()
}

func (s *DB) readDebts(ctx context.Context, snap *model.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, balance_cents, apr_percent, minimum_payment_cents, extra_payment_cents
		FROM debts WHERE user_id = ? AND active = 1 ORDER BY id`), snap.UserID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			d      model.Debt
			apr    string
			minPay sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance, &apr, &minPay, &d.ExtraPayment); err != nil {
			return err
		}
		rate, err := decimal.NewFromString(apr)
		if err != nil {
			snap.Rejected = append(snap.Rejected, model.Rejection{Entity: "debt", ID: d.ID, Reason: fmt.Sprintf("bad apr %q", apr)})
			continue
		}
		d.UserID = snap.UserID
		d.APRPercent = rate
		d.MinimumPayment = centsPtr(minPay)
		snap.Debts = append(snap.Debts, d)
	}
	return rows.Err()
}

func (s *DB) readScheduled(ctx context.Context, snap *model.Snapshot, from time.Time) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, kind, name, amount_cents, due_at
		FROM scheduled_items
		WHERE user_id = ? AND active = 1 AND due_at >= ?
		ORDER BY due_at, id`), snap.UserID, formatTime(from))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			it   model.ScheduledItem
			kind string
			due  string
		)
		if err := rows.Scan(&it.ID, &kind, &it.Name, &it.Amount, &due); err != nil {
			return err
		}
		at, err := parseTime(due)
		if err != nil {
			snap.Rejected = append(snap.Rejected, model.Rejection{Entity: kind, ID: it.ID, Reason: "bad due_at: " + err.Error()})
			continue
		}
		it.UserID = snap.UserID
		it.Kind = model.ScheduleKind(kind)
		it.DueAt = at
		it.Active = true
		snap.Scheduled = append(snap.Scheduled, it)
	}
	return rows.Err()
}

// SaveDecision implements Repository. The decision row, its runway snapshot
// and the debt projection columns are written in a single transaction.
func (s *DB) SaveDecision(ctx context.Context, rec model.DecisionRecord) (model.Decision, error) {
	d := rec.Decision
	cmd, err := json.Marshal(d.Command)
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: encoding command: %w", err)
	}
	warnings := d.Warnings
	if warnings == nil {
		warnings = []model.Warning{}
	}
	warn, err := json.Marshal(warnings)
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: encoding warnings: %w", err)
	}
	next, err := json.Marshal(d.NextAction)
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: encoding next action: %w", err)
	}
	basis, err := json.Marshal(d.Basis)
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: encoding basis: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO decisions (id, user_id, risk_level, command_json, warnings_json, next_action_json,
			basis_json, computed_at, expires_at, is_locked, acknowledged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		RETURNING seq`),
		d.ID, d.UserID, d.RiskLevel.String(), string(cmd), string(warn), string(next),
		string(basis), formatTime(d.ComputedAt), formatTime(d.ExpiresAt), boolInt(d.IsLocked),
	).Scan(&d.Seq)
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: inserting decision: %w", err)
	}

	rw := rec.Runway
	err = s.exec(ctx, tx, `
		INSERT INTO runway_snapshots (decision_id, user_id, computed_at, daily_burn_cents, weekly_burn_cents,
			days_until_zero, zero_date, safe_today_cents, safe_week_cents, upcoming_bills_cents,
			upcoming_bills_count, next_income_date, observed_days, low_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, formatTime(d.ComputedAt), int64(rw.DailyBurnRate), int64(rw.WeeklyBurnRate),
		nullInt(rw.DaysUntilZero), nullTime(rw.ZeroDate), int64(rw.SafeToSpendToday), int64(rw.SafeToSpendWeek),
		int64(rw.UpcomingBillsTotal), rw.UpcomingBillsCount, nullTime(rw.NextIncomeDate), rw.ObservedDays,
		boolInt(rw.LowConfidence))
	if err != nil {
		return model.Decision{}, fmt.Errorf("store: inserting runway snapshot: %w", err)
	}

	for _, p := range rec.Debts {
		err = s.exec(ctx, tx, `
			UPDATE debts SET payoff_date = ?, months_to_payoff = ?, total_interest_cents = ?,
				danger_score = ?, negative_amortization = ?, projected_at = ?
			WHERE id = ? AND user_id = ?`,
			nullTime(p.PayoffDate), p.MonthsToPayoff, int64(p.TotalProjectedInterest),
			p.DangerScore, boolInt(p.NegativeAmortization), formatTime(d.ComputedAt),
			p.DebtID, d.UserID)
		if err != nil {
			return model.Decision{}, fmt.Errorf("store: updating projection for debt %s: %w", p.DebtID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Decision{}, fmt.Errorf("store: commit decision: %w", err)
	}
	return d, nil
}

const decisionColumns = `seq, id, user_id, risk_level, command_json, warnings_json, next_action_json,
	basis_json, computed_at, expires_at, is_locked, acknowledged_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (model.Decision, error) {
	var (
		d                           model.Decision
		level, cmd, warn, next, bas string
		computed, expires           string
		locked                      int64
		acked                       sql.NullString
	)
	if err := row.Scan(&d.Seq, &d.ID, &d.UserID, &level, &cmd, &warn, &next, &bas, &computed, &expires, &locked, &acked); err != nil {
		return model.Decision{}, err
	}
	var err error
	if d.RiskLevel, err = model.ParseRiskLevel(level); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(cmd), &d.Command); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: command: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(warn), &d.Warnings); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: warnings: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(next), &d.NextAction); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: next action: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(bas), &d.Basis); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: basis: %w", d.ID, err)
	}
	if d.ComputedAt, err = parseTime(computed); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: computed_at: %w", d.ID, err)
	}
	if d.ExpiresAt, err = parseTime(expires); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: expires_at: %w", d.ID, err)
	}
	d.IsLocked = locked != 0
	if d.AcknowledgedAt, err = timePtr(acked); err != nil {
		return model.Decision{}, fmt.Errorf("decision %s: acknowledged_at: %w", d.ID, err)
	}
	return d, nil
}

// LatestDecision implements Repository. Ties on computed_at go to the later insert.
func (s *DB) LatestDecision(ctx context.Context, userID string) (model.Decision, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+decisionColumns+`
		FROM decisions WHERE user_id = ?
		ORDER BY computed_at DESC, seq DESC LIMIT 1`), userID)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Decision{}, false, nil
	}
	if err != nil {
		return model.Decision{}, false, fmt.Errorf("store: latest decision: %w", err)
	}
	return d, true, nil
}

// GetDecision implements Repository.
func (s *DB) GetDecision(ctx context.Context, id string) (model.Decision, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+decisionColumns+` FROM decisions WHERE id = ?`), id)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Decision{}, false, nil
	}
	if err != nil {
		return model.Decision{}, false, fmt.Errorf("store: get decision: %w", err)
	}
	return d, true, nil
}

// AcknowledgeIfCurrent implements Repository as a single conditional update.
func (s *DB) AcknowledgeIfCurrent(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE decisions SET acknowledged_at = ?
		WHERE id = ? AND user_id = ? AND acknowledged_at IS NULL AND expires_at >= ?
		  AND seq = (SELECT seq FROM decisions WHERE user_id = ?
		             ORDER BY computed_at DESC, seq DESC LIMIT 1)`),
		formatTime(at), id, userID, formatTime(at), userID)
	if err != nil {
		return false, fmt.Errorf("store: acknowledge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: acknowledge: %w", err)
	}
	return n == 1, nil
}

// ListDecisions implements Repository.
func (s *DB) ListDecisions(ctx context.Context, userID string, limit int) ([]model.Decision, error) {
	if limit <= 0 {
		limit = -1
		if s.dialect == dialectPostgres {
			limit = 1 << 30
		}
	}
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE user_id = ?
		ORDER BY computed_at DESC, seq DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list decisions: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestRunway implements Repository.
func (s *DB) LatestRunway(ctx context.Context, userID string) (RunwaySnapshot, bool, error) {
	var (
		rs                     RunwaySnapshot
		computed               string
		days                   sql.NullInt64
		zero, nextIncome       sql.NullString
		lowConfidence          int64
		daily, weekly          int64
		safeToday, safeWeek    int64
		upcomingTotal          int64
		upcomingCount, observe int
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT decision_id, computed_at, daily_burn_cents, weekly_burn_cents, days_until_zero, zero_date,
			safe_today_cents, safe_week_cents, upcoming_bills_cents, upcoming_bills_count,
			next_income_date, observed_days, low_confidence
		FROM runway_snapshots WHERE user_id = ? ORDER BY seq DESC LIMIT 1`), userID).
		Scan(&rs.DecisionID, &computed, &daily, &weekly, &days, &zero, &safeToday, &safeWeek,
			&upcomingTotal, &upcomingCount, &nextIncome, &observe, &lowConfidence)
	if errors.Is(err, sql.ErrNoRows) {
		return RunwaySnapshot{}, false, nil
	}
	if err != nil {
		return RunwaySnapshot{}, false, fmt.Errorf("store: latest runway: %w", err)
	}

	rs.UserID = userID
	if rs.ComputedAt, err = parseTime(computed); err != nil {
		return RunwaySnapshot{}, false, fmt.Errorf("store: latest runway: %w", err)
	}
	p := &rs.Projection
	p.DailyBurnRate, p.WeeklyBurnRate = model.Cents(daily), model.Cents(weekly)
	p.SafeToSpendToday, p.SafeToSpendWeek = model.Cents(safeToday), model.Cents(safeWeek)
	p.UpcomingBillsTotal, p.UpcomingBillsCount = model.Cents(upcomingTotal), upcomingCount
	p.ObservedDays, p.LowConfidence = observe, lowConfidence != 0
	if days.Valid {
		n := int(days.Int64)
		p.DaysUntilZero = &n
	}
	if p.ZeroDate, err = timePtr(zero); err != nil {
		return RunwaySnapshot{}, false, fmt.Errorf("store: latest runway: %w", err)
	}
	if p.NextIncomeDate, err = timePtr(nextIncome); err != nil {
		return RunwaySnapshot{}, false, fmt.Errorf("store: latest runway: %w", err)
	}
	return rs, true, nil
}

// UpsertAccount implements Repository. An account owned by another user is
// left untouched.
func (s *DB) UpsertAccount(ctx context.Context, a model.Account) error {
	if a.ID == "" || a.UserID == "" {
		return fmt.Errorf("store: account needs id and user: %w", ErrInvalidChange)
	}
	err := s.exec(ctx, s.db, `
		INSERT INTO accounts (id, user_id, name, balance_cents, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			balance_cents = excluded.balance_cents, updated_at = excluded.updated_at
		WHERE accounts.user_id = excluded.user_id`,
		a.ID, a.UserID, a.Name, int64(a.Balance), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("store: upsert account %s: %w", a.ID, err)
	}
	return nil
}

// ApplyChanges implements Repository atomically.
func (s *DB) ApplyChanges(ctx context.Context, userID string, cs recompute.ChangeSet) error {
	if err := validateChanges(userID, cs); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range append(append([]model.Transaction(nil), cs.Transactions.Created...), cs.Transactions.Updated...) {
		err := s.exec(ctx, tx, `
			INSERT INTO transactions (id, user_id, account_id, posted_at, amount_cents, description, category)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET account_id = excluded.account_id, posted_at = excluded.posted_at,
				amount_cents = excluded.amount_cents, description = excluded.description, category = excluded.category
			WHERE transactions.user_id = excluded.user_id`,
			t.ID, userID, nullString(t.AccountID), formatTime(t.PostedAt), int64(t.Amount),
			nullString(t.Description), nullString(t.Category))
		if err != nil {
			return fmt.Errorf("store: saving transaction %s: %w", t.ID, err)
		}
	}
	for _, id := range cs.Transactions.Deleted {
		if err := s.exec(ctx, tx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID); err != nil {
			return fmt.Errorf("store: deleting transaction %s: %w", id, err)
		}
	}
	for _, d := range cs.Debts {
		var minPay sql.NullInt64
		if d.MinimumPayment != nil {
			minPay = sql.NullInt64{Int64: int64(*d.MinimumPayment), Valid: true}
		}
		err := s.exec(ctx, tx, `
			INSERT INTO debts (id, user_id, name, balance_cents, apr_percent, minimum_payment_cents, extra_payment_cents, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, balance_cents = excluded.balance_cents,
				apr_percent = excluded.apr_percent, minimum_payment_cents = excluded.minimum_payment_cents,
				extra_payment_cents = excluded.extra_payment_cents, active = 1
			WHERE debts.user_id = excluded.user_id`,
			d.ID, userID, d.Name, int64(d.Balance), d.APRPercent.String(), minPay, int64(d.ExtraPayment))
		if err != nil {
			return fmt.Errorf("store: saving debt %s: %w", d.ID, err)
		}
	}
	for _, it := range scheduledChanges(cs) {
		err := s.exec(ctx, tx, `
			INSERT INTO scheduled_items (id, user_id, kind, name, amount_cents, due_at, active)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET kind = excluded.kind, name = excluded.name,
				amount_cents = excluded.amount_cents, due_at = excluded.due_at, active = excluded.active
			WHERE scheduled_items.user_id = excluded.user_id`,
			it.ID, userID, string(it.Kind), it.Name, int64(it.Amount), formatTime(it.DueAt), boolInt(it.Active))
		if err != nil {
			return fmt.Errorf("store: saving %s %s: %w", it.Kind, it.ID, err)
		}
	}
	for _, id := range cs.Imports {
		err := s.exec(ctx, tx, `
			INSERT INTO import_batches (id, user_id, applied_at) VALUES (?, ?, ?)
			ON CONFLICT (id, user_id) DO NOTHING`, id, userID, formatTime(s.now()))
		if err != nil {
			return fmt.Errorf("store: recording import %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListDebts implements Repository, including the latest stored projection.
func (s *DB) ListDebts(ctx context.Context, userID string) ([]model.Debt, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, balance_cents, apr_percent, minimum_payment_cents, extra_payment_cents,
			payoff_date, months_to_payoff, total_interest_cents, danger_score, negative_amortization, projected_at
		FROM debts WHERE user_id = ? AND active = 1 ORDER BY id`), userID)
	if err != nil {
		return nil, fmt.Errorf("store: list debts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Debt
	for rows.Next() {
		var (
			d                        model.Debt
			apr                      string
			minPay, months, interest sql.NullInt64
			danger, negAm            sql.NullInt64
			payoff, projectedAt      sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance, &apr, &minPay, &d.ExtraPayment,
			&payoff, &months, &interest, &danger, &negAm, &projectedAt); err != nil {
			return nil, fmt.Errorf("store: list debts: %w", err)
		}
		d.UserID = userID
		d.MinimumPayment = centsPtr(minPay)
		d.APRPercent, err = decimal.NewFromString(apr)
		if err != nil {
			return nil, fmt.Errorf("store: debt %s: bad apr %q", d.ID, apr)
		}
		if projectedAt.Valid {
			p := &model.DebtProjection{
				DebtID:                 d.ID,
				Name:                   d.Name,
				CurrentBalance:         d.Balance,
				APRPercent:             d.APRPercent,
				MinimumPayment:         d.MinimumPayment,
				MonthlyPayment:         d.MonthlyPayment(),
				MonthsToPayoff:         int(months.Int64),
				TotalProjectedInterest: model.Cents(interest.Int64),
				DangerScore:            int(danger.Int64),
				NegativeAmortization:   negAm.Int64 != 0,
			}
			if p.PayoffDate, err = timePtr(payoff); err != nil {
				return nil, fmt.Errorf("store: debt %s: %w", d.ID, err)
			}
			d.Projection = p
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveGoal implements Repository, overwriting progress columns.
func (s *DB) SaveGoal(ctx context.Context, g model.Goal) error {
	if g.ID == "" || g.UserID == "" {
		return fmt.Errorf("store: goal needs id and user: %w", ErrInvalidChange)
	}
	p := g.Progress
	err := s.exec(ctx, s.db, `
		INSERT INTO goals (id, user_id, name, target_cents, current_cents, start_date, target_date, status,
			progress_percent, expected_percent, on_track, projected_completion, recommended_monthly_cents, progress_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, target_cents = excluded.target_cents,
			current_cents = excluded.current_cents, start_date = excluded.start_date,
			target_date = excluded.target_date, status = excluded.status,
			progress_percent = excluded.progress_percent, expected_percent = excluded.expected_percent,
			on_track = excluded.on_track, projected_completion = excluded.projected_completion,
			recommended_monthly_cents = excluded.recommended_monthly_cents, progress_at = excluded.progress_at
		WHERE goals.user_id = excluded.user_id`,
		g.ID, g.UserID, g.Name, int64(g.Target), int64(g.Current), formatTime(g.StartDate),
		nullTime(g.TargetDate), string(g.Status), p.ProgressPercent, p.ExpectedPercent,
		boolInt(p.OnTrack), nullTime(p.ProjectedCompletionDate), int64(p.RecommendedMonthlyContribution),
		formatTime(p.ComputedAt))
	if err != nil {
		return fmt.Errorf("store: save goal %s: %w", g.ID, err)
	}
	return nil
}

const goalColumns = `id, user_id, name, target_cents, current_cents, start_date, target_date, status,
	progress_percent, expected_percent, on_track, projected_completion, recommended_monthly_cents, progress_at`

func scanGoal(row rowScanner) (model.Goal, error) {
	var (
		g                         model.Goal
		start, status             string
		target, projected, calcAt sql.NullString
		onTrack                   int64
	)
	p := &g.Progress
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &g.Current, &start, &target, &status,
		&p.ProgressPercent, &p.ExpectedPercent, &onTrack, &projected, &p.RecommendedMonthlyContribution, &calcAt); err != nil {
		return model.Goal{}, err
	}
	var err error
	if g.StartDate, err = parseTime(start); err != nil {
		return model.Goal{}, fmt.Errorf("goal %s: start_date: %w", g.ID, err)
	}
	if g.TargetDate, err = timePtr(target); err != nil {
		return model.Goal{}, fmt.Errorf("goal %s: target_date: %w", g.ID, err)
	}
	if p.ProjectedCompletionDate, err = timePtr(projected); err != nil {
		return model.Goal{}, fmt.Errorf("goal %s: projected_completion: %w", g.ID, err)
	}
	if at, err := timePtr(calcAt); err != nil {
		return model.Goal{}, fmt.Errorf("goal %s: progress_at: %w", g.ID, err)
	} else if at != nil {
		p.ComputedAt = *at
	}
	g.Status = model.GoalStatus(status)
	p.OnTrack = onTrack != 0
	return g, nil
}

// GetGoal implements Repository.
func (s *DB) GetGoal(ctx context.Context, userID, id string) (model.Goal, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`), id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Goal{}, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Goal{}, fmt.Errorf("store: get goal: %w", err)
	}
	return g, nil
}

// ListGoals implements Repository.
func (s *DB) ListGoals(ctx context.Context, userID string) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY start_date, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("store: list goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list goals: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func centsPtr(v sql.NullInt64) *model.Cents {
	if !v.Valid {
		return nil
	}
	c := model.Cents(v.Int64)
	return &c
}

func timePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
