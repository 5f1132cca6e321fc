// Package store persists finpilot snapshots, decisions and goals.
//
// Two implementations share the Repository contract: DB, backed by SQLite or
// PostgreSQL through database/sql, and Memory, a thread-safe in-process store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
)

var (
	// ErrNotFound is returned by lookups that find nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidChange marks writes rejected before touching storage.
	ErrInvalidChange = errors.New("store: invalid change")
)

// Option configures a repository.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used for audit timestamps (account updates,
// import batches). Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Repository is the full persistence contract used by the CLI and daemon.
type Repository interface {
	ReadSnapshot(ctx context.Context, userID string, asOf time.Time, lookbackDays int) (model.Snapshot, error)

	SaveDecision(ctx context.Context, rec model.DecisionRecord) (model.Decision, error)
	LatestDecision(ctx context.Context, userID string) (model.Decision, bool, error)
	GetDecision(ctx context.Context, id string) (model.Decision, bool, error)
	AcknowledgeIfCurrent(ctx context.Context, id, userID string, at time.Time) (bool, error)
	ListDecisions(ctx context.Context, userID string, limit int) ([]model.Decision, error)
	LatestRunway(ctx context.Context, userID string) (RunwaySnapshot, bool, error)

	UpsertAccount(ctx context.Context, a model.Account) error
	ApplyChanges(ctx context.Context, userID string, cs recompute.ChangeSet) error
	ListDebts(ctx context.Context, userID string) ([]model.Debt, error)

	SaveGoal(ctx context.Context, g model.Goal) error
	GetGoal(ctx context.Context, userID, id string) (model.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)

	Close() error
}

// RunwaySnapshot is one stored runway projection row.
type RunwaySnapshot struct {
	DecisionID string
	UserID     string
	ComputedAt time.Time
	Projection model.RunwayProjection
}

// Open returns a repository for driver: "sqlite", "postgres", or "memory".
func Open(driver, dsn string, opts ...Option) (Repository, error) {
	if driver == DriverMemory {
		return NewMemory(opts...), nil
	}
	return OpenDB(driver, dsn, opts...)
}

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// windowStart is midnight lookbackDays before asOf.
func windowStart(asOf time.Time, lookbackDays int) time.Time {
	y, m, d := asOf.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, asOf.Location()).AddDate(0, 0, -lookbackDays)
}

func dayStart(t time.Time) time.Time {
	return windowStart(t, 0)
}
