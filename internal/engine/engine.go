// Package engine computes, stores and serves per-user financial decisions.
//
// A decision moves through computed (locked) to either acknowledged or
// expired. The engine never reads the wall clock directly; all time comes
// from the injected Clock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finpilot/internal/command"
	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/risk"
	"github.com/theirongolddev/finpilot/internal/runway"
)

// Clock returns the current time.
type Clock func() time.Time

// SnapshotReader loads a user's current financial state.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, userID string, asOf time.Time, lookbackDays int) (model.Snapshot, error)
}

// DecisionStore persists decisions. SaveDecision must write the decision,
// its runway snapshot and the debt projection columns in one transaction and
// return the decision with its Seq assigned.
type DecisionStore interface {
	SaveDecision(ctx context.Context, rec model.DecisionRecord) (model.Decision, error)
	LatestDecision(ctx context.Context, userID string) (model.Decision, bool, error)
	GetDecision(ctx context.Context, id string) (model.Decision, bool, error)
	// AcknowledgeIfCurrent sets acknowledged_at only when the decision is the
	// user's latest, unacknowledged and unexpired at at.
	AcknowledgeIfCurrent(ctx context.Context, id, userID string, at time.Time) (bool, error)
	ListDecisions(ctx context.Context, userID string, limit int) ([]model.Decision, error)
}

// Config holds the tunables of every stage.
type Config struct {
	Validity     time.Duration
	LookbackDays int
	Strategy     debt.Strategy
	Runway       runway.Params
	Debt         debt.Params
	Risk         risk.Thresholds
	Command      command.Params
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Validity:     24 * time.Hour,
		LookbackDays: 60,
		Strategy:     debt.Avalanche,
		Runway:       runway.DefaultParams(),
		Debt:         debt.DefaultParams(),
		Risk:         risk.DefaultThresholds(),
		Command:      command.DefaultParams(),
	}
}

// Observer is notified after a decision has been stored.
type Observer func(model.Decision)

// Engine is the decision state machine.
type Engine struct {
	reader    SnapshotReader
	store     DecisionStore
	cfg       Config
	clock     Clock
	log       logrus.FieldLogger
	locks     *userLocks
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }

// WithObserver registers a callback run after each stored decision.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an engine.
func New(reader SnapshotReader, store DecisionStore, cfg Config, opts ...Option) *Engine {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	e := &Engine{
		reader: reader,
		store:  store,
		cfg:    cfg,
		clock:  time.Now,
		log:    quiet,
		locks:  newUserLocks(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.cfg.Validity <= 0 {
		e.cfg.Validity = DefaultConfig().Validity
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Now returns the engine's notion of the current time.
func (e *Engine) Now() time.Time { return e.clock() }

// Compute builds a fresh decision for userID and stores it. Only one
// computation per user runs at a time; a concurrent call fails fast with
// ErrComputeConflict and should be retried.
func (e *Engine) Compute(ctx context.Context, userID string) (model.Decision, error) {
	if userID == "" {
		return model.Decision{}, fmt.Errorf("engine: compute: empty user: %w", ErrInsufficientData)
	}
	unlock, ok := e.locks.tryLock(userID)
	if !ok {
		return model.Decision{}, fmt.Errorf("engine: compute %s: %w", userID, ErrComputeConflict)
	}
	defer unlock()

	now := e.clock()
	log := e.log.WithField("user_id", userID)

	snap, err := e.reader.ReadSnapshot(ctx, userID, now, e.cfg.LookbackDays)
	if err != nil {
		return model.Decision{}, fmt.Errorf("engine: reading snapshot for %s: %w: %w", userID, ErrStore, err)
	}
	snap = snap.Clone()
	snap.UserID, snap.AsOf = userID, now
	if snap.Empty() {
		return model.Decision{}, fmt.Errorf("engine: compute %s: no accounts or transactions: %w", userID, ErrInsufficientData)
	}

	rec := e.evaluate(snap)
	rec.Decision.ID = uuid.NewString()
	rec.Decision.UserID = userID

	if n := len(rec.Decision.Basis.Omitted); n > 0 {
		log.WithField("omitted", n).Warn("excluded malformed entities from decision")
	}

	saved, err := e.store.SaveDecision(ctx, rec)
	if err != nil {
		return model.Decision{}, fmt.Errorf("engine: saving decision for %s: %w: %w", userID, ErrStore, err)
	}

	log.WithFields(logrus.Fields{
		"decision_id": saved.ID,
		"risk":        saved.RiskLevel.String(),
		"command":     string(saved.Command.Type),
	}).Info("decision computed")

	for _, o := range e.observers {
		o(saved)
	}
	return saved, nil
}

// Evaluate runs the projection pipeline over snap without storing anything.
// The result depends only on snap and the configuration.
func (e *Engine) Evaluate(snap model.Snapshot) model.DecisionRecord {
	return e.evaluate(snap.Clone())
}

func (e *Engine) evaluate(snap model.Snapshot) model.DecisionRecord {
	omitted := append([]model.Rejection(nil), snap.Rejected...)

	valid := snap.Scheduled[:0:0]
	for _, it := range snap.Scheduled {
		if err := it.Validate(); err != nil {
			omitted = append(omitted, model.Rejection{Entity: string(it.Kind), ID: it.ID, Reason: err.Error()})
			continue
		}
		valid = append(valid, it)
	}
	snap.Scheduled = valid

	projs, rejected := debt.ProjectAll(snap.Debts, e.cfg.Debt, snap.AsOf)
	omitted = append(omitted, rejected...)
	ranked := debt.Rank(projs, e.cfg.Strategy)

	rw, err := runway.Project(runway.InputFromSnapshot(snap, e.cfg.LookbackDays), e.cfg.Runway)
	if err != nil {
		// AsOf is always set by the caller; keep the zero projection.
		e.log.WithError(err).Error("runway projection failed")
	}

	ri := risk.Input{
		DaysUntilZero:    rw.DaysUntilZero,
		ObligationsTotal: rw.UpcomingBillsTotal,
		ObligationsCount: rw.UpcomingBillsCount,
		Balance:          snap.Balance,
	}
	for _, p := range ranked {
		if p.PaidOff() {
			continue
		}
		ri.MaxDangerScore = max(ri.MaxDangerScore, p.DangerScore)
		ri.NegativeAmortization = ri.NegativeAmortization || p.NegativeAmortization
	}
	level, rule := risk.Classify(ri, e.cfg.Risk)

	gen := command.Generate(command.Input{
		Level:  level,
		Runway: rw,
		Debts:  ranked,
		Bills:  snap.Bills(),
		AsOf:   snap.AsOf,
	}, e.cfg.Command)

	return model.DecisionRecord{
		Decision: model.Decision{
			UserID:     snap.UserID,
			RiskLevel:  level,
			Command:    gen.Command,
			Warnings:   gen.Warnings,
			NextAction: gen.NextAction,
			Basis: buildTrace(traceInput{
				snapshot: snap,
				runway:   rw,
				debts:    ranked,
				risk:     ri,
				level:    level,
				rule:     rule,
				omitted:  omitted,
				debtCfg:  e.cfg.Debt,
			}),
			ComputedAt: snap.AsOf,
			ExpiresAt:  snap.AsOf.Add(e.cfg.Validity),
			IsLocked:   true,
		},
		Runway: rw,
		Debts:  ranked,
	}
}

// Current returns the user's latest decision if it has not expired. It never
// synthesizes a decision; ok is false when there is none.
func (e *Engine) Current(ctx context.Context, userID string) (model.Decision, bool, error) {
	d, ok, err := e.store.LatestDecision(ctx, userID)
	if err != nil {
		return model.Decision{}, false, fmt.Errorf("engine: latest decision for %s: %w: %w", userID, ErrStore, err)
	}
	if !ok || d.Expired(e.clock()) {
		return model.Decision{}, false, nil
	}
	return d, true, nil
}

// History returns up to limit past decisions, newest first.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]model.Decision, error) {
	ds, err := e.store.ListDecisions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("engine: decision history for %s: %w: %w", userID, ErrStore, err)
	}
	return ds, nil
}

// AckOutcome describes what an acknowledgement did.
type AckOutcome string

// Acknowledgement outcomes. All of them are successes.
const (
	AckAcknowledged AckOutcome = "acknowledged"
	AckAlready      AckOutcome = "already_acknowledged"
	AckSuperseded   AckOutcome = "superseded"
)

// AckResult is the decision after an acknowledgement attempt.
type AckResult struct {
	Decision model.Decision `json:"decision"`
	Outcome  AckOutcome     `json:"outcome"`
}

// Acknowledge marks the user's current decision as seen. Repeating it is a
// no-op; acknowledging a decision that has been replaced or has expired is a
// benign AckSuperseded.
func (e *Engine) Acknowledge(ctx context.Context, decisionID, userID string) (AckResult, error) {
	d, ok, err := e.store.GetDecision(ctx, decisionID)
	if err != nil {
		return AckResult{}, fmt.Errorf("engine: loading decision %s: %w: %w", decisionID, ErrStore, err)
	}
	if !ok || d.UserID != userID {
		return AckResult{}, fmt.Errorf("engine: acknowledge %s: %w", decisionID, ErrNotFound)
	}
	if d.AcknowledgedAt != nil {
		return AckResult{Decision: d, Outcome: AckAlready}, nil
	}

	now := e.clock()
	updated, err := e.store.AcknowledgeIfCurrent(ctx, decisionID, userID, now)
	if err != nil {
		return AckResult{}, fmt.Errorf("engine: acknowledge %s: %w: %w", decisionID, ErrStore, err)
	}
	log := e.log.WithFields(logrus.Fields{"user_id": userID, "decision_id": decisionID})
	if updated {
		d.AcknowledgedAt = &now
		log.Info("decision acknowledged")
		return AckResult{Decision: d, Outcome: AckAcknowledged}, nil
	}

	// Lost a race with another acknowledge, or no longer current.
	fresh, ok, err := e.store.GetDecision(ctx, decisionID)
	if err == nil && ok && fresh.AcknowledgedAt != nil {
		return AckResult{Decision: fresh, Outcome: AckAlready}, nil
	}
	log.Debug("acknowledge on superseded decision ignored")
	return AckResult{Decision: d, Outcome: AckSuperseded}, nil
}

// IsRetryable reports whether err is a transient conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrComputeConflict)
}
