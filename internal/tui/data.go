package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/goal"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/store"
)

const (
	loadTimeout  = 10 * time.Second
	historyLimit = 8
)

// Backend is what the dashboard reads from and acts on.
type Backend struct {
	Engine *engine.Engine
	Repo   store.Repository
	UserID string
}

// dashboard is everything the tabs render, loaded in one pass.
type dashboard struct {
	decision *model.Decision // current, unexpired
	runway   *store.RunwaySnapshot
	debts    []model.DebtProjection // ranked by the engine's strategy
	pending  []model.Debt           // not yet projected
	goals    []model.Goal
	history  []model.Decision
	loadedAt time.Time
}

// DataLoadedMsg is sent when a dashboard load finishes.
type DataLoadedMsg struct {
	data dashboard
	err  error
}

// ComputedMsg is sent when a recompute finishes.
type ComputedMsg struct {
	Decision model.Decision
	Err      error
}

// AckMsg is sent when an acknowledgement finishes.
type AckMsg struct {
	Result engine.AckResult
	Err    error
}

func loadDashboard(ctx context.Context, b Backend) (dashboard, error) {
	now := b.Engine.Now()
	out := dashboard{loadedAt: now}

	d, ok, err := b.Engine.Current(ctx, b.UserID)
	if err != nil {
		return out, err
	}
	if ok {
		out.decision = &d
	}

	rw, ok, err := b.Repo.LatestRunway(ctx, b.UserID)
	if err != nil {
		return out, err
	}
	if ok {
		out.runway = &rw
	}

	debts, err := b.Repo.ListDebts(ctx, b.UserID)
	if err != nil {
		return out, err
	}
	var projs []model.DebtProjection
	for _, d := range debts {
		if d.Projection != nil {
			projs = append(projs, *d.Projection)
		} else {
			out.pending = append(out.pending, d)
		}
	}
	out.debts = debt.Rank(projs, b.Engine.Config().Strategy)

	goals, err := b.Repo.ListGoals(ctx, b.UserID)
	if err != nil {
		return out, err
	}
	for _, g := range goals {
		out.goals = append(out.goals, goal.Refresh(g, now))
	}

	out.history, err = b.Engine.History(ctx, b.UserID, historyLimit)
	return out, err
}

func loadCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		data, err := loadDashboard(ctx, b)
		return DataLoadedMsg{data: data, err: err}
	}
}

func computeCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		d, err := b.Engine.Compute(ctx, b.UserID)
		return ComputedMsg{Decision: d, Err: err}
	}
}

func ackCmd(b Backend, decisionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		res, err := b.Engine.Acknowledge(ctx, decisionID, b.UserID)
		return AckMsg{Result: res, Err: err}
	}
}
