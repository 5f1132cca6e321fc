package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/finpilot/internal/config"
	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

// setupValues holds the first-run form answers.
type setupValues struct {
	userID   string
	strategy string
	buffer   string
	theme    string
}

func newSetupForm(userID string, vals *setupValues) *huh.Form {
	cfg := config.DefaultConfig()
	vals.userID = userID
	vals.strategy = cfg.Engine.Strategy
	vals.buffer = model.Cents(cfg.Engine.SafetyBufferCents).Dollars()
	vals.theme = cfg.Appearance.Theme

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, th := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(th.Name, th.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to finpilot").
				Description("A few questions, then the dashboard.\nRun `finpilot setup` anytime to change them."),
			huh.NewInput().
				Title("User ID").
				Description("Whose finances this dashboard reads.").
				Value(&vals.userID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user id is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Debt payoff strategy").
				Options(
					huh.NewOption("Avalanche: highest APR first", string(debt.Avalanche)),
					huh.NewOption("Snowball: smallest balance first", string(debt.Snowball)),
				).
				Value(&vals.strategy),
			huh.NewInput().
				Title("Safety buffer").
				Description("Cash kept aside when computing safe-to-spend.").
				Value(&vals.buffer).
				Validate(func(s string) error {
					c, err := model.ParseCents(s)
					if err != nil {
						return err
					}
					if c < 0 {
						return errors.New("buffer cannot be negative")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.theme),
		),
	)
}

func (a *App) saveSetupConfig() error {
	cfg := loadConfigOrDefault()

	if id := strings.TrimSpace(a.setupVals.userID); id != "" {
		cfg.General.UserID = id
	}
	if s, ok := debt.ParseStrategy(a.setupVals.strategy); ok {
		cfg.Engine.Strategy = string(s)
	}
	if c, err := model.ParseCents(a.setupVals.buffer); err == nil && c >= 0 {
		cfg.Engine.SafetyBufferCents = int64(c)
	}
	if a.setupVals.theme != "" {
		cfg.Appearance.Theme = a.setupVals.theme
		theme.SetActive(a.setupVals.theme)
	}
	return config.Save(cfg)
}
