package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/config"
	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/tui/components"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

const (
	settingsFieldTheme = iota
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldStrategy
	settingsFieldSafetyBuffer
	settingsFieldValidity
	settingsFieldMinRisk
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
	restart bool  // an engine setting changed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldAutoRefresh:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.autoRefresh))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "60 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	case settingsFieldStrategy:
		ti.Placeholder = "avalanche or snowball"
		ti.SetValue(cfg.Engine.Strategy)
	case settingsFieldSafetyBuffer:
		ti.Placeholder = "50.00"
		ti.SetValue(model.Cents(cfg.Engine.SafetyBufferCents).Dollars())
	case settingsFieldValidity:
		ti.Placeholder = "24 (hours)"
		ti.SetValue(strconv.Itoa(cfg.Engine.ValidityHours))
	case settingsFieldMinRisk:
		ti.Placeholder = "safe, caution, warning, danger, critical"
		ti.SetValue(cfg.NotifyMinRisk().String())
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates the edited value and persists it. Engine settings
// take effect on the next start.
func (a *App) settingsSave() {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())

	invalid := func() { a.settings.saveErr = fmt.Errorf("invalid value %q", val) }

	switch a.settings.cursor {
	case settingsFieldTheme:
		if !validTheme(val) {
			invalid()
			return
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldAutoRefresh:
		b, err := strconv.ParseBool(val)
		if err != nil {
			invalid()
			return
		}
		cfg.TUI.AutoRefresh = b
		a.autoRefresh = b
	case settingsFieldRefreshInterval:
		sec, err := strconv.Atoi(val)
		if err != nil || time.Duration(sec)*time.Second < minRefreshInterval {
			invalid()
			return
		}
		cfg.TUI.RefreshInterval = sec
		a.refreshInterval = time.Duration(sec) * time.Second
	case settingsFieldStrategy:
		s, ok := debt.ParseStrategy(val)
		if !ok {
			invalid()
			return
		}
		cfg.Engine.Strategy = string(s)
		a.settings.restart = true
	case settingsFieldSafetyBuffer:
		c, err := model.ParseCents(val)
		if err != nil || c < 0 {
			invalid()
			return
		}
		cfg.Engine.SafetyBufferCents = int64(c)
		a.settings.restart = true
	case settingsFieldValidity:
		h, err := strconv.Atoi(val)
		if err != nil || h <= 0 {
			invalid()
			return
		}
		cfg.Engine.ValidityHours = h
		a.settings.restart = true
	case settingsFieldMinRisk:
		lvl, err := model.ParseRiskLevel(val)
		if err != nil {
			invalid()
			return
		}
		cfg.Notify.MinRisk = lvl.String()
	}

	a.settings.saveErr = config.Save(cfg)
}

func validTheme(name string) bool {
	for _, n := range theme.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	fields := [settingsFieldCount][2]string{
		{"Theme", cfg.Appearance.Theme},
		{"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
		{"Debt Strategy", cfg.Engine.Strategy},
		{"Safety Buffer", cli.FormatCents(model.Cents(cfg.Engine.SafetyBufferCents))},
		{"Decision Validity", fmt.Sprintf("%dh", cfg.Engine.ValidityHours)},
		{"Alert Min Risk", cfg.NotifyMinRisk().String()},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		switch {
		case a.settings.editing && i == a.settings.cursor:
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-20s ", f[0])))
			form.WriteString(a.settings.input.View())
		case i == a.settings.cursor:
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-20s ", f[0]+":"))
			value := selectedStyle.Render(f[1])
			form.WriteString(marker + label + value)
			if pad := innerW - lipgloss.Width(marker+label+value); pad > 0 {
				form.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		default:
			form.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			form.WriteString(labelStyle.Render(fmt.Sprintf("%-20s ", f[0]+":")))
			form.WriteString(valueStyle.Render(f[1]))
		}
		form.WriteString("\n")
	}

	switch {
	case a.settings.saveErr != nil:
		form.WriteString("\n")
		form.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	case a.settings.saved && a.settings.restart:
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved. Restart to apply engine settings."))
	case a.settings.saved:
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved!"))
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	info.WriteString(labelStyle.Render("User:         ") + valueStyle.Render(a.backend.UserID) + "\n")
	info.WriteString(labelStyle.Render("Store:        ") + valueStyle.Render(cfg.General.DBDriver) + "\n")
	info.WriteString(labelStyle.Render("Daemon:       ") + valueStyle.Render(cfg.Daemon.Addr) + "\n")
	info.WriteString(labelStyle.Render("Config file:  ") + valueStyle.Render(config.ConfigPath()))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", form.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", info.String(), cw))
	return b.String()
}
