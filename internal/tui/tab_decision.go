package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/tui/components"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

func (a App) renderDecisionTab(cw int) string {
	t := theme.Active
	now := a.backend.Engine.Now()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder

	d := a.data.decision
	if d == nil {
		body := valueStyle.Render("No current decision for "+a.backend.UserID+".") + "\n\n" +
			dimStyle.Render("Press [r] to compute one. Apply a changefeed first if the store is empty.")
		b.WriteString(components.ContentCard("Decision", body, cw))
	} else {
		riskColor := t.Risk(d.RiskLevel)
		b.WriteString(components.MetricCardRow([]components.Metric{
			{Label: "Risk", Value: strings.ToUpper(d.RiskLevel.String()), Color: riskColor},
			{Label: "Command", Value: string(d.Command.Type), Color: t.AccentBright},
			{Label: "Expires", Value: cli.FormatUntil(d.ExpiresAt, now), Delta: d.ExpiresAt.Local().Format("Jan 2 15:04")},
			{Label: "State", Value: string(d.State(now)), Delta: fmt.Sprintf("seq %d", d.Seq)},
		}, cw))
		b.WriteString("\n")

		cmdStyle := lipgloss.NewStyle().Foreground(riskColor).Background(t.Surface).Bold(true)
		var cmd strings.Builder
		cmd.WriteString(cmdStyle.Render(d.Command.Text))
		if d.Command.Amount != nil {
			cmd.WriteString("\n")
			cmd.WriteString(labelStyle.Render("Amount:  ") + valueStyle.Render(cli.FormatCents(*d.Command.Amount)))
		}
		if d.Command.Target != "" {
			cmd.WriteString("\n")
			cmd.WriteString(labelStyle.Render("Target:  ") + valueStyle.Render(d.Command.Target))
		}
		if d.Command.Date != nil {
			cmd.WriteString("\n")
			cmd.WriteString(labelStyle.Render("By:      ") + valueStyle.Render(cli.FormatDate(d.Command.Date)))
		}
		if d.NextAction.Text != "" {
			cmd.WriteString("\n\n")
			cmd.WriteString(labelStyle.Render("Next:    ") + valueStyle.Render(d.NextAction.Text))
		}
		if d.AcknowledgedAt == nil {
			cmd.WriteString("\n\n")
			cmd.WriteString(dimStyle.Render("Press [a] to acknowledge."))
		}

		var warn strings.Builder
		if len(d.Warnings) == 0 {
			warn.WriteString(dimStyle.Render("No warnings."))
		}
		for i, w := range d.Warnings {
			if i > 0 {
				warn.WriteString("\n")
			}
			sev := lipgloss.NewStyle().Foreground(warningColor(w.Kind)).Background(t.Surface).Bold(true)
			warn.WriteString(sev.Render("▲ "))
			warn.WriteString(valueStyle.Render(w.Text))
		}

		if a.isCompactLayout() {
			b.WriteString(components.ContentCard("Command", cmd.String(), cw))
			b.WriteString("\n")
			b.WriteString(components.ContentCard("Warnings", warn.String(), cw))
		} else {
			widths := components.LayoutRow(cw, 2)
			b.WriteString(components.CardRow([]string{
				components.ContentCard("Command", cmd.String(), widths[0]),
				components.ContentCard("Warnings", warn.String(), widths[1]),
			}))
		}
	}

	b.WriteString("\n")
	b.WriteString(components.ContentCard("History", a.renderHistory(cw), cw))
	return b.String()
}

func (a App) renderHistory(cw int) string {
	t := theme.Active
	now := a.backend.Engine.Now()

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(a.data.history) == 0 {
		return dimStyle.Render("No decisions yet.")
	}

	textW := max(components.CardInnerWidth(cw)-48, 10)
	var b strings.Builder
	b.WriteString(headStyle.Render(fmt.Sprintf("%-12s %-9s %-7s %-13s %s", "Computed", "Risk", "Type", "State", "Command")))
	for _, d := range a.data.history {
		b.WriteString("\n")
		risk := lipgloss.NewStyle().Foreground(t.Risk(d.RiskLevel)).Background(t.Surface).
			Render(fmt.Sprintf("%-9s", d.RiskLevel))
		b.WriteString(rowStyle.Render(fmt.Sprintf("%-12s ", d.ComputedAt.Local().Format("Jan 2 15:04"))))
		b.WriteString(risk)
		b.WriteString(rowStyle.Render(fmt.Sprintf(" %-7s %-13s ", d.Command.Type, d.State(now))))
		b.WriteString(dimStyle.Render(truncStr(d.Command.Text, textW)))
	}
	return b.String()
}


func warningColor(k model.WarningKind) lipgloss.Color {
	t := theme.Active
	switch k {
	case model.WarnShortfall:
		return t.Red
	case model.WarnDebt:
		return t.Orange
	default:
		return t.Yellow
	}
}
