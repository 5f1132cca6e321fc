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

func (a App) renderGoalsTab(cw int) string {
	t := theme.Active

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	orangeStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	goals := a.data.goals
	if len(goals) == 0 {
		return components.ContentCard("Goals", dimStyle.Render("No savings goals. Add one with `finpilot goal add`."), cw)
	}

	var saved, target model.Cents
	onTrack := 0
	for _, g := range goals {
		saved += g.Current
		target += g.Target
		if g.Progress.OnTrack {
			onTrack++
		}
	}
	pct := 0.0
	if target > 0 {
		pct = float64(saved) / float64(target) * 100
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Saved", Value: cli.FormatCentsShort(saved), Delta: "of " + cli.FormatCentsShort(target)},
		{Label: "Overall", Value: cli.FormatPercent(pct)},
		{Label: "On Track", Value: fmt.Sprintf("%d / %d", onTrack, len(goals)), Color: t.Green},
	}, cw))
	b.WriteString("\n")

	barW := max(components.CardInnerWidth(cw)-40, 10)

	var list strings.Builder
	for i, g := range goals {
		if i > 0 {
			list.WriteString("\n\n")
		}
		marker, style := "  ", nameStyle
		if i == a.goalCursor {
			marker, style = "▸ ", selStyle
		}
		list.WriteString(style.Render(marker + g.Name))
		list.WriteString(labelStyle.Render(fmt.Sprintf("  %s / %s", cli.FormatCents(g.Current), cli.FormatCents(g.Target))))
		list.WriteString("\n  ")
		list.WriteString(components.ProgressBar(g.Progress.ProgressPercent/100, barW))

		list.WriteString("\n  ")
		switch {
		case g.Status == model.GoalCompleted:
			list.WriteString(greenStyle.Render("completed"))
		case g.TargetDate == nil:
			list.WriteString(dimStyle.Render("no target date"))
		case g.Progress.OnTrack:
			list.WriteString(greenStyle.Render("on track"))
		default:
			list.WriteString(orangeStyle.Render(fmt.Sprintf("behind: expected %s", cli.FormatPercent(g.Progress.ExpectedPercent))))
		}
		if g.TargetDate != nil {
			list.WriteString(labelStyle.Render("  due ") + valueStyle.Render(cli.FormatDate(g.TargetDate)))
		}
		if g.Progress.RecommendedMonthlyContribution > 0 {
			list.WriteString(labelStyle.Render("  save ") +
				valueStyle.Render(cli.FormatCents(g.Progress.RecommendedMonthlyContribution)) +
				labelStyle.Render("/mo"))
		}
		if g.Progress.ProjectedCompletionDate != nil && g.Status != model.GoalCompleted {
			list.WriteString(labelStyle.Render("  projected ") + valueStyle.Render(cli.FormatDate(g.Progress.ProjectedCompletionDate)))
		}
	}
	b.WriteString(components.ContentCard("Goals", list.String(), cw))
	return b.String()
}
