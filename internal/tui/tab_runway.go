package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/risk"
	"github.com/theirongolddev/finpilot/internal/runway"
	"github.com/theirongolddev/finpilot/internal/tui/components"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

func (a App) renderRunwayTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	snap := a.data.runway
	if snap == nil {
		return components.ContentCard("Runway", dimStyle.Render("No runway computed yet. Press [r] to compute."), cw)
	}
	p := snap.Projection

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Runway", Value: cli.FormatDays(p.DaysUntilZero), Delta: cli.FormatDate(p.ZeroDate), Color: a.runwayColor(p.DaysUntilZero)},
		{Label: "Safe Today", Value: cli.FormatCents(p.SafeToSpendToday)},
		{Label: "Safe This Week", Value: cli.FormatCents(p.SafeToSpendWeek)},
		{Label: "Burn", Value: cli.FormatCents(p.DailyBurnRate) + "/day", Delta: cli.FormatCents(p.WeeklyBurnRate) + "/wk"},
	}, cw))
	b.WriteString("\n")

	var chart strings.Builder
	if len(p.Trajectory) == 0 {
		chart.WriteString(dimStyle.Render("No trajectory recorded."))
	} else {
		start := runway.StartOfDay(snap.ComputedAt.Local())
		chartH := 8
		if a.isCompactLayout() {
			chartH = 6
		}
		chart.WriteString(components.BalanceChart(p.Trajectory, dayLabels(start, len(p.Trajectory)),
			t.Blue, components.CardInnerWidth(cw), chartH))
	}
	b.WriteString(components.ContentCard("Projected Balance", chart.String(), cw))
	b.WriteString("\n")

	var detail strings.Builder
	kv := func(label, value string) {
		if detail.Len() > 0 {
			detail.WriteString("\n")
		}
		detail.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(value))
	}
	kv("Upcoming bills", fmt.Sprintf("%s (%d)", cli.FormatCents(p.UpcomingBillsTotal), p.UpcomingBillsCount))
	kv("Next income", cli.FormatDate(p.NextIncomeDate))
	kv("Observed days", cli.FormatNumber(int64(p.ObservedDays)))
	kv("Computed", cli.FormatAge(snap.ComputedAt, a.backend.Engine.Now()))
	if p.LowConfidence {
		detail.WriteString("\n\n")
		detail.WriteString(warnStyle.Render("Low confidence: too few days of spending history."))
	}
	b.WriteString(components.ContentCard("Details", detail.String(), cw))
	return b.String()
}

// runwayColor colors the runway length by the risk it alone would carry.
func (a App) runwayColor(days *int) lipgloss.Color {
	if days == nil {
		return theme.Active.Green
	}
	level, _ := risk.Classify(risk.Input{DaysUntilZero: days}, a.backend.Engine.Config().Risk)
	return theme.Active.Risk(level)
}
