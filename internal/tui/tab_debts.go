package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finpilot/internal/cli"
	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/tui/components"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

func (a App) renderDebtsTab(cw int) string {
	t := theme.Active

	headStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	redStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	projs := a.data.debts
	if len(projs) == 0 && len(a.data.pending) == 0 {
		return components.ContentCard("Debts", dimStyle.Render("No debts on file."), cw)
	}

	balance, monthly := debt.Totals(projs)
	var negam int
	var interest model.Cents
	for _, p := range projs {
		interest += p.TotalProjectedInterest
		if p.NegativeAmortization {
			negam++
		}
	}
	negColor := t.Green
	if negam > 0 {
		negColor = t.Red
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Total Owed", Value: cli.FormatCentsShort(balance), Delta: fmt.Sprintf("%d debts", len(projs))},
		{Label: "Monthly Payments", Value: cli.FormatCents(monthly)},
		{Label: "Projected Interest", Value: cli.FormatCentsShort(interest)},
		{Label: "Growing", Value: fmt.Sprintf("%d", negam), Delta: "negative amortization", Color: negColor},
	}, cw))
	b.WriteString("\n")

	innerW := components.CardInnerWidth(cw)
	nameW := max(innerW-80, 12)
	barW := 12

	var list strings.Builder
	list.WriteString(headStyle.Render(fmt.Sprintf("%-*s %12s %8s %11s %9s %11s  %s",
		nameW, "Debt", "Balance", "APR", "Payment", "Payoff", "Interest", "Danger")))
	for i, p := range projs {
		list.WriteString("\n")
		payoff := cli.FormatMonths(p.MonthsToPayoff)
		if p.NegativeAmortization {
			payoff = "never"
		} else if p.Extrapolated {
			payoff = "~" + payoff
		}
		style := rowStyle
		if i == a.debtCursor {
			style = selStyle
		}
		list.WriteString(style.Render(fmt.Sprintf("%-*s %12s %8s %11s %9s %11s  ",
			nameW, truncStr(p.Name, nameW),
			cli.FormatCents(p.CurrentBalance),
			cli.FormatAPR(p.APRPercent),
			cli.FormatCents(p.MonthlyPayment),
			payoff,
			cli.FormatCents(p.TotalProjectedInterest))))
		list.WriteString(components.ScoreBar("", p.DangerScore, 0, barW))
	}
	for _, d := range a.data.pending {
		list.WriteString("\n")
		list.WriteString(dimStyle.Render(fmt.Sprintf("%-*s %12s  not yet projected", nameW, truncStr(d.Name, nameW), cli.FormatCents(d.Balance))))
	}
	title := fmt.Sprintf("Debts · %s order", a.backend.Engine.Config().Strategy)
	b.WriteString(components.ContentCard(title, list.String(), cw))

	if a.debtCursor < len(projs) {
		p := projs[a.debtCursor]
		var detail strings.Builder
		detail.WriteString(rowStyle.Render(debt.Describe(p)))
		detail.WriteString("\n")
		detail.WriteString(labelStyle.Render("First month interest: ") + rowStyle.Render(cli.FormatCents(p.FirstMonthInterest)))
		if p.MinimumPayment != nil {
			detail.WriteString("\n")
			detail.WriteString(labelStyle.Render("Minimum payment:      ") + rowStyle.Render(cli.FormatCents(*p.MinimumPayment)))
		}
		if p.PayoffDate != nil && !p.NegativeAmortization {
			detail.WriteString("\n")
			detail.WriteString(labelStyle.Render("Payoff date:          ") + rowStyle.Render(cli.FormatDate(p.PayoffDate)))
		}
		if p.NegativeAmortization {
			detail.WriteString("\n\n")
			detail.WriteString(redStyle.Render(fmt.Sprintf("Balance grows every month. Pay at least %s more.", cli.FormatCents(p.Shortfall()))))
		}
		if p.Extrapolated {
			detail.WriteString("\n\n")
			detail.WriteString(dimStyle.Render("Payoff is estimated beyond the simulation limit."))
		}
		b.WriteString("\n")
		b.WriteString(components.ContentCard(p.Name, detail.String(), cw))
	}
	return b.String()
}
