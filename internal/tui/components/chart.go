package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

var blocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a balance series. The lowest value maps to the lowest
// block; values below zero are drawn in the theme's red.
func Sparkline(values []model.Cents, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := float64(hi - lo)
	if span == 0 {
		span = 1
	}

	pos := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	neg := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	var buf strings.Builder
	for _, v := range values {
		idx := min(max(int(float64(v-lo)/span*float64(len(blocks)-1)), 0), len(blocks)-1)
		style := pos
		if v < 0 {
			style = neg
		}
		buf.WriteString(style.Render(string(blocks[idx])))
	}
	return buf.String()
}

// BalanceChart renders projected end-of-day balances as a bar chart with a
// y-axis in currency units. Days at or below zero are marked on the x-axis.
func BalanceChart(values []model.Cents, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	dollars := make([]float64, len(values))
	peak := 0.0
	for i, v := range values {
		dollars[i] = float64(v) / 100
		peak = math.Max(peak, dollars[i])
	}
	if peak == 0 {
		peak = 1
	}

	// Y-axis ticks: a round step with at most height/2 intervals.
	step := chartTickStep(peak)
	for math.Ceil(peak/step) > float64(max(height/2, 2)) {
		step *= 2
	}
	intervals := max(int(math.Round(math.Ceil(peak/step))), 1)
	ceiling := float64(intervals) * step
	rowsPerTick := max(height/intervals, 2)
	chartH := rowsPerTick * intervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	chartW := max(width-yLabelW-1, 5)

	n := len(dollars)
	gap := 1
	if n == 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	if barW < 2 && n > 1 {
		// Too many days for the width: sample evenly.
		keep := max((chartW+1)/3, 2)
		sampled := make([]float64, keep)
		var sampledLabels []string
		if len(labels) == n {
			sampledLabels = make([]string, keep)
		}
		for i := range sampled {
			src := i * (n - 1) / (keep - 1)
			sampled[i] = dollars[src]
			if sampledLabels != nil {
				sampledLabels[i] = labels[src]
			}
		}
		dollars, labels, n, barW = sampled, sampledLabels, keep, 2
	}
	barW = min(barW, 6)
	axisLen := n*barW + max(0, n-1)*gap

	bg := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	partial := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		top := ceiling * float64(row) / float64(chartH)
		bottom := ceiling * float64(row-1) / float64(chartH)

		label := ""
		if row%rowsPerTick == 0 {
			label = formatChartLabel(step * float64(row/rowsPerTick))
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", yLabelW, label)))

		for i, v := range dollars {
			if i > 0 && gap > 0 {
				b.WriteString(bg.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case v >= top:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := min(max(int((v-bottom)/(top-bottom)*8), 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(partial[idx]), barW)))
			default:
				b.WriteString(bg.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	// X-axis, red under days that end at or below zero.
	zeroStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└", yLabelW, "0")))
	for i, v := range dollars {
		if i > 0 && gap > 0 {
			b.WriteString(axisStyle.Render(strings.Repeat("─", gap)))
		}
		if v <= 0 {
			b.WriteString(zeroStyle.Render(strings.Repeat("━", barW)))
		} else {
			b.WriteString(axisStyle.Render(strings.Repeat("─", barW)))
		}
	}

	if len(labels) == n && n > 0 {
		b.WriteString("\n")
		b.WriteString(bg.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(placeLabels(labels, barW, gap, axisLen)))
	}
	return b.String()
}

// placeLabels spreads x-axis labels under their bars without overlap. The
// last label is always shown.
func placeLabels(labels []string, barW, gap, axisLen int) string {
	n := len(labels)
	buf := []byte(strings.Repeat(" ", axisLen))
	step := max(1, (n*8)/(axisLen+1))

	lastEnd := -1
	put := func(pos int, lbl string) {
		end := min(pos+len(lbl), axisLen)
		if pos <= lastEnd || end-pos < 1 {
			return
		}
		copy(buf[pos:end], lbl[:end-pos])
		lastEnd = end
	}
	for i := 0; i < n-1; i += step {
		put(i*(barW+gap), labels[i])
	}
	if n > 0 {
		lbl := labels[n-1]
		pos := max(min((n-1)*(barW+gap), axisLen-len(lbl)), 0)
		if pos > lastEnd {
			put(pos, lbl)
		}
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a round tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))

	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	unit := func(div float64, suffix string) string {
		if v == math.Trunc(v/div)*div {
			return fmt.Sprintf("$%.0f%s", v/div, suffix)
		}
		return fmt.Sprintf("$%.1f%s", v/div, suffix)
	}
	switch {
	case v >= 1e6:
		return unit(1e6, "M")
	case v >= 1e3:
		return unit(1e3, "k")
	case v >= 1:
		return fmt.Sprintf("$%.0f", v)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}
