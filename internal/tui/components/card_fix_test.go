package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	// Padding under the short card must carry background styling.
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes: %q", i, lines[i])
		}
	}
}

func TestCardRowWidthConsistency(t *testing.T) {
	theme.SetActive("flexoki-dark")

	joined := CardRow([]string{
		ContentCard("Tall", "A\nB\nC\nD\nE\nF", 20),
		ContentCard("Short", "A", 30),
	})
	lines := strings.Split(joined, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 50 {
			t.Errorf("line %d width = %d, want 50", i, w)
		}
	}
}

func TestMetricCardRowFillsWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Runway", Value: "5 days", Color: theme.Active.Red},
		{Label: "Safe today", Value: "$150.00"},
		{Label: "Burn", Value: "$40.00/day", Delta: "30 days observed"},
	}, 91)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 91 {
			t.Errorf("line %d width = %d, want 91", i, w)
		}
	}
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	if len(got) != 3 || got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Fatalf("LayoutRow(10, 3) = %v, want [4 3 3]", got)
	}
	if LayoutRow(10, 0) != nil {
		t.Fatal("LayoutRow with n=0 should be nil")
	}
}

func TestBalanceChartMarksZeroDays(t *testing.T) {
	theme.SetActive("terminal")
	defer theme.SetActive("flexoki-dark")

	chart := BalanceChart([]model.Cents{50000, 30000, 0, -10000}, []string{"Mar", "11", "12", "13"}, theme.Active.Blue, 40, 6)
	if !strings.Contains(chart, "━") {
		t.Fatalf("chart has no zero-day marker:\n%s", chart)
	}
	if !strings.Contains(chart, "$600") {
		t.Fatalf("chart has no top tick label:\n%s", chart)
	}
	if !strings.Contains(chart, "13") {
		t.Fatalf("chart lost the last x label:\n%s", chart)
	}
}

func TestScoreBarWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	bar := ScoreBar("Credit card", 82, 10, 20)
	if w := lipgloss.Width(bar); w != 10+1+20+1+3 {
		t.Fatalf("ScoreBar width = %d, want 35", w)
	}
}

func TestTabVisualWidth(t *testing.T) {
	tests := []struct {
		tab    Tab
		active bool
		want   int
	}{
		{Tabs[0], true, len("Decision") + 2},
		{Tabs[0], false, len("Decision") + 4},
		{Tabs[4], false, len("Settings") + 5},
	}
	for _, tt := range tests {
		if got := TabVisualWidth(tt.tab, tt.active); got != tt.want {
			t.Errorf("TabVisualWidth(%s, %v) = %d, want %d", tt.tab.Name, tt.active, got, tt.want)
		}
	}
	if TabIdxByKey('g') != 3 || TabIdxByKey('a') != -1 {
		t.Fatal("TabIdxByKey mismatch")
	}
}
