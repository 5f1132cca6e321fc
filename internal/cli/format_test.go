package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finpilot/internal/model"
)

func TestFormatCentsShort(t *testing.T) {
	tests := []struct {
		in   model.Cents
		want string
	}{
		{4599, "$45.99"},
		{999999, "$9,999.99"},
		{2500000, "$25.0K"},
		{-2500000, "-$25.0K"},
		{123456789, "$1.2M"},
	}
	for _, tt := range tests {
		if got := FormatCentsShort(tt.in); got != tt.want {
			t.Errorf("FormatCentsShort(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4200: "-4,200"}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDays(t *testing.T) {
	zero, one, five := 0, 1, 5
	tests := []struct {
		in   *int
		want string
	}{
		{nil, "beyond horizon"},
		{&zero, "today"},
		{&one, "1 day"},
		{&five, "5 days"},
	}
	for _, tt := range tests {
		if got := FormatDays(tt.in); got != tt.want {
			t.Errorf("FormatDays = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatMonthsAndAPR(t *testing.T) {
	if got := FormatMonths(7); got != "7 mo" {
		t.Errorf("FormatMonths(7) = %q", got)
	}
	if got := FormatMonths(24); got != "2y" {
		t.Errorf("FormatMonths(24) = %q", got)
	}
	if got := FormatMonths(30); got != "2y 6m" {
		t.Errorf("FormatMonths(30) = %q", got)
	}
	if got := FormatAPR(decimal.RequireFromString("24.990")); got != "24.99%" {
		t.Errorf("FormatAPR = %q", got)
	}
}

func TestFormatAgeAndUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := FormatAge(now.Add(-30*time.Second), now); got != "just now" {
		t.Errorf("FormatAge(30s) = %q", got)
	}
	if got := FormatAge(now.Add(-62*time.Minute), now); got != "1h 2m ago" {
		t.Errorf("FormatAge(62m) = %q", got)
	}
	if got := FormatAge(now.Add(-72*time.Hour), now); got != "3d ago" {
		t.Errorf("FormatAge(72h) = %q", got)
	}
	if got := FormatUntil(now.Add(90*time.Minute), now); got != "1h 30m" {
		t.Errorf("FormatUntil(90m) = %q", got)
	}
	if got := FormatUntil(now.Add(-time.Minute), now); got != "expired" {
		t.Errorf("FormatUntil(past) = %q", got)
	}
}

func TestRenderSparkline(t *testing.T) {
	got := RenderSparkline([]model.Cents{-500, 0, 500})
	if got != "▁▄█" {
		t.Fatalf("RenderSparkline = %q, want ▁▄█", got)
	}
	if flat := RenderSparkline([]model.Cents{7, 7}); flat != "▁▁" {
		t.Fatalf("flat sparkline = %q", flat)
	}
	if RenderSparkline(nil) != "" {
		t.Fatal("empty input should render nothing")
	}
}

func TestRenderTableAlignsStyledCells(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Debt", "Risk"},
		Rows: [][]string{
			{"Card", RenderRiskBadge(model.RiskDanger)},
			{"Car loan", "low"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("table has %d lines, want 6:\n%s", len(lines), out)
	}
	w := lipgloss.Width(lines[0])
	for i, l := range lines {
		if lipgloss.Width(l) != w {
			t.Errorf("line %d width = %d, want %d", i, lipgloss.Width(l), w)
		}
	}
}

func TestRenderProgressBarClamps(t *testing.T) {
	if got := RenderProgressBar(150, 10); !strings.Contains(got, "150.0%") {
		t.Fatalf("RenderProgressBar = %q", got)
	}
	if got := RenderScoreBar(-5, 4); lipgloss.Width(got) != 4 {
		t.Fatalf("RenderScoreBar width = %d, want 4", lipgloss.Width(got))
	}
}
