// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finpilot/internal/model"
)

// FormatCents formats an amount with currency sign and separators.
// e.g., 123456 -> "$1,234.56", -1250 -> "-$12.50"
func FormatCents(c model.Cents) string {
	return c.Dollars()
}

// FormatCentsShort formats an amount compactly for narrow columns.
// e.g., 123456789 -> "$1.2M", 250000 -> "$2.5K", 4599 -> "$45.99"
func FormatCentsShort(c model.Cents) string {
	sign := ""
	if c < 0 {
		sign = "-"
	}
	whole := float64(c.Abs()) / 100

	switch {
	case whole >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", sign, whole/1_000_000)
	case whole >= 10_000:
		return fmt.Sprintf("%s$%.1fK", sign, whole/1_000)
	default:
		return c.Dollars()
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a percentage value (already 0-100).
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatAPR formats an APR percentage, dropping trailing zeros.
func FormatAPR(apr decimal.Decimal) string {
	return apr.Round(2).String() + "%"
}

// FormatDays formats a runway length. Nil means cash never runs out within
// the horizon.
func FormatDays(days *int) string {
	switch {
	case days == nil:
		return "beyond horizon"
	case *days == 0:
		return "today"
	case *days == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", *days)
	}
}

// FormatMonths formats a payoff duration.
// e.g., 7 -> "7 mo", 30 -> "2y 6m"
func FormatMonths(m int) string {
	if m < 12 {
		return fmt.Sprintf("%d mo", m)
	}
	if m%12 == 0 {
		return fmt.Sprintf("%dy", m/12)
	}
	return fmt.Sprintf("%dy %dm", m/12, m%12)
}

// FormatDate formats an optional date, or "-" when unset.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("Mon Jan 2, 2006")
}

// FormatAge formats how long ago t was, relative to now.
// e.g., 45s -> "just now", 3725s -> "1h 2m ago"
func FormatAge(t, now time.Time) string {
	secs := int64(now.Sub(t).Seconds())
	if secs < 60 {
		return "just now"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours >= 48 {
		return fmt.Sprintf("%dd ago", hours/24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm ago", hours, mins)
	}
	return fmt.Sprintf("%dm ago", mins)
}

// FormatUntil formats the time left before t. Past times are "expired".
func FormatUntil(t, now time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return "expired"
	}
	hours := int64(d.Hours())
	mins := int64(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", max(mins, 1))
}
