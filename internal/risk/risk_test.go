package risk

import (
	"testing"

	"github.com/theirongolddev/finpilot/internal/model"
)

func days(n int) *int { return &n }

func TestClassify_Table(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name string
		in   Input
		want model.RiskLevel
		rule string
	}{
		{"out today", Input{DaysUntilZero: days(0)}, model.RiskCritical, RuleRunwayCritical},
		{"out tomorrow", Input{DaysUntilZero: days(1)}, model.RiskCritical, RuleRunwayCritical},
		{"growing debt", Input{NegativeAmortization: true, Balance: 900000}, model.RiskCritical, RuleNegativeAmort},
		{"five days", Input{DaysUntilZero: days(5)}, model.RiskDanger, RuleRunwayDanger},
		{"ten days", Input{DaysUntilZero: days(10)}, model.RiskWarning, RuleRunwayWarning},
		{"dangerous debt", Input{MaxDangerScore: 70, Balance: 900000}, model.RiskWarning, RuleDebtDanger},
		{"heavy bills", Input{ObligationsTotal: 60000, ObligationsCount: 2, Balance: 100000}, model.RiskCaution, RuleObligationRatio},
		{"light bills", Input{ObligationsTotal: 40000, ObligationsCount: 2, Balance: 100000}, model.RiskSafe, RuleNone},
		{"far runway", Input{DaysUntilZero: days(25), Balance: 100000}, model.RiskSafe, RuleNone},
		{"nothing", Input{}, model.RiskSafe, RuleNone},
	}
	for _, tt := range tests {
		got, rule := Classify(tt.in, th)
		if got != tt.want || rule != tt.rule {
			t.Errorf("%s: Classify = %s/%s, want %s/%s", tt.name, got, rule, tt.want, tt.rule)
		}
	}
}

func TestClassify_MonotonicInRunway(t *testing.T) {
	th := DefaultThresholds()
	for _, base := range []Input{
		{Balance: 100000},
		{Balance: 100000, MaxDangerScore: 80},
		{Balance: 100000, ObligationsTotal: 90000, ObligationsCount: 3},
	} {
		prev := model.RiskCritical
		for d := 0; d <= 40; d++ {
			in := base
			in.DaysUntilZero = days(d)
			got, _ := Classify(in, th)
			if got > prev {
				t.Fatalf("risk rose from %s to %s as runway grew to %d days", prev, got, d)
			}
			prev = got
		}
		never := base
		if got, _ := Classify(never, th); got > prev {
			t.Fatalf("unbounded runway risk %s above %s", got, prev)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := Input{DaysUntilZero: days(7), ObligationsTotal: 1, ObligationsCount: 1, Balance: 10, MaxDangerScore: 55}
	first, rule := Classify(in, DefaultThresholds())
	for i := 0; i < 100; i++ {
		if got, r := Classify(in, DefaultThresholds()); got != first || r != rule {
			t.Fatalf("run %d: %s/%s, want %s/%s", i, got, r, first, rule)
		}
	}
}

func TestClassify_ThresholdsAreConfigurable(t *testing.T) {
	th := DefaultThresholds()
	th.DangerDays = 2
	if got, _ := Classify(Input{DaysUntilZero: days(5)}, th); got != model.RiskWarning {
		t.Fatalf("Classify = %s, want warning with DangerDays=2", got)
	}
}
