// Package risk maps projection outputs onto the ordinal risk scale.
package risk

import (
	"github.com/theirongolddev/finpilot/internal/model"
)

// Thresholds are the cut-offs of the decision table.
type Thresholds struct {
	CriticalDays           int
	DangerDays             int
	WarningDays            int
	HighDangerScore        int
	CautionObligationRatio float64
}

// DefaultThresholds returns the built-in cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalDays:           1,
		DangerDays:             5,
		WarningDays:            10,
		HighDangerScore:        70,
		CautionObligationRatio: 0.5,
	}
}

// Input is the subset of projections the classifier looks at.
type Input struct {
	// DaysUntilZero is nil when the balance never runs out inside the horizon.
	DaysUntilZero        *int
	ObligationsTotal     model.Cents
	ObligationsCount     int
	Balance              model.Cents
	MaxDangerScore       int
	NegativeAmortization bool
}

// Rule names, recorded in decision traces.
const (
	RuleRunwayCritical  = "runway_critical"
	RuleNegativeAmort   = "negative_amortization"
	RuleRunwayDanger    = "runway_danger"
	RuleRunwayWarning   = "runway_warning"
	RuleDebtDanger      = "debt_danger"
	RuleObligationRatio = "obligation_ratio"
	RuleNone            = "none"
)

// Classify evaluates the decision table top to bottom and returns the first
// level that matches, along with the rule that fired.
func Classify(in Input, th Thresholds) (model.RiskLevel, string) {
	within := func(limit int) bool {
		return in.DaysUntilZero != nil && *in.DaysUntilZero <= limit
	}

	switch {
	case within(th.CriticalDays):
		return model.RiskCritical, RuleRunwayCritical
	case in.NegativeAmortization:
		return model.RiskCritical, RuleNegativeAmort
	case within(th.DangerDays):
		return model.RiskDanger, RuleRunwayDanger
	case within(th.WarningDays):
		return model.RiskWarning, RuleRunwayWarning
	case in.MaxDangerScore >= th.HighDangerScore:
		return model.RiskWarning, RuleDebtDanger
	case in.ObligationsCount > 0 && float64(in.ObligationsTotal) > th.CautionObligationRatio*float64(in.Balance):
		return model.RiskCaution, RuleObligationRatio
	}
	return model.RiskSafe, RuleNone
}
