package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/theirongolddev/finpilot/internal/debt"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/risk"
)

// Signal names recorded in decision traces.
const (
	SignalDaysUntilZero     = "runway.days_until_zero"
	SignalDailyBurn         = "runway.daily_burn_cents"
	SignalSafeToSpend       = "runway.safe_to_spend_cents"
	SignalUpcomingBills     = "runway.upcoming_bills_cents"
	SignalLowConfidence     = "runway.low_confidence"
	SignalMaxDanger         = "debt.max_danger_score"
	SignalNegativeAmort     = "debt.negative_amortization"
	SignalDebtAPRPrefix     = "debt.apr:"
	SignalDebtDangerPrefix  = "debt.danger:"
	SignalRiskLevel         = "risk.level"
	SignalRiskRulePrefix    = "risk.rule:"
	noRunwayExhaustionValue = -1
)

type traceInput struct {
	snapshot model.Snapshot
	runway   model.RunwayProjection
	debts    []model.DebtProjection
	risk     risk.Input
	level    model.RiskLevel
	rule     string
	omitted  []model.Rejection
	debtCfg  debt.Params
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func buildTrace(in traceInput) model.Trace {
	days := float64(noRunwayExhaustionValue)
	if in.runway.DaysUntilZero != nil {
		days = float64(*in.runway.DaysUntilZero)
	}
	signals := []model.Signal{
		{Name: SignalDaysUntilZero, Value: days, Weight: 1},
		{Name: SignalDailyBurn, Value: float64(in.runway.DailyBurnRate), Weight: 1},
		{Name: SignalSafeToSpend, Value: float64(in.runway.SafeToSpendToday), Weight: 1},
		{Name: SignalUpcomingBills, Value: float64(in.runway.UpcomingBillsTotal), Weight: 1},
		{Name: SignalLowConfidence, Value: boolValue(in.runway.LowConfidence), Weight: 1},
		{Name: SignalMaxDanger, Value: float64(in.risk.MaxDangerScore), Weight: 1},
		{Name: SignalNegativeAmort, Value: boolValue(in.risk.NegativeAmortization), Weight: 1},
	}
	for _, d := range in.debts {
		signals = append(signals,
			model.Signal{Name: SignalDebtAPRPrefix + d.DebtID, Value: d.APRPercent.InexactFloat64(), Weight: in.debtCfg.WeightAPR},
			model.Signal{Name: SignalDebtDangerPrefix + d.DebtID, Value: float64(d.DangerScore), Weight: 1},
		)
	}
	signals = append(signals,
		model.Signal{Name: SignalRiskLevel, Value: float64(in.level), Weight: 1},
		model.Signal{Name: SignalRiskRulePrefix + in.rule, Value: 1, Weight: 1},
	)

	return model.Trace{
		Version:   model.TraceVersion,
		InputHash: hashSnapshot(in.snapshot),
		Signals:   signals,
		Omitted:   in.omitted,
	}
}

// hashSnapshot fingerprints the snapshot the decision was computed from.
func hashSnapshot(s model.Snapshot) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
