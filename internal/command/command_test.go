package command

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finpilot/internal/model"
)

var asOf = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func bill(id string, amt model.Cents, inDays int) model.ScheduledItem {
	return model.ScheduledItem{ID: id, Kind: model.KindBill, Name: strings.ToUpper(id[:1]) + id[1:], Amount: amt, DueAt: asOf.AddDate(0, 0, inDays), Active: true}
}

func TestGenerate_DangerWithBillFreezes(t *testing.T) {
	zero := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	res := Generate(Input{
		Level: model.RiskDanger,
		Runway: model.RunwayProjection{
			DailyBurnRate:    4000,
			DaysUntilZero:    ptr(5),
			ZeroDate:         &zero,
			SafeToSpendToday: 15000,
		},
		Bills: []model.ScheduledItem{bill("rent", 30000, 5)},
		AsOf:  asOf,
	}, DefaultParams())

	if res.Command.Type != model.CommandFreeze {
		t.Fatalf("Command.Type = %s, want freeze", res.Command.Type)
	}
	for _, want := range []string{"Sun Mar 15", "5 days", "$300.00", "Rent"} {
		if !strings.Contains(res.Command.Text, want) {
			t.Errorf("Command.Text = %q, missing %q", res.Command.Text, want)
		}
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Ref != "bill:rent" {
		t.Fatalf("Warnings = %+v, want only the rent bill", res.Warnings)
	}
	if res.NextAction.Ref != "bill:rent" {
		t.Errorf("NextAction.Ref = %q, want bill:rent", res.NextAction.Ref)
	}
}

func TestGenerate_CriticalPaysGrowingDebt(t *testing.T) {
	growing := model.DebtProjection{
		DebtID: "payday", Name: "Payday loan", CurrentBalance: 500000,
		APRPercent: decimal.NewFromInt(24), MonthlyPayment: 8000, FirstMonthInterest: 10000,
		NegativeAmortization: true, DangerScore: 100,
	}
	res := Generate(Input{
		Level:  model.RiskCritical,
		Runway: model.RunwayProjection{SafeToSpendToday: 50000},
		Debts:  []model.DebtProjection{growing},
		AsOf:   asOf,
	}, DefaultParams())

	if res.Command.Type != model.CommandPay || res.Command.Target != "debt:payday" {
		t.Fatalf("Command = %+v, want pay toward payday", res.Command)
	}
	if res.Command.Amount == nil || *res.Command.Amount != 2001 {
		t.Fatalf("Command.Amount = %v, want 2001", res.Command.Amount)
	}
	for _, w := range res.Warnings {
		if w.Ref == "debt:payday" {
			t.Errorf("warning duplicates the command target: %+v", w)
		}
	}
}

func TestGenerate_CriticalUnaffordableShortfallFreezes(t *testing.T) {
	growing := model.DebtProjection{
		DebtID: "payday", Name: "Payday loan", CurrentBalance: 500000,
		MonthlyPayment: 0, FirstMonthInterest: 10000, NegativeAmortization: true, DangerScore: 100,
	}
	res := Generate(Input{
		Level:  model.RiskCritical,
		Runway: model.RunwayProjection{SafeToSpendToday: 500},
		Debts:  []model.DebtProjection{growing},
		AsOf:   asOf,
	}, DefaultParams())
	if res.Command.Type != model.CommandFreeze {
		t.Fatalf("Command.Type = %s, want freeze", res.Command.Type)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Kind != model.WarnDebt {
		t.Fatalf("Warnings = %+v, want the growing debt", res.Warnings)
	}
}

func TestGenerate_WarningPaysTopDebt(t *testing.T) {
	debts := []model.DebtProjection{
		{DebtID: "card", Name: "Store card", CurrentBalance: 400000, APRPercent: decimal.RequireFromString("29.99"), MinimumPayment: ptr(model.Cents(12000)), MonthlyPayment: 12000, DangerScore: 78},
		{DebtID: "auto", Name: "Car loan", CurrentBalance: 900000, APRPercent: decimal.RequireFromString("6.5"), MonthlyPayment: 30000, DangerScore: 40},
	}
	res := Generate(Input{
		Level:  model.RiskWarning,
		Runway: model.RunwayProjection{SafeToSpendToday: 60000},
		Debts:  debts,
		AsOf:   asOf,
	}, DefaultParams())
	if res.Command.Type != model.CommandPay || res.Command.Target != "debt:card" {
		t.Fatalf("Command = %+v, want pay toward card", res.Command)
	}
	if *res.Command.Amount != 30000 {
		t.Errorf("Amount = %d, want half of safe-to-spend", *res.Command.Amount)
	}
}

func TestGenerate_WarningWithoutDebtSaves(t *testing.T) {
	res := Generate(Input{
		Level:  model.RiskWarning,
		Runway: model.RunwayProjection{SafeToSpendToday: 60000, DaysUntilZero: ptr(9), ZeroDate: ptr(asOf.AddDate(0, 0, 9))},
		Bills:  []model.ScheduledItem{bill("phone", 4500, 2), bill("power", 9000, 8), bill("insurance", 20000, 25)},
		AsOf:   asOf,
	}, DefaultParams())
	if res.Command.Type != model.CommandSave {
		t.Fatalf("Command.Type = %s, want save", res.Command.Type)
	}
	if *res.Command.Amount != 13500 {
		t.Errorf("Amount = %d, want 13500", *res.Command.Amount)
	}
	if len(res.Warnings) != 2 || res.Warnings[0].Kind != model.WarnShortfall || res.Warnings[1].Ref != "bill:power" {
		t.Errorf("Warnings = %+v, want shortfall then power bill", res.Warnings)
	}
	if res.NextAction.Ref != "bill:phone" {
		t.Errorf("NextAction.Ref = %q, want the next bill", res.NextAction.Ref)
	}
}

func TestGenerate_SafeSpendsOrWaits(t *testing.T) {
	spend := Generate(Input{Level: model.RiskSafe, Runway: model.RunwayProjection{SafeToSpendToday: 12345, SafeToSpendWeek: 8000, ObservedDays: 30}, AsOf: asOf}, DefaultParams())
	if spend.Command.Type != model.CommandSpend || *spend.Command.Amount != 12345 {
		t.Fatalf("Command = %+v, want spend 12345", spend.Command)
	}
	if !strings.Contains(spend.Command.Text, "$123.45") {
		t.Errorf("Command.Text = %q", spend.Command.Text)
	}

	wait := Generate(Input{Level: model.RiskSafe, Runway: model.RunwayProjection{SafeToSpendToday: 12345, LowConfidence: true}, AsOf: asOf}, DefaultParams())
	if wait.Command.Type != model.CommandWait {
		t.Fatalf("low confidence Command.Type = %s, want wait", wait.Command.Type)
	}

	broke := Generate(Input{Level: model.RiskSafe, Runway: model.RunwayProjection{}, AsOf: asOf}, DefaultParams())
	if broke.Command.Type != model.CommandWait {
		t.Fatalf("nothing to spend Command.Type = %s, want wait", broke.Command.Type)
	}
}

func TestGenerate_AtMostTwoWarnings(t *testing.T) {
	debts := []model.DebtProjection{
		{DebtID: "a", Name: "A", CurrentBalance: 1, DangerScore: 90},
		{DebtID: "b", Name: "B", CurrentBalance: 1, DangerScore: 85},
		{DebtID: "c", Name: "C", CurrentBalance: 1, DangerScore: 60},
	}
	res := Generate(Input{
		Level:  model.RiskCaution,
		Runway: model.RunwayProjection{DaysUntilZero: ptr(20), ZeroDate: ptr(asOf.AddDate(0, 0, 20))},
		Debts:  debts,
		Bills:  []model.ScheduledItem{bill("rent", 100000, 3)},
		AsOf:   asOf,
	}, DefaultParams())
	if len(res.Warnings) != MaxWarnings {
		t.Fatalf("len(Warnings) = %d, want %d", len(res.Warnings), MaxWarnings)
	}
	if res.Warnings[0].Kind != model.WarnShortfall {
		t.Errorf("first warning = %s, want shortfall", res.Warnings[0].Kind)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	in := Input{
		Level:  model.RiskCaution,
		Runway: model.RunwayProjection{SafeToSpendToday: 1000, WeeklyBurnRate: 7000},
		Bills:  []model.ScheduledItem{bill("water", 3000, 4), bill("gas", 3000, 4)},
		AsOf:   asOf,
	}
	first := Generate(in, DefaultParams())
	for i := 0; i < 50; i++ {
		got := Generate(in, DefaultParams())
		if got.Command.Text != first.Command.Text || got.NextAction != first.NextAction || len(got.Warnings) != len(first.Warnings) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
		for j := range got.Warnings {
			if got.Warnings[j] != first.Warnings[j] {
				t.Fatalf("run %d warning %d differs", i, j)
			}
		}
	}
}
