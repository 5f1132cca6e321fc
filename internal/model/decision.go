package model

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel is the ordinal risk scale. Higher values are riskier.
type RiskLevel int

// Risk levels in ascending order of severity.
const (
	RiskSafe RiskLevel = iota
	RiskCaution
	RiskWarning
	RiskDanger
	RiskCritical
)

var riskNames = [...]string{"safe", "caution", "warning", "danger", "critical"}

func (r RiskLevel) String() string {
	if r < RiskSafe || r > RiskCritical {
		return fmt.Sprintf("risk(%d)", int(r))
	}
	return riskNames[r]
}

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool { return r >= other }

// ParseRiskLevel parses a level name, case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for i, name := range riskNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return RiskLevel(i), nil
		}
	}
	return RiskSafe, fmt.Errorf("unknown risk level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(b []byte) error {
	lvl, err := ParseRiskLevel(string(b))
	if err != nil {
		return err
	}
	*r = lvl
	return nil
}

// CommandType is the kind of instruction a decision gives.
type CommandType string

// Command types.
const (
	CommandPay    CommandType = "pay"
	CommandSave   CommandType = "save"
	CommandSpend  CommandType = "spend"
	CommandFreeze CommandType = "freeze"
	CommandWait   CommandType = "wait"
)

// Command is the single primary instruction of a decision.
type Command struct {
	Type   CommandType `json:"type"`
	Text   string      `json:"text"`
	Amount *Cents      `json:"amount,omitempty"`
	Target string      `json:"target,omitempty"`
	Date   *time.Time  `json:"date,omitempty"`
}

// WarningKind identifies the source of a warning.
type WarningKind string

// Warning kinds.
const (
	WarnShortfall WarningKind = "shortfall"
	WarnBill      WarningKind = "bill"
	WarnDebt      WarningKind = "debt"
)

// Warning is a secondary alert attached to a decision.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Ref      string      `json:"ref"`
	Text     string      `json:"text"`
	Severity int         `json:"severity"`
}

// NextAction points the user at one concrete follow-up.
type NextAction struct {
	Text string `json:"text"`
	Ref  string `json:"ref,omitempty"`
}

// TraceVersion is bumped whenever the set or meaning of signals changes.
const TraceVersion = 1

// Signal is one input that contributed to a decision.
type Signal struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Trace records why a decision came out the way it did. Internal only.
type Trace struct {
	Version   int         `json:"version"`
	InputHash string      `json:"input_hash"`
	Signals   []Signal    `json:"signals"`
	Omitted   []Rejection `json:"omitted,omitempty"`
}

// Signal returns the named signal, if present.
func (t Trace) Signal(name string) (Signal, bool) {
	for _, s := range t.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}

// DecisionState is the lifecycle state of a decision instance.
type DecisionState string

// Decision states.
const (
	StateComputed     DecisionState = "computed"
	StateAcknowledged DecisionState = "acknowledged"
	StateExpired      DecisionState = "expired"
)

// Decision is the time-boxed instruction produced for a user.
type Decision struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Seq            int64      `json:"seq"`
	RiskLevel      RiskLevel  `json:"risk_level"`
	Command        Command    `json:"command"`
	Warnings       []Warning  `json:"warnings"`
	NextAction     NextAction `json:"next_action"`
	Basis          Trace      `json:"-"`
	ComputedAt     time.Time  `json:"computed_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	IsLocked       bool       `json:"is_locked"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// DecisionRecord is everything persisted atomically for one computation.
type DecisionRecord struct {
	Decision Decision
	Runway   RunwayProjection
	Debts    []DebtProjection
}

// Expired reports whether now is past the decision's expiry. A decision is
// still valid at exactly ExpiresAt.
func (d Decision) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}

// State derives the lifecycle state at now. Acknowledgement wins over expiry.
func (d Decision) State(now time.Time) DecisionState {
	switch {
	case d.AcknowledgedAt != nil:
		return StateAcknowledged
	case d.Expired(now):
		return StateExpired
	default:
		return StateComputed
	}
}
