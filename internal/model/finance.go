package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformed marks an entity that cannot take part in a projection.
var ErrMalformed = errors.New("malformed entity")

// Account is a cash account contributing to the spendable balance.
type Account struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Balance Cents  `json:"balance"`
}

// Transaction is one posted money movement. Negative amounts are outflows.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AccountID   string    `json:"account_id,omitempty"`
	PostedAt    time.Time `json:"posted_at"`
	Amount      Cents     `json:"amount"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
}

// IsOutflow reports whether money left the account.
func (t Transaction) IsOutflow() bool { return t.Amount < 0 }

// Debt is an active liability.
type Debt struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Balance        Cents           `json:"balance"`
	APRPercent     decimal.Decimal `json:"apr_percent"`
	MinimumPayment *Cents          `json:"minimum_payment,omitempty"`
	ExtraPayment   Cents           `json:"extra_payment,omitempty"`

	// Latest projection, overwritten on every decision computation.
	Projection *DebtProjection `json:"projection,omitempty"`
}

var maxAPR = decimal.NewFromInt(1000)

// Validate reports whether the debt can be projected.
func (d Debt) Validate() error {
	switch {
	case d.ID == "":
		return fmt.Errorf("debt %q: missing id: %w", d.Name, ErrMalformed)
	case d.APRPercent.IsNegative():
		return fmt.Errorf("debt %s: negative apr %s: %w", d.ID, d.APRPercent, ErrMalformed)
	case d.APRPercent.GreaterThan(maxAPR):
		return fmt.Errorf("debt %s: apr %s out of range: %w", d.ID, d.APRPercent, ErrMalformed)
	case d.MinimumPayment != nil && *d.MinimumPayment < 0:
		return fmt.Errorf("debt %s: negative minimum payment: %w", d.ID, ErrMalformed)
	case d.ExtraPayment < 0:
		return fmt.Errorf("debt %s: negative extra payment: %w", d.ID, ErrMalformed)
	}
	return nil
}

// MonthlyPayment is the payment applied each month under current terms.
func (d Debt) MonthlyPayment() Cents {
	p := d.ExtraPayment
	if d.MinimumPayment != nil {
		p += *d.MinimumPayment
	}
	return p
}

// ScheduleKind distinguishes bills from expected income.
type ScheduleKind string

// Scheduled item kinds.
const (
	KindBill   ScheduleKind = "bill"
	KindIncome ScheduleKind = "income"
)

// ScheduledItem is a known future bill or income event.
type ScheduledItem struct {
	ID     string       `json:"id"`
	UserID string       `json:"user_id"`
	Kind   ScheduleKind `json:"kind"`
	Name   string       `json:"name"`
	Amount Cents        `json:"amount"`
	DueAt  time.Time    `json:"due_at"`
	Active bool         `json:"active"`
}

// Validate reports whether the item can be scheduled.
func (s ScheduledItem) Validate() error {
	switch {
	case s.ID == "":
		return fmt.Errorf("%s %q: missing id: %w", s.Kind, s.Name, ErrMalformed)
	case s.Kind != KindBill && s.Kind != KindIncome:
		return fmt.Errorf("scheduled item %s: unknown kind %q: %w", s.ID, s.Kind, ErrMalformed)
	case s.Amount < 0:
		return fmt.Errorf("%s %s: negative amount: %w", s.Kind, s.ID, ErrMalformed)
	case s.DueAt.IsZero():
		return fmt.Errorf("%s %s: missing due date: %w", s.Kind, s.ID, ErrMalformed)
	}
	return nil
}

// Rejection records an entity left out of a computation.
type Rejection struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Snapshot is a point-in-time view of one user's finances.
type Snapshot struct {
	UserID       string
	AsOf         time.Time
	Balance      Cents
	Accounts     []Account
	Transactions []Transaction
	Debts        []Debt
	Scheduled    []ScheduledItem
	Rejected     []Rejection
}

// Empty reports whether there is nothing to base a decision on.
func (s Snapshot) Empty() bool {
	return len(s.Accounts) == 0 && len(s.Transactions) == 0
}

// Bills returns active scheduled bills.
func (s Snapshot) Bills() []ScheduledItem {
	return s.scheduled(KindBill)
}

// Incomes returns active scheduled income events.
func (s Snapshot) Incomes() []ScheduledItem {
	return s.scheduled(KindIncome)
}

func (s Snapshot) scheduled(kind ScheduleKind) []ScheduledItem {
	var out []ScheduledItem
	for _, it := range s.Scheduled {
		if it.Active && it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// Clone returns a deep copy so callers can derive values without touching the original.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Accounts = append([]Account(nil), s.Accounts...)
	c.Transactions = append([]Transaction(nil), s.Transactions...)
	c.Scheduled = append([]ScheduledItem(nil), s.Scheduled...)
	c.Rejected = append([]Rejection(nil), s.Rejected...)
	c.Debts = make([]Debt, len(s.Debts))
	for i, d := range s.Debts {
		if d.MinimumPayment != nil {
			m := *d.MinimumPayment
			d.MinimumPayment = &m
		}
		d.Projection = nil
		c.Debts[i] = d
	}
	if s.Debts == nil {
		c.Debts = nil
	}
	return c
}
