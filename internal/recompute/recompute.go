// Package recompute decides whether a proposed change set warrants a fresh decision.
package recompute

import (
	"github.com/theirongolddev/finpilot/internal/model"
)

// TransactionChanges groups transaction edits by kind.
type TransactionChanges struct {
	Created []model.Transaction `json:"created,omitempty"`
	Updated []model.Transaction `json:"updated,omitempty"`
	Deleted []string            `json:"deleted,omitempty"`
}

// ChangeSet is a batch of proposed changes to a user's finances.
type ChangeSet struct {
	Transactions TransactionChanges    `json:"transactions"`
	Income       []model.ScheduledItem `json:"income,omitempty"`
	Debts        []model.Debt          `json:"debts,omitempty"`
	Bills        []model.ScheduledItem `json:"bills,omitempty"`
	Imports      []string              `json:"imports,omitempty"`
}

// Change categories, as reported by Categories.
const (
	CategoryTransactions = "transactions"
	CategoryIncome       = "income"
	CategoryDebts        = "debts"
	CategoryBills        = "bills"
	CategoryImports      = "imports"
)

// Categories lists the non-empty categories in a stable order.
func (c ChangeSet) Categories() []string {
	var out []string
	t := c.Transactions
	if len(t.Created)+len(t.Updated)+len(t.Deleted) > 0 {
		out = append(out, CategoryTransactions)
	}
	if len(c.Income) > 0 {
		out = append(out, CategoryIncome)
	}
	if len(c.Debts) > 0 {
		out = append(out, CategoryDebts)
	}
	if len(c.Bills) > 0 {
		out = append(out, CategoryBills)
	}
	if len(c.Imports) > 0 {
		out = append(out, CategoryImports)
	}
	return out
}

// Size is the total number of changed entities.
func (c ChangeSet) Size() int {
	t := c.Transactions
	return len(t.Created) + len(t.Updated) + len(t.Deleted) +
		len(c.Income) + len(c.Debts) + len(c.Bills) + len(c.Imports)
}

// ShouldRecompute reports whether any category of the change set is non-empty.
func ShouldRecompute(c ChangeSet) bool {
	return c.Size() > 0
}

// Merge appends other's changes to c.
func (c *ChangeSet) Merge(other ChangeSet) {
	c.Transactions.Created = append(c.Transactions.Created, other.Transactions.Created...)
	c.Transactions.Updated = append(c.Transactions.Updated, other.Transactions.Updated...)
	c.Transactions.Deleted = append(c.Transactions.Deleted, other.Transactions.Deleted...)
	c.Income = append(c.Income, other.Income...)
	c.Debts = append(c.Debts, other.Debts...)
	c.Bills = append(c.Bills, other.Bills...)
	c.Imports = append(c.Imports, other.Imports...)
}
