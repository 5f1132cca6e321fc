package changefeed

import "github.com/shopspring/decimal"

// Record types accepted in a change feed.
const (
	TypeTransactionCreated = "transaction.created"
	TypeTransactionUpdated = "transaction.updated"
	TypeTransactionDeleted = "transaction.deleted"
	TypeDebtUpserted       = "debt.upserted"
	TypeBillUpserted       = "bill.upserted"
	TypeIncomeUpserted     = "income.upserted"
	TypeImportBatch        = "import.batch"
)

// RawEntry is a single line of a change feed file. Amounts are in major
// currency units and may be JSON strings or numbers.
type RawEntry struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	ID   string `json:"id"`

	// transaction.*
	AccountID   string           `json:"account_id,omitempty"`
	PostedAt    string           `json:"posted_at,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`

	// debt.upserted
	Name           string           `json:"name,omitempty"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
	APRPercent     *decimal.Decimal `json:"apr_percent,omitempty"`
	MinimumPayment *decimal.Decimal `json:"minimum_payment,omitempty"`
	ExtraPayment   *decimal.Decimal `json:"extra_payment,omitempty"`

	// bill.upserted, income.upserted
	DueAt  string `json:"due_at,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// DiscoveredFile is a change feed file found on disk.
type DiscoveredFile struct {
	Path string
	// Batch defaults to the file name without extension.
	Batch string
}
