// Package changefeed parses JSONL files of proposed financial changes into
// recompute change sets.
package changefeed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
)

// ParseResult holds the output of parsing one feed.
type ParseResult struct {
	Changes     recompute.ChangeSet
	Lines       int
	ParseErrors int
	// Skipped counts lines of unknown type or for another user.
	Skipped int
	Err     error
}

// ParseFile reads a change feed file for userID. The file's batch name is
// recorded as an import unless the feed declares its own import.batch.
func ParseFile(df DiscoveredFile, userID string, loc *time.Location) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	res := Parse(f, userID, loc)
	if res.Err == nil && len(res.Changes.Imports) == 0 && df.Batch != "" {
		res.Changes.Imports = []string{df.Batch}
	}
	return res
}

// Parse reads JSONL entries from r. Later entries for the same ID replace
// earlier ones; a deletion drops any earlier create or update of that
// transaction. Malformed lines are counted and skipped.
//
// Entry routing by top-level "type" field:
//   - transaction.* → Transactions
//   - debt.upserted → Debts
//   - bill.upserted, income.upserted → Bills, Income
//   - import.batch → Imports
//   - everything else → skip
func Parse(r io.Reader, userID string, loc *time.Location) ParseResult {
	if loc == nil {
		loc = time.Local
	}
	var (
		res     ParseResult
		created = newKeyed[model.Transaction]()
		updated = newKeyed[model.Transaction]()
		deleted = newKeyed[string]()
		debts   = newKeyed[model.Debt]()
		bills   = newKeyed[model.ScheduledItem]()
		income  = newKeyed[model.ScheduledItem]()
		batches = newKeyed[string]()
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res.Lines++

		entryType := extractTopLevelType(line)
		if entryType == "" {
			res.Skipped++
			continue
		}

		var e RawEntry
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			res.ParseErrors++
			continue
		}
		if e.User != "" && e.User != userID {
			res.Skipped++
			continue
		}

		switch entryType {
		case TypeTransactionCreated, TypeTransactionUpdated:
			t, err := e.transaction(loc)
			if err != nil {
				res.ParseErrors++
				continue
			}
			deleted.remove(t.ID)
			if entryType == TypeTransactionCreated {
				created.put(t.ID, t)
			} else {
				updated.put(t.ID, t)
			}
		case TypeTransactionDeleted:
			created.remove(e.ID)
			updated.remove(e.ID)
			deleted.put(e.ID, e.ID)
		case TypeDebtUpserted:
			d, err := e.debt()
			if err != nil {
				res.ParseErrors++
				continue
			}
			debts.put(d.ID, d)
		case TypeBillUpserted, TypeIncomeUpserted:
			kind := model.KindBill
			if entryType == TypeIncomeUpserted {
				kind = model.KindIncome
			}
			it, err := e.scheduled(kind, loc)
			if err != nil {
				res.ParseErrors++
				continue
			}
			if kind == model.KindBill {
				bills.put(it.ID, it)
			} else {
				income.put(it.ID, it)
			}
		case TypeImportBatch:
			batches.put(e.ID, e.ID)
		}
	}

	if err := scanner.Err(); err != nil {
		return ParseResult{Err: err}
	}

	res.Changes = recompute.ChangeSet{
		Transactions: recompute.TransactionChanges{
			Created: created.values(),
			Updated: updated.values(),
			Deleted: deleted.values(),
		},
		Debts:   debts.values(),
		Bills:   bills.values(),
		Income:  income.values(),
		Imports: batches.values(),
	}
	return res
}

func (e RawEntry) transaction(loc *time.Location) (model.Transaction, error) {
	if e.Amount == nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: missing amount", e.ID)
	}
	at, err := parseWhen(e.PostedAt, loc)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", e.ID, err)
	}
	return model.Transaction{
		ID:          e.ID,
		AccountID:   e.AccountID,
		PostedAt:    at,
		Amount:      model.CentsFromDecimal(*e.Amount),
		Description: e.Description,
		Category:    e.Category,
	}, nil
}

func (e RawEntry) debt() (model.Debt, error) {
	if e.Balance == nil || e.APRPercent == nil {
		return model.Debt{}, fmt.Errorf("debt %s: balance and apr_percent are required", e.ID)
	}
	d := model.Debt{
		ID:           e.ID,
		Name:         e.Name,
		Balance:      model.CentsFromDecimal(*e.Balance),
		APRPercent:   *e.APRPercent,
		ExtraPayment: centsOrZero(e.ExtraPayment),
	}
	if e.MinimumPayment != nil {
		m := model.CentsFromDecimal(*e.MinimumPayment)
		d.MinimumPayment = &m
	}
	return d, nil
}

func (e RawEntry) scheduled(kind model.ScheduleKind, loc *time.Location) (model.ScheduledItem, error) {
	if e.Amount == nil {
		return model.ScheduledItem{}, fmt.Errorf("%s %s: missing amount", kind, e.ID)
	}
	due, err := parseWhen(e.DueAt, loc)
	if err != nil {
		return model.ScheduledItem{}, fmt.Errorf("%s %s: %w", kind, e.ID, err)
	}
	active := true
	if e.Active != nil {
		active = *e.Active
	}
	return model.ScheduledItem{
		ID:     e.ID,
		Kind:   kind,
		Name:   e.Name,
		Amount: model.CentsFromDecimal(*e.Amount),
		DueAt:  due,
		Active: active,
	}, nil
}

func centsOrZero(d *decimal.Decimal) model.Cents {
	if d == nil {
		return 0
	}
	return model.CentsFromDecimal(*d)
}

// parseWhen accepts RFC 3339 timestamps or plain dates in loc.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return t, nil
}

// keyed keeps the last value per key in first-seen key order.
type keyed[T any] struct {
	order []string
	vals  map[string]T
}

func newKeyed[T any]() *keyed[T] {
	return &keyed[T]{vals: make(map[string]T)}
}

func (k *keyed[T]) put(key string, v T) {
	if _, ok := k.vals[key]; !ok {
		k.order = append(k.order, key)
	}
	k.vals[key] = v
}

func (k *keyed[T]) remove(key string) {
	delete(k.vals, key)
}

func (k *keyed[T]) values() []T {
	var out []T
	seen := make(map[string]bool, len(k.vals))
	for _, key := range k.order {
		v, ok := k.vals[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

var knownTypes = map[string]bool{
	TypeTransactionCreated: true,
	TypeTransactionUpdated: true,
	TypeTransactionDeleted: true,
	TypeDebtUpserted:       true,
	TypeBillUpserted:       true,
	TypeIncomeUpserted:     true,
	TypeImportBatch:        true,
}

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key and returns its value
// when it is a known record type.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 32 {
		return "", true
	}
	v := string(line[i : i+end])
	if knownTypes[v] {
		return v, true
	}
	return "", true
}

// skipJSONString advances past a JSON string starting at the opening quote.
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
