package changefeed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/finpilot/internal/recompute"
)

// writeFeed creates a temp JSONL file and returns a DiscoveredFile for it.
func writeFeed(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bank-2026-03.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return newDiscovered(path)
}

func TestParseFile_Transactions(t *testing.T) {
	df := writeFeed(t,
		`{"type":"transaction.created","id":"t1","posted_at":"2026-03-01T12:00:00Z","amount":"-12.50","description":"lunch"}`,
		`{"type":"transaction.created","id":"t2","posted_at":"2026-03-02","amount":2000}`,
		`{"type":"transaction.updated","id":"t0","posted_at":"2026-02-28T08:00:00Z","amount":-3}`,
	)

	res := ParseFile(df, "u1", time.UTC)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	created := res.Changes.Transactions.Created
	if len(created) != 2 {
		t.Fatalf("Created = %d, want 2", len(created))
	}
	if created[0].Amount != -1250 || created[0].Description != "lunch" {
		t.Errorf("t1 = %+v, want -1250 lunch", created[0])
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !created[1].PostedAt.Equal(want) {
		t.Errorf("t2 PostedAt = %s, want %s", created[1].PostedAt, want)
	}
	if created[1].Amount != 200000 {
		t.Errorf("t2 Amount = %d, want 200000", created[1].Amount)
	}
	if len(res.Changes.Transactions.Updated) != 1 {
		t.Errorf("Updated = %d, want 1", len(res.Changes.Transactions.Updated))
	}
	if len(res.Changes.Imports) != 1 || res.Changes.Imports[0] != "bank-2026-03" {
		t.Errorf("Imports = %v, want [bank-2026-03]", res.Changes.Imports)
	}
	if !recompute.ShouldRecompute(res.Changes) {
		t.Error("ShouldRecompute = false for new transactions")
	}
}

func TestParse_LastEntryWins(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		`{"type":"debt.upserted","id":"card","name":"Card","balance":"1000","apr_percent":"19.99","minimum_payment":"35"}`,
		`{"type":"debt.upserted","id":"card","name":"Card","balance":"900","apr_percent":"19.99","minimum_payment":"35"}`,
		`{"type":"transaction.created","id":"t1","posted_at":"2026-03-01","amount":"-5"}`,
		`{"type":"transaction.deleted","id":"t1"}`,
	}, "\n"))

	res := Parse(r, "u1", time.UTC)
	if len(res.Changes.Debts) != 1 {
		t.Fatalf("Debts = %d, want 1 (dedup)", len(res.Changes.Debts))
	}
	d := res.Changes.Debts[0]
	if d.Balance != 90000 || d.MinimumPayment == nil || *d.MinimumPayment != 3500 {
		t.Errorf("debt = %+v, want balance 90000 min 3500", d)
	}
	if d.APRPercent.String() != "19.99" {
		t.Errorf("APRPercent = %s, want 19.99", d.APRPercent)
	}
	if len(res.Changes.Transactions.Created) != 0 {
		t.Errorf("Created = %d, want 0 after delete", len(res.Changes.Transactions.Created))
	}
	if got := res.Changes.Transactions.Deleted; len(got) != 1 || got[0] != "t1" {
		t.Errorf("Deleted = %v, want [t1]", got)
	}
}

func TestParse_ScheduledItems(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		`{"type":"bill.upserted","id":"rent","name":"Rent","amount":"1200","due_at":"2026-04-01"}`,
		`{"type":"bill.upserted","id":"gym","name":"Gym","amount":"40","due_at":"2026-04-03","active":false}`,
		`{"type":"income.upserted","id":"pay","name":"Salary","amount":"3000","due_at":"2026-03-28"}`,
		`{"type":"import.batch","id":"march"}`,
	}, "\n"))

	res := Parse(r, "u1", time.UTC)
	if len(res.Changes.Bills) != 2 || len(res.Changes.Income) != 1 {
		t.Fatalf("bills/income = %d/%d, want 2/1", len(res.Changes.Bills), len(res.Changes.Income))
	}
	if !res.Changes.Bills[0].Active || res.Changes.Bills[1].Active {
		t.Errorf("active flags = %v/%v, want true/false", res.Changes.Bills[0].Active, res.Changes.Bills[1].Active)
	}
	if res.Changes.Income[0].Kind != "income" || res.Changes.Income[0].Amount != 300000 {
		t.Errorf("income = %+v", res.Changes.Income[0])
	}
	if len(res.Changes.Imports) != 1 || res.Changes.Imports[0] != "march" {
		t.Errorf("Imports = %v, want [march]", res.Changes.Imports)
	}
}

func TestParse_MalformedAndForeignLines(t *testing.T) {
	r := strings.NewReader(strings.Join([]string{
		`not json at all`,
		`{"type":"transaction.created","id":"t1","posted_at":"yesterday","amount":"-5"}`,
		`{"type":"transaction.created","id":"t2","posted_at":"2026-03-01"}`,
		`{"type":"debt.upserted","id":"d1","balance":"10"}`,
		`{"type":"transaction.created","id":"t3","posted_at":"2026-03-01","amount":"-5","user":"someone-else"}`,
		`{"type":"balance.snapshot","id":"x"}`,
		`{"type":"transaction.created","id":"ok","posted_at":"2026-03-01","amount":"-5","user":"u1"}`,
		``,
	}, "\n"))

	res := Parse(r, "u1", time.UTC)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Lines != 7 {
		t.Errorf("Lines = %d, want 7", res.Lines)
	}
	if res.ParseErrors != 3 {
		t.Errorf("ParseErrors = %d, want 3", res.ParseErrors)
	}
	if res.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", res.Skipped)
	}
	if got := res.Changes.Transactions.Created; len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("Created = %+v, want only ok", got)
	}
}

func TestParse_EmptyFeed(t *testing.T) {
	res := Parse(strings.NewReader(""), "u1", time.UTC)
	if res.Err != nil || res.Lines != 0 {
		t.Fatalf("empty feed = %+v", res)
	}
	if recompute.ShouldRecompute(res.Changes) {
		t.Error("ShouldRecompute = true for empty feed")
	}
}

func TestExtractTopLevelType(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`{"type":"debt.upserted","id":"a"}`, "debt.upserted"},
		{`{"id":"a", "type": "bill.upserted"}`, "bill.upserted"},
		{`{"meta":{"type":"debt.upserted"},"type":"import.batch"}`, "import.batch"},
		{`{"name":"type","type":"income.upserted"}`, "income.upserted"},
		{`{"type":"unknown"}`, ""},
		{`{"id":"no type"}`, ""},
	}
	for _, tt := range tests {
		if got := extractTopLevelType([]byte(tt.line)); got != tt.want {
			t.Errorf("extractTopLevelType(%s) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jsonl", "a.jsonl", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 2 || files[0].Batch != "a" || files[1].Batch != "b" {
		t.Fatalf("files = %+v, want a, b", files)
	}

	single, err := Discover(filepath.Join(dir, "b.jsonl"))
	if err != nil || len(single) != 1 {
		t.Fatalf("Discover(file) = %v, %v", single, err)
	}
	if _, err := Discover(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("Discover(missing) succeeded")
	}
}
