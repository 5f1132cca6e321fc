package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
	"github.com/theirongolddev/finpilot/internal/store"
)

var asOf = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, cfg Config) (*Service, *store.Memory) {
	t.Helper()
	repo := store.NewMemory()
	eng := engine.New(repo, repo, engine.DefaultConfig(), engine.WithClock(func() time.Time { return asOf }))
	return New(cfg, eng, repo, WithLogger(quietLogger())), repo
}

// seedShortfall stores $500 on hand, $40/day of spending and $300 rent due
// in five days.
func seedShortfall(t *testing.T, repo store.Repository, user string) {
	t.Helper()
	ctx := context.Background()
	if err := repo.UpsertAccount(ctx, model.Account{ID: user + "-chk", UserID: user, Name: "Checking", Balance: 50000}); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
	var txns []model.Transaction
	for d := 1; d <= 30; d++ {
		day := time.Date(2026, 3, 10-d, 12, 0, 0, 0, time.UTC)
		txns = append(txns, model.Transaction{ID: user + "-t" + day.Format("0102"), PostedAt: day, Amount: -4000})
	}
	cs := recompute.ChangeSet{
		Transactions: recompute.TransactionChanges{Created: txns},
		Bills:        []model.ScheduledItem{{ID: user + "-rent", Name: "Rent", Amount: 30000, DueAt: asOf.AddDate(0, 0, 5), Active: true}},
	}
	if err := repo.ApplyChanges(ctx, user, cs); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _ := newTestService(t, Config{EventsBuffer: 2})

	s.publishEvent(Event{Type: EventDecision})
	s.publishEvent(Event{Type: EventDecision})
	s.publishEvent(Event{Type: EventDecision})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestDecisionLifecycleOverHTTP(t *testing.T) {
	s, repo := newTestService(t, Config{})
	seedShortfall(t, repo, "u1")
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/v1/users/u1/decision", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET before compute = %d, want 404", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/v1/users/u1/decision", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST decision = %d: %s", rec.Code, rec.Body)
	}
	d := decode[model.Decision](t, rec)
	if d.RiskLevel != model.RiskDanger || d.Command.Type != model.CommandFreeze {
		t.Fatalf("decision = %s/%s, want danger/freeze", d.RiskLevel, d.Command.Type)
	}

	rec = do(t, h, http.MethodGet, "/v1/users/u1/decision", "", "")
	if rec.Code != http.StatusOK || decode[model.Decision](t, rec).ID != d.ID {
		t.Fatalf("GET decision = %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/v1/users/u1/decision/"+d.ID+"/ack", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ack = %d: %s", rec.Code, rec.Body)
	}
	if res := decode[engine.AckResult](t, rec); res.Outcome != engine.AckAcknowledged {
		t.Fatalf("ack outcome = %s, want acknowledged", res.Outcome)
	}
	rec = do(t, h, http.MethodPost, "/v1/users/u1/decision/"+d.ID+"/ack", "", "")
	if res := decode[engine.AckResult](t, rec); res.Outcome != engine.AckAlready {
		t.Fatalf("second ack outcome = %s, want already_acknowledged", res.Outcome)
	}

	if rec := do(t, h, http.MethodPost, "/v1/users/u2/decision/"+d.ID+"/ack", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("ack by other user = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/users/u1/decisions?limit=5", "", "")
	if hist := decode[[]model.Decision](t, rec); len(hist) != 1 || hist[0].AcknowledgedAt == nil {
		t.Fatalf("history = %+v", hist)
	}
	if rec := do(t, h, http.MethodGet, "/v1/users/u1/decisions?limit=x", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d, want 400", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/users/u1/runway", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("runway = %d: %s", rec.Code, rec.Body)
	}

	events := decode[[]Event](t, do(t, h, http.MethodGet, "/v1/events", "", ""))
	if len(events) != 2 || events[0].Type != EventDecision || events[1].Type != EventAcknowledged {
		t.Fatalf("events = %+v", events)
	}
}

func TestComputeWithoutData(t *testing.T) {
	s, _ := newTestService(t, Config{})
	rec := do(t, s.Handler(), http.MethodPost, "/v1/users/nobody/decision", "", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
	if st := s.snapshotStatus(); st.EventCount != 1 {
		t.Fatalf("EventCount = %d, want 1 error event", st.EventCount)
	}
}

func TestChangesTriggerRecompute(t *testing.T) {
	s, repo := newTestService(t, Config{})
	seedShortfall(t, repo, "u1")
	h := s.Handler()

	body := `{"transactions":{"created":[{"id":"coffee","posted_at":"2026-03-10T08:00:00Z","amount":-450}]}}`
	rec := do(t, h, http.MethodPost, "/v1/users/u1/changes", "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("changes = %d: %s", rec.Code, rec.Body)
	}
	resp := decode[changesResponse](t, rec)
	if resp.Applied != 1 || !resp.Recomputed || resp.Decision == nil {
		t.Fatalf("response = %+v", resp)
	}

	// An empty change set is stored and never recomputes.
	rec = do(t, h, http.MethodPost, "/v1/users/u1/changes", "application/json", `{}`)
	if resp := decode[changesResponse](t, rec); resp.Recomputed || resp.Applied != 0 {
		t.Fatalf("empty response = %+v", resp)
	}

	if rec := do(t, h, http.MethodPost, "/v1/users/u1/changes", "application/json", `{"transactions":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON = %d, want 400", rec.Code)
	}
}

// brokenStore fails every ApplyChanges with err.
type brokenStore struct {
	*store.Memory
	err error
}

func (b brokenStore) ApplyChanges(context.Context, string, recompute.ChangeSet) error { return b.err }

func TestChangesErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid change", fmt.Errorf("store: debt %q: id is required: %w", "x", store.ErrInvalidChange), http.StatusBadRequest},
		{"database failure", errors.New("store: begin: database is locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			eng := engine.New(mem, mem, engine.DefaultConfig(), engine.WithClock(func() time.Time { return asOf }))
			s := New(Config{}, eng, brokenStore{Memory: mem, err: tt.err}, WithLogger(quietLogger()))

			rec := do(t, s.Handler(), http.MethodPost, "/v1/users/u1/changes", "application/json", `{}`)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	// A real validation failure from the store is a client error.
	s, _ := newTestService(t, Config{})
	body := `{"debts":[{"name":"no id","balance":100}]}`
	if rec := do(t, s.Handler(), http.MethodPost, "/v1/users/u1/changes", "application/json", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("debt without id = %d, want 400: %s", rec.Code, rec.Body)
	}
}

func TestChangesFromFeedLines(t *testing.T) {
	s, repo := newTestService(t, Config{})
	seedShortfall(t, repo, "u1")

	feed := strings.Join([]string{
		`{"type":"bill.upserted","id":"phone","name":"Phone","amount":"45","due_at":"2026-03-12"}`,
		`{"type":"bill.upserted","id":"bad","amount":"lots"}`,
		`{"type":"import.batch","id":"march"}`,
	}, "\n")
	rec := do(t, s.Handler(), http.MethodPost, "/v1/users/u1/changes", "application/x-ndjson", feed)
	if rec.Code != http.StatusOK {
		t.Fatalf("changes = %d: %s", rec.Code, rec.Body)
	}
	resp := decode[changesResponse](t, rec)
	if resp.ParseErrors != 1 || !resp.Recomputed {
		t.Fatalf("response = %+v", resp)
	}

	snap, err := repo.ReadSnapshot(context.Background(), "u1", asOf, 60)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap.Bills()) != 2 {
		t.Fatalf("bills = %d, want 2", len(snap.Bills()))
	}
}

func TestGoalContribution(t *testing.T) {
	s, repo := newTestService(t, Config{})
	target := asOf.AddDate(0, 6, 0)
	g := model.Goal{ID: "g1", UserID: "u1", Name: "Buffer", Target: 100000, StartDate: asOf, TargetDate: &target, Status: model.GoalActive}
	if err := repo.SaveGoal(context.Background(), g); err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/users/u1/goals/g1/contributions", "application/json", `{"amount":"250.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("contribution = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[model.Goal](t, rec); got.Current != 25000 || got.Progress.ProgressPercent != 25 {
		t.Fatalf("goal = %+v", got)
	}

	tests := []struct {
		name, path, body string
		want             int
	}{
		{"negative", "/v1/users/u1/goals/g1/contributions", `{"amount":"-5"}`, http.StatusBadRequest},
		{"garbage", "/v1/users/u1/goals/g1/contributions", `{"amount":"lots"}`, http.StatusBadRequest},
		{"unknown goal", "/v1/users/u1/goals/nope/contributions", `{"amount":"5"}`, http.StatusNotFound},
		{"other user", "/v1/users/u2/goals/g1/contributions", `{"amount":"5"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, tt.path, "application/json", tt.body); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}

	goals := decode[[]model.Goal](t, do(t, h, http.MethodGet, "/v1/users/u1/goals", "", ""))
	if len(goals) != 1 || goals[0].Current != 25000 {
		t.Fatalf("goals = %+v", goals)
	}
}

func TestRecomputeAllUpdatesStatus(t *testing.T) {
	s, repo := newTestService(t, Config{Users: []string{"u1", "empty"}})
	seedShortfall(t, repo, "u1")

	s.recomputeAll(context.Background())

	st := decode[Status](t, do(t, s.Handler(), http.MethodGet, "/v1/status", "", ""))
	if st.RunCount != 1 || st.Decisions != 1 {
		t.Fatalf("status = %+v, want one run and one decision", st)
	}
	if st.LastError == "" {
		t.Fatal("LastError empty; want the failure for the user without data")
	}
	if !st.LastRunAt.Equal(asOf) {
		t.Fatalf("LastRunAt = %s, want %s", st.LastRunAt, asOf)
	}
}

func TestStreamReplaysLatestEvent(t *testing.T) {
	s, _ := newTestService(t, Config{})
	s.publishEvent(Event{Type: EventBenchmark, Timestamp: asOf})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /v1/stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() && len(lines) < 2 {
		lines = append(lines, sc.Text())
	}
	if len(lines) < 2 || lines[0] != "id: 1" || lines[1] != "event: benchmark" {
		t.Fatalf("stream lines = %q", lines)
	}
}
