// Package daemon provides the long-running decision service: a scheduled
// recompute loop plus an HTTP API with an SSE event stream.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/notify"
	"github.com/theirongolddev/finpilot/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Schedule     string
	Users        []string
	EventsBuffer int

	// BenchmarkSchedule runs Benchmark on a cron spec when both are set.
	BenchmarkSchedule string
}

// Event types.
const (
	EventDecision     = "decision"
	EventAcknowledged = "acknowledged"
	EventChanges      = "changes"
	EventError        = "error"
	EventBenchmark    = "benchmark"
)

// Event is emitted whenever a decision is computed or acted on.
type Event struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
	Decision  *model.Decision `json:"decision,omitempty"`
	Detail    string          `json:"detail,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastRunAt       time.Time `json:"last_run_at"`
	RunCount        int64     `json:"run_count"`
	Schedule        string    `json:"schedule"`
	Users           []string  `json:"users"`
	Decisions       int64     `json:"decisions"`
	AlertsSent      int64     `json:"alerts_sent"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg       Config
	eng       *engine.Engine
	repo      store.Repository
	notifier  *notify.Notifier
	benchmark func(context.Context) error
	log       logrus.FieldLogger

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	runCount    int64
	decisions   int64
	alertsSent  int64
	lastError   string
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sends alerts for new decisions.
func WithNotifier(n *notify.Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithBenchmark registers the scheduled benchmark refresh.
func WithBenchmark(fn func(context.Context) error) Option {
	return func(s *Service) { s.benchmark = fn }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// New returns a new daemon service with the provided config.
func New(cfg Config, eng *engine.Engine, repo store.Repository, opts ...Option) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15m"
	}

	s := &Service{
		cfg:       cfg,
		eng:       eng,
		repo:      repo,
		log:       logrus.StandardLogger(),
		startedAt: eng.Now(),
		subs:      make(map[int]chan Event),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run starts HTTP endpoints and the scheduler until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	sched := cron.New()
	if len(s.cfg.Users) > 0 {
		if _, err := sched.AddFunc(s.cfg.Schedule, func() { s.recomputeAll(ctx) }); err != nil {
			return fmt.Errorf("daemon: bad schedule %q: %w", s.cfg.Schedule, err)
		}
	}
	if s.benchmark != nil && s.cfg.BenchmarkSchedule != "" {
		if _, err := sched.AddFunc(s.cfg.BenchmarkSchedule, func() { s.refreshBenchmark(ctx) }); err != nil {
			return fmt.Errorf("daemon: bad benchmark schedule %q: %w", s.cfg.BenchmarkSchedule, err)
		}
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed decisions so status is useful immediately.
	s.recomputeAll(ctx)
	sched.Start()

	select {
	case <-ctx.Done():
		stopped := sched.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		select {
		case <-stopped.Done():
		case <-shutdownCtx.Done():
		}
		return err
	case err := <-errCh:
		sched.Stop()
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// recomputeAll computes a fresh decision for every configured user.
func (s *Service) recomputeAll(ctx context.Context) {
	var lastErr string
	for _, user := range s.cfg.Users {
		if _, err := s.compute(ctx, user); err != nil {
			lastErr = err.Error()
		}
	}

	s.mu.Lock()
	s.lastRunAt = s.eng.Now()
	s.runCount++
	s.lastError = lastErr
	s.mu.Unlock()
}

// compute runs one computation, then publishes and alerts on the result.
// Conflicts are not errors; another computation is already producing a
// decision for the user.
func (s *Service) compute(ctx context.Context, user string) (model.Decision, error) {
	log := s.log.WithField("user_id", user)
	d, err := s.eng.Compute(ctx, user)
	if err != nil {
		if engine.IsRetryable(err) {
			log.Debug("recompute skipped: computation in flight")
			return model.Decision{}, err
		}
		log.WithError(err).Warn("recompute failed")
		s.publishEvent(Event{Type: EventError, Timestamp: s.eng.Now(), UserID: user, Detail: err.Error()})
		return model.Decision{}, err
	}

	s.mu.Lock()
	s.decisions++
	s.mu.Unlock()
	s.publishEvent(Event{Type: EventDecision, Timestamp: d.ComputedAt, UserID: user, Decision: &d})

	if sent, err := s.notifier.DecisionAlert(d); err == nil && sent {
		s.mu.Lock()
		s.alertsSent++
		s.mu.Unlock()
	}
	return d, nil
}

func (s *Service) refreshBenchmark(ctx context.Context) {
	if err := s.benchmark(ctx); err != nil {
		s.log.WithError(err).Warn("benchmark refresh failed")
		s.publishEvent(Event{Type: EventError, Timestamp: s.eng.Now(), Detail: err.Error()})
		return
	}
	s.publishEvent(Event{Type: EventBenchmark, Timestamp: s.eng.Now()})
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastRunAt:       s.lastRunAt,
		RunCount:        s.runCount,
		Schedule:        s.cfg.Schedule,
		Users:           append([]string(nil), s.cfg.Users...),
		Decisions:       s.decisions,
		AlertsSent:      s.alertsSent,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Replay the latest event so new subscribers start from current state.
	s.mu.RLock()
	var last *Event
	if n := len(s.events); n > 0 {
		ev := s.events[n-1]
		last = &ev
	}
	s.mu.RUnlock()
	if last != nil {
		writeSSE(w, *last)
	} else {
		_, _ = fmt.Fprint(w, ": connected\n\n")
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
