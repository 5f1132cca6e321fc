package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finpilot/internal/changefeed"
	"github.com/theirongolddev/finpilot/internal/engine"
	"github.com/theirongolddev/finpilot/internal/goal"
	"github.com/theirongolddev/finpilot/internal/model"
	"github.com/theirongolddev/finpilot/internal/recompute"
	"github.com/theirongolddev/finpilot/internal/store"
)

const (
	maxBodyBytes   = 4 << 20
	requestTimeout = 30 * time.Second
)

// Handler returns the daemon's HTTP routes.
func (s *Service) Handler() http.Handler {
	mx := mux.NewRouter()
	mx.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)

	mx.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	mx.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	mx.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	mx.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)

	// The stream stays open indefinitely, so only per-user routes get a deadline.
	user := mx.PathPrefix("/v1/users/{user}").Subrouter()
	user.Use(middleware.Timeout(requestTimeout))
	user.HandleFunc("/decision", s.handleCurrent).Methods(http.MethodGet)
	user.HandleFunc("/decision", s.handleCompute).Methods(http.MethodPost)
	user.HandleFunc("/decision/{id}/ack", s.handleAck).Methods(http.MethodPost)
	user.HandleFunc("/decisions", s.handleHistory).Methods(http.MethodGet)
	user.HandleFunc("/runway", s.handleRunway).Methods(http.MethodGet)
	user.HandleFunc("/changes", s.handleChanges).Methods(http.MethodPost)
	user.HandleFunc("/goals", s.handleGoals).Methods(http.MethodGet)
	user.HandleFunc("/goals/{id}/contributions", s.handleContribution).Methods(http.MethodPost)
	return mx
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleCurrent(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	d, ok, err := s.eng.Current(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no current decision"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Service) handleCompute(w http.ResponseWriter, r *http.Request) {
	d, err := s.compute(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Service) handleAck(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.eng.Acknowledge(r.Context(), vars["id"], vars["user"])
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Outcome == engine.AckAcknowledged {
		d := res.Decision
		s.publishEvent(Event{Type: EventAcknowledged, Timestamp: s.eng.Now(), UserID: d.UserID, Decision: &d})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	ds, err := s.eng.History(r.Context(), mux.Vars(r)["user"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if ds == nil {
		ds = []model.Decision{}
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Service) handleRunway(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := s.repo.LatestRunway(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no runway computed yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type changesResponse struct {
	Applied     int             `json:"applied"`
	Categories  []string        `json:"categories"`
	ParseErrors int             `json:"parse_errors,omitempty"`
	Recomputed  bool            `json:"recomputed"`
	Decision    *model.Decision `json:"decision,omitempty"`
}

// handleChanges applies a ChangeSet given as JSON, or as change-feed lines
// when the body is application/x-ndjson.
func (s *Service) handleChanges(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var (
		cs        recompute.ChangeSet
		badLines  int
		mediaType string
	)
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ = mime.ParseMediaType(ct)
	}
	if mediaType == "application/x-ndjson" {
		res := changefeed.Parse(body, user, time.Local)
		if res.Err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: res.Err.Error()})
			return
		}
		cs, badLines = res.Changes, res.ParseErrors
	} else if err := json.NewDecoder(body).Decode(&cs); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("decoding change set: %v", err)})
		return
	}

	if err := s.repo.ApplyChanges(r.Context(), user, cs); err != nil {
		writeError(w, err)
		return
	}
	resp := changesResponse{Applied: cs.Size(), Categories: cs.Categories(), ParseErrors: badLines}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	s.publishEvent(Event{
		Type:      EventChanges,
		Timestamp: s.eng.Now(),
		UserID:    user,
		Detail:    fmt.Sprintf("%d changes", resp.Applied),
	})

	if recompute.ShouldRecompute(cs) {
		d, err := s.compute(r.Context(), user)
		switch {
		case err == nil:
			resp.Recomputed = true
			resp.Decision = &d
		case engine.IsRetryable(err), errors.Is(err, engine.ErrInsufficientData):
			// Changes are stored; the next scheduled run picks them up.
		default:
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.repo.ListGoals(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		writeError(w, err)
		return
	}
	now := s.eng.Now()
	out := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		out = append(out, goal.Refresh(g, now))
	}
	writeJSON(w, http.StatusOK, out)
}

type contributionRequest struct {
	Amount string `json:"amount"`
}

func (s *Service) handleContribution(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req contributionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body must be {\"amount\": \"12.34\"}"})
		return
	}
	amount, err := model.ParseCents(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	g, err := s.repo.GetGoal(r.Context(), vars["user"], vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	g, err = goal.Contribute(g, amount, s.eng.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.repo.SaveGoal(r.Context(), g); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrComputeConflict):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidChange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
