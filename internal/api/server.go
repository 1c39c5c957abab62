// Package api exposes the engine's debug/introspection HTTP surface: health,
// Prometheus metrics, recorded trace spans, and read-only views of the last
// tick's selection, scheduler, reputation and pressure state, plus a
// one-shot tick endpoint for driving the engine from an integration test
// without embedding Go directly.
// This is not how a host application embeds the engine — that stays direct
// Go API usage — it exists purely for operators and test harnesses.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/frameloop"
	"github.com/islandport/actuator/internal/observability"
)

// Server is the debug API server. It wraps a live frameloop.Loop and serves
// read-only views of its state, plus one endpoint that drives it.
type Server struct {
	loop           *frameloop.Loop
	metricsEnabled bool
	registry       *prometheus.Registry
	tracer         *observability.Tracer
}

// NewServer creates a Server around an already-wired Loop.
func NewServer(loop *frameloop.Loop) *Server {
	return &Server{loop: loop}
}

// EnableMetrics mounts the /metrics endpoint, serving the collectors
// registered against reg — the same registry passed to
// observability.NewMetrics when the loop was wired, so /metrics actually
// reflects the engine's counters/gauges rather than just the Go-runtime
// default collectors.
func (s *Server) EnableMetrics(reg *prometheus.Registry) {
	s.metricsEnabled = true
	s.registry = reg
}

// SetTracer attaches the tracer backing /debug/trace. Optional: with no
// tracer set, the route returns an empty span list instead of 404, since a
// host may legitimately run with tracing disabled.
func (s *Server) SetTracer(t *observability.Tracer) { s.tracer = t }

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealthz)

	if s.metricsEnabled {
		reg := s.registry
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/debug", func(r chi.Router) {
		r.Get("/selection", s.handleSelection)
		r.Get("/scheduler", s.handleScheduler)
		r.Get("/reputation", s.handleReputation)
		r.Get("/pressure", s.handlePressure)
		r.Get("/trace", s.handleTrace)
		r.Post("/tick", s.handleTick)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loop.Snapshot().Selection)
}

func (s *Server) handlePressure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loop.Snapshot().Pressure)
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loop.Ledger.Snapshot())
}

// handleTrace serves the tracer's bounded ring buffer (SPEC_FULL.md §4.10: spans
// are "retained in a bounded ring buffer for inspection via the debug API").
// ?limit=N caps the number of most-recent spans returned; defaults to all.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if s.tracer == nil {
		writeJSON(w, http.StatusOK, []observability.Span{})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.tracer.Spans(limit))
}

func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	states := s.loop.Scheduler.States()
	views := make(map[string]islandStateView, len(states))
	for key, st := range states {
		views[key.String()] = toIslandStateView(st)
	}
	inflightCount, inflightBytes := s.loop.Scheduler.Budgets()
	writeJSON(w, http.StatusOK, schedulerView{
		QueueLen:      s.loop.Scheduler.QueueLen(),
		InflightCount: inflightCount,
		InflightBytes: inflightBytes,
		States:        views,
	})
}

// tickRequest is the POST /debug/tick wire format.
type tickRequest struct {
	Now     int64                `json:"now"`
	Sample  domain.PointerSample `json:"sample"`
	Islands []domain.Candidate   `json:"islands,omitempty"`
}

type tickResponse struct {
	Decision domain.Decision       `json:"decision"`
	Snapshot domain.EngineSnapshot `json:"snapshot"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var islands []domain.Candidate
	if len(req.Islands) > 0 {
		islands = req.Islands
	}

	decision := s.loop.Tick(req.Now, req.Sample, islands)
	writeJSON(w, http.StatusOK, tickResponse{Decision: decision, Snapshot: s.loop.Snapshot()})
}

// ─── Response Views ─────────────────────────────────────────────────────────

type schedulerView struct {
	QueueLen      int                         `json:"queueLen"`
	InflightCount int                         `json:"inflightCount"`
	InflightBytes int64                       `json:"inflightBytes"`
	States        map[string]islandStateView `json:"states"`
}

// islandStateView mirrors domain.IslandState but drops the Handle field,
// which carries an Abort func and a Done channel that json.Marshal cannot
// encode.
type islandStateView struct {
	Kind          string  `json:"kind"`
	LastActionTs  int64   `json:"lastActionTs,omitempty"`
	CooldownUntil int64   `json:"cooldownUntil,omitempty"`
	StartedTs     int64   `json:"startedTs,omitempty"`
	Bytes         int64   `json:"bytes,omitempty"`
	ReadyDelayMs  float64 `json:"readyDelayMs,omitempty"`
	ReadyTs       int64   `json:"readyTs,omitempty"`
	ExpiresTs     int64   `json:"expiresTs,omitempty"`
}

func toIslandStateView(st domain.IslandState) islandStateView {
	return islandStateView{
		Kind:          st.Kind.String(),
		LastActionTs:  st.LastActionTs,
		CooldownUntil: st.CooldownUntil,
		StartedTs:     st.StartedTs,
		Bytes:         st.Bytes,
		ReadyDelayMs:  st.ReadyDelayMs,
		ReadyTs:       st.ReadyTs,
		ExpiresTs:     st.ExpiresTs,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
