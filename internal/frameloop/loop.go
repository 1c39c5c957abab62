// Package frameloop wires the kinetic predictor, target lock, reputation
// ledger, pressure monitor, utility gate and flight scheduler into a single
// per-tick call. It is the orchestrator an embedding application drives once
// per animation frame; nothing in this package is reachable from a second
// goroutine except through Tick and Snapshot, which share one mutex.
package frameloop

import (
	"math"
	"sync"
	"time"

	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/gate"
	"github.com/islandport/actuator/internal/lock"
	"github.com/islandport/actuator/internal/locator"
	"github.com/islandport/actuator/internal/predictor"
	"github.com/islandport/actuator/internal/pressure"
	"github.com/islandport/actuator/internal/reputation"
	"github.com/islandport/actuator/internal/scheduler"
)

// Tracer receives one span per tick. observability.Tracer satisfies this;
// the loop depends only on the narrow interface so it stays testable
// without pulling in the tracing/metrics stack.
type Tracer interface {
	Span(name string, fields map[string]any)
}

type noopTracer struct{}

func (noopTracer) Span(string, map[string]any) {}

// MetricsSink receives one observation per tick. observability.Metrics
// satisfies this; kept narrow for the same reason as Tracer above.
type MetricsSink interface {
	ObserveTick(seconds float64, decision domain.Decision, signals domain.PressureSignals, queueLen, inflightCount int, inflightBytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTick(float64, domain.Decision, domain.PressureSignals, int, int, int64) {}

// Loop owns one instance of every decision-making component and drives them
// through exactly one Tick per frame (spec.md §5: single logical thread).
// Tick and Snapshot share one mutex, so concurrent Tick calls run one at a
// time and Snapshot never observes a tick in progress; the other methods
// are not guarded by it.
type Loop struct {
	Registry  *domain.Registry
	Predictor *predictor.Predictor
	Locator   *locator.Grid
	Lock      *lock.Lock
	Ledger    *reputation.Ledger
	Pressure  *pressure.Monitor
	Gate      *gate.Gate
	Scheduler *scheduler.Scheduler
	Tracer    Tracer
	Metrics   MetricsSink

	routeID string

	candBuf []domain.Candidate

	mu   sync.RWMutex
	last domain.EngineSnapshot
}

// New assembles a Loop from its components. Each component is constructed
// and configured independently (spec.md §6) before being wired in here.
func New(reg *domain.Registry, pred *predictor.Predictor, loc *locator.Grid, lk *lock.Lock, ledger *reputation.Ledger, pm *pressure.Monitor, gt *gate.Gate, sch *scheduler.Scheduler) *Loop {
	return &Loop{
		Registry:  reg,
		Predictor: pred,
		Locator:   loc,
		Lock:      lk,
		Ledger:    ledger,
		Pressure:  pm,
		Gate:      gt,
		Scheduler: sch,
		Tracer:    noopTracer{},
		Metrics:   noopMetrics{},
	}
}

// SetRoute changes the route ID used to key reputation lookups. Routes
// change on navigation, far less often than Tick runs, so this is a plain
// field write rather than a derived-config swap.
func (l *Loop) SetRoute(routeID string) {
	l.routeID = routeID
}

// Tick advances every component by one frame and returns the resulting
// Decision. islands may be nil, in which case the loop queries the locator
// around the predicted cursor position; otherwise the caller's pre-filtered
// candidate set is used directly (e.g. a host that maintains its own
// visibility list). Neither the returned Decision nor any slice it
// references may be retained past the next Tick call (spec.md §3
// lifecycles) — the loop reuses its scratch buffers on every call. Tick
// holds the snapshot mutex for its whole duration.
func (l *Loop) Tick(now int64, sample domain.PointerSample, islands []domain.Candidate) domain.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := time.Now()
	kin := l.Predictor.Update(sample)
	speed := math.Sqrt(kin.VSq)

	candidates := islands
	if candidates == nil {
		l.candBuf = l.Locator.QueryNearby(kin.PX, kin.PY, nil, l.candBuf[:0])
		candidates = l.candBuf
	}

	sel := l.Lock.Select(kin.PX, kin.PY, candidates, l.Predictor, sample.DtMs, speed)

	signals := l.Pressure.Read(float64(now))
	decision := l.Gate.Decide(sel, l.Registry, signals, l.Ledger, l.routeID, speed)

	l.Scheduler.Enqueue(decision, now)
	l.Scheduler.Tick(now)

	l.last = domain.EngineSnapshot{Now: now, Kinematics: kin, Selection: sel, Pressure: signals, Decision: decision}

	l.Tracer.Span("frameloop.tick", map[string]any{
		"decision":    decision.Kind.String(),
		"reason":      decision.Reason,
		"tier":        decision.Tier,
		"targets":     len(decision.Targets),
		"cpuPressure": signals.CPUPressure,
		"netPressure": signals.NetPressure,
		"queueLen":    l.Scheduler.QueueLen(),
	})

	inflightCount, inflightBytes := l.Scheduler.Budgets()
	l.Metrics.ObserveTick(time.Since(start).Seconds(), decision, signals, l.Scheduler.QueueLen(), inflightCount, inflightBytes)

	return decision
}

// Snapshot returns the most recent tick's aggregate state. Safe to call
// concurrently with Tick — this is the one boundary in the loop touched by
// a goroutine other than the one driving ticks (the debug API).
func (l *Loop) Snapshot() domain.EngineSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// FeedbackMiss forwards a host-observed false-positive (a prefetched/
// hydrated island the user never actually used) to the scheduler, which
// applies the cooldown and records a reputation miss.
func (l *Loop) FeedbackMiss(key domain.IslandKey, now int64) {
	l.Scheduler.FeedbackMiss(key, l.routeID, now)
}
