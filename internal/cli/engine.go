// Package cli implements the actuator command-line tool: replaying a
// recorded pointer trace against the engine, inspecting resolved
// configuration, and serving the debug API backed by a simulated actuator.
// Mirrors the teacher's command-family layout (one file per command group,
// a shared rootCmd, RunE-returned errors) rather than its agent-runtime
// content, which doesn't carry over to this domain.
package cli

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/islandport/actuator/internal/config"
	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/frameloop"
	"github.com/islandport/actuator/internal/gate"
	"github.com/islandport/actuator/internal/lock"
	"github.com/islandport/actuator/internal/locator"
	"github.com/islandport/actuator/internal/observability"
	"github.com/islandport/actuator/internal/predictor"
	"github.com/islandport/actuator/internal/pressure"
	"github.com/islandport/actuator/internal/reputation"
	"github.com/islandport/actuator/internal/scheduler"
	"github.com/islandport/actuator/internal/simulate"
)

// Engine bundles the wired frameloop.Loop with the observability state that
// sits alongside it but isn't part of the loop's own narrow interfaces: the
// registry /metrics reads from, and the concrete tracer backing /debug/trace.
type Engine struct {
	Loop     *frameloop.Loop
	Tracer   *observability.Tracer
	Registry *prometheus.Registry
}

// defaultTypeDefs is the fixed island layout replay/serve build the engine
// with, absent any richer host-supplied registry format. It uses the
// PrefetchSafe, NavLike and Critical flags; no type carries
// HydrateOnEventOnly.
func defaultTypeDefs() []domain.IslandTypeDef {
	return []domain.IslandTypeDef{
		{TypeID: 1, Name: "product-card", Kind: domain.KindComponent, DefaultFlags: domain.PrefetchSafe, EstBytes: 18000, EstCPUMs: 6, EstBenefitMs: 180},
		{TypeID: 2, Name: "nav-link", Kind: domain.KindNavLink, DefaultFlags: domain.PrefetchSafe | domain.NavLike, EstBytes: 4000, EstCPUMs: 2, EstBenefitMs: 220, NavProp: "href"},
		{TypeID: 3, Name: "checkout-form", Kind: domain.KindForm, DefaultFlags: domain.Critical, EstBytes: 42000, EstCPUMs: 14, EstBenefitMs: 260},
	}
}

// defaultLayout is the fixed set of on-screen candidates replay/serve feed
// the locator, laid out as a simple horizontal row.
func defaultLayout() []domain.Candidate {
	return []domain.Candidate{
		{Key: domain.PackKey(1, 1, 0), Rect: domain.Rect{X: 40, Y: 120, W: 220, H: 140}},
		{Key: domain.PackKey(2, 1, 0), Rect: domain.Rect{X: 320, Y: 40, W: 160, H: 40}},
		{Key: domain.PackKey(3, 1, 0), Rect: domain.Rect{X: 520, Y: 160, W: 300, H: 220}},
	}
}

// buildLoop assembles a frameloop.Loop from a resolved config Root, backed
// by an in-memory simulated actuator, with Prometheus metrics and a bounded
// trace ring buffer wired into every tick. Shared by serve and replay so
// both commands drive the identical engine construction.
func buildLoop(root config.Root) *Engine {
	reg := domain.NewRegistry(defaultTypeDefs())
	ledger := reputation.New(root.Ledger)
	act := simulate.New(simulate.DefaultConfig(), 1)
	sch := scheduler.New(root.Scheduler, reg, act, ledger)

	loc := locator.New()
	loc.Rebuild(defaultLayout())

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)
	tracer := observability.NewTracer(observability.DefaultTracerConfig())

	loop := frameloop.New(
		reg,
		predictor.New(root.Predictor),
		loc,
		lock.New(root.Lock),
		ledger,
		pressure.New(root.Pressure),
		gate.New(root.Gate),
		sch,
	)
	loop.Metrics = metrics
	loop.Tracer = tracer

	return &Engine{Loop: loop, Tracer: tracer, Registry: promReg}
}
