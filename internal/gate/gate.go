// Package gate implements the utility gate (spec.md §4.5): the decision
// policy that turns a Selection, the registry, pressure signals and the
// reputation ledger into a Skip/Prefetch/Hydrate Decision.
package gate

import (
	"math"
	"sort"

	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/reputation"
)

// Gate holds the gate's configuration and reusable scratch buffers.
type Gate struct {
	cfg Derived

	scratch []utilityCandidate
}

type utilityCandidate struct {
	key domain.IslandKey
	u   float64
}

// New creates a Gate with the given config.
func New(cfg Config) *Gate {
	return &Gate{cfg: Derive(cfg)}
}

// SetConfig atomically replaces the configuration.
func (g *Gate) SetConfig(cfg Config) {
	g.cfg = Derive(cfg)
}

// Decide evaluates one frame's Selection against the registry, pressure
// signals and reputation ledger for routeID, producing a Decision.
func (g *Gate) Decide(sel domain.Selection, reg *domain.Registry, pressure domain.PressureSignals, ledger *reputation.Ledger, routeID string, speed float64) domain.Decision {
	c := g.cfg.raw

	sigma := domain.Clamp01(c.SigmaSkip + c.CPUSigmaGain*pressure.CPUPressure + c.NetSigmaGain*pressure.NetPressure)
	maxTargets := domain.ClampInt(round(float64(c.MaxTargets)-c.CPUNPFDrop*pressure.CPUPressure-c.NetNPFDrop*pressure.NetPressure), 0, c.MaxTargets)
	minMargin := domain.Clamp01(c.MinMargin + 0.06*pressure.CPUPressure + 0.04*pressure.NetPressure)

	if !sel.HasBest {
		return domain.Skip("no-best")
	}
	bestTypeID, _, _ := sel.BestKey.Unpack()
	if _, ok := reg.Lookup(bestTypeID); !ok {
		return domain.Skip("type-missing")
	}
	if !sel.HasKey || !g.effectiveFlags(reg, sel.Key).Has(domain.PrefetchSafe) {
		return domain.Skip("winner-not-prefetch-safe")
	}
	if maxTargets == 0 {
		return domain.Skip("pressure-zero-targets")
	}
	if !sel.Actuate {
		return domain.Skip("not-actuate")
	}
	if sel.BestScore < sigma {
		return domain.Skip("below-sigma")
	}
	if sel.Margin2nd < minMargin {
		return domain.Skip("below-min-margin")
	}

	scores := make(map[domain.IslandKey]float64, len(sel.Top))
	for _, t := range sel.Top {
		scores[t.Key] = t.Score
	}
	if sel.Margin2nd <= c.AmbiguityMargin {
		for k, s := range scores {
			prior := domain.Clamp(ledger.Prior(reputation.Key{RouteID: routeID, IslandID: k.String()}), 0.25, 4.0)
			scores[k] = s * prior
		}
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	if sum <= 1e-12 {
		return domain.Skip("ambiguous-zero-mass")
	}

	g.scratch = g.scratch[:0]
	for _, t := range sel.Top {
		typeID, _, _ := t.Key.Unpack()
		def, ok := reg.Lookup(typeID)
		if !ok {
			continue
		}
		flags, ok := reg.EffectiveFlags(t.Key, instanceFlags(t.Key))
		if !ok || !flags.Has(domain.PrefetchSafe) {
			continue
		}
		p := scores[t.Key] / sum
		u := p*def.EstBenefitMs - (c.WNet*float64(def.EstBytes) + c.WCpu*def.EstCPUMs)
		if u <= 0 {
			continue
		}
		g.scratch = append(g.scratch, utilityCandidate{key: t.Key, u: u})
	}
	sort.SliceStable(g.scratch, func(i, j int) bool { return g.scratch[i].u > g.scratch[j].u })

	dBestSq := bestDSq(sel)
	eta := math.Sqrt(dBestSq) / math.Max(speed, 1e-6)

	tier := 0
	if pressure.SaveData {
		tier = 0
	} else if eta <= c.EtaModerateMs {
		tier = 1
	}

	if tier == 1 && len(g.scratch) > 0 && g.scratch[0].key == sel.Key {
		flags, _ := reg.EffectiveFlags(sel.Key, instanceFlags(sel.Key))
		if !flags.Has(domain.HydrateOnEventOnly) &&
			sel.BestScore >= c.UltraScore &&
			sel.Margin2nd >= c.UltraMargin &&
			eta <= c.EtaImmediateMs &&
			pressure.CPUPressure < 0.4 &&
			pressure.NetPressure < 0.6 {
			return domain.Hydrate("hydrate-promotion", sel.Key)
		}
	}

	n := maxTargets
	if n > len(g.scratch) {
		n = len(g.scratch)
	}
	targets := make([]domain.IslandKey, n)
	for i := 0; i < n; i++ {
		targets[i] = g.scratch[i].key
	}
	return domain.Prefetch(tier, "utility-ranked", targets)
}

func (g *Gate) effectiveFlags(reg *domain.Registry, key domain.IslandKey) domain.Flag {
	flags, ok := reg.EffectiveFlags(key, instanceFlags(key))
	if !ok {
		return 0
	}
	return flags
}

func instanceFlags(key domain.IslandKey) domain.Flag {
	_, _, f := key.Unpack()
	return domain.Flag(f)
}

func bestDSq(sel domain.Selection) float64 {
	for _, t := range sel.Top {
		if t.Key == sel.BestKey {
			return t.DSq
		}
	}
	return sel.NearestDSq
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
