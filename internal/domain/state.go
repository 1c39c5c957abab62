package domain

// ─── Island State (sum type) ────────────────────────────────────────────────
// Exactly one state variant is active per key at any instant (spec.md §3
// invariants). Modeled as a tagged union rather than a class hierarchy —
// IslandStateKind discriminates, and only the fields for that kind are
// meaningful.

// IslandStateKind discriminates the IslandState sum type.
type IslandStateKind int

const (
	StateIdle IslandStateKind = iota
	StatePrefetching
	StatePrefetched
	StateHydrating
	StateHydrated
)

func (k IslandStateKind) String() string {
	switch k {
	case StateIdle:
		return "Idle"
	case StatePrefetching:
		return "Prefetching"
	case StatePrefetched:
		return "Prefetched"
	case StateHydrating:
		return "Hydrating"
	case StateHydrated:
		return "Hydrated"
	default:
		return "Unknown"
	}
}

// PrefetchHandle is an opaque reference to an in-flight prefetch, supplied by
// the Actuator. It is never interpreted by the core — only stored and, on
// cancellation, invoked via Abort.
type PrefetchHandle struct {
	Kind  string // "modulepreload" or "fetch"
	Abort func()
	Done  <-chan error // nil if the actuator gave no completion signal
}

// IslandState is the scheduler's per-key state. Only the fields relevant to
// Kind are meaningful; callers should switch on Kind rather than inspect
// fields directly.
type IslandState struct {
	Kind IslandStateKind

	// Idle
	LastActionTs  int64
	CooldownUntil int64

	// Prefetching
	StartedTs     int64
	Bytes         int64
	ReadyDelayMs  float64
	Handle        *PrefetchHandle

	// Prefetched
	ReadyTs   int64
	ExpiresTs int64

	// Hydrating / Hydrated share StartedTs / ReadyTs above.
}

// IdleState returns a fresh Idle state.
func IdleState(lastActionTs, cooldownUntil int64) IslandState {
	return IslandState{Kind: StateIdle, LastActionTs: lastActionTs, CooldownUntil: cooldownUntil}
}

// ─── Decision (sum type) ────────────────────────────────────────────────────

// DecisionKind discriminates the Decision sum type.
type DecisionKind int

const (
	DecisionSkip DecisionKind = iota
	DecisionPrefetch
	DecisionHydrate
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSkip:
		return "Skip"
	case DecisionPrefetch:
		return "Prefetch"
	case DecisionHydrate:
		return "Hydrate"
	default:
		return "Unknown"
	}
}

// Decision is the utility gate's per-frame output.
type Decision struct {
	Kind    DecisionKind
	Reason  string
	Tier    int // 0 = background, 1 = imminent; meaningless for Skip
	Targets []IslandKey
}

// Skip builds a Skip decision.
func Skip(reason string) Decision {
	return Decision{Kind: DecisionSkip, Reason: reason}
}

// Prefetch builds a Prefetch decision.
func Prefetch(tier int, reason string, targets []IslandKey) Decision {
	return Decision{Kind: DecisionPrefetch, Tier: tier, Reason: reason, Targets: targets}
}

// Hydrate builds a Hydrate decision for a single target.
func Hydrate(reason string, target IslandKey) Decision {
	return Decision{Kind: DecisionHydrate, Tier: 1, Reason: reason, Targets: []IslandKey{target}}
}
