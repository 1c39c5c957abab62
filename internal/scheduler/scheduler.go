// Package scheduler implements the flight scheduler (spec.md §4.6): the
// owner of per-key island state, the prefetch dispatch queue, and the
// inflight/bytes resource budgets.
//
// The dispatch queue is priority-ordered and windowed, not a classic
// min-heap: a dispatch can remove an item from the middle of the scan
// window while leaving earlier, currently-blocked items queued. Priority and
// insertion order are established once at Enqueue time via a stable sort,
// keeping order stable across ties; a scanned slice is used instead of a
// heap because the scheduler's windowed dispatch cannot be expressed as
// repeated extract-min.
package scheduler

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/reputation"
)

// MaxQueueSize is the hard cap on the dispatch queue (spec.md §4.6).
const MaxQueueSize = 32

// Priority orders the dispatch queue; higher values dispatch first.
type Priority int

const (
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

type queueItem struct {
	key      domain.IslandKey
	priority Priority
	seq      int64
}

// Scheduler owns per-key island state, the prefetch queue, and the
// inflight/bytes budgets. Not safe for concurrent use beyond the mutex
// guarding reads from a debug API goroutine — the tick loop itself is
// expected to run on one logical thread (spec.md §5).
type Scheduler struct {
	mu sync.RWMutex

	cfg      Derived
	reg      *domain.Registry
	actuator domain.Actuator
	ledger   *reputation.Ledger

	states     map[domain.IslandKey]domain.IslandState
	queue      []queueItem
	queuedKeys map[domain.IslandKey]bool
	seq        int64

	inflightCount int
	bytesInFlight int64

	downlinkBytesPerMs *float64
}

// New creates a Scheduler wired to a registry, an Actuator, and a reputation
// ledger (for hydrate hit/miss recording).
func New(cfg Config, reg *domain.Registry, actuator domain.Actuator, ledger *reputation.Ledger) *Scheduler {
	return &Scheduler{
		cfg:        Derive(cfg),
		reg:        reg,
		actuator:   actuator,
		ledger:     ledger,
		states:     make(map[domain.IslandKey]domain.IslandState),
		queuedKeys: make(map[domain.IslandKey]bool),
	}
}

// SetConfig atomically replaces the configuration.
func (s *Scheduler) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = Derive(cfg)
}

// SetDownlinkEstimate records an externally supplied downlink estimate used
// to adapt readyDelayMs. Spec.md §9: "when unavailable, fall back to
// assumeReadyDelayMs and do not synthesize" — callers should call
// ClearDownlinkEstimate rather than guess.
func (s *Scheduler) SetDownlinkEstimate(bytesPerMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downlinkBytesPerMs = &bytesPerMs
}

// ClearDownlinkEstimate forgets the downlink estimate.
func (s *Scheduler) ClearDownlinkEstimate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downlinkBytesPerMs = nil
}

// State returns the current IslandState for key, or (IdleState, false) if
// key has never been seen.
func (s *Scheduler) State(key domain.IslandKey) (domain.IslandState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	return st, ok
}

// QueueLen returns the number of items currently queued for dispatch.
func (s *Scheduler) QueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue)
}

// Budgets returns the current inflight count and bytes-in-flight.
func (s *Scheduler) Budgets() (int, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflightCount, s.bytesInFlight
}

// States returns a snapshot copy of every tracked island's state, keyed by
// IslandKey. For the debug API only — the tick loop never needs the full
// set at once.
func (s *Scheduler) States() map[domain.IslandKey]domain.IslandState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.IslandKey]domain.IslandState, len(s.states))
	for k, v := range s.states {
		out[k] = v
	}
	return out
}

// Enqueue admits a Decision's targets into the dispatch queue (spec.md
// §4.6). Skip is rejected outright; Hydrate is rejected unless
// allowEarlyHydrate.
func (s *Scheduler) Enqueue(decision domain.Decision, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if decision.Kind == domain.DecisionSkip {
		return
	}
	if decision.Kind == domain.DecisionHydrate && !s.cfg.raw.AllowEarlyHydrate {
		return
	}

	priority := PriorityNormal
	if decision.Tier == 1 {
		priority = PriorityHigh
	}

	for _, key := range decision.Targets {
		if s.queuedKeys[key] {
			continue
		}
		if !s.admissible(key, now) {
			continue
		}
		s.queue = append(s.queue, queueItem{key: key, priority: priority, seq: s.seq})
		s.seq++
		s.queuedKeys[key] = true
	}

	sort.SliceStable(s.queue, func(i, j int) bool {
		if s.queue[i].priority != s.queue[j].priority {
			return s.queue[i].priority > s.queue[j].priority
		}
		return s.queue[i].seq < s.queue[j].seq
	})

	if len(s.queue) > MaxQueueSize {
		for _, dropped := range s.queue[MaxQueueSize:] {
			delete(s.queuedKeys, dropped.key)
		}
		s.queue = s.queue[:MaxQueueSize]
	}
}

// admissible reports whether key may be queued: PrefetchSafe, type exists,
// state is Idle, and past cooldown. Caller holds s.mu.
func (s *Scheduler) admissible(key domain.IslandKey, now int64) bool {
	if !s.prefetchSafe(key) {
		return false
	}
	st, ok := s.states[key]
	if !ok {
		return true
	}
	return st.Kind == domain.StateIdle && now >= st.CooldownUntil
}

func (s *Scheduler) prefetchSafe(key domain.IslandKey) bool {
	typeID, _, _ := key.Unpack()
	if _, ok := s.reg.Lookup(typeID); !ok {
		return false
	}
	flags, ok := s.reg.EffectiveFlags(key, instanceFlags(key))
	return ok && flags.Has(domain.PrefetchSafe)
}

func instanceFlags(key domain.IslandKey) domain.Flag {
	_, _, f := key.Unpack()
	return domain.Flag(f)
}

// Tick advances island states and dispatches queued prefetches, in that
// order (spec.md §4.6, §5 "state advancement runs before dispatch").
func (s *Scheduler) Tick(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advanceStates(now)
	s.dispatch(now)
}

func (s *Scheduler) advanceStates(now int64) {
	c := s.cfg.raw
	for key, st := range s.states {
		switch st.Kind {
		case domain.StatePrefetching:
			elapsed := float64(now - st.StartedTs)
			if elapsed >= math.Max(c.AssumeReadyDelayMs, st.ReadyDelayMs*2) {
				s.releaseBudget(st)
				s.states[key] = domain.IslandState{
					Kind:      domain.StatePrefetched,
					ReadyTs:   now,
					ExpiresTs: now + int64(c.PrefetchTTLms),
				}
			}
		case domain.StatePrefetched:
			if now >= st.ExpiresTs {
				s.states[key] = domain.IdleState(now, 0)
			}
		}
	}
}

func (s *Scheduler) releaseBudget(st domain.IslandState) {
	s.bytesInFlight -= st.Bytes
	if s.bytesInFlight < 0 {
		s.bytesInFlight = 0
	}
	s.inflightCount--
	if s.inflightCount < 0 {
		s.inflightCount = 0
	}
}

// dispatch drains the queue while capacity allows, scanning at most
// dispatchScanLimit items per attempt for a dispatchable candidate.
func (s *Scheduler) dispatch(now int64) {
	c := s.cfg.raw
	for s.inflightCount < c.MaxInflightFetch && s.bytesInFlight < c.MaxBytesInFlight {
		if !s.dispatchOnce(now) {
			return
		}
	}
}

// dispatchOnce scans the head window for one dispatchable item, drops
// structurally invalid items it passes over, and dispatches the first
// candidate whose state and byte budget allow it. Returns false if no
// further progress is possible this tick.
func (s *Scheduler) dispatchOnce(now int64) bool {
	c := s.cfg.raw
	i := 0
	scanned := 0
	for i < len(s.queue) && scanned < c.DispatchScanLimit {
		item := s.queue[i]
		typeID, _, _ := item.key.Unpack()
		def, ok := s.reg.Lookup(typeID)
		flags, okf := s.reg.EffectiveFlags(item.key, instanceFlags(item.key))
		if !ok || !okf || !flags.Has(domain.PrefetchSafe) {
			s.removeQueueAt(i)
			continue
		}

		st := s.states[item.key] // zero value (Idle, cooldown 0) if never seen
		idleReady := st.Kind == domain.StateIdle && now >= st.CooldownUntil
		if !idleReady {
			i++
			scanned++
			continue
		}
		if s.bytesInFlight+def.EstBytes > c.MaxBytesInFlight {
			i++
			scanned++
			continue
		}

		if !s.dispatchItem(item.key, def, flags, now) {
			// Actuator deferral: item stays queued at its position.
			return false
		}
		s.removeQueueAt(i)
		return true
	}
	return false
}

func (s *Scheduler) removeQueueAt(i int) {
	key := s.queue[i].key
	delete(s.queuedKeys, key)
	s.queue = append(s.queue[:i], s.queue[i+1:]...)
}

func (s *Scheduler) dispatchItem(key domain.IslandKey, def domain.IslandTypeDef, flags domain.Flag, now int64) bool {
	c := s.cfg.raw
	readyDelayMs := c.AssumeReadyDelayMs
	if s.downlinkBytesPerMs != nil && *s.downlinkBytesPerMs > 0 {
		est := float64(def.EstBytes) / *s.downlinkBytesPerMs
		readyDelayMs = domain.Clamp(est, c.AssumeReadyDelayMs, c.MaxAssumeReadyDelayMs)
	}

	handle := s.actuator.Prefetch(def, flags)
	if handle == nil {
		return false
	}

	s.bytesInFlight += def.EstBytes
	s.inflightCount++
	s.states[key] = domain.IslandState{
		Kind:         domain.StatePrefetching,
		StartedTs:    now,
		Bytes:        def.EstBytes,
		ReadyDelayMs: readyDelayMs,
		Handle:       handle,
	}
	return true
}

// RequestHydrate promotes key toward Hydrated, invoking the Actuator's
// hydrate future and recording the outcome in the ledger.
func (s *Scheduler) RequestHydrate(ctx context.Context, key domain.IslandKey, props map[string]string, routeID string, now int64) error {
	s.mu.Lock()
	st := s.states[key]
	switch st.Kind {
	case domain.StateHydrated, domain.StateHydrating:
		s.mu.Unlock()
		return nil
	case domain.StatePrefetching:
		if st.Handle != nil && st.Handle.Done != nil {
			handle := st.Handle
			s.mu.Unlock()
			<-handle.Done // await completion; do not cancel
			s.mu.Lock()
			st = s.states[key]
			if st.Kind == domain.StatePrefetching {
				s.releaseBudget(st)
			}
		} else {
			s.cancelPrefetchLocked(key)
			st = s.states[key]
		}
	default:
		s.cancelPrefetchLocked(key)
		st = s.states[key]
	}

	s.states[key] = domain.IslandState{Kind: domain.StateHydrating, StartedTs: now}
	handle := st.Handle
	s.mu.Unlock()

	err := s.actuator.Hydrate(ctx, handle, props)

	s.mu.Lock()
	ledgerKey := reputation.Key{RouteID: routeID, IslandID: key.String()}
	if err == nil {
		s.states[key] = domain.IslandState{Kind: domain.StateHydrated, StartedTs: now, ReadyTs: now}
		s.ledger.RecordHit(ledgerKey, now)
	} else {
		s.states[key] = domain.IdleState(now, 0)
		s.ledger.RecordMiss(ledgerKey, now)
	}
	s.mu.Unlock()
	return err
}

// FeedbackMiss cancels any active prefetch for key and applies a
// false-positive cooldown.
func (s *Scheduler) FeedbackMiss(key domain.IslandKey, routeID string, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPrefetchLocked(key)
	s.states[key] = domain.IdleState(now, now+int64(s.cfg.raw.FalsePositiveCooldownMs))
	s.ledger.RecordMiss(reputation.Key{RouteID: routeID, IslandID: key.String()}, now)
}

func (s *Scheduler) cancelPrefetchLocked(key domain.IslandKey) {
	st, ok := s.states[key]
	if !ok || st.Kind != domain.StatePrefetching {
		return
	}
	if st.Handle != nil && st.Handle.Abort != nil {
		st.Handle.Abort()
	}
	s.releaseBudget(st)
	delete(s.queuedKeys, key)
	for i, it := range s.queue {
		if it.key == key {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
}

// PruneInactive deletes Idle states that have exceeded prefetchTTLms since
// their last action and are not in activeKeys.
func (s *Scheduler) PruneInactive(activeKeys map[domain.IslandKey]bool, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := int64(s.cfg.raw.PrefetchTTLms)
	for key, st := range s.states {
		if st.Kind != domain.StateIdle {
			continue
		}
		if now-st.LastActionTs > ttl && !activeKeys[key] {
			delete(s.states, key)
		}
	}
}
