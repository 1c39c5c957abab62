package scheduler

import (
	"context"
	"testing"

	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/reputation"
)

type fakeActuator struct {
	handle       *domain.PrefetchHandle
	prefetchCall int
	hydrateErr   error
}

func (a *fakeActuator) Prefetch(domain.IslandTypeDef, domain.Flag) *domain.PrefetchHandle {
	a.prefetchCall++
	return a.handle
}
func (a *fakeActuator) Hydrate(context.Context, *domain.PrefetchHandle, map[string]string) error {
	return a.hydrateErr
}
func (a *fakeActuator) GetNavUrl(uint32, map[string]string) (string, bool) { return "", false }
func (a *fakeActuator) SpeculatePrefetchUrl(string)                       {}

func testRegistry() *domain.Registry {
	return domain.NewRegistry([]domain.IslandTypeDef{
		{TypeID: 1, Name: "card", DefaultFlags: domain.PrefetchSafe, EstBytes: 1000},
	})
}

func key(propsID uint32) domain.IslandKey {
	return domain.PackKey(1, propsID, 0)
}

func newTestScheduler(actuator domain.Actuator) *Scheduler {
	cfg := DefaultConfig()
	return New(cfg, testRegistry(), actuator, reputation.New(reputation.DefaultConfig()))
}

func TestEnqueueOrdersByPriorityThenInsertion(t *testing.T) {
	s := newTestScheduler(&fakeActuator{})
	s.Enqueue(domain.Prefetch(0, "r", []domain.IslandKey{key(1), key(2)}), 0)
	s.Enqueue(domain.Prefetch(1, "r", []domain.IslandKey{key(3)}), 0)

	if len(s.queue) != 3 {
		t.Fatalf("expected 3 queued items, got %d", len(s.queue))
	}
	if s.queue[0].key != key(3) {
		t.Fatalf("high-tier target should sort first, got %+v", s.queue[0])
	}
	if s.queue[1].key != key(1) || s.queue[2].key != key(2) {
		t.Fatalf("equal-priority targets should preserve insertion order: %+v", s.queue)
	}
}

func TestEnqueueRejectsSkipAndLateHydrate(t *testing.T) {
	s := newTestScheduler(&fakeActuator{})
	s.Enqueue(domain.Skip("no"), 0)
	if len(s.queue) != 0 {
		t.Fatalf("Skip must never enqueue anything")
	}
	s.Enqueue(domain.Hydrate("x", key(1)), 0)
	if len(s.queue) != 0 {
		t.Fatalf("Hydrate should be rejected unless allowEarlyHydrate")
	}
}

func TestEnqueueTruncatesAtMaxQueueSize(t *testing.T) {
	s := newTestScheduler(&fakeActuator{})
	targets := make([]domain.IslandKey, 0, 40)
	for i := uint32(1); i <= 40; i++ {
		targets = append(targets, key(i))
	}
	s.Enqueue(domain.Prefetch(0, "r", targets), 0)
	if len(s.queue) != MaxQueueSize {
		t.Fatalf("queue should truncate to %d, got %d", MaxQueueSize, len(s.queue))
	}
	if len(s.queuedKeys) != MaxQueueSize {
		t.Fatalf("queuedKeys should match truncated queue, got %d", len(s.queuedKeys))
	}
}

func TestDispatchRespectsInflightCapacity(t *testing.T) {
	actuator := &fakeActuator{handle: &domain.PrefetchHandle{Kind: "fetch"}}
	cfg := DefaultConfig()
	cfg.MaxInflightFetch = 1
	s := New(cfg, testRegistry(), actuator, reputation.New(reputation.DefaultConfig()))
	s.Enqueue(domain.Prefetch(0, "r", []domain.IslandKey{key(1), key(2)}), 0)

	s.Tick(0)
	if s.inflightCount != 1 {
		t.Fatalf("inflightCount = %d, want 1", s.inflightCount)
	}
	if len(s.queue) != 1 {
		t.Fatalf("one item should remain queued, got %d", len(s.queue))
	}
	if actuator.prefetchCall != 1 {
		t.Fatalf("expected exactly one Prefetch call, got %d", actuator.prefetchCall)
	}
}

func TestDispatchNilHandleDefersItem(t *testing.T) {
	actuator := &fakeActuator{handle: nil}
	s := newTestScheduler(actuator)
	s.Enqueue(domain.Prefetch(0, "r", []domain.IslandKey{key(1)}), 0)
	s.Tick(0)
	if s.inflightCount != 0 {
		t.Fatalf("nil handle should not consume budget")
	}
	if len(s.queue) != 1 {
		t.Fatalf("deferred item should remain queued, got %d", len(s.queue))
	}
}

func TestPrefetchingPromotesThenExpires(t *testing.T) {
	actuator := &fakeActuator{handle: &domain.PrefetchHandle{Kind: "fetch"}}
	cfg := DefaultConfig()
	cfg.AssumeReadyDelayMs = 100
	cfg.PrefetchTTLms = 50
	s := New(cfg, testRegistry(), actuator, reputation.New(reputation.DefaultConfig()))
	s.Enqueue(domain.Prefetch(0, "r", []domain.IslandKey{key(1)}), 0)
	s.Tick(0)

	st, _ := s.State(key(1))
	if st.Kind != domain.StatePrefetching {
		t.Fatalf("expected Prefetching after dispatch, got %v", st.Kind)
	}

	s.Tick(250) // past max(assumeReadyDelayMs, readyDelayMs*2) = 200
	st, _ = s.State(key(1))
	if st.Kind != domain.StatePrefetched {
		t.Fatalf("expected Prefetched after ready delay, got %v", st.Kind)
	}
	if s.inflightCount != 0 {
		t.Fatalf("budget should be released on promotion, got inflightCount=%d", s.inflightCount)
	}

	s.Tick(310) // past expiresTs (250 + prefetchTTLms 50)
	st, _ = s.State(key(1))
	if st.Kind != domain.StateIdle {
		t.Fatalf("expected Idle after expiry, got %v", st.Kind)
	}
}

func TestRequestHydrateSuccessRecordsHit(t *testing.T) {
	ledger := reputation.New(reputation.DefaultConfig())
	actuator := &fakeActuator{handle: &domain.PrefetchHandle{Kind: "fetch"}}
	s := New(DefaultConfig(), testRegistry(), actuator, ledger)
	err := s.RequestHydrate(context.Background(), key(1), nil, "route-a", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ := s.State(key(1))
	if st.Kind != domain.StateHydrated {
		t.Fatalf("expected Hydrated, got %v", st.Kind)
	}
	if p := ledger.Prior(reputation.Key{RouteID: "route-a", IslandID: key(1).String()}); p <= 1.0 {
		t.Fatalf("ledger prior should have risen above default after a hit, got %v", p)
	}
}

func TestRequestHydrateFailureRecordsMissAndReturnsIdle(t *testing.T) {
	ledger := reputation.New(reputation.DefaultConfig())
	actuator := &fakeActuator{hydrateErr: context.DeadlineExceeded}
	s := New(DefaultConfig(), testRegistry(), actuator, ledger)
	err := s.RequestHydrate(context.Background(), key(1), nil, "route-a", 0)
	if err == nil {
		t.Fatalf("expected hydrate error to propagate")
	}
	st, _ := s.State(key(1))
	if st.Kind != domain.StateIdle {
		t.Fatalf("expected Idle after hydrate failure, got %v", st.Kind)
	}
	if p := ledger.Prior(reputation.Key{RouteID: "route-a", IslandID: key(1).String()}); p >= 1.0 {
		t.Fatalf("ledger prior should have fallen below default after a miss, got %v", p)
	}
}

func TestFeedbackMissAppliesCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FalsePositiveCooldownMs = 500
	s := New(cfg, testRegistry(), &fakeActuator{}, reputation.New(reputation.DefaultConfig()))
	s.FeedbackMiss(key(1), "route-a", 1000)
	st, _ := s.State(key(1))
	if st.Kind != domain.StateIdle || st.CooldownUntil != 1500 {
		t.Fatalf("expected Idle with cooldownUntil=1500, got %+v", st)
	}
}

func TestPruneInactiveRemovesExpiredIdle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefetchTTLms = 100
	s := New(cfg, testRegistry(), &fakeActuator{}, reputation.New(reputation.DefaultConfig()))
	s.states[key(1)] = domain.IdleState(0, 0)
	s.PruneInactive(map[domain.IslandKey]bool{}, 1000)
	if _, ok := s.State(key(1)); ok {
		t.Fatalf("expected expired idle state to be pruned")
	}
}

func TestPruneInactiveKeepsActiveKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefetchTTLms = 100
	s := New(cfg, testRegistry(), &fakeActuator{}, reputation.New(reputation.DefaultConfig()))
	s.states[key(1)] = domain.IdleState(0, 0)
	s.PruneInactive(map[domain.IslandKey]bool{key(1): true}, 1000)
	if _, ok := s.State(key(1)); !ok {
		t.Fatalf("active key should survive pruning")
	}
}
