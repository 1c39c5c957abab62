package simulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/islandport/actuator/internal/domain"
)

func TestPrefetchResolvesAfterEstimatedDelay(t *testing.T) {
	a := New(Config{DownlinkBytesPerMs: 1000, HydrateLatencyMs: 1}, 1)
	h := a.Prefetch(domain.IslandTypeDef{EstBytes: 1000}, domain.PrefetchSafe)
	if h == nil {
		t.Fatal("expected non-nil handle")
	}
	select {
	case err := <-h.Done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("prefetch did not resolve in time")
	}
}

func TestPrefetchAbortCancelsDone(t *testing.T) {
	a := New(Config{DownlinkBytesPerMs: 1, HydrateLatencyMs: 1}, 1)
	h := a.Prefetch(domain.IslandTypeDef{EstBytes: 100000}, 0)
	h.Abort()
	select {
	case err := <-h.Done:
		if err == nil {
			t.Fatal("expected context-cancellation error after abort")
		}
	case <-time.After(time.Second):
		t.Fatal("aborted prefetch never resolved")
	}
}

func TestHydrateFailureRateIsDeterministicForSeed(t *testing.T) {
	a := New(Config{HydrateLatencyMs: 0, FailureRate: 1}, 42)
	err := a.Hydrate(context.Background(), nil, nil)
	if !errors.Is(err, domain.ErrHydrateFailed) {
		t.Fatalf("expected ErrHydrateFailed with FailureRate=1, got %v", err)
	}

	b := New(Config{HydrateLatencyMs: 0, FailureRate: 0.5}, 42)
	c := New(Config{HydrateLatencyMs: 0, FailureRate: 0.5}, 42)
	for i := 0; i < 20; i++ {
		errB := b.Hydrate(context.Background(), nil, nil)
		errC := c.Hydrate(context.Background(), nil, nil)
		if (errB == nil) != (errC == nil) {
			t.Fatalf("same seed diverged at call %d: %v vs %v", i, errB, errC)
		}
	}
}

func TestHydrateNeverFailsWithZeroFailureRate(t *testing.T) {
	a := New(Config{HydrateLatencyMs: 0, FailureRate: 0}, 7)
	for i := 0; i < 50; i++ {
		if err := a.Hydrate(context.Background(), nil, nil); err != nil {
			t.Fatalf("unexpected failure at iteration %d: %v", i, err)
		}
	}
}

func TestHydrateRespectsContextCancellation(t *testing.T) {
	a := New(Config{HydrateLatencyMs: 1000}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.Hydrate(ctx, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGetNavUrlReturnsStableStub(t *testing.T) {
	a := New(DefaultConfig(), 1)
	url, ok := a.GetNavUrl(7, nil)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if url == "" {
		t.Fatal("expected non-empty url")
	}
}
