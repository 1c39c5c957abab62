// Package simulate implements an in-memory domain.Actuator for the CLI
// replay tool and for engine-level tests. It never models real network or
// DOM work — only configurable latency and failure injection. Prefetch
// delays use the same estBytes/downlink division as the scheduler's
// readyDelayMs, without the scheduler's clamp to
// [assumeReadyDelayMs, maxAssumeReadyDelayMs].
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/islandport/actuator/internal/domain"
)

// Config tunes the simulated actuator.
type Config struct {
	DownlinkBytesPerMs float64 // Prefetch delay is estBytes divided by this, unclamped
	HydrateLatencyMs   float64
	FailureRate        float64 // probability in [0,1] that Hydrate fails
}

// DefaultConfig returns reasonable defaults for local replay/testing.
func DefaultConfig() Config {
	return Config{
		DownlinkBytesPerMs: 50,
		HydrateLatencyMs:   30,
		FailureRate:        0,
	}
}

// Actuator is a deterministic-given-seed, in-memory domain.Actuator.
type Actuator struct {
	cfg Config
	rng *rand.Rand
}

// New creates an Actuator. seed controls the failure-injection RNG, so
// replay runs are reproducible.
func New(cfg Config, seed int64) *Actuator {
	if cfg.DownlinkBytesPerMs <= 0 {
		cfg.DownlinkBytesPerMs = 50
	}
	return &Actuator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Prefetch simulates speculative loading: it returns immediately with a
// handle whose Done future resolves after estBytes/downlink milliseconds,
// and whose Abort cancels that wait.
func (a *Actuator) Prefetch(def domain.IslandTypeDef, flags domain.Flag) *domain.PrefetchHandle {
	delay := time.Duration(float64(def.EstBytes)/a.cfg.DownlinkBytesPerMs) * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		select {
		case <-time.After(delay):
			done <- nil
		case <-ctx.Done():
			done <- ctx.Err()
		}
	}()

	return &domain.PrefetchHandle{Kind: "fetch", Abort: cancel, Done: done}
}

// Hydrate simulates activation latency and, per cfg.FailureRate, injected
// failure.
func (a *Actuator) Hydrate(ctx context.Context, handle *domain.PrefetchHandle, props map[string]string) error {
	select {
	case <-time.After(time.Duration(a.cfg.HydrateLatencyMs) * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	if a.cfg.FailureRate > 0 && a.rng.Float64() < a.cfg.FailureRate {
		return fmt.Errorf("%w: simulated failure", domain.ErrHydrateFailed)
	}
	return nil
}

// GetNavUrl returns a deterministic stub URL for NavLike islands.
func (a *Actuator) GetNavUrl(typeID uint32, props map[string]string) (string, bool) {
	return fmt.Sprintf("/islands/%d", typeID), true
}

// SpeculatePrefetchUrl is a no-op in the simulator; there is no real
// transport to hint.
func (a *Actuator) SpeculatePrefetchUrl(url string) {}
