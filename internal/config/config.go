// Package config loads the engine's per-component configuration from a TOML
// file into the Config records each component package already exposes
// (spec.md §6), and computes their derived forms with the same Derive
// functions each component uses for its own cache (spec.md §9 "setConfig ...
// recomputes a derived cache").
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/islandport/actuator/internal/domain"
	"github.com/islandport/actuator/internal/gate"
	"github.com/islandport/actuator/internal/lock"
	"github.com/islandport/actuator/internal/predictor"
	"github.com/islandport/actuator/internal/pressure"
	"github.com/islandport/actuator/internal/reputation"
	"github.com/islandport/actuator/internal/scheduler"
)

// Root is the top-level config file shape: one section per component.
// A missing section is not an error — it falls back to that component's
// DefaultConfig.
type Root struct {
	Predictor predictor.Config  `toml:"predictor"`
	Lock      lock.Config       `toml:"lock"`
	Gate      gate.Config       `toml:"gate"`
	Scheduler scheduler.Config  `toml:"scheduler"`
	Ledger    reputation.Config `toml:"ledger"`
	Pressure  pressure.Config   `toml:"pressure"`
}

// DerivedConfig holds every component's precomputed derived form, mirroring
// the per-component Derive caches. It is opaque outside this package; its
// purpose is to let callers pay the derivation cost once per config change
// rather than once per tick.
type DerivedConfig struct {
	Predictor predictor.Derived
	Lock      lock.Derived
	Gate      gate.Derived
	Scheduler scheduler.Derived
	Pressure  pressure.Derived
}

// DefaultRoot returns a Root populated entirely from each component's own
// DefaultConfig, equivalent to loading an empty file.
func DefaultRoot() Root {
	return Root{
		Predictor: predictor.DefaultConfig(),
		Lock:      lock.DefaultConfig(),
		Gate:      gate.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
		Ledger:    reputation.DefaultConfig(),
		Pressure:  pressure.DefaultConfig(),
	}
}

// Load reads path as TOML into a Root seeded with defaults, so any section
// (or field within a section) the file omits keeps its component default
// rather than zeroing out.
func Load(path string) (*Root, error) {
	root := DefaultRoot()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, path, err)
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &root, nil
}

// Validate checks invariants that a plain TOML decode can't catch on its own:
// inverted min/max pairs, plus a few single values that must be positive or
// in range (ledger alpha, scheduler maxInflightFetch, lock topK). Other
// per-field defensive clamping still happens in each component's own
// Derive — Validate exists to reject configs a user should fix, not to
// silently repair them.
func (r Root) Validate() error {
	if r.Ledger.MinPrior > r.Ledger.MaxPrior {
		return fmt.Errorf("%w: ledger.minPrior (%v) > ledger.maxPrior (%v)", domain.ErrInvalidConfig, r.Ledger.MinPrior, r.Ledger.MaxPrior)
	}
	if r.Ledger.Alpha <= 0 || r.Ledger.Alpha > 1 {
		return fmt.Errorf("%w: ledger.alpha (%v) must be in (0, 1]", domain.ErrInvalidConfig, r.Ledger.Alpha)
	}
	if r.Scheduler.MaxInflightFetch <= 0 {
		return fmt.Errorf("%w: scheduler.maxInflightFetch must be positive", domain.ErrInvalidConfig)
	}
	if r.Scheduler.MaxAssumeReadyDelayMs < r.Scheduler.AssumeReadyDelayMs {
		return fmt.Errorf("%w: scheduler.maxAssumeReadyDelayMs (%v) < scheduler.assumeReadyDelayMs (%v)",
			domain.ErrInvalidConfig, r.Scheduler.MaxAssumeReadyDelayMs, r.Scheduler.AssumeReadyDelayMs)
	}
	if r.Gate.EtaImmediateMs > r.Gate.EtaModerateMs {
		return fmt.Errorf("%w: gate.etaImmediateMs (%v) > gate.etaModerateMs (%v)",
			domain.ErrInvalidConfig, r.Gate.EtaImmediateMs, r.Gate.EtaModerateMs)
	}
	if r.Lock.TopK <= 0 {
		return fmt.Errorf("%w: lock.topK must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// Derived computes the derived form of every section on each call; Root
// keeps no copy of the result.
func (r Root) Derived() DerivedConfig {
	return DerivedConfig{
		Predictor: predictor.Derive(r.Predictor),
		Lock:      lock.Derive(r.Lock),
		Gate:      gate.Derive(r.Gate),
		Scheduler: scheduler.Derive(r.Scheduler),
		Pressure:  pressure.Derive(r.Pressure),
	}
}
