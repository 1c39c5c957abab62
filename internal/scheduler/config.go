package scheduler

// Config holds the tunable parameters of the flight scheduler (spec.md §6).
type Config struct {
	MaxInflightFetch        int
	MaxBytesInFlight        int64
	PrefetchTTLms           float64
	FalsePositiveCooldownMs float64
	AssumeReadyDelayMs      float64
	MaxAssumeReadyDelayMs   float64
	AllowEarlyHydrate       bool
	DispatchScanLimit       int
}

// DefaultConfig returns the spec's reference defaults.
func DefaultConfig() Config {
	return Config{
		MaxInflightFetch:        4,
		MaxBytesInFlight:        300_000,
		PrefetchTTLms:           15_000,
		FalsePositiveCooldownMs: 4_000,
		AssumeReadyDelayMs:      120,
		MaxAssumeReadyDelayMs:   2_000,
		AllowEarlyHydrate:       false,
		DispatchScanLimit:       8,
	}
}

// Derived is the clamped form of Config.
type Derived struct {
	raw Config
}

// Derive recomputes the cached derived values, clamping defensively.
func Derive(c Config) Derived {
	if c.MaxInflightFetch <= 0 {
		c.MaxInflightFetch = 1
	}
	if c.MaxBytesInFlight <= 0 {
		c.MaxBytesInFlight = 1
	}
	if c.AssumeReadyDelayMs <= 0 {
		c.AssumeReadyDelayMs = 120
	}
	if c.MaxAssumeReadyDelayMs < c.AssumeReadyDelayMs {
		c.MaxAssumeReadyDelayMs = c.AssumeReadyDelayMs
	}
	if c.DispatchScanLimit <= 0 {
		c.DispatchScanLimit = 8
	}
	return Derived{raw: c}
}
