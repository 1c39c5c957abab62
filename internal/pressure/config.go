package pressure

// Config holds the tunable parameters of the pressure monitor (spec.md §6).
type Config struct {
	LongTaskWindowMs float64
	LongTaskBudgetMs float64
}

// DefaultConfig returns the spec's reference defaults.
func DefaultConfig() Config {
	return Config{
		LongTaskWindowMs: 2000,
		LongTaskBudgetMs: 50,
	}
}

// Derived is the clamped form of Config.
type Derived struct {
	raw Config
}

// Derive recomputes the cached derived values, clamping defensively.
func Derive(c Config) Derived {
	if c.LongTaskWindowMs <= 0 {
		c.LongTaskWindowMs = 2000
	}
	if c.LongTaskBudgetMs <= 0 {
		c.LongTaskBudgetMs = 50
	}
	return Derived{raw: c}
}
