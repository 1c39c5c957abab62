package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Per spec.md §7, the
// core itself never returns these across its public boundary except as the
// rethrown result of an external hydrate call; they exist for the ambient
// config/CLI/API layers that DO return plain errors.

var (
	// Config errors.
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrConfigNotFound  = errors.New("config file not found")

	// Key codec errors.
	ErrKeyOverflow     = errors.New("island key overflows 40 bits")
	ErrKeyInvalid      = errors.New("island key is invalid")
	ErrKeyNotAnInteger = errors.New("island key text is not a valid base-36 integer")

	// Hydration (rethrown verbatim from the Actuator).
	ErrHydrateFailed = errors.New("hydrate failed")
)
