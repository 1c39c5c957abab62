package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the engine's structured logger. Matching the teacher's
// own logging texture — a handful of sparse, prefixed lines rather than a
// dedicated structured-logging library — this is the one place log/slog is
// reached for instead of a third-party logger; see DESIGN.md for why no
// pack library covers this better than the standard library here.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", "actuator")
}
