// Package lock implements the target lock (spec.md §4.2): a scoring and
// hysteresis state machine that selects a stable "winner" island from
// per-frame candidates, with dwell, decay and no-evidence hold.
package lock

import (
	"sort"

	"github.com/islandport/actuator/internal/domain"
)

// Hinter scores a candidate given its offset from the cursor and its squared
// effective radius. predictor.Predictor satisfies this; the lock
// package depends only on the interface so it stays independently testable.
type Hinter interface {
	Hint(dx, dy, targetRadiusSq float64) float64
}

type rawEntry struct {
	key      domain.IslandKey
	dSq      float64
	dx, dy   float64
	radiusSq float64
}

type scoredEntry struct {
	key   domain.IslandKey
	dSq   float64
	score float64
}

// Lock holds the winner hysteresis state machine. Not safe for concurrent
// use (spec.md §5: single-threaded core).
type Lock struct {
	cfg Derived

	hasWinner    bool
	winnerKey    domain.IslandKey
	winnerScore  float64

	hasPending   bool
	pendingKey   domain.IslandKey
	pendingCount int

	noEvidenceMs float64

	// scratch buffers, reused across frames (spec.md §9).
	topBuf    []rawEntry
	scoredBuf []scoredEntry
}

// New creates a Lock with the given config.
func New(cfg Config) *Lock {
	return &Lock{cfg: Derive(cfg)}
}

// SetConfig atomically replaces the configuration. Does not reset hysteresis
// state.
func (l *Lock) SetConfig(cfg Config) {
	l.cfg = Derive(cfg)
}

// Reset clears all hysteresis state (no current winner, no pending switch).
func (l *Lock) Reset() {
	l.hasWinner = false
	l.winnerKey = domain.ZeroKey
	l.winnerScore = 0
	l.hasPending = false
	l.pendingKey = domain.ZeroKey
	l.pendingCount = 0
	l.noEvidenceMs = 0
}

// Select scores candidates against the cursor position and advances the
// winner hysteresis state machine by one frame. speed is the predictor's
// current velocity magnitude (px/ms), used only for the returned Selection.
func (l *Lock) Select(cursorX, cursorY float64, candidates []domain.Candidate, hinter Hinter, dtMs, speed float64) domain.Selection {
	c := l.cfg.raw

	l.topBuf = l.buildTopK(cursorX, cursorY, candidates, l.topBuf[:0])

	l.scoredBuf = l.scoredBuf[:0]
	winnerInSet := false
	for _, e := range l.topBuf {
		score := hinter.Hint(e.dx, e.dy, e.radiusSq)
		l.scoredBuf = append(l.scoredBuf, scoredEntry{key: e.key, dSq: e.dSq, score: score})
		if l.hasWinner && e.key == l.winnerKey {
			winnerInSet = true
		}
	}
	if l.hasWinner && !winnerInSet {
		if re, ok := findInCandidates(candidates, l.winnerKey, cursorX, cursorY, c.RadiusMul); ok {
			score := hinter.Hint(re.dx, re.dy, re.radiusSq)
			l.scoredBuf = append(l.scoredBuf, scoredEntry{key: re.key, dSq: re.dSq, score: score})
		}
	}

	var hasNearest bool
	var nearestKey domain.IslandKey
	var nearestDSq float64
	if len(l.topBuf) > 0 {
		hasNearest = true
		nearestKey = l.topBuf[0].key
		nearestDSq = l.topBuf[0].dSq
	}

	hasBest, bestKey, bestScore, secondScore := bestAndSecond(l.scoredBuf)
	margin2nd := bestScore - secondScore

	evidence := hasBest && bestScore >= c.ScoreFloor

	sel := domain.Selection{
		HasBest:     hasBest,
		BestKey:     bestKey,
		BestScore:   bestScore,
		SecondScore: secondScore,
		Margin2nd:   margin2nd,
		HasNearest:  hasNearest,
		NearestKey:  nearestKey,
		NearestDSq:  nearestDSq,
		Speed:       speed,
	}

	if !evidence {
		l.noEvidenceMs += dtMs
		switch {
		case l.hasWinner && hasNearest && nearestKey == l.winnerKey && nearestDSq <= l.cfg.stickDistSq && l.noEvidenceMs <= c.NoEvidenceHoldMs:
			l.winnerScore *= c.Decay
		case l.noEvidenceMs >= c.ClearAfterMs:
			l.Reset()
		}
		sel.Actuate = false
		if l.hasWinner {
			sel.HasKey = true
			sel.Key = l.winnerKey
			sel.Score = l.winnerScore
		}
		if l.hasPending {
			sel.HasPending = true
			sel.PendingKey = l.pendingKey
			sel.PendingCount = l.pendingCount
		}
		sel.Top = fillTop(l.scoredBuf, c.ReportTopN)
		return sel
	}

	l.noEvidenceMs = 0
	if l.hasWinner {
		if measured, ok := measuredScore(l.scoredBuf, l.winnerKey); ok {
			l.winnerScore = measured
		}
	}

	switch {
	case !l.hasWinner:
		l.winnerKey, l.winnerScore, l.hasWinner = bestKey, bestScore, true
		l.hasPending = false
		l.pendingCount = 0
		sel.Actuate = margin2nd >= c.MinMargin2nd

	case bestKey == l.winnerKey:
		l.winnerScore = bestScore
		l.hasPending = false
		l.pendingCount = 0
		sel.Actuate = margin2nd >= c.MinMargin2nd

	default:
		if bestScore >= l.winnerScore+c.SwitchMargin && margin2nd >= c.MinMargin2nd {
			if !l.hasPending || l.pendingKey != bestKey {
				l.pendingKey = bestKey
				l.hasPending = true
				l.pendingCount = 1
			} else {
				l.pendingCount++
			}
			if l.pendingCount >= c.HoldFrames {
				l.winnerKey, l.winnerScore = bestKey, bestScore
				l.hasPending = false
				l.pendingCount = 0
				sel.Actuate = true
			} else {
				sel.Actuate = false
			}
		} else {
			l.hasPending = false
			l.pendingCount = 0
			sel.Actuate = false
		}
	}

	sel.HasKey = l.hasWinner
	sel.Key = l.winnerKey
	sel.Score = l.winnerScore
	if l.hasPending {
		sel.HasPending = true
		sel.PendingKey = l.pendingKey
		sel.PendingCount = l.pendingCount
	}
	sel.Top = fillTop(l.scoredBuf, c.ReportTopN)
	return sel
}

// buildTopK maintains the K smallest-dSq candidates in ascending order,
// reusing buf's backing array. Ties preserve insertion order (the candidate
// slice's own order) — a later-arriving equal-distance candidate never
// displaces an earlier one.
func (l *Lock) buildTopK(cursorX, cursorY float64, candidates []domain.Candidate, buf []rawEntry) []rawEntry {
	k := l.cfg.raw.TopK
	radiusMul := l.cfg.raw.RadiusMul

	for _, cand := range candidates {
		re := makeRawEntry(cand, cursorX, cursorY, radiusMul)
		buf = insertSorted(buf, re, k)
	}
	return buf
}

func makeRawEntry(cand domain.Candidate, cursorX, cursorY, radiusMul float64) rawEntry {
	cx, cy := cand.Rect.ClosestPoint(cursorX, cursorY)
	dx := cx - cursorX
	dy := cy - cursorY
	minSide := cand.Rect.W
	if cand.Rect.H < minSide {
		minSide = cand.Rect.H
	}
	radius := radiusMul * minSide
	return rawEntry{key: cand.Key, dSq: dx*dx + dy*dy, dx: dx, dy: dy, radiusSq: radius * radius}
}

func insertSorted(buf []rawEntry, re rawEntry, k int) []rawEntry {
	if len(buf) < k {
		pos := len(buf)
		for i, existing := range buf {
			if existing.dSq > re.dSq {
				pos = i
				break
			}
		}
		buf = append(buf, rawEntry{})
		copy(buf[pos+1:], buf[pos:len(buf)-1])
		buf[pos] = re
		return buf
	}
	if len(buf) == 0 || re.dSq >= buf[len(buf)-1].dSq {
		return buf
	}
	pos := len(buf) - 1
	for i, existing := range buf {
		if existing.dSq > re.dSq {
			pos = i
			break
		}
	}
	copy(buf[pos+1:], buf[pos:len(buf)-1])
	buf[pos] = re
	return buf
}

func findInCandidates(candidates []domain.Candidate, key domain.IslandKey, cursorX, cursorY, radiusMul float64) (rawEntry, bool) {
	for _, cand := range candidates {
		if cand.Key == key {
			return makeRawEntry(cand, cursorX, cursorY, radiusMul), true
		}
	}
	return rawEntry{}, false
}

// bestAndSecond finds the best and second-best scores. Equal scores preserve
// the incumbent (first-seen) best, per spec.md §4.2 tie-break rules.
func bestAndSecond(entries []scoredEntry) (hasBest bool, bestKey domain.IslandKey, bestScore, secondScore float64) {
	for _, e := range entries {
		switch {
		case !hasBest:
			hasBest, bestKey, bestScore = true, e.key, e.score
		case e.score > bestScore:
			secondScore = bestScore
			bestKey, bestScore = e.key, e.score
		case e.score > secondScore:
			secondScore = e.score
		}
	}
	return
}

func measuredScore(entries []scoredEntry, key domain.IslandKey) (float64, bool) {
	for _, e := range entries {
		if e.key == key {
			return e.score, true
		}
	}
	return 0, false
}

func fillTop(entries []scoredEntry, n int) []domain.ScoredTarget {
	if len(entries) == 0 {
		return nil
	}
	ordered := make([]scoredEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })
	if n > len(ordered) {
		n = len(ordered)
	}
	top := make([]domain.ScoredTarget, n)
	for i := 0; i < n; i++ {
		top[i] = domain.ScoredTarget{Key: ordered[i].key, Score: ordered[i].score, DSq: ordered[i].dSq}
	}
	return top
}
