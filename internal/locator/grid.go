// Package locator implements the spatial locator (spec.md §4.7): a uniform
// grid index over island rectangles supporting O(1) nearby-queries.
package locator

import (
	"math"

	"github.com/islandport/actuator/internal/domain"
)

// CellSize is the uniform grid cell size in device pixels.
const CellSize = 400.0

// cellKey packs a (cx, cy) cell coordinate the same way spec.md §4.7
// specifies: (cy<<16)|cx. Cell coordinates are kept within int32 range by
// callers (device-pixel surfaces never approach 2^16 cells in practice).
func cellKey(cx, cy int32) int64 {
	return (int64(cy) << 16) | int64(uint32(cx)&0xFFFF)
}

func cellCoord(v float64) int32 {
	return int32(math.Floor(v / CellSize))
}

// Grid is a uniform-grid spatial index over island rectangles.
type Grid struct {
	cells map[int64][]domain.IslandKey
	rects map[domain.IslandKey]domain.Rect

	// scratch is reused across queries to avoid per-call allocation
	// (spec.md §9 "per-frame allocation must be zero or near-zero").
	scratchSeen map[domain.IslandKey]struct{}
}

// New creates an empty Grid.
func New() *Grid {
	return &Grid{
		cells:       make(map[int64][]domain.IslandKey),
		rects:       make(map[domain.IslandKey]domain.Rect),
		scratchSeen: make(map[domain.IslandKey]struct{}),
	}
}

// Rebuild replaces the full island set and grid from scratch. Must be called
// after any rect update (spec.md §4.7 "Must be rebuilt after any rect
// update").
func (g *Grid) Rebuild(candidates []domain.Candidate) {
	for k := range g.cells {
		delete(g.cells, k)
	}
	for k := range g.rects {
		delete(g.rects, k)
	}
	for _, c := range candidates {
		g.insert(c.Key, c.Rect)
	}
}

// Upsert inserts or updates a single island's rect, re-indexing it into the
// grid. Cheaper than a full Rebuild for single-island layout changes, but
// still must run before the next query to honor the "rebuilt after any rect
// update" invariant for that island.
func (g *Grid) Upsert(key domain.IslandKey, rect domain.Rect) {
	if old, ok := g.rects[key]; ok {
		g.removeFromCells(key, old)
	}
	g.insert(key, rect)
}

// Remove drops an island from the index entirely.
func (g *Grid) Remove(key domain.IslandKey) {
	if old, ok := g.rects[key]; ok {
		g.removeFromCells(key, old)
		delete(g.rects, key)
	}
}

func (g *Grid) insert(key domain.IslandKey, rect domain.Rect) {
	g.rects[key] = rect
	cx0, cy0 := cellCoord(rect.X), cellCoord(rect.Y)
	cx1, cy1 := cellCoord(rect.X+rect.W), cellCoord(rect.Y+rect.H)
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			ck := cellKey(cx, cy)
			g.cells[ck] = append(g.cells[ck], key)
		}
	}
}

func (g *Grid) removeFromCells(key domain.IslandKey, rect domain.Rect) {
	cx0, cy0 := cellCoord(rect.X), cellCoord(rect.Y)
	cx1, cy1 := cellCoord(rect.X+rect.W), cellCoord(rect.Y+rect.H)
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			ck := cellKey(cx, cy)
			list := g.cells[ck]
			for i, k := range list {
				if k == key {
					list[i] = list[len(list)-1]
					g.cells[ck] = list[:len(list)-1]
					break
				}
			}
		}
	}
}

// QueryNearby visits cells in [cx-r, cx+r] x [cy-r, cy+r] around (px, py),
// where r = ceil(radius/CellSize) (default radius yields r=1, i.e. a 3x3
// scan). Results are deduped and appended to out, which callers should reuse
// across frames to avoid allocation; out is truncated to zero length first.
func (g *Grid) QueryNearby(px, py float64, radius *float64, out []domain.Candidate) []domain.Candidate {
	out = out[:0]
	r := int32(1)
	if radius != nil {
		r = int32(math.Ceil(*radius / CellSize))
		if r < 0 {
			r = 0
		}
	}

	cx, cy := cellCoord(px), cellCoord(py)
	for k := range g.scratchSeen {
		delete(g.scratchSeen, k)
	}

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			ck := cellKey(cx+dx, cy+dy)
			for _, key := range g.cells[ck] {
				if _, seen := g.scratchSeen[key]; seen {
					continue
				}
				g.scratchSeen[key] = struct{}{}
				rect, ok := g.rects[key]
				if !ok {
					continue
				}
				out = append(out, domain.Candidate{Key: key, Rect: rect})
			}
		}
	}
	return out
}

// Len returns the number of indexed islands.
func (g *Grid) Len() int { return len(g.rects) }

// Rect returns the rect currently indexed for key, if any.
func (g *Grid) Rect(key domain.IslandKey) (domain.Rect, bool) {
	r, ok := g.rects[key]
	return r, ok
}
