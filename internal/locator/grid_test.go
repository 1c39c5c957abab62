package locator

import (
	"testing"

	"github.com/islandport/actuator/internal/domain"
)

func keyN(n uint32) domain.IslandKey { return domain.PackKey(1, n, 0) }

func TestRebuildAndQueryNearby(t *testing.T) {
	g := New()
	g.Rebuild([]domain.Candidate{
		{Key: keyN(1), Rect: domain.Rect{X: 0, Y: 0, W: 50, H: 50}},
		{Key: keyN(2), Rect: domain.Rect{X: 1000, Y: 1000, W: 50, H: 50}},
	})

	var out []domain.Candidate
	out = g.QueryNearby(10, 10, nil, out)
	if len(out) != 1 || out[0].Key != keyN(1) {
		t.Fatalf("expected only island 1 nearby, got %+v", out)
	}

	out = g.QueryNearby(1010, 1010, nil, out)
	if len(out) != 1 || out[0].Key != keyN(2) {
		t.Fatalf("expected only island 2 nearby, got %+v", out)
	}
}

func TestQueryDedupesAcrossCells(t *testing.T) {
	g := New()
	// A rect spanning multiple cells should appear once, not once per cell.
	g.Rebuild([]domain.Candidate{
		{Key: keyN(1), Rect: domain.Rect{X: -50, Y: -50, W: 900, H: 900}},
	})
	var out []domain.Candidate
	out = g.QueryNearby(0, 0, nil, out)
	if len(out) != 1 {
		t.Fatalf("expected exactly one result, got %d: %+v", len(out), out)
	}
}

func TestUpsertReindexes(t *testing.T) {
	g := New()
	g.Upsert(keyN(1), domain.Rect{X: 0, Y: 0, W: 10, H: 10})
	g.Upsert(keyN(1), domain.Rect{X: 2000, Y: 2000, W: 10, H: 10})

	var out []domain.Candidate
	out = g.QueryNearby(5, 5, nil, out)
	if len(out) != 0 {
		t.Fatalf("expected island moved away, got %+v", out)
	}
	out = g.QueryNearby(2005, 2005, nil, out)
	if len(out) != 1 {
		t.Fatalf("expected island at new location, got %+v", out)
	}
}

func TestRemove(t *testing.T) {
	g := New()
	g.Upsert(keyN(1), domain.Rect{X: 0, Y: 0, W: 10, H: 10})
	g.Remove(keyN(1))
	var out []domain.Candidate
	out = g.QueryNearby(5, 5, nil, out)
	if len(out) != 0 {
		t.Fatalf("expected no results after remove, got %+v", out)
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestQueryNearbyWithExplicitRadius(t *testing.T) {
	g := New()
	g.Rebuild([]domain.Candidate{
		{Key: keyN(1), Rect: domain.Rect{X: 900, Y: 0, W: 10, H: 10}},
	})
	var out []domain.Candidate
	smallR := 50.0
	out = g.QueryNearby(0, 0, &smallR, out)
	if len(out) != 0 {
		t.Fatalf("small radius should not reach island at x=900, got %+v", out)
	}
	bigR := 1000.0
	out = g.QueryNearby(0, 0, &bigR, out)
	if len(out) != 1 {
		t.Fatalf("large radius should reach island at x=900, got %+v", out)
	}
}
