// Package spatial indexes live session and alert positions for radius
// queries. The index is a cache over the stores, not a source of
// truth: every query re-checks entry expiry, so a stale index entry is
// invisible rather than wrong.
package spatial

import (
	"sync"

	"github.com/asim/quadtree"
)

// Kind tags what an index entry points at.
type Kind string

const (
	KindSession Kind = "session"
	KindAlert   Kind = "alert"
)

// Entry is one indexed position.
type Entry struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Dummy   bool    `json:"isDummy,omitempty"`
	Expires int64   `json:"-"` // epoch ms after which the entry is dead
}

// Index is a mutex-guarded quadtree over the whole globe.
type Index struct {
	mu     sync.RWMutex
	tree   *quadtree.QuadTree
	points map[string]*quadtree.Point
}

func New() *Index {
	center := quadtree.NewPoint(0, 0, nil)
	half := quadtree.NewPoint(90, 180, nil)
	boundary := quadtree.NewAABB(center, half)

	return &Index{
		tree:   quadtree.New(boundary, 0, nil),
		points: make(map[string]*quadtree.Point),
	}
}

// Upsert inserts or moves an entry.
func (i *Index) Upsert(e *Entry) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.points[e.ID]; ok {
		i.tree.Remove(existing)
	}

	point := quadtree.NewPoint(e.Lat, e.Lon, e)
	if !i.tree.Insert(point) {
		// out of bounds coordinates, drop it
		delete(i.points, e.ID)
		return
	}
	i.points[e.ID] = point
}

// Remove drops an entry. No error if absent.
func (i *Index) Remove(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if point, ok := i.points[id]; ok {
		i.tree.Remove(point)
		delete(i.points, id)
	}
}

// Near returns up to limit non-expired entries within radiusMeters of
// the given point, optionally filtered to one kind.
func (i *Index) Near(lat, lon, radiusMeters float64, kind Kind, limit int, now int64) []*Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	center := quadtree.NewPoint(lat, lon, nil)
	half := center.HalfPoint(radiusMeters)
	boundary := quadtree.NewAABB(center, half)

	filter := func(p *quadtree.Point) bool {
		entry, ok := p.Data().(*Entry)
		if !ok {
			return false
		}
		if entry.Expires > 0 && now >= entry.Expires {
			return false
		}
		return kind == "" || entry.Kind == kind
	}

	points := i.tree.KNearest(boundary, limit, filter)

	var results []*Entry
	for _, p := range points {
		if entry, ok := p.Data().(*Entry); ok {
			results = append(results, entry)
		}
	}
	return results
}

// Len reports how many entries are indexed, dead or alive.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.points)
}
