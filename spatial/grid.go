// Package spatial implements the uniform-grid spatial index: a scratch
// structure rebuilt at the start of each tick (and again after production
// and after the well phase) from the
// authoritative world state, supporting O(k) radius queries. It never
// persists across ticks; callers call Reset then Insert every entity they
// want indexed for that tick.
package spatial

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/fasthash/fnv1a"
)

// Tile is the cell size of the grid, in world units. Chosen so that most
// queries touch a small, bounded number of cells.
const Tile = 128.0

// Item is anything the grid can index: a position, a radius and whatever
// payload the caller wants back from a query.
type Item struct {
	ID     uint64
	Owner  uint64
	Type   string
	X, Y   float64
	Radius float64
}

type cellKey uint64

func keyFor(cx, cy int32) cellKey {
	var buf [8]byte
	putInt32(buf[0:4], cx)
	putInt32(buf[4:8], cy)
	return cellKey(fnv1a.HashBytes64(buf[:]))
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func cellOf(x, y float64) (int32, int32) {
	return int32(floorDiv(x, Tile)), int32(floorDiv(y, Tile))
}

func floorDiv(v, tile float64) float64 {
	q := v / tile
	if q < 0 {
		// math.Floor without importing math for a one-line quotient; a
		// negative division in Go truncates toward zero, so adjust.
		iq := int64(q)
		if float64(iq) != q {
			iq--
		}
		return float64(iq)
	}
	return float64(int64(q))
}

// Grid is a uniform-cell spatial index. Zero value is usable.
type Grid struct {
	cells map[cellKey][]Item
	items map[uint64]Item
}

// NewGrid returns an empty Grid ready for Insert calls.
func NewGrid() *Grid {
	return &Grid{cells: make(map[cellKey][]Item), items: make(map[uint64]Item)}
}

// Reset clears the grid without releasing its backing maps, so it can be
// rebuilt every tick without repeated allocation.
func (g *Grid) Reset() {
	clear(g.cells)
	clear(g.items)
}

// Insert adds an item to the grid under the cell its center falls in.
// Inserting the same ID twice without a Reset in between is undefined; call
// Remove first if an entity moves within a tick. The kernel itself never
// does: it Resets and re-inserts every entity after production and again
// after the well phase.
func (g *Grid) Insert(it Item) {
	cx, cy := cellOf(it.X, it.Y)
	k := keyFor(cx, cy)
	g.cells[k] = append(g.cells[k], it)
	g.items[it.ID] = it
}

// Remove drops an item by id, if present.
func (g *Grid) Remove(id uint64) {
	it, ok := g.items[id]
	if !ok {
		return
	}
	cx, cy := cellOf(it.X, it.Y)
	k := keyFor(cx, cy)
	bucket := g.cells[k]
	for i, cand := range bucket {
		if cand.ID == id {
			bucket[i] = bucket[len(bucket)-1]
			g.cells[k] = bucket[:len(bucket)-1]
			break
		}
	}
	delete(g.items, id)
}

// cellsTouchingDisk returns every cell coordinate whose AABB may contain a
// point within r of (x, y).
func cellsTouchingDisk(x, y, r float64) [][2]int32 {
	minX, minY := cellOf(x-r, y-r)
	maxX, maxY := cellOf(x+r, y+r)
	var out [][2]int32
	for cx := minX; cx <= maxX; cx++ {
		for cy := minY; cy <= maxY; cy++ {
			out = append(out, [2]int32{cx, cy})
		}
	}
	return out
}

// QueryRadius returns every indexed item whose AABB intersects the disk
// centered at (x, y) with radius r. Callers must re-check precise distance
// themselves; this only does the coarse cell filter.
func (g *Grid) QueryRadius(x, y, r float64) []Item {
	var out []Item
	for _, c := range cellsTouchingDisk(x, y, r) {
		for _, it := range g.cells[keyFor(c[0], c[1])] {
			if aabbIntersectsDisk(it, x, y, r) {
				out = append(out, it)
			}
		}
	}
	return out
}

// QueryRadiusByType is QueryRadius filtered to a single Item.Type.
func (g *Grid) QueryRadiusByType(x, y, r float64, typ string) []Item {
	var out []Item
	for _, c := range cellsTouchingDisk(x, y, r) {
		for _, it := range g.cells[keyFor(c[0], c[1])] {
			if it.Type == typ && aabbIntersectsDisk(it, x, y, r) {
				out = append(out, it)
			}
		}
	}
	return out
}

// QueryEnemiesInRadius is QueryRadius filtered to items not owned by
// ownerID (owner 0 is treated as neutral and never matches as an enemy of
// anyone, nor does anything owned by ownerID itself).
func (g *Grid) QueryEnemiesInRadius(x, y, r float64, ownerID uint64) []Item {
	var out []Item
	for _, c := range cellsTouchingDisk(x, y, r) {
		for _, it := range g.cells[keyFor(c[0], c[1])] {
			if it.Owner == 0 || it.Owner == ownerID {
				continue
			}
			if aabbIntersectsDisk(it, x, y, r) {
				out = append(out, it)
			}
		}
	}
	return out
}

func aabbIntersectsDisk(it Item, x, y, r float64) bool {
	closestX := clamp(x, it.X-it.Radius, it.X+it.Radius)
	closestY := clamp(y, it.Y-it.Radius, it.Y+it.Radius)
	d := mgl64.Vec2{closestX - x, closestY - y}
	return d.LenSqr() <= r*r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
