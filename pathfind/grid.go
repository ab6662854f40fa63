// Package pathfind implements the tile-blocked pathfinding grid: a grid of
// ceil(mapWidth/Tile) x ceil(mapHeight/Tile) cells, rebuilt each tick from
// the current entities, with a tick-scoped path cache keyed by
// (fromCell, toCell, owner).
package pathfind

import (
	"container/list"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

// Tile is the cell size used to rasterize the map for pathfinding. Grid
// sizing is a function of map dimensions, never a hard-coded map extent.
const Tile = 64.0

// Blocker describes an entity that can occupy a pathfinding cell: a
// building, rock, or non-flying unit of a hostile owner (relative to the
// querying owner).
type Blocker struct {
	X, Y    float64
	Owner   uint64 // 0 = neutral (rocks, ore)
	Flying  bool
}

// Grid is the rebuilt-each-tick blocked-cell map.
type Grid struct {
	width, height int32 // in cells
	originX, originY float64
	blocked       map[cellCoord]uint64 // cell -> bitmask of the owners occupying it (bit owner%62; neutral bit 63)

	cacheMu sync.Mutex
	cache   map[cacheKey][]mgl64.Vec2
}

type cellCoord struct{ X, Y int32 }

type cacheKey struct {
	from, to cellCoord
	owner    uint64
}

// NewGrid constructs a Grid sized to cover [0,mapWidth] x [0,mapHeight].
func NewGrid(mapWidth, mapHeight float64) *Grid {
	w := int32(ceilDiv(mapWidth, Tile))
	h := int32(ceilDiv(mapHeight, Tile))
	return &Grid{
		width:  w,
		height: h,
		blocked: make(map[cellCoord]uint64, w*h/4+1),
		cache:   make(map[cacheKey][]mgl64.Vec2),
	}
}

func ceilDiv(v, tile float64) float64 {
	q := v / tile
	iq := int64(q)
	if float64(iq) != q && q > 0 {
		iq++
	}
	return float64(iq)
}

func cellOf(x, y float64) cellCoord {
	return cellCoord{int32(x / Tile), int32(y / Tile)}
}

// neutralBit marks a cell blocked for every owner (rocks, ore, buildings
// viewed by their own owner are not blockers for themselves; callers pass
// Owner 0 for those that block universally, such as rocks).
const neutralBit = uint64(1) << 63

func ownerBit(owner uint64) uint64 {
	if owner == 0 {
		return neutralBit
	}
	return uint64(1) << (owner % 62)
}

// Rebuild clears and repopulates the grid from the current blockers. The
// path cache is invalidated as part of the rebuild since last tick's
// results are no longer valid against a new block layout.
func (g *Grid) Rebuild(blockers []Blocker) {
	clear(g.blocked)
	clear(g.cache)
	for _, b := range blockers {
		if b.Flying {
			continue
		}
		c := cellOf(b.X, b.Y)
		g.blocked[c] |= ownerBit(b.Owner)
	}
}

// blockedFor reports whether cell c is blocked from the perspective of
// owner: blocked if it carries the neutral bit (rock/ore/no-owner
// obstruction) or any bit other than owner's own.
func (g *Grid) blockedFor(c cellCoord, owner uint64) bool {
	mask, ok := g.blocked[c]
	if !ok {
		return false
	}
	if mask&neutralBit != 0 {
		return true
	}
	return mask&^ownerBit(owner) != 0
}

// Blocked reports whether the cell containing p is blocked from owner's
// perspective. Exposed for steering's whisker-ray obstruction probe.
func (g *Grid) Blocked(p mgl64.Vec2, owner uint64) bool {
	return g.blockedFor(cellOf(p[0], p[1]), owner)
}

// FindPath searches for a polyline from `from` to `to` avoiding cells
// blocked for owner's perspective, using a breadth-first search over the
// tile grid (uniform cost, so BFS already finds the shortest path in cell
// count). Returns nil if no path exists. radius widens the destination
// tolerance: any cell within radius of the destination cell counts as
// reaching it.
func (g *Grid) FindPath(from, to mgl64.Vec2, radius float64, owner uint64) []mgl64.Vec2 {
	fc, tc := cellOf(from[0], from[1]), cellOf(to[0], to[1])
	key := cacheKey{fc, tc, owner}

	g.cacheMu.Lock()
	cached, ok := g.cache[key]
	g.cacheMu.Unlock()
	if ok {
		return cached
	}

	path := g.search(fc, tc, owner, int32(radius/Tile))

	g.cacheMu.Lock()
	g.cache[key] = path
	g.cacheMu.Unlock()
	return path
}

type bfsNode struct {
	c    cellCoord
	from *bfsNode
}

var neighborOffsets = [8][2]int32{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

func (g *Grid) search(from, to cellCoord, owner uint64, slackCells int32) []mgl64.Vec2 {
	// A cell within slackCells of the destination counts as arrival, so a
	// wide unit aiming at an obstructed destination cell (its own target
	// building, a crowded rally point) still gets a usable path.
	arrived := func(c cellCoord) bool {
		dx, dy := c.X-to.X, c.Y-to.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		return dx <= slackCells && dy <= slackCells
	}
	if arrived(from) {
		return nil
	}
	visited := map[cellCoord]bool{from: true}
	q := list.New()
	q.PushBack(&bfsNode{c: from})
	const maxExpansions = 4096
	expansions := 0
	for q.Len() > 0 && expansions < maxExpansions {
		front := q.Remove(q.Front()).(*bfsNode)
		expansions++
		if arrived(front.c) {
			return reconstruct(front)
		}
		for _, off := range neighborOffsets {
			nc := cellCoord{front.c.X + off[0], front.c.Y + off[1]}
			if nc.X < 0 || nc.Y < 0 || nc.X >= g.width || nc.Y >= g.height {
				continue
			}
			if visited[nc] {
				continue
			}
			if nc != to && g.blockedFor(nc, owner) {
				continue
			}
			visited[nc] = true
			q.PushBack(&bfsNode{c: nc, from: front})
		}
	}
	return nil
}

func reconstruct(n *bfsNode) []mgl64.Vec2 {
	var cells []cellCoord
	for cur := n; cur != nil; cur = cur.from {
		cells = append(cells, cur.c)
	}
	out := make([]mgl64.Vec2, len(cells))
	for i, c := range cells {
		// Reverse while converting, waypoints at cell centers.
		out[len(cells)-1-i] = mgl64.Vec2{
			(float64(c.X) + 0.5) * Tile,
			(float64(c.Y) + 0.5) * Tile,
		}
	}
	return out
}

// PathRequest is one unit's pathfinding query, used by FindPathsAsync to
// fan multiple stuck units' repaths out across goroutines.
type PathRequest struct {
	From, To mgl64.Vec2
	Radius   float64
	Owner    uint64
}

// FindPathsAsync resolves many path requests concurrently via an
// errgroup, waiting for all of them before returning, so the fan-out stays
// invisible to the tick: results are deterministic and complete before the
// next phase reads them. Since FindPath
// only reads the (already-rebuilt, tick-scoped) blocked map and its path
// cache is guarded by the grid's own mutex, concurrent calls are safe; two
// requests for the same key may both compute it, with the same result.
func (g *Grid) FindPathsAsync(reqs []PathRequest) [][]mgl64.Vec2 {
	out := make([][]mgl64.Vec2, len(reqs))
	var eg errgroup.Group
	for i, r := range reqs {
		i, r := i, r
		eg.Go(func() error {
			out[i] = g.FindPath(r.From, r.To, r.Radius, r.Owner)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}
