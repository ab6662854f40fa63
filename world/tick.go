package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/pathfind"
	"github.com/egeozcan/rtsim/spatial"
)

// Tick advances the simulation by exactly one step through the fixed
// phase order: production → well updates → per-entity updates (movement,
// combat, air unit state) → projectile advance → damage apply →
// explosions → repair → death filter → victory check. It returns a new
// *State; prev must not be used again afterward.
func (k *Kernel) Tick(prev *State) *State {
	s := prev.Clone()
	if !s.Running {
		return s
	}
	s.Tick++
	k.pendingDamage = k.pendingDamage[:0]
	k.explosionQueue = k.explosionQueue[:0]

	k.rebuildGrids(s)
	tickProduction(s, k.conf.Catalog, k.log())
	k.grid.Reset()
	insertAllEntities(k.grid, s)

	tickWells(s, k.grid, k.conf.Catalog)

	k.grid.Reset()
	insertAllEntities(k.grid, s)

	pg := k.pathGrid(s.Config)
	pg.Rebuild(blockersFrom(s))

	tickUnitsAndBuildings(s, k.grid, pg, k.conf.Catalog, k)

	tickProjectiles(s, k.conf.Catalog, k)
	applyPendingDamage(s, k.conf.Catalog, k)
	processExplosionQueue(s, k.conf.Catalog, k)
	tickRepair(s, k.conf.Catalog)

	filterDead(s, k)
	checkVictory(s, k.conf.Catalog, k)

	return s
}

func (k *Kernel) rebuildGrids(s *State) {
	k.grid.Reset()
	insertAllEntities(k.grid, s)
}

// insertAllEntities walks entities in id order so the grid's per-cell
// bucket order, and with it every downstream query result, target pick
// and tie-break, is identical run to run.
func insertAllEntities(grid *spatial.Grid, s *State) {
	for _, e := range s.OrderedEntities() {
		if e.Dead {
			continue
		}
		grid.Insert(spatial.Item{
			ID:     uint64(e.ID),
			Owner:  uint64(e.Owner),
			Type:   e.Kind.String(),
			X:      e.Pos[0],
			Y:      e.Pos[1],
			Radius: e.Radius,
		})
	}
}

// blockersFrom builds the pathfinding blocker list: buildings and rocks
// block universally (Owner 0), non-flying units block only hostile
// pathing (kept under their true Owner).
func blockersFrom(s *State) []pathfind.Blocker {
	out := make([]pathfind.Blocker, 0, len(s.Entities))
	for _, e := range s.OrderedEntities() {
		if e.Dead {
			continue
		}
		switch e.Kind {
		case KindBuilding, KindRock:
			out = append(out, pathfind.Blocker{X: e.Pos[0], Y: e.Pos[1], Owner: 0})
		case KindUnit:
			if e.Flying() {
				continue
			}
			out = append(out, pathfind.Blocker{X: e.Pos[0], Y: e.Pos[1], Owner: uint64(e.Owner)})
		}
	}
	return out
}

// vec2Ptr is a small convenience used across the kernel for the
// `*mgl64.Vec2` optional-target fields in MovementState/BuildingData.
func vec2Ptr(v mgl64.Vec2) *mgl64.Vec2 { return &v }
