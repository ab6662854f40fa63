package ai

import (
	"math"

	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// scoutInterval is how many ticks pass between scouting runs during
// buildup.
const scoutInterval = 600

// scoutActions keeps ps.EnemyBaseLocation current and, while the AI is
// still building up, periodically walks one fast unassigned combat unit
// out toward the enemy base so the army isn't blind-rushing into an
// unvisited quadrant when the strategy finally flips to attack.
func scoutActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, strategy Strategy) []world.Action {
	refreshEnemyBaseLocation(s, ps, owner)

	if strategy != StrategyBuildup || ps.EnemyBaseLocation == nil {
		return nil
	}
	if s.Tick-ps.LastScoutTick < scoutInterval {
		return nil
	}

	scout := pickScout(s, catalog, ps, owner)
	if scout == 0 {
		return nil
	}
	ps.LastScoutTick = s.Tick
	return []world.Action{{
		Type:      world.ActionCommandMove,
		PlayerID:  owner,
		EntityIDs: []world.EntityID{scout},
		Pos:       *ps.EnemyBaseLocation,
	}}
}

// refreshEnemyBaseLocation records the enemy building nearest this AI's
// own base as "the enemy base", clearing the record once no enemy
// building stands.
func refreshEnemyBaseLocation(s *world.State, ps *PlayerState, owner world.PlayerID) {
	center, haveCenter := baseCenter(s, owner)
	if !haveCenter {
		return
	}
	var best *world.Vec2
	bestDist := math.Inf(1)
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner == owner || e.Owner == 0 {
			continue
		}
		if d := dist(center, e.Pos); d < bestDist {
			p := e.Pos
			best = &p
			bestDist = d
		}
	}
	ps.EnemyBaseLocation = best
}

// pickScout prefers the fastest unassigned combat unit; speed matters more
// than firepower for a round trip across the map.
func pickScout(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID) world.EntityID {
	assigned := ps.assignedUnits()
	var best world.EntityID
	bestSpeed := 0.0
	for _, u := range armyUnits(s, catalog, owner) {
		if assigned[u.ID] {
			continue
		}
		entry, ok := catalog.Lookup(u.Key)
		if !ok {
			continue
		}
		if entry.Speed > bestSpeed {
			best, bestSpeed = u.ID, entry.Speed
		}
	}
	return best
}
