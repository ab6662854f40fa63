package ai

import (
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// harvesterSafetyActions is stage 1 of the pipeline: any owned
// harvester that is under attack or has an enemy within
// harvesterMinSafeDistance gets an immediate flee COMMAND_MOVE toward the
// owner's base, overriding whatever order it was already carrying out. The
// flee order drives applyCommandMove's existing ManualMode latch (world's
// auto-harvest sub-AI, grounded on movement.go's tickHarvesterFor, steps
// aside for any manually ordered unit), so once the danger passes the
// harvester stays under this package's control rather than kernel autopilot
// until stage 4's re-tasking hands it back an assignment.
//
// A harvester that just fled is exempt from re-evaluation for
// harvesterFleeCooldownTicks, so a single lingering raider at the treeline
// doesn't re-trigger the same order every think tick.
func harvesterSafetyActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID) []world.Action {
	center, haveCenter := baseCenter(s, owner)
	if !haveCenter {
		return nil
	}
	if ps.HarvesterFleeCooldown == nil {
		ps.HarvesterFleeCooldown = make(map[world.EntityID]int64)
	}

	var acts []world.Action
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner != owner || e.Kind != world.KindUnit || e.Unit.Harvester == nil {
			continue
		}
		if until, onCooldown := ps.HarvesterFleeCooldown[e.ID]; onCooldown {
			if s.Tick < until {
				continue
			}
			delete(ps.HarvesterFleeCooldown, e.ID)
		}

		underAttack := harvesterUnderAttack(s, e, s.Tick)
		tooClose := nearestEnemyDistance(s, owner, e.Pos) <= harvesterMinSafeDistance
		if !underAttack && !tooClose {
			continue
		}

		acts = append(acts, world.Action{
			Type:      world.ActionCommandMove,
			PlayerID:  owner,
			EntityIDs: []world.EntityID{e.ID},
			Pos:       center,
		})
		ps.HarvesterFleeCooldown[e.ID] = s.Tick + harvesterFleeCooldownTicks
	}
	return acts
}
