package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/randfold"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/spatial"
)

const (
	wellOreSpawnRadius  = 180.0
	wellOreQueryPadding = 20.0
	wellOreGrowthRate   = 10
	wellOreInitialHP    = 100
	wellOreMaxHP        = 300
	wellMaxOrePiles     = 6
	wellSpawnAttempts   = 8
	wellSpawnMinRadius  = 36.0
	wellSpawnMinTicks   = 120
	wellSpawnMaxTicks   = 180

	inductionRigCreditsPerTick = 2
)

// aiResourceBonus is the per-difficulty multiplier applied to an AI-owned
// induction rig's credit trickle.
func aiResourceBonus(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return 0.85
	case DifficultyMedium:
		return 1.0
	case DifficultyHard:
		return 1.3
	default:
		return 1.0
	}
}

// tickWells updates every well: a well tops up an existing, not-yet-full
// ore pile in its radius before ever spawning a new one, and an induction
// rig additionally credits its owner every tick.
func tickWells(s *State, grid *spatial.Grid, catalog rules.Catalog) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || e.Kind != KindWell {
			continue
		}

		if e.Well.IsInductionRig && e.Owner != 0 {
			if player := s.mutablePlayer(e.Owner); player != nil {
				credit := float64(inductionRigCreditsPerTick)
				if player.IsAI {
					credit *= aiResourceBonus(player.Difficulty)
				}
				player.Credits += int(math.Round(credit))
			}
		}

		nearby := grid.QueryRadius(e.Pos[0], e.Pos[1], wellOreSpawnRadius+wellOreQueryPadding)
		if growID, ok := growableResource(s, nearby); ok {
			rm := s.mutableEntity(growID)
			rm.HP += wellOreGrowthRate
			if rm.HP > rm.MaxHP {
				rm.HP = rm.MaxHP
			}
			continue
		}

		if s.Tick < e.Well.NextSpawnTick {
			continue
		}
		if e.Well.CurrentOreCount >= wellMaxOrePiles {
			continue
		}

		pos, ok := findOreSpawnSpot(s.Tick, id, e.Pos, grid)
		wm := s.mutableEntity(id)
		if !ok {
			wm.Well.IsBlocked = true
			wm.Well.NextSpawnTick = s.Tick + int64(randfold.UniformIntRange(s.Tick, uint64(id), randfold.SaltWellSpawn, wellSpawnMinTicks, wellSpawnMaxTicks))
			continue
		}

		wm.Well.IsBlocked = false
		wm.Well.NextSpawnTick = s.Tick + int64(randfold.UniformIntRange(s.Tick, uint64(id), randfold.SaltWellSpawn, wellSpawnMinTicks, wellSpawnMaxTicks))
		wm.Well.CurrentOreCount++
		wm.Well.TotalSpawned++
		s.AddEntity(&Entity{
			Kind:     KindResource,
			Key:      "ore",
			Pos:      pos,
			Radius:   18.0,
			HP:       wellOreInitialHP,
			MaxHP:    wellOreMaxHP,
			Resource: &ResourceData{},
		})
	}
}

// growableResource returns the id of a nearby below-max ore pile, if any.
func growableResource(s *State, items []spatial.Item) (EntityID, bool) {
	for _, item := range items {
		if item.Type != "resource" {
			continue
		}
		e := s.Entities[EntityID(item.ID)]
		if e == nil || e.Dead {
			continue
		}
		if e.HP < e.MaxHP {
			return EntityID(item.ID), true
		}
	}
	return 0, false
}

// findOreSpawnSpot tries wellSpawnAttempts evenly-distributed-then-jittered
// positions around center, rejecting any that overlap an existing unit or
// building.
func findOreSpawnSpot(tick int64, wellID EntityID, center mgl64.Vec2, grid *spatial.Grid) (mgl64.Vec2, bool) {
	for i := 0; i < wellSpawnAttempts; i++ {
		baseAngle := (2 * math.Pi * float64(i)) / wellSpawnAttempts
		jitter := randfold.UniformRange(tick, uint64(wellID), randfold.SaltWellSpawn+randfold.Salt(i), -0.3, 0.3)
		angle := baseAngle + jitter
		radius := randfold.UniformRange(tick, uint64(wellID), randfold.SaltWellSpawn+randfold.Salt(100+i), wellSpawnMinRadius, wellOreSpawnRadius)
		pos := center.Add(mgl64.Vec2{radius * math.Cos(angle), radius * math.Sin(angle)})
		if !spawnPosBlocked(grid, pos) {
			return pos, true
		}
	}
	return mgl64.Vec2{}, false
}

func spawnPosBlocked(grid *spatial.Grid, pos mgl64.Vec2) bool {
	for _, item := range grid.QueryRadius(pos[0], pos[1], 30.0) {
		if item.Type == "building" || item.Type == "unit" || item.Type == "rock" {
			return true
		}
	}
	return false
}
