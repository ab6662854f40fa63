package ai

import (
	"math"

	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// baseCenter approximates "base center" as the centroid of owner's live
// buildings, falling back to the zero vector if owner has none (an AI with
// no buildings left is about to be eliminated by the victory check anyway).
func baseCenter(s *world.State, owner world.PlayerID) (world.Vec2, bool) {
	var sum world.Vec2
	n := 0
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		sum = sum.Add(e.Pos)
		n++
	}
	if n == 0 {
		return world.Vec2{}, false
	}
	return sum.Mul(1 / float64(n)), true
}

// isCombatUnit reports whether entry describes a unit capable of dealing
// damage (armed and not a one-shot demo truck, which the planner treats
// separately throughout).
func isCombatUnit(entry rules.Entry) bool {
	return entry.Weapon != rules.WeaponNone && !entry.HasTag("demo_truck")
}

// armyUnits returns owner's live combat units (harvesters, engineers,
// hijackers, demo trucks and idle MCVs excluded).
func armyUnits(s *world.State, catalog rules.Catalog, owner world.PlayerID) []*world.Entity {
	var out []*world.Entity
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindUnit || e.Owner != owner {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || !isCombatUnit(entry) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func dist(a, b world.Vec2) float64 { return a.Sub(b).Len() }

// detectThreats marks any enemy entity within BaseDefenseRadius of the
// base center, or within ThreatDetectionRadius of any owned building, both
// scaled by the personality's detect multiplier. Deployed induction rigs
// get their own, larger, always-on detection radii.
func detectThreats(s *world.State, catalog rules.Catalog, owner world.PlayerID, pers Personality) []world.EntityID {
	center, haveCenter := baseCenter(s, owner)
	var buildings []*world.Entity
	for _, e := range s.OrderedEntities() {
		if !e.Dead && e.Kind == world.KindBuilding && e.Owner == owner {
			buildings = append(buildings, e)
		}
	}

	baseRadius := BaseDefenseRadius * pers.DetectMultiplier
	bldgRadius := ThreatDetectionRadius * pers.DetectMultiplier

	seen := map[world.EntityID]bool{}
	var out []world.EntityID
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner == owner || e.Owner == 0 {
			continue
		}
		if e.Kind != world.KindUnit && e.Kind != world.KindBuilding {
			continue
		}
		threat := false
		if haveCenter && dist(center, e.Pos) <= baseRadius {
			threat = true
		}
		if !threat {
			for _, b := range buildings {
				if dist(b.Pos, e.Pos) <= bldgRadius {
					threat = true
					break
				}
			}
		}
		if threat && !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e.ID)
		}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindWell || !e.Well.IsInductionRig || e.Owner == owner || e.Owner == 0 {
			continue
		}
		threat := haveCenter && dist(center, e.Pos) <= inductionRigBaseRadius
		if !threat {
			for _, b := range buildings {
				if dist(b.Pos, e.Pos) <= inductionRigBldgRadius {
					threat = true
					break
				}
			}
		}
		if threat && !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e.ID)
		}
	}
	return out
}

// harvesterUnderAttack reports whether h (a harvester entity) counts as
// under attack: damaged within the last
// harvesterUnderAttackWindow ticks, or an enemy unit within
// harvesterThreatRadius.
func harvesterUnderAttack(s *world.State, h *world.Entity, tick int64) bool {
	if tick-h.Unit.Combat.LastDamageTick <= harvesterUnderAttackWindow && h.Unit.Combat.LastDamageTick > 0 {
		return true
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner == h.Owner || e.Owner == 0 || e.Kind != world.KindUnit {
			continue
		}
		if dist(h.Pos, e.Pos) <= harvesterThreatRadius {
			return true
		}
	}
	return false
}

// nearestEnemyDistance returns the distance to the nearest live enemy unit
// or building to pos, or +Inf if there is none.
func nearestEnemyDistance(s *world.State, owner world.PlayerID, pos world.Vec2) float64 {
	best := math.Inf(1)
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner == owner || e.Owner == 0 {
			continue
		}
		if e.Kind != world.KindUnit && e.Kind != world.KindBuilding {
			continue
		}
		if d := dist(pos, e.Pos); d < best {
			best = d
		}
	}
	return best
}

// economyScore is
// 50·min(1.5, harvesters/idealHarvesters) + 50·min(1, accessibleOre/8),
// ideal = 2·refineries, accessible ore = ore within 600 of any refinery.
func economyScore(s *world.State, catalog rules.Catalog, owner world.PlayerID) float64 {
	harvesters, refineries := 0, 0
	var refineryPositions []world.Vec2
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner != owner {
			continue
		}
		if e.Kind == world.KindUnit && e.Unit.Harvester != nil {
			harvesters++
		}
		if e.Kind == world.KindBuilding {
			if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag("refinery") {
				refineries++
				refineryPositions = append(refineryPositions, e.Pos)
			}
		}
	}
	idealHarvesters := float64(2 * refineries)
	harvesterComponent := 0.0
	if idealHarvesters > 0 {
		harvesterComponent = 50 * math.Min(1.5, float64(harvesters)/idealHarvesters)
	}

	accessibleOre := 0.0
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindResource {
			continue
		}
		for _, rp := range refineryPositions {
			if dist(rp, e.Pos) <= accessibleOreRadius {
				accessibleOre++
				break
			}
		}
	}
	oreComponent := 50 * math.Min(1, accessibleOre/accessibleOreCap)

	return clamp(harvesterComponent+oreComponent, 0, 100)
}

// threatLevelScore is
// clamp(25·nearbyEnemyCombat + 40·nearbyRigs − 15·defenses, 0, 100).
func threatLevelScore(s *world.State, catalog rules.Catalog, owner world.PlayerID, pers Personality) float64 {
	center, haveCenter := baseCenter(s, owner)
	if !haveCenter {
		return 0
	}
	radius := BaseDefenseRadius * pers.DetectMultiplier
	nearbyEnemyCombat, nearbyRigs, defenses := 0, 0, 0
	for _, e := range s.OrderedEntities() {
		if e.Dead {
			continue
		}
		if e.Owner == owner {
			if e.Kind == world.KindBuilding {
				if entry, ok := catalog.Lookup(e.Key); ok && entry.IsDefense {
					defenses++
				}
			}
			continue
		}
		if e.Owner == 0 {
			if e.Kind == world.KindWell && e.Well.IsInductionRig && dist(center, e.Pos) <= radius {
				nearbyRigs++
			}
			continue
		}
		if e.Kind == world.KindUnit {
			if entry, ok := catalog.Lookup(e.Key); ok && isCombatUnit(entry) && dist(center, e.Pos) <= radius {
				nearbyEnemyCombat++
			}
		}
		if e.Kind == world.KindWell && e.Well.IsInductionRig && dist(center, e.Pos) <= radius {
			nearbyRigs++
		}
	}
	raw := 25*float64(nearbyEnemyCombat) + 40*float64(nearbyRigs) - 15*float64(defenses)
	return clamp(raw, 0, 100)
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

// investmentPriority resolves the investment priority table and, when
// the chosen priority is economy, selects an expansion target: the nearest
// ore patch 400..1500 away not already covered by a refinery.
func investmentPriority(s *world.State, catalog rules.Catalog, owner world.PlayerID, economy, threat float64) (InvestmentPriority, *world.Vec2) {
	army := len(armyUnits(s, catalog, owner))
	enemyArmy := 0
	for pid, p := range s.Players {
		if pid == owner || !p.Alive {
			continue
		}
		enemyArmy += len(armyUnits(s, catalog, pid))
	}
	armyRatio := 1.0
	if enemyArmy > 0 {
		armyRatio = float64(army) / float64(enemyArmy)
	}

	player := s.Players[owner]
	credits := 0
	if player != nil {
		credits = player.Credits
	}

	switch {
	case threat > 70:
		return PriorityDefense, nil
	case economy < 30:
		return PriorityEconomy, expansionTarget(s, catalog, owner)
	case armyRatio < 0.6:
		return PriorityWarfare, nil
	case credits > 2000 && economy < 70:
		return PriorityEconomy, expansionTarget(s, catalog, owner)
	default:
		return PriorityBalanced, nil
	}
}

func expansionTarget(s *world.State, catalog rules.Catalog, owner world.PlayerID) *world.Vec2 {
	center, haveCenter := baseCenter(s, owner)
	if !haveCenter {
		return nil
	}
	var refineryPositions []world.Vec2
	for _, e := range s.OrderedEntities() {
		if !e.Dead && e.Kind == world.KindBuilding && e.Owner == owner {
			if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag("refinery") {
				refineryPositions = append(refineryPositions, e.Pos)
			}
		}
	}
	var best *world.Vec2
	bestDist := math.Inf(1)
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindResource {
			continue
		}
		d := dist(center, e.Pos)
		if d < expansionTargetMin || d > expansionTargetMax {
			continue
		}
		covered := false
		for _, rp := range refineryPositions {
			if dist(rp, e.Pos) <= accessibleOreRadius {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		if d < bestDist {
			p := e.Pos
			best = &p
			bestDist = d
		}
	}
	return best
}
