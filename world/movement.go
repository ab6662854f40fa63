package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/collision"
	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/pathfind"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/spatial"
	"github.com/egeozcan/rtsim/steer"
)

const (
	visionRangeFactor = 1.3
	neighborQueryRadius = 80.0
	demoTruckFuseRadius = 30.0
)

// tickUnitMovementAndCombat resolves, for every live unit, combat target
// acquisition and firing, harvester and demo-truck sub-behavior, steering,
// and (for ground units only) collision relaxation against obstacles and
// other units.
func tickUnitMovementAndCombat(s *State, grid *spatial.Grid, pg *pathfind.Grid, catalog rules.Catalog, k *Kernel) {
	ids := make([]EntityID, 0, len(s.Entities))
	for _, e := range s.OrderedEntities() {
		if !e.Dead && e.Kind == KindUnit {
			ids = append(ids, e.ID)
		}
	}

	for _, id := range ids {
		tickCombatFor(s, id, grid, catalog, k)
	}
	for _, id := range ids {
		tickHarvesterFor(s, id, grid, catalog)
	}
	for _, id := range ids {
		tickDemoTruckFor(s, id, grid, catalog, k)
	}
	for _, id := range ids {
		tickAirUnitStateFor(s, id, catalog, k)
	}
	precomputePaths(s, pg, ids)
	for _, id := range ids {
		steerUnit(s, id, grid, pg, catalog)
	}
	resolveGroundCollisions(s, grid)
}

// precomputePaths resolves every ground unit's due repath for this tick in
// one concurrent batch, so the per-unit steering loop finds its path
// already installed instead of searching one at a time. The batch covers
// standing move orders only; combat-chase destinations change every tick
// and fall back to steering's inline search. Results are installed in id
// order and the batch is fully waited on here, so the fan-out is invisible
// to the rest of the tick.
func precomputePaths(s *State, pg *pathfind.Grid, ids []EntityID) {
	var reqIDs []EntityID
	var reqs []pathfind.PathRequest
	for _, id := range ids {
		e := s.Entities[id]
		m := &e.Unit.Movement
		if e.Dead || e.Flying() || m.MoveTarget == nil || len(m.Path) > 0 {
			continue
		}
		if s.Tick-m.LastRepathTick < steer.RepathInterval {
			continue
		}
		if m.MoveTarget.Sub(e.Pos).Len() <= steer.DirectSteerRadius {
			continue
		}
		reqIDs = append(reqIDs, id)
		reqs = append(reqs, pathfind.PathRequest{From: e.Pos, To: *m.MoveTarget, Radius: e.Radius, Owner: uint64(e.Owner)})
	}
	if len(reqs) == 0 {
		return
	}
	paths := pg.FindPathsAsync(reqs)
	for i, id := range reqIDs {
		em := s.mutableEntity(id)
		em.Unit.Movement.Path = paths[i]
		em.Unit.Movement.PathIdx = 0
		em.Unit.Movement.LastRepathTick = s.Tick
	}
}

// tickCombatFor acquires/refreshes a unit's combat target and fires if in
// range and off cooldown, mirroring tickDefensiveTurret's logic for units.
func tickCombatFor(s *State, id EntityID, grid *spatial.Grid, catalog rules.Catalog, k *Kernel) {
	e := s.Entities[id]
	entry, ok := catalog.Lookup(e.Key)
	if !ok || entry.Weapon == WeaponNoneKey || entry.HasTag("demo_truck") {
		return
	}

	combat := e.Unit.Combat
	target := s.Entities[combat.TargetID]
	vision := entry.Range * visionRangeFactor
	needNewTarget := target == nil || target.Dead || dist2(e.Pos, target.Pos) > vision*vision
	if needNewTarget {
		candidates := grid.QueryEnemiesInRadius(e.Pos[0], e.Pos[1], vision, uint64(e.Owner))
		var best *Entity
		bestDist := vision * vision
		for _, cand := range candidates {
			ce := s.Entities[EntityID(cand.ID)]
			if ce == nil || ce.Dead || (ce.Kind != KindUnit && ce.Kind != KindBuilding) {
				continue
			}
			d := dist2(e.Pos, ce.Pos)
			if d <= bestDist {
				best = ce
				bestDist = d
			}
		}
		e = s.mutableEntity(id)
		if best != nil {
			e.Unit.Combat.TargetID = best.ID
		} else {
			e.Unit.Combat.TargetID = 0
		}
		combat = e.Unit.Combat
	}

	if combat.TargetID == 0 {
		return
	}
	target = s.Entities[combat.TargetID]
	if target == nil || target.Dead || dist2(e.Pos, target.Pos) > entry.Range*entry.Range {
		return
	}
	if combat.Cooldown > 0 {
		e = s.mutableEntity(id)
		e.Unit.Combat.Cooldown--
		return
	}
	if e.Flying() {
		// A docked harrier acquires targets (the launcher keys off that)
		// but only fires once airborne and armed.
		if e.Unit.AirUnit.State == AirDocked || e.Unit.AirUnit.Ammo <= 0 {
			return
		}
	}
	fireProjectile(s, e.Pos, e.Owner, entry, target.ID, target.Pos)
	aim := target.Pos.Sub(e.Pos)
	e = s.mutableEntity(id)
	e.Unit.Combat.Cooldown = entry.Rate
	e.Unit.Combat.TurretAngle = math.Atan2(aim[1], aim[0])
	if e.Unit.AirUnit != nil {
		e.Unit.AirUnit.Ammo--
		e.Unit.AirUnit.State = AirAttacking
	}
	k.emit(event.Event{Kind: event.KindCommand, Tick: s.Tick, PlayerID: uint64(e.Owner), EntityID: uint64(id), Data: map[string]any{"action": "fire", "target": uint64(target.ID)}})
}

// WeaponNoneKey is rules.WeaponNone, aliased locally for readability at unit
// combat call sites.
const WeaponNoneKey = rules.WeaponNone

const (
	harvesterGatherRadius = 20.0
	harvesterGatherRate   = 10
	harvesterDropRadius   = 30.0
	harvesterCreditsPerOre = 1

	// harvesterFleeTicks is how long after taking a hit the autopilot
	// keeps a harvester heading home instead of back to the ore field.
	harvesterFleeTicks = 120
)

// tickHarvesterFor drives the harvester sub-AI: seek the
// nearest ore pile, gather until full or the pile is exhausted, then return
// to a refinery to convert cargo into credits. Disabled while the unit is
// under direct player control (ManualMode).
func tickHarvesterFor(s *State, id EntityID, grid *spatial.Grid, catalog rules.Catalog) {
	e := s.Entities[id]
	if e.Unit.Harvester == nil || e.Unit.Harvester.ManualMode {
		return
	}
	h := e.Unit.Harvester

	// A recently shot harvester runs for home (banking whatever cargo it
	// holds) until its flee cooldown lapses.
	if s.Tick < h.FleeCooldownUntilTick {
		driveHarvesterToBase(s, catalog, id, grid)
		return
	}

	if h.Cargo >= MaxHarvesterCargo {
		driveHarvesterToBase(s, catalog, id, grid)
		return
	}

	target := s.Entities[h.ResourceTargetID]
	if target == nil || target.Dead || target.HP <= 0 {
		target = nearestResource(s, e.Pos, grid)
		e = s.mutableEntity(id)
		if target != nil {
			e.Unit.Harvester.ResourceTargetID = target.ID
		} else {
			e.Unit.Harvester.ResourceTargetID = 0
		}
	}
	if target == nil {
		driveHarvesterToBase(s, catalog, id, grid)
		return
	}

	e = s.mutableEntity(id)
	e.Unit.Movement.MoveTarget = vec2Ptr(target.Pos)

	if dist2(e.Pos, target.Pos) > sq(harvesterGatherRadius+target.Radius+e.Radius) {
		return
	}
	take := minInt(harvesterGatherRate, target.HP)
	take = minInt(take, MaxHarvesterCargo-h.Cargo)
	if take <= 0 {
		return
	}
	tgt := s.mutableEntity(target.ID)
	tgt.HP -= take
	if tgt.HP <= 0 {
		tgt.Dead = true
	}
	e = s.mutableEntity(id)
	e.Unit.Harvester.Cargo += take
}

func driveHarvesterToBase(s *State, catalog rules.Catalog, id EntityID, grid *spatial.Grid) {
	e := s.Entities[id]
	h := e.Unit.Harvester
	base := s.Entities[h.BaseTargetID]
	if base == nil || base.Dead {
		base = nearestRefinery(s, catalog, e.Owner, e.Pos)
		e = s.mutableEntity(id)
		if base != nil {
			e.Unit.Harvester.BaseTargetID = base.ID
		} else {
			e.Unit.Harvester.BaseTargetID = 0
		}
	}
	if base == nil {
		return
	}
	e = s.mutableEntity(id)
	e.Unit.Movement.MoveTarget = vec2Ptr(base.Pos)
	if dist2(e.Pos, base.Pos) > sq(harvesterDropRadius+base.Radius+e.Radius) {
		return
	}
	player := s.mutablePlayer(e.Owner)
	if player != nil {
		player.Credits += h.Cargo * harvesterCreditsPerOre
	}
	e = s.mutableEntity(id)
	e.Unit.Harvester.Cargo = 0
}

func nearestResource(s *State, pos mgl64.Vec2, grid *spatial.Grid) *Entity {
	candidates := grid.QueryRadiusByType(pos[0], pos[1], 2000, "resource")
	var best *Entity
	bestDist := 2000.0 * 2000.0
	for _, cand := range candidates {
		re := s.Entities[EntityID(cand.ID)]
		if re == nil || re.Dead || re.HP <= 0 {
			continue
		}
		d := dist2(pos, re.Pos)
		if d < bestDist {
			best = re
			bestDist = d
		}
	}
	return best
}

func nearestRefinery(s *State, catalog rules.Catalog, owner PlayerID, pos mgl64.Vec2) *Entity {
	var best *Entity
	bestDist := 0.0
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != KindBuilding || e.Owner != owner {
			continue
		}
		if entry, ok := catalog.Lookup(e.Key); !ok || !entry.HasTag("refinery") {
			continue
		}
		d := dist2(pos, e.Pos)
		if best == nil || d < bestDist {
			best = e
			bestDist = d
		}
	}
	return best
}

// tickDemoTruckFor detonates an armed demo truck the instant it comes into
// contact with any enemy unit or building, enqueueing a single explosion
// and marking the truck dead. It can never detonate twice.
func tickDemoTruckFor(s *State, id EntityID, grid *spatial.Grid, catalog rules.Catalog, k *Kernel) {
	e := s.Entities[id]
	if e.Unit.DemoTruck == nil || e.Unit.DemoTruck.HasDetonated {
		return
	}
	if _, ok := catalog.Lookup(e.Key); !ok {
		return
	}
	enemies := grid.QueryEnemiesInRadius(e.Pos[0], e.Pos[1], demoTruckFuseRadius+e.Radius, uint64(e.Owner))
	if len(enemies) == 0 {
		return
	}
	em := s.mutableEntity(id)
	em.Dead = true
	queueVolatileDetonation(em, catalog, k)
}

// tickAirUnitStateFor advances a flying unit's lifecycle state machine:
// AirFlying units head for their combat target (set by
// tickCombatFor); once out of ammo or with no target, they turn for home;
// AirReturning units head for the home base and dock on arrival.
func tickAirUnitStateFor(s *State, id EntityID, catalog rules.Catalog, k *Kernel) {
	e := s.Entities[id]
	if e.Unit.AirUnit == nil {
		return
	}
	au := e.Unit.AirUnit
	switch au.State {
	case AirFlying, AirAttacking:
		if au.Ammo <= 0 || e.Unit.Combat.TargetID == 0 {
			e = s.mutableEntity(id)
			e.Unit.AirUnit.State = AirReturning
			e.Unit.Combat.TargetID = 0
		}
	case AirReturning:
		home := s.Entities[au.HomeBaseID]
		if home == nil || home.Dead {
			return
		}
		e = s.mutableEntity(id)
		e.Unit.Movement.MoveTarget = vec2Ptr(home.Pos)
		if dist2(e.Pos, home.Pos) <= sq(home.Radius+e.Radius+5) {
			e.Unit.AirUnit.State = AirDocked
			e.Unit.AirUnit.DockedSlot = -1
			e.Unit.Movement.MoveTarget = nil
			e.Unit.Movement.Vel = mgl64.Vec2{}
		}
	}
}

// steerUnit resolves the unit's effective movement target (chasing a
// combat target takes priority over a standing move order) and folds
// steer.MoveToward's output back into its MovementState.
func steerUnit(s *State, id EntityID, grid *spatial.Grid, pg *pathfind.Grid, catalog rules.Catalog) {
	e := s.Entities[id]
	entry, ok := catalog.Lookup(e.Key)
	if !ok {
		return
	}
	if e.Unit.AirUnit != nil && e.Unit.AirUnit.State == AirDocked {
		return
	}

	target := effectiveMoveTarget(s, e, entry)
	if target == nil {
		return
	}

	neighbors := collectNeighbors(s, grid, e)
	in := steer.Input{
		ID: uint64(id), Owner: uint64(e.Owner), Tick: s.Tick,
		Pos: e.Pos, Vel: e.Unit.Movement.Vel, AvgVel: e.Unit.Movement.AvgVel,
		Target: *target, HasPath: len(e.Unit.Movement.Path) > 0, Path: e.Unit.Movement.Path,
		PathIdx: e.Unit.Movement.PathIdx, Speed: entry.Speed, Radius: e.Radius,
		Flying: e.Flying(), StuckTimer: e.Unit.Movement.StuckTimer, UnstuckTimer: e.Unit.Movement.UnstuckTimer,
		LastRepathTick: e.Unit.Movement.LastRepathTick,
		Neighbors: neighbors, Grid: pg,
	}
	out := steer.MoveToward(in)

	em := s.mutableEntity(id)
	em.Pos = out.Pos
	em.Unit.Movement.Vel = out.Vel
	em.Unit.Movement.AvgVel = out.AvgVel
	em.Unit.Movement.Rotation = out.Rotation
	em.Unit.Movement.Path = out.Path
	em.Unit.Movement.PathIdx = out.PathIdx
	em.Unit.Movement.StuckTimer = out.StuckTimer
	em.Unit.Movement.UnstuckTimer = out.UnstuckTimer
	em.Unit.Movement.LastRepathTick = out.LastRepathTick
	if out.Arrived {
		em.Unit.Movement.MoveTarget = nil
	}
}

// effectiveMoveTarget picks what a unit should steer toward this tick: a
// live combat target always takes precedence over a standing move order,
// so units under fire chase rather than idling at a stale waypoint.
func effectiveMoveTarget(s *State, e *Entity, entry rules.Entry) *mgl64.Vec2 {
	if e.Unit.Combat.TargetID != 0 && entry.Weapon != WeaponNoneKey {
		if target := s.Entities[e.Unit.Combat.TargetID]; target != nil && !target.Dead {
			if dist2(e.Pos, target.Pos) > entry.Range*entry.Range {
				p := target.Pos
				return &p
			}
			return nil
		}
	}
	return e.Unit.Movement.MoveTarget
}

func collectNeighbors(s *State, grid *spatial.Grid, e *Entity) []steer.Neighbor {
	candidates := grid.QueryRadius(e.Pos[0], e.Pos[1], neighborQueryRadius)
	out := make([]steer.Neighbor, 0, len(candidates))
	for _, cand := range candidates {
		if cand.ID == uint64(e.ID) {
			continue
		}
		ce := s.Entities[EntityID(cand.ID)]
		if ce == nil || ce.Dead || ce.Flying() {
			continue
		}
		out = append(out, steer.Neighbor{Pos: ce.Pos, Radius: ce.Radius})
	}
	return out
}

// resolveGroundCollisions runs the two-pass relaxation over every live
// non-flying unit against nearby obstacles (buildings, rocks) and each
// other, then clamps final positions to the map bounds.
func resolveGroundCollisions(s *State, grid *spatial.Grid) {
	var groundIDs []EntityID
	for _, e := range s.OrderedEntities() {
		if !e.Dead && e.Kind == KindUnit && !e.Flying() {
			groundIDs = append(groundIDs, e.ID)
		}
	}
	if len(groundIDs) == 0 {
		return
	}

	bodies := make([]collision.Body, len(groundIDs))
	indexByID := make(map[EntityID]int, len(groundIDs))
	movingCount := 0
	for i, id := range groundIDs {
		e := s.Entities[id]
		moving := e.Unit.Movement.MoveTarget != nil || e.Unit.Movement.Vel.LenSqr() > 1e-6
		intent := mgl64.Vec2{}
		if moving {
			movingCount++
			if e.Unit.Movement.Vel.LenSqr() > 1e-9 {
				intent = e.Unit.Movement.Vel.Normalize()
			}
		}
		bodies[i] = collision.Body{ID: uint64(id), Pos: e.Pos, Radius: e.Radius, Moving: moving, Intent: intent}
		indexByID[id] = i
	}

	type obstacle struct {
		body int
		obs  collision.Obstacle
	}
	var obstaclePairs []obstacle
	var pairs []collision.Pair
	seenPair := map[[2]int]bool{}
	for i, id := range groundIDs {
		e := s.Entities[id]
		for _, cand := range grid.QueryRadius(e.Pos[0], e.Pos[1], e.Radius+40) {
			if cand.Type == "building" || cand.Type == "rock" {
				ob := s.Entities[EntityID(cand.ID)]
				if ob == nil || ob.Dead {
					continue
				}
				obstaclePairs = append(obstaclePairs, obstacle{body: i, obs: collision.Obstacle{Pos: ob.Pos, Radius: ob.Radius}})
				continue
			}
			if cand.ID == uint64(id) {
				continue
			}
			j, ok := indexByID[EntityID(cand.ID)]
			if !ok {
				continue
			}
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			if seenPair[[2]int{a, b}] {
				continue
			}
			seenPair[[2]int{a, b}] = true
			pairs = append(pairs, collision.Pair{A: a, B: b})
		}
	}

	iterations := collision.MovingFraction(movingCount, len(groundIDs))
	resolved := collision.Resolve(bodies,
		func(iter int) []collision.Pair { return pairs },
		func(iter int) []collision.ObstaclePair {
			out := make([]collision.ObstaclePair, len(obstaclePairs))
			for i, op := range obstaclePairs {
				out[i] = collision.ObstaclePair{Body: op.body, Obstacle: op.obs}
			}
			return out
		},
		iterations,
	)

	for i, id := range groundIDs {
		pos := collision.ClampToBounds(resolved[i].Pos, s.Entities[id].Radius, s.Config.MapWidth, s.Config.MapHeight)
		em := s.mutableEntity(id)
		em.Pos = pos
	}
}
