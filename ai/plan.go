package ai

import (
	"math"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

const (
	// captureScanDistance bounds stage 6/9's search for a capturable
	// building or hijackable vehicle.
	captureScanDistance = 500.0

	// specialistMinCredits/specialistMinArmy gate stage 6 so an AI with an
	// empty treasury or no standing army doesn't divert its only producer
	// slot into an engineer nobody can escort.
	specialistMinCredits = 600.0
	specialistMinArmy    = 4

	// productionPaceInfantryTicks/productionPaceVehicleTicks throttle
	// stage 7's idle-queue fill once the AI is safe and already fielding a
	// couple of defensive structures, so buildup doesn't spam the cheapest
	// unit every single think tick.
	productionPaceInfantryTicks = 90
	productionPaceVehicleTicks  = 150

	// garrisonPatrolRadius is how far from baseCenter stage 3 spaces the
	// units held back by GarrisonFraction, so the garrison rings the base
	// perimeter instead of clumping on its centroid.
	garrisonPatrolRadius = 250.0

	// microKiteRangeFraction is how close a ranged unit lets its target
	// get, relative to its own weapon range, before stepping back.
	microKiteRangeFraction = 0.4
	microKiteStepFraction  = 0.6

	// buildingRepairThreshold is the HP fraction below which an AI issues
	// START_REPAIR on one of its own buildings.
	buildingRepairThreshold = 0.8
)

// Sink lets callers observe the planner's decisions for debugging/replay,
// mirroring the kernel's own nil-safe event.Sink wiring. Left nil, emitting
// is a no-op.
func (w *AIWorld) SetSink(sink event.Sink) {
	w.sink = sink
}

func (w *AIWorld) emit(e event.Event) {
	if w.sink != nil {
		w.sink.Emit(e)
	}
}

// ComputeActions is the planner's top-level entry point: once
// every AITickInterval ticks, staggered by player id so every AI seat
// doesn't think on the same tick, it runs the full decision pipeline for
// owner and returns the batch of Actions the reducer should Apply this
// tick. Ticks that aren't this player's think tick return nil.
func (w *AIWorld) ComputeActions(s *world.State, catalog rules.Catalog, owner world.PlayerID) []world.Action {
	player := s.Players[owner]
	if player == nil || !player.Alive {
		return nil
	}
	stagger := int64(owner) % AITickInterval
	if (s.Tick-stagger)%AITickInterval != 0 {
		return nil
	}

	ps := w.getAIState(owner)
	pers := personalityFor(player.Difficulty)
	ps.UnitCapsPlanned = make(map[rules.Key]int)

	pruneDeadGroups(s, ps)
	updateTimers(s, catalog, ps, owner)
	decayVengeance(ps)
	refreshIntelligence(s, catalog, ps, owner)

	ps.EconomyScore = economyScore(s, catalog, owner)
	ps.ThreatLevel = threatLevelScore(s, catalog, owner, pers)
	ps.InvestmentPriority, ps.ExpansionTarget = investmentPriority(s, catalog, owner, ps.EconomyScore, ps.ThreatLevel)

	prevStrategy := ps.Strategy
	strategy := decideStrategy(s, catalog, ps, owner, pers, player.Difficulty)
	if strategy != prevStrategy {
		w.emit(event.Event{Kind: event.KindDecision, Tick: s.Tick, PlayerID: uint64(owner), Data: map[string]any{"strategy": string(strategy)}})
	}
	w.emit(event.Event{Kind: event.KindThreat, Tick: s.Tick, PlayerID: uint64(owner), Data: map[string]any{"economy": ps.EconomyScore, "threat": ps.ThreatLevel}})

	threats := detectThreats(s, catalog, owner, pers)

	var acts []world.Action
	acts = append(acts, harvesterSafetyActions(s, catalog, ps, owner)...)           // stage 1
	acts = append(acts, defenseActions(s, catalog, ps, owner, threats)...)          // stage 2
	acts = append(acts, economyActions(s, catalog, ps, owner, pers)...)             // stage 4
	acts = append(acts, productionBiasActions(s, catalog, ps, owner, pers)...)      // stage 5
	acts = append(acts, specialistActions(s, catalog, ps, owner, pers)...)          // stage 6
	acts = pacedProduction(s, catalog, ps, owner, threats, acts)                    // stage 7
	acts = append(acts, strategicCommandActions(s, catalog, ps, owner, strategy, pers)...) // stages 3/8
	acts = append(acts, captureAndHijackActions(s, catalog, owner)...)              // stage 9

	if pers.DisablesDemoTrucks {
		acts = filterDemoTruckBuilds(acts) // stage 10
	}
	return acts
}

// defenseActions implements stage 2: on the first think tick that sees a
// threat near base, throw every idle army unit at the closest one rather
// than waiting for a strategic group to form.
func defenseActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, threats []world.EntityID) []world.Action {
	if len(threats) == 0 {
		return nil
	}
	center, ok := baseCenter(s, owner)
	if !ok {
		return nil
	}
	var nearest world.EntityID
	bestDist := math.Inf(1)
	for _, id := range threats {
		e := s.Entities[id]
		if e == nil || e.Dead {
			continue
		}
		if d := dist(center, e.Pos); d < bestDist {
			bestDist, nearest = d, id
		}
	}
	if nearest == 0 {
		return nil
	}

	assigned := ps.assignedUnits()
	var defenders []world.EntityID
	for _, u := range armyUnits(s, catalog, owner) {
		if assigned[u.ID] {
			continue
		}
		defenders = append(defenders, u.ID)
	}
	if len(defenders) == 0 {
		return nil
	}
	return []world.Action{{Type: world.ActionCommandAttack, PlayerID: owner, EntityIDs: defenders, TargetID: nearest}}
}

// specialistActions implements stage 6: queue an engineer or hijacker when
// a capture/hijack opportunity sits within range, the treasury can spare
// it, the army is large enough to not need every producer slot for combat
// units, and Entry.MaxCount still has room once existing, queued and
// this-tick-planned copies are all counted.
func specialistActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, pers Personality) []world.Action {
	player := s.Players[owner]
	if player == nil || pers.SpecialistAggressiveness <= 0 {
		return nil
	}
	if float64(player.Credits) < specialistMinCredits || ps.ThreatLevel > 70 {
		return nil
	}
	if len(armyUnits(s, catalog, owner)) < specialistMinArmy {
		return nil
	}

	var acts []world.Action
	if captureOpportunity(s, owner, captureScanDistance) {
		if a, ok := queueSpecialist(s, catalog, ps, owner, "engineer"); ok {
			acts = append(acts, a)
		}
	}
	if hijackOpportunity(s, catalog, owner, captureScanDistance) {
		if a, ok := queueSpecialist(s, catalog, ps, owner, "hijacker"); ok {
			acts = append(acts, a)
		}
	}
	return acts
}

func queueSpecialist(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, key rules.Key) (world.Action, bool) {
	entry, ok := catalog.Lookup(key)
	if !ok || !hasProducerFor(s, catalog, owner, entry.Category) {
		return world.Action{}, false
	}
	player := s.Players[owner]
	existing := 0
	for _, e := range s.OrderedEntities() {
		if !e.Dead && e.Owner == owner && e.Key == key {
			existing++
		}
	}
	queued := 0
	if q := player.Queues[entry.Category]; q != nil {
		if q.Current != nil && q.Current.Key == key {
			queued++
		}
		for _, k := range q.Queued {
			if k == key {
				queued++
			}
		}
	}
	planned := ps.UnitCapsPlanned[key]
	if entry.MaxCount > 0 && existing+queued+planned >= entry.MaxCount {
		return world.Action{}, false
	}
	ps.UnitCapsPlanned[key] = planned + 1
	return world.Action{Type: world.ActionStartBuild, PlayerID: owner, Key: key, Category: entry.Category}, true
}

func captureOpportunity(s *world.State, owner world.PlayerID, scan float64) bool {
	center, ok := baseCenter(s, owner)
	if !ok {
		return false
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner == owner || e.Owner == 0 {
			continue
		}
		if dist(center, e.Pos) <= scan {
			return true
		}
	}
	return false
}

func hijackOpportunity(s *world.State, catalog rules.Catalog, owner world.PlayerID, scan float64) bool {
	center, ok := baseCenter(s, owner)
	if !ok {
		return false
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindUnit || e.Owner == owner || e.Owner == 0 {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || entry.Category != rules.CategoryVehicle {
			continue
		}
		if dist(center, e.Pos) <= scan {
			return true
		}
	}
	return false
}

// captureAndHijackActions implements stage 9: any idle engineer/hijacker
// (one not already chasing a capture target) is sent after the nearest
// eligible target within captureScanDistance: enemy buildings for an
// engineer, enemy vehicles for a hijacker.
func captureAndHijackActions(s *world.State, catalog rules.Catalog, owner world.PlayerID) []world.Action {
	var acts []world.Action
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner != owner || e.Kind != world.KindUnit || e.Unit.Engineer == nil {
			continue
		}
		if e.Unit.Engineer.CaptureTargetID != 0 {
			continue
		}
		entry, _ := catalog.Lookup(e.Key)
		isHijacker := entry.HasTag("hijacker")

		var targetID world.EntityID
		bestDist := captureScanDistance
		for _, o := range s.OrderedEntities() {
			if o.Dead || o.Owner == owner || o.Owner == 0 {
				continue
			}
			if isHijacker {
				oe, ok := catalog.Lookup(o.Key)
				if !ok || o.Kind != world.KindUnit || oe.Category != rules.CategoryVehicle {
					continue
				}
			} else if o.Kind != world.KindBuilding {
				continue
			}
			if d := dist(e.Pos, o.Pos); d <= bestDist {
				bestDist, targetID = d, o.ID
			}
		}
		if targetID == 0 {
			continue
		}
		acts = append(acts, world.Action{Type: world.ActionCommandAttack, PlayerID: owner, EntityIDs: []world.EntityID{e.ID}, TargetID: targetID})
	}
	return acts
}

// pacedProduction implements stage 7: once an AI already holds a couple of
// defensive structures and faces no active threat, fresh infantry/vehicle
// START_BUILDs coming out of stage 5 are throttled to at most one per
// category per pacing interval instead of refilled the instant the queue
// empties.
func pacedProduction(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, threats []world.EntityID, acts []world.Action) []world.Action {
	if len(threats) > 0 || countDefenses(s, catalog, owner) < 2 {
		return acts
	}
	if ps.LastCategoryBuildTick == nil {
		ps.LastCategoryBuildTick = make(map[rules.Category]int64)
	}

	out := acts[:0]
	for _, a := range acts {
		if a.Type != world.ActionStartBuild || (a.Category != rules.CategoryInfantry && a.Category != rules.CategoryVehicle) {
			out = append(out, a)
			continue
		}
		interval := int64(productionPaceInfantryTicks)
		if a.Category == rules.CategoryVehicle {
			interval = productionPaceVehicleTicks
		}
		if s.Tick-ps.LastCategoryBuildTick[a.Category] < interval {
			continue
		}
		ps.LastCategoryBuildTick[a.Category] = s.Tick
		out = append(out, a)
	}
	return out
}

func countDefenses(s *world.State, catalog rules.Catalog, owner world.PlayerID) int {
	n := 0
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		if entry, ok := catalog.Lookup(e.Key); ok && entry.IsDefense {
			n++
		}
	}
	return n
}

// strategicCommandActions implements stages 3/8: repairing damaged
// buildings, micro-managing individual unarmed-group units (retreat/kite),
// dispatching or advancing the offensive groups the current strategy calls
// for, and patrolling GarrisonFraction of the army near the base perimeter
// instead of dispatching it, unless the strategy is all_in.
func strategicCommandActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, strategy Strategy, pers Personality) []world.Action {
	var acts []world.Action
	acts = append(acts, repairActions(s, owner)...)
	acts = append(acts, microActions(s, catalog, ps, owner, pers)...)
	acts = append(acts, scoutActions(s, catalog, ps, owner, strategy)...)

	if strategy == StrategyAttack || strategy == StrategyAllIn || strategy == StrategyHarass {
		acts = append(acts, formOffensiveDispatch(s, catalog, ps, owner, strategy, pers)...)
	}
	for _, id := range ps.AttackGroups {
		if g, ok := ps.Offensive[id]; ok {
			acts = append(acts, advanceGroup(s, owner, g, s.Tick)...)
		}
	}
	for _, id := range ps.HarassGroups {
		if g, ok := ps.Offensive[id]; ok {
			acts = append(acts, advanceGroup(s, owner, g, s.Tick)...)
		}
	}
	return acts
}

// repairActions issues START_REPAIR for any owned building that has
// dropped below buildingRepairThreshold and isn't repairing already.
func repairActions(s *world.State, owner world.PlayerID) []world.Action {
	var acts []world.Action
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		if e.Building.IsRepairing || e.MaxHP == 0 || e.HP >= e.MaxHP {
			continue
		}
		if float64(e.HP)/float64(e.MaxHP) < buildingRepairThreshold {
			acts = append(acts, world.Action{Type: world.ActionStartRepair, PlayerID: owner, EntityIDs: []world.EntityID{e.ID}})
		}
	}
	return acts
}

// microActions retreats a wounded, ungrouped combat unit once its HP
// fraction drops below the personality's RetreatThreshold, and kites a
// ranged one that has let its target close past microKiteRangeFraction of
// its weapon range. Units already committed to an offensive group retreat
// together via advanceGroup instead.
func microActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, pers Personality) []world.Action {
	center, haveCenter := baseCenter(s, owner)
	assigned := ps.assignedUnits()
	var acts []world.Action
	for _, u := range armyUnits(s, catalog, owner) {
		if assigned[u.ID] || u.MaxHP <= 0 {
			continue
		}
		if frac := float64(u.HP) / float64(u.MaxHP); frac <= pers.RetreatThreshold && haveCenter {
			acts = append(acts, world.Action{Type: world.ActionCommandMove, PlayerID: owner, EntityIDs: []world.EntityID{u.ID}, Pos: center})
			continue
		}

		entry, ok := catalog.Lookup(u.Key)
		if !ok || entry.Range <= 0 || u.Unit.Combat.TargetID == 0 {
			continue
		}
		target := s.Entities[u.Unit.Combat.TargetID]
		if target == nil || target.Dead {
			continue
		}
		if d := dist(u.Pos, target.Pos); d < entry.Range*microKiteRangeFraction {
			away := u.Pos.Sub(target.Pos)
			if away.LenSqr() > 1e-6 {
				step := away.Normalize().Mul(entry.Range * microKiteStepFraction)
				acts = append(acts, world.Action{Type: world.ActionCommandMove, PlayerID: owner, EntityIDs: []world.EntityID{u.ID}, Pos: u.Pos.Add(step)})
			}
		}
	}
	return acts
}

// formOffensiveDispatch forms a fresh attack or harass group the moment the
// current strategy calls for one and none is already active, holding back
// GarrisonFraction of the army for stage 3's base patrol unless the
// strategy has escalated to all_in. The caller's shared group loop advances
// the group (and every other live group) afterward; this returns the
// garrison-patrol orders for whichever units it holds back instead of
// dispatching.
func formOffensiveDispatch(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, strategy Strategy, pers Personality) []world.Action {
	kind := StrategyAttack
	existing := ps.AttackGroups
	if strategy == StrategyHarass {
		kind = StrategyHarass
		existing = ps.HarassGroups
	}
	if len(existing) > 0 {
		return nil
	}

	army := armyUnits(s, catalog, owner)
	reserve := 0
	if strategy != StrategyAllIn {
		reserve = int(float64(len(army)) * pers.GarrisonFraction)
	}
	want := len(army) - reserve
	if want < groupMinSize {
		return nil
	}

	target, rally := pickOffensiveTarget(s, catalog, ps, owner, kind)
	if target == 0 {
		return nil
	}
	if ps.formOffensiveGroup(kind, army, target, rally, s.Tick, want) == nil {
		return nil
	}
	return garrisonPatrolActions(s, ps, owner, army)
}

// garrisonPatrolActions implements stage 3's garrison patrol: the army
// units formOffensiveDispatch just held back under GarrisonFraction (the
// ones formOffensiveGroup left unassigned after filling the dispatched
// group) each get a COMMAND_MOVE toward their own point on a ring of
// garrisonPatrolRadius around baseCenter, spaced by deterministic angular
// fraction so the garrison rings the perimeter instead of clumping on the
// centroid.
func garrisonPatrolActions(s *world.State, ps *PlayerState, owner world.PlayerID, army []*world.Entity) []world.Action {
	center, ok := baseCenter(s, owner)
	if !ok {
		return nil
	}
	assigned := ps.assignedUnits()
	var reserved []world.EntityID
	for _, u := range army {
		if !assigned[u.ID] {
			reserved = append(reserved, u.ID)
		}
	}
	if len(reserved) == 0 {
		return nil
	}
	var acts []world.Action
	for i, id := range reserved {
		angle := 2 * math.Pi * float64(i) / float64(len(reserved))
		offset := world.Vec2{math.Cos(angle) * garrisonPatrolRadius, math.Sin(angle) * garrisonPatrolRadius}
		acts = append(acts, world.Action{Type: world.ActionCommandMove, PlayerID: owner, EntityIDs: []world.EntityID{id}, Pos: center.Add(offset)})
	}
	return acts
}

// pickOffensiveTarget favors the most vengeful enemy's assets, falling
// back to the nearest enemy asset of any owner if that enemy has nothing
// left in range of the chosen target kind.
func pickOffensiveTarget(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, kind Strategy) (world.EntityID, *world.Vec2) {
	center, haveCenter := baseCenter(s, owner)
	preferredOwner, hasPreferred := mostVengefulEnemy(ps)

	pick := func(restrictOwner bool) world.EntityID {
		var best world.EntityID
		bestDist := math.Inf(1)
		for _, e := range s.OrderedEntities() {
			if e.Dead || e.Owner == owner || e.Owner == 0 {
				continue
			}
			if restrictOwner && e.Owner != preferredOwner {
				continue
			}
			switch kind {
			case StrategyHarass:
				isTarget := false
				if e.Kind == world.KindUnit && e.Unit.Harvester != nil {
					isTarget = true
				} else if e.Kind == world.KindBuilding {
					if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag("refinery") {
						isTarget = true
					}
				}
				if !isTarget {
					continue
				}
			default:
				if e.Kind != world.KindBuilding {
					continue
				}
			}
			d := 0.0
			if haveCenter {
				d = dist(center, e.Pos)
			}
			if d < bestDist {
				bestDist, best = d, e.ID
			}
		}
		return best
	}

	best := world.EntityID(0)
	if hasPreferred {
		best = pick(true)
	}
	if best == 0 {
		best = pick(false)
	}
	if best == 0 {
		return 0, nil
	}
	var rally *world.Vec2
	if haveCenter {
		rally = &center
	}
	return best, rally
}

func filterDemoTruckBuilds(acts []world.Action) []world.Action {
	out := acts[:0]
	for _, a := range acts {
		if a.Type == world.ActionStartBuild && a.Key == "demo_truck" {
			continue
		}
		out = append(out, a)
	}
	return out
}
