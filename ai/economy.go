package ai

import (
	"math"

	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// aiBuildingRadius mirrors world's unexported buildingRadius (45.0):
// placement candidates the AI proposes must clear the same collision
// footprint the reducer checks, but the kernel doesn't export the
// constant, so it's restated here.
const aiBuildingRadius = 45.0

// baseBuildOrder is the canonical early build order:
// power, refinery, barracks, power, factory, refinery, then support
// structures. Difficulty/personality don't reorder it, only what comes
// after it loops (nextBuildOrderKey).
var baseBuildOrder = []rules.Key{
	"power_plant", "refinery", "barracks", "power_plant",
	"war_factory", "refinery", "service_depot", "air_base",
}

// economyActions is stage 4 of the pipeline: build order, sell
// decisions, MCV deploy, harvester re-tasking and ready-building placement.
func economyActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, pers Personality) []world.Action {
	var acts []world.Action
	acts = append(acts, mcvDeployActions(s, catalog, owner)...)
	acts = append(acts, placeReadyBuildingActions(s, catalog, owner)...)
	acts = append(acts, buildOrderActions(s, catalog, owner, ps.InvestmentPriority, ps.ThreatLevel)...)
	acts = append(acts, sellDecisionActions(s, catalog, ps, owner)...)
	acts = append(acts, harvesterRetaskActions(s, catalog, ps, owner)...)
	return acts
}

// mcvDeployActions deploys an owned, undeployed MCV the moment the player
// has no conyard, covering both the opening deploy and an emergency
// rebuild after losing the original base.
func mcvDeployActions(s *world.State, catalog rules.Catalog, owner world.PlayerID) []world.Action {
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag("conyard") {
			return nil
		}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner != owner || e.Kind != world.KindUnit {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || !entry.HasTag("mcv") {
			continue
		}
		return []world.Action{{Type: world.ActionDeployMCV, PlayerID: owner, EntityIDs: []world.EntityID{e.ID}}}
	}
	return nil
}

// placeReadyBuildingActions emits the PLACE_BUILDING that every START_BUILD
// eventually needs once production finishes and the building sits in
// player.ReadyToPlace: without this, a finished AI building would never
// enter the world.
func placeReadyBuildingActions(s *world.State, catalog rules.Catalog, owner world.PlayerID) []world.Action {
	player := s.Players[owner]
	if player == nil || player.ReadyToPlace == nil {
		return nil
	}
	entry, ok := catalog.Lookup(player.ReadyToPlace.Key)
	if !ok {
		return nil
	}
	pos, ok := choosePlacement(s, catalog, owner, entry)
	if !ok {
		return nil
	}
	return []world.Action{{Type: world.ActionPlaceBuilding, PlayerID: owner, Pos: pos}}
}

// choosePlacement rings out from base center (or, for a refinery, the
// nearest unclaimed ore patch) looking for a spot inside BuildRadius of an
// owned building, inside the map and clear of other buildings/rocks,
// mirroring the reducer's own positionNearOwnBuilding/positionBlocked
// checks since the AI has no access to those unexported helpers.
func choosePlacement(s *world.State, catalog rules.Catalog, owner world.PlayerID, entry rules.Entry) (world.Vec2, bool) {
	center, ok := baseCenter(s, owner)
	if !ok {
		return world.Vec2{}, false
	}
	if entry.HasTag("refinery") {
		if ore := expansionTarget(s, catalog, owner); ore != nil {
			center = *ore
		}
	}

	const rings = 6
	const spokes = 12
	for ring := 1; ring <= rings; ring++ {
		radius := float64(ring) * (world.BuildRadius / (rings + 1))
		for spoke := 0; spoke < spokes; spoke++ {
			angle := 2 * math.Pi * float64(spoke) / float64(spokes)
			cand := world.Vec2{center[0] + radius*math.Cos(angle), center[1] + radius*math.Sin(angle)}
			if placementValid(s, catalog, owner, cand) {
				return cand, true
			}
		}
	}
	return world.Vec2{}, false
}

func placementValid(s *world.State, catalog rules.Catalog, owner world.PlayerID, pos world.Vec2) bool {
	if pos[0] < aiBuildingRadius || pos[0] > s.Config.MapWidth-aiBuildingRadius ||
		pos[1] < aiBuildingRadius || pos[1] > s.Config.MapHeight-aiBuildingRadius {
		return false
	}
	near := false
	for _, e := range s.OrderedEntities() {
		if e.Dead {
			continue
		}
		if e.Kind == world.KindBuilding || e.Kind == world.KindRock {
			if dist(pos, e.Pos) < aiBuildingRadius+e.Radius {
				return false
			}
		}
		// Proximity only counts non-defense buildings, same as the
		// reducer: a forward turret doesn't extend the buildable area.
		if e.Kind == world.KindBuilding && e.Owner == owner && dist(pos, e.Pos) <= world.BuildRadius {
			if entry, ok := catalog.Lookup(e.Key); ok && entry.IsDefense {
				continue
			}
			near = true
		}
	}
	return near
}

// buildOrderActions queues the next missing key in baseBuildOrder, then
// falls back to economy/defense-priority extras once the canonical order
// is satisfied.
func buildOrderActions(s *world.State, catalog rules.Catalog, owner world.PlayerID, priority InvestmentPriority, threat float64) []world.Action {
	player := s.Players[owner]
	if player == nil {
		return nil
	}
	q := player.Queues[rules.CategoryBuilding]
	if q == nil || q.Current != nil || len(q.Queued) > 0 {
		return nil
	}
	counts := buildingCounts(s, owner)
	next := nextBuildOrderKey(counts, priority, threat)
	if next == "" {
		return nil
	}
	if _, ok := catalog.Lookup(next); !ok {
		return nil
	}
	return []world.Action{{Type: world.ActionStartBuild, PlayerID: owner, Key: next, Category: rules.CategoryBuilding}}
}

func buildingCounts(s *world.State, owner world.PlayerID) map[rules.Key]int {
	counts := map[rules.Key]int{}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		counts[e.Key]++
	}
	return counts
}

func nextBuildOrderKey(counts map[rules.Key]int, priority InvestmentPriority, threat float64) rules.Key {
	seen := map[rules.Key]int{}
	for _, key := range baseBuildOrder {
		seen[key]++
		if counts[key] < seen[key] {
			return key
		}
	}
	switch {
	case priority == PriorityDefense || threat > 50:
		if counts["gun_turret"] < 2 {
			return "gun_turret"
		}
		if counts["sam_site"] < 1 {
			return "sam_site"
		}
	case priority == PriorityEconomy:
		if counts["induction_rig"] < 1 {
			return "induction_rig"
		}
		return "refinery"
	}
	if counts["power_plant"] < 2 {
		return "power_plant"
	}
	return ""
}

// sellDecisionActions implements stage 4's emergency and all-in sell
// phases: sell a non-essential building for quick cash when
// the treasury is critically empty, or liquidate the economy entirely once
// desperation has committed the AI to an all_in push.
func sellDecisionActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID) []world.Action {
	player := s.Players[owner]
	if player == nil {
		return nil
	}
	const emergencyCredits = 100
	if player.Credits >= emergencyCredits && ps.Strategy != StrategyAllIn {
		return nil
	}
	lastResort := ps.Strategy == StrategyAllIn && ps.AllInStartTick != 0 &&
		s.Tick-ps.AllInStartTick >= desperatePersistTicks
	target := leastEssentialBuilding(s, catalog, owner, lastResort)
	if target == 0 {
		return nil
	}
	return []world.Action{{Type: world.ActionSellBuilding, PlayerID: owner, EntityIDs: []world.EntityID{target}}}
}

// leastEssentialBuilding picks a spare power plant or refinery (the
// economy can give one up without immediately crippling production). In
// the last-resort all-in phase, any non-conyard, non-defense building is a
// candidate since the AI has already committed its army.
func leastEssentialBuilding(s *world.State, catalog rules.Catalog, owner world.PlayerID, lastResort bool) world.EntityID {
	counts := buildingCounts(s, owner)
	var spare world.EntityID
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || entry.HasTag("conyard") {
			continue
		}
		if (entry.HasTag("power") && counts["power_plant"] > 1) || (entry.HasTag("refinery") && counts["refinery"] > 1) {
			return e.ID
		}
		if lastResort && !entry.IsDefense {
			spare = e.ID
		}
	}
	return spare
}

// harvesterRetaskActions keeps a harvester this package took manual
// control of (stage 1's flee, or a prior player order) doing useful work
// once the flee cooldown lifts: head for unspent cargo's refinery, or the
// nearest ore pile, standing in for the kernel's own auto-harvest sub-AI
// which stays disabled for any harvester in ManualMode.
func harvesterRetaskActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID) []world.Action {
	var acts []world.Action
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner != owner || e.Kind != world.KindUnit || e.Unit.Harvester == nil {
			continue
		}
		if !e.Unit.Harvester.ManualMode {
			continue
		}
		if until, fleeing := ps.HarvesterFleeCooldown[e.ID]; fleeing && s.Tick < until {
			continue
		}
		var destPos world.Vec2
		var found bool
		if e.Unit.Harvester.Cargo >= world.MaxHarvesterCargo {
			destPos, found = nearestRefineryPos(s, catalog, owner, e.Pos)
		} else {
			destPos, found = nearestResourcePos(s, e.Pos)
			if !found {
				destPos, found = nearestRefineryPos(s, catalog, owner, e.Pos)
			}
		}
		if !found {
			continue
		}
		acts = append(acts, world.Action{Type: world.ActionCommandMove, PlayerID: owner, EntityIDs: []world.EntityID{e.ID}, Pos: destPos})
	}
	return acts
}

func nearestResourcePos(s *world.State, pos world.Vec2) (world.Vec2, bool) {
	best := math.Inf(1)
	var out world.Vec2
	found := false
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindResource {
			continue
		}
		if d := dist(pos, e.Pos); d < best {
			best, out, found = d, e.Pos, true
		}
	}
	return out, found
}

func nearestRefineryPos(s *world.State, catalog rules.Catalog, owner world.PlayerID, pos world.Vec2) (world.Vec2, bool) {
	best := math.Inf(1)
	var out world.Vec2
	found := false
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || !entry.HasTag("refinery") {
			continue
		}
		if d := dist(pos, e.Pos); d < best {
			best, out, found = d, e.Pos, true
		}
	}
	return out, found
}
