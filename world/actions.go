package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/rules"
)

// ActionType enumerates the player-issued commands the reducer accepts.
type ActionType string

const (
	ActionStartBuild    ActionType = "START_BUILD"
	ActionPlaceBuilding ActionType = "PLACE_BUILDING"
	ActionCommandMove   ActionType = "COMMAND_MOVE"
	ActionCommandAttack ActionType = "COMMAND_ATTACK"
	ActionSellBuilding  ActionType = "SELL_BUILDING"
	ActionDeployMCV     ActionType = "DEPLOY_MCV"
	ActionStartRepair   ActionType = "START_REPAIR"
	ActionCancelBuild   ActionType = "CANCEL_BUILD"
)

// Action is the single request/command envelope Apply accepts. Only the
// fields relevant to Type are read; the rest are ignored.
type Action struct {
	Type     ActionType
	PlayerID PlayerID

	Key      rules.Key      // START_BUILD, PLACE_BUILDING, CANCEL_BUILD
	Category rules.Category // CANCEL_BUILD

	Pos mgl64.Vec2 // PLACE_BUILDING, COMMAND_MOVE

	EntityIDs []EntityID // COMMAND_MOVE/COMMAND_ATTACK (group), or a single-element slice for SELL_BUILDING/START_REPAIR/DEPLOY_MCV
	TargetID  EntityID   // COMMAND_ATTACK
}

// Apply is the pure command reducer: given a state and one
// Action, it returns a new state. Invalid input (unknown player, entity
// not owned by the actor, an unaffordable or out-of-range request) never
// panics or errors; it leaves the rest of the state untouched and records
// a human-readable Notification on the acting player.
func Apply(prev *State, catalog rules.Catalog, k *Kernel, a Action) *State {
	s := prev.Clone()
	player := s.Players[a.PlayerID]
	if player == nil {
		return s
	}
	player = s.mutablePlayer(a.PlayerID)
	player.Notification = ""

	switch a.Type {
	case ActionStartBuild:
		applyStartBuild(s, player, catalog, a)
	case ActionPlaceBuilding:
		applyPlaceBuilding(s, player, catalog, a, k)
	case ActionCommandMove:
		applyCommandMove(s, player, a)
	case ActionCommandAttack:
		applyCommandAttack(s, player, a)
	case ActionSellBuilding:
		applySellBuilding(s, player, catalog, a)
	case ActionDeployMCV:
		applyDeployMCV(s, player, catalog, a)
	case ActionStartRepair:
		applyStartRepair(s, player, catalog, a)
	case ActionCancelBuild:
		applyCancelBuild(s, player, a)
	default:
		notify(player, "unrecognized action type")
	}
	return s
}

func notify(player *Player, msg string) {
	player.Notification = msg
}

func applyStartBuild(s *State, player *Player, catalog rules.Catalog, a Action) {
	entry, ok := catalog.Lookup(a.Key)
	if !ok {
		notify(player, "unknown catalog key")
		return
	}
	q := player.Queues[entry.Category]
	if q == nil {
		notify(player, "no queue for category")
		return
	}
	if !prereqsHold(s, player.ID, entry.Prereqs) {
		notify(player, "prerequisites not met")
		return
	}
	if entry.MaxCount > 0 && countOwnedOrQueued(s, player, entry.Key) >= entry.MaxCount {
		notify(player, "unit cap reached")
		return
	}
	q.Queued = append(q.Queued, a.Key)
	if q.Current == nil {
		pullNextQueued(s, player, entry.Category, catalog)
	}
}

func applyPlaceBuilding(s *State, player *Player, catalog rules.Catalog, a Action, k *Kernel) {
	if player.ReadyToPlace == nil {
		notify(player, "no building ready to place")
		return
	}
	entry, ok := catalog.Lookup(player.ReadyToPlace.Key)
	if !ok {
		notify(player, "unknown catalog key")
		return
	}
	if !positionInBounds(s, a.Pos, buildingRadius) {
		notify(player, "Cannot place: Out of bounds")
		return
	}
	if !positionNearOwnBuilding(s, catalog, player.ID, a.Pos) {
		notify(player, "too far from existing base")
		return
	}
	if positionBlocked(s, a.Pos, buildingRadius) {
		notify(player, "Cannot place: Blocked")
		return
	}

	// An induction rig deploys as a well, not a building: it produces
	// credits from the ambient ore field every tick and is targeted by
	// threat detection as a rig, so it lives on the well update path.
	if entry.HasTag("induction_rig") {
		id := s.AddEntity(&Entity{
			Kind: KindWell, Key: entry.Key, Owner: player.ID, Pos: a.Pos, Radius: buildingRadius,
			HP: entry.HP, MaxHP: entry.HP, Well: &WellData{IsInductionRig: true},
		})
		player.ReadyToPlace = nil
		k.emit(event.Event{Kind: event.KindProduction, Tick: s.Tick, PlayerID: uint64(player.ID), EntityID: uint64(id), Data: map[string]any{"action": "place", "key": string(entry.Key)}})
		return
	}

	b := &Entity{
		Kind: KindBuilding, Key: entry.Key, Owner: player.ID, Pos: a.Pos, Radius: buildingRadius,
		HP: entry.HP, MaxHP: entry.HP, Building: &BuildingData{PlacedTick: s.Tick},
	}
	if entry.IsDefense {
		b.Building.Combat = &CombatState{}
	}
	if entry.HasTag("air_base") {
		b.Building.AirBase = &AirBaseData{}
	}
	id := s.AddEntity(b)

	if _, ok := player.PrimaryBuildings[entry.Category]; !ok && entry.HasTag("produces_"+string(entry.Category)) {
		player.PrimaryBuildings[entry.Category] = id
	}
	for cat, tag := range map[rules.Category]string{
		rules.CategoryInfantry: "produces_infantry", rules.CategoryVehicle: "produces_vehicle", rules.CategoryAir: "produces_air",
	} {
		if entry.HasTag(tag) {
			if _, ok := player.PrimaryBuildings[cat]; !ok {
				player.PrimaryBuildings[cat] = id
			}
		}
	}

	// A refinery comes with its own harvester, dropped just south of the
	// building in auto-harvest mode.
	if entry.HasTag("refinery") {
		if harvesterEntry, ok := catalog.Lookup("harvester"); ok {
			s.AddEntity(&Entity{
				Kind: KindUnit, Key: harvesterEntry.Key, Owner: player.ID,
				Pos:    mgl64.Vec2{a.Pos[0], a.Pos[1] + b.Radius + 50},
				Radius: 12, HP: harvesterEntry.HP, MaxHP: harvesterEntry.HP,
				Unit: &UnitData{Harvester: &HarvesterData{}},
			})
		}
	}

	player.ReadyToPlace = nil
	k.emit(event.Event{Kind: event.KindProduction, Tick: s.Tick, PlayerID: uint64(player.ID), EntityID: uint64(id), Data: map[string]any{"action": "place", "key": string(entry.Key)}})
}

func applyCommandMove(s *State, player *Player, a Action) {
	for _, id := range a.EntityIDs {
		e := s.Entities[id]
		if e == nil || e.Dead || e.Owner != player.ID || e.Kind != KindUnit {
			continue
		}
		em := s.mutableEntity(id)
		pos := a.Pos
		em.Unit.Movement.MoveTarget = &pos
		em.Unit.Movement.Path = nil
		em.Unit.Movement.PathIdx = 0
		em.Unit.Combat.TargetID = 0
		if em.Unit.Harvester != nil {
			em.Unit.Harvester.ManualMode = true
		}
	}
}

func applyCommandAttack(s *State, player *Player, a Action) {
	target := s.Entities[a.TargetID]
	if target == nil || target.Dead {
		notify(player, "attack target does not exist")
		return
	}
	for _, id := range a.EntityIDs {
		e := s.Entities[id]
		if e == nil || e.Dead || e.Owner != player.ID || e.Kind != KindUnit {
			continue
		}
		em := s.mutableEntity(id)
		if em.Unit.Engineer != nil && target.Owner != player.ID {
			// An engineer/hijacker ordered to "attack" a foreign entity is
			// ordering a capture, not a weapons engagement (engineers and
			// hijackers carry no Weapon in the catalog).
			em.Unit.Engineer.CaptureTargetID = a.TargetID
			continue
		}
		em.Unit.Combat.TargetID = a.TargetID
		if em.Unit.Harvester != nil {
			em.Unit.Harvester.ManualMode = true
		}
	}
}

func applySellBuilding(s *State, player *Player, catalog rules.Catalog, a Action) {
	if len(a.EntityIDs) == 0 {
		return
	}
	id := a.EntityIDs[0]
	e := s.Entities[id]
	if e == nil || e.Dead || e.Owner != player.ID || e.Kind != KindBuilding {
		notify(player, "invalid sell target")
		return
	}
	entry, ok := catalog.Lookup(e.Key)
	if !ok {
		return
	}
	hpFrac := 1.0
	if e.MaxHP > 0 {
		hpFrac = float64(e.HP) / float64(e.MaxHP)
	}
	refund := float64(entry.Cost) * sellReturnPercent * hpFrac
	player.Credits += int(refund)
	em := s.mutableEntity(id)
	em.Dead = true
}

func applyDeployMCV(s *State, player *Player, catalog rules.Catalog, a Action) {
	if len(a.EntityIDs) == 0 {
		return
	}
	id := a.EntityIDs[0]
	e := s.Entities[id]
	if e == nil || e.Dead || e.Owner != player.ID || e.Kind != KindUnit {
		notify(player, "invalid MCV")
		return
	}
	entry, ok := catalog.Lookup(e.Key)
	if !ok || !entry.HasTag("mcv") {
		notify(player, "unit is not an MCV")
		return
	}
	if !positionInBounds(s, e.Pos, buildingRadius) {
		notify(player, "Cannot deploy: Out of bounds")
		return
	}
	if positionBlocked(s, e.Pos, buildingRadius) {
		notify(player, "Cannot deploy: Blocked")
		return
	}
	conyard, ok := catalog.Lookup("conyard")
	if !ok {
		notify(player, "no conyard in catalog")
		return
	}
	b := &Entity{
		Kind: KindBuilding, Key: conyard.Key, Owner: player.ID, Pos: e.Pos, Radius: buildingRadius,
		HP: conyard.HP, MaxHP: conyard.HP, Building: &BuildingData{PlacedTick: s.Tick},
	}
	newID := s.AddEntity(b)
	if _, ok := player.PrimaryBuildings[rules.CategoryBuilding]; !ok {
		player.PrimaryBuildings[rules.CategoryBuilding] = newID
	}
	em := s.mutableEntity(id)
	em.Dead = true
}

func applyStartRepair(s *State, player *Player, catalog rules.Catalog, a Action) {
	if len(a.EntityIDs) == 0 {
		return
	}
	id := a.EntityIDs[0]
	e := s.Entities[id]
	if e == nil || e.Dead || e.Owner != player.ID || e.Kind != KindBuilding {
		notify(player, "invalid repair target")
		return
	}
	if e.HP >= e.MaxHP {
		return
	}
	em := s.mutableEntity(id)
	em.Building.IsRepairing = true
}

func applyCancelBuild(s *State, player *Player, a Action) {
	q := player.Queues[a.Category]
	if q == nil {
		return
	}
	if q.Current != nil && q.Current.Key == a.Key {
		player.Credits += q.Current.Invested
		q.Current = nil
		return
	}
	for i, k := range q.Queued {
		if k == a.Key {
			q.Queued = append(q.Queued[:i], q.Queued[i+1:]...)
			return
		}
	}
}

// countOwnedOrQueued counts key's global per-player presence for
// Entry.MaxCount enforcement: live entities plus every queued/in-progress
// production slot across all categories.
func countOwnedOrQueued(s *State, player *Player, key rules.Key) int {
	count := 0
	for _, e := range s.Entities {
		if !e.Dead && e.Owner == player.ID && e.Key == key {
			count++
		}
	}
	for _, q := range player.Queues {
		if q.Current != nil && q.Current.Key == key {
			count++
		}
		for _, k := range q.Queued {
			if k == key {
				count++
			}
		}
	}
	return count
}

func positionInBounds(s *State, pos mgl64.Vec2, radius float64) bool {
	return pos[0] >= radius && pos[0] <= s.Config.MapWidth-radius && pos[1] >= radius && pos[1] <= s.Config.MapHeight-radius
}

// positionNearOwnBuilding checks the BuildRadius proximity rule. Only
// non-defense buildings anchor a base: a lone forward turret neither
// extends the buildable area nor suppresses the first-building exemption.
func positionNearOwnBuilding(s *State, catalog rules.Catalog, owner PlayerID, pos mgl64.Vec2) bool {
	hasAny := false
	for _, e := range s.Entities {
		if e.Dead || e.Kind != KindBuilding || e.Owner != owner {
			continue
		}
		if entry, ok := catalog.Lookup(e.Key); ok && entry.IsDefense {
			continue
		}
		hasAny = true
		if dist2(pos, e.Pos) <= BuildRadius*BuildRadius {
			return true
		}
	}
	return !hasAny
}

func positionBlocked(s *State, pos mgl64.Vec2, radius float64) bool {
	for _, e := range s.Entities {
		if e.Dead {
			continue
		}
		if e.Kind == KindBuilding || e.Kind == KindRock {
			if dist2(pos, e.Pos) < sq(radius+e.Radius) {
				return true
			}
		}
	}
	return false
}
