package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/pathfind"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/spatial"
)

// BuildRadius is the placement constraint: a new building (other than a
// player's first) must land within this distance of an existing friendly
// building.
const BuildRadius = 400.0

// buildingRadius is the half-width collision/bounds footprint shared by
// every placed building (a 90x90 conyard).
const buildingRadius = 45.0

// RepairRadius is the service depot's base healing radius before adding
// the target unit's own radius.
const RepairRadius = 80.0

const (
	serviceDepotRepairRate = 2
	airBaseLaunchDelay     = 15
	airBaseReloadTicks     = 200
	airBaseHealInterval    = 5
	airBaseHealAmount      = 2
)

const (
	sellReturnPercent          = 0.5
	sellReturnAndRepairPercent = 0.2
)

// tickUnitsAndBuildings runs the per-entity update phase:
// defensive turret targeting, service depot healing aura, air base slot
// reconciliation/reload/launch, then unit movement and combat, then
// engineer capture/repair resolution.
func tickUnitsAndBuildings(s *State, grid *spatial.Grid, pg *pathfind.Grid, catalog rules.Catalog, k *Kernel) {
	tickBuildingsCombatAndAura(s, grid, catalog, k)
	tickAirBases(s, catalog, k)
	tickUnitMovementAndCombat(s, grid, pg, catalog, k)
	tickEngineers(s, k)
}

func tickBuildingsCombatAndAura(s *State, grid *spatial.Grid, catalog rules.Catalog, k *Kernel) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || e.Kind != KindBuilding {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok {
			continue
		}
		if entry.IsDefense && e.Building.Combat != nil {
			tickDefensiveTurret(s, id, entry, grid, k)
		}
		if entry.HasTag("service_depot") {
			tickServiceDepotAura(s, id, grid)
		}
	}
}

func tickDefensiveTurret(s *State, id EntityID, entry rules.Entry, grid *spatial.Grid, k *Kernel) {
	e := s.Entities[id]
	combat := e.Building.Combat

	target := s.Entities[combat.TargetID]
	needNewTarget := target == nil || target.Dead || dist2(e.Pos, target.Pos) > entry.Range*entry.Range
	if needNewTarget {
		preferFlying := entry.HasTag("anti_air")
		candidates := grid.QueryEnemiesInRadius(e.Pos[0], e.Pos[1], entry.Range, uint64(e.Owner))
		var best *Entity
		bestDist := entry.Range * entry.Range
		for _, cand := range candidates {
			ce := s.Entities[EntityID(cand.ID)]
			if ce == nil || ce.Dead || (ce.Kind != KindUnit && ce.Kind != KindBuilding) {
				continue
			}
			if preferFlying && !ce.Flying() {
				continue
			}
			d := dist2(e.Pos, ce.Pos)
			if d <= bestDist {
				best = ce
				bestDist = d
			}
		}
		if best == nil && preferFlying {
			// SAM sites fall back to ground targets if no air threat is near.
			for _, cand := range candidates {
				ce := s.Entities[EntityID(cand.ID)]
				if ce == nil || ce.Dead {
					continue
				}
				d := dist2(e.Pos, ce.Pos)
				if d <= bestDist {
					best = ce
					bestDist = d
				}
			}
		}
		e = s.mutableEntity(id)
		if best != nil {
			e.Building.Combat.TargetID = best.ID
		} else {
			e.Building.Combat.TargetID = 0
		}
		combat = e.Building.Combat
	}

	if combat.TargetID == 0 {
		return
	}
	if combat.Cooldown > 0 {
		e = s.mutableEntity(id)
		e.Building.Combat.Cooldown--
		return
	}
	target = s.Entities[combat.TargetID]
	if target == nil || target.Dead {
		return
	}
	fireProjectile(s, e.Pos, e.Owner, entry, target.ID, target.Pos)
	aim := target.Pos.Sub(e.Pos)
	e = s.mutableEntity(id)
	e.Building.Combat.Cooldown = entry.Rate
	e.Building.Combat.TurretAngle = math.Atan2(aim[1], aim[0])
	k.emit(event.Event{Kind: event.KindCommand, Tick: s.Tick, PlayerID: uint64(e.Owner), EntityID: uint64(id), Data: map[string]any{"action": "turret_fire", "target": uint64(target.ID)}})
}

func tickServiceDepotAura(s *State, id EntityID, grid *spatial.Grid) {
	depot := s.Entities[id]
	player := s.Players[depot.Owner]
	if player == nil || player.PowerStarved() {
		return
	}
	nearby := grid.QueryRadius(depot.Pos[0], depot.Pos[1], RepairRadius+64)
	for _, cand := range nearby {
		ce := s.Entities[EntityID(cand.ID)]
		if ce == nil || ce.Dead || ce.Kind != KindUnit || ce.Owner != depot.Owner || ce.Flying() {
			continue
		}
		if ce.HP >= ce.MaxHP {
			continue
		}
		if dist2(depot.Pos, ce.Pos) > sq(RepairRadius+ce.Radius) {
			continue
		}
		target := s.mutableEntity(ce.ID)
		target.HP = minInt(target.HP+serviceDepotRepairRate, target.MaxHP)
	}
}

func tickAirBases(s *State, catalog rules.Catalog, k *Kernel) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || e.Kind != KindBuilding || e.Building.AirBase == nil {
			continue
		}
		reconcileLostHarriers(s, id, k)
		tickAirBaseReload(s, id)
		tickAirBaseHeal(s, id)
		tickAirBaseLaunch(s, id, k)
	}
}

// reconcileLostHarriers is a self-healing pass: harriers that believe
// they are docked but are missing from any slot get re-registered, or
// logged if the base genuinely has no free slot for them. This is an
// assertion-style backstop rather than the primary mechanism for
// maintaining dock state; every other mutation site (spawn, launch,
// return) updates slots directly.
func reconcileLostHarriers(s *State, baseID EntityID, k *Kernel) {
	base := s.Entities[baseID]
	occupied := map[EntityID]bool{}
	for _, slot := range base.Building.AirBase.Slots {
		if slot.OccupantID != 0 {
			occupied[slot.OccupantID] = true
		}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != KindUnit || e.Unit.AirUnit == nil {
			continue
		}
		au := e.Unit.AirUnit
		if au.State != AirDocked || au.HomeBaseID != baseID || occupied[e.ID] {
			continue
		}
		base = s.mutableEntity(baseID)
		placed := false
		for i := range base.Building.AirBase.Slots {
			if base.Building.AirBase.Slots[i].OccupantID == 0 {
				base.Building.AirBase.Slots[i].OccupantID = e.ID
				hm := s.mutableEntity(e.ID)
				hm.Unit.AirUnit.DockedSlot = i
				placed = true
				break
			}
		}
		if !placed {
			k.log().Warn("air base reconciliation: no free slot for docked harrier", "base", uint64(baseID), "harrier", uint64(e.ID))
		}
	}
}

func tickAirBaseReload(s *State, baseID EntityID) {
	base := s.Entities[baseID]
	for i, slot := range base.Building.AirBase.Slots {
		if slot.OccupantID == 0 {
			continue
		}
		h := s.Entities[slot.OccupantID]
		if h == nil || h.Dead || h.Unit.AirUnit.Ammo >= h.Unit.AirUnit.MaxAmmo {
			continue
		}
		base = s.mutableEntity(baseID)
		rp := base.Building.AirBase.Slots[i].ReloadProgress
		if rp <= 0 {
			rp = airBaseReloadTicks
		}
		rp--
		base.Building.AirBase.Slots[i].ReloadProgress = rp
		if rp <= 0 {
			hm := s.mutableEntity(slot.OccupantID)
			hm.Unit.AirUnit.Ammo = hm.Unit.AirUnit.MaxAmmo
		}
	}
}

func tickAirBaseHeal(s *State, baseID EntityID) {
	if s.Tick%airBaseHealInterval != 0 {
		return
	}
	base := s.Entities[baseID]
	for _, slot := range base.Building.AirBase.Slots {
		if slot.OccupantID == 0 {
			continue
		}
		h := s.Entities[slot.OccupantID]
		if h == nil || h.Dead || h.HP >= h.MaxHP {
			continue
		}
		hm := s.mutableEntity(slot.OccupantID)
		hm.HP = minInt(hm.HP+airBaseHealAmount, hm.MaxHP)
	}
}

func tickAirBaseLaunch(s *State, baseID EntityID, k *Kernel) {
	base := s.Entities[baseID]
	if s.Tick-base.Building.AirBase.LastLaunchTick < airBaseLaunchDelay {
		return
	}
	for i, slot := range base.Building.AirBase.Slots {
		if slot.OccupantID == 0 {
			continue
		}
		h := s.Entities[slot.OccupantID]
		if h == nil || h.Dead || h.Unit.Combat.TargetID == 0 || h.Unit.AirUnit.Ammo <= 0 {
			continue
		}
		hm := s.mutableEntity(h.ID)
		hm.Unit.AirUnit.State = AirFlying
		hm.Unit.AirUnit.DockedSlot = -1
		base = s.mutableEntity(baseID)
		base.Building.AirBase.Slots[i].OccupantID = 0
		base.Building.AirBase.LastLaunchTick = s.Tick
		k.emit(event.Event{Kind: event.KindCommand, Tick: s.Tick, PlayerID: uint64(base.Owner), EntityID: uint64(h.ID), Data: map[string]any{"action": "launch"}})
		return
	}
}

func tickEngineers(s *State, k *Kernel) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || e.Kind != KindUnit || e.Unit.Engineer == nil {
			continue
		}
		eng := e.Unit.Engineer
		if eng.CaptureTargetID != 0 {
			target := s.Entities[eng.CaptureTargetID]
			if target != nil && !target.Dead && dist2(e.Pos, target.Pos) <= sq(target.Radius+e.Radius+5) {
				tm := s.mutableEntity(target.ID)
				tm.Owner = e.Owner
				em := s.mutableEntity(id)
				em.Dead = true
				k.emit(event.Event{Kind: event.KindCommand, Tick: s.Tick, PlayerID: uint64(e.Owner), EntityID: uint64(id), Data: map[string]any{"action": "capture", "target": uint64(target.ID)}})
			}
			continue
		}
		if eng.RepairTargetID != 0 {
			target := s.Entities[eng.RepairTargetID]
			if target != nil && !target.Dead && dist2(e.Pos, target.Pos) <= sq(target.Radius+e.Radius+5) {
				tm := s.mutableEntity(target.ID)
				tm.HP = tm.MaxHP
				em := s.mutableEntity(id)
				em.Dead = true
			}
		}
	}
}

// tickRepair runs building self-repair: a building with
// IsRepairing set heals at maxHp/600 per tick, drawing
// (cost*sellReturnAndRepairPercent)/600 credits per tick from its owner,
// stopping automatically once healed or once the owner can no longer
// afford it. The maxHp/600 rate is almost never a whole number of HP, so
// the fractional remainder accumulates in Building.RepairAccum across
// ticks rather than rounding up every tick; ceiling-rounding a
// sub-1-HP/tick rate would finish a repair in noticeably fewer than 600
// ticks for any building whose MaxHP isn't a multiple of 600.
func tickRepair(s *State, catalog rules.Catalog) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || e.Kind != KindBuilding || e.Building == nil || !e.Building.IsRepairing {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || entry.Cost <= 0 {
			continue
		}
		player := s.Players[e.Owner]
		if player == nil {
			continue
		}
		tickCost := (float64(entry.Cost) * sellReturnAndRepairPercent) / 600.0
		em := s.mutableEntity(id)
		if owed := int(em.Building.RepairCostAccum + tickCost); owed > 0 {
			if player.Credits < owed {
				em.Building.IsRepairing = false
				em.Building.RepairCostAccum = 0
				continue
			}
			player = s.mutablePlayer(e.Owner)
			player.Credits -= owed
			em.Building.RepairCostAccum -= float64(owed)
		}
		em.Building.RepairCostAccum += tickCost
		em.Building.RepairAccum += float64(em.MaxHP) / 600.0
		if whole := int(em.Building.RepairAccum); whole > 0 {
			em.HP = minInt(em.HP+whole, em.MaxHP)
			em.Building.RepairAccum -= float64(whole)
		}
		if em.HP >= em.MaxHP {
			em.Building.IsRepairing = false
			em.Building.RepairAccum = 0
			em.Building.RepairCostAccum = 0
		}
	}
}

func dist2(a, b mgl64.Vec2) float64 { return a.Sub(b).LenSqr() }
func sq(v float64) float64          { return v * v }
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
