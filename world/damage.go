package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/rules"
)

// damageEvent is one queued hit, deferred until the damage-apply phase so
// every projectile/melee/explosion hit resolved this tick sees the same
// pre-damage HP values rather than racing against each other in
// iteration order.
type damageEvent struct {
	TargetID      EntityID
	AttackerID    EntityID // 0 if the attacker is not itself an entity (e.g. a building's turret is, a chain explosion isn't)
	AttackerOwner PlayerID
	Amount        int
	WeaponType    rules.WeaponType
}

// explosionEvent is one queued splash-damage burst, applied by
// processExplosionQueue. A hit that kills an ammo-carrying unit or a
// detonating demo truck may itself enqueue further explosionEvents,
// forming a bounded chain reaction.
type explosionEvent struct {
	Pos        mgl64.Vec2
	Owner      PlayerID
	Radius     float64
	Damage     int
	WeaponType rules.WeaponType
	ExcludeID  EntityID // the direct-hit target, already damaged by the triggering projectile
}

// maxExplosionChainDepth bounds the chain-reaction fan-out so a pathological
// cluster of explosives can never loop the kernel indefinitely.
const maxExplosionChainDepth = 32

// applyPendingDamage commits every damage event queued this tick against
// the current state, clamping HP at zero and updating each target's combat
// flash/last-attacker bookkeeping.
func applyPendingDamage(s *State, catalog rules.Catalog, k *Kernel) {
	for _, ev := range k.pendingDamage {
		applyDamage(s, ev, catalog, k)
	}
}

func applyDamage(s *State, ev damageEvent, catalog rules.Catalog, k *Kernel) {
	target := s.Entities[ev.TargetID]
	if target == nil || target.Dead {
		return
	}
	wasAlive := target.HP > 0
	t := s.mutableEntity(ev.TargetID)
	t.HP -= ev.Amount
	if t.HP < 0 {
		t.HP = 0
	}
	combat := combatStateOf(t)
	if combat != nil {
		combat.Flash = 5
		combat.LastAttackerID = ev.AttackerID
		combat.LastDamageTick = s.Tick
	}
	if t.Unit != nil && t.Unit.Harvester != nil {
		t.Unit.Harvester.FleeCooldownUntilTick = s.Tick + harvesterFleeTicks
	}
	k.emit(event.Event{
		Kind:     event.KindState,
		Tick:     s.Tick,
		PlayerID: uint64(ev.AttackerOwner),
		EntityID: uint64(ev.TargetID),
		Data:     map[string]any{"action": "damage", "amount": ev.Amount, "hp": t.HP},
	})
	if t.HP == 0 {
		t.Dead = true
		if wasAlive && carriesVolatileCargo(t) {
			queueVolatileDetonation(t, catalog, k)
		}
	}
}

// queueVolatileDetonation enqueues the secondary explosion a demo truck or
// ammo-laden air unit leaves behind when it dies, regardless of what
// killed it, whether a direct weapon hit (applyDamage) or splash from another
// explosion (applyExplosion). The detonation is unconditional on cause of
// death, so this uses the dying entity's own catalog splash/damage, the
// same stats its own proximity fuse (tickDemoTruckFor) would have used.
func queueVolatileDetonation(e *Entity, catalog rules.Catalog, k *Kernel) {
	entry, ok := catalog.Lookup(e.Key)
	if !ok {
		return
	}
	if e.Unit.DemoTruck != nil {
		e.Unit.DemoTruck.HasDetonated = true
	}
	k.queueExplosion(explosionEvent{Pos: e.Pos, Owner: e.Owner, Radius: entry.Splash, Damage: entry.Damage, WeaponType: rules.WeaponExplosion, ExcludeID: e.ID})
}

// combatStateOf returns the CombatState embedded in e's variant payload, if
// any (units always carry one; buildings only when they are a defensive
// turret).
func combatStateOf(e *Entity) *CombatState {
	if e.Unit != nil {
		return &e.Unit.Combat
	}
	if e.Building != nil && e.Building.Combat != nil {
		return e.Building.Combat
	}
	return nil
}

// processExplosionQueue drains the explosion queue breadth-first: every
// burst damages every live entity within its radius (save the entity that
// was already hit by the triggering projectile). applyDamage itself
// enqueues any further burst a kill triggers (a demo truck or ammo-bearing
// air unit dying within the blast), so the chain reaction
// is driven uniformly from one place regardless of whether the kill came
// from this explosion or a direct weapon hit, up to maxExplosionChainDepth
// rounds.
func processExplosionQueue(s *State, catalog rules.Catalog, k *Kernel) {
	depth := 0
	for len(k.explosionQueue) > 0 && depth < maxExplosionChainDepth {
		batch := k.explosionQueue
		k.explosionQueue = nil
		for _, ev := range batch {
			applyExplosion(s, ev, catalog, k)
		}
		depth++
	}
}

func applyExplosion(s *State, ev explosionEvent, catalog rules.Catalog, k *Kernel) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || id == ev.ExcludeID {
			continue
		}
		effectiveRadius := ev.Radius + e.Radius
		d2 := dist2(e.Pos, ev.Pos)
		if d2 > sq(effectiveRadius) {
			continue
		}
		falloff := 1.0 - math.Sqrt(d2)/effectiveRadius
		if falloff < 0 {
			falloff = 0
		}
		mod := catalog.DamageModifier(ev.WeaponType, targetArmor(e, catalog))
		amount := int(math.Round(float64(ev.Damage) * mod * falloff))
		if amount <= 0 {
			continue
		}
		applyDamage(s, damageEvent{TargetID: id, AttackerOwner: ev.Owner, Amount: amount, WeaponType: ev.WeaponType}, catalog, k)
	}
}

// carriesVolatileCargo reports whether a unit's death should trigger a
// secondary explosion: an armed demo truck or an air unit still holding
// ordnance.
func carriesVolatileCargo(e *Entity) bool {
	if e.Unit == nil {
		return false
	}
	if e.Unit.DemoTruck != nil && !e.Unit.DemoTruck.HasDetonated {
		return true
	}
	if e.Unit.AirUnit != nil && e.Unit.AirUnit.Ammo > 0 {
		return true
	}
	return false
}
