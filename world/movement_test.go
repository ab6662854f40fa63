package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/pathfind"
	"github.com/egeozcan/rtsim/rules"
)

// A harvester parked on an ore pile chews through it at the gather rate,
// then hauls the cargo home and converts it into credits at the refinery.
func TestHarvesterGathersAndCashesOut(t *testing.T) {
	catalog := rules.DefaultCatalog()
	s := testState(3000, 3000)

	s.AddEntity(&Entity{
		Kind: KindBuilding, Key: "refinery", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 45, HP: 500, MaxHP: 500,
		Building: &BuildingData{},
	})
	oreID := s.AddEntity(&Entity{
		Kind: KindResource, Key: "ore",
		Pos: mgl64.Vec2{700, 500}, Radius: 18, HP: 300, MaxHP: 300,
		Resource: &ResourceData{},
	})
	hid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harvester", Owner: 1,
		Pos: mgl64.Vec2{710, 500}, Radius: 12, HP: 200, MaxHP: 200,
		Unit: &UnitData{Harvester: &HarvesterData{}},
	})
	s.Players[1].Credits = 0

	tickHarvesterFor(s, hid, rebuiltGrid(s), catalog)
	h := s.Entities[hid].Unit.Harvester
	if h.Cargo != harvesterGatherRate {
		t.Fatalf("cargo after one gather tick = %d, want %d", h.Cargo, harvesterGatherRate)
	}
	if got := s.Entities[oreID].HP; got != 300-harvesterGatherRate {
		t.Fatalf("ore hp = %d, want %d taken out", got, 300-harvesterGatherRate)
	}

	// Teleport home with a full hold: the drop-off converts all cargo.
	full := s.mutableEntity(hid)
	full.Unit.Harvester.Cargo = MaxHarvesterCargo
	full.Pos = mgl64.Vec2{560, 500}
	tickHarvesterFor(s, hid, rebuiltGrid(s), catalog)

	if got := s.Players[1].Credits; got != MaxHarvesterCargo*harvesterCreditsPerOre {
		t.Fatalf("credits after drop-off = %d, want %d", got, MaxHarvesterCargo*harvesterCreditsPerOre)
	}
	if got := s.Entities[hid].Unit.Harvester.Cargo; got != 0 {
		t.Fatalf("cargo after drop-off = %d, want 0", got)
	}
}

// ManualMode suspends the autopilot entirely (no retargeting, no
// gathering) until the player or the AI's re-tasking stage releases it.
func TestHarvesterManualModeSuspendsAutopilot(t *testing.T) {
	catalog := rules.DefaultCatalog()
	s := testState(3000, 3000)

	oreID := s.AddEntity(&Entity{
		Kind: KindResource, Key: "ore",
		Pos: mgl64.Vec2{700, 500}, Radius: 18, HP: 300, MaxHP: 300,
		Resource: &ResourceData{},
	})
	hid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harvester", Owner: 1,
		Pos: mgl64.Vec2{710, 500}, Radius: 12, HP: 200, MaxHP: 200,
		Unit: &UnitData{Harvester: &HarvesterData{ManualMode: true}},
	})

	tickHarvesterFor(s, hid, rebuiltGrid(s), catalog)
	if got := s.Entities[oreID].HP; got != 300 {
		t.Fatalf("a manual harvester gathered anyway: ore hp %d", got)
	}
	if s.Entities[hid].Unit.Movement.MoveTarget != nil {
		t.Fatal("a manual harvester must not be retargeted by the autopilot")
	}
}

// A demo truck's proximity fuse fires the moment an enemy is in contact
// range, killing the truck and queueing exactly one explosion.
func TestDemoTruckFusesOnEnemyContact(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()
	s := testState(3000, 3000)

	tid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "demo_truck", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 15, HP: 100, MaxHP: 100,
		Unit: &UnitData{DemoTruck: &DemoTruckData{}},
	})
	s.AddEntity(&Entity{
		Kind: KindUnit, Key: "rifle_infantry", Owner: 2,
		Pos: mgl64.Vec2{530, 500}, Radius: 12, HP: 50, MaxHP: 50,
		Unit: &UnitData{},
	})

	tickDemoTruckFor(s, tid, rebuiltGrid(s), catalog, k)

	truck := s.Entities[tid]
	if !truck.Dead || !truck.Unit.DemoTruck.HasDetonated {
		t.Fatalf("truck = dead=%v detonated=%v, want both after contact", truck.Dead, truck.Unit.DemoTruck.HasDetonated)
	}
	if len(k.explosionQueue) != 1 {
		t.Fatalf("queued explosions = %d, want 1", len(k.explosionQueue))
	}
}

// A harrier that runs dry turns for home and docks when it arrives.
func TestAirUnitReturnsAndDocksWhenDry(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()
	s := testState(3000, 3000)

	baseID := s.AddEntity(&Entity{
		Kind: KindBuilding, Key: "air_base", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 45, HP: 400, MaxHP: 400,
		Building: &BuildingData{AirBase: &AirBaseData{}},
	})
	hid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harrier", Owner: 1,
		Pos: mgl64.Vec2{1500, 1500}, Radius: 12, HP: 120, MaxHP: 120,
		Unit: &UnitData{AirUnit: &AirUnitData{State: AirFlying, HomeBaseID: baseID, DockedSlot: -1, Ammo: 0, MaxAmmo: 4}},
	})

	tickAirUnitStateFor(s, hid, catalog, k)
	if got := s.Entities[hid].Unit.AirUnit.State; got != AirReturning {
		t.Fatalf("state with dry ammo = %v, want returning", got)
	}

	home := s.mutableEntity(hid)
	home.Pos = mgl64.Vec2{510, 510}
	tickAirUnitStateFor(s, hid, catalog, k)
	if got := s.Entities[hid].Unit.AirUnit.State; got != AirDocked {
		t.Fatalf("state on arriving home = %v, want docked", got)
	}
	if s.Entities[hid].Unit.Movement.MoveTarget != nil {
		t.Fatal("docking must clear the move target")
	}
}

// A unit with an enemy in weapons range fires a projectile, enters
// cooldown, and tracks the target with its turret.
func TestUnitFiresAtEnemyInRange(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()
	s := testState(3000, 3000)

	uid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 12, HP: 300, MaxHP: 300,
		Unit: &UnitData{},
	})
	s.AddEntity(&Entity{
		Kind: KindUnit, Key: "rifle_infantry", Owner: 2,
		Pos: mgl64.Vec2{600, 500}, Radius: 12, HP: 50, MaxHP: 50,
		Unit: &UnitData{},
	})

	tickCombatFor(s, uid, rebuiltGrid(s), catalog, k)

	if len(s.Projectiles) != 1 {
		t.Fatalf("projectiles = %d, want 1 shot fired", len(s.Projectiles))
	}
	entry, _ := catalog.Lookup("light_tank")
	shooter := s.Entities[uid]
	if shooter.Unit.Combat.Cooldown != entry.Rate {
		t.Fatalf("cooldown = %d, want reset to rate %d", shooter.Unit.Combat.Cooldown, entry.Rate)
	}
	if shooter.Unit.Combat.TurretAngle != 0 {
		t.Fatalf("turret angle = %v, want 0 toward a due-east target", shooter.Unit.Combat.TurretAngle)
	}

	// Cooldown gates the next shot.
	tickCombatFor(s, uid, rebuiltGrid(s), catalog, k)
	if len(s.Projectiles) != 1 {
		t.Fatal("a unit on cooldown must not fire again")
	}
}

// Eliminating every player at once is a draw: winner decided with no
// player id, simulation stopped, all units dead.
func TestVictoryDrawWhenEveryoneFalls(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()
	s := testState(3000, 3000)

	// Both players own a lone unit and no buildings/MCVs.
	u1 := s.AddEntity(&Entity{Kind: KindUnit, Key: "rifle_infantry", Owner: 1, Pos: mgl64.Vec2{500, 500}, Radius: 12, HP: 50, MaxHP: 50, Unit: &UnitData{}})
	u2 := s.AddEntity(&Entity{Kind: KindUnit, Key: "rifle_infantry", Owner: 2, Pos: mgl64.Vec2{600, 500}, Radius: 12, HP: 50, MaxHP: 50, Unit: &UnitData{}})

	checkVictory(s, catalog, k)

	if !s.Winner.Decided || !s.Winner.Draw {
		t.Fatalf("winner = %+v, want a decided draw", s.Winner)
	}
	if s.Running {
		t.Fatal("a decided match must stop running")
	}
	if !s.Entities[u1].Dead || !s.Entities[u2].Dead {
		t.Fatal("eliminated players' units must all be killed")
	}
}

// The batched repath pass resolves every due unit's path in one go,
// leaving near-target units and units inside the repath interval alone.
func TestPrecomputePathsBatchesDueRepaths(t *testing.T) {
	s := testState(3000, 3000)
	s.Tick = 20
	pg := pathfind.NewGrid(3000, 3000)
	pg.Rebuild(nil)

	due := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 1,
		Pos: mgl64.Vec2{100, 100}, Radius: 12, HP: 300, MaxHP: 300,
		Unit: &UnitData{Movement: MovementState{MoveTarget: vec2Ptr(mgl64.Vec2{2000, 2000})}},
	})
	near := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 12, HP: 300, MaxHP: 300,
		Unit: &UnitData{Movement: MovementState{MoveTarget: vec2Ptr(mgl64.Vec2{550, 500})}},
	})
	recent := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 1,
		Pos: mgl64.Vec2{900, 900}, Radius: 12, HP: 300, MaxHP: 300,
		Unit: &UnitData{Movement: MovementState{MoveTarget: vec2Ptr(mgl64.Vec2{2500, 900}), LastRepathTick: 15}},
	})

	precomputePaths(s, pg, []EntityID{due, near, recent})

	if m := s.Entities[due].Unit.Movement; len(m.Path) == 0 || m.LastRepathTick != 20 {
		t.Fatalf("due unit movement = %+v, want a batch-installed path stamped at tick 20", m)
	}
	if m := s.Entities[near].Unit.Movement; m.Path != nil {
		t.Fatal("a unit inside the direct-steer radius must not be pathed")
	}
	if m := s.Entities[recent].Unit.Movement; m.Path != nil || m.LastRepathTick != 15 {
		t.Fatalf("a unit inside the repath interval must be left alone, got %+v", m)
	}
}

// A hit harvester abandons the ore field and runs for its refinery until
// the flee cooldown lapses, then resumes harvesting.
func TestHarvesterFleesAfterTakingFire(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()
	s := testState(3000, 3000)
	s.Tick = 10

	refinery := &Entity{
		Kind: KindBuilding, Key: "refinery", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 45, HP: 500, MaxHP: 500,
		Building: &BuildingData{},
	}
	s.AddEntity(refinery)
	ore := &Entity{
		Kind: KindResource, Key: "ore",
		Pos: mgl64.Vec2{1500, 1500}, Radius: 18, HP: 300, MaxHP: 300,
		Resource: &ResourceData{},
	}
	s.AddEntity(ore)
	hid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harvester", Owner: 1,
		Pos: mgl64.Vec2{1400, 1400}, Radius: 12, HP: 200, MaxHP: 200,
		Unit: &UnitData{Harvester: &HarvesterData{}},
	})

	k.queueDamage(damageEvent{TargetID: hid, AttackerOwner: 2, Amount: 30, WeaponType: rules.WeaponBullet})
	applyPendingDamage(s, catalog, k)

	h := s.Entities[hid]
	if got := h.Unit.Harvester.FleeCooldownUntilTick; got != s.Tick+harvesterFleeTicks {
		t.Fatalf("flee cooldown = %d, want %d", got, s.Tick+harvesterFleeTicks)
	}

	tickHarvesterFor(s, hid, rebuiltGrid(s), catalog)
	if m := s.Entities[hid].Unit.Movement; m.MoveTarget == nil || *m.MoveTarget != refinery.Pos {
		t.Fatalf("fleeing harvester move target = %v, want the refinery at %v", m.MoveTarget, refinery.Pos)
	}

	s.Tick = s.Tick + harvesterFleeTicks + 1
	tickHarvesterFor(s, hid, rebuiltGrid(s), catalog)
	if m := s.Entities[hid].Unit.Movement; m.MoveTarget == nil || *m.MoveTarget != ore.Pos {
		t.Fatalf("recovered harvester move target = %v, want back on the ore at %v", m.MoveTarget, ore.Pos)
	}
}
