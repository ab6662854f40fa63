package world

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
)

// buildSkirmish assembles a two-player match with enough going on to
// exercise every tick phase at once: production queues burning credits,
// harvesters working a well, armies in weapons range, a defensive turret,
// an air base with a docked harrier, and a demo truck creeping toward the
// enemy line.
func buildSkirmish() *State {
	s := NewState(Config{MapWidth: 3000, MapHeight: 3000}, []PlayerID{1, 2})

	for _, setup := range []struct {
		owner PlayerID
		base  mgl64.Vec2
	}{
		{1, mgl64.Vec2{400, 400}},
		{2, mgl64.Vec2{2600, 2600}},
	} {
		player := s.Players[setup.owner]
		player.Credits = 8000
		player.MaxPower = 200
		player.UsedPower = 120

		addB := func(key rules.Key, dx, dy float64, hp int, extra func(*BuildingData)) EntityID {
			b := &Entity{
				Kind: KindBuilding, Key: key, Owner: setup.owner,
				Pos:    setup.base.Add(mgl64.Vec2{dx, dy}),
				Radius: 45, HP: hp, MaxHP: hp,
				Building: &BuildingData{},
			}
			if extra != nil {
				extra(b.Building)
			}
			return s.AddEntity(b)
		}
		addB("conyard", 0, 0, 1000, nil)
		addB("power_plant", 120, 0, 400, nil)
		addB("barracks", 0, 120, 500, nil)
		addB("war_factory", 120, 120, 600, nil)
		addB("refinery", -120, 0, 500, nil)
		addB("gun_turret", 0, -120, 300, func(b *BuildingData) { b.Combat = &CombatState{} })
		baseID := addB("air_base", -120, 120, 400, func(b *BuildingData) { b.AirBase = &AirBaseData{} })

		harrier := &Entity{
			Kind: KindUnit, Key: "harrier", Owner: setup.owner,
			Pos: setup.base.Add(mgl64.Vec2{-120, 120}), Radius: 12, HP: 120, MaxHP: 120,
			Unit: &UnitData{AirUnit: &AirUnitData{State: AirDocked, HomeBaseID: baseID, DockedSlot: 0, Ammo: 2, MaxAmmo: 4}},
		}
		hid := s.AddEntity(harrier)
		s.Entities[baseID].Building.AirBase.Slots[0].OccupantID = hid

		s.AddEntity(&Entity{
			Kind: KindUnit, Key: "harvester", Owner: setup.owner,
			Pos: setup.base.Add(mgl64.Vec2{-200, -100}), Radius: 12, HP: 200, MaxHP: 200,
			Unit: &UnitData{Harvester: &HarvesterData{}},
		})
		for i := 0; i < 3; i++ {
			s.AddEntity(&Entity{
				Kind: KindUnit, Key: "light_tank", Owner: setup.owner,
				Pos: setup.base.Add(mgl64.Vec2{300 + float64(i)*30, 300}), Radius: 12, HP: 300, MaxHP: 300,
				Unit: &UnitData{Movement: MovementState{MoveTarget: vec2Ptr(mgl64.Vec2{1500, 1500})}},
			})
		}
		player.Queues[rules.CategoryInfantry].Current = &ProductionItem{Key: "rifle_infantry"}
		player.Queues[rules.CategoryVehicle].Current = &ProductionItem{Key: "light_tank"}
		player.Queues[rules.CategoryVehicle].Queued = []rules.Key{"heavy_tank"}
	}

	s.AddEntity(&Entity{
		Kind: KindUnit, Key: "demo_truck", Owner: 1,
		Pos: mgl64.Vec2{1400, 1400}, Radius: 15, HP: 100, MaxHP: 100,
		Unit: &UnitData{Movement: MovementState{MoveTarget: vec2Ptr(mgl64.Vec2{2600, 2600})}, DemoTruck: &DemoTruckData{}},
	})

	s.AddEntity(&Entity{Kind: KindWell, Key: "well", Pos: mgl64.Vec2{1500, 800}, Radius: 20, HP: 1, MaxHP: 1, Well: &WellData{}})
	for i := 0; i < 4; i++ {
		s.AddEntity(&Entity{
			Kind: KindResource, Key: "ore",
			Pos:      mgl64.Vec2{1450 + float64(i)*40, 850},
			Radius:   18, HP: 200, MaxHP: 300,
			Resource: &ResourceData{},
		})
	}
	s.AddEntity(&Entity{Kind: KindRock, Pos: mgl64.Vec2{1500, 1500}, Radius: 40, Rock: &RockData{}})
	return s
}

// Identical initial state plus identical tick counts must produce
// bitwise-identical states, including float summation order, id
// assignment and every derived field. The encoded JSON (sorted map keys)
// is the byte-level witness.
func TestTickIsBitwiseDeterministic(t *testing.T) {
	const ticks = 90
	run := func() []byte {
		k := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
		s := buildSkirmish()
		for i := 0; i < ticks; i++ {
			s = k.Tick(s)
		}
		data, err := EncodeState(s)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return data
	}
	a, b := run(), run()
	if !bytes.Equal(a, b) {
		t.Fatalf("two identical %d-tick runs diverged (%d vs %d bytes)", ticks, len(a), len(b))
	}
}

// Every tick must uphold the kernel's standing invariants: HP clamped to
// [0, maxHp], unit positions inside [radius, extent − radius], production
// progress in [0, 100], and air-base slots consistent with the harriers
// that claim them.
func TestTickUpholdsStateInvariants(t *testing.T) {
	k := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
	s := buildSkirmish()

	for i := 0; i < 120; i++ {
		s = k.Tick(s)

		for _, e := range s.Entities {
			if e.HP < 0 || e.HP > e.MaxHP {
				t.Fatalf("tick %d: entity %d hp %d outside [0, %d]", i, e.ID, e.HP, e.MaxHP)
			}
			if e.Kind == KindUnit && !e.Flying() {
				if e.Pos[0] < e.Radius-1e-9 || e.Pos[0] > s.Config.MapWidth-e.Radius+1e-9 ||
					e.Pos[1] < e.Radius-1e-9 || e.Pos[1] > s.Config.MapHeight-e.Radius+1e-9 {
					t.Fatalf("tick %d: unit %d at %v escaped the map bounds", i, e.ID, e.Pos)
				}
			}
		}

		for _, player := range s.Players {
			for cat, q := range player.Queues {
				if q.Current == nil {
					continue
				}
				if q.Current.Progress < 0 || q.Current.Progress > 100 {
					t.Fatalf("tick %d: %s progress %v outside [0, 100]", i, cat, q.Current.Progress)
				}
				if q.Current.Invested < 0 {
					t.Fatalf("tick %d: %s invested %d negative", i, cat, q.Current.Invested)
				}
			}
		}

		for _, e := range s.Entities {
			if e.Kind != KindBuilding || e.Building.AirBase == nil {
				continue
			}
			for slot, sl := range e.Building.AirBase.Slots {
				if sl.OccupantID == 0 {
					continue
				}
				h := s.Entities[sl.OccupantID]
				if h == nil || h.Unit == nil || h.Unit.AirUnit == nil {
					t.Fatalf("tick %d: air base %d slot %d holds non-harrier %d", i, e.ID, slot, sl.OccupantID)
				}
				if h.Unit.AirUnit.HomeBaseID != e.ID {
					t.Fatalf("tick %d: harrier %d docked at base %d but claims home %d", i, sl.OccupantID, e.ID, h.Unit.AirUnit.HomeBaseID)
				}
			}
		}
	}
}

// A decoded snapshot must be a full substitute for the original state: one
// further tick from each produces bitwise-identical results.
func TestSnapshotRoundTripPreservesNextTick(t *testing.T) {
	k := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
	s := buildSkirmish()
	for i := 0; i < 25; i++ {
		s = k.Tick(s)
	}

	data, err := EncodeState(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored, err := DecodeState(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	k2 := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
	next1, err := EncodeState(k.Tick(s))
	if err != nil {
		t.Fatalf("encode next: %v", err)
	}
	next2, err := EncodeState(k2.Tick(restored))
	if err != nil {
		t.Fatalf("encode restored next: %v", err)
	}
	if !bytes.Equal(next1, next2) {
		t.Fatal("a restored snapshot diverged from the original on the very next tick")
	}
}
