package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/spatial"
)

func rebuiltGrid(s *State) *spatial.Grid {
	g := spatial.NewGrid()
	insertAllEntities(g, s)
	return g
}

// Sell refund scales with remaining HP: half of cost times the sell
// percentage for a half-dead building.
func TestSellRefundScalesWithRemainingHP(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()
	s := testState(3000, 3000)

	b := &Entity{
		Kind: KindBuilding, Key: "barracks", Owner: 1,
		Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 250, MaxHP: 500,
		Building: &BuildingData{},
	}
	id := s.AddEntity(b)
	s.Players[1].Credits = 0

	ns := Apply(s, catalog, k, Action{Type: ActionSellBuilding, PlayerID: 1, EntityIDs: []EntityID{id}})

	entry, _ := catalog.Lookup("barracks")
	want := int(float64(entry.Cost) * sellReturnPercent * 0.5)
	if ns.Players[1].Credits != want {
		t.Fatalf("refund = %d, want %d", ns.Players[1].Credits, want)
	}
	if !ns.Entities[id].Dead {
		t.Fatal("sold building must be marked dead")
	}
}

// Repair settles whole credits as the fractional per-tick cost accrues,
// heals at maxHp/600 per tick, and halts the moment the owner cannot cover
// the next whole credit.
func TestRepairPaysWholeCreditsAndHaltsWhenBroke(t *testing.T) {
	catalog := rules.DefaultCatalog()
	s := testState(3000, 3000)

	b := &Entity{
		Kind: KindBuilding, Key: "refinery", Owner: 1,
		Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 100, MaxHP: 500,
		Building: &BuildingData{IsRepairing: true},
	}
	id := s.AddEntity(b)
	s.Players[1].Credits = 2
	s.Players[1].MaxPower = 100

	paid := 0
	for i := 0; i < 20; i++ {
		before := s.Players[1].Credits
		tickRepair(s, catalog)
		paid += before - s.Players[1].Credits
		if !s.Entities[id].Building.IsRepairing {
			break
		}
	}
	if s.Entities[id].Building.IsRepairing {
		t.Fatal("repair must halt once the treasury cannot cover the next credit")
	}
	if paid != 2 {
		t.Fatalf("paid %d credits before halting, want the full 2", paid)
	}
	if s.Entities[id].HP <= 100 {
		t.Fatal("repair must have healed some HP while it could pay")
	}
}

// The service depot aura heals friendly damaged ground vehicles in range
// but shuts off entirely when the owner is power-starved; used == max
// power still counts as powered.
func TestServiceDepotAuraRespectsPower(t *testing.T) {
	s := testState(3000, 3000)

	depot := &Entity{
		Kind: KindBuilding, Key: "service_depot", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 45, HP: 400, MaxHP: 400,
		Building: &BuildingData{},
	}
	depotID := s.AddEntity(depot)
	tank := &Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 1,
		Pos: mgl64.Vec2{560, 500}, Radius: 12, HP: 100, MaxHP: 300,
		Unit: &UnitData{},
	}
	tankID := s.AddEntity(tank)

	s.Players[1].MaxPower, s.Players[1].UsedPower = 100, 100 // exactly equal: allowed
	tickServiceDepotAura(s, depotID, rebuiltGrid(s))
	if got := s.Entities[tankID].HP; got != 100+serviceDepotRepairRate {
		t.Fatalf("hp = %d, want %d healed at equal power", got, 100+serviceDepotRepairRate)
	}

	s.Players[1].MaxPower, s.Players[1].UsedPower = 100, 150 // starved: off
	before := s.Entities[tankID].HP
	tickServiceDepotAura(s, depotID, rebuiltGrid(s))
	if got := s.Entities[tankID].HP; got != before {
		t.Fatalf("hp = %d, want unchanged %d while power-starved", got, before)
	}
}

// A docked harrier's ammo refills after the base's reload countdown runs
// down, and docked harriers heal on the base's heal interval.
func TestAirBaseReloadsAndHealsDockedHarriers(t *testing.T) {
	s := testState(3000, 3000)

	base := &Entity{
		Kind: KindBuilding, Key: "air_base", Owner: 1,
		Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 400, MaxHP: 400,
		Building: &BuildingData{AirBase: &AirBaseData{}},
	}
	baseID := s.AddEntity(base)
	hid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harrier", Owner: 1,
		Pos: base.Pos, Radius: 12, HP: 60, MaxHP: 120,
		Unit: &UnitData{AirUnit: &AirUnitData{State: AirDocked, HomeBaseID: baseID, DockedSlot: 0, Ammo: 0, MaxAmmo: 4}},
	})
	s.Entities[baseID].Building.AirBase.Slots[0].OccupantID = hid

	for i := 0; i < airBaseReloadTicks; i++ {
		tickAirBaseReload(s, baseID)
	}
	if got := s.Entities[hid].Unit.AirUnit.Ammo; got != 4 {
		t.Fatalf("ammo = %d after a full reload cycle, want 4", got)
	}

	hpBefore := s.Entities[hid].HP
	healed := 0
	for tick := int64(1); tick <= airBaseHealInterval*3; tick++ {
		s.Tick = tick
		tickAirBaseHeal(s, baseID)
	}
	healed = s.Entities[hid].HP - hpBefore
	if healed != airBaseHealAmount*3 {
		t.Fatalf("healed %d over three intervals, want %d", healed, airBaseHealAmount*3)
	}
}

// The staggered launcher frees exactly one armed, targeted harrier per
// launch window, clearing its slot and recording the launch tick.
func TestAirBaseLaunchIsStaggered(t *testing.T) {
	k := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
	s := testState(3000, 3000)

	base := &Entity{
		Kind: KindBuilding, Key: "air_base", Owner: 1,
		Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 400, MaxHP: 400,
		Building: &BuildingData{AirBase: &AirBaseData{LastLaunchTick: -airBaseLaunchDelay}},
	}
	baseID := s.AddEntity(base)
	targetID := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 2,
		Pos: mgl64.Vec2{900, 900}, Radius: 12, HP: 300, MaxHP: 300,
		Unit: &UnitData{},
	})

	var harriers []EntityID
	for i := 0; i < 2; i++ {
		hid := s.AddEntity(&Entity{
			Kind: KindUnit, Key: "harrier", Owner: 1,
			Pos: base.Pos, Radius: 12, HP: 120, MaxHP: 120,
			Unit: &UnitData{
				Combat:  CombatState{TargetID: targetID},
				AirUnit: &AirUnitData{State: AirDocked, HomeBaseID: baseID, DockedSlot: i, Ammo: 4, MaxAmmo: 4},
			},
		})
		s.Entities[baseID].Building.AirBase.Slots[i].OccupantID = hid
		harriers = append(harriers, hid)
	}

	s.Tick = 1
	tickAirBaseLaunch(s, baseID, k)
	flying := 0
	for _, hid := range harriers {
		if s.Entities[hid].Unit.AirUnit.State == AirFlying {
			flying++
		}
	}
	if flying != 1 {
		t.Fatalf("%d harriers launched in one window, want exactly 1", flying)
	}
	if got := s.Entities[baseID].Building.AirBase.LastLaunchTick; got != 1 {
		t.Fatalf("LastLaunchTick = %d, want 1", got)
	}

	s.Tick = 2 // within the launch delay: nothing more may leave
	tickAirBaseLaunch(s, baseID, k)
	flying = 0
	for _, hid := range harriers {
		if s.Entities[hid].Unit.AirUnit.State == AirFlying {
			flying++
		}
	}
	if flying != 1 {
		t.Fatalf("second launch slipped out inside the %d-tick delay", airBaseLaunchDelay)
	}
}

// The reconciliation pass re-registers a harrier that believes it is
// docked but is missing from every slot.
func TestReconcileLostHarrierRegainsSlot(t *testing.T) {
	k := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
	s := testState(3000, 3000)

	base := &Entity{
		Kind: KindBuilding, Key: "air_base", Owner: 1,
		Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 400, MaxHP: 400,
		Building: &BuildingData{AirBase: &AirBaseData{}},
	}
	baseID := s.AddEntity(base)
	hid := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harrier", Owner: 1,
		Pos: base.Pos, Radius: 12, HP: 120, MaxHP: 120,
		Unit: &UnitData{AirUnit: &AirUnitData{State: AirDocked, HomeBaseID: baseID, DockedSlot: -1, Ammo: 4, MaxAmmo: 4}},
	})

	reconcileLostHarriers(s, baseID, k)

	found := false
	for _, slot := range s.Entities[baseID].Building.AirBase.Slots {
		if slot.OccupantID == hid {
			found = true
		}
	}
	if !found {
		t.Fatal("lost docked harrier must be re-registered into a free slot")
	}
}

// An engineer that reaches its capture target transfers the building to
// its owner and is consumed.
func TestEngineerCaptureTransfersOwnership(t *testing.T) {
	k := KernelConfig{Catalog: rules.DefaultCatalog()}.New()
	s := testState(3000, 3000)

	targetID := s.AddEntity(&Entity{
		Kind: KindBuilding, Key: "war_factory", Owner: 2,
		Pos: mgl64.Vec2{500, 500}, Radius: 45, HP: 600, MaxHP: 600,
		Building: &BuildingData{},
	})
	engID := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "engineer", Owner: 1,
		Pos: mgl64.Vec2{545, 500}, Radius: 12, HP: 25, MaxHP: 25,
		Unit: &UnitData{Engineer: &EngineerData{CaptureTargetID: targetID}},
	})

	tickEngineers(s, k)

	if got := s.Entities[targetID].Owner; got != 1 {
		t.Fatalf("captured building owner = %d, want 1", got)
	}
	if !s.Entities[engID].Dead {
		t.Fatal("the engineer is consumed by the capture")
	}
}
