package world

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
)

// encodeIgnoringNotifications serializes s with every player notification
// blanked, so "state unchanged apart from the optional notification" can
// be asserted byte-for-byte.
func encodeIgnoringNotifications(t *testing.T, s *State) []byte {
	t.Helper()
	sn := s.Snapshot()
	for _, p := range sn.Players {
		p.Notification = ""
	}
	cp := sn.State()
	data, err := EncodeState(cp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

// Invalid actions are idempotent: the reducer returns the input state
// unchanged apart from a notification.
func TestInvalidActionsLeaveStateUnchanged(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	build := func() *State {
		s := testState(3000, 3000)
		s.AddEntity(&Entity{Kind: KindBuilding, Key: "conyard", Owner: 1, Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 1000, MaxHP: 1000, Building: &BuildingData{}})
		s.AddEntity(&Entity{Kind: KindBuilding, Key: "barracks", Owner: 2, Pos: mgl64.Vec2{2600, 2600}, Radius: 45, HP: 500, MaxHP: 500, Building: &BuildingData{}})
		s.Players[1].Credits = 500
		return s
	}

	cases := []struct {
		name   string
		action Action
	}{
		{"unknown key", Action{Type: ActionStartBuild, PlayerID: 1, Key: "no_such_unit"}},
		{"unmet prereqs", Action{Type: ActionStartBuild, PlayerID: 1, Key: "war_factory"}},
		{"place with nothing ready", Action{Type: ActionPlaceBuilding, PlayerID: 1, Pos: mgl64.Vec2{400, 400}}},
		{"sell enemy building", Action{Type: ActionSellBuilding, PlayerID: 1, EntityIDs: []EntityID{2}}},
		{"repair enemy building", Action{Type: ActionStartRepair, PlayerID: 1, EntityIDs: []EntityID{2}}},
		{"deploy non-mcv", Action{Type: ActionDeployMCV, PlayerID: 1, EntityIDs: []EntityID{1}}},
		{"attack missing target", Action{Type: ActionCommandAttack, PlayerID: 1, EntityIDs: []EntityID{1}, TargetID: 999}},
		{"unknown action type", Action{Type: "NO_SUCH_ACTION", PlayerID: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := build()
			before := encodeIgnoringNotifications(t, s)
			ns := Apply(s, catalog, k, tc.action)
			after := encodeIgnoringNotifications(t, ns)
			if !bytes.Equal(before, after) {
				t.Fatal("invalid action mutated the state beyond the notification")
			}
		})
	}
}

// Placement must land within BuildRadius of an existing friendly building
// (the player's very first building is exempt).
func TestPlaceBuildingEnforcesBuildRadius(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	s := testState(3000, 3000)
	s.AddEntity(&Entity{Kind: KindBuilding, Key: "conyard", Owner: 1, Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 1000, MaxHP: 1000, Building: &BuildingData{}})
	s.Players[1].ReadyToPlace = &ReadyBuilding{Key: "power_plant"}

	far := Apply(s, catalog, k, Action{Type: ActionPlaceBuilding, PlayerID: 1, Pos: mgl64.Vec2{2500, 2500}})
	if far.Players[1].ReadyToPlace == nil {
		t.Fatal("placement outside BuildRadius must be rejected")
	}

	near := Apply(s, catalog, k, Action{Type: ActionPlaceBuilding, PlayerID: 1, Pos: mgl64.Vec2{300 + BuildRadius - 10, 300}})
	if near.Players[1].ReadyToPlace != nil {
		t.Fatal("placement inside BuildRadius must succeed")
	}
	placed := false
	for _, e := range near.Entities {
		if e.Kind == KindBuilding && e.Key == "power_plant" {
			placed = true
		}
	}
	if !placed {
		t.Fatal("accepted placement must add the building entity")
	}
}

// A new refinery auto-spawns a harvester.
func TestPlacedRefinerySpawnsHarvester(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	s := testState(3000, 3000)
	s.AddEntity(&Entity{Kind: KindBuilding, Key: "conyard", Owner: 1, Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 1000, MaxHP: 1000, Building: &BuildingData{}})
	s.Players[1].ReadyToPlace = &ReadyBuilding{Key: "refinery"}

	ns := Apply(s, catalog, k, Action{Type: ActionPlaceBuilding, PlayerID: 1, Pos: mgl64.Vec2{500, 300}})

	found := false
	for _, e := range ns.Entities {
		if e.Kind == KindUnit && e.Key == "harvester" && e.Owner == 1 {
			found = true
			if e.Unit.Harvester == nil {
				t.Fatal("auto-spawned harvester must carry harvester state")
			}
			if e.Unit.Harvester.ManualMode {
				t.Fatal("auto-spawned harvester starts in auto-harvest mode")
			}
		}
	}
	if !found {
		t.Fatal("placing a refinery must auto-spawn a harvester")
	}
}

// START_BUILD refuses to exceed a key's MaxCount, counting live entities
// plus everything already queued.
func TestStartBuildEnforcesMaxCount(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	s := testState(3000, 3000)
	s.AddEntity(&Entity{Kind: KindBuilding, Key: "barracks", Owner: 1, Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 500, MaxHP: 500, Building: &BuildingData{}})

	entry, _ := catalog.Lookup("engineer")
	if entry.MaxCount <= 0 {
		t.Fatal("test requires engineer to carry a MaxCount cap")
	}
	ns := s
	for i := 0; i < entry.MaxCount; i++ {
		ns = Apply(ns, catalog, k, Action{Type: ActionStartBuild, PlayerID: 1, Key: "engineer"})
		if ns.Players[1].Notification != "" {
			t.Fatalf("queueing engineer %d/%d rejected: %q", i+1, entry.MaxCount, ns.Players[1].Notification)
		}
	}
	ns = Apply(ns, catalog, k, Action{Type: ActionStartBuild, PlayerID: 1, Key: "engineer"})
	if ns.Players[1].Notification == "" {
		t.Fatalf("queueing engineer %d must be rejected by the cap", entry.MaxCount+1)
	}
}

// COMMAND_MOVE latches manual mode on harvesters, clears combat targets,
// and ignores entities the player does not own.
func TestCommandMoveLatchesManualModeAndOwnership(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	s := testState(3000, 3000)
	mine := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "harvester", Owner: 1,
		Pos: mgl64.Vec2{500, 500}, Radius: 12, HP: 200, MaxHP: 200,
		Unit: &UnitData{Combat: CombatState{TargetID: 99}, Harvester: &HarvesterData{}},
	})
	theirs := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "light_tank", Owner: 2,
		Pos: mgl64.Vec2{600, 600}, Radius: 12, HP: 300, MaxHP: 300,
		Unit: &UnitData{},
	})

	dest := mgl64.Vec2{900, 900}
	ns := Apply(s, catalog, k, Action{Type: ActionCommandMove, PlayerID: 1, EntityIDs: []EntityID{mine, theirs}, Pos: dest})

	moved := ns.Entities[mine]
	if moved.Unit.Movement.MoveTarget == nil || *moved.Unit.Movement.MoveTarget != dest {
		t.Fatalf("move target = %v, want %v", moved.Unit.Movement.MoveTarget, dest)
	}
	if !moved.Unit.Harvester.ManualMode {
		t.Fatal("a directly ordered harvester must latch manual mode")
	}
	if moved.Unit.Combat.TargetID != 0 {
		t.Fatal("a move order must clear the combat target")
	}
	if ns.Entities[theirs].Unit.Movement.MoveTarget != nil {
		t.Fatal("a move order must not touch enemy units")
	}
}

// DEPLOY_MCV replaces the MCV with a construction yard when the footprint
// is clear.
func TestDeployMCVSucceedsOnClearGround(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	s := testState(3000, 3000)
	mcvID := s.AddEntity(&Entity{
		Kind: KindUnit, Key: "mcv", Owner: 1,
		Pos: mgl64.Vec2{700, 700}, Radius: 15, HP: 600, MaxHP: 600,
		Unit: &UnitData{},
	})

	ns := Apply(s, catalog, k, Action{Type: ActionDeployMCV, PlayerID: 1, EntityIDs: []EntityID{mcvID}})

	if !ns.Entities[mcvID].Dead {
		t.Fatal("the deployed MCV must be consumed")
	}
	found := false
	for _, e := range ns.Entities {
		if e.Kind == KindBuilding && e.Key == "conyard" && e.Owner == 1 {
			found = true
			if e.Pos != (mgl64.Vec2{700, 700}) {
				t.Fatalf("conyard at %v, want the MCV's position", e.Pos)
			}
		}
	}
	if !found {
		t.Fatal("deploying an MCV must create a construction yard")
	}
}

// Defense structures neither anchor the buildable area nor suppress the
// first-building exemption: a forward turret is not a base.
func TestPlacementIgnoresDefenseBuildings(t *testing.T) {
	catalog := rules.DefaultCatalog()
	k := KernelConfig{Catalog: catalog}.New()

	s := testState(3000, 3000)
	s.AddEntity(&Entity{Kind: KindBuilding, Key: "conyard", Owner: 1, Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 1000, MaxHP: 1000, Building: &BuildingData{}})
	s.AddEntity(&Entity{Kind: KindBuilding, Key: "gun_turret", Owner: 1, Pos: mgl64.Vec2{2000, 2000}, Radius: 45, HP: 300, MaxHP: 300, Building: &BuildingData{Combat: &CombatState{}}})
	s.Players[1].ReadyToPlace = &ReadyBuilding{Key: "power_plant"}

	nearTurret := Apply(s, catalog, k, Action{Type: ActionPlaceBuilding, PlayerID: 1, Pos: mgl64.Vec2{2150, 2000}})
	if nearTurret.Players[1].ReadyToPlace == nil {
		t.Fatal("placement anchored only by a forward turret must be rejected")
	}

	// A player whose sole building is a turret still gets the
	// first-building exemption: the turret does not count as a base.
	lone := testState(3000, 3000)
	lone.AddEntity(&Entity{Kind: KindBuilding, Key: "gun_turret", Owner: 1, Pos: mgl64.Vec2{300, 300}, Radius: 45, HP: 300, MaxHP: 300, Building: &BuildingData{Combat: &CombatState{}}})
	lone.Players[1].ReadyToPlace = &ReadyBuilding{Key: "power_plant"}

	anywhere := Apply(lone, catalog, k, Action{Type: ActionPlaceBuilding, PlayerID: 1, Pos: mgl64.Vec2{1500, 1500}})
	if anywhere.Players[1].ReadyToPlace != nil {
		t.Fatalf("first non-defense building must place anywhere, got %q", anywhere.Players[1].Notification)
	}
}
