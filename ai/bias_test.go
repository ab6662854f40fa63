package ai

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

func stateWithFactory(owner world.PlayerID) *world.State {
	s := scenarioState()
	s.AddEntity(&world.Entity{Kind: world.KindBuilding, Key: "war_factory", Owner: owner, Pos: mgl64.Vec2{500, 500}, Radius: 45, HP: 600, MaxHP: 600, Building: &world.BuildingData{}})
	s.AddEntity(&world.Entity{Kind: world.KindBuilding, Key: "barracks", Owner: owner, Pos: mgl64.Vec2{650, 500}, Radius: 45, HP: 500, MaxHP: 500, Building: &world.BuildingData{}})
	return s
}

// The weighted roll is a pure function of (tick, cursor, owner): the same
// inputs always pick the same key.
func TestProductionBiasRollIsDeterministic(t *testing.T) {
	catalog := rules.DefaultCatalog()
	pers := personalityFor(world.DifficultyMedium)

	pick := func() rules.Key {
		s := stateWithFactory(1)
		s.Tick = 90
		ps := newPlayerState(1)
		acts := productionBiasActions(s, catalog, ps, 1, pers)
		if len(acts) == 0 {
			t.Fatal("an idle infantry/vehicle queue must be refilled")
		}
		return acts[0].Key
	}
	if a, b := pick(), pick(); a != b {
		t.Fatalf("identical rolls picked %q and %q", a, b)
	}
}

// Specialists and MCVs never come out of the bias roll, and demo trucks
// are excluded for personalities that disable them.
func TestBiasCandidatesExcludeSpecialists(t *testing.T) {
	catalog := rules.DefaultCatalog()

	keys, _ := biasCandidates(catalog, rules.CategoryVehicle, personalityFor(world.DifficultyMedium))
	for _, k := range keys {
		if k == "mcv" {
			t.Fatal("mcv must not appear in the bias roll")
		}
	}
	hasDemo := false
	for _, k := range keys {
		if k == "demo_truck" {
			hasDemo = true
		}
	}
	if !hasDemo {
		t.Fatal("medium personality keeps demo trucks in the roll")
	}

	keys, _ = biasCandidates(catalog, rules.CategoryVehicle, personalityFor(world.DifficultyEasy))
	for _, k := range keys {
		if k == "demo_truck" {
			t.Fatal("easy personality must exclude demo trucks from the roll")
		}
	}

	keys, _ = biasCandidates(catalog, rules.CategoryInfantry, personalityFor(world.DifficultyMedium))
	for _, k := range keys {
		if k == "engineer" || k == "hijacker" {
			t.Fatalf("specialist %q must not appear in the bias roll", k)
		}
	}
}

// A busy queue is left alone; only idle queues are refilled.
func TestBiasOnlyFillsIdleQueues(t *testing.T) {
	catalog := rules.DefaultCatalog()
	pers := personalityFor(world.DifficultyMedium)
	s := stateWithFactory(1)
	ps := newPlayerState(1)

	s.Players[1].Queues[rules.CategoryInfantry].Current = &world.ProductionItem{Key: "rifle_infantry"}
	s.Players[1].Queues[rules.CategoryVehicle].Current = &world.ProductionItem{Key: "light_tank"}

	if acts := productionBiasActions(s, catalog, ps, 1, pers); len(acts) != 0 {
		t.Fatalf("busy queues must not be refilled, got %+v", acts)
	}
}

// The cursor advances on every roll so consecutive idle ticks don't all
// draw from the same seed.
func TestBiasCursorAdvances(t *testing.T) {
	catalog := rules.DefaultCatalog()
	pers := personalityFor(world.DifficultyMedium)
	s := stateWithFactory(1)
	ps := newPlayerState(1)

	before := ps.ProductionBiasCursor
	productionBiasActions(s, catalog, ps, 1, pers)
	if ps.ProductionBiasCursor == before {
		t.Fatal("the bias cursor must advance after a roll")
	}
}
