package ai

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// refreshIntelligence histograms every enemy's keys and derives the
// dominant armor class, then holds until the refresh interval elapses.
func TestIntelligenceRefreshAndCadence(t *testing.T) {
	catalog := rules.DefaultCatalog()
	s := scenarioState()
	ps := newPlayerState(1)

	for i := 0; i < 3; i++ {
		s.AddEntity(&world.Entity{Kind: world.KindUnit, Key: "light_tank", Owner: 2, Pos: mgl64.Vec2{2000, 2000 + float64(i)*30}, Radius: 12, HP: 300, MaxHP: 300, Unit: &world.UnitData{}})
	}
	s.AddEntity(&world.Entity{Kind: world.KindUnit, Key: "rifle_infantry", Owner: 2, Pos: mgl64.Vec2{2100, 2000}, Radius: 12, HP: 50, MaxHP: 50, Unit: &world.UnitData{}})

	s.Tick = intelRefreshInterval
	refreshIntelligence(s, catalog, ps, 1)

	intel := ps.EnemyIntelligence[2]
	if intel == nil {
		t.Fatal("expected intelligence on player 2")
	}
	if got := intel.KeyCounts["light_tank"]; got != 3 {
		t.Fatalf("light_tank count = %d, want 3", got)
	}
	if intel.DominantArmor != rules.ArmorHeavy {
		t.Fatalf("dominant armor = %q, want heavy (3 heavy vs 1 light)", intel.DominantArmor)
	}

	// Inside the interval the histogram is not rebuilt.
	s.AddEntity(&world.Entity{Kind: world.KindUnit, Key: "light_tank", Owner: 2, Pos: mgl64.Vec2{2200, 2000}, Radius: 12, HP: 300, MaxHP: 300, Unit: &world.UnitData{}})
	s.Tick = intelRefreshInterval + 10
	refreshIntelligence(s, catalog, ps, 1)
	if got := ps.EnemyIntelligence[2].KeyCounts["light_tank"]; got != 3 {
		t.Fatalf("count refreshed inside the interval: %d", got)
	}

	// Past the interval it is.
	s.Tick = intelRefreshInterval * 2
	refreshIntelligence(s, catalog, ps, 1)
	if got := ps.EnemyIntelligence[2].KeyCounts["light_tank"]; got != 4 {
		t.Fatalf("count after refresh = %d, want 4", got)
	}
}

// Armor-count ties resolve by the fixed armor-class order, not map
// iteration order.
func TestDominantArmorTieBreakIsStable(t *testing.T) {
	counts := map[rules.ArmorClass]int{rules.ArmorHeavy: 2, rules.ArmorLight: 2}
	for i := 0; i < 50; i++ {
		if got := dominantArmor(counts); got != rules.ArmorLight {
			t.Fatalf("tie resolved to %q, want light every time", got)
		}
	}
}
