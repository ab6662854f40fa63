package ai

import (
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// refreshIntelligence rebuilds ps.EnemyIntelligence for every enemy player
// once every intelRefreshInterval ticks: a histogram of observed
// unit/building keys per enemy plus the resulting dominant armor class.
// The world carries no fog of war, so the AI is not modeling imperfect
// information here, only batching the scan.
func refreshIntelligence(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID) {
	if ps.EnemyIntelligence == nil {
		ps.EnemyIntelligence = make(map[world.PlayerID]*EnemyIntel)
	}
	if s.Tick-lastIntelRefresh(ps) < intelRefreshInterval {
		return
	}

	fresh := make(map[world.PlayerID]*EnemyIntel, len(ps.EnemyIntelligence))
	for pid, p := range s.Players {
		if pid == owner || !p.Alive {
			continue
		}
		fresh[pid] = &EnemyIntel{
			KeyCounts:   make(map[rules.Key]int),
			ArmorCounts: make(map[rules.ArmorClass]int),
			LastRefresh: s.Tick,
		}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner == owner || e.Owner == 0 {
			continue
		}
		intel, ok := fresh[e.Owner]
		if !ok {
			continue
		}
		intel.KeyCounts[e.Key]++
		if entry, ok := catalog.Lookup(e.Key); ok {
			intel.ArmorCounts[entry.Armor]++
		}
	}
	for _, intel := range fresh {
		intel.DominantArmor = dominantArmor(intel.ArmorCounts)
	}
	ps.EnemyIntelligence = fresh
}

func lastIntelRefresh(ps *PlayerState) int64 {
	best := int64(-intelRefreshInterval)
	for _, intel := range ps.EnemyIntelligence {
		if intel.LastRefresh > best {
			best = intel.LastRefresh
		}
	}
	return best
}

// armorClassOrder fixes the tie-break for dominantArmor; map iteration
// order would otherwise make equal-count histograms flip between runs.
var armorClassOrder = []rules.ArmorClass{
	rules.ArmorNone, rules.ArmorLight, rules.ArmorHeavy, rules.ArmorStructure, rules.ArmorFlak,
}

func dominantArmor(counts map[rules.ArmorClass]int) rules.ArmorClass {
	var best rules.ArmorClass
	bestCount := -1
	for _, armor := range armorClassOrder {
		if count := counts[armor]; count > bestCount {
			best, bestCount = armor, count
		}
	}
	return best
}
