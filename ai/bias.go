package ai

import (
	"sort"

	"github.com/egeozcan/rtsim/randfold"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// productionBiasActions is stage 5 of the pipeline: when a combat
// queue (infantry or vehicle) sits idle, fill it from a deterministic
// weighted roll over the keys that player's buildings can currently
// produce, seeded by tick+cursor so repeated idle ticks don't all draw the
// same key. Specialists (engineer/hijacker, stage 6) and, for personalities
// that disable them, demo trucks, are excluded from the roll.
func productionBiasActions(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, pers Personality) []world.Action {
	var acts []world.Action
	for _, cat := range []rules.Category{rules.CategoryInfantry, rules.CategoryVehicle} {
		if a, ok := rollQueueFill(s, catalog, ps, owner, pers, cat); ok {
			acts = append(acts, a)
		}
	}
	return acts
}

func rollQueueFill(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, pers Personality, cat rules.Category) (world.Action, bool) {
	player := s.Players[owner]
	if player == nil {
		return world.Action{}, false
	}
	q := player.Queues[cat]
	if q == nil || q.Current != nil || len(q.Queued) > 0 {
		return world.Action{}, false
	}
	if !hasProducerFor(s, catalog, owner, cat) {
		return world.Action{}, false
	}

	keys, weights := biasCandidates(catalog, cat, pers)
	if len(keys) == 0 {
		return world.Action{}, false
	}

	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return world.Action{}, false
	}
	roll := randfold.IntN(s.Tick+ps.ProductionBiasCursor, uint64(owner), randfold.SaltProductionBias, total)
	ps.ProductionBiasCursor++

	chosen := keys[len(keys)-1]
	acc := 0
	for i, w := range weights {
		acc += w
		if roll < acc {
			chosen = keys[i]
			break
		}
	}
	return world.Action{Type: world.ActionStartBuild, PlayerID: owner, Key: chosen, Category: cat}, true
}

// biasCandidates enumerates the category's non-specialist, non-MCV keys in
// a stable order (sorted) paired with an inverse-cost weight, so cheaper
// units are drawn more often, tempered for personalities with higher
// SpecialistAggressiveness, which lean slightly toward pricier units
// instead since they're already investing in specialists elsewhere.
func biasCandidates(catalog rules.Catalog, cat rules.Category, pers Personality) ([]rules.Key, []int) {
	type cand struct {
		key    rules.Key
		weight int
	}
	var cands []cand
	for _, key := range catalogKeys(catalog) {
		entry, ok := catalog.Lookup(key)
		if !ok || entry.Category != cat {
			continue
		}
		if entry.HasTag("engineer") || entry.HasTag("hijacker") || entry.HasTag("mcv") {
			continue
		}
		if entry.HasTag("demo_truck") && pers.DisablesDemoTrucks {
			continue
		}
		cost := entry.Cost
		if cost <= 0 {
			cost = 1
		}
		weight := 10000 / cost
		if pers.SpecialistAggressiveness > 0.5 {
			weight = weight/2 + 1
		}
		if weight < 1 {
			weight = 1
		}
		cands = append(cands, cand{key, weight})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].key < cands[j].key })

	keys := make([]rules.Key, len(cands))
	weights := make([]int, len(cands))
	for i, c := range cands {
		keys[i] = c.key
		weights[i] = c.weight
	}
	return keys, weights
}

func hasProducerFor(s *world.State, catalog rules.Catalog, owner world.PlayerID, cat rules.Category) bool {
	tag := "produces_" + string(cat)
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag(tag) {
			return true
		}
	}
	return false
}

// catalogKeys returns a fixed list of the default catalog's unit keys. It
// does not query the catalog argument, so keys outside that list are never
// offered to the bias roll.
func catalogKeys(catalog rules.Catalog) []rules.Key {
	return []rules.Key{
		"rifle_infantry", "rocket_soldier", "engineer", "hijacker",
		"harvester", "light_tank", "heavy_tank", "mcv", "demo_truck", "harrier",
	}
}
