package ai

import (
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

const (
	// stalemateDetectionTicks is how long an AI must go without combat
	// before stalemateDesperation starts rising off zero.
	stalemateDetectionTicks = 600
	// stalemateRampTicks is how many further ticks of peace it takes to
	// ramp desperation from 0 to 100 once it starts rising.
	stalemateRampTicks = 1800
	// desperatePersistTicks is how long stalemateDesperation must have sat
	// at/above extremeDesperationThreshold before transition 3 (the
	// harvester-suicide all_in variant) fires.
	desperatePersistTicks = 300
	// combatRecencyWindow marks an AI tick as "had combat" if any owned
	// unit took or dealt damage within this many ticks of it.
	combatRecencyWindow = AITickInterval * 2
)

// updateTimers advances ps's peace/combat/desperation bookkeeping for one
// AI think tick.
func updateTimers(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID) {
	hadCombat := false
	for _, e := range armyUnits(s, catalog, owner) {
		if s.Tick-e.Unit.Combat.LastDamageTick <= combatRecencyWindow && e.Unit.Combat.LastDamageTick > 0 {
			hadCombat = true
			break
		}
	}
	if hadCombat {
		ps.LastCombatTick = s.Tick
		ps.PeaceTicks = 0
	} else {
		ps.PeaceTicks = s.Tick - ps.LastCombatTick
	}

	ps.StalemateDesperation = clamp(
		100*float64(ps.PeaceTicks-stalemateDetectionTicks)/float64(stalemateRampTicks), 0, 100)

	if ps.StalemateDesperation >= extremeDesperationThreshold {
		if ps.DesperateSinceTick == 0 {
			ps.DesperateSinceTick = s.Tick
		}
	} else {
		ps.DesperateSinceTick = 0
	}
}

// strategyInputs bundles the facts decideStrategy needs, computed once per
// think tick by the caller so every transition rule reads a consistent
// snapshot.
type strategyInputs struct {
	threatsNearBase []world.EntityID
	army            []*world.Entity
	enemyArmy       int
	enemyHasCombat  bool
	hasFactory      bool
	enemiesPresent  bool
	harassCapable   int
	credits         int
}

func gatherStrategyInputs(s *world.State, catalog rules.Catalog, owner world.PlayerID, pers Personality) strategyInputs {
	in := strategyInputs{
		threatsNearBase: detectThreats(s, catalog, owner, pers),
		army:            armyUnits(s, catalog, owner),
	}
	for pid, p := range s.Players {
		if pid == owner || !p.Alive {
			continue
		}
		in.enemiesPresent = true
		enemyArmy := armyUnits(s, catalog, pid)
		in.enemyArmy += len(enemyArmy)
		if len(enemyArmy) > 0 {
			in.enemyHasCombat = true
		}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != world.KindBuilding || e.Owner != owner {
			continue
		}
		if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag("produces_vehicle") {
			in.hasFactory = true
		}
	}
	for _, u := range in.army {
		entry, ok := catalog.Lookup(u.Key)
		if ok && entry.Speed >= 2.5 && entry.Weapon != rules.WeaponNone {
			in.harassCapable++
		}
	}
	if player := s.Players[owner]; player != nil {
		in.credits = player.Credits
	}
	return in
}

// overwhelmingAdvantage is the continuously-checked reassessment
// condition: at least 3 units and at least double the enemy's
// army, with the enemy fielding at least one combat unit.
func overwhelmingAdvantage(in strategyInputs) bool {
	return len(in.army) >= 3 && in.enemyHasCombat && float64(len(in.army)) >= 2*float64(in.enemyArmy)
}

// hasCriticalMass reports whether an attack/harass strategy still has
// enough committed force to keep going; losing it triggers an immediate
// abort regardless of the strategy cooldown.
func hasCriticalMass(strategy Strategy, in strategyInputs, pers Personality) bool {
	switch strategy {
	case StrategyAttack:
		return len(in.army) >= attackArmyThreshold/2
	case StrategyHarass:
		return in.harassCapable >= maxIntA(1, pers.HarassCapableMin/2)
	default:
		return true
	}
}

func maxIntA(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// decideStrategy runs the priority-ordered strategy state machine for one
// AI think tick. Dummy difficulty never leaves buildup.
func decideStrategy(s *world.State, catalog rules.Catalog, ps *PlayerState, owner world.PlayerID, pers Personality, difficulty world.Difficulty) Strategy {
	if difficulty == world.DifficultyDummy {
		ps.Strategy = StrategyBuildup
		return ps.Strategy
	}

	in := gatherStrategyInputs(s, catalog, owner, pers)
	cooldown := int64(float64(strategyCooldownBase) * pers.StrategyCooldownMult)
	sinceChange := s.Tick - ps.LastStrategyChange

	set := func(next Strategy) Strategy {
		if next != ps.Strategy {
			if ps.Strategy == StrategyAllIn {
				ps.AllInStartTick = 0
			}
			ps.Strategy = next
			ps.LastStrategyChange = s.Tick
			if next == StrategyAllIn {
				ps.AllInStartTick = s.Tick
			}
		}
		return ps.Strategy
	}

	// Abort condition: losing critical mass bypasses the cooldown.
	if (ps.Strategy == StrategyAttack || ps.Strategy == StrategyHarass) && !hasCriticalMass(ps.Strategy, in, pers) {
		return set(StrategyBuildup)
	}
	// Overwhelming-advantage reassessment is continuous, bypassing cooldown.
	if overwhelmingAdvantage(in) {
		return set(StrategyAttack)
	}

	if sinceChange < cooldown && ps.Strategy != StrategyBuildup {
		return ps.Strategy
	}

	switch {
	case len(in.threatsNearBase) > 0 && len(in.army) > 0:
		ps.StalemateDesperation = 0
		return set(StrategyDefend)
	case ps.StalemateDesperation >= stalemateDesperationThreshold:
		return set(StrategyAllIn)
	case ps.StalemateDesperation >= extremeDesperationThreshold && len(in.army) == 0 &&
		ps.DesperateSinceTick != 0 && s.Tick-ps.DesperateSinceTick >= desperatePersistTicks:
		return set(StrategyAllIn)
	case overwhelmingAdvantage(in):
		return set(StrategyAttack)
	case len(in.army) >= attackArmyThreshold && in.hasFactory && in.enemiesPresent:
		return set(StrategyAttack)
	case in.credits > peaceBreakCreditsMin && ps.PeaceTicks >= peaceBreakThreshold:
		return set(StrategyAttack)
	case in.harassCapable >= pers.HarassCapableMin:
		return set(StrategyHarass)
	case sinceChange >= stalledBuildupTicks && in.credits < stalledBuildupCredits && len(in.army) > 0:
		return set(StrategyAllIn)
	default:
		return set(StrategyBuildup)
	}
}
