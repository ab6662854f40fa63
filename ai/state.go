// Package ai implements the planner that stands in for a human player:
// threat detection, a strategy state machine, economic/military investment
// scoring and an ordered pipeline that emits world.Action values for the
// reducer to apply. It never mutates world.State directly: every decision
// becomes an Action, kept pure at the boundary the same way the kernel's
// Apply is.
package ai

import (
	"github.com/google/uuid"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/rules"
	"github.com/egeozcan/rtsim/world"
)

// Strategy is the AI's current top-level posture.
type Strategy string

const (
	StrategyBuildup Strategy = "buildup"
	StrategyAttack  Strategy = "attack"
	StrategyDefend  Strategy = "defend"
	StrategyHarass  Strategy = "harass"
	StrategyAllIn   Strategy = "all_in"
)

// InvestmentPriority steers which economy/military actions stage 4 emits.
type InvestmentPriority string

const (
	PriorityEconomy  InvestmentPriority = "economy"
	PriorityWarfare  InvestmentPriority = "warfare"
	PriorityDefense  InvestmentPriority = "defense"
	PriorityBalanced InvestmentPriority = "balanced"
)

// GroupStatus is an offensive group's lifecycle stage.
type GroupStatus string

const (
	GroupForming    GroupStatus = "forming"
	GroupRallying   GroupStatus = "rallying"
	GroupAttacking  GroupStatus = "attacking"
	GroupRetreating GroupStatus = "retreating"
)

// OffensiveGroup is one tagged attack/harass force: its units, target,
// rally point and lifecycle status.
type OffensiveGroup struct {
	ID         uuid.UUID
	Kind       Strategy // StrategyAttack or StrategyHarass
	UnitIDs    []world.EntityID
	TargetID   world.EntityID
	RallyPoint *world.Vec2
	Status     GroupStatus
	LastOrder  int64
}

// EnemyIntel is the per-enemy-player histogram refreshed every
// intelRefreshInterval ticks.
type EnemyIntel struct {
	KeyCounts      map[rules.Key]int
	ArmorCounts    map[rules.ArmorClass]int
	DominantArmor  rules.ArmorClass
	LastRefresh    int64
}

// PlayerState is one AI seat's process-wide memory. It survives across
// ticks and is looked up by player id, never stored inside world.State.
type PlayerState struct {
	PlayerID world.PlayerID

	Strategy           Strategy
	InvestmentPriority InvestmentPriority

	EconomyScore         float64
	ThreatLevel          float64
	StalemateDesperation float64

	AttackGroups  []uuid.UUID
	HarassGroups  []uuid.UUID
	DefenseGroups []uuid.UUID
	Offensive     map[uuid.UUID]*OffensiveGroup

	EnemyBaseLocation *world.Vec2

	VengeanceScores map[world.PlayerID]float64

	EnemyIntelligence map[world.PlayerID]*EnemyIntel

	ExpansionTarget *world.Vec2

	// Timers, all in ticks.
	LastStrategyChange int64
	LastScoutTick      int64
	PeaceTicks         int64
	LastCombatTick     int64
	AllInStartTick     int64
	DesperateSinceTick int64

	// HarvesterFleeCooldown tracks, per fleeing harvester, the tick its
	// flee cooldown expires (stage 1). Not part of
	// world.HarvesterData because the AI never mutates entities directly.
	HarvesterFleeCooldown map[world.EntityID]int64

	// ProductionBiasCursor feeds stage 5's deterministic weighted roll;
	// UnitCapsPlanned counts the unit-cap slots the current think tick has
	// already planned.
	ProductionBiasCursor int64
	UnitCapsPlanned      map[rules.Key]int

	// LastCategoryBuildTick backs stage 7's production pacing once the AI
	// is safe and already defended.
	LastCategoryBuildTick map[rules.Category]int64

	// GroupSeq feeds nextGroupID so offensive-group ids are reproducible
	// across identical runs.
	GroupSeq int64
}

// newPlayerState returns a freshly-reset PlayerState for pid.
func newPlayerState(pid world.PlayerID) *PlayerState {
	return &PlayerState{
		PlayerID:              pid,
		Strategy:              StrategyBuildup,
		InvestmentPriority:    PriorityBalanced,
		Offensive:             make(map[uuid.UUID]*OffensiveGroup),
		VengeanceScores:       make(map[world.PlayerID]float64),
		EnemyIntelligence:     make(map[world.PlayerID]*EnemyIntel),
		HarvesterFleeCooldown: make(map[world.EntityID]int64),
		UnitCapsPlanned:       make(map[rules.Key]int),
	}
}

// AIWorld holds every AI player's process-wide state, keyed by player id.
// An explicit object rather than a package-level singleton map: callers
// own its lifetime, tests get isolation for free, and the whole of an AI's
// memory stays serializable and resettable from one place.
type AIWorld struct {
	players map[world.PlayerID]*PlayerState
	sink    event.Sink
}

// NewAIWorld returns an empty AIWorld.
func NewAIWorld() *AIWorld {
	return &AIWorld{players: make(map[world.PlayerID]*PlayerState)}
}

// getAIState returns pid's PlayerState, creating it on first access.
func (w *AIWorld) getAIState(pid world.PlayerID) *PlayerState {
	ps, ok := w.players[pid]
	if !ok {
		ps = newPlayerState(pid)
		w.players[pid] = ps
	}
	return ps
}

// ResetAIState clears one player's AI memory, or every player's if pid is
// 0 (used for new matches and tests).
func (w *AIWorld) ResetAIState(pid world.PlayerID) {
	if pid == 0 {
		w.players = make(map[world.PlayerID]*PlayerState)
		return
	}
	delete(w.players, pid)
}
