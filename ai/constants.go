package ai

// AITickInterval is the planner's think cadence: each AI seat only runs
// its planner once every this-many simulation ticks, staggered by player id
// so N AIs don't all think on the same tick.
const AITickInterval = 30

const (
	// BaseDefenseRadius and ThreatDetectionRadius are the raw threat
	// detection radii, before the per-difficulty detectMultiplier is
	// applied.
	BaseDefenseRadius      = 1000.0
	ThreatDetectionRadius  = 600.0
	inductionRigBaseRadius = 1500.0
	inductionRigBldgRadius = 800.0

	// harvesterUnderAttackWindow is how recently a harvester must have taken
	// damage to count as "under attack" absent a nearby enemy.
	harvesterUnderAttackWindow = 120
	harvesterThreatRadius      = 200.0
	harvesterMinSafeDistance   = 80.0

	// harvesterFleeCooldownTicks is how long a harvester that just fled
	// stays exempt from stage-1 re-evaluation, so a single lingering threat
	// doesn't re-issue the same flee order every AI think tick.
	harvesterFleeCooldownTicks = AITickInterval * 3

	// vengeancePerHit and vengeanceDecay drive the per-enemy vengeance
	// accumulator.
	vengeancePerHit  = 10.0
	vengeanceDecay   = 0.995
	vengeanceEpsilon = 0.1

	// stalemateDesperationThreshold/extremeDesperationThreshold gate the
	// all_in strategy transitions.
	stalemateDesperationThreshold = 50.0
	extremeDesperationThreshold   = 80.0

	// strategyCooldownBase is the default tick count a non-aborting
	// strategy is held for before re-evaluation, scaled per difficulty by
	// personality.StrategyCooldownMult.
	strategyCooldownBase = 300

	// intelRefreshInterval is the enemy-intelligence refresh cadence.
	intelRefreshInterval = 300

	// peaceBreakThreshold is how many ticks of no combat, combined with a
	// credit surplus, triggers the peace-break attack transition.
	peaceBreakThreshold  = 900
	peaceBreakCreditsMin = 3000

	// attackArmyThreshold gates strategy transition 5. Transition 7 is gated
	// by the personality's HarassCapableMin; harassArmyThreshold is not read.
	attackArmyThreshold = 8
	harassArmyThreshold = 3

	// stalledBuildupTicks/stalledBuildupCredits gate transition 8.
	stalledBuildupTicks    = 75 * 20 // "75s" at a nominal 20 ticks/sec
	stalledBuildupCredits  = 1000

	// accessibleOreRadius/accessibleOreCap feed the economy score
	// formula.
	accessibleOreRadius = 600.0
	accessibleOreCap    = 8.0

	// expansionTargetMin/Max bound candidate ore patches for an economy
	// investment priority.
	expansionTargetMin = 400.0
	expansionTargetMax = 1500.0

	// reactionDelayTicks is the defense reaction delay. It is 0 and no stage
	// reads it: stage 2 (defense) orders the attack on the first think tick
	// that sees threatsNearBase non-empty.
	reactionDelayTicks = 0

	// garrisonFractionDefault is a default share of combat units held back
	// near base for patrol (stage 3). It is not read: every personality sets
	// its own GarrisonFraction.
	garrisonFractionDefault = 0.25
)
