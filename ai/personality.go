package ai

import "github.com/egeozcan/rtsim/world"

// Personality is the set of tunable knobs that scale the strategy and
// action-emission pipeline's thresholds: detection reach, garrison
// fraction, retreat threshold, harass appetite, specialist usage. A
// handful of scalar knobs is enough to make the difficulty tiers feel
// like different opponents rather than the same one with more HP.
type Personality struct {
	// StrategyCooldownMult scales strategyCooldownBase.
	StrategyCooldownMult float64
	// DetectMultiplier scales the threat detection radii.
	DetectMultiplier float64
	// GarrisonFraction is the share of combat units held near base (stage 3).
	GarrisonFraction float64
	// RetreatThreshold is the HP fraction below which a wounded unit
	// retreats during micro (stage 8).
	RetreatThreshold float64
	// HarassCapableMin is how many harass-capable units (light, fast
	// units) are required before strategy 7 (harass) becomes available.
	HarassCapableMin int
	// DisablesDemoTrucks filters demo-truck production from emitted
	// actions (stage 10) for personalities that don't use them (e.g. the
	// dummy/easy tiers, which stay defensive).
	DisablesDemoTrucks bool
	// SpecialistAggressiveness scales how readily engineers/hijackers are
	// queued (stage 6).
	SpecialistAggressiveness float64
}

// personalities maps each world.Difficulty to its Personality, the same
// per-difficulty scaling the kernel applies to build speed.
var personalities = map[world.Difficulty]Personality{
	world.DifficultyDummy: {
		StrategyCooldownMult: 4.0, DetectMultiplier: 0.6, GarrisonFraction: 0.8,
		RetreatThreshold: 0.5, HarassCapableMin: 99, DisablesDemoTrucks: true,
		SpecialistAggressiveness: 0.0,
	},
	world.DifficultyEasy: {
		StrategyCooldownMult: 1.5, DetectMultiplier: 0.8, GarrisonFraction: 0.4,
		RetreatThreshold: 0.35, HarassCapableMin: 6, DisablesDemoTrucks: true,
		SpecialistAggressiveness: 0.3,
	},
	world.DifficultyMedium: {
		StrategyCooldownMult: 1.0, DetectMultiplier: 1.0, GarrisonFraction: 0.25,
		RetreatThreshold: 0.3, HarassCapableMin: 4, DisablesDemoTrucks: false,
		SpecialistAggressiveness: 0.6,
	},
	world.DifficultyHard: {
		StrategyCooldownMult: 0.6, DetectMultiplier: 1.3, GarrisonFraction: 0.15,
		RetreatThreshold: 0.2, HarassCapableMin: 3, DisablesDemoTrucks: false,
		SpecialistAggressiveness: 1.0,
	},
}

// personalityFor returns d's Personality, defaulting to Medium's for an
// unrecognized difficulty rather than zero-valuing every knob.
func personalityFor(d world.Difficulty) Personality {
	if p, ok := personalities[d]; ok {
		return p
	}
	return personalities[world.DifficultyMedium]
}
