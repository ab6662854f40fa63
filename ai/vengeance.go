package ai

import "github.com/egeozcan/rtsim/world"

// RecordHit adds vengeancePerHit to attacker's bucket in victim's
// PlayerState, once per hit one of the victim's units takes. Callers
// (typically a debug-event bridge watching damage events, or a test) invoke
// this once per hit; it is not driven by ComputeActions itself since damage
// resolution happens in the kernel, not the planner.
func (w *AIWorld) RecordHit(victim, attacker world.PlayerID) {
	if victim == attacker {
		return
	}
	ps := w.getAIState(victim)
	ps.VengeanceScores[attacker] += vengeancePerHit
}

// decayVengeance applies the per-think-tick exponential decay, removing
// any bucket that has decayed below vengeanceEpsilon.
func decayVengeance(ps *PlayerState) {
	for pid, v := range ps.VengeanceScores {
		v *= vengeanceDecay
		if v < vengeanceEpsilon {
			delete(ps.VengeanceScores, pid)
			continue
		}
		ps.VengeanceScores[pid] = v
	}
}

// mostVengefulEnemy returns the enemy player id with the highest
// accumulated vengeance score, used to bias target selection toward
// whoever has been hurting this AI the most. Returns (0, false) if no
// score is recorded.
func mostVengefulEnemy(ps *PlayerState) (world.PlayerID, bool) {
	var best world.PlayerID
	bestScore := 0.0
	found := false
	for pid, v := range ps.VengeanceScores {
		if !found || v > bestScore || (v == bestScore && pid < best) {
			best, bestScore, found = pid, v, true
		}
	}
	return best, found
}
