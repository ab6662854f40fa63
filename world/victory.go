package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/event"
	"github.com/egeozcan/rtsim/rules"
)

// filterDead drops every entity marked Dead this tick from the live map.
// Resource piles additionally decrement the ore count of whichever well is
// nearest them, keeping CurrentOreCount a reasonable (if not perfectly
// precise, since wells don't track which pile is theirs) approximation of
// how much of that well's production is still on the field.
func filterDead(s *State, k *Kernel) {
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if !e.Dead {
			continue
		}
		if e.Kind == KindResource {
			decrementNearestWellOreCount(s, e.Pos)
		}
		delete(s.Entities, id)
	}
}

func decrementNearestWellOreCount(s *State, pos mgl64.Vec2) {
	var best EntityID
	bestDist := math.MaxFloat64
	for _, e := range s.OrderedEntities() {
		id := e.ID
		if e.Dead || e.Kind != KindWell {
			continue
		}
		d := dist2(pos, e.Pos)
		if d < bestDist {
			bestDist = d
			best = id
		}
	}
	if best == 0 {
		return
	}
	wm := s.mutableEntity(best)
	if wm.Well.CurrentOreCount > 0 {
		wm.Well.CurrentOreCount--
	}
}

// checkVictory decides eliminations and the winner: a player with no building and no
// undeployed MCV left is eliminated immediately: their remaining units
// are killed and their production queues cancelled without refund, same
// tick the elimination condition becomes true (so, e.g., selling a
// player's last building ends the match on that tick, not the next). The
// match ends the instant at most one player remains.
func checkVictory(s *State, catalog rules.Catalog, k *Kernel) {
	if s.Winner.Decided {
		return
	}

	for _, player := range s.OrderedPlayers() {
		if !player.Alive {
			continue
		}
		if hasBuildingOrMCV(s, catalog, player.ID) {
			continue
		}
		eliminatePlayer(s, player.ID, k)
	}

	var survivors []PlayerID
	for _, player := range s.OrderedPlayers() {
		if player.Alive {
			survivors = append(survivors, player.ID)
		}
	}

	switch len(survivors) {
	case 0:
		s.Winner = WinnerState{Decided: true, Draw: true}
		s.Running = false
		k.emit(event.Event{Kind: event.KindState, Tick: s.Tick, Data: map[string]any{"action": "victory", "draw": true}})
	case 1:
		s.Winner = WinnerState{Decided: true, PlayerID: survivors[0]}
		s.Running = false
		k.emit(event.Event{Kind: event.KindState, Tick: s.Tick, PlayerID: uint64(survivors[0]), Data: map[string]any{"action": "victory"}})
	}
}

// hasBuildingOrMCV reports whether pid still owns any live building, or any
// live undeployed MCV unit (an MCV that has not yet placed its construction
// yard keeps its owner alive even with zero buildings).
func hasBuildingOrMCV(s *State, catalog rules.Catalog, pid PlayerID) bool {
	for _, e := range s.Entities {
		if e.Dead || e.Owner != pid {
			continue
		}
		if e.Kind == KindBuilding {
			return true
		}
		if e.Kind == KindUnit {
			if entry, ok := catalog.Lookup(e.Key); ok && entry.HasTag("mcv") {
				return true
			}
		}
	}
	return false
}

// eliminatePlayer marks pid no longer Alive, kills every entity it still
// owns, and cancels its production queues.
func eliminatePlayer(s *State, pid PlayerID, k *Kernel) {
	player := s.mutablePlayer(pid)
	player.Alive = false
	for cat := range player.Queues {
		player.Queues[cat] = &ProductionQueue{}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Owner != pid {
			continue
		}
		em := s.mutableEntity(e.ID)
		em.Dead = true
	}
	k.emit(event.Event{Kind: event.KindState, Tick: s.Tick, PlayerID: uint64(pid), Data: map[string]any{"action": "eliminated"}})
}
