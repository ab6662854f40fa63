package ai

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/egeozcan/rtsim/world"
)

// groupMinSize is the smallest number of units an offensive group will form
// with; below this, units stay folded into the garrison instead (stage 3).
const groupMinSize = 3

// formOffensiveGroup assembles up to want idle combat units into a new
// OffensiveGroup of the given kind: pull unassigned units into a forming
// group, then hand the whole group a single destination. Returns nil if
// fewer than groupMinSize units are available.
func (ps *PlayerState) formOffensiveGroup(kind Strategy, candidates []*world.Entity, target world.EntityID, rally *world.Vec2, tick int64, want int) *OffensiveGroup {
	assigned := ps.assignedUnits()
	var picked []world.EntityID
	for _, u := range candidates {
		if len(picked) >= want {
			break
		}
		if assigned[u.ID] {
			continue
		}
		picked = append(picked, u.ID)
	}
	if len(picked) < groupMinSize {
		return nil
	}
	g := &OffensiveGroup{
		ID: ps.nextGroupID(tick), Kind: kind, UnitIDs: picked, TargetID: target,
		RallyPoint: rally, Status: GroupForming, LastOrder: tick,
	}
	ps.Offensive[g.ID] = g
	switch kind {
	case StrategyHarass:
		ps.HarassGroups = append(ps.HarassGroups, g.ID)
	default:
		ps.AttackGroups = append(ps.AttackGroups, g.ID)
	}
	return g
}

// nextGroupID derives a group id from the owning player, the current tick
// and a per-state sequence counter. uuid.New would read OS entropy, which
// the determinism contract forbids: identical matches must form
// identically-identified groups, so the id is a name-based uuid over the
// (player, tick, seq) triple instead.
func (ps *PlayerState) nextGroupID(tick int64) uuid.UUID {
	ps.GroupSeq++
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ps.PlayerID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(tick))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(ps.GroupSeq))
	return uuid.NewSHA1(uuid.NameSpaceOID, buf[:])
}

// assignedUnits returns the set of unit ids already committed to a
// non-retreating offensive group, so formOffensiveGroup doesn't double-book
// a unit into two groups at once.
func (ps *PlayerState) assignedUnits() map[world.EntityID]bool {
	out := make(map[world.EntityID]bool)
	for _, g := range ps.Offensive {
		if g.Status == GroupRetreating {
			continue
		}
		for _, id := range g.UnitIDs {
			out[id] = true
		}
	}
	return out
}

// pruneDeadGroups drops dead/missing unit ids from every offensive group
// and removes groups that have been fully whittled down, keeping the
// group-id lists (AttackGroups/HarassGroups/DefenseGroups) in sync.
func pruneDeadGroups(s *world.State, ps *PlayerState) {
	for id, g := range ps.Offensive {
		live := g.UnitIDs[:0]
		for _, uid := range g.UnitIDs {
			e := s.Entities[uid]
			if e != nil && !e.Dead {
				live = append(live, uid)
			}
		}
		g.UnitIDs = live
		if len(g.UnitIDs) == 0 {
			delete(ps.Offensive, id)
		}
	}
	ps.AttackGroups = filterLiveGroups(ps, ps.AttackGroups)
	ps.HarassGroups = filterLiveGroups(ps, ps.HarassGroups)
	ps.DefenseGroups = filterLiveGroups(ps, ps.DefenseGroups)
}

func filterLiveGroups(ps *PlayerState, ids []uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if _, ok := ps.Offensive[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// advanceGroup moves an OffensiveGroup through its forming→rallying→
// attacking→retreating lifecycle and returns the COMMAND_MOVE/COMMAND_ATTACK
// actions needed this tick, if any.
func advanceGroup(s *world.State, owner world.PlayerID, grp *OffensiveGroup, tick int64) []world.Action {
	var acts []world.Action
	switch grp.Status {
	case GroupForming:
		grp.Status = GroupRallying
		fallthrough
	case GroupRallying:
		dest := grp.TargetPos(s)
		if dest == nil {
			break
		}
		acts = append(acts, world.Action{Type: world.ActionCommandMove, PlayerID: owner, EntityIDs: append([]world.EntityID(nil), grp.UnitIDs...), Pos: *dest})
		if groupArrived(s, grp, *dest) {
			grp.Status = GroupAttacking
		}
	case GroupAttacking:
		if grp.TargetID == 0 || isDead(s, grp.TargetID) {
			grp.Status = GroupRetreating
			break
		}
		acts = append(acts, world.Action{Type: world.ActionCommandAttack, PlayerID: owner, EntityIDs: append([]world.EntityID(nil), grp.UnitIDs...), TargetID: grp.TargetID})
	case GroupRetreating:
		if grp.RallyPoint != nil {
			acts = append(acts, world.Action{Type: world.ActionCommandMove, PlayerID: owner, EntityIDs: append([]world.EntityID(nil), grp.UnitIDs...), Pos: *grp.RallyPoint})
		}
	}
	grp.LastOrder = tick
	return acts
}

// TargetPos resolves a group's current destination: the live target
// entity's position if set, else the rally point.
func (g *OffensiveGroup) TargetPos(s *world.State) *world.Vec2 {
	if g.TargetID != 0 {
		if e := s.Entities[g.TargetID]; e != nil && !e.Dead {
			p := e.Pos
			return &p
		}
	}
	return g.RallyPoint
}

func groupArrived(s *world.State, grp *OffensiveGroup, dest world.Vec2) bool {
	for _, id := range grp.UnitIDs {
		e := s.Entities[id]
		if e == nil {
			continue
		}
		if dist(e.Pos, dest) > 150 {
			return false
		}
	}
	return true
}

func isDead(s *world.State, id world.EntityID) bool {
	e := s.Entities[id]
	return e == nil || e.Dead
}
