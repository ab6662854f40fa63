// Package steer implements moveToward: per-tick steering for
// flying units (direct velocity capped by speed) and ground units (path
// following blended with separation, whisker avoidance and an unstuck
// maneuver). Each call is a pure function of its Input, returning a new
// Output. The kernel folds Output back into its own per-tick entity
// records; steer never mutates shared state itself.
package steer

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/pathfind"
	"github.com/egeozcan/rtsim/randfold"
)

const (
	// StopDistance is the distance below which a ground unit is
	// considered arrived and stops, clearing its path.
	StopDistance = 2.0
	// WaypointConsumeDistance is how close a unit must get to the current
	// waypoint before advancing to the next one.
	WaypointConsumeDistance = 25.0
	// DirectSteerRadius is the distance within which a unit skips
	// pathfinding entirely and steers straight at the target.
	DirectSteerRadius = 80.0

	avgVelAlpha = 0.1

	// RepathInterval is the minimum tick gap between two pathfinding
	// recomputations for the same unit; a unit that just dropped its path
	// steers directly until the interval elapses.
	RepathInterval = 10

	stuckFractionOfSpeed = 0.15
	stuckTicksThreshold  = 20
	unstuckDuration      = 25

	separationWeight = 0.8
	whiskerCenter     = 2.5
	whiskerSide       = 0.6

	velocityBlendNew = 0.6
	velocityBlendOld = 0.4
)

var whiskerAngles = [3]float64{0, 0.3, -0.3}
var whiskerAnglesNoPath = [5]float64{0, 0.3, -0.3, 0.8, -0.8}

// Neighbor is another entity considered for separation and whisker/grid
// obstruction checks.
type Neighbor struct {
	Pos    mgl64.Vec2
	Radius float64
}

// Input is the entity's steering-relevant state at the start of the tick
// plus the obstacles around it.
type Input struct {
	ID       uint64
	Owner    uint64
	Tick     int64
	Pos      mgl64.Vec2
	Vel      mgl64.Vec2
	AvgVel   mgl64.Vec2
	Target   mgl64.Vec2
	HasPath  bool
	Path     []mgl64.Vec2
	PathIdx  int
	Speed    float64
	Radius   float64
	Flying   bool
	StuckTimer   int
	UnstuckTimer int
	// LastRepathTick is when this unit last ran a path search; repaths are
	// staggered to at most one per RepathInterval ticks.
	LastRepathTick int64
	Neighbors []Neighbor
	Grid      *pathfind.Grid
}

// Output is the new steering state to fold back into the entity.
type Output struct {
	Pos          mgl64.Vec2
	Vel          mgl64.Vec2
	AvgVel       mgl64.Vec2
	Rotation     float64
	Path         []mgl64.Vec2
	PathIdx      int
	StuckTimer   int
	UnstuckTimer int
	LastRepathTick int64
	Arrived      bool
}

// MoveToward advances one tick of steering for in.
func MoveToward(in Input) Output {
	if in.Flying {
		return moveFlying(in)
	}
	return moveGround(in)
}

func moveFlying(in Input) Output {
	dir := in.Target.Sub(in.Pos)
	vel := mgl64.Vec2{}
	if dir.Len() > 1e-9 {
		vel = dir.Normalize().Mul(in.Speed)
	}
	pos := in.Pos.Add(vel)
	return Output{
		Pos:      pos,
		Vel:      vel,
		AvgVel:   vel,
		Rotation: headingOf(vel, in.Vel),
	}
}

func moveGround(in Input) Output {
	dist := in.Target.Sub(in.Pos).Len()
	if dist < StopDistance {
		return Output{Pos: in.Pos, Vel: mgl64.Vec2{}, AvgVel: mgl64.Vec2{}, Rotation: headingOf(mgl64.Vec2{}, in.Vel), Arrived: true}
	}

	path := in.Path
	idx := in.PathIdx
	lastRepath := in.LastRepathTick
	var waypoint mgl64.Vec2
	usedPath := false

	if dist <= DirectSteerRadius {
		waypoint = in.Target
		path = nil
		idx = 0
	} else {
		if len(path) == 0 && in.Grid != nil && in.Tick-lastRepath >= RepathInterval {
			path = in.Grid.FindPath(in.Pos, in.Target, in.Radius, in.Owner)
			idx = 0
			lastRepath = in.Tick
		}
		if len(path) > 0 {
			for idx < len(path)-1 && path[idx].Sub(in.Pos).Len() < WaypointConsumeDistance {
				idx++
			}
			waypoint = path[idx]
			usedPath = true
		} else {
			waypoint = in.Target
		}
	}

	// Stuck detection, from actual displacement last tick.
	avgVel := in.AvgVel.Mul(1 - avgVelAlpha).Add(in.Vel.Mul(avgVelAlpha))
	stuckTimer := in.StuckTimer
	unstuckTimer := in.UnstuckTimer
	if avgVel.Len() < in.Speed*stuckFractionOfSpeed {
		stuckTimer++
	} else {
		stuckTimer = 0
	}
	if unstuckTimer == 0 && stuckTimer > stuckTicksThreshold {
		unstuckTimer = unstuckDuration
		stuckTimer = 0
		path = nil
		idx = 0
	}

	dirToWaypoint := mgl64.Vec2{}
	if d := waypoint.Sub(in.Pos); d.Len() > 1e-9 {
		dirToWaypoint = d.Normalize()
	}

	var steerDir mgl64.Vec2
	if unstuckTimer > 0 {
		perp := perpendicular(dirToWaypoint)
		sign := randfold.Sign(in.Tick, in.ID, randfold.SaltUnstuckSign)
		steerDir = perp.Mul(sign)
		unstuckTimer--
	} else {
		sep := separation(in.Pos, in.Radius, in.Neighbors)
		whisker := whiskerAvoidance(in.Pos, dirToWaypoint, in.Radius, in.Grid, usedPath)
		rightBias := perpendicular(dirToWaypoint).Mul(0.05)
		combined := dirToWaypoint.Add(sep.Mul(separationWeight)).Add(whisker).Add(rightBias)
		if combined.Len() > 1e-9 {
			steerDir = combined.Normalize()
		} else {
			steerDir = dirToWaypoint
		}
		if dirToWaypoint.Len() > 1e-9 && steerDir.Dot(dirToWaypoint) < 0 {
			steerDir = perpendicular(dirToWaypoint)
		}
	}

	desiredVel := steerDir.Mul(in.Speed)
	newVel := in.Vel.Mul(velocityBlendOld).Add(desiredVel.Mul(velocityBlendNew))
	if l := newVel.Len(); l > 1e-9 {
		newVel = newVel.Normalize().Mul(in.Speed)
	}
	newPos := in.Pos.Add(newVel)

	return Output{
		Pos:            newPos,
		Vel:            newVel,
		AvgVel:         avgVel,
		Rotation:       headingOf(newVel, in.Vel),
		Path:           path,
		PathIdx:        idx,
		StuckTimer:     stuckTimer,
		UnstuckTimer:   unstuckTimer,
		LastRepathTick: lastRepath,
	}
}

func separation(pos mgl64.Vec2, radius float64, neighbors []Neighbor) mgl64.Vec2 {
	var push mgl64.Vec2
	for _, n := range neighbors {
		d := pos.Sub(n.Pos)
		dist := d.Len()
		minDist := radius + n.Radius + 3
		if dist >= minDist || dist < 1e-9 {
			continue
		}
		weight := (minDist - dist) / minDist
		push = push.Add(d.Normalize().Mul(weight))
	}
	return push
}

func whiskerAvoidance(pos, dir mgl64.Vec2, radius float64, grid *pathfind.Grid, hasPath bool) mgl64.Vec2 {
	if grid == nil || dir.Len() < 1e-9 {
		return mgl64.Vec2{}
	}
	const rayLen = 60.0
	angles := whiskerAnglesNoPath[:]
	if hasPath {
		angles = whiskerAngles[:]
	}
	var push mgl64.Vec2
	for i, a := range angles {
		rd := rotate(dir, a)
		sample := pos.Add(rd.Mul(rayLen))
		if grid.Blocked(sample, 0) {
			weight := whiskerSide
			if i == 0 {
				weight = whiskerCenter
			}
			push = push.Sub(rd.Mul(weight))
		}
	}
	return push
}

func perpendicular(v mgl64.Vec2) mgl64.Vec2 {
	if v.Len() < 1e-9 {
		return mgl64.Vec2{1, 0}
	}
	return mgl64.Vec2{-v[1], v[0]}.Normalize()
}

func rotate(v mgl64.Vec2, radians float64) mgl64.Vec2 {
	s, c := math.Sin(radians), math.Cos(radians)
	return mgl64.Vec2{v[0]*c - v[1]*s, v[0]*s + v[1]*c}
}

func headingOf(newVel, oldVel mgl64.Vec2) float64 {
	if newVel.Len() > 1e-9 {
		return math.Atan2(newVel[1], newVel[0])
	}
	if oldVel.Len() > 1e-9 {
		return math.Atan2(oldVel[1], oldVel[0])
	}
	return 0
}
