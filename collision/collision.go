// Package collision implements the two-pass relaxation collision resolver:
// ground units pushed apart from each other and from
// buildings/rocks, with a backward-projection fix-up so collisions never
// reverse a moving unit's intended progress.
package collision

import "github.com/go-gl/mathgl/mgl64"

const (
	// SoftOverlapTolerance is subtracted from the sum of radii before an
	// overlap is considered worth resolving.
	SoftOverlapTolerance = 2.0
	// PushCap bounds how far a single iteration may move an entity.
	PushCap = 2.5

	movingStationarySplit = 0.8
	bothMovingRadialSplit = 0.5
	bothMovingPerpFactor  = 0.15
	bothStationaryHalf    = 0.5

	// backProjectThreshold: if the displacement component along the
	// intent vector is less than this fraction of |displacement|
	// (negative, i.e. opposing intent), project onto the perpendicular
	// axis instead.
	backProjectThreshold = -0.3
)

// Body is a movable ground unit participating in collision resolution.
type Body struct {
	ID       uint64
	Pos      mgl64.Vec2
	Radius   float64
	Moving   bool // has a moveTarget or an active path with avgVel above the moving threshold
	Intent   mgl64.Vec2 // normalized direction of intended travel, zero if none
}

// Obstacle is an immovable collider: a building or rock. Units absorb the
// entire correction against an Obstacle.
type Obstacle struct {
	Pos    mgl64.Vec2
	Radius float64
}

// Pair is a candidate overlapping (body, body) or (body, obstacle) found by
// the caller's spatial query; Resolve re-checks precise distance itself.
type Pair struct {
	A, B int // indices into the Bodies slice passed to Resolve
}

// ObstaclePair pairs a body index against an obstacle.
type ObstaclePair struct {
	Body     int
	Obstacle Obstacle
}

// MovingFraction picks the iteration count: 4 iterations when at least a
// quarter of ground units are moving, else 2.
func MovingFraction(movingCount, totalCount int) int {
	if totalCount == 0 {
		return 2
	}
	if float64(movingCount)/float64(totalCount) >= 0.25 {
		return 4
	}
	return 2
}

// Resolve runs the configured number of relaxation iterations over bodies,
// using pairs/obstaclePairs rediscovered by the caller once per iteration
// (since positions move between iterations, callers typically re-query the
// spatial index or re-use a conservative superset computed once). The
// starting position of each body is captured internally to run the
// backward-projection fix-up after all iterations complete.
func Resolve(bodies []Body, pairsPerIteration func(iter int) []Pair, obstaclePairsPerIteration func(iter int) []ObstaclePair, iterations int) []Body {
	start := make([]mgl64.Vec2, len(bodies))
	for i, b := range bodies {
		start[i] = b.Pos
	}

	for iter := 0; iter < iterations; iter++ {
		for _, op := range obstaclePairsPerIteration(iter) {
			resolveObstacle(&bodies[op.Body], op.Obstacle)
		}
		for _, p := range pairsPerIteration(iter) {
			resolvePair(&bodies[p.A], &bodies[p.B])
		}
	}

	for i := range bodies {
		b := &bodies[i]
		if !b.Moving || b.Intent.Len() < 1e-9 {
			continue
		}
		disp := b.Pos.Sub(start[i])
		dispLen := disp.Len()
		if dispLen < 1e-9 {
			continue
		}
		along := disp.Dot(b.Intent)
		if along < backProjectThreshold*dispLen {
			perp := mgl64.Vec2{-b.Intent[1], b.Intent[0]}
			sign := 1.0
			if disp.Dot(perp) < 0 {
				sign = -1.0
			}
			b.Pos = start[i].Add(perp.Mul(sign * dispLen))
		}
	}
	return bodies
}

func resolveObstacle(u *Body, o Obstacle) {
	d := u.Pos.Sub(o.Pos)
	dist := d.Len()
	minDist := u.Radius + o.Radius - SoftOverlapTolerance
	if dist >= minDist || minDist <= 0 {
		return
	}
	dir := safeNormalize(d, u.Pos)
	overlap := minDist - dist
	push := cap2(overlap, PushCap)
	u.Pos = u.Pos.Add(dir.Mul(push))
}

func resolvePair(a, b *Body) {
	d := a.Pos.Sub(b.Pos)
	dist := d.Len()
	minDist := a.Radius + b.Radius - SoftOverlapTolerance
	if dist >= minDist || minDist <= 0 {
		return
	}
	dir := safeNormalize(d, a.Pos)
	overlap := minDist - dist

	var aShare, bShare float64
	switch {
	case a.Moving && !b.Moving:
		aShare, bShare = movingStationarySplit, 1-movingStationarySplit
	case !a.Moving && b.Moving:
		aShare, bShare = 1-movingStationarySplit, movingStationarySplit
	case a.Moving && b.Moving:
		aShare, bShare = bothMovingRadialSplit, bothMovingRadialSplit
	default:
		// Both stationary: proportional to the other's radius, half
		// strength.
		total := a.Radius + b.Radius
		if total <= 0 {
			total = 1
		}
		aShare = bothStationaryHalf * (b.Radius / total)
		bShare = bothStationaryHalf * (a.Radius / total)
	}

	aPush := cap2(overlap*aShare, PushCap)
	bPush := cap2(overlap*bShare, PushCap)
	a.Pos = a.Pos.Add(dir.Mul(aPush))
	b.Pos = b.Pos.Sub(dir.Mul(bPush))

	if a.Moving && b.Moving {
		perp := mgl64.Vec2{-dir[1], dir[0]}
		slide := cap2(overlap*bothMovingPerpFactor, PushCap)
		a.Pos = a.Pos.Add(perp.Mul(slide))
		b.Pos = b.Pos.Sub(perp.Mul(slide))
	}
}

func safeNormalize(d, fallbackDirSeed mgl64.Vec2) mgl64.Vec2 {
	if d.Len() < 1e-9 {
		// Degenerate: exact same position. Push along a fixed axis
		// derived from position so the choice is deterministic rather
		// than arbitrary.
		if int64(fallbackDirSeed[0]+fallbackDirSeed[1])%2 == 0 {
			return mgl64.Vec2{1, 0}
		}
		return mgl64.Vec2{0, 1}
	}
	return d.Normalize()
}

func cap2(v, max float64) float64 {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// ClampToBounds clamps pos inside [radius, extent-radius] on both axes, the
// final step of every resolution pass.
func ClampToBounds(pos mgl64.Vec2, radius, mapWidth, mapHeight float64) mgl64.Vec2 {
	return mgl64.Vec2{
		clamp(pos[0], radius, mapWidth-radius),
		clamp(pos[1], radius, mapHeight-radius),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
