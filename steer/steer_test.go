package steer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/pathfind"
)

func TestFlyingUnitGoesDirectAtSpeed(t *testing.T) {
	in := Input{
		Pos:    mgl64.Vec2{0, 0},
		Target: mgl64.Vec2{100, 0},
		Speed:  10,
		Flying: true,
	}
	out := MoveToward(in)
	if out.Vel.Len() < 9.999 || out.Vel.Len() > 10.001 {
		t.Fatalf("expected flying velocity magnitude == speed, got %v", out.Vel)
	}
	if out.Pos[0] <= 0 {
		t.Fatalf("expected forward progress, got %v", out.Pos)
	}
}

func TestGroundUnitStopsWithinStopDistance(t *testing.T) {
	in := Input{
		Pos:    mgl64.Vec2{0, 0},
		Target: mgl64.Vec2{1, 0},
		Speed:  5,
	}
	out := MoveToward(in)
	if !out.Arrived {
		t.Fatal("expected arrival within stop distance")
	}
	if out.Vel.Len() != 0 {
		t.Fatalf("expected zero velocity on arrival, got %v", out.Vel)
	}
}

func TestGroundUnitSteersDirectlyWithinDirectSteerRadius(t *testing.T) {
	in := Input{
		Pos:    mgl64.Vec2{0, 0},
		Target: mgl64.Vec2{50, 0},
		Speed:  10,
	}
	out := MoveToward(in)
	if out.Path != nil {
		t.Fatalf("expected no path within direct steer radius, got %v", out.Path)
	}
	if out.Pos[0] <= 0 {
		t.Fatal("expected forward progress toward target")
	}
}

func TestStuckTimerIncrementsWhenAvgVelLow(t *testing.T) {
	in := Input{
		Pos:    mgl64.Vec2{0, 0},
		Target: mgl64.Vec2{500, 0},
		Speed:  10,
		AvgVel: mgl64.Vec2{0, 0},
		Vel:    mgl64.Vec2{0, 0},
	}
	out := MoveToward(in)
	if out.StuckTimer != 1 {
		t.Fatalf("expected stuck timer to increment from near-zero avg velocity, got %d", out.StuckTimer)
	}
}

func TestUnstuckEngagesAfterThreshold(t *testing.T) {
	in := Input{
		Pos:        mgl64.Vec2{0, 0},
		Target:     mgl64.Vec2{500, 0},
		Speed:      10,
		StuckTimer: stuckTicksThreshold + 1,
		Tick:       42,
		ID:         7,
	}
	out := MoveToward(in)
	if out.UnstuckTimer != unstuckDuration-1 {
		t.Fatalf("expected unstuck maneuver to engage, got unstuckTimer=%d", out.UnstuckTimer)
	}
	if out.Path != nil {
		t.Fatal("expected path cleared when entering unstuck maneuver")
	}
}

func TestSeparationPushesApart(t *testing.T) {
	in := Input{
		Pos:       mgl64.Vec2{0, 0},
		Target:    mgl64.Vec2{500, 0},
		Speed:     10,
		Radius:    10,
		Neighbors: []Neighbor{{Pos: mgl64.Vec2{5, 5}, Radius: 10}},
	}
	out := MoveToward(in)
	// The neighbor sits ahead and to the +Y side; separation should bend
	// the resulting velocity toward -Y, away from it.
	if out.Vel[1] >= 0 {
		t.Fatalf("expected separation to push away from the neighbor (negative Y), got %v", out.Vel)
	}
}

func TestRepathIsStaggered(t *testing.T) {
	grid := pathfind.NewGrid(2000, 2000)
	grid.Rebuild(nil)

	in := Input{
		Pos:            mgl64.Vec2{0, 1000},
		Target:         mgl64.Vec2{1900, 1000},
		Speed:          5,
		Tick:           100,
		LastRepathTick: 95,
		Grid:           grid,
	}
	out := MoveToward(in)
	if out.Path != nil {
		t.Fatalf("a repath inside the %d-tick interval must be skipped, got %v", RepathInterval, out.Path)
	}
	if out.LastRepathTick != 95 {
		t.Fatalf("LastRepathTick = %d, want unchanged 95", out.LastRepathTick)
	}

	in.LastRepathTick = 100 - RepathInterval
	out = MoveToward(in)
	if out.Path == nil {
		t.Fatal("a repath past the interval must run")
	}
	if out.LastRepathTick != 100 {
		t.Fatalf("LastRepathTick = %d, want stamped 100", out.LastRepathTick)
	}
}
