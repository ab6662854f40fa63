package world

import "github.com/go-gl/mathgl/mgl64"

// Vec2 aliases mgl64.Vec2 so external packages (the ai planner) can name
// world positions without importing mgl64 directly.
type Vec2 = mgl64.Vec2
