// Package world implements the simulation kernel: the per-tick state
// transition over units, buildings, resources, projectiles and wells. Tick
// is the sole mutator; it is given a *State and returns a new *State that
// supersedes it, never touching its input in place.
package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
)

// EntityID is a stable handle assigned on creation: a monotonic counter
// handed out by State.AddEntity that keys State.Entities for the lifetime
// of a match. PlayerID is a plain integer too; only the AI's
// offensive-group ids are uuid.UUID.
type EntityID uint64

// PlayerID identifies a player/AI seat. 0 is reserved for "no owner"
// (neutral resources, rocks).
type PlayerID uint64

// EntityKind tags which variant of the Entity tagged union is populated.
type EntityKind int

const (
	KindUnit EntityKind = iota
	KindBuilding
	KindResource
	KindRock
	KindWell
)

func (k EntityKind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBuilding:
		return "building"
	case KindResource:
		return "resource"
	case KindRock:
		return "rock"
	case KindWell:
		return "well"
	}
	return "unknown"
}

// Entity is the shared envelope for every simulated object: common fields
// here, variant-specific payload behind exactly one non-nil pointer
// matching Kind.
type Entity struct {
	ID     EntityID
	Kind   EntityKind
	Key    rules.Key
	Owner  PlayerID
	Pos    mgl64.Vec2
	Radius float64
	HP     int
	MaxHP  int
	Dead   bool

	Unit     *UnitData
	Building *BuildingData
	Resource *ResourceData
	Rock     *RockData
	Well     *WellData
}

// Flying reports whether the entity occupies no ground pathfinding cell.
func (e *Entity) Flying() bool {
	return e.Unit != nil && e.Unit.AirUnit != nil
}

// Clone returns a deep-enough copy of e so that mutating the clone's
// variant payload never aliases the original. Used when building the next
// tick's entity map.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Unit != nil {
		u := *e.Unit
		if e.Unit.Harvester != nil {
			h := *e.Unit.Harvester
			u.Harvester = &h
		}
		if e.Unit.Engineer != nil {
			eng := *e.Unit.Engineer
			u.Engineer = &eng
		}
		if e.Unit.AirUnit != nil {
			a := *e.Unit.AirUnit
			u.AirUnit = &a
		}
		if e.Unit.DemoTruck != nil {
			d := *e.Unit.DemoTruck
			u.DemoTruck = &d
		}
		if e.Unit.Movement.Path != nil {
			u.Movement.Path = append([]mgl64.Vec2(nil), e.Unit.Movement.Path...)
		}
		c.Unit = &u
	}
	if e.Building != nil {
		b := *e.Building
		if e.Building.Combat != nil {
			cc := *e.Building.Combat
			b.Combat = &cc
		}
		if e.Building.AirBase != nil {
			ab := *e.Building.AirBase
			b.AirBase = &ab
		}
		c.Building = &b
	}
	if e.Resource != nil {
		r := *e.Resource
		c.Resource = &r
	}
	if e.Rock != nil {
		r := *e.Rock
		c.Rock = &r
	}
	if e.Well != nil {
		w := *e.Well
		c.Well = &w
	}
	return &c
}

// MovementState is a unit's movement record.
type MovementState struct {
	Vel            mgl64.Vec2
	MoveTarget     *mgl64.Vec2
	Path           []mgl64.Vec2
	PathIdx        int
	Rotation       float64
	AvgVel         mgl64.Vec2
	StuckTimer     int
	UnstuckTimer   int
	LastRepathTick int64
}

// CombatState is a unit's or building's combat record.
type CombatState struct {
	TargetID       EntityID
	Cooldown       int
	Flash          int
	TurretAngle    float64
	LastAttackerID EntityID
	LastDamageTick int64
}

// HarvesterData is the harvester specialization.
type HarvesterData struct {
	Cargo                 int
	ResourceTargetID      EntityID
	BaseTargetID          EntityID
	ManualMode            bool
	FleeCooldownUntilTick int64
}

const MaxHarvesterCargo = 500

// EngineerData is the engineer specialization.
type EngineerData struct {
	CaptureTargetID EntityID
	RepairTargetID  EntityID
}

// AirUnitState enumerates a harrier's lifecycle.
type AirUnitState int

const (
	AirDocked AirUnitState = iota
	AirFlying
	AirAttacking
	AirReturning
)

// AirUnitData is the air-unit specialization.
type AirUnitData struct {
	State      AirUnitState
	HomeBaseID EntityID
	DockedSlot int // -1 if not docked
	Ammo       int
	MaxAmmo    int
}

// DemoTruckData is the demo-truck specialization.
type DemoTruckData struct {
	HasDetonated bool
}

// UnitData is the UNIT variant payload.
type UnitData struct {
	Movement MovementState
	Combat   CombatState

	Harvester *HarvesterData
	Engineer  *EngineerData
	AirUnit   *AirUnitData
	DemoTruck *DemoTruckData
}

// AirBaseSlots is the fixed number of docking slots an air base provides.
const AirBaseSlots = 6

// AirBaseSlot is one dock on an air base.
type AirBaseSlot struct {
	OccupantID     EntityID // 0 = empty
	ReloadProgress int
}

// AirBaseData is the air-base specialization.
type AirBaseData struct {
	Slots          [AirBaseSlots]AirBaseSlot
	LastLaunchTick int64
}

// BuildingData is the BUILDING variant payload.
type BuildingData struct {
	IsRepairing bool
	PlacedTick  int64
	RallyPoint  *mgl64.Vec2

	// RepairAccum carries the fractional HP self-repair hasn't yet
	// resolved into a whole point, the same remainder-carrying shape
	// ProductionItem.InvestedFrac uses for production's per-tick credit spend.
	// RepairCostAccum does the same for the fractional credit cost, since
	// the treasury holds whole credits and the per-tick cost is usually
	// well under one.
	RepairAccum     float64
	RepairCostAccum float64

	Combat  *CombatState // present for defensive turrets
	AirBase *AirBaseData
}

// ResourceData is the RESOURCE (ore) variant payload. Remaining ore is
// carried on the shared Entity.HP/MaxHP fields.
type ResourceData struct{}

// RockData is the ROCK variant payload: a static obstacle with no
// additional state.
type RockData struct{}

// WellData is the WELL variant payload.
type WellData struct {
	NextSpawnTick   int64
	CurrentOreCount int
	IsBlocked       bool
	TotalSpawned    int
	// IsInductionRig marks a well that additionally produces credits for
	// its owner each tick.
	IsInductionRig bool
}
