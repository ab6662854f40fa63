package world

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
)

// Difficulty is an AI opponent's difficulty tier, affecting build speed,
// strategy cooldowns and desperation thresholds.
type Difficulty string

const (
	DifficultyDummy  Difficulty = "dummy"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ProductionItem is one in-progress production slot. Per-tick costs are
// fractions of a credit (cost/600), while the treasury holds whole
// credits, so InvestedFrac carries the exact fractional spend and Invested
// the whole credits actually deducted so far; cancelling refunds exactly
// Invested, never the nominal cost.
type ProductionItem struct {
	Key          rules.Key
	Progress     float64 // 0..100
	Invested     int
	InvestedFrac float64
}

// ProductionQueue is one category's queue for a player.
type ProductionQueue struct {
	Current *ProductionItem
	Queued  []rules.Key
}

// ReadyBuilding is a finished building awaiting placement.
type ReadyBuilding struct {
	Key rules.Key
}

// Player is one match seat's persistent state.
type Player struct {
	ID         PlayerID
	IsAI       bool
	Difficulty Difficulty

	Credits   int
	MaxPower  int
	UsedPower int

	Queues map[rules.Category]*ProductionQueue

	ReadyToPlace *ReadyBuilding

	// PrimaryBuildings maps a category to the building entity id treated
	// as primary for spawn-point/rally purposes.
	PrimaryBuildings map[rules.Category]EntityID

	// Alive tracks whether the player still owns a building or MCV. Set by
	// the victory-check phase; eliminated players keep their historical
	// Player record (for post-mortem inspection) but Alive flips to false
	// exactly once.
	Alive bool

	Notification string
}

// PowerStarved reports whether the player's production/repair/launch
// throughput should be throttled this tick.
func (p *Player) PowerStarved() bool {
	return p.MaxPower < p.UsedPower
}

// Config holds the per-match world parameters: map dimensions and
// density flags.
type Config struct {
	MapWidth     float64
	MapHeight    float64
	DensityFlags map[string]bool
}

// WinnerState records the outcome of the victory check.
type WinnerState struct {
	Decided  bool
	Draw     bool
	PlayerID PlayerID
}

// Mode is a lifecycle tag for the match (e.g. "skirmish", "test"); the
// kernel does not interpret it, only carries it for external consumers.
type Mode string

// State is the immutable-by-tick world state. Tick returns a new *State;
// callers must treat the *State they pass to Tick as consumed and not
// mutate it afterward.
type State struct {
	Tick int64

	Entities map[EntityID]*Entity
	Players  map[PlayerID]*Player

	Projectiles []*Projectile

	Config Config

	Running bool
	Winner  WinnerState
	Mode    Mode

	nextEntityID EntityID
}

// NewState creates an empty, running State for the given config and
// players. Player order is irrelevant; pass the ids that will own
// entities.
func NewState(cfg Config, playerIDs []PlayerID) *State {
	s := &State{
		Entities: make(map[EntityID]*Entity),
		Players:  make(map[PlayerID]*Player),
		Config:   cfg,
		Running:  true,
	}
	for _, id := range playerIDs {
		s.Players[id] = &Player{
			ID:               id,
			Queues:           defaultQueues(),
			PrimaryBuildings: make(map[rules.Category]EntityID),
			Alive:            true,
		}
	}
	return s
}

func defaultQueues() map[rules.Category]*ProductionQueue {
	return map[rules.Category]*ProductionQueue{
		rules.CategoryBuilding: {},
		rules.CategoryInfantry: {},
		rules.CategoryVehicle:  {},
		rules.CategoryAir:      {},
	}
}

// Clone returns a shallow-enough copy of s for the kernel to mutate while
// building the next tick: the entity and player maps are copied (so
// insertion/deletion doesn't alias the source state) but entity/player
// values are only deep-cloned lazily by callers that need to mutate them,
// via Entity.Clone / Player.clone. It avoids a full per-entity copy on
// every tick (most entities are untouched most ticks) while still handing
// callers a new *State each time, keeping Tick's external contract pure.
func (s *State) Clone() *State {
	ns := &State{
		Tick:         s.Tick,
		Entities:     make(map[EntityID]*Entity, len(s.Entities)),
		Players:      make(map[PlayerID]*Player, len(s.Players)),
		Config:       s.Config,
		Running:      s.Running,
		Winner:       s.Winner,
		Mode:         s.Mode,
		nextEntityID: s.nextEntityID,
	}
	for id, e := range s.Entities {
		ns.Entities[id] = e
	}
	for id, p := range s.Players {
		ns.Players[id] = p
	}
	ns.Projectiles = append([]*Projectile(nil), s.Projectiles...)
	return ns
}

func (p *Player) clone() *Player {
	np := *p
	np.Queues = make(map[rules.Category]*ProductionQueue, len(p.Queues))
	for cat, q := range p.Queues {
		nq := &ProductionQueue{Queued: append([]rules.Key(nil), q.Queued...)}
		if q.Current != nil {
			ci := *q.Current
			nq.Current = &ci
		}
		np.Queues[cat] = nq
	}
	np.PrimaryBuildings = make(map[rules.Category]EntityID, len(p.PrimaryBuildings))
	for k, v := range p.PrimaryBuildings {
		np.PrimaryBuildings[k] = v
	}
	if p.ReadyToPlace != nil {
		rb := *p.ReadyToPlace
		np.ReadyToPlace = &rb
	}
	return &np
}

// mutablePlayer installs a fresh clone of player id into s and returns it,
// on every call. Used throughout the kernel so that the prior tick's
// *State remains untouched by later mutation.
func (s *State) mutablePlayer(id PlayerID) *Player {
	p := s.Players[id]
	if p == nil {
		return nil
	}
	np := p.clone()
	s.Players[id] = np
	return np
}

// mutableEntity installs a fresh clone of id's entity into s and returns
// it, so the prior tick's *State is never written through. Callers must
// re-fetch before writing rather than hold a clone across other
// mutableEntity calls for the same id.
func (s *State) mutableEntity(id EntityID) *Entity {
	e := s.Entities[id]
	if e == nil {
		return nil
	}
	ne := e.Clone()
	s.Entities[id] = ne
	return ne
}

// OrderedEntities returns every entity sorted by ascending id. The entity
// map's iteration order is unspecified, so every phase that mutates state,
// assigns new ids, emits events or breaks distance ties while walking the
// entities must walk this slice instead: identical runs must produce
// bitwise-identical states, and that includes float summation order and
// id-assignment order.
func (s *State) OrderedEntities() []*Entity {
	ids := make([]EntityID, 0, len(s.Entities))
	for id := range s.Entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Entity, len(ids))
	for i, id := range ids {
		out[i] = s.Entities[id]
	}
	return out
}

// OrderedPlayers returns every player sorted by ascending id, for the same
// reason OrderedEntities exists.
func (s *State) OrderedPlayers() []*Player {
	ids := make([]PlayerID, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Player, len(ids))
	for i, id := range ids {
		out[i] = s.Players[id]
	}
	return out
}

// AddEntity assigns the next id and inserts e, returning the id.
func (s *State) AddEntity(e *Entity) EntityID {
	s.nextEntityID++
	e.ID = s.nextEntityID
	s.Entities[e.ID] = e
	return e.ID
}

// Projectile is one live round in flight.
type Projectile struct {
	ID         EntityID
	Owner      PlayerID
	Pos        mgl64.Vec2
	Vel        mgl64.Vec2
	Weapon     rules.Key // catalog key of the firer, to look up weapon/armor modifiers lazily
	WeaponType rules.WeaponType
	TargetID   EntityID
	BaseDamage int
	Splash     float64
}
