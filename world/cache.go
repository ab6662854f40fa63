package world

// EntityCache buckets entities by owner and kind for callers that would
// otherwise rescan the full entity map within a tick. Neither Kernel.Tick
// nor the AI planner builds one.
type EntityCache struct {
	byOwnerBuildings map[PlayerID][]*Entity
	byOwnerUnits     map[PlayerID][]*Entity
	all              []*Entity
}

// NewEntityCache buckets every live entity in s by owner and kind.
func NewEntityCache(s *State) *EntityCache {
	c := &EntityCache{
		byOwnerBuildings: make(map[PlayerID][]*Entity),
		byOwnerUnits:     make(map[PlayerID][]*Entity),
		all:              make([]*Entity, 0, len(s.Entities)),
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead {
			continue
		}
		c.all = append(c.all, e)
		switch e.Kind {
		case KindBuilding:
			c.byOwnerBuildings[e.Owner] = append(c.byOwnerBuildings[e.Owner], e)
		case KindUnit:
			c.byOwnerUnits[e.Owner] = append(c.byOwnerUnits[e.Owner], e)
		}
	}
	return c
}

// Buildings returns owner's live buildings.
func (c *EntityCache) Buildings(owner PlayerID) []*Entity { return c.byOwnerBuildings[owner] }

// Units returns owner's live units.
func (c *EntityCache) Units(owner PlayerID) []*Entity { return c.byOwnerUnits[owner] }

// All returns every live entity in ascending id order.
func (c *EntityCache) All() []*Entity { return c.all }

// Enemies returns every live unit or building not owned by owner and not
// neutral.
func (c *EntityCache) Enemies(owner PlayerID) []*Entity {
	var out []*Entity
	for _, e := range c.all {
		if e.Owner != 0 && e.Owner != owner && (e.Kind == KindUnit || e.Kind == KindBuilding) {
			out = append(out, e)
		}
	}
	return out
}
