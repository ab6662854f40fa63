package world

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the serializable image of a State: (tick, entities, players,
// projectiles, config) plus the lifecycle flags and the id counter, so a
// decoded snapshot keeps assigning ids exactly where the original left
// off. Every field the kernel reads is exported, which makes
// encoding/json sufficient; there is no custom wire format.
type Snapshot struct {
	Tick         int64                 `json:"tick"`
	Entities     map[EntityID]*Entity  `json:"entities"`
	Players      map[PlayerID]*Player  `json:"players"`
	Projectiles  []*Projectile         `json:"projectiles"`
	Config       Config                `json:"config"`
	Running      bool                  `json:"running"`
	Winner       WinnerState           `json:"winner"`
	Mode         Mode                  `json:"mode"`
	NextEntityID EntityID              `json:"nextEntityId"`
}

// Snapshot captures s. The snapshot deep-clones entities, players and
// projectiles, sharing no mutable memory with s, so callers may keep it
// across ticks.
func (s *State) Snapshot() *Snapshot {
	sn := &Snapshot{
		Tick:         s.Tick,
		Entities:     make(map[EntityID]*Entity, len(s.Entities)),
		Players:      make(map[PlayerID]*Player, len(s.Players)),
		Projectiles:  make([]*Projectile, len(s.Projectiles)),
		Config:       s.Config,
		Running:      s.Running,
		Winner:       s.Winner,
		Mode:         s.Mode,
		NextEntityID: s.nextEntityID,
	}
	for id, e := range s.Entities {
		sn.Entities[id] = e.Clone()
	}
	for id, p := range s.Players {
		sn.Players[id] = p.clone()
	}
	for i, p := range s.Projectiles {
		cp := *p
		sn.Projectiles[i] = &cp
	}
	return sn
}

// State reconstructs a *State from the snapshot. The snapshot is consumed:
// its entity/player/projectile values are adopted directly.
func (sn *Snapshot) State() *State {
	s := &State{
		Tick:         sn.Tick,
		Entities:     sn.Entities,
		Players:      sn.Players,
		Projectiles:  sn.Projectiles,
		Config:       sn.Config,
		Running:      sn.Running,
		Winner:       sn.Winner,
		Mode:         sn.Mode,
		nextEntityID: sn.NextEntityID,
	}
	if s.Entities == nil {
		s.Entities = make(map[EntityID]*Entity)
	}
	if s.Players == nil {
		s.Players = make(map[PlayerID]*Player)
	}
	return s
}

// EncodeState serializes s to JSON. Map keys marshal in sorted order, so
// two bitwise-equal states always produce byte-identical output; the
// determinism tests compare these bytes directly.
func EncodeState(s *State) ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState reverses EncodeState.
func DecodeState(data []byte) (*State, error) {
	var sn Snapshot
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return sn.State(), nil
}
