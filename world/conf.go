package world

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
)

// MatchPlayer is one seat in a MatchConfig: flat, serializable fields
// describing who sits there and with what.
type MatchPlayer struct {
	ID         uint64  `json:"id"`
	IsAI       bool    `json:"isAi"`
	Difficulty string  `json:"difficulty"`
	Credits    int     `json:"credits"`
	StartX     float64 `json:"startX"`
	StartY     float64 `json:"startY"`
}

// MatchConfig is the flat, serializable description of a match: map
// dimensions, density flags and the seats. It converts into the typed
// runtime pieces (Config plus an initial *State) via New, which resolves
// zero values to sensible defaults and rejects genuinely malformed input
// with an error, the only place in the kernel where setup-time errors
// surface as error values rather than notifications.
type MatchConfig struct {
	MapWidth     float64         `json:"mapWidth"`
	MapHeight    float64         `json:"mapHeight"`
	DensityFlags map[string]bool `json:"densityFlags,omitempty"`
	Mode         string          `json:"mode,omitempty"`
	Players      []MatchPlayer   `json:"players"`
}

const (
	defaultMapExtent      = 3000.0
	defaultStartingCredits = 5000
)

// Config resolves the typed world Config from the flat match description.
func (c MatchConfig) Config() Config {
	cfg := Config{MapWidth: c.MapWidth, MapHeight: c.MapHeight, DensityFlags: c.DensityFlags}
	if cfg.MapWidth <= 0 {
		cfg.MapWidth = defaultMapExtent
	}
	if cfg.MapHeight <= 0 {
		cfg.MapHeight = defaultMapExtent
	}
	return cfg
}

// New validates c and builds the initial *State: one player record per
// seat with resolved difficulty and credits, and an MCV parked at each
// seat's start position so the opening deploy works the same for humans
// and AIs. The log receives a debug line for each seat whose starting
// credits were defaulted; other defaults are applied without logging.
func (c MatchConfig) New(catalog rules.Catalog, log *slog.Logger) (*State, error) {
	if log == nil {
		log = slog.Default()
	}
	if catalog == nil {
		catalog = rules.DefaultCatalog()
	}
	if len(c.Players) == 0 {
		return nil, fmt.Errorf("match config: no players")
	}
	seen := make(map[uint64]bool, len(c.Players))
	for _, mp := range c.Players {
		if mp.ID == 0 {
			return nil, fmt.Errorf("match config: player id 0 is reserved for neutral")
		}
		if seen[mp.ID] {
			return nil, fmt.Errorf("match config: duplicate player id %d", mp.ID)
		}
		seen[mp.ID] = true
		if mp.IsAI {
			if _, err := parseDifficulty(mp.Difficulty); err != nil {
				return nil, fmt.Errorf("match config: player %d: %w", mp.ID, err)
			}
		}
	}

	cfg := c.Config()
	ids := make([]PlayerID, len(c.Players))
	for i, mp := range c.Players {
		ids[i] = PlayerID(mp.ID)
	}
	s := NewState(cfg, ids)
	s.Mode = Mode(c.Mode)

	mcv, hasMCV := catalog.Lookup("mcv")
	for _, mp := range c.Players {
		player := s.Players[PlayerID(mp.ID)]
		player.IsAI = mp.IsAI
		if mp.IsAI {
			d, _ := parseDifficulty(mp.Difficulty)
			player.Difficulty = d
		}
		player.Credits = mp.Credits
		if player.Credits == 0 {
			player.Credits = defaultStartingCredits
			log.Debug("match config: defaulted starting credits", "player", mp.ID, "credits", player.Credits)
		}
		if hasMCV {
			s.AddEntity(&Entity{
				Kind: KindUnit, Key: mcv.Key, Owner: PlayerID(mp.ID),
				Pos:    mgl64.Vec2{mp.StartX, mp.StartY},
				Radius: 15, HP: mcv.HP, MaxHP: mcv.HP,
				Unit: &UnitData{},
			})
		}
	}
	return s, nil
}

func parseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(raw) {
	case DifficultyDummy, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(raw), nil
	case "":
		return DifficultyMedium, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}
