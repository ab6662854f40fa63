package world

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/randfold"
	"github.com/egeozcan/rtsim/rules"
)

// difficultyBuildSpeedBonus is the per-difficulty production speed
// multiplier AI players receive.
func difficultyBuildSpeedBonus(d Difficulty) float64 {
	switch d {
	case DifficultyEasy:
		return 0.85
	case DifficultyMedium:
		return 1.0
	case DifficultyHard:
		return 1.3
	default:
		return 1.0
	}
}

// tickProduction advances every player/category production queue one
// tick.
func tickProduction(s *State, catalog rules.Catalog, log *slog.Logger) {
	for _, player := range s.OrderedPlayers() {
		for _, cat := range productionCategories {
			tickQueueForCategory(s, player.ID, cat, catalog, log)
		}
	}
}

var productionCategories = []rules.Category{
	rules.CategoryBuilding, rules.CategoryInfantry, rules.CategoryVehicle, rules.CategoryAir,
}

func tickQueueForCategory(s *State, pid PlayerID, cat rules.Category, catalog rules.Catalog, log *slog.Logger) {
	player := s.Players[pid]
	if player == nil {
		return
	}
	q := player.Queues[cat]
	if q == nil || q.Current == nil {
		return
	}
	entry, ok := catalog.Lookup(q.Current.Key)
	if !ok {
		return
	}

	validBuildings := countValidProductionBuildings(s, pid, cat, catalog)
	if validBuildings == 0 || !prereqsHold(s, pid, entry.Prereqs) {
		player = s.mutablePlayer(pid)
		q = player.Queues[cat]
		player.Credits += q.Current.Invested
		q.Current = nil
		pullNextQueued(s, player, cat, catalog)
		return
	}

	speedMult := 1 + 0.5*float64(validBuildings-1)
	if player.PowerStarved() {
		speedMult *= 0.25
	}
	if player.IsAI {
		speedMult *= difficultyBuildSpeedBonus(player.Difficulty)
	}

	cost := entry.Cost
	if cost <= 0 {
		cost = 1
	}
	perTickCost := (float64(cost) / 600.0) * speedMult

	// The treasury holds whole credits while per-tick costs are
	// fractional, so spend through the item's fractional ledger and
	// settle whole credits as they accrue. Once the player cannot cover
	// the next whole credit, the fractional spend clamps too and progress
	// halts with Invested equal to exactly what was deducted.
	player = s.mutablePlayer(pid)
	q = player.Queues[cat]
	want := math.Min(q.Current.InvestedFrac+perTickCost, float64(q.Current.Invested+player.Credits))
	want = math.Min(want, float64(cost))
	if owed := int(want) - q.Current.Invested; owed > 0 {
		player.Credits -= owed
		q.Current.Invested += owed
	}
	q.Current.InvestedFrac = want
	q.Current.Progress = (q.Current.InvestedFrac / float64(cost)) * 100

	if q.Current.Progress < 100 {
		return
	}
	q.Current.Progress = 100

	if entry.Category == rules.CategoryBuilding {
		player.ReadyToPlace = &ReadyBuilding{Key: entry.Key}
		q.Current = nil
		pullNextQueued(s, player, cat, catalog)
		return
	}
	if entry.HasTag("fly") || entry.Fly {
		if spawnAirUnit(s, player, entry) {
			q.Current = nil
			pullNextQueued(s, player, cat, catalog)
		}
		// else: progress stays pinned at 100 until a slot frees.
		return
	}
	spawnGroundUnit(s, player, entry)
	q.Current = nil
	pullNextQueued(s, player, cat, catalog)
}

func pullNextQueued(s *State, player *Player, cat rules.Category, catalog rules.Catalog) {
	q := player.Queues[cat]
	if q.Current != nil || len(q.Queued) == 0 {
		return
	}
	next := q.Queued[0]
	q.Queued = q.Queued[1:]
	q.Current = &ProductionItem{Key: next}
}

func countValidProductionBuildings(s *State, pid PlayerID, cat rules.Category, catalog rules.Catalog) int {
	count := 0
	for _, e := range s.Entities {
		if e.Dead || e.Kind != KindBuilding || e.Owner != pid {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if !ok || !entry.HasTag("produces_"+string(cat)) {
			continue
		}
		count++
	}
	return count
}

func prereqsHold(s *State, pid PlayerID, prereqs []rules.Key) bool {
	for _, req := range prereqs {
		found := false
		for _, e := range s.Entities {
			if !e.Dead && e.Kind == KindBuilding && e.Owner == pid && e.Key == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func primaryOrFirstBuilding(s *State, pid PlayerID, cat rules.Category, catalog rules.Catalog, player *Player) *Entity {
	if id, ok := player.PrimaryBuildings[cat]; ok {
		if e := s.Entities[id]; e != nil && !e.Dead {
			return e
		}
	}
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != KindBuilding || e.Owner != pid {
			continue
		}
		entry, ok := catalog.Lookup(e.Key)
		if ok && entry.HasTag("produces_"+string(cat)) {
			return e
		}
	}
	return nil
}

func spawnGroundUnit(s *State, player *Player, entry rules.Entry) {
	building := primaryOrFirstBuildingForUnit(s, player, entry)
	var spawnPos mgl64.Vec2
	var rally *mgl64.Vec2
	if building != nil {
		spawnPos = mgl64.Vec2{building.Pos[0], building.Pos[1] + building.Radius + 20}
		jitterX := randfold.UniformRange(s.Tick, uint64(building.ID), randfold.SaltSpawnJitter, -15, 15)
		jitterY := randfold.UniformRange(s.Tick, uint64(building.ID), randfold.SaltSpawnJitter+1, -15, 15)
		spawnPos = spawnPos.Add(mgl64.Vec2{jitterX, jitterY})
		rally = building.Building.RallyPoint
	}
	u := &Entity{
		Kind:   KindUnit,
		Key:    entry.Key,
		Owner:  player.ID,
		Pos:    spawnPos,
		Radius: 12,
		HP:     entry.HP,
		MaxHP:  entry.HP,
		Unit:   &UnitData{},
	}
	if rally != nil {
		u.Unit.Movement.MoveTarget = vec2Ptr(*rally)
	}
	if entry.HasTag("harvester") {
		u.Unit.Harvester = &HarvesterData{}
	}
	if entry.HasTag("engineer") || entry.HasTag("hijacker") {
		// Hijackers reuse the engineer's capture/repair mechanism: a
		// hijacker "capturing" an enemy vehicle and an engineer capturing
		// an enemy building are the same ownership-transfer operation in
		// tickEngineers, just aimed at a different entity kind.
		u.Unit.Engineer = &EngineerData{}
	}
	if entry.HasTag("demo_truck") {
		u.Unit.DemoTruck = &DemoTruckData{}
	}
	s.AddEntity(u)
}

func primaryOrFirstBuildingForUnit(s *State, player *Player, entry rules.Entry) *Entity {
	// Ground units spawn from whichever production building can build
	// their category; reuse the same primary-or-first lookup keyed by
	// the unit's category.
	ordered := s.OrderedEntities()
	for _, e := range ordered {
		if e.Dead || e.Kind != KindBuilding || e.Owner != player.ID {
			continue
		}
		for _, pb := range entry.ProducedBy {
			if e.Key == pb {
				if id, ok := player.PrimaryBuildings[entry.Category]; ok && id == e.ID {
					return e
				}
			}
		}
	}
	for _, e := range ordered {
		if e.Dead || e.Kind != KindBuilding || e.Owner != player.ID {
			continue
		}
		for _, pb := range entry.ProducedBy {
			if e.Key == pb {
				return e
			}
		}
	}
	return nil
}

// spawnAirUnit attempts to dock a new air unit at an air base with a free
// slot. Returns false if no slot is currently free, in which case the
// caller must keep progress pinned at 100 until one does.
func spawnAirUnit(s *State, player *Player, entry rules.Entry) bool {
	for _, e := range s.OrderedEntities() {
		if e.Dead || e.Kind != KindBuilding || e.Owner != player.ID || e.Building.AirBase == nil {
			continue
		}
		for slotIdx := range e.Building.AirBase.Slots {
			if e.Building.AirBase.Slots[slotIdx].OccupantID != 0 {
				continue
			}
			building := s.mutableEntity(e.ID)
			u := &Entity{
				Kind:   KindUnit,
				Key:    entry.Key,
				Owner:  player.ID,
				Pos:    building.Pos,
				Radius: 12,
				HP:     entry.HP,
				MaxHP:  entry.HP,
				Unit: &UnitData{
					AirUnit: &AirUnitData{
						State:      AirDocked,
						HomeBaseID: building.ID,
						DockedSlot: slotIdx,
						Ammo:       4,
						MaxAmmo:    4,
					},
				},
			}
			id := s.AddEntity(u)
			building.Building.AirBase.Slots[slotIdx].OccupantID = id
			return true
		}
	}
	return false
}
