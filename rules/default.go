package rules

// DefaultCatalog returns a small but complete ruleset covering one of
// each entity family, enough to drive the kernel's unit tests and a
// playable skirmish. Real deployments are expected to supply their own,
// larger catalog.
func DefaultCatalog() *StaticCatalog {
	entries := []Entry{
		{Key: "power_plant", Category: CategoryBuilding, Cost: 300, HP: 400, Armor: ArmorStructure, Tags: map[string]bool{"power": true}},
		{Key: "conyard", Category: CategoryBuilding, Cost: 0, HP: 1000, Armor: ArmorStructure, Tags: map[string]bool{"conyard": true, "produces_building": true}},
		{Key: "barracks", Category: CategoryBuilding, Cost: 500, HP: 500, Armor: ArmorStructure, Tags: map[string]bool{"produces_infantry": true}},
		{Key: "war_factory", Category: CategoryBuilding, Cost: 2000, HP: 600, Armor: ArmorStructure, Prereqs: []Key{"barracks"}, Tags: map[string]bool{"produces_vehicle": true}},
		{Key: "refinery", Category: CategoryBuilding, Cost: 2000, HP: 500, Armor: ArmorStructure, Tags: map[string]bool{"refinery": true}},
		{Key: "air_base", Category: CategoryBuilding, Cost: 1200, HP: 400, Armor: ArmorStructure, Prereqs: []Key{"war_factory"}, Tags: map[string]bool{"produces_air": true, "air_base": true}},
		{Key: "service_depot", Category: CategoryBuilding, Cost: 800, HP: 400, Armor: ArmorStructure, Prereqs: []Key{"war_factory"}, Tags: map[string]bool{"service_depot": true}},
		{Key: "gun_turret", Category: CategoryBuilding, Cost: 600, HP: 300, Armor: ArmorStructure, IsDefense: true, Weapon: WeaponCannon, Damage: 30, Rate: 40, Range: 350, Tags: map[string]bool{"defense": true}},
		{Key: "sam_site", Category: CategoryBuilding, Cost: 700, HP: 300, Armor: ArmorStructure, IsDefense: true, Weapon: WeaponMissile, Damage: 45, Rate: 60, Range: 450, Tags: map[string]bool{"defense": true, "anti_air": true}},
		{Key: "induction_rig", Category: CategoryBuilding, Cost: 1500, HP: 300, Armor: ArmorStructure, Tags: map[string]bool{"induction_rig": true}},

		{Key: "rifle_infantry", Category: CategoryInfantry, Cost: 100, HP: 50, Armor: ArmorLight, Weapon: WeaponBullet, Damage: 10, Rate: 15, Range: 150, Speed: 2.2, ProducedBy: []Key{"barracks"}},
		{Key: "rocket_soldier", Category: CategoryInfantry, Cost: 160, HP: 60, Armor: ArmorLight, Weapon: WeaponRocket, Damage: 35, Rate: 45, Range: 250, Speed: 2.0, ProducedBy: []Key{"barracks"}},
		{Key: "engineer", Category: CategoryInfantry, Cost: 500, HP: 25, Armor: ArmorLight, Speed: 2.0, ProducedBy: []Key{"barracks"}, MaxCount: 3, Tags: map[string]bool{"engineer": true}},
		{Key: "hijacker", Category: CategoryInfantry, Cost: 300, HP: 25, Armor: ArmorLight, Speed: 2.0, ProducedBy: []Key{"barracks"}, MaxCount: 2, Tags: map[string]bool{"hijacker": true}},

		{Key: "harvester", Category: CategoryVehicle, Cost: 1400, HP: 200, Armor: ArmorHeavy, Speed: 3.0, ProducedBy: []Key{"war_factory"}, Tags: map[string]bool{"harvester": true}},
		{Key: "light_tank", Category: CategoryVehicle, Cost: 800, HP: 300, Armor: ArmorHeavy, Weapon: WeaponCannon, Damage: 40, Rate: 35, Range: 200, Speed: 3.2, ProducedBy: []Key{"war_factory"}},
		{Key: "heavy_tank", Category: CategoryVehicle, Cost: 1600, HP: 500, Armor: ArmorHeavy, Weapon: WeaponHeavyCannon, Damage: 75, Rate: 50, Range: 220, Speed: 2.4, ProducedBy: []Key{"war_factory"}},
		{Key: "mcv", Category: CategoryVehicle, Cost: 3000, HP: 600, Armor: ArmorHeavy, Speed: 1.8, ProducedBy: []Key{"war_factory"}, Tags: map[string]bool{"mcv": true}},
		{Key: "demo_truck", Category: CategoryVehicle, Cost: 1200, HP: 100, Armor: ArmorLight, Weapon: WeaponExplosion, Damage: 600, Splash: 300, Speed: 2.8, ProducedBy: []Key{"war_factory"}, Tags: map[string]bool{"demo_truck": true}},

		{Key: "harrier", Category: CategoryAir, Cost: 1200, HP: 120, Armor: ArmorFlak, Weapon: WeaponRocket, Damage: 60, Rate: 30, Range: 300, Speed: 9, ProducedBy: []Key{"air_base"}, Tags: map[string]bool{"fly": true}, Fly: true},
	}
	mods := map[[2]string]float64{
		{string(WeaponBullet), string(ArmorHeavy)}:       0.5,
		{string(WeaponBullet), string(ArmorLight)}:       1.0,
		{string(WeaponCannon), string(ArmorHeavy)}:        1.0,
		{string(WeaponCannon), string(ArmorLight)}:        1.25,
		{string(WeaponRocket), string(ArmorHeavy)}:        1.5,
		{string(WeaponRocket), string(ArmorStructure)}:    0.75,
		{string(WeaponHeavyCannon), string(ArmorStructure)}: 1.5,
		{string(WeaponMissile), string(ArmorFlak)}:        1.5,
		{string(WeaponExplosion), string(ArmorStructure)}: 1.0,
	}
	return NewStaticCatalog(entries, mods)
}
