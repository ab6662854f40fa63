package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/egeozcan/rtsim/rules"
)

// projectileHitRadius is how close a projectile must come to its target's
// center before it is considered to have struck.
const projectileHitRadius = 15.0

// outOfBoundsMargin lets a projectile fly a little past the map edge before
// it is discarded, so a shot fired near the border doesn't vanish mid-flight.
const outOfBoundsMargin = 200.0

// weaponSpeed is the per-tick travel distance for each weapon type.
// Missiles home and travel fastest; rocket and heavy cannon rounds are
// slowest.
func weaponSpeed(w rules.WeaponType) float64 {
	switch w {
	case rules.WeaponBullet:
		return 18.0
	case rules.WeaponRocket, rules.WeaponHeavyCannon:
		return 9.0
	case rules.WeaponMissile:
		return 28.0
	default:
		return 18.0
	}
}

// fireProjectile appends a new in-flight projectile to s.Projectiles, aimed
// at target's current position. Projectiles persist in State across ticks
// (unlike the spatial/pathfinding scratch grids) since they are
// authoritative simulation state.
func fireProjectile(s *State, origin mgl64.Vec2, owner PlayerID, entry rules.Entry, targetID EntityID, targetPos mgl64.Vec2) {
	dir := targetPos.Sub(origin)
	if dir.LenSqr() < 1e-9 {
		dir = mgl64.Vec2{1, 0}
	} else {
		dir = dir.Normalize()
	}
	speed := weaponSpeed(entry.Weapon)
	s.Projectiles = append(s.Projectiles, &Projectile{
		ID:         s.nextProjectileID(),
		Owner:      owner,
		Pos:        origin,
		Vel:        dir.Mul(speed),
		Weapon:     entry.Key,
		WeaponType: entry.Weapon,
		TargetID:   targetID,
		BaseDamage: entry.Damage,
		Splash:     entry.Splash,
	})
}

// nextProjectileID borrows the entity id counter so projectile ids never
// collide with entity ids.
func (s *State) nextProjectileID() EntityID {
	s.nextEntityID++
	return s.nextEntityID
}

// tickProjectiles advances every in-flight projectile one step:
// missiles re-home on their target's current position every tick,
// other weapon types fly the straight line set at fire time. A projectile
// is discarded when it leaves the map, when its target has died, or when
// it reaches its target. The last case enqueues a damage event for the
// damage-apply phase rather than mutating HP directly, so every hit this
// tick is applied atomically against the state as it stood when combat was
// resolved.
func tickProjectiles(s *State, catalog rules.Catalog, k *Kernel) {
	live := s.Projectiles[:0:0]
	for _, p := range s.Projectiles {
		target := s.Entities[p.TargetID]
		if target == nil || target.Dead {
			continue
		}
		if p.WeaponType == rules.WeaponMissile {
			dir := target.Pos.Sub(p.Pos)
			if dir.LenSqr() > 1e-9 {
				p.Vel = dir.Normalize().Mul(weaponSpeed(p.WeaponType))
			}
		}
		p.Pos = p.Pos.Add(p.Vel)
		if p.Pos[0] < -outOfBoundsMargin || p.Pos[1] < -outOfBoundsMargin ||
			p.Pos[0] > s.Config.MapWidth+outOfBoundsMargin || p.Pos[1] > s.Config.MapHeight+outOfBoundsMargin {
			continue
		}
		if dist2(p.Pos, target.Pos) <= sq(projectileHitRadius+target.Radius) {
			k.queueDamage(damageEvent{
				TargetID:   p.TargetID,
				AttackerID: 0,
				AttackerOwner: p.Owner,
				Amount:     projectileDamage(p, target, catalog),
				WeaponType: p.WeaponType,
			})
			if p.Splash > 0 {
				k.queueExplosion(explosionEvent{
					Pos:        p.Pos,
					Owner:      p.Owner,
					Radius:     p.Splash,
					Damage:     p.BaseDamage,
					WeaponType: p.WeaponType,
					ExcludeID:  p.TargetID,
				})
			}
			continue
		}
		live = append(live, p)
	}
	s.Projectiles = live
}

func projectileDamage(p *Projectile, target *Entity, catalog rules.Catalog) int {
	mod := catalog.DamageModifier(p.WeaponType, targetArmor(target, catalog))
	dmg := math.Round(float64(p.BaseDamage) * mod)
	if dmg < 0 {
		dmg = 0
	}
	return int(dmg)
}

func targetArmor(target *Entity, catalog rules.Catalog) rules.ArmorClass {
	entry, ok := catalog.Lookup(target.Key)
	if !ok {
		return rules.ArmorNone
	}
	return entry.Armor
}
