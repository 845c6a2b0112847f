package combat

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TargetClass is the kind of target a weapon can hit.
type TargetClass uint8

const (
	TargetNone TargetClass = iota
	TargetGround
	TargetAir
	TargetAny
)

func (c TargetClass) String() string {
	switch c {
	case TargetGround:
		return "ground"
	case TargetAir:
		return "air"
	case TargetAny:
		return "any"
	default:
		return "none"
	}
}

// DamageBonus is extra damage per hit against targets carrying Attribute.
type DamageBonus struct {
	Attribute Attribute
	Bonus     float64
}

// Weapon describes one attack of a unit type. Speed is the time between attacks.
type Weapon struct {
	Type    TargetClass
	Damage  float64
	Attacks int
	Range   float64
	Speed   float64
	Bonuses []DamageBonus
	// Splash multiplies the damage of each action when splash is enabled.
	// Values below 1 have no effect.
	Splash float64
}

// RawDPS is the weapon's damage per second before bonuses and armor.
func (w Weapon) RawDPS() float64 {
	if w.Speed <= 0 {
		return 0
	}
	return w.Damage * float64(w.Attacks) / w.Speed
}

// CanHit reports whether the weapon applies to the target's class.
func (w Weapon) CanHit(target *Unit) bool {
	switch {
	case w.Type == TargetAny:
		return true
	case target.CanBeAttackedByAir():
		return w.Type == TargetAir
	default:
		return w.Type == TargetGround
	}
}

// EffectiveDPS is the damage per second the weapon deals to target once attribute
// bonuses, upgrades and armor are accounted for. Armor is scaled by the health share
// of the target's total pool since shield and health damage are not told apart.
func EffectiveDPS(attacker *Unit, w Weapon, target *Unit) float64 {
	if !w.CanHit(target) || w.Speed <= 0 {
		return 0
	}

	dmg := w.Damage
	for _, b := range w.Bonuses {
		if target.HasAttribute(b.Attribute) {
			dmg += b.Bonus
		}
	}
	dmg += float64(attacker.AttackUpgrade)

	armor := target.Armor + float64(target.ArmorUpgrade)
	if pool := target.HealthMax + target.ShieldMax; pool > 0 {
		armor = armor * target.HealthMax / pool
	}

	if dmg-armor <= 0 {
		return 0
	}
	return (dmg - armor) * float64(w.Attacks) / w.Speed
}

// WeaponDPS returns the effective DPS of the attacker's air and ground weapons
// against target. A missing weapon contributes zero.
func WeaponDPS(attacker, target *Unit) (air, ground float64) {
	if w, ok := attacker.AirWeapon(); ok {
		air = EffectiveDPS(attacker, w, target)
	}
	if w, ok := attacker.GroundWeapon(); ok {
		ground = EffectiveDPS(attacker, w, target)
	}
	return air, ground
}

type dpsKey struct {
	attacker      UnitType
	attackUpgrade int
	target        UnitType
	armorUpgrade  int
}

type dpsEntry struct {
	air, ground float64
}

// DPSCache memoizes WeaponDPS per attacker/target type pair and upgrade levels.
// Health and shield maxima are assumed constant per type within one engagement.
type DPSCache struct {
	mu      sync.RWMutex
	entries map[dpsKey]dpsEntry
}

func NewDPSCache() *DPSCache {
	return &DPSCache{entries: make(map[dpsKey]dpsEntry)}
}

func keyFor(attacker, target *Unit) dpsKey {
	return dpsKey{
		attacker:      attacker.Type,
		attackUpgrade: attacker.AttackUpgrade,
		target:        target.Type,
		armorUpgrade:  target.ArmorUpgrade,
	}
}

// Lookup returns the cached air and ground DPS, computing and storing them on a miss.
func (c *DPSCache) Lookup(attacker, target *Unit) (air, ground float64) {
	k := keyFor(attacker, target)
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return e.air, e.ground
	}

	air, ground = WeaponDPS(attacker, target)
	c.mu.Lock()
	c.entries[k] = dpsEntry{air: air, ground: ground}
	c.mu.Unlock()
	return air, ground
}

// Len returns the number of cached pairs.
func (c *DPSCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Build fills the cache for every pairing across the two rosters. With parallel set,
// each attacker type is computed on its own goroutine.
func (c *DPSCache) Build(ctx context.Context, units1, units2 []Unit, parallel bool) error {
	type pair struct{ attackers, targets []Unit }
	pairs := []pair{{units1, units2}, {units2, units1}}

	if !parallel {
		for _, p := range pairs {
			for i := range p.attackers {
				for j := range p.targets {
					c.Lookup(&p.attackers[i], &p.targets[j])
				}
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pairs {
		for _, a := range representatives(p.attackers) {
			targets := representatives(p.targets)
			g.Go(func() error {
				for _, t := range targets {
					if err := ctx.Err(); err != nil {
						return err
					}
					c.Lookup(a, t)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// representatives returns one unit per distinct cache key component.
func representatives(units []Unit) []*Unit {
	type k struct {
		t          UnitType
		atk, armor int
	}
	seen := make(map[k]struct{}, len(units))
	out := make([]*Unit, 0, len(units))
	for i := range units {
		key := k{units[i].Type, units[i].AttackUpgrade, units[i].ArmorUpgrade}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, &units[i])
	}
	return out
}
