package combat

import (
	"fmt"
	"slices"
)

// UnitType is the game's numeric unit type identifier.
type UnitType uint32

// Unit types the engine treats specially. Values match the game's type ids.
const (
	Colossus         UnitType = 4
	Baneling         UnitType = 9
	SCV              UnitType = 45
	Marine           UnitType = 48
	Medivac          UnitType = 54
	Battlecruiser    UnitType = 57
	Zealot           UnitType = 73
	DarkTemplar      UnitType = 76
	Probe            UnitType = 84
	Drone            UnitType = 104
	Zergling         UnitType = 105
	Ultralisk        UnitType = 109
	BanelingBurrowed UnitType = 115
	ZerglingBurrowed UnitType = 119
	Broodling        UnitType = 289
	HellionTank      UnitType = 484
)

var meleeTypes = map[UnitType]struct{}{
	Probe:            {},
	Zealot:           {},
	DarkTemplar:      {},
	SCV:              {},
	HellionTank:      {},
	Drone:            {},
	Zergling:         {},
	ZerglingBurrowed: {},
	Baneling:         {},
	BanelingBurrowed: {},
	Ultralisk:        {},
	Broodling:        {},
}

var harvesterTypes = map[UnitType]struct{}{
	SCV:   {},
	Probe: {},
	Drone: {},
}

// VespeneMultiplier weighs vespene against minerals in AdjustedCost.
const VespeneMultiplier = 1.5

// Attribute is a unit classification that weapon bonuses key on.
type Attribute uint8

const (
	Light Attribute = iota + 1
	Armored
	Biological
	Mechanical
	Robotic
	Psionic
	Massive
	Structure
	Hover
	Heroic
	Summoned
)

var attributeNames = map[Attribute]string{
	Light:      "Light",
	Armored:    "Armored",
	Biological: "Biological",
	Mechanical: "Mechanical",
	Robotic:    "Robotic",
	Psionic:    "Psionic",
	Massive:    "Massive",
	Structure:  "Structure",
	Hover:      "Hover",
	Heroic:     "Heroic",
	Summoned:   "Summoned",
}

func (a Attribute) String() string {
	if n, ok := attributeNames[a]; ok {
		return n
	}
	return "Unknown"
}

// ParseAttribute maps a name such as "Armored" back to its Attribute.
func ParseAttribute(name string) (Attribute, bool) {
	for a, n := range attributeNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// TypeData is the static per-type information shared by every unit of that type.
type TypeData struct {
	Type        UnitType
	Name        string
	MineralCost int
	VespeneCost int
	Attributes  []Attribute
	Weapons     []Weapon
}

// Unit is one combatant in a roster. Health <= HealthMax and Shield <= ShieldMax;
// a unit at zero health is dead.
type Unit struct {
	Owner int
	Type  UnitType
	Data  *TypeData

	Health    float64
	HealthMax float64
	Shield    float64
	ShieldMax float64
	Energy    float64
	EnergyMax float64
	BuffTimer float64

	IsFlying bool

	GroundDPS   float64
	GroundRange float64
	AirDPS      float64
	AirRange    float64

	Armor  float64
	Radius float64
	Speed  float64

	AttackUpgrade int
	ArmorUpgrade  int
	ShieldUpgrade int
}

// Name is the display name of the unit's type.
func (u *Unit) Name() string {
	if u.Data == nil || u.Data.Name == "" {
		return fmt.Sprintf("type-%d", u.Type)
	}
	return u.Data.Name
}

// IsAlive reports whether the unit still has health left.
func (u *Unit) IsAlive() bool {
	return u.Health > 0
}

func (u *Unit) IsMelee() bool {
	_, ok := meleeTypes[u.Type]
	return ok
}

// IsHarvester reports whether the unit is a basic worker.
func (u *Unit) IsHarvester() bool {
	_, ok := harvesterTypes[u.Type]
	return ok
}

// IsHealer reports whether the unit heals allies instead of attacking.
func (u *Unit) IsHealer() bool {
	return u.Type == Medivac
}

// CanBeAttackedByAir is true for flying units and for the Colossus, which is tall
// enough to be hit by anti-air weapons.
func (u *Unit) CanBeAttackedByAir() bool {
	return u.IsFlying || u.Type == Colossus
}

func (u *Unit) MaxRange() float64 {
	return max(u.AirRange, u.GroundRange)
}

func (u *Unit) MaxDPS() float64 {
	return max(u.AirDPS, u.GroundDPS)
}

// TotalHealth is health plus shield.
func (u *Unit) TotalHealth() float64 {
	return u.Health + u.Shield
}

// HasAttribute reports whether the unit's type carries the attribute.
func (u *Unit) HasAttribute(a Attribute) bool {
	if u.Data == nil {
		return false
	}
	return slices.Contains(u.Data.Attributes, a)
}

// AdjustedCost is minerals plus VespeneMultiplier times vespene, truncated.
func (u *Unit) AdjustedCost() int {
	if u.Data == nil {
		return 0
	}
	return u.Data.MineralCost + int(VespeneMultiplier*float64(u.Data.VespeneCost))
}

// AirWeapon returns the first weapon able to hit air targets.
func (u *Unit) AirWeapon() (Weapon, bool) {
	return u.firstWeapon(TargetAir)
}

// GroundWeapon returns the first weapon able to hit ground targets.
func (u *Unit) GroundWeapon() (Weapon, bool) {
	return u.firstWeapon(TargetGround)
}

func (u *Unit) firstWeapon(class TargetClass) (Weapon, bool) {
	if u.Data == nil {
		return Weapon{}, false
	}
	for _, w := range u.Data.Weapons {
		if w.Type == class || w.Type == TargetAny {
			return w, true
		}
	}
	return Weapon{}, false
}

// ModifyHealth applies delta to the unit. Damage drains the shield first and then
// health, clamped at zero. Healing raises health up to HealthMax.
func (u *Unit) ModifyHealth(delta float64) {
	if delta < 0 {
		u.Shield += delta
		if u.Shield < 0 {
			u.Health += u.Shield
			u.Shield = 0
			if u.Health < 0 {
				u.Health = 0
			}
		}
		return
	}
	u.Health = min(u.Health+delta, u.HealthMax)
}

// FillDerived derives GroundDPS/AirDPS and their ranges from the weapons when the
// record leaves them zero.
func (u *Unit) FillDerived() {
	if w, ok := u.GroundWeapon(); ok {
		if u.GroundDPS == 0 {
			u.GroundDPS = w.RawDPS()
		}
		if u.GroundRange == 0 {
			u.GroundRange = w.Range
		}
	}
	if w, ok := u.AirWeapon(); ok {
		if u.AirDPS == 0 {
			u.AirDPS = w.RawDPS()
		}
		if u.AirRange == 0 {
			u.AirRange = w.Range
		}
	}
}
