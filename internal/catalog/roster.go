package catalog

import (
	"fmt"

	"github.com/sc2helper/predictor/internal/combat"
)

// Entry requests Count units of one type. Nil health, shield and energy mean
// full values from the catalog.
type Entry struct {
	Type          string   `json:"type" yaml:"type"`
	Count         int      `json:"count,omitempty" yaml:"count"`
	Health        *float64 `json:"health,omitempty" yaml:"health"`
	Shield        *float64 `json:"shield,omitempty" yaml:"shield"`
	Energy        *float64 `json:"energy,omitempty" yaml:"energy"`
	AttackUpgrade int      `json:"attackUpgrade,omitempty" yaml:"attackUpgrade"`
	ArmorUpgrade  int      `json:"armorUpgrade,omitempty" yaml:"armorUpgrade"`
	ShieldUpgrade int      `json:"shieldUpgrade,omitempty" yaml:"shieldUpgrade"`
}

// Unit builds one combat unit of the named type for owner.
func (c *Catalog) Unit(name string, owner int) (combat.Unit, error) {
	e, ok := c.byName[key(name)]
	if !ok {
		return combat.Unit{}, fmt.Errorf("%w: %w: %q", combat.ErrMissingTypeData, ErrUnknownType, name)
	}
	d := e.def
	u := combat.Unit{
		Owner:     owner,
		Type:      e.data.Type,
		Data:      e.data,
		Health:    d.Health,
		HealthMax: d.Health,
		Shield:    d.Shield,
		ShieldMax: d.Shield,
		Energy:    d.Energy,
		EnergyMax: d.Energy,
		IsFlying:  d.Flying,
		Armor:     d.Armor,
		Radius:    d.Radius,
		Speed:     d.Speed,
	}
	u.FillDerived()
	return u, nil
}

// Resolve expands entries into a roster for owner.
func (c *Catalog) Resolve(owner int, entries []Entry) ([]combat.Unit, error) {
	var units []combat.Unit
	for i, en := range entries {
		u, err := c.Unit(en.Type, owner)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if en.Health != nil {
			u.Health = *en.Health
		}
		if en.Shield != nil {
			u.Shield = *en.Shield
		}
		if en.Energy != nil {
			u.Energy = *en.Energy
		}
		u.AttackUpgrade = en.AttackUpgrade
		u.ArmorUpgrade = en.ArmorUpgrade
		u.ShieldUpgrade = en.ShieldUpgrade

		n := en.Count
		if n == 0 {
			n = 1
		}
		if n < 0 {
			return nil, fmt.Errorf("entry %d: %w: negative count", i, combat.ErrInvalidConfiguration)
		}
		for range n {
			units = append(units, u)
		}
	}
	return units, nil
}
