package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sc2helper/predictor/internal/combat"
)

//go:embed default.yaml
var defaultCatalog []byte

// ErrUnknownType is returned when a roster names a type the catalog lacks.
var ErrUnknownType = errors.New("unknown unit type")

type File struct {
	Units []UnitDef `yaml:"units"`
}

type UnitDef struct {
	ID         uint32      `yaml:"id"`
	Name       string      `yaml:"name"`
	Minerals   int         `yaml:"minerals"`
	Vespene    int         `yaml:"vespene"`
	Attributes []string    `yaml:"attributes"`
	Health     float64     `yaml:"health"`
	Shield     float64     `yaml:"shield"`
	Energy     float64     `yaml:"energy"`
	Armor      float64     `yaml:"armor"`
	Radius     float64     `yaml:"radius"`
	Speed      float64     `yaml:"speed"`
	Flying     bool        `yaml:"flying"`
	Weapons    []WeaponDef `yaml:"weapons"`
}

type WeaponDef struct {
	Target   string    `yaml:"target"`
	Damage   float64   `yaml:"damage"`
	Attacks  int       `yaml:"attacks"`
	Range    float64   `yaml:"range"`
	Cooldown float64   `yaml:"cooldown"`
	Splash   float64   `yaml:"splash"`
	Bonus    *BonusDef `yaml:"bonus"`
}

type BonusDef struct {
	Attribute string  `yaml:"attribute"`
	Damage    float64 `yaml:"damage"`
}

type entry struct {
	def  UnitDef
	data *combat.TypeData
}

// Catalog maps unit type names and ids to their static data.
type Catalog struct {
	byName map[string]*entry
	byID   map[combat.UnitType]*entry
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	var f File
	if err := loadYAML(path, &f); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return build(f)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return build(f)
}

// Default returns the built-in reference catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func parseTarget(s string) (combat.TargetClass, error) {
	switch key(s) {
	case "ground":
		return combat.TargetGround, nil
	case "air":
		return combat.TargetAir, nil
	case "any", "both":
		return combat.TargetAny, nil
	default:
		return combat.TargetNone, fmt.Errorf("unknown weapon target %q", s)
	}
}

func build(f File) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]*entry, len(f.Units)),
		byID:   make(map[combat.UnitType]*entry, len(f.Units)),
	}
	for _, def := range f.Units {
		data, err := typeData(def)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", def.Name, err)
		}
		if _, dup := c.byName[key(def.Name)]; dup {
			return nil, fmt.Errorf("unit %q defined twice", def.Name)
		}
		e := &entry{def: def, data: data}
		c.byName[key(def.Name)] = e
		c.byID[data.Type] = e
	}
	return c, nil
}

func typeData(def UnitDef) (*combat.TypeData, error) {
	if def.Name == "" {
		return nil, errors.New("missing name")
	}
	if def.Minerals < 0 || def.Vespene < 0 {
		return nil, fmt.Errorf("%w: negative cost", combat.ErrInvalidConfiguration)
	}
	if def.Health <= 0 || def.Shield < 0 {
		return nil, fmt.Errorf("%w: health must be positive", combat.ErrInvalidConfiguration)
	}

	data := &combat.TypeData{
		Type:        combat.UnitType(def.ID),
		Name:        def.Name,
		MineralCost: def.Minerals,
		VespeneCost: def.Vespene,
	}
	for _, name := range def.Attributes {
		a, ok := combat.ParseAttribute(name)
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", name)
		}
		data.Attributes = append(data.Attributes, a)
	}
	for _, wd := range def.Weapons {
		target, err := parseTarget(wd.Target)
		if err != nil {
			return nil, err
		}
		w := combat.Weapon{
			Type:    target,
			Damage:  wd.Damage,
			Attacks: max(wd.Attacks, 1),
			Range:   wd.Range,
			Speed:   wd.Cooldown,
			Splash:  wd.Splash,
		}
		if wd.Bonus != nil {
			a, ok := combat.ParseAttribute(wd.Bonus.Attribute)
			if !ok {
				return nil, fmt.Errorf("unknown bonus attribute %q", wd.Bonus.Attribute)
			}
			w.Bonuses = []combat.DamageBonus{{Attribute: a, Bonus: wd.Bonus.Damage}}
		}
		data.Weapons = append(data.Weapons, w)
	}
	return data, nil
}

// Names lists the catalog's unit names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for _, e := range c.byName {
		names = append(names, e.def.Name)
	}
	sort.Strings(names)
	return names
}

// TypeData returns the static data for a unit name, case-insensitively.
func (c *Catalog) TypeData(name string) (*combat.TypeData, bool) {
	e, ok := c.byName[key(name)]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Lookup returns the static data for a unit type id.
func (c *Catalog) Lookup(t combat.UnitType) (*combat.TypeData, bool) {
	e, ok := c.byID[t]
	if !ok {
		return nil, false
	}
	return e.data, true
}
