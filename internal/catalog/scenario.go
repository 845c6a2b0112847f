package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sc2helper/predictor/internal/combat"
)

// Scenario is an engagement described in a YAML file.
type Scenario struct {
	Name     string          `json:"name,omitempty" yaml:"name"`
	Defender int             `json:"defender" yaml:"defender"`
	Seed     int64           `json:"seed,omitempty" yaml:"seed"`
	Settings combat.Settings `json:"settings" yaml:"settings"`
	Side1    []Entry         `json:"side1" yaml:"side1"`
	Side2    []Entry         `json:"side2" yaml:"side2"`
}

// ParseScenario decodes a scenario. Settings keys absent from the document keep
// the values in base.
func ParseScenario(data []byte, base combat.Settings) (Scenario, error) {
	sc := Scenario{Settings: base}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, nil
}

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string, base combat.Settings) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(b, base)
}

// Rosters resolves both sides of the scenario.
func (c *Catalog) Rosters(sc Scenario) ([]combat.Unit, []combat.Unit, error) {
	units1, err := c.Resolve(1, sc.Side1)
	if err != nil {
		return nil, nil, fmt.Errorf("side 1: %w", err)
	}
	units2, err := c.Resolve(2, sc.Side2)
	if err != nil {
		return nil, nil, fmt.Errorf("side 2: %w", err)
	}
	return units1, units2, nil
}
