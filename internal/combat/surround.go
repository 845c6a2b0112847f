package combat

import "math"

const (
	// MeleeRadius is the footprint radius of the representative melee unit.
	MeleeRadius = 0.5

	// groundPacking is the fraction of the ground footprint that units actually
	// cover; the occupied area is divided by it when any ground unit is present.
	groundPacking = 0.6
)

// SurroundInfo bounds how many melee units can engage an enemy formation.
type SurroundInfo struct {
	MaxAttackersPerDefender int
	MaxMeleeAttackers       int
}

// meleeRing models the enemy formation as a disc of the given area and counts how
// many defenders sit on its edge and how many melee attackers fit around it.
func meleeRing(area float64, groundUnits int, meleeRadius float64) (defenders, attackers float64) {
	if groundUnits > 0 {
		area /= groundPacking
	}
	if meleeRadius <= 0 || area < 0 || math.IsNaN(area) {
		return 0, 0
	}

	r := math.Sqrt(area / math.Pi)
	defenderCircumference := 2 * math.Pi * r
	attackerCircumference := 2 * math.Pi * (r + meleeRadius)

	defenders = min(defenderCircumference/(2*meleeRadius), float64(groundUnits))
	attackers = attackerCircumference / (2 * meleeRadius)
	return defenders, attackers
}

// MaxSurround computes the surround limits for melee units attacking a formation that
// covers area and has groundUnits ground units.
func MaxSurround(area float64, groundUnits int, meleeRadius float64) SurroundInfo {
	defenders, attackers := meleeRing(area, groundUnits, meleeRadius)

	maxAttackers := int(math.Ceil(attackers))
	perDefender := 1
	if defenders > 0 {
		perDefender = int(math.Ceil(float64(maxAttackers) / defenders))
	}
	return SurroundInfo{
		MaxAttackersPerDefender: max(perDefender, 1),
		MaxMeleeAttackers:       maxAttackers,
	}
}
