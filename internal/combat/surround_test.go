package combat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func marineArea(n int) float64 {
	return float64(n) * 0.375 * 0.375 * math.Pi
}

func TestMaxSurround(t *testing.T) {
	tests := []struct {
		units int
		want  SurroundInfo
	}{
		{1, SurroundInfo{MaxAttackersPerDefender: 7, MaxMeleeAttackers: 7}},
		{2, SurroundInfo{MaxAttackersPerDefender: 4, MaxMeleeAttackers: 8}},
		{3, SurroundInfo{MaxAttackersPerDefender: 3, MaxMeleeAttackers: 9}},
		{4, SurroundInfo{MaxAttackersPerDefender: 3, MaxMeleeAttackers: 10}},
		{5, SurroundInfo{MaxAttackersPerDefender: 2, MaxMeleeAttackers: 10}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxSurround(marineArea(tt.units), tt.units, MeleeRadius), "units=%d", tt.units)
	}
}

// The per-defender limit divides the rounded-up attacker count.
func TestMaxSurroundRoundsAttackersFirst(t *testing.T) {
	// 6.38 attackers ring 3.24 defenders: 7/3.24 rounds up to 3, 6.38/3.24 to 2.
	got := MaxSurround(0.5, 4, MeleeRadius)
	assert.Equal(t, SurroundInfo{MaxAttackersPerDefender: 3, MaxMeleeAttackers: 7}, got)
}

func TestMaxSurroundDegenerate(t *testing.T) {
	empty := MaxSurround(0, 0, MeleeRadius)
	assert.Equal(t, 1, empty.MaxAttackersPerDefender)
	assert.Equal(t, 4, empty.MaxMeleeAttackers)

	zeroArea := MaxSurround(0, 3, MeleeRadius)
	assert.Equal(t, 1, zeroArea.MaxAttackersPerDefender)
	assert.Equal(t, 4, zeroArea.MaxMeleeAttackers)

	noRadius := MaxSurround(10, 3, 0)
	assert.Equal(t, SurroundInfo{MaxAttackersPerDefender: 1, MaxMeleeAttackers: 0}, noRadius)

	nan := MaxSurround(math.NaN(), 3, MeleeRadius)
	assert.Equal(t, 1, nan.MaxAttackersPerDefender)
}

func TestMaxSurroundMonotonic(t *testing.T) {
	area := 4.0
	var prevDefenders, prevAttackers float64
	for n := 0; n <= 30; n++ {
		defenders, attackers := meleeRing(area, n, MeleeRadius)
		assert.GreaterOrEqual(t, defenders, prevDefenders, "units=%d", n)
		assert.GreaterOrEqual(t, attackers, prevAttackers, "units=%d", n)
		assert.GreaterOrEqual(t, MaxSurround(area, n, MeleeRadius).MaxAttackersPerDefender, 1)
		prevDefenders, prevAttackers = defenders, attackers
	}

	prev := math.Inf(1)
	prevMax := math.MaxInt
	for r := 0.1; r <= 2.0; r += 0.1 {
		_, attackers := meleeRing(area, 5, r)
		assert.LessOrEqual(t, attackers, prev, "radius=%g", r)
		assert.LessOrEqual(t, MaxSurround(area, 5, r).MaxMeleeAttackers, prevMax, "radius=%g", r)
		prev, prevMax = attackers, MaxSurround(area, 5, r).MaxMeleeAttackers
	}
}
