package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	units1, units2 := mixedRosters()
	s := DefaultSettings()
	base := Hash(units1, units2, 0, s)

	assert.Equal(t, base, Hash(units1, units2, 0, s))
	assert.NotEqual(t, base, Hash(units1, units2, 1, s))

	bad := s
	bad.BadMicro = true
	assert.NotEqual(t, base, Hash(units1, units2, 0, bad))

	hurt := append([]Unit(nil), units1...)
	hurt[0].Health = 10
	assert.NotEqual(t, base, Hash(hurt, units2, 0, s))

	// fractional health is truncated
	a := append([]Unit(nil), units1...)
	b := append([]Unit(nil), units1...)
	a[0].Health = 34.9
	b[0].Health = 34.1
	assert.Equal(t, Hash(a, units2, 0, s), Hash(b, units2, 0, s))
}

func TestCacheKey(t *testing.T) {
	units1, units2 := mixedRosters()
	s := DefaultSettings()
	base := CacheKey(units1, units2, 0, s)

	assert.Equal(t, base, CacheKey(units1, units2, 0, s))
	assert.NotEqual(t, base, CacheKey(units1, units2, 1, s))
	assert.NotEqual(t, base, CacheKey(units2, units1, 0, s))

	upgraded := append([]Unit(nil), units1...)
	upgraded[12].AttackUpgrade = 3
	upgraded[12].ArmorUpgrade = 3
	assert.Equal(t, Hash(units1, units2, 0, s), Hash(upgraded, units2, 0, s), "display hash ignores upgrades")
	assert.NotEqual(t, base, CacheKey(upgraded, units2, 0, s))

	shields := append([]Unit(nil), units2...)
	shields[6].ShieldUpgrade = 1
	assert.NotEqual(t, base, CacheKey(units1, shields, 0, s))

	// fractional health is kept
	a := append([]Unit(nil), units1...)
	b := append([]Unit(nil), units1...)
	a[0].Health = 34.9
	b[0].Health = 34.1
	assert.NotEqual(t, CacheKey(a, units2, 0, s), CacheKey(b, units2, 0, s))

	for name, mutate := range map[string]func(*Settings){
		"splash":      func(s *Settings) { s.EnableSplash = false },
		"timing":      func(s *Settings) { s.EnableTimingAdjustment = true },
		"surround":    func(s *Settings) { s.EnableSurroundLimits = false },
		"blocking":    func(s *Settings) { s.EnableMeleeBlocking = false },
		"workers":     func(s *Settings) { s.WorkersDoNoDamage = true },
		"positioning": func(s *Settings) { s.AssumeReasonablePositioning = false },
		"max time":    func(s *Settings) { s.MaxTime += 0.25 },
		"start time":  func(s *Settings) { s.StartTime = 0.5 },
	} {
		changed := s
		mutate(&changed)
		assert.NotEqual(t, base, CacheKey(units1, units2, 0, changed), name)
	}
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.StartTime = 50
	s.MaxTime = 10
	err := s.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "maxTime")

	s = DefaultSettings()
	s.StartTime = -1
	assert.ErrorIs(t, s.Validate(), ErrInvalidConfiguration)
}
