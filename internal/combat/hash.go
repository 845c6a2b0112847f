package combat

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// Hash fingerprints an engagement request for display and logs. Fractional
// health, shield and energy are truncated and upgrades are ignored, so use
// CacheKey to decide whether two requests are the same.
func Hash(units1, units2 []Unit, defender int, s Settings) uint64 {
	var h uint64
	mix := func(x int64) {
		h = h*31 ^ uint64(x)
	}

	h ^= uint64(defender)
	mix(boolInt(s.BadMicro))
	mix(int64(math.Round(s.MaxTime)))
	for _, roster := range [][]Unit{units1, units2} {
		for i := range roster {
			u := &roster[i]
			mix(int64(u.Energy))
			mix(int64(u.Health))
			mix(int64(u.Shield))
			mix(int64(u.Type))
			mix(int64(u.Owner))
		}
	}
	return h
}

// CacheKey digests every input that can change a prediction: all settings, the
// defender and each unit's exact state and upgrades. Two requests with equal
// keys and seeds yield the same result.
func CacheKey(units1, units2 []Unit, defender int, s Settings) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(x uint64) {
		binary.LittleEndian.PutUint64(buf[:], x)
		h.Write(buf[:])
	}
	putFloat := func(f float64) { put(math.Float64bits(f)) }
	putBool := func(b bool) { put(uint64(boolInt(b))) }

	put(uint64(defender))
	putBool(s.BadMicro)
	putBool(s.Debug)
	putBool(s.EnableSplash)
	putBool(s.EnableTimingAdjustment)
	putBool(s.EnableSurroundLimits)
	putBool(s.EnableMeleeBlocking)
	putBool(s.WorkersDoNoDamage)
	putBool(s.AssumeReasonablePositioning)
	putBool(s.MultiThreaded)
	putFloat(s.MaxTime)
	putFloat(s.StartTime)

	for _, roster := range [][]Unit{units1, units2} {
		// roster length separates the sides
		put(uint64(len(roster)))
		for i := range roster {
			u := &roster[i]
			put(uint64(u.Owner))
			put(uint64(u.Type))
			putFloat(u.Health)
			putFloat(u.HealthMax)
			putFloat(u.Shield)
			putFloat(u.ShieldMax)
			putFloat(u.Energy)
			putFloat(u.EnergyMax)
			putFloat(u.BuffTimer)
			putBool(u.IsFlying)
			putFloat(u.GroundDPS)
			putFloat(u.GroundRange)
			putFloat(u.AirDPS)
			putFloat(u.AirRange)
			putFloat(u.Armor)
			putFloat(u.Radius)
			putFloat(u.Speed)
			put(uint64(u.AttackUpgrade))
			put(uint64(u.ArmorUpgrade))
			put(uint64(u.ShieldUpgrade))
		}
	}
	return h.Sum64()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
