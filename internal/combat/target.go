package combat

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
)

// scoreEpsilon is the tolerance under which two target scores count as equal.
const scoreEpsilon = 1e-6

// TargetPriority is how valuable other is as a target: its adjusted cost plus
// heavily weighted DPS. Targets that cannot hurt anything on the attacking side
// (no air there and no ground DPS, or no ground there and no air DPS) are
// discounted hard.
func TargetPriority(other *Unit, hasGround, hasAir bool) float64 {
	score := 0.01*float64(other.AdjustedCost()) + 1000*other.MaxDPS()
	if (!hasAir && other.GroundDPS == 0) || (!hasGround && other.AirDPS == 0) {
		score *= 0.01
	}
	return score
}

// Selection is the chosen target and the DPS the attacker deals to it.
type Selection struct {
	Index  int
	Weapon Weapon
	DPS    float64
	Score  float64

	// total health of the target, used to break score ties
	health float64
}

// Targeting is the state shared by every attacker of one side during a half-step.
type Targeting struct {
	Settings              Settings
	Surround              SurroundInfo
	OpponentMeleeFraction float64
	// HasGround and HasAir describe the attacking side's own composition.
	HasGround bool
	HasAir    bool
	// AttackCount is the number of attacks each candidate received this half-step.
	AttackCount []int
	// DPS memoizes weapon DPS lookups when set.
	DPS *DPSCache
}

func (t *Targeting) weaponDPS(attacker, other *Unit) (Weapon, float64) {
	var air, ground float64
	if t.DPS != nil {
		air, ground = t.DPS.Lookup(attacker, other)
	} else {
		air, ground = WeaponDPS(attacker, other)
	}
	if air > ground {
		w, _ := attacker.AirWeapon()
		return w, air
	}
	w, _ := attacker.GroundWeapon()
	return w, ground
}

// evaluate scores candidate j for the attacker. ok is false when the candidate is
// not eligible at all.
func (t *Targeting) evaluate(attacker *Unit, candidates []Unit, j int) (Selection, bool) {
	other := &candidates[j]
	if !other.IsAlive() {
		return Selection{}, false
	}
	w, dps := t.weaponDPS(attacker, other)
	if dps <= 0 {
		return Selection{}, false
	}

	s := t.Settings
	score := dps * TargetPriority(other, t.HasGround, t.HasAir) * 0.001

	switch {
	case attacker.IsMelee():
		if s.EnableSurroundLimits && j < len(t.AttackCount) &&
			t.AttackCount[j] >= t.Surround.MaxAttackersPerDefender {
			return Selection{}, false
		}
		if !s.BadMicro && s.AssumeReasonablePositioning {
			// A melee unit gets to whatever is in front of it, not what it would like most.
			score = -score
		}
		if s.EnableMeleeBlocking {
			if other.IsMelee() {
				score += 1000
			} else if other.Speed < 1.05*attacker.Speed {
				score += 500
			}
		}
	case !attacker.IsFlying:
		rangeDiff := other.MaxRange() - attacker.MaxRange()
		if (t.OpponentMeleeFraction > 0.5 && rangeDiff > 0.5) ||
			(t.OpponentMeleeFraction > 0.3 && rangeDiff > 1.0) {
			score -= 1000
		}
	}

	return Selection{Index: j, Weapon: w, DPS: dps, Score: score, health: other.TotalHealth()}, true
}

// better reports whether a should replace b as the best target.
func better(a, b Selection) bool {
	if math.Abs(a.Score-b.Score) < scoreEpsilon {
		return a.health < b.health
	}
	return a.Score > b.Score
}

// FindBestTarget scans the candidates and returns the highest scoring one. Scores
// within a small epsilon are resolved in favor of the candidate with less health
// and shield left. ok is false when no candidate can be attacked.
func (t *Targeting) FindBestTarget(attacker *Unit, candidates []Unit) (best Selection, ok bool) {
	return t.scan(attacker, candidates, 0, len(candidates))
}

func (t *Targeting) scan(attacker *Unit, candidates []Unit, from, to int) (best Selection, ok bool) {
	for j := from; j < to; j++ {
		sel, eligible := t.evaluate(attacker, candidates, j)
		if !eligible {
			continue
		}
		if !ok || better(sel, best) {
			best, ok = sel, true
		}
	}
	return best, ok
}

// FindBestTargetParallel splits the candidates into chunks scanned concurrently and
// reduces the chunk winners in order with the same tie-break as FindBestTarget.
func (t *Targeting) FindBestTargetParallel(ctx context.Context, attacker *Unit, candidates []Unit, chunks int) (Selection, bool, error) {
	if chunks <= 1 || len(candidates) < 2*chunks {
		best, ok := t.FindBestTarget(attacker, candidates)
		return best, ok, nil
	}

	size := (len(candidates) + chunks - 1) / chunks
	type result struct {
		sel Selection
		ok  bool
	}
	results := make([]result, chunks)

	g, ctx := errgroup.WithContext(ctx)
	for c := range chunks {
		from := c * size
		to := min(from+size, len(candidates))
		if from >= to {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sel, ok := t.scan(attacker, candidates, from, to)
			results[c] = result{sel, ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Selection{}, false, err
	}

	var best Selection
	var found bool
	for _, r := range results {
		if r.ok && (!found || better(r.sel, best)) {
			best, found = r.sel, true
		}
	}
	return best, found, nil
}
