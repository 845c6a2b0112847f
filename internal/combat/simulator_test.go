package combat

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func predict(t *testing.T, p *Predictor, units1, units2 []Unit, defender int, s Settings) Result {
	t.Helper()
	res, err := p.PredictEngage(context.Background(), units1, units2, defender, s)
	require.NoError(t, err)
	return res
}

func TestBattlecruiserLosesToMarines(t *testing.T) {
	p := NewPredictor(WithSeed(1))
	res := predict(t, p, []Unit{battlecruiser(1)}, repeat(13, marine, 2), 0, DefaultSettings())

	assert.Equal(t, 2, res.Winner)
	assert.InDelta(t, 90.0, res.Health, 1e-6)
	assert.Equal(t, [2]int{0, 2}, res.Survivors)
	assert.Equal(t, Converged, res.Termination)
}

func TestEmptyRoster(t *testing.T) {
	p := NewPredictor(WithSeed(1))
	s := DefaultSettings()

	res := predict(t, p, repeat(5, marine, 1), nil, 0, s)
	assert.Equal(t, 1, res.Winner)
	assert.Equal(t, 225.0, res.Health)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, Converged, res.Termination)

	res = predict(t, p, nil, repeat(5, marine, 2), 0, s)
	assert.Equal(t, 2, res.Winner)
	assert.Equal(t, 225.0, res.Health)
	assert.Equal(t, 1, res.Iterations)

	res = predict(t, p, nil, nil, 0, s)
	assert.Equal(t, 2, res.Winner)
	assert.Zero(t, res.Health)
}

// Swapping identical rosters between the sides gives the same result because
// outcomes follow position, not owner: side 1 acts first in every iteration,
// so side 1 wins both runs with the same remaining health.
func TestMirroredRosters(t *testing.T) {
	s := DefaultSettings()
	s.EnableSurroundLimits = false
	s.EnableMeleeBlocking = false
	s.EnableSplash = false

	forward := predict(t, NewPredictor(WithSeed(3)), repeat(10, marine, 1), repeat(10, marine, 2), 0, s)
	swapped := predict(t, NewPredictor(WithSeed(3)), repeat(10, marine, 2), repeat(10, marine, 1), 0, s)

	assert.Equal(t, 1, forward.Winner)
	assert.Equal(t, 1, swapped.Winner)
	assert.InDelta(t, forward.Health, swapped.Health, 1e-9)
	assert.Equal(t, forward.Totals, swapped.Totals)
	assert.InDelta(t, 121.06012472656934, forward.Health, 1e-6)
}

func mixedRosters() ([]Unit, []Unit) {
	units1 := append(repeat(12, zergling, 1), marine(1), marine(1), medivac(1))
	units2 := append(repeat(6, marine, 2), zealot(2), zealot(2))
	return units1, units2
}

func TestSeededPredictionIsReproducible(t *testing.T) {
	units1, units2 := mixedRosters()
	s := DefaultSettings()

	a := predict(t, NewPredictor(WithSeed(7), WithRecording()), units1, units2, 0, s)
	b := predict(t, NewPredictor(WithSeed(7), WithRecording()), units1, units2, 0, s)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Recording.Frames)
}

func TestParallelScanMatchesSequential(t *testing.T) {
	s := DefaultSettings()
	units1 := repeat(12, zergling, 1)
	units2 := repeat(8, marine, 2)

	sequential := predict(t, NewPredictor(WithSeed(11), WithRecording()), units1, units2, 0, s)
	s.MultiThreaded = true
	parallel := predict(t, NewPredictor(WithSeed(11), WithRecording(), WithScanChunks(4)), units1, units2, 0, s)

	assert.Equal(t, sequential, parallel)
}

func TestHealthNeverIncreasesWithoutHealers(t *testing.T) {
	p := NewPredictor(WithSeed(5), WithRecording())
	res := predict(t, p, repeat(12, zergling, 1), repeat(8, marine, 2), 0, DefaultSettings())

	require.NotNil(t, res.Recording)
	frames := res.Recording.Frames
	require.Len(t, frames, res.Iterations)
	assert.Equal(t, 780.0, frames[0].Total(0))
	for i := 1; i < len(frames); i++ {
		assert.LessOrEqual(t, frames[i].Total(0), frames[i-1].Total(0), "frame %d", i)
		assert.Greater(t, frames[i].Time, frames[i-1].Time)
	}
	assert.Equal(t, 1, res.Winner)
	assert.InDelta(t, 245.15031181642337, res.Health, 1e-6)
}

func TestMedivacHealsBiologicalAllies(t *testing.T) {
	hurt := marine(1)
	hurt.Health = 20

	res := predict(t, NewPredictor(WithSeed(1)), []Unit{hurt, medivac(1)}, nil, 0, DefaultSettings())
	assert.Equal(t, 1, res.Winner)
	assert.Equal(t, 195.0, res.Health)
	assert.Equal(t, 4, res.Iterations)

	drained := medivac(1)
	drained.Energy = 0
	res = predict(t, NewPredictor(WithSeed(1)), []Unit{hurt, drained}, nil, 0, DefaultSettings())
	assert.Equal(t, 170.0, res.Health)
	assert.Equal(t, 1, res.Iterations)

	self := medivac(1)
	self.Health = 100
	res = predict(t, NewPredictor(WithSeed(1)), []Unit{self}, nil, 0, DefaultSettings())
	assert.Equal(t, 100.0, res.Health)
}

func TestWorkersDoNoDamage(t *testing.T) {
	scvData := &TypeData{
		Type: SCV, Name: "SCV", MineralCost: 50,
		Attributes: []Attribute{Light, Biological, Mechanical},
		Weapons:    []Weapon{{Type: TargetGround, Damage: 5, Attacks: 1, Range: 0.1, Speed: 1.07}},
	}
	scv := func(owner int) Unit {
		return Unit{Owner: owner, Type: SCV, Data: scvData, Health: 45, HealthMax: 45, Radius: 0.375, Speed: 2.8125}
	}

	s := DefaultSettings()
	res := predict(t, NewPredictor(WithSeed(1)), repeat(3, scv, 1), []Unit{zergling(2)}, 0, s)
	assert.Equal(t, 1, res.Winner)

	s.WorkersDoNoDamage = true
	res = predict(t, NewPredictor(WithSeed(1)), repeat(3, scv, 1), []Unit{zergling(2)}, 0, s)
	assert.Equal(t, 2, res.Winner)
	assert.Equal(t, 35.0, res.Health)
}

func TestSplashMultipliesDamage(t *testing.T) {
	splashData := *marineData
	splashData.Weapons = []Weapon{{Type: TargetAny, Damage: 6, Attacks: 1, Range: 5, Speed: 0.86083984, Splash: 2}}
	attacker := marine(1)
	attacker.Data = &splashData

	dummy := Unit{Owner: 2, Type: 9999, Data: &TypeData{Name: "Dummy"}, Health: 100, HealthMax: 100, Radius: 1}

	s := DefaultSettings()
	res := predict(t, NewPredictor(WithSeed(1), WithRecording()), []Unit{attacker}, []Unit{dummy}, 0, s)
	assert.InDelta(t, 100-2*6/0.86083984, res.Recording.Frames[1].Total(2), 1e-9)

	s.EnableSplash = false
	res = predict(t, NewPredictor(WithSeed(1), WithRecording()), []Unit{attacker}, []Unit{dummy}, 0, s)
	assert.InDelta(t, 100-6/0.86083984, res.Recording.Frames[1].Total(2), 1e-9)
}

func TestTimingAdjustmentHoldsUnreachableUnits(t *testing.T) {
	static := zergling(1)
	static.Speed = 0

	s := DefaultSettings()
	s.EnableTimingAdjustment = true
	res := predict(t, NewPredictor(WithSeed(1)), []Unit{static}, []Unit{marine(2)}, 2, s)

	assert.Equal(t, TimedOut, res.Termination)
	assert.Equal(t, MaxIterations, res.Iterations)
	assert.Equal(t, 400.0, res.Time)
	assert.Equal(t, [2]float64{35, 45}, res.Totals)
}

func TestMaxTimeStopsSimulation(t *testing.T) {
	s := DefaultSettings()
	s.MaxTime = 3
	res := predict(t, NewPredictor(WithSeed(1)), repeat(10, marine, 1), repeat(10, marine, 2), 0, s)

	assert.Equal(t, TimedOut, res.Termination)
	assert.Equal(t, 4, res.Iterations)
	assert.Equal(t, 4.0, res.Time)
	assert.Equal(t, 1, res.Winner)
	assert.InDelta(t, 256.06012472656937, res.Health, 1e-6)
}

func TestPredictLeavesInputUntouched(t *testing.T) {
	units1 := repeat(13, marine, 2)
	units2 := []Unit{battlecruiser(1)}
	predict(t, NewPredictor(WithSeed(1)), units1, units2, 0, DefaultSettings())

	for _, u := range units1 {
		assert.Equal(t, 45.0, u.Health)
		assert.Zero(t, u.GroundDPS)
	}
	assert.Equal(t, 550.0, units2[0].Health)
}

func TestPredictValidation(t *testing.T) {
	p := NewPredictor(WithSeed(1))
	ctx := context.Background()

	_, err := p.PredictEngage(ctx, []Unit{marine(1)}, []Unit{{Type: Marine, Health: 45, HealthMax: 45}}, 0, DefaultSettings())
	require.ErrorIs(t, err, ErrMissingTypeData)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Side)
	assert.Equal(t, 0, verr.Index)

	negative := marine(1)
	negative.Health = -1
	_, err = p.PredictEngage(ctx, []Unit{negative}, nil, 0, DefaultSettings())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	overfull := marine(1)
	overfull.Health = 50
	_, err = p.PredictEngage(ctx, []Unit{overfull}, nil, 0, DefaultSettings())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	badCost := marine(1)
	badCost.Data = &TypeData{Name: "Broken", MineralCost: -5}
	_, err = p.PredictEngage(ctx, []Unit{badCost}, nil, 0, DefaultSettings())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	s := DefaultSettings()
	s.StartTime, s.MaxTime = 10, 5
	_, err = p.PredictEngage(ctx, nil, nil, 0, s)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = p.PredictEngage(ctx, nil, nil, 3, DefaultSettings())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.PredictEngage(cancelled, nil, nil, 0, DefaultSettings())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDebugTracing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := DefaultSettings()
	predict(t, NewPredictor(WithSeed(1), WithLogger(logger)), []Unit{marine(1)}, []Unit{zergling(2)}, 0, s)
	assert.Empty(t, buf.String())

	s.Debug = true
	predict(t, NewPredictor(WithSeed(1), WithLogger(logger)), []Unit{marine(1)}, []Unit{zergling(2)}, 0, s)
	assert.Contains(t, buf.String(), "msg=attack")
	assert.Contains(t, buf.String(), "msg=resolved")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "unknown", State(42).String())
}
