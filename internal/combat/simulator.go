package combat

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"slices"
	"sync"
	"time"
)

const (
	// HealingPerSecond is the healer's heal rate in game seconds.
	HealingPerSecond = 12.6 / 1.4
	// MaxIterations caps the simulation loop.
	MaxIterations = 100
	// unreachable is the time to reach the fight for a side that cannot move.
	unreachable = 10000.0
)

// State is the phase of an engagement simulation.
type State int

const (
	Running State = iota
	Converged
	TimedOut
	Resolved
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case TimedOut:
		return "timed_out"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Result is the outcome of one engagement.
type Result struct {
	// Winner is 1 or 2. Side 1 wins only with strictly more health left.
	Winner int
	// Health is the winner's remaining health plus shield.
	Health float64

	// Termination is Converged or TimedOut.
	Termination State
	Iterations  int
	Time        float64
	Totals      [2]float64
	Survivors   [2]int
	// AverageHealthByTime is the health-weighted mean time of each side's last
	// aggregate pass.
	AverageHealthByTime [2]float64
	Recording           *Recording
}

// Predictor runs engagement simulations. It is safe for concurrent use; each call
// draws its own random source from the predictor's seeded generator.
type Predictor struct {
	logger      *slog.Logger
	meleeRadius float64
	record      bool
	scanChunks  int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSeed makes every run reproducible. A zero seed keeps the time-based default.
func WithSeed(seed int64) Option {
	return func(p *Predictor) {
		if seed != 0 {
			p.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// WithRand injects the random source used for roster shuffling and healer scans.
func WithRand(r *rand.Rand) Option {
	return func(p *Predictor) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithRecording attaches a per-iteration Recording to every Result.
func WithRecording() Option {
	return func(p *Predictor) {
		p.record = true
	}
}

// WithMeleeRadius overrides the representative melee unit radius.
func WithMeleeRadius(r float64) Option {
	return func(p *Predictor) {
		p.meleeRadius = r
	}
}

// WithScanChunks sets how many goroutines share a target scan when
// Settings.MultiThreaded is on.
func WithScanChunks(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.scanChunks = n
		}
	}
}

func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{
		logger:      slog.New(slog.DiscardHandler),
		meleeRadius: MeleeRadius,
		scanChunks:  runtime.GOMAXPROCS(0),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Predictor) nextSeed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Int63()
}

// PredictEngage simulates units1 (side 1) fighting units2 (side 2). defender is 0,
// 1 or 2 and names the side whose position is fixed for reinforcement timing.
// The input slices are not modified. Inputs are validated before the loop starts;
// ctx is only consulted then.
func (p *Predictor) PredictEngage(ctx context.Context, units1, units2 []Unit, defender int, s Settings) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	if defender < 0 || defender > 2 {
		return Result{}, &ValidationError{
			Err:    ErrInvalidConfiguration,
			Index:  -1,
			Field:  "defender",
			Reason: "defender player must be 0, 1 or 2",
		}
	}
	if err := validateRoster(1, units1); err != nil {
		return Result{}, err
	}
	if err := validateRoster(2, units2); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	e := &engagement{
		ctx:         context.WithoutCancel(ctx),
		settings:    s,
		defender:    defender,
		rng:         rand.New(rand.NewSource(p.nextSeed())),
		log:         p.logger,
		meleeRadius: p.meleeRadius,
		dps:         NewDPSCache(),
		time:        s.StartTime,
	}
	if s.MultiThreaded {
		e.scanChunks = p.scanChunks
	}
	if p.record {
		e.recording = &Recording{}
	}
	e.units[0] = prepare(units1, s)
	e.units[1] = prepare(units2, s)

	if err := e.dps.Build(ctx, e.units[0], e.units[1], s.MultiThreaded); err != nil {
		return Result{}, err
	}
	return e.run(), nil
}

// prepare copies a roster so the simulation can mutate it freely.
func prepare(units []Unit, s Settings) []Unit {
	out := slices.Clone(units)
	for i := range out {
		out[i].FillDerived()
		if s.StartTime == 0 {
			out[i].BuffTimer = 0
		}
	}
	return out
}

type sideInfo struct {
	hasAir, hasGround int
	groundArea        float64
	avgHealth         float64
	avgWeight         float64
}

func aggregate(units []Unit, t float64) sideInfo {
	var info sideInfo
	for i := range units {
		u := &units[i]
		if !u.IsAlive() {
			continue
		}
		if u.CanBeAttackedByAir() {
			info.hasAir++
		}
		if !u.IsFlying {
			info.hasGround++
		}
		info.groundArea += u.Radius * u.Radius
		info.avgHealth += t * u.TotalHealth()
		info.avgWeight += u.TotalHealth()
	}
	return info
}

type engagement struct {
	ctx         context.Context
	settings    Settings
	defender    int
	rng         *rand.Rand
	log         *slog.Logger
	meleeRadius float64
	scanChunks  int
	dps         *DPSCache
	recording   *Recording

	units [2][]Unit
	time  float64

	maxRangeDefender     float64
	fastestAttackerSpeed float64
}

func (e *engagement) debug(msg string, args ...any) {
	if e.settings.Debug {
		e.log.DebugContext(e.ctx, msg, args...)
	}
}

func maxRange(units []Unit) float64 {
	var r float64
	for i := range units {
		r = max(r, units[i].MaxRange())
	}
	return r
}

func fastest(units []Unit) float64 {
	var v float64
	for i := range units {
		v = max(v, units[i].Speed)
	}
	return v
}

func (e *engagement) run() Result {
	for side := range e.units {
		e.rng.Shuffle(len(e.units[side]), func(i, j int) {
			e.units[side][i], e.units[side][j] = e.units[side][j], e.units[side][i]
		})
	}

	switch e.defender {
	case 1:
		e.maxRangeDefender = maxRange(e.units[0])
		e.fastestAttackerSpeed = fastest(e.units[1])
	case 2:
		e.maxRangeDefender = maxRange(e.units[1])
		e.fastestAttackerSpeed = fastest(e.units[0])
	default:
		e.maxRangeDefender = max(maxRange(e.units[0]), maxRange(e.units[1]))
		e.fastestAttackerSpeed = max(fastest(e.units[0]), fastest(e.units[1]))
	}

	var (
		avg, avgWeight [2]float64
		iterations     int
	)
	state := Running
	changed := true
	for it := 0; it < MaxIterations; it++ {
		if !changed {
			state = Converged
			break
		}
		iterations++

		var info [2]sideInfo
		for side := range e.units {
			info[side] = aggregate(e.units[side], e.time)
			avg[side], avgWeight[side] = info[side].avgHealth, info[side].avgWeight
		}
		if e.recording != nil {
			e.recording.capture(it, e.time, e.units)
		}

		// Each side's surround limits come from the formation it is attacking.
		surround := [2]SurroundInfo{
			MaxSurround(info[1].groundArea*math.Pi, info[1].hasGround, e.meleeRadius),
			MaxSurround(info[0].groundArea*math.Pi, info[0].hasGround, e.meleeRadius),
		}
		dt := float64(min(5, 1+it/10))

		e.debug("iteration",
			slog.Int("iteration", it),
			slog.Float64("time", e.time),
			slog.Float64("dt", dt),
			slog.Int("units1", len(e.units[0])),
			slog.Int("units2", len(e.units[1])),
		)

		extraMelee := math.Sqrt(info[0].groundArea/math.Pi)*math.Pi + math.Sqrt(info[1].groundArea/math.Pi)*math.Pi

		changed = false
		for side := range e.units {
			if e.halfStep(side, info[side], surround[side], extraMelee, dt) {
				changed = true
			}
		}

		e.time += dt
		if e.time > e.settings.MaxTime {
			state = TimedOut
			break
		}
	}
	if state == Running {
		if changed {
			state = TimedOut
		} else {
			state = Converged
		}
	}

	res := Result{
		Termination: state,
		Iterations:  iterations,
		Time:        e.time,
		Recording:   e.recording,
	}
	for side := range e.units {
		res.AverageHealthByTime[side] = avg[side] / max(avgWeight[side], 0.01)
		for i := range e.units[side] {
			res.Totals[side] += e.units[side][i].TotalHealth()
		}
		res.Survivors[side] = len(e.units[side])
	}
	if res.Totals[0] > res.Totals[1] {
		res.Winner, res.Health = 1, res.Totals[0]
	} else {
		res.Winner, res.Health = 2, res.Totals[1]
	}

	e.debug("resolved",
		slog.String("termination", state.String()),
		slog.Int("winner", res.Winner),
		slog.Float64("health", res.Health),
		slog.Int("iterations", iterations),
	)
	return res
}

// halfStep lets every unit of side act against the opposing roster. It reports
// whether any unit changed state.
func (e *engagement) halfStep(side int, own sideInfo, surround SurroundInfo, extraMelee, dt float64) bool {
	attackers := e.units[side]
	defenders := e.units[1-side]
	s := e.settings

	var meleeFraction float64
	for i := range defenders {
		if defenders[i].IsAlive() && defenders[i].IsMelee() {
			meleeFraction++
		}
	}
	if len(defenders) > 0 {
		meleeFraction /= float64(len(defenders))
	}

	targeting := &Targeting{
		Settings:              s,
		Surround:              surround,
		OpponentMeleeFraction: meleeFraction,
		HasGround:             own.hasGround > 0,
		HasAir:                own.hasAir > 0,
		AttackCount:           make([]int, len(defenders)),
		DPS:                   e.dps,
	}
	healed := make([]bool, len(attackers))
	meleeUsed := 0
	changed := false

	for i := range attackers {
		u := &attackers[i]
		if !u.IsAlive() {
			continue
		}

		if u.IsHealer() {
			if e.heal(attackers, healed, i, dt) {
				changed = true
			}
			continue
		}

		if u.AirDPS == 0 && u.GroundDPS == 0 {
			continue
		}
		if s.WorkersDoNoDamage && u.IsHarvester() {
			continue
		}

		melee := u.IsMelee()
		if melee && s.EnableSurroundLimits && meleeUsed > surround.MaxMeleeAttackers {
			continue
		}

		if s.EnableTimingAdjustment && e.time < e.timeToEngage(side, i, len(attackers), u, extraMelee) {
			changed = true
			continue
		}

		sel, ok := e.findTarget(targeting, u, defenders)
		if !ok {
			continue
		}

		if melee {
			meleeUsed++
		}
		targeting.AttackCount[sel.Index]++

		splash := 1.0
		if s.EnableSplash {
			splash = max(1, sel.Weapon.Splash)
		}
		damage := sel.DPS * splash * dt

		target := &defenders[sel.Index]
		target.ModifyHealth(-damage)
		changed = true

		e.debug("attack",
			slog.Int("side", side+1),
			slog.String("attacker", u.Name()),
			slog.String("target", target.Name()),
			slog.Float64("damage", damage),
			slog.Float64("remaining", target.TotalHealth()),
		)

		if target.Health == 0 {
			defenders = slices.Delete(defenders, sel.Index, sel.Index+1)
			targeting.AttackCount = slices.Delete(targeting.AttackCount, sel.Index, sel.Index+1)
		}
	}

	e.units[1-side] = defenders
	return changed
}

func (e *engagement) findTarget(t *Targeting, u *Unit, defenders []Unit) (Selection, bool) {
	if e.scanChunks > 1 {
		sel, ok, err := t.FindBestTargetParallel(e.ctx, u, defenders, e.scanChunks)
		if err == nil {
			return sel, ok
		}
	}
	return t.FindBestTarget(u, defenders)
}

// timeToEngage is the simulated time at which the i-th of n attackers reaches
// weapon range. Units on the defending side wait for the attackers to walk in.
func (e *engagement) timeToEngage(side, i, n int, u *Unit, extraMelee float64) float64 {
	if side+1 != e.defender {
		distance := e.maxRangeDefender
		if u.IsMelee() {
			distance += extraMelee * (float64(i) / float64(n))
		}
		if u.Speed <= 0 {
			return unreachable
		}
		return max(0, distance-u.MaxRange()) / u.Speed
	}

	if e.fastestAttackerSpeed <= 0 {
		return unreachable
	}
	return (e.maxRangeDefender - u.MaxRange()) / e.fastestAttackerSpeed
}

// heal lets the healer at index self restore one biological ally, starting the
// scan at a random offset.
func (e *engagement) heal(units []Unit, healed []bool, self int, dt float64) bool {
	if units[self].Energy <= 0 {
		return false
	}
	n := len(units)
	offset := e.rng.Intn(n)
	for j := range n {
		idx := (j + offset) % n
		other := &units[idx]
		if idx == self || healed[idx] || !other.IsAlive() {
			continue
		}
		if other.Health < other.HealthMax && other.HasAttribute(Biological) {
			other.ModifyHealth(HealingPerSecond * dt)
			healed[idx] = true
			e.debug("heal", slog.String("target", other.Name()), slog.Float64("health", other.Health))
			return true
		}
	}
	return false
}
