package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sc2helper/predictor/internal/combat"
	"golang.org/x/sync/errgroup"
)

// ErrNoRuns is returned when a batch is asked for fewer than one run.
var ErrNoRuns = errors.New("batch needs at least one run")

// seedStride spreads run seeds so neighbouring runs do not share shuffles.
const seedStride = 7919

// Job is one scenario simulated many times with different seeds.
type Job struct {
	Name     string
	Units1   []combat.Unit
	Units2   []combat.Unit
	Defender int
	Settings combat.Settings
	// Seed is the base seed. Zero picks one from the clock.
	Seed int64
	// Options are applied to every run's predictor after its seed. They must not
	// carry a shared random source.
	Options []combat.Option
	// OnResult is called from worker goroutines after every run.
	OnResult func(Run)
}

// Run is the outcome of one batch run.
type Run struct {
	Index   int
	Seed    int64
	Result  combat.Result
	Elapsed time.Duration
}

// BatchSummary aggregates the runs of a batch.
type BatchSummary struct {
	Name     string `json:"name,omitempty"`
	Hash     string `json:"hash"`
	BaseSeed int64  `json:"baseSeed"`
	Runs     int    `json:"runs"`

	Wins    [2]int     `json:"wins"`
	WinRate [2]float64 `json:"winRate"`
	// MeanHealth is the mean remaining health of each side over the runs it won.
	MeanHealth [2]float64 `json:"meanHealth"`

	MeanIterations float64       `json:"meanIterations"`
	MeanTime       float64       `json:"meanTime"`
	TimedOut       int           `json:"timedOut"`
	Elapsed        time.Duration `json:"elapsed"`
}

type accumulator struct {
	wins       [2]int
	health     [2]float64
	iterations int
	time       float64
	timedOut   int
}

func (a *accumulator) add(r combat.Result) {
	side := r.Winner - 1
	a.wins[side]++
	a.health[side] += r.Health
	a.iterations += r.Iterations
	a.time += r.Time
	if r.Termination == combat.TimedOut {
		a.timedOut++
	}
}

// RunSeed is the seed of run i of a batch with the given base seed.
func RunSeed(base int64, i int) int64 {
	return base + int64(i)*seedStride + 1
}

// RunBatch simulates job n times across a pool of workers. Run i always uses
// RunSeed(job.Seed, i), so a batch with a fixed seed is reproducible no matter
// how runs are spread over workers. The first failing run cancels the rest.
func RunBatch(ctx context.Context, job Job, n, workers int) (BatchSummary, error) {
	if n <= 0 {
		return BatchSummary{}, ErrNoRuns
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	base := job.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	start := time.Now()
	var (
		mu  sync.Mutex
		acc accumulator
	)

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range n {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for i := range jobs {
				seed := RunSeed(base, i)
				opts := append([]combat.Option{combat.WithSeed(seed)}, job.Options...)

				t0 := time.Now()
				res, err := combat.NewPredictor(opts...).PredictEngage(gctx, job.Units1, job.Units2, job.Defender, job.Settings)
				if err != nil {
					return fmt.Errorf("run %d: %w", i, err)
				}

				mu.Lock()
				acc.add(res)
				mu.Unlock()

				if job.OnResult != nil {
					job.OnResult(Run{Index: i, Seed: seed, Result: res, Elapsed: time.Since(t0)})
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return BatchSummary{}, err
	}

	s := BatchSummary{
		Name:           job.Name,
		Hash:           fmt.Sprintf("%016x", combat.Hash(job.Units1, job.Units2, job.Defender, job.Settings)),
		BaseSeed:       base,
		Runs:           n,
		Wins:           acc.wins,
		MeanIterations: float64(acc.iterations) / float64(n),
		MeanTime:       acc.time / float64(n),
		TimedOut:       acc.timedOut,
		Elapsed:        time.Since(start),
	}
	for side := range 2 {
		s.WinRate[side] = float64(acc.wins[side]) / float64(n)
		if acc.wins[side] > 0 {
			s.MeanHealth[side] = acc.health[side] / float64(acc.wins[side])
		}
	}
	return s, nil
}
