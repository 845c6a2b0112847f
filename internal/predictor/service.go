// Package predictor serves engagement predictions: it resolves requested
// rosters through the unit catalog, runs the combat simulator and reports every
// result to the cache, the history store and InfluxDB.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sc2helper/predictor/internal/cache"
	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/combat"
	"github.com/sc2helper/predictor/internal/influx"
	"github.com/sc2helper/predictor/internal/logging"
	"github.com/sc2helper/predictor/internal/model"
	"github.com/sc2helper/predictor/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrEmptyRoster is returned for requests with no units on either side.
var ErrEmptyRoster = errors.New("request has no units")

// Request asks for one engagement prediction.
type Request struct {
	Side1    []catalog.Entry `json:"side1"`
	Side2    []catalog.Entry `json:"side2"`
	Defender int             `json:"defender"`
	// Seed fixes the roster shuffles. Zero picks a random seed and bypasses the cache.
	Seed int64 `json:"seed,omitempty"`
	// Settings replaces the service defaults when set.
	Settings *combat.Settings `json:"settings,omitempty"`
	// Record attaches per-iteration frames to the response.
	Record bool `json:"record,omitempty"`
}

// Response is the outcome of a Request.
type Response struct {
	ID          string          `json:"id"`
	Hash        string          `json:"hash"`
	Seed        int64           `json:"seed"`
	Winner      int             `json:"winner"`
	Health      float64         `json:"health"`
	Termination string          `json:"termination"`
	Iterations  int             `json:"iterations"`
	Time        float64         `json:"time"`
	Survivors   [2]int          `json:"survivors"`
	Totals      [2]float64      `json:"totals"`
	Cached      bool            `json:"cached"`
	Frames      []combat.Frame  `json:"frames,omitempty"`
	Settings    combat.Settings `json:"settings"`
}

// Dependencies holds everything the service needs. Only Catalog is required.
type Dependencies struct {
	Catalog *catalog.Catalog
	Storage storage.Backend
	Influx  *influx.Manager
	Cache   *cache.PredictionCache
	Logger  *slog.Logger
	// Meter defaults to the global OTel meter.
	Meter    metric.Meter
	Settings combat.Settings
	Source   model.Source
	Version  string
	// Workers bounds concurrent predictions served through the dispatcher and
	// the worker pool of batch commands.
	Workers int
	// Options are passed to every combat.Predictor the service creates.
	Options []combat.Option
}

// Stats counts what the service has done since it started.
type Stats struct {
	Predictions int64       `json:"predictions"`
	CacheHits   int64       `json:"cacheHits"`
	Failures    int64       `json:"failures"`
	Cache       cache.Stats `json:"cache"`
	Stored      int64       `json:"stored"`
}

// Service runs predictions.
type Service struct {
	deps Dependencies
	log  *slog.Logger

	predictions metric.Int64Counter
	iterations  metric.Int64Histogram
	duration    metric.Float64Histogram

	total    atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a prediction service.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errors.New("predictor: catalog is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Meter == nil {
		deps.Meter = meter()
	}
	if deps.Source == "" {
		deps.Source = model.SourceDispatcher
	}
	if err := deps.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("default settings: %w", err)
	}

	s := &Service{
		deps: deps,
		log:  deps.Logger,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	var err error
	s.predictions, err = deps.Meter.Int64Counter(
		"predictor.predictions",
		metric.WithDescription("Predictions served"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating predictions counter: %w", err)
	}
	s.iterations, err = deps.Meter.Int64Histogram(
		"predictor.engagement.iterations",
		metric.WithDescription("Simulation loop iterations per engagement"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iterations histogram: %w", err)
	}
	s.duration, err = deps.Meter.Float64Histogram(
		"predictor.engagement.duration",
		metric.WithDescription("Wall clock spent simulating"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return s, nil
}

func (s *Service) randomSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if seed := s.rng.Int63(); seed != 0 {
			return seed
		}
	}
}

// Predict runs one engagement. Storage and InfluxDB failures are logged and do
// not fail the request.
func (s *Service) Predict(ctx context.Context, req Request) (Response, error) {
	resp, err := s.predict(ctx, req)
	if err != nil {
		s.failures.Add(1)
	}
	return resp, err
}

func (s *Service) predict(ctx context.Context, req Request) (Response, error) {
	if len(req.Side1) == 0 && len(req.Side2) == 0 {
		return Response{}, ErrEmptyRoster
	}
	settings := s.deps.Settings
	if req.Settings != nil {
		settings = *req.Settings
	}

	units1, units2, err := s.deps.Catalog.Rosters(catalog.Scenario{Side1: req.Side1, Side2: req.Side2})
	if err != nil {
		return Response{}, err
	}

	hash := combat.Hash(units1, units2, req.Defender, settings)
	seed := req.Seed
	cacheable := seed != 0 && s.deps.Cache != nil
	if seed == 0 {
		seed = s.randomSeed()
	}

	id := uuid.NewString()
	ctx = logging.WithAttrs(ctx,
		slog.String("prediction", id),
		slog.String("hash", fmt.Sprintf("%016x", hash)),
	)

	key := cache.Key{Hash: combat.CacheKey(units1, units2, req.Defender, settings), Seed: seed}
	if cacheable {
		if res, ok := s.deps.Cache.Get(key); ok && (!req.Record || res.Recording != nil) {
			s.hits.Add(1)
			s.total.Add(1)
			s.record(ctx, res, true, 0)
			s.log.DebugContext(ctx, "Prediction served from cache")
			return s.response(id, hash, seed, settings, res, true), nil
		}
	}

	opts := append([]combat.Option{combat.WithSeed(seed), combat.WithLogger(s.log)}, s.deps.Options...)
	if req.Record {
		opts = append(opts, combat.WithRecording())
	}

	start := time.Now()
	res, err := combat.NewPredictor(opts...).PredictEngage(ctx, units1, units2, req.Defender, settings)
	if err != nil {
		return Response{}, err
	}
	elapsed := time.Since(start)
	s.total.Add(1)

	if cacheable {
		s.deps.Cache.Add(key, res)
	}
	s.record(ctx, res, false, elapsed)
	s.persist(ctx, model.Input{
		ID:       id,
		Source:   s.deps.Source,
		Hash:     hash,
		Seed:     seed,
		Defender: req.Defender,
		Settings: settings,
		Units1:   units1,
		Units2:   units2,
		Duration: elapsed,
	}, res)

	s.log.InfoContext(ctx, "Prediction complete",
		"winner", res.Winner,
		"health", res.Health,
		"termination", res.Termination.String(),
		"iterations", res.Iterations,
		"duration", elapsed,
	)
	return s.response(id, hash, seed, settings, res, false), nil
}

func (s *Service) record(ctx context.Context, res combat.Result, cached bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Int("winner", res.Winner),
		attribute.String("termination", res.Termination.String()),
		attribute.Bool("cached", cached),
	)
	s.predictions.Add(ctx, 1, attrs)
	if !cached {
		s.iterations.Record(ctx, int64(res.Iterations), attrs)
		s.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (s *Service) persist(ctx context.Context, in model.Input, res combat.Result) {
	if s.deps.Storage == nil && s.deps.Influx == nil {
		return
	}
	p, err := model.NewPrediction(in, res)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to build prediction record", "error", err)
		return
	}
	if s.deps.Storage != nil {
		if err := s.deps.Storage.RecordPrediction(p); err != nil {
			s.log.WarnContext(ctx, "Failed to store prediction", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePrediction(p); err != nil {
			s.log.WarnContext(ctx, "Failed to write prediction metrics", "error", err)
		}
	}
}

func (s *Service) response(id string, hash uint64, seed int64, settings combat.Settings, res combat.Result, cached bool) Response {
	r := Response{
		ID:          id,
		Hash:        fmt.Sprintf("%016x", hash),
		Seed:        seed,
		Winner:      res.Winner,
		Health:      res.Health,
		Termination: res.Termination.String(),
		Iterations:  res.Iterations,
		Time:        res.Time,
		Survivors:   res.Survivors,
		Totals:      res.Totals,
		Cached:      cached,
		Settings:    settings,
	}
	if res.Recording != nil {
		r.Frames = res.Recording.Frames
	}
	return r
}

// Stats returns the service counters.
func (s *Service) Stats() Stats {
	st := Stats{
		Predictions: s.total.Load(),
		CacheHits:   s.hits.Load(),
		Failures:    s.failures.Load(),
	}
	if s.deps.Cache != nil {
		st.Cache = s.deps.Cache.Stats()
	}
	if h, ok := s.deps.Storage.(storage.History); ok {
		if n, err := h.Count(); err == nil {
			st.Stored = n
		}
	}
	return st
}
