package worker

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sc2helper/predictor/internal/combat"
	"github.com/sc2helper/predictor/internal/influx"
	"github.com/sc2helper/predictor/internal/model"
	"github.com/sc2helper/predictor/internal/storage"
)

// MeasurementBatch is the measurement batch summaries are written under.
const MeasurementBatch = "batch"

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	// Storage and Influx are optional.
	Storage storage.Backend
	Influx  *influx.Manager
	Logger  *slog.Logger
}

// Manager runs batches and reports every run to the configured sinks
type Manager struct {
	deps Dependencies
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{deps: deps}
}

// Run executes RunBatch, storing each run as a batch prediction and writing a
// summary point once all runs are done. Sink failures are logged, not returned.
func (m *Manager) Run(ctx context.Context, job Job, n, workers int) (BatchSummary, error) {
	hash := combat.Hash(job.Units1, job.Units2, job.Defender, job.Settings)
	next := job.OnResult
	job.OnResult = func(r Run) {
		m.report(ctx, job, hash, r)
		if next != nil {
			next(r)
		}
	}

	summary, err := RunBatch(ctx, job, n, workers)
	if err != nil {
		m.deps.Logger.ErrorContext(ctx, "Batch failed", "name", job.Name, "error", err)
		return summary, err
	}

	if m.deps.Influx != nil {
		if err := m.deps.Influx.WritePoint("", SummaryPoint(summary, time.Now())); err != nil {
			m.deps.Logger.WarnContext(ctx, "Failed to write batch summary", "error", err)
		}
	}
	m.deps.Logger.InfoContext(ctx, "Batch complete",
		"name", summary.Name,
		"runs", summary.Runs,
		"winRate1", summary.WinRate[0],
		"winRate2", summary.WinRate[1],
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (m *Manager) report(ctx context.Context, job Job, hash uint64, r Run) {
	if m.deps.Storage == nil && m.deps.Influx == nil {
		return
	}

	p, err := model.NewPrediction(model.Input{
		ID:       uuid.NewString(),
		Source:   model.SourceBatch,
		Hash:     hash,
		Seed:     r.Seed,
		Defender: job.Defender,
		Settings: job.Settings,
		Units1:   job.Units1,
		Units2:   job.Units2,
		Duration: r.Elapsed,
	}, r.Result)
	if err != nil {
		m.deps.Logger.WarnContext(ctx, "Failed to build batch prediction", "run", r.Index, "error", err)
		return
	}

	if m.deps.Storage != nil {
		if err := m.deps.Storage.RecordPrediction(p); err != nil {
			m.deps.Logger.WarnContext(ctx, "Failed to store batch prediction", "run", r.Index, "error", err)
		}
	}
	if m.deps.Influx != nil {
		if err := m.deps.Influx.WritePrediction(p); err != nil {
			m.deps.Logger.WarnContext(ctx, "Failed to write batch prediction", "run", r.Index, "error", err)
		}
	}
}

// SummaryPoint converts a batch summary into a point stamped at ts.
func SummaryPoint(s BatchSummary, ts time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementBatch,
		map[string]string{
			"name": s.Name,
			"hash": s.Hash,
		},
		map[string]any{
			"runs":            s.Runs,
			"wins1":           s.Wins[0],
			"wins2":           s.Wins[1],
			"win_rate1":       s.WinRate[0],
			"win_rate2":       s.WinRate[1],
			"mean_health1":    s.MeanHealth[0],
			"mean_health2":    s.MeanHealth[1],
			"mean_iterations": s.MeanIterations,
			"mean_time":       s.MeanTime,
			"timed_out":       s.TimedOut,
			"base_seed":       strconv.FormatInt(s.BaseSeed, 10),
			"elapsed_ms":      s.Elapsed.Milliseconds(),
		},
		ts,
	)
}
