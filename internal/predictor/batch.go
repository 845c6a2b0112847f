package predictor

import (
	"context"

	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/worker"
)

// BatchRequest runs one engagement Runs times with derived seeds.
type BatchRequest struct {
	Request
	Name    string `json:"name,omitempty"`
	Runs    int    `json:"runs"`
	Workers int    `json:"workers,omitempty"`
}

// Batch runs req through the worker pool. Every run is stored as a batch
// prediction; Record and the cache do not apply.
func (s *Service) Batch(ctx context.Context, req BatchRequest) (worker.BatchSummary, error) {
	if len(req.Side1) == 0 && len(req.Side2) == 0 {
		return worker.BatchSummary{}, ErrEmptyRoster
	}

	settings := s.deps.Settings
	if req.Settings != nil {
		settings = *req.Settings
	}
	units1, units2, err := s.deps.Catalog.Rosters(catalog.Scenario{Side1: req.Side1, Side2: req.Side2})
	if err != nil {
		return worker.BatchSummary{}, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.deps.Workers
	}
	m := worker.NewManager(worker.Dependencies{
		Storage: s.deps.Storage,
		Influx:  s.deps.Influx,
		Logger:  s.log,
	})
	return m.Run(ctx, worker.Job{
		Name:     req.Name,
		Units1:   units1,
		Units2:   units2,
		Defender: req.Defender,
		Settings: settings,
		Seed:     req.Seed,
		Options:  s.deps.Options,
	}, req.Runs, workers)
}
