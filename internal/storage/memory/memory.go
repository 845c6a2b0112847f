// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/model"
)

// Backend keeps prediction history in memory and exports it to JSON on Close
type Backend struct {
	cfg         config.MemoryConfig
	predictions []model.Prediction
	started     time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		started: time.Now(),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the recorded history when an output directory is configured
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" || len(b.predictions) == 0 {
		return nil
	}
	return b.exportJSON()
}

// RecordPrediction stores a copy of p
func (b *Backend) RecordPrediction(p *model.Prediction) error {
	if p == nil {
		return model.ErrNilPrediction
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.predictions = append(b.predictions, *p)
	return nil
}

// Recent returns up to limit predictions, newest first
func (b *Backend) Recent(limit int) ([]model.Prediction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.predictions)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Prediction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, b.predictions[i])
	}
	return out, nil
}

// Count returns the number of recorded predictions
func (b *Backend) Count() (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.predictions)), nil
}

// ExportedFilePath returns the path of the last export, empty before one happened
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
