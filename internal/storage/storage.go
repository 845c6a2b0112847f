// internal/storage/storage.go
package storage

import "github.com/sc2helper/predictor/internal/model"

// Backend is the interface all prediction history stores must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordPrediction stores one finished prediction, frames included.
	RecordPrediction(p *model.Prediction) error
}

// History is an optional interface for backends that can read stored
// predictions back.
type History interface {
	Recent(limit int) ([]model.Prediction, error)
	Count() (int64, error)
}

// Exporter is an optional interface for backends that write their history to
// a file on Close.
type Exporter interface {
	ExportedFilePath() string
}

// Nop discards every prediction. It backs the "none" storage type.
type Nop struct{}

func (Nop) Init() error { return nil }

func (Nop) Close() error { return nil }

func (Nop) RecordPrediction(*model.Prediction) error { return nil }
