package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sc2helper/predictor/internal/model"
)

// HistoryExport is the root JSON structure of an exported history file
type HistoryExport struct {
	Version     int                `json:"version"`
	StartedAt   time.Time          `json:"startedAt"`
	ExportedAt  time.Time          `json:"exportedAt"`
	Count       int                `json:"count"`
	Winners     [2]int             `json:"winners"`
	Predictions []model.Prediction `json:"predictions"`
}

const exportVersion = 1

// exportJSON writes the history to a JSON file, gzipped when configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.started.Format("20060102_150405")
	filename := fmt.Sprintf("predictions_%s.json", timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() HistoryExport {
	export := HistoryExport{
		Version:     exportVersion,
		StartedAt:   b.started.UTC(),
		ExportedAt:  time.Now().UTC(),
		Count:       len(b.predictions),
		Predictions: b.predictions,
	}
	for _, p := range b.predictions {
		if p.Winner == 1 || p.Winner == 2 {
			export.Winners[p.Winner-1]++
		}
	}
	return export
}

func writeJSON(path string, data HistoryExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data HistoryExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
