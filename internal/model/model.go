package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sc2helper/predictor/internal/combat"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Prediction{},
	&PredictionFrame{},
}

// ErrNilPrediction is returned when a store is given nothing to record.
var ErrNilPrediction = errors.New("nil prediction")

// Source identifies what issued a prediction.
type Source string

const (
	SourceCLI        Source = "cli"
	SourceDispatcher Source = "dispatcher"
	SourceBatch      Source = "batch"
)

// Prediction is one finished engagement simulation.
type Prediction struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	Source    Source    `json:"source" gorm:"size:16"`

	// Hash is the hex engagement hash; identical inputs share it.
	Hash     string `json:"hash" gorm:"size:16;index"`
	Seed     int64  `json:"seed"`
	Defender int    `json:"defender"`

	Winner      int     `json:"winner"`
	Health      float64 `json:"health"`
	Termination string  `json:"termination" gorm:"size:16"`
	Iterations  int     `json:"iterations"`
	SimTime     float64 `json:"simTime"`

	Units1     int     `json:"units1"`
	Units2     int     `json:"units2"`
	Survivors1 int     `json:"survivors1"`
	Survivors2 int     `json:"survivors2"`
	Total1     float64 `json:"total1"`
	Total2     float64 `json:"total2"`

	// DurationMicros is the wall clock spent simulating.
	DurationMicros int64 `json:"durationMicros"`

	Settings datatypes.JSON `json:"settings"`
	Rosters  datatypes.JSON `json:"rosters"`

	Frames []PredictionFrame `json:"frames,omitempty" gorm:"foreignKey:PredictionID;constraint:OnDelete:CASCADE"`
}

func (*Prediction) TableName() string {
	return "predictions"
}

// PredictionFrame is one recorded iteration of a prediction.
type PredictionFrame struct {
	ID           uint    `json:"-" gorm:"primarykey;autoIncrement"`
	PredictionID string  `json:"predictionId" gorm:"size:36;index"`
	Iteration    int     `json:"iteration"`
	Time         float64 `json:"time"`
	Health1      float64 `json:"health1"`
	Health2      float64 `json:"health2"`

	Entries datatypes.JSON `json:"entries"`
}

func (*PredictionFrame) TableName() string {
	return "prediction_frames"
}

// Rosters is the JSON shape stored in Prediction.Rosters.
type Rosters struct {
	Side1 []RosterUnit `json:"side1"`
	Side2 []RosterUnit `json:"side2"`
}

// RosterUnit is the stored summary of one input unit.
type RosterUnit struct {
	Type   string  `json:"type"`
	Health float64 `json:"health"`
	Shield float64 `json:"shield,omitempty"`
	Energy float64 `json:"energy,omitempty"`
}

func summarize(units []combat.Unit) []RosterUnit {
	out := make([]RosterUnit, len(units))
	for i := range units {
		out[i] = RosterUnit{
			Type:   units[i].Name(),
			Health: units[i].Health,
			Shield: units[i].Shield,
			Energy: units[i].Energy,
		}
	}
	return out
}

// Input is everything about a request that is stored alongside its result.
type Input struct {
	ID       string
	Source   Source
	Hash     uint64
	Seed     int64
	Defender int
	Settings combat.Settings
	Units1   []combat.Unit
	Units2   []combat.Unit
	Duration time.Duration
}

// NewPrediction builds the row for a finished engagement. Frames are only
// attached when the result carries a recording.
func NewPrediction(in Input, res combat.Result) (*Prediction, error) {
	settings, err := json.Marshal(in.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	rosters, err := json.Marshal(Rosters{Side1: summarize(in.Units1), Side2: summarize(in.Units2)})
	if err != nil {
		return nil, fmt.Errorf("marshal rosters: %w", err)
	}

	p := &Prediction{
		ID:             in.ID,
		CreatedAt:      time.Now(),
		Source:         in.Source,
		Hash:           fmt.Sprintf("%016x", in.Hash),
		Seed:           in.Seed,
		Defender:       in.Defender,
		Winner:         res.Winner,
		Health:         res.Health,
		Termination:    res.Termination.String(),
		Iterations:     res.Iterations,
		SimTime:        res.Time,
		Units1:         len(in.Units1),
		Units2:         len(in.Units2),
		Survivors1:     res.Survivors[0],
		Survivors2:     res.Survivors[1],
		Total1:         res.Totals[0],
		Total2:         res.Totals[1],
		DurationMicros: in.Duration.Microseconds(),
		Settings:       datatypes.JSON(settings),
		Rosters:        datatypes.JSON(rosters),
	}

	if res.Recording == nil {
		return p, nil
	}
	p.Frames = make([]PredictionFrame, 0, len(res.Recording.Frames))
	for _, f := range res.Recording.Frames {
		entries, err := json.Marshal(f.Entries)
		if err != nil {
			return nil, fmt.Errorf("marshal frame %d: %w", f.Iteration, err)
		}
		p.Frames = append(p.Frames, PredictionFrame{
			PredictionID: p.ID,
			Iteration:    f.Iteration,
			Time:         f.Time,
			Health1:      f.Total(1),
			Health2:      f.Total(2),
			Entries:      datatypes.JSON(entries),
		})
	}
	return p, nil
}
