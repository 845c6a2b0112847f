package combat

import "fmt"

// Settings tunes a single engagement simulation.
type Settings struct {
	BadMicro                    bool    `json:"badMicro" yaml:"badMicro" mapstructure:"badMicro"`
	Debug                       bool    `json:"debug" yaml:"debug" mapstructure:"debug"`
	EnableSplash                bool    `json:"enableSplash" yaml:"enableSplash" mapstructure:"enableSplash"`
	EnableTimingAdjustment      bool    `json:"enableTimingAdjustment" yaml:"enableTimingAdjustment" mapstructure:"enableTimingAdjustment"`
	EnableSurroundLimits        bool    `json:"enableSurroundLimits" yaml:"enableSurroundLimits" mapstructure:"enableSurroundLimits"`
	EnableMeleeBlocking         bool    `json:"enableMeleeBlocking" yaml:"enableMeleeBlocking" mapstructure:"enableMeleeBlocking"`
	WorkersDoNoDamage           bool    `json:"workersDoNoDamage" yaml:"workersDoNoDamage" mapstructure:"workersDoNoDamage"`
	AssumeReasonablePositioning bool    `json:"assumeReasonablePositioning" yaml:"assumeReasonablePositioning" mapstructure:"assumeReasonablePositioning"`
	MaxTime                     float64 `json:"maxTime" yaml:"maxTime" mapstructure:"maxTime"`
	StartTime                   float64 `json:"startTime" yaml:"startTime" mapstructure:"startTime"`
	MultiThreaded               bool    `json:"multiThreaded" yaml:"multiThreaded" mapstructure:"multiThreaded"`
}

// DefaultSettings returns the settings used when a caller does not override them.
func DefaultSettings() Settings {
	return Settings{
		EnableSplash:                true,
		EnableSurroundLimits:        true,
		EnableMeleeBlocking:         true,
		AssumeReasonablePositioning: true,
		MaxTime:                     100000,
	}
}

// Validate rejects settings no simulation can run with.
func (s Settings) Validate() error {
	if s.MaxTime < s.StartTime {
		return &ValidationError{
			Err:    ErrInvalidConfiguration,
			Side:   0,
			Index:  -1,
			Field:  "maxTime",
			Reason: fmt.Sprintf("max time %g is before start time %g", s.MaxTime, s.StartTime),
		}
	}
	if s.StartTime < 0 {
		return &ValidationError{
			Err:    ErrInvalidConfiguration,
			Index:  -1,
			Field:  "startTime",
			Reason: "negative start time",
		}
	}
	return nil
}
