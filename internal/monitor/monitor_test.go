package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/combat"
	"github.com/sc2helper/predictor/internal/predictor"
)

type fakePending int

func (f fakePending) Pending() int { return int(f) }

func newPredictor(t *testing.T) *predictor.Service {
	t.Helper()
	svc, err := predictor.NewService(predictor.Dependencies{
		Catalog:  catalog.Default(),
		Settings: combat.DefaultSettings(),
	})
	require.NoError(t, err)
	return svc
}

func TestGetStatus(t *testing.T) {
	svc := newPredictor(t)
	_, err := svc.Predict(context.Background(), predictor.Request{
		Side1: []catalog.Entry{{Type: "Marine"}},
		Side2: []catalog.Entry{{Type: "Zergling", Count: 2}},
		Seed:  1,
	})
	require.NoError(t, err)

	m := NewService(Dependencies{Service: svc, Storage: fakePending(7)})
	st := m.GetStatus()

	assert.Equal(t, int64(1), st.Stats.Predictions)
	assert.Equal(t, 7, st.Pending)
	assert.Positive(t, st.Goroutines)
	assert.False(t, st.Time.IsZero())
}

func TestGetStatusWithoutPendingStorage(t *testing.T) {
	m := NewService(Dependencies{Storage: struct{}{}})
	assert.Equal(t, 0, m.GetStatus().Pending)
}

func TestStatusPoint(t *testing.T) {
	st := Status{
		Time:       time.Unix(100, 0),
		Stats:      predictor.Stats{Predictions: 3, CacheHits: 1},
		Pending:    2,
		Goroutines: 9,
	}
	p := StatusPoint(st)
	assert.Equal(t, MeasurementStatus, p.Name())
	assert.Equal(t, time.Unix(100, 0), p.Time())

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.EqualValues(t, 3, fields["predictions"])
	assert.EqualValues(t, 2, fields["pending"])
	assert.EqualValues(t, 9, fields["goroutines"])
}

func TestStartStopWritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status", "status.json")
	m := NewService(Dependencies{
		Service:    newPredictor(t),
		StatusFile: path,
		Interval:   time.Hour,
	})

	m.Start(context.Background())
	assert.True(t, m.IsRunning())
	m.Start(context.Background())

	m.Stop()
	assert.False(t, m.IsRunning())
	m.Stop()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(b, &st))
	assert.Positive(t, st.Goroutines)
}

func TestStartTicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	m := NewService(Dependencies{StatusFile: path, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
