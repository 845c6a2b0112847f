package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sc2helper/predictor/internal/influx"
	"github.com/sc2helper/predictor/internal/predictor"
)

// MeasurementStatus is the InfluxDB measurement of status points.
const MeasurementStatus = "status"

// pendingReporter is implemented by storage backends that queue writes.
type pendingReporter interface {
	Pending() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Service *predictor.Service
	// Storage is polled for queued writes when it reports them.
	Storage any
	Influx  *influx.Manager
	Logger  *slog.Logger
	// StatusFile is rewritten on every tick when set.
	StatusFile string
	Interval   time.Duration
}

// Status is a snapshot of the running process.
type Status struct {
	Time       time.Time       `json:"time"`
	Uptime     time.Duration   `json:"uptime"`
	Stats      predictor.Stats `json:"stats"`
	Pending    int             `json:"pending"`
	Goroutines int             `json:"goroutines"`
	HeapBytes  uint64          `json:"heapBytes"`
}

// Service manages status monitoring
type Service struct {
	deps    Dependencies
	started time.Time

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{deps: deps, started: time.Now()}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status
func (s *Service) GetStatus() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Time:       time.Now(),
		Uptime:     time.Since(s.started),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
	}
	if s.deps.Service != nil {
		st.Stats = s.deps.Service.Stats()
	}
	if p, ok := s.deps.Storage.(pendingReporter); ok {
		st.Pending = p.Pending()
	}
	return st
}

// StatusPoint converts a status snapshot into an InfluxDB point.
func StatusPoint(st Status) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementStatus,
		map[string]string{},
		map[string]any{
			"predictions": st.Stats.Predictions,
			"cache_hits":  st.Stats.CacheHits,
			"failures":    st.Stats.Failures,
			"stored":      st.Stats.Stored,
			"pending":     st.Pending,
			"goroutines":  st.Goroutines,
			"heap_bytes":  int64(st.HeapBytes),
			"uptime_s":    st.Uptime.Seconds(),
		},
		st.Time,
	)
}

// WriteStatusFile replaces path with st as indented JSON.
func WriteStatusFile(path string, st Status) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Service) tick(ctx context.Context) {
	st := s.GetStatus()

	if s.deps.StatusFile != "" {
		if err := WriteStatusFile(s.deps.StatusFile, st); err != nil {
			s.deps.Logger.ErrorContext(ctx, "Error writing status file", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint("", StatusPoint(st)); err != nil {
			s.deps.Logger.WarnContext(ctx, "Error writing status point", "error", err)
		}
	}
	s.deps.Logger.DebugContext(ctx, "Status",
		"predictions", st.Stats.Predictions,
		"pending", st.Pending,
		"goroutines", st.Goroutines,
	)
}

// Start starts the status monitor goroutine
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.DebugContext(ctx, "Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.tick(ctx)
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop stops the status monitor after a final tick and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	stop, done := s.stopChan, s.done
	s.stopChan = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	<-done
}
