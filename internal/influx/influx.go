package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/model"
)

// MeasurementEngagement is the measurement every prediction is written under.
const MeasurementEngagement = "engagement"

var (
	// ErrDisabled is returned by Connect when influx.enabled is false.
	ErrDisabled = errors.New("influxdb is disabled")
	// ErrUnavailable is returned by WritePoint when neither the server nor a backup file is usable.
	ErrUnavailable = errors.New("influxDB client not initialized and backup writer not available")
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	org        string
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:    make(map[string]influxdb2_api.WriteAPI),
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB. An unreachable server is not an
// error as long as points can go to the backup file instead.
func (m *Manager) Connect(ctx context.Context, cfg config.InfluxConfig) error {
	if !cfg.Enabled {
		return ErrDisabled
	}
	m.org = cfg.Org
	m.BucketNames = []string{cfg.Bucket}

	m.Client = influxdb2.NewClientWithOptions(
		cfg.URL(),
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("url", cfg.URL()).Str("backupPath", m.BackupPath).
			Msg("InfluxDB client failed to initialize, using backup writer")
		return m.openBackup()
	}
	m.IsValid = true

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Str("url", cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return ErrUnavailable
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, m.org)
	if err != nil {
		m.Logger.Info().Str("org", m.org).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, m.org)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", m.org).Msg("Error creating organization")
			return err
		}
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.org, bucket)
		m.Writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file. An empty bucket
// means the first configured bucket.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bucket == "" && len(m.BucketNames) > 0 {
		bucket = m.BucketNames[0]
	}

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return ErrUnavailable
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WritePrediction writes the engagement point for p.
func (m *Manager) WritePrediction(p *model.Prediction) error {
	return m.WritePoint("", PredictionPoint(p))
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	m.IsValid = false

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// PredictionPoint converts a stored prediction into an engagement point.
func PredictionPoint(p *model.Prediction) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementEngagement,
		map[string]string{
			"source":      string(p.Source),
			"winner":      strconv.Itoa(p.Winner),
			"defender":    strconv.Itoa(p.Defender),
			"termination": p.Termination,
		},
		map[string]any{
			"health":      p.Health,
			"iterations":  p.Iterations,
			"sim_time":    p.SimTime,
			"units1":      p.Units1,
			"units2":      p.Units2,
			"survivors1":  p.Survivors1,
			"survivors2":  p.Survivors2,
			"duration_us": p.DurationMicros,
			"hash":        p.Hash,
		},
		p.CreatedAt,
	)
}

// ParseMetric builds a point from a client supplied metric command.
//
// The first element is the bucket name, the second the measurement name.
// Elements with a "tag::" prefix are tags ("tag::name::value"), elements with a
// "field::" prefix are fields ("field::type::name::value", type one of string,
// int, float or bool).
func ParseMetric(data []string) (bucket string, point *influxdb2_write.Point, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs a bucket and a measurement, got %d elements", len(data))
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	var fields int
	for _, item := range data[2:] {
		parts := strings.Split(item, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			value, err := parseFieldValue(parts[1], parts[3])
			if err != nil {
				return "", nil, err
			}
			point.AddField(parts[2], value)
			fields++
		}
	}
	if fields == 0 {
		return "", nil, fmt.Errorf("metric %q has no fields", data[1])
	}
	point.SetTime(time.Now())
	return bucket, point, nil
}

func parseFieldValue(fieldType, raw string) (any, error) {
	switch fieldType {
	case "string":
		return raw, nil
	case "int":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("error converting field value '%s' to int: %w", raw, err)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("error converting field value '%s' to float: %w", raw, err)
		}
		return v, nil
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("error converting field value '%s' to bool: %w", raw, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown field type '%s'", fieldType)
	}
}
