// Package gormstorage stores prediction history through GORM. Predictions are
// queued on record and written in batches by a background flush loop, so the
// caller never waits on the database.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sc2helper/predictor/internal/database"
	"github.com/sc2helper/predictor/internal/model"
	"github.com/sc2helper/predictor/internal/queue"
	"gorm.io/gorm"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultQueueLimit    = 10000
	flushBatchSize       = 500
)

// Dependencies holds everything the backend needs from the caller.
type Dependencies struct {
	// DB may be nil, in which case predictions stay queued.
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	QueueLimit    int
}

// Backend writes queued predictions through GORM.
type Backend struct {
	db       *gorm.DB
	log      *slog.Logger
	interval time.Duration

	predictions *queue.Queue[*model.Prediction]

	flushMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	started   bool
	closeOnce sync.Once
}

// New creates a GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.QueueLimit <= 0 {
		deps.QueueLimit = defaultQueueLimit
	}
	return &Backend{
		db:          deps.DB,
		log:         deps.Logger,
		interval:    deps.FlushInterval,
		predictions: queue.New[*model.Prediction](deps.QueueLimit),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// DB returns the underlying connection, or nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema and starts the flush loop.
func (b *Backend) Init() error {
	if b.db != nil {
		if err := database.Migrate(b.db); err != nil {
			return err
		}
	}
	b.started = true
	go b.flushLoop()
	return nil
}

// Close stops the flush loop and writes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		if b.started {
			<-b.done
		}
		err = b.Flush()
	})
	return err
}

// RecordPrediction queues p for the next flush.
func (b *Backend) RecordPrediction(p *model.Prediction) error {
	if p == nil {
		return model.ErrNilPrediction
	}
	if dropped := b.predictions.Push(p); dropped > 0 {
		b.log.Warn("Prediction queue full, dropped oldest entries", "dropped", dropped)
	}
	return nil
}

// Pending returns the number of predictions waiting for a flush.
func (b *Backend) Pending() int {
	return b.predictions.Len()
}

// Flush writes all queued predictions in batches. A failed batch is requeued
// and the error returned.
func (b *Backend) Flush() error {
	if b.db == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	var written int
	start := time.Now()
	for !b.predictions.Empty() {
		batch := b.predictions.Drain(flushBatchSize)
		err := b.db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		if err != nil {
			b.predictions.Requeue(batch...)
			return fmt.Errorf("write predictions: %w", err)
		}
		written += len(batch)
	}

	if written > 0 {
		b.log.Debug("Flushed predictions", "count", written, "duration", time.Since(start))
	}
	return nil
}

func (b *Backend) flushLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error("Error flushing predictions", "error", err, "pending", b.Pending())
			}
		}
	}
}

// Recent returns up to limit stored predictions, newest first.
func (b *Backend) Recent(limit int) ([]model.Prediction, error) {
	if b.db == nil {
		return nil, nil
	}
	var out []model.Prediction
	err := b.db.Order("created_at DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	return out, nil
}

// Count returns the number of stored predictions.
func (b *Backend) Count() (int64, error) {
	if b.db == nil {
		return 0, nil
	}
	var n int64
	if err := b.db.Model(&model.Prediction{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}
