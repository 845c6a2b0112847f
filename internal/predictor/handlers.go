package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sc2helper/predictor/internal/dispatcher"
	"github.com/sc2helper/predictor/internal/influx"
	"github.com/sc2helper/predictor/internal/storage"
)

// Commands served by RegisterHandlers.
const (
	CmdPredict = ":PREDICT:"
	CmdBatch   = ":BATCH:"
	CmdVersion = ":VERSION:"
	CmdStats   = ":STATS:"
	CmdUnits   = ":UNITS:"
	CmdHistory = ":HISTORY:"
	CmdMetric  = ":METRIC:"
)

const (
	predictQueueSize  = 256
	batchQueueSize    = 8
	defaultHistoryLen = 20
)

// ErrMissingArgs is returned when a command is sent without its payload.
var ErrMissingArgs = errors.New("missing arguments")

// RegisterHandlers registers all commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) error {
	workers := max(s.deps.Workers, 1)

	regs := []struct {
		cmd  string
		h    dispatcher.HandlerFunc
		opts []dispatcher.Option
	}{
		// simulations run off the reader goroutine
		{CmdPredict, s.handlePredict, []dispatcher.Option{dispatcher.Buffered(predictQueueSize), dispatcher.Workers(workers), dispatcher.Logged()}},
		{CmdBatch, s.handleBatch, []dispatcher.Option{dispatcher.Buffered(batchQueueSize), dispatcher.Logged()}},

		{CmdVersion, s.handleVersion, nil},
		{CmdStats, s.handleStats, nil},
		{CmdUnits, s.handleUnits, nil},
		{CmdHistory, s.handleHistory, []dispatcher.Option{dispatcher.Logged()}},
		{CmdMetric, s.handleMetric, []dispatcher.Option{dispatcher.Logged()}},
	}
	for _, r := range regs {
		if err := d.Register(r.cmd, r.h, r.opts...); err != nil {
			return err
		}
	}
	return nil
}

func decodeArg(e dispatcher.Event, out any) error {
	if len(e.Args) == 0 {
		return fmt.Errorf("%s: %w", e.Command, ErrMissingArgs)
	}
	if err := json.Unmarshal([]byte(e.Args[0]), out); err != nil {
		return fmt.Errorf("%s: decode request: %w", e.Command, err)
	}
	return nil
}

func (s *Service) handlePredict(ctx context.Context, e dispatcher.Event) (any, error) {
	var req Request
	if err := decodeArg(e, &req); err != nil {
		return nil, err
	}
	return s.Predict(ctx, req)
}

func (s *Service) handleBatch(ctx context.Context, e dispatcher.Event) (any, error) {
	var req BatchRequest
	if err := decodeArg(e, &req); err != nil {
		return nil, err
	}
	return s.Batch(ctx, req)
}

func (s *Service) handleVersion(context.Context, dispatcher.Event) (any, error) {
	return []string{"ok", s.deps.Version}, nil
}

func (s *Service) handleStats(context.Context, dispatcher.Event) (any, error) {
	return s.Stats(), nil
}

func (s *Service) handleUnits(context.Context, dispatcher.Event) (any, error) {
	return s.deps.Catalog.Names(), nil
}

func (s *Service) handleHistory(_ context.Context, e dispatcher.Event) (any, error) {
	h, ok := s.deps.Storage.(storage.History)
	if !ok {
		return nil, fmt.Errorf("%s: storage backend keeps no history", e.Command)
	}
	limit := defaultHistoryLen
	if len(e.Args) > 0 {
		n, err := strconv.Atoi(e.Args[0])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s: invalid limit %q", e.Command, e.Args[0])
		}
		limit = n
	}
	return h.Recent(limit)
}

func (s *Service) handleMetric(_ context.Context, e dispatcher.Event) (any, error) {
	if s.deps.Influx == nil {
		return nil, fmt.Errorf("%s: influx is not configured", e.Command)
	}
	bucket, point, err := influx.ParseMetric(e.Args)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Influx.WritePoint(bucket, point); err != nil {
		return nil, err
	}
	return "ok", nil
}
