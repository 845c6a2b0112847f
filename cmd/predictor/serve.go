package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/dispatcher"
	"github.com/sc2helper/predictor/internal/logging"
	"github.com/sc2helper/predictor/internal/monitor"
)

const maxLineSize = 1 << 20

var errEmptyLine = errors.New("empty line")

// parseLine splits ":CMD: args". A payload starting with '{' or '[' is passed
// as a single JSON argument, anything else is split on whitespace.
func parseLine(line string) (cmd string, args []string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, errEmptyLine
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch {
	case rest == "":
	case rest[0] == '{' || rest[0] == '[':
		args = []string{rest}
	default:
		args = strings.Fields(rest)
	}
	return cmd, args, nil
}

// responder writes one JSON array per line: ["ok", cmd, id, result],
// ["queued", cmd, id] or ["error", cmd, id, message].
type responder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newResponder(w io.Writer) *responder {
	return &responder{enc: json.NewEncoder(w)}
}

func (r *responder) write(v ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(v); err != nil {
		Logger.Error("Failed to write response", "error", err)
	}
}

func (r *responder) reply(cmd, id string, result any, err error) {
	if err != nil {
		r.write("error", cmd, id, err.Error())
		return
	}
	r.write("ok", cmd, id, result)
}

// serve dispatches commands read from in until EOF or ctx is done, then waits
// for queued commands to finish.
func (a *app) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	d, err := dispatcher.New(logging.NewDispatcherLogger(DBLogger))
	if err != nil {
		return err
	}
	if err := a.service.RegisterHandlers(d); err != nil {
		return err
	}
	defer d.Close()

	if mon := a.startMonitor(ctx); mon != nil {
		defer mon.Stop()
	}

	resp := newResponder(out)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	Logger.Info("Serving commands on stdin", "commands", d.Commands())
	for {
		select {
		case <-ctx.Done():
			Logger.Info("Shutting down", "reason", context.Cause(ctx))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			a.handleLine(ctx, d, resp, line)
		}
	}
}

func (a *app) startMonitor(ctx context.Context) *monitor.Service {
	cfg, err := config.GetMonitorConfig()
	if err != nil {
		Logger.Warn("Invalid monitor config, status monitor disabled", "error", err)
		return nil
	}
	if !cfg.Enabled {
		return nil
	}
	mon := monitor.NewService(monitor.Dependencies{
		Service:    a.service,
		Storage:    a.storage,
		Influx:     a.influx,
		Logger:     SlogManager.Component("monitor"),
		StatusFile: cfg.StatusFile,
		Interval:   cfg.Interval,
	})
	mon.Start(ctx)
	return mon
}

func (a *app) handleLine(ctx context.Context, d *dispatcher.Dispatcher, resp *responder, line string) {
	cmd, args, err := parseLine(line)
	if errors.Is(err, errEmptyLine) {
		return
	}
	id := uuid.NewString()

	// replies of queued events follow their ack
	acked := make(chan struct{})
	defer close(acked)

	result, err := d.Dispatch(ctx, dispatcher.Event{
		ID:        id,
		Command:   cmd,
		Args:      args,
		Timestamp: time.Now(),
		Reply: func(result any, err error) {
			<-acked
			resp.reply(cmd, id, result, err)
		},
	})
	if err == nil && result == dispatcher.Queued {
		resp.write(dispatcher.Queued, cmd, id)
		return
	}
	resp.reply(cmd, id, result, err)
}
