package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "github.com/sc2helper/predictor"

// Options configures SlogManager.Setup.
type Options struct {
	Level string
	// Console receives human readable output. Nil means stderr; use io.Discard to silence it.
	Console io.Writer
	// File receives the same records as Console when set.
	File io.Writer
	// JSON switches the file output to the JSON handler.
	JSON bool
	// Provider bridges records into OpenTelemetry when set.
	Provider *sdklog.LoggerProvider
}

// SlogManager owns the process logger and the OTel log provider behind it.
type SlogManager struct {
	logger   *slog.Logger
	level    *slog.LevelVar
	provider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{level: new(slog.LevelVar)}
}

// ParseLevel maps a level name to slog.Level, falling back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return a
}

// Setup builds the logger from opts. Records carry attributes stored in their
// context with WithAttrs.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(ParseLevel(opts.Level))
	m.provider = opts.Provider

	handlerOpts := &slog.HandlerOptions{Level: m.level, ReplaceAttr: utcTime}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	handlers := []slog.Handler{slog.NewTextHandler(console, handlerOpts)}

	if opts.File != nil {
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(opts.File, handlerOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
		}
	}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	m.logger = slog.New(NewContextHandler(NewMultiHandler(handlers...)))
	m.logger.Debug("logging initialized", "level", m.level.Level().String())
}

// SetLevel changes the minimum level at runtime.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(ParseLevel(level))
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Component returns a logger tagged with the component name.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// Flush pushes pending OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}
