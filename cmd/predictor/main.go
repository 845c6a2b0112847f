package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"

	"github.com/sc2helper/predictor/internal/cache"
	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/influx"
	"github.com/sc2helper/predictor/internal/logging"
	"github.com/sc2helper/predictor/internal/model"
	intOtel "github.com/sc2helper/predictor/internal/otel"
	"github.com/sc2helper/predictor/internal/predictor"
	"github.com/sc2helper/predictor/internal/storage"
)

// module defs - set at build time via ldflags
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"

	AppName = "predictor"
)

var (
	SessionStartTime = time.Now()

	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	DBLogger     zerolog.Logger
	OTelProvider *intOtel.Provider

	LogFile *os.File

	configDir *string
)

// app holds the services built from config for one command.
type app struct {
	catalog *catalog.Catalog
	storage storage.Backend
	influx  *influx.Manager
	cache   *cache.PredictionCache
	service *predictor.Service
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [args]

Commands:
  predict <scenario.yaml>   predict one engagement and print the result
  batch <scenario.yaml>     run the scenario --runs times and print a summary
  units                     list the unit types in the catalog
  serve                     read commands from stdin, one per line
  version                   print the version

Flags:
`, AppName)
	pflag.PrintDefaults()
}

func defineFlags() {
	configDir = pflag.String("config", ".", "directory holding "+config.FileName)
	pflag.String("log-level", "", "log level (debug, info, warn, error)")
	pflag.String("storage", "", "storage backend (memory, sqlite, postgres, none)")
	pflag.String("catalog", "", "unit catalog YAML replacing the built-in one")
	pflag.Int64("seed", 0, "shuffle seed; 0 picks a random one")
	pflag.Int("runs", 100, "runs per batch")
	pflag.Int("workers", 0, "worker goroutines; 0 uses worker.count")
	pflag.Bool("record", false, "attach per-iteration frames to predictions")
	pflag.Bool("json", false, "write log files as JSON")
	pflag.Usage = usage
	pflag.Parse()

	// flags override the config file only when given
	for key, flag := range map[string]string{
		"logLevel":      "log-level",
		"storage.type":  "storage",
		"catalog.path":  "catalog",
		"combat.seed":   "seed",
		"combat.record": "record",
		"worker.count":  "workers",
		"logJSON":       "json",
	} {
		f := pflag.Lookup(flag)
		if f.Changed {
			if err := viper.BindPFlag(key, f); err != nil {
				fmt.Fprintf(os.Stderr, "binding flag %s: %v\n", flag, err)
			}
		}
	}
}

// setupLogging starts with console-only logging, then adds the session log file
// and the OTel bridge once config is known.
func setupLogging(ctx context.Context) {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{Level: viper.GetString("logLevel")})
	Logger = SlogManager.Logger()

	logsDir := viper.GetString("logsDir")
	var err error
	LogFile, err = logging.OpenLogFile(logsDir, AppName, SessionStartTime)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "dir", logsDir)
	}

	DBLogger = logging.NewZerolog(os.Stderr, viper.GetString("logLevel"))
	if LogFile != nil {
		DBLogger = logging.NewZerolog(LogFile, viper.GetString("logLevel"))
	}

	otelCfg, err := config.GetOTelConfig()
	if err != nil {
		Logger.Warn("Invalid otel config, OTel disabled", "error", err)
	}
	if otelCfg.Enabled {
		cfg := intOtel.Config{
			Enabled:        true,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		}
		if LogFile != nil {
			cfg.LogWriter = LogFile
		}
		OTelProvider, err = intOtel.New(ctx, cfg)
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	opts := logging.Options{
		Level: viper.GetString("logLevel"),
		JSON:  viper.GetBool("logJSON"),
	}
	if LogFile != nil {
		opts.File = LogFile
	}
	if OTelProvider != nil {
		opts.Provider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	if LogFile != nil {
		Logger.Debug("Logging to file", "path", LogFile.Name())
	}
}

func loadCatalog() (*catalog.Catalog, error) {
	path := viper.GetString("catalog.path")
	if path == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	Logger.Info("Loaded unit catalog", "path", path, "types", len(c.Names()))
	return c, nil
}

func setupInflux(ctx context.Context) *influx.Manager {
	cfg, err := config.GetInfluxConfig()
	if err != nil {
		Logger.Warn("Invalid influx config, metrics disabled", "error", err)
		return nil
	}
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("%s_influx_%s.gz", AppName, SessionStartTime.Format("20060102_150405")))
	m := influx.NewManager(DBLogger, backup)
	if err := m.Connect(ctx, cfg); err != nil {
		Logger.Error("Failed to set up InfluxDB, metrics disabled", "error", err)
		return nil
	}
	return m
}

func newApp(ctx context.Context, source model.Source) (*app, error) {
	a := &app{}

	var err error
	if a.catalog, err = loadCatalog(); err != nil {
		return nil, err
	}
	settings, err := config.GetCombatSettings()
	if err != nil {
		return nil, err
	}
	if a.storage, err = initStorage(); err != nil {
		return nil, err
	}
	a.influx = setupInflux(ctx)

	cacheCfg, err := config.GetCacheConfig()
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	if cacheCfg.Enabled {
		a.cache = cache.NewPredictionCache(cacheCfg.MaxEntries)
	}

	var meter metric.Meter
	if OTelProvider != nil {
		meter = OTelProvider.Meter("github.com/sc2helper/predictor")
	}

	a.service, err = predictor.NewService(predictor.Dependencies{
		Catalog:  a.catalog,
		Storage:  a.storage,
		Influx:   a.influx,
		Cache:    a.cache,
		Logger:   SlogManager.Component("predictor"),
		Meter:    meter,
		Settings: settings,
		Source:   source,
		Version:  CurrentVersion,
		Workers:  viper.GetInt("worker.count"),
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			Logger.Error("Failed to close storage", "error", err)
		}
		if e, ok := a.storage.(storage.Exporter); ok && e.ExportedFilePath() != "" {
			Logger.Info("Predictions exported", "path", e.ExportedFilePath())
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			Logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	case "units":
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		return printJSON(c.Names())
	}

	source := model.SourceCLI
	if cmd == "serve" {
		source = model.SourceDispatcher
	}
	a, err := newApp(ctx, source)
	if err != nil {
		return err
	}
	// shutdown must finish even when ctx was cancelled by a signal
	defer a.close(context.WithoutCancel(ctx))

	switch cmd {
	case "predict":
		return a.predict(ctx, rest)
	case "batch":
		return a.batch(ctx, rest)
	case "serve":
		return a.serve(ctx, os.Stdin, os.Stdout)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func main() {
	defineFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgErr := config.Load(*configDir)
	setupLogging(ctx)
	if cfgErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	}
	Logger.Debug("Starting up", "version", CurrentVersion, "build", BuildDate)

	err := run(ctx, pflag.Args())
	if LogFile != nil {
		LogFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
