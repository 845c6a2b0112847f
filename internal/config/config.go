package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sc2helper/predictor/internal/combat"
)

// FileName is the config file looked up in the config directory.
const FileName = "predictor.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. PREDICTOR_COMBAT_MAXTIME.
const EnvPrefix = "PREDICTOR"

// MemoryConfig holds in-memory storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings.
type SQLiteConfig struct {
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the prediction history backend.
type StorageConfig struct {
	Type          string        `json:"type" mapstructure:"type"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	Memory        MemoryConfig  `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL is the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry exporter settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// CacheConfig holds prediction cache settings.
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	MaxEntries int  `json:"maxEntries" mapstructure:"maxEntries"`
}

// MonitorConfig holds status monitor settings for serve mode.
type MonitorConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./predictorlogs")
	viper.SetDefault("logJSON", false)

	d := combat.DefaultSettings()
	viper.SetDefault("combat.badMicro", d.BadMicro)
	viper.SetDefault("combat.debug", d.Debug)
	viper.SetDefault("combat.enableSplash", d.EnableSplash)
	viper.SetDefault("combat.enableTimingAdjustment", d.EnableTimingAdjustment)
	viper.SetDefault("combat.enableSurroundLimits", d.EnableSurroundLimits)
	viper.SetDefault("combat.enableMeleeBlocking", d.EnableMeleeBlocking)
	viper.SetDefault("combat.workersDoNoDamage", d.WorkersDoNoDamage)
	viper.SetDefault("combat.assumeReasonablePositioning", d.AssumeReasonablePositioning)
	viper.SetDefault("combat.maxTime", d.MaxTime)
	viper.SetDefault("combat.startTime", d.StartTime)
	viper.SetDefault("combat.multiThreaded", d.MultiThreaded)
	viper.SetDefault("combat.seed", 0)
	viper.SetDefault("combat.record", false)

	viper.SetDefault("catalog.path", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", "2s")
	viper.SetDefault("storage.memory.outputDir", "./predictions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpPath", "./predictions/history.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "predictor")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "sc2helper")
	viper.SetDefault("influx.bucket", "predictions")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "combat-predictor")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.maxEntries", 4096)

	viper.SetDefault("worker.count", 4)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.statusFile", "./predictorlogs/status.json")
}

// Load sets defaults, binds environment overrides and reads the config file from
// configDir. A missing file is not an error; a malformed one is.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetCombatSettings returns the engagement settings under "combat".
func GetCombatSettings() (combat.Settings, error) {
	s := combat.DefaultSettings()
	if err := viper.UnmarshalKey("combat", &s); err != nil {
		return combat.Settings{}, fmt.Errorf("decode combat settings: %w", err)
	}
	return s, s.Validate()
}

func unmarshal[T any](key string) (T, error) {
	var out T
	if err := viper.UnmarshalKey(key, &out); err != nil {
		return out, fmt.Errorf("decode %s config: %w", key, err)
	}
	return out, nil
}

func GetStorageConfig() (StorageConfig, error) { return unmarshal[StorageConfig]("storage") }

func GetDatabaseConfig() (DatabaseConfig, error) { return unmarshal[DatabaseConfig]("db") }

func GetInfluxConfig() (InfluxConfig, error) { return unmarshal[InfluxConfig]("influx") }

func GetOTelConfig() (OTelConfig, error) { return unmarshal[OTelConfig]("otel") }

func GetCacheConfig() (CacheConfig, error) { return unmarshal[CacheConfig]("cache") }

func GetMonitorConfig() (MonitorConfig, error) { return unmarshal[MonitorConfig]("monitor") }
