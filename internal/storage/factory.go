// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/database"
	gormstorage "github.com/sc2helper/predictor/internal/storage/gorm"
	"github.com/sc2helper/predictor/internal/storage/memory"
	sqlitestorage "github.com/sc2helper/predictor/internal/storage/sqlite"
)

// Storage types accepted by NewBackend.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeNone     = "none"
)

// Dependencies holds what the SQL backends need beyond StorageConfig.
type Dependencies struct {
	Database config.DatabaseConfig
	Logger   *slog.Logger
	// DBLogger receives connection lifecycle messages from the database manager.
	DBLogger zerolog.Logger
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Type {
	case TypePostgres:
		return newPostgres(cfg, deps)
	case TypeSQLite:
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval:  cfg.SQLite.DumpInterval,
			DumpPath:      cfg.SQLite.DumpPath,
			FlushInterval: cfg.FlushInterval,
		}, deps.Logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case TypeMemory:
		return memory.New(cfg.Memory), nil
	case TypeNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// newPostgres connects through the database manager. When Postgres is
// unreachable the manager falls back to in-memory SQLite, which is dumped next
// to the configured SQLite dump path.
func newPostgres(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	m := database.NewManager(deps.DBLogger)
	if err := m.Connect(deps.Database); err != nil {
		return nil, err
	}

	if m.ShouldSaveLocal {
		dumpPath := cfg.SQLite.DumpPath
		if dumpPath == "" {
			dumpPath = filepath.Join(cfg.Memory.OutputDir, "fallback.db")
		}
		deps.Logger.Warn("Postgres unavailable, recording predictions to SQLite", "dumpPath", dumpPath)
		return sqlitestorage.NewWithDB(m.DB, sqlitestorage.Config{
			DumpInterval:  cfg.SQLite.DumpInterval,
			DumpPath:      dumpPath,
			FlushInterval: cfg.FlushInterval,
		}, deps.Logger), nil
	}

	return gormstorage.New(gormstorage.Dependencies{
		DB:            m.DB,
		Logger:        deps.Logger,
		FlushInterval: cfg.FlushInterval,
	}), nil
}
