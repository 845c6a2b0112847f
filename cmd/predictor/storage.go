package main

import (
	"fmt"

	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/storage"
)

func initStorage() (storage.Backend, error) {
	storageCfg, err := config.GetStorageConfig()
	if err != nil {
		return nil, err
	}
	dbCfg, err := config.GetDatabaseConfig()
	if err != nil {
		return nil, err
	}

	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		Database: dbCfg,
		Logger:   SlogManager.Component("storage"),
		DBLogger: DBLogger,
	})
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, fmt.Errorf("failed to create %s backend: %w", storageCfg.Type, err)
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, err
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}
