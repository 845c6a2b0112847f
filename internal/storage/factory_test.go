package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sc2helper/predictor/internal/config"
	gormstorage "github.com/sc2helper/predictor/internal/storage/gorm"
	"github.com/sc2helper/predictor/internal/storage/memory"
	sqlitestorage "github.com/sc2helper/predictor/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ Backend  = Nop{}
	_ Backend  = (*memory.Backend)(nil)
	_ History  = (*memory.Backend)(nil)
	_ Exporter = (*memory.Backend)(nil)
	_ Backend  = (*gormstorage.Backend)(nil)
	_ History  = (*gormstorage.Backend)(nil)
	_ Backend  = (*sqlitestorage.Backend)(nil)
	_ History  = (*sqlitestorage.Backend)(nil)
)

func TestNewBackendMemory(t *testing.T) {
	b, err := NewBackend(config.StorageConfig{Type: TypeMemory}, Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
}

func TestNewBackendNone(t *testing.T) {
	for _, typ := range []string{TypeNone, ""} {
		b, err := NewBackend(config.StorageConfig{Type: typ}, Dependencies{})
		require.NoError(t, err)
		assert.Equal(t, Nop{}, b)
		assert.NoError(t, b.Init())
		assert.NoError(t, b.RecordPrediction(nil))
		assert.NoError(t, b.Close())
	}
}

func TestNewBackendSQLite(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "history.db")
	b, err := NewBackend(config.StorageConfig{
		Type:          TypeSQLite,
		FlushInterval: time.Hour,
		SQLite:        config.SQLiteConfig{DumpPath: dump},
	}, Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.FileExists(t, dump)
}

func TestNewBackendUnknown(t *testing.T) {
	_, err := NewBackend(config.StorageConfig{Type: "websocket"}, Dependencies{})
	assert.ErrorContains(t, err, "unknown storage type")
}
