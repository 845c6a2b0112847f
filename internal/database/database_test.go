package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestPostgresDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     "5433",
		Username: "u",
		Password: "p",
		Database: "predictor",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=predictor sslmode=disable", PostgresDSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestConnectSqliteAndSetup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(path))
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup())

	assert.True(t, m.DB.Migrator().HasTable(&model.Prediction{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.PredictionFrame{}))

	p := &model.Prediction{
		ID:       "a",
		Hash:     "00000000000000ff",
		Winner:   1,
		Settings: datatypes.JSON(`{}`),
		Rosters:  datatypes.JSON(`{}`),
		Frames: []model.PredictionFrame{
			{PredictionID: "a", Iteration: 0, Entries: datatypes.JSON(`[]`)},
			{PredictionID: "a", Iteration: 1, Entries: datatypes.JSON(`[]`)},
		},
	}
	require.NoError(t, m.DB.Create(p).Error)

	var frames int64
	require.NoError(t, m.DB.Model(&model.PredictionFrame{}).Where("prediction_id = ?", "a").Count(&frames).Error)
	assert.Equal(t, int64(2), frames)
}

func TestSetupWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup())
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSqlite(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Prediction{
		ID:       "dump",
		Settings: datatypes.JSON(`{}`),
		Rosters:  datatypes.JSON(`{}`),
	}).Error)

	out := filepath.Join(t.TempDir(), "nested", "dump.db")
	require.NoError(t, DumpMemoryDBToDisk(db, out))
	// a second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, out))

	copyDB, err := OpenSqlite(out)
	require.NoError(t, err)
	var count int64
	require.NoError(t, copyDB.Model(&model.Prediction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDiskErrors(t *testing.T) {
	assert.ErrorIs(t, DumpMemoryDBToDisk(nil, ""), ErrNoDumpPath)
	assert.Error(t, DumpMemoryDBToDisk(nil, "bad'path.db"))
}
