package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sc2helper/predictor/internal/database"
	"github.com/sc2helper/predictor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func testPrediction(id string) *model.Prediction {
	return &model.Prediction{
		ID:       id,
		Winner:   2,
		Settings: datatypes.JSON(`{}`),
		Rosters:  datatypes.JSON(`{}`),
	}
}

func TestCloseWritesFinalDump(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump", "history.db")
	b, err := New(Config{
		Path:          filepath.Join(dir, "live.db"),
		DumpPath:      dump,
		FlushInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordPrediction(testPrediction("a")))
	require.NoError(t, b.RecordPrediction(testPrediction("b")))
	require.NoError(t, b.Close())

	_, err = os.Stat(dump)
	require.NoError(t, err)

	db, err := database.OpenSqlite(dump)
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&model.Prediction{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestDumpLoop(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "periodic.db")
	b, err := New(Config{
		Path:          filepath.Join(dir, "live.db"),
		DumpPath:      dump,
		DumpInterval:  20 * time.Millisecond,
		FlushInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordPrediction(testPrediction("a")))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCloseWithoutDumpPath(t *testing.T) {
	b, err := New(Config{Path: filepath.Join(t.TempDir(), "live.db")}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordPrediction(testPrediction("a")))
	require.NoError(t, b.Close())
	// idempotent
	require.NoError(t, b.Close())

	n, err := b.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
