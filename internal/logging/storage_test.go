package logging

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openLogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&LogEntry{}))
	return db
}

func TestLogStorage_StoreAndQuery(t *testing.T) {
	storage := NewLogStorage(openLogDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, storage.Store(ctx, &LogEntry{Timestamp: now.Add(-time.Minute), Level: "warn", Message: "Could not read tags", Module: "metadata"}))
	require.NoError(t, storage.Store(ctx, &LogEntry{Timestamp: now, Level: "error", Message: "Reconcile failed", Module: "scanner"}))

	entries, total, err := storage.Query(ctx, LogFilters{Level: "warn"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "metadata", entries[0].Module)

	entries, total, err = storage.Query(ctx, LogFilters{Search: "RECONCILE"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "scanner", entries[0].Module)

	recent, err := storage.GetRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Reconcile failed", recent[0].Message)
}

func TestLogStorage_DeleteOldLogs(t *testing.T) {
	storage := NewLogStorage(openLogDB(t))
	ctx := context.Background()

	require.NoError(t, storage.Store(ctx, &LogEntry{Timestamp: time.Now().Add(-48 * time.Hour), Level: "info", Message: "old"}))
	require.NoError(t, storage.Store(ctx, &LogEntry{Timestamp: time.Now(), Level: "info", Message: "new"}))

	removed, err := storage.DeleteOldLogs(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestDatabaseHook_RespectsMinimumLevel(t *testing.T) {
	db := openLogDB(t)
	storage := NewLogStorage(db)

	l := NewLogger(DebugLevel, &discard{})
	l.logger = l.logger.Hook(NewDatabaseHook(storage, zerolog.ErrorLevel))

	l.Warn("not stored")
	l.Error("stored")

	var count int64
	require.NoError(t, db.Model(&LogEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
