package logging

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// DatabaseHook implements zerolog.Hook to store logs in database
type DatabaseHook struct {
	storage  *LogStorage
	minLevel zerolog.Level
}

// NewDatabaseHook creates a new database hook for zerolog
func NewDatabaseHook(storage *LogStorage, minLevel zerolog.Level) *DatabaseHook {
	return &DatabaseHook{
		storage:  storage,
		minLevel: minLevel,
	}
}

// Run implements the zerolog.Hook interface
func (h *DatabaseHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level < h.minLevel || level == zerolog.NoLevel {
		return
	}

	// Fields already added to the event are not readable from a hook, so only
	// level and message are persisted here.
	entry := &LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   msg,
		Metadata:  "{}",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.storage.Store(ctx, entry); err != nil {
		fmt.Fprintln(os.Stderr, "failed to persist log entry:", err)
	}
}
