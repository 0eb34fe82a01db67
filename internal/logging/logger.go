package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
	PanicLevel LogLevel = "panic"
)

// Metadata warning classes.
const (
	MetadataNonStandard = "non_standard_format"
	MetadataFailed      = "extraction_failed"
)

// Logger holds the zerolog logger instance
type Logger struct {
	logger zerolog.Logger
}

// LogContext holds contextual information for logging
type LogContext struct {
	TraceID  string `json:"trace_id,omitempty"`
	SpanID   string `json:"span_id,omitempty"`
	RootPath string `json:"root_path,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	SongID   int64  `json:"song_id,omitempty"`
	AlbumID  int64  `json:"album_id,omitempty"`
	Queue    string `json:"queue,omitempty"`
	JobType  string `json:"job_type,omitempty"`
	Module   string `json:"module,omitempty"`
	Function string `json:"function,omitempty"`
}

// NewLogger creates a new logger instance with the specified log level
func NewLogger(logLevel LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		logger: logger,
	}
}

// Zerolog exposes the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}

// WithContext adds trace and span ids from ctx when a span is active
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logCtx := l.logger.With()

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		logCtx = logCtx.Str("trace_id", spanCtx.TraceID().String())
		logCtx = logCtx.Str("span_id", spanCtx.SpanID().String())
	}

	contextualLogger := logCtx.Logger()
	return &contextualLogger
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// WithField adds a single field to the logger
func (l *Logger) WithField(key string, value interface{}) *zerolog.Logger {
	logger := l.logger.With().Interface(key, value).Logger()
	return &logger
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *zerolog.Logger {
	logCtx := l.logger.With()

	for key, value := range fields {
		logCtx = logCtx.Interface(key, value)
	}

	logger := logCtx.Logger()
	return &logger
}

// WithContextFields adds context-specific fields to the logger
func (l *Logger) WithContextFields(ctx LogContext) *zerolog.Logger {
	logCtx := l.logger.With()

	if ctx.TraceID != "" {
		logCtx = logCtx.Str("trace_id", ctx.TraceID)
	}
	if ctx.SpanID != "" {
		logCtx = logCtx.Str("span_id", ctx.SpanID)
	}
	if ctx.RootPath != "" {
		logCtx = logCtx.Str("root_path", ctx.RootPath)
	}
	if ctx.FilePath != "" {
		logCtx = logCtx.Str("file_path", ctx.FilePath)
	}
	if ctx.SongID != 0 {
		logCtx = logCtx.Int64("song_id", ctx.SongID)
	}
	if ctx.AlbumID != 0 {
		logCtx = logCtx.Int64("album_id", ctx.AlbumID)
	}
	if ctx.Queue != "" {
		logCtx = logCtx.Str("queue", ctx.Queue)
	}
	if ctx.JobType != "" {
		logCtx = logCtx.Str("job_type", ctx.JobType)
	}
	if ctx.Module != "" {
		logCtx = logCtx.Str("module", ctx.Module)
	}
	if ctx.Function != "" {
		logCtx = logCtx.Str("function", ctx.Function)
	}

	logger := logCtx.Logger()
	return &logger
}

// LogScanSummary logs the outcome of one directory scan
func (l *Logger) LogScanSummary(rootPath string, files, created, updated, skipped int, duration time.Duration) {
	l.logger.Info().
		Str("root_path", rootPath).
		Int("files", files).
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("Directory scan completed")
}

// LogMetadataWarning logs a tag parsing failure that was degraded to minimal metadata
func (l *Logger) LogMetadataWarning(filePath, class string, err error) {
	event := l.logger.Warn().
		Str("file_path", filePath).
		Str("class", class).
		Err(err)

	if class == MetadataNonStandard {
		event.Msg("Could not read tags, file format may be non-standard")
		return
	}
	event.Msg("Metadata extraction failed")
}

// LogLyricMatch logs the outcome of matching one lyric file
func (l *Logger) LogLyricMatch(filePath, result string, songID int64, score float64) {
	l.logger.Info().
		Str("file_path", filePath).
		Str("result", result).
		Int64("song_id", songID).
		Float64("score", score).
		Msg("Lyric file processed")
}

// LogJobProcessing logs job processing information
func (l *Logger) LogJobProcessing(queue, jobType string, duration time.Duration, success bool, errorMsg string) {
	event := l.logger.With().
		Str("queue", queue).
		Str("job_type", jobType).
		Int64("duration_ms", duration.Milliseconds()).
		Bool("success", success).
		Logger()

	if success {
		event.Info().Msg("Job processed successfully")
	} else {
		event.Error().Str("error", errorMsg).Msg("Job processing failed")
	}
}

// SetLogLevel dynamically changes the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) error {
	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}

	l.logger = l.logger.Level(level)
	return nil
}
