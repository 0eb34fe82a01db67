package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger instance
func InitGlobalLogger(level LogLevel, format string, storage *LogStorage) *Logger {
	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if format == "json" {
		output = os.Stdout
	}
	globalLogger = NewLogger(level, output)

	// Add database hook if storage is provided
	if storage != nil {
		zerologLevel, err := zerolog.ParseLevel(string(level))
		if err != nil {
			zerologLevel = zerolog.WarnLevel
		}
		hook := NewDatabaseHook(storage, zerologLevel)
		globalLogger.logger = globalLogger.logger.Hook(hook)
	}

	return globalLogger
}

// SetGlobalLogger replaces the global logger, mostly for tests.
func SetGlobalLogger(l *Logger) {
	globalLogger = l
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(InfoLevel, os.Stderr)
	}
	return globalLogger
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// Info logs an info message
func Info(msg string) {
	GetGlobalLogger().logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	GetGlobalLogger().logger.Info().Msg(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Error().Msg(fmt.Sprintf(format, args...))
}

// Fatalf logs a formatted fatal message and exits
func Fatalf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Fatal().Msg(fmt.Sprintf(format, args...))
}

// WithFields creates a logger with additional fields
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	return GetGlobalLogger().WithFields(fields)
}

// WithContext creates a logger with context
func WithContext(ctx context.Context) *zerolog.Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithModule creates a logger with module field
func WithModule(module string) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().Str("module", module).Logger()
	return &logger
}

// WithJob creates a logger with job-related fields
func WithJob(queue, jobType string) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().
		Str("queue", queue).
		Str("job_type", jobType).
		Logger()
	return &logger
}

// WithError creates a logger with error field
func WithError(err error) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().Err(err).Logger()
	return &logger
}
