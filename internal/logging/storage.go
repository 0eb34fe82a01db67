package logging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// LogEntry represents a stored log entry in the database
type LogEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Level     string    `gorm:"size:10;index;not null" json:"level"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Module    string    `gorm:"size:100;index" json:"module,omitempty"`
	FilePath  string    `gorm:"size:1024" json:"file_path,omitempty"`
	Queue     string    `gorm:"size:50" json:"queue,omitempty"`
	JobType   string    `gorm:"size:100" json:"job_type,omitempty"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName specifies the table name for LogEntry
func (LogEntry) TableName() string {
	return "log_entries"
}

// LogStorage handles persistent storage of logs
type LogStorage struct {
	db *gorm.DB
}

// NewLogStorage creates a new log storage instance
func NewLogStorage(db *gorm.DB) *LogStorage {
	return &LogStorage{db: db}
}

// Store saves a log entry to the database
func (s *LogStorage) Store(ctx context.Context, entry *LogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// Query retrieves log entries based on filters
func (s *LogStorage) Query(ctx context.Context, filters LogFilters) ([]LogEntry, int64, error) {
	query := s.db.WithContext(ctx).Model(&LogEntry{})

	if filters.Level != "" {
		query = query.Where("level = ?", filters.Level)
	}
	if filters.Module != "" {
		query = query.Where("module = ?", filters.Module)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", filters.EndTime)
	}
	if filters.Search != "" {
		searchPattern := fmt.Sprintf("%%%s%%", strings.ToLower(filters.Search))
		query = query.Where("LOWER(message) LIKE ? OR LOWER(error) LIKE ?", searchPattern, searchPattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var entries []LogEntry
	err := query.
		Order("timestamp DESC").
		Offset(filters.Offset).
		Limit(limit).
		Find(&entries).Error

	return entries, total, err
}

// GetRecent retrieves the most recent log entries
func (s *LogStorage) GetRecent(ctx context.Context, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	err := s.db.WithContext(ctx).
		Model(&LogEntry{}).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// DeleteOldLogs removes log entries older than the specified duration
func (s *LogStorage) DeleteOldLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&LogEntry{})
	return result.RowsAffected, result.Error
}

// LogFilters defines filters for querying logs
type LogFilters struct {
	Level     string
	Module    string
	StartTime time.Time
	EndTime   time.Time
	Search    string
	Offset    int
	Limit     int
}
