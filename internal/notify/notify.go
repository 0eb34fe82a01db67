// Package notify publishes best-effort scan notifications to a broker or an
// in-process queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"mayday/internal/config"
	"mayday/internal/logging"
	"mayday/internal/metrics"
)

const (
	// ActionScanDirectory is the action carried by scan events.
	ActionScanDirectory = "scan_directory"

	// DefaultTopic is the topic scan events are published to.
	DefaultTopic = "scan_tasks"

	BackendAsynq = "asynq"
	BackendLocal = "local"
)

// ScanEvent asks a consumer to scan a directory.
type ScanEvent struct {
	Action        string    `json:"action"`
	DirectoryPath string    `json:"directory_path"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewScanEvent stamps a scan request for dir with the current time.
func NewScanEvent(dir string) ScanEvent {
	return ScanEvent{
		Action:        ActionScanDirectory,
		DirectoryPath: dir,
		Timestamp:     time.Now().UTC(),
	}
}

// Marshal encodes the event as its JSON wire form.
func (e ScanEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseScanEvent decodes a JSON scan event.
func ParseScanEvent(data []byte) (ScanEvent, error) {
	var ev ScanEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ScanEvent{}, fmt.Errorf("failed to unmarshal scan event: %w", err)
	}
	if ev.DirectoryPath == "" {
		return ScanEvent{}, fmt.Errorf("scan event has no directory_path")
	}
	return ev, nil
}

// Sink delivers scan events. Implementations are chosen once at startup.
type Sink interface {
	Publish(ctx context.Context, topic string, ev ScanEvent) error
	Backend() string
	Close() error
}

// RedisOpt converts the redis section of the config for asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
}

// PingRedis checks that the configured redis answers.
func PingRedis(ctx context.Context, cfg config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	defer client.Close()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return client.Ping(ctx).Err()
}

// NewSink selects the broker when the queue is enabled and redis answers,
// and the in-process queue otherwise.
func NewSink(ctx context.Context, queue config.QueueConfig, rds config.RedisConfig) Sink {
	if !queue.Enabled {
		return NewLocalQueue()
	}

	if err := PingRedis(ctx, rds); err != nil {
		logging.WithModule("notify").Warn().
			Err(err).
			Str("address", rds.Address).
			Msg("Redis unreachable, falling back to local queue")
		return NewLocalQueue()
	}

	return NewAsynqSink(asynq.NewClient(RedisOpt(rds)), queue.Name)
}

// PublishScan sends a scan event for dir and never fails. Delivery problems
// are logged and counted only.
func PublishScan(ctx context.Context, sink Sink, topic, dir string, m *metrics.Metrics) {
	if sink == nil {
		return
	}
	if topic == "" {
		topic = DefaultTopic
	}

	err := sink.Publish(ctx, topic, NewScanEvent(dir))
	m.Notification(sink.Backend(), err)
	if err != nil {
		logging.WithModule("notify").Warn().
			Err(err).
			Str("backend", sink.Backend()).
			Str("topic", topic).
			Str("directory_path", dir).
			Msg("Failed to publish scan notification")
	}
}
