package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeScanDirectory is the asynq task type carrying a ScanEvent.
const TypeScanDirectory = "scan:directory"

const scanTaskTimeout = 30 * time.Minute

// Enqueuer is the part of *asynq.Client the sink needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqSink enqueues scan events as asynq tasks.
type AsynqSink struct {
	client Enqueuer
	queue  string
}

// NewAsynqSink wraps an asynq client. An empty queue means "default".
func NewAsynqSink(client Enqueuer, queue string) *AsynqSink {
	if queue == "" {
		queue = "default"
	}
	return &AsynqSink{client: client, queue: queue}
}

// NewScanTask builds the task for ev.
func NewScanTask(ev ScanEvent) (*asynq.Task, error) {
	payload, err := ev.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan event: %w", err)
	}
	return asynq.NewTask(TypeScanDirectory, payload), nil
}

// Publish enqueues ev. The task id is derived from topic and directory so a
// directory already waiting in the queue is not queued twice.
func (s *AsynqSink) Publish(ctx context.Context, topic string, ev ScanEvent) error {
	task, err := NewScanTask(ev)
	if err != nil {
		return err
	}

	dedupKey := fmt.Sprintf("%s:%s", topic, ev.DirectoryPath)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(s.queue),
		asynq.TaskID(dedupKey),
		asynq.Timeout(scanTaskTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue scan task: %w", err)
	}
	return nil
}

func (s *AsynqSink) Backend() string { return BackendAsynq }

// Close releases the underlying client.
func (s *AsynqSink) Close() error {
	return s.client.Close()
}
