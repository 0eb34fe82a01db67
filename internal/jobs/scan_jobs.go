package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"mayday/internal/config"
	"mayday/internal/logging"
	"mayday/internal/metrics"
	"mayday/internal/notify"
	"mayday/internal/scanner"
	"mayday/internal/tracing"
)

// Task types for scan jobs
const (
	TaskScanDirectory = notify.TypeScanDirectory
)

// ScanRunner runs a directory scan. *scanner.Cache satisfies it.
type ScanRunner interface {
	Scan(ctx context.Context, root string, fresh bool) (*scanner.ScanResult, bool, error)
}

// ScanJobManager handles scan-related jobs
type ScanJobManager struct {
	runner  ScanRunner
	sink    notify.Sink
	queue   string
	topic   string
	metrics *metrics.Metrics
	logger  *logging.Logger

	// scheduled rescans run under ctx; Stop cancels it
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScanJobManager creates a new scan job manager. sink may be nil, in which
// case scheduled rescans run inline.
func NewScanJobManager(
	runner ScanRunner,
	sink notify.Sink,
	queue config.QueueConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) *ScanJobManager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	topic := queue.Topic
	if topic == "" {
		topic = notify.DefaultTopic
	}
	name := queue.Name
	if name == "" {
		name = "default"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ScanJobManager{
		runner:  runner,
		sink:    sink,
		queue:   name,
		topic:   topic,
		metrics: m,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop cancels scheduled rescans. A running scan returns its partial result
// at the next file boundary and later ticks return immediately.
func (sjm *ScanJobManager) Stop() {
	sjm.cancel()
}

// RegisterScanTasks registers all scan-related tasks on mux
func (sjm *ScanJobManager) RegisterScanTasks(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskScanDirectory, sjm.HandleScanDirectory)
}

// HandleScanDirectory runs a fresh scan of the directory named in the task.
// Malformed payloads are not retried.
func (sjm *ScanJobManager) HandleScanDirectory(ctx context.Context, t *asynq.Task) error {
	ev, err := notify.ParseScanEvent(t.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	attempt, _ := asynq.GetRetryCount(ctx)
	ctx, span := tracing.Start(ctx, "jobs.HandleScanDirectory",
		tracing.JobProcessingTracingAttrs(taskID, sjm.queue, TaskScanDirectory, attempt)...)
	defer span.End()

	if err := sjm.RunScan(ctx, ev.DirectoryPath); err != nil {
		tracing.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// RunScan scans dir bypassing the cache and records the job outcome.
func (sjm *ScanJobManager) RunScan(ctx context.Context, dir string) error {
	start := time.Now()
	result, _, err := sjm.runner.Scan(ctx, dir, true)
	duration := time.Since(start)

	sjm.metrics.JobFinished(sjm.queue, TaskScanDirectory, duration, err)
	if err != nil {
		sjm.logger.LogJobProcessing(sjm.queue, TaskScanDirectory, duration, false, err.Error())
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sjm.logger.LogJobProcessing(sjm.queue, TaskScanDirectory, duration, true, "")
	sjm.logger.WithFields(map[string]interface{}{
		"directory_path": dir,
		"created":        result.Created,
		"updated":        result.Updated,
		"skipped":        result.Skipped,
	}).Debug().Msg("Scan job finished")
	return nil
}

// TriggerRescan publishes a scan request for dir. With the in-process queue
// the request is consumed immediately since nothing else would drain it.
func (sjm *ScanJobManager) TriggerRescan(ctx context.Context, dir string) {
	if sjm.sink == nil {
		_ = sjm.RunScan(ctx, dir)
		return
	}

	notify.PublishScan(ctx, sjm.sink, sjm.topic, dir, sjm.metrics)
	if q, ok := sjm.sink.(*notify.LocalQueue); ok {
		if _, err := sjm.DrainLocal(ctx, q); err != nil {
			sjm.logger.WithField("directory_path", dir).Error().Err(err).Msg("Scheduled rescan failed")
		}
	}
}

// DrainLocal runs every scan request pending on the manager's topic.
func (sjm *ScanJobManager) DrainLocal(ctx context.Context, q *notify.LocalQueue) (int, error) {
	return q.Consume(sjm.topic, func(ev notify.ScanEvent) error {
		return sjm.RunScan(ctx, ev.DirectoryPath)
	})
}

// ScheduleRescan registers a periodic rescan of dir on c.
func (sjm *ScanJobManager) ScheduleRescan(c *cron.Cron, spec, dir string) (cron.EntryID, error) {
	entryID, err := c.AddFunc(spec, func() {
		sjm.TriggerRescan(sjm.ctx, dir)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule rescan: %w", err)
	}

	sjm.logger.WithFields(map[string]interface{}{
		"entry_id":       int(entryID),
		"schedule":       spec,
		"directory_path": dir,
	}).Info().Msg("Scheduled periodic rescan")
	return entryID, nil
}
