package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scan metrics
	ScanFilesTotal      *prometheus.CounterVec
	ScanDurationSeconds prometheus.Histogram
	AlbumsCreatedTotal  prometheus.Counter

	// Lyrics metrics
	LyricsMatchTotal *prometheus.CounterVec

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Job metrics
	JobDurationSeconds *prometheus.HistogramVec

	// Health metrics
	HealthStatus           *prometheus.GaugeVec
	CapacityPercentCurrent *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the metrics registered on the global prometheus registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = InitializeMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all required metrics registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScanFilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mayday_scan_files_total",
				Help: "Total number of audio files processed by the scanner",
			},
			[]string{"outcome"},
		),
		ScanDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mayday_scan_duration_seconds",
				Help:    "Duration of directory scans in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
			},
		),
		AlbumsCreatedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mayday_albums_created_total",
				Help: "Total number of albums created from scanned metadata",
			},
		),

		LyricsMatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mayday_lyrics_match_total",
				Help: "Lyric files processed by outcome",
			},
			[]string{"result"},
		),

		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mayday_notifications_total",
				Help: "Scan notifications published",
			},
			[]string{"backend", "status"},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mayday_job_duration_seconds",
				Help: "Duration of jobs in seconds",
			},
			[]string{"queue", "type", "status"},
		),

		HealthStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mayday_health_status",
				Help: "Health status of dependencies (1=ok, 0=down)",
			},
			[]string{"dependency"},
		),
		CapacityPercentCurrent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mayday_capacity_percent",
				Help: "Used space of the volume holding a library path, in percent",
			},
			[]string{"path"},
		),
	}
}

// InitializeMetrics sets up default values for metrics
func InitializeMetrics(reg prometheus.Registerer) *Metrics {
	metrics := NewMetrics(reg)

	metrics.HealthStatus.WithLabelValues("db").Set(0)
	metrics.HealthStatus.WithLabelValues("redis").Set(0)

	return metrics
}

// Scan file outcomes
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
)

// FileProcessed counts one scanned file. Safe on a nil receiver.
func (m *Metrics) FileProcessed(outcome string) {
	if m == nil {
		return
	}
	m.ScanFilesTotal.WithLabelValues(outcome).Inc()
}

// ScanFinished records the wall time of a scan
func (m *Metrics) ScanFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.ScanDurationSeconds.Observe(d.Seconds())
}

// AlbumCreated counts one auto-created album
func (m *Metrics) AlbumCreated() {
	if m == nil {
		return
	}
	m.AlbumsCreatedTotal.Inc()
}

// LyricResult counts one processed lyric file
func (m *Metrics) LyricResult(result string) {
	if m == nil {
		return
	}
	m.LyricsMatchTotal.WithLabelValues(result).Inc()
}

// Notification counts one publish attempt
func (m *Metrics) Notification(backend string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.NotificationsTotal.WithLabelValues(backend, status).Inc()
}

// JobFinished records a job duration
func (m *Metrics) JobFinished(queue, jobType string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.JobDurationSeconds.WithLabelValues(queue, jobType, status).Observe(d.Seconds())
}

// SetHealth records whether a dependency is reachable
func (m *Metrics) SetHealth(dependency string, ok bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	m.HealthStatus.WithLabelValues(dependency).Set(v)
}

// SetCapacityPercent records the used percentage of the volume holding path
func (m *Metrics) SetCapacityPercent(path string, percent float64) {
	if m == nil {
		return
	}
	m.CapacityPercentCurrent.WithLabelValues(path).Set(percent)
}
