package capacity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"mayday/internal/metrics"
)

// Usage states
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusAlert   = "alert"
)

// UsageInfo holds information about disk usage
type UsageInfo struct {
	Path        string    `json:"path"`
	Total       uint64    `json:"total_bytes"`
	Used        uint64    `json:"used_bytes"`
	Free        uint64    `json:"free_bytes"`
	UsedPercent float64   `json:"used_percent"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// Thresholds defines warning and alert thresholds
type Thresholds struct {
	WarnPercent  float64
	AlertPercent float64
}

// DefaultThresholds warns at 80% and alerts at 90%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarnPercent:  80.0,
		AlertPercent: 90.0,
	}
}

// UsageFunc reports filesystem usage for the volume holding path.
type UsageFunc func(path string) (*disk.UsageStat, error)

// Probe reports how full the volumes holding library directories are.
type Probe struct {
	thresholds Thresholds
	usage      UsageFunc
	metrics    *metrics.Metrics
}

// Option configures a Probe.
type Option func(*Probe)

// WithThresholds overrides DefaultThresholds.
func WithThresholds(t Thresholds) Option {
	return func(p *Probe) { p.thresholds = t }
}

// WithUsageFunc replaces disk.Usage.
func WithUsageFunc(fn UsageFunc) Option {
	return func(p *Probe) {
		if fn != nil {
			p.usage = fn
		}
	}
}

// NewProbe creates a capacity probe backed by gopsutil.
func NewProbe(m *metrics.Metrics, opts ...Option) *Probe {
	p := &Probe{
		thresholds: DefaultThresholds(),
		usage:      disk.Usage,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetUsage retrieves usage information for the volume holding path and
// records the used percentage.
func (p *Probe) GetUsage(path string) (UsageInfo, error) {
	if strings.TrimSpace(path) == "" {
		return UsageInfo{}, fmt.Errorf("path cannot be empty")
	}

	stat, err := p.usage(path)
	if err != nil {
		return UsageInfo{}, fmt.Errorf("failed to get disk usage for path %s: %w", path, err)
	}

	p.metrics.SetCapacityPercent(path, stat.UsedPercent)

	return UsageInfo{
		Path:        path,
		Total:       stat.Total,
		Used:        stat.Used,
		Free:        stat.Free,
		UsedPercent: stat.UsedPercent,
		Status:      p.Evaluate(stat.UsedPercent),
		Timestamp:   time.Now(),
	}, nil
}

// Evaluate maps a used percentage to a status.
func (p *Probe) Evaluate(usedPercent float64) string {
	switch {
	case usedPercent >= p.thresholds.AlertPercent:
		return StatusAlert
	case usedPercent >= p.thresholds.WarnPercent:
		return StatusWarning
	default:
		return StatusOK
	}
}
