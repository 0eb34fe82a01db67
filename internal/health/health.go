package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mayday/internal/capacity"
	"mayday/internal/config"
	"mayday/internal/database"
	"mayday/internal/metrics"
	"mayday/internal/notify"
)

// Dependency states
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
	StatusDisabled = "disabled"
	StatusUnknown  = "unknown"
)

// Latency above which a reachable dependency is reported as degraded
const (
	dbDegradedAfter    = 200 * time.Millisecond
	redisDegradedAfter = 100 * time.Millisecond
	checkTimeout       = 5 * time.Second
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status string           `json:"status"`
	DB     DependencyStatus `json:"db"`
	Redis  DependencyStatus `json:"redis"`

	Library *capacity.UsageInfo `json:"library,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// Checks holds the probes behind /healthz. A nil Redis checker reports the
// broker as disabled without affecting the overall status. When Capacity is
// set the volume holding LibraryPath is reported too; an alert degrades the
// overall status.
type Checks struct {
	DB    Checker
	Redis Checker

	Capacity    *capacity.Probe
	LibraryPath string
}

// DBCheck probes the catalog database.
func DBCheck(dm *database.DatabaseManager) Checker {
	return dm.Ping
}

// RedisCheck probes the broker's redis.
func RedisCheck(cfg config.RedisConfig) Checker {
	return func(ctx context.Context) error {
		return notify.PingRedis(ctx, cfg)
	}
}

// RegisterHealthRoutes registers the health check routes
func RegisterHealthRoutes(app *fiber.App, checks Checks, m *metrics.Metrics) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		resp := Evaluate(c.UserContext(), checks, m)

		// Set appropriate HTTP status code
		if resp.Status == StatusOK {
			c.Status(fiber.StatusOK)
		} else {
			c.Status(fiber.StatusServiceUnavailable)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(resp)
	})
}

// RegisterMetricsRoute exposes the prometheus registry at /metrics.
func RegisterMetricsRoute(app *fiber.App, gatherer prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// Evaluate runs every check and folds them into one response.
func Evaluate(ctx context.Context, checks Checks, m *metrics.Metrics) HealthResponse {
	db := probe(ctx, checks.DB, dbDegradedAfter)
	rds := DependencyStatus{Status: StatusDisabled}
	if checks.Redis != nil {
		rds = probe(ctx, checks.Redis, redisDegradedAfter)
		m.SetHealth("redis", rds.Status != StatusDown)
	}
	m.SetHealth("db", db.Status != StatusDown)

	library := libraryUsage(checks)

	status := StatusOK
	if db.Status == StatusDown || rds.Status == StatusDown {
		status = StatusDown
	} else if db.Status == StatusDegraded || rds.Status == StatusDegraded {
		status = StatusDegraded
	} else if library != nil && library.Status == capacity.StatusAlert {
		status = StatusDegraded
	}

	return HealthResponse{Status: status, DB: db, Redis: rds, Library: library}
}

func libraryUsage(checks Checks) *capacity.UsageInfo {
	if checks.Capacity == nil || checks.LibraryPath == "" {
		return nil
	}
	usage, err := checks.Capacity.GetUsage(checks.LibraryPath)
	if err != nil {
		return &capacity.UsageInfo{Path: checks.LibraryPath, Status: StatusUnknown}
	}
	return &usage
}

func probe(ctx context.Context, check Checker, degradedAfter time.Duration) DependencyStatus {
	if check == nil {
		return DependencyStatus{Status: StatusDown}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	latency := time.Since(start)

	switch {
	case err != nil:
		return DependencyStatus{Status: StatusDown, LatencyMs: latency.Milliseconds()}
	case latency > degradedAfter:
		return DependencyStatus{Status: StatusDegraded, LatencyMs: latency.Milliseconds()}
	default:
		return DependencyStatus{Status: StatusOK, LatencyMs: latency.Milliseconds()}
	}
}
