package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mayday/internal/capacity"
	"mayday/internal/config"
	"mayday/internal/database"
	"mayday/internal/metrics"
	"mayday/internal/test"
)

func ok(context.Context) error { return nil }

func down(context.Context) error { return errors.New("connection refused") }

func slow(ctx context.Context) error {
	select {
	case <-time.After(250 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func getHealth(t *testing.T, checks Checks, m *metrics.Metrics) (int, HealthResponse) {
	t.Helper()
	app := fiber.New()
	RegisterHealthRoutes(app, checks, m)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthz_AllHealthy(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	code, body := getHealth(t, Checks{DB: ok, Redis: ok}, m)

	assert.Equal(t, 200, code)
	assert.Equal(t, StatusOK, body.Status)
	assert.Equal(t, StatusOK, body.DB.Status)
	assert.Equal(t, StatusOK, body.Redis.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthStatus.WithLabelValues("db")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthStatus.WithLabelValues("redis")))
}

func TestHealthz_RedisDisabled(t *testing.T) {
	code, body := getHealth(t, Checks{DB: ok}, nil)

	assert.Equal(t, 200, code)
	assert.Equal(t, StatusDisabled, body.Redis.Status)
}

func TestHealthz_DependencyDown(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	code, body := getHealth(t, Checks{DB: ok, Redis: down}, m)

	assert.Equal(t, 503, code)
	assert.Equal(t, StatusDown, body.Status)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HealthStatus.WithLabelValues("redis")))

	code, body = getHealth(t, Checks{}, nil)
	assert.Equal(t, 503, code)
	assert.Equal(t, StatusDown, body.DB.Status)
}

func TestEvaluate_SlowDependencyIsDegraded(t *testing.T) {
	resp := Evaluate(context.Background(), Checks{DB: slow, Redis: ok}, nil)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDegraded, resp.DB.Status)
	assert.GreaterOrEqual(t, resp.DB.LatencyMs, int64(200))
}

func usedPercent(p float64) capacity.UsageFunc {
	return func(path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, Total: 100, Used: uint64(p), Free: 100 - uint64(p), UsedPercent: p}, nil
	}
}

func TestEvaluate_LibraryCapacity(t *testing.T) {
	healthy := Checks{
		DB:          ok,
		Capacity:    capacity.NewProbe(nil, capacity.WithUsageFunc(usedPercent(50))),
		LibraryPath: "/music",
	}
	resp := Evaluate(context.Background(), healthy, nil)
	assert.Equal(t, StatusOK, resp.Status)
	require.NotNil(t, resp.Library)
	assert.Equal(t, capacity.StatusOK, resp.Library.Status)

	warning := healthy
	warning.Capacity = capacity.NewProbe(nil, capacity.WithUsageFunc(usedPercent(85)))
	assert.Equal(t, StatusOK, Evaluate(context.Background(), warning, nil).Status)

	full := healthy
	full.Capacity = capacity.NewProbe(nil, capacity.WithUsageFunc(usedPercent(95)))
	resp = Evaluate(context.Background(), full, nil)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, capacity.StatusAlert, resp.Library.Status)

	broken := healthy
	broken.Capacity = capacity.NewProbe(nil, capacity.WithUsageFunc(func(string) (*disk.UsageStat, error) {
		return nil, errors.New("stale mount")
	}))
	resp = Evaluate(context.Background(), broken, nil)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, StatusUnknown, resp.Library.Status)

	assert.Nil(t, Evaluate(context.Background(), Checks{DB: ok}, nil).Library)
}

func TestDBCheck_AgainstSQLite(t *testing.T) {
	db, tearDown := test.GetTestDB(t)
	t.Cleanup(tearDown)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	dm := database.NewDatabaseManagerFromExisting(db, sqlDB)

	resp := Evaluate(context.Background(), Checks{DB: DBCheck(dm)}, nil)
	assert.Equal(t, StatusOK, resp.DB.Status)
}

func TestRedisCheck_Unreachable(t *testing.T) {
	check := RedisCheck(config.RedisConfig{Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.Error(t, check(context.Background()))
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.AlbumCreated()

	app := fiber.New()
	RegisterMetricsRoute(app, reg)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mayday_albums_created_total 1")
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterHealthRoutes(app, Checks{DB: ok}, nil)
	app.Get("/boom", func(*fiber.Ctx) error {
		return errors.New("secret detail")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil), -1)
	require.NoError(t, err)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, 404, body.Code)
	assert.Equal(t, "Not Found", body.Status)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil), -1)
	require.NoError(t, err)
	body = ErrorResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Internal server error", body.Error)
}
