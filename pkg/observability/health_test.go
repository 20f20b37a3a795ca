package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_NoDependencies(t *testing.T) {
	checker := NewHealthChecker("test").WithDatabase(nil).WithRedis(nil)
	assert.Empty(t, checker.DependencyNames())

	status := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "test", status.Version)
}

func TestHealthChecker_Database(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		status := NewHealthChecker("test").WithDatabase(db).Check(context.Background())
		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping failure is unhealthy", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		status := NewHealthChecker("test").WithDatabase(db).Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Contains(t, status.Dependencies["database"].Message, "connection refused")
	})

	t.Run("query failure is unhealthy", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("syntax"))

		status := NewHealthChecker("test").WithDatabase(db).Check(context.Background())
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Contains(t, status.Dependencies["database"].Message, "query failed")
	})
}

func TestHealthChecker_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewHealthChecker("test").WithRedis(client)
	assert.Equal(t, []string{"redis"}, checker.DependencyNames())

	status := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)

	mr.Close()

	status = checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status, "redis is optional")
	assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
}

func TestHealthChecker_Replicas(t *testing.T) {
	var down error
	checker := NewHealthChecker("test").
		WithReplicas(func(ctx context.Context) error { return down }).
		WithReplicas(nil)
	assert.Equal(t, []string{"replicas"}, checker.DependencyNames())

	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)

	down = errors.New("1 of 2 replicas unavailable: replica-1")
	status := checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, status.Status, "reads fall back to the primary")
	assert.Equal(t, StatusUnhealthy, status.Dependencies["replicas"].Status)
	assert.Equal(t, down.Error(), status.Dependencies["replicas"].Message)
}

func TestHealthChecker_Handlers(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthChecker("test").Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("readiness unhealthy", func(t *testing.T) {
		checker := NewHealthChecker("test").AddCheck("store", true, func(ctx context.Context) DependencyStatus {
			return DependencyStatus{Status: StatusUnhealthy, Message: "down"}
		})

		mux := http.NewServeMux()
		RegisterHealthRoutes(mux, checker)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var status HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Equal(t, "down", status.Dependencies["store"].Message)
	})

	t.Run("readiness degraded still serves", func(t *testing.T) {
		checker := NewHealthChecker("test").AddCheck("cache", false, func(ctx context.Context) DependencyStatus {
			return DependencyStatus{Status: StatusUnhealthy}
		})

		rec := httptest.NewRecorder()
		checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
