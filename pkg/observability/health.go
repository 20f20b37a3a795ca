package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) DependencyStatus

type dependencyCheck struct {
	name     string
	critical bool
	check    CheckFunc
}

// HealthChecker aggregates dependency probes into liveness and readiness answers
type HealthChecker struct {
	version string
	checks  []dependencyCheck
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version}
}

// AddCheck registers a dependency probe. A failing critical dependency makes the
// service unhealthy; a failing optional one only degrades it.
func (h *HealthChecker) AddCheck(name string, critical bool, check CheckFunc) *HealthChecker {
	h.checks = append(h.checks, dependencyCheck{name: name, critical: critical, check: check})
	return h
}

// WithDatabase registers the database as a critical dependency
func (h *HealthChecker) WithDatabase(db *sql.DB) *HealthChecker {
	if db == nil {
		return h
	}
	return h.AddCheck("database", true, DatabaseCheck(db))
}

// WithRedis registers Redis as an optional dependency
func (h *HealthChecker) WithRedis(client *redis.Client) *HealthChecker {
	if client == nil {
		return h
	}
	return h.AddCheck("redis", false, RedisCheck(client))
}

// WithReplicas registers read replicas as an optional dependency. check
// should fail when any configured replica is unavailable; reads still work
// through the primary, so the service is only degraded.
func (h *HealthChecker) WithReplicas(check func(ctx context.Context) error) *HealthChecker {
	if check == nil {
		return h
	}
	return h.AddCheck("replicas", false, PingCheck(check))
}

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	// Return 503 if unhealthy, 200 if healthy or degraded
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(status)
}

// Check runs every registered probe
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.checks)),
	}

	for _, c := range h.checks {
		dep := c.check(ctx)
		status.Dependencies[c.name] = dep

		switch {
		case dep.Status == StatusUnhealthy && c.critical:
			status.Status = StatusUnhealthy
		case dep.Status != StatusHealthy && status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}

	return status
}

// DependencyNames lists the registered probes in name order
func (h *HealthChecker) DependencyNames() []string {
	names := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// DatabaseCheck pings the database and runs a trivial query
func DatabaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) DependencyStatus {
		start := time.Now()
		status := DependencyStatus{
			Status:    StatusHealthy,
			Timestamp: start.UTC(),
		}

		err := db.PingContext(ctx)
		status.Latency = time.Since(start)
		if err != nil {
			status.Status = StatusUnhealthy
			status.Message = err.Error()
			return status
		}

		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			status.Status = StatusUnhealthy
			status.Message = "query failed: " + err.Error()
			return status
		}

		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			status.Status = StatusDegraded
			status.Message = "connection pool exhausted"
		}

		return status
	}
}

// RedisCheck pings Redis
func RedisCheck(client *redis.Client) CheckFunc {
	return PingCheck(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// PingCheck turns an error-returning probe into a CheckFunc, timing it and
// reporting any error as unhealthy
func PingCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) DependencyStatus {
		start := time.Now()
		status := DependencyStatus{
			Status:    StatusHealthy,
			Timestamp: start.UTC(),
		}

		err := ping(ctx)
		status.Latency = time.Since(start)
		if err != nil {
			status.Status = StatusUnhealthy
			status.Message = err.Error()
		}
		return status
	}
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
