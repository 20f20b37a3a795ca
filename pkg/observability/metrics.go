package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Auth metrics
	LoginAttemptsTotal   *prometheus.CounterVec
	TokensIssuedTotal    prometheus.Counter
	AccessDecisionsTotal *prometheus.CounterVec
	RateLimitedTotal     *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen      prometheus.Gauge
	DBConnectionsInUse     prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge

	// Business metrics
	UsersTotal               prometheus.Gauge
	ChecklistsTotal          prometheus.Gauge
	ChecklistsCompletedTotal prometheus.Gauge
	StatsRefreshErrorsTotal  prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklist_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checklist_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checklist_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklist_login_attempts_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"result"},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "checklist_tokens_issued_total",
				Help: "Total number of bearer tokens issued",
			},
		),
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklist_access_decisions_total",
				Help: "Total number of access policy decisions",
			},
			[]string{"action", "outcome"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklist_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"backend"},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_db_connections_in_use",
				Help: "Number of database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),

		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_users_total",
				Help: "Total number of registered users",
			},
		),
		ChecklistsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_checklists_total",
				Help: "Total number of checklists",
			},
		),
		ChecklistsCompletedTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "checklist_checklists_completed_total",
				Help: "Number of completed checklists",
			},
		),
		StatsRefreshErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "checklist_stats_refresh_errors_total",
				Help: "Total number of failed statistics refreshes",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.LoginAttemptsTotal,
		m.TokensIssuedTotal,
		m.AccessDecisionsTotal,
		m.RateLimitedTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.UsersTotal,
		m.ChecklistsTotal,
		m.ChecklistsCompletedTotal,
		m.StatsRefreshErrorsTotal,
	)

	return m
}

// RecordLoginAttempt counts a login attempt by outcome
func (m *Metrics) RecordLoginAttempt(result string) {
	m.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued counts an issued token
func (m *Metrics) RecordTokenIssued() {
	m.TokensIssuedTotal.Inc()
}

// RecordAccessDecision counts an access policy decision
func (m *Metrics) RecordAccessDecision(action string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.AccessDecisionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordRateLimited counts a request rejected by a limiter backend
func (m *Metrics) RecordRateLimited(backend string) {
	m.RateLimitedTotal.WithLabelValues(backend).Inc()
}

// RecordDBStats copies connection pool statistics into the gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the mux route template so that ids do not explode label cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, gatherer prometheus.Gatherer) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
