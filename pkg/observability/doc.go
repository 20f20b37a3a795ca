// Package observability provides structured logging, Prometheus metrics, health
// checks, OpenTelemetry tracing and graceful shutdown for the checklist API.
//
// # Structured Logging
//
// Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("User logged in")
//
// Request-scoped loggers carry the request id, user id and trace ids:
//
//	observability.FromContext(r.Context()).WithError(err).Error("Request failed")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// Metrics also implements the auth package's Recorder, counting login attempts,
// issued tokens and access decisions.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version).WithDatabase(db).WithRedis(client)
//	observability.RegisterHealthRoutes(serveMux, checker)
//
// # Background Statistics
//
// StatsCollector refreshes the user and checklist gauges on a cron schedule.
package observability
