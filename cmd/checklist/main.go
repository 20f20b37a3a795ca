package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/checklist/pkg/api"
	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/checklists"
	"github.com/platinummonkey/checklist/pkg/config"
	"github.com/platinummonkey/checklist/pkg/middleware"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
	"github.com/platinummonkey/checklist/pkg/storage/sqlstore"
	"github.com/platinummonkey/checklist/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Shutdown finished with errors")
		}
	}()

	providers, err := observability.InitOTel(ctx, cfg.OTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	store, err := sqlstore.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shutdown.RegisterCloser("database", store.Close)
	logger.WithFields(map[string]interface{}{
		"driver":   cfg.Database.Driver,
		"replicas": store.Conn().ReplicaCount(),
	}).Info("Database connected")
	replicaCtx, stopReplicaChecks := context.WithCancel(ctx)
	store.Conn().StartHealthCheckRoutine(replicaCtx, cfg.Database.ReplicaCheckInterval)
	shutdown.RegisterShutdownFunc("replica health check", func(context.Context) error {
		stopReplicaChecks()
		return nil
	})

	var redisClient *redis.Client
	if cfg.Database.Redis.URL != "" {
		redisClient, err = storage.NewRedisClient(ctx, cfg.Database.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		shutdown.RegisterCloser("redis", redisClient.Close)
		logger.Info("Redis connected")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	issuer, err := auth.NewTokenIssuer(cfg.TokenConfig())
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	policy := auth.NewAccessPolicy(cfg.ListUsersRole()).WithRecorder(metrics)
	authenticator, err := auth.NewAuthenticator(store, hasher, logger)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}
	authenticator.WithRecorder(metrics)

	opts := []api.Option{api.WithMetrics(metrics)}
	if cfg.RateLimit.Enabled {
		limits := middleware.NewRateLimitMiddlewareFromConfig(cfg.RateLimit, redisClient, logger).WithRecorder(metrics)
		opts = append(opts, api.WithRateLimit(limits))
	}

	server := api.NewServer(
		auth.NewLoginService(authenticator, store, issuer, logger).WithRecorder(metrics),
		users.NewService(store, hasher, policy, logger),
		checklists.NewService(store, policy, logger),
		issuer,
		logger,
		opts...,
	)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      observability.InstrumentHandler(server, "checklist-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown.RegisterServer("api", apiServer)

	checker := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion).
		WithDatabase(store.DB()).
		WithRedis(redisClient)
	if len(cfg.Database.ReplicaDSNs) > 0 {
		checker.WithReplicas(store.Conn().CheckReplicas)
	}
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthMux,
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	shutdown.RegisterServer("health", healthServer)

	stats := observability.NewStatsCollector(store, metrics, logger)
	if err := stats.Start(cfg.Jobs.StatsSchedule); err != nil {
		return fmt.Errorf("failed to start stats collector: %w", err)
	}
	shutdown.RegisterShutdownFunc("stats", stats.Stop)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		return serve(healthServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

// serve treats a graceful close as a clean exit
func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}
