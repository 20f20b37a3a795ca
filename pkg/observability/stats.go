package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultStatsSchedule refreshes the business gauges once a minute
const DefaultStatsSchedule = "@every 1m"

// StatsSource provides the counts behind the business gauges
type StatsSource interface {
	CountUsers(ctx context.Context) (int, error)
	CountChecklists(ctx context.Context) (total int, completed int, err error)
	DBStats() sql.DBStats
}

// StatsCollector periodically copies store counts into Prometheus gauges
type StatsCollector struct {
	source  StatsSource
	metrics *Metrics
	logger  *Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector(source StatsSource, metrics *Metrics, logger *Logger) *StatsCollector {
	if logger == nil {
		logger = NewNopLogger()
	}
	logger = logger.WithField("component", "stats")
	cronLogger := cron.PrintfLogger(logger.Logrus())

	return &StatsCollector{
		source:  source,
		metrics: metrics,
		logger:  logger,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		timeout: 30 * time.Second,
	}
}

// Refresh reads the current counts and updates the gauges
func (c *StatsCollector) Refresh(ctx context.Context) error {
	c.metrics.RecordDBStats(c.source.DBStats())

	users, err := c.source.CountUsers(ctx)
	if err != nil {
		c.metrics.StatsRefreshErrorsTotal.Inc()
		return fmt.Errorf("failed to count users: %w", err)
	}

	total, completed, err := c.source.CountChecklists(ctx)
	if err != nil {
		c.metrics.StatsRefreshErrorsTotal.Inc()
		return fmt.Errorf("failed to count checklists: %w", err)
	}

	c.metrics.UsersTotal.Set(float64(users))
	c.metrics.ChecklistsTotal.Set(float64(total))
	c.metrics.ChecklistsCompletedTotal.Set(float64(completed))
	return nil
}

func (c *StatsCollector) runOnce() {
	defer RecoverPanic(c.logger, "stats refresh")

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.Refresh(ctx); err != nil {
		c.logger.WithError(err).Warn("Stats refresh failed")
	}
}

// Start schedules the refresh job and runs it once immediately
func (c *StatsCollector) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultStatsSchedule
	}
	if _, err := c.cron.AddFunc(schedule, c.runOnce); err != nil {
		return fmt.Errorf("failed to schedule stats refresh %q: %w", schedule, err)
	}

	c.runOnce()
	c.cron.Start()
	c.logger.Infof("Stats refresh scheduled: %s", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish
func (c *StatsCollector) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
