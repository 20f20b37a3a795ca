package observability

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatsSource struct {
	users     int
	total     int
	completed int
	err       error
}

func (f *fakeStatsSource) CountUsers(ctx context.Context) (int, error) {
	return f.users, f.err
}

func (f *fakeStatsSource) CountChecklists(ctx context.Context) (int, int, error) {
	return f.total, f.completed, f.err
}

func (f *fakeStatsSource) DBStats() sql.DBStats {
	return sql.DBStats{OpenConnections: 2, Idle: 2}
}

func TestStatsCollector_Refresh(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	source := &fakeStatsSource{users: 4, total: 10, completed: 3}
	collector := NewStatsCollector(source, metrics, NewNopLogger())

	require.NoError(t, collector.Refresh(context.Background()))

	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.UsersTotal))
	assert.Equal(t, float64(10), testutil.ToFloat64(metrics.ChecklistsTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ChecklistsCompletedTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.DBConnectionsOpen))
}

func TestStatsCollector_RefreshError(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	source := &fakeStatsSource{err: errors.New("db down")}
	collector := NewStatsCollector(source, metrics, NewNopLogger())

	err := collector.Refresh(context.Background())
	assert.ErrorIs(t, err, source.err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StatsRefreshErrorsTotal))
}

func TestStatsCollector_StartStop(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	collector := NewStatsCollector(&fakeStatsSource{users: 1}, metrics, NewNopLogger())

	require.NoError(t, collector.Start("@every 1h"))
	// the first refresh runs synchronously
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UsersTotal))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, collector.Stop(ctx))
}

func TestStatsCollector_BadSchedule(t *testing.T) {
	collector := NewStatsCollector(&fakeStatsSource{}, NewMetrics(prometheus.NewRegistry()), NewNopLogger())
	assert.Error(t, collector.Start("not a schedule"))
}
