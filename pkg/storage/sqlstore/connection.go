package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
)

// ConnectionManager manages the primary and read replica connections
type ConnectionManager struct {
	primary  *sqlx.DB
	replicas []replica
	current  uint32 // Atomic counter for round-robin selection
	mu       sync.RWMutex
	config   storage.Config
	logger   *observability.Logger
}

// replica is an open read replica and its position in Config.ReplicaDSNs
type replica struct {
	index int
	db    *sqlx.DB
}

// NewConnectionManager opens the primary and any configured replicas.
// Replicas that cannot be reached are skipped with a warning.
func NewConnectionManager(ctx context.Context, config storage.Config, logger *observability.Logger) (*ConnectionManager, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	switch config.Driver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	cm := &ConnectionManager{
		config: config,
		logger: logger.WithField("component", "database"),
	}

	primary, err := cm.open(ctx, config.DSN, config.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary connection: %w", err)
	}
	cm.primary = primary

	for i, dsn := range config.ReplicaDSNs {
		db, err := cm.open(ctx, dsn, replicaPoolSize(config.MaxConns))
		if err != nil {
			cm.logger.WithError(err).WithField("replica", i).Warn("Skipping unavailable replica")
			continue
		}
		cm.replicas = append(cm.replicas, replica{index: i, db: db})
	}

	cm.logger.WithFields(map[string]interface{}{
		"driver":   config.Driver,
		"replicas": len(cm.replicas),
	}).Info("Connection manager initialized")

	return cm, nil
}

// NewFromDB wraps an already open handle, used by tests and tools that manage
// the connection themselves
func NewFromDB(db *sql.DB, driver string, logger *observability.Logger) *ConnectionManager {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &ConnectionManager{
		primary: sqlx.NewDb(db, driver),
		config:  storage.Config{Driver: driver},
		logger:  logger.WithField("component", "database"),
	}
}

func (cm *ConnectionManager) open(ctx context.Context, dsn string, maxConns int) (*sqlx.DB, error) {
	db, err := sqlx.Open(cm.config.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	db.SetMaxIdleConns(cm.config.MinConns)
	db.SetConnMaxLifetime(cm.config.MaxLifetime)
	db.SetConnMaxIdleTime(cm.config.MaxIdleTime)

	timeout := cm.config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// replicaPoolSize keeps replica pools slightly smaller than the primary
func replicaPoolSize(maxConns int) int {
	n := maxConns / 2
	if n < 2 {
		n = 2
	}
	return n
}

// Driver returns the configured driver name
func (cm *ConnectionManager) Driver() string {
	return cm.primary.DriverName()
}

// Primary returns the primary connection (for writes)
func (cm *ConnectionManager) Primary() *sqlx.DB {
	return cm.primary
}

// Replica returns a read replica using round-robin selection.
// Falls back to primary if no replicas are available.
func (cm *ConnectionManager) Replica() *sqlx.DB {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if len(cm.replicas) == 0 {
		return cm.primary
	}

	index := atomic.AddUint32(&cm.current, 1)
	return cm.replicas[int(index%uint32(len(cm.replicas)))].db
}

// ReplicaCount returns the number of live replicas
func (cm *ConnectionManager) ReplicaCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.replicas)
}

func (cm *ConnectionManager) liveReplicas() []replica {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]replica(nil), cm.replicas...)
}

// CheckReplicas pings every live replica and reports configured replicas that
// are down, including those already dropped by the health loop. The primary
// is not checked.
func (cm *ConnectionManager) CheckReplicas(ctx context.Context) error {
	up := make(map[int]bool)
	for _, r := range cm.liveReplicas() {
		if err := r.db.PingContext(ctx); err == nil {
			up[r.index] = true
		}
	}

	var down []string
	for i := range cm.config.ReplicaDSNs {
		if !up[i] {
			down = append(down, fmt.Sprintf("replica-%d", i))
		}
	}
	if len(down) > 0 {
		return fmt.Errorf("%d of %d replicas unavailable: %s",
			len(down), len(cm.config.ReplicaDSNs), strings.Join(down, ", "))
	}
	return nil
}

// RemoveUnhealthyReplicas closes and drops replicas that fail a ping. Reads
// fall back to the primary once none are left.
func (cm *ConnectionManager) RemoveUnhealthyReplicas(ctx context.Context) int {
	failed := make(map[int]bool)
	for _, r := range cm.liveReplicas() {
		if err := r.db.PingContext(ctx); err != nil {
			cm.logger.WithError(err).WithField("replica", r.index).Warn("Replica failed health check")
			failed[r.index] = true
		}
	}
	if len(failed) == 0 {
		return 0
	}

	cm.mu.Lock()
	healthy := make([]replica, 0, len(cm.replicas))
	var dropped []replica
	for _, r := range cm.replicas {
		if failed[r.index] {
			dropped = append(dropped, r)
		} else {
			healthy = append(healthy, r)
		}
	}
	cm.replicas = healthy
	cm.mu.Unlock()

	for _, r := range dropped {
		r.db.Close()
	}
	return len(dropped)
}

// ReconnectReplicas reopens configured replicas that are not currently live
// and returns how many came back
func (cm *ConnectionManager) ReconnectReplicas(ctx context.Context) int {
	live := make(map[int]bool)
	for _, r := range cm.liveReplicas() {
		live[r.index] = true
	}

	var restored []replica
	for i, dsn := range cm.config.ReplicaDSNs {
		if live[i] {
			continue
		}
		db, err := cm.open(ctx, dsn, replicaPoolSize(cm.config.MaxConns))
		if err != nil {
			cm.logger.WithError(err).WithField("replica", i).Debug("Replica still unavailable")
			continue
		}
		restored = append(restored, replica{index: i, db: db})
	}
	if len(restored) == 0 {
		return 0
	}

	cm.mu.Lock()
	cm.replicas = append(cm.replicas, restored...)
	sort.Slice(cm.replicas, func(a, b int) bool { return cm.replicas[a].index < cm.replicas[b].index })
	cm.mu.Unlock()
	return len(restored)
}

// StartHealthCheckRoutine drops failing replicas and reopens recovered ones
// every interval until ctx is done. It does nothing when no replicas are
// configured.
func (cm *ConnectionManager) StartHealthCheckRoutine(ctx context.Context, interval time.Duration) {
	if len(cm.config.ReplicaDSNs) == 0 {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer observability.RecoverPanic(cm.logger, "replica health check")

		for {
			select {
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				removed := cm.RemoveUnhealthyReplicas(checkCtx)
				restored := cm.ReconnectReplicas(checkCtx)
				cancel()

				if removed > 0 || restored > 0 {
					cm.logger.WithFields(map[string]interface{}{
						"removed":  removed,
						"restored": restored,
						"live":     cm.ReplicaCount(),
					}).Info("Replica set changed")
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close closes all database connections
func (cm *ConnectionManager) Close() error {
	var errs []error

	if err := cm.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary close error: %w", err))
	}

	cm.mu.Lock()
	replicas := cm.replicas
	cm.replicas = nil
	cm.mu.Unlock()

	for _, r := range replicas {
		if err := r.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("replica-%d close error: %w", r.index, err))
		}
	}

	return errors.Join(errs...)
}
