package sqlstore

import (
	"context"
	"database/sql"

	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
)

// Store bundles the user and checklist stores over one connection manager
type Store struct {
	*UserStore
	*ChecklistStore

	conn *ConnectionManager
}

// Open connects to the configured database and, when requested, applies
// pending migrations
func Open(ctx context.Context, config storage.Config, logger *observability.Logger) (*Store, error) {
	conn, err := NewConnectionManager(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	if config.MigrateOnStart {
		if err := Migrate(ctx, conn.Primary().DB, config.Driver); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return New(conn, logger), nil
}

// New builds a Store on an existing connection manager
func New(conn *ConnectionManager, logger *observability.Logger) *Store {
	return &Store{
		UserStore:      NewUserStore(conn, logger),
		ChecklistStore: NewChecklistStore(conn, logger),
		conn:           conn,
	}
}

// Conn returns the underlying connection manager
func (s *Store) Conn() *ConnectionManager {
	return s.conn
}

// DB returns the primary handle for health checks
func (s *Store) DB() *sql.DB {
	return s.conn.Primary().DB
}

// DBStats returns the primary pool statistics
func (s *Store) DBStats() sql.DBStats {
	return s.conn.Primary().Stats()
}

// Close closes every connection
func (s *Store) Close() error {
	return s.conn.Close()
}
