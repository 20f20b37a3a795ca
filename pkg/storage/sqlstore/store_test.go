package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
)

// newTestStore opens a migrated in-memory SQLite database. The pool is pinned
// to one connection so every query sees the same database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := storage.Config{
		Driver:         storage.DriverSQLite,
		DSN:            "file::memory:?_foreign_keys=on",
		MaxConns:       1,
		MinConns:       1,
		Timeout:        5 * time.Second,
		MigrateOnStart: true,
	}
	store, err := Open(context.Background(), cfg, observability.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestUser(email, last string) *auth.User {
	return &auth.User{
		FirstName:      "Test",
		LastName:       last,
		PhoneNumber:    "5551234",
		Email:          email,
		HashedPassword: "$2a$04$abcdefghijklmnopqrstuuJ8bXv1tIpqM9bVQbcz2Ca1W6CWZ9yG",
		Salt:           "$2a$04$abcdefghijklmnopqrstuu",
	}
}

func createTestUser(t *testing.T, store *Store, email, last string, roles ...auth.Role) *auth.User {
	t.Helper()
	user := newTestUser(email, last)
	if len(roles) == 0 {
		roles = []auth.Role{auth.RoleUser}
	}
	require.NoError(t, store.CreateUser(context.Background(), user, roles))
	return user
}
