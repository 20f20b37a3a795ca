package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/config"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
	"github.com/platinummonkey/checklist/pkg/storage/sqlstore"
)

const testPassword = "correct horse battery"

func newTestApp(t *testing.T, passwords ...string) (*App, *bytes.Buffer) {
	t.Helper()

	logger := observability.NewNopLogger()
	store, err := sqlstore.Open(context.Background(), storage.Config{
		Driver:         storage.DriverSQLite,
		DSN:            "file::memory:?_foreign_keys=on",
		MaxConns:       1,
		MinConns:       1,
		Timeout:        5 * time.Second,
		MigrateOnStart: true,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.Auth.BcryptCost = 4

	out := &bytes.Buffer{}
	app := &App{
		Config: cfg,
		Logger: logger,
		Out:    out,
		Store:  store,
		ReadPassword: func(string) (string, error) {
			if len(passwords) == 0 {
				return "", errors.New("no input")
			}
			p := passwords[0]
			passwords = passwords[1:]
			return p, nil
		},
	}
	return app, out
}

func TestNewRootCommand(t *testing.T) {
	app, _ := newTestApp(t)
	root := NewRootCommand(app)

	assert.Equal(t, "checklist-admin", root.Name)
	assert.NotNil(t, root.Flags)

	for _, name := range []string{"migrate", "create-admin", "grant-role", "revoke-role", "roles"} {
		assert.Contains(t, root.Subcommands, name)
	}
	assert.Len(t, root.Subcommands, 5)
}

func TestCommandUsage(t *testing.T) {
	app, out := newTestApp(t)
	root := NewRootCommand(app)

	require.NoError(t, root.Execute(nil))
	output := out.String()
	assert.Contains(t, output, "Usage: checklist-admin <command> [flags]")
	assert.Contains(t, output, "create-admin")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("create-admin")), bytes.Index(out.Bytes(), []byte("revoke-role")))

	out.Reset()
	require.NoError(t, root.Execute([]string{"help"}))
	assert.Contains(t, out.String(), "Commands:")
}

func TestExecuteUnknownCommand(t *testing.T) {
	app, _ := newTestApp(t)
	err := NewRootCommand(app).Execute([]string{"bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: bogus")
}

func TestMigrate(t *testing.T) {
	app, out := newTestApp(t)

	require.NoError(t, NewRootCommand(app).Execute([]string{"migrate"}))
	assert.Contains(t, out.String(), "Database at migration version")
}

func TestCreateAdmin(t *testing.T) {
	app, out := newTestApp(t, testPassword, testPassword)
	root := NewRootCommand(app)

	err := root.Execute([]string{"create-admin",
		"-email", "Root@Example.com", "-first", "Root", "-last", "Admin", "-phone", "5550000"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created administrator")

	user, err := app.Store.GetUserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	roles, err := app.Store.RolesOf(context.Background(), user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []auth.Role{auth.RoleAdmin, auth.RoleUser}, roles)
}

func TestCreateAdminLeavesNoAccountOnFailure(t *testing.T) {
	app, out := newTestApp(t, testPassword, testPassword, testPassword, testPassword)
	ctx := context.Background()
	args := []string{"create-admin",
		"-email", "root@example.com", "-first", "Root", "-last", "Admin", "-phone", "5550000"}

	// Without the Admin row the role insert violates its foreign key
	_, err := app.Store.DB().ExecContext(ctx, `DELETE FROM roles WHERE role_name = 'Admin'`)
	require.NoError(t, err)

	require.Error(t, NewRootCommand(app).Execute(args))
	_, err = app.Store.GetUserByEmail(ctx, "root@example.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = app.Store.DB().ExecContext(ctx, `INSERT INTO roles (role_name) VALUES ('Admin')`)
	require.NoError(t, err)

	require.NoError(t, NewRootCommand(app).Execute(args))
	assert.Contains(t, out.String(), "Created administrator root@example.com")
}

func TestCreateAdminErrors(t *testing.T) {
	t.Run("missing email", func(t *testing.T) {
		app, _ := newTestApp(t)
		err := NewRootCommand(app).Execute([]string{"create-admin"})
		assert.EqualError(t, err, "-email is required")
	})

	t.Run("password mismatch", func(t *testing.T) {
		app, _ := newTestApp(t, testPassword, "something else")
		err := NewRootCommand(app).Execute([]string{"create-admin",
			"-email", "root@example.com", "-first", "Root", "-last", "Admin", "-phone", "5550000"})
		assert.EqualError(t, err, "passwords do not match")
	})

	t.Run("invalid fields", func(t *testing.T) {
		app, _ := newTestApp(t, testPassword, testPassword)
		err := NewRootCommand(app).Execute([]string{"create-admin", "-email", "not-an-email"})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrValidation)
	})

	t.Run("bad flag", func(t *testing.T) {
		app, _ := newTestApp(t)
		err := NewRootCommand(app).Execute([]string{"create-admin", "-nope"})
		assert.Error(t, err)
	})
}

func TestRoleCommands(t *testing.T) {
	app, out := newTestApp(t, testPassword, testPassword)
	root := NewRootCommand(app)
	require.NoError(t, root.Execute([]string{"create-admin",
		"-email", "jane@example.com", "-first", "Jane", "-last", "Doe", "-phone", "5551234"}))

	out.Reset()
	require.NoError(t, root.Execute([]string{"revoke-role", "-email", "jane@example.com", "-role", "Admin"}))
	assert.Contains(t, out.String(), "ROLES")
	assert.NotContains(t, out.String(), "Admin")

	out.Reset()
	require.NoError(t, root.Execute([]string{"grant-role", "-email", "JANE@example.com", "-role", "Admin"}))
	assert.Contains(t, out.String(), "Admin")

	out.Reset()
	require.NoError(t, root.Execute([]string{"roles", "-email", "jane@example.com"}))
	assert.Contains(t, out.String(), "jane@example.com")
	assert.Contains(t, out.String(), "Admin")

	err := root.Execute([]string{"revoke-role", "-email", "jane@example.com", "-role", "User"})
	assert.ErrorIs(t, err, auth.ErrValidation)

	err = root.Execute([]string{"grant-role", "-email", "jane@example.com", "-role", "Owner"})
	assert.Error(t, err)

	err = root.Execute([]string{"roles", "-email", "nobody@example.com"})
	assert.ErrorIs(t, err, auth.ErrNotFound)

	err = root.Execute([]string{"roles"})
	assert.EqualError(t, err, "-email is required")
}
