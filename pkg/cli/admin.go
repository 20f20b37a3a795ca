package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/storage/sqlstore"
	"github.com/platinummonkey/checklist/pkg/users"
)

func newMigrateCommand(app *App) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply pending database migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(app.Out)

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		ctx := context.Background()
		return app.withStore(ctx, false, func(store *sqlstore.Store) error {
			driver := store.Conn().Driver()
			if err := sqlstore.Migrate(ctx, store.DB(), driver); err != nil {
				return err
			}
			version, err := sqlstore.MigrationVersion(store.DB(), driver)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Database at migration version %d\n", version)
			return nil
		})
	}
	return cmd
}

func newCreateAdminCommand(app *App) *Command {
	cmd := &Command{
		Name:        "create-admin",
		Description: "Register an account holding the Admin role",
		Flags:       flag.NewFlagSet("create-admin", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(app.Out)
	email := cmd.Flags.String("email", "", "Login email (required)")
	first := cmd.Flags.String("first", "", "First name (required)")
	last := cmd.Flags.String("last", "", "Last name (required)")
	phone := cmd.Flags.String("phone", "", "Phone number (required)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("-email is required")
		}

		password, err := app.ReadPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		confirm, err := app.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		ctx := context.Background()
		return app.withStore(ctx, true, func(store *sqlstore.Store) error {
			hasher := auth.NewPasswordHasher(app.Config.Auth.BcryptCost)
			service := users.NewService(store, hasher, auth.NewAccessPolicy(app.Config.ListUsersRole()), app.Logger)

			user, err := service.RegisterAdmin(ctx, users.RegistrationRequest{
				FirstName:   *first,
				LastName:    *last,
				PhoneNumber: *phone,
				Email:       *email,
				Password:    password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Out, "Created administrator %s (%s)\n", user.Email, user.ID)
			return nil
		})
	}
	return cmd
}

func newGrantRoleCommand(app *App) *Command {
	return newRoleChangeCommand(app, "grant-role", "Give an account a role",
		func(ctx context.Context, store *sqlstore.Store, id auth.UserID, role auth.Role) error {
			return store.GrantRole(ctx, id, role)
		})
}

func newRevokeRoleCommand(app *App) *Command {
	return newRoleChangeCommand(app, "revoke-role", "Take a role from an account",
		func(ctx context.Context, store *sqlstore.Store, id auth.UserID, role auth.Role) error {
			if role == auth.RoleUser {
				return fmt.Errorf("%w: the %s role cannot be revoked", auth.ErrValidation, auth.RoleUser)
			}
			return store.RevokeRole(ctx, id, role)
		})
}

type roleChange func(ctx context.Context, store *sqlstore.Store, id auth.UserID, role auth.Role) error

func newRoleChangeCommand(app *App, name, description string, change roleChange) *Command {
	cmd := &Command{
		Name:        name,
		Description: description,
		Flags:       flag.NewFlagSet(name, flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(app.Out)
	email := cmd.Flags.String("email", "", "Account email (required)")
	roleName := cmd.Flags.String("role", "", "Role name: Admin or User (required)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("-email is required")
		}
		role, err := auth.ParseRole(*roleName)
		if err != nil {
			return err
		}

		ctx := context.Background()
		return app.withStore(ctx, true, func(store *sqlstore.Store) error {
			user, err := store.GetUserByEmail(ctx, *email)
			if err != nil {
				return err
			}
			if err := change(ctx, store, user.ID, role); err != nil {
				return err
			}
			return printRoles(ctx, app.Out, store, user)
		})
	}
	return cmd
}

func newRolesCommand(app *App) *Command {
	cmd := &Command{
		Name:        "roles",
		Description: "Show the roles an account holds",
		Flags:       flag.NewFlagSet("roles", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(app.Out)
	email := cmd.Flags.String("email", "", "Account email (required)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *email == "" {
			return errors.New("-email is required")
		}

		ctx := context.Background()
		return app.withStore(ctx, true, func(store *sqlstore.Store) error {
			user, err := store.GetUserByEmail(ctx, *email)
			if err != nil {
				return err
			}
			return printRoles(ctx, app.Out, store, user)
		})
	}
	return cmd
}

func printRoles(ctx context.Context, out io.Writer, store *sqlstore.Store, user *auth.User) error {
	roles, err := store.RolesOf(ctx, user.ID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLES")
	fmt.Fprintf(w, "%s\t%s\t%s\n", user.ID, user.Email, strings.Join(auth.RoleNames(roles), ", "))
	return w.Flush()
}

// terminalPassword reads without echo when in is a terminal and falls back to
// reading one line otherwise, so that passwords can be piped in
func terminalPassword(in *os.File, out io.Writer) func(prompt string) (string, error) {
	reader := bufio.NewReader(in)
	return func(prompt string) (string, error) {
		fd := int(in.Fd())
		if term.IsTerminal(fd) {
			fmt.Fprint(out, prompt)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
