package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/platinummonkey/checklist/pkg/config"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage/sqlstore"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	out io.Writer
}

// App carries the configuration and I/O the admin commands run against
type App struct {
	Config *config.Config
	Logger *observability.Logger
	Out    io.Writer

	// Store is used when set; otherwise each command opens one from Config
	Store *sqlstore.Store

	// ReadPassword prompts for a secret. Defaults to a no-echo terminal read.
	ReadPassword func(prompt string) (string, error)
}

// NewRootCommand creates the root command
func NewRootCommand(app *App) *Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Logger == nil {
		app.Logger = observability.NewNopLogger()
	}
	if app.ReadPassword == nil {
		app.ReadPassword = terminalPassword(os.Stdin, app.Out)
	}

	root := &Command{
		Name:        "checklist-admin",
		Description: "Checklist service administration",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("checklist-admin", flag.ContinueOnError),
		out:         app.Out,
	}

	// Add subcommands
	root.Subcommands["migrate"] = newMigrateCommand(app)
	root.Subcommands["create-admin"] = newCreateAdminCommand(app)
	root.Subcommands["grant-role"] = newGrantRoleCommand(app)
	root.Subcommands["revoke-role"] = newRevokeRoleCommand(app)
	root.Subcommands["roles"] = newRolesCommand(app)

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	w := c.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// withStore runs fn with the configured store, opening and closing one when
// the App does not carry it
func (a *App) withStore(ctx context.Context, migrate bool, fn func(*sqlstore.Store) error) error {
	if a.Store != nil {
		return fn(a.Store)
	}

	dbConfig := a.Config.Database
	dbConfig.MigrateOnStart = migrate
	store, err := sqlstore.Open(ctx, dbConfig, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	return fn(store)
}
