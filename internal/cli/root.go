package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"arbor-cli/internal/config"
	"arbor-cli/internal/format"
	"arbor-cli/internal/logging"
	"arbor-cli/internal/model"
	"arbor-cli/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigFile string
	DataDir    string
	Format     string
	Pretty     bool
	LogLevel   string

	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer
	db        *store.DB
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "arbor",
		Short:        "Arbor: a local-first tree of notes",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive tree view
  arbor

  # Sign in (prompts when flags are missing)
  arbor login --user <user-id>

  # Scriptable commands
  arbor nodes list
  arbor nodes create --content "Groceries"

  # Direct node lookup (shortcut for: arbor nodes show <node-id>)
  arbor 6f1d3c52-0b8e-4d55-9a3b-2f0c1c7e9a10
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.teardown()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", envOr("ARBOR_CONFIG", ""), "Config file (default: $XDG_CONFIG_HOME/arbor/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "Data directory holding the local database and session (overrides config)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("ARBOR_FORMAT", format.JSON), "Output format (json|yaml|text)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (trace|debug|info|warn|error; overrides config)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newNodesCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newUACmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newBackupCmd(app))

	return cmd
}

// setup loads config and the logger. The tree view owns the terminal, so its log
// goes to a file even when none is configured.
func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	if strings.TrimSpace(app.DataDir) != "" {
		cfg.DataDir = app.DataDir
	}
	if strings.TrimSpace(app.LogLevel) != "" {
		cfg.Log.Level = app.LogLevel
	}
	app.cfg = cfg

	ownsTerminal := cmd == cmd.Root()
	app.log, app.logCloser = logging.New(cfg.Log, cfg.DataDir, ownsTerminal)
	app.log.WithFields(logrus.Fields{"command": cmd.CommandPath(), "dataDir": cfg.DataDir}).Debug("start")
	return nil
}

func (app *App) teardown() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
		app.db = nil
	}
	if app.logCloser != nil {
		errs = append(errs, app.logCloser.Close())
		app.logCloser = nil
	}
	return errors.Join(errs...)
}

func (app *App) store() store.Store {
	return store.Store{Dir: app.cfg.DataDir}
}

// openDB opens the local mirror once per invocation.
func (app *App) openDB(ctx context.Context) (*store.DB, error) {
	if app.db != nil {
		return app.db, nil
	}
	db, err := app.store().Open(ctx)
	if err != nil {
		return nil, err
	}
	app.db = db
	return db, nil
}

func (app *App) session() (*model.Session, error) {
	return app.store().LoadSession()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope wraps every command result as {"data": ...}. In text mode the data is
// rendered on its own when it knows how.
type envelope struct {
	Data any            `json:"data" yaml:"data"`
	Meta map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

func (e envelope) Text(st format.Styles) string {
	if t, ok := e.Data.(format.Texter); ok {
		return t.Text(st)
	}
	var b strings.Builder
	if err := format.WriteYAML(&b, e.Data); err != nil {
		return fmt.Sprint(e.Data)
	}
	return b.String()
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), envelope{Data: v}, app.Format, app.Pretty)
}

func writeOutMeta(cmd *cobra.Command, app *App, v any, meta map[string]any) error {
	return format.Write(cmd.OutOrStdout(), envelope{Data: v, Meta: meta}, app.Format, app.Pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
