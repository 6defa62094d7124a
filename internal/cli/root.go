package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stacknote/internal/config"
	"stacknote/internal/format"
	"stacknote/internal/fsgate"
	"stacknote/internal/logging"
	"stacknote/internal/store"
	"stacknote/internal/tui"
	"stacknote/internal/workspace"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	StateDir   string
	PrettyJSON bool
	Format     string
}

// env is everything a command needs once flags are parsed.
type env struct {
	settings  config.Settings
	configDir string
	logger    *slog.Logger
	slot      store.Slot
	gate      *fsgate.OSGateway
	session   *workspace.Session
	closers   []func() error
}

func (e *env) close(ctx context.Context) error {
	var errs []error
	if a, ok := e.slot.(*store.AsyncSlot); ok {
		errs = append(errs, a.Close(ctx))
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "stacknote",
		Short:        "Stacked-panel text workspace (TUI + scriptable CLI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  stacknote

  # Open files and a directory from scripts
  stacknote open notes/todo.md src/

  # Collapse the column back to one panel
  stacknote collapse notes/todo.md

  # Inspect the persisted workspace
  stacknote state --format text
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("STACKNOTE_CONFIG", ""), "Path to a settings file (default: <config dir>/settings.toml)")
	cmd.PersistentFlags().StringVar(&app.StateDir, "state-dir", envOr("STACKNOTE_STATE_DIR", ""), "Directory holding the workspace slot (default: config dir)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("STACKNOTE_FORMAT", "json"), "Output format (json|text)")

	cmd.AddCommand(newOpenCmd(app))
	cmd.AddCommand(newCollapseCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newProjectCmd(app))
	cmd.AddCommand(newDirCmd(app))
	cmd.AddCommand(newAddItemCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newLsCmd(app))
	cmd.AddCommand(newResetCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	runErr := tui.Run(ctx, e.session, tui.Options{Logger: e.logger})
	return errors.Join(runErr, e.close(context.Background()))
}

func loadSettings(app *App) (config.Settings, string, error) {
	dir, err := store.ConfigDir()
	if err != nil {
		return config.Settings{}, "", err
	}
	if app.ConfigPath != "" {
		s, _, err := config.LoadSettingsFile(app.ConfigPath)
		return s, dir, err
	}
	s, _, err := config.LoadSettings(dir)
	return s, dir, err
}

// openEnv loads settings, opens the log file and the slot, and builds the session.
func openEnv(ctx context.Context, app *App) (*env, error) {
	settings, dir, err := loadSettings(app)
	if err != nil {
		return nil, err
	}
	e := &env{settings: settings, configDir: dir}

	logger, closeLog, err := logging.OpenFile(dir, settings.Log.Level)
	if err != nil {
		// Logging is best-effort; a read-only home should not block the editor.
		fmt.Fprintf(os.Stderr, "stacknote: log disabled: %v\n", err)
	}
	e.logger = logger
	e.closers = append(e.closers, closeLog)

	stateDir := app.StateDir
	if stateDir == "" {
		stateDir = dir
	}
	slot, err := store.Open(store.Options{
		Dir:     stateDir,
		Name:    settings.Slot.Name,
		Backend: settings.Slot.Backend,
		Async:   settings.Persist.Async,
		Logger:  logger,
	})
	if err != nil {
		_ = e.close(ctx)
		return nil, err
	}
	e.slot = slot
	e.gate = fsgate.New(fsgate.NewScope(settings.Scope.Roots...))
	e.session = workspace.NewSession(ctx, slot, e.gate, workspace.WithLogger(logger))
	return e, nil
}

// withEnv runs fn against a fresh env and flushes persistence before returning.
func withEnv(cmd *cobra.Command, app *App, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	runErr := fn(ctx, e)
	if err := e.close(ctx); err != nil && runErr == nil {
		runErr = writeErr(cmd, err)
	}
	return runErr
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
