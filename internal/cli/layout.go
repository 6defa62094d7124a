package cli

import (
	"context"
	"fmt"
	"strings"

	"stacknote/internal/fsgate"
	"stacknote/internal/model"

	"github.com/spf13/cobra"
)

func newCollapseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "collapse <path>",
		Short: "Close every panel except <path>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				st, err := e.session.CollapseTo(ctx, fsgate.Abs(args[0]))
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, envelope{Data: newStatePayload(st)})
			})
		},
	}
}

func newToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "toggle sidebar|info|scroll",
		Short:     "Flip a layout flag",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"sidebar", "info", "scroll"},
		RunE: func(cmd *cobra.Command, args []string) error {
			which := strings.ToLower(strings.TrimSpace(args[0]))
			switch which {
			case "sidebar", "info", "scroll":
			default:
				return writeErr(cmd, fmt.Errorf("unknown toggle: %q (want sidebar|info|scroll)", args[0]))
			}
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				var st model.WorkspaceState
				switch which {
				case "sidebar":
					st = e.session.ToggleSidebar(ctx)
				case "info":
					st = e.session.ToggleInfoPanel(ctx)
				case "scroll":
					st = e.session.ToggleScrollMode(ctx)
				}
				return writeOut(cmd, app, envelope{Data: newStatePayload(st)})
			})
		},
	}
}

func newProjectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "project <dir>",
		Short: "Set the project root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				p, err := requireDir(ctx, e, args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, envelope{Data: newStatePayload(e.session.SetProjectPath(ctx, p))})
			})
		},
	}
}

func newDirCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dir <dir>",
		Short: "Set the directory root shown in the sidebar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				p, err := requireDir(ctx, e, args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, envelope{Data: newStatePayload(e.session.SetDirectoryPath(ctx, p))})
			})
		},
	}
}

// requireDir resolves arg and checks it is a directory. A blank arg passes through as
// "" so the setter stays a no-op.
func requireDir(ctx context.Context, e *env, arg string) (string, error) {
	p := fsgate.Abs(arg)
	if p == "" {
		return "", nil
	}
	if !e.session.IsDir(ctx, p) {
		return "", fmt.Errorf("not a directory: %s", p)
	}
	return p, nil
}

func newAddItemCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "add-item file|folder|off",
		Short:     "Show or hide the sidebar add-item form",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"file", "folder", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := model.ParseAddItemMode(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown add-item mode: %q (want file|folder|off)", args[0]))
			}
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				return writeOut(cmd, app, envelope{Data: newStatePayload(e.session.SetShowAddItem(ctx, mode))})
			})
		},
	}
}

func newResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget every open panel and root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				return writeOut(cmd, app, envelope{Data: newStatePayload(e.session.Reset(ctx))})
			})
		},
	}
}

func newStateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted workspace and its panel layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				return writeOut(cmd, app, envelope{
					Data: newStatePayload(e.session.Snapshot()),
					Meta: map[string]any{"slot": e.settings.Slot.Name, "backend": e.settings.Slot.Backend},
				})
			})
		},
	}
}
