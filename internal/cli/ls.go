package cli

import (
	"context"

	"stacknote/internal/fsgate"
	"stacknote/internal/model"

	"github.com/spf13/cobra"
)

func newLsCmd(app *App) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory through the file gateway",
		Long: `List a directory the way the sidebar does: directories first, then files, by
name, hidden entries skipped. With --deep, print every file path underneath.

Defaults to the root the sidebar shows (directory root, else project root), or the
current directory when neither is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				dir := ""
				if len(args) == 1 {
					dir = fsgate.Abs(args[0])
				} else if st := e.session.Snapshot(); st.DirectoryPath != "" {
					dir = st.DirectoryPath
				} else if st.ProjectPath != "" {
					dir = st.ProjectPath
				} else {
					dir = fsgate.Abs(".")
				}
				if deep {
					paths, err := e.gate.ListPaths(ctx, dir, true)
					if err != nil {
						return writeErr(cmd, err)
					}
					if paths == nil {
						paths = []string{}
					}
					return writeOut(cmd, app, envelope{Data: pathsPayload{Dir: dir, Paths: paths}})
				}
				entries, err := e.session.ListDirectory(ctx, dir)
				if err != nil {
					return writeErr(cmd, err)
				}
				if entries == nil {
					entries = []model.Entry{}
				}
				return writeOut(cmd, app, envelope{Data: entriesPayload{Dir: dir, Entries: entries}})
			})
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Recurse and print file paths only")
	return cmd
}
