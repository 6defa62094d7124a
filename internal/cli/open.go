package cli

import (
	"context"
	"fmt"
	"strings"

	"stacknote/internal/fsgate"
	"stacknote/internal/model"
	"stacknote/internal/workspace"

	"github.com/spf13/cobra"
)

type openedPath struct {
	Path    string          `json:"path"`
	Kind    model.EntryKind `json:"kind"`
	Bytes   int             `json:"bytes,omitempty"`
	Entries int             `json:"entries,omitempty"`
}

type openPayload struct {
	Opened []openedPath `json:"opened"`
	statePayload
}

func (p openPayload) Text() string {
	var b strings.Builder
	for _, o := range p.Opened {
		fmt.Fprintf(&b, "opened %s %s\n", o.Kind, o.Path)
	}
	b.WriteString(p.statePayload.Text())
	return b.String()
}

func newOpenCmd(app *App) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "open <path>...",
		Short: "Open files or directories as panels",
		Long: `Open each path in order. Files are read, directories are listed; either way the
path moves to the end of the panel column. Opening a directory also sets the
directory root (or the project root with --project).

Paths are opened one at a time: if one fails, the ones before it stay open.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := workspace.TargetDirectory
			if project {
				target = workspace.TargetProject
			}
			return withEnv(cmd, app, func(ctx context.Context, e *env) error {
				opened := make([]openedPath, 0, len(args))
				for _, arg := range args {
					p := fsgate.Abs(arg)
					if p == "" {
						continue
					}
					res, err := openOne(ctx, e.session, p, target)
					if err != nil {
						return writeErr(cmd, err)
					}
					opened = append(opened, res)
				}
				return writeOut(cmd, app, envelope{Data: openPayload{
					Opened:       opened,
					statePayload: newStatePayload(e.session.Snapshot()),
				}})
			})
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Directories set the project root instead of the directory root")
	return cmd
}

func openOne(ctx context.Context, s *workspace.Session, path string, target workspace.DirTarget) (openedPath, error) {
	if s.IsDir(ctx, path) {
		entries, err := s.OpenDirectory(ctx, path, target)
		if err != nil {
			return openedPath{}, err
		}
		return openedPath{Path: path, Kind: model.EntryKindDirectory, Entries: len(entries)}, nil
	}
	doc, err := s.OpenFile(ctx, path)
	if err != nil {
		return openedPath{}, err
	}
	return openedPath{Path: path, Kind: model.EntryKindFile, Bytes: len(doc.Content)}, nil
}
