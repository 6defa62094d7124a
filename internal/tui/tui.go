// Package tui is the interactive stacked-panel editor. All workspace changes go through
// a workspace.Session; the model only mirrors its snapshot plus per-panel buffers.
package tui

import (
	"context"
	"log/slog"

	"stacknote/internal/logging"
	"stacknote/internal/model"
	"stacknote/internal/watch"
	"stacknote/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	Logger *slog.Logger
	// DisableWatch turns off reloading panels on external changes.
	DisableWatch bool
}

func Run(ctx context.Context, s *workspace.Session, opts Options) error {
	logger := logging.OrDiscard(opts.Logger)
	applyColorProfilePreference()
	applyThemePreference()

	var w *watch.Watcher
	if !opts.DisableWatch {
		var err error
		w, err = watch.New(logger)
		if err != nil {
			logger.Warn("file watcher unavailable", "err", err)
			w = nil
		} else {
			defer w.Close()
			w.Sync(watchPaths(s.Snapshot()))
			s.OnChange(func(st model.WorkspaceState) { w.Sync(watchPaths(st)) })
		}
	}

	m := newAppModel(ctx, s, w, logger)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
