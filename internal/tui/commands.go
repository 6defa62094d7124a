package tui

import (
	"stacknote/internal/model"
	"stacknote/internal/watch"
	"stacknote/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
)

type openDoneMsg struct {
	path    string
	isDir   bool
	doc     model.Document
	entries []model.Entry
	err     error
}

type saveDoneMsg struct {
	path    string
	content string
	err     error
}

type createDoneMsg struct {
	path string
	mode model.AddItemMode
	err  error
}

type reloadDoneMsg struct {
	path     string
	force    bool // replaces unsaved edits
	fromDisk bool // triggered by a watcher event rather than the user
	isDir   bool
	doc     model.Document
	entries []model.Entry
	err     error
}

type sidebarLoadedMsg struct {
	dir     string
	entries []model.Entry
	err     error
}

type fileChangedMsg struct {
	change watch.Change
}

type watchClosedMsg struct{}

// openCmd probes path and opens it as a file or directory through the session.
func (m appModel) openCmd(path string, wantDir bool) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		if wantDir || s.IsDir(ctx, path) {
			entries, err := s.OpenDirectory(ctx, path, workspace.TargetDirectory)
			return openDoneMsg{path: path, isDir: true, entries: entries, err: err}
		}
		doc, err := s.OpenFile(ctx, path)
		return openDoneMsg{path: path, doc: doc, err: err}
	}
}

func (m appModel) saveCmd(path, content string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return saveDoneMsg{path: path, content: content, err: s.SaveFile(ctx, path, content)}
	}
}

func (m appModel) createCmd(dir, name string, mode model.AddItemMode) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		path, err := s.CreateItem(ctx, dir, name, mode)
		return createDoneMsg{path: path, mode: mode, err: err}
	}
}

// reloadCmd refreshes a panel from disk without touching the workspace state.
func (m appModel) reloadCmd(path string) tea.Cmd {
	return m.reload(path, false)
}

func (m appModel) reload(path string, force bool) tea.Cmd {
	return m.readBack(reloadDoneMsg{path: path, force: force})
}

// diskChangeCmd re-reads a panel after a watcher event; Update decides from the
// content whether the change is worth a notice.
func (m appModel) diskChangeCmd(path string) tea.Cmd {
	return m.readBack(reloadDoneMsg{path: path, fromDisk: true})
}

func (m appModel) readBack(msg reloadDoneMsg) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		if s.IsDir(ctx, msg.path) {
			msg.isDir = true
			msg.entries, msg.err = s.ListDirectory(ctx, msg.path)
			return msg
		}
		msg.doc, msg.err = s.ReadFile(ctx, msg.path)
		return msg
	}
}

func (m appModel) loadSidebarCmd() tea.Cmd {
	dir := m.sidebarRoot()
	if dir == "" || !m.state.SidebarVisible {
		return nil
	}
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		entries, err := s.ListDirectory(ctx, dir)
		return sidebarLoadedMsg{dir: dir, entries: entries, err: err}
	}
}

// waitForChange delivers the next watcher event. Update re-arms it after each one.
func waitForChange(w *watch.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	ch := w.Events()
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return fileChangedMsg{change: c}
	}
}
