package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"stacknote/internal/fsgate"
	"stacknote/internal/model"
	"stacknote/internal/render"
	"stacknote/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.resizeEditors()
	return m, cmd
}

func (m appModel) update(msg tea.Msg) (appModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// The minibuffer behaves like an echo area: the next key clears it.
		m.clearMinibuffer()
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateKey(msg)

	case openDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.showMinibuffer(describeErr("Open", msg.err), true)
			return m, nil
		}
		prevRoot := m.sidebarRoot()
		m.syncState(m.session.Snapshot())
		if b := m.panels[msg.path]; b != nil {
			if b.modified() && !msg.isDir {
				// Re-opening an open path focuses it; unsaved edits stay.
				m.showMinibuffer(filepath.Base(msg.path)+" is already open with unsaved edits; kept them", false)
			} else {
				b.fill(msg.isDir, msg.doc, msg.entries, nil)
			}
		}
		m.focusPanelPath(msg.path)
		if m.sidebarRoot() != prevRoot {
			return m, m.loadSidebarCmd()
		}
		return m, nil

	case saveDoneMsg:
		m.busy = false
		if msg.err != nil {
			if b := m.panels[msg.path]; b != nil {
				b.writing, b.inFlight = "", false
			}
			m.showMinibuffer(describeErr("Save", msg.err), true)
			return m, nil
		}
		if b := m.panels[msg.path]; b != nil {
			b.saved = msg.content
			b.writing, b.inFlight = "", false
		}
		m.showMinibuffer("Saved "+filepath.Base(msg.path), false)
		return m, nil

	case createDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.showMinibuffer(describeErr("Create", msg.err), true)
			return m, nil
		}
		m.endPrompt()
		m.logger.Info("created", "path", msg.path, "mode", string(msg.mode))
		m.syncState(m.session.Snapshot())
		cmds := []tea.Cmd{m.loadSidebarCmd()}
		if msg.mode == model.AddItemFile {
			if b := m.panels[msg.path]; b != nil {
				b.fill(false, model.Document{Path: msg.path}, nil, nil)
			}
			m.focusPanelPath(msg.path)
		}
		m.showMinibuffer("Created "+filepath.Base(msg.path), false)
		return m, tea.Batch(cmds...)

	case reloadDoneMsg:
		b := m.panels[msg.path]
		if b == nil {
			return m, nil
		}
		if msg.fromDisk {
			m.reconcileDisk(b, msg)
			return m, nil
		}
		if b.modified() && !msg.force {
			// Edits made while the read was in flight win.
			return m, nil
		}
		b.fill(msg.isDir, msg.doc, msg.entries, msg.err)
		if msg.force {
			m.showMinibuffer("Reloaded "+filepath.Base(msg.path), false)
		}
		return m, nil

	case sidebarLoadedMsg:
		if msg.dir != m.sidebarRoot() {
			return m, nil
		}
		m.sidebarDir = msg.dir
		m.sidebarEntries = msg.entries
		m.sidebarErr = ""
		if msg.err != nil {
			m.sidebarErr = describeErr("List", msg.err)
		}
		m.sidebarSel = min(m.sidebarSel, max(len(m.sidebarEntries)-1, 0))
		return m, nil

	case fileChangedMsg:
		return m.handleChange(msg.change)

	case watchClosedMsg:
		return m, nil
	}

	return m, nil
}

// reconcileDisk applies a watcher-triggered read. Content matching what this session
// has on screen or just wrote is taken silently; unsaved edits are never replaced.
func (m *appModel) reconcileDisk(b *panelBuffer, msg reloadDoneMsg) {
	name := filepath.Base(msg.path)
	switch {
	case !b.loaded:
		b.fill(msg.isDir, msg.doc, msg.entries, msg.err)
	case errors.Is(msg.err, fsgate.ErrNotFound):
		m.showMinibuffer(name+" was removed on disk", true)
	case msg.err != nil:
		m.logger.Warn("reload after disk change failed", "path", msg.path, "err", msg.err)
	case msg.isDir || b.isDir:
		b.fill(msg.isDir, msg.doc, msg.entries, nil)
	case msg.doc.Content == b.saved, b.inFlight && msg.doc.Content == b.writing:
		// Nothing new, or the echo of our own save.
	case msg.doc.Content == b.editor.Value():
		b.saved = msg.doc.Content
	case b.modified():
		m.showMinibuffer(name+" changed on disk; keeping your edits", true)
	default:
		b.fill(false, msg.doc, nil, nil)
	}
}

func (b *panelBuffer) fill(isDir bool, doc model.Document, entries []model.Entry, err error) {
	b.isDir = isDir
	b.loaded = err == nil
	b.loadErr = ""
	if err != nil {
		b.loadErr = describeErr("Load", err)
		return
	}
	if isDir {
		b.entries = entries
		return
	}
	b.saved = doc.Content
	b.editor.SetValue(doc.Content)
}

func (m appModel) updatePrompt(msg tea.KeyMsg) (appModel, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "ctrl+n":
		if m.prompt == promptAddItem {
			return m.updateKey(msg)
		}
	case "esc":
		kind := m.prompt
		m.endPrompt()
		if kind == promptAddItem {
			m.syncState(m.session.SetShowAddItem(m.ctx, model.AddItemOff))
		}
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		value := strings.TrimSpace(m.input.Value())
		kind := m.prompt
		if kind == promptAddItem {
			root := m.sidebarRoot()
			if root == "" {
				m.showMinibuffer("Create: open a directory first", true)
				return m, nil
			}
			if value == "" {
				return m, nil
			}
			m.busy = true
			return m, m.createCmd(root, value, m.state.ShowAddItem)
		}
		m.endPrompt()
		path := m.resolveInput(value)
		if path == "" {
			return m, nil
		}
		m.busy = true
		return m, m.openCmd(path, kind == promptOpenDir)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resolveInput makes prompt input absolute, relative to the sidebar root when set.
func (m appModel) resolveInput(value string) string {
	if value == "" {
		return ""
	}
	if root := m.sidebarRoot(); root != "" && !filepath.IsAbs(value) && !strings.HasPrefix(value, "~") {
		value = filepath.Join(root, value)
	}
	return fsgate.Abs(value)
}

func (m appModel) updateKey(msg tea.KeyMsg) (appModel, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+o":
		if m.busy {
			return m, nil
		}
		m.startPrompt(promptOpenFile, m.promptSeed())
		return m, nil

	case "ctrl+d":
		if m.busy {
			return m, nil
		}
		m.startPrompt(promptOpenDir, m.promptSeed())
		return m, nil

	case "ctrl+b":
		m.syncState(m.session.ToggleSidebar(m.ctx))
		return m, m.loadSidebarCmd()

	case "ctrl+g":
		m.syncState(m.session.ToggleInfoPanel(m.ctx))
		return m, nil

	case "ctrl+t":
		m.syncState(m.session.ToggleScrollMode(m.ctx))
		return m, nil

	case "ctrl+n":
		next := nextAddItemMode(m.state.ShowAddItem)
		m.syncState(m.session.SetShowAddItem(m.ctx, next))
		if next == model.AddItemOff {
			m.endPrompt()
		} else {
			m.startPrompt(promptAddItem, "")
		}
		return m, nil

	case "ctrl+s":
		if m.busy {
			return m, nil
		}
		b := m.focusedBuffer()
		if b == nil || b.isDir || !b.loaded {
			return m, nil
		}
		m.busy = true
		b.writing, b.inFlight = b.editor.Value(), true
		return m, m.saveCmd(b.path, b.writing)

	case "ctrl+r":
		b := m.focusedBuffer()
		if b == nil {
			return m, nil
		}
		return m, m.reload(b.path, true)

	case "tab":
		m.moveFocus(1)
		return m, nil

	case "shift+tab":
		m.moveFocus(-1)
		return m, nil
	}

	ft, ok := m.focused()
	if !ok {
		return m, nil
	}
	switch ft.kind {
	case focusSeparator:
		if msg.String() == "enter" {
			return m.collapseAt(ft.panel)
		}
		return m, nil
	case focusSidebar:
		return m.updateSidebar(msg)
	}

	b := m.focusedBuffer()
	if b == nil || b.isDir || !b.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	b.editor, cmd = b.editor.Update(msg)
	return m, cmd
}

// collapseAt closes every panel except panel i, the one below the activated separator.
func (m appModel) collapseAt(i int) (appModel, tea.Cmd) {
	panels := render.Layout(m.state.OpenPaths)
	target, ok := render.SeparatorTarget(panels, i)
	if !ok {
		return m, nil
	}
	var dropped []string
	for _, p := range m.state.OpenPaths {
		if p != target && m.panels[p].modified() {
			dropped = append(dropped, filepath.Base(p))
		}
	}
	st, err := m.session.CollapseTo(m.ctx, target)
	if err != nil {
		m.showMinibuffer(describeErr("Collapse", err), true)
		return m, nil
	}
	m.syncState(st)
	m.focusPanelPath(target)
	if len(dropped) > 0 {
		m.showMinibuffer("Discarded unsaved edits in "+strings.Join(dropped, ", "), true)
	}
	return m, nil
}

func (m appModel) updateSidebar(msg tea.KeyMsg) (appModel, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.sidebarSel > 0 {
			m.sidebarSel--
		}
	case "down", "j":
		if m.sidebarSel < len(m.sidebarEntries)-1 {
			m.sidebarSel++
		}
	case "enter":
		if m.busy || m.sidebarSel >= len(m.sidebarEntries) {
			return m, nil
		}
		e := m.sidebarEntries[m.sidebarSel]
		m.busy = true
		return m, m.openCmd(e.Path(), e.IsDir())
	}
	return m, nil
}

func nextAddItemMode(mode model.AddItemMode) model.AddItemMode {
	switch mode.Normalize() {
	case model.AddItemOff:
		return model.AddItemFile
	case model.AddItemFile:
		return model.AddItemFolder
	default:
		return model.AddItemOff
	}
}

// handleChange reacts to an on-disk change. Unmodified panels reload; modified ones
// keep the user's edits and say so.
func (m appModel) handleChange(c watch.Change) (appModel, tea.Cmd) {
	cmds := []tea.Cmd{waitForChange(m.watcher)}
	m.logger.Debug("disk change", "path", c.Path, "op", c.Op.String(), "removed", c.Removed())

	if b := m.panels[c.Path]; b != nil {
		// Editors and our own saves replace files by rename, so the op alone cannot tell
		// a removal from a rewrite; the read-back decides.
		cmds = append(cmds, m.diskChangeCmd(c.Path))
	}
	parent := filepath.Dir(c.Path)
	if b := m.panels[parent]; b != nil && b.isDir {
		cmds = append(cmds, m.reloadCmd(parent))
	}
	if root := m.sidebarRoot(); root != "" && (parent == root || c.Path == root) {
		cmds = append(cmds, m.loadSidebarCmd())
	}
	return m, tea.Batch(cmds...)
}

func describeErr(op string, err error) string {
	switch {
	case errors.Is(err, fsgate.ErrNotFound):
		return fmt.Sprintf("%s: not found: %s", op, errPath(err))
	case errors.Is(err, fsgate.ErrPermissionDenied):
		return fmt.Sprintf("%s: permission denied: %s", op, errPath(err))
	default:
		return fmt.Sprintf("%s: %v", op, err)
	}
}

func errPath(err error) string {
	var pe *fsgate.PathError
	if errors.As(err, &pe) {
		return pe.Path
	}
	return err.Error()
}
