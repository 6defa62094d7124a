package tui

import (
	"context"
	"log/slog"
	"path/filepath"

	"stacknote/internal/logging"
	"stacknote/internal/model"
	"stacknote/internal/render"
	"stacknote/internal/watch"
	"stacknote/internal/workspace"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	sidebarW       = 30
	infoW          = 32
	minColumnW     = 24
	minPanelHeight = 4
	// panelChrome is border (2) plus the title row.
	panelChrome = 3
)

type focusKind int

const (
	focusSidebar focusKind = iota
	focusPanel
	focusSeparator
)

// focusTarget is one stop in the tab order. For separators, panel is the index of the
// panel below it.
type focusTarget struct {
	kind  focusKind
	panel int
}

type promptKind int

const (
	promptNone promptKind = iota
	promptOpenFile
	promptOpenDir
	promptAddItem
)

func (p promptKind) label(mode model.AddItemMode) string {
	switch p {
	case promptOpenFile:
		return "Open file: "
	case promptOpenDir:
		return "Open directory: "
	case promptAddItem:
		if mode == model.AddItemFolder {
			return "New folder: "
		}
		return "New file: "
	default:
		return ""
	}
}

// panelBuffer is the in-memory side of one open path.
type panelBuffer struct {
	path    string
	isDir   bool
	loaded  bool
	loadErr string

	editor textarea.Model
	// saved is the content last read from or written to disk.
	saved string

	// writing is the content of a save still in flight; its own watcher echo is not news.
	writing  string
	inFlight bool

	entries []model.Entry
}

func (b *panelBuffer) modified() bool {
	return b != nil && b.loaded && !b.isDir && b.editor.Value() != b.saved
}

func newEditor() textarea.Model {
	ta := textarea.New()
	ta.Prompt = ""
	ta.Placeholder = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = ta.BlurredStyle.CursorLine
	ta.Blur()
	return ta
}

type appModel struct {
	ctx     context.Context
	session *workspace.Session
	watcher *watch.Watcher
	logger  *slog.Logger

	width  int
	height int

	state  model.WorkspaceState
	panels map[string]*panelBuffer
	focus  int

	sidebarDir     string
	sidebarEntries []model.Entry
	sidebarErr     string
	sidebarSel     int

	prompt promptKind
	input  textinput.Model

	// busy is set while an open, save or create is in flight; new triggers are ignored
	// until it clears so results land in request order.
	busy bool

	minibufferText string
	minibufferErr  bool

	quitting bool
}

func newAppModel(ctx context.Context, s *workspace.Session, w *watch.Watcher, logger *slog.Logger) appModel {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 4096

	m := appModel{
		ctx:     ctx,
		session: s,
		watcher: w,
		logger:  logging.OrDiscard(logger),
		panels:  map[string]*panelBuffer{},
		input:   in,
		width:   100,
		height:  30,
	}
	m.syncState(s.Snapshot())
	if m.state.ShowAddItem != model.AddItemOff {
		m.startPrompt(promptAddItem, "")
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadSidebarCmd(), waitForChange(m.watcher)}
	for _, p := range m.state.OpenPaths {
		cmds = append(cmds, m.reloadCmd(p))
	}
	return tea.Batch(cmds...)
}

// sidebarRoot is the directory the sidebar lists.
func (m appModel) sidebarRoot() string { return sidebarRootOf(m.state) }

func sidebarRootOf(st model.WorkspaceState) string {
	if st.DirectoryPath != "" {
		return st.DirectoryPath
	}
	return st.ProjectPath
}

// watchPaths is what the watcher follows for st: every open path plus the sidebar root.
func watchPaths(st model.WorkspaceState) []string {
	paths := append([]string{}, st.OpenPaths...)
	if root := sidebarRootOf(st); root != "" {
		paths = append(paths, root)
	}
	return paths
}

func (m appModel) layout() []render.Panel {
	return render.Layout(m.state.OpenPaths)
}

// focusTargets lists the tab order: sidebar (when visible), then each panel preceded by
// its separator.
func (m appModel) focusTargets() []focusTarget {
	var out []focusTarget
	if m.state.SidebarVisible {
		out = append(out, focusTarget{kind: focusSidebar})
	}
	for _, p := range m.layout() {
		if p.Separator {
			out = append(out, focusTarget{kind: focusSeparator, panel: p.Index})
		}
		out = append(out, focusTarget{kind: focusPanel, panel: p.Index})
	}
	return out
}

func (m appModel) focused() (focusTarget, bool) {
	targets := m.focusTargets()
	if m.focus < 0 || m.focus >= len(targets) {
		return focusTarget{}, false
	}
	return targets[m.focus], true
}

func (m appModel) focusedBuffer() *panelBuffer {
	ft, ok := m.focused()
	if !ok || ft.kind != focusPanel || ft.panel >= len(m.state.OpenPaths) {
		return nil
	}
	return m.panels[m.state.OpenPaths[ft.panel]]
}

func (m *appModel) focusPanelPath(path string) {
	for i, ft := range m.focusTargets() {
		if ft.kind == focusPanel && m.state.OpenPaths[ft.panel] == path {
			m.focus = i
			break
		}
	}
	m.applyFocus()
}

func (m *appModel) moveFocus(delta int) {
	n := len(m.focusTargets())
	if n == 0 {
		m.focus = 0
		return
	}
	m.focus = ((m.focus+delta)%n + n) % n
	m.applyFocus()
}

// applyFocus clamps the focus index and gives keyboard focus to the focused editor only.
func (m *appModel) applyFocus() {
	n := len(m.focusTargets())
	if m.focus >= n {
		m.focus = n - 1
	}
	if m.focus < 0 {
		m.focus = 0
	}
	active := m.focusedBuffer()
	for _, b := range m.panels {
		if b == active && !b.isDir {
			b.editor.Focus()
		} else {
			b.editor.Blur()
		}
	}
}

// syncState adopts st: buffers for newly opened paths are created and buffers for
// closed paths are dropped.
func (m *appModel) syncState(st model.WorkspaceState) {
	prev, hadPrev := m.focused()
	prevPath := ""
	if hadPrev && prev.kind != focusSidebar && prev.panel < len(m.state.OpenPaths) {
		prevPath = m.state.OpenPaths[prev.panel]
	}

	m.state = st
	open := map[string]bool{}
	for _, p := range st.OpenPaths {
		open[p] = true
		if _, ok := m.panels[p]; !ok {
			m.panels[p] = &panelBuffer{path: p, editor: newEditor()}
		}
	}
	for p := range m.panels {
		if !open[p] {
			delete(m.panels, p)
		}
	}
	if hadPrev {
		m.refocus(prev.kind, prevPath)
	}
	m.applyFocus()
}

// refocus moves focus to the stop of kind for path, if it still exists, so that
// layout changes do not shift focus onto a different panel.
func (m *appModel) refocus(kind focusKind, path string) {
	for i, ft := range m.focusTargets() {
		if ft.kind != kind {
			continue
		}
		if kind == focusSidebar || m.state.OpenPaths[ft.panel] == path {
			m.focus = i
			return
		}
	}
}

func (m *appModel) showMinibuffer(text string, isErr bool) {
	m.minibufferText = text
	m.minibufferErr = isErr
}

func (m *appModel) clearMinibuffer() {
	m.minibufferText = ""
	m.minibufferErr = false
}

func (m *appModel) startPrompt(kind promptKind, value string) {
	m.prompt = kind
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *appModel) endPrompt() {
	m.prompt = promptNone
	m.input.SetValue("")
	m.input.Blur()
}

// promptSeed prefills path prompts with the sidebar root so relative typing is short.
func (m appModel) promptSeed() string {
	if root := m.sidebarRoot(); root != "" {
		return root + string(filepath.Separator)
	}
	return ""
}

// columnWidth is what remains after the sidebar and info panel.
func (m appModel) columnWidth() int {
	w := m.width
	if m.state.SidebarVisible {
		w -= sidebarW
	}
	if m.state.InfoPanelVisible {
		w -= infoW
	}
	return max(w, minColumnW)
}

// bodyHeight leaves the last row for the minibuffer or prompt.
func (m appModel) bodyHeight() int {
	return max(m.height-1, minPanelHeight)
}

// panelHeights is the outer height of each panel. Stacked mode shares the body;
// scroll mode sizes each panel to its content.
func (m appModel) panelHeights() []int {
	n := len(m.state.OpenPaths)
	if !m.state.ScrollMode {
		return columnHeights(m.bodyHeight(), m.layout())
	}
	out := make([]int, n)
	for i, p := range m.state.OpenPaths {
		lines := 1
		if b := m.panels[p]; b != nil {
			if b.isDir {
				lines = len(b.entries)
			} else {
				lines = b.editor.LineCount()
			}
		}
		out[i] = min(max(lines+panelChrome, minPanelHeight), m.bodyHeight())
	}
	return out
}

// resizeEditors keeps every editor sized to its panel.
func (m *appModel) resizeEditors() {
	heights := m.panelHeights()
	inner := max(m.columnWidth()-2, 1)
	for i, p := range m.state.OpenPaths {
		b := m.panels[p]
		if b == nil {
			continue
		}
		b.editor.SetWidth(inner)
		b.editor.SetHeight(max(heights[i]-panelChrome, 1))
	}
	m.input.Width = max(m.width-20, 10)
}
