package tui

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"stacknote/internal/fsgate"
	"stacknote/internal/model"
	"stacknote/internal/store"
	"stacknote/internal/watch"
	"stacknote/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

func newTestModel(t *testing.T) (appModel, string, *workspace.Session) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":        "alpha",
		"b.txt":        "beta",
		"folder/c.txt": "gamma",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	ctx := context.Background()
	slot := store.FileSlot{Dir: t.TempDir()}
	s := workspace.NewSession(ctx, slot, fsgate.New(fsgate.NewScope(dir)))
	m := newAppModel(ctx, s, nil, nil)
	mm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return mm.(appModel), dir, s
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// press sends one key and returns the model with whatever command it produced.
func press(t *testing.T, m appModel, k tea.KeyMsg) (appModel, tea.Cmd) {
	t.Helper()
	mm, cmd := m.Update(k)
	return mm.(appModel), cmd
}

// run executes cmd synchronously and feeds every resulting message back into the model.
// Only call it on commands that do not block (gateway and session work).
func run(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
		return m
	default:
		mm, next := m.Update(msg)
		return run(t, mm.(appModel), next)
	}
}

// openVia drives the open prompt for path and completes the open.
func openVia(t *testing.T, m appModel, prompt tea.KeyType, path string) appModel {
	t.Helper()
	m, _ = press(t, m, key(prompt))
	m.input.SetValue(path)
	m, cmd := press(t, m, key(tea.KeyEnter))
	if cmd == nil {
		t.Fatalf("expected an open command for %s", path)
	}
	return run(t, m, cmd)
}

func TestOpenFilePrompt_OpensAndFocuses(t *testing.T) {
	m, dir, s := newTestModel(t)
	a := filepath.Join(dir, "a.txt")

	m, _ = press(t, m, key(tea.KeyCtrlO))
	if m.prompt != promptOpenFile {
		t.Fatalf("expected open-file prompt, got %v", m.prompt)
	}
	m.input.SetValue(a)
	m, cmd := press(t, m, key(tea.KeyEnter))
	if !m.busy || cmd == nil {
		t.Fatalf("expected busy with a pending open")
	}

	// Triggers while busy are ignored.
	m, _ = press(t, m, key(tea.KeyCtrlO))
	if m.prompt != promptNone {
		t.Fatalf("open prompt should not start while busy")
	}
	if _, c := press(t, m, key(tea.KeyCtrlS)); c != nil {
		t.Fatalf("save should be ignored while busy")
	}

	m = run(t, m, cmd)
	if m.busy {
		t.Fatalf("busy flag not cleared")
	}
	if want := []string{a}; !reflect.DeepEqual(s.Snapshot().OpenPaths, want) {
		t.Fatalf("OpenPaths = %v, want %v", s.Snapshot().OpenPaths, want)
	}
	b := m.focusedBuffer()
	if b == nil || b.path != a || b.editor.Value() != "alpha" {
		t.Fatalf("expected focused panel for a.txt with its content, got %#v", b)
	}
	if !b.editor.Focused() {
		t.Fatalf("focused panel editor should have keyboard focus")
	}
}

func TestOpenMissingFile_ReportsAndKeepsState(t *testing.T) {
	m, dir, s := newTestModel(t)
	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "a.txt"))
	before := s.Snapshot()

	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "missing.txt"))
	if !m.minibufferErr || !strings.Contains(m.minibufferText, "not found") {
		t.Fatalf("expected not-found minibuffer, got %q", m.minibufferText)
	}
	if !model.Equal(before, s.Snapshot()) {
		t.Fatalf("failed open changed state: %#v", s.Snapshot())
	}

	// The next key clears the message.
	m, _ = press(t, m, key(tea.KeyTab))
	if m.minibufferText != "" {
		t.Fatalf("minibuffer should clear on the next key")
	}
}

func TestOpenOutsideScope_PermissionDenied(t *testing.T) {
	m, _, s := newTestModel(t)
	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(t.TempDir(), "x.txt"))
	if !strings.Contains(m.minibufferText, "permission denied") {
		t.Fatalf("expected permission denied, got %q", m.minibufferText)
	}
	if len(s.Snapshot().OpenPaths) != 0 {
		t.Fatalf("state changed on denied open")
	}
}

func TestOpenDirectory_SetsRootAndLoadsSidebar(t *testing.T) {
	m, dir, s := newTestModel(t)
	folder := filepath.Join(dir, "folder")

	m = openVia(t, m, tea.KeyCtrlD, folder)
	st := s.Snapshot()
	if st.DirectoryPath != folder || !reflect.DeepEqual(st.OpenPaths, []string{folder}) {
		t.Fatalf("unexpected state %#v", st)
	}
	if m.sidebarDir != folder || len(m.sidebarEntries) != 1 || m.sidebarEntries[0].Name() != "c.txt" {
		t.Fatalf("sidebar not loaded: dir=%q entries=%v", m.sidebarDir, m.sidebarEntries)
	}
	if b := m.panels[folder]; b == nil || !b.isDir || len(b.entries) != 1 {
		t.Fatalf("directory panel not filled: %#v", b)
	}

	// Relative prompt input resolves against the sidebar root.
	m = openVia(t, m, tea.KeyCtrlO, "c.txt")
	if got := s.Snapshot().OpenPaths; len(got) != 2 || got[1] != filepath.Join(folder, "c.txt") {
		t.Fatalf("relative open resolved wrong: %v", got)
	}
}

func TestSidebarEnter_OpensSelectedEntry(t *testing.T) {
	m, dir, s := newTestModel(t)
	m = openVia(t, m, tea.KeyCtrlD, dir)

	for i := 0; i < 10; i++ {
		if ft, _ := m.focused(); ft.kind == focusSidebar {
			break
		}
		m, _ = press(t, m, key(tea.KeyTab))
	}
	// Listing is folder/, a.txt, b.txt.
	m, _ = press(t, m, key(tea.KeyDown))
	m, cmd := press(t, m, key(tea.KeyEnter))
	m = run(t, m, cmd)

	want := []string{dir, filepath.Join(dir, "a.txt")}
	if got := s.Snapshot().OpenPaths; !reflect.DeepEqual(got, want) {
		t.Fatalf("OpenPaths = %v, want %v", got, want)
	}
}

func TestSeparatorEnter_Collapses(t *testing.T) {
	m, dir, s := newTestModel(t)
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	folder := filepath.Join(dir, "folder")
	m = openVia(t, m, tea.KeyCtrlO, a)
	m = openVia(t, m, tea.KeyCtrlO, b)
	m = openVia(t, m, tea.KeyCtrlD, folder)

	// Unsaved edit in a.txt is discarded by the collapse.
	m.panels[a].editor.SetValue("edited")

	found := false
	for i := 0; i < len(m.focusTargets()); i++ {
		if ft, _ := m.focused(); ft.kind == focusSeparator && ft.panel == 1 {
			found = true
			break
		}
		m, _ = press(t, m, key(tea.KeyTab))
	}
	if !found {
		t.Fatalf("separator before panel 1 not reachable with tab")
	}
	m, _ = press(t, m, key(tea.KeyEnter))

	st := s.Snapshot()
	if !reflect.DeepEqual(st.OpenPaths, []string{b}) {
		t.Fatalf("OpenPaths = %v, want [%s]", st.OpenPaths, b)
	}
	if st.DirectoryPath != folder {
		t.Fatalf("collapse must not touch roots: %#v", st)
	}
	if _, ok := m.panels[a]; ok {
		t.Fatalf("closed panel buffer kept")
	}
	if fb := m.focusedBuffer(); fb == nil || fb.path != b {
		t.Fatalf("focus should land on the kept panel")
	}
	if !strings.Contains(m.minibufferText, "a.txt") {
		t.Fatalf("expected discarded-edits notice, got %q", m.minibufferText)
	}
}

func TestShiftTab_WrapsBackwards(t *testing.T) {
	m, dir, _ := newTestModel(t)
	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "a.txt"))
	n := len(m.focusTargets())
	start := m.focus
	m, _ = press(t, m, key(tea.KeyShiftTab))
	if m.focus != (start-1+n)%n {
		t.Fatalf("focus = %d, want %d", m.focus, (start-1+n)%n)
	}
}

func TestToggles_GoThroughSession(t *testing.T) {
	m, _, s := newTestModel(t)

	m, _ = press(t, m, key(tea.KeyCtrlB))
	m, _ = press(t, m, key(tea.KeyCtrlG))
	m, _ = press(t, m, key(tea.KeyCtrlT))

	st := s.Snapshot()
	if st.SidebarVisible || !st.InfoPanelVisible || !st.ScrollMode {
		t.Fatalf("unexpected toggles: %#v", st)
	}
	if !model.Equal(st, m.state) {
		t.Fatalf("model state drifted from session")
	}
	for _, ft := range m.focusTargets() {
		if ft.kind == focusSidebar {
			t.Fatalf("hidden sidebar must not take focus")
		}
	}
}

func TestSave_WritesEditorContent(t *testing.T) {
	m, dir, _ := newTestModel(t)
	a := filepath.Join(dir, "a.txt")
	m = openVia(t, m, tea.KeyCtrlO, a)

	m, _ = press(t, m, runes("!"))
	if !m.focusedBuffer().modified() {
		t.Fatalf("typing should mark the panel modified")
	}
	m, cmd := press(t, m, key(tea.KeyCtrlS))
	if cmd == nil || !m.busy {
		t.Fatalf("expected pending save")
	}
	m = run(t, m, cmd)

	got, _ := os.ReadFile(a)
	if string(got) != "alpha!" {
		t.Fatalf("file content = %q, want %q", got, "alpha!")
	}
	if m.focusedBuffer().modified() || m.minibufferText != "Saved a.txt" {
		t.Fatalf("save not acknowledged: modified=%v msg=%q", m.focusedBuffer().modified(), m.minibufferText)
	}
}

func TestDiskChange_ReloadsOnlyUnmodifiedPanels(t *testing.T) {
	m, dir, _ := newTestModel(t)
	a := filepath.Join(dir, "a.txt")
	m = openVia(t, m, tea.KeyCtrlO, a)

	if err := os.WriteFile(a, []byte("from disk"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mm, cmd := m.Update(fileChangedMsg{change: watch.Change{Path: a, Op: fsnotify.Write}})
	m = run(t, mm.(appModel), cmd)
	if got := m.panels[a].editor.Value(); got != "from disk" {
		t.Fatalf("unmodified panel not reloaded: %q", got)
	}

	m.panels[a].editor.SetValue("mine")
	if err := os.WriteFile(a, []byte("theirs"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mm, cmd = m.Update(fileChangedMsg{change: watch.Change{Path: a, Op: fsnotify.Write}})
	m = run(t, mm.(appModel), cmd)
	if got := m.panels[a].editor.Value(); got != "mine" {
		t.Fatalf("modified panel was overwritten: %q", got)
	}
	if !strings.Contains(m.minibufferText, "keeping your edits") {
		t.Fatalf("expected conflict notice, got %q", m.minibufferText)
	}
}

func TestAddItem_CreatesAndOpensFile(t *testing.T) {
	m, dir, s := newTestModel(t)
	folder := filepath.Join(dir, "folder")
	m = openVia(t, m, tea.KeyCtrlD, folder)

	m, _ = press(t, m, key(tea.KeyCtrlN))
	if m.prompt != promptAddItem || s.Snapshot().ShowAddItem != model.AddItemFile {
		t.Fatalf("ctrl+n should open the add-file form")
	}
	m.input.SetValue("new.md")
	m, cmd := press(t, m, key(tea.KeyEnter))
	m = run(t, m, cmd)

	p := filepath.Join(folder, "new.md")
	st := s.Snapshot()
	if st.ShowAddItem != model.AddItemOff || m.prompt != promptNone {
		t.Fatalf("form should close after create: %#v", st)
	}
	if st.OpenPaths[len(st.OpenPaths)-1] != p {
		t.Fatalf("new file not opened: %v", st.OpenPaths)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("file not created: %v", err)
	}
}

func TestAddItem_EscClosesForm(t *testing.T) {
	m, _, s := newTestModel(t)
	m, _ = press(t, m, key(tea.KeyCtrlN))
	m, _ = press(t, m, key(tea.KeyCtrlN))
	if s.Snapshot().ShowAddItem != model.AddItemFolder {
		t.Fatalf("second ctrl+n should switch to folder")
	}
	m, _ = press(t, m, key(tea.KeyEsc))
	if m.prompt != promptNone || s.Snapshot().ShowAddItem != model.AddItemOff {
		t.Fatalf("esc should close the form")
	}
}

func TestRestoredPanelsLoadOnInit(t *testing.T) {
	m, dir, s := newTestModel(t)
	a := filepath.Join(dir, "a.txt")
	_ = openVia(t, m, tea.KeyCtrlO, a)

	// A fresh model over the same session starts from the persisted paths.
	m2 := newAppModel(context.Background(), s, nil, nil)
	if b := m2.panels[a]; b == nil || b.loaded {
		t.Fatalf("restored panel should exist unloaded before Init")
	}
	m2 = run(t, m2, m2.Init())
	if got := m2.panels[a].editor.Value(); got != "alpha" {
		t.Fatalf("restored panel content = %q", got)
	}
}

func TestView_RendersColumn(t *testing.T) {
	m, dir, _ := newTestModel(t)
	if out := m.View(); !strings.Contains(out, "No panels") {
		t.Fatalf("empty view missing hint:\n%s", out)
	}

	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "a.txt"))
	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "b.txt"))
	m, _ = press(t, m, key(tea.KeyCtrlG))

	out := m.View()
	for _, want := range []string{"a.txt", "collapse to b.txt", "Workspace"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}

	m, _ = press(t, m, key(tea.KeyCtrlT))
	if out := m.View(); !strings.Contains(out, "b.txt") {
		t.Fatalf("scroll-mode view missing focused panel:\n%s", out)
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, cmd := press(t, m, key(tea.KeyCtrlC))
	if !m.quitting || cmd == nil {
		t.Fatalf("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestReloadKey_DropsEdits(t *testing.T) {
	m, dir, _ := newTestModel(t)
	a := filepath.Join(dir, "a.txt")
	m = openVia(t, m, tea.KeyCtrlO, a)

	m.panels[a].editor.SetValue("scratch")
	m, cmd := press(t, m, key(tea.KeyCtrlR))
	m = run(t, m, cmd)
	if got := m.panels[a].editor.Value(); got != "alpha" {
		t.Fatalf("ctrl+r should restore disk content, got %q", got)
	}
	if m.panels[a].modified() {
		t.Fatalf("panel still marked modified after reload")
	}
}

func TestDiskChange_OwnSaveIsSilentAndLaterEditsSeen(t *testing.T) {
	m, dir, _ := newTestModel(t)
	a := filepath.Join(dir, "a.txt")
	m = openVia(t, m, tea.KeyCtrlO, a)

	m, _ = press(t, m, runes("!"))
	m, saveCmd := press(t, m, key(tea.KeyCtrlS))
	if saveCmd == nil {
		t.Fatalf("expected pending save")
	}
	// The save's rename reaches the watcher before the save result reaches Update.
	saved := saveCmd()
	mm, cmd := m.Update(fileChangedMsg{change: watch.Change{Path: a, Op: fsnotify.Create}})
	m = run(t, mm.(appModel), cmd)
	if m.minibufferText != "" {
		t.Fatalf("own save should not raise a notice, got %q", m.minibufferText)
	}
	mm, _ = m.Update(saved)
	m = mm.(appModel)

	// And the echo arriving after the result is just as quiet.
	mm, cmd = m.Update(fileChangedMsg{change: watch.Change{Path: a, Op: fsnotify.Rename}})
	m = run(t, mm.(appModel), cmd)
	if m.minibufferText != "Saved a.txt" {
		t.Fatalf("late echo replaced the save notice with %q", m.minibufferText)
	}

	if err := os.WriteFile(a, []byte("edited elsewhere"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mm, cmd = m.Update(fileChangedMsg{change: watch.Change{Path: a, Op: fsnotify.Write}})
	m = run(t, mm.(appModel), cmd)
	if got := m.panels[a].editor.Value(); got != "edited elsewhere" {
		t.Fatalf("external edit after a save not picked up: %q", got)
	}

	if err := os.Remove(a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	mm, cmd = m.Update(fileChangedMsg{change: watch.Change{Path: a, Op: fsnotify.Remove}})
	m = run(t, mm.(appModel), cmd)
	if !strings.Contains(m.minibufferText, "removed on disk") {
		t.Fatalf("expected removal notice, got %q", m.minibufferText)
	}
	if got := m.panels[a].editor.Value(); got != "edited elsewhere" {
		t.Fatalf("removal should keep the buffer, got %q", got)
	}
}

func TestReopenModifiedPanel_KeepsEdits(t *testing.T) {
	m, dir, s := newTestModel(t)
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	m = openVia(t, m, tea.KeyCtrlO, a)
	m.panels[a].editor.SetValue("unsaved work")
	m = openVia(t, m, tea.KeyCtrlO, b)

	m = openVia(t, m, tea.KeyCtrlO, a)
	if got := m.panels[a].editor.Value(); got != "unsaved work" {
		t.Fatalf("re-open replaced unsaved edits with %q", got)
	}
	if fb := m.focusedBuffer(); fb == nil || fb.path != a {
		t.Fatalf("re-open should focus the existing panel, got %#v", fb)
	}
	if !strings.Contains(m.minibufferText, "unsaved edits") {
		t.Fatalf("expected a notice about kept edits, got %q", m.minibufferText)
	}
	// Re-opening still moves the path to the end, as any open does.
	if want := []string{b, a}; !reflect.DeepEqual(s.Snapshot().OpenPaths, want) {
		t.Fatalf("OpenPaths = %v, want %v", s.Snapshot().OpenPaths, want)
	}
}

func TestView_StackedOverflowKeepsFocusVisible(t *testing.T) {
	m, dir, _ := newTestModel(t)
	mm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 12})
	m = mm.(appModel)
	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "a.txt"))
	m = openVia(t, m, tea.KeyCtrlO, filepath.Join(dir, "b.txt"))
	c := filepath.Join(dir, "folder", "c.txt")
	m = openVia(t, m, tea.KeyCtrlO, c)
	if m.state.ScrollMode {
		t.Fatalf("expected stacked mode")
	}
	m.panels[c].editor.SetValue("gamma edited")

	if fb := m.focusedBuffer(); fb == nil || fb.path != c {
		t.Fatalf("last opened panel should hold focus")
	}
	if out := m.View(); !strings.Contains(out, "c.txt ●") {
		t.Fatalf("focused panel scrolled out of a short window:\n%s", out)
	}
}
