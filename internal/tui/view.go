package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"stacknote/internal/model"
	"stacknote/internal/render"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

const keyHints = "ctrl+o open · ctrl+d dir · ctrl+s save · ctrl+r reload · ctrl+n new · tab focus · ctrl+b sidebar · ctrl+g info · ctrl+t scroll · ctrl+c quit"

func (m appModel) View() string {
	if m.quitting {
		return ""
	}
	bodyH := m.bodyHeight()

	var cols []string
	if m.state.SidebarVisible {
		cols = append(cols, m.viewSidebar(sidebarW, bodyH))
	}
	cols = append(cols, m.viewColumn(m.columnWidth(), bodyH))
	if m.state.InfoPanelVisible {
		cols = append(cols, m.viewInfo(infoW, bodyH))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatusLine())
}

func (m appModel) viewColumn(w, h int) string {
	if len(m.state.OpenPaths) == 0 {
		msg := styleMuted().Render("No panels. ctrl+o opens a file, ctrl+d a directory.")
		return normalizePane("\n  "+msg, w, h)
	}

	ft, _ := m.focused()
	heights := m.panelHeights()
	var blocks []string
	row, focusRow := 0, 0
	for i, p := range m.layout() {
		if p.Separator {
			sepFocused := ft.kind == focusSeparator && ft.panel == i
			if sepFocused {
				focusRow = row
			}
			blocks = append(blocks, viewSeparator(p, w, sepFocused))
			row++
		}
		panelFocused := ft.kind == focusPanel && ft.panel == i
		if panelFocused {
			focusRow = row
		}
		blocks = append(blocks, m.viewPanel(p, w, heights[i], panelFocused))
		row += heights[i]
	}
	content := strings.Join(blocks, "\n")
	// Stacked panels never shrink below minPanelHeight, so a tall stack can still
	// overflow; then it scrolls like scroll mode to keep focus on screen.
	if !m.state.ScrollMode && row <= h {
		return normalizePane(content, w, h)
	}

	vp := viewport.New(w, h)
	vp.SetContent(content)
	vp.SetYOffset(focusRow)
	return normalizePane(vp.View(), w, h)
}

func viewSeparator(p render.Panel, w int, focused bool) string {
	label := "── collapse to " + p.Title() + " "
	if focused {
		label = "── ⏎ collapse to " + p.Title() + " "
	}
	if pad := w - lipgloss.Width(label); pad > 0 {
		label += strings.Repeat("─", pad)
	}
	return styleSeparator(focused).Render(fitLine(label, w))
}

func (m appModel) viewPanel(p render.Panel, w, h int, focused bool) string {
	b := m.panels[p.Path]
	innerW, innerH := max(w-2, 1), max(h-2, 1)

	title := p.Title()
	if b.modified() {
		title += " ●"
	}

	var body string
	switch {
	case b == nil || (!b.loaded && b.loadErr == ""):
		body = styleMuted().Render("loading…")
	case b.loadErr != "":
		body = lipgloss.NewStyle().Foreground(colorErrorFg).Render(b.loadErr)
	case b.isDir:
		body = strings.Join(entryLines(b.entries, -1, innerW), "\n")
		if len(b.entries) == 0 {
			body = styleMuted().Render("(empty)")
		}
	default:
		body = b.editor.View()
	}

	inner := styleTitle(focused).Render(title) + "\n" + body
	return styleBox(focused).Render(normalizePane(inner, innerW, innerH))
}

// entryLines renders a listing; sel < 0 means no selection.
func entryLines(entries []model.Entry, sel, width int) []string {
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		var ln string
		if e.Directory != nil {
			ln = fmt.Sprintf("▸ %s/ (%d)", e.Name(), e.Directory.ChildrenCount)
		} else {
			ln = "  " + e.Name()
		}
		ln = fitLine(ln, width)
		if i == sel {
			ln = styleSelectedRow().Render(ln)
		}
		lines = append(lines, ln)
	}
	return lines
}

func (m appModel) viewSidebar(w, h int) string {
	ft, _ := m.focused()
	focused := ft.kind == focusSidebar
	innerW, innerH := w-2, h-2

	root := m.sidebarRoot()
	var lines []string
	switch {
	case root == "":
		lines = []string{styleTitle(focused).Render("Files"), styleMuted().Render("No directory. ctrl+d opens one.")}
	default:
		lines = append(lines, styleTitle(focused).Render(filepath.Base(root)+"/"))
		if mode := m.state.ShowAddItem; mode != model.AddItemOff {
			lines = append(lines, styleMuted().Render("+ new "+string(mode)))
		}
		if m.sidebarErr != "" {
			lines = append(lines, lipgloss.NewStyle().Foreground(colorErrorFg).Render(m.sidebarErr))
		}
		sel := -1
		if focused {
			sel = m.sidebarSel
		}
		lines = append(lines, entryLines(m.sidebarEntries, sel, innerW)...)
	}
	return styleBox(focused).Render(normalizePane(strings.Join(lines, "\n"), innerW, innerH))
}

func (m appModel) viewInfo(w, h int) string {
	st := m.state
	rows := [][2]string{
		{"project", orDash(st.ProjectPath)},
		{"directory", orDash(st.DirectoryPath)},
		{"panels", fmt.Sprintf("%d", len(st.OpenPaths))},
		{"scroll", onOff(st.ScrollMode)},
		{"add-item", orDash(string(st.ShowAddItem))},
	}
	if b := m.focusedBuffer(); b != nil {
		rows = append(rows, [2]string{"focused", filepath.Base(b.path)})
		rows = append(rows, [2]string{"modified", onOff(b.modified())})
	}

	lines := []string{styleTitle(false).Render("Workspace")}
	for _, r := range rows {
		lines = append(lines, styleMuted().Render(r[0]+": ")+r[1])
	}
	return styleBox(false).Render(normalizePane(strings.Join(lines, "\n"), w-2, h-2))
}

func (m appModel) viewStatusLine() string {
	switch {
	case m.prompt != promptNone:
		return renderInputLine(m.width, m.prompt.label(m.state.ShowAddItem), m.input.View())
	case m.minibufferText != "":
		st := lipgloss.NewStyle()
		if m.minibufferErr {
			st = st.Foreground(colorErrorFg)
		}
		return st.Render(fitLine(m.minibufferText, m.width))
	case m.busy:
		return styleMuted().Render(fitLine("working…", m.width))
	default:
		return styleMuted().Render(fitLine(keyHints, m.width))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
