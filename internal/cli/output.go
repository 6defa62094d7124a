package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"stacknote/internal/format"
	"stacknote/internal/model"
	"stacknote/internal/render"
)

// envelope is the JSON contract every command prints: {"data": ..., "meta": {...}}.
type envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

func (e envelope) Text() string {
	if t, ok := e.Data.(format.Texter); ok {
		return t.Text()
	}
	b, err := json.MarshalIndent(e.Data, "", "  ")
	if err != nil {
		return fmt.Sprint(e.Data)
	}
	return string(b)
}

type panelView struct {
	Index     int    `json:"index"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	Separator bool   `json:"separator"`
	// CollapseTarget is what the separator before this panel collapses to.
	CollapseTarget string `json:"collapseTarget,omitempty"`
}

type statePayload struct {
	State  model.WorkspaceState `json:"state"`
	Panels []panelView          `json:"panels"`
}

func newStatePayload(st model.WorkspaceState) statePayload {
	panels := render.Layout(st.OpenPaths)
	views := make([]panelView, 0, len(panels))
	for i, p := range panels {
		v := panelView{Index: p.Index, Path: p.Path, Title: p.Title(), Separator: p.Separator}
		if target, ok := render.SeparatorTarget(panels, i); ok {
			v.CollapseTarget = target
		}
		views = append(views, v)
	}
	if st.OpenPaths == nil {
		st.OpenPaths = []string{}
	}
	return statePayload{State: st, Panels: views}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (p statePayload) Text() string {
	var b strings.Builder
	st := p.State
	fmt.Fprintf(&b, "project:   %s\n", orDash(st.ProjectPath))
	fmt.Fprintf(&b, "directory: %s\n", orDash(st.DirectoryPath))
	fmt.Fprintf(&b, "sidebar:   %s\n", onOff(st.SidebarVisible))
	fmt.Fprintf(&b, "info:      %s\n", onOff(st.InfoPanelVisible))
	fmt.Fprintf(&b, "scroll:    %s\n", onOff(st.ScrollMode))
	addItem := string(st.ShowAddItem)
	if addItem == "" {
		addItem = "off"
	}
	fmt.Fprintf(&b, "add-item:  %s\n", addItem)
	if len(p.Panels) == 0 {
		b.WriteString("panels:    (none)")
		return b.String()
	}
	b.WriteString("panels:")
	for _, v := range p.Panels {
		b.WriteString("\n")
		if v.Separator {
			fmt.Fprintf(&b, "  ── collapse to %s\n", v.CollapseTarget)
		}
		fmt.Fprintf(&b, "  [%d] %s  (%s)", v.Index, v.Title, v.Path)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type entriesPayload struct {
	Dir     string        `json:"dir"`
	Entries []model.Entry `json:"entries"`
}

func (p entriesPayload) Text() string {
	lines := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		switch {
		case e.Directory != nil:
			lines = append(lines, fmt.Sprintf("%s/\t(%d)", e.Name(), e.Directory.ChildrenCount))
		case e.File != nil:
			lines = append(lines, fmt.Sprintf("%s\t%s", e.Name(), e.File.Preview))
		}
	}
	return strings.Join(lines, "\n")
}

type pathsPayload struct {
	Dir   string   `json:"dir"`
	Paths []string `json:"paths"`
}

func (p pathsPayload) Text() string { return strings.Join(p.Paths, "\n") }
