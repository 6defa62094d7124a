// Package render projects the open path list onto the stacked panel column.
// It holds no state: every call derives its result from the paths it is given.
package render

import "path/filepath"

// Panel is one editable view in the column.
type Panel struct {
	Index int
	Path  string
	// Separator is true when a collapse control sits immediately before this panel.
	// Every panel except the first has one.
	Separator bool
}

func (p Panel) Title() string {
	if base := filepath.Base(p.Path); base != "." && base != string(filepath.Separator) {
		return base
	}
	return p.Path
}

// Layout returns one panel per path, in order.
func Layout(openPaths []string) []Panel {
	panels := make([]Panel, 0, len(openPaths))
	for i, p := range openPaths {
		panels = append(panels, Panel{
			Index:     i,
			Path:      p,
			Separator: i > 0,
		})
	}
	return panels
}

// SeparatorTarget is the path that activating the separator before panel i collapses to.
func SeparatorTarget(panels []Panel, i int) (string, bool) {
	if i <= 0 || i >= len(panels) || !panels[i].Separator {
		return "", false
	}
	return panels[i].Path, true
}

// SeparatorCount is len(panels)-1 for a non-empty layout.
func SeparatorCount(panels []Panel) int {
	n := 0
	for _, p := range panels {
		if p.Separator {
			n++
		}
	}
	return n
}
