package tui

import (
	"strings"

	"stacknote/internal/render"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height lines, so
// lipgloss.JoinHorizontal lines the sidebar, column and info panel up. A height of 0
// keeps the line count.
func normalizePane(s string, width, height int) string {
	width = max(width, 0)
	height = max(height, 0)

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i, ln := range lines {
		// Bound the width computation on pathological lines.
		if width > 0 && len(ln) > 8192 {
			ln = xansi.Cut(ln, 0, width)
		}
		lines[i] = fitLine(ln, width)
	}
	return strings.Join(lines, "\n")
}

// fitLine truncates with an ellipsis or pads with spaces to width cells.
func fitLine(ln string, width int) string {
	w := xansi.StringWidth(ln)
	if w > width {
		switch {
		case width <= 0:
			return ""
		case width == 1:
			ln = xansi.Cut(ln, 0, 1)
		default:
			ln = xansi.Cut(ln, 0, width-1) + "…"
		}
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

// renderInputLine draws a single-line prompt across width cells on the input background.
func renderInputLine(width int, label, inputView string) string {
	width = max(width, 10)
	inputView = strings.NewReplacer("\n", " ", "\r", " ").Replace(inputView)

	line := lipgloss.PlaceHorizontal(
		width,
		lipgloss.Left,
		" "+label+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > width {
		// Reset styling after the cut so the background does not bleed.
		line = xansi.Cut(line, 0, width) + "\x1b[0m"
	}
	return line
}

// columnHeights splits avail rows between the stacked panels. Each panel needs chrome
// rows (title and border) on top of its body; separators take one row each.
func columnHeights(avail int, panels []render.Panel) []int {
	n := len(panels)
	if n == 0 {
		return nil
	}
	avail -= render.SeparatorCount(panels)
	base := avail / n
	extra := avail % n
	out := make([]int, n)
	for i := range out {
		h := base
		if i < extra {
			h++
		}
		out[i] = max(h, minPanelHeight)
	}
	return out
}
