package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette. AdaptiveColor keeps the column readable on light and dark terminals; faint
// text is only used on dark backgrounds where it stays legible.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted     lipgloss.TerminalColor = ac("240", "243")
	colorChromeFg  lipgloss.TerminalColor = ac("240", "245")
	colorSelectBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectFg  lipgloss.TerminalColor = ac("235", "255")
	colorBorder    lipgloss.TerminalColor = ac("250", "243")
	colorFocusEdge lipgloss.TerminalColor = ac("232", "255")
	colorInputBg   lipgloss.TerminalColor = ac("254", "234")
	colorAccent    lipgloss.TerminalColor = ac("27", "62")
	colorErrorFg   lipgloss.TerminalColor = ac("160", "203")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle(focused bool) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true).Foreground(colorChromeFg)
	if focused {
		st = st.Foreground(colorAccent)
	}
	return st
}

func styleSeparator(focused bool) lipgloss.Style {
	if focused {
		return lipgloss.NewStyle().Foreground(colorSelectFg).Background(colorSelectBg).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(colorBorder)
}

func styleSelectedRow() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSelectFg).Background(colorSelectBg)
}

func styleBox(focused bool) lipgloss.Style {
	edge := colorBorder
	if focused {
		edge = colorFocusEdge
	}
	return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(edge)
}

// applyColorProfilePreference sets the Lip Gloss color profile for the TUI. Only NO_COLOR
// is honored from the CLICOLOR family; otherwise TERM/COLORTERM may upgrade termenv's guess.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor"), strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference decides light vs dark before the first frame:
// STACKNOTE_TUI_THEME=light|dark|auto, then the COLORFGBG "fg;bg" heuristic.
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("STACKNOTE_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}

	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
