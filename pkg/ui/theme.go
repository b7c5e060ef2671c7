package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Region states on the map pane
	RegionSelected lipgloss.AdaptiveColor
	RegionNormal   lipgloss.AdaptiveColor
	RegionDimmed   lipgloss.AdaptiveColor
	RegionInert    lipgloss.AdaptiveColor
	RegionHover    lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, created once instead of per frame
	MutedText    lipgloss.Style
	PrimaryBold  lipgloss.Style
	SelectedRow  lipgloss.Style
	DimmedRow    lipgloss.Style
	InertRow     lipgloss.Style
	HoverRow     lipgloss.Style
	CursorMarker lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		RegionSelected: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Same accent as the map stroke
		RegionNormal:   lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"},
		RegionDimmed:   lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		RegionInert:    lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange - no data
		RegionHover:    lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.SelectedRow = r.NewStyle().Foreground(t.RegionSelected).Bold(true)
	t.DimmedRow = r.NewStyle().Foreground(t.RegionDimmed)
	t.InertRow = r.NewStyle().Foreground(t.RegionInert).Italic(true)
	t.HoverRow = r.NewStyle().Foreground(t.RegionHover).Underline(true)
	t.CursorMarker = r.NewStyle().Foreground(ThemeFg("#FFD700")).Bold(true)

	return t
}

// RegionStyle returns the row style for a region on the map pane. Hover
// wins over dimming so the focused region stays readable.
func (t Theme) RegionStyle(r RegionRow) lipgloss.Style {
	switch {
	case r.Selected:
		return t.SelectedRow
	case r.Inert:
		return t.InertRow
	case r.Hovered:
		return t.HoverRow
	case r.Dimmed:
		return t.DimmedRow
	default:
		return t.Base
	}
}
