package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// PanelRenderer renders panel markdown for the terminal, rebuilding the
// glamour renderer when the pane width changes.
type PanelRenderer struct {
	tr    *glamour.TermRenderer
	width int
	style string
}

// NewPanelRenderer creates a renderer wrapping at width. An empty style
// uses glamour's auto-detected style.
func NewPanelRenderer(width int, style string) *PanelRenderer {
	r := &PanelRenderer{style: style}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the renderer for a new wrap width.
func (r *PanelRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if r.tr != nil && width == r.width {
		return
	}
	opt := glamour.WithAutoStyle()
	if r.style != "" {
		opt = glamour.WithStandardStyle(r.style)
	}
	tr, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		tr = nil
	}
	r.tr = tr
	r.width = width
}

// Width returns the current wrap width.
func (r *PanelRenderer) Width() int { return r.width }

// Render returns the styled markdown, or the raw text if rendering fails.
func (r *PanelRenderer) Render(md string) string {
	if r.tr == nil {
		return md
	}
	out, err := r.tr.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
