// Package highlight reflects the current selection on a map surface.
package highlight

import (
	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/surface"
)

// Style is the visual vocabulary of a highlight.
type Style struct {
	Accent      string // stroke color of the selected region
	StrokeWidth string
	Shadow      string // CSS filter applied to the selected region
	DimOpacity  string // opacity of every other region at the same level
}

// DefaultStyle matches the accent used by the terminal theme.
var DefaultStyle = Style{
	Accent:      "#BD93F9",
	StrokeWidth: "2",
	Shadow:      "drop-shadow(0 0 4px rgba(0, 0, 0, 0.5))",
	DimOpacity:  "0.4",
}

// Engine applies highlight styles. The zero value uses DefaultStyle.
type Engine struct {
	Style Style
}

func (e Engine) style() Style {
	if e.Style == (Style{}) {
		return DefaultStyle
	}
	return e.Style
}

// Apply emphasizes exactly one region with the given marker and dims the
// rest, then restacks labels above all shapes. Regions nested inside the
// target are left undimmed. When targetID matches no region every region
// ends up dimmed. It reports whether the target was found. Repeated calls
// with the same arguments produce identical markup.
func (e Engine) Apply(s surface.Surface, marker, targetID string) bool {
	if s.Empty() {
		return false
	}
	st := e.style()
	regions := s.Query(marker)
	var target surface.Region
	for _, r := range regions {
		if targetID != "" && r.ID() == targetID {
			target = r
			break
		}
	}
	for _, r := range regions {
		if target != nil && r.ID() == targetID {
			r.AddClass(surface.ClassSelected)
			r.SetStyle("opacity", "1")
			r.SetStyle("stroke", st.Accent)
			r.SetStyle("stroke-width", st.StrokeWidth)
			r.SetStyle("filter", st.Shadow)
			continue
		}
		r.RemoveClass(surface.ClassSelected)
		if target != nil && r.Within(target) {
			for _, prop := range []string{"opacity", "stroke", "stroke-width", "filter"} {
				r.SetStyle(prop, "")
			}
			continue
		}
		r.SetStyle("opacity", st.DimOpacity)
		r.SetStyle("stroke", "")
		r.SetStyle("stroke-width", "")
		r.SetStyle("filter", "")
	}
	s.RaiseLabels()
	found := target != nil
	debug.LogIf(!found, "highlight: %s region %q not on surface, all dimmed", marker, targetID)
	return found
}

// Clear removes every highlight style from regions with the given marker.
func (e Engine) Clear(s surface.Surface, marker string) {
	for _, r := range s.Query(marker) {
		r.RemoveClass(surface.ClassSelected)
		for _, prop := range []string{"opacity", "stroke", "stroke-width", "filter"} {
			r.SetStyle(prop, "")
		}
	}
	s.RaiseLabels()
}

// Selected returns the id of the region with the marker that currently
// carries the selected class, or "".
func Selected(s surface.Surface, marker string) string {
	for _, r := range s.Query(marker) {
		if r.HasClass(surface.ClassSelected) {
			return r.ID()
		}
	}
	return ""
}
