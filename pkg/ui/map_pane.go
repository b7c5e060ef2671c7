package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/drillmap/pkg/export"
	"github.com/vanderheijden86/drillmap/pkg/model"
	"github.com/vanderheijden86/drillmap/pkg/navigator"
	"github.com/vanderheijden86/drillmap/pkg/surface"
)

// RegionRow is one interactive region of the displayed map as listed in the
// map pane.
type RegionRow struct {
	ID       string
	Name     string
	Selected bool
	Dimmed   bool
	Inert    bool
	Hovered  bool
}

// regionRows lists the armed regions of the displayed map in document order.
// Nothing is listed until a map is displayed and armed.
func regionRows(nav *navigator.Navigator) []RegionRow {
	marker, ok := nav.ArmedMarker()
	if !ok {
		return nil
	}

	inert := make(map[string]bool)
	for _, id := range nav.Inert() {
		inert[id] = true
	}

	var prov *model.Province
	if marker == surface.MarkerDepartment {
		prov, _ = nav.Hierarchy().Province(nav.Displayed().ProvinceID)
	}

	seen := make(map[string]bool)
	var rows []RegionRow
	for _, reg := range nav.Surface().Query(marker) {
		id := reg.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		row := RegionRow{
			ID:       id,
			Name:     regionName(nav.Hierarchy(), prov, marker, id),
			Selected: reg.HasClass(surface.ClassSelected),
			Hovered:  reg.HasClass(surface.ClassHover),
			Inert:    inert[id],
		}
		if op := reg.Style("opacity"); op != "" && op != "1" {
			row.Dimmed = true
		}
		rows = append(rows, row)
	}
	return rows
}

func regionName(h *model.Hierarchy, prov *model.Province, marker, id string) string {
	switch marker {
	case surface.MarkerProvince:
		if p, err := h.Province(id); err == nil {
			return p.Name
		}
	case surface.MarkerDepartment:
		if prov != nil {
			if d, err := prov.Department(id); err == nil {
				return d.Name
			}
		}
	}
	return id
}

// snapshotRegions converts pane rows for the snapshot legend.
func snapshotRegions(rows []RegionRow) []export.RegionState {
	out := make([]export.RegionState, 0, len(rows))
	for _, r := range rows {
		out = append(out, export.RegionState{
			ID:       r.ID,
			Name:     r.Name,
			Selected: r.Selected,
			Dimmed:   r.Dimmed,
			Inert:    r.Inert,
		})
	}
	return out
}

// SnapshotOptions describes the navigator's current view for export to path.
func SnapshotOptions(nav *navigator.Navigator, path string) export.SnapshotOptions {
	return export.SnapshotOptions{
		Path:    path,
		Title:   breadcrumb(nav.Hierarchy().Country.Name, nav.State()),
		Panel:   nav.Panel(),
		Regions: snapshotRegions(regionRows(nav)),
		MapSVG:  nav.Surface().Markup(),
	}
}

// SnapshotName is the default snapshot file name for the current view.
func SnapshotName(nav *navigator.Navigator, ext string) string {
	name := slug(nav.Panel().Title())
	if name == "" {
		name = "map"
	}
	return fmt.Sprintf("drillmap-%s.%s", name, strings.TrimPrefix(ext, "."))
}

// renderMapPane draws the region list with the cursor kept in view.
func renderMapPane(t Theme, nav *navigator.Navigator, rows []RegionRow, cursor, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	var b strings.Builder
	disp := nav.Displayed()
	title := "Mapa"
	switch disp.Kind {
	case navigator.MapCountry:
		title = "Mapa · " + nav.Hierarchy().Country.Name
	case navigator.MapProvince:
		if p, err := nav.Hierarchy().Province(disp.ProvinceID); err == nil {
			title = "Mapa · " + p.Name
		}
	}
	b.WriteString(t.PrimaryBold.Render(truncate(title, width)))
	b.WriteString("\n")
	b.WriteString(RenderDivider(width))

	listHeight := height - 2
	if listHeight <= 0 {
		return b.String()
	}

	if len(rows) == 0 {
		msg := "Sin regiones."
		switch {
		case nav.Pending():
			msg = "Cargando mapa…"
		case disp.Kind == navigator.MapNone:
			msg = "No hay mapa disponible."
		}
		b.WriteString("\n")
		b.WriteString(t.MutedText.Render(truncate(msg, width)))
		return b.String()
	}

	start := 0
	if cursor >= listHeight {
		start = cursor - listHeight + 1
	}
	end := start + listHeight
	if end > len(rows) {
		end = len(rows)
	}

	for i := start; i < end; i++ {
		r := rows[i]
		marker := "  "
		if i == cursor {
			marker = t.CursorMarker.Render("▸ ")
		}
		label := r.Name
		if r.Inert {
			label += " (sin datos)"
		}
		line := t.RegionStyle(r).Render(truncate(label, width-2))
		b.WriteString("\n")
		b.WriteString(marker + line)
	}
	return b.String()
}

// RenderPlain renders the panel and the region list of the current state as
// plain text, for non-interactive output.
func RenderPlain(nav *navigator.Navigator) string {
	var b strings.Builder
	b.WriteString(nav.Panel().Markdown())
	rows := regionRows(nav)
	if len(rows) == 0 {
		return b.String()
	}
	b.WriteString("\n## Regiones\n\n")
	for _, r := range rows {
		flags := ""
		switch {
		case r.Selected:
			flags = " [seleccionada]"
		case r.Inert:
			flags = " [sin datos]"
		}
		fmt.Fprintf(&b, "- %s (%s)%s\n", r.Name, r.ID, flags)
	}
	return strings.TrimRight(b.String(), "\n")
}

// paneWidths splits the usable width between the map and panel panes.
func paneWidths(total int, ratio float64) (mapW, panelW int) {
	// two bordered panes, 2 border cells each
	avail := total - 4
	if avail < 2 {
		return 1, 1
	}
	mapW = int(float64(avail) * ratio)
	if mapW < 1 {
		mapW = 1
	}
	panelW = avail - mapW
	if panelW < 1 {
		panelW = 1
	}
	return mapW, panelW
}

func joinPanes(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
