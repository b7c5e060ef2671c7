// Package panel computes the information panel shown next to the map.
package panel

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/model"
)

// Placeholder texts for missing optional data.
const (
	NoInfo   = "Sin información disponible."
	NoCities = "No hay ciudades registradas."
)

// Section is one entity block of the panel.
type Section struct {
	ID   string
	Name string
	Info string
	Flag string
}

// CityEntry is one row of the department city list.
type CityEntry struct {
	ID   string
	Name string
	Info string
	Flag string
}

// Panel is the full panel content for one navigation state.
type Panel struct {
	Level model.Level

	// Country is set only at the country level.
	Country *Section
	// Province is set from the province level on.
	Province *Section
	// Department is set only at the department level.
	Department *Section

	Cities []CityEntry
	// CitiesNote replaces the city list when the department has none.
	CitiesNote string

	ShowBack bool
}

// Render is a pure function of the hierarchy and selection. Flag references
// are resolved through r; the country flag is used as given.
func Render(h *model.Hierarchy, sel model.Selection, r assetpath.Resolver) Panel {
	p := Panel{Level: sel.Level, ShowBack: sel.Level != model.LevelCountry}

	if sel.Level == model.LevelCountry || sel.Province == nil {
		p.Level = model.LevelCountry
		p.ShowBack = false
		p.Country = &Section{
			Name: h.Country.Name,
			Info: orNoInfo(h.Country.Info),
			Flag: h.Country.Flag,
		}
		return p
	}

	prov := sel.Province
	p.Province = &Section{
		ID:   prov.ID,
		Name: prov.Name,
		Info: orNoInfo(prov.Info),
		Flag: r.ProvinceFlag(prov.ID, prov.Flag),
	}

	if sel.Level != model.LevelDepartment || sel.Department == nil {
		p.Level = model.LevelProvince
		return p
	}

	dept := sel.Department
	p.Department = &Section{
		ID:   dept.ID,
		Name: dept.Name,
		Info: orNoInfo(dept.Info),
		Flag: r.DepartmentFlag(prov.ID, dept.ID, dept.Flag),
	}
	if len(dept.Cities) == 0 {
		p.CitiesNote = NoCities
		return p
	}
	p.Cities = make([]CityEntry, len(dept.Cities))
	for i, c := range dept.Cities {
		p.Cities[i] = CityEntry{
			ID:   c.ID,
			Name: c.Name,
			Info: orNoInfo(c.Info),
			Flag: r.CityFlag(prov.ID, dept.ID, c.ID, c.Flag),
		}
	}
	return p
}

func orNoInfo(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoInfo
	}
	return s
}

// Title returns the name of the deepest section.
func (p Panel) Title() string {
	switch {
	case p.Department != nil:
		return p.Department.Name
	case p.Province != nil:
		return p.Province.Name
	case p.Country != nil:
		return p.Country.Name
	}
	return ""
}

// Flag returns the flag reference of the deepest section.
func (p Panel) Flag() string {
	switch {
	case p.Department != nil:
		return p.Department.Flag
	case p.Province != nil:
		return p.Province.Flag
	case p.Country != nil:
		return p.Country.Flag
	}
	return ""
}

// Markdown renders the panel for a markdown terminal renderer.
func (p Panel) Markdown() string {
	var b strings.Builder
	section := func(heading string, s *Section) {
		fmt.Fprintf(&b, "%s %s\n\n", heading, s.Name)
		if s.Flag != "" {
			fmt.Fprintf(&b, "*Bandera:* `%s`\n\n", s.Flag)
		}
		fmt.Fprintf(&b, "%s\n\n", s.Info)
	}

	if p.Country != nil {
		section("#", p.Country)
	}
	if p.Province != nil {
		section("#", p.Province)
	}
	if p.Department != nil {
		section("##", p.Department)
		b.WriteString("### Ciudades\n\n")
		if len(p.Cities) == 0 {
			fmt.Fprintf(&b, "_%s_\n\n", p.CitiesNote)
		}
		for _, c := range p.Cities {
			fmt.Fprintf(&b, "- **%s**: %s (`%s`)\n", c.Name, c.Info, c.Flag)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
