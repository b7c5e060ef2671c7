// Package testutil provides deterministic fixtures for drillmap tests:
// synthetic hierarchies, the SVG maps that go with them and on-disk asset
// trees laid out the way the default configuration expects.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/vanderheijden86/drillmap/pkg/model"
)

// GeneratorConfig controls hierarchy generation.
type GeneratorConfig struct {
	Seed        int64   // Random seed for determinism (0 = 42)
	CountryName string  // Default: "Testland"
	Provinces   int     // Number of provinces (default 4)
	Departments int     // Departments per mapped province (default 3)
	Cities      int     // Cities per department (default 2)
	MapRatio    float64 // Share of provinces with a detail map (default 0.5)
	InfoRatio   float64 // Share of entities with info text (default 0.75)
	FlagRatio   float64 // Share of entities with an explicit flag (default 0.25)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42,
		CountryName: "Testland",
		Provinces:   4,
		Departments: 3,
		Cities:      2,
		MapRatio:    0.5,
		InfoRatio:   0.75,
		FlagRatio:   0.25,
	}
}

// Generator creates hierarchy fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config. Zero fields take the
// DefaultConfig values.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.CountryName == "" {
		cfg.CountryName = def.CountryName
	}
	if cfg.Provinces <= 0 {
		cfg.Provinces = def.Provinces
	}
	if cfg.Departments <= 0 {
		cfg.Departments = def.Departments
	}
	if cfg.Cities < 0 {
		cfg.Cities = 0
	} else if cfg.Cities == 0 {
		cfg.Cities = def.Cities
	}
	if cfg.MapRatio == 0 {
		cfg.MapRatio = def.MapRatio
	}
	if cfg.InfoRatio == 0 {
		cfg.InfoRatio = def.InfoRatio
	}
	if cfg.FlagRatio == 0 {
		cfg.FlagRatio = def.FlagRatio
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Hierarchy builds a country with cfg.Provinces provinces. The first
// province always has a detail map so every fixture can be drilled into;
// the rest get one with probability MapRatio. Provinces without a map get
// no departments.
func (g *Generator) Hierarchy() *model.Hierarchy {
	h := &model.Hierarchy{
		Country: model.Country{
			Name: g.cfg.CountryName,
			Info: "Datos generados de " + g.cfg.CountryName,
			Flag: "flags/" + slugID(g.cfg.CountryName) + ".svg",
		},
	}

	for i := 0; i < g.cfg.Provinces; i++ {
		p := model.Province{
			ID:   ProvinceID(i),
			Name: fmt.Sprintf("Provincia %d", i+1),
			Info: g.maybeInfo("Provincia", i),
			Flag: g.maybeFlag(),
		}
		if i == 0 || g.rng.Float64() < g.cfg.MapRatio {
			p.Map = p.ID + ".svg"
			for j := 0; j < g.cfg.Departments; j++ {
				d := model.Department{
					ID:   DepartmentID(j),
					Name: fmt.Sprintf("Departamento %d.%d", i+1, j+1),
					Info: g.maybeInfo("Departamento", j),
					Flag: g.maybeFlag(),
				}
				for k := 0; k < g.cfg.Cities; k++ {
					d.Cities = append(d.Cities, model.City{
						ID:   CityID(k),
						Name: fmt.Sprintf("Ciudad %d.%d.%d", i+1, j+1, k+1),
						Info: g.maybeInfo("Ciudad", k),
						Flag: g.maybeFlag(),
					})
				}
				p.Departments = append(p.Departments, d)
			}
		}
		h.Provinces = append(h.Provinces, p)
	}
	return h
}

func (g *Generator) maybeInfo(kind string, i int) string {
	if g.rng.Float64() >= g.cfg.InfoRatio {
		return ""
	}
	return fmt.Sprintf("%s número %d", kind, i+1)
}

// maybeFlag returns an inline flag for a share of entities so that both
// the convention path and explicit data: references are exercised.
func (g *Generator) maybeFlag() string {
	if g.rng.Float64() >= g.cfg.FlagRatio {
		return ""
	}
	return "data:image/svg+xml;base64,PHN2Zy8+"
}

// ProvinceID returns the generated id of the i-th province.
func ProvinceID(i int) string { return fmt.Sprintf("p%02d", i+1) }

// DepartmentID returns the generated id of the j-th department.
func DepartmentID(j int) string { return fmt.Sprintf("d%02d", j+1) }

// CityID returns the generated id of the k-th city.
func CityID(k int) string { return fmt.Sprintf("c%02d", k+1) }

// CountrySVG draws one province region per province, plus extra regions
// that match no entity.
func CountrySVG(h *model.Hierarchy, extra ...string) string {
	ids := make([]string, 0, len(h.Provinces)+len(extra))
	for _, p := range h.Provinces {
		ids = append(ids, p.ID)
	}
	return regionsSVG("province", append(ids, extra...))
}

// ProvinceSVG draws one department region per department of p.
func ProvinceSVG(p model.Province, extra ...string) string {
	ids := make([]string, 0, len(p.Departments)+len(extra))
	for _, d := range p.Departments {
		ids = append(ids, d.ID)
	}
	return regionsSVG("department", append(ids, extra...))
}

func regionsSVG(class string, ids []string) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">` + "\n")
	for i, id := range ids {
		fmt.Fprintf(&b, `  <path id="%s" class="%s" d="M%d 0 h10 v10 h-10 Z"/>`+"\n", id, class, i*10)
	}
	b.WriteString("</svg>\n")
	return b.String()
}

func slugID(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
}
