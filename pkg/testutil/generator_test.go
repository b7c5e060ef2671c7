package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/drillmap/pkg/loader"
)

func TestHierarchy_Deterministic(t *testing.T) {
	a := NewDefault().Hierarchy()
	b := NewDefault().Hierarchy()
	AssertJSONEqual(t, a, b)

	c := New(GeneratorConfig{Seed: 7}).Hierarchy()
	if len(c.Provinces) != len(a.Provinces) {
		t.Fatalf("province count differs with seed: %d vs %d", len(c.Provinces), len(a.Provinces))
	}
}

func TestHierarchy_Shape(t *testing.T) {
	h := New(GeneratorConfig{Provinces: 6, Departments: 2, Cities: 3, MapRatio: 1}).Hierarchy()
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(h.Provinces) != 6 {
		t.Fatalf("provinces = %d", len(h.Provinces))
	}
	for _, p := range h.Provinces {
		if !p.HasMap() || len(p.Departments) != 2 {
			t.Errorf("province %s: map=%q departments=%d", p.ID, p.Map, len(p.Departments))
		}
		for _, d := range p.Departments {
			if len(d.Cities) != 3 {
				t.Errorf("department %s/%s cities = %d", p.ID, d.ID, len(d.Cities))
			}
		}
	}
}

func TestHierarchy_FirstProvinceAlwaysMapped(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		h := New(GeneratorConfig{Seed: seed, MapRatio: 0.01}).Hierarchy()
		if !h.Provinces[0].HasMap() || len(h.Provinces[0].Departments) == 0 {
			t.Fatalf("seed %d: first province not drillable", seed)
		}
		for _, p := range h.Provinces[1:] {
			if !p.HasMap() && len(p.Departments) != 0 {
				t.Errorf("seed %d: unmapped province %s has departments", seed, p.ID)
			}
		}
	}
}

func TestSVGFixtures(t *testing.T) {
	h := NewDefault().Hierarchy()
	svg := CountrySVG(h, "extra")
	for _, p := range h.Provinces {
		if !strings.Contains(svg, `id="`+p.ID+`" class="province"`) {
			t.Errorf("country map missing %s", p.ID)
		}
	}
	if !strings.Contains(svg, `id="extra"`) {
		t.Error("extra region missing")
	}

	prov := ProvinceSVG(h.Provinces[0])
	if strings.Count(prov, `class="department"`) != len(h.Provinces[0].Departments) {
		t.Errorf("province map:\n%s", prov)
	}
}

func TestWriteAssetTree(t *testing.T) {
	root := t.TempDir()
	h := New(GeneratorConfig{FlagRatio: 0.0001}).Hierarchy()
	tree := WriteAssetTree(t, root, "testland", h, true)

	got, err := loader.LoadHierarchyFromFile(filepath.Join(root, tree.DataPath))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	AssertJSONEqual(t, h, got)

	p := h.Provinces[0]
	d := p.Departments[0]
	for _, rel := range []string{
		tree.CountryMap,
		tree.ProvinceMaps + p.Map,
		"flags/provinces/" + p.ID + "/province.svg",
		"flags/provinces/" + p.ID + "/departments/" + d.ID + "/department.svg",
		"flags/provinces/" + p.ID + "/departments/" + d.ID + "/cities/" + d.Cities[0].ID + ".svg",
	} {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
}

func TestGoldenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "out.golden"), []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GENERATE_GOLDEN", "")
	g := NewGoldenFile(t, dir, "out.golden")
	if g.Path() != filepath.Join(dir, "out.golden") {
		t.Errorf("Path = %s", g.Path())
	}
	g.Assert("a\nb\n")
}
