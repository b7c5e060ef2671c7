package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/drillmap/pkg/model"
)

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// Asset tree helpers

// AssetTree is the layout of an on-disk asset base, relative to Root.
type AssetTree struct {
	Root         string
	DataPath     string // hierarchy JSON
	CountryMap   string // country SVG
	ProvinceMaps string // directory of province detail maps
	Flags        string // root of the per-province flag tree
}

// DefaultLayout mirrors the default country configuration for key.
func DefaultLayout(root, key string) AssetTree {
	return AssetTree{
		Root:         root,
		DataPath:     "data/" + key + ".json",
		CountryMap:   "maps/" + key + ".svg",
		ProvinceMaps: "maps/provinces/",
		Flags:        "flags/provinces/",
	}
}

// WriteAssetTree writes h, its country map, one detail map per mapped
// province and, when withFlags is set, a flag for every entity without an
// inline one. It returns the layout used.
func WriteAssetTree(t *testing.T, root, key string, h *model.Hierarchy, withFlags bool) AssetTree {
	t.Helper()

	tree := DefaultLayout(root, key)
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal hierarchy: %v", err)
	}
	WriteFile(t, root, tree.DataPath, string(data))
	WriteFile(t, root, tree.CountryMap, CountrySVG(h))

	for _, p := range h.Provinces {
		if p.Map != "" {
			WriteFile(t, root, tree.ProvinceMaps+p.Map, ProvinceSVG(p))
		}
		if !withFlags {
			continue
		}
		if p.Flag == "" {
			WriteFile(t, root, fmt.Sprintf("%s%s/province.svg", tree.Flags, p.ID), "<svg/>")
		}
		for _, d := range p.Departments {
			if d.Flag == "" {
				WriteFile(t, root, fmt.Sprintf("%s%s/departments/%s/department.svg", tree.Flags, p.ID, d.ID), "<svg/>")
			}
			for _, c := range d.Cities {
				if c.Flag == "" {
					WriteFile(t, root, fmt.Sprintf("%s%s/departments/%s/cities/%s.svg", tree.Flags, p.ID, d.ID, c.ID), "<svg/>")
				}
			}
		}
	}
	if withFlags && h.Country.Flag != "" && !strings.HasPrefix(h.Country.Flag, "data:") {
		WriteFile(t, root, h.Country.Flag, "<svg/>")
	}
	return tree
}

// WriteFile writes body to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}
