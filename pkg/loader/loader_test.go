package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const argentinaJSON = `{
  "country": {"name": "Argentina", "info": "República Argentina", "flag": "flags/argentina.svg"},
  "provinces": [
    {"id": "sf", "name": "Santa Fe", "info": "Provincia de Santa Fe", "flag": "santafe.svg", "map": "santafe.svg",
     "departments": [
       {"id": "d1", "name": "Rosario", "cities": [{"id": "rosario", "name": "Rosario", "info": "Cuna de la bandera"}]},
       {"id": " d2 ", "name": "La Capital"}
     ]},
    {"id": "cordoba", "name": "Córdoba"}
  ]
}`

func TestParseHierarchy(t *testing.T) {
	h, err := ParseHierarchy(strings.NewReader(argentinaJSON))
	if err != nil {
		t.Fatalf("ParseHierarchy: %v", err)
	}
	if h.Country.Name != "Argentina" {
		t.Errorf("country name = %q", h.Country.Name)
	}
	if len(h.Provinces) != 2 {
		t.Fatalf("expected 2 provinces, got %d", len(h.Provinces))
	}
	sf := h.Provinces[0]
	if sf.Map != "santafe.svg" || len(sf.Departments) != 2 {
		t.Errorf("unexpected santa fe: %+v", sf)
	}
	if sf.Departments[1].ID != "d2" {
		t.Errorf("expected trimmed department id, got %q", sf.Departments[1].ID)
	}
	if h.Provinces[1].Departments != nil {
		t.Errorf("expected cordoba without departments")
	}
}

func TestParseHierarchy_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, argentinaJSON...)
	if _, err := ParseHierarchyBytes(data, ParseOptions{}); err != nil {
		t.Fatalf("expected BOM to be stripped, got %v", err)
	}
}

func TestParseHierarchy_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "  ", "empty"},
		{"malformed", `{"country":`, "parsing hierarchy JSON"},
		{"no country", `{"provinces": []}`, "country name"},
		{"duplicate province", `{"country":{"name":"X"},"provinces":[{"id":"a"},{"id":"a"}]}`, "duplicate province"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHierarchyWithOptions(strings.NewReader(tt.input), ParseOptions{WarningHandler: func(string) {}})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseHierarchy_SizeLimit(t *testing.T) {
	_, err := ParseHierarchyWithOptions(strings.NewReader(argentinaJSON), ParseOptions{MaxSize: 16})
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestParseHierarchy_Warnings(t *testing.T) {
	doc := `{"country":{"name":"X"},"provinces":[
		{"id":"a","map":"a.svg"},
		{"id":"b","departments":[{"id":"b1"}]}
	]}`
	var warnings []string
	_, err := ParseHierarchyWithOptions(strings.NewReader(doc), ParseOptions{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], `"a"`) || !strings.Contains(warnings[1], `"b"`) {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestLoadHierarchyFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "argentina.json")
	if err := os.WriteFile(path, []byte(argentinaJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := LoadHierarchyFromFile(path)
	if err != nil {
		t.Fatalf("LoadHierarchyFromFile: %v", err)
	}
	if len(h.Provinces) != 2 {
		t.Errorf("expected 2 provinces, got %d", len(h.Provinces))
	}

	if _, err := LoadHierarchyFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
