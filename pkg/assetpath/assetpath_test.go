package assetpath

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

const root = "flags/provinces"

func TestProvinceFlag(t *testing.T) {
	r := Resolver{ProvincesRoot: root}
	tests := []struct {
		name string
		id   string
		flag string
		want string
	}{
		{"bare filename", "sf", "santafe.svg", "flags/provinces/sf/santafe.svg"},
		{"absent", "sf", "", "flags/provinces/sf/province.svg"},
		{"subpath", "sf", "shared/santafe.svg", "flags/provinces/shared/santafe.svg"},
		{"https", "sf", "https://cdn.example.org/sf.svg", "https://cdn.example.org/sf.svg"},
		{"http", "sf", "http://cdn.example.org/sf.svg", "http://cdn.example.org/sf.svg"},
		{"data uri", "sf", "data:image/svg+xml;base64,AAAA", "data:image/svg+xml;base64,AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ProvinceFlag(tt.id, tt.flag); got != tt.want {
				t.Errorf("ProvinceFlag(%q, %q) = %q; want %q", tt.id, tt.flag, got, tt.want)
			}
		})
	}
}

func TestDepartmentFlag(t *testing.T) {
	r := Resolver{ProvincesRoot: root}
	if got := r.DepartmentFlag("sf", "d1", ""); got != "flags/provinces/sf/departments/d1/department.svg" {
		t.Errorf("default department flag = %q", got)
	}
	if got := r.DepartmentFlag("sf", "d1", "escudo.png"); got != "flags/provinces/sf/departments/d1/escudo.png" {
		t.Errorf("bare department flag = %q", got)
	}
}

func TestCityFlag(t *testing.T) {
	r := Resolver{ProvincesRoot: root}
	if got := r.CityFlag("sf", "d1", "rosario", ""); got != "flags/provinces/sf/departments/d1/cities/rosario.svg" {
		t.Errorf("default city flag = %q", got)
	}
	if got := r.CityFlag("sf", "d1", "rosario", "ros.svg"); got != "flags/provinces/sf/departments/d1/cities/ros.svg" {
		t.Errorf("bare city flag = %q", got)
	}
}

func TestRootVariants(t *testing.T) {
	for _, rt := range []string{"flags/provinces", "flags/provinces/", "https://assets.example.org/flags/provinces/"} {
		r := Resolver{ProvincesRoot: rt}
		got := r.ProvinceFlag("sf", "")
		if strings.Contains(strings.TrimPrefix(got, "https://"), "//") {
			t.Errorf("root %q produced double slash: %q", rt, got)
		}
		if !strings.HasSuffix(got, "/sf/province.svg") {
			t.Errorf("root %q produced %q", rt, got)
		}
	}
}

func TestProvinceMap(t *testing.T) {
	r := Resolver{MapsRoot: "maps/provinces/"}
	if got := r.ProvinceMap(""); got != "" {
		t.Errorf("expected empty map path, got %q", got)
	}
	if got := r.ProvinceMap("santafe.svg"); got != "maps/provinces/santafe.svg" {
		t.Errorf("ProvinceMap = %q", got)
	}
	if got := r.ProvinceMap("https://x.org/m.svg"); got != "https://x.org/m.svg" {
		t.Errorf("ProvinceMap absolute = %q", got)
	}
}

func TestIsAbsolute(t *testing.T) {
	tests := map[string]bool{
		"https://a/b":  true,
		"data:foo":     true,
		"file:///x":    true,
		"flag.svg":     false,
		"dir/flag.svg": false,
		":nope":        false,
		"1abc:x":       false,
		"C:/flags/x":   true,
	}
	for ref, want := range tests {
		if got := IsAbsolute(ref); got != want {
			t.Errorf("IsAbsolute(%q) = %v; want %v", ref, got, want)
		}
	}
}

// Bare filenames always land inside the owning province directory.
func TestProvinceFlag_BareFilenameProperty(t *testing.T) {
	r := Resolver{ProvincesRoot: root}
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[a-z][a-z0-9_-]{0,11}`).Draw(t, "id")
		file := rapid.StringMatching(`[a-z][a-z0-9_-]{0,11}\.(svg|png)`).Draw(t, "file")
		got := r.ProvinceFlag(id, file)
		want := root + "/" + id + "/" + file
		if got != want {
			t.Fatalf("ProvinceFlag(%q, %q) = %q; want %q", id, file, got, want)
		}
	})
}
