// Package assetpath resolves flag and map references from hierarchy data into
// fetchable asset paths.
//
// The rules are purely string based. A reference with a URI scheme is used
// verbatim. A reference containing a '/' is taken as relative to the
// provinces root. A bare filename is placed inside the directory of the entity
// that owns it. An absent reference falls back to the naming convention:
//
//	<root>/<province>/province.svg
//	<root>/<province>/departments/<department>/department.svg
//	<root>/<province>/departments/<department>/cities/<city>.svg
//
// The presence of '/' is the only discriminator between a root-relative path
// and a bare filename, so "sf/flag.svg" declared on province "sf" resolves to
// <root>/sf/flag.svg while "flag.svg" resolves to the same place. A flag such
// as "other/flag.svg" on province "sf" escapes the province directory; that is
// kept as-is.
package assetpath

import (
	"path"
	"strings"
)

// DefaultExt is the extension used by convention-based flag names.
const DefaultExt = ".svg"

// Resolver holds the roots that relative references are joined onto.
type Resolver struct {
	// ProvincesRoot is the root for province, department and city flags.
	ProvincesRoot string
	// MapsRoot is the root for province detail maps.
	MapsRoot string
}

// IsAbsolute reports whether ref carries a URI scheme ("https:", "data:", ...).
func IsAbsolute(ref string) bool {
	i := strings.Index(ref, ":")
	if i <= 0 {
		return false
	}
	for j, r := range ref[:i] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// join concatenates segments with single slashes, preserving a scheme://
// prefix or leading slash on the root.
func join(root string, elems ...string) string {
	rel := path.Join(elems...)
	if root == "" {
		return rel
	}
	return strings.TrimRight(root, "/") + "/" + strings.TrimLeft(rel, "/")
}

// resolve applies the shared rules for a reference owned by dir.
func (r Resolver) resolve(ref string, dir []string, fallback string) string {
	switch {
	case ref == "":
		return join(r.ProvincesRoot, append(dir, fallback)...)
	case IsAbsolute(ref):
		return ref
	case strings.Contains(ref, "/"):
		return join(r.ProvincesRoot, ref)
	default:
		return join(r.ProvincesRoot, append(dir, ref)...)
	}
}

// ProvinceFlag resolves a province flag reference.
func (r Resolver) ProvinceFlag(provinceID, flag string) string {
	return r.resolve(flag, []string{provinceID}, "province"+DefaultExt)
}

// DepartmentFlag resolves a department flag reference.
func (r Resolver) DepartmentFlag(provinceID, departmentID, flag string) string {
	return r.resolve(flag, []string{provinceID, "departments", departmentID}, "department"+DefaultExt)
}

// CityFlag resolves a city flag reference.
func (r Resolver) CityFlag(provinceID, departmentID, cityID, flag string) string {
	return r.resolve(flag, []string{provinceID, "departments", departmentID, "cities"}, cityID+DefaultExt)
}

// ProvinceMap resolves a province detail map reference. It returns "" when
// the province declares no map.
func (r Resolver) ProvinceMap(ref string) string {
	switch {
	case ref == "":
		return ""
	case IsAbsolute(ref):
		return ref
	default:
		return join(r.MapsRoot, ref)
	}
}
