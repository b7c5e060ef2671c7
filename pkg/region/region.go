// Package region associates interactive regions on a map surface with
// hierarchy identifiers and wires their input handlers.
package region

import (
	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/model"
	"github.com/vanderheijden86/drillmap/pkg/surface"
)

// Kind is the outcome of classifying a shape on a province detail map.
type Kind int

const (
	// KindDepartment means the shape id names a department of the province.
	KindDepartment Kind = iota + 1
	// KindUnclassified means the shape has an id that matches no department.
	// It is still tagged so maps that were never hand-annotated stay usable.
	KindUnclassified
)

// String returns a human-readable label for the kind.
func (k Kind) String() string {
	switch k {
	case KindDepartment:
		return "department"
	case KindUnclassified:
		return "unclassified"
	default:
		return "none"
	}
}

// Outcome is a tagged classification result.
type Outcome struct {
	Kind Kind
	ID   string
}

// Classify decides how a shape with the given id is tagged on a province
// detail map. ok is false for shapes without an id, which are never tagged.
func Classify(id string, departments map[string]bool) (Outcome, bool) {
	if id == "" {
		return Outcome{}, false
	}
	if departments[id] {
		return Outcome{Kind: KindDepartment, ID: id}, true
	}
	return Outcome{Kind: KindUnclassified, ID: id}, true
}

// Result summarizes one arming pass.
type Result struct {
	Marker string
	// Armed lists region ids that resolve to a hierarchy entity.
	Armed []string
	// Inert lists region ids that are clickable but match nothing.
	Inert []string
}

// Registry arms the regions of whatever map a surface currently shows.
type Registry struct {
	// OnHover is called on hover enter/leave of any armed region. Optional.
	OnHover func(id string, entered bool)

	armedGen    uint64
	armedMarker string
	last        Result
}

// Armed reports the marker armed on the surface's current generation, if any.
func (r *Registry) Armed(s surface.Surface) (string, bool) {
	if r.armedMarker == "" || r.armedGen != s.Generation() || s.Empty() {
		return "", false
	}
	return r.armedMarker, true
}

// Last returns the result of the most recent arming pass.
func (r *Registry) Last() Result {
	return r.last
}

// ArmProvinces attaches handlers to every province region of a country map.
// Regions whose id is not a province in h are attached too but logged as
// inert; activation of those ends in a lookup miss upstream.
func (r *Registry) ArmProvinces(s surface.Surface, h *model.Hierarchy, activate func(id string)) Result {
	if s.Empty() {
		debug.Log("region: no map on surface, skipping province arming")
		return Result{Marker: surface.MarkerProvince}
	}
	if marker, ok := r.Armed(s); ok && marker == surface.MarkerProvince {
		return r.last
	}

	res := Result{Marker: surface.MarkerProvince}
	for _, reg := range s.Query(surface.MarkerProvince) {
		id := reg.ID()
		if id == "" {
			continue
		}
		r.attach(s, reg, activate)
		if _, err := h.Province(id); err != nil {
			debug.Warn("map region %q has no matching province in data", id)
			res.Inert = append(res.Inert, id)
			continue
		}
		res.Armed = append(res.Armed, id)
	}
	return r.commit(s, res)
}

// ArmDepartments tags and arms department regions of a province detail map.
// Every identified non-group shape is tagged with the department marker;
// groups are tagged only on an exact department match. Shapes nested inside
// a matched department are left untagged so they follow their department.
func (r *Registry) ArmDepartments(s surface.Surface, p *model.Province, activate func(id string)) Result {
	if s.Empty() || p == nil {
		debug.Log("region: nothing to arm for departments")
		return Result{Marker: surface.MarkerDepartment}
	}
	if marker, ok := r.Armed(s); ok && marker == surface.MarkerDepartment {
		return r.last
	}

	known := make(map[string]bool, len(p.Departments))
	for _, id := range p.DepartmentIDs() {
		known[id] = true
	}

	res := Result{Marker: surface.MarkerDepartment}
	var matched []surface.Region
	for _, reg := range s.Shapes() {
		out, ok := Classify(reg.ID(), known)
		if !ok {
			continue
		}
		if out.Kind == KindUnclassified {
			if reg.Tag() == "g" && !reg.HasClass(surface.MarkerDepartment) {
				continue
			}
			if withinAny(reg, matched) {
				continue
			}
		} else {
			matched = append(matched, reg)
		}
		reg.AddClass(surface.MarkerDepartment)
		r.attach(s, reg, activate)
		switch out.Kind {
		case KindDepartment:
			res.Armed = append(res.Armed, out.ID)
		case KindUnclassified:
			debug.Warn("map region %q in province %q has no matching department", out.ID, p.ID)
			res.Inert = append(res.Inert, out.ID)
		}
	}
	return r.commit(s, res)
}

func withinAny(reg surface.Region, groups []surface.Region) bool {
	for _, g := range groups {
		if reg.Within(g) {
			return true
		}
	}
	return false
}

func (r *Registry) attach(s surface.Surface, reg surface.Region, activate func(id string)) {
	reg.SetAttr("tabindex", "0")
	s.Attach(reg, surface.Handlers{
		OnActivate: activate,
		OnHover:    r.OnHover,
	})
}

func (r *Registry) commit(s surface.Surface, res Result) Result {
	r.armedGen = s.Generation()
	r.armedMarker = res.Marker
	r.last = res
	debug.Log("region: armed %d %s regions (%d inert) on generation %d", len(res.Armed), res.Marker, len(res.Inert), r.armedGen)
	return res
}
