// Package surface abstracts the container that displays a map.
//
// A Surface holds markup, exposes the interactive regions inside it, and
// dispatches activation and hover input to handlers attached per region.
// The navigator, region registry and highlight engine only talk to this
// interface, so they can be exercised without any real rendering engine.
package surface

import "errors"

// Region markers. A region carries its marker as a class token.
const (
	MarkerProvince   = "province"
	MarkerDepartment = "department"
)

// Cosmetic class tokens maintained on regions.
const (
	ClassHover    = "hover"
	ClassSelected = "selected"
)

var (
	// ErrNoMap is returned by Replace when the new content has no <svg> root.
	// The content is still replaced; the surface just has no regions.
	ErrNoMap = errors.New("content has no svg root")
)

// Handlers are the behaviors attached to a region.
type Handlers struct {
	// OnActivate runs on primary activation (pointer click or keyboard confirm).
	OnActivate func(id string)
	// OnHover runs when pointer/focus enters (true) or leaves (false).
	OnHover func(id string, entered bool)
}

// Region is a handle on one interactive shape. Handles are invalidated by
// Replace.
type Region interface {
	ID() string
	Tag() string
	HasClass(class string) bool
	AddClass(class string)
	RemoveClass(class string)
	Attr(name string) string
	SetAttr(name, value string)
	Style(prop string) string
	SetStyle(prop, value string)
	// Within reports whether the region is nested inside ancestor.
	Within(ancestor Region) bool
}

// Surface is a Renderable Surface: replace content, query regions, attach
// and dispatch input.
type Surface interface {
	// Replace swaps the displayed markup verbatim and drops every attached
	// handler.
	Replace(markup []byte) error
	// Markup returns the current content as it would be displayed.
	Markup() []byte
	// Empty reports whether the surface currently holds no renderable map.
	Empty() bool
	// Generation increments on every Replace.
	Generation() uint64

	// Query returns regions carrying the marker class, in document order.
	Query(marker string) []Region
	// Shapes returns every identified shape element, in document order.
	Shapes() []Region
	// Lookup finds a shape by id.
	Lookup(id string) (Region, bool)
	// RaiseLabels moves text elements above every shape and makes them
	// non-interactive. It returns the number of labels in the label layer.
	RaiseLabels() int

	// Attach wires handlers to a region. It returns false when the region
	// already has handlers for the current generation.
	Attach(r Region, h Handlers) bool
	// Activate dispatches primary activation to the region with id.
	Activate(id string) bool
	// Hover dispatches a hover enter/leave to the region with id.
	Hover(id string, entered bool) bool
}
