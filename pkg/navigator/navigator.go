// Package navigator is the drill-down state machine. It owns the current
// level and selection, decides whether a transition swaps the displayed map
// or only re-highlights it, and keeps the panel in sync.
//
// Map swaps are asynchronous. Transitions that need a new map return a
// MapRequest; the caller fetches it and hands the outcome back through
// ApplyMap. Only the most recently issued request is ever applied, so a slow
// fetch can never overwrite a newer displayed state. If that latest fetch
// fails the previous map simply stays on screen.
package navigator

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/highlight"
	"github.com/vanderheijden86/drillmap/pkg/metrics"
	"github.com/vanderheijden86/drillmap/pkg/model"
	"github.com/vanderheijden86/drillmap/pkg/panel"
	"github.com/vanderheijden86/drillmap/pkg/region"
	"github.com/vanderheijden86/drillmap/pkg/surface"
)

var (
	// ErrNotAllowed is returned for transitions the current state forbids.
	ErrNotAllowed = errors.New("transition not allowed")
	// ErrStale is returned by ApplyMap for superseded results.
	ErrStale = errors.New("stale map result")
)

// MapKind identifies which map a surface shows.
type MapKind int

const (
	MapNone MapKind = iota
	MapCountry
	MapProvince
)

// String returns a human-readable label for the map kind.
func (k MapKind) String() string {
	switch k {
	case MapCountry:
		return "country"
	case MapProvince:
		return "province"
	default:
		return "none"
	}
}

// Displayed describes the map currently on the surface.
type Displayed struct {
	Kind       MapKind
	ProvinceID string
	URL        string
}

// MapRequest asks the caller to fetch a map asset.
type MapRequest struct {
	Seq        uint64
	Kind       MapKind
	ProvinceID string
	URL        string
}

// MapResult is the outcome of fetching a MapRequest.
type MapResult struct {
	Request MapRequest
	Markup  []byte
	Err     error
}

// Options configures a Navigator.
type Options struct {
	Hierarchy     *model.Hierarchy
	Surface       surface.Surface
	Resolver      assetpath.Resolver
	CountryMapURL string
	Highlight     highlight.Engine
	// OnHover observes cosmetic hover enter/leave on armed regions.
	OnHover func(id string, entered bool)
}

// Navigator is the single owner of navigation state. It is not safe for
// concurrent use; drive it from one event loop.
type Navigator struct {
	h          *model.Hierarchy
	s          surface.Surface
	resolver   assetpath.Resolver
	countryURL string
	hl         highlight.Engine
	registry   region.Registry

	sel       model.Selection
	displayed Displayed
	panel     panel.Panel

	seq         uint64
	pending     bool
	pendingKind MapKind
}

// New creates a Navigator at the country level. Call Start to load the
// country map.
func New(opts Options) *Navigator {
	n := &Navigator{
		h:          opts.Hierarchy,
		s:          opts.Surface,
		resolver:   opts.Resolver,
		countryURL: opts.CountryMapURL,
		hl:         opts.Highlight,
	}
	if n.s == nil {
		n.s = surface.NewSVG()
	}
	n.registry.OnHover = opts.OnHover
	n.sel = model.Selection{Level: model.LevelCountry}
	n.refreshPanel()
	return n
}

// State returns the current selection.
func (n *Navigator) State() model.Selection { return n.sel }

// Displayed returns the map currently on the surface.
func (n *Navigator) Displayed() Displayed { return n.displayed }

// Panel returns the panel for the current state.
func (n *Navigator) Panel() panel.Panel { return n.panel }

// Surface returns the surface the navigator drives.
func (n *Navigator) Surface() surface.Surface { return n.s }

// Hierarchy returns the loaded dataset.
func (n *Navigator) Hierarchy() *model.Hierarchy { return n.h }

// Resolver returns the flag/map path resolver.
func (n *Navigator) Resolver() assetpath.Resolver { return n.resolver }

// Pending reports whether a map request is in flight.
func (n *Navigator) Pending() bool { return n.pending }

// ArmedMarker returns the region marker armed on the displayed map.
func (n *Navigator) ArmedMarker() (string, bool) { return n.registry.Armed(n.s) }

// Inert returns region ids on the displayed map that match no entity.
func (n *Navigator) Inert() []string {
	if _, ok := n.registry.Armed(n.s); !ok {
		return nil
	}
	return n.registry.Last().Inert
}

// Start issues the initial country map request.
func (n *Navigator) Start() *MapRequest {
	return n.issue(MapCountry, "", n.countryURL)
}

// Activate dispatches primary activation on a region, as a click or Enter
// would. It reports whether the region had a handler.
func (n *Navigator) Activate(id string) bool {
	return n.s.Activate(id)
}

// Hover dispatches a hover enter/leave on a region.
func (n *Navigator) Hover(id string, entered bool) bool {
	return n.s.Hover(id, entered)
}

// Select is the activation handler for armed regions: a province on the
// country map, a department on a province map.
func (n *Navigator) Select(id string) error {
	if n.displayed.Kind == MapProvince {
		return n.SelectDepartment(id)
	}
	return n.SelectProvince(id)
}

// SelectProvince moves to the province level. The country map stays on the
// surface; only highlighting changes. It is refused while a province map is
// displayed.
func (n *Navigator) SelectProvince(id string) error {
	if n.displayed.Kind == MapProvince {
		debug.Warn("province %q selected while province map %q is displayed; ignoring", id, n.displayed.ProvinceID)
		return fmt.Errorf("select province %q: %w", id, ErrNotAllowed)
	}
	p, err := n.h.Province(id)
	if err != nil {
		debug.Warn("province %q not found in data", id)
		return err
	}

	if n.pending && n.pendingKind == MapProvince {
		// the detail map requested for the previous province is no longer wanted
		n.supersede()
	}
	n.sel = model.Selection{Level: model.LevelProvince, Province: p}
	if n.displayed.Kind == MapCountry {
		n.hl.Apply(n.s, surface.MarkerProvince, p.ID)
	}
	n.refreshPanel()
	debug.Log("navigator: -> province %s", p.ID)
	return nil
}

// RequestDetailMap asks for the selected province's own map. It returns nil
// when not at the province level, when the province declares no map or no
// departments, or when that map is already displayed.
func (n *Navigator) RequestDetailMap() *MapRequest {
	if n.sel.Level != model.LevelProvince || n.sel.Province == nil {
		debug.Log("navigator: detail map requested at %s level; ignoring", n.sel.Level)
		return nil
	}
	p := n.sel.Province
	if !p.HasMap() || len(p.Departments) == 0 {
		debug.Log("navigator: province %s has no detail map to offer", p.ID)
		return nil
	}
	if n.displayed.Kind == MapProvince && n.displayed.ProvinceID == p.ID {
		return nil
	}
	return n.issue(MapProvince, p.ID, n.resolver.ProvinceMap(p.Map))
}

// CanRequestDetailMap reports whether RequestDetailMap would issue a request.
func (n *Navigator) CanRequestDetailMap() bool {
	p := n.sel.Province
	return n.sel.Level == model.LevelProvince && p != nil && p.HasMap() && len(p.Departments) > 0 &&
		!(n.displayed.Kind == MapProvince && n.displayed.ProvinceID == p.ID)
}

// SelectDepartment moves to the department level. It requires the current
// province's map to be displayed with department regions armed.
func (n *Navigator) SelectDepartment(id string) error {
	p := n.sel.Province
	if p == nil || n.sel.Level == model.LevelCountry {
		debug.Warn("department %q selected with no province selected; ignoring", id)
		return fmt.Errorf("select department %q: %w", id, ErrNotAllowed)
	}
	marker, armed := n.registry.Armed(n.s)
	if n.displayed.Kind != MapProvince || n.displayed.ProvinceID != p.ID || !armed || marker != surface.MarkerDepartment {
		debug.Warn("department %q selected but the map of province %q is not displayed; ignoring", id, p.ID)
		return fmt.Errorf("select department %q: %w", id, ErrNotAllowed)
	}
	d, err := p.Department(id)
	if err != nil {
		debug.Warn("department %q not found in province %q", id, p.ID)
		return err
	}

	n.sel = model.Selection{Level: model.LevelDepartment, Province: p, Department: d}
	n.hl.Apply(n.s, surface.MarkerDepartment, d.ID)
	n.refreshPanel()
	debug.Log("navigator: -> department %s/%s", p.ID, d.ID)
	return nil
}

// Back moves one level up. Department goes back to its province and reloads
// the province map; province goes back to the country and reloads the
// country map. At the country level it only retries the country map when
// another map is still displayed after a failed reload; otherwise it is a
// no-op returning nil.
func (n *Navigator) Back() *MapRequest {
	switch n.sel.Level {
	case model.LevelDepartment:
		p := n.sel.Province
		n.sel = model.Selection{Level: model.LevelProvince, Province: p}
		n.refreshPanel()
		debug.Log("navigator: <- province %s", p.ID)
		return n.issue(MapProvince, p.ID, n.resolver.ProvinceMap(p.Map))
	case model.LevelProvince:
		n.sel = model.Selection{Level: model.LevelCountry}
		n.refreshPanel()
		debug.Log("navigator: <- country")
		return n.issue(MapCountry, "", n.countryURL)
	default:
		if !n.needsCountryReload() {
			return nil
		}
		debug.Log("navigator: retrying country map, %s map still displayed", n.displayed.Kind)
		return n.issue(MapCountry, "", n.countryURL)
	}
}

// CanGoBack reports whether Back would change the level or issue a request.
func (n *Navigator) CanGoBack() bool {
	return n.sel.Level != model.LevelCountry || n.needsCountryReload()
}

// needsCountryReload is true at the country level when the country map is
// neither displayed nor on its way.
func (n *Navigator) needsCountryReload() bool {
	if n.sel.Level != model.LevelCountry || n.displayed.Kind == MapCountry {
		return false
	}
	return !(n.pending && n.pendingKind == MapCountry)
}

// ApplyMap applies a completed fetch. Superseded results return ErrStale
// and change nothing. A failed fetch keeps the current map and returns the
// fetch error; the logical state is not rolled back.
func (n *Navigator) ApplyMap(res MapResult) error {
	req := res.Request
	if !n.pending || req.Seq != n.seq {
		debug.Log("navigator: dropping stale %s map result seq=%d (latest=%d)", req.Kind, req.Seq, n.seq)
		return ErrStale
	}
	n.pending = false

	if res.Err != nil {
		debug.Warn("map %s failed to load, keeping current map: %v", req.URL, res.Err)
		return fmt.Errorf("loading map %s: %w", req.URL, res.Err)
	}

	stop := metrics.Timer(metrics.MapReplace)
	err := n.s.Replace(res.Markup)
	stop()
	n.displayed = Displayed{Kind: req.Kind, ProvinceID: req.ProvinceID, URL: req.URL}
	if err != nil {
		debug.Warn("map %s has no renderable content: %v", req.URL, err)
		n.displayed.Kind = MapNone
		return fmt.Errorf("loading map %s: %w", req.URL, err)
	}

	switch req.Kind {
	case MapCountry:
		n.registry.ArmProvinces(n.s, n.h, n.activate)
		if n.sel.Level == model.LevelProvince && n.sel.Province != nil {
			n.hl.Apply(n.s, surface.MarkerProvince, n.sel.Province.ID)
		} else {
			n.s.RaiseLabels()
		}
	case MapProvince:
		p, lookupErr := n.h.Province(req.ProvinceID)
		if lookupErr != nil {
			return lookupErr
		}
		n.registry.ArmDepartments(n.s, p, n.activate)
		if n.sel.Level == model.LevelDepartment && n.sel.Department != nil {
			n.hl.Apply(n.s, surface.MarkerDepartment, n.sel.Department.ID)
		} else {
			n.s.RaiseLabels()
		}
	}
	debug.Log("navigator: displayed %s map %s", req.Kind, req.URL)
	return nil
}

func (n *Navigator) activate(id string) {
	_ = n.Select(id)
}

// issue creates a request that supersedes any in-flight one.
func (n *Navigator) issue(kind MapKind, provinceID, url string) *MapRequest {
	n.seq++
	n.pending = true
	n.pendingKind = kind
	return &MapRequest{Seq: n.seq, Kind: kind, ProvinceID: provinceID, URL: url}
}

func (n *Navigator) supersede() {
	n.seq++
	n.pending = false
}

func (n *Navigator) refreshPanel() {
	n.panel = panel.Render(n.h, n.sel, n.resolver)
}
