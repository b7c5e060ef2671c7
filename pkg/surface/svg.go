package surface

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// LabelLayerID is the id of the group RaiseLabels collects labels into.
const LabelLayerID = "drillmap-labels"

var shapeTags = map[string]bool{
	"path":     true,
	"polygon":  true,
	"polyline": true,
	"rect":     true,
	"circle":   true,
	"ellipse":  true,
	"g":        true,
}

// SVG is an in-memory Surface over SVG markup.
type SVG struct {
	raw        []byte
	doc        *etree.Document
	root       *etree.Element
	generation uint64
	handlers   map[string]Handlers
}

// NewSVG returns an empty surface.
func NewSVG() *SVG {
	return &SVG{handlers: make(map[string]Handlers)}
}

// Replace implements Surface.
func (s *SVG) Replace(markup []byte) error {
	s.generation++
	s.handlers = make(map[string]Handlers)
	s.raw = append([]byte(nil), markup...)
	s.doc = nil
	s.root = nil

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(markup); err != nil {
		return fmt.Errorf("%w: %v", ErrNoMap, err)
	}
	root := findSVG(&doc.Element)
	if root == nil {
		return ErrNoMap
	}
	s.doc = doc
	s.root = root
	return nil
}

func findSVG(el *etree.Element) *etree.Element {
	if el.Tag == "svg" {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findSVG(c); found != nil {
			return found
		}
	}
	return nil
}

// Markup implements Surface.
func (s *SVG) Markup() []byte {
	if s.doc == nil {
		return append([]byte(nil), s.raw...)
	}
	out, err := s.doc.WriteToBytes()
	if err != nil {
		return append([]byte(nil), s.raw...)
	}
	return out
}

// Empty implements Surface.
func (s *SVG) Empty() bool {
	return s.root == nil
}

// Generation implements Surface.
func (s *SVG) Generation() uint64 {
	return s.generation
}

func (s *SVG) walk(fn func(el *etree.Element)) {
	if s.root == nil {
		return
	}
	var visit func(el *etree.Element)
	visit = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			fn(c)
			visit(c)
		}
	}
	visit(s.root)
}

// Query implements Surface.
func (s *SVG) Query(marker string) []Region {
	var out []Region
	s.walk(func(el *etree.Element) {
		if hasToken(el.SelectAttrValue("class", ""), marker) {
			out = append(out, &svgRegion{el: el})
		}
	})
	return out
}

// Shapes implements Surface.
func (s *SVG) Shapes() []Region {
	var out []Region
	s.walk(func(el *etree.Element) {
		if shapeTags[el.Tag] && el.SelectAttrValue("id", "") != "" && !insideLabelLayer(el) {
			out = append(out, &svgRegion{el: el})
		}
	})
	return out
}

// Lookup implements Surface.
func (s *SVG) Lookup(id string) (Region, bool) {
	if id == "" {
		return nil, false
	}
	var found *etree.Element
	s.walk(func(el *etree.Element) {
		if found == nil && el.SelectAttrValue("id", "") == id {
			found = el
		}
	})
	if found == nil {
		return nil, false
	}
	return &svgRegion{el: found}, true
}

func insideLabelLayer(el *etree.Element) bool {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.SelectAttrValue("id", "") == LabelLayerID {
			return true
		}
	}
	return false
}

// templateTags are containers whose children are referenced, never drawn
// in place.
var templateTags = map[string]bool{
	"defs":     true,
	"clipPath": true,
	"mask":     true,
	"symbol":   true,
	"pattern":  true,
	"marker":   true,
}

func insideTemplate(el *etree.Element) bool {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if templateTags[p.Tag] {
			return true
		}
	}
	return false
}

// RaiseLabels implements Surface. Labels are moved into a single trailing
// layer group; ancestor transforms are carried on a wrapper so their position
// does not change. Labels already in the layer are left alone, which keeps
// repeated calls stable.
func (s *SVG) RaiseLabels() int {
	if s.root == nil {
		return 0
	}

	layer := s.root.FindElement("./g[@id='" + LabelLayerID + "']")
	if layer == nil {
		layer = etree.NewElement("g")
		layer.CreateAttr("id", LabelLayerID)
		layer.CreateAttr("pointer-events", "none")
	} else {
		s.root.RemoveChild(layer)
	}

	var labels []*etree.Element
	s.walk(func(el *etree.Element) {
		if el.Tag == "text" && !insideLabelLayer(el) && !insideTemplate(el) {
			labels = append(labels, el)
		}
	})

	for _, text := range labels {
		transform := ancestorTransform(text, s.root)
		text.Parent().RemoveChild(text)
		setStyle(text, "pointer-events", "none")
		if transform == "" {
			layer.AddChild(text)
			continue
		}
		wrap := layer.CreateElement("g")
		wrap.CreateAttr("transform", transform)
		wrap.AddChild(text)
	}

	s.root.AddChild(layer)
	return len(layer.FindElements(".//text"))
}

// ancestorTransform concatenates transforms from the outermost ancestor below
// root down to el's parent.
func ancestorTransform(el, root *etree.Element) string {
	var parts []string
	for p := el.Parent(); p != nil && p != root; p = p.Parent() {
		if t := strings.TrimSpace(p.SelectAttrValue("transform", "")); t != "" {
			parts = append([]string{t}, parts...)
		}
	}
	return strings.Join(parts, " ")
}

// Attach implements Surface.
func (s *SVG) Attach(r Region, h Handlers) bool {
	if s.root == nil || r == nil || r.ID() == "" {
		return false
	}
	if _, ok := s.handlers[r.ID()]; ok {
		return false
	}
	s.handlers[r.ID()] = h
	return true
}

// Activate implements Surface.
func (s *SVG) Activate(id string) bool {
	h, ok := s.handlers[id]
	if !ok || h.OnActivate == nil {
		return false
	}
	h.OnActivate(id)
	return true
}

// Hover implements Surface. The hover class is toggled before the handler
// runs.
func (s *SVG) Hover(id string, entered bool) bool {
	h, ok := s.handlers[id]
	if !ok {
		return false
	}
	if r, found := s.Lookup(id); found {
		if entered {
			r.AddClass(ClassHover)
		} else {
			r.RemoveClass(ClassHover)
		}
	}
	if h.OnHover != nil {
		h.OnHover(id, entered)
	}
	return true
}

// svgRegion adapts an etree element to Region.
type svgRegion struct {
	el *etree.Element
}

func (r *svgRegion) ID() string  { return r.el.SelectAttrValue("id", "") }
func (r *svgRegion) Tag() string { return r.el.Tag }

func (r *svgRegion) HasClass(class string) bool {
	return hasToken(r.el.SelectAttrValue("class", ""), class)
}

func (r *svgRegion) AddClass(class string) {
	classes := strings.Fields(r.el.SelectAttrValue("class", ""))
	for _, c := range classes {
		if c == class {
			return
		}
	}
	r.el.CreateAttr("class", strings.Join(append(classes, class), " "))
}

func (r *svgRegion) RemoveClass(class string) {
	classes := strings.Fields(r.el.SelectAttrValue("class", ""))
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		r.el.RemoveAttr("class")
		return
	}
	r.el.CreateAttr("class", strings.Join(kept, " "))
}

func (r *svgRegion) Attr(name string) string { return r.el.SelectAttrValue(name, "") }

func (r *svgRegion) SetAttr(name, value string) { r.el.CreateAttr(name, value) }

func (r *svgRegion) Style(prop string) string {
	for _, d := range parseStyle(r.el.SelectAttrValue("style", "")) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

func (r *svgRegion) SetStyle(prop, value string) { setStyle(r.el, prop, value) }

func (r *svgRegion) Within(ancestor Region) bool {
	a, ok := ancestor.(*svgRegion)
	if !ok || a == nil {
		return false
	}
	for p := r.el.Parent(); p != nil; p = p.Parent() {
		if p == a.el {
			return true
		}
	}
	return false
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

type declaration struct {
	prop, value string
}

// parseStyle splits an inline style attribute into ordered declarations.
func parseStyle(style string) []declaration {
	var out []declaration
	for _, part := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		if prop == "" {
			continue
		}
		out = append(out, declaration{prop: prop, value: strings.TrimSpace(value)})
	}
	return out
}

// setStyle sets one declaration, keeping the position of an existing one.
// An empty value removes the declaration.
func setStyle(el *etree.Element, prop, value string) {
	decls := parseStyle(el.SelectAttrValue("style", ""))
	replaced := false
	kept := decls[:0]
	for _, d := range decls {
		if d.prop == prop {
			if value == "" {
				continue
			}
			d.value = value
			replaced = true
		}
		kept = append(kept, d)
	}
	if !replaced && value != "" {
		kept = append(kept, declaration{prop: prop, value: value})
	}
	if len(kept) == 0 {
		el.RemoveAttr("style")
		return
	}
	var b bytes.Buffer
	for i, d := range kept {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.prop)
		b.WriteString(": ")
		b.WriteString(d.value)
	}
	el.CreateAttr("style", b.String())
}
