// Package export renders static snapshots of the current map view.
package export

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/drillmap/pkg/metrics"
	"github.com/vanderheijden86/drillmap/pkg/panel"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// RegionState is one map region as it appears in the snapshot legend.
type RegionState struct {
	ID       string
	Name     string
	Selected bool
	Dimmed   bool
	Inert    bool
}

// SnapshotOptions controls map snapshot export behaviour.
type SnapshotOptions struct {
	Path    string        // Output path; format inferred from extension when Format empty
	Format  string        // "svg", "png" or "md" (case-insensitive)
	Title   string        // Optional heading, defaults to the panel title
	Panel   panel.Panel   // Panel content for the current navigation state
	Regions []RegionState // Regions of the displayed map, document order
	MapSVG  []byte        // Current map markup, embedded in SVG output
}

// SaveSnapshot writes a static card of the current map state: the map (SVG
// only), the region legend and the panel text. Markdown output is the panel
// alone.
func SaveSnapshot(opts SnapshotOptions) error {
	format, err := snapshotFormat(&opts)
	if err != nil {
		return err
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	defer metrics.Timer(metrics.SnapshotRender)()
	layout := buildSnapshotLayout(opts)
	switch format {
	case "svg":
		return writeSnapshotFile(opts.Path, func(w io.Writer) error {
			return renderSnapshotSVG(w, opts, layout)
		})
	case "png":
		return renderSnapshotPNG(opts, layout)
	case "md":
		return os.WriteFile(opts.Path, []byte(opts.Panel.Markdown()), 0o644)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// writeSnapshotFile buffers render's output into path. Write, flush and
// close errors are all reported.
func writeSnapshotFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := render(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func snapshotFormat(opts *SnapshotOptions) (string, error) {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		case ".md", ".markdown":
			format = "md"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" && format != "md" {
		return "", fmt.Errorf("unsupported format %q (want svg, png or md)", format)
	}
	return format, nil
}

// --- layout computation ----------------------------------------------------

type snapshotLayout struct {
	Width, Height int
	Header        float64
	MapBox        box
	PanelX        float64
	PanelLines    []panelLine
	Tiles         []regionTile
}

type box struct{ X, Y, W, H float64 }

type panelLine struct {
	Text  string
	Bold  bool
	Muted bool
}

type regionTile struct {
	box
	Region RegionState
}

func buildSnapshotLayout(opts SnapshotOptions) snapshotLayout {
	const (
		width        = 1040
		padding      = 32.0
		headerHeight = 72.0
		mapSize      = 560.0
		tileW        = 168.0
		tileH        = 28.0
		tileGap      = 8.0
		lineHeight   = 18.0
	)

	l := snapshotLayout{Width: width, Header: headerHeight}
	l.MapBox = box{X: padding, Y: padding + headerHeight, W: mapSize, H: mapSize}
	l.PanelX = padding + mapSize + padding
	l.PanelLines = panelLines(opts.Panel, 48)

	// legend tiles below the map, three per row
	perRow := int(mapSize+tileGap) / int(tileW+tileGap)
	top := l.MapBox.Y + l.MapBox.H + padding
	for i, r := range opts.Regions {
		row, col := i/perRow, i%perRow
		l.Tiles = append(l.Tiles, regionTile{
			box:    box{X: padding + float64(col)*(tileW+tileGap), Y: top + float64(row)*(tileH+tileGap), W: tileW, H: tileH},
			Region: r,
		})
	}

	height := top
	if n := len(l.Tiles); n > 0 {
		height = l.Tiles[n-1].Y + tileH + padding
	}
	if ph := l.MapBox.Y + float64(len(l.PanelLines))*lineHeight + padding; ph > height {
		height = ph
	}
	l.Height = int(height)
	if l.Height < 480 {
		l.Height = 480
	}
	return l
}

// panelLines flattens the panel into wrapped text lines.
func panelLines(p panel.Panel, wrap int) []panelLine {
	var lines []panelLine
	section := func(s *panel.Section) {
		lines = append(lines, panelLine{Text: s.Name, Bold: true})
		if s.Flag != "" {
			lines = append(lines, panelLine{Text: "Bandera: " + truncate(s.Flag, wrap), Muted: true})
		}
		for _, w := range wrapText(s.Info, wrap) {
			lines = append(lines, panelLine{Text: w})
		}
		lines = append(lines, panelLine{})
	}
	if p.Country != nil {
		section(p.Country)
	}
	if p.Province != nil {
		section(p.Province)
	}
	if p.Department != nil {
		section(p.Department)
		lines = append(lines, panelLine{Text: "Ciudades", Bold: true})
		if len(p.Cities) == 0 {
			lines = append(lines, panelLine{Text: p.CitiesNote, Muted: true})
		}
		for _, c := range p.Cities {
			lines = append(lines, panelLine{Text: truncate("• "+c.Name+": "+c.Info, wrap)})
		}
	}
	return lines
}

func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var out []string
	cur := words[0]
	for _, w := range words[1:] {
		if len([]rune(cur))+1+len([]rune(w)) > width {
			out = append(out, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	return append(out, cur)
}

func snapshotTitle(opts SnapshotOptions) string {
	if t := strings.TrimSpace(opts.Title); t != "" {
		return t
	}
	if t := opts.Panel.Title(); t != "" {
		return t
	}
	return "Map Snapshot"
}

// --- rendering -------------------------------------------------------------

var (
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorMapBG    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorSelected = color.RGBA{0xbd, 0x93, 0xf9, 0xff}
	colorRegion   = color.RGBA{0xe3, 0xf2, 0xfd, 0xff}
	colorDimmed   = color.RGBA{0xec, 0xef, 0xf1, 0xff}
	colorInert    = color.RGBA{0xff, 0xeb, 0xee, 0xff}
)

func tileColor(r RegionState) color.RGBA {
	switch {
	case r.Selected:
		return colorSelected
	case r.Inert:
		return colorInert
	case r.Dimmed:
		return colorDimmed
	default:
		return colorRegion
	}
}

func tileLabel(r RegionState) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

func renderSnapshotPNG(opts SnapshotOptions, l snapshotLayout) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(l.Width)-32, l.Header-8, 10)
	dc.Fill()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(snapshotTitle(opts), 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("level: %s  regions: %d", opts.Panel.Level, len(opts.Regions)), 32, 60, 0, 0.5)

	// raster output cannot carry the vector map; draw its frame only
	dc.SetColor(colorMapBG)
	dc.DrawRoundedRectangle(l.MapBox.X, l.MapBox.Y, l.MapBox.W, l.MapBox.H, 8)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(l.MapBox.X, l.MapBox.Y, l.MapBox.W, l.MapBox.H, 8)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored("map preview available in SVG export", l.MapBox.X+l.MapBox.W/2, l.MapBox.Y+l.MapBox.H/2, 0.5, 0.5)

	for _, t := range l.Tiles {
		dc.SetColor(tileColor(t.Region))
		dc.DrawRoundedRectangle(t.X, t.Y, t.W, t.H, 6)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.DrawRoundedRectangle(t.X, t.Y, t.W, t.H, 6)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(truncate(tileLabel(t.Region), 22), t.X+8, t.Y+t.H/2, 0, 0.5)
	}

	y := l.MapBox.Y + 12
	for _, line := range l.PanelLines {
		dc.SetColor(colorText)
		if line.Muted {
			dc.SetColor(colorSubtle)
		}
		dc.DrawStringAnchored(line.Text, l.PanelX, y, 0, 0.5)
		y += 18
	}

	return dc.SavePNG(opts.Path)
}

func renderSnapshotSVG(w io.Writer, opts SnapshotOptions, l snapshotLayout) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, l.Width-32, int(l.Header-8), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 44, snapshotTitle(opts), fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 64, fmt.Sprintf("level: %s  regions: %d", opts.Panel.Level, len(opts.Regions)),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	mx, my, mw, mh := int(l.MapBox.X), int(l.MapBox.Y), int(l.MapBox.W), int(l.MapBox.H)
	canvas.Roundrect(mx, my, mw, mh, 8, 8, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorMapBG), css(colorStroke)))
	if len(opts.MapSVG) > 0 {
		canvas.Image(mx, my, mw, mh, "data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString(opts.MapSVG))
	}

	for _, t := range l.Tiles {
		x, y := int(t.X), int(t.Y)
		canvas.Roundrect(x, y, int(t.W), int(t.H), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(tileColor(t.Region)), css(colorStroke)))
		canvas.Text(x+8, y+18, truncate(tileLabel(t.Region), 22), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
	}

	y := int(l.MapBox.Y) + 16
	for _, line := range l.PanelLines {
		style := fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText))
		switch {
		case line.Bold:
			style += ";font-weight:bold"
		case line.Muted:
			style = fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle))
		}
		if line.Text != "" {
			canvas.Text(int(l.PanelX), y, line.Text, style)
		}
		y += 18
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
