// Package ui is the Bubble Tea front end: a map pane listing the regions of
// the displayed map next to the information panel.
package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/export"
	"github.com/vanderheijden86/drillmap/pkg/navigator"
)

const (
	defaultSplitRatio = 0.4
	minSplitRatio     = 0.2
	maxSplitRatio     = 0.8
	splitStep         = 0.05
)

// Options configures NewModel.
type Options struct {
	Navigator *navigator.Navigator
	Source    Source
	// Title is shown in the header, usually the country key.
	Title string
	// SplitRatio is the share of width given to the map pane.
	SplitRatio float64
	// WordWrap caps the panel wrap width. Zero follows the pane width.
	WordWrap int
	// SnapshotDir receives snapshot exports. Defaults to the working dir.
	SnapshotDir string
	// Warnings delivers diagnostics raised outside the update loop.
	Warnings <-chan string
	// FetchTimeout bounds each map fetch.
	FetchTimeout time.Duration
	// GlamourStyle forces a glamour style; empty auto-detects.
	GlamourStyle string
}

// Model is the top-level Bubble Tea model. The navigator is only ever
// touched from Update.
type Model struct {
	nav      *navigator.Navigator
	src      Source
	theme    Theme
	keys     keyMap
	spinner  spinner.Model
	viewport viewport.Model
	renderer *PanelRenderer

	title       string
	rows        []RegionRow
	cursor      int
	hovered     string
	shownGen    uint64
	splitRatio  float64
	wordWrap    int
	snapshotDir string
	warnings    <-chan string
	timeout     time.Duration

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool
}

// NewModel builds the model. The initial country map is requested by Init.
func NewModel(opts Options) Model {
	ratio := opts.SplitRatio
	if ratio < minSplitRatio || ratio > maxSplitRatio {
		ratio = defaultSplitRatio
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	dir := opts.SnapshotDir
	if dir == "" {
		dir = "."
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	theme := DefaultTheme(lipgloss.DefaultRenderer())
	m := Model{
		nav:         opts.Navigator,
		src:         opts.Source,
		theme:       theme,
		keys:        defaultKeyMap(),
		spinner:     sp,
		viewport:    viewport.New(40, 10),
		renderer:    NewPanelRenderer(40, opts.GlamourStyle),
		title:       opts.Title,
		splitRatio:  ratio,
		wordWrap:    opts.WordWrap,
		snapshotDir: dir,
		warnings:    opts.Warnings,
		timeout:     timeout,
		width:       100,
		height:      30,
		ready:       true,
	}
	m.resize()
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		FetchMapCmd(m.src, m.nav.Start(), m.timeout),
	}
	if m.warnings != nil {
		cmds = append(cmds, WaitForWarningCmd(m.warnings))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		m.refreshPanel()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case MapLoadedMsg:
		err := m.nav.ApplyMap(msg.Result)
		switch {
		case errors.Is(err, navigator.ErrStale):
			return m, nil
		case err != nil:
			m.setStatus(fmt.Sprintf("No se pudo cargar el mapa: %v", err), true)
		default:
			m.statusMsg = ""
		}
		m.refresh()

	case WarningMsg:
		m.setStatus(msg.Text, true)
		cmds = append(cmds, WaitForWarningCmd(m.warnings))

	case SnapshotSavedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Snapshot failed: %v", msg.Err), true)
		} else {
			m.setStatus(fmt.Sprintf("Snapshot saved to %s", msg.Path), false)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// any key dismisses the previous status
	m.statusMsg = ""
	m.statusIsError = false

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Activate):
		m.activateCursor()

	case key.Matches(msg, m.keys.DetailMap):
		req := m.nav.RequestDetailMap()
		if req == nil {
			m.setStatus("Esta provincia no tiene mapa detallado", false)
			return m, nil
		}
		m.refresh()
		return m, tea.Batch(FetchMapCmd(m.src, req, m.timeout), m.spinner.Tick)

	case key.Matches(msg, m.keys.Back):
		req := m.nav.Back()
		if req == nil {
			return m, nil
		}
		m.refresh()
		return m, tea.Batch(FetchMapCmd(m.src, req, m.timeout), m.spinner.Tick)

	case key.Matches(msg, m.keys.Copy):
		flag := m.nav.Panel().Flag()
		if flag == "" {
			m.setStatus("Sin bandera para copiar", true)
		} else if err := clipboard.WriteAll(flag); err != nil {
			m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		} else {
			m.setStatus(fmt.Sprintf("Copied %s", flag), false)
		}

	case key.Matches(msg, m.keys.Export):
		return m, saveSnapshotCmd(m.snapshotOptions())

	case key.Matches(msg, m.keys.ShrinkMap):
		m.adjustSplit(-splitStep)

	case key.Matches(msg, m.keys.GrowMap):
		m.adjustSplit(splitStep)

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(m.viewport.Height / 2)

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(m.viewport.Height / 2)
	}
	return m, nil
}

// moveCursor moves focus between regions, dispatching hover leave/enter the
// way a pointer crossing region borders would.
func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	next := m.cursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.rows) {
		next = len(m.rows) - 1
	}
	m.cursor = next
	m.focus(m.rows[next].ID)
	m.refreshRows()
}

func (m *Model) focus(id string) {
	if m.hovered == id {
		return
	}
	if m.hovered != "" {
		m.nav.Hover(m.hovered, false)
	}
	m.hovered = id
	if id != "" {
		m.nav.Hover(id, true)
	}
}

func (m *Model) activateCursor() {
	if m.cursor >= len(m.rows) {
		return
	}
	row := m.rows[m.cursor]
	before := m.nav.State()
	if !m.nav.Activate(row.ID) {
		m.setStatus(fmt.Sprintf("%s no es seleccionable", row.Name), true)
		return
	}
	after := m.nav.State()
	if row.Inert && before == after {
		m.setStatus(fmt.Sprintf("Sin datos para %s", row.ID), true)
	}
	m.refresh()
}

// refresh re-reads rows and the panel after a navigation change. A newly
// displayed map resets focus to the selected region, or the first one.
func (m *Model) refresh() {
	gen := m.nav.Surface().Generation()
	if gen != m.shownGen {
		m.shownGen = gen
		m.hovered = ""
		m.rows = regionRows(m.nav)
		m.cursor = 0
		for i, r := range m.rows {
			if r.Selected {
				m.cursor = i
				break
			}
		}
		if len(m.rows) > 0 {
			m.focus(m.rows[m.cursor].ID)
		}
	}
	m.refreshRows()
	m.refreshPanel()
}

func (m *Model) refreshRows() {
	m.rows = regionRows(m.nav)
	if m.cursor >= len(m.rows) {
		m.cursor = 0
	}
}

func (m *Model) refreshPanel() {
	p := m.nav.Panel()
	var b strings.Builder
	if p.ShowBack {
		b.WriteString(m.theme.MutedText.Render("← volver (esc)"))
		b.WriteString("\n\n")
	}
	b.WriteString(m.renderer.Render(p.Markdown()))
	m.viewport.SetContent(b.String())
}

func (m *Model) resize() {
	_, panelW := paneWidths(m.width, m.splitRatio)
	bodyH := m.bodyHeight()
	m.viewport.Width = panelW
	m.viewport.Height = bodyH
	wrap := panelW - 2
	if m.wordWrap > 0 && m.wordWrap < wrap {
		wrap = m.wordWrap
	}
	m.renderer.SetWidth(wrap)
}

func (m *Model) adjustSplit(delta float64) {
	r := m.splitRatio + delta
	if r < minSplitRatio {
		r = minSplitRatio
	}
	if r > maxSplitRatio {
		r = maxSplitRatio
	}
	m.splitRatio = r
	m.resize()
	m.refreshPanel()
}

// bodyHeight is the inner height of the panes: header, footer and the two
// border rows are taken off.
func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
	debug.Log("ui: status %q (error=%v)", msg, isErr)
}

func (m Model) snapshotOptions() export.SnapshotOptions {
	return SnapshotOptions(m.nav, filepath.Join(m.snapshotDir, SnapshotName(m.nav, "svg")))
}

// Cursor returns the focused row index.
func (m Model) Cursor() int { return m.cursor }

// Rows returns the map pane rows.
func (m Model) Rows() []RegionRow { return m.rows }

// Status returns the footer status message and whether it is an error.
func (m Model) Status() (string, bool) { return m.statusMsg, m.statusIsError }

// Navigator returns the driven navigator.
func (m Model) Navigator() *navigator.Navigator { return m.nav }

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	mapW, panelW := paneWidths(m.width, m.splitRatio)
	bodyH := m.bodyHeight()

	mapPane := PanelStyle.
		Width(mapW).
		Height(bodyH).
		Render(renderMapPane(m.theme, m.nav, m.rows, m.cursor, mapW, bodyH))
	panelPane := FocusedPanelStyle.
		Width(panelW).
		Height(bodyH).
		Render(m.viewport.View())

	body := joinPanes(mapPane, panelPane)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderFooter())
}

func (m Model) renderHeader() string {
	name := "drillmap"
	if m.title != "" {
		name += " · " + m.title
	}
	title := m.theme.Header.Render(name)
	crumb := breadcrumb(m.nav.Hierarchy().Country.Name, m.nav.State())
	parts := []string{title, RenderLevelBadge(m.nav.State().Level), " " + crumb}
	if m.nav.Pending() {
		parts = append(parts, " "+m.spinner.View())
	}
	line := lipgloss.JoinHorizontal(lipgloss.Center, parts...)
	return truncateANSIWidth(line, m.width)
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		var msgStyle lipgloss.Style
		if m.statusIsError {
			msgStyle = lipgloss.NewStyle().
				Background(ColorDangerBg).
				Foreground(ColorDanger).
				Bold(true).
				Padding(0, 2)
		} else {
			msgStyle = lipgloss.NewStyle().
				Background(ColorSuccessBg).
				Foreground(ColorSuccess).
				Bold(true).
				Padding(0, 2)
		}
		prefix := "✓ "
		if m.statusIsError {
			prefix = "✗ "
		}
		msgSection := msgStyle.Render(prefix + m.statusMsg)
		remaining := m.width - lipgloss.Width(msgSection)
		if remaining < 0 {
			remaining = 0
		}
		filler := lipgloss.NewStyle().Width(remaining).Render("")
		return lipgloss.JoinHorizontal(lipgloss.Bottom, msgSection, filler)
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle := lipgloss.NewStyle().Foreground(ColorText)

	bindings := []key.Binding{m.keys.Up, m.keys.Activate}
	if m.nav.CanRequestDetailMap() {
		bindings = append(bindings, m.keys.DetailMap)
	}
	if m.nav.CanGoBack() {
		bindings = append(bindings, m.keys.Back)
	}
	bindings = append(bindings, m.keys.Copy, m.keys.Export, m.keys.ShrinkMap, m.keys.Quit)

	var hintParts []string
	for _, b := range bindings {
		h := b.Help()
		hintParts = append(hintParts, keyStyle.Render(h.Key)+":"+labelStyle.Render(h.Desc))
	}
	shortcutBar := " " + strings.Join(hintParts, "  ")

	remaining := m.width - lipgloss.Width(shortcutBar)
	if remaining < 0 {
		remaining = 0
	}
	filler := lipgloss.NewStyle().Width(remaining).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Bottom, shortcutBar, filler)
}

// truncateANSIWidth caps a styled line at width cells.
func truncateANSIWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
