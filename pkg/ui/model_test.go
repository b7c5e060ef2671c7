package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/model"
	"github.com/vanderheijden86/drillmap/pkg/navigator"
	"github.com/vanderheijden86/drillmap/pkg/surface"
)

const countrySVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <path id="sf" class="province" d="M0 0"/>
  <path id="cordoba" class="province" d="M1 0"/>
  <path id="malvinas" class="province" d="M2 0"/>
  <text x="0">Santa Fe</text>
</svg>`

const santaFeSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <path id="d1" class="department" d="M0 0"/>
  <path id="d2" d="M1 0"/>
</svg>`

// memSource serves assets from memory and counts fetches.
type memSource struct {
	mu     sync.Mutex
	assets map[string]string
	calls  []string
}

func (s *memSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ref)
	body, ok := s.assets[ref]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return []byte(body), nil
}

func testHierarchy() *model.Hierarchy {
	return &model.Hierarchy{
		Country: model.Country{Name: "Argentina", Info: "República Argentina", Flag: "flags/ar.svg"},
		Provinces: []model.Province{
			{ID: "sf", Name: "Santa Fe", Info: "Provincia del litoral", Map: "santafe.svg", Departments: []model.Department{
				{ID: "d1", Name: "Rosario", Cities: []model.City{{ID: "ros", Name: "Rosario", Info: "Puerto"}}},
				{ID: "d2", Name: "La Capital"},
			}},
			{ID: "cordoba", Name: "Córdoba"},
		},
	}
}

func newTestModel(t *testing.T) (Model, *memSource) {
	t.Helper()
	src := &memSource{assets: map[string]string{
		"maps/country.svg":           countrySVG,
		"maps/provinces/santafe.svg": santaFeSVG,
	}}
	nav := navigator.New(navigator.Options{
		Hierarchy:     testHierarchy(),
		Resolver:      assetpath.Resolver{ProvincesRoot: "flags/provinces", MapsRoot: "maps/provinces"},
		CountryMapURL: "maps/country.svg",
	})
	m := NewModel(Options{
		Navigator:    nav,
		Source:       src,
		Title:        "argentina",
		SnapshotDir:  t.TempDir(),
		GlamourStyle: "ascii",
	})
	m = run(t, m, m.Init())
	return m, src
}

// collect executes cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch v := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range v {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// run feeds the map and snapshot results of cmd back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case MapLoadedMsg, SnapshotSavedMsg:
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	return run(t, next.(Model), cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func rowIDs(rows []RegionRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func TestInit_LoadsCountryMap(t *testing.T) {
	m, src := newTestModel(t)

	if len(src.calls) != 1 || src.calls[0] != "maps/country.svg" {
		t.Fatalf("fetches = %v", src.calls)
	}
	if got := strings.Join(rowIDs(m.Rows()), ","); got != "sf,cordoba,malvinas" {
		t.Fatalf("rows = %s", got)
	}
	if !m.Rows()[2].Inert {
		t.Error("malvinas should be listed as inert")
	}
	if !m.Rows()[0].Hovered {
		t.Error("first row should be hovered after load")
	}
}

func TestCursor_MovesHover(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, keyDown)
	if m.Cursor() != 1 {
		t.Fatalf("Cursor = %d, want 1", m.Cursor())
	}
	rows := m.Rows()
	if rows[0].Hovered || !rows[1].Hovered {
		t.Errorf("hover did not follow the cursor: %+v", rows)
	}

	m = press(t, m, keyUp)
	m = press(t, m, keyUp)
	if m.Cursor() != 0 {
		t.Errorf("Cursor = %d, want clamp at 0", m.Cursor())
	}
}

func TestEnter_SelectsProvince(t *testing.T) {
	m, src := newTestModel(t)

	m = press(t, m, keyEnter)
	nav := m.Navigator()
	if s := nav.State(); s.Level != model.LevelProvince || s.ProvinceID() != "sf" {
		t.Fatalf("State = %+v", s)
	}
	if len(src.calls) != 1 {
		t.Errorf("selecting a province must not fetch, got %v", src.calls)
	}
	rows := m.Rows()
	if !rows[0].Selected || !rows[1].Dimmed {
		t.Errorf("rows not highlighted: %+v", rows)
	}
	if !strings.Contains(m.View(), "Provincia del litoral") {
		t.Error("panel should show province info")
	}
}

func TestEnter_InertRegionReportsStatus(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, keyDown)
	m = press(t, m, keyDown)
	m = press(t, m, keyEnter)

	if m.Navigator().State().Level != model.LevelCountry {
		t.Fatal("inert region must not change state")
	}
	msg, isErr := m.Status()
	if !isErr || !strings.Contains(msg, "malvinas") {
		t.Errorf("Status = %q, %v", msg, isErr)
	}
}

func TestDetailMap_DrillsDown(t *testing.T) {
	m, src := newTestModel(t)

	m = press(t, m, keyEnter)
	m = press(t, m, runes("m"))

	if got := src.calls[len(src.calls)-1]; got != "maps/provinces/santafe.svg" {
		t.Fatalf("last fetch = %q", got)
	}
	if d := m.Navigator().Displayed(); d.Kind != navigator.MapProvince || d.ProvinceID != "sf" {
		t.Fatalf("Displayed = %+v", d)
	}
	if got := strings.Join(rowIDs(m.Rows()), ","); got != "d1,d2" {
		t.Fatalf("rows = %s", got)
	}
	if m.Rows()[0].Name != "Rosario" {
		t.Errorf("row name = %q", m.Rows()[0].Name)
	}

	m = press(t, m, keyEnter)
	s := m.Navigator().State()
	if s.Level != model.LevelDepartment || s.DepartmentID() != "d1" {
		t.Fatalf("State = %+v", s)
	}
	if !strings.Contains(m.View(), "Puerto") {
		t.Error("panel should list the department cities")
	}
}

func TestDetailMap_UnavailableIsStatusOnly(t *testing.T) {
	m, src := newTestModel(t)

	m = press(t, m, keyDown)
	m = press(t, m, keyEnter)
	m = press(t, m, runes("m"))

	if len(src.calls) != 1 {
		t.Errorf("unexpected fetches %v", src.calls)
	}
	if msg, _ := m.Status(); msg == "" {
		t.Error("expected a status explaining the missing map")
	}
}

func TestBack_ReloadsMaps(t *testing.T) {
	m, src := newTestModel(t)
	m = press(t, m, keyEnter)
	m = press(t, m, runes("m"))
	m = press(t, m, keyEnter)

	m = press(t, m, keyEsc)
	if s := m.Navigator().State(); s.Level != model.LevelProvince {
		t.Fatalf("after back: %+v", s)
	}
	if got := src.calls[len(src.calls)-1]; got != "maps/provinces/santafe.svg" {
		t.Errorf("department back should reload the province map, got %q", got)
	}

	m = press(t, m, keyEsc)
	if s := m.Navigator().State(); s.Level != model.LevelCountry {
		t.Fatalf("after second back: %+v", s)
	}
	if d := m.Navigator().Displayed(); d.Kind != navigator.MapCountry {
		t.Errorf("Displayed = %+v", d)
	}
	if got := strings.Join(rowIDs(m.Rows()), ","); got != "sf,cordoba,malvinas" {
		t.Errorf("rows = %s", got)
	}

	calls := len(src.calls)
	m = press(t, m, keyEsc)
	if len(src.calls) != calls {
		t.Error("back at the country level must not fetch")
	}
}

func TestMapLoadFailure_KeepsMap(t *testing.T) {
	m, src := newTestModel(t)
	delete(src.assets, "maps/provinces/santafe.svg")

	m = press(t, m, keyEnter)
	m = press(t, m, runes("m"))

	if d := m.Navigator().Displayed(); d.Kind != navigator.MapCountry {
		t.Fatalf("failed fetch replaced the map: %+v", d)
	}
	msg, isErr := m.Status()
	if !isErr || !strings.Contains(msg, "santafe.svg") {
		t.Errorf("Status = %q, %v", msg, isErr)
	}
	if len(m.Rows()) != 3 {
		t.Errorf("country rows lost: %v", rowIDs(m.Rows()))
	}
}

func TestStaleMapResultIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, keyEnter)

	next, cmd := m.Update(runes("m"))
	m = next.(Model)
	var stale []tea.Msg
	stale = append(stale, collect(cmd)...)

	// selecting another province supersedes the detail request
	m = press(t, m, keyDown)
	m = press(t, m, keyEnter)

	for _, msg := range stale {
		if ml, ok := msg.(MapLoadedMsg); ok {
			next, _ := m.Update(ml)
			m = next.(Model)
		}
	}
	if d := m.Navigator().Displayed(); d.Kind != navigator.MapCountry {
		t.Errorf("stale province map applied: %+v", d)
	}
	if s := m.Navigator().State(); s.ProvinceID() != "cordoba" {
		t.Errorf("State = %+v", s)
	}
}

func TestWarningMsg_SetsStatus(t *testing.T) {
	ch := make(chan string, 1)
	m, _ := newTestModel(t)
	m.warnings = ch

	next, cmd := m.Update(WarningMsg{Text: "map region \"x\" has no matching province"})
	m = next.(Model)
	if msg, isErr := m.Status(); !isErr || !strings.Contains(msg, "no matching") {
		t.Errorf("Status = %q, %v", msg, isErr)
	}
	if cmd == nil {
		t.Fatal("expected the model to keep listening for warnings")
	}
	ch <- "second"
	found := false
	for _, msg := range collect(cmd) {
		if msg == (WarningMsg{Text: "second"}) {
			found = true
		}
	}
	if !found {
		t.Error("next warning was not delivered")
	}
}

func TestExport_WritesSnapshot(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, keyEnter)
	m = press(t, m, runes("e"))

	msg, isErr := m.Status()
	if isErr {
		t.Fatalf("export failed: %s", msg)
	}
	want := filepath.Join(m.snapshotDir, "drillmap-santa-fe.svg")
	if !strings.Contains(msg, want) {
		t.Errorf("Status = %q, want path %s", msg, want)
	}
}

func TestResizeClamps(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 20; i++ {
		m = press(t, m, runes(">"))
	}
	if m.splitRatio != maxSplitRatio {
		t.Errorf("splitRatio = %v, want %v", m.splitRatio, maxSplitRatio)
	}
	for i := 0; i < 20; i++ {
		m = press(t, m, runes("<"))
	}
	if m.splitRatio < minSplitRatio-1e-9 || m.splitRatio > minSplitRatio+1e-9 {
		t.Errorf("splitRatio = %v, want %v", m.splitRatio, minSplitRatio)
	}
}

func TestView_WindowSize(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)

	out := m.View()
	for _, want := range []string{"drillmap · argentina", "PAÍS", "Santa Fe", "(sin datos)"} {
		if !strings.Contains(out, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestRenderPlain(t *testing.T) {
	m, _ := newTestModel(t)
	out := RenderPlain(m.Navigator())

	for _, want := range []string{"# Argentina", "- Santa Fe (sf)", "- malvinas (malvinas) [sin datos]"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderPlain missing %q:\n%s", want, out)
		}
	}
}

func TestRegionRows_NoMap(t *testing.T) {
	nav := navigator.New(navigator.Options{Hierarchy: testHierarchy()})
	if rows := regionRows(nav); rows != nil {
		t.Errorf("rows before any map = %v", rows)
	}
	if _, ok := nav.Surface().(*surface.SVG); !ok {
		t.Error("default surface should be the SVG surface")
	}
}
