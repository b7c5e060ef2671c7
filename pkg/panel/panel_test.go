package panel

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/model"
)

var resolver = assetpath.Resolver{ProvincesRoot: "flags/provinces", MapsRoot: "maps/provinces"}

func hierarchy() *model.Hierarchy {
	return &model.Hierarchy{
		Country: model.Country{Name: "Argentina", Info: "República Argentina", Flag: "flags/argentina.svg"},
		Provinces: []model.Province{
			{
				ID: "sf", Name: "Santa Fe", Info: "Provincia del litoral", Flag: "santafe.svg",
				Departments: []model.Department{
					{ID: "d1", Name: "Rosario", Cities: []model.City{
						{ID: "rosario", Name: "Rosario", Info: "Cuna de la bandera"},
						{ID: "funes", Name: "Funes", Flag: "https://x.org/funes.png"},
					}},
					{ID: "d2", Name: "La Capital"},
				},
			},
			{ID: "cordoba", Name: "Córdoba"},
		},
	}
}

func TestRender_Country(t *testing.T) {
	h := hierarchy()
	p := Render(h, model.Selection{Level: model.LevelCountry}, resolver)

	want := &Section{Name: "Argentina", Info: "República Argentina", Flag: "flags/argentina.svg"}
	if !reflect.DeepEqual(p.Country, want) {
		t.Errorf("Country = %+v", p.Country)
	}
	if p.Province != nil || p.Department != nil || p.ShowBack {
		t.Errorf("country panel has extra content: %+v", p)
	}
	if p.Title() != "Argentina" || p.Flag() != "flags/argentina.svg" {
		t.Errorf("Title/Flag = %q/%q", p.Title(), p.Flag())
	}
}

func TestRender_Province(t *testing.T) {
	h := hierarchy()
	p := Render(h, model.Selection{Level: model.LevelProvince, Province: &h.Provinces[0]}, resolver)

	if p.Country != nil {
		t.Error("country section must be hidden at province level")
	}
	if p.Province.Flag != "flags/provinces/sf/santafe.svg" {
		t.Errorf("province flag = %q", p.Province.Flag)
	}
	if !p.ShowBack {
		t.Error("back must be offered below the country level")
	}

	p = Render(h, model.Selection{Level: model.LevelProvince, Province: &h.Provinces[1]}, resolver)
	if p.Province.Info != NoInfo {
		t.Errorf("missing info should fall back, got %q", p.Province.Info)
	}
	if p.Province.Flag != "flags/provinces/cordoba/province.svg" {
		t.Errorf("convention flag = %q", p.Province.Flag)
	}
}

func TestRender_DepartmentWithCities(t *testing.T) {
	h := hierarchy()
	sf := &h.Provinces[0]
	p := Render(h, model.Selection{Level: model.LevelDepartment, Province: sf, Department: &sf.Departments[0]}, resolver)

	if p.Department == nil || p.Department.Flag != "flags/provinces/sf/departments/d1/department.svg" {
		t.Fatalf("department section = %+v", p.Department)
	}
	if p.Province == nil || p.Province.ID != "sf" {
		t.Error("province section should stay visible at department level")
	}
	want := []CityEntry{
		{ID: "rosario", Name: "Rosario", Info: "Cuna de la bandera", Flag: "flags/provinces/sf/departments/d1/cities/rosario.svg"},
		{ID: "funes", Name: "Funes", Info: NoInfo, Flag: "https://x.org/funes.png"},
	}
	if !reflect.DeepEqual(p.Cities, want) {
		t.Errorf("Cities = %+v", p.Cities)
	}
	if p.CitiesNote != "" {
		t.Errorf("unexpected note %q", p.CitiesNote)
	}
}

func TestRender_DepartmentWithoutCities(t *testing.T) {
	h := hierarchy()
	sf := &h.Provinces[0]
	p := Render(h, model.Selection{Level: model.LevelDepartment, Province: sf, Department: &sf.Departments[1]}, resolver)

	if len(p.Cities) != 0 || p.CitiesNote != NoCities {
		t.Errorf("expected no-cities note, got %+v / %q", p.Cities, p.CitiesNote)
	}
	if !strings.Contains(p.Markdown(), NoCities) {
		t.Error("markdown should carry the no-cities note")
	}
}

func TestRender_Deterministic(t *testing.T) {
	h := hierarchy()
	sel := model.Selection{Level: model.LevelProvince, Province: &h.Provinces[0]}
	if !reflect.DeepEqual(Render(h, sel, resolver), Render(h, sel, resolver)) {
		t.Error("Render must be a pure function")
	}
}

func TestMarkdown(t *testing.T) {
	h := hierarchy()
	sf := &h.Provinces[0]
	md := Render(h, model.Selection{Level: model.LevelDepartment, Province: sf, Department: &sf.Departments[0]}, resolver).Markdown()

	for _, want := range []string{"# Santa Fe", "## Rosario", "### Ciudades", "- **Funes**", "cities/rosario.svg"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
