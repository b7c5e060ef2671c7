package check

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/model"
)

type fakeSource struct {
	missing map[string]bool
	calls   atomic.Int32
}

func (f *fakeSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	f.calls.Add(1)
	if f.missing[ref] {
		return nil, errors.New("404 not found")
	}
	return []byte("<svg/>"), nil
}

func testHierarchy() *model.Hierarchy {
	return &model.Hierarchy{
		Country: model.Country{Name: "Argentina", Flag: "data:image/svg+xml;base64,AAAA"},
		Provinces: []model.Province{
			{ID: "sf", Name: "Santa Fe", Map: "santafe.svg", Flag: "flag.svg", Departments: []model.Department{
				{ID: "d1", Name: "Rosario", Cities: []model.City{
					{ID: "ros", Name: "Rosario"},
					{ID: "fun", Name: "Funes", Flag: "https://example.org/funes.png"},
				}},
			}},
			{ID: "cordoba", Name: "Córdoba"},
		},
	}
}

var resolver = assetpath.Resolver{ProvincesRoot: "flags/provinces", MapsRoot: "maps/provinces"}

func TestCollect(t *testing.T) {
	assets, skipped := Collect(testHierarchy(), resolver, "maps/argentina.svg", false)

	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 inline flag", skipped)
	}
	var refs []string
	for _, a := range assets {
		refs = append(refs, a.Ref)
	}
	want := []string{
		"maps/argentina.svg",
		"maps/provinces/santafe.svg",
		"flags/provinces/sf/flag.svg",
		"flags/provinces/sf/departments/d1/department.svg",
		"flags/provinces/sf/departments/d1/cities/ros.svg",
		"https://example.org/funes.png",
		"flags/provinces/cordoba/province.svg",
	}
	if strings.Join(refs, "\n") != strings.Join(want, "\n") {
		t.Errorf("refs =\n%s\nwant\n%s", strings.Join(refs, "\n"), strings.Join(want, "\n"))
	}
	if assets[4].Owner != "sf.d1.ros" {
		t.Errorf("owner = %q", assets[4].Owner)
	}
}

func TestCollect_SkipFlags(t *testing.T) {
	assets, skipped := Collect(testHierarchy(), resolver, "maps/argentina.svg", true)
	if len(assets) != 2 || skipped != 0 {
		t.Fatalf("assets = %+v, skipped = %d", assets, skipped)
	}
	for _, a := range assets {
		if a.Kind == KindFlag {
			t.Errorf("flag listed with SkipFlags: %+v", a)
		}
	}
}

func TestRun_RecordsFailures(t *testing.T) {
	assets, skipped := Collect(testHierarchy(), resolver, "maps/argentina.svg", false)
	src := &fakeSource{missing: map[string]bool{"maps/provinces/santafe.svg": true}}

	var progress bytes.Buffer
	report, err := Run(context.Background(), src, assets, Options{Concurrency: 2, Progress: &progress})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	report.Skipped = skipped

	if int(src.calls.Load()) != len(assets) {
		t.Errorf("fetches = %d, want %d", src.calls.Load(), len(assets))
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Kind != KindProvinceMap || failed[0].Owner != "sf" {
		t.Fatalf("failed = %+v", failed)
	}
	if report.OK() {
		t.Error("report with a failure should not be OK")
	}
	if report.Results[0].Size != len("<svg/>") {
		t.Errorf("size = %d", report.Results[0].Size)
	}

	var out bytes.Buffer
	WriteReport(&out, report)
	if !strings.Contains(out.String(), "santafe.svg") || !strings.Contains(out.String(), "7 assets checked, 1 failed, 1 inline skipped") {
		t.Errorf("report output:\n%s", out.String())
	}
}

func TestRun_Cancelled(t *testing.T) {
	assets, _ := Collect(testHierarchy(), resolver, "maps/argentina.svg", false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, &fakeSource{}, assets, Options{Concurrency: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
