// Package check verifies that every map and flag a dataset declares can be
// fetched, so broken references show up before anyone clicks on them.
package check

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/model"
)

// DefaultConcurrency bounds parallel fetches.
const DefaultConcurrency = 8

// Kind classifies an asset reference.
type Kind string

const (
	KindCountryMap  Kind = "country-map"
	KindProvinceMap Kind = "province-map"
	KindFlag        Kind = "flag"
)

// Asset is one fetchable reference and the entity that declares it.
type Asset struct {
	Kind  Kind
	Owner string // dotted entity path, e.g. "sf.d1.rosario"
	Ref   string
}

// Result is the outcome of fetching one asset.
type Result struct {
	Asset
	Size int
	Err  error
}

// Report collects the results of a run, in Collect order.
type Report struct {
	Results []Result
	Skipped int
}

// Failed returns the results that could not be fetched.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every asset was fetched.
func (r Report) OK() bool { return len(r.Failed()) == 0 }

// Summary is a one-line human summary.
func (r Report) Summary() string {
	failed := len(r.Failed())
	return fmt.Sprintf("%d assets checked, %d failed, %d inline skipped", len(r.Results), failed, r.Skipped)
}

// Source fetches asset bytes.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Options configures Run.
type Options struct {
	Concurrency int
	// Progress receives a progress bar when set.
	Progress io.Writer
	// SkipFlags limits the run to maps.
	SkipFlags bool
}

// Collect lists every asset the hierarchy references through r, including
// the convention-based flags of entities that declare none. Inline data:
// references are counted as skipped. Duplicate references are listed once.
func Collect(h *model.Hierarchy, r assetpath.Resolver, countryMap string, skipFlags bool) ([]Asset, int) {
	var assets []Asset
	skipped := 0
	seen := make(map[string]bool)
	add := func(kind Kind, owner, ref string) {
		if ref == "" {
			return
		}
		if strings.HasPrefix(strings.ToLower(ref), "data:") {
			skipped++
			return
		}
		if seen[ref] {
			return
		}
		seen[ref] = true
		assets = append(assets, Asset{Kind: kind, Owner: owner, Ref: ref})
	}

	add(KindCountryMap, "country", countryMap)
	if !skipFlags {
		add(KindFlag, "country", h.Country.Flag)
	}
	for _, p := range h.Provinces {
		add(KindProvinceMap, p.ID, r.ProvinceMap(p.Map))
		if skipFlags {
			continue
		}
		add(KindFlag, p.ID, r.ProvinceFlag(p.ID, p.Flag))
		for _, d := range p.Departments {
			owner := p.ID + "." + d.ID
			add(KindFlag, owner, r.DepartmentFlag(p.ID, d.ID, d.Flag))
			for _, c := range d.Cities {
				add(KindFlag, owner+"."+c.ID, r.CityFlag(p.ID, d.ID, c.ID, c.Flag))
			}
		}
	}
	return assets, skipped
}

// Run fetches every asset with bounded parallelism. Individual failures are
// recorded in the report; only context cancellation aborts the run.
func Run(ctx context.Context, src Source, assets []Asset, opts Options) (Report, error) {
	defer debug.LogEnterExit("check.Run")()

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		w := opts.Progress
		bar = progressbar.NewOptions(len(assets),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Checking assets"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}

	results := make([]Result, len(assets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, a := range assets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			body, err := src.Fetch(ctx, a.Ref)
			results[i] = Result{Asset: a, Size: len(body), Err: err}
			if err != nil {
				debug.Log("check: %s %s (%s): %v", a.Kind, a.Ref, a.Owner, err)
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{Results: results}, fmt.Errorf("asset check interrupted: %w", err)
	}
	return Report{Results: results}, nil
}

// WriteReport prints failures grouped by kind, then the summary line.
func WriteReport(w io.Writer, r Report) {
	failed := r.Failed()
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Kind < failed[j].Kind })
	for _, res := range failed {
		fmt.Fprintf(w, "  ✗ %-13s %-24s %s: %v\n", res.Kind, res.Owner, res.Ref, res.Err)
	}
	fmt.Fprintln(w, r.Summary())
}
