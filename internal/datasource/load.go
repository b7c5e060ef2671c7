package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/drillmap/pkg/loader"
	"github.com/vanderheijden86/drillmap/pkg/metrics"
	"github.com/vanderheijden86/drillmap/pkg/model"
)

// LoadHierarchy fetches and parses the hierarchy document behind ref. Any
// failure is fatal to initialization, so the error carries the reference.
func LoadHierarchy(ctx context.Context, src Source, ref string, opts loader.ParseOptions) (*model.Hierarchy, error) {
	data, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading hierarchy: %w", err)
	}
	stop := metrics.Timer(metrics.HierarchyParse)
	h, err := loader.ParseHierarchyBytes(data, opts)
	stop()
	if err != nil {
		return nil, fmt.Errorf("loading hierarchy from %s: %w", ref, err)
	}
	return h, nil
}
