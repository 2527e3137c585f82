package domain

import (
	"errors"
	"fmt"
)

// Region is one polygon aggregation unit. Regions are loaded once from the
// catalog source and never mutated afterwards.
type Region struct {
	ID       string
	Name     string
	Geometry Polygon
}

// RegionCatalog holds the fixed set of regions every variable is aggregated
// over. Construction validates the whole set; a catalog that loaded is safe
// to share read-only across concurrent reductions.
type RegionCatalog struct {
	regions []Region
}

// NewRegionCatalog validates the regions and returns a catalog preserving
// their order. Names must be present and unique; geometry must pass
// Polygon.Validate. Any violation is fatal: the pipeline never aggregates
// over a region it cannot identify or mask.
func NewRegionCatalog(regions []Region) (*RegionCatalog, error) {
	if len(regions) == 0 {
		return nil, errors.New("region catalog is empty")
	}
	seen := make(map[string]struct{}, len(regions))
	out := make([]Region, len(regions))
	for i, r := range regions {
		if r.Name == "" {
			return nil, fmt.Errorf("region %d: name is required", i)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("region %q: duplicate name", r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.ID == "" {
			r.ID = r.Name
		}
		if err := r.Geometry.Validate(); err != nil {
			return nil, fmt.Errorf("region %q: invalid geometry: %w", r.Name, err)
		}
		out[i] = r
	}
	return &RegionCatalog{regions: out}, nil
}

// Regions returns the regions in catalog order. The slice is a copy; the
// catalog itself stays immutable.
func (c *RegionCatalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Len returns the number of regions.
func (c *RegionCatalog) Len() int {
	return len(c.regions)
}
