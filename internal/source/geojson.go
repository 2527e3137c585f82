// Package source adapts the external data collaborators (the region
// boundary file and the raster archive) into domain types. Everything here
// is read-only input loading; the pipeline never writes back.
package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lkkmills/gee/internal/domain"
)

// featureCollection mirrors the subset of GeoJSON the catalog needs.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         any             `json:"id,omitempty"`
	Properties map[string]any  `json:"properties"`
	Geometry   geoJSONGeometry `json:"geometry"`
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadRegionCatalog reads a GeoJSON FeatureCollection of Polygon or
// MultiPolygon features and builds the validated region catalog. Every
// feature needs a unique "name" property; "id" falls back to the name.
// Geometry or naming problems are fatal here: the pipeline never runs
// against a catalog it cannot trust.
func LoadRegionCatalog(path string) (*domain.RegionCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("regions file: expected FeatureCollection, got %q", fc.Type)
	}

	regions := make([]domain.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		region, err := toRegion(f)
		if err != nil {
			return nil, fmt.Errorf("regions file: feature %d: %w", i, err)
		}
		regions = append(regions, region)
	}
	return domain.NewRegionCatalog(regions)
}

func toRegion(f feature) (domain.Region, error) {
	name, _ := f.Properties["name"].(string)
	if name == "" {
		return domain.Region{}, fmt.Errorf("missing name property")
	}

	id := name
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			id = v
		}
	case float64:
		id = fmt.Sprintf("%.0f", v)
	}
	if propID, ok := f.Properties["id"].(string); ok && propID != "" {
		id = propID
	}

	poly, err := toPolygon(f.Geometry)
	if err != nil {
		return domain.Region{}, err
	}
	return domain.Region{ID: id, Name: name, Geometry: poly}, nil
}

// toPolygon flattens Polygon and MultiPolygon coordinates into one ring
// set; the even-odd containment rule treats parts and holes uniformly.
func toPolygon(g geoJSONGeometry) (domain.Polygon, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return domain.Polygon{}, fmt.Errorf("polygon coordinates: %w", err)
		}
		return ringsToPolygon(rings)
	case "MultiPolygon":
		var parts [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &parts); err != nil {
			return domain.Polygon{}, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		var all [][][]float64
		for _, part := range parts {
			all = append(all, part...)
		}
		return ringsToPolygon(all)
	default:
		return domain.Polygon{}, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func ringsToPolygon(rings [][][]float64) (domain.Polygon, error) {
	poly := domain.Polygon{Rings: make([]domain.Ring, 0, len(rings))}
	for ri, ring := range rings {
		out := make(domain.Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				return domain.Polygon{}, fmt.Errorf("ring %d: position with fewer than 2 coordinates", ri)
			}
			out = append(out, domain.Point{X: pos[0], Y: pos[1]})
		}
		poly.Rings = append(poly.Rings, out)
	}
	return poly, nil
}
