package domain

import (
	"fmt"
	"math"
)

// RegionValue is the spatial-reduction result for one region. Value is nil
// when the region had no valid samples in the raster's domain; the region
// is never dropped from the result set.
type RegionValue struct {
	RegionID   string
	RegionName string
	Value      *float64
}

// Lattice is the resampling grid a zonal reduction walks: cell centers
// spaced Step apart, anchored at the raster's origin. Anchoring at the
// origin, never at a region's bounding box, is what makes a batched
// full-lattice pass and a per-region clipped pass visit identical sample
// sets for every region.
type Lattice struct {
	OriginX float64
	OriginY float64
	Step    float64
	Cols    int
	Rows    int
}

// NewLattice builds the resampling lattice covering the grid at the given
// scale. Scale must be positive.
func NewLattice(g *Grid, scale float64) (Lattice, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Lattice{}, fmt.Errorf("invalid scale %v", scale)
	}
	extentX := float64(g.Width) * g.CellSize
	extentY := float64(g.Height) * g.CellSize
	return Lattice{
		OriginX: g.MinX,
		OriginY: g.MaxY,
		Step:    scale,
		Cols:    int(math.Ceil(extentX / scale)),
		Rows:    int(math.Ceil(extentY / scale)),
	}, nil
}

// Center returns the planar coordinate of a lattice cell center.
func (l Lattice) Center(col, row int) (x, y float64) {
	return l.OriginX + (float64(col)+0.5)*l.Step, l.OriginY - (float64(row)+0.5)*l.Step
}

// CellRange clamps a bounding box to lattice index ranges. ok is false when
// the box misses the lattice entirely.
func (l Lattice) CellRange(b Bounds) (colLo, colHi, rowLo, rowHi int, ok bool) {
	colLo = int(math.Floor((b.MinX - l.OriginX) / l.Step))
	colHi = int(math.Floor((b.MaxX - l.OriginX) / l.Step))
	rowLo = int(math.Floor((l.OriginY - b.MaxY) / l.Step))
	rowHi = int(math.Floor((l.OriginY - b.MinY) / l.Step))
	colLo = max(colLo, 0)
	rowLo = max(rowLo, 0)
	colHi = min(colHi, l.Cols-1)
	rowHi = min(rowHi, l.Rows-1)
	if colLo > colHi || rowLo > rowHi {
		return 0, 0, 0, 0, false
	}
	return colLo, colHi, rowLo, rowHi, true
}

// Footprint returns the number of lattice cells a region's bounding box
// covers, the quantity checked against the pixel budget before any
// masking work happens.
func (l Lattice) Footprint(b Bounds) int64 {
	colLo, colHi, rowLo, rowHi, ok := l.CellRange(b)
	if !ok {
		return 0
	}
	return int64(colHi-colLo+1) * int64(rowHi-rowLo+1)
}

// ReduceRegion masks the grid to one region and returns the mean of the
// valid masked samples at the given scale, or nil when nothing valid falls
// inside the region. tileHint bounds how many lattice rows are walked per
// internal chunk; it affects memory and scheduling only, never the value.
// maxPixels > 0 enforces the per-region budget.
func ReduceRegion(g *Grid, region Region, stat Statistic, scale float64, tileHint int, maxPixels int64) (*float64, error) {
	if !stat.Valid() {
		return nil, fmt.Errorf("unsupported statistic %q", stat)
	}
	lat, err := NewLattice(g, scale)
	if err != nil {
		return nil, err
	}

	b := region.Geometry.Bounds()
	if maxPixels > 0 {
		if fp := lat.Footprint(b); fp > maxPixels {
			return nil, &BudgetExceededError{Region: region.Name, Pixels: fp, Budget: maxPixels}
		}
	}

	colLo, colHi, rowLo, rowHi, ok := lat.CellRange(b)
	if !ok {
		return nil, nil
	}

	chunk := tileHint
	if chunk <= 0 {
		chunk = rowHi - rowLo + 1
	}

	sum, count := 0.0, 0
	for row := rowLo; row <= rowHi; row += chunk {
		last := min(row+chunk-1, rowHi)
		for r := row; r <= last; r++ {
			for c := colLo; c <= colHi; c++ {
				x, y := lat.Center(c, r)
				if !region.Geometry.Contains(Point{X: x, Y: y}) {
					continue
				}
				v := g.SampleAt(x, y)
				if math.IsNaN(v) {
					continue
				}
				sum += v
				count++
			}
		}
	}
	if count == 0 {
		return nil, nil
	}
	mean := sum / float64(count)
	return &mean, nil
}
