package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Grid is a single raster band: a row-major matrix of float64 samples with
// NaN as the nodata value. Row 0 is the northernmost row; (MinX, MaxY) is
// the upper-left corner of the upper-left cell.
type Grid struct {
	MinX     float64
	MaxY     float64
	CellSize float64
	Width    int
	Height   int
	Values   []float64
}

// NewGrid allocates a grid filled with NaN.
func NewGrid(minX, maxY, cellSize float64, width, height int) *Grid {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = math.NaN()
	}
	return &Grid{MinX: minX, MaxY: maxY, CellSize: cellSize, Width: width, Height: height, Values: values}
}

// At returns the value at (col, row), NaN outside the grid.
func (g *Grid) At(col, row int) float64 {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return math.NaN()
	}
	return g.Values[row*g.Width+col]
}

// Set stores v at (col, row). Out-of-range indices are ignored.
func (g *Grid) Set(col, row int, v float64) {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return
	}
	g.Values[row*g.Width+col] = v
}

// Bounds returns the grid's spatial extent.
func (g *Grid) Bounds() Bounds {
	return Bounds{
		MinX: g.MinX,
		MinY: g.MaxY - float64(g.Height)*g.CellSize,
		MaxX: g.MinX + float64(g.Width)*g.CellSize,
		MaxY: g.MaxY,
	}
}

// SampleAt returns the nearest-neighbour sample at planar coordinate (x, y),
// NaN outside the grid's extent.
func (g *Grid) SampleAt(x, y float64) float64 {
	col := int(math.Floor((x - g.MinX) / g.CellSize))
	row := int(math.Floor((g.MaxY - y) / g.CellSize))
	return g.At(col, row)
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	values := make([]float64, len(g.Values))
	copy(values, g.Values)
	out := *g
	out.Values = values
	return &out
}

// SameShape reports whether two grids share extent and resolution, the
// precondition for pixel-wise composition.
func (g *Grid) SameShape(o *Grid) bool {
	return g.MinX == o.MinX && g.MaxY == o.MaxY && g.CellSize == o.CellSize &&
		g.Width == o.Width && g.Height == o.Height
}

// RasterImage is one time-stamped observation holding one or more named
// bands. Images are immutable once created; collection transforms operate
// on copies.
type RasterImage struct {
	Timestamp time.Time
	Bands     map[string]*Grid
}

// Band returns the named band or a BandNotFoundError.
func (img RasterImage) Band(name string) (*Grid, error) {
	g, ok := img.Bands[name]
	if !ok {
		return nil, &BandNotFoundError{Band: name}
	}
	return g, nil
}

// Bounds returns the union extent of all bands.
func (img RasterImage) Bounds() Bounds {
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, g := range img.Bands {
		gb := g.Bounds()
		b.MinX = math.Min(b.MinX, gb.MinX)
		b.MinY = math.Min(b.MinY, gb.MinY)
		b.MaxX = math.Max(b.MaxX, gb.MaxX)
		b.MaxY = math.Max(b.MaxY, gb.MaxY)
	}
	return b
}

// clone deep-copies the image so transforms cannot reach back into the
// source collection.
func (img RasterImage) clone() RasterImage {
	bands := make(map[string]*Grid, len(img.Bands))
	for name, g := range img.Bands {
		bands[name] = g.Clone()
	}
	return RasterImage{Timestamp: img.Timestamp, Bands: bands}
}

// bandNames returns the image's band names sorted for deterministic errors.
func (img RasterImage) bandNames() []string {
	names := make([]string, 0, len(img.Bands))
	for name := range img.Bands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (img RasterImage) String() string {
	return fmt.Sprintf("image@%s bands=%v", img.Timestamp.UTC().Format(time.RFC3339), img.bandNames())
}
