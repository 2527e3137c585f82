package domain

import (
	"math"
	"time"
)

// Shared fixtures: a 4x2 planar extent at 0.1 cell size, with two unit-square
// regions far enough apart that their bounding boxes never touch. Lattice
// sample centers at scale 0.1 land at x.x5 coordinates, strictly inside or
// outside every region edge.

func constantGrid(v float64) *Grid {
	g := NewGrid(0, 2, 0.1, 40, 20)
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

// zonedGrid holds west over x < 2 and east over x >= 2.
func zonedGrid(west, east float64) *Grid {
	g := NewGrid(0, 2, 0.1, 40, 20)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			x := g.MinX + (float64(col)+0.5)*g.CellSize
			if x < 2 {
				g.Set(col, row, west)
			} else {
				g.Set(col, row, east)
			}
		}
	}
	return g
}

// gradientGrid varies with position so reordered summation is detectable.
func gradientGrid() *Grid {
	g := NewGrid(0, 2, 0.1, 40, 20)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			g.Set(col, row, math.Sin(float64(col)*0.3)+math.Cos(float64(row)*0.7)+float64(col*row)*0.01)
		}
	}
	return g
}

func square(x0, y0, x1, y1 float64) Polygon {
	return Polygon{Rings: []Ring{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}}
}

func regionA() Region {
	return Region{ID: "A", Name: "alpha", Geometry: square(0, 0, 1, 1)}
}

func regionB() Region {
	return Region{ID: "B", Name: "beta", Geometry: square(2.5, 0, 3.5, 1)}
}

func imageAt(ts time.Time, band string, g *Grid) RasterImage {
	return RasterImage{Timestamp: ts, Bands: map[string]*Grid{band: g}}
}

func utc(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
