package pipeline_test

import (
	"context"
	"math"
	"time"

	"github.com/lkkmills/gee/internal/domain"
	"github.com/lkkmills/gee/internal/observability"
)

// Fixtures shared by the pipeline tests: a 4x2 planar extent at 0.1 cell
// size with two unit-square regions, mirroring the domain test setup.

func square(x0, y0, x1, y1 float64) domain.Polygon {
	return domain.Polygon{Rings: []domain.Ring{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}}
}

func testRegions() []domain.Region {
	return []domain.Region{
		{ID: "A", Name: "alpha", Geometry: square(0, 0, 1, 1)},
		{ID: "B", Name: "beta", Geometry: square(2.5, 0, 3.5, 1)},
	}
}

func testCatalog() *domain.RegionCatalog {
	catalog, err := domain.NewRegionCatalog(testRegions())
	if err != nil {
		panic(err)
	}
	return catalog
}

func constantGrid(v float64) *domain.Grid {
	g := domain.NewGrid(0, 2, 0.1, 40, 20)
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

// zonedGrid holds west over x < 2 and east over x >= 2.
func zonedGrid(west, east float64) *domain.Grid {
	g := domain.NewGrid(0, 2, 0.1, 40, 20)
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

func gradientGrid() *domain.Grid {
	g := domain.NewGrid(0, 2, 0.1, 40, 20)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			g.Set(col, row, math.Sin(float64(col)*0.3)+math.Cos(float64(row)*0.7)+float64(col*row)*0.01)
		}
	}
	return g
}

func imageAt(ts time.Time, band string, g *domain.Grid) domain.RasterImage {
	return domain.RasterImage{Timestamp: ts, Bands: map[string]*domain.Grid{band: g}}
}

func utc(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh, unregistered set to avoid "already registered" panics.
	return observability.NewMetricsForTesting()
}

// mockSink records exported batches and optionally fails.
type mockSink struct {
	batches [][]domain.ZonalRecord
	err     error
}

func (m *mockSink) ExportBatch(_ context.Context, records []domain.ZonalRecord) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, records)
	return nil
}

func (m *mockSink) all() []domain.ZonalRecord {
	var out []domain.ZonalRecord
	for _, batch := range m.batches {
		out = append(out, batch...)
	}
	return out
}
