package domain

import (
	"fmt"
	"math"
	"time"
)

// Statistic names a reduction. Mean is the only supported statistic: it is
// insensitive to image order within a bucket, which keeps composites
// reproducible regardless of archive ordering.
type Statistic string

// StatMean is the per-pixel and per-region mean.
const StatMean Statistic = "mean"

// Valid reports whether the statistic is supported.
func (s Statistic) Valid() bool {
	return s == StatMean
}

// Composite is one raster produced by reducing all images of a calendar
// year. Empty marks a year with zero contributing images; its pixels are
// all NaN and downstream reductions report nils, never a skipped year.
type Composite struct {
	Year  int
	Image RasterImage
	Empty bool
}

// AnnualComposites buckets the collection into calendar years and reduces
// each bucket pixel-wise with stat, returning one composite per year in
// [startYear, endYear] inclusive. Buckets are half-open UTC years: an image
// stamped exactly at midnight January 1 falls into the new year.
//
// All images must share each band's grid shape; a mismatch is a fatal
// configuration error. When the collection itself is empty the composites
// carry no bands at all, and the caller is expected to emit nil values for
// every region (see the orchestrator).
func AnnualComposites(c RasterCollection, startYear, endYear int, stat Statistic) ([]Composite, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("invalid year range [%d, %d]", startYear, endYear)
	}
	if !stat.Valid() {
		return nil, fmt.Errorf("unsupported statistic %q", stat)
	}

	reference, err := referenceShapes(c)
	if err != nil {
		return nil, err
	}

	buckets := make(map[int][]RasterImage)
	for _, img := range c.images {
		y := img.Timestamp.UTC().Year()
		buckets[y] = append(buckets[y], img)
	}

	out := make([]Composite, 0, endYear-startYear+1)
	for year := startYear; year <= endYear; year++ {
		out = append(out, compositeYear(year, buckets[year], reference, stat))
	}
	return out, nil
}

// YearOf returns the calendar-year bucket of a timestamp.
func YearOf(t time.Time) int {
	return t.UTC().Year()
}

// referenceShapes collects one reference grid per band and verifies every
// image agrees with it.
func referenceShapes(c RasterCollection) (map[string]*Grid, error) {
	reference := make(map[string]*Grid)
	for _, img := range c.images {
		for name, g := range img.Bands {
			ref, ok := reference[name]
			if !ok {
				reference[name] = g
				continue
			}
			if !g.SameShape(ref) {
				return nil, fmt.Errorf("band %q: grid shape differs across images", name)
			}
		}
	}
	return reference, nil
}

// compositeYear reduces one bucket. A missing bucket still yields a
// composite, shaped like the reference grids, with every pixel NaN.
func compositeYear(year int, bucket []RasterImage, reference map[string]*Grid, stat Statistic) Composite {
	ts := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	_ = stat // mean is the only statistic; validated by the caller
	bands := make(map[string]*Grid, len(reference))
	for name, ref := range reference {
		bands[name] = compositeBand(bucket, name, ref)
	}
	return Composite{
		Year:  year,
		Image: RasterImage{Timestamp: ts, Bands: bands},
		Empty: len(bucket) == 0,
	}
}

// compositeBand computes the per-pixel mean over the bucket, ignoring NaN
// samples. A pixel with no valid samples stays NaN.
func compositeBand(bucket []RasterImage, name string, ref *Grid) *Grid {
	out := NewGrid(ref.MinX, ref.MaxY, ref.CellSize, ref.Width, ref.Height)
	for i := range out.Values {
		sum, count := 0.0, 0
		for _, img := range bucket {
			g, ok := img.Bands[name]
			if !ok {
				continue
			}
			v := g.Values[i]
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
		}
		if count > 0 {
			out.Values[i] = sum / float64(count)
		}
	}
	return out
}
