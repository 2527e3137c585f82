package pipeline

import (
	"context"
	"errors"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/lkkmills/gee/internal/domain"
)

// RegionOutcome is one region's reduction result. Err carries a recoverable
// per-region failure (budget exceeded); the orchestrator converts it to a
// nil value so one oversized region never aborts a run.
type RegionOutcome struct {
	RegionID   string
	RegionName string
	Value      *float64
	Err        error
}

// ZonalAggregationStrategy reduces one raster over a set of regions. Both
// implementations return outcomes in region order and must be
// value-equivalent on identical inputs: which one runs is a performance
// choice, never a semantic one.
type ZonalAggregationStrategy interface {
	Name() string
	Reduce(ctx context.Context, grid *domain.Grid, regions []domain.Region) ([]RegionOutcome, error)
}

// PerRegionStrategy clips and reduces one region at a time. Used for static
// single-raster variables, where a batched pass has nothing to amortize and
// the simple loop is easier to reason about.
type PerRegionStrategy struct {
	Statistic domain.Statistic
	Scale     float64
	TileHint  int
	MaxPixels int64
}

func (s *PerRegionStrategy) Name() string { return "per_region" }

func (s *PerRegionStrategy) Reduce(ctx context.Context, grid *domain.Grid, regions []domain.Region) ([]RegionOutcome, error) {
	out := make([]RegionOutcome, len(regions))
	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := domain.ReduceRegion(grid, region, s.Statistic, s.Scale, s.TileHint, s.MaxPixels)
		outcome := RegionOutcome{RegionID: region.ID, RegionName: region.Name}
		switch {
		case err == nil:
			outcome.Value = value
		case isBudgetError(err):
			outcome.Err = err
		default:
			return nil, err
		}
		out[i] = outcome
	}
	return out, nil
}

// BatchedStrategy walks the sampling lattice once and accumulates into
// every region simultaneously, amortizing the pass across all regions. Used
// for temporal composites where many periods times many regions are reduced.
//
// Lattice row chunks are processed in parallel (bounded by Workers), each
// into its own accumulator; partial sums merge in chunk order so results do
// not depend on scheduling. Regions over budget are excluded up front and
// reported via RegionOutcome.Err.
type BatchedStrategy struct {
	Statistic domain.Statistic
	Scale     float64
	TileHint  int
	MaxPixels int64
	Workers   int
}

func (s *BatchedStrategy) Name() string { return "batched" }

// accumulator holds per-region running sums for one lattice chunk.
type accumulator struct {
	sums   []float64
	counts []int64
}

func newAccumulator(n int) *accumulator {
	return &accumulator{sums: make([]float64, n), counts: make([]int64, n)}
}

func (s *BatchedStrategy) Reduce(ctx context.Context, grid *domain.Grid, regions []domain.Region) ([]RegionOutcome, error) {
	if !s.Statistic.Valid() {
		return nil, errors.New("unsupported statistic " + string(s.Statistic))
	}
	lat, err := domain.NewLattice(grid, s.Scale)
	if err != nil {
		return nil, err
	}

	out := make([]RegionOutcome, len(regions))
	bounds := make([]domain.Bounds, len(regions))
	over := make([]bool, len(regions))
	for i, region := range regions {
		out[i] = RegionOutcome{RegionID: region.ID, RegionName: region.Name}
		bounds[i] = region.Geometry.Bounds()
		if s.MaxPixels > 0 {
			if fp := lat.Footprint(bounds[i]); fp > s.MaxPixels {
				over[i] = true
				out[i].Err = &domain.BudgetExceededError{Region: region.Name, Pixels: fp, Budget: s.MaxPixels}
			}
		}
	}

	chunk := s.TileHint
	if chunk <= 0 {
		chunk = lat.Rows
	}
	if chunk <= 0 {
		chunk = 1
	}
	var starts []int
	for row := 0; row < lat.Rows; row += chunk {
		starts = append(starts, row)
	}

	partials := make([]*accumulator, len(starts))
	g, gctx := errgroup.WithContext(ctx)
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}
	for ci, start := range starts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			acc := newAccumulator(len(regions))
			last := min(start+chunk-1, lat.Rows-1)
			s.accumulateRows(lat, grid, regions, bounds, over, start, last, acc)
			partials[ci] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in chunk order: deterministic regardless of worker scheduling.
	total := newAccumulator(len(regions))
	for _, acc := range partials {
		for i := range regions {
			total.sums[i] += acc.sums[i]
			total.counts[i] += acc.counts[i]
		}
	}

	for i := range regions {
		if over[i] || total.counts[i] == 0 {
			continue
		}
		mean := total.sums[i] / float64(total.counts[i])
		out[i].Value = &mean
	}
	return out, nil
}

// accumulateRows assigns every valid lattice sample in [rowLo, rowHi] to
// the regions containing it.
func (s *BatchedStrategy) accumulateRows(lat domain.Lattice, grid *domain.Grid, regions []domain.Region, bounds []domain.Bounds, over []bool, rowLo, rowHi int, acc *accumulator) {
	for row := rowLo; row <= rowHi; row++ {
		for col := 0; col < lat.Cols; col++ {
			x, y := lat.Center(col, row)
			pt := domain.Point{X: x, Y: y}
			for i, region := range regions {
				if over[i] || !bounds[i].ContainsPoint(pt) {
					continue
				}
				if !region.Geometry.Contains(pt) {
					continue
				}
				v := grid.SampleAt(x, y)
				if math.IsNaN(v) {
					continue
				}
				acc.sums[i] += v
				acc.counts[i]++
			}
		}
	}
}

// isBudgetError reports whether err is the recoverable per-region budget
// failure.
func isBudgetError(err error) bool {
	var budget *domain.BudgetExceededError
	return errors.As(err, &budget)
}
