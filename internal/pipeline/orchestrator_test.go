package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lkkmills/gee/internal/domain"
	"github.com/lkkmills/gee/internal/pipeline"
)

func newTestOrchestrator() *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(testCatalog(), slog.Default(), newTestMetrics(), 2)
}

func temporalSpec() domain.VariableSpec {
	return domain.VariableSpec{
		Name:      "nightlights",
		Band:      "avg_rad",
		Temporal:  true,
		StartYear: 2000,
		EndYear:   2001,
		Scale:     0.1,
		Statistic: domain.StatMean,
		TileHint:  4,
	}
}

func staticSpec() domain.VariableSpec {
	return domain.VariableSpec{
		Name:      "elevation",
		Band:      "elevation",
		Scale:     0.1,
		Statistic: domain.StatMean,
		TileHint:  4,
	}
}

// zonedCollection yields per-year means of 10 (alpha) and 20 (beta) for
// 2000 and 2001.
func zonedCollection(band string) domain.RasterCollection {
	return domain.NewRasterCollection(
		imageAt(utc(2000, time.March, 15), band, zonedGrid(8, 16)),
		imageAt(utc(2000, time.November, 15), band, zonedGrid(12, 24)),
		imageAt(utc(2001, time.May, 15), band, zonedGrid(10, 20)),
	)
}

func TestPlanTemporal(t *testing.T) {
	o := newTestOrchestrator()

	t.Run("valid plan", func(t *testing.T) {
		plan, err := o.PlanTemporal(temporalSpec(), zonedCollection("avg_rad"))
		require.NoError(t, err)
		assert.Equal(t, "nightlights", plan.Variable().Name)
	})

	t.Run("missing band fails at planning time", func(t *testing.T) {
		_, err := o.PlanTemporal(temporalSpec(), zonedCollection("other_band"))
		require.Error(t, err)
		var notFound *domain.BandNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("static spec rejected", func(t *testing.T) {
		_, err := o.PlanTemporal(staticSpec(), zonedCollection("elevation"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "use PlanStatic")
	})

	t.Run("invalid spec", func(t *testing.T) {
		spec := temporalSpec()
		spec.Scale = 0
		_, err := o.PlanTemporal(spec, zonedCollection("avg_rad"))
		assert.Error(t, err)
	})
}

func TestPlanStatic(t *testing.T) {
	o := newTestOrchestrator()
	img := imageAt(utc(2000, time.January, 1), "elevation", constantGrid(300))

	plan, err := o.PlanStatic(staticSpec(), img)
	require.NoError(t, err)
	assert.Equal(t, "elevation", plan.Variable().Name)

	t.Run("temporal spec rejected", func(t *testing.T) {
		_, err := o.PlanStatic(temporalSpec(), img)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "use PlanTemporal")
	})

	t.Run("missing band", func(t *testing.T) {
		_, err := o.PlanStatic(staticSpec(), imageAt(utc(2000, time.January, 1), "other", constantGrid(1)))
		var notFound *domain.BandNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestMaterializeTemporal(t *testing.T) {
	fixed := time.Date(2024, time.April, 26, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	o := newTestOrchestrator()
	plan, err := o.PlanTemporal(temporalSpec(), zonedCollection("avg_rad"))
	require.NoError(t, err)

	records, err := o.Materialize(context.Background(), plan)
	require.NoError(t, err)

	// 2 regions x 2 years, year-ascending with catalog order within a year.
	require.Len(t, records, 4)
	type key struct {
		region string
		year   int
	}
	gotOrder := make([]key, len(records))
	for i, r := range records {
		require.NotNil(t, r.Period)
		gotOrder[i] = key{region: r.RegionID, year: *r.Period}
	}
	wantOrder := []key{
		{"A", 2000}, {"B", 2000},
		{"A", 2001}, {"B", 2001},
	}
	assert.Empty(t, cmp.Diff(wantOrder, gotOrder, cmp.AllowUnexported(key{})))

	wantValues := map[string]float64{"A": 10, "B": 20}
	for _, r := range records {
		assert.Equal(t, "nightlights", r.Variable)
		assert.Equal(t, "mean", r.Statistic)
		assert.Equal(t, fixed, r.ProcessedAt)
		assert.Equal(t, records[0].RunID, r.RunID, "one run id per materialization")
		require.NotNil(t, r.Value, "region %s year %d", r.RegionID, *r.Period)
		assert.InDelta(t, wantValues[r.RegionID], *r.Value, 1e-9)
	}
	assert.NotEmpty(t, records[0].RunID)
}

func TestMaterializeTemporalEmptyYear(t *testing.T) {
	o := newTestOrchestrator()
	spec := temporalSpec()
	spec.EndYear = 2002 // no 2002 images

	plan, err := o.PlanTemporal(spec, zonedCollection("avg_rad"))
	require.NoError(t, err)
	records, err := o.Materialize(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, records, 6, "empty years keep the cardinality invariant")
	for _, r := range records {
		if *r.Period == 2002 {
			assert.Nil(t, r.Value, "region %s", r.RegionID)
		} else {
			assert.NotNil(t, r.Value)
		}
	}
}

func TestMaterializeTemporalEmptyCollection(t *testing.T) {
	o := newTestOrchestrator()

	plan, err := o.PlanTemporal(temporalSpec(), domain.NewRasterCollection())
	require.NoError(t, err)
	records, err := o.Materialize(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, records, 4, "an empty archive still yields every (region, year) pair")
	for _, r := range records {
		assert.Nil(t, r.Value)
		require.NotNil(t, r.Period)
	}
}

func TestMaterializeTemporalRescalesOnce(t *testing.T) {
	o := newTestOrchestrator()
	spec := temporalSpec()
	spec.Name = "vegetation"
	spec.Band = "NDVI"
	spec.EndYear = 2000
	spec.RescaleFactor = 0.0001

	c := domain.NewRasterCollection(
		imageAt(utc(2000, time.March, 15), "NDVI", zonedGrid(4000, 8000)),
	)
	plan, err := o.PlanTemporal(spec, c)
	require.NoError(t, err)
	records, err := o.Materialize(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, records, 2)
	require.NotNil(t, records[0].Value)
	assert.InDelta(t, 0.4, *records[0].Value, 1e-9)
	require.NotNil(t, records[1].Value)
	assert.InDelta(t, 0.8, *records[1].Value, 1e-9)
}

func TestMaterializeStatic(t *testing.T) {
	o := newTestOrchestrator()
	plan, err := o.PlanStatic(staticSpec(), imageAt(utc(2000, time.January, 1), "elevation", zonedGrid(300, 450)))
	require.NoError(t, err)

	records, err := o.Materialize(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, records, 2, "one record per region")
	assert.Equal(t, "A", records[0].RegionID)
	assert.Equal(t, "B", records[1].RegionID)
	for _, r := range records {
		assert.Nil(t, r.Period, "static variables carry no period")
	}
	assert.InDelta(t, 300, *records[0].Value, 1e-9)
	assert.InDelta(t, 450, *records[1].Value, 1e-9)
}

func TestMaterializeRecoversBudgetFailures(t *testing.T) {
	o := newTestOrchestrator()
	spec := staticSpec()
	spec.MaxPixels = 50 // both regions cover ~110 lattice cells

	plan, err := o.PlanStatic(spec, imageAt(utc(2000, time.January, 1), "elevation", constantGrid(300)))
	require.NoError(t, err)
	records, err := o.Materialize(context.Background(), plan)
	require.NoError(t, err, "budget failures are recoverable, not fatal")

	require.Len(t, records, 2)
	for _, r := range records {
		assert.Nil(t, r.Value, "over-budget regions export null values")
	}
}

func TestExport(t *testing.T) {
	o := newTestOrchestrator()
	plan, err := o.PlanTemporal(temporalSpec(), zonedCollection("avg_rad"))
	require.NoError(t, err)

	t.Run("hands all records to the sink", func(t *testing.T) {
		sink := &mockSink{}
		require.NoError(t, o.Export(context.Background(), plan, sink))
		assert.Len(t, sink.all(), 4)
	})

	t.Run("sink errors propagate", func(t *testing.T) {
		sink := &mockSink{err: errors.New("broker unreachable")}
		err := o.Export(context.Background(), plan, sink)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker unreachable")
	})
}

func TestMaterializeHonorsCancellation(t *testing.T) {
	o := newTestOrchestrator()
	plan, err := o.PlanTemporal(temporalSpec(), zonedCollection("avg_rad"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Materialize(ctx, plan)
	assert.ErrorIs(t, err, context.Canceled)
}
