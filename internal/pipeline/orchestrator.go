package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lkkmills/gee/internal/domain"
	"github.com/lkkmills/gee/internal/observability"
)

// RecordSink receives the flattened record stream for persistence. The
// pipeline's only obligation toward it is record shape and cardinality;
// destination mechanics are the sink's concern.
type RecordSink interface {
	ExportBatch(ctx context.Context, records []domain.ZonalRecord) error
}

// Plan is a pure description of one variable's aggregation, produced by
// PlanTemporal or PlanStatic. Building a plan validates configuration
// (variable spec, band presence, scale) so every fatal error surfaces
// before any reduction work begins. Nothing executes until Materialize.
type Plan struct {
	variable   domain.VariableSpec
	collection domain.RasterCollection
	image      domain.RasterImage
}

// Variable returns the spec the plan was built from.
func (p *Plan) Variable() domain.VariableSpec { return p.variable }

// Orchestrator drives composites through zonal reduction and flattens the
// nested per-year/per-region results into one uniform record stream. It
// holds no state across runs: each Materialize is a pure function of
// (catalog, plan) plus a fresh run ID.
type Orchestrator struct {
	catalog *domain.RegionCatalog
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
}

// NewOrchestrator creates an orchestrator over a fixed region catalog.
// workers bounds the batched strategy's parallelism; <= 0 means unbounded.
func NewOrchestrator(catalog *domain.RegionCatalog, logger *slog.Logger, metrics *observability.Metrics, workers int) *Orchestrator {
	return &Orchestrator{catalog: catalog, logger: logger, metrics: metrics, workers: workers}
}

// PlanTemporal validates and describes the aggregation of a time-stamped
// collection: select band, rescale once, composite annually, reduce each
// composite over all regions with the batched strategy.
func (o *Orchestrator) PlanTemporal(v domain.VariableSpec, c domain.RasterCollection) (*Plan, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if !v.Temporal {
		return nil, fmt.Errorf("variable %q is static; use PlanStatic", v.Name)
	}
	// Surface a missing band now, not mid-run.
	if _, err := c.Select(v.Band); err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	return &Plan{variable: v, collection: c}, nil
}

// PlanStatic validates and describes the aggregation of a single
// non-temporal raster, reduced with a direct per-region loop.
func (o *Orchestrator) PlanStatic(v domain.VariableSpec, img domain.RasterImage) (*Plan, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if v.Temporal {
		return nil, fmt.Errorf("variable %q is temporal; use PlanTemporal", v.Name)
	}
	if _, err := img.Band(v.Band); err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	return &Plan{variable: v, image: img}, nil
}

// Materialize executes a plan and returns the flat record stream:
// year-ascending, catalog-order for temporal variables; catalog-order with
// a nil period for static ones. Output cardinality is always
// |regions| x |years| or |regions|, with nil values standing in for
// missing or unreducible data.
func (o *Orchestrator) Materialize(ctx context.Context, p *Plan) ([]domain.ZonalRecord, error) {
	runID := uuid.NewString()
	if p.variable.Temporal {
		return o.materializeTemporal(ctx, p, runID)
	}
	return o.materializeStatic(ctx, p, runID)
}

// Export materializes the plan and hands the records to the sink.
func (o *Orchestrator) Export(ctx context.Context, p *Plan, sink RecordSink) error {
	records, err := o.Materialize(ctx, p)
	if err != nil {
		return err
	}
	if err := sink.ExportBatch(ctx, records); err != nil {
		o.metrics.ExportErrors.Inc()
		return fmt.Errorf("export %q: %w", p.variable.Name, err)
	}
	o.metrics.RecordsExported.Add(float64(len(records)))
	o.logger.Info("variable exported",
		"variable", p.variable.Name,
		"records", len(records),
	)
	return nil
}

func (o *Orchestrator) materializeTemporal(ctx context.Context, p *Plan, runID string) ([]domain.ZonalRecord, error) {
	v := p.variable

	selected, err := p.collection.Select(v.Band)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	if v.Rescales() {
		selected, err = selected.Rescale(v.Band, v.RescaleFactor, v.RescaleOffset)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
	}

	composites, err := domain.AnnualComposites(selected, v.StartYear, v.EndYear, v.Statistic)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	o.metrics.CompositesBuilt.Add(float64(len(composites)))

	strategy := &BatchedStrategy{
		Statistic: v.Statistic,
		Scale:     v.Scale,
		TileHint:  v.TileHint,
		MaxPixels: v.MaxPixels,
		Workers:   o.workers,
	}

	regions := o.catalog.Regions()
	records := make([]domain.ZonalRecord, 0, len(composites)*len(regions))
	for _, comp := range composites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if comp.Empty {
			o.metrics.EmptyBuckets.Inc()
			o.logger.Warn("empty composite bucket",
				"variable", v.Name,
				"year", comp.Year,
			)
		}

		grid, bandErr := comp.Image.Band(v.Band)
		if bandErr != nil {
			// A collection with no images at all composites to no bands;
			// the year still appears in the output, as nils.
			records = o.appendNilYear(records, runID, v, comp.Year, regions)
			continue
		}

		start := time.Now()
		outcomes, err := strategy.Reduce(ctx, grid, regions)
		if err != nil {
			return nil, fmt.Errorf("variable %q year %d: %w", v.Name, comp.Year, err)
		}
		o.metrics.ReduceDuration.WithLabelValues(strategy.Name()).Observe(time.Since(start).Seconds())
		o.metrics.RegionsReduced.WithLabelValues(strategy.Name()).Add(float64(len(outcomes)))

		year := comp.Year
		records = append(records, o.toRecords(runID, v, &year, outcomes)...)
	}
	return records, nil
}

func (o *Orchestrator) materializeStatic(ctx context.Context, p *Plan, runID string) ([]domain.ZonalRecord, error) {
	v := p.variable
	grid, err := p.image.Band(v.Band)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}

	strategy := &PerRegionStrategy{
		Statistic: v.Statistic,
		Scale:     v.Scale,
		TileHint:  v.TileHint,
		MaxPixels: v.MaxPixels,
	}

	regions := o.catalog.Regions()
	start := time.Now()
	outcomes, err := strategy.Reduce(ctx, grid, regions)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	o.metrics.ReduceDuration.WithLabelValues(strategy.Name()).Observe(time.Since(start).Seconds())
	o.metrics.RegionsReduced.WithLabelValues(strategy.Name()).Add(float64(len(outcomes)))

	return o.toRecords(runID, v, nil, outcomes), nil
}

// toRecords converts strategy outcomes into tagged records, recovering
// per-region budget failures as nil values so one oversized region cannot
// abort a multi-region, multi-year run.
func (o *Orchestrator) toRecords(runID string, v domain.VariableSpec, period *int, outcomes []RegionOutcome) []domain.ZonalRecord {
	now := domain.Now()
	records := make([]domain.ZonalRecord, 0, len(outcomes))
	for _, outcome := range outcomes {
		value := outcome.Value
		if outcome.Err != nil {
			if !isBudgetError(outcome.Err) {
				// Strategies only surface recoverable errors per region;
				// anything else would have failed the Reduce call.
				o.logger.Error("unexpected region error", "region", outcome.RegionName, "error", outcome.Err)
			}
			o.metrics.BudgetExceeded.Inc()
			o.logger.Warn("region reduction skipped",
				"variable", v.Name,
				"region", outcome.RegionName,
				"error", outcome.Err,
			)
			value = nil
		}
		records = append(records, domain.ZonalRecord{
			RunID:       runID,
			RegionID:    outcome.RegionID,
			RegionName:  outcome.RegionName,
			Variable:    v.Name,
			Period:      copyPeriod(period),
			Statistic:   string(v.Statistic),
			Value:       value,
			ProcessedAt: now,
		})
	}
	return records
}

// appendNilYear emits the invariant-preserving nil records for a year the
// compositor could not shape (fully empty source collection).
func (o *Orchestrator) appendNilYear(records []domain.ZonalRecord, runID string, v domain.VariableSpec, year int, regions []domain.Region) []domain.ZonalRecord {
	now := domain.Now()
	for _, region := range regions {
		y := year
		records = append(records, domain.ZonalRecord{
			RunID:       runID,
			RegionID:    region.ID,
			RegionName:  region.Name,
			Variable:    v.Name,
			Period:      &y,
			Statistic:   string(v.Statistic),
			ProcessedAt: now,
		})
	}
	return records
}

// copyPeriod gives each record its own period pointer so callers can't
// alias one year across the stream.
func copyPeriod(p *int) *int {
	if p == nil {
		return nil
	}
	y := *p
	return &y
}
