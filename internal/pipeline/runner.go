package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lkkmills/gee/internal/domain"
	"github.com/lkkmills/gee/internal/observability"
)

// VariableData pairs a variable spec with its source data: a collection for
// temporal variables, a single image for static ones.
type VariableData struct {
	Spec       domain.VariableSpec
	Collection domain.RasterCollection
	Image      domain.RasterImage
}

// Runner executes the full variable set against the sink. One variable's
// fatal error (bad band, invalid spec) fails that variable only; the others
// still run, and the joined error reports everything that went wrong.
type Runner struct {
	orchestrator *Orchestrator
	sink         RecordSink
	variables    []VariableData
	logger       *slog.Logger
	metrics      *observability.Metrics
	ready        atomic.Bool
}

// NewRunner creates a Runner.
func NewRunner(orchestrator *Orchestrator, sink RecordSink, variables []VariableData, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		orchestrator: orchestrator,
		sink:         sink,
		variables:    variables,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed, or an
// error describing why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no aggregation run has completed yet")
	}
	return nil
}

// RunAll plans and exports every configured variable. Returns the joined
// per-variable errors, nil when everything exported.
func (r *Runner) RunAll(ctx context.Context) error {
	start := time.Now()
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	r.logger.Info("aggregation run started", "variables", len(r.variables))

	var errs []error
	for _, vd := range r.variables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runVariable(ctx, vd); err != nil {
			r.logger.Error("variable failed", "variable", vd.Spec.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", vd.Spec.Name, err))
		}
	}

	r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.ready.Store(true)
	r.logger.Info("aggregation run completed", "duration", time.Since(start).String())
	return nil
}

func (r *Runner) runVariable(ctx context.Context, vd VariableData) error {
	var (
		plan *Plan
		err  error
	)
	if vd.Spec.Temporal {
		plan, err = r.orchestrator.PlanTemporal(vd.Spec, vd.Collection)
	} else {
		plan, err = r.orchestrator.PlanStatic(vd.Spec, vd.Image)
	}
	if err != nil {
		return err
	}
	return r.orchestrator.Export(ctx, plan, r.sink)
}
