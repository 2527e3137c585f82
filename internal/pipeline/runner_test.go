package pipeline_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lkkmills/gee/internal/pipeline"
)

func newTestRunner(sink pipeline.RecordSink, variables []pipeline.VariableData) *pipeline.Runner {
	metrics := newTestMetrics()
	o := pipeline.NewOrchestrator(testCatalog(), slog.Default(), metrics, 2)
	return pipeline.NewRunner(o, sink, variables, slog.Default(), metrics)
}

func testVariables() []pipeline.VariableData {
	return []pipeline.VariableData{
		{Spec: temporalSpec(), Collection: zonedCollection("avg_rad")},
		{Spec: staticSpec(), Image: imageAt(utc(2000, time.January, 1), "elevation", constantGrid(300))},
	}
}

func TestRunnerRunAll(t *testing.T) {
	sink := &mockSink{}
	r := newTestRunner(sink, testVariables())

	require.Error(t, r.CheckReadiness(context.Background()), "not ready before the first run")

	require.NoError(t, r.RunAll(context.Background()))

	assert.NoError(t, r.CheckReadiness(context.Background()))
	assert.Len(t, sink.batches, 2, "one batch per variable")
	assert.Len(t, sink.all(), 6, "2 regions x 2 years plus 2 static records")
}

func TestRunnerIsolatesVariableFailures(t *testing.T) {
	bad := pipeline.VariableData{
		Spec:       temporalSpec(),
		Collection: zonedCollection("wrong_band"),
	}
	bad.Spec.Name = "broken"

	sink := &mockSink{}
	r := newTestRunner(sink, []pipeline.VariableData{
		bad,
		{Spec: staticSpec(), Image: imageAt(utc(2000, time.January, 1), "elevation", constantGrid(300))},
	})

	err := r.RunAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken", "the failing variable is named")

	assert.Len(t, sink.all(), 2, "healthy variables still export")
	assert.Error(t, r.CheckReadiness(context.Background()), "a partial run is not ready")
}

func TestRunnerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &mockSink{}
	r := newTestRunner(sink, testVariables())

	err := r.RunAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.all())
}

func TestRunnerSinkFailure(t *testing.T) {
	sink := &mockSink{err: assert.AnError}
	r := newTestRunner(sink, testVariables())

	err := r.RunAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Error(t, r.CheckReadiness(context.Background()))
}
