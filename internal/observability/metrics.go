package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// region-statistics pipeline.
type Metrics struct {
	CompositesBuilt prometheus.Counter
	EmptyBuckets    prometheus.Counter
	RecordsExported prometheus.Counter
	ExportErrors    prometheus.Counter
	BudgetExceeded  prometheus.Counter
	PipelineRunning prometheus.Gauge

	RegionsReduced *prometheus.CounterVec   // labels: strategy={batched,per_region}
	ReduceDuration *prometheus.HistogramVec // labels: strategy={batched,per_region}
	RunDuration    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CompositesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regionstats",
			Name:      "composites_built_total",
			Help:      "Total annual composites produced by the temporal compositor.",
		}),
		EmptyBuckets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regionstats",
			Name:      "empty_buckets_total",
			Help:      "Year buckets with zero contributing images (reported as null values).",
		}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regionstats",
			Name:      "records_exported_total",
			Help:      "Total zonal records written to the sink topic.",
		}),
		ExportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regionstats",
			Name:      "export_errors_total",
			Help:      "Failed export attempts.",
		}),
		BudgetExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "regionstats",
			Name:      "budget_exceeded_total",
			Help:      "Region reductions skipped because the pixel budget was exceeded.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "regionstats",
			Name:      "pipeline_running",
			Help:      "1 while an aggregation run is active, 0 otherwise.",
		}),
		RegionsReduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regionstats",
			Name:      "regions_reduced_total",
			Help:      "Region reductions completed, by strategy.",
		}, []string{"strategy"}),
		ReduceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regionstats",
			Name:      "reduce_duration_seconds",
			Help:      "Duration of one raster's zonal reduction, by strategy.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"strategy"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regionstats",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete multi-variable aggregation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
	}

	prometheus.MustRegister(
		m.CompositesBuilt,
		m.EmptyBuckets,
		m.RecordsExported,
		m.ExportErrors,
		m.BudgetExceeded,
		m.PipelineRunning,
		m.RegionsReduced,
		m.ReduceDuration,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CompositesBuilt: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "regionstats", Name: "composites_built_total"}),
		EmptyBuckets:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "regionstats", Name: "empty_buckets_total"}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "regionstats", Name: "records_exported_total"}),
		ExportErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "regionstats", Name: "export_errors_total"}),
		BudgetExceeded:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "regionstats", Name: "budget_exceeded_total"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "regionstats", Name: "pipeline_running"}),
		RegionsReduced:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "regionstats", Name: "regions_reduced_total"}, []string{"strategy"}),
		ReduceDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "regionstats", Name: "reduce_duration_seconds"}, []string{"strategy"}),
		RunDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "regionstats", Name: "run_duration_seconds"}),
	}
}
