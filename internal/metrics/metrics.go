// Package metrics exposes Prometheus instrumentation for both halves of
// Pulsar: the compile pipeline (invoked once per build) and the reference
// runtime driver (invoked once per cycle, forever). Grounded on the
// teacher's observability package shape: promauto-registered collectors on
// the default registry, one package-level struct, no DI container.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Compile holds the counters and histograms that cmd/pulsar-compile records
// around each compiler.Compile call.
var Compile = struct {
	Runs      prometheus.Counter
	Failures  *prometheus.CounterVec
	Duration  prometheus.Histogram
	RuleCount prometheus.Histogram
}{
	Runs: promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_compile_runs_total",
		Help: "Total number of compilation pipeline invocations.",
	}),
	Failures: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsar_compile_failures_total",
		Help: "Total number of compilation failures by error kind.",
	}, []string{"kind"}),
	Duration: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsar_compile_duration_seconds",
		Help:    "Wall-clock duration of a full load-analyze-emit pipeline run.",
		Buckets: prometheus.DefBuckets,
	}),
	RuleCount: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsar_compile_rule_count",
		Help:    "Number of rules in a compiled unit.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}),
}

// Runtime holds the counters and histograms emitted by internal/runtime's
// periodic driver.
var Runtime = struct {
	Cycles          prometheus.Counter
	CycleErrors     prometheus.Counter
	CycleOverruns   prometheus.Counter
	CycleDuration   prometheus.Histogram
	BufferWrites    prometheus.Counter
	MessagesPublished *prometheus.CounterVec
}{
	Cycles: promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_runtime_cycles_total",
		Help: "Total number of completed evaluation cycles.",
	}),
	CycleErrors: promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_runtime_cycle_errors_total",
		Help: "Total number of cycles that returned an error from Evaluate, a sensor read, or a sensor write.",
	}),
	CycleOverruns: promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_runtime_cycle_overruns_total",
		Help: "Total number of cycles whose wall-clock duration exceeded the configured cycle time.",
	}),
	CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsar_runtime_cycle_duration_seconds",
		Help:    "Wall-clock duration of one read-evaluate-write cycle.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}),
	BufferWrites: promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_runtime_buffer_writes_total",
		Help: "Total number of samples written into the ring-buffer subsystem.",
	}),
	MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsar_runtime_messages_published_total",
		Help: "Total number of SendMessage actions published, by channel.",
	}, []string{"channel"}),
}

// ObserveCycle records a single cycle's outcome. d is the measured
// wall-clock duration and overran reports whether it exceeded cycle_time.
func ObserveCycle(d time.Duration, err error, overran bool) {
	Runtime.Cycles.Inc()
	Runtime.CycleDuration.Observe(d.Seconds())
	if err != nil {
		Runtime.CycleErrors.Inc()
	}
	if overran {
		Runtime.CycleOverruns.Inc()
	}
}
