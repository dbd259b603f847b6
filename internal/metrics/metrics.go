// Package metrics exposes Prometheus metrics for benchmark runs and can
// push them to a Pushgateway, the usual pattern for one-shot batch jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	VariantDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clbench_variant_duration_seconds",
		Help:    "Wall-clock duration of one kernel variant dispatch",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
	}, []string{"device", "variant"})

	VariantThroughput = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clbench_variant_throughput",
		Help: "Measured throughput of the last run, elements/s or FLOPS per the variant",
	}, []string{"device", "variant"})

	VerificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clbench_verification_failures_total",
		Help: "Readback samples that fell outside the verification tolerance",
	}, []string{"device", "variant"})

	DevicesBenchmarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clbench_devices_benchmarked_total",
		Help: "Devices a benchmark pass completed on",
	})
)

// Push sends the default registry to a Pushgateway. Callers treat a
// failure as a warning; the benchmark results have already been printed.
func Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Push()
}
