package unittest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring test runs.
var (
	// testsTotal prometheus metric.
	testsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of executed tests by outcome",
			Name:      "tests_total",
			Namespace: "neounit",
		},
		[]string{"outcome"},
	)
	// testGas prometheus metric.
	testGas = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "Gas consumed by a single test",
			Name:      "test_gas",
			Namespace: "neounit",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(
		testsTotal,
		testGas,
	)
}

func updateTestMetrics(r Result) {
	testsTotal.WithLabelValues(r.Outcome.Kind.String()).Inc()
	testGas.Observe(float64(r.GasConsumed))
}
