package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var computeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "sales",
	Subsystem: "metrics",
	Name:      "compute_duration_seconds",
	Help:      "Time spent computing aggregates over the dataset snapshot.",
	Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
}, []string{"operation"})

func observe(op string, start time.Time) {
	computeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
