package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	datasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sales",
		Subsystem: "dataset",
		Name:      "rows",
		Help:      "Rows held by the loaded dataset snapshot.",
	})
	absentFields = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sales",
		Subsystem: "dataset",
		Name:      "absent_fields",
		Help:      "Loaded rows whose field is absent after normalization.",
	}, []string{"field"})
	invalidFields = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sales",
		Subsystem: "dataset",
		Name:      "invalid_fields",
		Help:      "Loaded rows whose field had a value that failed to parse.",
	}, []string{"field"})
)

func observeLoad(res *Result) {
	datasetRows.Set(float64(res.Diagnostics.Rows))
	for field, n := range res.Diagnostics.Absent {
		absentFields.WithLabelValues(field).Set(float64(n))
	}
	for field, n := range res.Diagnostics.Invalid {
		invalidFields.WithLabelValues(field).Set(float64(n))
	}
}
