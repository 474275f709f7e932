package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hfstol_lookups_total",
			Help: "Lookup requests by evaluation path and outcome.",
		},
		[]string{"path", "status"},
	)
	lookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hfstol_lookup_duration_seconds",
			Help:    "Lookup latency by evaluation path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
	batchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hfstol_batch_size",
			Help:    "Number of forms per batch request.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(lookupsTotal, lookupDuration, batchSize)
}

// observeLookup records one lookup call on the given evaluation path.
func observeLookup(path string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	lookupsTotal.WithLabelValues(path, status).Inc()
	lookupDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
