package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emoscan",
		Name:      "analyses_total",
		Help:      "Completed analyses by kind and outcome.",
	}, []string{"kind", "status"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "emoscan",
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of synchronous analyses.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"kind"})

	dominantEmotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emoscan",
		Name:      "dominant_emotions_total",
		Help:      "Dominant emotion of successful analyses.",
	}, []string{"emotion"})

	batchJobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emoscan",
		Name:      "batch_jobs_enqueued_total",
		Help:      "Batch analysis jobs handed to the queue.",
	})
)
