package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astergate_signatures_total",
		Help: "Typed-data signing attempts by primary type and outcome",
	}, []string{"primary_type", "status"})

	NoncesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astergate_nonces_issued_total",
		Help: "Nonces handed out by the generator",
	})

	SigningLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astergate_signing_seconds",
		Help:    "Time spent waiting for the wallet to sign",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"primary_type"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astergate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
