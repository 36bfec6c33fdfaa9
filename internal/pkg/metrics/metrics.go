package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexgate_swaps_total",
		Help: "The total number of swap settlements processed",
	}, []string{"status", "side", "mode"})

	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexgate_quotes_total",
		Help: "The total number of upstream quote/price requests",
	}, []string{"endpoint", "outcome"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dexgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	SettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dexgate_settlement_duration_seconds",
		Help:    "Wall time from quote to terminal settlement state",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"mode"})

	GaslessPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexgate_gasless_status_polls_total",
		Help: "Total status polls issued against the relayer",
	})

	LimitRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexgate_limit_rejects_total",
		Help: "Total trade limit rejections",
	}, []string{"reason"})
)
