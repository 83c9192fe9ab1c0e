package transport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK     = "ok"
	resultStatus = "status"
	resultError  = "error"
)

var (
	// requestTotal counts pod requests by method and outcome
	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podgraph_transport_requests_total",
		Help: "Total pod requests by method and result",
	}, []string{"method", "result"})

	// requestDuration tracks pod request latency
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podgraph_transport_request_duration_seconds",
		Help:    "Pod request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"method"})
)

func observe(method, result string, start time.Time) {
	requestTotal.WithLabelValues(method, result).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
