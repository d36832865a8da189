package metricscollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/longhorn/nvmeof-gateway/metrics_collector/registry"
)

var (
	operationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: gatewayName,
			Subsystem: subsystemOperation,
			Name:      "total",
			Help:      "Number of gateway requests handled. Broken down by method and returned status.",
		},
		[]string{methodLabel, statusLabel},
	)

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: gatewayName,
			Subsystem: subsystemOperation,
			Name:      "latency_seconds",
			Help:      "Request latency in seconds. Broken down by method.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{methodLabel},
	)
)

func init() {
	registry.Register(operationTotal)
	registry.Register(operationLatency)
}

// ObserveOperation records one handled request. status is the errno value
// carried in the response, 0 on success.
func ObserveOperation(method string, status int, start time.Time) {
	operationTotal.WithLabelValues(method, statusName(status)).Inc()
	operationLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func statusName(status int) string {
	if status == 0 {
		return "success"
	}
	return "failure"
}
