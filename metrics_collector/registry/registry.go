package registry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// gatewayRegistry exposes gateway metrics only, without the default
// go-client process and runtime metrics.
var gatewayRegistry = prometheus.NewRegistry()

func Register(collector prometheus.Collector) error {
	return gatewayRegistry.Register(collector)
}

// Gatherer is used by tests to inspect what would be exposed.
func Gatherer() prometheus.Gatherer {
	return gatewayRegistry
}

// Handler returns an http.Handler for gatewayRegistry, using default HandlerOpts
func Handler() http.Handler {
	return promhttp.HandlerFor(gatewayRegistry, promhttp.HandlerOpts{})
}
