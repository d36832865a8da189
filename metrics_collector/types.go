package metricscollector

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	gatewayName = "nvmeof_gateway"

	subsystemRecord    = "record"
	subsystemCluster   = "cluster"
	subsystemOperation = "operation"

	gatewayLabel = "gateway"
	groupLabel   = "group"
	kindLabel    = "kind"
	methodLabel  = "method"
	statusLabel  = "status"
)

type metricInfo struct {
	Desc *prometheus.Desc
	Type prometheus.ValueType
}

// StatsSource is what the gateway collectors scrape.
type StatsSource interface {
	Name() string
	Group() string
	Stats() map[string]map[string]int
}
