package metricscollector

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const clusterLabel = "cluster"

// ClusterCollector reports how many bdevs share each librbd cluster context.
type ClusterCollector struct {
	*baseCollector

	bdevMetric    metricInfo
	clusterMetric metricInfo
}

func NewClusterCollector(logger logrus.FieldLogger, source StatsSource) *ClusterCollector {
	cc := &ClusterCollector{
		baseCollector: newBaseCollector(subsystemCluster, logger, source),
	}

	cc.bdevMetric = metricInfo{
		Desc: prometheus.NewDesc(
			prometheus.BuildFQName(gatewayName, subsystemCluster, "bdev_count"),
			"The number of bdevs using a cluster context",
			[]string{gatewayLabel, groupLabel, clusterLabel},
			nil,
		),
		Type: prometheus.GaugeValue,
	}

	cc.clusterMetric = metricInfo{
		Desc: prometheus.NewDesc(
			prometheus.BuildFQName(gatewayName, subsystemCluster, "count"),
			"The number of cluster contexts registered by this gateway",
			[]string{gatewayLabel, groupLabel},
			nil,
		),
		Type: prometheus.GaugeValue,
	}

	return cc
}

func (cc *ClusterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cc.bdevMetric.Desc
	ch <- cc.clusterMetric.Desc
}

func (cc *ClusterCollector) Collect(ch chan<- prometheus.Metric) {
	defer func() {
		if err := recover(); err != nil {
			cc.logger.WithField("error", err).Warn("Panic during collecting metrics")
		}
	}()

	clusters := cc.source.Stats()["clusters"]
	names := make([]string, 0, len(clusters))
	for name := range clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch <- prometheus.MustNewConstMetric(cc.bdevMetric.Desc, cc.bdevMetric.Type, float64(clusters[name]), cc.gateway, cc.group, name)
	}
	ch <- prometheus.MustNewConstMetric(cc.clusterMetric.Desc, cc.clusterMetric.Type, float64(len(clusters)), cc.gateway, cc.group)
}
