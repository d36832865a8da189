package metricscollector

import (
	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/metrics_collector/registry"
)

func InitMetricsCollectorSystem(logger logrus.FieldLogger, source StatsSource) {
	logger.Info("Initializing metrics collector system")

	recordCollector := NewRecordCollector(logger, source)
	clusterCollector := NewClusterCollector(logger, source)

	if err := registry.Register(recordCollector); err != nil {
		logger.WithField("collector", subsystemRecord).WithError(err).Warn("Failed to register collector")
	}

	if err := registry.Register(clusterCollector); err != nil {
		logger.WithField("collector", subsystemCluster).WithError(err).Warn("Failed to register collector")
	}
}
