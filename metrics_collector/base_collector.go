package metricscollector

import (
	"github.com/sirupsen/logrus"
)

type baseCollector struct {
	logger  logrus.FieldLogger
	gateway string // the gateway this collector is running on
	group   string
	source  StatsSource
}

func newBaseCollector(name string, logger logrus.FieldLogger, source StatsSource) *baseCollector {
	c := &baseCollector{
		logger:  logger.WithField("collector", name),
		gateway: source.Name(),
		group:   source.Group(),
		source:  source,
	}
	return c
}
