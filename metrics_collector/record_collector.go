package metricscollector

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// RecordCollector reports how many persisted records of each kind this
// gateway has seen.
type RecordCollector struct {
	*baseCollector

	recordMetric metricInfo
}

func NewRecordCollector(logger logrus.FieldLogger, source StatsSource) *RecordCollector {
	rc := &RecordCollector{
		baseCollector: newBaseCollector(subsystemRecord, logger, source),
	}

	rc.recordMetric = metricInfo{
		Desc: prometheus.NewDesc(
			prometheus.BuildFQName(gatewayName, subsystemRecord, "count"),
			"The number of persisted configuration records of a kind",
			[]string{gatewayLabel, groupLabel, kindLabel},
			nil,
		),
		Type: prometheus.GaugeValue,
	}

	return rc
}

func (rc *RecordCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rc.recordMetric.Desc
}

func (rc *RecordCollector) Collect(ch chan<- prometheus.Metric) {
	defer func() {
		if err := recover(); err != nil {
			rc.logger.WithField("error", err).Warn("Panic during collecting metrics")
		}
	}()

	records := rc.source.Stats()["records"]
	kinds := make([]string, 0, len(records))
	for kind := range records {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		ch <- prometheus.MustNewConstMetric(rc.recordMetric.Desc, rc.recordMetric.Type, float64(records[kind]), rc.gateway, rc.group, strings.TrimSuffix(kind, "_"))
	}
}
