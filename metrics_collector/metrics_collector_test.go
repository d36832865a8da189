package metricscollector

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	stats map[string]map[string]int
}

func (f *fakeSource) Name() string  { return "gw-a" }
func (f *fakeSource) Group() string { return "test" }
func (f *fakeSource) Stats() map[string]map[string]int {
	return f.stats
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		stats: map[string]map[string]int{
			"records": {
				"subsystem_": 2,
				"namespace_": 3,
				"qos_":       0,
				"host_":      1,
				"listener_":  1,
			},
			"clusters": {
				"cluster_context_0": 8,
				"cluster_context_1": 3,
			},
		},
	}
}

func TestRecordCollector(t *testing.T) {
	rc := NewRecordCollector(logrus.StandardLogger(), newFakeSource())

	expected := `
# HELP nvmeof_gateway_record_count The number of persisted configuration records of a kind
# TYPE nvmeof_gateway_record_count gauge
nvmeof_gateway_record_count{gateway="gw-a",group="test",kind="host"} 1
nvmeof_gateway_record_count{gateway="gw-a",group="test",kind="listener"} 1
nvmeof_gateway_record_count{gateway="gw-a",group="test",kind="namespace"} 3
nvmeof_gateway_record_count{gateway="gw-a",group="test",kind="qos"} 0
nvmeof_gateway_record_count{gateway="gw-a",group="test",kind="subsystem"} 2
`
	require.NoError(t, testutil.CollectAndCompare(rc, strings.NewReader(expected)))
}

func TestClusterCollector(t *testing.T) {
	cc := NewClusterCollector(logrus.StandardLogger(), newFakeSource())

	expected := `
# HELP nvmeof_gateway_cluster_bdev_count The number of bdevs using a cluster context
# TYPE nvmeof_gateway_cluster_bdev_count gauge
nvmeof_gateway_cluster_bdev_count{cluster="cluster_context_0",gateway="gw-a",group="test"} 8
nvmeof_gateway_cluster_bdev_count{cluster="cluster_context_1",gateway="gw-a",group="test"} 3
# HELP nvmeof_gateway_cluster_count The number of cluster contexts registered by this gateway
# TYPE nvmeof_gateway_cluster_count gauge
nvmeof_gateway_cluster_count{gateway="gw-a",group="test"} 2
`
	require.NoError(t, testutil.CollectAndCompare(cc, strings.NewReader(expected)))
}

func TestClusterCollectorEmpty(t *testing.T) {
	cc := NewClusterCollector(logrus.StandardLogger(), &fakeSource{stats: map[string]map[string]int{}})
	assert.Equal(t, 1, testutil.CollectAndCount(cc))
}

func TestObserveOperation(t *testing.T) {
	success := testutil.ToFloat64(operationTotal.WithLabelValues("CreateSubsystem", "success"))
	failure := testutil.ToFloat64(operationTotal.WithLabelValues("CreateSubsystem", "failure"))

	ObserveOperation("CreateSubsystem", 0, time.Now())
	ObserveOperation("CreateSubsystem", 17, time.Now())
	ObserveOperation("CreateSubsystem", 22, time.Now())

	assert.Equal(t, success+1, testutil.ToFloat64(operationTotal.WithLabelValues("CreateSubsystem", "success")))
	assert.Equal(t, failure+2, testutil.ToFloat64(operationTotal.WithLabelValues("CreateSubsystem", "failure")))
}
