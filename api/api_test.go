package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/manager"
	"github.com/longhorn/nvmeof-gateway/metrics_collector/registry"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

const (
	testNQN  = "nqn.test.1"
	testUUID = "6bc4c5d2-2b3f-4c5a-9f4f-1e8a4b9c2d10"
)

var _ GatewayService = &GatewayServer{}
var _ GatewayService = &GatewayClient{}

func newTestManager(t *testing.T) *manager.GatewayManager {
	cfg := types.NewDefaultConfig()
	cfg.Gateway.Name = "gw-a"
	cfg.Gateway.Group = "test"

	backend, err := kvstore.NewMemoryBackend()
	require.NoError(t, err)
	store, err := kvstore.NewKVStore(backend)
	require.NoError(t, err)
	m, err := manager.NewGatewayManager(cfg, engineapi.NewEngineSimulator(), store)
	require.NoError(t, err)
	return m
}

func newTestClient(t *testing.T, m *manager.GatewayManager) *GatewayClient {
	l := bufconn.Listen(1024 * 1024)
	server := NewGatewayServer(m)
	go server.Serve(l)
	t.Cleanup(server.Stop)

	client, err := NewGatewayClient("bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return l.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSubsystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestManager(t))

	st, err := client.CreateSubsystem(ctx, &types.CreateSubsystemRequest{
		SubsystemNQN: testNQN,
		AnaReporting: true,
		EnableHA:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Status)
	assert.Equal(t, "Success", st.ErrorMessage)
	assert.NoError(t, StatusError(st))

	st, err = client.CreateSubsystem(ctx, &types.CreateSubsystemRequest{SubsystemNQN: testNQN})
	require.NoError(t, err)
	assert.Equal(t, errno.EEXIST.Value(), st.Status)
	assert.Contains(t, st.ErrorMessage, "already exists")
	assert.Equal(t, errno.EEXIST, errno.Code(StatusError(st)))

	nsStatus, err := client.AddNamespace(ctx, &types.NamespaceAddRequest{
		RbdPoolName:  "pool1",
		RbdImageName: "img1",
		SubsystemNQN: testNQN,
		BlockSize:    512,
		UUID:         testUUID,
	})
	require.NoError(t, err)
	require.Equal(t, 0, nsStatus.Status, nsStatus.ErrorMessage)
	assert.True(t, nsStatus.NSID > 0)

	subsystems, err := client.ListSubsystems(ctx, &types.ListSubsystemsRequest{SubsystemNQN: testNQN})
	require.NoError(t, err)
	require.Equal(t, 0, subsystems.Status)
	require.Len(t, subsystems.Subsystems, 1)
	assert.Equal(t, testNQN, subsystems.Subsystems[0].NQN)
	assert.Regexp(t, `^SPDK\d+$`, subsystems.Subsystems[0].SerialNumber)
	assert.Equal(t, uint32(1), subsystems.Subsystems[0].NamespaceCount)

	namespaces, err := client.ListNamespaces(ctx, &types.ListNamespacesRequest{Subsystem: testNQN})
	require.NoError(t, err)
	require.Len(t, namespaces.Namespaces, 1)
	assert.Equal(t, nsStatus.NSID, namespaces.Namespaces[0].NSID)
	assert.Equal(t, testUUID, namespaces.Namespaces[0].UUID)

	st, err = client.DeleteSubsystem(ctx, &types.DeleteSubsystemRequest{SubsystemNQN: testNQN})
	require.NoError(t, err)
	assert.Equal(t, errno.EBUSY.Value(), st.Status)

	st, err = client.DeleteSubsystem(ctx, &types.DeleteSubsystemRequest{SubsystemNQN: testNQN, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Status, st.ErrorMessage)

	subsystems, err = client.ListSubsystems(ctx, &types.ListSubsystemsRequest{SubsystemNQN: testNQN})
	require.NoError(t, err)
	assert.NotEqual(t, 0, subsystems.Status)
	assert.Empty(t, subsystems.Subsystems)
}

func TestHostAndListenerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	client := newTestClient(t, m)

	st, err := client.CreateSubsystem(ctx, &types.CreateSubsystemRequest{SubsystemNQN: testNQN})
	require.NoError(t, err)
	require.Equal(t, 0, st.Status, st.ErrorMessage)

	st, err = client.AddHost(ctx, &types.AddHostRequest{SubsystemNQN: testNQN, HostNQN: "nqn.host.1"})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Status, st.ErrorMessage)

	hosts, err := client.ListHosts(ctx, &types.ListHostsRequest{Subsystem: testNQN})
	require.NoError(t, err)
	assert.Equal(t, 0, hosts.Status)
	assert.False(t, hosts.AllowAnyHost)
	assert.Equal(t, []types.Host{{NQN: "nqn.host.1"}}, hosts.Hosts)

	st, err = client.CreateListener(ctx, &types.CreateListenerRequest{
		NQN:         testNQN,
		GatewayName: m.Name(),
		Trtype:      "TCP",
		Adrfam:      "ipv4",
		Traddr:      "10.0.0.1",
		Trsvcid:     4420,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.Status, st.ErrorMessage)

	st, err = client.CreateListener(ctx, &types.CreateListenerRequest{
		NQN:         testNQN,
		GatewayName: "gw-other",
		Trtype:      "TCP",
		Adrfam:      "ipv4",
		Traddr:      "10.0.0.2",
		Trsvcid:     4420,
	})
	require.NoError(t, err)
	assert.Equal(t, errno.ENOENT.Value(), st.Status)

	listeners, err := client.ListListeners(ctx, &types.ListListenersRequest{Subsystem: testNQN})
	require.NoError(t, err)
	require.Len(t, listeners.Listeners, 1)
	assert.Equal(t, "10.0.0.1", listeners.Listeners[0].Traddr)
	assert.Equal(t, uint32(4420), listeners.Listeners[0].Trsvcid)
}

func TestGatewayInfoRoundTrip(t *testing.T) {
	t.Setenv(types.EnvGatewayVersion, "1.2.0")
	ctx := context.Background()
	client := newTestClient(t, newTestManager(t))

	info, err := client.GetGatewayInfo(ctx, &types.GetGatewayInfoRequest{CLIVersion: "1.2.0"})
	require.NoError(t, err)
	assert.Equal(t, 0, info.Status)
	assert.True(t, info.BoolStatus)
	assert.Equal(t, "gw-a", info.Name)
	assert.Equal(t, "test", info.Group)
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, "5500", info.Port)

	info, err = client.GetGatewayInfo(ctx, &types.GetGatewayInfoRequest{CLIVersion: "1.1.9"})
	require.NoError(t, err)
	assert.Equal(t, errno.EINVAL.Value(), info.Status)
	assert.False(t, info.BoolStatus)
	assert.Equal(t, "gw-a", info.Name)
}

func TestOperationMetrics(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestManager(t))

	flags, err := client.GetLogFlags(ctx, &types.GetLogFlagsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, flags.Status, flags.ErrorMessage)

	st, err := client.DeleteSubsystem(ctx, &types.DeleteSubsystemRequest{SubsystemNQN: types.DiscoveryNQN})
	require.NoError(t, err)
	assert.Equal(t, errno.EINVAL.Value(), st.Status)

	assert.True(t, operationCount(t, "GetLogFlags", "success") >= 1)
	assert.True(t, operationCount(t, "DeleteSubsystem", "failure") >= 1)
}

// operationCount reads the request counter exposed by the gateway registry.
func operationCount(t *testing.T, method, status string) float64 {
	families, err := registry.Gatherer().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "nvmeof_gateway_operation_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}
			if labels["method"] == method && labels["status"] == status {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	require.NoError(t, m.CreateSubsystem(ctx, &types.CreateSubsystemRequest{SubsystemNQN: testNQN}))

	ts := httptest.NewServer(NewRouter(NewServer(m)))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "gw-a", health["gateway"])
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(ts.URL + "/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	state := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Contains(t, state, kvstore.SubsystemKey(testNQN))

	resp, err = http.Get(ts.URL + "/v1/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	stats := map[string]map[string]int{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats["records"][kvstore.SubsystemPrefix])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerRegistersOnlyGatewayService(t *testing.T) {
	server := NewGatewayServer(newTestManager(t))
	services := server.server.GetServiceInfo()
	require.Len(t, services, 1)
	info, ok := services[ServiceName]
	require.True(t, ok)
	assert.Len(t, info.Methods, len(gatewayServiceDesc.Methods))
	assert.Nil(t, info.Metadata)
}
