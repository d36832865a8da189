package app

import (
	"context"
	"flag"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/manager"
	"github.com/longhorn/nvmeof-gateway/types"
)

func newDaemonContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("daemon", flag.ContinueOnError)
	for _, f := range DaemonCmd().Flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := `
gateway:
  name: gw-file
  group: group-file
  port: 6000
spdk:
  bdevs_per_cluster: 4
`
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	cfg, err := loadConfig(newDaemonContext(t, "--config", path, "--name", "gw-flag", "--port", "7000"))
	require.NoError(t, err)
	assert.Equal(t, "gw-flag", cfg.Gateway.Name)
	assert.Equal(t, "group-file", cfg.Gateway.Group)
	assert.Equal(t, 7000, cfg.Gateway.Port)
	assert.Equal(t, 4, cfg.SPDK.BdevsPerCluster)
	assert.Equal(t, types.StoreBackendMemory, cfg.Store.Backend)
	assert.Equal(t, types.DefaultRPCSocket, cfg.SPDK.RPCSocket)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := loadConfig(newDaemonContext(t, "--store-backend", types.StoreBackendETCD))
	assert.Error(t, err)

	cfg, err := loadConfig(newDaemonContext(t, "--store-backend", types.StoreBackendETCD,
		"--store-endpoints", "127.0.0.1:2379", "--store-endpoints", "127.0.0.2:2379"))
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:2379", "127.0.0.2:2379"}, cfg.Store.Endpoints)
}

func TestResyncJob(t *testing.T) {
	cfg := types.NewDefaultConfig()
	cfg.Gateway.Name = "gw-a"

	store, err := newStore(cfg)
	require.NoError(t, err)
	m, err := manager.NewGatewayManager(cfg, engineapi.NewEngineSimulator(), store)
	require.NoError(t, err)

	require.NoError(t, m.CreateSubsystem(context.Background(), &types.CreateSubsystemRequest{SubsystemNQN: "nqn.test.1"}))
	(&resyncJob{m: m}).Run()
	assert.Len(t, m.State(), 1)
}
