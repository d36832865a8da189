package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v2"

	"github.com/longhorn/nvmeof-gateway/api"
	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/manager"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util"

	metricscollector "github.com/longhorn/nvmeof-gateway/metrics_collector"
)

const (
	FlagConfig         = "config"
	FlagName           = "name"
	FlagGroup          = "group"
	FlagAddr           = "addr"
	FlagPort           = "port"
	FlagMetricsAddr    = "metrics-addr"
	FlagStoreBackend   = "store-backend"
	FlagStoreEndpoints = "store-endpoints"
	FlagRPCSocket      = "rpc-socket"
)

var VERSION = "dev"

func DaemonCmd() cli.Command {
	return cli.Command{
		Name:  "daemon",
		Usage: "Run the gateway",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   FlagConfig,
				Usage:  "Specify the gateway configuration file",
				EnvVar: "NVMEOF_GATEWAY_CONFIG",
			},
			cli.StringFlag{
				Name:  FlagName,
				Usage: "Specify the gateway name, defaults to the hostname",
			},
			cli.StringFlag{
				Name:  FlagGroup,
				Usage: "Specify the gateway group",
			},
			cli.StringFlag{
				Name:  FlagAddr,
				Usage: "Specify the address the gateway listens on",
			},
			cli.IntFlag{
				Name:  FlagPort,
				Usage: "Specify the port the gateway listens on",
			},
			cli.StringFlag{
				Name:  FlagMetricsAddr,
				Usage: "Specify the address of the HTTP metrics and status endpoint, disabled if empty",
			},
			cli.StringFlag{
				Name:  FlagStoreBackend,
				Usage: fmt.Sprintf("Specify the configuration store backend, %v or %v", types.StoreBackendETCD, types.StoreBackendMemory),
			},
			cli.StringSliceFlag{
				Name:  FlagStoreEndpoints,
				Usage: "Specify the etcd endpoints",
			},
			cli.StringFlag{
				Name:  FlagRPCSocket,
				Usage: "Specify the SPDK RPC socket",
			},
		},
		Action: func(c *cli.Context) {
			if err := startGateway(c); err != nil {
				logrus.Fatalf("Error starting gateway: %v", err)
			}
		},
	}
}

// loadConfig reads the configuration file and lets flags override it.
func loadConfig(c *cli.Context) (*types.Config, error) {
	cfg, err := types.LoadConfig(c.String(FlagConfig))
	if err != nil {
		return nil, err
	}
	if c.IsSet(FlagName) {
		cfg.Gateway.Name = c.String(FlagName)
	}
	if c.IsSet(FlagGroup) {
		cfg.Gateway.Group = c.String(FlagGroup)
	}
	if c.IsSet(FlagAddr) {
		cfg.Gateway.Addr = c.String(FlagAddr)
	}
	if c.IsSet(FlagPort) {
		cfg.Gateway.Port = c.Int(FlagPort)
	}
	if c.IsSet(FlagMetricsAddr) {
		cfg.Gateway.MetricsAddr = c.String(FlagMetricsAddr)
	}
	if c.IsSet(FlagStoreBackend) {
		cfg.Store.Backend = c.String(FlagStoreBackend)
	}
	if c.IsSet(FlagStoreEndpoints) {
		cfg.Store.Endpoints = c.StringSlice(FlagStoreEndpoints)
	}
	if c.IsSet(FlagRPCSocket) {
		cfg.SPDK.RPCSocket = c.String(FlagRPCSocket)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newStore(cfg *types.Config) (*kvstore.KVStore, error) {
	var (
		backend kvstore.Backend
		err     error
	)
	switch cfg.Store.Backend {
	case types.StoreBackendETCD:
		backend, err = kvstore.NewETCDBackend(cfg.Store.Endpoints, cfg.StoreNamespace(),
			time.Duration(cfg.Store.DialTimeoutSec)*time.Second, cfg.Store.LockTTLSec)
	case types.StoreBackendMemory:
		logrus.Warn("Using the in-memory configuration store, the gateway configuration won't survive a restart")
		backend, err = kvstore.NewMemoryBackend()
	default:
		err = fmt.Errorf("unknown store backend %v", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}
	return kvstore.NewKVStore(backend)
}

var buildInfoEnvs = []struct {
	env  string
	desc string
}{
	{types.EnvGatewayVersion, "Using NVMeoF gateway version"},
	{types.EnvSPDKVersion, "Using SPDK version"},
	{types.EnvCephVersion, "Using Ceph version"},
	{types.EnvGitRepo, "Git repository"},
	{types.EnvGitBranch, "Git branch"},
	{types.EnvGitCommit, "Git commit"},
}

func logBuildInfo(cfg *types.Config) {
	for _, info := range buildInfoEnvs {
		if value := util.GetEnvOrDefault(info.env, ""); value != "" {
			logrus.Infof("%v: %v", info.desc, value)
		}
	}
	if content, err := yaml.Marshal(cfg); err != nil {
		logrus.WithError(err).Warn("Failed to dump gateway configuration")
	} else {
		logrus.Debugf("Gateway configuration:\n%s", content)
	}
}

// resyncJob catches up with the persisted record on a schedule, in case the
// change feed missed something.
type resyncJob struct {
	m *manager.GatewayManager
}

func (job *resyncJob) Run() {
	if err := job.m.Resync(); err != nil {
		logrus.WithError(err).Error("Failed to resync gateway configuration")
	}
}

func startGateway(c *cli.Context) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "failed to start gateway")
		}
	}()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logrus.Infof("Starting gateway %v of group %v", cfg.Gateway.Name, cfg.Gateway.Group)
	logBuildInfo(cfg)

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := engineapi.NewSPDKEngine(cfg.SPDK.RPCSocket, cfg.SPDK.ConnRetries,
		time.Duration(cfg.SPDK.TimeoutSec)*time.Second)
	if err != nil {
		return err
	}
	defer engine.Close()

	m, err := manager.NewGatewayManager(cfg, engine, store)
	if err != nil {
		return err
	}
	if err := m.Restore(); err != nil {
		return err
	}

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.StateWatchEnabled() {
		store.StartWatch(ctx)
	}
	if interval := cfg.Gateway.StateUpdateIntervalSec; interval > 0 {
		resyncCron := cron.New()
		if err := resyncCron.AddJob(fmt.Sprintf("@every %ds", interval), &resyncJob{m: m}); err != nil {
			return err
		}
		resyncCron.Start()
		defer resyncCron.Stop()
	}

	server := api.NewGatewayServer(m)
	listen := fmt.Sprintf("%s:%d", cfg.Gateway.Addr, cfg.Gateway.Port)
	if err := server.Start(listen); err != nil {
		return err
	}
	defer server.Stop()

	if cfg.Gateway.MetricsAddr != "" {
		metricscollector.InitMetricsCollectorSystem(logrus.StandardLogger(), m)
		router := api.NewRouter(api.NewServer(m))
		logrus.Infof("Metrics and status listening on %s", cfg.Gateway.MetricsAddr)
		go func() {
			if err := http.ListenAndServe(cfg.Gateway.MetricsAddr, router); err != nil {
				logrus.WithError(err).Error("Failed to serve metrics and status endpoint")
			}
		}()
	}

	util.RegisterShutdownChannel(done)
	<-done
	logrus.Infof("Gateway %v shutting down", cfg.Gateway.Name)
	return nil
}
