package types

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/longhorn/nvmeof-gateway/util"
)

const (
	StoreBackendETCD   = "etcd"
	StoreBackendMemory = "memory"

	DefaultGatewayPort            = 5500
	DefaultMinControllerID        = 1
	DefaultMaxControllerID        = 65519
	DefaultStateUpdateIntervalSec = 5
	DefaultRPCSocket              = "/var/tmp/spdk.sock"
	DefaultSPDKTimeoutSec         = 60
	DefaultSPDKConnRetries        = 10
	DefaultBdevsPerCluster        = 8
	DefaultStoreDialTimeoutSec    = 5
	DefaultStoreLockTTLSec        = 60
	DefaultCephID                 = "admin"
)

type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Store   StoreConfig   `yaml:"store"`
	Ceph    CephConfig    `yaml:"ceph"`
	SPDK    SPDKConfig    `yaml:"spdk"`
}

type GatewayConfig struct {
	Name                   string `yaml:"name"`
	Group                  string `yaml:"group"`
	Addr                   string `yaml:"addr"`
	Port                   int    `yaml:"port"`
	MetricsAddr            string `yaml:"metrics_addr"`
	MinControllerID        uint16 `yaml:"min_controller_id"`
	MaxControllerID        uint16 `yaml:"max_controller_id"`
	StateUpdateIntervalSec int    `yaml:"state_update_interval_sec"`
	EnableStateWatch       *bool  `yaml:"enable_state_watch"`
}

type StoreConfig struct {
	Backend        string   `yaml:"backend"`
	Endpoints      []string `yaml:"endpoints"`
	DialTimeoutSec int      `yaml:"dial_timeout_sec"`
	LockTTLSec     int      `yaml:"lock_ttl_sec"`
}

type CephConfig struct {
	ID string `yaml:"id"`
}

type SPDKConfig struct {
	RPCSocket       string `yaml:"rpc_socket"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	ConnRetries     int    `yaml:"conn_retries"`
	BdevsPerCluster int    `yaml:"bdevs_per_cluster"`
	LibrbdCoreMask  string `yaml:"librbd_core_mask"`
}

// NewDefaultConfig returns a configuration with every optional key set.
// The gateway name defaults to the hostname.
func NewDefaultConfig() *Config {
	name := util.GetHostname()
	watch := true
	return &Config{
		Gateway: GatewayConfig{
			Name:                   name,
			Addr:                   "127.0.0.1",
			Port:                   DefaultGatewayPort,
			MinControllerID:        DefaultMinControllerID,
			MaxControllerID:        DefaultMaxControllerID,
			StateUpdateIntervalSec: DefaultStateUpdateIntervalSec,
			EnableStateWatch:       &watch,
		},
		Store: StoreConfig{
			Backend:        StoreBackendMemory,
			DialTimeoutSec: DefaultStoreDialTimeoutSec,
			LockTTLSec:     DefaultStoreLockTTLSec,
		},
		Ceph: CephConfig{
			ID: DefaultCephID,
		},
		SPDK: SPDKConfig{
			RPCSocket:       DefaultRPCSocket,
			TimeoutSec:      DefaultSPDKTimeoutSec,
			ConnRetries:     DefaultSPDKConnRetries,
			BdevsPerCluster: DefaultBdevsPerCluster,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (cfg *Config, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "unable to load config %v", path)
		}
	}()

	cfg = NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Gateway.Name == "" {
		return errors.Errorf("gateway name is required")
	}
	if c.Gateway.MinControllerID > c.Gateway.MaxControllerID {
		return errors.Errorf("min_controller_id %v is greater than max_controller_id %v",
			c.Gateway.MinControllerID, c.Gateway.MaxControllerID)
	}
	if c.Gateway.StateUpdateIntervalSec < 0 {
		return errors.Errorf("invalid state_update_interval_sec %v", c.Gateway.StateUpdateIntervalSec)
	}
	if c.SPDK.BdevsPerCluster < 1 {
		return errors.Errorf("bdevs_per_cluster must be at least 1, got %v", c.SPDK.BdevsPerCluster)
	}
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendETCD:
		if len(c.Store.Endpoints) == 0 {
			return errors.Errorf("etcd store requires at least one endpoint")
		}
	default:
		return errors.Errorf("unknown store backend %v", c.Store.Backend)
	}
	return nil
}

func (c *Config) StateWatchEnabled() bool {
	return c.Gateway.EnableStateWatch == nil || *c.Gateway.EnableStateWatch
}

func (c *Config) StateUpdateInterval() time.Duration {
	return time.Duration(c.Gateway.StateUpdateIntervalSec) * time.Second
}

// StoreNamespace is the root every key of this gateway group lives under.
func (c *Config) StoreNamespace() string {
	return "nvmeof." + c.Gateway.Group + "."
}
