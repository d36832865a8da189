package manager

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

// GatewayManager applies configuration changes to the local engine and to
// the persisted record of the gateway group, and replays changes made by
// peer gateways.
type GatewayManager struct {
	cfg    *types.Config
	engine engineapi.Engine
	store  *kvstore.KVStore
	pool   *ClusterPool
	locks  *DualLock
	logger logrus.FieldLogger

	resync singleflight.Group
}

func NewGatewayManager(cfg *types.Config, engine engineapi.Engine, store *kvstore.KVStore) (*GatewayManager, error) {
	if cfg == nil || engine == nil || store == nil {
		return nil, errors.Errorf("invalid empty config, engine or store")
	}
	pool, err := NewClusterPool(engine, cfg.Ceph.ID, cfg.SPDK.LibrbdCoreMask, cfg.SPDK.BdevsPerCluster)
	if err != nil {
		return nil, err
	}
	m := &GatewayManager{
		cfg:    cfg,
		engine: engine,
		store:  store,
		pool:   pool,
		locks:  NewDualLock(store.Locker()),
		logger: logrus.WithFields(logrus.Fields{
			"component": "gateway",
			"gateway":   cfg.Gateway.Name,
		}),
	}
	store.SetUpdateCallback(m.applyUpdate)
	return m, nil
}

func (m *GatewayManager) Name() string {
	return m.cfg.Gateway.Name
}

func (m *GatewayManager) Group() string {
	return m.cfg.Gateway.Group
}

func (m *GatewayManager) Config() *types.Config {
	return m.cfg
}

// State returns the persisted records as last seen by this gateway.
func (m *GatewayManager) State() map[string]string {
	return m.store.LocalState()
}

// execute runs fn under the configuration and engine-call locks.
func (m *GatewayManager) execute(op *operation, fn func() error) error {
	if err := m.locks.Lock(op); err != nil {
		m.logger.WithError(err).Error("Failed to lock gateway configuration")
		return errno.New(errno.EIO, "Failure acquiring gateway configuration lock: %v", err)
	}
	defer m.locks.Unlock(op)
	return fn()
}

// query runs fn under the engine-call lock only.
func (m *GatewayManager) query(op *operation, fn func() error) error {
	if err := m.locks.LockLocal(op); err != nil {
		m.logger.WithError(err).Error("Failed to lock engine")
		return errno.New(errno.EIO, "Failure acquiring engine lock: %v", err)
	}
	defer m.locks.UnlockLocal(op)
	return fn()
}

// failure builds a status error and logs it.
func (m *GatewayManager) failure(log logrus.FieldLogger, code errno.Errno, format string, args ...interface{}) error {
	err := errno.New(code, format, args...)
	log.Error(err.Error())
	return err
}

// engineFailure turns the outcome of an engine call into a status error, or
// nil when the call succeeded.
func engineFailure(ok bool, err error, prefix string) error {
	if err != nil {
		return engineapi.TranslateError(err, prefix, errno.EINVAL)
	}
	if !ok {
		return engineapi.FalsyResultError(prefix)
	}
	return nil
}

// prefixed keeps the code of err and prepends prefix to its message.
func prefixed(err error, sep, prefix string) error {
	return errno.New(errno.Code(err), "%s%s%s", prefix, sep, errno.Message(err))
}

// persist runs a store write in live mode. A failed write after the engine
// change is reported as invalid argument and not rolled back.
func (m *GatewayManager) persist(op *operation, log logrus.FieldLogger, write func() error, format string, args ...interface{}) error {
	if !op.live {
		return nil
	}
	if err := write(); err != nil {
		return m.failure(log, errno.EINVAL, "%s:\n%v", fmt.Sprintf(format, args...), err)
	}
	return nil
}

// lookupRecord decodes the stored record at key into obj.
func (m *GatewayManager) lookupRecord(key string, obj interface{}) (bool, error) {
	value, exists, err := m.store.Lookup(key)
	if err != nil || !exists {
		return false, err
	}
	if err := unmarshalRecord(value, obj); err != nil {
		return false, errors.Wrapf(err, "unable to decode record %v", key)
	}
	return true, nil
}

func unmarshalRecord(value string, obj interface{}) error {
	return json.Unmarshal([]byte(value), obj)
}
