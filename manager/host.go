package manager

import (
	"context"
	"fmt"

	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

func (m *GatewayManager) AddHost(ctx context.Context, req *types.AddHostRequest) error {
	return m.addHost(newLiveOperation(ctx), req)
}

func (m *GatewayManager) addHost(op *operation, req *types.AddHostRequest) error {
	anyHost := req.HostNQN == types.AllowAnyHostNQN
	prefix := fmt.Sprintf("Failure adding host %s to %s", req.HostNQN, req.SubsystemNQN)
	if anyHost {
		prefix = fmt.Sprintf("Failure allowing open host access to %s", req.SubsystemNQN)
	}
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to add host %v, live: %v", req.HostNQN, op.live)

	if types.IsDiscoveryNQN(req.SubsystemNQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't allow host access to a discovery subsystem", prefix)
	}
	if types.IsDiscoveryNQN(req.HostNQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't use a discovery NQN as host's NQN", prefix)
	}

	return m.execute(op, func() error {
		if op.live {
			_, exists, err := m.store.Lookup(kvstore.HostKey(req.SubsystemNQN, req.HostNQN))
			if err != nil {
				return m.failure(log, errno.EINVAL, "%s:\n%v", prefix, err)
			}
			if exists {
				if anyHost {
					return m.failure(log, errno.EEXIST, "%s: Open host access is already allowed", prefix)
				}
				return m.failure(log, errno.EEXIST, "%s: Host is already added", prefix)
			}
		}

		var (
			ok  bool
			err error
		)
		if anyHost {
			ok, err = m.engine.NvmfSubsystemAllowAnyHost(req.SubsystemNQN, true)
			log.Infof("nvmf_subsystem_allow_any_host: %v", ok)
		} else {
			ok, err = m.engine.NvmfSubsystemAddHost(req.SubsystemNQN, req.HostNQN)
			log.Infof("nvmf_subsystem_add_host: %v", ok)
		}
		if err := engineFailure(ok, err, prefix); err != nil {
			log.Error(err.Error())
			return err
		}

		return m.persist(op, log, func() error {
			return m.store.AddHost(req)
		}, "Error persisting host %s access addition", req.HostNQN)
	})
}

func (m *GatewayManager) RemoveHost(ctx context.Context, req *types.RemoveHostRequest) error {
	return m.removeHost(newLiveOperation(ctx), req)
}

func (m *GatewayManager) removeHost(op *operation, req *types.RemoveHostRequest) error {
	anyHost := req.HostNQN == types.AllowAnyHostNQN
	prefix := fmt.Sprintf("Failure removing host %s access from %s", req.HostNQN, req.SubsystemNQN)
	if anyHost {
		prefix = fmt.Sprintf("Failure disabling open host access to %s", req.SubsystemNQN)
	}
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to remove host %v, live: %v", req.HostNQN, op.live)

	if types.IsDiscoveryNQN(req.SubsystemNQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't remove host access from a discovery subsystem", prefix)
	}
	if types.IsDiscoveryNQN(req.HostNQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't use a discovery NQN as host's NQN", prefix)
	}

	return m.execute(op, func() error {
		var (
			ok  bool
			err error
		)
		if anyHost {
			ok, err = m.engine.NvmfSubsystemAllowAnyHost(req.SubsystemNQN, false)
			log.Infof("nvmf_subsystem_allow_any_host: %v", ok)
		} else {
			ok, err = m.engine.NvmfSubsystemRemoveHost(req.SubsystemNQN, req.HostNQN)
			log.Infof("nvmf_subsystem_remove_host: %v", ok)
		}
		engineErr := engineFailure(ok, err, prefix)

		// The record goes away even if the engine refused.
		persistErr := m.persist(op, log, func() error {
			return m.store.RemoveHost(req.SubsystemNQN, req.HostNQN)
		}, "Error persisting host %s access removal", req.HostNQN)
		if engineErr != nil {
			log.Error(engineErr.Error())
			return engineErr
		}
		return persistErr
	})
}
