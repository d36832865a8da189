package manager

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

// listenerAddress validates and normalizes the transport fields shared by
// listener requests. trtype comes back upper case and adrfam lower case.
func listenerAddress(trtype, adrfam string, trsvcid uint32) (types.TransportType, types.AddressFamily, uint32, error) {
	tt, ok := types.ParseTransportType(trtype)
	if !ok {
		return "", "", 0, errno.New(errno.ENOKEY, "Unknown transport type %s", trtype)
	}
	af, ok := types.ParseAddressFamily(adrfam)
	if !ok {
		return "", "", 0, errno.New(errno.ENOKEY, "Unknown address family %s", adrfam)
	}
	if trsvcid == 0 {
		trsvcid = types.DefaultTrsvcid
	}
	return tt, af, trsvcid, nil
}

func (m *GatewayManager) CreateListener(ctx context.Context, req *types.CreateListenerRequest) error {
	return m.createListener(newLiveOperation(ctx), req)
}

func (m *GatewayManager) createListener(op *operation, req *types.CreateListenerRequest) error {
	log := m.logger.WithField("nqn", req.NQN)
	trtype, adrfam, trsvcid, err := listenerAddress(req.Trtype, req.Adrfam, req.Trsvcid)
	if err != nil {
		return m.failure(log, errno.Code(err), "%s", errno.Message(err))
	}
	haState, ok := types.ParseAutoHAState(req.AutoHAState)
	if !ok {
		return m.failure(log, errno.ENOKEY, "Unknown auto HA state %s", req.AutoHAState)
	}
	req.Trtype, req.Adrfam, req.Trsvcid, req.AutoHAState = string(trtype), string(adrfam), trsvcid, string(haState)

	prefix := fmt.Sprintf("Failure adding %s listener at %s:%d",
		req.NQN, types.EscapeAddressIfIPv6(req.Traddr), req.Trsvcid)
	log.Infof("Received request to create %v %v %v listener at %v:%v for gateway %v, auto HA state: %v, live: %v",
		req.Trtype, req.Adrfam, req.NQN, req.Traddr, req.Trsvcid, req.GatewayName, req.AutoHAState, op.live)

	if types.IsDiscoveryNQN(req.NQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't create a listener for a discovery subsystem", prefix)
	}
	if req.GatewayName != m.Name() {
		return m.failure(log, errno.ENOENT, "%s: Gateway name must match current gateway (%s)", prefix, m.Name())
	}

	return m.execute(op, func() error {
		key := kvstore.ListenerKey(req.NQN, req.GatewayName, req.Trtype, req.Traddr, req.Trsvcid)
		if op.live {
			_, exists, err := m.store.Lookup(key)
			if err != nil {
				return m.failure(log, errno.EINVAL, "%s:\n%v", prefix, err)
			}
			if exists {
				return m.failure(log, errno.EEXIST, "%s: Subsystem already listens on this address", prefix)
			}
		}

		addr := engineapi.NewListenAddress(trtype, adrfam, req.Traddr, req.Trsvcid)
		ok, err := m.engine.NvmfSubsystemAddListener(req.NQN, addr)
		log.Infof("nvmf_subsystem_add_listener: %v", ok)
		if err := engineFailure(ok, err, prefix); err != nil {
			log.Error(err.Error())
			return err
		}

		if haState == types.AutoHAStateUnset {
			haState = types.AutoHAStateOff
			if m.subsystemHAEnabled(req.NQN) {
				haState = types.AutoHAStateOn
			}
			req.AutoHAState = string(haState)
			log.Infof("Auto HA state resolved to %v", haState)
		}
		if haState == types.AutoHAStateOn {
			// The listener stays in place if any of the groups can't be set.
			if err := m.setListenerANAStates(log, req.NQN, addr, prefix); err != nil {
				return err
			}
		}

		return m.persist(op, log, func() error {
			return m.store.AddListener(req)
		}, "Error persisting listener %s:%d", types.EscapeAddressIfIPv6(req.Traddr), req.Trsvcid)
	})
}

func (m *GatewayManager) setListenerANAStates(log logrus.FieldLogger, nqn string, addr *engineapi.NvmfListenAddress, prefix string) error {
	for anagrpid := uint32(1); anagrpid <= types.MaxANAGroups; anagrpid++ {
		log.Infof("Setting ANA state of group %v to %v", anagrpid, types.ANAStateInaccessible)
		ok, err := m.engine.NvmfSubsystemListenerSetANAState(nqn, addr, types.ANAStateInaccessible, anagrpid)
		log.Infof("nvmf_subsystem_listener_set_ana_state: %v", ok)
		if err := engineFailure(ok, err, "Error setting ANA state"); err != nil {
			return m.failure(log, errno.Code(err), "%s: %s", prefix, errno.Message(err))
		}
	}
	return nil
}

func (m *GatewayManager) DeleteListener(ctx context.Context, req *types.DeleteListenerRequest) error {
	return m.deleteListener(newLiveOperation(ctx), req)
}

func (m *GatewayManager) deleteListener(op *operation, req *types.DeleteListenerRequest) error {
	log := m.logger.WithField("nqn", req.NQN)
	trtype, adrfam, trsvcid, err := listenerAddress(req.Trtype, req.Adrfam, req.Trsvcid)
	if err != nil {
		return m.failure(log, errno.Code(err), "%s", errno.Message(err))
	}
	req.Trtype, req.Adrfam, req.Trsvcid = string(trtype), string(adrfam), trsvcid

	prefix := fmt.Sprintf("Failure deleting listener %s:%d from %s",
		types.EscapeAddressIfIPv6(req.Traddr), req.Trsvcid, req.NQN)
	log.Infof("Received request to delete %v %v listener at %v:%v for gateway %v, live: %v",
		req.Trtype, req.Adrfam, req.Traddr, req.Trsvcid, req.GatewayName, op.live)

	if types.IsDiscoveryNQN(req.NQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't delete a listener from a discovery subsystem", prefix)
	}
	if req.GatewayName != m.Name() {
		return m.failure(log, errno.ENOENT, "%s: Gateway name must match current gateway (%s)", prefix, m.Name())
	}

	return m.execute(op, func() error {
		addr := engineapi.NewListenAddress(trtype, adrfam, req.Traddr, req.Trsvcid)
		ok, err := m.engine.NvmfSubsystemRemoveListener(req.NQN, addr)
		log.Infof("nvmf_subsystem_remove_listener: %v", ok)
		engineErr := engineFailure(ok, err, prefix)

		persistErr := m.persist(op, log, func() error {
			return m.store.RemoveListener(req.NQN, req.GatewayName, req.Trtype, req.Traddr, req.Trsvcid)
		}, "Error persisting deletion of listener %s:%d", types.EscapeAddressIfIPv6(req.Traddr), req.Trsvcid)
		if engineErr != nil {
			log.Error(engineErr.Error())
			return engineErr
		}
		return persistErr
	})
}

// isOwnListener tells whether a listener record belongs to this gateway.
func (m *GatewayManager) isOwnListener(req *types.CreateListenerRequest) bool {
	return req.GatewayName == m.Name()
}
