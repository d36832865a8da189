package manager

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

func (m *GatewayManager) CreateSubsystem(ctx context.Context, req *types.CreateSubsystemRequest) error {
	return m.createSubsystem(newLiveOperation(ctx), req)
}

func (m *GatewayManager) createSubsystem(op *operation, req *types.CreateSubsystemRequest) error {
	prefix := fmt.Sprintf("Failure creating subsystem %s", req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to create subsystem, enable_ha: %v, ana reporting: %v, live: %v",
		req.EnableHA, req.AnaReporting, op.live)

	if types.IsDiscoveryNQN(req.SubsystemNQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't create a discovery subsystem", prefix)
	}
	if req.EnableHA && !req.AnaReporting {
		return m.failure(log, errno.EINVAL, "%s: HA is enabled but ANA reporting is disabled", prefix)
	}
	minCntlid, maxCntlid := req.MinCntlid, req.MaxCntlid
	if minCntlid == 0 {
		minCntlid = m.cfg.Gateway.MinControllerID
	}
	if maxCntlid == 0 {
		maxCntlid = m.cfg.Gateway.MaxControllerID
	}
	if minCntlid > maxCntlid {
		return m.failure(log, errno.EINVAL, "%s: Min controller id %d is bigger than max controller id %d",
			prefix, minCntlid, maxCntlid)
	}
	if req.SerialNumber == "" {
		req.SerialNumber = util.GenerateSerialNumber(types.SerialNumberPrefix)
		log.Infof("No serial number specified, will use %v", req.SerialNumber)
	}

	return m.execute(op, func() error {
		if op.live {
			if err := m.checkSubsystemUnique(req); err != nil {
				return m.failure(log, errno.Code(err), "%s: %s", prefix, errno.Message(err))
			}
		}

		ok, err := m.engine.NvmfCreateSubsystem(&engineapi.NvmfCreateSubsystemParams{
			Nqn:           req.SubsystemNQN,
			SerialNumber:  req.SerialNumber,
			MaxNamespaces: req.MaxNamespaces,
			MinCntlid:     minCntlid,
			MaxCntlid:     maxCntlid,
			AnaReporting:  req.AnaReporting,
		})
		log.Infof("nvmf_create_subsystem: %v", ok)
		if err := engineFailure(ok, err, prefix); err != nil {
			log.Error(err.Error())
			return err
		}

		return m.persist(op, log, func() error {
			return m.store.AddSubsystem(req)
		}, "Error persisting subsystem %s", req.SubsystemNQN)
	})
}

// checkSubsystemUnique rejects a NQN or serial number that is already in the
// persisted record.
func (m *GatewayManager) checkSubsystemUnique(req *types.CreateSubsystemRequest) error {
	state, err := m.store.GetState()
	if err != nil {
		return errno.New(errno.EINVAL, "%v", err)
	}
	if _, exists := state[kvstore.SubsystemKey(req.SubsystemNQN)]; exists {
		return errno.New(errno.EEXIST, "Subsystem already exists")
	}
	for key, value := range state {
		if kvstore.KeyType(key) != kvstore.SubsystemPrefix {
			continue
		}
		subsystem := &types.CreateSubsystemRequest{}
		if err := unmarshalRecord(value, subsystem); err != nil {
			m.logger.WithError(err).Warnf("Failed to decode record %v", key)
			continue
		}
		if subsystem.SerialNumber == req.SerialNumber {
			return errno.New(errno.EEXIST, "Serial number %s already used by subsystem %s",
				req.SerialNumber, subsystem.SubsystemNQN)
		}
	}
	return nil
}

// subsystemRecords returns the NSIDs of the namespace records of nqn and
// whether any listener record exists for it.
func (m *GatewayManager) subsystemRecords(nqn string) ([]uint32, bool, error) {
	state, err := m.store.GetState()
	if err != nil {
		return nil, false, err
	}
	nsids := []uint32{}
	hasListener := false
	for key, value := range state {
		switch {
		case strings.HasPrefix(key, kvstore.SubsystemNamespacePrefix(nqn)):
			ns := &types.NamespaceAddRequest{}
			if err := unmarshalRecord(value, ns); err != nil {
				m.logger.WithError(err).Warnf("Failed to decode record %v", key)
				continue
			}
			if ns.SubsystemNQN == nqn {
				nsids = append(nsids, ns.NSID)
			}
		case strings.HasPrefix(key, kvstore.SubsystemListenerPrefix(nqn)):
			listener := &types.CreateListenerRequest{}
			if err := unmarshalRecord(value, listener); err != nil {
				m.logger.WithError(err).Warnf("Failed to decode record %v", key)
				continue
			}
			if listener.NQN == nqn {
				hasListener = true
			}
		}
	}
	sort.Slice(nsids, func(i, j int) bool { return nsids[i] < nsids[j] })
	return nsids, hasListener, nil
}

func (m *GatewayManager) DeleteSubsystem(ctx context.Context, req *types.DeleteSubsystemRequest) error {
	return m.deleteSubsystem(newLiveOperation(ctx), req)
}

func (m *GatewayManager) deleteSubsystem(op *operation, req *types.DeleteSubsystemRequest) error {
	prefix := fmt.Sprintf("Failure deleting subsystem %s", req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to delete subsystem, force: %v, live: %v", req.Force, op.live)

	if types.IsDiscoveryNQN(req.SubsystemNQN) {
		return m.failure(log, errno.EINVAL, "%s: Can't delete a discovery subsystem", prefix)
	}

	return m.execute(op, func() error {
		nsids := []uint32{}
		if op.live {
			var hasListener bool
			var err error
			nsids, hasListener, err = m.subsystemRecords(req.SubsystemNQN)
			if err != nil {
				return m.failure(log, errno.EINVAL, "%s:\n%v", prefix, err)
			}
			if hasListener {
				log.Warn("About to delete a subsystem which has a listener defined")
			}
		}
		if len(nsids) > 0 && !req.Force {
			return m.failure(log, errno.EBUSY,
				"%s: Namespace %d is still using the subsystem. Either remove it or use the '--force' command line option",
				prefix, nsids[0])
		}
		for _, nsid := range nsids {
			log.Warnf("Will remove namespace %v", nsid)
			if err := m.deleteNamespace(op, &types.NamespaceDeleteRequest{
				SubsystemNQN: req.SubsystemNQN,
				NSID:         nsid,
			}); err != nil {
				log.WithError(err).Errorf("Failed to remove namespace %v, will continue deleting the subsystem anyway", nsid)
				continue
			}
			log.Infof("Automatically removed namespace %v", nsid)
		}

		ok, err := m.engine.NvmfDeleteSubsystem(req.SubsystemNQN)
		log.Infof("nvmf_delete_subsystem: %v", ok)
		engineErr := engineFailure(ok, err, prefix)
		persistErr := m.persist(op, log, func() error {
			return m.store.RemoveSubsystem(req.SubsystemNQN)
		}, "Error persisting deletion of subsystem %s", req.SubsystemNQN)
		if engineErr != nil {
			log.Error(engineErr.Error())
			return engineErr
		}
		return persistErr
	})
}

// subsystemHAEnabled reads enable_ha from the subsystem record.
func (m *GatewayManager) subsystemHAEnabled(nqn string) bool {
	subsystem := &types.CreateSubsystemRequest{}
	exists, err := m.lookupRecord(kvstore.SubsystemKey(nqn), subsystem)
	if err != nil {
		m.logger.WithError(err).Errorf("Failed to get subsystem %v", nqn)
		return false
	}
	if !exists {
		m.logger.Warnf("Subsystem %v not found", nqn)
		return false
	}
	return subsystem.EnableHA
}
