package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

func (m *GatewayManager) createBdev(log logrus.FieldLogger, name, uuid string, req *types.NamespaceAddRequest) error {
	log.Infof("Received request to create bdev %v from %v/%v with block size %v",
		name, req.RbdPoolName, req.RbdImageName, req.BlockSize)

	cluster, err := m.pool.Acquire()
	if err != nil {
		return err
	}
	ret, err := m.engine.BdevRbdCreate(&engineapi.BdevRbdCreateParams{
		Name:        name,
		PoolName:    req.RbdPoolName,
		RbdName:     req.RbdImageName,
		BlockSize:   req.BlockSize,
		UUID:        uuid,
		ClusterName: cluster,
	})
	if err != nil {
		return engineapi.TranslateError(err, "Failure creating bdev "+name, errno.EINVAL)
	}
	if ret == "" {
		return engineapi.FalsyResultError("Can't create bdev " + name)
	}
	if ret != name {
		log.Warnf("Created bdev name %v differs from requested name %v", ret, name)
	}
	return nil
}

func (m *GatewayManager) deleteBdev(log logrus.FieldLogger, name string) error {
	log.Infof("Received request to delete bdev %v", name)
	ok, err := m.engine.BdevRbdDelete(name)
	log.Infof("bdev_rbd_delete %v: %v", name, ok)
	return engineFailure(ok, err, "Failure deleting bdev "+name)
}

// attachNamespace adds bdevName to the subsystem and returns the NSID the
// engine assigned.
func (m *GatewayManager) attachNamespace(log logrus.FieldLogger, nqn, bdevName string, nsid, anagrpid uint32, uuid string) (uint32, error) {
	prefix := fmt.Sprintf("Failure adding namespace %sto %s", types.NamespaceIDMessage(nsid, uuid), nqn)
	log.Infof("Received request to add %v with ANA group id %v", bdevName, anagrpid)

	if anagrpid > types.MaxANAGroups {
		return 0, errno.New(errno.EINVAL, "%s: Group ID %d is bigger than configured maximum %d",
			prefix, anagrpid, types.MaxANAGroups)
	}
	if types.IsDiscoveryNQN(nqn) {
		return 0, errno.New(errno.EINVAL, "%s: Can't add namespaces to a discovery subsystem", prefix)
	}

	ret, err := m.engine.NvmfSubsystemAddNs(nqn, &engineapi.NvmfNamespaceParams{
		BdevName: bdevName,
		Nsid:     nsid,
		Anagrpid: anagrpid,
		UUID:     uuid,
	})
	log.Infof("nvmf_subsystem_add_ns: %v", ret)
	if err := engineFailure(ret != 0, err, prefix); err != nil {
		return 0, err
	}
	return ret, nil
}

func (m *GatewayManager) detachNamespace(log logrus.FieldLogger, nqn string, nsid uint32) error {
	prefix := fmt.Sprintf("Failure removing namespace %d from %s", nsid, nqn)
	log.Infof("Received request to remove namespace %v", nsid)

	if types.IsDiscoveryNQN(nqn) {
		return errno.New(errno.EINVAL, "%s: Can't remove a namespace from a discovery subsystem", prefix)
	}
	ok, err := m.engine.NvmfSubsystemRemoveNs(nqn, nsid)
	log.Infof("nvmf_subsystem_remove_ns %v: %v", nsid, ok)
	return engineFailure(ok, err, prefix)
}

// findNamespace looks the namespace up on the engine by NSID and/or UUID.
// It returns a nil namespace and no error when nothing matches.
func (m *GatewayManager) findNamespace(log logrus.FieldLogger, nqn string, nsid uint32, uuid, prefix string) (*engineapi.NvmfNamespace, error) {
	if nsid == 0 && uuid == "" {
		return nil, errno.New(errno.EINVAL, "%s: At least one of NSID or UUID should be specified for finding a namespace", prefix)
	}
	subsystems, err := m.engine.NvmfGetSubsystems(nqn)
	if err != nil {
		return nil, engineapi.TranslateError(err, prefix, errno.ENODEV)
	}
	for _, s := range subsystems {
		if s.Nqn != nqn {
			log.Warnf("Got subsystem %v instead of %v, ignore", s.Nqn, nqn)
			continue
		}
		for i := range s.Namespaces {
			ns := &s.Namespaces[i]
			if nsid != 0 && ns.Nsid != nsid {
				continue
			}
			if uuid != "" && ns.UUID != uuid {
				continue
			}
			return ns, nil
		}
		break
	}
	return nil, nil
}

// recordedNamespaceID returns the NSID of the namespace record of nqn that
// carries uuid, or 0 when there is none.
func (m *GatewayManager) recordedNamespaceID(log logrus.FieldLogger, nqn, uuid string) uint32 {
	state, err := m.store.GetState()
	if err != nil {
		log.WithError(err).Warnf("Failed to get namespace records of %v", nqn)
		return 0
	}
	for key, value := range state {
		if !strings.HasPrefix(key, kvstore.SubsystemNamespacePrefix(nqn)) {
			continue
		}
		record := &types.NamespaceAddRequest{}
		if err := unmarshalRecord(value, record); err != nil {
			log.WithError(err).Warnf("Failed to decode record %v", key)
			continue
		}
		if record.SubsystemNQN == nqn && record.UUID == uuid {
			return record.NSID
		}
	}
	return 0
}

func (m *GatewayManager) AddNamespace(ctx context.Context, req *types.NamespaceAddRequest) (uint32, error) {
	return m.addNamespace(newLiveOperation(ctx), req)
}

func (m *GatewayManager) addNamespace(op *operation, req *types.NamespaceAddRequest) (uint32, error) {
	nsidMsg := types.NamespaceIDMessage(req.NSID, req.UUID)
	prefix := fmt.Sprintf("Failure adding namespace %sto %s", nsidMsg, req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to add a namespace %sfrom %v/%v, live: %v",
		nsidMsg, req.RbdPoolName, req.RbdImageName, op.live)

	if req.Anagrpid > types.MaxANAGroups {
		return 0, m.failure(log, errno.EINVAL, "%s: Group ID %d is bigger than configured maximum %d",
			prefix, req.Anagrpid, types.MaxANAGroups)
	}
	if types.IsDiscoveryNQN(req.SubsystemNQN) {
		return 0, m.failure(log, errno.EINVAL, "%s: Can't add namespaces to a discovery subsystem", prefix)
	}
	if req.UUID == "" {
		req.UUID = util.UUID()
	} else {
		uuid, err := util.ValidateUUID(req.UUID)
		if err != nil {
			return 0, m.failure(log, errno.EINVAL, "%s: %v", prefix, err)
		}
		req.UUID = uuid
	}

	var nsid uint32
	err := m.execute(op, func() error {
		bdevName := types.GetBdevName(req.UUID)
		if err := m.createBdev(log, bdevName, req.UUID, req); err != nil {
			err = prefixed(err, ": ", prefix)
			log.Error(err.Error())
			return err
		}

		ret, err := m.attachNamespace(log, req.SubsystemNQN, bdevName, req.NSID, req.Anagrpid, req.UUID)
		if err != nil {
			if delErr := m.deleteBdev(log, bdevName); delErr != nil {
				log.WithError(delErr).Warnf("Failed to delete bdev %v", bdevName)
			}
			err = prefixed(err, ":", prefix)
			log.Error(err.Error())
			return err
		}
		if req.NSID != 0 && ret != req.NSID {
			log.Warnf("Returned NSID %v differs from requested one %v", ret, req.NSID)
		}
		nsid = ret

		record := &types.NamespaceAddRequest{}
		if err := copier.Copy(record, req); err != nil {
			return m.failure(log, errno.EINVAL, "Error persisting namespace %son %s:\n%v", nsidMsg, req.SubsystemNQN, err)
		}
		record.NSID = nsid
		return m.persist(op, log, func() error {
			return m.store.AddNamespace(record)
		}, "Error persisting namespace %son %s", nsidMsg, req.SubsystemNQN)
	})
	if err != nil {
		return 0, err
	}
	return nsid, nil
}

func (m *GatewayManager) ChangeLoadBalancingGroup(ctx context.Context, req *types.NamespaceChangeLoadBalancingGroupRequest) error {
	return m.changeLoadBalancingGroup(newLiveOperation(ctx), req)
}

func (m *GatewayManager) changeLoadBalancingGroup(op *operation, req *types.NamespaceChangeLoadBalancingGroupRequest) error {
	nsidMsg := types.NamespaceIDMessage(req.NSID, req.UUID)
	prefix := fmt.Sprintf("Failure changing load balancing group for namespace %sin %s", nsidMsg, req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to change load balancing group for namespace %sto %v, live: %v",
		nsidMsg, req.Anagrpid, op.live)

	if req.Anagrpid < 1 || req.Anagrpid > types.MaxANAGroups {
		return m.failure(log, errno.EINVAL, "%s: Load balancing group %d is out of range [1, %d]",
			prefix, req.Anagrpid, types.MaxANAGroups)
	}

	return m.execute(op, func() error {
		ns, err := m.findNamespace(log, req.SubsystemNQN, req.NSID, req.UUID, prefix)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		if ns == nil {
			return m.failure(log, errno.ENODEV, "%s: Can't find namespace", prefix)
		}
		if req.NSID != 0 && req.NSID != ns.Nsid {
			return m.failure(log, errno.ENODEV, "%s: Returned NSID %d differs from requested one %d", prefix, ns.Nsid, req.NSID)
		}
		if req.UUID != "" && req.UUID != ns.UUID {
			return m.failure(log, errno.ENODEV, "%s: Returned UUID %s differs from requested one %s", prefix, ns.UUID, req.UUID)
		}
		bdevName := ns.BdevName
		if bdevName == "" {
			bdevName = types.GetBdevName(ns.UUID)
			log.Warnf("Failure finding namespace's associated block device name, will use %v instead", bdevName)
		}

		entry := &types.NamespaceAddRequest{}
		if op.live {
			exists, err := m.lookupRecord(kvstore.NamespaceKey(req.SubsystemNQN, ns.Nsid), entry)
			if err != nil {
				return m.failure(log, errno.ENOENT, "%s. Can't get namespace entry from local state:\n%v", prefix, err)
			}
			if !exists {
				return m.failure(log, errno.ENOENT, "%s. Can't get namespace entry from local state", prefix)
			}
		}

		if err := m.detachNamespace(log, req.SubsystemNQN, ns.Nsid); err != nil {
			return m.failure(log, errno.Code(err), "%s. Can't delete namespace: %s", prefix, errno.Message(err))
		}
		if op.live {
			if err := m.store.RemoveNamespace(req.SubsystemNQN, ns.Nsid); err != nil {
				log.WithError(err).Errorf("Error persisting removing of namespace %v", ns.Nsid)
			}
		}

		// The namespace stays detached if this fails.
		if _, err := m.attachNamespace(log, req.SubsystemNQN, bdevName, ns.Nsid, req.Anagrpid, ns.UUID); err != nil {
			return m.failure(log, errno.Code(err), "%s:%s", prefix, errno.Message(err))
		}

		record := &types.NamespaceAddRequest{}
		if err := copier.Copy(record, entry); err != nil {
			return m.failure(log, errno.EINVAL, "Error persisting change load balancing group for namespace %sin %s:\n%v",
				nsidMsg, req.SubsystemNQN, err)
		}
		record.SubsystemNQN = req.SubsystemNQN
		record.NSID = ns.Nsid
		record.UUID = ns.UUID
		record.Anagrpid = req.Anagrpid
		return m.persist(op, log, func() error {
			return m.store.AddNamespace(record)
		}, "Error persisting change load balancing group for namespace %sin %s", nsidMsg, req.SubsystemNQN)
	})
}

// ResizeNamespace only takes the engine-call lock since nothing is
// persisted.
func (m *GatewayManager) ResizeNamespace(ctx context.Context, req *types.NamespaceResizeRequest) error {
	op := newLiveOperation(ctx)
	nsidMsg := types.NamespaceIDMessage(req.NSID, req.UUID)
	prefix := fmt.Sprintf("Failure resizing namespace %son %s", nsidMsg, req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to resize namespace %sto %v MiB", nsidMsg, req.NewSize)

	return m.query(op, func() error {
		ns, err := m.findNamespace(log, req.SubsystemNQN, req.NSID, req.UUID, prefix)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		if ns == nil {
			return m.failure(log, errno.ENODEV, "%s: Can't find namespace", prefix)
		}
		if ns.BdevName == "" {
			return m.failure(log, errno.ENODEV, "%s: Can't find associated block device", prefix)
		}

		log.Infof("Received request to resize bdev %v to %v MiB", ns.BdevName, req.NewSize)
		ok, err := m.engine.BdevRbdResize(ns.BdevName, req.NewSize)
		log.Infof("bdev_rbd_resize %v: %v", ns.BdevName, ok)
		if err := engineFailure(ok, err, "Failure resizing bdev "+ns.BdevName); err != nil {
			return m.failure(log, errno.Code(err), "Failure resizing namespace: %s", errno.Message(err))
		}
		return nil
	})
}

func (m *GatewayManager) DeleteNamespace(ctx context.Context, req *types.NamespaceDeleteRequest) error {
	return m.deleteNamespace(newLiveOperation(ctx), req)
}

func (m *GatewayManager) deleteNamespace(op *operation, req *types.NamespaceDeleteRequest) error {
	nsidMsg := types.NamespaceIDMessage(req.NSID, req.UUID)
	prefix := fmt.Sprintf("Failure deleting namespace %sfrom %s", nsidMsg, req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to delete namespace %slive: %v", nsidMsg, op.live)

	return m.execute(op, func() error {
		ns, err := m.findNamespace(log, req.SubsystemNQN, req.NSID, req.UUID, prefix)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		if ns == nil {
			// Already gone from the engine, only stale records are left.
			nsid := req.NSID
			if nsid == 0 && op.live {
				nsid = m.recordedNamespaceID(log, req.SubsystemNQN, req.UUID)
			}
			if nsid != 0 {
				m.removeNamespaceRecords(op, log, req.SubsystemNQN, nsid)
			}
			return m.failure(log, errno.ENODEV, "%s: Can't find namespace", prefix)
		}
		if ns.BdevName == "" {
			log.Warn("Can't find namespace's bdev name, will try to delete namespace anyway")
		}

		detachErr := m.detachNamespace(log, req.SubsystemNQN, ns.Nsid)
		m.removeNamespaceRecords(op, log, req.SubsystemNQN, ns.Nsid)
		if detachErr != nil {
			log.Error(detachErr.Error())
			return detachErr
		}

		if ns.BdevName != "" {
			if err := m.deleteBdev(log, ns.BdevName); err != nil {
				return m.failure(log, errno.Code(err), "%s: %s", prefix, errno.Message(err))
			}
		}
		return nil
	})
}

// removeNamespaceRecords drops the QoS and namespace records. Failures are
// only logged, the namespace is already gone from the engine.
func (m *GatewayManager) removeNamespaceRecords(op *operation, log logrus.FieldLogger, nqn string, nsid uint32) {
	if !op.live {
		return
	}
	if err := m.store.RemoveNamespaceQos(nqn, nsid); err != nil {
		log.WithError(err).Warn("Error removing namespace's QOS limits, they might not have been set")
	}
	if err := m.store.RemoveNamespace(nqn, nsid); err != nil {
		log.WithError(err).Errorf("Error persisting removing of namespace %v from %v", nsid, nqn)
	}
}

func (m *GatewayManager) SetNamespaceQosLimits(ctx context.Context, req *types.NamespaceSetQosRequest) error {
	return m.setNamespaceQosLimits(newLiveOperation(ctx), req)
}

func (m *GatewayManager) setNamespaceQosLimits(op *operation, req *types.NamespaceSetQosRequest) error {
	nsidMsg := types.NamespaceIDMessage(req.NSID, req.UUID)
	prefix := fmt.Sprintf("Failure setting QOS limits for namespace %son %s", nsidMsg, req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to set QOS limits for namespace %s%v, live: %v", nsidMsg, qosLimitsString(req), op.live)

	return m.execute(op, func() error {
		ns, err := m.findNamespace(log, req.SubsystemNQN, req.NSID, req.UUID, prefix)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		if ns == nil {
			return m.failure(log, errno.ENODEV, "%s: Can't find namespace", prefix)
		}
		if ns.BdevName == "" {
			return m.failure(log, errno.ENODEV, "%s: Can't find associated block device", prefix)
		}

		merged := &types.NamespaceSetQosRequest{}
		if err := copier.Copy(merged, req); err != nil {
			return m.failure(log, errno.EINVAL, "%s:\n%v", prefix, err)
		}
		merged.NSID = ns.Nsid
		if op.live {
			previous := &types.NamespaceSetQosRequest{}
			exists, err := m.lookupRecord(kvstore.NamespaceQosKey(req.SubsystemNQN, ns.Nsid), previous)
			if err != nil {
				log.WithError(err).Warn("Failed to get previous QOS limits")
			}
			if exists {
				mergeQosLimits(merged, previous)
				log.Infof("After merging current QOS limits with previous ones:%v", qosLimitsString(merged))
			} else {
				log.Info("No previous QOS limits found, this is the first time the limits are set")
			}
		}

		ok, err := m.engine.BdevSetQosLimit(&engineapi.BdevSetQosLimitParams{
			Name:           ns.BdevName,
			RwIosPerSec:    merged.RwIosPerSecond,
			RwMbytesPerSec: merged.RwMbytesPerSecond,
			RMbytesPerSec:  merged.RMbytesPerSecond,
			WMbytesPerSec:  merged.WMbytesPerSecond,
		})
		log.Infof("bdev_set_qos_limit %v: %v", ns.BdevName, ok)
		if err := engineFailure(ok, err, prefix); err != nil {
			log.Error(err.Error())
			return err
		}

		return m.persist(op, log, func() error {
			return m.store.AddNamespaceQos(merged)
		}, "Error persisting namespace QOS settings %son %s", nsidMsg, req.SubsystemNQN)
	})
}

// mergeQosLimits fills the limits left unset in req from previous.
func mergeQosLimits(req, previous *types.NamespaceSetQosRequest) {
	if req.RwIosPerSecond == nil {
		req.RwIosPerSecond = previous.RwIosPerSecond
	}
	if req.RwMbytesPerSecond == nil {
		req.RwMbytesPerSecond = previous.RwMbytesPerSecond
	}
	if req.RMbytesPerSecond == nil {
		req.RMbytesPerSecond = previous.RMbytesPerSecond
	}
	if req.WMbytesPerSecond == nil {
		req.WMbytesPerSecond = previous.WMbytesPerSecond
	}
}

func qosLimitsString(req *types.NamespaceSetQosRequest) string {
	ret := ""
	if req.RwIosPerSecond != nil {
		ret += fmt.Sprintf(" R/W IOs per second: %d", *req.RwIosPerSecond)
	}
	if req.RwMbytesPerSecond != nil {
		ret += fmt.Sprintf(" R/W megabytes per second: %d", *req.RwMbytesPerSecond)
	}
	if req.RMbytesPerSecond != nil {
		ret += fmt.Sprintf(" Read megabytes per second: %d", *req.RMbytesPerSecond)
	}
	if req.WMbytesPerSecond != nil {
		ret += fmt.Sprintf(" Write megabytes per second: %d", *req.WMbytesPerSecond)
	}
	return ret
}
