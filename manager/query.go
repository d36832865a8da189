package manager

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

// getSubsystem picks nqn out of an engine listing.
func getSubsystem(log logrus.FieldLogger, subsystems []engineapi.NvmfSubsystem, nqn string) *engineapi.NvmfSubsystem {
	for i := range subsystems {
		if subsystems[i].Nqn != nqn {
			log.Warnf("Got subsystem %v instead of %v, ignore", subsystems[i].Nqn, nqn)
			continue
		}
		return &subsystems[i]
	}
	return nil
}

// recordHAEnabled reads enable_ha from the last seen subsystem record.
func (m *GatewayManager) recordHAEnabled(nqn string) bool {
	value, exists := m.store.GetRecord(kvstore.SubsystemKey(nqn))
	if !exists {
		return false
	}
	subsystem := &types.CreateSubsystemRequest{}
	if err := unmarshalRecord(value, subsystem); err != nil {
		m.logger.WithError(err).Warnf("Failed to decode subsystem %v", nqn)
		return false
	}
	return subsystem.EnableHA
}

func (m *GatewayManager) ListSubsystems(ctx context.Context, req *types.ListSubsystemsRequest) (*types.SubsystemsInfo, error) {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("operation", "list_subsystems")
	if req.SubsystemNQN != "" {
		log.Infof("Received request to list subsystem %v", req.SubsystemNQN)
	} else if req.SerialNumber != "" {
		log.Infof("Received request to list subsystems with serial number %v", req.SerialNumber)
	} else {
		log.Info("Received request to list subsystems")
	}

	var subsystems []engineapi.NvmfSubsystem
	if err := m.query(op, func() (err error) {
		subsystems, err = m.engine.NvmfGetSubsystems(req.SubsystemNQN)
		if err != nil {
			err = engineapi.TranslateError(err, "Failure listing subsystems", errno.ENODEV)
			log.Error(err.Error())
		}
		return err
	}); err != nil {
		return nil, err
	}

	info := &types.SubsystemsInfo{Subsystems: []types.Subsystem{}}
	for _, s := range subsystems {
		if req.SerialNumber != "" && s.SerialNumber != req.SerialNumber {
			continue
		}
		subsystem := types.Subsystem{
			NQN:           s.Nqn,
			SerialNumber:  s.SerialNumber,
			ModelNumber:   s.ModelNumber,
			MinCntlid:     s.MinCntlid,
			MaxCntlid:     s.MaxCntlid,
			Subtype:       s.Subtype,
			MaxNamespaces: s.MaxNamespaces,
		}
		if s.Subtype == types.SubsystemTypeNVMe {
			subsystem.NamespaceCount = uint32(len(s.Namespaces))
			subsystem.EnableHA = m.recordHAEnabled(s.Nqn)
		}
		info.Subsystems = append(info.Subsystems, subsystem)
	}
	return info, nil
}

// bdevInfo returns the first device named name, or nil.
func (m *GatewayManager) bdevInfo(log logrus.FieldLogger, name string) *engineapi.BdevInfo {
	bdevs, err := m.engine.BdevGetBdevs(name)
	if err != nil {
		log.WithError(err).Errorf("Got error while getting bdev %v info", name)
		return nil
	}
	if len(bdevs) == 0 {
		return nil
	}
	if len(bdevs) > 1 {
		log.Warnf("Got %v bdevs for bdev name %v, will use the first one", len(bdevs), name)
	}
	return &bdevs[0]
}

func (m *GatewayManager) ListNamespaces(ctx context.Context, req *types.ListNamespacesRequest) (*types.NamespacesInfo, error) {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("nqn", req.Subsystem)
	log.Infof("Received request to list namespaces %v", types.NamespaceIDMessage(req.NSID, req.UUID))

	info := &types.NamespacesInfo{SubsystemNQN: req.Subsystem, Namespaces: []types.Namespace{}}
	err := m.query(op, func() error {
		subsystems, err := m.engine.NvmfGetSubsystems(req.Subsystem)
		if err != nil {
			err = engineapi.TranslateError(err, "Failure listing namespaces", errno.EINVAL)
			log.Error(err.Error())
			return err
		}
		s := getSubsystem(log, subsystems, req.Subsystem)
		if s == nil {
			return nil
		}
		for _, n := range s.Namespaces {
			if req.NSID != 0 && req.NSID != n.Nsid {
				continue
			}
			if req.UUID != "" && req.UUID != n.UUID {
				continue
			}
			ns := types.Namespace{
				NSID:               n.Nsid,
				BdevName:           n.BdevName,
				UUID:               n.UUID,
				LoadBalancingGroup: n.Anagrpid,
			}
			bdev := m.bdevInfo(log, n.BdevName)
			switch {
			case bdev == nil:
				log.Warnf("Can't find namespace's bdev %v, will not list bdev's information", n.BdevName)
			case bdev.DriverSpecific == nil || bdev.DriverSpecific.Rbd == nil || bdev.AssignedRateLimits == nil:
				log.Warnf("Incomplete information for bdev %v, will not list bdev's information", n.BdevName)
			default:
				ns.RbdImageName = bdev.DriverSpecific.Rbd.RbdName
				ns.RbdPoolName = bdev.DriverSpecific.Rbd.PoolName
				ns.BlockSize = bdev.BlockSize
				ns.RbdImageSize = uint64(bdev.BlockSize) * bdev.NumBlocks
				ns.RwIosPerSecond = bdev.AssignedRateLimits.RwIosPerSec
				ns.RwMbytesPerSecond = bdev.AssignedRateLimits.RwMbytesPerSec
				ns.RMbytesPerSecond = bdev.AssignedRateLimits.RMbytesPerSec
				ns.WMbytesPerSecond = bdev.AssignedRateLimits.WMbytesPerSec
			}
			info.Namespaces = append(info.Namespaces, ns)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (m *GatewayManager) GetNamespaceIOStats(ctx context.Context, req *types.NamespaceGetIOStatsRequest) (*types.NamespaceIOStatsInfo, error) {
	op := newLiveOperation(ctx)
	nsidMsg := types.NamespaceIDMessage(req.NSID, req.UUID)
	prefix := fmt.Sprintf("Failure getting IO stats for namespace %son %s", nsidMsg, req.SubsystemNQN)
	log := m.logger.WithField("nqn", req.SubsystemNQN)
	log.Infof("Received request to get IO stats for namespace %v", nsidMsg)

	info := &types.NamespaceIOStatsInfo{SubsystemNQN: req.SubsystemNQN}
	err := m.query(op, func() error {
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

		ret, err := m.engine.BdevGetIostat(ns.BdevName)
		if err != nil {
			err = engineapi.TranslateError(err, prefix, errno.EINVAL)
			log.Error(err.Error())
			return err
		}
		if ret == nil {
			return m.failure(log, errno.EINVAL, "%s", prefix)
		}
		if len(ret.Bdevs) == 0 {
			return m.failure(log, errno.ENODEV, "%s: No associated block device found", prefix)
		}
		if len(ret.Bdevs) > 1 {
			log.Warn("More than one associated block device found for namespace, will use the first one")
		}
		bdev := ret.Bdevs[0]

		if err := copier.Copy(info, &bdev); err != nil {
			return m.failure(log, errno.EINVAL, "%s:\n%v", prefix, err)
		}
		info.SubsystemNQN = req.SubsystemNQN
		info.NSID = ns.Nsid
		info.UUID = ns.UUID
		info.BdevName = ns.BdevName
		info.TickRate = ret.TickRate
		info.Ticks = ret.Ticks
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (m *GatewayManager) ListHosts(ctx context.Context, req *types.ListHostsRequest) (*types.HostsInfo, error) {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("nqn", req.Subsystem)
	log.Info("Received request to list hosts")

	info := &types.HostsInfo{SubsystemNQN: req.Subsystem, Hosts: []types.Host{}}
	err := m.query(op, func() error {
		subsystems, err := m.engine.NvmfGetSubsystems(req.Subsystem)
		if err != nil {
			err = engineapi.TranslateError(err, "Failure listing hosts, can't get subsystems", errno.EINVAL)
			log.Error(err.Error())
			return err
		}
		if s := getSubsystem(log, subsystems, req.Subsystem); s != nil {
			info.AllowAnyHost = s.AllowAnyHost
			for _, h := range s.Hosts {
				info.Hosts = append(info.Hosts, types.Host{NQN: h.Nqn})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (m *GatewayManager) ListConnections(ctx context.Context, req *types.ListConnectionsRequest) (*types.ConnectionsInfo, error) {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("nqn", req.Subsystem)
	log.Info("Received request to list connections")

	var (
		qpairs      []engineapi.NvmfQpair
		controllers []engineapi.NvmfController
		subsystems  []engineapi.NvmfSubsystem
	)
	err := m.query(op, func() (err error) {
		if qpairs, err = m.engine.NvmfSubsystemGetQpairs(req.Subsystem); err != nil {
			return engineapi.TranslateError(err, "Failure listing connections, can't get qpairs", errno.EINVAL)
		}
		if controllers, err = m.engine.NvmfSubsystemGetControllers(req.Subsystem); err != nil {
			return engineapi.TranslateError(err, "Failure listing connections, can't get controllers", errno.EINVAL)
		}
		if subsystems, err = m.engine.NvmfGetSubsystems(req.Subsystem); err != nil {
			return engineapi.TranslateError(err, "Failure listing connections, can't get subsystems", errno.EINVAL)
		}
		return nil
	})
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	// Hosts without a controller are reported as disconnected.
	pending := []string{}
	if s := getSubsystem(log, subsystems, req.Subsystem); s != nil {
		for _, h := range s.Hosts {
			pending = append(pending, h.Nqn)
		}
	}

	info := &types.ConnectionsInfo{SubsystemNQN: req.Subsystem, Connections: []types.Connection{}}
	for _, ctrl := range controllers {
		conn := types.Connection{
			NQN:          ctrl.Hostnqn,
			Connected:    true,
			QpairsCount:  ctrl.NumIOQpairs,
			ControllerID: ctrl.Cntlid,
		}
		for _, qp := range qpairs {
			if qp.Cntlid != ctrl.Cntlid || qp.State != "active" || qp.ListenAddress == nil {
				continue
			}
			conn.Traddr = qp.ListenAddress.Traddr
			trsvcid, err := strconv.ParseUint(qp.ListenAddress.Trsvcid, 10, 32)
			if err != nil {
				log.WithError(err).Warnf("Got invalid service id while parsing qpair of controller %v", ctrl.Cntlid)
			}
			conn.Trsvcid = uint32(trsvcid)
			conn.Trtype = strings.ToUpper(qp.ListenAddress.Trtype)
			conn.Adrfam = strings.ToLower(qp.ListenAddress.Adrfam)
			break
		}
		info.Connections = append(info.Connections, conn)
		for i, host := range pending {
			if host == ctrl.Hostnqn {
				pending = append(pending[:i], pending[i+1:]...)
				break
			}
		}
	}
	for _, host := range pending {
		info.Connections = append(info.Connections, types.Connection{
			NQN:          host,
			Connected:    false,
			Traddr:       types.ConnectionNotAvailable,
			QpairsCount:  -1,
			ControllerID: -1,
		})
	}
	return info, nil
}

func (m *GatewayManager) ListListeners(ctx context.Context, req *types.ListListenersRequest) (*types.ListenersInfo, error) {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("nqn", req.Subsystem)
	log.Info("Received request to list listeners")

	info := &types.ListenersInfo{Listeners: []types.ListenerInfo{}}
	err := m.query(op, func() error {
		subsystems, err := m.engine.NvmfGetSubsystems(req.Subsystem)
		if err != nil {
			err = engineapi.TranslateError(err, "Failure listing listeners", errno.EINVAL)
			log.Error(err.Error())
			return err
		}
		s := getSubsystem(log, subsystems, req.Subsystem)
		if s == nil {
			return nil
		}
		for _, addr := range s.ListenAddresses {
			trsvcid, err := strconv.ParseUint(addr.Trsvcid, 10, 32)
			if err != nil {
				log.WithError(err).Warnf("Got invalid service id for listener %v", addr.Traddr)
			}
			info.Listeners = append(info.Listeners, types.ListenerInfo{
				GatewayName: m.Name(),
				Trtype:      strings.ToUpper(addr.Trtype),
				Adrfam:      strings.ToLower(addr.Adrfam),
				Traddr:      addr.Traddr,
				Trsvcid:     uint32(trsvcid),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
