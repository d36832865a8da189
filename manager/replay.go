package manager

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/kvstore"
	"github.com/longhorn/nvmeof-gateway/types"
)

var (
	// Children go away before their subsystem and come back after it.
	removeOrder = []string{
		kvstore.ListenerPrefix,
		kvstore.HostPrefix,
		kvstore.NamespaceQosPrefix,
		kvstore.NamespacePrefix,
		kvstore.SubsystemPrefix,
	}
	addOrder = []string{
		kvstore.SubsystemPrefix,
		kvstore.NamespacePrefix,
		kvstore.NamespaceQosPrefix,
		kvstore.HostPrefix,
		kvstore.ListenerPrefix,
	}
)

// Restore applies the persisted record of the group to the local engine.
// It is called once at startup, before the gateway serves requests.
func (m *GatewayManager) Restore() error {
	m.logger.Info("Restoring gateway configuration from the persisted state")
	return m.store.Resync()
}

// Resync catches up with changes the change feed may have missed. Callers
// arriving while a resync runs share its result.
func (m *GatewayManager) Resync() error {
	_, err, shared := m.resync.Do("resync", func() (interface{}, error) {
		return nil, m.store.Resync()
	})
	if shared {
		m.logger.Debug("Joined a store resync already in progress")
	}
	return err
}

// Stats reports the number of records per kind and the cluster context
// usage.
func (m *GatewayManager) Stats() map[string]map[string]int {
	records := map[string]int{}
	for _, prefix := range addOrder {
		records[prefix] = 0
	}
	for key := range m.store.LocalState() {
		if prefix := kvstore.KeyType(key); prefix != "" {
			records[prefix]++
		}
	}
	return map[string]map[string]int{
		"records":  records,
		"clusters": m.pool.Stats(),
	}
}

func sortedKeys(records map[string]string, prefix string) []string {
	keys := []string{}
	for key := range records {
		if kvstore.KeyType(key) == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// applyUpdate replays records written by peers. Entries overtaken by a later
// update are left to that update.
func (m *GatewayManager) applyUpdate(update *kvstore.StateUpdate) {
	op := newReplayOperation()
	log := m.logger.WithField("replay", op.token)
	if err := m.locks.Lock(op); err != nil {
		log.WithError(err).Error("Failed to lock gateway configuration, skip applying state update")
		return
	}
	defer m.locks.Unlock(op)

	for _, prefix := range removeOrder {
		for _, key := range sortedKeys(update.Removed, prefix) {
			if _, exists := m.store.GetRecord(key); exists {
				log.Debugf("Record %v was added back, skip removing it", key)
				continue
			}
			if err := m.replayRemove(op, log, prefix, update.Removed[key]); err != nil {
				log.WithError(err).Errorf("Failed to replay removal of %v", key)
			}
		}
	}

	for _, prefix := range addOrder {
		for _, key := range sortedKeys(update.Added, prefix) {
			if !m.current(key, update.Added[key]) {
				log.Debugf("Record %v was updated again, skip adding it", key)
				continue
			}
			if err := m.replayAdd(op, log, prefix, update.Added[key]); err != nil {
				log.WithError(err).Errorf("Failed to replay addition of %v", key)
			}
		}
	}

	for _, prefix := range addOrder {
		for _, key := range sortedKeys(update.Changed, prefix) {
			if !m.current(key, update.Changed[key]) {
				log.Debugf("Record %v was updated again, skip changing it", key)
				continue
			}
			if err := m.replayChange(op, log, prefix, key, update.Changed[key]); err != nil {
				log.WithError(err).Errorf("Failed to replay change of %v", key)
			}
		}
	}
}

// current tells whether value is still the last seen value of key.
func (m *GatewayManager) current(key, value string) bool {
	latest, exists := m.store.GetRecord(key)
	return exists && latest == value
}

func (m *GatewayManager) replayRemove(op *operation, log logrus.FieldLogger, prefix, value string) error {
	switch prefix {
	case kvstore.ListenerPrefix:
		req := &types.CreateListenerRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		if !m.isOwnListener(req) {
			return nil
		}
		return m.deleteListener(op, &types.DeleteListenerRequest{
			NQN:         req.NQN,
			GatewayName: req.GatewayName,
			Trtype:      req.Trtype,
			Adrfam:      req.Adrfam,
			Traddr:      req.Traddr,
			Trsvcid:     req.Trsvcid,
		})
	case kvstore.HostPrefix:
		req := &types.AddHostRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.removeHost(op, &types.RemoveHostRequest{SubsystemNQN: req.SubsystemNQN, HostNQN: req.HostNQN})
	case kvstore.NamespaceQosPrefix:
		// Limits go away together with the namespace.
		log.Debug("Skip removal of QOS limits")
		return nil
	case kvstore.NamespacePrefix:
		req := &types.NamespaceAddRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.deleteNamespace(op, &types.NamespaceDeleteRequest{
			SubsystemNQN: req.SubsystemNQN,
			NSID:         req.NSID,
			UUID:         req.UUID,
		})
	case kvstore.SubsystemPrefix:
		req := &types.CreateSubsystemRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.deleteSubsystem(op, &types.DeleteSubsystemRequest{SubsystemNQN: req.SubsystemNQN})
	}
	return nil
}

func (m *GatewayManager) replayAdd(op *operation, log logrus.FieldLogger, prefix, value string) error {
	switch prefix {
	case kvstore.SubsystemPrefix:
		req := &types.CreateSubsystemRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.createSubsystem(op, req)
	case kvstore.NamespacePrefix:
		req := &types.NamespaceAddRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		_, err := m.addNamespace(op, req)
		return err
	case kvstore.NamespaceQosPrefix:
		req := &types.NamespaceSetQosRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.setNamespaceQosLimits(op, req)
	case kvstore.HostPrefix:
		req := &types.AddHostRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.addHost(op, req)
	case kvstore.ListenerPrefix:
		req := &types.CreateListenerRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		if !m.isOwnListener(req) {
			log.Debugf("Skip listener of gateway %v", req.GatewayName)
			return nil
		}
		return m.createListener(op, req)
	}
	return nil
}

func (m *GatewayManager) replayChange(op *operation, log logrus.FieldLogger, prefix, key, value string) error {
	switch prefix {
	case kvstore.NamespacePrefix:
		req := &types.NamespaceAddRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		ns, err := m.findNamespace(log, req.SubsystemNQN, req.NSID, req.UUID, "Failure replaying namespace change")
		if err != nil {
			return err
		}
		if ns == nil {
			log.Warnf("Namespace of %v not found, adding it", key)
			_, err := m.addNamespace(op, req)
			return err
		}
		if ns.Anagrpid == req.Anagrpid {
			return nil
		}
		return m.changeLoadBalancingGroup(op, &types.NamespaceChangeLoadBalancingGroupRequest{
			SubsystemNQN: req.SubsystemNQN,
			NSID:         ns.Nsid,
			UUID:         ns.UUID,
			Anagrpid:     req.Anagrpid,
		})
	case kvstore.NamespaceQosPrefix:
		req := &types.NamespaceSetQosRequest{}
		if err := unmarshalRecord(value, req); err != nil {
			return err
		}
		return m.setNamespaceQosLimits(op, req)
	}
	log.Warnf("Change of record %v can't be applied to a running gateway, ignore", key)
	return nil
}
