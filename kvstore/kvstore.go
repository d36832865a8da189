package kvstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/longhorn/nvmeof-gateway/types"
)

// Backend is a flat key/value store scoped to one gateway group.
type Backend interface {
	Put(key, value string) error
	Get(key string) (string, bool, error)
	Delete(key string) error
	List(prefix string) (map[string]string, error)
	// Watch delivers changes under prefix until ctx is done. Events of one
	// call to cb are in store order.
	Watch(ctx context.Context, prefix string, cb func(events []Event))
	Locker() Locker
	Close() error
}

// Locker is a blocking, non-reentrant lock shared by every gateway of a
// group.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

type EventType string

const (
	EventTypePut    = EventType("put")
	EventTypeDelete = EventType("delete")
)

type Event struct {
	Type  EventType
	Key   string
	Value string
}

// StateUpdate lists records that appeared, changed or disappeared since the
// last time this gateway looked. Removed carries the last known values.
type StateUpdate struct {
	Added   map[string]string
	Changed map[string]string
	Removed map[string]string
}

func (u *StateUpdate) Empty() bool {
	return len(u.Added) == 0 && len(u.Changed) == 0 && len(u.Removed) == 0
}

type UpdateCallback func(update *StateUpdate)

// ownWrite is a write of this gateway whose watch event is still due.
type ownWrite struct {
	deleted bool
	value   string
}

func (w ownWrite) matches(ev Event) bool {
	if w.deleted {
		return ev.Type == EventTypeDelete
	}
	return ev.Type == EventTypePut && ev.Value == w.value
}

// KVStore is the persisted configuration record of a gateway group. It keeps
// a local mirror of the records so changes made by peers can be told apart
// from this gateway's own writes.
type KVStore struct {
	b Backend

	mutex    *sync.Mutex
	local    map[string]string
	callback UpdateCallback

	// watching is set once the change feed is followed. From then on every
	// own write is queued in echoes until its watch event arrives.
	watching bool
	echoes   map[string][]ownWrite

	// updateMutex keeps updates delivered in the order they were computed.
	updateMutex *sync.Mutex
}

func NewKVStore(backend Backend) (*KVStore, error) {
	if backend == nil {
		return nil, errors.Errorf("invalid empty backend")
	}
	return &KVStore{
		b:           backend,
		mutex:       &sync.Mutex{},
		local:       map[string]string{},
		echoes:      map[string][]ownWrite{},
		updateMutex: &sync.Mutex{},
	}, nil
}

func (s *KVStore) key(key string) string {
	return StatePrefix + key
}

func (s *KVStore) Locker() Locker {
	return s.b.Locker()
}

func (s *KVStore) Close() error {
	return s.b.Close()
}

func (s *KVStore) SetUpdateCallback(cb UpdateCallback) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.callback = cb
}

// GetState returns every record currently in the store.
func (s *KVStore) GetState() (map[string]string, error) {
	records, err := s.b.List(StatePrefix)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list state records")
	}
	state := make(map[string]string, len(records))
	for k, v := range records {
		state[strings.TrimPrefix(k, StatePrefix)] = v
	}
	return state, nil
}

// LocalState returns the records this gateway has applied.
func (s *KVStore) LocalState() map[string]string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	state := make(map[string]string, len(s.local))
	for k, v := range s.local {
		state[k] = v
	}
	return state
}

// GetRecord returns the stored value of key as seen by this gateway.
func (s *KVStore) GetRecord(key string) (string, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	v, ok := s.local[key]
	return v, ok
}

// Lookup reads key from the store itself, bypassing the local mirror.
func (s *KVStore) Lookup(key string) (string, bool, error) {
	value, exists, err := s.b.Get(s.key(key))
	if err != nil {
		return "", false, errors.Wrapf(err, "unable to get record %v", key)
	}
	return value, exists, nil
}

func (s *KVStore) add(key string, obj interface{}) error {
	value, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "unable to encode record %v", key)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.b.Put(s.key(key), string(value)); err != nil {
		return errors.Wrapf(err, "unable to add record %v", key)
	}
	s.local[key] = string(value)
	s.expectEcho(key, ownWrite{value: string(value)})
	logrus.Debugf("Added record %v: %s", key, value)
	return nil
}

func (s *KVStore) remove(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.b.Delete(s.key(key)); err != nil {
		return errors.Wrapf(err, "unable to remove record %v", key)
	}
	delete(s.local, key)
	s.expectEcho(key, ownWrite{deleted: true})
	logrus.Debugf("Removed record %v", key)
	return nil
}

// expectEcho queues w until the watch reports it. Caller holds s.mutex.
func (s *KVStore) expectEcho(key string, w ownWrite) {
	if !s.watching {
		return
	}
	s.echoes[key] = append(s.echoes[key], w)
}

// consumeEcho reports whether ev is the next pending own write of key and
// drops it if so. Caller holds s.mutex.
func (s *KVStore) consumeEcho(key string, ev Event) bool {
	pending := s.echoes[key]
	if len(pending) == 0 || !pending[0].matches(ev) {
		return false
	}
	if len(pending) == 1 {
		delete(s.echoes, key)
	} else {
		s.echoes[key] = pending[1:]
	}
	return true
}

func (s *KVStore) AddSubsystem(req *types.CreateSubsystemRequest) error {
	return s.add(SubsystemKey(req.SubsystemNQN), req)
}

// RemoveSubsystem removes the subsystem record and every record that
// belongs to the subsystem. The subsystem record stays if any child record
// couldn't be removed.
func (s *KVStore) RemoveSubsystem(nqn string) error {
	state, err := s.GetState()
	if err != nil {
		return err
	}
	var errs error
	for _, key := range subsystemChildKeys(state, nqn) {
		errs = multierr.Append(errs, s.remove(key))
	}
	if errs != nil {
		return errs
	}
	return s.remove(SubsystemKey(nqn))
}

type recordOwner struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	NQN          string `json:"nqn"`
}

// subsystemChildKeys decodes candidate records since a key prefix alone
// can't tell "nqn1" from "nqn1_x".
func subsystemChildKeys(state map[string]string, nqn string) []string {
	prefixes := []string{
		SubsystemListenerPrefix(nqn),
		HostPrefix + nqn + "_",
		NamespaceQosPrefix + nqn + "_",
		SubsystemNamespacePrefix(nqn),
	}
	keys := []string{}
	for _, prefix := range prefixes {
		for key, value := range state {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			owner := &recordOwner{}
			if err := json.Unmarshal([]byte(value), owner); err != nil {
				logrus.WithError(err).Warnf("Failed to decode record %v", key)
				continue
			}
			if owner.SubsystemNQN == nqn || owner.NQN == nqn {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func (s *KVStore) AddNamespace(req *types.NamespaceAddRequest) error {
	return s.add(NamespaceKey(req.SubsystemNQN, req.NSID), req)
}

func (s *KVStore) RemoveNamespace(nqn string, nsid uint32) error {
	return s.remove(NamespaceKey(nqn, nsid))
}

func (s *KVStore) AddNamespaceQos(req *types.NamespaceSetQosRequest) error {
	return s.add(NamespaceQosKey(req.SubsystemNQN, req.NSID), req)
}

func (s *KVStore) RemoveNamespaceQos(nqn string, nsid uint32) error {
	return s.remove(NamespaceQosKey(nqn, nsid))
}

func (s *KVStore) AddHost(req *types.AddHostRequest) error {
	return s.add(HostKey(req.SubsystemNQN, req.HostNQN), req)
}

func (s *KVStore) RemoveHost(nqn, hostNQN string) error {
	return s.remove(HostKey(nqn, hostNQN))
}

func (s *KVStore) AddListener(req *types.CreateListenerRequest) error {
	return s.add(ListenerKey(req.NQN, req.GatewayName, req.Trtype, req.Traddr, req.Trsvcid), req)
}

func (s *KVStore) RemoveListener(nqn, gatewayName, trtype, traddr string, trsvcid uint32) error {
	return s.remove(ListenerKey(nqn, gatewayName, trtype, traddr, trsvcid))
}

// Resync compares the full store against the local mirror, adopts the store
// content and reports the difference to the update callback.
func (s *KVStore) Resync() error {
	s.updateMutex.Lock()
	defer s.updateMutex.Unlock()

	s.mutex.Lock()
	state, err := s.GetState()
	if err != nil {
		s.mutex.Unlock()
		return err
	}
	update := &StateUpdate{
		Added:   map[string]string{},
		Changed: map[string]string{},
		Removed: map[string]string{},
	}
	for k, v := range state {
		old, exists := s.local[k]
		if !exists {
			update.Added[k] = v
		} else if old != v {
			update.Changed[k] = v
		}
	}
	for k, v := range s.local {
		if _, exists := state[k]; !exists {
			update.Removed[k] = v
		}
	}
	s.local = state
	cb := s.callback
	s.mutex.Unlock()

	if !update.Empty() && cb != nil {
		logrus.Infof("Store resync found %v added, %v changed and %v removed records",
			len(update.Added), len(update.Changed), len(update.Removed))
		cb(update)
	}
	return nil
}

// StartWatch follows the store change feed until ctx is done. This
// gateway's own writes are skipped, even when their events arrive after
// later writes of the same record.
func (s *KVStore) StartWatch(ctx context.Context) {
	s.mutex.Lock()
	s.watching = true
	s.mutex.Unlock()
	s.b.Watch(ctx, StatePrefix, s.handleEvents)
}

func (s *KVStore) handleEvents(events []Event) {
	s.updateMutex.Lock()
	defer s.updateMutex.Unlock()

	s.mutex.Lock()
	update := &StateUpdate{
		Added:   map[string]string{},
		Changed: map[string]string{},
		Removed: map[string]string{},
	}
	for _, ev := range events {
		key := strings.TrimPrefix(ev.Key, StatePrefix)
		if s.consumeEcho(key, ev) {
			continue
		}
		old, exists := s.local[key]
		switch ev.Type {
		case EventTypePut:
			if exists && old == ev.Value {
				continue
			}
			if exists {
				update.Changed[key] = ev.Value
			} else {
				update.Added[key] = ev.Value
			}
			s.local[key] = ev.Value
		case EventTypeDelete:
			if !exists {
				continue
			}
			delete(s.local, key)
			if _, added := update.Added[key]; added {
				delete(update.Added, key)
				continue
			}
			delete(update.Changed, key)
			update.Removed[key] = old
		}
	}
	cb := s.callback
	s.mutex.Unlock()

	if !update.Empty() && cb != nil {
		cb(update)
	}
}

// Nuclear is test only function, which wipes every record of the group.
func (s *KVStore) Nuclear(nuclearCode string) error {
	if nuclearCode != "nuke key value store" {
		return errors.Errorf("invalid nuclear code!")
	}
	records, err := s.b.List(StatePrefix)
	if err != nil {
		return err
	}
	for k := range records {
		if err := s.b.Delete(k); err != nil {
			return err
		}
	}
	s.mutex.Lock()
	s.local = map[string]string{}
	s.echoes = map[string][]ownWrite{}
	s.mutex.Unlock()
	return nil
}
