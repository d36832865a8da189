package kvstore

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/longhorn/nvmeof-gateway/types"

	. "gopkg.in/check.v1"
)

const (
	TestNamespace = "nvmeof.test."

	EnvEtcdServer = "NVMEOF_GATEWAY_TEST_ETCD_SERVER"

	TestNQN     = "nqn.2016-06.io.spdk:cnode1"
	TestHostNQN = "nqn.2014-08.org.nvmexpress:uuid:host1"
	TestGateway = "gw1"

	waitTimeout = 5 * time.Second
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct {
	memoryBackend *MemoryBackend
	memory        *KVStore
	etcd          *KVStore
}

var _ = Suite(&TestSuite{})

func (s *TestSuite) SetUpTest(c *C) {
	var err error

	s.memoryBackend, err = NewMemoryBackend()
	c.Assert(err, IsNil)
	s.memory, err = NewKVStore(s.memoryBackend)
	c.Assert(err, IsNil)

	etcdServer := os.Getenv(EnvEtcdServer)
	if etcdServer == "" {
		return
	}
	backend, err := NewETCDBackend([]string{"http://" + etcdServer + ":2379"}, TestNamespace, 5*time.Second, 10)
	c.Assert(err, IsNil)
	s.etcd, err = NewKVStore(backend)
	c.Assert(err, IsNil)
	err = s.etcd.Nuclear("nuke key value store")
	c.Assert(err, IsNil)
}

func (s *TestSuite) TearDownTest(c *C) {
	err := s.memory.Nuclear("nuke key value store")
	c.Assert(err, IsNil)

	if s.etcd != nil {
		err := s.etcd.Nuclear("nuke key value store")
		c.Assert(err, IsNil)
		c.Assert(s.etcd.Close(), IsNil)
	}
}

func (s *TestSuite) TestKeys(c *C) {
	c.Assert(SubsystemKey(TestNQN), Equals, "subsystem_"+TestNQN)
	c.Assert(NamespaceKey(TestNQN, 3), Equals, "namespace_"+TestNQN+"_3")
	c.Assert(NamespaceQosKey(TestNQN, 3), Equals, "qos_"+TestNQN+"_3")
	c.Assert(HostKey(TestNQN, TestHostNQN), Equals, "host_"+TestNQN+"_"+TestHostNQN)
	c.Assert(ListenerKey(TestNQN, TestGateway, "tcp", "10.0.0.1", 4420), Equals,
		"listener_"+TestNQN+"_gw1_TCP_10.0.0.1_4420")
	c.Assert(KeyType(NamespaceQosKey(TestNQN, 1)), Equals, NamespaceQosPrefix)
	c.Assert(KeyType("bogus"), Equals, "")
}

func (s *TestSuite) TestRecords(c *C) {
	s.testRecords(c, s.memory)

	if s.etcd != nil {
		s.testRecords(c, s.etcd)
	}
}

func (s *TestSuite) testRecords(c *C, st *KVStore) {
	sub := &types.CreateSubsystemRequest{SubsystemNQN: TestNQN, SerialNumber: "SPDK1", MaxNamespaces: 32}
	c.Assert(st.AddSubsystem(sub), IsNil)
	c.Assert(st.AddNamespace(&types.NamespaceAddRequest{SubsystemNQN: TestNQN, NSID: 1, UUID: "u1"}), IsNil)
	c.Assert(st.AddHost(&types.AddHostRequest{SubsystemNQN: TestNQN, HostNQN: TestHostNQN}), IsNil)
	c.Assert(st.AddListener(&types.CreateListenerRequest{NQN: TestNQN, GatewayName: TestGateway, Trtype: "TCP", Traddr: "10.0.0.1", Trsvcid: 4420}), IsNil)

	state, err := st.GetState()
	c.Assert(err, IsNil)
	c.Assert(state, HasLen, 4)
	c.Assert(st.LocalState(), DeepEquals, state)

	stored := &types.CreateSubsystemRequest{}
	c.Assert(json.Unmarshal([]byte(state[SubsystemKey(TestNQN)]), stored), IsNil)
	c.Assert(stored, DeepEquals, sub)

	value, ok := st.GetRecord(HostKey(TestNQN, TestHostNQN))
	c.Assert(ok, Equals, true)
	c.Assert(value, Matches, ".*"+TestHostNQN+".*")

	c.Assert(st.RemoveHost(TestNQN, TestHostNQN), IsNil)
	c.Assert(st.RemoveNamespace(TestNQN, 1), IsNil)
	c.Assert(st.RemoveListener(TestNQN, TestGateway, "tcp", "10.0.0.1", 4420), IsNil)
	// removing a missing record is not an error
	c.Assert(st.RemoveNamespaceQos(TestNQN, 1), IsNil)

	state, err = st.GetState()
	c.Assert(err, IsNil)
	c.Assert(state, HasLen, 1)
	_, ok = state[SubsystemKey(TestNQN)]
	c.Assert(ok, Equals, true)
}

func (s *TestSuite) TestRemoveSubsystem(c *C) {
	other := TestNQN + "_x"
	st := s.memory
	for _, nqn := range []string{TestNQN, other} {
		c.Assert(st.AddSubsystem(&types.CreateSubsystemRequest{SubsystemNQN: nqn}), IsNil)
		c.Assert(st.AddNamespace(&types.NamespaceAddRequest{SubsystemNQN: nqn, NSID: 1}), IsNil)
		c.Assert(st.AddNamespaceQos(&types.NamespaceSetQosRequest{SubsystemNQN: nqn, NSID: 1}), IsNil)
		c.Assert(st.AddHost(&types.AddHostRequest{SubsystemNQN: nqn, HostNQN: TestHostNQN}), IsNil)
		c.Assert(st.AddListener(&types.CreateListenerRequest{NQN: nqn, GatewayName: TestGateway, Trtype: "TCP", Traddr: "10.0.0.1", Trsvcid: 4420}), IsNil)
	}

	c.Assert(st.RemoveSubsystem(TestNQN), IsNil)

	state, err := st.GetState()
	c.Assert(err, IsNil)
	c.Assert(state, HasLen, 5)
	for key := range state {
		c.Assert(key, Matches, ".*"+other+".*")
	}
	c.Assert(st.LocalState(), DeepEquals, state)
}

type updateRecorder struct {
	mutex   sync.Mutex
	updates []*StateUpdate
	ch      chan struct{}
}

func newUpdateRecorder() *updateRecorder {
	return &updateRecorder{ch: make(chan struct{}, 100)}
}

func (r *updateRecorder) callback(update *StateUpdate) {
	r.mutex.Lock()
	r.updates = append(r.updates, update)
	r.mutex.Unlock()
	r.ch <- struct{}{}
}

func (r *updateRecorder) wait(c *C) *StateUpdate {
	select {
	case <-r.ch:
	case <-time.After(waitTimeout):
		c.Fatal("timeout waiting for state update")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.updates[len(r.updates)-1]
}

func (r *updateRecorder) count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.updates)
}

func (s *TestSuite) TestResync(c *C) {
	peer, err := NewKVStore(s.memoryBackend)
	c.Assert(err, IsNil)

	recorder := newUpdateRecorder()
	s.memory.SetUpdateCallback(recorder.callback)

	c.Assert(s.memory.AddSubsystem(&types.CreateSubsystemRequest{SubsystemNQN: TestNQN}), IsNil)
	c.Assert(s.memory.Resync(), IsNil)
	c.Assert(recorder.count(), Equals, 0)

	c.Assert(peer.AddHost(&types.AddHostRequest{SubsystemNQN: TestNQN, HostNQN: TestHostNQN}), IsNil)
	c.Assert(peer.AddSubsystem(&types.CreateSubsystemRequest{SubsystemNQN: TestNQN, EnableHA: true}), IsNil)
	c.Assert(s.memory.Resync(), IsNil)
	update := recorder.wait(c)
	c.Assert(update.Added, HasLen, 1)
	c.Assert(update.Changed, HasLen, 1)
	c.Assert(update.Removed, HasLen, 0)
	_, ok := update.Added[HostKey(TestNQN, TestHostNQN)]
	c.Assert(ok, Equals, true)

	old, _ := s.memory.GetRecord(HostKey(TestNQN, TestHostNQN))
	c.Assert(peer.RemoveHost(TestNQN, TestHostNQN), IsNil)
	c.Assert(s.memory.Resync(), IsNil)
	update = recorder.wait(c)
	c.Assert(update.Removed, DeepEquals, map[string]string{HostKey(TestNQN, TestHostNQN): old})
}

func (s *TestSuite) TestWatch(c *C) {
	s.testWatch(c, s.memoryBackend, s.memory)

	if s.etcd != nil {
		peerBackend, err := NewETCDBackend([]string{"http://" + os.Getenv(EnvEtcdServer) + ":2379"}, TestNamespace, 5*time.Second, 10)
		c.Assert(err, IsNil)
		defer peerBackend.Close()
		s.testWatch(c, peerBackend, s.etcd)
	}
}

func (s *TestSuite) testWatch(c *C, peerBackend Backend, st *KVStore) {
	peer, err := NewKVStore(peerBackend)
	c.Assert(err, IsNil)

	recorder := newUpdateRecorder()
	st.SetUpdateCallback(recorder.callback)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st.StartWatch(ctx)

	// own writes are not reported
	c.Assert(st.AddSubsystem(&types.CreateSubsystemRequest{SubsystemNQN: TestNQN}), IsNil)

	c.Assert(peer.AddHost(&types.AddHostRequest{SubsystemNQN: TestNQN, HostNQN: TestHostNQN}), IsNil)
	update := recorder.wait(c)
	c.Assert(update.Added, HasLen, 1)
	_, ok := update.Added[HostKey(TestNQN, TestHostNQN)]
	c.Assert(ok, Equals, true)

	c.Assert(peer.RemoveHost(TestNQN, TestHostNQN), IsNil)
	update = recorder.wait(c)
	c.Assert(update.Removed, HasLen, 1)

	c.Assert(recorder.count(), Equals, 2)
}

// heldWatchBackend keeps the watch callback so a test decides when and in
// which order events are delivered.
type heldWatchBackend struct {
	*MemoryBackend
	cb func(events []Event)
}

func (b *heldWatchBackend) Watch(ctx context.Context, prefix string, cb func(events []Event)) {
	b.cb = cb
}

func (s *TestSuite) TestWatchLateOwnEvents(c *C) {
	backend := &heldWatchBackend{MemoryBackend: s.memoryBackend}
	st, err := NewKVStore(backend)
	c.Assert(err, IsNil)
	recorder := newUpdateRecorder()
	st.SetUpdateCallback(recorder.callback)
	st.StartWatch(context.Background())
	c.Assert(backend.cb, NotNil)

	key := SubsystemKey(TestNQN)
	c.Assert(st.AddSubsystem(&types.CreateSubsystemRequest{SubsystemNQN: TestNQN}), IsNil)
	first, _ := st.GetRecord(key)
	c.Assert(st.AddSubsystem(&types.CreateSubsystemRequest{SubsystemNQN: TestNQN, EnableHA: true}), IsNil)
	second, _ := st.GetRecord(key)
	c.Assert(first, Not(Equals), second)

	hostKey := HostKey(TestNQN, TestHostNQN)
	c.Assert(st.AddHost(&types.AddHostRequest{SubsystemNQN: TestNQN, HostNQN: TestHostNQN}), IsNil)
	host, _ := st.GetRecord(hostKey)
	c.Assert(st.RemoveHost(TestNQN, TestHostNQN), IsNil)

	// Events of own writes arrive after the local mirror moved on.
	backend.cb([]Event{{Type: EventTypePut, Key: StatePrefix + key, Value: first}})
	backend.cb([]Event{{Type: EventTypePut, Key: StatePrefix + hostKey, Value: host}})
	backend.cb([]Event{
		{Type: EventTypePut, Key: StatePrefix + key, Value: second},
		{Type: EventTypeDelete, Key: StatePrefix + hostKey},
	})
	c.Assert(recorder.count(), Equals, 0)
	value, _ := st.GetRecord(key)
	c.Assert(value, Equals, second)
	_, exists := st.GetRecord(hostKey)
	c.Assert(exists, Equals, false)

	// A peer writing the value this gateway wrote before is still reported.
	backend.cb([]Event{{Type: EventTypePut, Key: StatePrefix + key, Value: first}})
	update := recorder.wait(c)
	c.Assert(update.Changed, DeepEquals, map[string]string{key: first})
}

func (s *TestSuite) TestLocker(c *C) {
	locker := s.memory.Locker()
	ctx := context.Background()

	c.Assert(locker.Lock(ctx), IsNil)

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	c.Assert(locker.Lock(timeoutCtx), NotNil)

	c.Assert(locker.Unlock(ctx), IsNil)
	c.Assert(locker.Lock(ctx), IsNil)
	c.Assert(locker.Unlock(ctx), IsNil)
}
