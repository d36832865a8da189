package engineapi

import (
	"testing"

	. "gopkg.in/check.v1"
)

const (
	TestNQN      = "nqn.2016-06.io.spdk:cnode1"
	TestHostNQN  = "nqn.2014-08.org.nvmexpress:uuid:host1"
	TestCluster  = "cluster_context_0"
	TestBdevName = "bdev_8f3c1c0e-6a3c-4ad5-9a3f-1b4a8ab43c55"
)

func Test(t *testing.T) { TestingT(t) }

type TestSuite struct {
	sim *EngineSimulator
}

var _ = Suite(&TestSuite{})

func (s *TestSuite) SetUpTest(c *C) {
	s.sim = NewEngineSimulator()
}

func (s *TestSuite) createNamespace(c *C) uint32 {
	ok, err := s.sim.NvmfCreateSubsystem(&NvmfCreateSubsystemParams{Nqn: TestNQN, MaxNamespaces: 2})
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)

	_, err = s.sim.BdevRbdRegisterCluster(TestCluster, "admin", "")
	c.Assert(err, IsNil)

	name, err := s.sim.BdevRbdCreate(&BdevRbdCreateParams{
		Name:        TestBdevName,
		PoolName:    "rbd",
		RbdName:     "image1",
		BlockSize:   512,
		ClusterName: TestCluster,
	})
	c.Assert(err, IsNil)
	c.Assert(name, Equals, TestBdevName)

	nsid, err := s.sim.NvmfSubsystemAddNs(TestNQN, &NvmfNamespaceParams{BdevName: TestBdevName, Anagrpid: 2})
	c.Assert(err, IsNil)
	return nsid
}

func (s *TestSuite) TestNamespaceLifecycle(c *C) {
	nsid := s.createNamespace(c)
	c.Assert(nsid, Equals, uint32(1))

	subsystems, err := s.sim.NvmfGetSubsystems(TestNQN)
	c.Assert(err, IsNil)
	c.Assert(subsystems, HasLen, 1)
	c.Assert(subsystems[0].Namespaces, HasLen, 1)
	c.Assert(subsystems[0].Namespaces[0].Anagrpid, Equals, uint32(2))

	_, err = s.sim.NvmfSubsystemAddNs(TestNQN, &NvmfNamespaceParams{BdevName: TestBdevName})
	c.Assert(err, ErrorMatches, "(?s).*already claimed.*")

	_, err = s.sim.BdevRbdDelete(TestBdevName)
	c.Assert(err, NotNil)

	ok, err := s.sim.BdevRbdResize(TestBdevName, 2048)
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	bdevs, err := s.sim.BdevGetBdevs(TestBdevName)
	c.Assert(err, IsNil)
	c.Assert(bdevs[0].NumBlocks, Equals, uint64(2048*1024*2))
	c.Assert(bdevs[0].DriverSpecific.Rbd.RbdName, Equals, "image1")

	_, err = s.sim.BdevRbdResize(TestBdevName, 1)
	c.Assert(err, NotNil)

	ok, err = s.sim.NvmfSubsystemRemoveNs(TestNQN, nsid)
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)

	ok, err = s.sim.BdevRbdDelete(TestBdevName)
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Assert(s.sim.HasBdev(TestBdevName), Equals, false)
}

func (s *TestSuite) TestFaultInjection(c *C) {
	s.sim.FailNext(MethodNvmfCreateSubsystem, -17, "File exists")
	_, err := s.sim.NvmfCreateSubsystem(&NvmfCreateSubsystemParams{Nqn: TestNQN})
	c.Assert(err, NotNil)
	code, message, ok := ParseRPCError(err.Error())
	c.Assert(ok, Equals, true)
	c.Assert(code, Equals, 17)
	c.Assert(message, Equals, "File exists")

	s.sim.FalsyNext(MethodNvmfCreateSubsystem)
	ok, err = s.sim.NvmfCreateSubsystem(&NvmfCreateSubsystemParams{Nqn: TestNQN})
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, false)

	ok, err = s.sim.NvmfCreateSubsystem(&NvmfCreateSubsystemParams{Nqn: TestNQN})
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Assert(s.sim.CountCalls(MethodNvmfCreateSubsystem), Equals, 3)
}

func (s *TestSuite) TestListenerAndConnections(c *C) {
	s.createNamespace(c)

	addr := NvmfListenAddress{Trtype: "tcp", Adrfam: "ipv4", Traddr: "10.0.0.1", Trsvcid: "4420"}
	ok, err := s.sim.NvmfSubsystemAddListener(TestNQN, &addr)
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)

	_, err = s.sim.NvmfSubsystemAddListener(TestNQN, &addr)
	c.Assert(err, NotNil)

	ok, err = s.sim.NvmfSubsystemListenerSetANAState(TestNQN, &addr, "inaccessible", 1)
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Assert(s.sim.ANAState(TestNQN, &addr, 1), Equals, "inaccessible")

	_, err = s.sim.NvmfSubsystemAddHost(TestNQN, TestHostNQN)
	c.Assert(err, IsNil)
	cntlid, err := s.sim.Connect(TestNQN, TestHostNQN, addr, 4)
	c.Assert(err, IsNil)

	controllers, err := s.sim.NvmfSubsystemGetControllers(TestNQN)
	c.Assert(err, IsNil)
	c.Assert(controllers, HasLen, 1)
	c.Assert(controllers[0].Cntlid, Equals, cntlid)
	qpairs, err := s.sim.NvmfSubsystemGetQpairs(TestNQN)
	c.Assert(err, IsNil)
	c.Assert(qpairs, HasLen, 5)

	ok, err = s.sim.NvmfSubsystemRemoveListener(TestNQN, &addr)
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
}

func (s *TestSuite) TestLogFlags(c *C) {
	ok, err := s.sim.LogSetFlag("nvmf_tcp")
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)

	flags, err := s.sim.LogGetFlags()
	c.Assert(err, IsNil)
	c.Assert(flags["nvmf_tcp"], Equals, true)
	c.Assert(flags["nvmf"], Equals, false)

	_, err = s.sim.LogSetFlag("unknown")
	c.Assert(err, NotNil)

	ok, err = s.sim.LogSetLevel("DEBUG")
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	level, err := s.sim.LogGetLevel()
	c.Assert(err, IsNil)
	c.Assert(level, Equals, "DEBUG")
}
