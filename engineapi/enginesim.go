package engineapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	simDefaultImageSize = 1024 * 1024 * 1024
	simTickRate         = 2300000000

	simErrInvalidParams = -32602
	simErrInternal      = -32603
	simErrNoSuchDevice  = -19
	simErrFileExists    = -17
	simErrNotFound      = -2
)

type simBdev struct {
	name      string
	uuid      string
	pool      string
	image     string
	cluster   string
	blockSize uint32
	numBlocks uint64
	limits    BdevRateLimits
}

type simSubsystem struct {
	params       NvmfCreateSubsystemParams
	allowAnyHost bool
	hosts        []string
	namespaces   map[uint32]*NvmfNamespace
	listeners    []NvmfListenAddress
	anaStates    map[string]string
	controllers  []NvmfController
	qpairs       []NvmfQpair
}

type simFault struct {
	err   error
	falsy bool
}

// EngineSimulator is an in-memory Engine. Faults can be armed per method to
// return an engine error or a falsy result on the next calls.
type EngineSimulator struct {
	mutex *sync.Mutex

	clusters   map[string]bool
	bdevs      map[string]*simBdev
	subsystems map[string]*simSubsystem
	imageSizes map[string]uint64

	logFlags      map[string]bool
	logLevel      string
	logPrintLevel string

	faults map[string][]simFault
	calls  []string
	nextID int32
}

func NewEngineSimulator() *EngineSimulator {
	return &EngineSimulator{
		mutex:      &sync.Mutex{},
		clusters:   map[string]bool{},
		bdevs:      map[string]*simBdev{},
		subsystems: map[string]*simSubsystem{},
		imageSizes: map[string]uint64{},
		logFlags: map[string]bool{
			"bdev":      false,
			"nvmf":      false,
			"nvmf_tcp":  false,
			"nvmf_rdma": false,
			"rbd":       false,
		},
		logLevel:      "NOTICE",
		logPrintLevel: "INFO",
		faults:        map[string][]simFault{},
		nextID:        1,
	}
}

// FailNext makes the next call of method fail with an engine error object.
func (s *EngineSimulator) FailNext(method string, code int32, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.faults[method] = append(s.faults[method], simFault{err: &RPCError{Method: method, Code: code, Message: message}})
}

// FailNextWith makes the next call of method fail with err as is.
func (s *EngineSimulator) FailNextWith(method string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.faults[method] = append(s.faults[method], simFault{err: err})
}

// FalsyNext makes the next call of method return a false result.
func (s *EngineSimulator) FalsyNext(method string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.faults[method] = append(s.faults[method], simFault{falsy: true})
}

func (s *EngineSimulator) SetImageSize(pool, image string, size uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.imageSizes[pool+"/"+image] = size
}

// Calls returns the method names invoked so far, in order.
func (s *EngineSimulator) Calls() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string{}, s.calls...)
}

func (s *EngineSimulator) CountCalls(method string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	count := 0
	for _, c := range s.calls {
		if c == method {
			count++
		}
	}
	return count
}

func (s *EngineSimulator) ResetCalls() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls = nil
}

// Connect simulates a host controller attached through a listener with the
// given number of IO queue pairs.
func (s *EngineSimulator) Connect(nqn, hostNQN string, addr NvmfListenAddress, ioQpairs int32) (int32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ss := s.subsystems[nqn]
	if ss == nil {
		return 0, fmt.Errorf("subsystem %v not found", nqn)
	}
	cntlid := s.nextID
	s.nextID++
	ss.controllers = append(ss.controllers, NvmfController{
		Cntlid:      cntlid,
		Hostnqn:     hostNQN,
		NumIOQpairs: ioQpairs,
	})
	for i := int32(0); i <= ioQpairs; i++ {
		a := addr
		ss.qpairs = append(ss.qpairs, NvmfQpair{
			Cntlid:        cntlid,
			Qid:           i,
			State:         "active",
			ListenAddress: &a,
		})
	}
	return cntlid, nil
}

func (s *EngineSimulator) ANAState(nqn string, addr *NvmfListenAddress, anagrpid uint32) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ss := s.subsystems[nqn]
	if ss == nil {
		return ""
	}
	return ss.anaStates[anaKey(addr, anagrpid)]
}

func (s *EngineSimulator) HasCluster(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.clusters[name]
}

func (s *EngineSimulator) HasBdev(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.bdevs[name] != nil
}

func (s *EngineSimulator) BdevCluster(name string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if b := s.bdevs[name]; b != nil {
		return b.cluster
	}
	return ""
}

func (s *EngineSimulator) Close() error {
	return nil
}

// begin records the call and pops an armed fault. Caller holds the mutex.
func (s *EngineSimulator) begin(method string) (bool, error) {
	s.calls = append(s.calls, method)
	faults := s.faults[method]
	if len(faults) == 0 {
		return false, nil
	}
	f := faults[0]
	s.faults[method] = faults[1:]
	return f.falsy, f.err
}

func rpcError(method string, code int32, format string, args ...interface{}) error {
	return &RPCError{Method: method, Code: code, Message: fmt.Sprintf(format, args...)}
}

func listenKey(addr *NvmfListenAddress) string {
	return strings.ToLower(addr.Trtype) + "/" + strings.ToLower(addr.Adrfam) + "/" + addr.Traddr + "/" + addr.Trsvcid
}

func anaKey(addr *NvmfListenAddress, anagrpid uint32) string {
	return fmt.Sprintf("%s#%d", listenKey(addr), anagrpid)
}

func (s *EngineSimulator) getSubsystem(method, nqn string) (*simSubsystem, error) {
	ss := s.subsystems[nqn]
	if ss == nil {
		return nil, rpcError(method, simErrInvalidParams, "Unable to find subsystem with NQN %s", nqn)
	}
	return ss, nil
}

func (s *EngineSimulator) BdevRbdRegisterCluster(name, userID, coreMask string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodBdevRbdRegisterCluster); err != nil || falsy {
		return "", err
	}
	if s.clusters[name] {
		return "", rpcError(MethodBdevRbdRegisterCluster, simErrFileExists, "Cluster %s already exists", name)
	}
	s.clusters[name] = true
	return name, nil
}

func (s *EngineSimulator) BdevRbdCreate(params *BdevRbdCreateParams) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodBdevRbdCreate); err != nil || falsy {
		return "", err
	}
	if params.ClusterName != "" && !s.clusters[params.ClusterName] {
		return "", rpcError(MethodBdevRbdCreate, simErrNoSuchDevice, "Cluster %s not found", params.ClusterName)
	}
	if s.bdevs[params.Name] != nil {
		return "", rpcError(MethodBdevRbdCreate, simErrFileExists, "Bdev %s already exists", params.Name)
	}
	blockSize := params.BlockSize
	if blockSize == 0 {
		blockSize = 512
	}
	size, ok := s.imageSizes[params.PoolName+"/"+params.RbdName]
	if !ok {
		size = simDefaultImageSize
	}
	s.bdevs[params.Name] = &simBdev{
		name:      params.Name,
		uuid:      params.UUID,
		pool:      params.PoolName,
		image:     params.RbdName,
		cluster:   params.ClusterName,
		blockSize: blockSize,
		numBlocks: size / uint64(blockSize),
	}
	return params.Name, nil
}

func (s *EngineSimulator) BdevRbdDelete(name string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodBdevRbdDelete); err != nil || falsy {
		return false, err
	}
	if s.bdevs[name] == nil {
		return false, rpcError(MethodBdevRbdDelete, simErrNoSuchDevice, "No such device")
	}
	for _, ss := range s.subsystems {
		for _, ns := range ss.namespaces {
			if ns.BdevName == name {
				return false, rpcError(MethodBdevRbdDelete, simErrInternal, "Bdev %s is claimed", name)
			}
		}
	}
	delete(s.bdevs, name)
	return true, nil
}

func (s *EngineSimulator) BdevRbdResize(name string, newSizeMiB uint64) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodBdevRbdResize); err != nil || falsy {
		return false, err
	}
	b := s.bdevs[name]
	if b == nil {
		return false, rpcError(MethodBdevRbdResize, simErrNoSuchDevice, "No such device")
	}
	numBlocks := newSizeMiB * 1024 * 1024 / uint64(b.blockSize)
	if numBlocks < b.numBlocks {
		return false, rpcError(MethodBdevRbdResize, -22, "The new bdev size must not be smaller than current bdev size")
	}
	b.numBlocks = numBlocks
	return true, nil
}

func (s *EngineSimulator) BdevGetBdevs(name string) ([]BdevInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodBdevGetBdevs); err != nil {
		return nil, err
	}
	ret := []BdevInfo{}
	for _, b := range s.bdevs {
		if name != "" && b.name != name {
			continue
		}
		limits := b.limits
		ret = append(ret, BdevInfo{
			Name:               b.name,
			UUID:               b.uuid,
			BlockSize:          b.blockSize,
			NumBlocks:          b.numBlocks,
			AssignedRateLimits: &limits,
			DriverSpecific: &BdevDriverSpecific{
				Rbd: &BdevRbdInfo{PoolName: b.pool, RbdName: b.image},
			},
		})
	}
	if name != "" && len(ret) == 0 {
		return nil, rpcError(MethodBdevGetBdevs, simErrNoSuchDevice, "No such device")
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret, nil
}

func (s *EngineSimulator) BdevGetIostat(name string) (*BdevGetIostatResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodBdevGetIostat); err != nil || falsy {
		return nil, err
	}
	b := s.bdevs[name]
	if b == nil {
		return nil, rpcError(MethodBdevGetIostat, simErrNoSuchDevice, "No such device")
	}
	return &BdevGetIostatResult{
		TickRate: simTickRate,
		Ticks:    uint64(len(s.calls)),
		Bdevs: []BdevIostat{{
			Name:       b.name,
			BytesRead:  4096,
			NumReadOps: 1,
			IOError:    []uint64{},
		}},
	}, nil
}

func (s *EngineSimulator) BdevSetQosLimit(params *BdevSetQosLimitParams) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodBdevSetQosLimit); err != nil || falsy {
		return false, err
	}
	b := s.bdevs[params.Name]
	if b == nil {
		return false, rpcError(MethodBdevSetQosLimit, simErrNoSuchDevice, "No such device")
	}
	if params.RwIosPerSec != nil {
		b.limits.RwIosPerSec = *params.RwIosPerSec
	}
	if params.RwMbytesPerSec != nil {
		b.limits.RwMbytesPerSec = *params.RwMbytesPerSec
	}
	if params.RMbytesPerSec != nil {
		b.limits.RMbytesPerSec = *params.RMbytesPerSec
	}
	if params.WMbytesPerSec != nil {
		b.limits.WMbytesPerSec = *params.WMbytesPerSec
	}
	return true, nil
}

func (s *EngineSimulator) NvmfCreateSubsystem(params *NvmfCreateSubsystemParams) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfCreateSubsystem); err != nil || falsy {
		return false, err
	}
	if s.subsystems[params.Nqn] != nil {
		return false, rpcError(MethodNvmfCreateSubsystem, simErrInternal, "Unable to create subsystem %s", params.Nqn)
	}
	s.subsystems[params.Nqn] = &simSubsystem{
		params:     *params,
		namespaces: map[uint32]*NvmfNamespace{},
		anaStates:  map[string]string{},
	}
	return true, nil
}

func (s *EngineSimulator) NvmfDeleteSubsystem(nqn string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfDeleteSubsystem); err != nil || falsy {
		return false, err
	}
	if _, err := s.getSubsystem(MethodNvmfDeleteSubsystem, nqn); err != nil {
		return false, err
	}
	delete(s.subsystems, nqn)
	return true, nil
}

func (s *EngineSimulator) NvmfSubsystemAddNs(nqn string, ns *NvmfNamespaceParams) (uint32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemAddNs); err != nil || falsy {
		return 0, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemAddNs, nqn)
	if err != nil {
		return 0, err
	}
	if s.bdevs[ns.BdevName] == nil {
		return 0, rpcError(MethodNvmfSubsystemAddNs, simErrInvalidParams, "Unable to find bdev %s", ns.BdevName)
	}
	for _, n := range ss.namespaces {
		if n.BdevName == ns.BdevName {
			return 0, rpcError(MethodNvmfSubsystemAddNs, simErrInvalidParams, "Bdev %s already claimed", ns.BdevName)
		}
	}
	if max := ss.params.MaxNamespaces; max != 0 && uint32(len(ss.namespaces)) >= max {
		return 0, rpcError(MethodNvmfSubsystemAddNs, simErrInvalidParams, "Invalid parameters")
	}
	nsid := ns.Nsid
	if nsid == 0 {
		for nsid = 1; ss.namespaces[nsid] != nil; nsid++ {
		}
	} else if ss.namespaces[nsid] != nil {
		return 0, rpcError(MethodNvmfSubsystemAddNs, simErrInvalidParams, "Invalid parameters")
	}
	anagrpid := ns.Anagrpid
	if anagrpid == 0 {
		anagrpid = nsid
	}
	uuid := ns.UUID
	if uuid == "" {
		uuid = s.bdevs[ns.BdevName].uuid
	}
	ss.namespaces[nsid] = &NvmfNamespace{
		Nsid:     nsid,
		BdevName: ns.BdevName,
		Name:     ns.BdevName,
		UUID:     uuid,
		Anagrpid: anagrpid,
	}
	return nsid, nil
}

func (s *EngineSimulator) NvmfSubsystemRemoveNs(nqn string, nsid uint32) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemRemoveNs); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemRemoveNs, nqn)
	if err != nil {
		return false, err
	}
	if ss.namespaces[nsid] == nil {
		return false, rpcError(MethodNvmfSubsystemRemoveNs, simErrInvalidParams, "Invalid parameters")
	}
	delete(ss.namespaces, nsid)
	return true, nil
}

func (s *EngineSimulator) NvmfSubsystemAddHost(nqn, host string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemAddHost); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemAddHost, nqn)
	if err != nil {
		return false, err
	}
	for _, h := range ss.hosts {
		if h == host {
			return false, rpcError(MethodNvmfSubsystemAddHost, simErrInternal, "Unable to add host %s", host)
		}
	}
	ss.hosts = append(ss.hosts, host)
	return true, nil
}

func (s *EngineSimulator) NvmfSubsystemRemoveHost(nqn, host string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemRemoveHost); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemRemoveHost, nqn)
	if err != nil {
		return false, err
	}
	for i, h := range ss.hosts {
		if h == host {
			ss.hosts = append(ss.hosts[:i], ss.hosts[i+1:]...)
			return true, nil
		}
	}
	return false, rpcError(MethodNvmfSubsystemRemoveHost, simErrNotFound, "Host %s not found", host)
}

func (s *EngineSimulator) NvmfSubsystemAllowAnyHost(nqn string, allow bool) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemAllowAnyHost); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemAllowAnyHost, nqn)
	if err != nil {
		return false, err
	}
	ss.allowAnyHost = allow
	return true, nil
}

func (s *EngineSimulator) NvmfSubsystemAddListener(nqn string, addr *NvmfListenAddress) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemAddListener); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemAddListener, nqn)
	if err != nil {
		return false, err
	}
	for _, l := range ss.listeners {
		if listenKey(&l) == listenKey(addr) {
			return false, rpcError(MethodNvmfSubsystemAddListener, simErrInvalidParams, "Listener already exists")
		}
	}
	ss.listeners = append(ss.listeners, *addr)
	return true, nil
}

func (s *EngineSimulator) NvmfSubsystemRemoveListener(nqn string, addr *NvmfListenAddress) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemRemoveListener); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemRemoveListener, nqn)
	if err != nil {
		return false, err
	}
	for i, l := range ss.listeners {
		if listenKey(&l) == listenKey(addr) {
			ss.listeners = append(ss.listeners[:i], ss.listeners[i+1:]...)
			return true, nil
		}
	}
	return false, rpcError(MethodNvmfSubsystemRemoveListener, simErrInvalidParams, "Unable to find listener")
}

func (s *EngineSimulator) NvmfSubsystemListenerSetANAState(nqn string, addr *NvmfListenAddress, anaState string, anagrpid uint32) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodNvmfSubsystemListenerSetANAState); err != nil || falsy {
		return false, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemListenerSetANAState, nqn)
	if err != nil {
		return false, err
	}
	for _, l := range ss.listeners {
		if listenKey(&l) == listenKey(addr) {
			ss.anaStates[anaKey(addr, anagrpid)] = anaState
			return true, nil
		}
	}
	return false, rpcError(MethodNvmfSubsystemListenerSetANAState, simErrInvalidParams, "Unable to find listener")
}

func (s *EngineSimulator) NvmfGetSubsystems(nqn string) ([]NvmfSubsystem, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodNvmfGetSubsystems); err != nil {
		return nil, err
	}
	ret := []NvmfSubsystem{}
	if nqn == "" {
		ret = append(ret, NvmfSubsystem{
			Nqn:             "nqn.2014-08.org.nvmexpress.discovery",
			Subtype:         "Discovery",
			ListenAddresses: []NvmfListenAddress{},
			AllowAnyHost:    true,
			Hosts:           []NvmfHost{},
		})
	}
	nqns := []string{}
	for n := range s.subsystems {
		if nqn == "" || n == nqn {
			nqns = append(nqns, n)
		}
	}
	if nqn != "" && len(nqns) == 0 {
		return nil, rpcError(MethodNvmfGetSubsystems, simErrNoSuchDevice, "No such device")
	}
	sort.Strings(nqns)
	for _, n := range nqns {
		ss := s.subsystems[n]
		info := NvmfSubsystem{
			Nqn:             n,
			Subtype:         "NVMe",
			ListenAddresses: append([]NvmfListenAddress{}, ss.listeners...),
			AllowAnyHost:    ss.allowAnyHost,
			Hosts:           []NvmfHost{},
			SerialNumber:    ss.params.SerialNumber,
			ModelNumber:     "SPDK bdev Controller",
			MaxNamespaces:   ss.params.MaxNamespaces,
			MinCntlid:       ss.params.MinCntlid,
			MaxCntlid:       ss.params.MaxCntlid,
			Namespaces:      []NvmfNamespace{},
		}
		for _, h := range ss.hosts {
			info.Hosts = append(info.Hosts, NvmfHost{Nqn: h})
		}
		for _, ns := range ss.namespaces {
			info.Namespaces = append(info.Namespaces, *ns)
		}
		sort.Slice(info.Namespaces, func(i, j int) bool { return info.Namespaces[i].Nsid < info.Namespaces[j].Nsid })
		ret = append(ret, info)
	}
	return ret, nil
}

func (s *EngineSimulator) NvmfSubsystemGetQpairs(nqn string) ([]NvmfQpair, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodNvmfSubsystemGetQpairs); err != nil {
		return nil, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemGetQpairs, nqn)
	if err != nil {
		return nil, err
	}
	return append([]NvmfQpair{}, ss.qpairs...), nil
}

func (s *EngineSimulator) NvmfSubsystemGetControllers(nqn string) ([]NvmfController, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodNvmfSubsystemGetControllers); err != nil {
		return nil, err
	}
	ss, err := s.getSubsystem(MethodNvmfSubsystemGetControllers, nqn)
	if err != nil {
		return nil, err
	}
	return append([]NvmfController{}, ss.controllers...), nil
}

func (s *EngineSimulator) LogGetFlags() (map[string]bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodLogGetFlags); err != nil {
		return nil, err
	}
	ret := map[string]bool{}
	for k, v := range s.logFlags {
		ret[k] = v
	}
	return ret, nil
}

func (s *EngineSimulator) setFlag(method, flag string, value bool) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(method); err != nil || falsy {
		return false, err
	}
	if _, ok := s.logFlags[flag]; !ok {
		return false, rpcError(method, simErrInvalidParams, "Invalid parameters")
	}
	s.logFlags[flag] = value
	return true, nil
}

func (s *EngineSimulator) LogSetFlag(flag string) (bool, error) {
	return s.setFlag(MethodLogSetFlag, flag, true)
}

func (s *EngineSimulator) LogClearFlag(flag string) (bool, error) {
	return s.setFlag(MethodLogClearFlag, flag, false)
}

func (s *EngineSimulator) LogGetLevel() (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodLogGetLevel); err != nil {
		return "", err
	}
	return s.logLevel, nil
}

func (s *EngineSimulator) LogSetLevel(level string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodLogSetLevel); err != nil || falsy {
		return false, err
	}
	s.logLevel = level
	return true, nil
}

func (s *EngineSimulator) LogGetPrintLevel() (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.begin(MethodLogGetPrintLevel); err != nil {
		return "", err
	}
	return s.logPrintLevel, nil
}

func (s *EngineSimulator) LogSetPrintLevel(level string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if falsy, err := s.begin(MethodLogSetPrintLevel); err != nil || falsy {
		return false, err
	}
	s.logPrintLevel = level
	return true, nil
}
