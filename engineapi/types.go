package engineapi

// Params and results of the engine JSON-RPC methods. Reply structs keep
// optional sections as pointers so a missing section can be told apart
// from a zero value.

type BdevRbdRegisterClusterParams struct {
	Name     string `json:"name"`
	UserID   string `json:"user_id,omitempty"`
	CoreMask string `json:"core_mask,omitempty"`
}

type BdevRbdCreateParams struct {
	Name        string `json:"name"`
	PoolName    string `json:"pool_name"`
	RbdName     string `json:"rbd_name"`
	BlockSize   uint32 `json:"block_size"`
	UUID        string `json:"uuid,omitempty"`
	ClusterName string `json:"cluster_name,omitempty"`
}

type BdevRbdDeleteParams struct {
	Name string `json:"name"`
}

type BdevRbdResizeParams struct {
	Name string `json:"name"`
	// NewSize is in MiB.
	NewSize uint64 `json:"new_size"`
}

type BdevGetBdevsParams struct {
	Name string `json:"name,omitempty"`
}

type BdevRbdInfo struct {
	PoolName string `json:"pool_name"`
	RbdName  string `json:"rbd_name"`
}

type BdevDriverSpecific struct {
	Rbd *BdevRbdInfo `json:"rbd,omitempty"`
}

type BdevRateLimits struct {
	RwIosPerSec    uint64 `json:"rw_ios_per_sec"`
	RwMbytesPerSec uint64 `json:"rw_mbytes_per_sec"`
	RMbytesPerSec  uint64 `json:"r_mbytes_per_sec"`
	WMbytesPerSec  uint64 `json:"w_mbytes_per_sec"`
}

type BdevInfo struct {
	Name               string              `json:"name"`
	UUID               string              `json:"uuid,omitempty"`
	BlockSize          uint32              `json:"block_size"`
	NumBlocks          uint64              `json:"num_blocks"`
	AssignedRateLimits *BdevRateLimits     `json:"assigned_rate_limits,omitempty"`
	DriverSpecific     *BdevDriverSpecific `json:"driver_specific,omitempty"`
}

type BdevGetIostatParams struct {
	Name string `json:"name"`
}

type BdevIostat struct {
	Name                 string   `json:"name"`
	BytesRead            uint64   `json:"bytes_read"`
	NumReadOps           uint64   `json:"num_read_ops"`
	BytesWritten         uint64   `json:"bytes_written"`
	NumWriteOps          uint64   `json:"num_write_ops"`
	BytesUnmapped        uint64   `json:"bytes_unmapped"`
	NumUnmapOps          uint64   `json:"num_unmap_ops"`
	ReadLatencyTicks     uint64   `json:"read_latency_ticks"`
	MaxReadLatencyTicks  uint64   `json:"max_read_latency_ticks"`
	MinReadLatencyTicks  uint64   `json:"min_read_latency_ticks"`
	WriteLatencyTicks    uint64   `json:"write_latency_ticks"`
	MaxWriteLatencyTicks uint64   `json:"max_write_latency_ticks"`
	MinWriteLatencyTicks uint64   `json:"min_write_latency_ticks"`
	UnmapLatencyTicks    uint64   `json:"unmap_latency_ticks"`
	MaxUnmapLatencyTicks uint64   `json:"max_unmap_latency_ticks"`
	MinUnmapLatencyTicks uint64   `json:"min_unmap_latency_ticks"`
	CopyLatencyTicks     uint64   `json:"copy_latency_ticks"`
	MaxCopyLatencyTicks  uint64   `json:"max_copy_latency_ticks"`
	MinCopyLatencyTicks  uint64   `json:"min_copy_latency_ticks"`
	IOError              []uint64 `json:"io_error,omitempty"`
}

type BdevGetIostatResult struct {
	TickRate uint64       `json:"tick_rate"`
	Ticks    uint64       `json:"ticks"`
	Bdevs    []BdevIostat `json:"bdevs"`
}

type BdevSetQosLimitParams struct {
	Name           string  `json:"name"`
	RwIosPerSec    *uint64 `json:"rw_ios_per_sec,omitempty"`
	RwMbytesPerSec *uint64 `json:"rw_mbytes_per_sec,omitempty"`
	RMbytesPerSec  *uint64 `json:"r_mbytes_per_sec,omitempty"`
	WMbytesPerSec  *uint64 `json:"w_mbytes_per_sec,omitempty"`
}

type NvmfCreateSubsystemParams struct {
	Nqn           string `json:"nqn"`
	SerialNumber  string `json:"serial_number,omitempty"`
	MaxNamespaces uint32 `json:"max_namespaces,omitempty"`
	MinCntlid     uint16 `json:"min_cntlid,omitempty"`
	MaxCntlid     uint16 `json:"max_cntlid,omitempty"`
	AnaReporting  bool   `json:"ana_reporting,omitempty"`
}

type NvmfSubsystemParams struct {
	Nqn string `json:"nqn"`
}

type NvmfNamespaceParams struct {
	BdevName string `json:"bdev_name"`
	Nsid     uint32 `json:"nsid,omitempty"`
	Anagrpid uint32 `json:"anagrpid,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}

type NvmfSubsystemAddNsParams struct {
	Nqn       string              `json:"nqn"`
	Namespace NvmfNamespaceParams `json:"namespace"`
}

type NvmfSubsystemRemoveNsParams struct {
	Nqn  string `json:"nqn"`
	Nsid uint32 `json:"nsid"`
}

type NvmfSubsystemHostParams struct {
	Nqn  string `json:"nqn"`
	Host string `json:"host"`
}

type NvmfSubsystemAllowAnyHostParams struct {
	Nqn          string `json:"nqn"`
	AllowAnyHost bool   `json:"allow_any_host"`
}

type NvmfListenAddress struct {
	Trtype  string `json:"trtype"`
	Traddr  string `json:"traddr"`
	Trsvcid string `json:"trsvcid,omitempty"`
	Adrfam  string `json:"adrfam,omitempty"`
}

type NvmfSubsystemListenerParams struct {
	Nqn           string            `json:"nqn"`
	ListenAddress NvmfListenAddress `json:"listen_address"`
}

type NvmfSubsystemListenerSetANAStateParams struct {
	Nqn           string            `json:"nqn"`
	ListenAddress NvmfListenAddress `json:"listen_address"`
	AnaState      string            `json:"ana_state"`
	Anagrpid      uint32            `json:"anagrpid,omitempty"`
}

type NvmfGetSubsystemsParams struct {
	Nqn string `json:"nqn,omitempty"`
}

type NvmfNamespace struct {
	Nsid     uint32 `json:"nsid"`
	BdevName string `json:"bdev_name"`
	Name     string `json:"name,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	Anagrpid uint32 `json:"anagrpid,omitempty"`
}

type NvmfHost struct {
	Nqn string `json:"nqn"`
}

type NvmfSubsystem struct {
	Nqn             string              `json:"nqn"`
	Subtype         string              `json:"subtype"`
	ListenAddresses []NvmfListenAddress `json:"listen_addresses"`
	AllowAnyHost    bool                `json:"allow_any_host"`
	Hosts           []NvmfHost          `json:"hosts"`
	SerialNumber    string              `json:"serial_number,omitempty"`
	ModelNumber     string              `json:"model_number,omitempty"`
	MaxNamespaces   uint32              `json:"max_namespaces,omitempty"`
	MinCntlid       uint16              `json:"min_cntlid,omitempty"`
	MaxCntlid       uint16              `json:"max_cntlid,omitempty"`
	Namespaces      []NvmfNamespace     `json:"namespaces,omitempty"`
}

type NvmfQpair struct {
	Cntlid        int32              `json:"cntlid"`
	Qid           int32              `json:"qid"`
	State         string             `json:"state"`
	ListenAddress *NvmfListenAddress `json:"listen_address,omitempty"`
}

type NvmfController struct {
	Cntlid      int32  `json:"cntlid"`
	Hostnqn     string `json:"hostnqn"`
	Hostid      string `json:"hostid,omitempty"`
	NumIOQpairs int32  `json:"num_io_qpairs"`
}

type LogFlagParams struct {
	Flag string `json:"flag"`
}

type LogLevelParams struct {
	Level string `json:"level"`
}
