package types

// ReqStatus is the envelope every gateway response carries. Status is 0 on
// success, otherwise a POSIX errno.
type ReqStatus struct {
	Status       int    `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Result gives access to the envelope of any response embedding it.
func (s *ReqStatus) Result() *ReqStatus {
	return s
}

type CreateSubsystemRequest struct {
	SubsystemNQN  string `json:"subsystem_nqn"`
	SerialNumber  string `json:"serial_number"`
	MaxNamespaces uint32 `json:"max_namespaces"`
	MinCntlid     uint16 `json:"min_cntlid,omitempty"`
	MaxCntlid     uint16 `json:"max_cntlid,omitempty"`
	AnaReporting  bool   `json:"ana_reporting"`
	EnableHA      bool   `json:"enable_ha"`
}

type DeleteSubsystemRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	Force        bool   `json:"force"`
}

type ListSubsystemsRequest struct {
	SubsystemNQN string `json:"subsystem_nqn,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

type Subsystem struct {
	NQN            string `json:"nqn"`
	EnableHA       bool   `json:"enable_ha"`
	SerialNumber   string `json:"serial_number"`
	ModelNumber    string `json:"model_number"`
	MinCntlid      uint16 `json:"min_cntlid"`
	MaxCntlid      uint16 `json:"max_cntlid"`
	NamespaceCount uint32 `json:"namespace_count"`
	Subtype        string `json:"subtype"`
	MaxNamespaces  uint32 `json:"max_namespaces"`
}

type SubsystemsInfo struct {
	ReqStatus
	Subsystems []Subsystem `json:"subsystems"`
}

type NamespaceAddRequest struct {
	RbdPoolName  string `json:"rbd_pool_name"`
	RbdImageName string `json:"rbd_image_name"`
	SubsystemNQN string `json:"subsystem_nqn"`
	NSID         uint32 `json:"nsid"`
	BlockSize    uint32 `json:"block_size"`
	UUID         string `json:"uuid"`
	Anagrpid     uint32 `json:"anagrpid"`
}

type NSIDStatus struct {
	ReqStatus
	NSID uint32 `json:"nsid"`
}

type NamespaceDeleteRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	NSID         uint32 `json:"nsid"`
	UUID         string `json:"uuid"`
}

type NamespaceResizeRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	NSID         uint32 `json:"nsid"`
	UUID         string `json:"uuid"`
	// NewSize is in MiB.
	NewSize uint64 `json:"new_size"`
}

type NamespaceChangeLoadBalancingGroupRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	NSID         uint32 `json:"nsid"`
	UUID         string `json:"uuid"`
	Anagrpid     uint32 `json:"anagrpid"`
}

// NamespaceSetQosRequest leaves a limit nil when the caller did not set it,
// so it can inherit the previously stored value.
type NamespaceSetQosRequest struct {
	SubsystemNQN      string  `json:"subsystem_nqn"`
	NSID              uint32  `json:"nsid"`
	UUID              string  `json:"uuid"`
	RwIosPerSecond    *uint64 `json:"rw_ios_per_second,omitempty"`
	RwMbytesPerSecond *uint64 `json:"rw_mbytes_per_second,omitempty"`
	RMbytesPerSecond  *uint64 `json:"r_mbytes_per_second,omitempty"`
	WMbytesPerSecond  *uint64 `json:"w_mbytes_per_second,omitempty"`
}

type NamespaceGetIOStatsRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	NSID         uint32 `json:"nsid"`
	UUID         string `json:"uuid"`
}

type ListNamespacesRequest struct {
	Subsystem string `json:"subsystem"`
	NSID      uint32 `json:"nsid,omitempty"`
	UUID      string `json:"uuid,omitempty"`
}

type Namespace struct {
	NSID               uint32 `json:"nsid"`
	BdevName           string `json:"bdev_name"`
	RbdImageName       string `json:"rbd_image_name"`
	RbdPoolName        string `json:"rbd_pool_name"`
	LoadBalancingGroup uint32 `json:"load_balancing_group"`
	BlockSize          uint32 `json:"block_size"`
	RbdImageSize       uint64 `json:"rbd_image_size"`
	UUID               string `json:"uuid"`
	RwIosPerSecond     uint64 `json:"rw_ios_per_second"`
	RwMbytesPerSecond  uint64 `json:"rw_mbytes_per_second"`
	RMbytesPerSecond   uint64 `json:"r_mbytes_per_second"`
	WMbytesPerSecond   uint64 `json:"w_mbytes_per_second"`
}

type NamespacesInfo struct {
	ReqStatus
	SubsystemNQN string      `json:"subsystem_nqn"`
	Namespaces   []Namespace `json:"namespaces"`
}

type NamespaceIOStatsInfo struct {
	ReqStatus
	SubsystemNQN         string `json:"subsystem_nqn"`
	NSID                 uint32 `json:"nsid"`
	UUID                 string `json:"uuid"`
	BdevName             string `json:"bdev_name"`
	TickRate             uint64 `json:"tick_rate"`
	Ticks                uint64 `json:"ticks"`
	BytesRead            uint64 `json:"bytes_read"`
	NumReadOps           uint64 `json:"num_read_ops"`
	BytesWritten         uint64 `json:"bytes_written"`
	NumWriteOps          uint64 `json:"num_write_ops"`
	BytesUnmapped        uint64 `json:"bytes_unmapped"`
	NumUnmapOps          uint64 `json:"num_unmap_ops"`
	ReadLatencyTicks     uint64 `json:"read_latency_ticks"`
	MaxReadLatencyTicks  uint64 `json:"max_read_latency_ticks"`
	MinReadLatencyTicks  uint64 `json:"min_read_latency_ticks"`
	WriteLatencyTicks    uint64 `json:"write_latency_ticks"`
	MaxWriteLatencyTicks uint64 `json:"max_write_latency_ticks"`
	MinWriteLatencyTicks uint64 `json:"min_write_latency_ticks"`
	UnmapLatencyTicks    uint64 `json:"unmap_latency_ticks"`
	MaxUnmapLatencyTicks uint64 `json:"max_unmap_latency_ticks"`
	MinUnmapLatencyTicks uint64 `json:"min_unmap_latency_ticks"`
	CopyLatencyTicks     uint64 `json:"copy_latency_ticks"`
	MaxCopyLatencyTicks  uint64 `json:"max_copy_latency_ticks"`
	MinCopyLatencyTicks  uint64 `json:"min_copy_latency_ticks"`

	IOError []uint64 `json:"io_error,omitempty"`
}

type AddHostRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	HostNQN      string `json:"host_nqn"`
}

type RemoveHostRequest struct {
	SubsystemNQN string `json:"subsystem_nqn"`
	HostNQN      string `json:"host_nqn"`
}

type ListHostsRequest struct {
	Subsystem string `json:"subsystem"`
}

type Host struct {
	NQN string `json:"nqn"`
}

type HostsInfo struct {
	ReqStatus
	AllowAnyHost bool   `json:"allow_any_host"`
	SubsystemNQN string `json:"subsystem_nqn"`
	Hosts        []Host `json:"hosts"`
}

type ListConnectionsRequest struct {
	Subsystem string `json:"subsystem"`
}

type Connection struct {
	NQN          string `json:"nqn"`
	Traddr       string `json:"traddr"`
	Trsvcid      uint32 `json:"trsvcid"`
	Trtype       string `json:"trtype"`
	Adrfam       string `json:"adrfam"`
	Connected    bool   `json:"connected"`
	QpairsCount  int32  `json:"qpairs_count"`
	ControllerID int32  `json:"controller_id"`
}

type ConnectionsInfo struct {
	ReqStatus
	SubsystemNQN string       `json:"subsystem_nqn"`
	Connections  []Connection `json:"connections"`
}

type CreateListenerRequest struct {
	NQN         string `json:"nqn"`
	GatewayName string `json:"gateway_name"`
	Trtype      string `json:"trtype"`
	Adrfam      string `json:"adrfam"`
	Traddr      string `json:"traddr"`
	Trsvcid     uint32 `json:"trsvcid"`
	AutoHAState string `json:"auto_ha_state"`
}

type DeleteListenerRequest struct {
	NQN         string `json:"nqn"`
	GatewayName string `json:"gateway_name"`
	Trtype      string `json:"trtype"`
	Adrfam      string `json:"adrfam"`
	Traddr      string `json:"traddr"`
	Trsvcid     uint32 `json:"trsvcid"`
}

type ListListenersRequest struct {
	Subsystem string `json:"subsystem"`
}

type ListenerInfo struct {
	GatewayName string `json:"gateway_name"`
	Trtype      string `json:"trtype"`
	Adrfam      string `json:"adrfam"`
	Traddr      string `json:"traddr"`
	Trsvcid     uint32 `json:"trsvcid"`
}

type ListenersInfo struct {
	ReqStatus
	Listeners []ListenerInfo `json:"listeners"`
}

type GetLogFlagsRequest struct{}

type SetLogFlagsRequest struct {
	LogLevel   string `json:"log_level,omitempty"`
	PrintLevel string `json:"print_level,omitempty"`
}

type DisableLogFlagsRequest struct{}

type LogFlag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type LogFlagsInfo struct {
	ReqStatus
	NvmfLogFlags  []LogFlag `json:"nvmf_log_flags"`
	LogLevel      string    `json:"log_level"`
	LogPrintLevel string    `json:"log_print_level"`
}

type GetGatewayInfoRequest struct {
	CLIVersion string `json:"cli_version"`
}

type GatewayInfo struct {
	ReqStatus
	CLIVersion string `json:"cli_version"`
	Version    string `json:"version"`
	Name       string `json:"name"`
	Group      string `json:"group"`
	Addr       string `json:"addr"`
	Port       string `json:"port"`
	BoolStatus bool   `json:"bool_status"`
}
