package engineapi

// Engine is the storage engine RPC surface used by the gateway. Calls that
// report success as a boolean return false with a nil error when the engine
// declined without raising an error; callers treat that as a failure.
type Engine interface {
	BdevRbdRegisterCluster(name, userID, coreMask string) (string, error)
	BdevRbdCreate(params *BdevRbdCreateParams) (string, error)
	BdevRbdDelete(name string) (bool, error)
	BdevRbdResize(name string, newSizeMiB uint64) (bool, error)
	BdevGetBdevs(name string) ([]BdevInfo, error)
	BdevGetIostat(name string) (*BdevGetIostatResult, error)
	BdevSetQosLimit(params *BdevSetQosLimitParams) (bool, error)

	NvmfCreateSubsystem(params *NvmfCreateSubsystemParams) (bool, error)
	NvmfDeleteSubsystem(nqn string) (bool, error)
	NvmfSubsystemAddNs(nqn string, ns *NvmfNamespaceParams) (uint32, error)
	NvmfSubsystemRemoveNs(nqn string, nsid uint32) (bool, error)
	NvmfSubsystemAddHost(nqn, host string) (bool, error)
	NvmfSubsystemRemoveHost(nqn, host string) (bool, error)
	NvmfSubsystemAllowAnyHost(nqn string, allow bool) (bool, error)
	NvmfSubsystemAddListener(nqn string, addr *NvmfListenAddress) (bool, error)
	NvmfSubsystemRemoveListener(nqn string, addr *NvmfListenAddress) (bool, error)
	NvmfSubsystemListenerSetANAState(nqn string, addr *NvmfListenAddress, anaState string, anagrpid uint32) (bool, error)
	NvmfGetSubsystems(nqn string) ([]NvmfSubsystem, error)
	NvmfSubsystemGetQpairs(nqn string) ([]NvmfQpair, error)
	NvmfSubsystemGetControllers(nqn string) ([]NvmfController, error)

	LogGetFlags() (map[string]bool, error)
	LogSetFlag(flag string) (bool, error)
	LogClearFlag(flag string) (bool, error)
	LogGetLevel() (string, error)
	LogSetLevel(level string) (bool, error)
	LogGetPrintLevel() (string, error)
	LogSetPrintLevel(level string) (bool, error)

	Close() error
}

const (
	MethodBdevRbdRegisterCluster = "bdev_rbd_register_cluster"
	MethodBdevRbdCreate          = "bdev_rbd_create"
	MethodBdevRbdDelete          = "bdev_rbd_delete"
	MethodBdevRbdResize          = "bdev_rbd_resize"
	MethodBdevGetBdevs           = "bdev_get_bdevs"
	MethodBdevGetIostat          = "bdev_get_iostat"
	MethodBdevSetQosLimit        = "bdev_set_qos_limit"

	MethodNvmfCreateSubsystem              = "nvmf_create_subsystem"
	MethodNvmfDeleteSubsystem              = "nvmf_delete_subsystem"
	MethodNvmfSubsystemAddNs               = "nvmf_subsystem_add_ns"
	MethodNvmfSubsystemRemoveNs            = "nvmf_subsystem_remove_ns"
	MethodNvmfSubsystemAddHost             = "nvmf_subsystem_add_host"
	MethodNvmfSubsystemRemoveHost          = "nvmf_subsystem_remove_host"
	MethodNvmfSubsystemAllowAnyHost        = "nvmf_subsystem_allow_any_host"
	MethodNvmfSubsystemAddListener         = "nvmf_subsystem_add_listener"
	MethodNvmfSubsystemRemoveListener      = "nvmf_subsystem_remove_listener"
	MethodNvmfSubsystemListenerSetANAState = "nvmf_subsystem_listener_set_ana_state"
	MethodNvmfGetSubsystems                = "nvmf_get_subsystems"
	MethodNvmfSubsystemGetQpairs           = "nvmf_subsystem_get_qpairs"
	MethodNvmfSubsystemGetControllers      = "nvmf_subsystem_get_controllers"

	MethodLogGetFlags      = "log_get_flags"
	MethodLogSetFlag       = "log_set_flag"
	MethodLogClearFlag     = "log_clear_flag"
	MethodLogGetLevel      = "log_get_level"
	MethodLogSetLevel      = "log_set_level"
	MethodLogGetPrintLevel = "log_get_print_level"
	MethodLogSetPrintLevel = "log_set_print_level"
)
