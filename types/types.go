package types

import (
	"fmt"
	"strings"
)

const (
	DiscoveryNQN = "nqn.2014-08.org.nvmexpress.discovery"

	// MaxANAGroups is the number of load balancing (ANA) groups every
	// listener exposes.
	MaxANAGroups = 4

	AllowAnyHostNQN = "*"

	BdevNamePrefix       = "bdev_"
	ClusterContextPrefix = "cluster_context_"
	SerialNumberPrefix   = "SPDK"

	SubsystemTypeNVMe = "NVMe"

	ANAStateInaccessible = "inaccessible"

	NvmfLogFlagPrefix = "nvmf"

	DefaultLogLevel      = LogLevelNotice
	DefaultLogPrintLevel = LogLevelInfo

	DefaultTrsvcid = 4420

	ConnectionNotAvailable = "<n/a>"
)

const (
	EnvGatewayVersion = "NVMEOF_VERSION"
	EnvSPDKVersion    = "NVMEOF_SPDK_VERSION"
	EnvCephVersion    = "NVMEOF_CEPH_VERSION"
	EnvBuildDate      = "BUILD_DATE"
	EnvGitRepo        = "NVMEOF_GIT_REPO"
	EnvGitBranch      = "NVMEOF_GIT_BRANCH"
	EnvGitCommit      = "NVMEOF_GIT_COMMIT"
)

type TransportType string

const (
	TransportTypeTCP  = TransportType("TCP")
	TransportTypeRDMA = TransportType("RDMA")
)

type AddressFamily string

const (
	AddressFamilyIPv4 = AddressFamily("ipv4")
	AddressFamilyIPv6 = AddressFamily("ipv6")
)

type AutoHAState string

const (
	AutoHAStateUnset = AutoHAState("AUTO_HA_UNSET")
	AutoHAStateOff   = AutoHAState("AUTO_HA_OFF")
	AutoHAStateOn    = AutoHAState("AUTO_HA_ON")
)

type LogLevel string

const (
	LogLevelError   = LogLevel("ERROR")
	LogLevelWarning = LogLevel("WARNING")
	LogLevelNotice  = LogLevel("NOTICE")
	LogLevelInfo    = LogLevel("INFO")
	LogLevelDebug   = LogLevel("DEBUG")
)

// ParseTransportType accepts any case. An empty value selects TCP.
func ParseTransportType(s string) (TransportType, bool) {
	switch TransportType(strings.ToUpper(s)) {
	case "", TransportTypeTCP:
		return TransportTypeTCP, true
	case TransportTypeRDMA:
		return TransportTypeRDMA, true
	}
	return "", false
}

// ParseAddressFamily accepts any case. An empty value selects IPv4.
func ParseAddressFamily(s string) (AddressFamily, bool) {
	switch AddressFamily(strings.ToLower(s)) {
	case "", AddressFamilyIPv4:
		return AddressFamilyIPv4, true
	case AddressFamilyIPv6:
		return AddressFamilyIPv6, true
	}
	return "", false
}

func ParseAutoHAState(s string) (AutoHAState, bool) {
	switch AutoHAState(strings.ToUpper(s)) {
	case "", AutoHAStateUnset:
		return AutoHAStateUnset, true
	case AutoHAStateOff:
		return AutoHAStateOff, true
	case AutoHAStateOn:
		return AutoHAStateOn, true
	}
	return "", false
}

func ParseLogLevel(s string) (LogLevel, bool) {
	switch level := LogLevel(strings.ToUpper(s)); level {
	case LogLevelError, LogLevelWarning, LogLevelNotice, LogLevelInfo, LogLevelDebug:
		return level, true
	}
	return "", false
}

func IsDiscoveryNQN(nqn string) bool {
	return nqn == DiscoveryNQN
}

func GetBdevName(uuid string) string {
	return BdevNamePrefix + uuid
}

func GetClusterContextName(index int) string {
	return fmt.Sprintf("%s%d", ClusterContextPrefix, index)
}

// EscapeAddressIfIPv6 wraps IPv6 literals in brackets for use in messages.
func EscapeAddressIfIPv6(addr string) string {
	if strings.Contains(addr, ":") && !strings.HasPrefix(addr, "[") {
		return "[" + addr + "]"
	}
	return addr
}

// NamespaceIDMessage describes how a namespace was addressed by the
// caller. The result is either empty or ends with a space.
func NamespaceIDMessage(nsid uint32, uuid string) string {
	switch {
	case nsid != 0 && uuid != "":
		return fmt.Sprintf("using NSID %d and UUID %s ", nsid, uuid)
	case nsid != 0:
		return fmt.Sprintf("using NSID %d ", nsid)
	case uuid != "":
		return fmt.Sprintf("using UUID %s ", uuid)
	}
	return ""
}
