package kvstore

import (
	"fmt"
	"strings"
)

const (
	// StatePrefix holds the configuration records within a group namespace.
	StatePrefix = "state/"

	// LockKey is the distributed configuration lock within a group namespace.
	LockKey = "lock"

	SubsystemPrefix    = "subsystem_"
	NamespacePrefix    = "namespace_"
	NamespaceQosPrefix = "qos_"
	HostPrefix         = "host_"
	ListenerPrefix     = "listener_"
)

func SubsystemKey(nqn string) string {
	return SubsystemPrefix + nqn
}

func NamespaceKey(nqn string, nsid uint32) string {
	return fmt.Sprintf("%s%s_%d", NamespacePrefix, nqn, nsid)
}

func NamespaceQosKey(nqn string, nsid uint32) string {
	return fmt.Sprintf("%s%s_%d", NamespaceQosPrefix, nqn, nsid)
}

func HostKey(nqn, hostNQN string) string {
	return HostPrefix + nqn + "_" + hostNQN
}

// ListenerKey identifies a listener by its owning gateway and transport
// address. trtype is stored upper case.
func ListenerKey(nqn, gatewayName, trtype, traddr string, trsvcid uint32) string {
	return fmt.Sprintf("%s%s_%s_%s_%s_%d", ListenerPrefix, nqn, gatewayName, strings.ToUpper(trtype), traddr, trsvcid)
}

// SubsystemListenerPrefix matches the listener keys of nqn. It can also
// match a subsystem whose NQN extends nqn with "_", so callers check the
// decoded record.
func SubsystemListenerPrefix(nqn string) string {
	return ListenerPrefix + nqn + "_"
}

func SubsystemNamespacePrefix(nqn string) string {
	return NamespacePrefix + nqn + "_"
}

// KeyType returns the record prefix of key, or "" for unknown keys.
func KeyType(key string) string {
	for _, prefix := range []string{SubsystemPrefix, NamespacePrefix, NamespaceQosPrefix, HostPrefix, ListenerPrefix} {
		if strings.HasPrefix(key, prefix) {
			return prefix
		}
	}
	return ""
}
