package engineapi

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/longhorn/go-spdk-helper/pkg/jsonrpc"
	spdktypes "github.com/longhorn/go-spdk-helper/pkg/spdk/types"

	"github.com/longhorn/nvmeof-gateway/types"
)

const (
	defaultDialRetryInterval = time.Second
)

// SPDKEngine talks to spdk_tgt over its JSON-RPC unix socket.
type SPDKEngine struct {
	socket string

	conn   net.Conn
	client *jsonrpc.Client
	cancel context.CancelFunc
}

func NewSPDKEngine(socket string, retries int, timeout time.Duration) (engine *SPDKEngine, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "unable to connect to SPDK RPC socket %v", socket)
		}
	}()

	if retries < 1 {
		retries = 1
	}

	var conn net.Conn
	err = retry.Do(
		func() error {
			c, err := net.DialTimeout("unix", socket, timeout)
			if err != nil {
				logrus.WithError(err).Warnf("Failed to dial SPDK RPC socket %v, will retry", socket)
				return err
			}
			conn = c
			return nil
		},
		retry.Attempts(uint(retries)),
		retry.Delay(defaultDialRetryInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	return NewSPDKEngineWithConn(socket, conn), nil
}

// NewSPDKEngineWithConn takes ownership of an established connection.
func NewSPDKEngineWithConn(socket string, conn net.Conn) *SPDKEngine {
	ctx, cancel := context.WithCancel(context.Background())
	return &SPDKEngine{
		socket: socket,
		conn:   conn,
		client: jsonrpc.NewClient(ctx, conn),
		cancel: cancel,
	}
}

func (e *SPDKEngine) Close() error {
	e.cancel()
	return e.conn.Close()
}

func (e *SPDKEngine) call(method string, params, result interface{}) error {
	logrus.Debugf("SPDK RPC %v request %+v", method, params)
	resp, err := e.client.SendCommand(method, params)
	if err != nil {
		return convertClientError(method, params, err)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp, result); err != nil {
		return errors.Wrapf(err, "fail to decode %v response %s", method, strings.TrimSpace(string(resp)))
	}
	return nil
}

func convertClientError(method string, params interface{}, err error) error {
	clientErr, ok := err.(jsonrpc.JSONClientError)
	if !ok {
		return errors.Wrapf(err, "fail to call %v", method)
	}
	if respErr, ok := clientErr.ErrorDetail.(*jsonrpc.ResponseError); ok && respErr != nil {
		return &RPCError{
			Method:  method,
			Params:  params,
			Code:    int32(respErr.Code),
			Message: string(respErr.Message),
		}
	}
	return errors.Wrapf(clientErr.ErrorDetail, "fail to call %v", method)
}

func (e *SPDKEngine) callBool(method string, params interface{}) (bool, error) {
	var ok bool
	if err := e.call(method, params, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (e *SPDKEngine) BdevRbdRegisterCluster(name, userID, coreMask string) (string, error) {
	var ret string
	err := e.call(MethodBdevRbdRegisterCluster, &BdevRbdRegisterClusterParams{
		Name:     name,
		UserID:   userID,
		CoreMask: coreMask,
	}, &ret)
	return ret, err
}

func (e *SPDKEngine) BdevRbdCreate(params *BdevRbdCreateParams) (string, error) {
	var ret string
	err := e.call(MethodBdevRbdCreate, params, &ret)
	return ret, err
}

func (e *SPDKEngine) BdevRbdDelete(name string) (bool, error) {
	return e.callBool(MethodBdevRbdDelete, &BdevRbdDeleteParams{Name: name})
}

func (e *SPDKEngine) BdevRbdResize(name string, newSizeMiB uint64) (bool, error) {
	return e.callBool(MethodBdevRbdResize, &BdevRbdResizeParams{Name: name, NewSize: newSizeMiB})
}

func (e *SPDKEngine) BdevGetBdevs(name string) ([]BdevInfo, error) {
	var ret []BdevInfo
	err := e.call(MethodBdevGetBdevs, &BdevGetBdevsParams{Name: name}, &ret)
	return ret, err
}

func (e *SPDKEngine) BdevGetIostat(name string) (*BdevGetIostatResult, error) {
	ret := &BdevGetIostatResult{}
	if err := e.call(MethodBdevGetIostat, &BdevGetIostatParams{Name: name}, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (e *SPDKEngine) BdevSetQosLimit(params *BdevSetQosLimitParams) (bool, error) {
	return e.callBool(MethodBdevSetQosLimit, params)
}

func (e *SPDKEngine) NvmfCreateSubsystem(params *NvmfCreateSubsystemParams) (bool, error) {
	return e.callBool(MethodNvmfCreateSubsystem, params)
}

func (e *SPDKEngine) NvmfDeleteSubsystem(nqn string) (bool, error) {
	return e.callBool(MethodNvmfDeleteSubsystem, &NvmfSubsystemParams{Nqn: nqn})
}

func (e *SPDKEngine) NvmfSubsystemAddNs(nqn string, ns *NvmfNamespaceParams) (uint32, error) {
	var nsid uint32
	err := e.call(MethodNvmfSubsystemAddNs, &NvmfSubsystemAddNsParams{Nqn: nqn, Namespace: *ns}, &nsid)
	return nsid, err
}

func (e *SPDKEngine) NvmfSubsystemRemoveNs(nqn string, nsid uint32) (bool, error) {
	return e.callBool(MethodNvmfSubsystemRemoveNs, &NvmfSubsystemRemoveNsParams{Nqn: nqn, Nsid: nsid})
}

func (e *SPDKEngine) NvmfSubsystemAddHost(nqn, host string) (bool, error) {
	return e.callBool(MethodNvmfSubsystemAddHost, &NvmfSubsystemHostParams{Nqn: nqn, Host: host})
}

func (e *SPDKEngine) NvmfSubsystemRemoveHost(nqn, host string) (bool, error) {
	return e.callBool(MethodNvmfSubsystemRemoveHost, &NvmfSubsystemHostParams{Nqn: nqn, Host: host})
}

func (e *SPDKEngine) NvmfSubsystemAllowAnyHost(nqn string, allow bool) (bool, error) {
	return e.callBool(MethodNvmfSubsystemAllowAnyHost, &NvmfSubsystemAllowAnyHostParams{Nqn: nqn, AllowAnyHost: allow})
}

func (e *SPDKEngine) NvmfSubsystemAddListener(nqn string, addr *NvmfListenAddress) (bool, error) {
	return e.callBool(MethodNvmfSubsystemAddListener, &NvmfSubsystemListenerParams{Nqn: nqn, ListenAddress: *addr})
}

func (e *SPDKEngine) NvmfSubsystemRemoveListener(nqn string, addr *NvmfListenAddress) (bool, error) {
	return e.callBool(MethodNvmfSubsystemRemoveListener, &NvmfSubsystemListenerParams{Nqn: nqn, ListenAddress: *addr})
}

func (e *SPDKEngine) NvmfSubsystemListenerSetANAState(nqn string, addr *NvmfListenAddress, anaState string, anagrpid uint32) (bool, error) {
	return e.callBool(MethodNvmfSubsystemListenerSetANAState, &NvmfSubsystemListenerSetANAStateParams{
		Nqn:           nqn,
		ListenAddress: *addr,
		AnaState:      anaState,
		Anagrpid:      anagrpid,
	})
}

func (e *SPDKEngine) NvmfGetSubsystems(nqn string) ([]NvmfSubsystem, error) {
	var ret []NvmfSubsystem
	err := e.call(MethodNvmfGetSubsystems, &NvmfGetSubsystemsParams{Nqn: nqn}, &ret)
	return ret, err
}

func (e *SPDKEngine) NvmfSubsystemGetQpairs(nqn string) ([]NvmfQpair, error) {
	var ret []NvmfQpair
	err := e.call(MethodNvmfSubsystemGetQpairs, &NvmfSubsystemParams{Nqn: nqn}, &ret)
	return ret, err
}

func (e *SPDKEngine) NvmfSubsystemGetControllers(nqn string) ([]NvmfController, error) {
	var ret []NvmfController
	err := e.call(MethodNvmfSubsystemGetControllers, &NvmfSubsystemParams{Nqn: nqn}, &ret)
	return ret, err
}

func (e *SPDKEngine) LogGetFlags() (map[string]bool, error) {
	ret := map[string]bool{}
	err := e.call(MethodLogGetFlags, nil, &ret)
	return ret, err
}

func (e *SPDKEngine) LogSetFlag(flag string) (bool, error) {
	return e.callBool(MethodLogSetFlag, &LogFlagParams{Flag: flag})
}

func (e *SPDKEngine) LogClearFlag(flag string) (bool, error) {
	return e.callBool(MethodLogClearFlag, &LogFlagParams{Flag: flag})
}

func (e *SPDKEngine) LogGetLevel() (string, error) {
	var ret string
	err := e.call(MethodLogGetLevel, nil, &ret)
	return ret, err
}

func (e *SPDKEngine) LogSetLevel(level string) (bool, error) {
	return e.callBool(MethodLogSetLevel, &LogLevelParams{Level: level})
}

func (e *SPDKEngine) LogGetPrintLevel() (string, error) {
	var ret string
	err := e.call(MethodLogGetPrintLevel, nil, &ret)
	return ret, err
}

func (e *SPDKEngine) LogSetPrintLevel(level string) (bool, error) {
	return e.callBool(MethodLogSetPrintLevel, &LogLevelParams{Level: level})
}

// NewListenAddress builds the engine form of a listener address.
func NewListenAddress(trtype types.TransportType, adrfam types.AddressFamily, traddr string, trsvcid uint32) *NvmfListenAddress {
	addr := &NvmfListenAddress{
		Trtype: string(spdktypes.NvmeTransportTypeTCP),
		Traddr: traddr,
		Adrfam: string(spdktypes.NvmeAddressFamilyIPv4),
	}
	if trtype == types.TransportTypeRDMA {
		addr.Trtype = string(spdktypes.NvmeTransportTypeRDMA)
	}
	if adrfam == types.AddressFamilyIPv6 {
		addr.Adrfam = string(spdktypes.NvmeAddressFamilyIPv6)
	}
	if trsvcid != 0 {
		addr.Trsvcid = strconv.FormatUint(uint64(trsvcid), 10)
	}
	return addr
}
