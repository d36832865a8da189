package engineapi

import (
	"encoding/json"
	"net"
	"path/filepath"
	"time"

	. "gopkg.in/check.v1"

	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

type fakeRPCRequest struct {
	ID     uint32          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type fakeRPCError struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

type fakeRPCResponse struct {
	ID      uint32        `json:"id"`
	Version string        `json:"jsonrpc"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *fakeRPCError `json:"error,omitempty"`
}

// serveFakeSPDK answers every request with handler's result or error.
func serveFakeSPDK(c *C, handler func(req *fakeRPCRequest) (interface{}, *fakeRPCError)) string {
	socket := filepath.Join(c.MkDir(), "spdk.sock")
	l, err := net.Listen("unix", socket)
	c.Assert(err, IsNil)

	go func() {
		defer l.Close()
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		dec := json.NewDecoder(conn)
		enc := json.NewEncoder(conn)
		for {
			req := &fakeRPCRequest{}
			if err := dec.Decode(req); err != nil {
				return
			}
			result, rpcErr := handler(req)
			if err := enc.Encode(&fakeRPCResponse{ID: req.ID, Version: "2.0", Result: result, Error: rpcErr}); err != nil {
				return
			}
		}
	}()
	return socket
}

func (s *TestSuite) TestSPDKEngineRoundTrip(c *C) {
	socket := serveFakeSPDK(c, func(req *fakeRPCRequest) (interface{}, *fakeRPCError) {
		switch req.Method {
		case MethodNvmfCreateSubsystem:
			params := &NvmfCreateSubsystemParams{}
			if err := json.Unmarshal(req.Params, params); err != nil || params.Nqn != TestNQN {
				return nil, &fakeRPCError{Code: -32602, Message: "Invalid parameters"}
			}
			return true, nil
		case MethodNvmfSubsystemAddNs:
			return 7, nil
		case MethodNvmfDeleteSubsystem:
			return nil, &fakeRPCError{Code: -19, Message: "No such device"}
		case MethodLogGetFlags:
			return map[string]bool{"nvmf": true, "bdev": false}, nil
		}
		return nil, &fakeRPCError{Code: -32601, Message: "Method not found"}
	})

	engine, err := NewSPDKEngine(socket, 3, time.Second)
	c.Assert(err, IsNil)
	defer engine.Close()

	ok, err := engine.NvmfCreateSubsystem(&NvmfCreateSubsystemParams{Nqn: TestNQN, SerialNumber: "SPDK1"})
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)

	nsid, err := engine.NvmfSubsystemAddNs(TestNQN, &NvmfNamespaceParams{BdevName: TestBdevName})
	c.Assert(err, IsNil)
	c.Assert(nsid, Equals, uint32(7))

	flags, err := engine.LogGetFlags()
	c.Assert(err, IsNil)
	c.Assert(flags["nvmf"], Equals, true)

	_, err = engine.NvmfDeleteSubsystem(TestNQN)
	c.Assert(err, NotNil)
	translated := TranslateError(err, "Failure deleting subsystem "+TestNQN, errno.EINVAL)
	c.Assert(errno.Code(translated), Equals, errno.ENODEV)
	c.Assert(errno.Message(translated), Equals, "Failure deleting subsystem "+TestNQN+": No such device")
}

func (s *TestSuite) TestSPDKEngineDialFailure(c *C) {
	_, err := NewSPDKEngine(filepath.Join(c.MkDir(), "missing.sock"), 2, 100*time.Millisecond)
	c.Assert(err, ErrorMatches, "unable to connect to SPDK RPC socket.*")
}

func (s *TestSuite) TestNewListenAddress(c *C) {
	addr := NewListenAddress(types.TransportTypeTCP, types.AddressFamilyIPv4, "10.0.0.1", 4420)
	c.Assert(*addr, DeepEquals, NvmfListenAddress{Trtype: "tcp", Adrfam: "ipv4", Traddr: "10.0.0.1", Trsvcid: "4420"})

	addr = NewListenAddress(types.TransportTypeRDMA, types.AddressFamilyIPv6, "fe80::1", 0)
	c.Assert(*addr, DeepEquals, NvmfListenAddress{Trtype: "rdma", Adrfam: "ipv6", Traddr: "fe80::1"})
}
