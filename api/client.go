package api

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

type GatewayClient struct {
	address string
	conn    *grpc.ClientConn
}

// NewGatewayClient connects to the gateway at address. Extra dial options
// are appended to the defaults.
func NewGatewayClient(address string, opts ...grpc.DialOption) (*GatewayClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)
	conn, err := grpc.Dial(address, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to gateway %v", address)
	}
	return &GatewayClient{
		address: address,
		conn:    conn,
	}, nil
}

func (c *GatewayClient) Close() error {
	return c.conn.Close()
}

// StatusError turns a failed response envelope back into an error carrying
// its code.
func StatusError(st *types.ReqStatus) error {
	if st == nil || st.Status == 0 {
		return nil
	}
	return errno.New(errno.Errno(st.Status), "%s", st.ErrorMessage)
}

func (c *GatewayClient) invoke(ctx context.Context, method string, req interface{}, resp statusCarrier) error {
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return errors.Wrapf(err, "failed to call %v on gateway %v", method, c.address)
	}
	return nil
}

func (c *GatewayClient) CreateSubsystem(ctx context.Context, req *types.CreateSubsystemRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "CreateSubsystem", req, resp)
}

func (c *GatewayClient) DeleteSubsystem(ctx context.Context, req *types.DeleteSubsystemRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "DeleteSubsystem", req, resp)
}

func (c *GatewayClient) ListSubsystems(ctx context.Context, req *types.ListSubsystemsRequest) (*types.SubsystemsInfo, error) {
	resp := &types.SubsystemsInfo{}
	return resp, c.invoke(ctx, "ListSubsystems", req, resp)
}

func (c *GatewayClient) AddNamespace(ctx context.Context, req *types.NamespaceAddRequest) (*types.NSIDStatus, error) {
	resp := &types.NSIDStatus{}
	return resp, c.invoke(ctx, "AddNamespace", req, resp)
}

func (c *GatewayClient) ResizeNamespace(ctx context.Context, req *types.NamespaceResizeRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "ResizeNamespace", req, resp)
}

func (c *GatewayClient) GetNamespaceIOStats(ctx context.Context, req *types.NamespaceGetIOStatsRequest) (*types.NamespaceIOStatsInfo, error) {
	resp := &types.NamespaceIOStatsInfo{}
	return resp, c.invoke(ctx, "GetNamespaceIOStats", req, resp)
}

func (c *GatewayClient) SetNamespaceQosLimits(ctx context.Context, req *types.NamespaceSetQosRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "SetNamespaceQosLimits", req, resp)
}

func (c *GatewayClient) ChangeLoadBalancingGroup(ctx context.Context, req *types.NamespaceChangeLoadBalancingGroupRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "ChangeLoadBalancingGroup", req, resp)
}

func (c *GatewayClient) DeleteNamespace(ctx context.Context, req *types.NamespaceDeleteRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "DeleteNamespace", req, resp)
}

func (c *GatewayClient) ListNamespaces(ctx context.Context, req *types.ListNamespacesRequest) (*types.NamespacesInfo, error) {
	resp := &types.NamespacesInfo{}
	return resp, c.invoke(ctx, "ListNamespaces", req, resp)
}

func (c *GatewayClient) AddHost(ctx context.Context, req *types.AddHostRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "AddHost", req, resp)
}

func (c *GatewayClient) RemoveHost(ctx context.Context, req *types.RemoveHostRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "RemoveHost", req, resp)
}

func (c *GatewayClient) ListHosts(ctx context.Context, req *types.ListHostsRequest) (*types.HostsInfo, error) {
	resp := &types.HostsInfo{}
	return resp, c.invoke(ctx, "ListHosts", req, resp)
}

func (c *GatewayClient) ListConnections(ctx context.Context, req *types.ListConnectionsRequest) (*types.ConnectionsInfo, error) {
	resp := &types.ConnectionsInfo{}
	return resp, c.invoke(ctx, "ListConnections", req, resp)
}

func (c *GatewayClient) CreateListener(ctx context.Context, req *types.CreateListenerRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "CreateListener", req, resp)
}

func (c *GatewayClient) DeleteListener(ctx context.Context, req *types.DeleteListenerRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "DeleteListener", req, resp)
}

func (c *GatewayClient) ListListeners(ctx context.Context, req *types.ListListenersRequest) (*types.ListenersInfo, error) {
	resp := &types.ListenersInfo{}
	return resp, c.invoke(ctx, "ListListeners", req, resp)
}

func (c *GatewayClient) GetLogFlags(ctx context.Context, req *types.GetLogFlagsRequest) (*types.LogFlagsInfo, error) {
	resp := &types.LogFlagsInfo{}
	return resp, c.invoke(ctx, "GetLogFlags", req, resp)
}

func (c *GatewayClient) SetLogFlags(ctx context.Context, req *types.SetLogFlagsRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "SetLogFlags", req, resp)
}

func (c *GatewayClient) DisableLogFlags(ctx context.Context, req *types.DisableLogFlagsRequest) (*types.ReqStatus, error) {
	resp := &types.ReqStatus{}
	return resp, c.invoke(ctx, "DisableLogFlags", req, resp)
}

func (c *GatewayClient) GetGatewayInfo(ctx context.Context, req *types.GetGatewayInfoRequest) (*types.GatewayInfo, error) {
	resp := &types.GatewayInfo{}
	return resp, c.invoke(ctx, "GetGatewayInfo", req, resp)
}
