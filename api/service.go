package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/longhorn/nvmeof-gateway/types"
)

const ServiceName = "nvmeof.Gateway"

// GatewayService is the facade every gateway request goes through. Failures
// are reported in the embedded status of the response, never as gRPC
// errors.
type GatewayService interface {
	CreateSubsystem(context.Context, *types.CreateSubsystemRequest) (*types.ReqStatus, error)
	DeleteSubsystem(context.Context, *types.DeleteSubsystemRequest) (*types.ReqStatus, error)
	ListSubsystems(context.Context, *types.ListSubsystemsRequest) (*types.SubsystemsInfo, error)

	AddNamespace(context.Context, *types.NamespaceAddRequest) (*types.NSIDStatus, error)
	ResizeNamespace(context.Context, *types.NamespaceResizeRequest) (*types.ReqStatus, error)
	GetNamespaceIOStats(context.Context, *types.NamespaceGetIOStatsRequest) (*types.NamespaceIOStatsInfo, error)
	SetNamespaceQosLimits(context.Context, *types.NamespaceSetQosRequest) (*types.ReqStatus, error)
	ChangeLoadBalancingGroup(context.Context, *types.NamespaceChangeLoadBalancingGroupRequest) (*types.ReqStatus, error)
	DeleteNamespace(context.Context, *types.NamespaceDeleteRequest) (*types.ReqStatus, error)
	ListNamespaces(context.Context, *types.ListNamespacesRequest) (*types.NamespacesInfo, error)

	AddHost(context.Context, *types.AddHostRequest) (*types.ReqStatus, error)
	RemoveHost(context.Context, *types.RemoveHostRequest) (*types.ReqStatus, error)
	ListHosts(context.Context, *types.ListHostsRequest) (*types.HostsInfo, error)
	ListConnections(context.Context, *types.ListConnectionsRequest) (*types.ConnectionsInfo, error)

	CreateListener(context.Context, *types.CreateListenerRequest) (*types.ReqStatus, error)
	DeleteListener(context.Context, *types.DeleteListenerRequest) (*types.ReqStatus, error)
	ListListeners(context.Context, *types.ListListenersRequest) (*types.ListenersInfo, error)

	GetLogFlags(context.Context, *types.GetLogFlagsRequest) (*types.LogFlagsInfo, error)
	SetLogFlags(context.Context, *types.SetLogFlagsRequest) (*types.ReqStatus, error)
	DisableLogFlags(context.Context, *types.DisableLogFlagsRequest) (*types.ReqStatus, error)

	GetGatewayInfo(context.Context, *types.GetGatewayInfoRequest) (*types.GatewayInfo, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds the method descriptor of one facade call the way generated
// stubs do, decoding into a fresh request and going through the server
// interceptor.
func unary[Req any, Resp any](method string, call func(GatewayService, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GatewayService), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(GatewayService), ctx, req.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayService)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSubsystem", GatewayService.CreateSubsystem),
		unary("DeleteSubsystem", GatewayService.DeleteSubsystem),
		unary("ListSubsystems", GatewayService.ListSubsystems),
		unary("AddNamespace", GatewayService.AddNamespace),
		unary("ResizeNamespace", GatewayService.ResizeNamespace),
		unary("GetNamespaceIOStats", GatewayService.GetNamespaceIOStats),
		unary("SetNamespaceQosLimits", GatewayService.SetNamespaceQosLimits),
		unary("ChangeLoadBalancingGroup", GatewayService.ChangeLoadBalancingGroup),
		unary("DeleteNamespace", GatewayService.DeleteNamespace),
		unary("ListNamespaces", GatewayService.ListNamespaces),
		unary("AddHost", GatewayService.AddHost),
		unary("RemoveHost", GatewayService.RemoveHost),
		unary("ListHosts", GatewayService.ListHosts),
		unary("ListConnections", GatewayService.ListConnections),
		unary("CreateListener", GatewayService.CreateListener),
		unary("DeleteListener", GatewayService.DeleteListener),
		unary("ListListeners", GatewayService.ListListeners),
		unary("GetLogFlags", GatewayService.GetLogFlags),
		unary("SetLogFlags", GatewayService.SetLogFlags),
		unary("DisableLogFlags", GatewayService.DisableLogFlags),
		unary("GetGatewayInfo", GatewayService.GetGatewayInfo),
	},
	Streams: []grpc.StreamDesc{},
}
