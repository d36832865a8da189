package api

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/longhorn/nvmeof-gateway/manager"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"

	metricscollector "github.com/longhorn/nvmeof-gateway/metrics_collector"
)

const successMessage = "Success"

type statusCarrier interface {
	Result() *types.ReqStatus
}

// GatewayServer serves GatewayService on top of a GatewayManager. Each
// request runs on its own goroutine; the manager serializes them.
type GatewayServer struct {
	m      *manager.GatewayManager
	server *grpc.Server
	logger logrus.FieldLogger
}

func NewGatewayServer(m *manager.GatewayManager) *GatewayServer {
	s := &GatewayServer{
		m: m,
		logger: logrus.WithFields(logrus.Fields{
			"component": "api",
			"gateway":   m.Name(),
		}),
	}
	s.server = grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(s.observe),
	)
	s.server.RegisterService(&gatewayServiceDesc, s)
	return s
}

// Start listens on address and serves in the background.
func (s *GatewayServer) Start(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to start gateway GRPC server")
	}
	s.logger.Infof("Gateway GRPC server listening on %v", l.Addr())
	go s.Serve(l)
	return nil
}

func (s *GatewayServer) Serve(l net.Listener) {
	if err := s.server.Serve(l); err != nil {
		s.logger.WithError(err).Error("Failed to serve gateway GRPC server")
	}
}

func (s *GatewayServer) Stop() {
	s.server.GracefulStop()
}

// observe counts every handled request by the status it returned.
func (s *GatewayServer) observe(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	status := errno.EIO.Value()
	if err == nil {
		if st, ok := resp.(statusCarrier); ok {
			status = st.Result().Status
		}
	}
	metricscollector.ObserveOperation(methodName(info.FullMethod), status, start)
	return resp, err
}

func methodName(fullMethod string) string {
	return strings.TrimPrefix(fullMethod, "/"+ServiceName+"/")
}

func reqStatus(err error) types.ReqStatus {
	if err == nil {
		return types.ReqStatus{Status: 0, ErrorMessage: successMessage}
	}
	return types.ReqStatus{Status: errno.Code(err).Value(), ErrorMessage: errno.Message(err)}
}

func (s *GatewayServer) CreateSubsystem(ctx context.Context, req *types.CreateSubsystemRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.CreateSubsystem(ctx, req))
	return &st, nil
}

func (s *GatewayServer) DeleteSubsystem(ctx context.Context, req *types.DeleteSubsystemRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.DeleteSubsystem(ctx, req))
	return &st, nil
}

func (s *GatewayServer) ListSubsystems(ctx context.Context, req *types.ListSubsystemsRequest) (*types.SubsystemsInfo, error) {
	info, err := s.m.ListSubsystems(ctx, req)
	if info == nil {
		info = &types.SubsystemsInfo{Subsystems: []types.Subsystem{}}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) AddNamespace(ctx context.Context, req *types.NamespaceAddRequest) (*types.NSIDStatus, error) {
	nsid, err := s.m.AddNamespace(ctx, req)
	return &types.NSIDStatus{ReqStatus: reqStatus(err), NSID: nsid}, nil
}

func (s *GatewayServer) ResizeNamespace(ctx context.Context, req *types.NamespaceResizeRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.ResizeNamespace(ctx, req))
	return &st, nil
}

func (s *GatewayServer) GetNamespaceIOStats(ctx context.Context, req *types.NamespaceGetIOStatsRequest) (*types.NamespaceIOStatsInfo, error) {
	info, err := s.m.GetNamespaceIOStats(ctx, req)
	if info == nil {
		info = &types.NamespaceIOStatsInfo{SubsystemNQN: req.SubsystemNQN, NSID: req.NSID, UUID: req.UUID}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) SetNamespaceQosLimits(ctx context.Context, req *types.NamespaceSetQosRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.SetNamespaceQosLimits(ctx, req))
	return &st, nil
}

func (s *GatewayServer) ChangeLoadBalancingGroup(ctx context.Context, req *types.NamespaceChangeLoadBalancingGroupRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.ChangeLoadBalancingGroup(ctx, req))
	return &st, nil
}

func (s *GatewayServer) DeleteNamespace(ctx context.Context, req *types.NamespaceDeleteRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.DeleteNamespace(ctx, req))
	return &st, nil
}

func (s *GatewayServer) ListNamespaces(ctx context.Context, req *types.ListNamespacesRequest) (*types.NamespacesInfo, error) {
	info, err := s.m.ListNamespaces(ctx, req)
	if info == nil {
		info = &types.NamespacesInfo{SubsystemNQN: req.Subsystem, Namespaces: []types.Namespace{}}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) AddHost(ctx context.Context, req *types.AddHostRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.AddHost(ctx, req))
	return &st, nil
}

func (s *GatewayServer) RemoveHost(ctx context.Context, req *types.RemoveHostRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.RemoveHost(ctx, req))
	return &st, nil
}

func (s *GatewayServer) ListHosts(ctx context.Context, req *types.ListHostsRequest) (*types.HostsInfo, error) {
	info, err := s.m.ListHosts(ctx, req)
	if info == nil {
		info = &types.HostsInfo{SubsystemNQN: req.Subsystem, Hosts: []types.Host{}}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) ListConnections(ctx context.Context, req *types.ListConnectionsRequest) (*types.ConnectionsInfo, error) {
	info, err := s.m.ListConnections(ctx, req)
	if info == nil {
		info = &types.ConnectionsInfo{SubsystemNQN: req.Subsystem, Connections: []types.Connection{}}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) CreateListener(ctx context.Context, req *types.CreateListenerRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.CreateListener(ctx, req))
	return &st, nil
}

func (s *GatewayServer) DeleteListener(ctx context.Context, req *types.DeleteListenerRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.DeleteListener(ctx, req))
	return &st, nil
}

func (s *GatewayServer) ListListeners(ctx context.Context, req *types.ListListenersRequest) (*types.ListenersInfo, error) {
	info, err := s.m.ListListeners(ctx, req)
	if info == nil {
		info = &types.ListenersInfo{Listeners: []types.ListenerInfo{}}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) GetLogFlags(ctx context.Context, req *types.GetLogFlagsRequest) (*types.LogFlagsInfo, error) {
	info, err := s.m.GetLogFlags(ctx, req)
	if info == nil {
		info = &types.LogFlagsInfo{NvmfLogFlags: []types.LogFlag{}}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}

func (s *GatewayServer) SetLogFlags(ctx context.Context, req *types.SetLogFlagsRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.SetLogFlags(ctx, req))
	return &st, nil
}

func (s *GatewayServer) DisableLogFlags(ctx context.Context, req *types.DisableLogFlagsRequest) (*types.ReqStatus, error) {
	st := reqStatus(s.m.DisableLogFlags(ctx, req))
	return &st, nil
}

func (s *GatewayServer) GetGatewayInfo(ctx context.Context, req *types.GetGatewayInfoRequest) (*types.GatewayInfo, error) {
	info, err := s.m.GetGatewayInfo(ctx, req)
	if info == nil {
		info = &types.GatewayInfo{CLIVersion: req.CLIVersion}
	}
	info.ReqStatus = reqStatus(err)
	return info, nil
}
