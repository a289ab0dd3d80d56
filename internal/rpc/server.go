package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/fleetwatch/fleetwatch/internal/manager"
	"github.com/fleetwatch/fleetwatch/internal/model"
	"github.com/fleetwatch/fleetwatch/internal/query"
	"github.com/fleetwatch/fleetwatch/internal/store"
)

const (
	monitorServiceName = "monitor.MonitorService"
	queryServiceName   = "monitor.QueryService"
)

// Server carries the push method and the query catalog over gRPC.
type Server struct {
	addr    string
	hosts   *manager.HostManager
	queries *query.Service
	grpc    *grpc.Server
}

func NewServer(addr string, hosts *manager.HostManager, queries *query.Service) *Server {
	encoding.RegisterCodec(jsonCodec{})
	s := &Server{
		addr:    addr,
		hosts:   hosts,
		queries: queries,
		grpc:    grpc.NewServer(),
	}
	s.grpc.RegisterService(monitorServiceDesc(), s)
	s.grpc.RegisterService(queryServiceDesc(), s)
	return s
}

// Run blocks serving until Shutdown or a listener error.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	slog.Info("gRPC server listening", "addr", s.addr)
	return s.grpc.Serve(ln)
}

func (s *Server) Shutdown() {
	s.grpc.GracefulStop()
	slog.Info("gRPC server stopped")
}

// toStatus maps the core's error taxonomy onto transport status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, query.ErrInvalidTimeRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNotInitialized):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// monitorService and queryCatalog type the hand-written service
// descriptors; *Server implements both.
type monitorService interface {
	setMonitorInfo(ctx context.Context, info *model.MonitorInfo) (*model.Empty, error)
}

type queryCatalog interface {
	queryService() *query.Service
}

func (s *Server) queryService() *query.Service { return s.queries }

// setMonitorInfo is the push path. The ingest itself is best-effort: only a
// snapshot with no usable host identity is rejected.
func (s *Server) setMonitorInfo(_ context.Context, info *model.MonitorInfo) (*model.Empty, error) {
	if info.HostKey() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing host identity")
	}
	s.hosts.OnDataReceived(info)
	return &model.Empty{}, nil
}

func monitorServiceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: monitorServiceName,
		HandlerType: (*monitorService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "SetMonitorInfo", Handler: handleSetMonitorInfo},
		},
		Streams: []grpc.StreamDesc{},
	}
}

func queryServiceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: queryServiceName,
		HandlerType: (*queryCatalog)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "QueryPerformance", Handler: handleQueryPerformance},
			{MethodName: "QueryTrend", Handler: handleQueryTrend},
			{MethodName: "QueryAnomaly", Handler: handleQueryAnomaly},
			{MethodName: "QueryScoreRank", Handler: handleQueryScoreRank},
			{MethodName: "QueryLatestScore", Handler: handleQueryLatestScore},
			{MethodName: "QueryNetDetail", Handler: handleQueryNetDetail},
			{MethodName: "QueryDiskDetail", Handler: handleQueryDiskDetail},
			{MethodName: "QueryMemDetail", Handler: handleQueryMemDetail},
			{MethodName: "QuerySoftIrqDetail", Handler: handleQuerySoftIrqDetail},
			{MethodName: "QueryCpuCoreDetail", Handler: handleQueryCpuCoreDetail},
		},
		Streams: []grpc.StreamDesc{},
	}
}

func handleSetMonitorInfo(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.MonitorInfo)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(monitorService).setMonitorInfo(ctx, in)
}

func handleQueryPerformance(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryPerformanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryPerformance(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryTrend(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryTrendRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryTrend(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryAnomaly(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryAnomalyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryAnomaly(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryScoreRank(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryScoreRankRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryScoreRank(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryLatestScore(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryLatestScoreRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryLatestScore(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryNetDetail(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryDetailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryNetDetail(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryDiskDetail(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryDetailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryDiskDetail(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryMemDetail(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryDetailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryMemDetail(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQuerySoftIrqDetail(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryDetailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QuerySoftIrqDetail(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func handleQueryCpuCoreDetail(srv interface{}, _ context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.QueryDetailRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	resp, err := srv.(queryCatalog).queryService().QueryCpuCoreDetail(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}
