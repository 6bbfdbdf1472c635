package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// -----------------------------------------------------------------------------
// Wire plumbing for the control service. The RPCs exchange only well-known
// proto types (Empty in, Struct out), so the descriptor and handlers are
// written out by hand instead of generated.
// -----------------------------------------------------------------------------

type ControlServer interface {
	TriggerUpdate(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	StartUpdater(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	StopUpdater(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func unaryHandler(
	method string,
	invoke func(ctx context.Context, srv ControlServer, in *emptypb.Empty) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return invoke(ctx, srv.(ControlServer), in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/stocksimulator.Control/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return invoke(ctx, srv.(ControlServer), req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------

var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: "stocksimulator.Control",
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TriggerUpdate",
			Handler: unaryHandler("TriggerUpdate", func(ctx context.Context, srv ControlServer, in *emptypb.Empty) (*structpb.Struct, error) {
				return srv.TriggerUpdate(ctx, in)
			}),
		},
		{
			MethodName: "GetStatus",
			Handler: unaryHandler("GetStatus", func(ctx context.Context, srv ControlServer, in *emptypb.Empty) (*structpb.Struct, error) {
				return srv.GetStatus(ctx, in)
			}),
		},
		{
			MethodName: "StartUpdater",
			Handler: unaryHandler("StartUpdater", func(ctx context.Context, srv ControlServer, in *emptypb.Empty) (*structpb.Struct, error) {
				return srv.StartUpdater(ctx, in)
			}),
		},
		{
			MethodName: "StopUpdater",
			Handler: unaryHandler("StopUpdater", func(ctx context.Context, srv ControlServer, in *emptypb.Empty) (*structpb.Struct, error) {
				return srv.StopUpdater(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}
