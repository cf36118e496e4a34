package hostgateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// HostGatewayServer is the RetrieveReshard RPC surface. The
// request/response wire types are the pre-built, already-valid
// proto.Message implementations emptypb.Empty and wrapperspb.StringValue.
// proto/reshard.proto documents the conceptual field name
// ("reshard_bundle") this StringValue carries.
type HostGatewayServer interface {
	RetrieveReshard(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// hostGatewayServiceDesc is the hand-maintained equivalent of the
// grpc.ServiceDesc a protoc-gen-go-grpc invocation would emit for
// proto/reshard.proto's HostGateway service.
var hostGatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: "reshard.v1.HostGateway",
	HandlerType: (*HostGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RetrieveReshard",
			Handler:    hostGatewayRetrieveReshardHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reshard.proto",
}

func hostGatewayRetrieveReshardHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HostGatewayServer).RetrieveReshard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/reshard.v1.HostGateway/RetrieveReshard",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HostGatewayServer).RetrieveReshard(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterHostGatewayServer wires srv into s the way a generated
// RegisterHostGatewayServer function would.
func RegisterHostGatewayServer(s grpc.ServiceRegistrar, srv HostGatewayServer) {
	s.RegisterService(&hostGatewayServiceDesc, srv)
}
