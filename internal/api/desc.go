package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "session.v1.MessageService"

// Method names.
const (
	MethodSendText       = "SendText"
	MethodGetOutboxEntry = "GetOutboxEntry"
	MethodGetStatus      = "GetStatus"
	MethodWatchEvents    = "WatchEvents"
)

// MessageServer is the server API of the daemon. Requests and replies are
// protobuf Structs with the fields documented on each method of Service.
type MessageServer interface {
	SendText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOutboxEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStream) error
}

// ServiceDesc describes MessageServer for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessageServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodSendText, Handler: unaryHandler(MethodSendText, MessageServer.SendText)},
		{MethodName: MethodGetOutboxEntry, Handler: unaryHandler(MethodGetOutboxEntry, MessageServer.GetOutboxEntry)},
		{MethodName: MethodGetStatus, Handler: unaryHandler(MethodGetStatus, MessageServer.GetStatus)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: MethodWatchEvents, Handler: watchEventsHandler, ServerStreams: true},
	},
	Metadata: "session/v1/message.proto",
}

// Register registers srv on s.
func Register(s grpc.ServiceRegistrar, srv MessageServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryMethod func(MessageServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MessageServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MessageServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MessageServer).WatchEvents(in, stream)
}
