package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	eventServiceName  = "loyalty.v1.EventService"
	publishMethodPath = "/" + eventServiceName + "/Publish"
)

type PublishRequest struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}

type PublishResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// EventServiceServer receives events published by a remote rewards engine.
type EventServiceServer interface {
	Publish(ctx context.Context, req *PublishRequest) (*PublishResponse, error)
}

func RegisterEventServiceServer(s grpc.ServiceRegistrar, srv EventServiceServer) {
	s.RegisterService(&eventServiceDesc, srv)
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: eventServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: publishHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loyalty/v1/events",
}

func publishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PublishRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventServiceServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: publishMethodPath}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventServiceServer).Publish(ctx, req.(*PublishRequest))
	}
	return interceptor(ctx, in, info, handler)
}
