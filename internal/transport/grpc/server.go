package grpc

import (
	"context"
	"net"

	"loyalty/internal/notify"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server exposes the EventService and relays every received event to a local
// sink, normally the websocket hub.
type Server struct {
	sink notify.Bus
	srv  *grpc.Server
	addr string
}

func NewServer(addr string, sink notify.Bus) *Server {
	s := &Server{sink: sink, addr: addr, srv: grpc.NewServer()}
	RegisterEventServiceServer(s.srv, s)
	return s
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve runs the gRPC server on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

func (s *Server) Stop(ctx context.Context) error {
	s.srv.GracefulStop()
	return nil
}

func (s *Server) Publish(ctx context.Context, req *PublishRequest) (*PublishResponse, error) {
	if req.Topic == "" {
		return nil, status.Error(codes.InvalidArgument, "topic is required")
	}
	if err := s.sink.Publish(req.Topic, req.Payload); err != nil {
		return &PublishResponse{Success: false, ErrorMessage: err.Error()}, nil
	}
	return &PublishResponse{Success: true}, nil
}
