package grpchost

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/wppweb/internal/host"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server serves a host.Host on a Unix domain socket. It lets a process that owns
// the automation host expose it to wppd, and backs the transport tests.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer binds socketPath and registers h on a new gRPC server.
func NewServer(h host.Host, socketPath string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer()
	Register(srv, h)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Target is the dial target for this server.
func (s *Server) Target() string {
	return "unix://" + s.socketPath
}

// Start serves until Stop. It blocks.
func (s *Server) Start() error {
	s.logger.Info("automation host server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop shuts down and removes the socket file. Open event streams are closed.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("automation host server stopping")
	s.grpcServer.Stop()
	_ = os.Remove(s.socketPath)
}
