package infrastructure

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/krobus00/price-relay/internal/config"
	"github.com/krobus00/price-relay/internal/constant"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCHealthServer exposes grpc.health.v1 with one named service that
// mirrors the upstream feed state.
type GRPCHealthServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	service  string
}

func NewGRPCHealthServer(port string, service string) (*GRPCHealthServer, error) {
	addr := strings.TrimSpace(port)
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen grpc %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if config.Env != nil && config.Env.Env == constant.DevelopmentEnvironment {
		reflection.Register(grpcServer)
	}

	healthServer.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)

	return &GRPCHealthServer{
		server:   grpcServer,
		health:   healthServer,
		listener: lis,
		service:  service,
	}, nil
}

func (s *GRPCHealthServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *GRPCHealthServer) Start() error {
	logrus.WithField("addr", s.Addr()).Info("grpc health server starting")
	return s.server.Serve(s.listener)
}

func (s *GRPCHealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(s.service, status)
}

// Shutdown drains in-flight calls and falls back to a hard stop when ctx
// expires first.
func (s *GRPCHealthServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
