package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/storefront/pkg/config"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// HealthServer serves grpc.health.v1.Health for the API. The overall ("")
// status and the named service status follow the registered checks.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	service string
	checks  map[string]Check
	logger  *zap.Logger
	config  *config.Config

	mu     sync.Mutex
	failed map[string]error
}

func NewHealthServer(cfg *config.Config, logger *zap.Logger, checks map[string]Check) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &HealthServer{
		server:  srv,
		health:  hs,
		service: cfg.Server.Name,
		checks:  checks,
		logger:  logger,
		config:  cfg,
		failed:  make(map[string]error),
	}
}

func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.RunChecks(context.Background())
	s.logger.Info("gRPC health service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// RunChecks runs every check once and publishes the resulting status.
func (s *HealthServer) RunChecks(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check(checkCtx)
		cancel()

		prev, wasFailing := s.failed[name]
		switch {
		case err != nil:
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if !wasFailing {
				s.logger.Warn("Health check failing", zap.String("check", name), zap.Error(err))
			}
			s.failed[name] = err
		case wasFailing:
			s.logger.Info("Health check recovered", zap.String("check", name), zap.NamedError("previous", prev))
			delete(s.failed, name)
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}

// Watch re-runs the checks every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunChecks(ctx)
		}
	}
}

// Failing returns the checks that failed on the last run.
func (s *HealthServer) Failing() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.failed))
	for name, err := range s.failed {
		out[name] = err.Error()
	}
	return out
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
