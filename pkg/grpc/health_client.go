package grpc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/storefront/pkg/discovery"
)

// HealthClient probes a storefront instance over gRPC. The target comes from
// service discovery when available, otherwise from the fallback address.
type HealthClient struct {
	discovery *discovery.ServiceDiscovery
	logger    *zap.Logger
	fallback  string
}

func NewHealthClient(disc *discovery.ServiceDiscovery, fallback string, logger *zap.Logger) *HealthClient {
	return &HealthClient{discovery: disc, fallback: fallback, logger: logger}
}

// Target resolves the address of serviceName.
func (c *HealthClient) Target(ctx context.Context, serviceName string) string {
	if c.discovery == nil {
		return c.fallback
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	instances, err := c.discovery.Discover(ctx, serviceName)
	if err != nil || len(instances) == 0 {
		c.logger.Info("Using default address", zap.String("service", serviceName), zap.String("address", c.fallback))
		return c.fallback
	}

	target := instances[0].Address()
	c.logger.Info("Discovered service", zap.String("service", serviceName), zap.String("address", target))
	return target
}

// Check returns the serving status serviceName reports about itself.
func (c *HealthClient) Check(ctx context.Context, serviceName string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	target := c.Target(ctx, serviceName)

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check against %s failed: %w", target, err)
	}
	return resp.GetStatus(), nil
}
