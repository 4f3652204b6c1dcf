package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/storefront/pkg/config"
)

func TestHealthServer_RoundTrip(t *testing.T) {
	healthy := true
	checks := map[string]Check{
		"store": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("store unreachable")
		},
	}

	cfg := &config.Config{Server: config.ServerConfig{Name: "storefront"}}
	srv := NewHealthServer(cfg, zap.NewNop(), checks)

	srv.RunChecks(context.Background())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	client := NewHealthClient(nil, lis.Addr().String(), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := client.Check(ctx, "storefront")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)

	healthy = false
	srv.RunChecks(ctx)
	assert.Equal(t, map[string]string{"store": "store unreachable"}, srv.Failing())

	status, err = client.Check(ctx, "storefront")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)
}
