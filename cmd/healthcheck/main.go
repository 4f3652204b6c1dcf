// Command healthcheck asks a running storefront for its gRPC health status
// and exits non-zero unless it is SERVING.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/logger"
)

func main() {
	defaultPath := os.Getenv("STOREFRONT_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	addr := flag.String("addr", "", "gRPC address to probe; defaults to localhost on grpc.port")
	timeout := flag.Duration("timeout", 5*time.Second, "probe timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.Log, cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	fallback := *addr
	if fallback == "" {
		fallback = fmt.Sprintf("localhost:%d", cfg.GRPC.Port)
	}

	var sd *discovery.ServiceDiscovery
	if *addr == "" && len(cfg.Etcd.Endpoints) > 0 {
		if sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, log); err != nil {
			log.Warn("Failed to connect to etcd", zap.Error(err))
			sd = nil
		} else {
			defer sd.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, err := grpc.NewHealthClient(sd, fallback, log).Check(ctx, cfg.Server.Name)
	if err != nil {
		log.Error("Health check failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Health check", zap.String("service", cfg.Server.Name), zap.String("status", status.String()))
	if status != healthpb.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}
