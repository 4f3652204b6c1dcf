package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/logger"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/notifier"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/service"
)

func main() {
	defaultPath := os.Getenv("STOREFRONT_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log, cfg.Server.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting storefront",
		zap.String("name", cfg.Server.Name),
		zap.String("driver", cfg.Server.Driver),
		zap.String("environment", cfg.Server.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open stores", zap.Error(err))
	}

	publisher := newPublisher(cfg, log)
	orderNotifier, err := notifier.New(publisher, log)
	if err != nil {
		log.Fatal("Failed to start notifier", zap.Error(err))
	}

	m := metrics.New("storefront")
	services := gateway.Services{
		Users:    service.NewUserService(st.repos, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry), cfg.Auth.BcryptCost, log),
		Products: service.NewProductService(st.repos.Products, st.repos.Users, log),
		Carts:    service.NewCartService(st.repos.Carts, st.repos.Products, st.repos.Users, log),
		Orders: service.NewOrderService(st.repos, payment.NewRazorpay(cfg.Razorpay), cfg.Razorpay.Currency, log,
			service.WithNotifier(orderNotifier),
			service.WithRecorder(m)),
	}

	healthServer := grpc.NewHealthServer(cfg, log, st.checks)
	go healthServer.Watch(ctx, 15*time.Second)

	gw := gateway.NewGateway(cfg, log, services,
		gateway.WithMetrics(m),
		gateway.WithHealth(healthServer),
		gateway.WithNotifier(orderNotifier))
	gw.SetupRoutes()

	// Start servers in goroutines
	serverErr := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- fmt.Errorf("gateway: %w", err)
		}
	}()
	go func() {
		if err := healthServer.Start(); err != nil {
			serverErr <- fmt.Errorf("grpc health: %w", err)
		}
	}()

	// Connect to etcd for service discovery
	sd, instance := register(ctx, cfg, log)

	log.Info("Storefront started successfully",
		zap.Int("http_port", cfg.Gateway.Port),
		zap.Int("grpc_port", cfg.GRPC.Port))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			log.Error("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("Gateway shutdown failed", zap.Error(err))
	}
	healthServer.Stop()
	cancel()

	orderNotifier.Stop()
	publisher.Close()
	st.Close(shutdownCtx, log)

	log.Info("Storefront stopped")
}

func newPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if cfg.NATS.URL == "" {
		log.Info("NATS not configured, order events are not published")
		return events.NoopPublisher{}
	}
	publisher, err := events.NewNatsPublisher(cfg.NATS.URL, cfg.NATS.Subject, cfg.Server.Name, log)
	if err != nil {
		log.Warn("Failed to connect to NATS, order events are not published", zap.Error(err))
		return events.NoopPublisher{}
	}
	return publisher
}

// register announces the gRPC health endpoint in etcd. Discovery is optional.
func register(ctx context.Context, cfg *config.Config, log *zap.Logger) (*discovery.ServiceDiscovery, *discovery.ServiceInstance) {
	if len(cfg.Etcd.Endpoints) == 0 {
		return nil, nil
	}
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, log)
	if err != nil {
		log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		return nil, nil
	}

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.GRPC.Port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		log.Warn("Failed to register service", zap.Error(err))
		sd.Close()
		return nil, nil
	}

	log.Info("Service registered in etcd",
		zap.String("name", instance.Name),
		zap.String("address", instance.Address()))
	return sd, instance
}
