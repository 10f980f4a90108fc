package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expresskart/marketplace/pkg/api"
	"github.com/expresskart/marketplace/pkg/config"
	"github.com/expresskart/marketplace/pkg/discovery"
	"github.com/expresskart/marketplace/pkg/order"
	"github.com/expresskart/marketplace/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/order-config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting order service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// Order store (MongoDB)
	store, err := repository.NewOrderStore(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store.Close(ctx)
	}()

	// Catalog (MySQL)
	catalog, err := repository.NewCatalogRepository(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	// Redis: cache, order numbers, status events
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	ctx := context.Background()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}
	if err := store.Ping(ctx); err != nil {
		logger.Warn("MongoDB ping failed", zap.Error(err))
	}

	service := order.NewService(store, catalog, redisRepo, redisRepo, redisRepo, store, logger.Named("order-service"))
	server := api.NewServer(cfg, logger.Named("api"), service)

	// Connect to etcd for service discovery
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", zap.Error(err))
	}
	defer sd.Close()

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		logger.Fatal("Failed to register service", zap.Error(err))
	}

	logger.Info("Service registered in etcd",
		zap.String("name", cfg.Server.Name),
		zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	// Deregister service
	if err := sd.Deregister(ctx, instance); err != nil {
		logger.Error("Failed to deregister service", zap.Error(err))
	}

	logger.Info("Service stopped")
}
