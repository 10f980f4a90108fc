package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	protoactor "github.com/asynkron/protoactor-go/actor"
	"github.com/expresskart/marketplace/pkg/config"
	"github.com/expresskart/marketplace/pkg/order"
	"github.com/expresskart/marketplace/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/notifier-config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting notifier service")

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisRepo.Ping(ctx); err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}

	// Actor system
	system := protoactor.NewActorSystem()
	pid, err := StartNotificationActor(system, logger)
	if err != nil {
		logger.Fatal("Failed to start notification actor", zap.Error(err))
	}

	// Feed status-change events from Redis into the actor
	sub := redisRepo.SubscribeStatusChanges(ctx)
	defer sub.Close()

	go func() {
		for msg := range sub.Channel() {
			var change order.StatusChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logger.Warn("Dropping malformed status event", zap.Error(err))
				continue
			}
			system.Root.Send(pid, &change)
		}
	}()

	logger.Info("Notifier listening", zap.String("channel", repository.StatusChannel))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	logger.Info("Notifier service stopped")
}
