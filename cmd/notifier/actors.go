package main

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/expresskart/marketplace/pkg/order"
	"go.uber.org/zap"
)

// NotificationActor turns status-change events into customer and vendor
// notices. Delivery is best-effort; a dropped notice is never an order
// failure.
type NotificationActor struct {
	logger *zap.Logger
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *order.StatusChange:
		a.logger.Info("Notifying customer",
			zap.String("order_number", msg.OrderNumber),
			zap.String("customer_id", msg.CustomerID),
			zap.String("status", string(msg.To)))

		if msg.To == "cancelled" {
			a.logger.Info("Notifying vendor of cancellation",
				zap.String("order_number", msg.OrderNumber),
				zap.String("vendor_id", msg.VendorID))
		}

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")

	case *actor.Stopped:
		a.logger.Info("Notification actor stopped")
	}
}

// StartNotificationActor spawns the notification actor and returns its pid.
func StartNotificationActor(system *actor.ActorSystem, logger *zap.Logger) (*actor.PID, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor")}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}
	return pid, nil
}
