// Package notifier moves order side effects off the request path. An order
// actor receives placed orders one at a time and hands them to the event
// publisher.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
)

const publishTimeout = 10 * time.Second

// Messages
type OrderPlaced struct {
	Order *models.Order
}

type GetStats struct{}

type Stats struct {
	Published int
	Failed    int
}

// OrderActor forwards placed orders to the publisher.
type OrderActor struct {
	publisher events.Publisher
	logger    *zap.Logger
	stats     Stats
}

func (a *OrderActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		event := events.NewOrderCreatedEvent(msg.Order)

		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := a.publisher.PublishOrderCreated(pubCtx, event)
		cancel()

		if err != nil {
			a.stats.Failed++
			a.logger.Error("Failed to publish order event",
				zap.String("order_id", event.OrderID),
				zap.Error(err))
			return
		}
		a.stats.Published++
		a.logger.Info("Order event published",
			zap.String("order_id", event.OrderID),
			zap.String("user_id", event.UserID),
			zap.Int("item_count", event.ItemCount))

	case *GetStats:
		ctx.Respond(&Stats{Published: a.stats.Published, Failed: a.stats.Failed})

	case *actor.Started:
		a.logger.Info("Order actor started")

	case *actor.Stopping:
		a.logger.Info("Order actor stopping")

	case *actor.Stopped:
		a.logger.Info("Order actor stopped")
	}
}

type Notifier struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func New(publisher events.Publisher, logger *zap.Logger) (*Notifier, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &OrderActor{publisher: publisher, logger: logger.Named("order-actor")}
	})
	pid, err := system.Root.SpawnNamed(props, "order-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn order actor: %w", err)
	}

	return &Notifier{system: system, pid: pid, logger: logger}, nil
}

// OrderPlaced enqueues order for publishing and returns immediately.
func (n *Notifier) OrderPlaced(order *models.Order) {
	n.system.Root.Send(n.pid, &OrderPlaced{Order: order})
}

// Stats asks the actor for its counters. Because the actor handles one
// message at a time, the answer reflects every order enqueued before it.
func (n *Notifier) Stats(timeout time.Duration) (*Stats, error) {
	result, err := n.system.Root.RequestFuture(n.pid, &GetStats{}, timeout).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier stats: %w", err)
	}
	stats, ok := result.(*Stats)
	if !ok {
		return nil, fmt.Errorf("unexpected notifier response %T", result)
	}
	return stats, nil
}

// Stop drains the mailbox and stops the actor.
func (n *Notifier) Stop() {
	if err := n.system.Root.PoisonFuture(n.pid).Wait(); err != nil {
		n.logger.Warn("Order actor did not stop cleanly", zap.Error(err))
	}
}
