// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/models"
)

const publishAttempts = 3

type Publisher interface {
	PublishOrderCreated(ctx context.Context, event *OrderCreatedEvent) error
	Close()
}

type OrderCreatedEvent struct {
	OrderID        string  `json:"order_id"`
	UserID         string  `json:"user_id"`
	TotalAmount    float64 `json:"total_amount"`
	ItemCount      int     `json:"item_count"`
	PaymentID      string  `json:"payment_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	CreatedAt      string  `json:"created_at"`
}

func NewOrderCreatedEvent(order *models.Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		OrderID:        order.ID.Hex(),
		UserID:         order.User.Hex(),
		TotalAmount:    order.TotalAmount,
		ItemCount:      len(order.Items),
		PaymentID:      order.PaymentID,
		GatewayOrderID: order.GatewayOrderID,
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
	}
}

type NatsPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNatsPublisher(url, subject, name string, logger *zap.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", zap.String("url", url))
	return &NatsPublisher{nc: nc, subject: subject, logger: logger}, nil
}

func (p *NatsPublisher) PublishOrderCreated(ctx context.Context, event *OrderCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for i := 0; i < publishAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.nc.Publish(p.subject, data); err != nil {
			p.logger.Warn("Failed to publish to NATS", zap.Int("attempt", i+1), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := p.nc.FlushTimeout(2 * time.Second); err != nil {
			p.logger.Warn("Failed to flush NATS connection", zap.Error(err))
			continue
		}

		p.logger.Debug("Published event",
			zap.String("subject", p.subject),
			zap.String("order_id", event.OrderID))
		return nil
	}

	return fmt.Errorf("failed to publish %s after %d attempts", p.subject, publishAttempts)
}

func (p *NatsPublisher) Close() {
	if p.nc != nil && !p.nc.IsClosed() {
		p.nc.Close()
		p.logger.Info("NATS connection closed")
	}
}

// NoopPublisher drops events. Used when no NATS url is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, *OrderCreatedEvent) error { return nil }
func (NoopPublisher) Close()                                                       {}
