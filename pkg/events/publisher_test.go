package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/models"
)

func TestNewOrderCreatedEvent(t *testing.T) {
	order := &models.Order{
		ID:             primitive.NewObjectID(),
		User:           primitive.NewObjectID(),
		TotalAmount:    59.97,
		Items:          []models.OrderItem{{Quantity: 3, Price: 19.99}},
		PaymentID:      "pay_1",
		GatewayOrderID: "order_1",
		CreatedAt:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	event := NewOrderCreatedEvent(order)
	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, order.ID.Hex(), decoded["order_id"])
	assert.Equal(t, 59.97, decoded["total_amount"])
	assert.Equal(t, float64(1), decoded["item_count"])
	assert.Equal(t, "2024-03-01T10:00:00Z", decoded["created_at"])
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishOrderCreated(context.Background(), &OrderCreatedEvent{}))
	p.Close()
}
