package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.OrderCreatedEvent
	fail   bool
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, e *events.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func TestNotifier_PublishesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	n, err := New(pub, zap.NewNop())
	require.NoError(t, err)
	defer n.Stop()

	var ids []string
	for i := 0; i < 5; i++ {
		order := &models.Order{ID: primitive.NewObjectID(), User: primitive.NewObjectID()}
		ids = append(ids, order.ID.Hex())
		n.OrderPlaced(order)
	}

	stats, err := n.Stats(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Published)
	assert.Zero(t, stats.Failed)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 5)
	for i, e := range pub.events {
		assert.Equal(t, ids[i], e.OrderID)
	}
}

func TestNotifier_CountsFailures(t *testing.T) {
	n, err := New(&recordingPublisher{fail: true}, zap.NewNop())
	require.NoError(t, err)
	defer n.Stop()

	n.OrderPlaced(&models.Order{ID: primitive.NewObjectID()})

	stats, err := n.Stats(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
}
