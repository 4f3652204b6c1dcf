package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type CartRepository struct {
	mu    sync.RWMutex
	carts map[primitive.ObjectID]*models.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[primitive.ObjectID]*models.Cart)}
}

func (r *CartRepository) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *cart
	c.Items = append([]models.CartItem{}, cart.Items...)
	return &c, nil
}

func (r *CartRepository) AddItem(_ context.Context, userID, productID primitive.ObjectID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cart, ok := r.carts[userID]
	if !ok {
		cart = &models.Cart{
			ID:        primitive.NewObjectID(),
			User:      userID,
			Items:     []models.CartItem{},
			CreatedAt: now,
		}
		r.carts[userID] = cart
	}
	cart.UpdatedAt = now

	for i := range cart.Items {
		if cart.Items[i].Product == productID {
			cart.Items[i].Quantity += quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, models.CartItem{Product: productID, Quantity: quantity})
	return nil
}

func (r *CartRepository) SetItemQuantity(_ context.Context, userID, productID primitive.ObjectID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].Product == productID {
			cart.Items[i].Quantity = quantity
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return repository.ErrNotInCart
}

func (r *CartRepository) RemoveItem(_ context.Context, userID, productID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return repository.ErrNotFound
	}
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.Product != productID {
			items = append(items, item)
		}
	}
	cart.Items = items
	cart.UpdatedAt = time.Now()
	return nil
}

func (r *CartRepository) Clear(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return repository.ErrNotFound
	}
	cart.Items = []models.CartItem{}
	cart.UpdatedAt = time.Now()
	return nil
}
