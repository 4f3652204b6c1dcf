package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, users repository.UserRepository, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		users:    users,
		logger:   logger.Named("cart-service"),
	}
}

func (s *CartService) Add(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	if productID == "" || quantity == 0 {
		return nil, errs.Validation("Product ID and quantity are required")
	}
	if quantity < 1 {
		return nil, errs.Validation("Quantity must be at least 1")
	}
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	pid, err := parseID(productID, "Product not found")
	if err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, pid); err != nil {
		return nil, storeErr(err, "Product not found", "failed to load product")
	}

	if err := s.carts.AddItem(ctx, uid, pid, quantity); err != nil {
		return nil, errs.Internal("failed to add to cart", err)
	}
	return s.get(ctx, uid)
}

// Get returns the caller's cart. A user without a cart gets an empty one.
func (s *CartService) Get(ctx context.Context, userID string) (*models.CartView, error) {
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	return s.get(ctx, uid)
}

func (s *CartService) get(ctx context.Context, uid primitive.ObjectID) (*models.CartView, error) {
	cart, err := s.carts.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.CartView{User: uid, Items: []models.CartItemView{}}, nil
	}
	if err != nil {
		return nil, errs.Internal("failed to load cart", err)
	}
	return s.populate(ctx, cart)
}

// populate resolves line item products. Lines whose product no longer
// exists are left out.
func (s *CartService) populate(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	ids := make([]primitive.ObjectID, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.Product
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errs.Internal("failed to load cart products", err)
	}

	byID := make(map[primitive.ObjectID]*models.Product, len(products))
	owners := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		owners = append(owners, p.CreatedBy)
	}
	summary, err := summaries(ctx, s.users, owners)
	if err != nil {
		return nil, err
	}

	view := &models.CartView{ID: cart.ID, User: cart.User, Items: make([]models.CartItemView, 0, len(cart.Items))}
	for _, item := range cart.Items {
		p, ok := byID[item.Product]
		if !ok {
			s.logger.Warn("Cart references a missing product",
				zap.String("cart_id", cart.ID.Hex()),
				zap.String("product_id", item.Product.Hex()))
			continue
		}
		view.Items = append(view.Items, models.CartItemView{
			Product:  models.NewProductView(p, summary[p.CreatedBy]),
			Quantity: item.Quantity,
		})
	}
	return view, nil
}

// UpdateItem sets the quantity of an existing line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	if productID == "" || quantity == 0 {
		return nil, errs.Validation("Product ID and quantity are required")
	}
	if quantity < 1 {
		return nil, errs.Validation("Quantity must be at least 1")
	}
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	pid, err := parseID(productID, "Product not in cart")
	if err != nil {
		return nil, err
	}

	err = s.carts.SetItemQuantity(ctx, uid, pid, quantity)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, errs.NotFound("Cart not found")
	case errors.Is(err, repository.ErrNotInCart):
		return nil, errs.NotFound("Product not in cart")
	case err != nil:
		return nil, errs.Internal("failed to update cart", err)
	}
	return s.get(ctx, uid)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*models.CartView, error) {
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	// A malformed id cannot be in the cart; removing it is a no-op.
	pid, _ := primitive.ObjectIDFromHex(productID)

	if err := s.carts.RemoveItem(ctx, uid, pid); err != nil {
		return nil, storeErr(err, "Cart not found", "failed to update cart")
	}
	return s.get(ctx, uid)
}

func (s *CartService) Clear(ctx context.Context, userID string) (*models.CartView, error) {
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, uid); err != nil {
		return nil, storeErr(err, "Cart not found", "failed to clear cart")
	}
	return s.get(ctx, uid)
}
