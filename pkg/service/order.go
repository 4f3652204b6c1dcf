package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
)

type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (*payment.GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// OrderNotifier receives orders after they are stored.
type OrderNotifier interface {
	OrderPlaced(order *models.Order)
}

type CheckoutRecorder interface {
	OrderPlaced(total float64)
	PaymentRejected()
}

type VerifyPaymentInput struct {
	GatewayOrderID  string                 `json:"razorpay_order_id"`
	PaymentID       string                 `json:"razorpay_payment_id"`
	Signature       string                 `json:"razorpay_signature"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

type OrderService struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
	ledger   repository.PaymentLedger
	gateway  PaymentGateway
	notifier OrderNotifier
	recorder CheckoutRecorder
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

type OrderOption func(*OrderService)

func WithNotifier(n OrderNotifier) OrderOption {
	return func(s *OrderService) { s.notifier = n }
}

func WithRecorder(r CheckoutRecorder) OrderOption {
	return func(s *OrderService) { s.recorder = r }
}

func NewOrderService(repos *repository.Repositories, gateway PaymentGateway, currency string, logger *zap.Logger, opts ...OrderOption) *OrderService {
	s := &OrderService{
		orders:   repos.Orders,
		carts:    repos.Carts,
		products: repos.Products,
		users:    repos.Users,
		ledger:   repos.Ledger,
		gateway:  gateway,
		currency: currency,
		logger:   logger.Named("order-service"),
		now:      time.Now,
	}
	if s.ledger == nil {
		s.ledger = repository.NoopLedger{}
	}
	if s.currency == "" {
		s.currency = "INR"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderService) CreatePaymentOrder(ctx context.Context, amount float64, currency string) (*payment.GatewayOrder, error) {
	if amount <= 0 {
		return nil, errs.Validation("Amount must be greater than 0")
	}
	if currency == "" {
		currency = s.currency
	}
	currency = strings.ToUpper(currency)

	order, err := s.gateway.CreateOrder(ctx, amount, currency)
	if err != nil {
		return nil, errs.Internal("Failed to create payment order", err)
	}

	s.logger.Info("Payment order created",
		zap.String("gateway_order_id", order.OrderID),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency))
	return order, nil
}

// VerifyPayment checks the gateway signature and turns the caller's cart
// into a paid order priced at current product prices.
func (s *OrderService) VerifyPayment(ctx context.Context, in VerifyPaymentInput, callerID string) (*models.Order, error) {
	if !s.gateway.VerifySignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		if s.recorder != nil {
			s.recorder.PaymentRejected()
		}
		s.logger.Warn("Payment signature rejected",
			zap.String("gateway_order_id", in.GatewayOrderID),
			zap.String("user_id", callerID))
		return nil, errs.Validation("Invalid payment signature")
	}
	uid, err := parseID(callerID, "User not found")
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
		return nil, errs.Validation("Cart is empty")
	}
	if err != nil {
		return nil, errs.Internal("failed to load cart", err)
	}

	items, total, err := s.priceCart(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errs.Validation("Cart is empty")
	}

	now := s.now()
	order := &models.Order{
		User:            uid,
		Items:           items,
		TotalAmount:     total,
		PaymentStatus:   models.PaymentCompleted,
		PaymentID:       in.PaymentID,
		GatewayOrderID:  in.GatewayOrderID,
		OrderStatus:     models.OrderPending,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, errs.Internal("failed to create order", err)
	}

	// The order is the source of truth from here on. A failed clear leaves
	// a stale cart that the next clear will empty.
	if err := s.carts.Clear(ctx, uid); err != nil {
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	}

	s.afterCheckout(ctx, order)
	return order, nil
}

// priceCart snapshots current prices for every line whose product exists.
func (s *OrderService) priceCart(ctx context.Context, cart *models.Cart) ([]models.OrderItem, float64, error) {
	ids := make([]primitive.ObjectID, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.Product
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, errs.Internal("failed to load cart products", err)
	}
	prices := make(map[primitive.ObjectID]float64, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		price, ok := prices[item.Product]
		if !ok {
			s.logger.Warn("Skipping cart line for missing product", zap.String("product_id", item.Product.Hex()))
			continue
		}
		items = append(items, models.OrderItem{Product: item.Product, Quantity: item.Quantity, Price: price})
	}
	return items, models.OrderTotal(items), nil
}

func (s *OrderService) afterCheckout(ctx context.Context, order *models.Order) {
	record := &models.PaymentRecord{
		GatewayOrderID: order.GatewayOrderID,
		PaymentID:      order.PaymentID,
		OrderID:        order.ID.Hex(),
		UserID:         order.User.Hex(),
		Amount:         order.TotalAmount,
		Currency:       s.currency,
		Status:         order.PaymentStatus,
	}
	if err := s.ledger.Record(ctx, record); err != nil {
		s.logger.Error("Failed to record payment",
			zap.String("order_id", record.OrderID),
			zap.String("payment_id", record.PaymentID),
			zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.OrderPlaced(order)
	}
	if s.recorder != nil {
		s.recorder.OrderPlaced(order.TotalAmount)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", order.User.Hex()),
		zap.Float64("total", order.TotalAmount),
		zap.Int("items", len(order.Items)))
}

func (s *OrderService) ListMine(ctx context.Context, callerID string) ([]*models.OrderView, error) {
	uid, err := parseID(callerID, "User not found")
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByUser(ctx, uid)
	if err != nil {
		return nil, errs.Internal("failed to list orders", err)
	}
	return s.views(ctx, orders, false)
}

func (s *OrderService) GetOne(ctx context.Context, orderID, callerID string) (*models.OrderView, error) {
	oid, err := parseID(orderID, "Order not found")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Order not found", "failed to load order")
	}
	if order.User.Hex() != callerID {
		return nil, errs.Forbidden("Not authorized to view this order")
	}

	views, err := s.views(ctx, []*models.Order{order}, true)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// UpdateStatus moves an order along pending, processing, shipped and
// delivered, or cancels it. Only admins may change status. Setting the
// current status again succeeds without a write.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string, caller *models.User) (*models.Order, error) {
	if caller == nil || !caller.IsAdmin() {
		return nil, errs.Forbidden("Not authorized to update order status")
	}
	if !models.ValidOrderStatus(status) {
		return nil, errs.Validation("Invalid order status")
	}
	oid, err := parseID(orderID, "Order not found")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Order not found", "failed to load order")
	}
	if order.OrderStatus == status {
		return order, nil
	}
	if !models.CanTransition(order.OrderStatus, status) {
		return nil, errs.Validation(fmt.Sprintf("Cannot change order status from %s to %s", order.OrderStatus, status))
	}

	now := s.now()
	err = s.orders.UpdateStatus(ctx, oid, order.OrderStatus, status, now)
	if errors.Is(err, repository.ErrConflict) {
		current, getErr := s.orders.GetByID(ctx, oid)
		if getErr != nil {
			return nil, storeErr(getErr, "Order not found", "failed to load order")
		}
		return nil, errs.Validation(fmt.Sprintf("Cannot change order status from %s to %s", current.OrderStatus, status))
	}
	if err != nil {
		return nil, storeErr(err, "Order not found", "failed to update order")
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", order.OrderStatus),
		zap.String("to", status),
		zap.String("by", caller.ID.Hex()))

	order.OrderStatus = status
	order.UpdatedAt = now
	return order, nil
}

func (s *OrderService) views(ctx context.Context, orders []*models.Order, withOwner bool) ([]*models.OrderView, error) {
	var productIDs, userIDs []primitive.ObjectID
	for _, o := range orders {
		for _, item := range o.Items {
			productIDs = append(productIDs, item.Product)
		}
		if withOwner {
			userIDs = append(userIDs, o.User)
		}
	}

	products, err := s.products.GetByIDs(ctx, uniqueIDs(productIDs))
	if err != nil {
		return nil, errs.Internal("failed to load order products", err)
	}
	byID := make(map[primitive.ObjectID]*models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
		userIDs = append(userIDs, p.CreatedBy)
	}
	users, err := summaries(ctx, s.users, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*models.OrderView, len(orders))
	for i, o := range orders {
		view := &models.OrderView{Order: o, Items: make([]models.OrderItemView, len(o.Items)), User: o.User}
		for j, item := range o.Items {
			var pv *models.ProductView
			if p, ok := byID[item.Product]; ok {
				pv = models.NewProductView(p, users[p.CreatedBy])
			}
			view.Items[j] = models.OrderItemView{Product: pv, Quantity: item.Quantity, Price: item.Price}
		}
		if withOwner {
			if owner, ok := users[o.User]; ok {
				view.User = owner
			}
		}
		out[i] = view
	}
	return out, nil
}
