// Package repository holds the storage contracts used by the services and
// their MongoDB, Redis and MySQL implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNotInCart    = errors.New("product not in cart")
	// ErrConflict is returned when a conditional update lost a race.
	ErrConflict = errors.New("conflicting update")
)

// ProductSortFields are the fields a product listing may be ordered by.
var ProductSortFields = map[string]bool{
	"createdAt":          true,
	"updatedAt":          true,
	"price":              true,
	"name":               true,
	"stock":              true,
	"discountPercentage": true,
}

type ProductFilter struct {
	Search     string
	Category   string
	Brand      string
	MinPrice   *float64
	MaxPrice   *float64
	IsActive   *bool
	IsFeatured *bool
	SortBy     string
	// SortOrder is 1 for ascending, -1 for descending.
	SortOrder int
	Skip      int64
	Limit     int64
}

type UserFilter struct {
	Search   string
	Role     string
	IsActive *bool
	Skip     int64
	Limit    int64
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Product, error)
	// ExistsBySKU reports whether a product other than exclude uses sku.
	ExistsBySKU(ctx context.Context, sku string, exclude primitive.ObjectID) (bool, error)
	List(ctx context.Context, filter ProductFilter) ([]*models.Product, int64, error)
	// Update writes the catalog fields of product. Ratings and reviews are
	// left untouched.
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	UpsertRating(ctx context.Context, productID, userID primitive.ObjectID, value int) error
	UpsertReview(ctx context.Context, productID, userID primitive.ObjectID, rating int, comment string, at time.Time) error
	DeleteReview(ctx context.Context, productID, reviewID primitive.ObjectID) error
}

type CartRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	// AddItem creates the cart when missing and increments the quantity of
	// an existing line.
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error
	SetItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Order, error)
	// UpdateStatus moves an order from one status to another. It returns
	// ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to string, at time.Time) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]*models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionStore tracks revoked bearer tokens by their jti.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type UserCache interface {
	CacheUser(ctx context.Context, user *CachedUser) error
	GetUserCache(ctx context.Context, userID string) (*CachedUser, error)
	InvalidateUser(ctx context.Context, userID string) error
}

type PaymentLedger interface {
	Record(ctx context.Context, record *models.PaymentRecord) error
}

type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error)
}

// Repositories bundles the stores a running API needs.
type Repositories struct {
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
	Users    UserRepository
	Sessions SessionStore
	Ledger   PaymentLedger
	Audit    AuditLogger
	// Cache is optional.
	Cache UserCache
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Service   string             `bson:"service" json:"service"`
	Action    string             `bson:"action" json:"action"`
	EntityID  string             `bson:"entity_id" json:"entityId"`
	ActorID   string             `bson:"actor_id" json:"actorId"`
	Data      map[string]any     `bson:"data" json:"data,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// CachedUser is the slice of a user the auth middleware needs.
type CachedUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

func NewCachedUser(u *models.User) *CachedUser {
	return &CachedUser{
		ID:       u.ID.Hex(),
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// NoopLedger discards payment records. Used when MySQL is not configured.
type NoopLedger struct{}

func (NoopLedger) Record(context.Context, *models.PaymentRecord) error { return nil }
