package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]*models.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[primitive.ObjectID]*models.Product)}
}

func cloneProduct(p *models.Product) *models.Product {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	c.Tags = append([]string(nil), p.Tags...)
	c.Ratings = append([]models.Rating{}, p.Ratings...)
	c.Reviews = append([]models.Review{}, p.Reviews...)
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		c.OriginalPrice = &v
	}
	if p.Specifications != nil {
		c.Specifications = make(map[string]string, len(p.Specifications))
		for k, v := range p.Specifications {
			c.Specifications[k] = v
		}
	}
	return &c
}

func (r *ProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.SKU == product.SKU {
			return repository.ErrDuplicateKey
		}
	}
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	r.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) ExistsBySKU(_ context.Context, sku string, exclude primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, p := range r.products {
		if p.SKU == sku && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func containsFold(field, sub string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(sub))
}

func matchProduct(p *models.Product, f repository.ProductFilter) bool {
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	if f.IsFeatured != nil && p.IsFeatured != *f.IsFeatured {
		return false
	}
	if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) && !containsFold(p.Brand, f.Search) {
		return false
	}
	if f.Category != "" && !containsFold(p.Category, f.Category) {
		return false
	}
	if f.Brand != "" && !containsFold(p.Brand, f.Brand) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

func productLess(a, b *models.Product, field string) (less, equal bool) {
	switch field {
	case "price":
		return a.Price < b.Price, a.Price == b.Price
	case "name":
		return a.Name < b.Name, a.Name == b.Name
	case "stock":
		return a.Stock < b.Stock, a.Stock == b.Stock
	case "discountPercentage":
		return a.DiscountPercentage < b.DiscountPercentage, a.DiscountPercentage == b.DiscountPercentage
	case "updatedAt":
		return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (r *ProductRepository) List(_ context.Context, f repository.ProductFilter) ([]*models.Product, int64, error) {
	r.mu.RLock()
	var matched []*models.Product
	for _, p := range r.products {
		if matchProduct(p, f) {
			matched = append(matched, cloneProduct(p))
		}
	}
	r.mu.RUnlock()

	desc := f.SortOrder != 1
	sort.Slice(matched, func(i, j int) bool {
		less, equal := productLess(matched[i], matched[j], f.SortBy)
		if equal {
			less = matched[i].ID.Hex() < matched[j].ID.Hex()
		}
		if desc {
			return !less
		}
		return less
	})

	return paginate(matched, f.Skip, f.Limit), int64(len(matched)), nil
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func (r *ProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[product.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, p := range r.products {
		if id != product.ID && p.SKU == product.SKU {
			return repository.ErrDuplicateKey
		}
	}

	updated := cloneProduct(product)
	updated.Ratings = stored.Ratings
	updated.Reviews = stored.Reviews
	updated.CreatedBy = stored.CreatedBy
	updated.CreatedAt = stored.CreatedAt
	r.products[product.ID] = updated
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) UpsertRating(_ context.Context, productID, userID primitive.ObjectID, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range p.Ratings {
		if p.Ratings[i].User == userID {
			p.Ratings[i].Rating = value
			return nil
		}
	}
	p.Ratings = append(p.Ratings, models.Rating{User: userID, Rating: value})
	return nil
}

func (r *ProductRepository) UpsertReview(_ context.Context, productID, userID primitive.ObjectID, rating int, comment string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range p.Reviews {
		if p.Reviews[i].User == userID {
			p.Reviews[i].Rating = rating
			p.Reviews[i].Comment = comment
			p.Reviews[i].CreatedAt = at
			return nil
		}
	}
	p.Reviews = append(p.Reviews, models.Review{
		ID:        primitive.NewObjectID(),
		User:      userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: at,
	})
	return nil
}

func (r *ProductRepository) DeleteReview(_ context.Context, productID, reviewID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			p.Reviews = append(p.Reviews[:i], p.Reviews[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
