package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 1000
	skuAttempts          = 3
)

var imageURLPattern = regexp.MustCompile(`^https?://.+`)

type ProductInput struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Price              *float64          `json:"price"`
	OriginalPrice      *float64          `json:"originalPrice"`
	DiscountPercentage *float64          `json:"discountPercentage"`
	Category           string            `json:"category"`
	Brand              string            `json:"brand"`
	Images             []string          `json:"images"`
	Stock              *int              `json:"stock"`
	SKU                string            `json:"sku"`
	Tags               []string          `json:"tags"`
	Specifications     map[string]string `json:"specifications"`
	IsActive           *bool             `json:"isActive"`
	IsFeatured         *bool             `json:"isFeatured"`
}

// ProductPatch holds the fields of an update. Nil fields are left as stored.
type ProductPatch struct {
	Name               *string           `json:"name"`
	Description        *string           `json:"description"`
	Price              *float64          `json:"price"`
	OriginalPrice      *float64          `json:"originalPrice"`
	DiscountPercentage *float64          `json:"discountPercentage"`
	Category           *string           `json:"category"`
	Brand              *string           `json:"brand"`
	Images             []string          `json:"images"`
	Stock              *int              `json:"stock"`
	SKU                *string           `json:"sku"`
	Tags               []string          `json:"tags"`
	Specifications     map[string]string `json:"specifications"`
	IsActive           *bool             `json:"isActive"`
	IsFeatured         *bool             `json:"isFeatured"`
}

func (p *ProductPatch) touchesCore() bool {
	return p.Name != nil || p.Description != nil || p.Price != nil || p.Category != nil || p.Images != nil
}

type ProductQuery struct {
	Search     string
	Category   string
	Brand      string
	MinPrice   *float64
	MaxPrice   *float64
	IsActive   *bool
	IsFeatured *bool
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

type ProductList struct {
	Products   []*models.ProductView `json:"products"`
	Pagination Pagination            `json:"pagination"`
}

type ProductService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	sku      *skuGenerator
	logger   *zap.Logger
	now      func() time.Time
}

func NewProductService(products repository.ProductRepository, users repository.UserRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		users:    users,
		sku:      newSKUGenerator(time.Now),
		logger:   logger.Named("product-service"),
		now:      time.Now,
	}
}

func validateProduct(name, description string, price *float64, category string, images []string) error {
	if name == "" || description == "" || price == nil || category == "" || images == nil {
		return errs.Validation("Name, description, price, category, and images are required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return errs.Validation("Name cannot exceed 100 characters")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return errs.Validation("Description cannot exceed 1000 characters")
	}
	if *price < 0 {
		return errs.Validation("Price cannot be negative")
	}
	if len(images) == 0 {
		return errs.Validation("At least one image is required")
	}
	for _, img := range images {
		if !imageURLPattern.MatchString(img) {
			return errs.Validation("Invalid image URL format")
		}
	}
	return nil
}

func validateProductExtras(originalPrice, discount *float64, stock *int) error {
	if originalPrice != nil && *originalPrice < 0 {
		return errs.Validation("Original price cannot be negative")
	}
	if discount != nil && (*discount < 0 || *discount > 100) {
		return errs.Validation("Discount percentage must be between 0 and 100")
	}
	if stock != nil && *stock < 0 {
		return errs.Validation("Stock cannot be negative")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput, ownerID string) (*models.ProductView, error) {
	if err := validateProduct(in.Name, in.Description, in.Price, in.Category, in.Images); err != nil {
		return nil, err
	}
	if err := validateProductExtras(in.OriginalPrice, in.DiscountPercentage, in.Stock); err != nil {
		return nil, err
	}
	owner, err := parseID(ownerID, "User not found")
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		Name:           in.Name,
		Description:    in.Description,
		Price:          *in.Price,
		OriginalPrice:  in.OriginalPrice,
		Category:       in.Category,
		Brand:          in.Brand,
		Images:         in.Images,
		SKU:            strings.TrimSpace(in.SKU),
		Tags:           in.Tags,
		Specifications: in.Specifications,
		IsActive:       true,
		Ratings:        []models.Rating{},
		Reviews:        []models.Review{},
		CreatedBy:      owner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.DiscountPercentage != nil {
		product.DiscountPercentage = *in.DiscountPercentage
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		product.IsFeatured = *in.IsFeatured
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}

	if product.SKU != "" {
		exists, err := s.products.ExistsBySKU(ctx, product.SKU, primitive.NilObjectID)
		if err != nil {
			return nil, errs.Internal("failed to check sku", err)
		}
		if exists {
			return nil, errs.Validation("SKU already exists")
		}
		if err := s.products.Create(ctx, product); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return nil, errs.Validation("SKU already exists")
			}
			return nil, errs.Internal("failed to create product", err)
		}
	} else if err := s.createWithGeneratedSKU(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.Hex()),
		zap.String("sku", product.SKU),
		zap.String("owner_id", ownerID))

	return s.view(ctx, product)
}

// createWithGeneratedSKU retries when a generated code collides with a SKU
// another process or a client already stored.
func (s *ProductService) createWithGeneratedSKU(ctx context.Context, product *models.Product) error {
	var err error
	for i := 0; i < skuAttempts; i++ {
		product.SKU = s.sku.Next()
		err = s.products.Create(ctx, product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return errs.Internal("failed to create product", err)
		}
	}
	return errs.Internal("failed to generate a unique sku", err)
}

func (s *ProductService) List(ctx context.Context, q ProductQuery) (*ProductList, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	filter := repository.ProductFilter{
		Search:     q.Search,
		Category:   q.Category,
		Brand:      q.Brand,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		IsActive:   q.IsActive,
		IsFeatured: q.IsFeatured,
		SortBy:     q.SortBy,
		SortOrder:  -1,
		Skip:       skipFor(page, limit),
		Limit:      int64(limit),
	}
	if filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}
	if !repository.ProductSortFields[filter.SortBy] {
		filter.SortBy = "createdAt"
	}
	if strings.EqualFold(q.SortOrder, "asc") {
		filter.SortOrder = 1
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, errs.Internal("failed to list products", err)
	}

	views, err := s.views(ctx, products)
	if err != nil {
		return nil, err
	}
	return &ProductList{Products: views, Pagination: newPagination(page, limit, total)}, nil
}

func (s *ProductService) load(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseID(id, "Product not found")
	if err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "Product not found", "failed to load product")
	}
	return product, nil
}

// GetByID returns the product whether or not it is active.
func (s *ProductService) GetByID(ctx context.Context, id string) (*models.ProductView, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, product)
}

func (s *ProductService) GetDetails(ctx context.Context, id string) (*models.ProductView, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, errs.NotFound("Product is not available")
	}

	view, err := s.view(ctx, product)
	if err != nil {
		return nil, err
	}
	discounted := product.DiscountedPrice()
	view.DiscountedPrice = &discounted
	return view, nil
}

func (s *ProductService) loadOwned(ctx context.Context, id, callerID, forbidden string) (*models.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.CreatedBy.Hex() != callerID {
		return nil, errs.Forbidden(forbidden)
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, patch ProductPatch, callerID string) (*models.ProductView, error) {
	product, err := s.loadOwned(ctx, id, callerID, "Not authorized to update this product")
	if err != nil {
		return nil, err
	}

	if patch.touchesCore() {
		name, description, category := product.Name, product.Description, product.Category
		price, images := product.Price, product.Images
		if patch.Name != nil {
			name = *patch.Name
		}
		if patch.Description != nil {
			description = *patch.Description
		}
		if patch.Category != nil {
			category = *patch.Category
		}
		if patch.Price != nil {
			price = *patch.Price
		}
		if patch.Images != nil {
			images = patch.Images
		}
		if err := validateProduct(name, description, &price, category, images); err != nil {
			return nil, err
		}
	}
	if err := validateProductExtras(patch.OriginalPrice, patch.DiscountPercentage, patch.Stock); err != nil {
		return nil, err
	}

	if patch.SKU != nil {
		sku := strings.TrimSpace(*patch.SKU)
		if sku == "" {
			return nil, errs.Validation("SKU cannot be empty")
		}
		patch.SKU = &sku
	}
	if patch.SKU != nil && *patch.SKU != product.SKU {
		exists, err := s.products.ExistsBySKU(ctx, *patch.SKU, product.ID)
		if err != nil {
			return nil, errs.Internal("failed to check sku", err)
		}
		if exists {
			return nil, errs.Validation("SKU already exists")
		}
	}

	applyPatch(product, patch)
	product.UpdatedAt = s.now()

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, errs.Validation("SKU already exists")
		}
		return nil, storeErr(err, "Product not found", "failed to update product")
	}

	// Re-read so ratings written concurrently are reflected.
	return s.GetByID(ctx, id)
}

func applyPatch(p *models.Product, patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.OriginalPrice != nil {
		v := *patch.OriginalPrice
		p.OriginalPrice = &v
	}
	if patch.DiscountPercentage != nil {
		p.DiscountPercentage = *patch.DiscountPercentage
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Images != nil {
		p.Images = patch.Images
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.Specifications != nil {
		p.Specifications = patch.Specifications
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.IsFeatured != nil {
		p.IsFeatured = *patch.IsFeatured
	}
}

// SoftDelete hides the product from default listings.
func (s *ProductService) SoftDelete(ctx context.Context, id, callerID string) error {
	product, err := s.loadOwned(ctx, id, callerID, "Not authorized to delete this product")
	if err != nil {
		return err
	}

	product.IsActive = false
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return storeErr(err, "Product not found", "failed to delete product")
	}

	s.logger.Info("Product deactivated", zap.String("product_id", id))
	return nil
}

func (s *ProductService) HardDelete(ctx context.Context, id, callerID string) error {
	product, err := s.loadOwned(ctx, id, callerID, "Not authorized to delete this product")
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, product.ID); err != nil {
		return storeErr(err, "Product not found", "failed to delete product")
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func validRating(v int) error {
	if v < 1 || v > 5 {
		return errs.Validation("Rating must be between 1 and 5")
	}
	return nil
}

func (s *ProductService) Rate(ctx context.Context, id, userID string, value int) (*models.ProductView, error) {
	if err := validRating(value); err != nil {
		return nil, err
	}
	pid, err := parseID(id, "Product not found")
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}

	if err := s.products.UpsertRating(ctx, pid, uid, value); err != nil {
		return nil, storeErr(err, "Product not found", "failed to rate product")
	}
	return s.GetByID(ctx, id)
}

func (s *ProductService) ListReviews(ctx context.Context, id string) ([]*models.ReviewView, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reviewViews(ctx, product)
}

func (s *ProductService) UpsertReview(ctx context.Context, id, userID string, rating int, comment string) ([]*models.ReviewView, error) {
	if err := validRating(rating); err != nil {
		return nil, err
	}
	pid, err := parseID(id, "Product not found")
	if err != nil {
		return nil, err
	}
	uid, err := parseID(userID, "User not found")
	if err != nil {
		return nil, err
	}

	if err := s.products.UpsertReview(ctx, pid, uid, rating, strings.TrimSpace(comment), s.now()); err != nil {
		return nil, storeErr(err, "Product not found", "failed to save review")
	}
	return s.ListReviews(ctx, id)
}

func (s *ProductService) DeleteReview(ctx context.Context, id, userID, reviewID string) error {
	product, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	rid, err := parseID(reviewID, "Review not found")
	if err != nil {
		return err
	}

	var review *models.Review
	for i := range product.Reviews {
		if product.Reviews[i].ID == rid {
			review = &product.Reviews[i]
			break
		}
	}
	if review == nil {
		return errs.NotFound("Review not found")
	}
	if review.User.Hex() != userID && product.CreatedBy.Hex() != userID {
		return errs.Forbidden("Not authorized to delete this review")
	}

	if err := s.products.DeleteReview(ctx, product.ID, rid); err != nil {
		return storeErr(err, "Review not found", "failed to delete review")
	}
	return nil
}

func (s *ProductService) view(ctx context.Context, p *models.Product) (*models.ProductView, error) {
	views, err := s.views(ctx, []*models.Product{p})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *ProductService) views(ctx context.Context, products []*models.Product) ([]*models.ProductView, error) {
	ids := make([]primitive.ObjectID, len(products))
	for i, p := range products {
		ids[i] = p.CreatedBy
	}
	owners, err := summaries(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ProductView, len(products))
	for i, p := range products {
		out[i] = models.NewProductView(p, owners[p.CreatedBy])
	}
	return out, nil
}

func (s *ProductService) reviewViews(ctx context.Context, p *models.Product) ([]*models.ReviewView, error) {
	ids := make([]primitive.ObjectID, len(p.Reviews))
	for i, r := range p.Reviews {
		ids[i] = r.User
	}
	authors, err := summaries(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ReviewView, len(p.Reviews))
	for i, r := range p.Reviews {
		out[i] = &models.ReviewView{Review: r, User: authors[r.User]}
	}
	return out, nil
}
