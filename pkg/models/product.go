package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Description        string             `bson:"description" json:"description"`
	Price              float64            `bson:"price" json:"price"`
	OriginalPrice      *float64           `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	DiscountPercentage float64            `bson:"discountPercentage" json:"discountPercentage"`
	Category           string             `bson:"category" json:"category"`
	Brand              string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Images             []string           `bson:"images" json:"images"`
	Stock              int                `bson:"stock" json:"stock"`
	SKU                string             `bson:"sku" json:"sku"`
	Tags               []string           `bson:"tags" json:"tags"`
	Specifications     map[string]string  `bson:"specifications,omitempty" json:"specifications,omitempty"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	IsFeatured         bool               `bson:"isFeatured" json:"isFeatured"`
	Ratings            []Rating           `bson:"ratings" json:"ratings"`
	Reviews            []Review           `bson:"reviews" json:"reviews"`
	CreatedBy          primitive.ObjectID `bson:"createdBy" json:"-"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Rating struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	Rating int                `bson:"rating" json:"rating"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"-"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// AverageRating is the mean of every rating and review score, rounded to one
// decimal place. It is 0 for an unrated product.
func (p *Product) AverageRating() float64 {
	n := p.RatingsCount()
	if n == 0 {
		return 0
	}
	sum := 0
	for _, r := range p.Ratings {
		sum += r.Rating
	}
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	return RoundTo(float64(sum)/float64(n), 1)
}

func (p *Product) RatingsCount() int {
	return len(p.Ratings) + len(p.Reviews)
}

// DiscountedPrice applies DiscountPercentage to OriginalPrice when one is
// set, otherwise it is Price.
func (p *Product) DiscountedPrice() float64 {
	if p.OriginalPrice == nil {
		return RoundTo(p.Price, 2)
	}
	return RoundTo(*p.OriginalPrice*(1-p.DiscountPercentage/100), 2)
}

// ProductView is the read model returned to clients: the stored document plus
// the derived fields and the populated owner.
type ProductView struct {
	*Product
	AverageRating   float64      `json:"averageRating"`
	RatingsCount    int          `json:"ratingsCount"`
	DiscountedPrice *float64     `json:"discountedPrice,omitempty"`
	CreatedBy       *UserSummary `json:"createdBy"`
}

func NewProductView(p *Product, owner *UserSummary) *ProductView {
	return &ProductView{
		Product:       p,
		AverageRating: p.AverageRating(),
		RatingsCount:  p.RatingsCount(),
		CreatedBy:     owner,
	}
}

// ReviewView is a review with its author populated.
type ReviewView struct {
	Review
	User *UserSummary `json:"user"`
}
