package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Items     []CartItem         `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt,omitempty"`
}

// CartItemView is a line item with its product populated. Product is nil when
// the referenced product no longer exists.
type CartItemView struct {
	Product  *ProductView `json:"product"`
	Quantity int          `json:"quantity"`
}

type CartView struct {
	ID    primitive.ObjectID `json:"id,omitempty"`
	User  primitive.ObjectID `json:"user,omitempty"`
	Items []CartItemView     `json:"items"`
}
