package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduct_AverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		reviews []int
		avg     float64
		count   int
	}{
		{name: "unrated", avg: 0, count: 0},
		{name: "single rating", ratings: []int{4}, avg: 4, count: 1},
		{name: "ratings and reviews", ratings: []int{5, 4}, reviews: []int{4}, avg: 4.3, count: 3},
		{name: "reviews only", reviews: []int{1, 2}, avg: 1.5, count: 2},
		{name: "rounds half up", ratings: []int{5, 5, 4, 4}, reviews: []int{3, 3, 3, 3}, avg: 3.8, count: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{}
			for _, r := range tt.ratings {
				p.Ratings = append(p.Ratings, Rating{Rating: r})
			}
			for _, r := range tt.reviews {
				p.Reviews = append(p.Reviews, Review{Rating: r})
			}

			assert.Equal(t, tt.avg, p.AverageRating())
			assert.Equal(t, tt.count, p.RatingsCount())
		})
	}
}

func TestProduct_DiscountedPrice(t *testing.T) {
	original := 199.99
	p := &Product{Price: 150, OriginalPrice: &original, DiscountPercentage: 15}
	assert.Equal(t, 169.99, p.DiscountedPrice())

	p = &Product{Price: 10.005}
	assert.Equal(t, 10.01, p.DiscountedPrice())
}

func TestNewProductView(t *testing.T) {
	p := &Product{Ratings: []Rating{{Rating: 4}}}
	owner := &UserSummary{Name: "A"}

	v := NewProductView(p, owner)
	assert.Equal(t, 4.0, v.AverageRating)
	assert.Equal(t, 1, v.RatingsCount)
	assert.Nil(t, v.DiscountedPrice)
	assert.Same(t, owner, v.CreatedBy)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderPending, OrderProcessing))
	assert.True(t, CanTransition(OrderProcessing, OrderShipped))
	assert.True(t, CanTransition(OrderShipped, OrderDelivered))
	assert.True(t, CanTransition(OrderShipped, OrderCancelled))

	assert.False(t, CanTransition(OrderPending, OrderDelivered))
	assert.False(t, CanTransition(OrderDelivered, OrderCancelled))
	assert.False(t, CanTransition(OrderCancelled, OrderPending))
	assert.False(t, CanTransition("unknown", OrderPending))

	assert.True(t, ValidOrderStatus(OrderCancelled))
	assert.False(t, ValidOrderStatus("paid"))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, int64(49999), MinorUnits(499.99))
	assert.Equal(t, int64(1000), MinorUnits(10))
	assert.Equal(t, 30.03, OrderTotal([]OrderItem{{Price: 10.01, Quantity: 3}}))
	assert.Equal(t, 430.28, OrderTotal([]OrderItem{{Price: 199.99, Quantity: 2}, {Price: 10.10, Quantity: 3}}))
	assert.Equal(t, 0.0, OrderTotal(nil))
	assert.Equal(t, 0.3, RoundTo(0.1+0.2, 2))
}
