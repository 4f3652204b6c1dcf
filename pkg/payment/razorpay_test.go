package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	args := m.Called(data, extraHeaders)
	resp, _ := args.Get(0).(map[string]interface{})
	return resp, args.Error(1)
}

func TestRazorpay_CreateOrder(t *testing.T) {
	orders := new(mockOrders)
	rp := NewRazorpayWithClient(orders, "rzp_key", "secret")
	rp.now = func() time.Time { return time.UnixMilli(1700000000000) }

	orders.On("Create", map[string]interface{}{
		"amount":   int64(49999),
		"currency": "INR",
		"receipt":  "order_1700000000000",
	}, map[string]string(nil)).Return(map[string]interface{}{
		"id":       "order_abc",
		"amount":   float64(49999),
		"currency": "INR",
	}, nil)

	got, err := rp.CreateOrder(context.Background(), 499.99, "INR")
	require.NoError(t, err)
	assert.Equal(t, &GatewayOrder{OrderID: "order_abc", Amount: 49999, Currency: "INR", KeyID: "rzp_key"}, got)
	orders.AssertExpectations(t)
}

func TestRazorpay_CreateOrderError(t *testing.T) {
	orders := new(mockOrders)
	orders.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("bad key"))

	_, err := NewRazorpayWithClient(orders, "k", "s").CreateOrder(context.Background(), 10, "INR")
	assert.ErrorContains(t, err, "bad key")
}

func TestRazorpay_VerifySignature(t *testing.T) {
	rp := NewRazorpayWithClient(nil, "k", "s3cret")
	sig := Sign("s3cret", "order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, rp.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, rp.VerifySignature("order_1", "pay_2", sig))
	assert.False(t, rp.VerifySignature("order_1", "pay_1", Sign("other", "order_1", "pay_1")))
	assert.False(t, rp.VerifySignature("order_1", "pay_1", ""))
}
