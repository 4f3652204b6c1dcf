// Package payment talks to the Razorpay orders API and checks the signature
// Razorpay attaches to a completed checkout.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/razorpay/razorpay-go"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
)

// OrderCreator is the part of the Razorpay client used here.
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// GatewayOrder is what the checkout widget needs to open a payment.
type GatewayOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type Razorpay struct {
	orders OrderCreator
	keyID  string
	secret string
	now    func() time.Time
}

func NewRazorpay(cfg config.RazorpayConfig) *Razorpay {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return NewRazorpayWithClient(client.Order, cfg.KeyID, cfg.KeySecret)
}

func NewRazorpayWithClient(orders OrderCreator, keyID, secret string) *Razorpay {
	return &Razorpay{orders: orders, keyID: keyID, secret: secret, now: time.Now}
}

// CreateOrder registers an order of amount (major units) with Razorpay.
// Nothing is persisted locally.
func (r *Razorpay) CreateOrder(ctx context.Context, amount float64, currency string) (*GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   models.MinorUnits(amount),
		"currency": currency,
		"receipt":  "order_" + strconv.FormatInt(r.now().UnixMilli(), 10),
	}

	resp, err := r.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}

	order := &GatewayOrder{
		OrderID:  id,
		Amount:   data["amount"].(int64),
		Currency: currency,
		KeyID:    r.keyID,
	}
	switch v := resp["amount"].(type) {
	case float64:
		order.Amount = int64(v)
	case int64:
		order.Amount = v
	}
	if c, ok := resp["currency"].(string); ok && c != "" {
		order.Currency = c
	}
	return order, nil
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of
// "orderID|paymentID" under the key secret.
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	expected := Sign(r.secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func Sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}
