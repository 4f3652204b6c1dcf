package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository/memory"
	"github.com/example/storefront/pkg/service"
)

const keySecret = "rzp_test_secret"

type stubOrders struct{}

func (stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"id": "order_gw", "amount": data["amount"], "currency": data["currency"]}, nil
}

type failingChecks map[string]string

func (f failingChecks) Failing() map[string]string { return f }

type response struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Message    string              `json:"message"`
	Pagination *service.Pagination `json:"pagination"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()

	repos := memory.New()
	logger := zap.NewNop()
	cfg := &config.Config{Server: config.ServerConfig{Environment: "test"}}
	gw := payment.NewRazorpayWithClient(stubOrders{}, "rzp_test_key", keySecret)

	services := Services{
		Users:    service.NewUserService(repos, auth.NewTokenIssuer("jwt-secret", time.Hour), 4, logger),
		Products: service.NewProductService(repos.Products, repos.Users, logger),
		Carts:    service.NewCartService(repos.Carts, repos.Products, repos.Users, logger),
		Orders:   service.NewOrderService(repos, gw, "INR", logger),
	}
	g := NewGateway(cfg, logger, services, opts...)
	g.SetupRoutes()
	return &testServer{t: t, handler: g.Handler()}
}

func (s *testServer) do(method, path, token string, body any) (int, *response) {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, &resp
}

func (s *testServer) register(name, email, role string) (string, string) {
	s.t.Helper()
	code, resp := s.do(http.MethodPost, "/api/auth/register", "", obj{"name": name, "email": email, "password": "secret123", "role": role})
	require.Equal(s.t, http.StatusCreated, code, resp.Message)

	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &data))
	return data.User.ID, data.Token
}

type obj = map[string]any

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type productBody struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	AverageRating float64 `json:"averageRating"`
	RatingsCount  int     `json:"ratingsCount"`
	CreatedBy     struct {
		Email string `json:"email"`
	} `json:"createdBy"`
}

type cartBody struct {
	Items []struct {
		Product  productBody `json:"product"`
		Quantity int         `json:"quantity"`
	} `json:"items"`
}

func newProduct(name string, price float64) obj {
	return obj{
		"name":        name,
		"description": name + " description",
		"price":       price,
		"category":    "Electronics",
		"images":      []string{"https://img.example.com/" + name + ".png"},
		"stock":       5,
	}
}

func TestGateway_ShoppingScenario(t *testing.T) {
	s := newTestServer(t)

	_, sellerToken := s.register("Seller", "seller@example.com", "")
	_, buyerToken := s.register("Buyer", "buyer@example.com", "")

	code, resp := s.do(http.MethodPost, "/api/products", sellerToken, newProduct("Phone", 100))
	require.Equal(t, http.StatusCreated, code, resp.Message)
	product := decode[productBody](t, resp.Data)
	assert.Equal(t, "seller@example.com", product.CreatedBy.Email)

	code, resp = s.do(http.MethodPost, "/api/cart/add", buyerToken, obj{"productId": product.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, code, resp.Message)
	cart := decode[cartBody](t, resp.Data)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	code, resp = s.do(http.MethodPut, "/api/cart/update", buyerToken, obj{"productId": product.ID, "quantity": 5})
	require.Equal(t, http.StatusOK, code, resp.Message)
	cart = decode[cartBody](t, resp.Data)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	code, _ = s.do(http.MethodPost, "/api/products/"+product.ID+"/rate", buyerToken, obj{"rating": 4})
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, "/api/products/"+product.ID+"/details", "", nil)
	require.Equal(t, http.StatusOK, code)
	details := decode[productBody](t, resp.Data)
	assert.Equal(t, 4.0, details.AverageRating)
	assert.Equal(t, 1, details.RatingsCount)

	code, resp = s.do(http.MethodPost, "/api/orders/verify-payment", buyerToken, obj{
		"razorpay_order_id":   "order_gw",
		"razorpay_payment_id": "pay_gw",
		"razorpay_signature":  "deadbeef",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid payment signature", resp.Message)

	code, resp = s.do(http.MethodPost, "/api/orders/verify-payment", buyerToken, obj{
		"razorpay_order_id":   "order_gw",
		"razorpay_payment_id": "pay_gw",
		"razorpay_signature":  payment.Sign(keySecret, "order_gw", "pay_gw"),
		"shippingAddress":     obj{"name": "Buyer", "address": "1 Main St", "city": "Pune", "state": "MH", "zipCode": "411001", "phone": "9999999999"},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	order := decode[struct {
		ID          string  `json:"id"`
		TotalAmount float64 `json:"totalAmount"`
		OrderStatus string  `json:"orderStatus"`
	}](t, resp.Data)
	assert.Equal(t, 500.0, order.TotalAmount)
	assert.Equal(t, "pending", order.OrderStatus)

	code, resp = s.do(http.MethodGet, "/api/cart", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[cartBody](t, resp.Data).Items)

	code, _ = s.do(http.MethodGet, "/api/orders/"+order.ID, buyerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/orders/"+order.ID, sellerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodPut, "/api/orders/"+order.ID+"/status", buyerToken, obj{"orderStatus": "shipped"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to update order status", resp.Message)
}

func TestGateway_ProductErrors(t *testing.T) {
	s := newTestServer(t)
	_, ownerToken := s.register("Owner", "owner@example.com", "")
	_, otherToken := s.register("Other", "other@example.com", "")

	body := newProduct("Phone", 100)
	body["images"] = []string{}
	code, resp := s.do(http.MethodPost, "/api/products", ownerToken, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "At least one image is required", resp.Message)
	assert.False(t, resp.Success)

	code, resp = s.do(http.MethodPost, "/api/products", "", newProduct("Phone", 100))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", resp.Message)

	code, resp = s.do(http.MethodPost, "/api/products", ownerToken, newProduct("Phone", 100))
	require.Equal(t, http.StatusCreated, code)
	product := decode[productBody](t, resp.Data)

	code, resp = s.do(http.MethodPut, "/api/products/"+product.ID, otherToken, obj{"price": 1})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to update this product", resp.Message)

	code, resp = s.do(http.MethodGet, "/api/products/not-an-id", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Product not found", resp.Message)

	code, _ = s.do(http.MethodDelete, "/api/products/"+product.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]productBody](t, resp.Data))
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, int64(0), resp.Pagination.Total)

	code, _ = s.do(http.MethodGet, "/api/products/"+product.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, "/api/products?page=184467440737095516&limit=100", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Empty(t, decode[[]productBody](t, resp.Data))
}

func TestGateway_AuthAndAdmin(t *testing.T) {
	s := newTestServer(t)
	userID, userToken := s.register("Jane", "jane@example.com", "")
	_, adminToken := s.register("Admin", "admin@example.com", "admin")

	code, resp := s.do(http.MethodPost, "/api/auth/login", "", obj{"email": "jane@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", resp.Message)

	code, _ = s.do(http.MethodGet, "/api/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = s.do(http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, resp.Data), 2)

	code, resp = s.do(http.MethodGet, "/api/users/me", userToken, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[map[string]any](t, resp.Data)
	assert.Equal(t, "jane@example.com", me["email"])
	assert.NotContains(t, me, "password")

	code, _ = s.do(http.MethodDelete, "/api/users/"+userID, adminToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(http.MethodGet, "/api/users/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Account is deactivated", resp.Message)

	code, _ = s.do(http.MethodPost, "/api/auth/logout", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	code, resp = s.do(http.MethodGet, "/api/users", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token has been revoked", resp.Message)
}

func TestGateway_OperationalRoutes(t *testing.T) {
	m := metrics.New("storefront_test")
	s := newTestServer(t, WithMetrics(m))

	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := s.do(http.MethodGet, "/api/test", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "API is working", resp.Message)

	code, resp = s.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Route not found", resp.Message)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_test_http_requests_total{method="GET",route="/api/test",status="200"} 1`)

	degraded := newTestServer(t, WithHealth(failingChecks{"mongo": "connection refused"}))
	code, resp = degraded.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, resp.Success)
}
