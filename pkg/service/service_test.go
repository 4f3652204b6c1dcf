package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/repository/memory"
)

const (
	testKeySecret = "rzp_test_secret"
	testPassword  = "secret123"
)

type stubOrders struct{}

func (stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"id": "order_test", "amount": data["amount"], "currency": data["currency"]}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (n *recordingNotifier) OrderPlaced(order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

type countingRecorder struct {
	placed   []float64
	rejected int
}

func (r *countingRecorder) OrderPlaced(total float64) { r.placed = append(r.placed, total) }
func (r *countingRecorder) PaymentRejected()          { r.rejected++ }

type fixture struct {
	repos    *repository.Repositories
	ledger   *memory.Ledger
	users    *UserService
	products *ProductService
	carts    *CartService
	orders   *OrderService
	notifier *recordingNotifier
	recorder *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := memory.New()
	logger := zap.NewNop()
	f := &fixture{
		repos:    repos,
		ledger:   repos.Ledger.(*memory.Ledger),
		notifier: &recordingNotifier{},
		recorder: &countingRecorder{},
	}
	gateway := payment.NewRazorpayWithClient(stubOrders{}, "rzp_test_key", testKeySecret)

	f.users = NewUserService(repos, auth.NewTokenIssuer("jwt-secret", time.Hour), 4, logger)
	f.products = NewProductService(repos.Products, repos.Users, logger)
	f.carts = NewCartService(repos.Carts, repos.Products, repos.Users, logger)
	f.orders = NewOrderService(repos, gateway, "INR", logger, WithNotifier(f.notifier), WithRecorder(f.recorder))
	return f
}

func (f *fixture) register(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	res, err := f.users.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: testPassword})
	require.NoError(t, err)
	return res.User, res.Token
}

func (f *fixture) admin(t *testing.T) *models.User {
	t.Helper()
	res, err := f.users.Register(context.Background(), RegisterInput{
		Name: "Admin", Email: "admin@example.com", Password: testPassword, Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	return res.User
}

func productInput(name string, price float64) ProductInput {
	return ProductInput{
		Name:        name,
		Description: name + " description",
		Price:       ptr(price),
		Category:    "Electronics",
		Brand:       "Acme",
		Images:      []string{"https://img.example.com/" + name + ".png"},
		Stock:       ptr(10),
	}
}

func (f *fixture) createProduct(t *testing.T, owner *models.User, name string, price float64) *models.ProductView {
	t.Helper()
	p, err := f.products.Create(context.Background(), productInput(name, price), owner.ID.Hex())
	require.NoError(t, err)
	return p
}

func ptr[T any](v T) *T {
	return &v
}
