// Package gateway serves the storefront REST API over gin.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/notifier"
	"github.com/example/storefront/pkg/service"
)

const requestIDHeader = "X-Request-ID"

type Services struct {
	Users    *service.UserService
	Products *service.ProductService
	Carts    *service.CartService
	Orders   *service.OrderService
}

// HealthReporter lists dependency checks that are currently failing.
type HealthReporter interface {
	Failing() map[string]string
}

// NotifierStats reports order events handed to the publisher.
type NotifierStats interface {
	Stats(timeout time.Duration) (*notifier.Stats, error)
}

type Option func(*Gateway)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithHealth(h HealthReporter) Option {
	return func(g *Gateway) { g.health = h }
}

func WithNotifier(n NotifierStats) Option {
	return func(g *Gateway) { g.notifier = n }
}

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	services Services
	metrics  *metrics.Metrics
	health   HealthReporter
	notifier NotifierStats
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services, opts ...Option) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		services: services,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics != nil {
		router.Use(g.metrics.Middleware())
	}
	return g
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.healthCheck)
	if g.metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.metrics.Handler()))
	}
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	g.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Success: false, Message: "Route not found"})
	})

	api := g.router.Group("/api")
	api.GET("/test", g.apiTest)

	authed := g.authMiddleware()
	admin := g.adminMiddleware()

	auth := api.Group("/auth")
	{
		auth.POST("/register", g.register)
		auth.POST("/login", g.login)
		auth.POST("/logout", authed, g.logout)
		auth.PUT("/change-password", authed, g.changePassword)
	}

	products := api.Group("/products")
	{
		products.GET("", g.listProducts)
		products.GET("/:id", g.getProduct)
		products.GET("/:id/details", g.getProductDetails)
		products.GET("/:id/reviews", g.listReviews)

		products.POST("", authed, g.createProduct)
		products.PUT("/:id", authed, g.updateProduct)
		products.DELETE("/:id", authed, g.deleteProduct)
		products.DELETE("/:id/hard", authed, g.hardDeleteProduct)
		products.POST("/:id/rate", authed, g.rateProduct)
		products.POST("/:id/reviews", authed, g.upsertReview)
		products.DELETE("/:id/reviews/:reviewId", authed, g.deleteReview)
	}

	cart := api.Group("/cart", authed)
	{
		cart.GET("", g.getCart)
		cart.POST("/add", g.addToCart)
		cart.PUT("/update", g.updateCartItem)
		cart.DELETE("/remove/:productId", g.removeFromCart)
		cart.DELETE("/clear", g.clearCart)
	}

	orders := api.Group("/orders", authed)
	{
		orders.POST("/create-payment-order", g.createPaymentOrder)
		orders.POST("/verify-payment", g.verifyPayment)
		orders.GET("", g.listOrders)
		orders.GET("/:id", g.getOrder)
		orders.PUT("/:id/status", g.updateOrderStatus)
	}

	users := api.Group("/users", authed)
	{
		users.GET("/me", g.me)
		users.PUT("/profile-photo", g.updateProfilePhoto)

		users.GET("", admin, g.listUsers)
		users.POST("", admin, g.createUser)
		users.GET("/:id", admin, g.getUser)
		users.PUT("/:id", admin, g.updateUser)
		users.DELETE("/:id", admin, g.deleteUser)
		users.DELETE("/:id/hard", admin, g.hardDeleteUser)
		users.GET("/:id/audit", admin, g.userAuditTrail)
	}
}

// Handler exposes the router for in-process use.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Gateway.Host, g.config.Gateway.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))

	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) healthCheck(c *gin.Context) {
	body := gin.H{
		"success":     true,
		"message":     "Server is running",
		"timestamp":   time.Now().UTC(),
		"environment": g.config.Server.Environment,
	}
	status := http.StatusOK

	if g.health != nil {
		if failing := g.health.Failing(); len(failing) > 0 {
			body["success"] = false
			body["message"] = "Degraded"
			body["failing"] = failing
			status = http.StatusServiceUnavailable
		}
	}
	if g.notifier != nil {
		if stats, err := g.notifier.Stats(time.Second); err == nil {
			body["events"] = gin.H{"published": stats.Published, "failed": stats.Failed}
		}
	}
	c.JSON(status, body)
}

func (g *Gateway) apiTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "API is working",
		"timestamp": time.Now().UTC(),
	})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
