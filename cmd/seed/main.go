// Command seed creates the default admin account and a sample catalog.
// Running it again leaves existing data in place.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/logger"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
)

const adminEmail = "admin@example.com"

//go:embed products.json
var sampleProducts []byte

func main() {
	defaultPath := os.Getenv("STOREFRONT_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	adminPassword := flag.String("admin-password", "admin123", "password for a newly created admin account")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	log, err := logger.New(cfg.Log, cfg.Server.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	mongo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		log.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer mongo.Close(context.Background())

	if err := mongo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}
	log.Info("MongoDB connected for seeding", zap.String("database", cfg.MongoDB.Database))

	repos := &repository.Repositories{
		Products: mongo.Products(),
		Users:    mongo.Users(),
		Audit:    mongo,
	}
	users := service.NewUserService(repos, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry), cfg.Auth.BcryptCost, log)
	products := service.NewProductService(repos.Products, repos.Users, log)

	admin, err := ensureAdmin(ctx, repos.Users, users, *adminPassword)
	if err != nil {
		log.Fatal("Failed to create default admin", zap.Error(err))
	}
	log.Info("Default admin ready", zap.String("email", admin.Email))

	created, err := seedProducts(ctx, products, admin)
	if err != nil {
		log.Fatal("Failed to seed products", zap.Error(err))
	}
	log.Info("Database seeding completed", zap.Int("products_created", created))
}

func ensureAdmin(ctx context.Context, repo repository.UserRepository, users *service.UserService, password string) (*models.User, error) {
	existing, err := repo.GetByEmail(ctx, adminEmail)
	if err == nil {
		return existing, nil
	}
	res, err := users.Register(ctx, service.RegisterInput{
		Name:     "Admin User",
		Email:    adminEmail,
		Password: password,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	return res.User, nil
}

// seedProducts inserts the embedded catalog. Products whose SKU is already
// stored are skipped.
func seedProducts(ctx context.Context, products *service.ProductService, owner *models.User) (int, error) {
	var inputs []service.ProductInput
	if err := json.Unmarshal(sampleProducts, &inputs); err != nil {
		return 0, fmt.Errorf("failed to decode sample products: %w", err)
	}

	created := 0
	for _, in := range inputs {
		_, err := products.Create(ctx, in, owner.ID.Hex())
		if errs.Is(err, errs.KindValidation) && errs.MessageOf(err) == "SKU already exists" {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("%s: %w", in.Name, err)
		}
		created++
	}
	return created, nil
}
