package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("STOREFRONT_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("STOREFRONT_RAZORPAY_KEY_SECRET", "rzp-secret")
	t.Setenv("STOREFRONT_SERVER_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "rzp-secret", cfg.Razorpay.KeySecret)
	assert.Equal(t, "memory", cfg.Server.Driver)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.Equal(t, 5000, cfg.Gateway.Port)
	assert.False(t, cfg.MySQL.Enabled())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  name: storefront-test
  driver: memory
gateway:
  port: 8088
auth:
  jwt_secret: from-file
  jwt_expiry: 1h
  bcrypt_cost: 4
mysql:
  host: db.local
  username: shop
  password: pw
  database: ledger
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "storefront-test", cfg.Server.Name)
	assert.Equal(t, 8088, cfg.Gateway.Port)
	assert.Equal(t, time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.True(t, cfg.MySQL.Enabled())
	assert.Equal(t, "shop:pw@tcp(db.local:3306)/ledger?charset=utf8mb4&parseTime=True&loc=Local", cfg.MySQL.DSN())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("STOREFRONT_SERVER_DRIVER", "memory")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Driver: "postgres"},
		Gateway: GatewayConfig{Port: 1},
		Auth:    AuthConfig{JWTSecret: "x", BcryptCost: 10},
	}
	assert.EqualError(t, cfg.Validate(), `unknown server.driver "postgres"`)
}
