// Package memory implements the repository interfaces in process. It backs
// the "memory" driver and the service tests.
package memory

import (
	"github.com/example/storefront/pkg/repository"
)

// New returns a fresh set of in-memory repositories.
func New() *repository.Repositories {
	return &repository.Repositories{
		Products: NewProductRepository(),
		Carts:    NewCartRepository(),
		Orders:   NewOrderRepository(),
		Users:    NewUserRepository(),
		Sessions: NewSessionStore(),
		Ledger:   NewLedger(),
		Audit:    NewAuditLog(),
	}
}
