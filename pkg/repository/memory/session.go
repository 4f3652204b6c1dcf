package memory

import (
	"context"
	"sync"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

// SessionStore keeps revoked token ids until they expire.
type SessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *SessionStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (s *SessionStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	return ok && exp.After(s.now()), nil
}

// Ledger records payments in a slice.
type Ledger struct {
	mu      sync.Mutex
	records []models.PaymentRecord
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Record(_ context.Context, record *models.PaymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.records {
		if r.PaymentID == record.PaymentID {
			return repository.ErrDuplicateKey
		}
	}
	record.ID = uint(len(l.records) + 1)
	record.CreatedAt = time.Now()
	l.records = append(l.records, *record)
	return nil
}

func (l *Ledger) Records() []models.PaymentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.PaymentRecord(nil), l.records...)
}

type AuditLog struct {
	mu   sync.Mutex
	logs []*repository.AuditLog
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) CreateAuditLog(_ context.Context, log *repository.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	log.CreatedAt = time.Now()
	c := *log
	a.logs = append(a.logs, &c)
	return nil
}

func (a *AuditLog) GetAuditLogs(_ context.Context, entityID string, limit int64) ([]*repository.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*repository.AuditLog
	for i := len(a.logs) - 1; i >= 0; i-- {
		if a.logs[i].EntityID != entityID {
			continue
		}
		c := *a.logs[i]
		out = append(out, &c)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

var (
	_ repository.ProductRepository = (*ProductRepository)(nil)
	_ repository.CartRepository    = (*CartRepository)(nil)
	_ repository.OrderRepository   = (*OrderRepository)(nil)
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.SessionStore      = (*SessionStore)(nil)
	_ repository.PaymentLedger     = (*Ledger)(nil)
	_ repository.AuditLogger       = (*AuditLog)(nil)
)
