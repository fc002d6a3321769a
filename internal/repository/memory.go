package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps the registry in process. Transactions stage their writes
// and merge them on commit.
type MemoryStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]domain.Customer
	fund      *models.Fund
	audit     []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{customers: make(map[uuid.UUID]domain.Customer)}
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, staged: make(map[uuid.UUID]domain.Customer)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for id, c := range tx.staged {
		s.customers[id] = c
	}
	if tx.fund != nil {
		f := *tx.fund
		s.fund = &f
	}
	s.audit = append(s.audit, tx.audit...)
	return nil
}

func (s *MemoryStore) ListCustomers(_ context.Context) ([]models.CustomerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CustomerRecord, 0, len(s.customers))
	for id, c := range s.customers {
		out = append(out, models.NewCustomerRecord(id, c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// AuditTrail returns a copy of the committed audit entries.
func (s *MemoryStore) AuditTrail() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

type memoryTx struct {
	store  *MemoryStore
	staged map[uuid.UUID]domain.Customer
	fund   *models.Fund
	audit  []models.AuditEntry
}

func (t *memoryTx) Customer(_ context.Context, id uuid.UUID) (domain.Customer, error) {
	if c, ok := t.staged[id]; ok {
		return clone(c), nil
	}
	if c, ok := t.store.customers[id]; ok {
		return clone(c), nil
	}
	return domain.Customer{}, domain.ErrUnknownIdentity
}

func (t *memoryTx) InsertCustomer(_ context.Context, id uuid.UUID, c domain.Customer) error {
	if _, ok := t.staged[id]; ok {
		return ErrAlreadyExists
	}
	if _, ok := t.store.customers[id]; ok {
		return ErrAlreadyExists
	}
	t.staged[id] = clone(c)
	return nil
}

func (t *memoryTx) ReplaceCustomer(_ context.Context, id uuid.UUID, c domain.Customer) error {
	_, staged := t.staged[id]
	_, stored := t.store.customers[id]
	if !staged && !stored {
		return domain.ErrUnknownIdentity
	}
	t.staged[id] = clone(c)
	return nil
}

func (t *memoryTx) Fund(_ context.Context) (models.Fund, bool, error) {
	if t.fund != nil {
		return *t.fund, true, nil
	}
	if t.store.fund != nil {
		return *t.store.fund, true, nil
	}
	return models.Fund{}, false, nil
}

func (t *memoryTx) SetFund(_ context.Context, f models.Fund) error {
	t.fund = &f
	return nil
}

func (t *memoryTx) AppendAudit(_ context.Context, entry models.AuditEntry) error {
	t.audit = append(t.audit, entry)
	return nil
}

func clone(c domain.Customer) domain.Customer {
	return c.WithAccount(c.Account)
}
