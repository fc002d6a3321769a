package repository

import (
	"context"
	"errors"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/google/uuid"
)

var (
	ErrAlreadyExists = errors.New("repository: customer already exists")
	ErrTxConflict    = errors.New("repository: transaction conflict")
)

// Tx is the unit of work every ledger mutation runs in. Writes become
// visible only when the enclosing RunInTx returns nil.
type Tx interface {
	// Customer returns domain.ErrUnknownIdentity when id is not registered.
	Customer(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	InsertCustomer(ctx context.Context, id uuid.UUID, c domain.Customer) error
	ReplaceCustomer(ctx context.Context, id uuid.UUID, c domain.Customer) error

	// Fund reports false when the pooled fund has never been seeded.
	Fund(ctx context.Context) (models.Fund, bool, error)
	SetFund(ctx context.Context, f models.Fund) error

	AppendAudit(ctx context.Context, entry models.AuditEntry) error
}

// Store provides transaction scoping over the customer registry and the
// pooled fund.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	ListCustomers(ctx context.Context) ([]models.CustomerRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
