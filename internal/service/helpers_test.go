package service

import (
	"context"
	"testing"

	"github.com/ayo6706/custodial-ledger/internal/auth"
	"github.com/ayo6706/custodial-ledger/internal/clock"
	"github.com/ayo6706/custodial-ledger/internal/custody"
	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type ledgerFixture struct {
	ledger *Ledger
	store  *repository.MemoryStore
	clock  *clock.Manual
	issuer *auth.Issuer
	admin  string
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedgerFixture(t *testing.T, defaults domain.Defaults, initialFund string) *ledgerFixture {
	t.Helper()
	issuer, err := auth.NewIssuer(testSecret, "custodial-ledger", "ledger-clients")
	require.NoError(t, err)

	f := &ledgerFixture{
		store:  repository.NewMemoryStore(),
		clock:  clock.NewManual(0),
		issuer: issuer,
	}
	f.ledger = NewLedger(f.store, f.clock, issuer, defaults, zap.NewNop())
	f.admin, err = f.ledger.Open(context.Background(), custody.NewBucket(dec(initialFund)))
	require.NoError(t, err)
	return f
}

// verifiedCustomer registers a customer and marks it known.
func (f *ledgerFixture) verifiedCustomer(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	reg, err := f.ledger.Register(ctx, "Satoshi", "Nakamoto")
	require.NoError(t, err)
	require.NoError(t, f.ledger.MarkKnown(ctx, reg.CustomerID))
	return reg.CustomerID
}

func (f *ledgerFixture) describe(t *testing.T, id uuid.UUID) CustomerView {
	t.Helper()
	view, err := f.ledger.Describe(context.Background(), id)
	require.NoError(t, err)
	return view
}

func (f *ledgerFixture) pool(t *testing.T) string {
	t.Helper()
	fund, err := f.ledger.PooledFund(context.Background())
	require.NoError(t, err)
	return fund.Amount.String()
}
