package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ayo6706/custodial-ledger/internal/access"
	"github.com/ayo6706/custodial-ledger/internal/auth"
	"github.com/ayo6706/custodial-ledger/internal/clock"
	"github.com/ayo6706/custodial-ledger/internal/custody"
	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/ayo6706/custodial-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLedger_RegisterAndVerifyOnce(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()

	reg, err := f.ledger.Register(ctx, "Satoshi", "Nakamoto")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, reg.CustomerID)
	assert.Equal(t, domain.CredentialTypeCustomer, reg.CredentialType)

	p, err := f.issuer.Resolve(reg.Credential)
	require.NoError(t, err)
	assert.Equal(t, reg.CustomerID, p.CustomerID)
	assert.Equal(t, "Satoshi", p.FirstName)
	assert.Equal(t, "Nakamoto", p.LastName)

	view := f.describe(t, reg.CustomerID)
	assert.Equal(t, domain.CustomerStateUnverified, view.Record.State)
	assert.Nil(t, view.Record.KnownSince)
	assert.Equal(t, "Customer{known_since: none, customer_since: 0, account: 0 CR}", view.Snapshot)

	f.clock.Set(4)
	require.NoError(t, f.ledger.MarkKnown(ctx, reg.CustomerID))
	assert.ErrorIs(t, f.ledger.MarkKnown(ctx, reg.CustomerID), domain.ErrAlreadyKnown)

	view = f.describe(t, reg.CustomerID)
	assert.Equal(t, domain.CustomerStateVerified, view.Record.State)
	require.NotNil(t, view.Record.KnownSince)
	assert.Equal(t, uint64(4), *view.Record.KnownSince)
}

func TestLedger_RegisterTrimsAndRejectsEmptyNames(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()

	_, err := f.ledger.Register(ctx, "   ", "Nakamoto")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = f.ledger.Register(ctx, "Satoshi", "")
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	reg, err := f.ledger.Register(ctx, "  Hal ", " Finney ")
	require.NoError(t, err)
	p, err := f.issuer.Resolve(reg.Credential)
	require.NoError(t, err)
	assert.Equal(t, "Hal", p.FirstName)
	assert.Equal(t, "Finney", p.LastName)
}

func TestLedger_IdentitiesAreFresh(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 25; i++ {
		reg, err := f.ledger.Register(context.Background(), "Satoshi", "Nakamoto")
		require.NoError(t, err)
		assert.False(t, seen[reg.CustomerID])
		seen[reg.CustomerID] = true
	}
}

func TestLedger_UnknownIdentity(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "100")
	ctx := context.Background()
	stranger := uuid.New()

	_, err := f.ledger.Deposit(ctx, stranger, dec("1"), custody.NewBucket(dec("1")))
	assert.ErrorIs(t, err, domain.ErrUnknownIdentity)
	_, err = f.ledger.Withdraw(ctx, stranger, dec("1"))
	assert.ErrorIs(t, err, domain.ErrUnknownIdentity)
	_, err = f.ledger.Describe(ctx, stranger)
	assert.ErrorIs(t, err, domain.ErrUnknownIdentity)
	assert.ErrorIs(t, f.ledger.MarkKnown(ctx, stranger), domain.ErrUnknownIdentity)
}

func TestLedger_UnverifiedDepositRejectedRegardlessOfFunds(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	reg, err := f.ledger.Register(ctx, "Satoshi", "Nakamoto")
	require.NoError(t, err)

	for _, funds := range []string{"10", "1000", "999999"} {
		bucket := custody.NewBucket(dec(funds))
		got, err := f.ledger.Deposit(ctx, reg.CustomerID, dec("5"), bucket)
		assert.ErrorIs(t, err, domain.ErrNotVerified)
		assert.Equal(t, funds, got.Amount.String())
	}
	_, err = f.ledger.Withdraw(ctx, reg.CustomerID, dec("1"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "0", f.pool(t))
}

func TestLedger_DepositCheckOrder(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	reg, err := f.ledger.Register(ctx, "Satoshi", "Nakamoto")
	require.NoError(t, err)

	// insufficient funds is reported before verification
	_, err = f.ledger.Deposit(ctx, reg.CustomerID, dec("20"), custody.NewBucket(dec("10")))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// non-positive amounts are reported before verification
	_, err = f.ledger.Deposit(ctx, reg.CustomerID, dec("0"), custody.NewBucket(dec("10")))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.ledger.Deposit(ctx, reg.CustomerID, dec("-3"), custody.NewBucket(dec("10")))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestLedger_WithdrawCheckOrder(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "50")
	ctx := context.Background()
	reg, err := f.ledger.Register(ctx, "Satoshi", "Nakamoto")
	require.NoError(t, err)

	_, err = f.ledger.Withdraw(ctx, reg.CustomerID, dec("51"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = f.ledger.Withdraw(ctx, reg.CustomerID, dec("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.ledger.Withdraw(ctx, reg.CustomerID, dec("10"))
	assert.ErrorIs(t, err, domain.ErrNotVerified)
	assert.Equal(t, "50", f.pool(t))
}

func TestLedger_DepositThenOverdrawnWithdrawLeavesStateUnchanged(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	id := f.verifiedCustomer(t)

	remaining, err := f.ledger.Deposit(ctx, id, dec("100"), custody.NewBucket(dec("100")))
	require.NoError(t, err)
	assert.True(t, remaining.IsEmpty())

	view := f.describe(t, id)
	assert.Equal(t, "100", view.Record.Balance)
	assert.Equal(t, domain.BalanceTypeCredit, view.Record.BalanceType)
	assert.Equal(t, "-100", view.Record.Customer().Account.SignedBalance().String())
	assert.Equal(t, "100", f.pool(t))

	_, err = f.ledger.Withdraw(ctx, id, dec("150"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	after := f.describe(t, id)
	assert.Equal(t, view.Snapshot, after.Snapshot)
	assert.Equal(t, "100", f.pool(t))
}

func TestLedger_DepositReturnsRemainder(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	id := f.verifiedCustomer(t)

	remaining, err := f.ledger.Deposit(context.Background(), id, dec("30.25"), custody.NewBucket(dec("100")))
	require.NoError(t, err)
	assert.Equal(t, "69.75", remaining.Amount.String())
	assert.Equal(t, "30.25", f.pool(t))
}

func TestLedger_DepositReachingCreditLimit(t *testing.T) {
	defaults := domain.DefaultDefaults()
	defaults.CreditLimit = dec("500")
	f := newLedgerFixture(t, defaults, "0")
	ctx := context.Background()
	id := f.verifiedCustomer(t)

	_, err := f.ledger.Deposit(ctx, id, dec("400"), custody.NewBucket(dec("400")))
	require.NoError(t, err)

	funds := custody.NewBucket(dec("100"))
	got, err := f.ledger.Deposit(ctx, id, dec("100"), funds)
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Equal(t, "100", got.Amount.String())

	view := f.describe(t, id)
	assert.Equal(t, "400", view.Record.Balance)
	assert.Equal(t, "400", f.pool(t))
}

func TestLedger_WithdrawDebitsAndDrainsPool(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "1000")
	ctx := context.Background()
	id := f.verifiedCustomer(t)

	withdrawn, err := f.ledger.Withdraw(ctx, id, dec("200"))
	require.NoError(t, err)
	assert.Equal(t, "200", withdrawn.Amount.String())
	assert.Equal(t, "800", f.pool(t))

	view := f.describe(t, id)
	assert.Equal(t, "200", view.Record.Balance)
	assert.Equal(t, domain.BalanceTypeDebit, view.Record.BalanceType)

	// debit limit 1000: another 800 would reach it
	_, err = f.ledger.Withdraw(ctx, id, dec("800"))
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
	assert.Equal(t, "800", f.pool(t))
}

func TestLedger_InterestAccruesAcrossEpochs(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	id := f.verifiedCustomer(t)

	_, err := f.ledger.Deposit(ctx, id, dec("100"), custody.NewBucket(dec("100")))
	require.NoError(t, err)

	f.clock.Advance(10)
	_, err = f.ledger.Deposit(ctx, id, dec("1"), custody.NewBucket(dec("1")))
	require.NoError(t, err)

	// 100 * 0.01 * 10 = 10 interest on top of the 101 target
	view := f.describe(t, id)
	assert.Equal(t, "111", view.Record.Balance)
	assert.Equal(t, uint64(10), view.Record.Credit.LastUpdate)
	assert.Equal(t, uint64(10), view.Record.Debit.LastUpdate)
	assert.Equal(t, "101", f.pool(t))
}

func TestLedger_DepositThenWithdrawSameEpochRestoresBalance(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	id := f.verifiedCustomer(t)
	f.clock.Set(7)

	before := f.describe(t, id).Record.Customer().Account.SignedBalance()
	_, err := f.ledger.Deposit(ctx, id, dec("42.5"), custody.NewBucket(dec("42.5")))
	require.NoError(t, err)
	_, err = f.ledger.Withdraw(ctx, id, dec("42.5"))
	require.NoError(t, err)

	after := f.describe(t, id).Record.Customer().Account.SignedBalance()
	assert.True(t, before.Equal(after))
	assert.Equal(t, "0", f.pool(t))
}

func TestLedger_AuditTrail(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	id := f.verifiedCustomer(t)
	_, err := f.ledger.Deposit(ctx, id, dec("10"), custody.NewBucket(dec("10")))
	require.NoError(t, err)
	_, err = f.ledger.Deposit(ctx, id, dec("10"), custody.NewBucket(dec("5")))
	require.Error(t, err)

	trail := f.store.AuditTrail()
	require.Len(t, trail, 3)
	actions := []string{trail[0].Action, trail[1].Action, trail[2].Action}
	assert.Equal(t, []string{domain.AuditActionRegister, domain.AuditActionMarkKnown, domain.AuditActionDeposit}, actions)
	assert.Equal(t, domain.CustomerStateUnverified, trail[1].PrevState)
	assert.Equal(t, domain.CustomerStateVerified, trail[1].NextState)
	assert.Equal(t, "0 CR", trail[2].PrevState)
	assert.Equal(t, "10 CR", trail[2].NextState)
}

func TestLedger_OpenKeepsPersistedFund(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.SetFund(ctx, models.Fund{Amount: dec("75"), Initial: dec("50")})
	}))
	issuer, err := auth.NewIssuer(testSecret, "", "")
	require.NoError(t, err)

	l := NewLedger(store, clock.NewManual(0), issuer, domain.DefaultDefaults(), zap.NewNop())
	credential, err := l.Open(ctx, custody.NewBucket(dec("1000")))
	require.NoError(t, err)

	p, err := issuer.Resolve(credential)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())

	fund, err := l.PooledFund(ctx)
	require.NoError(t, err)
	assert.Equal(t, "75", fund.Amount.String())
	assert.Equal(t, "50", fund.Initial.String())
	assert.Equal(t, auth.RoleInternalAdmin, l.InternalAdmin().Role)
}

func TestLedger_RejectsCallsBeforeOpen(t *testing.T) {
	issuer, err := auth.NewIssuer(testSecret, "", "")
	require.NoError(t, err)
	l := NewLedger(repository.NewMemoryStore(), clock.NewManual(0), issuer, domain.DefaultDefaults(), zap.NewNop())

	_, err = l.Register(context.Background(), "Satoshi", "Nakamoto")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = l.PooledFund(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = l.Describe(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, l.MarkKnown(context.Background(), uuid.New()), ErrNotOpen)
}

func TestLedger_MintingRequiresAdminPrincipal(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	ctx := context.Background()
	f.ledger.internalAdmin = auth.Principal{Subject: "c", Role: auth.RoleCustomer, CustomerID: uuid.New()}

	_, err := f.ledger.Register(ctx, "Satoshi", "Nakamoto")
	assert.ErrorIs(t, err, access.ErrForbidden)

	customers, err := f.store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)
	assert.Empty(t, f.store.AuditTrail())

	issuer, err := auth.NewIssuer(testSecret, "", "")
	require.NoError(t, err)
	store := repository.NewMemoryStore()
	l := NewLedger(store, clock.NewManual(0), issuer, domain.DefaultDefaults(), zap.NewNop())
	l.internalAdmin = auth.Principal{}
	_, err = l.Open(ctx, custody.NewBucket(dec("10")))
	assert.ErrorIs(t, err, access.ErrForbidden)
	require.NoError(t, store.RunInTx(ctx, func(tx repository.Tx) error {
		_, ok, err := tx.Fund(ctx)
		assert.False(t, ok)
		return err
	}))
	_, err = l.Register(ctx, "Satoshi", "Nakamoto")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestLedger_OpenValidatesInputs(t *testing.T) {
	issuer, err := auth.NewIssuer(testSecret, "", "")
	require.NoError(t, err)

	bad := domain.DefaultDefaults()
	bad.DebitLimit = dec("0")
	l := NewLedger(repository.NewMemoryStore(), clock.NewManual(0), issuer, bad, zap.NewNop())
	_, err = l.Open(context.Background(), custody.NewBucket(dec("10")))
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	l = NewLedger(repository.NewMemoryStore(), clock.NewManual(0), issuer, domain.DefaultDefaults(), zap.NewNop())
	_, err = l.Open(context.Background(), custody.NewBucket(dec("-1")))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestLedger_ConcurrentDepositsSerialize(t *testing.T) {
	f := newLedgerFixture(t, domain.DefaultDefaults(), "0")
	id := f.verifiedCustomer(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Deposit(context.Background(), id, dec("1"), custody.NewBucket(dec("1")))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, "20", f.describe(t, id).Record.Balance)
	assert.Equal(t, "20", f.pool(t))
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", resultLabel(nil))
	assert.Equal(t, "limit_exceeded", resultLabel(domain.ErrLimitExceeded))
	assert.Equal(t, "error", resultLabel(context.Canceled))
}
