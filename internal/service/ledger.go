package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayo6706/custodial-ledger/internal/access"
	"github.com/ayo6706/custodial-ledger/internal/auth"
	"github.com/ayo6706/custodial-ledger/internal/clock"
	"github.com/ayo6706/custodial-ledger/internal/custody"
	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/ayo6706/custodial-ledger/internal/observability"
	"github.com/ayo6706/custodial-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNotOpen = errors.New("ledger: not opened")

// CredentialIssuer mints the badges handed out by the ledger.
type CredentialIssuer interface {
	IssueCustomerBadge(id uuid.UUID, reg domain.Registration) (string, error)
	IssueAdminBadge() (string, error)
}

// Registration is returned to a newly registered customer.
type Registration struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	Credential     string    `json:"credential"`
	CredentialType string    `json:"credential_type"`
}

// CustomerView is the privileged description of a customer.
type CustomerView struct {
	CustomerID uuid.UUID             `json:"customer_id"`
	Snapshot   string                `json:"snapshot"`
	Record     models.CustomerRecord `json:"record"`
}

// Ledger owns the customer registry and the pooled fund. Calls are
// serialized and each one commits through a single store transaction.
type Ledger struct {
	mu            sync.Mutex
	store         repository.Store
	clock         clock.Clock
	issuer        CredentialIssuer
	defaults      domain.Defaults
	logger        *zap.Logger
	internalAdmin auth.Principal
	opened        bool
}

func NewLedger(store repository.Store, clk clock.Clock, issuer CredentialIssuer, defaults domain.Defaults, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.L()
	}
	return &Ledger{
		store:         store,
		clock:         clk,
		issuer:        issuer,
		defaults:      defaults,
		logger:        logger,
		internalAdmin: auth.InternalAdmin(),
	}
}

// Open seeds the pooled fund with initial unless a fund was already
// persisted, and returns a freshly minted admin credential.
func (l *Ledger) Open(ctx context.Context, initial custody.Bucket) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := access.Authorize(nil, access.OpConstruct); err != nil {
		return "", err
	}
	if err := l.defaults.Validate(); err != nil {
		return "", fmt.Errorf("ledger defaults: %w", err)
	}
	if initial.Amount.IsNegative() {
		return "", fmt.Errorf("%w: initial fund %s", domain.ErrInvalidAmount, initial.Amount)
	}
	if err := l.authorizeMint(); err != nil {
		return "", err
	}

	var fund models.Fund
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		existing, ok, err := tx.Fund(ctx)
		if err != nil {
			return err
		}
		if ok {
			fund = existing
			return nil
		}
		fund = models.Fund{Amount: initial.Amount, Initial: initial.Amount}
		return tx.SetFund(ctx, fund)
	})
	if err != nil {
		return "", fmt.Errorf("open ledger: %w", err)
	}

	credential, err := l.issuer.IssueAdminBadge()
	if err != nil {
		return "", fmt.Errorf("issue admin credential: %w", err)
	}

	l.opened = true
	observability.SetPooledFund(fund.Amount.InexactFloat64())
	l.logger.Info("ledger opened",
		zap.String("pooled_fund", fund.Amount.String()),
		zap.String("initial_fund", fund.Initial.String()),
	)
	return credential, nil
}

// InternalAdmin returns the admin principal the ledger keeps for itself.
func (l *Ledger) InternalAdmin() auth.Principal {
	return l.internalAdmin
}

// authorizeMint presents the retained admin principal before any badge is
// issued.
func (l *Ledger) authorizeMint() error {
	if err := access.Authorize(&l.internalAdmin, access.OpMintBadge); err != nil {
		return fmt.Errorf("mint badge: %w", err)
	}
	return nil
}

func (l *Ledger) Register(ctx context.Context, firstName, lastName string) (Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return Registration{}, ErrNotOpen
	}
	reg, err := domain.NewRegistration(firstName, lastName)
	if err != nil {
		l.record("register", err)
		return Registration{}, err
	}

	now := l.clock.Now()
	id := uuid.New()
	customer := domain.NewCustomer(l.defaults, now)

	if err := l.authorizeMint(); err != nil {
		l.record("register", err)
		return Registration{}, err
	}
	credential, err := l.issuer.IssueCustomerBadge(id, reg)
	if err != nil {
		l.record("register", err)
		return Registration{}, fmt.Errorf("issue customer credential: %w", err)
	}

	err = l.store.RunInTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertCustomer(ctx, id, customer); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, models.AuditEntry{
			CustomerID: id,
			Action:     domain.AuditActionRegister,
			NextState:  customer.String(),
			Epoch:      uint64(now),
		})
	})
	l.record("register", err)
	if err != nil {
		return Registration{}, err
	}

	observability.IncrementCustomersRegistered()
	l.logger.Info("customer registered",
		zap.String("customer_id", id.String()),
		zap.Uint64("epoch", uint64(now)),
	)
	return Registration{
		CustomerID:     id,
		Credential:     credential,
		CredentialType: domain.CredentialTypeCustomer,
	}, nil
}

// Deposit moves amount out of funds into the pooled fund and credits the
// customer. The remainder of funds is returned; on failure funds comes back
// untouched.
func (l *Ledger) Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, funds custody.Bucket) (custody.Bucket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return funds, ErrNotOpen
	}
	now := l.clock.Now()
	var (
		remaining custody.Bucket
		next      domain.Customer
		pool      decimal.Decimal
	)

	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		remaining = funds
		customer, err := tx.Customer(ctx, id)
		if err != nil {
			return err
		}
		if amount.GreaterThan(funds.Amount) {
			return fmt.Errorf("%w: deposit %s exceeds provided %s", domain.ErrInsufficientFunds, amount, funds.Amount)
		}
		if amount.Sign() <= 0 {
			return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
		}
		if !customer.IsKnown() {
			return domain.ErrNotVerified
		}

		l.logAccrual(id, customer.Account, now)
		account, err := customer.Account.CreditAmount(amount, now)
		if err != nil {
			return err
		}

		vault, err := l.vault(ctx, tx)
		if err != nil {
			return err
		}
		taken, err := remaining.Take(amount)
		if err != nil {
			return err
		}
		vault.Put(taken)

		next = customer.WithAccount(account)
		pool = vault.Amount()
		return l.commit(ctx, tx, id, domain.AuditActionDeposit, customer, next, vault, now)
	})
	l.record("deposit", err)
	if err != nil {
		return funds, err
	}

	observability.SetPooledFund(pool.InexactFloat64())
	l.logCustomer("deposit applied", id, amount, next)
	return remaining, nil
}

// Withdraw takes amount out of the pooled fund and debits the customer.
func (l *Ledger) Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (custody.Bucket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return custody.Bucket{}, ErrNotOpen
	}
	now := l.clock.Now()
	var (
		withdrawn custody.Bucket
		next      domain.Customer
		pool      decimal.Decimal
	)

	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.Customer(ctx, id)
		if err != nil {
			return err
		}
		vault, err := l.vault(ctx, tx)
		if err != nil {
			return err
		}
		if amount.GreaterThan(vault.Amount()) {
			return fmt.Errorf("%w: withdrawal %s exceeds pooled %s", domain.ErrInsufficientFunds, amount, vault.Amount())
		}
		if amount.Sign() <= 0 {
			return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
		}
		if !customer.IsKnown() {
			return domain.ErrNotVerified
		}

		l.logAccrual(id, customer.Account, now)
		account, err := customer.Account.DebitAmount(amount, now)
		if err != nil {
			return err
		}
		withdrawn, err = vault.Take(amount)
		if err != nil {
			return err
		}

		next = customer.WithAccount(account)
		pool = vault.Amount()
		return l.commit(ctx, tx, id, domain.AuditActionWithdraw, customer, next, vault, now)
	})
	l.record("withdraw", err)
	if err != nil {
		return custody.Bucket{}, err
	}

	observability.SetPooledFund(pool.InexactFloat64())
	l.logCustomer("withdrawal applied", id, amount, next)
	return withdrawn, nil
}

// Describe returns the customer snapshot.
func (l *Ledger) Describe(ctx context.Context, id uuid.UUID) (CustomerView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return CustomerView{}, ErrNotOpen
	}

	var view CustomerView
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.Customer(ctx, id)
		if err != nil {
			return err
		}
		view = CustomerView{
			CustomerID: id,
			Snapshot:   customer.String(),
			Record:     models.NewCustomerRecord(id, customer),
		}
		return nil
	})
	l.record("describe", err)
	return view, err
}

// MarkKnown verifies the customer. It succeeds once per customer.
func (l *Ledger) MarkKnown(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.opened {
		return ErrNotOpen
	}

	now := l.clock.Now()
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.Customer(ctx, id)
		if err != nil {
			return err
		}
		known, err := customer.MarkKnown(now)
		if err != nil {
			return err
		}
		if err := tx.ReplaceCustomer(ctx, id, known); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, models.AuditEntry{
			CustomerID: id,
			Action:     domain.AuditActionMarkKnown,
			PrevState:  customer.State(),
			NextState:  known.State(),
			Epoch:      uint64(now),
		})
	})
	l.record("mark_known", err)
	if err != nil {
		return err
	}

	l.logger.Info("customer verified",
		zap.String("customer_id", id.String()),
		zap.Uint64("known_since", uint64(now)),
	)
	return nil
}

// PooledFund reports the current pool and the amount it was seeded with.
func (l *Ledger) PooledFund(ctx context.Context) (models.Fund, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var fund models.Fund
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		f, ok, err := tx.Fund(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotOpen
		}
		fund = f
		return nil
	})
	return fund, err
}

func (l *Ledger) vault(ctx context.Context, tx repository.Tx) (*custody.Vault, error) {
	fund, ok, err := tx.Fund(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOpen
	}
	return custody.NewVault(fund.Amount), nil
}

func (l *Ledger) commit(ctx context.Context, tx repository.Tx, id uuid.UUID, action string, prev, next domain.Customer, vault *custody.Vault, now domain.Epoch) error {
	if err := tx.ReplaceCustomer(ctx, id, next); err != nil {
		return err
	}
	fund, _, err := tx.Fund(ctx)
	if err != nil {
		return err
	}
	fund.Amount = vault.Amount()
	if err := tx.SetFund(ctx, fund); err != nil {
		return err
	}
	return tx.AppendAudit(ctx, models.AuditEntry{
		CustomerID: id,
		Action:     action,
		PrevState:  prev.Account.String(),
		NextState:  next.Account.String(),
		Epoch:      uint64(now),
	})
}

func (l *Ledger) logAccrual(id uuid.UUID, account domain.BankAccount, now domain.Epoch) {
	if ce := l.logger.Check(zap.DebugLevel, "accruing interest"); ce != nil {
		ce.Write(
			zap.String("customer_id", id.String()),
			zap.Uint64("debit_elapsed", account.Debit.Elapsed(now)),
			zap.String("debit_interest", account.Debit.Accrued(now).String()),
			zap.Uint64("credit_elapsed", account.Credit.Elapsed(now)),
			zap.String("credit_interest", account.Credit.Accrued(now).String()),
		)
	}
}

func (l *Ledger) logCustomer(msg string, id uuid.UUID, amount decimal.Decimal, c domain.Customer) {
	l.logger.Info(msg,
		zap.String("customer_id", id.String()),
		zap.String("amount", amount.String()),
		zap.String("signed_balance", c.Account.SignedBalance().String()),
		zap.String("balance_type", c.Account.BalanceType()),
		zap.String("state", c.State()),
	)
}

func (l *Ledger) record(operation string, err error) {
	observability.IncrementLedgerOperation(operation, resultLabel(err))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownIdentity):
		return "unknown_identity"
	case errors.Is(err, domain.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, domain.ErrAlreadyKnown):
		return "already_known"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, domain.ErrLimitExceeded):
		return "limit_exceeded"
	default:
		return "error"
	}
}
