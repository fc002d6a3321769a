package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

const customerColumns = `id::text, known_since, customer_since,
	debit_balance::text, debit_limit::text, debit_interest_rate::text, debit_last_update,
	credit_balance::text, credit_limit::text, credit_interest_rate::text, credit_last_update`

// PostgresStore persists the registry, pooled fund and audit log in
// PostgreSQL. Numeric columns travel as text to keep decimal precision.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store wrapper around a pgx connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunInTx executes fn within a database transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]models.CustomerRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []models.CustomerRecord
	for rows.Next() {
		id, c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, models.NewCustomerRecord(id, c))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Customer(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id.String())
	_, c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Customer{}, domain.ErrUnknownIdentity
	}
	return c, err
}

func (t *postgresTx) InsertCustomer(ctx context.Context, id uuid.UUID, c domain.Customer) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO customers (id, known_since, customer_since,
			debit_balance, debit_limit, debit_interest_rate, debit_last_update,
			credit_balance, credit_limit, credit_interest_rate, credit_last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		customerArgs(id, c)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (t *postgresTx) ReplaceCustomer(ctx context.Context, id uuid.UUID, c domain.Customer) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE customers SET known_since = $2, customer_since = $3,
			debit_balance = $4, debit_limit = $5, debit_interest_rate = $6, debit_last_update = $7,
			credit_balance = $8, credit_limit = $9, credit_interest_rate = $10, credit_last_update = $11,
			updated_at = NOW()
		WHERE id = $1`,
		customerArgs(id, c)...)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownIdentity
	}
	return nil
}

func (t *postgresTx) Fund(ctx context.Context) (models.Fund, bool, error) {
	var amount, initial string
	err := t.tx.QueryRow(ctx, `SELECT amount::text, initial_amount::text FROM pooled_fund WHERE id = 1 FOR UPDATE`).Scan(&amount, &initial)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Fund{}, false, nil
	}
	if err != nil {
		return models.Fund{}, false, fmt.Errorf("get pooled fund: %w", err)
	}

	var f models.Fund
	if f.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.Fund{}, false, fmt.Errorf("parse pooled fund: %w", err)
	}
	if f.Initial, err = decimal.NewFromString(initial); err != nil {
		return models.Fund{}, false, fmt.Errorf("parse initial fund: %w", err)
	}
	return f, true, nil
}

func (t *postgresTx) SetFund(ctx context.Context, f models.Fund) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO pooled_fund (id, amount, initial_amount, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()`,
		f.Amount.String(), f.Initial.String())
	if err != nil {
		return fmt.Errorf("set pooled fund: %w", err)
	}
	return nil
}

func (t *postgresTx) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO audit_log (customer_id, action, prev_state, next_state, epoch)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.CustomerID.String(), entry.Action, textParam(entry.PrevState), textParam(entry.NextState), int64(entry.Epoch))
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func customerArgs(id uuid.UUID, c domain.Customer) []any {
	var known *int64
	if c.KnownSince != nil {
		v := int64(*c.KnownSince)
		known = &v
	}
	a := c.Account
	return []any{
		id.String(), known, int64(c.CustomerSince),
		a.Debit.Balance.String(), a.Debit.Limit.String(), a.Debit.InterestRate.String(), int64(a.Debit.LastUpdate),
		a.Credit.Balance.String(), a.Credit.Limit.String(), a.Credit.InterestRate.String(), int64(a.Credit.LastUpdate),
	}
}

func scanCustomer(row pgx.Row) (uuid.UUID, domain.Customer, error) {
	var (
		rawID                          string
		known                          *int64
		since, debitLast, creditLast   int64
		debitBal, debitLim, debitRate  string
		creditBal, creditLim, creditRt string
	)
	if err := row.Scan(&rawID, &known, &since,
		&debitBal, &debitLim, &debitRate, &debitLast,
		&creditBal, &creditLim, &creditRt, &creditLast); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.Customer{}, err
		}
		return uuid.Nil, domain.Customer{}, fmt.Errorf("scan customer: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, domain.Customer{}, fmt.Errorf("parse customer id: %w", err)
	}
	debit, err := parseBalance(debitBal, debitLim, debitRate, debitLast)
	if err != nil {
		return uuid.Nil, domain.Customer{}, fmt.Errorf("debit side: %w", err)
	}
	credit, err := parseBalance(creditBal, creditLim, creditRt, creditLast)
	if err != nil {
		return uuid.Nil, domain.Customer{}, fmt.Errorf("credit side: %w", err)
	}

	c := domain.Customer{
		CustomerSince: domain.Epoch(since),
		Account:       domain.BankAccount{Debit: debit, Credit: credit},
	}
	if known != nil {
		k := domain.Epoch(*known)
		c.KnownSince = &k
	}
	return id, c, nil
}

func parseBalance(balance, limit, rate string, last int64) (domain.Balance, error) {
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("parse balance: %w", err)
	}
	l, err := decimal.NewFromString(limit)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("parse limit: %w", err)
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("parse interest rate: %w", err)
	}
	return domain.Balance{Balance: b, Limit: l, InterestRate: r, LastUpdate: domain.Epoch(last)}, nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
