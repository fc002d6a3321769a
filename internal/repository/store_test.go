package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRollback = errors.New("rollback")

// runStoreContract exercises the behavior every Store backend must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("insert then read back", func(t *testing.T) {
		id := uuid.New()
		c := domain.NewCustomer(domain.DefaultDefaults(), 4)

		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
			return tx.InsertCustomer(ctx, id, c)
		}))

		var got domain.Customer
		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
			var err error
			got, err = tx.Customer(ctx, id)
			return err
		}))
		assert.Equal(t, c.String(), got.String())
		assert.True(t, got.Account.Credit.Limit.Equal(c.Account.Credit.Limit))
		assert.True(t, got.Account.Debit.InterestRate.Equal(c.Account.Debit.InterestRate))
	})

	t.Run("duplicate insert rejected", func(t *testing.T) {
		id := uuid.New()
		c := domain.NewCustomer(domain.DefaultDefaults(), 0)
		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error { return tx.InsertCustomer(ctx, id, c) }))

		err := store.RunInTx(ctx, func(tx Tx) error { return tx.InsertCustomer(ctx, id, c) })
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("unknown customer", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx Tx) error {
			_, err := tx.Customer(ctx, uuid.New())
			return err
		})
		assert.ErrorIs(t, err, domain.ErrUnknownIdentity)

		err = store.RunInTx(ctx, func(tx Tx) error {
			return tx.ReplaceCustomer(ctx, uuid.New(), domain.NewCustomer(domain.DefaultDefaults(), 0))
		})
		assert.ErrorIs(t, err, domain.ErrUnknownIdentity)
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		id := uuid.New()
		c := domain.NewCustomer(domain.DefaultDefaults(), 0)
		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error { return tx.InsertCustomer(ctx, id, c) }))

		credited, err := c.Account.CreditAmount(decimal.NewFromInt(50), 1)
		require.NoError(t, err)

		err = store.RunInTx(ctx, func(tx Tx) error {
			if err := tx.ReplaceCustomer(ctx, id, c.WithAccount(credited)); err != nil {
				return err
			}
			return errRollback
		})
		assert.ErrorIs(t, err, errRollback)

		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
			got, err := tx.Customer(ctx, id)
			if err != nil {
				return err
			}
			assert.True(t, got.Account.SignedBalance().IsZero())
			return nil
		}))
	})

	t.Run("fund set and replaced", func(t *testing.T) {
		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
			return tx.SetFund(ctx, models.Fund{Amount: decimal.RequireFromString("250.5"), Initial: decimal.NewFromInt(300)})
		}))
		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
			f, ok, err := tx.Fund(ctx)
			if err != nil {
				return err
			}
			assert.True(t, ok)
			assert.Equal(t, "250.5", f.Amount.String())
			assert.Equal(t, "300", f.Initial.String())
			return tx.AppendAudit(ctx, models.AuditEntry{CustomerID: uuid.New(), Action: domain.AuditActionDeposit, Epoch: 2})
		}))
	})

	t.Run("list includes committed customers", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, store.RunInTx(ctx, func(tx Tx) error {
			return tx.InsertCustomer(ctx, id, domain.NewCustomer(domain.DefaultDefaults(), 0))
		}))

		list, err := store.ListCustomers(ctx)
		require.NoError(t, err)
		var found bool
		for _, rec := range list {
			if rec.ID == id {
				found = true
				assert.Equal(t, domain.CustomerStateUnverified, rec.State)
				assert.Equal(t, domain.BalanceTypeCredit, rec.BalanceType)
			}
		}
		assert.True(t, found)
	})
}
