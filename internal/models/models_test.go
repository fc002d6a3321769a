package models

import (
	"encoding/json"
	"testing"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRecord_PreservesCustomer(t *testing.T) {
	c, err := domain.NewCustomer(domain.DefaultDefaults(), 2).MarkKnown(5)
	require.NoError(t, err)
	account, err := c.Account.CreditAmount(decimal.RequireFromString("120.75"), 6)
	require.NoError(t, err)
	c = c.WithAccount(account)

	id := uuid.New()
	rec := NewCustomerRecord(id, c)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, domain.CustomerStateVerified, rec.State)
	assert.Equal(t, "120.75", rec.Balance)
	assert.Equal(t, domain.BalanceTypeCredit, rec.BalanceType)

	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded CustomerRecord
	require.NoError(t, json.Unmarshal(payload, &decoded))

	back := decoded.Customer()
	require.NotNil(t, back.KnownSince)
	assert.Equal(t, domain.Epoch(5), *back.KnownSince)
	assert.Equal(t, domain.Epoch(2), back.CustomerSince)
	assert.True(t, back.Account.SignedBalance().Equal(c.Account.SignedBalance()))
	assert.Equal(t, domain.Epoch(6), back.Account.Credit.LastUpdate)
	assert.True(t, back.Account.Debit.Limit.Equal(c.Account.Debit.Limit))
	assert.True(t, back.Account.Credit.InterestRate.Equal(c.Account.Credit.InterestRate))
}

func TestCustomerRecord_UnverifiedHasNoKnownSince(t *testing.T) {
	rec := NewCustomerRecord(uuid.New(), domain.NewCustomer(domain.DefaultDefaults(), 0))
	assert.Nil(t, rec.KnownSince)
	assert.Equal(t, domain.CustomerStateUnverified, rec.State)
	assert.Nil(t, rec.Customer().KnownSince)
}
