// Package custody models the fungible funds moved in and out of the pooled
// fund: buckets carried by callers and the vault that holds the pool.
package custody

import (
	"fmt"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Bucket is a transient amount of funds held by a caller.
type Bucket struct {
	Amount decimal.Decimal `json:"amount"`
}

// NewBucket returns a bucket holding amount.
func NewBucket(amount decimal.Decimal) Bucket {
	return Bucket{Amount: amount}
}

// Take splits amount off the bucket.
func (b *Bucket) Take(amount decimal.Decimal) (Bucket, error) {
	if amount.Sign() <= 0 {
		return Bucket{}, domain.ErrInvalidAmount
	}
	if amount.GreaterThan(b.Amount) {
		return Bucket{}, fmt.Errorf("%w: requested %s, available %s", domain.ErrInsufficientFunds, amount, b.Amount)
	}
	b.Amount = b.Amount.Sub(amount)
	return Bucket{Amount: amount}, nil
}

func (b Bucket) IsEmpty() bool {
	return b.Amount.IsZero()
}

// Vault holds the pooled fund.
type Vault struct {
	amount decimal.Decimal
}

// NewVault returns a vault holding amount.
func NewVault(amount decimal.Decimal) *Vault {
	return &Vault{amount: amount}
}

func (v *Vault) Amount() decimal.Decimal {
	return v.amount
}

// Put moves the whole bucket into the vault.
func (v *Vault) Put(b Bucket) {
	v.amount = v.amount.Add(b.Amount)
}

// Take removes exactly amount from the vault.
func (v *Vault) Take(amount decimal.Decimal) (Bucket, error) {
	if amount.Sign() <= 0 {
		return Bucket{}, domain.ErrInvalidAmount
	}
	if amount.GreaterThan(v.amount) {
		return Bucket{}, fmt.Errorf("%w: requested %s, pooled %s", domain.ErrInsufficientFunds, amount, v.amount)
	}
	v.amount = v.amount.Sub(amount)
	return Bucket{Amount: amount}, nil
}
