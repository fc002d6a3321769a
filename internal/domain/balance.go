package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Epoch is the monotonic logical time unit interest accrues over.
type Epoch uint64

// Balance is one side of a bank account: a non-negative amount bounded by a
// ceiling that accrues simple interest every time it is updated.
type Balance struct {
	Balance      decimal.Decimal
	Limit        decimal.Decimal
	InterestRate decimal.Decimal
	LastUpdate   Epoch
}

// NewBalance returns an empty balance last updated at now.
func NewBalance(interestRate, limit decimal.Decimal, now Epoch) Balance {
	return Balance{
		Balance:      decimal.Zero,
		Limit:        limit,
		InterestRate: interestRate,
		LastUpdate:   now,
	}
}

// Elapsed returns the epochs since the last update. A clock reading earlier
// than LastUpdate yields zero.
func (b Balance) Elapsed(now Epoch) uint64 {
	if now < b.LastUpdate {
		return 0
	}
	return uint64(now - b.LastUpdate)
}

// Accrued returns the interest owed on the current balance at now.
func (b Balance) Accrued(now Epoch) decimal.Decimal {
	elapsed := decimal.NewFromInt(int64(b.Elapsed(now)))
	return b.Balance.Mul(b.InterestRate).Mul(elapsed)
}

// Update returns a new balance holding target plus the interest accrued on
// the prior balance. The receiver is left untouched.
//
// Callers pass the intended post-interest target, not a delta.
func (b Balance) Update(target decimal.Decimal, now Epoch) (Balance, error) {
	if target.IsNegative() {
		return b, fmt.Errorf("%w: %s", ErrNegativeBalance, target)
	}

	result := b.Accrued(now).Add(target)
	if result.GreaterThanOrEqual(b.Limit) {
		return b, fmt.Errorf("%w: %s >= %s", ErrLimitExceeded, result, b.Limit)
	}

	next := b
	next.Balance = result
	next.LastUpdate = now
	return next, nil
}

// Within reports whether 0 <= balance < limit.
func (b Balance) Within() bool {
	return !b.Balance.IsNegative() && b.Balance.LessThan(b.Limit)
}
