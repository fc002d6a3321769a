package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BankAccount holds one signed position split across a debit and a credit
// balance. At most one side is non-zero.
type BankAccount struct {
	Debit  Balance
	Credit Balance
}

// NewBankAccount returns an empty account configured from defaults.
func NewBankAccount(defaults Defaults, now Epoch) BankAccount {
	return BankAccount{
		Debit:  NewBalance(defaults.DebitInterestRate, defaults.DebitLimit, now),
		Credit: NewBalance(defaults.CreditInterestRate, defaults.CreditLimit, now),
	}
}

// Update moves the account to signedTarget. Both sides are always updated so
// the dormant side accrues interest and refreshes its last update epoch.
// Interest accrued on the side being vacated is netted against the other
// side, keeping at most one side non-zero. On failure the original account
// is returned unchanged.
func (a BankAccount) Update(signedTarget decimal.Decimal, now Epoch) (BankAccount, error) {
	debit, err := a.Debit.Update(decimal.Max(signedTarget, decimal.Zero), now)
	if err != nil {
		return a, fmt.Errorf("debit side: %w", err)
	}
	credit, err := a.Credit.Update(decimal.Min(signedTarget, decimal.Zero).Abs(), now)
	if err != nil {
		return a, fmt.Errorf("credit side: %w", err)
	}
	return BankAccount{Debit: debit, Credit: credit}.netted(), nil
}

func (a BankAccount) netted() BankAccount {
	if a.Debit.Balance.IsZero() || a.Credit.Balance.IsZero() {
		return a
	}
	signed := a.SignedBalance()
	if signed.Sign() > 0 {
		a.Debit.Balance = signed
		a.Credit.Balance = decimal.Zero
	} else {
		a.Debit.Balance = decimal.Zero
		a.Credit.Balance = signed.Neg()
	}
	return a
}

// SignedBalance is positive when the customer owes the ledger.
func (a BankAccount) SignedBalance() decimal.Decimal {
	return a.Debit.Balance.Sub(a.Credit.Balance)
}

func (a BankAccount) Balance() decimal.Decimal {
	return a.SignedBalance().Abs()
}

// BalanceType returns CR for a non-positive signed balance, DR otherwise.
func (a BankAccount) BalanceType() string {
	if a.SignedBalance().Sign() <= 0 {
		return BalanceTypeCredit
	}
	return BalanceTypeDebit
}

// CreditAmount moves the position toward credit: the ledger owes the customer more.
func (a BankAccount) CreditAmount(amount decimal.Decimal, now Epoch) (BankAccount, error) {
	return a.Update(a.SignedBalance().Sub(amount), now)
}

// DebitAmount moves the position toward debit.
func (a BankAccount) DebitAmount(amount decimal.Decimal, now Epoch) (BankAccount, error) {
	return a.Update(a.SignedBalance().Add(amount), now)
}

// Validate checks the per-side bounds and that debit and credit are never
// both non-zero.
func (a BankAccount) Validate() error {
	if !a.Debit.Within() {
		return fmt.Errorf("%w: debit %s outside [0, %s)", ErrInvariantViolated, a.Debit.Balance, a.Debit.Limit)
	}
	if !a.Credit.Within() {
		return fmt.Errorf("%w: credit %s outside [0, %s)", ErrInvariantViolated, a.Credit.Balance, a.Credit.Limit)
	}
	if !a.Debit.Balance.IsZero() && !a.Credit.Balance.IsZero() {
		return fmt.Errorf("%w: debit %s and credit %s both set", ErrInvariantViolated, a.Debit.Balance, a.Credit.Balance)
	}
	return nil
}

func (a BankAccount) String() string {
	return fmt.Sprintf("%s %s", a.Balance(), a.BalanceType())
}
