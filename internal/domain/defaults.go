package domain

import "github.com/shopspring/decimal"

// Defaults configures every new customer's account.
type Defaults struct {
	CreditInterestRate decimal.Decimal
	CreditLimit        decimal.Decimal
	DebitInterestRate  decimal.Decimal
	DebitLimit         decimal.Decimal
}

// DefaultDefaults returns the stock rates and limits.
func DefaultDefaults() Defaults {
	return Defaults{
		CreditInterestRate: decimal.RequireFromString("0.01"),
		CreditLimit:        decimal.NewFromInt(1_000_000),
		DebitInterestRate:  decimal.RequireFromString("0.05"),
		DebitLimit:         decimal.NewFromInt(1_000),
	}
}

// Validate rejects negative rates and non-positive limits.
func (d Defaults) Validate() error {
	switch {
	case d.CreditInterestRate.IsNegative():
		return ValidationError{Field: "credit_interest_rate", Message: "must not be negative"}
	case d.DebitInterestRate.IsNegative():
		return ValidationError{Field: "debit_interest_rate", Message: "must not be negative"}
	case d.CreditLimit.Sign() <= 0:
		return ValidationError{Field: "credit_limit", Message: "must be greater than zero"}
	case d.DebitLimit.Sign() <= 0:
		return ValidationError{Field: "debit_limit", Message: "must be greater than zero"}
	}
	return nil
}
