package domain

import (
	"fmt"
	"strconv"
)

// Customer is a registry record: KYC state, creation epoch and the account.
type Customer struct {
	KnownSince    *Epoch
	CustomerSince Epoch
	Account       BankAccount
}

// NewCustomer returns an unverified customer with a fresh account.
func NewCustomer(defaults Defaults, now Epoch) Customer {
	return Customer{
		KnownSince:    nil,
		CustomerSince: now,
		Account:       NewBankAccount(defaults, now),
	}
}

func (c Customer) IsKnown() bool {
	return c.KnownSince != nil
}

// State returns the lifecycle state name.
func (c Customer) State() string {
	if c.IsKnown() {
		return CustomerStateVerified
	}
	return CustomerStateUnverified
}

// MarkKnown returns a verified copy of c. Verification happens exactly once.
func (c Customer) MarkKnown(now Epoch) (Customer, error) {
	if c.IsKnown() {
		return c, ErrAlreadyKnown
	}
	known := now
	next := c
	next.KnownSince = &known
	return next, nil
}

// WithAccount returns a copy of c holding account.
func (c Customer) WithAccount(account BankAccount) Customer {
	next := c
	next.Account = account
	if c.KnownSince != nil {
		known := *c.KnownSince
		next.KnownSince = &known
	}
	return next
}

func (c Customer) String() string {
	known := "none"
	if c.KnownSince != nil {
		known = strconv.FormatUint(uint64(*c.KnownSince), 10)
	}
	return fmt.Sprintf("Customer{known_since: %s, customer_since: %d, account: %s}", known, c.CustomerSince, c.Account)
}
