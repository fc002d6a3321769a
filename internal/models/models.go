package models

import (
	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BalanceRecord struct {
	Balance      decimal.Decimal `json:"balance"`
	Limit        decimal.Decimal `json:"limit"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	LastUpdate   uint64          `json:"last_update"`
}

type CustomerRecord struct {
	ID            uuid.UUID     `json:"id"`
	State         string        `json:"state"`
	KnownSince    *uint64       `json:"known_since"`
	CustomerSince uint64        `json:"customer_since"`
	Debit         BalanceRecord `json:"debit"`
	Credit        BalanceRecord `json:"credit"`
	Balance       string        `json:"balance"`
	BalanceType   string        `json:"balance_type"`
}

// Fund is the pooled fund total and the amount it was seeded with.
type Fund struct {
	Amount  decimal.Decimal `json:"amount"`
	Initial decimal.Decimal `json:"initial_amount"`
}

type AuditEntry struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Action     string    `json:"action"`
	PrevState  string    `json:"prev_state"`
	NextState  string    `json:"next_state"`
	Epoch      uint64    `json:"epoch"`
}

// NewCustomerRecord flattens a customer into its stored form.
func NewCustomerRecord(id uuid.UUID, c domain.Customer) CustomerRecord {
	rec := CustomerRecord{
		ID:            id,
		State:         c.State(),
		CustomerSince: uint64(c.CustomerSince),
		Debit:         newBalanceRecord(c.Account.Debit),
		Credit:        newBalanceRecord(c.Account.Credit),
		Balance:       c.Account.Balance().String(),
		BalanceType:   c.Account.BalanceType(),
	}
	if c.KnownSince != nil {
		known := uint64(*c.KnownSince)
		rec.KnownSince = &known
	}
	return rec
}

// Customer rebuilds the domain record. Derived fields are ignored.
func (r CustomerRecord) Customer() domain.Customer {
	c := domain.Customer{
		CustomerSince: domain.Epoch(r.CustomerSince),
		Account: domain.BankAccount{
			Debit:  r.Debit.balance(),
			Credit: r.Credit.balance(),
		},
	}
	if r.KnownSince != nil {
		known := domain.Epoch(*r.KnownSince)
		c.KnownSince = &known
	}
	return c
}

func newBalanceRecord(b domain.Balance) BalanceRecord {
	return BalanceRecord{
		Balance:      b.Balance,
		Limit:        b.Limit,
		InterestRate: b.InterestRate,
		LastUpdate:   uint64(b.LastUpdate),
	}
}

func (r BalanceRecord) balance() domain.Balance {
	return domain.Balance{
		Balance:      r.Balance,
		Limit:        r.Limit,
		InterestRate: r.InterestRate,
		LastUpdate:   domain.Epoch(r.LastUpdate),
	}
}
