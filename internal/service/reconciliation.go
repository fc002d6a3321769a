package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/observability"
	"github.com/ayo6706/custodial-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Violation is one account or fund found outside its bounds.
type Violation struct {
	CustomerID uuid.UUID
	Err        error
}

type ReconciliationReport struct {
	Customers  int
	PooledFund decimal.Decimal
	Violations []Violation
}

func (r ReconciliationReport) Balanced() bool {
	return len(r.Violations) == 0
}

// ReconciliationService verifies ledger integrity invariants.
type ReconciliationService struct {
	store repository.Store
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(store repository.Store) *ReconciliationService {
	return &ReconciliationService{store: store}
}

// Check re-validates every stored account and the pooled fund.
func (s *ReconciliationService) Check(ctx context.Context) (ReconciliationReport, error) {
	records, err := s.store.ListCustomers(ctx)
	if err != nil {
		return ReconciliationReport{}, fmt.Errorf("list customers: %w", err)
	}

	report := ReconciliationReport{Customers: len(records)}
	for _, rec := range records {
		if err := rec.Customer().Account.Validate(); err != nil {
			report.Violations = append(report.Violations, Violation{CustomerID: rec.ID, Err: err})
		}
	}

	err = s.store.RunInTx(ctx, func(tx repository.Tx) error {
		fund, ok, err := tx.Fund(ctx)
		if err != nil || !ok {
			return err
		}
		report.PooledFund = fund.Amount
		if fund.Amount.IsNegative() {
			report.Violations = append(report.Violations, Violation{
				Err: fmt.Errorf("%w: pooled fund %s is negative", domain.ErrInvariantViolated, fund.Amount),
			})
		}
		return nil
	})
	if err != nil {
		return ReconciliationReport{}, fmt.Errorf("read pooled fund: %w", err)
	}
	return report, nil
}

// Run checks the ledger and logs every violation found.
func (s *ReconciliationService) Run(ctx context.Context) error {
	report, err := s.Check(ctx)
	if err != nil {
		return err
	}

	if !report.Balanced() {
		observability.AddInvariantViolations(len(report.Violations))
		for _, v := range report.Violations {
			zap.L().Error("CRITICAL: ledger invariant violated", zap.String("customer_id", v.CustomerID.String()), zap.Error(v.Err))
		}
		return nil
	}

	zap.L().Info("Ledger Balanced", zap.Int("customers", report.Customers), zap.String("pooled_fund", report.PooledFund.String()))
	return nil
}
