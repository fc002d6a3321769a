package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/custodial-ledger/internal/api/middleware"
	"github.com/ayo6706/custodial-ledger/internal/api/problem"
	"github.com/ayo6706/custodial-ledger/internal/custody"
	"github.com/ayo6706/custodial-ledger/internal/domain"
	"github.com/ayo6706/custodial-ledger/internal/models"
	"github.com/ayo6706/custodial-ledger/internal/repository"
	"github.com/ayo6706/custodial-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the orchestrator surface the handlers dispatch to.
type Ledger interface {
	Register(ctx context.Context, firstName, lastName string) (service.Registration, error)
	Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, funds custody.Bucket) (custody.Bucket, error)
	Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (custody.Bucket, error)
	Describe(ctx context.Context, id uuid.UUID) (service.CustomerView, error)
	MarkKnown(ctx context.Context, id uuid.UUID) error
	PooledFund(ctx context.Context) (models.Fund, error)
}

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

type ledgerError struct {
	target      error
	status      int
	problemType string
}

var ledgerErrors = []ledgerError{
	{domain.ErrUnknownIdentity, http.StatusNotFound, "ledger/unknown-identity"},
	{domain.ErrNotVerified, http.StatusForbidden, "ledger/not-verified"},
	{domain.ErrAlreadyKnown, http.StatusConflict, "ledger/already-known"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "ledger/invalid-amount"},
	{domain.ErrInvalidName, http.StatusBadRequest, "ledger/invalid-name"},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "ledger/insufficient-funds"},
	{domain.ErrLimitExceeded, http.StatusUnprocessableEntity, "ledger/limit-exceeded"},
	{repository.ErrTxConflict, http.StatusConflict, "ledger/concurrent-update"},
	{service.ErrNotOpen, http.StatusServiceUnavailable, "ledger/not-open"},
}

// mapLedgerError resolves a ledger error to its problem status and type.
func mapLedgerError(err error) (status int, problemType string, ok bool) {
	for _, le := range ledgerErrors {
		if errors.Is(err, le.target) {
			return le.status, le.problemType, true
		}
	}
	return 0, "", false
}

func respondLedgerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if status, pType, ok := mapLedgerError(err); ok {
		RespondError(w, r, status, pType, err.Error())
		return
	}
	zap.L().Error(op+" failed", zap.Error(err), zap.String("trace_id", middleware.TraceIDFromContext(r.Context())))
	RespondError(w, r, http.StatusInternalServerError, "ledger/"+op+"-failed", "ledger "+op+" failed")
}

// requestCustomer returns the customer identity carried by the caller's badge.
func requestCustomer(r *http.Request) (uuid.UUID, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || !p.IsCustomer() {
		return uuid.Nil, errors.New("missing customer in auth context")
	}
	return p.CustomerID, nil
}
