package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/custodial-ledger/internal/custody"
	"github.com/shopspring/decimal"
)

type FundsHandler struct {
	ledger Ledger
}

func NewFundsHandler(ledger Ledger) *FundsHandler {
	return &FundsHandler{ledger: ledger}
}

// Deposit credits the calling customer. The caller brings funds and gets
// back whatever was not deposited.
func (h *FundsHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	customerID, err := requestCustomer(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Funds  decimal.Decimal `json:"funds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	remaining, err := h.ledger.Deposit(r.Context(), customerID, req.Amount, custody.NewBucket(req.Funds))
	if err != nil {
		respondLedgerError(w, r, "deposit", err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]decimal.Decimal{"remaining": remaining.Amount})
}

// Withdraw debits the calling customer and pays out of the pooled fund.
func (h *FundsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	customerID, err := requestCustomer(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	withdrawn, err := h.ledger.Withdraw(r.Context(), customerID, req.Amount)
	if err != nil {
		respondLedgerError(w, r, "withdraw", err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]decimal.Decimal{"withdrawn": withdrawn.Amount})
}

func (h *FundsHandler) PooledFund(w http.ResponseWriter, r *http.Request) {
	fund, err := h.ledger.PooledFund(r.Context())
	if err != nil {
		respondLedgerError(w, r, "pooled-fund", err)
		return
	}
	RespondJSON(w, http.StatusOK, fund)
}
