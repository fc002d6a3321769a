package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CustomerHandler struct {
	ledger Ledger
}

func NewCustomerHandler(ledger Ledger) *CustomerHandler {
	return &CustomerHandler{ledger: ledger}
}

// Register creates an unverified customer and returns its badge.
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	reg, err := h.ledger.Register(r.Context(), req.FirstName, req.LastName)
	if err != nil {
		respondLedgerError(w, r, "register", err)
		return
	}
	RespondJSON(w, http.StatusCreated, reg)
}

func (h *CustomerHandler) Describe(w http.ResponseWriter, r *http.Request) {
	id, ok := customerIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.ledger.Describe(r.Context(), id)
	if err != nil {
		respondLedgerError(w, r, "describe", err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

// Verify marks the customer as known.
func (h *CustomerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := customerIDParam(w, r)
	if !ok {
		return
	}
	if err := h.ledger.MarkKnown(r.Context(), id); err != nil {
		respondLedgerError(w, r, "verify", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func customerIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-customer-id", "Invalid customer ID")
		return uuid.Nil, false
	}
	return id, true
}
