package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/reseller"
)

// ResellerController serves the management view of resellers and their
// ledger.
type ResellerController struct {
	resellerRepo reseller.Repository
	ledgerRepo   ledger.Repository
}

// NewResellerController creates a new ResellerController.
func NewResellerController(resellerRepo reseller.Repository, ledgerRepo ledger.Repository) *ResellerController {
	return &ResellerController{
		resellerRepo: resellerRepo,
		ledgerRepo:   ledgerRepo,
	}
}

// Get handles GET /api/v1/admin/resellers/{id}
func (h *ResellerController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid reseller id", Code: "invalid_id"})
		return
	}

	res, err := h.resellerRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromReseller(res))
}

// GetTransactions handles GET /api/v1/admin/resellers/{id}/transactions
func (h *ResellerController) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid reseller id", Code: "invalid_id"})
		return
	}

	if _, err := h.resellerRepo.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	txns, err := h.ledgerRepo.ListByReseller(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		resp = append(resp, FromTransaction(txn))
	}
	writeJSON(w, http.StatusOK, resp)
}
