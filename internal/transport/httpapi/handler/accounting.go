package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/accounting"
	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
)

// AccountingServiceInterface defines the read-side operations needed by
// AccountingHandler
type AccountingServiceInterface interface {
	CompetitionTransactions(ctx context.Context, p auth.Principal, competitionID uuid.UUID, limit int) ([]*accounting.AnnotatedTransaction, error)
	Summary(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*accounting.Summary, error)
	Reconcile(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*accounting.ReconcileReport, error)
}

// AccountingHandler serves competition-scoped financial reads
type AccountingHandler struct {
	accountingService AccountingServiceInterface
	feedLimit         int
}

// NewAccountingHandler creates a new accounting handler
func NewAccountingHandler(accountingService AccountingServiceInterface, feedLimit int) *AccountingHandler {
	return &AccountingHandler{
		accountingService: accountingService,
		feedLimit:         feedLimit,
	}
}

// Transactions returns the competition's annotated feed
// (GET /competitions/{id}/transactions)
func (h *AccountingHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	limit := h.feedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	txs, err := h.accountingService.CompetitionTransactions(r.Context(), p, id, limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if txs == nil {
		txs = []*accounting.AnnotatedTransaction{}
	}

	respondJSON(w, map[string]any{"transactions": txs}, http.StatusOK)
}

// Summary returns the competition's financial overview
// (GET /competitions/{id}/summary)
func (h *AccountingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.accountingService.Summary(r.Context(), p, id)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, summary, http.StatusOK)
}

// Reconcile checks the wallet balance against the ledger, admin only
// (GET /competitions/{id}/reconcile)
func (h *AccountingHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	report, err := h.accountingService.Reconcile(r.Context(), p, id)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, report, http.StatusOK)
}
