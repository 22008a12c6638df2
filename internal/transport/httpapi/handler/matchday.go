package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/matchday"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/internal/wallet"
	"github.com/fantapay/fantapay/pkg/money"
)

// MatchdayServiceInterface defines the matchday operations needed by
// PaymentHandler
type MatchdayServiceInterface interface {
	PayMatchdays(ctx context.Context, p auth.Principal, competitionID uuid.UUID, matchdays []int) (*matchday.BatchResult, error)
	PaymentStatus(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*matchday.StatusView, error)
	AdminPaymentTable(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*matchday.AdminTable, error)
}

// FeeServiceInterface defines the competition fee transfer needed by
// PaymentHandler
type FeeServiceInterface interface {
	PayCompetitionFee(ctx context.Context, p auth.Principal, competitionID uuid.UUID, amount money.Amount) (*wallet.PaymentResult, error)
}

// PaymentHandler handles competition payment HTTP requests: free-amount
// fee transfers and matchday batches.
type PaymentHandler struct {
	matchdayService MatchdayServiceInterface
	feeService      FeeServiceInterface
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(matchdayService MatchdayServiceInterface, feeService FeeServiceInterface) *PaymentHandler {
	return &PaymentHandler{
		matchdayService: matchdayService,
		feeService:      feeService,
	}
}

// PayFeeResponse reports both sides of a completed fee transfer
type PayFeeResponse struct {
	NewUserBalance        money.Amount `json:"new_user_balance"`
	NewCompetitionBalance money.Amount `json:"new_competition_balance"`
}

// PayFee transfers a free amount into the competition wallet
// (POST /competitions/{id}/pay)
func (h *PaymentHandler) PayFee(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}

	result, err := h.feeService.PayCompetitionFee(r.Context(), p, id, amount)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, PayFeeResponse{
		NewUserBalance:        result.NewUserBalance,
		NewCompetitionBalance: result.NewCompetitionBalance,
	}, http.StatusOK)
}

// PayMatchdaysRequest represents the batch payment request body
type PayMatchdaysRequest struct {
	Matchdays []int `json:"matchdays"`
}

// PayMatchdays settles a batch of matchdays
// (POST /competitions/{id}/matchdays/pay)
func (h *PaymentHandler) PayMatchdays(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req PayMatchdaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.matchdayService.PayMatchdays(r.Context(), p, id, req.Matchdays)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, result, http.StatusOK)
}

// PaymentStatus returns the principal's own schedule
// (GET /competitions/{id}/matchdays)
func (h *PaymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.matchdayService.PaymentStatus(r.Context(), p, id)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, view, http.StatusOK)
}

// PaymentTable returns the admin-only per-participant table
// (GET /competitions/{id}/payment-table)
func (h *PaymentHandler) PaymentTable(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	table, err := h.matchdayService.AdminPaymentTable(r.Context(), p, id)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, table, http.StatusOK)
}
