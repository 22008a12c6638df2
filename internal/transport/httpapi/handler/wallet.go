package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/ledger"
	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/pkg/money"
)

// WalletServiceInterface defines the wallet operations needed by WalletHandler
type WalletServiceInterface interface {
	TopUp(ctx context.Context, p auth.Principal, amount money.Amount) (money.Amount, error)
	Withdraw(ctx context.Context, p auth.Principal, amount money.Amount) (money.Amount, error)
	Balance(ctx context.Context, p auth.Principal) (money.Amount, error)
	Transactions(ctx context.Context, p auth.Principal, limit int) ([]*ledger.Transaction, error)
}

// WalletHandler handles personal wallet HTTP requests
type WalletHandler struct {
	walletService WalletServiceInterface
	feedLimit     int
}

// NewWalletHandler creates a new wallet handler. feedLimit caps the
// transaction feed page size.
func NewWalletHandler(walletService WalletServiceInterface, feedLimit int) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		feedLimit:     feedLimit,
	}
}

// AmountRequest represents a request carrying a decimal euro amount
type AmountRequest struct {
	Amount money.Amount `json:"amount"`
}

// BalanceResponse represents a wallet balance
type BalanceResponse struct {
	Balance money.Amount `json:"balance"`
}

// GetBalance returns the wallet balance (GET /wallet/balance)
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	balance, err := h.walletService.Balance(r.Context(), p)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, BalanceResponse{Balance: balance}, http.StatusOK)
}

// TopUp credits the wallet (POST /wallet/topup)
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}

	newBalance, err := h.walletService.TopUp(r.Context(), p, amount)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, BalanceResponse{Balance: newBalance}, http.StatusOK)
}

// Withdraw debits the wallet (POST /wallet/withdraw)
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	amount, ok := decodeAmount(w, r)
	if !ok {
		return
	}

	newBalance, err := h.walletService.Withdraw(r.Context(), p, amount)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, BalanceResponse{Balance: newBalance}, http.StatusOK)
}

// GetTransactions returns the personal transaction feed (GET /transactions)
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
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

	txs, err := h.walletService.Transactions(r.Context(), p, limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if txs == nil {
		txs = []*ledger.Transaction{}
	}

	respondJSON(w, map[string]any{"transactions": txs}, http.StatusOK)
}

// decodeAmount parses the request body and rejects malformed or
// sub-cent amounts before the service sees them.
func decodeAmount(w http.ResponseWriter, r *http.Request) (money.Amount, bool) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, money.ErrTooPrecise) || errors.Is(err, money.ErrMalformed) {
			respondAppError(w, apperrors.InvalidAmount(err.Error()))
			return 0, false
		}
		respondError(w, "invalid request body", http.StatusBadRequest)
		return 0, false
	}
	return req.Amount, true
}
