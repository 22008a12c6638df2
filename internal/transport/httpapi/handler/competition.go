package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/pkg/money"
)

// CompetitionServiceInterface defines the competition operations needed
// by CompetitionHandler
type CompetitionServiceInterface interface {
	Create(ctx context.Context, p auth.Principal, name string, fin competition.FinanceConfig) (*competition.Competition, error)
	Join(ctx context.Context, p auth.Principal, inviteCode string) (*competition.Competition, error)
	Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*competition.Competition, error)
	ListMine(ctx context.Context, p auth.Principal) ([]*competition.Competition, error)
	UpdateStandings(ctx context.Context, p auth.Principal, id uuid.UUID, s competition.Standings, matchday *int) error
	RemoveParticipant(ctx context.Context, p auth.Principal, id, target uuid.UUID) error
}

// CompetitionHandler handles competition HTTP requests
type CompetitionHandler struct {
	competitionService CompetitionServiceInterface
}

// NewCompetitionHandler creates a new competition handler
func NewCompetitionHandler(competitionService CompetitionServiceInterface) *CompetitionHandler {
	return &CompetitionHandler{competitionService: competitionService}
}

// CreateCompetitionRequest represents the creation request body
type CreateCompetitionRequest struct {
	Name    string                    `json:"name"`
	Finance competition.FinanceConfig `json:"finance"`
}

// JoinRequest represents the join-by-invite-code request body
type JoinRequest struct {
	InviteCode string `json:"invite_code"`
}

// UpdateStandingsRequest represents the standings update request body
type UpdateStandingsRequest struct {
	Standings       competition.Standings `json:"standings"`
	CurrentMatchday *int                  `json:"current_matchday,omitempty"`
}

// CompetitionResponse is the competition representation returned to
// participants.
type CompetitionResponse struct {
	ID              uuid.UUID                 `json:"id"`
	Name            string                    `json:"name"`
	AdminID         uuid.UUID                 `json:"admin_id"`
	InviteCode      string                    `json:"invite_code"`
	Participants    []uuid.UUID               `json:"participants"`
	WalletBalance   money.Amount              `json:"wallet_balance"`
	Finance         competition.FinanceConfig `json:"finance"`
	Standings       competition.Standings     `json:"standings"`
	CurrentMatchday int                       `json:"current_matchday"`
	IsActive        bool                      `json:"is_active"`
	CreatedAt       time.Time                 `json:"created_at"`
}

func competitionResponse(c *competition.Competition) *CompetitionResponse {
	return &CompetitionResponse{
		ID:              c.ID,
		Name:            c.Name,
		AdminID:         c.AdminID,
		InviteCode:      c.InviteCode,
		Participants:    c.Participants,
		WalletBalance:   c.WalletBalance,
		Finance:         c.Finance,
		Standings:       c.Standings,
		CurrentMatchday: c.CurrentMatchday,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
	}
}

// Create creates a competition (POST /competitions)
func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateCompetitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.competitionService.Create(r.Context(), p, req.Name, req.Finance)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, competitionResponse(c), http.StatusCreated)
}

// Join joins a competition by invite code (POST /competitions/join)
func (h *CompetitionHandler) Join(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.InviteCode == "" {
		respondError(w, "invite code is required", http.StatusBadRequest)
		return
	}

	c, err := h.competitionService.Join(r.Context(), p, req.InviteCode)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, competitionResponse(c), http.StatusOK)
}

// ListMine lists the principal's competitions (GET /competitions/my)
func (h *CompetitionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.competitionService.ListMine(r.Context(), p)
	if err != nil {
		respondAppError(w, err)
		return
	}

	out := make([]*CompetitionResponse, 0, len(list))
	for _, c := range list {
		out = append(out, competitionResponse(c))
	}
	respondJSON(w, map[string]any{"competitions": out}, http.StatusOK)
}

// Get returns one competition (GET /competitions/{id})
func (h *CompetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.competitionService.Get(r.Context(), p, id)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, competitionResponse(c), http.StatusOK)
}

// UpdateStandings replaces the standings (PATCH /competitions/{id}/standings)
func (h *CompetitionHandler) UpdateStandings(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStandingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.competitionService.UpdateStandings(r.Context(), p, id, req.Standings, req.CurrentMatchday); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, map[string]string{"status": "updated"}, http.StatusOK)
}

// RemoveParticipant removes a participant (DELETE /competitions/{id}/participants/{userID})
func (h *CompetitionHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	target, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.competitionService.RemoveParticipant(r.Context(), p, id, target); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, map[string]string{"status": "removed"}, http.StatusOK)
}

// pathUUID parses a UUID path parameter
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
