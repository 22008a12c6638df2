package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/platform/user"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/pkg/money"
)

// UserServiceInterface defines the user operations needed by AuthHandler
type UserServiceInterface interface {
	Register(ctx context.Context, email, name, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error
}

// JWTServiceInterface defines the interface for JWT operations
type JWTServiceInterface interface {
	GenerateToken(userID uuid.UUID, email, name string) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userService UserServiceInterface
	jwtService  JWTServiceInterface
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService UserServiceInterface, jwtService JWTServiceInterface) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo represents user information (without sensitive data)
type UserInfo struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Name     string       `json:"name"`
	Language string       `json:"language"`
	Balance  money.Amount `json:"balance"`
}

func userInfo(u *user.User) *UserInfo {
	return &UserInfo{
		ID:       u.ID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Language: u.Language,
		Balance:  u.Balance,
	}
}

// Register handles user registration (POST /auth/register)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" {
		respondError(w, "email is required", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return
	}

	registered, err := h.userService.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserAlreadyExists):
			respondError(w, "user with this email already exists", http.StatusConflict)
		case errors.Is(err, user.ErrPasswordTooShort):
			respondError(w, "password must be at least 8 characters", http.StatusBadRequest)
		case errors.Is(err, user.ErrInvalidEmail):
			respondError(w, "invalid email address", http.StatusBadRequest)
		case errors.Is(err, user.ErrInvalidName):
			respondError(w, "display name is required", http.StatusBadRequest)
		default:
			respondError(w, "failed to register user", http.StatusInternalServerError)
		}
		return
	}

	token, err := h.jwtService.GenerateToken(registered.ID, registered.Email, registered.Name)
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, AuthResponse{Token: token, User: userInfo(registered)}, http.StatusCreated)
}

// Login handles user login (POST /auth/login)
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	authenticated, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidPassword) {
			respondError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		respondError(w, "failed to login", http.StatusInternalServerError)
		return
	}

	token, err := h.jwtService.GenerateToken(authenticated.ID, authenticated.Email, authenticated.Name)
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, AuthResponse{Token: token, User: userInfo(authenticated)}, http.StatusOK)
}

// Me returns the authenticated user's profile (GET /auth/me)
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.userService.GetByID(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			respondError(w, "user not found", http.StatusNotFound)
			return
		}
		respondError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	respondJSON(w, userInfo(u), http.StatusOK)
}

// UpdateLanguageRequest represents the language update request body
type UpdateLanguageRequest struct {
	Language string `json:"language"`
}

// UpdateLanguage switches the UI language preference (PUT /auth/language)
func (h *AuthHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdateLanguage(r.Context(), p.UserID, req.Language); err != nil {
		if errors.Is(err, user.ErrInvalidLanguage) {
			respondError(w, "unsupported language", http.StatusBadRequest)
			return
		}
		respondError(w, "failed to update language", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]string{"language": req.Language}, http.StatusOK)
}
