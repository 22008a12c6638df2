package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/pkg/logger"
)

// Service handles account business logic
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a new user service
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.WithField("component", "user"),
	}
}

// Register registers a new user. The wallet is created with the account,
// starting at zero.
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	u := &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Language:  "en",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := u.ValidateEmail(); err != nil {
		return nil, err
	}
	if u.Name == "" {
		return nil, ErrInvalidName
	}

	exists, err := s.repo.Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check if user exists: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	if err := u.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login authenticates a user with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrUserNotFound {
			// Don't reveal that the user doesn't exist
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := u.CheckPassword(password); err != nil {
		return nil, err
	}

	u.UpdateLastLogin()
	if err := s.repo.Update(ctx, u); err != nil {
		// Non-critical; login still succeeds.
		s.log.Warn("failed to update last login", "user_id", u.ID, "error", err)
	}

	return u, nil
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByIDs retrieves users by IDs, for display-name annotation.
func (s *Service) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// UpdateLanguage switches the user's UI language preference.
func (s *Service) UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error {
	if !SupportedLanguages[language] {
		return ErrInvalidLanguage
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	u.Language = language
	u.UpdatedAt = time.Now()
	return s.repo.Update(ctx, u)
}
