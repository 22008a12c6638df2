package competition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/auth"
	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
	"github.com/fantapay/fantapay/pkg/logger"
)

// Service handles competition lifecycle and membership.
type Service struct {
	repo      Repository
	scheduler Scheduler
	tx        TxRunner
	log       *logger.Logger
}

// NewService creates a new competition service
func NewService(repo Repository, scheduler Scheduler, tx TxRunner, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		tx:        tx,
		log:       log.WithField("component", "competition"),
	}
}

// Create creates a competition administered by the principal. When daily
// payments are enabled the admin's own matchday schedule is materialized
// immediately, so "pending" is visible from day one.
func (s *Service) Create(ctx context.Context, p auth.Principal, name string, fin FinanceConfig) (*Competition, error) {
	if name == "" {
		return nil, apperrors.Validation(ErrInvalidName.Error())
	}
	if err := fin.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := time.Now()
	c := &Competition{
		ID:              uuid.New(),
		Name:            name,
		AdminID:         p.UserID,
		InviteCode:      NewInviteCode(),
		Participants:    []uuid.UUID{p.UserID},
		Finance:         fin,
		Standings:       EmptyStandings(),
		CurrentMatchday: 1,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The competition and the admin's schedule commit as one unit; a
	// competition must never exist without its admin's pending records.
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("failed to create competition: %w", err)
		}
		if err := s.scheduler.MaterializeSchedule(ctx, p.UserID, c); err != nil {
			return fmt.Errorf("failed to materialize admin schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("competition created",
		"competition_id", c.ID,
		"admin_id", p.UserID,
		"daily_payments", fin.DailyPaymentEnabled,
	)
	return c, nil
}

// Join adds the principal to the competition matching the invite code and
// materializes their matchday schedule when daily payments are enabled.
func (s *Service) Join(ctx context.Context, p auth.Principal, inviteCode string) (*Competition, error) {
	c, err := s.repo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NotFound("competition")
		}
		return nil, fmt.Errorf("failed to look up invite code: %w", err)
	}

	if c.HasParticipant(p.UserID) {
		return nil, apperrors.Conflict(ErrAlreadyParticipant.Error())
	}

	// Membership and schedule commit together: a participant row without
	// its pending schedule would brick every later batch payment.
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddParticipant(ctx, c.ID, p.UserID); err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
		if err := s.scheduler.MaterializeSchedule(ctx, p.UserID, c); err != nil {
			return fmt.Errorf("failed to materialize schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.Participants = append(c.Participants, p.UserID)

	s.log.Info("participant joined", "competition_id", c.ID, "user_id", p.UserID)
	return c, nil
}

// Get returns a competition to one of its participants.
func (s *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*Competition, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParticipant(c, p); err != nil {
		return nil, err
	}
	return c, nil
}

// ListMine returns the competitions the principal takes part in.
func (s *Service) ListMine(ctx context.Context, p auth.Principal) ([]*Competition, error) {
	return s.repo.ListByParticipant(ctx, p.UserID)
}

// UpdateStandings replaces the standings blob, admin only. A non-nil
// matchday also advances the current matchday marker.
func (s *Service) UpdateStandings(ctx context.Context, p auth.Principal, id uuid.UUID, standings Standings, matchday *int) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireAdmin(c, p); err != nil {
		return err
	}
	if err := standings.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}
	if matchday != nil && (*matchday < 1 || *matchday > c.Finance.TotalMatchdays) {
		return apperrors.InvalidMatchday(fmt.Sprintf("matchday %d is outside 1..%d", *matchday, c.Finance.TotalMatchdays))
	}

	if err := s.repo.UpdateStandings(ctx, id, standings, matchday); err != nil {
		return fmt.Errorf("failed to update standings: %w", err)
	}
	return nil
}

// RemoveParticipant removes a participant, admin only. The admin cannot
// remove themselves; paid matchday records stay behind for the audit trail.
func (s *Service) RemoveParticipant(ctx context.Context, p auth.Principal, id, target uuid.UUID) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireAdmin(c, p); err != nil {
		return err
	}
	if target == c.AdminID {
		return apperrors.Conflict(ErrCannotRemoveAdmin.Error())
	}
	if !c.HasParticipant(target) {
		return apperrors.NotFound("participant")
	}

	if err := s.repo.RemoveParticipant(ctx, id, target); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	s.log.Info("participant removed", "competition_id", id, "user_id", target)
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Competition, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NotFound("competition")
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}
