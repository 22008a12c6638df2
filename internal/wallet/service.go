// Package wallet implements the personal-wallet operations: simulated
// top-ups and withdrawals, and the one true transfer primitive that moves
// money into a competition's pooled wallet.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/ledger"
	"github.com/fantapay/fantapay/internal/metrics"
	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
	"github.com/fantapay/fantapay/pkg/logger"
	"github.com/fantapay/fantapay/pkg/money"
)

// CompetitionGetter is the slice of the competition repository this
// service needs.
type CompetitionGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*competition.Competition, error)
}

// Clock supplies the current time; injectable for tests.
type Clock func() time.Time

// Service executes wallet mutations against the ledger store. Every
// mutation is a single atomic unit: balance write and audit record commit
// together or not at all.
type Service struct {
	store        ledger.Store
	competitions CompetitionGetter
	clock        Clock
	log          *logger.Logger
}

// NewService creates a new wallet service
func NewService(store ledger.Store, competitions CompetitionGetter, clock Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:        store,
		competitions: competitions,
		clock:        clock,
		log:          log.WithField("component", "wallet"),
	}
}

// PaymentResult reports both sides of a completed transfer.
type PaymentResult struct {
	NewUserBalance        money.Amount
	NewCompetitionBalance money.Amount
}

// TopUp credits the principal's own wallet. There is no upper bound:
// funding comes from an external source the ledger does not model.
func (s *Service) TopUp(ctx context.Context, p auth.Principal, amount money.Amount) (money.Amount, error) {
	if !amount.IsPositive() {
		return 0, apperrors.InvalidAmount("top-up amount must be positive")
	}

	var newBalance money.Amount
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		balance, err := s.store.UserBalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}

		newBalance = balance.Add(amount)
		if err := s.store.SetUserBalance(ctx, p.UserID, newBalance); err != nil {
			return err
		}

		return s.store.AppendTransaction(ctx, &ledger.Transaction{
			ID:          uuid.New(),
			UserID:      p.UserID,
			Type:        ledger.TxDeposit,
			Amount:      amount,
			FromWallet:  ledger.WalletExternal,
			ToWallet:    ledger.WalletPersonal,
			Description: fmt.Sprintf("Wallet top-up of €%s", amount),
			CreatedAt:   s.clock(),
		})
	})
	if err != nil {
		return 0, err
	}

	s.recordSuccess(ledger.TxDeposit, amount)
	s.log.Info("wallet topped up", "user_id", p.UserID, "amount", amount.String())
	return newBalance, nil
}

// Withdraw debits the principal's own wallet. The balance check and the
// decrement happen under the same lock, so two racing withdrawals cannot
// both pass the check.
func (s *Service) Withdraw(ctx context.Context, p auth.Principal, amount money.Amount) (money.Amount, error) {
	if !amount.IsPositive() {
		return 0, apperrors.InvalidAmount("withdrawal amount must be positive")
	}

	var newBalance money.Amount
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		balance, err := s.store.UserBalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}

		if balance < amount {
			metrics.InsufficientBalanceTotal.Inc()
			return apperrors.InsufficientBalance("insufficient balance")
		}

		newBalance = balance.Sub(amount)
		if err := s.store.SetUserBalance(ctx, p.UserID, newBalance); err != nil {
			return err
		}

		return s.store.AppendTransaction(ctx, &ledger.Transaction{
			ID:          uuid.New(),
			UserID:      p.UserID,
			Type:        ledger.TxWithdraw,
			Amount:      amount,
			FromWallet:  ledger.WalletPersonal,
			ToWallet:    ledger.WalletExternal,
			Description: fmt.Sprintf("Withdrawal of €%s", amount),
			CreatedAt:   s.clock(),
		})
	})
	if err != nil {
		return 0, err
	}

	s.recordSuccess(ledger.TxWithdraw, amount)
	s.log.Info("wallet withdrawal", "user_id", p.UserID, "amount", amount.String())
	return newBalance, nil
}

// PayCompetitionFee atomically moves amount from the principal's wallet
// into the competition's pooled wallet. The sum of the two balances is
// conserved; a failure between the debit and the credit leaves neither
// applied. Lock order is user wallet first, then competition wallet.
func (s *Service) PayCompetitionFee(ctx context.Context, p auth.Principal, competitionID uuid.UUID, amount money.Amount) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, apperrors.InvalidAmount("payment amount must be positive")
	}

	comp, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, competition.ErrNotFound) {
			return nil, apperrors.NotFound("competition")
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	if err := auth.RequireParticipant(comp, p); err != nil {
		return nil, err
	}

	result := &PaymentResult{}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		userBalance, err := s.store.UserBalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}
		if userBalance < amount {
			metrics.InsufficientBalanceTotal.Inc()
			return apperrors.InsufficientBalance("insufficient balance")
		}

		compBalance, err := s.store.CompetitionBalanceForUpdate(ctx, competitionID)
		if err != nil {
			return err
		}

		result.NewUserBalance = userBalance.Sub(amount)
		result.NewCompetitionBalance = compBalance.Add(amount)

		if err := s.store.SetUserBalance(ctx, p.UserID, result.NewUserBalance); err != nil {
			return err
		}
		if err := s.store.SetCompetitionBalance(ctx, competitionID, result.NewCompetitionBalance); err != nil {
			return err
		}

		return s.store.AppendTransaction(ctx, &ledger.Transaction{
			ID:            uuid.New(),
			UserID:        p.UserID,
			CompetitionID: &competitionID,
			Type:          ledger.TxPayment,
			Amount:        amount,
			FromWallet:    ledger.WalletPersonal,
			ToWallet:      ledger.WalletCompetition,
			Description:   fmt.Sprintf("Payment to %s", comp.Name),
			CreatedAt:     s.clock(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.recordSuccess(ledger.TxPayment, amount)
	s.log.Info("competition fee paid",
		"user_id", p.UserID,
		"competition_id", competitionID,
		"amount", amount.String(),
	)
	return result, nil
}

// Balance reads the principal's own wallet balance.
func (s *Service) Balance(ctx context.Context, p auth.Principal) (money.Amount, error) {
	return s.store.UserBalance(ctx, p.UserID)
}

// Transactions returns the principal's own audit records, newest first.
func (s *Service) Transactions(ctx context.Context, p auth.Principal, limit int) ([]*ledger.Transaction, error) {
	return s.store.ListUserTransactions(ctx, p.UserID, limit)
}

func (s *Service) recordSuccess(t ledger.TxType, amount money.Amount) {
	metrics.TransactionsTotal.WithLabelValues(string(t)).Inc()
	metrics.TransactionVolumeCents.WithLabelValues(string(t)).Add(float64(amount.Cents()))
}
