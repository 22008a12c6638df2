package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/ledger"
	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
	"github.com/fantapay/fantapay/pkg/logger"
	"github.com/fantapay/fantapay/pkg/money"
)

// summaryTTL bounds how stale a cached summary can be.
const summaryTTL = 30 * time.Second

// Clock supplies the current time; injectable for tests.
type Clock func() time.Time

// Service serves competition-scoped financial reads.
type Service struct {
	store        ledger.Store
	competitions CompetitionGetter
	users        UserDirectory
	cache        Cache
	clock        Clock
	log          *logger.Logger
}

// NewService creates a new accounting service. cache may be nil.
func NewService(store ledger.Store, competitions CompetitionGetter, users UserDirectory, cache Cache, clock Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:        store,
		competitions: competitions,
		users:        users,
		cache:        cache,
		clock:        clock,
		log:          log.WithField("component", "accounting"),
	}
}

// CompetitionTransactions returns a competition's ledger feed, newest
// first, with each record annotated with the payer's name. Visible to any
// participant.
func (s *Service) CompetitionTransactions(ctx context.Context, p auth.Principal, competitionID uuid.UUID, limit int) ([]*AnnotatedTransaction, error) {
	comp, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParticipant(comp, p); err != nil {
		return nil, err
	}

	txs, err := s.store.ListCompetitionTransactions(ctx, competitionID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(txs))
	seen := make(map[uuid.UUID]bool, len(txs))
	for _, tx := range txs {
		if !seen[tx.UserID] {
			seen[tx.UserID] = true
			ids = append(ids, tx.UserID)
		}
	}

	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) > 0 {
		users, err := s.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	}

	annotated := make([]*AnnotatedTransaction, 0, len(txs))
	for _, tx := range txs {
		annotated = append(annotated, &AnnotatedTransaction{
			Transaction: tx,
			UserName:    names[tx.UserID],
		})
	}
	return annotated, nil
}

// Summary returns the competition's financial overview. Served from cache
// when fresh; cache failures are logged and never surface to the caller.
func (s *Service) Summary(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*Summary, error) {
	comp, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParticipant(comp, p); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetSummary(ctx, competitionID)
		if err != nil {
			s.log.WithError(err).Warn("summary cache read failed", "competition_id", competitionID)
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.buildSummary(ctx, comp)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, summary, summaryTTL); err != nil {
			s.log.WithError(err).Warn("summary cache write failed", "competition_id", competitionID)
		}
	}
	return summary, nil
}

// Reconcile replays the transaction log for one competition and compares
// its net against the stored pooled balance. Admin only.
func (s *Service) Reconcile(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*ReconcileReport, error) {
	comp, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(comp, p); err != nil {
		return nil, err
	}

	net, err := s.store.SumCompetitionNet(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	balance, err := s.store.CompetitionBalance(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		CompetitionID: competitionID,
		WalletBalance: balance,
		LedgerNet:     net,
		Drift:         balance.Sub(net),
		Consistent:    balance == net,
		CheckedAt:     s.clock(),
	}
	if !report.Consistent {
		s.log.Error("competition balance drifted from ledger",
			"competition_id", competitionID,
			"wallet_balance", balance.String(),
			"ledger_net", net.String(),
		)
	}
	return report, nil
}

func (s *Service) buildSummary(ctx context.Context, comp *competition.Competition) (*Summary, error) {
	txs, err := s.store.ListCompetitionTransactions(ctx, comp.ID, 0)
	if err != nil {
		return nil, err
	}

	expected := comp.Finance.ParticipationCostPerTeam.MulInt(comp.Finance.ExpectedTeams)
	rate := 0.0
	if expected.IsPositive() {
		rate = float64(comp.WalletBalance.Cents()) / float64(expected.Cents())
	}

	totals := make(map[ledger.TxType]money.Amount)
	for _, tx := range txs {
		if tx.ToWallet == ledger.WalletCompetition {
			totals[tx.Type] = totals[tx.Type].Add(tx.Amount)
		}
	}

	return &Summary{
		CompetitionID:    comp.ID,
		WalletBalance:    comp.WalletBalance,
		TotalPrizePool:   comp.Finance.TotalPrizePool,
		ExpectedTotal:    expected,
		CollectionRate:   rate,
		ParticipantCount: len(comp.Participants),
		TransactionCount: len(txs),
		TotalsByType:     totals,
		GeneratedAt:      s.clock(),
	}, nil
}

func (s *Service) loadCompetition(ctx context.Context, id uuid.UUID) (*competition.Competition, error) {
	comp, err := s.competitions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, competition.ErrNotFound) {
			return nil, apperrors.NotFound("competition")
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return comp, nil
}
