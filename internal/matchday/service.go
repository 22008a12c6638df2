package matchday

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

// Clock supplies the current time; injectable for tests.
type Clock func() time.Time

// Service is the matchday payment scheduler. It materializes one payment
// obligation per (user, competition, matchday) and settles them in
// all-or-nothing batches.
type Service struct {
	store        ledger.Store
	payments     Repository
	competitions CompetitionGetter
	users        UserDirectory
	clock        Clock
	log          *logger.Logger
}

// NewService creates a new matchday scheduler
func NewService(store ledger.Store, payments Repository, competitions CompetitionGetter, users UserDirectory, clock Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:        store,
		payments:     payments,
		competitions: competitions,
		users:        users,
		clock:        clock,
		log:          log.WithField("component", "matchday"),
	}
}

// MaterializeSchedule creates the full pending schedule for one
// participant. Amounts are fixed at creation from the competition's
// current daily payment amount. No-op when daily payments are disabled —
// such competitions must never own matchday records.
func (s *Service) MaterializeSchedule(ctx context.Context, userID uuid.UUID, c *competition.Competition) error {
	if !c.Finance.DailyPaymentEnabled {
		return nil
	}

	now := s.clock()
	schedule := make([]*Payment, 0, c.Finance.TotalMatchdays)
	for md := 1; md <= c.Finance.TotalMatchdays; md++ {
		schedule = append(schedule, &Payment{
			UserID:        userID,
			CompetitionID: c.ID,
			Matchday:      md,
			Amount:        c.Finance.DailyPaymentAmount,
			Status:        StatusPending,
			CreatedAt:     now,
		})
	}

	if err := s.payments.CreateSchedule(ctx, schedule); err != nil {
		return fmt.Errorf("failed to create matchday schedule: %w", err)
	}
	return nil
}

// PayMatchdays settles a batch of matchdays for the principal. The batch
// is a unit: any out-of-range index, any already-paid matchday, or an
// insufficient balance rejects the whole request with no mutation.
func (s *Service) PayMatchdays(ctx context.Context, p auth.Principal, competitionID uuid.UUID, matchdays []int) (*BatchResult, error) {
	comp, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParticipant(comp, p); err != nil {
		return nil, err
	}
	if !comp.Finance.DailyPaymentEnabled {
		return nil, apperrors.Conflict("daily payments not enabled")
	}

	if len(matchdays) == 0 {
		return nil, apperrors.Validation("no matchdays requested")
	}
	seen := make(map[int]bool, len(matchdays))
	for _, md := range matchdays {
		if md < 1 || md > comp.Finance.TotalMatchdays {
			return nil, apperrors.InvalidMatchday(
				fmt.Sprintf("matchday %d is outside 1..%d", md, comp.Finance.TotalMatchdays))
		}
		if seen[md] {
			return nil, apperrors.Validation(fmt.Sprintf("matchday %d requested twice", md))
		}
		seen[md] = true
	}

	result := &BatchResult{}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		// Locking the user wallet first serializes concurrent batches
		// from the same user, so the duplicate check below is race-free.
		userBalance, err := s.store.UserBalanceForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}

		schedule, err := s.payments.ListByUserAndCompetition(ctx, p.UserID, competitionID)
		if err != nil {
			return err
		}
		byMatchday := make(map[int]*Payment, len(schedule))
		for _, pay := range schedule {
			byMatchday[pay.Matchday] = pay
		}

		// Duplicate detection before any mutation.
		totalCost := money.FromCents(0)
		targets := make([]*Payment, 0, len(matchdays))
		for _, md := range matchdays {
			record, ok := byMatchday[md]
			if !ok {
				return apperrors.Internal("matchday schedule is missing a record",
					fmt.Errorf("user %s competition %s matchday %d", p.UserID, competitionID, md))
			}
			if record.Status == StatusPaid {
				return apperrors.Conflict(fmt.Sprintf("matchday %d already paid", md))
			}
			targets = append(targets, record)
			totalCost = totalCost.Add(record.Amount)
		}

		if userBalance < totalCost {
			metrics.InsufficientBalanceTotal.Inc()
			return apperrors.InsufficientBalance("insufficient balance")
		}

		compBalance, err := s.store.CompetitionBalanceForUpdate(ctx, competitionID)
		if err != nil {
			return err
		}

		result.NewUserBalance = userBalance.Sub(totalCost)
		if err := s.store.SetUserBalance(ctx, p.UserID, result.NewUserBalance); err != nil {
			return err
		}
		if err := s.store.SetCompetitionBalance(ctx, competitionID, compBalance.Add(totalCost)); err != nil {
			return err
		}

		now := s.clock()
		updated, err := s.payments.MarkPaid(ctx, p.UserID, competitionID, matchdays, now)
		if err != nil {
			return err
		}
		if updated != len(matchdays) {
			// A concurrent batch won the race for at least one record.
			return apperrors.Conflict("matchday already paid")
		}

		// One audit record per matchday, so the trail stays
		// per-obligation even though the balance movement is batched.
		for _, record := range targets {
			tx := &ledger.Transaction{
				ID:            uuid.New(),
				UserID:        p.UserID,
				CompetitionID: &competitionID,
				Type:          ledger.TxMatchdayPayment,
				Amount:        record.Amount,
				FromWallet:    ledger.WalletPersonal,
				ToWallet:      ledger.WalletCompetition,
				Description:   fmt.Sprintf("Matchday %d payment to %s", record.Matchday, comp.Name),
				CreatedAt:     now,
			}
			if err := s.store.AppendTransaction(ctx, tx); err != nil {
				return err
			}
		}

		result.PaidMatchdays = append([]int(nil), matchdays...)
		sort.Ints(result.PaidMatchdays)
		result.TotalCost = totalCost
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionsTotal.WithLabelValues(string(ledger.TxMatchdayPayment)).Add(float64(len(result.PaidMatchdays)))
	metrics.TransactionVolumeCents.WithLabelValues(string(ledger.TxMatchdayPayment)).Add(float64(result.TotalCost.Cents()))
	metrics.MatchdaysPaidTotal.Add(float64(len(result.PaidMatchdays)))

	s.log.Info("matchdays paid",
		"user_id", p.UserID,
		"competition_id", competitionID,
		"matchdays", result.PaidMatchdays,
		"total_cost", result.TotalCost.String(),
	)
	return result, nil
}

// PaymentStatus returns the principal's own schedule for one competition.
// Self-scoped even for the admin; admin visibility into everyone's records
// goes through AdminPaymentTable.
func (s *Service) PaymentStatus(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*StatusView, error) {
	comp, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireParticipant(comp, p); err != nil {
		return nil, err
	}

	payments, err := s.payments.ListByUserAndCompetition(ctx, p.UserID, competitionID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*Payment{}
	}

	return &StatusView{
		CompetitionID:  competitionID,
		TotalMatchdays: comp.Finance.TotalMatchdays,
		Payments:       payments,
	}, nil
}

// AdminPaymentTable returns every participant's schedule with the derived
// paid/due pair, admin only.
func (s *Service) AdminPaymentTable(ctx context.Context, p auth.Principal, competitionID uuid.UUID) (*AdminTable, error) {
	comp, err := s.loadCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(comp, p); err != nil {
		return nil, err
	}

	all, err := s.payments.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	byUser := make(map[uuid.UUID][]*Payment)
	for _, pay := range all {
		byUser[pay.UserID] = append(byUser[pay.UserID], pay)
	}

	names := make(map[uuid.UUID]string, len(comp.Participants))
	participants, err := s.users.GetByIDs(ctx, comp.Participants)
	if err != nil {
		return nil, err
	}
	for _, u := range participants {
		names[u.ID] = u.Name
	}

	amountDue := comp.Finance.DailyPaymentAmount.MulInt(comp.Finance.TotalMatchdays)
	table := &AdminTable{
		CompetitionID:      competitionID,
		DailyPaymentAmount: comp.Finance.DailyPaymentAmount,
		TotalMatchdays:     comp.Finance.TotalMatchdays,
		ResidualFee:        comp.Finance.ParticipationCostPerTeam.Sub(amountDue),
		Participants:       make([]*TableRow, 0, len(comp.Participants)),
	}

	for _, userID := range comp.Participants {
		row := &TableRow{
			UserID:    userID,
			Name:      names[userID],
			Payments:  byUser[userID],
			AmountDue: amountDue,
		}
		for _, pay := range row.Payments {
			if pay.Status == StatusPaid {
				row.AmountPaid = row.AmountPaid.Add(pay.Amount)
			}
		}
		table.Participants = append(table.Participants, row)
	}

	return table, nil
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
