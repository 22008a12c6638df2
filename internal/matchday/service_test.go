package matchday_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/infra/memstore"
	"github.com/fantapay/fantapay/internal/ledger"
	"github.com/fantapay/fantapay/internal/matchday"
	"github.com/fantapay/fantapay/internal/platform/user"
	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
	"github.com/fantapay/fantapay/pkg/logger"
	"github.com/fantapay/fantapay/pkg/money"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newService(store *memstore.Store) *matchday.Service {
	log := logger.New("test", io.Discard)
	return matchday.NewService(store, store.Payments(), store.Competitions(), store.Users(), func() time.Time { return testTime }, log)
}

func createUser(t *testing.T, store *memstore.Store, name string) auth.Principal {
	t.Helper()
	u := &user.User{
		ID:           uuid.New(),
		Email:        name + "@example.com",
		Name:         name,
		PasswordHash: "hash",
		Language:     "en",
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// createDailyCompetition creates a daily-payment competition with the
// given members' schedules already materialized.
func createDailyCompetition(t *testing.T, store *memstore.Store, svc *matchday.Service, totalMatchdays int, daily money.Amount, admin auth.Principal, members ...auth.Principal) *competition.Competition {
	t.Helper()
	ctx := context.Background()
	c := &competition.Competition{
		ID:           uuid.New(),
		Name:         "Daily League",
		AdminID:      admin.UserID,
		InviteCode:   competition.NewInviteCode(),
		Participants: []uuid.UUID{admin.UserID},
		Finance: competition.FinanceConfig{
			TotalMatchdays:           totalMatchdays,
			ParticipationCostPerTeam: money.FromCents(10000),
			ExpectedTeams:            8,
			TotalPrizePool:           money.FromCents(80000),
			DailyPaymentEnabled:      true,
			DailyPaymentAmount:       daily,
		},
		Standings:       competition.EmptyStandings(),
		CurrentMatchday: 1,
		IsActive:        true,
		CreatedAt:       testTime,
		UpdatedAt:       testTime,
	}
	require.NoError(t, store.Competitions().Create(ctx, c))
	require.NoError(t, svc.MaterializeSchedule(ctx, admin.UserID, c))
	for _, m := range members {
		require.NoError(t, store.Competitions().AddParticipant(ctx, c.ID, m.UserID))
		c.Participants = append(c.Participants, m.UserID)
		require.NoError(t, svc.MaterializeSchedule(ctx, m.UserID, c))
	}
	return c
}

func fund(t *testing.T, store *memstore.Store, p auth.Principal, amount money.Amount) {
	t.Helper()
	require.NoError(t, store.SetUserBalance(context.Background(), p.UserID, amount))
}

func TestMaterializeSchedule(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newService(store)
	admin := createUser(t, store, "admin")

	t.Run("creates_full_pending_schedule", func(t *testing.T) {
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin)

		payments, err := store.Payments().ListByUserAndCompetition(ctx, admin.UserID, comp.ID)
		require.NoError(t, err)
		require.Len(t, payments, 38)
		for i, p := range payments {
			assert.Equal(t, i+1, p.Matchday)
			assert.Equal(t, matchday.StatusPending, p.Status)
			assert.Equal(t, money.FromCents(200), p.Amount)
			assert.Nil(t, p.PaidAt)
		}
	})

	t.Run("rematerializing_is_idempotent", func(t *testing.T) {
		comp := createDailyCompetition(t, store, svc, 10, money.FromCents(200), createUser(t, store, "other"))
		require.NoError(t, svc.MaterializeSchedule(ctx, comp.AdminID, comp))

		payments, err := store.Payments().ListByUserAndCompetition(ctx, comp.AdminID, comp.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 10)
	})

	t.Run("noop_when_daily_payments_disabled", func(t *testing.T) {
		c := &competition.Competition{
			ID:      uuid.New(),
			Name:    "No Daily",
			AdminID: admin.UserID,
			Finance: competition.FinanceConfig{TotalMatchdays: 38, ExpectedTeams: 8},
		}
		require.NoError(t, svc.MaterializeSchedule(ctx, admin.UserID, c))

		payments, err := store.Payments().ListByUserAndCompetition(ctx, admin.UserID, c.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})
}

func TestPayMatchdays(t *testing.T) {
	ctx := context.Background()

	t.Run("batch_debits_once_and_marks_paid", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		alice := createUser(t, store, "alice")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin, alice)
		fund(t, store, alice, money.FromCents(1000))

		result, err := svc.PayMatchdays(ctx, alice, comp.ID, []int{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, result.PaidMatchdays)
		assert.Equal(t, money.FromCents(600), result.TotalCost)
		assert.Equal(t, money.FromCents(400), result.NewUserBalance)

		compBalance, err := store.CompetitionBalance(ctx, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(600), compBalance)

		// One audit record per matchday
		txs, err := store.ListCompetitionTransactions(ctx, comp.ID, 0)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		for _, tx := range txs {
			assert.Equal(t, ledger.TxMatchdayPayment, tx.Type)
			assert.Equal(t, money.FromCents(200), tx.Amount)
		}

		payments, err := store.Payments().ListByUserAndCompetition(ctx, alice.UserID, comp.ID)
		require.NoError(t, err)
		for _, p := range payments {
			if p.Matchday <= 3 {
				assert.Equal(t, matchday.StatusPaid, p.Status)
				require.NotNil(t, p.PaidAt)
			} else {
				assert.Equal(t, matchday.StatusPending, p.Status)
			}
		}
	})

	t.Run("overlapping_batch_is_rejected_whole", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		alice := createUser(t, store, "alice")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin, alice)
		fund(t, store, alice, money.FromCents(10000))

		_, err := svc.PayMatchdays(ctx, alice, comp.ID, []int{1, 2, 3})
		require.NoError(t, err)

		// Matchday 4 is pending but 2 and 3 are already paid; nothing
		// from the second batch may apply.
		_, err = svc.PayMatchdays(ctx, alice, comp.ID, []int{2, 3, 4})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

		balance, err := store.UserBalance(ctx, alice.UserID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(9400), balance)

		payments, err := store.Payments().ListByUserAndCompetition(ctx, alice.UserID, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, matchday.StatusPending, payments[3].Status)
	})

	t.Run("out_of_range_matchday_rejects_batch", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin)
		fund(t, store, admin, money.FromCents(10000))

		_, err := svc.PayMatchdays(ctx, admin, comp.ID, []int{1, 999})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidMatchday))

		// Matchday 1 stays pending
		payments, err := store.Payments().ListByUserAndCompetition(ctx, admin.UserID, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, matchday.StatusPending, payments[0].Status)
	})

	t.Run("zero_is_invalid", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin)

		_, err := svc.PayMatchdays(ctx, admin, comp.ID, []int{0})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidMatchday))
	})

	t.Run("duplicate_in_request_is_rejected", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin)
		fund(t, store, admin, money.FromCents(10000))

		_, err := svc.PayMatchdays(ctx, admin, comp.ID, []int{5, 5})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("insufficient_balance_pays_nothing", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin)
		fund(t, store, admin, money.FromCents(500))

		_, err := svc.PayMatchdays(ctx, admin, comp.ID, []int{1, 2, 3})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientBalance))

		balance, err := store.UserBalance(ctx, admin.UserID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(500), balance)

		payments, err := store.Payments().ListByUserAndCompetition(ctx, admin.UserID, comp.ID)
		require.NoError(t, err)
		for _, p := range payments {
			assert.Equal(t, matchday.StatusPending, p.Status)
		}
	})

	t.Run("disabled_daily_payments_conflict", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		c := &competition.Competition{
			ID:           uuid.New(),
			Name:         "No Daily",
			AdminID:      admin.UserID,
			InviteCode:   competition.NewInviteCode(),
			Participants: []uuid.UUID{admin.UserID},
			Finance:      competition.FinanceConfig{TotalMatchdays: 38, ExpectedTeams: 8},
			Standings:    competition.EmptyStandings(),
			IsActive:     true,
		}
		require.NoError(t, store.Competitions().Create(ctx, c))

		_, err := svc.PayMatchdays(ctx, admin, c.ID, []int{1})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})

	t.Run("non_participant_is_forbidden", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		mallory := createUser(t, store, "mallory")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin)
		fund(t, store, mallory, money.FromCents(10000))

		_, err := svc.PayMatchdays(ctx, mallory, comp.ID, []int{1})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("concurrent_same_matchday_pays_exactly_once", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		alice := createUser(t, store, "alice")
		comp := createDailyCompetition(t, store, svc, 38, money.FromCents(200), admin, alice)
		fund(t, store, alice, money.FromCents(10000))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.PayMatchdays(ctx, alice, comp.ID, []int{5})
			}(i)
		}
		wg.Wait()

		var conflicts int
		for _, err := range errs {
			if err != nil {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
				conflicts++
			}
		}
		assert.Equal(t, 1, conflicts)

		// Debited exactly once
		balance, err := store.UserBalance(ctx, alice.UserID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(9800), balance)

		txs, err := store.ListCompetitionTransactions(ctx, comp.ID, 0)
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})
}

func TestPaymentStatus(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newService(store)
	admin := createUser(t, store, "admin")
	alice := createUser(t, store, "alice")
	comp := createDailyCompetition(t, store, svc, 10, money.FromCents(200), admin, alice)
	fund(t, store, alice, money.FromCents(10000))

	_, err := svc.PayMatchdays(ctx, alice, comp.ID, []int{1})
	require.NoError(t, err)

	t.Run("returns_own_schedule_only", func(t *testing.T) {
		view, err := svc.PaymentStatus(ctx, admin, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, view.TotalMatchdays)
		require.Len(t, view.Payments, 10)
		for _, p := range view.Payments {
			assert.Equal(t, admin.UserID, p.UserID)
			assert.Equal(t, matchday.StatusPending, p.Status)
		}
	})

	t.Run("non_participant_is_forbidden", func(t *testing.T) {
		mallory := createUser(t, store, "mallory")
		_, err := svc.PaymentStatus(ctx, mallory, comp.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("empty_schedule_is_an_empty_array", func(t *testing.T) {
		c := &competition.Competition{
			ID:           uuid.New(),
			Name:         "No Daily",
			AdminID:      admin.UserID,
			InviteCode:   competition.NewInviteCode(),
			Participants: []uuid.UUID{admin.UserID},
			Finance:      competition.FinanceConfig{TotalMatchdays: 38, ExpectedTeams: 8},
			Standings:    competition.EmptyStandings(),
			IsActive:     true,
		}
		require.NoError(t, store.Competitions().Create(ctx, c))

		view, err := svc.PaymentStatus(ctx, admin, c.ID)
		require.NoError(t, err)
		require.NotNil(t, view.Payments)
		assert.Empty(t, view.Payments)

		// Serializes as [] rather than null
		data, err := json.Marshal(view)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"payments":[]`)
	})
}

func TestAdminPaymentTable(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newService(store)
	admin := createUser(t, store, "admin")
	alice := createUser(t, store, "alice")
	comp := createDailyCompetition(t, store, svc, 10, money.FromCents(200), admin, alice)
	fund(t, store, alice, money.FromCents(10000))

	_, err := svc.PayMatchdays(ctx, alice, comp.ID, []int{1, 2})
	require.NoError(t, err)

	t.Run("participant_is_forbidden", func(t *testing.T) {
		_, err := svc.AdminPaymentTable(ctx, alice, comp.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("reports_paid_due_and_residual", func(t *testing.T) {
		table, err := svc.AdminPaymentTable(ctx, admin, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, table.TotalMatchdays)
		assert.Equal(t, money.FromCents(200), table.DailyPaymentAmount)
		// 10000 participation cost minus 10*200 matchday coverage
		assert.Equal(t, money.FromCents(8000), table.ResidualFee)
		require.Len(t, table.Participants, 2)

		rows := make(map[uuid.UUID]*matchday.TableRow)
		for _, row := range table.Participants {
			rows[row.UserID] = row
		}
		require.Contains(t, rows, alice.UserID)
		assert.Equal(t, "alice", rows[alice.UserID].Name)
		assert.Equal(t, money.FromCents(400), rows[alice.UserID].AmountPaid)
		assert.Equal(t, money.FromCents(2000), rows[alice.UserID].AmountDue)
		assert.Equal(t, money.Amount(0), rows[admin.UserID].AmountPaid)
	})
}
