package wallet_test

import (
	"context"
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
	"github.com/fantapay/fantapay/internal/platform/user"
	apperrors "github.com/fantapay/fantapay/internal/shared/errors"
	"github.com/fantapay/fantapay/internal/wallet"
	"github.com/fantapay/fantapay/pkg/logger"
	"github.com/fantapay/fantapay/pkg/money"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New("test", io.Discard)
}

func testClock() time.Time { return testTime }

func newService(store *memstore.Store) *wallet.Service {
	return wallet.NewService(store, store.Competitions(), testClock, testLogger())
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

func createCompetition(t *testing.T, store *memstore.Store, admin auth.Principal, members ...auth.Principal) *competition.Competition {
	t.Helper()
	c := &competition.Competition{
		ID:           uuid.New(),
		Name:         "Serie A Friends",
		AdminID:      admin.UserID,
		InviteCode:   competition.NewInviteCode(),
		Participants: []uuid.UUID{admin.UserID},
		Finance: competition.FinanceConfig{
			TotalMatchdays:           38,
			ParticipationCostPerTeam: money.FromCents(10000),
			ExpectedTeams:            8,
			TotalPrizePool:           money.FromCents(80000),
		},
		Standings:       competition.EmptyStandings(),
		CurrentMatchday: 1,
		IsActive:        true,
		CreatedAt:       testTime,
		UpdatedAt:       testTime,
	}
	require.NoError(t, store.Competitions().Create(context.Background(), c))
	for _, m := range members {
		require.NoError(t, store.Competitions().AddParticipant(context.Background(), c.ID, m.UserID))
		c.Participants = append(c.Participants, m.UserID)
	}
	return c
}

func fund(t *testing.T, store *memstore.Store, p auth.Principal, amount money.Amount) {
	t.Helper()
	require.NoError(t, store.SetUserBalance(context.Background(), p.UserID, amount))
}

func TestTopUp(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newService(store)
	alice := createUser(t, store, "alice")

	t.Run("credits_balance_and_records_transaction", func(t *testing.T) {
		balance, err := svc.TopUp(ctx, alice, money.FromCents(5000))
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(5000), balance)

		txs, err := svc.Transactions(ctx, alice, 10)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.TxDeposit, txs[0].Type)
		assert.Equal(t, money.FromCents(5000), txs[0].Amount)
		assert.Equal(t, ledger.WalletExternal, txs[0].FromWallet)
		assert.Equal(t, ledger.WalletPersonal, txs[0].ToWallet)
	})

	t.Run("rejects_zero_amount", func(t *testing.T) {
		_, err := svc.TopUp(ctx, alice, 0)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidAmount))
	})

	t.Run("rejects_negative_amount", func(t *testing.T) {
		_, err := svc.TopUp(ctx, alice, money.FromCents(-100))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidAmount))
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("exact_balance_withdrawal_leaves_zero", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		alice := createUser(t, store, "alice")
		fund(t, store, alice, money.FromCents(5000))

		balance, err := svc.Withdraw(ctx, alice, money.FromCents(5000))
		require.NoError(t, err)
		assert.Equal(t, money.Amount(0), balance)
	})

	t.Run("one_cent_over_balance_is_rejected", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		alice := createUser(t, store, "alice")
		fund(t, store, alice, money.FromCents(5000))

		_, err := svc.Withdraw(ctx, alice, money.FromCents(5001))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientBalance))

		// Balance untouched and no audit record written
		balance, err := svc.Balance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(5000), balance)

		txs, err := svc.Transactions(ctx, alice, 10)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("concurrent_withdrawals_cannot_both_pass", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		alice := createUser(t, store, "alice")
		fund(t, store, alice, money.FromCents(5000))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Withdraw(ctx, alice, money.FromCents(4000))
			}(i)
		}
		wg.Wait()

		var failed int
		for _, err := range errs {
			if err != nil {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientBalance))
				failed++
			}
		}
		assert.Equal(t, 1, failed)

		balance, err := svc.Balance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(1000), balance)
	})
}

func TestPayCompetitionFee(t *testing.T) {
	ctx := context.Background()

	t.Run("transfer_conserves_total", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		alice := createUser(t, store, "alice")
		comp := createCompetition(t, store, admin, alice)
		fund(t, store, alice, money.FromCents(10000))

		result, err := svc.PayCompetitionFee(ctx, alice, comp.ID, money.FromCents(2500))
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(7500), result.NewUserBalance)
		assert.Equal(t, money.FromCents(2500), result.NewCompetitionBalance)
		assert.Equal(t, money.FromCents(10000), result.NewUserBalance.Add(result.NewCompetitionBalance))

		txs, err := store.ListCompetitionTransactions(ctx, comp.ID, 0)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.TxPayment, txs[0].Type)
		require.NotNil(t, txs[0].CompetitionID)
		assert.Equal(t, comp.ID, *txs[0].CompetitionID)
	})

	t.Run("insufficient_balance_leaves_both_wallets_untouched", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		alice := createUser(t, store, "alice")
		comp := createCompetition(t, store, admin, alice)
		fund(t, store, alice, money.FromCents(100))

		_, err := svc.PayCompetitionFee(ctx, alice, comp.ID, money.FromCents(2500))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientBalance))

		balance, err := svc.Balance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(100), balance)

		compBalance, err := store.CompetitionBalance(ctx, comp.ID)
		require.NoError(t, err)
		assert.Equal(t, money.Amount(0), compBalance)
	})

	t.Run("non_participant_is_forbidden", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		mallory := createUser(t, store, "mallory")
		comp := createCompetition(t, store, admin)
		fund(t, store, mallory, money.FromCents(10000))

		_, err := svc.PayCompetitionFee(ctx, mallory, comp.ID, money.FromCents(2500))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

		// Guard short-circuits before any balance is read or written
		balance, err := svc.Balance(ctx, mallory)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(10000), balance)
	})

	t.Run("unknown_competition_is_not_found", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		alice := createUser(t, store, "alice")
		fund(t, store, alice, money.FromCents(10000))

		_, err := svc.PayCompetitionFee(ctx, alice, uuid.New(), money.FromCents(2500))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		store := memstore.New()
		svc := newService(store)
		admin := createUser(t, store, "admin")
		comp := createCompetition(t, store, admin)

		_, err := svc.PayCompetitionFee(ctx, admin, comp.ID, 0)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidAmount))
	})
}
