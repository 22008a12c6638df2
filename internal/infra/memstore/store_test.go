package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantapay/fantapay/internal/infra/memstore"
	"github.com/fantapay/fantapay/internal/ledger"
	"github.com/fantapay/fantapay/internal/platform/user"
	"github.com/fantapay/fantapay/pkg/money"
)

func seedUser(t *testing.T, store *memstore.Store) uuid.UUID {
	t.Helper()
	u := &user.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Name:      "seed",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u.ID
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("failed_unit_restores_all_state", func(t *testing.T) {
		store := memstore.New()
		userID := seedUser(t, store)
		require.NoError(t, store.SetUserBalance(ctx, userID, money.FromCents(5000)))

		boom := errors.New("boom")
		err := store.WithTx(ctx, func(ctx context.Context) error {
			if err := store.SetUserBalance(ctx, userID, money.FromCents(100)); err != nil {
				return err
			}
			tx := &ledger.Transaction{
				ID:         uuid.New(),
				UserID:     userID,
				Type:       ledger.TxWithdraw,
				Amount:     money.FromCents(4900),
				FromWallet: ledger.WalletPersonal,
				ToWallet:   ledger.WalletExternal,
				CreatedAt:  time.Now(),
			}
			if err := store.AppendTransaction(ctx, tx); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		balance, err := store.UserBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(5000), balance)

		txs, err := store.ListUserTransactions(ctx, userID, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("successful_unit_commits", func(t *testing.T) {
		store := memstore.New()
		userID := seedUser(t, store)

		err := store.WithTx(ctx, func(ctx context.Context) error {
			return store.SetUserBalance(ctx, userID, money.FromCents(100))
		})
		require.NoError(t, err)

		balance, err := store.UserBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(100), balance)
	})

	t.Run("nested_calls_join_the_outer_unit", func(t *testing.T) {
		store := memstore.New()
		userID := seedUser(t, store)

		err := store.WithTx(ctx, func(ctx context.Context) error {
			// Must not deadlock on the store mutex.
			return store.WithTx(ctx, func(ctx context.Context) error {
				return store.SetUserBalance(ctx, userID, money.FromCents(100))
			})
		})
		require.NoError(t, err)

		balance, err := store.UserBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, money.FromCents(100), balance)
	})

	t.Run("inner_error_rolls_back_the_whole_unit", func(t *testing.T) {
		store := memstore.New()
		userID := seedUser(t, store)

		boom := errors.New("boom")
		err := store.WithTx(ctx, func(ctx context.Context) error {
			if err := store.SetUserBalance(ctx, userID, money.FromCents(100)); err != nil {
				return err
			}
			return store.WithTx(ctx, func(ctx context.Context) error {
				return boom
			})
		})
		assert.ErrorIs(t, err, boom)

		balance, err := store.UserBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, money.Amount(0), balance)
	})
}

func TestRepositoryIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("returned_entities_are_copies", func(t *testing.T) {
		store := memstore.New()
		userID := seedUser(t, store)

		u, err := store.Users().GetByID(ctx, userID)
		require.NoError(t, err)
		u.Balance = money.FromCents(999999)

		balance, err := store.UserBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, money.Amount(0), balance)
	})

	t.Run("create_ignores_caller_supplied_balance", func(t *testing.T) {
		store := memstore.New()
		u := &user.User{
			ID:      uuid.New(),
			Email:   "rich@example.com",
			Name:    "rich",
			Balance: money.FromCents(100000),
		}
		require.NoError(t, store.Users().Create(ctx, u))

		balance, err := store.UserBalance(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, money.Amount(0), balance)

		// The caller's struct is left alone
		assert.Equal(t, money.FromCents(100000), u.Balance)
	})
}
