package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fantapay/fantapay/internal/ledger"
	"github.com/fantapay/fantapay/pkg/money"
)

// LedgerStore implements ledger.Store using PostgreSQL. Balances are
// columns on the users and competitions tables; SELECT FOR UPDATE inside
// a WithTx unit provides the row locking the mutation paths rely on.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new PostgreSQL ledger store
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithTx runs fn inside one database transaction. Nested calls join the
// enclosing transaction.
func (s *LedgerStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(withTxContext(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *LedgerStore) UserBalance(ctx context.Context, userID uuid.UUID) (money.Amount, error) {
	return s.userBalance(ctx, userID, false)
}

func (s *LedgerStore) UserBalanceForUpdate(ctx context.Context, userID uuid.UUID) (money.Amount, error) {
	return s.userBalance(ctx, userID, true)
}

func (s *LedgerStore) userBalance(ctx context.Context, userID uuid.UUID, forUpdate bool) (money.Amount, error) {
	query := `SELECT balance FROM users WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var cents int64
	q := queryerFromContext(ctx, s.db)
	if err := q.QueryRow(ctx, query, userID).Scan(&cents); err != nil {
		if err == pgx.ErrNoRows {
			return 0, ledger.ErrUserWalletNotFound
		}
		return 0, fmt.Errorf("failed to get user balance: %w", err)
	}
	return money.FromCents(cents), nil
}

func (s *LedgerStore) SetUserBalance(ctx context.Context, userID uuid.UUID, balance money.Amount) error {
	query := `UPDATE users SET balance = $2, updated_at = NOW() WHERE id = $1`

	q := queryerFromContext(ctx, s.db)
	tag, err := q.Exec(ctx, query, userID, balance.Cents())
	if err != nil {
		return fmt.Errorf("failed to set user balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrUserWalletNotFound
	}
	return nil
}

func (s *LedgerStore) CompetitionBalance(ctx context.Context, competitionID uuid.UUID) (money.Amount, error) {
	return s.competitionBalance(ctx, competitionID, false)
}

func (s *LedgerStore) CompetitionBalanceForUpdate(ctx context.Context, competitionID uuid.UUID) (money.Amount, error) {
	return s.competitionBalance(ctx, competitionID, true)
}

func (s *LedgerStore) competitionBalance(ctx context.Context, competitionID uuid.UUID, forUpdate bool) (money.Amount, error) {
	query := `SELECT wallet_balance FROM competitions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var cents int64
	q := queryerFromContext(ctx, s.db)
	if err := q.QueryRow(ctx, query, competitionID).Scan(&cents); err != nil {
		if err == pgx.ErrNoRows {
			return 0, ledger.ErrCompetitionWalletNotFound
		}
		return 0, fmt.Errorf("failed to get competition balance: %w", err)
	}
	return money.FromCents(cents), nil
}

func (s *LedgerStore) SetCompetitionBalance(ctx context.Context, competitionID uuid.UUID, balance money.Amount) error {
	query := `UPDATE competitions SET wallet_balance = $2, updated_at = NOW() WHERE id = $1`

	q := queryerFromContext(ctx, s.db)
	tag, err := q.Exec(ctx, query, competitionID, balance.Cents())
	if err != nil {
		return fmt.Errorf("failed to set competition balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrCompetitionWalletNotFound
	}
	return nil
}

func (s *LedgerStore) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	query := `
		INSERT INTO transactions (id, user_id, competition_id, type, amount, from_wallet, to_wallet, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	q := queryerFromContext(ctx, s.db)
	_, err := q.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.CompetitionID,
		string(tx.Type),
		tx.Amount.Cents(),
		string(tx.FromWallet),
		string(tx.ToWallet),
		tx.Description,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *LedgerStore) ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	query := `
		SELECT id, user_id, competition_id, type, amount, from_wallet, to_wallet, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.listTransactions(ctx, query, args...)
}

func (s *LedgerStore) ListCompetitionTransactions(ctx context.Context, competitionID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	query := `
		SELECT id, user_id, competition_id, type, amount, from_wallet, to_wallet, description, created_at
		FROM transactions
		WHERE competition_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{competitionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.listTransactions(ctx, query, args...)
}

func (s *LedgerStore) listTransactions(ctx context.Context, query string, args ...any) ([]*ledger.Transaction, error) {
	q := queryerFromContext(ctx, s.db)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var cents int64
		var txType, fromWallet, toWallet string

		err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.CompetitionID,
			&txType,
			&cents,
			&fromWallet,
			&toWallet,
			&tx.Description,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Type = ledger.TxType(txType)
		tx.Amount = money.FromCents(cents)
		tx.FromWallet = ledger.WalletRef(fromWallet)
		tx.ToWallet = ledger.WalletRef(toWallet)
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// SumCompetitionNet replays the log: credits into the competition wallet
// minus debits out of it.
func (s *LedgerStore) SumCompetitionNet(ctx context.Context, competitionID uuid.UUID) (money.Amount, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE
				WHEN to_wallet = 'competition' THEN amount
				WHEN from_wallet = 'competition' THEN -amount
				ELSE 0
			END
		), 0)
		FROM transactions
		WHERE competition_id = $1
	`

	var cents int64
	q := queryerFromContext(ctx, s.db)
	if err := q.QueryRow(ctx, query, competitionID).Scan(&cents); err != nil {
		return 0, fmt.Errorf("failed to sum competition transactions: %w", err)
	}
	return money.FromCents(cents), nil
}
