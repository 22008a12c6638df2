package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/fantapay/fantapay/pkg/money"
)

// Store is the persistence port for wallet balances and the transaction
// log. Implementations: PostgreSQL (source of truth) and in-memory (tests,
// local development).
//
// Mutating callers wrap their read-check-write sequence in WithTx; the
// ForUpdate reads then lock the underlying rows so concurrent mutations of
// the same wallet serialize. To keep lock ordering consistent, transfers
// always lock the user wallet before the competition wallet.
type Store interface {
	// WithTx runs fn inside a single atomic unit. If fn returns an error
	// nothing it did is visible afterwards. Nested calls join the
	// enclosing unit.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// UserBalance reads a user's wallet balance.
	UserBalance(ctx context.Context, userID uuid.UUID) (money.Amount, error)

	// UserBalanceForUpdate reads a user's wallet balance and locks it for
	// the rest of the enclosing WithTx.
	UserBalanceForUpdate(ctx context.Context, userID uuid.UUID) (money.Amount, error)

	// SetUserBalance writes a user's wallet balance. Must be called with
	// the row locked via UserBalanceForUpdate.
	SetUserBalance(ctx context.Context, userID uuid.UUID, balance money.Amount) error

	// CompetitionBalance reads a competition's pooled balance.
	CompetitionBalance(ctx context.Context, competitionID uuid.UUID) (money.Amount, error)

	// CompetitionBalanceForUpdate reads and locks a competition's pooled
	// balance for the rest of the enclosing WithTx.
	CompetitionBalanceForUpdate(ctx context.Context, competitionID uuid.UUID) (money.Amount, error)

	// SetCompetitionBalance writes a competition's pooled balance.
	SetCompetitionBalance(ctx context.Context, competitionID uuid.UUID, balance money.Amount) error

	// AppendTransaction appends an immutable audit record.
	AppendTransaction(ctx context.Context, tx *Transaction) error

	// ListUserTransactions returns the user's records, newest first.
	ListUserTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error)

	// ListCompetitionTransactions returns a competition's records, newest first.
	ListCompetitionTransactions(ctx context.Context, competitionID uuid.UUID, limit int) ([]*Transaction, error)

	// SumCompetitionNet sums credits minus debits of the competition
	// wallet over the whole log. Used by the accounting reconciliation
	// check, never by the hot path.
	SumCompetitionNet(ctx context.Context, competitionID uuid.UUID) (money.Amount, error)
}
