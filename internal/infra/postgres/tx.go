package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ctxKey is the context key type for storing database transactions
type ctxKey string

const txContextKey ctxKey = "fantapay_tx"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repository
// methods work inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txFromContext retrieves the transaction from context if one exists
func txFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// withTxContext stores the transaction in the context
func withTxContext(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey, tx)
}

// queryerFromContext returns the transaction if one exists in context,
// otherwise the given pool.
func queryerFromContext(ctx context.Context, db *DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.Pool
}
