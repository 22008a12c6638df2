package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fantapay/fantapay/internal/platform/user"
	"github.com/fantapay/fantapay/pkg/money"
)

// UserRepo implements user.Repository using PostgreSQL
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new PostgreSQL user repository
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, language, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`

	q := queryerFromContext(ctx, r.db)
	_, err := q.Exec(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Language,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := userSelect + ` WHERE id = $1`
	return r.scanOne(queryerFromContext(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := userSelect + ` WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(queryerFromContext(ctx, r.db).QueryRow(ctx, query, email))
}

func (r *UserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := userSelect + ` WHERE id = ANY($1) ORDER BY name ASC`
	q := queryerFromContext(ctx, r.db)
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Update writes the mutable profile fields. The balance column is owned
// by the ledger store and is never touched here.
func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET name = $2, language = $3, password_hash = $4, last_login_at = $5, updated_at = $6
		WHERE id = $1
	`

	q := queryerFromContext(ctx, r.db)
	tag, err := q.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Language,
		u.PasswordHash,
		u.LastLoginAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`

	var exists bool
	q := queryerFromContext(ctx, r.db)
	if err := q.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

const userSelect = `
	SELECT id, email, name, password_hash, language, balance, created_at, updated_at, last_login_at
	FROM users
`

func (r *UserRepo) scanOne(row pgx.Row) (*user.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var cents int64

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Language,
		&cents,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Balance = money.FromCents(cents)
	return &u, nil
}
